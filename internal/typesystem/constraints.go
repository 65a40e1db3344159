package typesystem

import (
	"sort"

	"github.com/hashicorp/go-set/v3"
)

// VarBounds are the accumulated bounds of one inference variable.
// A nil bound means "unconstrained" (Nothing below, Any above).
type VarBounds struct {
	Lo   Type
	Hi   Type
	Inst Type // set once the variable is interpolated
}

// Constraints holds the type variables of one typer state. A child typer
// state works on a Clone; committing moves the clone into the parent.
type Constraints struct {
	vars    map[int]*VarBounds
	origins map[int]string
	counter *int // shared by all clones so IDs stay unique across forks
	version int
}

func NewConstraints() *Constraints {
	n := 0
	return &Constraints{
		vars:    make(map[int]*VarBounds),
		origins: make(map[int]string),
		counter: &n,
	}
}

// Clone makes an independent copy sharing only the ID counter.
func (c *Constraints) Clone() *Constraints {
	vars := make(map[int]*VarBounds, len(c.vars))
	for id, b := range c.vars {
		cp := *b
		vars[id] = &cp
	}
	origins := make(map[int]string, len(c.origins))
	for id, o := range c.origins {
		origins[id] = o
	}
	return &Constraints{vars: vars, origins: origins, counter: c.counter, version: c.version}
}

// Version increases with every modification.
func (c *Constraints) Version() int { return c.version }

// Fresh creates a new unconstrained type variable.
func (c *Constraints) Fresh(origin string) TVar {
	*c.counter++
	id := *c.counter
	c.vars[id] = &VarBounds{}
	c.origins[id] = origin
	c.version++
	return TVar{ID: id, Origin: origin}
}

// Contains reports whether v was created in (or inherited by) this constraint set.
func (c *Constraints) Contains(v TVar) bool {
	_, ok := c.vars[v.ID]
	return ok
}

func (c *Constraints) Bounds(v TVar) VarBounds {
	if b, ok := c.vars[v.ID]; ok {
		return *b
	}
	return VarBounds{}
}

// Instance returns the instance of v, if it was interpolated.
func (c *Constraints) Instance(v TVar) (Type, bool) {
	if b, ok := c.vars[v.ID]; ok && b.Inst != nil {
		return b.Inst, true
	}
	return nil, false
}

func (c *Constraints) SetLower(v TVar, lo Type) {
	if b, ok := c.vars[v.ID]; ok {
		b.Lo = lo
		c.version++
	}
}

func (c *Constraints) SetUpper(v TVar, hi Type) {
	if b, ok := c.vars[v.ID]; ok {
		b.Hi = hi
		c.version++
	}
}

func (c *Constraints) Instantiate(v TVar, inst Type) {
	if b, ok := c.vars[v.ID]; ok {
		b.Inst = inst
		c.version++
	}
}

// Uninstantiated lists variables without an instance, in creation order.
func (c *Constraints) Uninstantiated() []TVar {
	ids := make([]int, 0, len(c.vars))
	for id, b := range c.vars {
		if b.Inst == nil {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	out := make([]TVar, len(ids))
	for i, id := range ids {
		out[i] = TVar{ID: id, Origin: c.origins[id]}
	}
	return out
}

// Solution returns a substitution mapping every instantiated variable to its
// fully resolved instance.
func (c *Constraints) Solution() Subst {
	s := make(Subst, len(c.vars))
	for id, b := range c.vars {
		if b.Inst != nil {
			s[TVar{ID: id}.Key()] = b.Inst
		}
	}
	// Instances may mention other instantiated variables; resolve transitively.
	for i := 0; i < len(s); i++ {
		changed := false
		for k, v := range s {
			nv := v.Apply(s)
			if !Equal(nv, v) {
				s[k] = nv
				changed = true
			}
		}
		if !changed {
			break
		}
	}
	return s
}

// Occurring returns the set of variable IDs appearing free in the given types.
func Occurring(types ...Type) *set.Set[int] {
	ids := set.New[int](4)
	for _, t := range types {
		if t == nil {
			continue
		}
		for _, v := range t.FreeTypeVariables() {
			ids.Insert(v.ID)
		}
	}
	return ids
}

// Mark returns the current position in variable creation order.
func (c *Constraints) Mark() int { return *c.counter }

// UninstantiatedSince lists the uninstantiated variables created after mark.
func (c *Constraints) UninstantiatedSince(mark int) []TVar {
	var out []TVar
	for _, v := range c.Uninstantiated() {
		if v.ID > mark {
			out = append(out, v)
		}
	}
	return out
}
