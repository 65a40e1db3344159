package typesystem

import (
	"github.com/hashicorp/go-set/v3"
)

type gadtBounds struct {
	Lo Type
	Hi Type
}

// GadtConstraint holds the flow-sensitive bounds of the enclosing method's
// type parameters inside one match case. It is installed per case and
// restored from a snapshot when the case is done.
type GadtConstraint struct {
	bounds     map[string]gadtBounds
	narrowable *set.Set[string]
	recording  bool
}

func NewGadtConstraint() *GadtConstraint {
	return &GadtConstraint{
		bounds:     make(map[string]gadtBounds),
		narrowable: set.New[string](0),
	}
}

// GadtSnapshot is an opaque copy of the constraint state.
type GadtSnapshot struct {
	bounds     map[string]gadtBounds
	narrowable *set.Set[string]
	recording  bool
}

func (g *GadtConstraint) Snapshot() GadtSnapshot {
	if g == nil {
		return GadtSnapshot{}
	}
	bounds := make(map[string]gadtBounds, len(g.bounds))
	for k, v := range g.bounds {
		bounds[k] = v
	}
	return GadtSnapshot{bounds: bounds, narrowable: g.narrowable.Copy(), recording: g.recording}
}

func (g *GadtConstraint) Restore(s GadtSnapshot) {
	if g == nil {
		return
	}
	g.bounds = s.bounds
	g.narrowable = s.narrowable
	g.recording = s.recording
	if g.bounds == nil {
		g.bounds = make(map[string]gadtBounds)
	}
	if g.narrowable == nil {
		g.narrowable = set.New[string](0)
	}
}

// AddNarrowable makes p a candidate for narrowing in the current case.
func (g *GadtConstraint) AddNarrowable(p TParam) {
	g.narrowable.Insert(p.Key())
}

func (g *GadtConstraint) IsNarrowable(p TParam) bool {
	return g != nil && g.narrowable.Contains(p.Key())
}

// SetRecording switches subtype checks between reading the narrowed bounds
// and recording new ones (while a pattern is typed against its scrutinee).
func (g *GadtConstraint) SetRecording(on bool) bool {
	if g == nil {
		return false
	}
	prev := g.recording
	g.recording = on
	return prev
}

// Bounds returns the narrowed bounds of p, if any were installed.
func (g *GadtConstraint) Bounds(p TParam) (lo, hi Type, ok bool) {
	if g == nil {
		return nil, nil, false
	}
	b, ok := g.bounds[p.Key()]
	if !ok {
		return nil, nil, false
	}
	return b.Lo, b.Hi, true
}

// Narrowed lists the keys of parameters with installed bounds.
func (g *GadtConstraint) Narrowed() []string {
	if g == nil {
		return nil
	}
	keys := make([]string, 0, len(g.bounds))
	for k := range g.bounds {
		keys = append(keys, k)
	}
	return keys
}

func (g *GadtConstraint) constraining(p TParam) bool {
	return g != nil && g.recording && g.narrowable.Contains(p.Key())
}

func (g *GadtConstraint) addUpper(e *Env, p TParam, hi Type) bool {
	b := g.bounds[p.Key()]
	switch {
	case b.Hi == nil:
		b.Hi = hi
	case e.Conforms(hi, b.Hi):
		b.Hi = hi
	case e.Conforms(b.Hi, hi):
	default:
		b.Hi = NormalizeIntersection([]Type{b.Hi, hi})
	}
	g.bounds[p.Key()] = b
	return true
}

func (g *GadtConstraint) addLower(e *Env, p TParam, lo Type) bool {
	b := g.bounds[p.Key()]
	if b.Lo == nil {
		b.Lo = lo
	} else {
		b.Lo = e.Join(b.Lo, lo)
	}
	g.bounds[p.Key()] = b
	return true
}

// OccurrenceVariance reports how the type parameter with the given key occurs
// in tp: Bivariant if it does not occur, Invariant if it occurs in both or in
// an invariant position.
func (e *Env) OccurrenceVariance(tp Type, key string) Variance {
	return e.occurrence(tp, key, Covariant)
}

func combineVariance(a, b Variance) Variance {
	switch {
	case a == Bivariant:
		return b
	case b == Bivariant:
		return a
	case a == b:
		return a
	}
	return Invariant
}

// position composes an outer position with a declared parameter variance.
func position(outer, declared Variance) Variance {
	switch declared {
	case Covariant:
		return outer
	case Contravariant:
		return outer.Flip()
	case Bivariant:
		return Bivariant
	}
	return Invariant
}

func (e *Env) occurrence(tp Type, key string, pos Variance) Variance {
	result := Bivariant
	add := func(v Variance) { result = combineVariance(result, v) }
	switch t := tp.(type) {
	case TParam:
		if t.Key() == key {
			return pos
		}
	case TApp:
		var params []TParam
		if e.Resolver != nil && t.Constructor.Ref != nil {
			params = e.Resolver.ClassTypeParams(t.Constructor.Ref)
		}
		for i, arg := range t.Args {
			declared := Invariant
			if i < len(params) {
				declared = params[i].Variance
			}
			p := position(pos, declared)
			if p == Bivariant {
				continue
			}
			add(e.occurrence(arg, key, p))
		}
	case TFunc:
		for _, p := range t.Params {
			add(e.occurrence(p, key, pos.Flip()))
		}
		add(e.occurrence(t.ReturnType, key, pos))
	case TMethod:
		for _, p := range t.Params {
			add(e.occurrence(p, key, pos.Flip()))
		}
		add(e.occurrence(t.ReturnType, key, pos))
	case TExpr:
		add(e.occurrence(t.ReturnType, key, pos))
	case TUnion:
		for _, p := range t.Types {
			add(e.occurrence(p, key, pos))
		}
	case TAnd:
		for _, p := range t.Types {
			add(e.occurrence(p, key, pos))
		}
	case TRefined:
		add(e.occurrence(t.Parent, key, pos))
		add(e.occurrence(t.Info, key, pos))
	case TAnnotated:
		add(e.occurrence(t.Type, key, pos))
	case TWildcard:
		if t.Lo != nil {
			add(e.occurrence(t.Lo, key, pos.Flip()))
		}
		if t.Hi != nil {
			add(e.occurrence(t.Hi, key, pos))
		}
	case TTermRef:
		if t.Underlying != nil {
			add(e.occurrence(t.Underlying, key, pos))
		}
	}
	return result
}
