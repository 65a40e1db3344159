package typesystem

import (
	"github.com/funvibe/typer/internal/config"
)

// Resolver lets the type algebra look at class declarations through the
// symbol table without depending on it.
type Resolver interface {
	// ClassParents returns the parent types of a class, expressed in terms of
	// the class's own type parameters.
	ClassParents(ref Designator) []Type
	ClassTypeParams(ref Designator) []TParam
	// ParamBounds returns the declared bounds of a type parameter (nil when absent).
	ParamBounds(ref Designator) (lo, hi Type)
}

// Env is the context of a subtype check: class hierarchy, the type
// variables of the current typer state and the GADT bounds in scope.
type Env struct {
	Resolver    Resolver
	Constraints *Constraints
	Gadt        *GadtConstraint
}

// WithConstraints returns a copy of the environment recording into c.
func (e *Env) WithConstraints(c *Constraints) *Env {
	cp := *e
	cp.Constraints = c
	return &cp
}

// typePair represents a pair of types being compared, for co-induction
type typePair struct {
	t1 Type
	t2 Type
}

// IsSubtype checks tp1 <: tp2. Uninstantiated type variables of the current
// constraint set get their bounds narrowed as a side effect, which is why
// speculative checks run on a forked constraint set (see Conforms).
func (e *Env) IsSubtype(tp1, tp2 Type) bool {
	return e.isSubtype(tp1, tp2, nil)
}

// Conforms runs a subtype check without keeping any constraint it records.
func (e *Env) Conforms(tp1, tp2 Type) bool {
	if e.Constraints == nil {
		return e.IsSubtype(tp1, tp2)
	}
	return e.WithConstraints(e.Constraints.Clone()).IsSubtype(tp1, tp2)
}

// IsSameType checks mutual conformance.
func (e *Env) IsSameType(tp1, tp2 Type) bool {
	return e.IsSubtype(tp1, tp2) && e.IsSubtype(tp2, tp1)
}

func (e *Env) isSubtype(tp1, tp2 Type, visited []typePair) bool {
	if tp1 == nil || tp2 == nil {
		return false
	}
	for _, p := range visited {
		if Equal(p.t1, tp1) && Equal(p.t2, tp2) {
			return true
		}
	}
	visited = append(visited, typePair{t1: tp1, t2: tp2})

	if Equal(tp1, tp2) {
		return true
	}
	if isError(tp1) || isError(tp2) {
		return true
	}
	if p, ok := tp2.(Proto); ok {
		return p.IsMatchedBy(tp1, e)
	}

	// Type variables first: they absorb anything into their bounds.
	if v, ok := tp1.(TVar); ok {
		if inst, ok := e.instance(v); ok {
			return e.isSubtype(inst, tp2, visited)
		}
		if v2, ok := tp2.(TVar); ok {
			if inst, ok := e.instance(v2); ok {
				return e.isSubtype(tp1, inst, visited)
			}
			return e.addUpper(v, tp2, visited) && e.addLower(v2, tp1, visited)
		}
		return e.addUpper(v, tp2, visited)
	}
	if v, ok := tp2.(TVar); ok {
		if inst, ok := e.instance(v); ok {
			return e.isSubtype(tp1, inst, visited)
		}
		return e.addLower(v, tp1, visited)
	}

	if a, ok := tp1.(TAnnotated); ok {
		return e.isSubtype(a.Type, tp2, visited)
	}
	if a, ok := tp2.(TAnnotated); ok {
		return e.isSubtype(tp1, a.Type, visited)
	}
	if x, ok := tp1.(TExpr); ok {
		if y, ok := tp2.(TExpr); ok {
			return e.isSubtype(x.ReturnType, y.ReturnType, visited)
		}
		return e.isSubtype(x.ReturnType, tp2, visited)
	}
	if y, ok := tp2.(TExpr); ok {
		return e.isSubtype(tp1, y.ReturnType, visited)
	}

	if IsAny(tp2) || IsNothing(tp1) {
		return true
	}

	// Unions on the left and intersections on the right split into all parts.
	if u, ok := tp1.(TUnion); ok {
		for _, t := range u.Types {
			if !e.isSubtype(t, tp2, visited) {
				return false
			}
		}
		return true
	}
	if a, ok := tp2.(TAnd); ok {
		for _, t := range a.Types {
			if !e.isSubtype(tp1, t, visited) {
				return false
			}
		}
		return true
	}

	// GADT-constrainable parameters record bounds instead of failing.
	if p, ok := tp1.(TParam); ok && e.Gadt.constraining(p) {
		return e.Gadt.addUpper(e, p, tp2)
	}
	if p, ok := tp2.(TParam); ok && e.Gadt.constraining(p) {
		return e.Gadt.addLower(e, p, tp1)
	}

	if u, ok := tp2.(TUnion); ok {
		for _, t := range u.Types {
			if e.firstOf(tp1, t, visited) {
				return true
			}
		}
		// fall through: a widened left side may still conform to a part
	}
	if a, ok := tp1.(TAnd); ok {
		for _, t := range a.Types {
			if e.firstOf(t, tp2, visited) {
				return true
			}
		}
		return false
	}

	if IsNull(tp1) {
		return e.isNullable(tp2)
	}

	switch b := tp2.(type) {
	case TParam:
		if lo := e.lowerBound(b); lo != nil && e.isSubtype(tp1, lo, visited) {
			return true
		}
	case TWildcard:
		if b.Hi == nil {
			return true
		}
		return e.isSubtype(tp1, b.Hi, visited)
	case TRefined:
		if a, ok := tp1.(TRefined); ok && a.Name == b.Name {
			return e.isSubtype(a.Parent, b.Parent, visited) && e.isSubtype(a.Info, b.Info, visited)
		}
		return false
	case TThis, TTermRef, TConst:
		// Singletons only contain themselves (handled by Equal) and their
		// aliases; widening the right side would be unsound.
		if a, ok := tp1.(TTermRef); ok && a.Underlying != nil {
			if bt, ok := tp2.(TTermRef); ok && bt.Underlying != nil && Equal(a.Underlying, bt) {
				return true
			}
		}
		if _, ok := tp2.(TThis); ok {
			if at, ok := tp1.(TThis); ok {
				return sameRef(at.Class, b.(TThis).Class)
			}
		}
		if ac, ok := tp1.(TConst); ok {
			if bc, ok := tp2.(TConst); ok {
				return ac.Value == bc.Value
			}
		}
		return false
	}

	switch a := tp1.(type) {
	case TParam:
		hi := e.upperBound(a)
		if hi == nil {
			return false
		}
		return e.isSubtype(hi, tp2, visited)
	case TConst:
		return e.isSubtype(a.Underlying, tp2, visited)
	case TTermRef:
		if a.Underlying == nil {
			return false
		}
		return e.isSubtype(a.Underlying, tp2, visited)
	case TThis:
		return a.Self != nil && e.isSubtype(a.Self, tp2, visited)
	case TSuper:
		return e.isSubtype(a.Super, tp2, visited)
	case TRefined:
		return e.isSubtype(a.Parent, tp2, visited)
	case TWildcard:
		if a.Hi == nil {
			return IsAny(tp2)
		}
		return e.isSubtype(a.Hi, tp2, visited)
	case TFunc:
		b, ok := tp2.(TFunc)
		if !ok || len(a.Params) != len(b.Params) {
			return false
		}
		for i := range a.Params {
			if !e.isSubtype(b.Params[i], a.Params[i], visited) {
				return false
			}
		}
		return e.isSubtype(a.ReturnType, b.ReturnType, visited)
	case TMethod:
		b, ok := tp2.(TMethod)
		if !ok || len(a.Params) != len(b.Params) || a.Implicit != b.Implicit {
			return false
		}
		for i := range a.Params {
			if !e.isSubtype(b.Params[i], a.Params[i], visited) {
				return false
			}
		}
		return e.isSubtype(a.ReturnType, b.ReturnType, visited)
	case TForall:
		b, ok := tp2.(TForall)
		if !ok || len(a.Vars) != len(b.Vars) {
			return false
		}
		args := make([]Type, len(b.Vars))
		for i, v := range b.Vars {
			args[i] = v
		}
		return e.isSubtype(a.Instantiate(args), b.Type, visited)
	case TCon, TApp:
		return e.isClassSubtype(tp1, tp2, visited)
	}
	return false
}

// firstOf tries one branch of a disjunction on a forked constraint set and
// keeps its constraints only if it succeeds.
func (e *Env) firstOf(tp1, tp2 Type, visited []typePair) bool {
	if e.Constraints == nil {
		return e.isSubtype(tp1, tp2, visited)
	}
	trial := e.WithConstraints(e.Constraints.Clone())
	if !trial.isSubtype(tp1, tp2, visited) {
		return false
	}
	*e.Constraints = *trial.Constraints
	return true
}

func (e *Env) isClassSubtype(tp1, tp2 Type, visited []typePair) bool {
	target, args := classOf(tp2)
	if target == nil {
		return false
	}
	base := e.BaseType(tp1, *target)
	if base == nil {
		return false
	}
	_, baseArgs := classOf(base)
	if len(args) == 0 || len(baseArgs) != len(args) {
		// raw reference: class identity is enough
		return len(args) == 0
	}
	var params []TParam
	if e.Resolver != nil && target.Ref != nil {
		params = e.Resolver.ClassTypeParams(target.Ref)
	}
	for i := range args {
		variance := Invariant
		if i < len(params) {
			variance = params[i].Variance
		}
		if !e.argConforms(baseArgs[i], args[i], variance, visited) {
			return false
		}
	}
	return true
}

func (e *Env) argConforms(actual, expected Type, variance Variance, visited []typePair) bool {
	if w, ok := expected.(TWildcard); ok {
		if w.Lo != nil && !e.isSubtype(w.Lo, actual, visited) {
			return false
		}
		return w.Hi == nil || e.isSubtype(actual, w.Hi, visited)
	}
	switch variance {
	case Covariant:
		return e.isSubtype(actual, expected, visited)
	case Contravariant:
		return e.isSubtype(expected, actual, visited)
	case Bivariant:
		return true
	}
	return e.isSubtype(actual, expected, visited) && e.isSubtype(expected, actual, visited)
}

func (e *Env) instance(v TVar) (Type, bool) {
	if e.Constraints == nil {
		return nil, false
	}
	return e.Constraints.Instance(v)
}

// addUpper records v <: hi after checking it is consistent with v's lower bound.
func (e *Env) addUpper(v TVar, hi Type, visited []typePair) bool {
	if e.Constraints == nil || !e.Constraints.Contains(v) {
		return false
	}
	b := e.Constraints.Bounds(v)
	if b.Lo != nil && !e.isSubtype(b.Lo, hi, visited) {
		return false
	}
	switch {
	case b.Hi == nil:
		e.Constraints.SetUpper(v, hi)
	case e.Conforms(hi, b.Hi):
		e.Constraints.SetUpper(v, hi)
	case e.Conforms(b.Hi, hi):
		// existing bound is tighter
	default:
		e.Constraints.SetUpper(v, NormalizeIntersection([]Type{b.Hi, hi}))
	}
	return true
}

// addLower records lo <: v after checking it is consistent with v's upper bound.
func (e *Env) addLower(v TVar, lo Type, visited []typePair) bool {
	if e.Constraints == nil || !e.Constraints.Contains(v) {
		return false
	}
	b := e.Constraints.Bounds(v)
	if b.Hi != nil && !e.isSubtype(lo, b.Hi, visited) {
		return false
	}
	if b.Lo == nil {
		e.Constraints.SetLower(v, lo)
	} else {
		e.Constraints.SetLower(v, e.Join(b.Lo, lo))
	}
	return true
}

func (e *Env) upperBound(p TParam) Type {
	if _, hi, ok := e.Gadt.Bounds(p); ok && hi != nil {
		return hi
	}
	if e.Resolver == nil || p.Ref == nil {
		return nil
	}
	_, hi := e.Resolver.ParamBounds(p.Ref)
	return hi
}

func (e *Env) lowerBound(p TParam) Type {
	if lo, _, ok := e.Gadt.Bounds(p); ok && lo != nil {
		return lo
	}
	if e.Resolver == nil || p.Ref == nil {
		return nil
	}
	lo, _ := e.Resolver.ParamBounds(p.Ref)
	return lo
}

// isNullable reports whether Null conforms to tp: every reference type
// except value classes and Nothing.
func (e *Env) isNullable(tp Type) bool {
	switch t := tp.(type) {
	case TCon, TApp:
		if IsNothing(t) {
			return false
		}
		con, _ := classOf(t)
		if con.FullName() == config.QualifiedBuiltin(config.AnyValTypeName) {
			return false
		}
		return e.BaseTypeNamed(t, config.QualifiedBuiltin(config.AnyValTypeName)) == nil
	case TUnion:
		for _, p := range t.Types {
			if e.isNullable(p) {
				return true
			}
		}
	}
	return false
}

// BaseType returns the instance of class cls among the base types of tp,
// e.g. BaseType(List[Int], Seq) = Seq[Int]. Nil when cls is not a base class.
func (e *Env) BaseType(tp Type, cls TCon) Type {
	return e.baseType(tp, func(c TCon) bool { return sameCon(c, cls) }, 0)
}

// BaseTypeNamed is BaseType with the class given by full name.
func (e *Env) BaseTypeNamed(tp Type, fullName string) Type {
	return e.baseType(tp, func(c TCon) bool { return c.FullName() == fullName }, 0)
}

const maxBaseDepth = 64

func (e *Env) baseType(tp Type, match func(TCon) bool, depth int) Type {
	if depth > maxBaseDepth || tp == nil {
		return nil
	}
	switch t := tp.(type) {
	case TCon, TApp:
		con, args := classOf(t)
		if match(*con) {
			return t
		}
		if e.Resolver == nil || con.Ref == nil {
			return nil
		}
		s := Subst{}
		for i, p := range e.Resolver.ClassTypeParams(con.Ref) {
			if i < len(args) {
				s[p.Key()] = args[i]
			}
		}
		for _, parent := range e.Resolver.ClassParents(con.Ref) {
			if b := e.baseType(parent.Apply(s), match, depth+1); b != nil {
				return b
			}
		}
	case TParam:
		return e.baseType(e.upperBound(t), match, depth+1)
	case TConst:
		return e.baseType(t.Underlying, match, depth+1)
	case TTermRef:
		return e.baseType(t.Underlying, match, depth+1)
	case TThis:
		return e.baseType(t.Self, match, depth+1)
	case TRefined:
		return e.baseType(t.Parent, match, depth+1)
	case TAnnotated:
		return e.baseType(t.Type, match, depth+1)
	case TAnd:
		for _, p := range t.Types {
			if b := e.baseType(p, match, depth+1); b != nil {
				return b
			}
		}
	case TVar:
		if inst, ok := e.instance(t); ok {
			return e.baseType(inst, match, depth+1)
		}
		if e.Constraints != nil {
			return e.baseType(e.Constraints.Bounds(t).Hi, match, depth+1)
		}
	}
	return nil
}

// Join is the least upper bound `|`. Incomparable types form a union.
func (e *Env) Join(tp1, tp2 Type) Type {
	if tp1 == nil {
		return tp2
	}
	if tp2 == nil {
		return tp1
	}
	if isError(tp1) || isError(tp2) {
		return TError{}
	}
	if e.Conforms(tp1, tp2) {
		return tp2
	}
	if e.Conforms(tp2, tp1) {
		return tp1
	}
	return NormalizeUnion([]Type{tp1, tp2})
}

// JoinAll folds Join over types; Nothing for an empty list.
func (e *Env) JoinAll(types []Type) Type {
	var acc Type
	for _, t := range types {
		acc = e.Join(acc, t)
	}
	if acc == nil {
		return Builtin(config.NothingTypeName)
	}
	return acc
}

// Meet is the greatest lower bound `&`.
func (e *Env) Meet(tp1, tp2 Type) Type {
	if tp1 == nil {
		return tp2
	}
	if tp2 == nil {
		return tp1
	}
	if e.Conforms(tp1, tp2) {
		return tp1
	}
	if e.Conforms(tp2, tp1) {
		return tp2
	}
	return NormalizeIntersection([]Type{tp1, tp2})
}

// Widen drops singleton types: literal types become their class,
// term references their underlying type.
func Widen(tp Type) Type {
	switch t := tp.(type) {
	case TConst:
		return t.Underlying
	case TTermRef:
		if t.Underlying != nil {
			return Widen(t.Underlying)
		}
	case TExpr:
		return TExpr{ReturnType: Widen(t.ReturnType)}
	case TUnion:
		parts := make([]Type, len(t.Types))
		for i, p := range t.Types {
			parts[i] = Widen(p)
		}
		return NormalizeUnion(parts)
	}
	return tp
}

// Dealias strips annotations and by-name wrappers.
func Dealias(tp Type) Type {
	switch t := tp.(type) {
	case TAnnotated:
		return Dealias(t.Type)
	case TExpr:
		return Dealias(t.ReturnType)
	}
	return tp
}

// Builtin returns an unresolved reference to a builtin class by simple name.
// The symbol table replaces these with resolved references when it builds the prelude.
func Builtin(name string) TCon {
	return TCon{Name: name, Ref: builtinRef(config.QualifiedBuiltin(name))}
}

// builtinRef is a designator for builtin classes used before (or without) a symbol table.
type builtinRef string

func (b builtinRef) DesignatorID() int {
	h := 0
	for _, r := range string(b) {
		h = h*31 + int(r)
	}
	if h < 0 {
		h = -h
	}
	return -1 - h
}

func (b builtinRef) FullName() string { return string(b) }

func IsAny(tp Type) bool     { return isClassNamed(tp, config.AnyTypeName) }
func IsNothing(tp Type) bool { return isClassNamed(tp, config.NothingTypeName) }
func IsNull(tp Type) bool    { return isClassNamed(tp, config.NullTypeName) }
func IsUnit(tp Type) bool    { return isClassNamed(tp, config.UnitTypeName) }
func IsBoolean(tp Type) bool { return isClassNamed(tp, config.BooleanTypeName) }

func isClassNamed(tp Type, name string) bool {
	switch t := tp.(type) {
	case TCon:
		return t.FullName() == config.QualifiedBuiltin(name)
	case TConst:
		return t.Value.Tag == NullTag && name == config.NullTypeName
	}
	return false
}

func isError(tp Type) bool {
	_, ok := tp.(TError)
	return ok
}

// IsError reports whether tp is the error type.
func IsError(tp Type) bool { return isError(tp) }

// classOf splits a class type into constructor and arguments.
func classOf(tp Type) (*TCon, []Type) {
	switch t := tp.(type) {
	case TCon:
		return &t, nil
	case TApp:
		c := t.Constructor
		return &c, t.Args
	}
	return nil, nil
}

// ClassOf returns the class constructor of tp after widening, if tp is a class type.
func ClassOf(tp Type) (TCon, []Type, bool) {
	c, args := classOf(Dealias(Widen(tp)))
	if c == nil {
		return TCon{}, nil, false
	}
	return *c, args, true
}
