package typesystem

import (
	"fmt"
	"strings"

	"github.com/funvibe/typer/internal/config"
)

// Type is the interface for all types in our system.
type Type interface {
	String() string
	Apply(Subst) Type
	FreeTypeVariables() []TVar
}

// Designator identifies the declaration a named type or term reference points to.
// Symbols implement it; the type algebra never looks inside.
type Designator interface {
	DesignatorID() int
	FullName() string
}

// Proto is an expected type that describes a capability rather than a concrete type.
type Proto interface {
	Type
	IsMatchedBy(tp Type, env *Env) bool
}

// Variance of a type parameter.
type Variance int

const (
	Invariant Variance = iota
	Covariant
	Contravariant
	Bivariant // no occurrence
)

func (v Variance) Flip() Variance {
	switch v {
	case Covariant:
		return Contravariant
	case Contravariant:
		return Covariant
	}
	return v
}

func (v Variance) String() string {
	switch v {
	case Covariant:
		return "+"
	case Contravariant:
		return "-"
	case Bivariant:
		return "*"
	}
	return ""
}

// TVar is an inference variable; its bounds and instance live in Constraints.
type TVar struct {
	ID     int
	Origin string // name of the type parameter it was created for, for messages
}

func (t TVar) Key() string { return fmt.Sprintf("?%d", t.ID) }

func (t TVar) String() string {
	if config.IsTestMode {
		return "?"
	}
	if t.Origin != "" {
		return fmt.Sprintf("?%s%d", t.Origin, t.ID)
	}
	return t.Key()
}

func (t TVar) Apply(s Subst) Type {
	if r, ok := s[t.Key()]; ok {
		return r
	}
	return t
}

func (t TVar) FreeTypeVariables() []TVar { return []TVar{t} }

// TParam is a rigid reference to a declared type parameter.
type TParam struct {
	Name     string
	Ref      Designator
	Variance Variance
}

// ParamKey is the substitution key of a type parameter.
func ParamKey(ref Designator) string { return fmt.Sprintf("%s#%d", ref.FullName(), ref.DesignatorID()) }

func (t TParam) Key() string { return ParamKey(t.Ref) }
func (t TParam) String() string { return t.Name }
func (t TParam) Apply(s Subst) Type {
	if r, ok := s[t.Key()]; ok {
		return r
	}
	return t
}
func (t TParam) FreeTypeVariables() []TVar { return nil }

// TCon is a reference to a class (or builtin type) without type arguments.
type TCon struct {
	Name string
	Ref  Designator
}

func (t TCon) String() string { return t.Name }
func (t TCon) Apply(Subst) Type { return t }
func (t TCon) FreeTypeVariables() []TVar { return nil }
func (t TCon) FullName() string {
	if t.Ref == nil {
		return t.Name
	}
	return t.Ref.FullName()
}

// TApp is a class applied to type arguments, e.g. Box[Int].
type TApp struct {
	Constructor TCon
	Args        []Type
}

func (t TApp) String() string {
	return fmt.Sprintf("%s[%s]", t.Constructor.String(), joinTypes(t.Args, ", "))
}

func (t TApp) Apply(s Subst) Type {
	return TApp{Constructor: t.Constructor, Args: applyAll(t.Args, s)}
}

func (t TApp) FreeTypeVariables() []TVar { return freeIn(t.Args...) }

// TFunc is the type of a function value, e.g. (Int, Int) => Boolean.
type TFunc struct {
	Params     []Type
	ReturnType Type
}

func (t TFunc) String() string {
	if len(t.Params) == 1 {
		if _, isFunc := t.Params[0].(TFunc); !isFunc {
			return fmt.Sprintf("%s => %s", t.Params[0], t.ReturnType)
		}
	}
	return fmt.Sprintf("(%s) => %s", joinTypes(t.Params, ", "), t.ReturnType)
}

func (t TFunc) Apply(s Subst) Type {
	return TFunc{Params: applyAll(t.Params, s), ReturnType: t.ReturnType.Apply(s)}
}

func (t TFunc) FreeTypeVariables() []TVar {
	return freeIn(append(append([]Type{}, t.Params...), t.ReturnType)...)
}

// TMethod is a method signature with one parameter list. Curried methods nest
// a TMethod in ReturnType. Implicit marks an implicit-only parameter list.
type TMethod struct {
	ParamNames []string
	Params     []Type
	ReturnType Type
	Implicit   bool
}

func (t TMethod) String() string {
	parts := make([]string, len(t.Params))
	for i, p := range t.Params {
		name := fmt.Sprintf("x%d", i)
		if i < len(t.ParamNames) {
			name = t.ParamNames[i]
		}
		parts[i] = name + ": " + p.String()
	}
	prefix := ""
	if t.Implicit {
		prefix = "implicit "
	}
	return fmt.Sprintf("(%s%s)%s", prefix, strings.Join(parts, ", "), t.ReturnType)
}

func (t TMethod) Apply(s Subst) Type {
	return TMethod{ParamNames: t.ParamNames, Params: applyAll(t.Params, s), ReturnType: t.ReturnType.Apply(s), Implicit: t.Implicit}
}

func (t TMethod) FreeTypeVariables() []TVar {
	return freeIn(append(append([]Type{}, t.Params...), t.ReturnType)...)
}

// FinalResult strips all parameter lists.
func (t TMethod) FinalResult() Type {
	if m, ok := t.ReturnType.(TMethod); ok {
		return m.FinalResult()
	}
	return t.ReturnType
}

// TExpr is the type of a by-name or parameterless member: `=> T`.
type TExpr struct {
	ReturnType Type
}

func (t TExpr) String() string { return "=> " + t.ReturnType.String() }
func (t TExpr) Apply(s Subst) Type { return TExpr{ReturnType: t.ReturnType.Apply(s)} }
func (t TExpr) FreeTypeVariables() []TVar { return t.ReturnType.FreeTypeVariables() }

// TForall is a polymorphic method type: [T, U](x: T)U.
type TForall struct {
	Vars []TParam
	Type Type
}

func (t TForall) String() string {
	names := make([]string, len(t.Vars))
	for i, v := range t.Vars {
		names[i] = v.Variance.String() + v.Name
	}
	return fmt.Sprintf("[%s]%s", strings.Join(names, ", "), t.Type)
}

func (t TForall) Apply(s Subst) Type {
	inner := make(Subst, len(s))
	for k, v := range s {
		inner[k] = v
	}
	for _, v := range t.Vars {
		delete(inner, v.Key())
	}
	return TForall{Vars: t.Vars, Type: t.Type.Apply(inner)}
}

func (t TForall) FreeTypeVariables() []TVar { return t.Type.FreeTypeVariables() }

// Instantiate substitutes args for the quantified variables.
func (t TForall) Instantiate(args []Type) Type {
	s := make(Subst, len(t.Vars))
	for i, v := range t.Vars {
		if i < len(args) {
			s[v.Key()] = args[i]
		}
	}
	return t.Type.Apply(s)
}

// TConst is the singleton type of a literal.
type TConst struct {
	Value      Constant
	Underlying Type
}

func (t TConst) String() string { return fmt.Sprintf("(%s : %s)", t.Value, t.Underlying) }
func (t TConst) Apply(Subst) Type { return t }
func (t TConst) FreeTypeVariables() []TVar { return nil }

// TUnion represents a union type (e.g. Int | String).
// Types are normalized: flattened and deduplicated, see NormalizeUnion.
type TUnion struct {
	Types []Type
}

func (t TUnion) String() string { return joinTypes(t.Types, " | ") }
func (t TUnion) Apply(s Subst) Type { return NormalizeUnion(applyAll(t.Types, s)) }
func (t TUnion) FreeTypeVariables() []TVar { return freeIn(t.Types...) }

// TAnd is an intersection type.
type TAnd struct {
	Types []Type
}

func (t TAnd) String() string { return joinTypes(t.Types, " & ") }
func (t TAnd) Apply(s Subst) Type { return NormalizeIntersection(applyAll(t.Types, s)) }
func (t TAnd) FreeTypeVariables() []TVar { return freeIn(t.Types...) }

// TRefined is a parent type refined with a member: P { name: Info }.
type TRefined struct {
	Parent Type
	Name   string
	Info   Type
}

func (t TRefined) String() string {
	return fmt.Sprintf("%s { %s: %s }", t.Parent, t.Name, t.Info)
}

func (t TRefined) Apply(s Subst) Type {
	return TRefined{Parent: t.Parent.Apply(s), Name: t.Name, Info: t.Info.Apply(s)}
}

func (t TRefined) FreeTypeVariables() []TVar { return freeIn(t.Parent, t.Info) }

// TAnnotated carries an annotation that does not affect subtyping.
type TAnnotated struct {
	Type       Type
	Annotation string
}

func (t TAnnotated) String() string { return fmt.Sprintf("%s @%s", t.Type, t.Annotation) }
func (t TAnnotated) Apply(s Subst) Type {
	return TAnnotated{Type: t.Type.Apply(s), Annotation: t.Annotation}
}
func (t TAnnotated) FreeTypeVariables() []TVar { return t.Type.FreeTypeVariables() }

// TError is the type of trees that failed to type check.
// It conforms in both directions so one error does not cascade.
type TError struct{}

func (TError) String() string { return "<error>" }
func (t TError) Apply(Subst) Type { return t }
func (TError) FreeTypeVariables() []TVar { return nil }

// TWildcard is an unconstrained placeholder `?` (optionally bounded).
type TWildcard struct {
	Lo Type
	Hi Type
}

func (t TWildcard) String() string {
	s := "?"
	if t.Lo != nil {
		s += " >: " + t.Lo.String()
	}
	if t.Hi != nil {
		s += " <: " + t.Hi.String()
	}
	return s
}

func (t TWildcard) Apply(s Subst) Type {
	w := TWildcard{}
	if t.Lo != nil {
		w.Lo = t.Lo.Apply(s)
	}
	if t.Hi != nil {
		w.Hi = t.Hi.Apply(s)
	}
	return w
}

func (t TWildcard) FreeTypeVariables() []TVar { return freeIn(t.Lo, t.Hi) }

// TNone is the type of statements that produce no value (definitions, imports).
type TNone struct{}

func (TNone) String() string { return "<notype>" }
func (t TNone) Apply(Subst) Type { return t }
func (TNone) FreeTypeVariables() []TVar { return nil }

// TTermRef is the singleton type of a stable term (package, module, value).
type TTermRef struct {
	Name       string
	Ref        Designator
	Underlying Type
}

func (t TTermRef) String() string { return t.Name + ".type" }
func (t TTermRef) Apply(s Subst) Type {
	if t.Underlying == nil {
		return t
	}
	return TTermRef{Name: t.Name, Ref: t.Ref, Underlying: t.Underlying.Apply(s)}
}
func (t TTermRef) FreeTypeVariables() []TVar { return freeIn(t.Underlying) }

// TThis is C.this.type; Self is C applied to its own type parameters.
type TThis struct {
	Class Designator
	Self  Type
}

func (t TThis) String() string { return fmt.Sprintf("%s.this.type", t.Self) }
func (t TThis) Apply(Subst) Type { return t }
func (t TThis) FreeTypeVariables() []TVar { return nil }

// TSuper is C.super[P]: member selection starts from the parent P.
type TSuper struct {
	This  TThis
	Super Type
}

func (t TSuper) String() string { return fmt.Sprintf("%s.super[%s]", t.This.Self, t.Super) }
func (t TSuper) Apply(Subst) Type { return t }
func (t TSuper) FreeTypeVariables() []TVar { return nil }

// Alternative is one member of an overloaded reference.
type Alternative struct {
	Ref  Designator
	Info Type
}

// TOverloaded is the type of a reference that still denotes several alternatives.
type TOverloaded struct {
	Name string
	Alts []Alternative
}

func (t TOverloaded) String() string { return fmt.Sprintf("<overloaded %s>", t.Name) }
func (t TOverloaded) Apply(s Subst) Type {
	alts := make([]Alternative, len(t.Alts))
	for i, a := range t.Alts {
		alts[i] = Alternative{Ref: a.Ref, Info: a.Info.Apply(s)}
	}
	return TOverloaded{Name: t.Name, Alts: alts}
}
func (t TOverloaded) FreeTypeVariables() []TVar {
	var vars []TVar
	for _, a := range t.Alts {
		vars = append(vars, a.Info.FreeTypeVariables()...)
	}
	return uniqueTVars(vars)
}

// WildcardProto is the absence of an expectation.
type WildcardProto struct{}

func (WildcardProto) String() string { return "?" }
func (p WildcardProto) Apply(Subst) Type { return p }
func (WildcardProto) FreeTypeVariables() []TVar { return nil }
func (WildcardProto) IsMatchedBy(Type, *Env) bool { return true }

// AnyProto is the shared "no expected type" value.
var AnyProto Proto = WildcardProto{}

// IsNoProto reports whether pt carries no expectation.
func IsNoProto(pt Type) bool {
	switch pt.(type) {
	case nil, WildcardProto:
		return true
	}
	return false
}

// Subst is a mapping from type parameter / type variable keys to types.
type Subst map[string]Type

// Compose returns a substitution equivalent to applying s2 and then s1.
func (s1 Subst) Compose(s2 Subst) Subst {
	subst := Subst{}
	for k, v := range s2 {
		subst[k] = v.Apply(s1)
	}
	for k, v := range s1 {
		if _, ok := subst[k]; !ok {
			subst[k] = v
		}
	}
	return subst
}

// NormalizeUnion creates a normalized union type.
// It flattens nested unions and removes duplicates, keeping first-seen order.
func NormalizeUnion(types []Type) Type {
	flat := []Type{}
	for _, t := range types {
		if u, ok := t.(TUnion); ok {
			flat = append(flat, u.Types...)
		} else if t != nil {
			flat = append(flat, t)
		}
	}
	unique := dedupTypes(flat)
	if len(unique) == 1 {
		return unique[0]
	}
	return TUnion{Types: unique}
}

// NormalizeIntersection is the TAnd counterpart of NormalizeUnion.
func NormalizeIntersection(types []Type) Type {
	flat := []Type{}
	for _, t := range types {
		if a, ok := t.(TAnd); ok {
			flat = append(flat, a.Types...)
		} else if t != nil {
			flat = append(flat, t)
		}
	}
	unique := dedupTypes(flat)
	if len(unique) == 1 {
		return unique[0]
	}
	return TAnd{Types: unique}
}

func dedupTypes(types []Type) []Type {
	unique := []Type{}
	for _, t := range types {
		dup := false
		for _, u := range unique {
			if Equal(t, u) {
				dup = true
				break
			}
		}
		if !dup {
			unique = append(unique, t)
		}
	}
	return unique
}

func applyAll(types []Type, s Subst) []Type {
	out := make([]Type, len(types))
	for i, t := range types {
		out[i] = t.Apply(s)
	}
	return out
}

func freeIn(types ...Type) []TVar {
	vars := []TVar{}
	for _, t := range types {
		if t != nil {
			vars = append(vars, t.FreeTypeVariables()...)
		}
	}
	return uniqueTVars(vars)
}

func joinTypes(types []Type, sep string) string {
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = t.String()
	}
	return strings.Join(parts, sep)
}

func uniqueTVars(vars []TVar) []TVar {
	unique := []TVar{}
	seen := map[int]bool{}
	for _, v := range vars {
		if !seen[v.ID] {
			seen[v.ID] = true
			unique = append(unique, v)
		}
	}
	return unique
}
