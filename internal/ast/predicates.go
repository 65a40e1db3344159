package ast

import (
	"unicode"

	"github.com/funvibe/typer/internal/config"
)

// IsWildcard reports whether t is the `_` pattern.
func IsWildcard[A Annotation](t Tree[A]) bool {
	id, ok := t.(*Ident[A])
	return ok && id.Name == config.WildcardName
}

// IsVarPattern reports whether t is a variable pattern: a lower-case identifier
// or `_`. Upper-case identifiers in patterns are stable references.
func IsVarPattern[A Annotation](t Tree[A]) bool {
	id, ok := t.(*Ident[A])
	if !ok || id.Name == "" {
		return false
	}
	if id.Name == config.WildcardName {
		return true
	}
	r := []rune(id.Name)[0]
	return unicode.IsLower(r) || r == '_'
}

// StripBind removes binder and ascription wrappers from a pattern.
func StripBind[A Annotation](t Tree[A]) Tree[A] {
	for {
		switch n := t.(type) {
		case *Bind[A]:
			t = n.Body
		case *Ascription[A]:
			t = n.Expr
		default:
			return t
		}
	}
}

// IsSelfConstructorCall reports whether t is this(...), a call of another
// constructor of the same class.
func IsSelfConstructorCall[A Annotation](t Tree[A]) bool {
	app, ok := t.(*Apply[A])
	if !ok {
		return false
	}
	sel, ok := app.Fun.(*Select[A])
	if !ok || sel.Name != config.ConstructorName {
		return false
	}
	_, isThis := sel.Qualifier.(*This[A])
	return isThis
}

// IsDefinition reports whether t declares a symbol.
func IsDefinition[A Annotation](t Tree[A]) bool {
	switch t.(type) {
	case *ValDef[A], *DefDef[A], *TypeDef[A], *ClassDef[A], *ModuleDef[A]:
		return true
	}
	return false
}

// IsTypeTree reports whether t is one of the type tree shapes.
func IsTypeTree[A Annotation](t Tree[A]) bool {
	switch t.(type) {
	case *TypeIdent[A], *TypeSelect[A], *AppliedTypeTree[A], *FunctionTypeTree[A],
		*TypeBoundsTree[A], *InferredTypeTree[A]:
		return true
	}
	return false
}

// DefName returns the declared name of a definition, "" otherwise.
func DefName[A Annotation](t Tree[A]) string {
	switch n := t.(type) {
	case *ValDef[A]:
		return n.Name
	case *DefDef[A]:
		return n.Name
	case *TypeDef[A]:
		return n.Name
	case *ClassDef[A]:
		return n.Name
	case *ModuleDef[A]:
		return n.Name
	}
	return ""
}

// IsPureExpr reports whether evaluating t has no effect, so discarding its
// value loses nothing.
func IsPureExpr[A Annotation](t Tree[A]) bool {
	switch n := t.(type) {
	case *Literal[A], *Ident[A], *This[A], *Function[A]:
		return true
	case *Select[A]:
		return IsPureExpr(n.Qualifier)
	}
	return false
}
