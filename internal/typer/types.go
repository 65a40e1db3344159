package typer

import (
	"github.com/funvibe/typer/internal/config"
	"github.com/funvibe/typer/internal/symbols"
	"github.com/funvibe/typer/internal/typesystem"
)

// forEachPart calls f on tp and every type nested in it, stopping a branch
// when f returns false.
func forEachPart(tp typesystem.Type, f func(typesystem.Type) bool) {
	if tp == nil || !f(tp) {
		return
	}
	each := func(ts ...typesystem.Type) {
		for _, p := range ts {
			forEachPart(p, f)
		}
	}
	switch t := tp.(type) {
	case typesystem.TApp:
		each(t.Constructor)
		each(t.Args...)
	case typesystem.TFunc:
		each(t.Params...)
		each(t.ReturnType)
	case typesystem.TMethod:
		each(t.Params...)
		each(t.ReturnType)
	case typesystem.TExpr:
		each(t.ReturnType)
	case typesystem.TForall:
		each(t.Type)
	case typesystem.TUnion:
		each(t.Types...)
	case typesystem.TAnd:
		each(t.Types...)
	case typesystem.TRefined:
		each(t.Parent, t.Info)
	case typesystem.TAnnotated:
		each(t.Type)
	case typesystem.TWildcard:
		each(t.Lo, t.Hi)
	case typesystem.TTermRef:
		each(t.Underlying)
	case typesystem.TOverloaded:
		for _, a := range t.Alts {
			each(a.Info)
		}
	}
}

// mentionsClass returns the first class in locals that tp refers to.
func mentionsClass(tp typesystem.Type, locals []*symbols.Symbol) *symbols.Symbol {
	var found *symbols.Symbol
	forEachPart(tp, func(p typesystem.Type) bool {
		if found != nil {
			return false
		}
		var ref typesystem.Designator
		switch c := p.(type) {
		case typesystem.TCon:
			ref = c.Ref
		case typesystem.TThis:
			ref = c.Class
		}
		for _, l := range locals {
			if ref == typesystem.Designator(l) {
				found = l
				return false
			}
		}
		return true
	})
	return found
}

// isOverloaded reports whether tp still holds an unresolved overload.
func isOverloaded(tp typesystem.Type) bool {
	found := false
	forEachPart(tp, func(p typesystem.Type) bool {
		if _, ok := p.(typesystem.TOverloaded); ok {
			found = true
		}
		return !found
	})
	return found
}

// isFullyDefined reports whether pt is a concrete expected type without
// inference variables.
func isFullyDefined(pt typesystem.Type) bool {
	return isValueProto(pt) && len(pt.FreeTypeVariables()) == 0
}

func (t *Typer) builtin(name string) typesystem.TCon {
	return t.table.BuiltinType(name)
}

func (t *Typer) unitType() typesystem.TCon    { return t.builtin(config.UnitTypeName) }
func (t *Typer) booleanType() typesystem.TCon { return t.builtin(config.BooleanTypeName) }
func (t *Typer) nothingType() typesystem.TCon { return t.builtin(config.NothingTypeName) }

// symbolOf returns the symbol behind a designator, if it is one.
func symbolOf(ref typesystem.Designator) *symbols.Symbol {
	sym, _ := ref.(*symbols.Symbol)
	return sym
}

// samOf returns the single abstract method of an abstract class type and its
// function descriptor as seen from tp.
func (t *Typer) samOf(ctx *Context, tp typesystem.Type) (*symbols.Symbol, typesystem.TFunc, bool) {
	con, args, ok := typesystem.ClassOf(tp)
	if !ok {
		return nil, typesystem.TFunc{}, false
	}
	cls := symbolOf(con.Ref)
	if cls == nil || !cls.IsClass() || !cls.Flags.Has(symbols.Deferred) {
		return nil, typesystem.TFunc{}, false
	}
	var abstract *symbols.Symbol
	for _, m := range cls.Decls.Symbols() {
		if m.IsMethod() && m.Flags.Has(symbols.Deferred) {
			if abstract != nil {
				return nil, typesystem.TFunc{}, false
			}
			abstract = m
		}
	}
	if abstract == nil {
		return nil, typesystem.TFunc{}, false
	}
	info, err := abstract.Info()
	if err != nil {
		return nil, typesystem.TFunc{}, false
	}
	m, ok := info.(typesystem.TMethod)
	if !ok || m.Implicit {
		return nil, typesystem.TFunc{}, false
	}
	if _, curried := m.ReturnType.(typesystem.TMethod); curried {
		return nil, typesystem.TFunc{}, false
	}
	subst := typesystem.Subst{}
	for i, p := range cls.TypeParams {
		if i < len(args) {
			subst[p.ParamRef().Key()] = args[i]
		}
	}
	desc := typesystem.TFunc{Params: m.Params, ReturnType: m.ReturnType}.Apply(subst).(typesystem.TFunc)
	return abstract, desc, true
}

// functionShape returns the function type a closure or eta-expansion should
// have under pt: pt itself for function types, the descriptor for SAM types.
func (t *Typer) functionShape(ctx *Context, pt typesystem.Type) (typesystem.TFunc, bool) {
	if !isValueProto(pt) {
		return typesystem.TFunc{}, false
	}
	pt = typesystem.Dealias(pt)
	if v, ok := pt.(typesystem.TVar); ok {
		c := ctx.State.Constraints()
		if inst, ok := c.Instance(v); ok {
			pt = inst
		} else if hi := c.Bounds(v).Hi; hi != nil {
			pt = hi
		}
	}
	if fn, ok := pt.(typesystem.TFunc); ok {
		return fn, true
	}
	if _, desc, ok := t.samOf(ctx, pt); ok {
		return desc, true
	}
	return typesystem.TFunc{}, false
}
