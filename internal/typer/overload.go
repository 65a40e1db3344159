package typer

import (
	"strings"

	"github.com/funvibe/typer/internal/ast"
	"github.com/funvibe/typer/internal/config"
	"github.com/funvibe/typer/internal/diagnostics"
	"github.com/funvibe/typer/internal/typerstate"
	"github.com/funvibe/typer/internal/typesystem"
)

// adaptOverloaded narrows an overloaded reference to the one alternative
// that fits pt.
func (t *Typer) adaptOverloaded(tree ast.Tree[ast.Typed], ov typesystem.TOverloaded, pt typesystem.Type, ctx *Context) ast.Tree[ast.Typed] {
	if fp, ok := pt.(*FunProto); ok {
		return t.resolveApplication(tree, ov, fp, ctx)
	}

	var matching []typesystem.Alternative
	for _, a := range ov.Alts {
		if t.altMatches(tree, a, pt, ctx) {
			matching = append(matching, a)
		}
	}
	if len(matching) > 1 && isValueProto(pt) {
		matching = t.mostSpecific(matching, ctx)
	}
	switch len(matching) {
	case 1:
		return t.adapt(t.chooseAlt(tree, matching[0]), pt, ctx)
	case 0:
		if typesystem.IsNoProto(pt) {
			t.errorf(ctx, diagnostics.ErrT005, ast.PosOf(tree), "missing arguments for overloaded method %s", ov.Name)
		} else {
			t.errorf(ctx, diagnostics.ErrT003, ast.PosOf(tree), "none of the overloaded alternatives of %s match expected type %s",
				ov.Name, t.show(ctx, pt))
		}
		return withError(tree)
	}
	t.reportAmbiguous(ctx, tree, ov.Name, matching, "expected type "+t.show(ctx, pt))
	return withError(tree)
}

// altMatches reports whether alternative a fits a non-call expectation.
func (t *Typer) altMatches(tree ast.Tree[ast.Typed], a typesystem.Alternative, pt typesystem.Type, ctx *Context) bool {
	switch p := pt.(type) {
	case *PolyProto:
		return p.IsMatchedBy(a.Info, t.env(ctx))
	case *SelectionProto:
		return isValueLike(a.Info) && p.IsMatchedBy(valueType(a.Info), t.env(ctx))
	}
	if typesystem.IsNoProto(pt) {
		return isValueLike(a.Info)
	}
	return typerstate.Explore(ctx.State, func(s *typerstate.State) bool {
		t.adapt(t.chooseAlt(tree, a), pt, ctx.WithState(s))
		return !s.HasErrors()
	})
}

// isValueLike reports whether a reference to something of type tp is a
// value without further arguments.
func isValueLike(tp typesystem.Type) bool {
	switch m := tp.(type) {
	case typesystem.TMethod:
		return len(m.Params) == 0 && !m.Implicit
	case typesystem.TForall:
		return false
	}
	return true
}

func valueType(tp typesystem.Type) typesystem.Type {
	switch m := tp.(type) {
	case typesystem.TMethod:
		return m.ReturnType
	case typesystem.TExpr:
		return m.ReturnType
	}
	return tp
}

func (t *Typer) chooseAlt(tree ast.Tree[ast.Typed], a typesystem.Alternative) ast.Tree[ast.Typed] {
	return ast.WithSym(tree, symbolOf(a.Ref), a.Info)
}

// resolveApplication picks the alternative applicable to the arguments of fp.
func (t *Typer) resolveApplication(tree ast.Tree[ast.Typed], ov typesystem.TOverloaded, fp *FunProto, ctx *Context) ast.Tree[ast.Typed] {
	var applicable []typesystem.Alternative
	for _, a := range ov.Alts {
		if t.isApplicable(a.Info, fp, ctx) {
			applicable = append(applicable, a)
		}
	}
	if len(applicable) > 1 && isValueProto(fp.ResultType) {
		var fitting []typesystem.Alternative
		for _, a := range applicable {
			if t.resultFits(a.Info, fp.ResultType, ctx) {
				fitting = append(fitting, a)
			}
		}
		if len(fitting) > 0 {
			applicable = fitting
		}
	}
	if len(applicable) > 1 {
		applicable = t.mostSpecific(applicable, ctx)
	}
	t.tracef("overload %s at %s: %d of %d applicable", ov.Name, ast.PosOf(tree), len(applicable), len(ov.Alts))

	switch len(applicable) {
	case 1:
		return t.adapt(t.chooseAlt(tree, applicable[0]), fp, ctx)
	case 0:
		return t.noApplicableAlternative(tree, ov, fp, ctx)
	}
	t.reportAmbiguous(ctx, tree, ov.Name, applicable, "argument types "+t.argTypes(fp, ctx))
	return withError(tree)
}

// isApplicable types the arguments against the formals of info on a
// discarded fork and reports whether that went without errors.
func (t *Typer) isApplicable(info typesystem.Type, fp *FunProto, ctx *Context) bool {
	return typerstate.Explore(ctx.State, func(s *typerstate.State) bool {
		c := ctx.WithState(s)
		tp := info
		if poly, ok := tp.(typesystem.TForall); ok {
			vars := make([]typesystem.Type, len(poly.Vars))
			for i, v := range poly.Vars {
				vars[i] = s.Constraints().Fresh(v.Name)
			}
			tp = poly.Instantiate(vars)
		}
		var params []typesystem.Type
		switch m := tp.(type) {
		case typesystem.TMethod:
			if m.Implicit {
				return false
			}
			params = m.Params
		case typesystem.TFunc:
			params = m.Params
		default:
			return false
		}
		if len(params) != len(fp.Args) {
			return false
		}
		for i, arg := range fp.Args {
			formal := params[i]
			if byName, ok := formal.(typesystem.TExpr); ok {
				formal = byName.ReturnType
			}
			t.Typed(arg, formal, c)
		}
		return !s.HasErrors()
	})
}

// resultFits reports whether the final result of info conforms to pt.
func (t *Typer) resultFits(info typesystem.Type, pt typesystem.Type, ctx *Context) bool {
	if poly, ok := info.(typesystem.TForall); ok {
		info = poly.Type
	}
	var result typesystem.Type = info
	switch m := info.(type) {
	case typesystem.TMethod:
		result = m.FinalResult()
	case typesystem.TFunc:
		result = m.ReturnType
	}
	return t.env(ctx).Conforms(result, pt)
}

// mostSpecific keeps the alternatives no other alternative is strictly more
// specific than.
func (t *Typer) mostSpecific(alts []typesystem.Alternative, ctx *Context) []typesystem.Alternative {
	var best []typesystem.Alternative
	for i, a := range alts {
		dominated := false
		for j, b := range alts {
			if i != j && t.asSpecific(b.Info, a.Info, ctx) && !t.asSpecific(a.Info, b.Info, ctx) {
				dominated = true
				break
			}
		}
		if !dominated {
			best = append(best, a)
		}
	}
	return best
}

// asSpecific reports whether a could be called with the parameter types
// of b, numeric widening included.
func (t *Typer) asSpecific(a, b typesystem.Type, ctx *Context) bool {
	pa, okA := paramTypes(a)
	pb, okB := paramTypes(b)
	switch {
	case !okA && !okB:
		return t.env(ctx).Conforms(valueType(a), valueType(b))
	case !okA:
		return true
	case !okB:
		return false
	case len(pa) != len(pb):
		return false
	}
	for i := range pa {
		if !t.weakConforms(ctx, pa[i], pb[i]) {
			return false
		}
	}
	return true
}

// weakConforms is conformance extended with numeric widening.
func (t *Typer) weakConforms(ctx *Context, tp, pt typesystem.Type) bool {
	if t.env(ctx).Conforms(tp, pt) {
		return true
	}
	from, _, ok1 := typesystem.ClassOf(typesystem.Widen(tp))
	to, _, ok2 := typesystem.ClassOf(pt)
	if !ok1 || !ok2 || !t.isBuiltin(from) || !t.isBuiltin(to) {
		return false
	}
	for _, w := range config.NumericWidening[from.Name] {
		if w == to.Name {
			return true
		}
	}
	return false
}

// noApplicableAlternative retries a unique parameterless alternative whose
// result can be applied, and otherwise reports why no alternative fits.
func (t *Typer) noApplicableAlternative(tree ast.Tree[ast.Typed], ov typesystem.TOverloaded, fp *FunProto, ctx *Context) ast.Tree[ast.Typed] {
	var values []typesystem.Alternative
	for _, a := range ov.Alts {
		if isValueLike(a.Info) {
			values = append(values, a)
		}
	}
	if len(values) == 1 {
		res := typerstate.TryEither(ctx.State,
			func(s *typerstate.State) ast.Tree[ast.Typed] {
				c := ctx.WithState(s)
				r := t.adapt(t.chooseAlt(tree, values[0]), fp, c)
				if !hasErrorType(r) && !fp.IsMatchedBy(ast.TypeOf(r), t.env(c)) {
					t.errorf(c, diagnostics.ErrT003, ast.PosOf(tree), "%s does not take parameters", ov.Name)
				}
				return r
			},
			func(ast.Tree[ast.Typed], *typerstate.State) ast.Tree[ast.Typed] { return nil })
		if res != nil {
			return res
		}
	}

	n := len(fp.Args)
	fewer, more := true, true
	for _, a := range ov.Alts {
		params, ok := paramTypes(a.Info)
		if !ok {
			fewer, more = false, false
			break
		}
		if len(params) >= n {
			fewer = false
		}
		if len(params) <= n {
			more = false
		}
	}
	switch {
	case fewer:
		t.errorf(ctx, diagnostics.ErrT006, ast.PosOf(tree), "too many arguments (%d) for overloaded method %s", n, ov.Name)
	case more:
		t.errorf(ctx, diagnostics.ErrT005, ast.PosOf(tree), "not enough arguments (%d) for overloaded method %s", n, ov.Name)
	default:
		t.errorf(ctx, diagnostics.ErrT003, ast.PosOf(tree), "none of the overloaded alternatives of %s match arguments %s",
			ov.Name, t.argTypes(fp, ctx))
	}
	return withError(tree)
}

// argTypes renders the argument types of fp, typed on a discarded fork.
func (t *Typer) argTypes(fp *FunProto, ctx *Context) string {
	return typerstate.Explore(ctx.State, func(s *typerstate.State) string {
		c := ctx.WithState(s)
		parts := make([]string, len(fp.Args))
		for i, a := range fp.Args {
			parts[i] = t.show(c, typesystem.Widen(ast.TypeOf(t.Typed(a, typesystem.AnyProto, c))))
		}
		return "(" + strings.Join(parts, ", ") + ")"
	})
}

func (t *Typer) reportAmbiguous(ctx *Context, tree ast.Tree[ast.Typed], name string, alts []typesystem.Alternative, against string) {
	t.errorf(ctx, diagnostics.ErrT002, ast.PosOf(tree),
		"ambiguous reference to overloaded definition, both %s of type %s and %s of type %s match %s",
		name, t.show(ctx, alts[0].Info), name, t.show(ctx, alts[1].Info), against)
}
