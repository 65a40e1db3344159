package typer

import (
	"strings"

	"github.com/funvibe/typer/internal/ast"
	"github.com/funvibe/typer/internal/diagnostics"
	"github.com/funvibe/typer/internal/typesystem"
)

func (t *Typer) typedApply(n *ast.Apply[ast.Untyped], pt typesystem.Type, ctx *Context) ast.Tree[ast.Typed] {
	proto := &FunProto{Args: n.Args, ResultType: pt, ctx: ctx}
	fun := t.Typed(n.Fun, proto, ctx)
	return t.typedArgs(n, fun, ctx)
}

// typedArgs types the arguments of n against the parameters of the already
// typed function part.
func (t *Typer) typedArgs(n *ast.Apply[ast.Untyped], fun ast.Tree[ast.Typed], ctx *Context) ast.Tree[ast.Typed] {
	res := &ast.Apply[ast.Typed]{Node: node(n, typesystem.TError{}, nil), Fun: fun, Implicit: n.Implicit}

	var params []typesystem.Type
	var result typesystem.Type
	switch ft := ast.TypeOf(fun).(type) {
	case typesystem.TError:
		res.Args = t.typedLooseArgs(n.Args, ctx)
		return res
	case typesystem.TMethod:
		params, result = ft.Params, ft.ReturnType
	case typesystem.TFunc:
		params, result = ft.Params, ft.ReturnType
	default:
		t.errorf(ctx, diagnostics.ErrT003, n.Pos, "%s of type %s does not take parameters", describe(fun), t.show(ctx, ft))
		res.Args = t.typedLooseArgs(n.Args, ctx)
		return res
	}

	switch {
	case len(n.Args) > len(params):
		t.errorf(ctx, diagnostics.ErrT006, n.Pos, "too many arguments (%d) for %s: %s",
			len(n.Args), describe(fun), t.show(ctx, ast.TypeOf(fun)))
		res.Args = t.typedLooseArgs(n.Args, ctx)
		return res
	case len(n.Args) < len(params):
		missing := ""
		if m, ok := ast.TypeOf(fun).(typesystem.TMethod); ok && len(m.ParamNames) == len(params) {
			missing = strings.Join(m.ParamNames[len(n.Args):], ", ")
		}
		t.errorf(ctx, diagnostics.ErrT005, n.Pos, "not enough arguments for %s: %s; unspecified value parameters: %s",
			describe(fun), t.show(ctx, ast.TypeOf(fun)), missing)
		res.Args = t.typedLooseArgs(n.Args, ctx)
		return res
	}

	res.Args = make([]ast.Tree[ast.Typed], len(n.Args))
	for i, arg := range n.Args {
		formal := params[i]
		if byName, ok := formal.(typesystem.TExpr); ok {
			formal = byName.ReturnType
		}
		res.Args[i] = t.Typed(arg, formal, ctx)
	}
	res.Ann = ast.Typed{Type: result, Sym: ast.SymOf(fun)}
	return res
}

// typedLooseArgs types arguments with no expectation, for error recovery.
func (t *Typer) typedLooseArgs(args []ast.Tree[ast.Untyped], ctx *Context) []ast.Tree[ast.Typed] {
	out := make([]ast.Tree[ast.Typed], len(args))
	for i, a := range args {
		out[i] = t.Typed(a, typesystem.AnyProto, ctx)
	}
	return out
}

// describe names the function part of an application in a diagnostic.
func describe(fun ast.Tree[ast.Typed]) string {
	if sym := ast.SymOf(fun); sym != nil {
		if sym.IsConstructor() && sym.Owner != nil {
			return "constructor " + sym.Owner.Name.Str
		}
		return sym.Kind.String() + " " + sym.Name.Str
	}
	return "expression"
}

func (t *Typer) typedTypeApply(n *ast.TypeApply[ast.Untyped], pt typesystem.Type, ctx *Context) ast.Tree[ast.Typed] {
	args := make([]ast.Tree[ast.Typed], len(n.Args))
	targs := make([]typesystem.Type, len(n.Args))
	for i, a := range n.Args {
		args[i] = t.typedType(a, ctx, false)
		targs[i] = ast.TypeOf(args[i])
	}
	fun := t.Typed(n.Fun, &PolyProto{Targs: targs, ResultType: pt}, ctx)
	res := &ast.TypeApply[ast.Typed]{Node: node(n, typesystem.TError{}, nil), Fun: fun, Args: args}
	if hasErrorType(fun) {
		return res
	}
	for _, a := range targs {
		if typesystem.IsError(a) {
			return res
		}
	}
	poly, ok := ast.TypeOf(fun).(typesystem.TForall)
	if !ok {
		t.errorf(ctx, diagnostics.ErrT003, n.Pos, "%s of type %s does not take type parameters", describe(fun), t.show(ctx, ast.TypeOf(fun)))
		return res
	}
	if len(poly.Vars) != len(targs) {
		t.errorf(ctx, diagnostics.ErrT003, n.Pos, "wrong number of type arguments for %s, should be %d", describe(fun), len(poly.Vars))
		return res
	}
	if sym := ast.SymOf(fun); sym != nil && len(sym.TypeParams) == len(targs) {
		subst := typesystem.Subst{}
		for i, v := range poly.Vars {
			subst[v.Key()] = targs[i]
		}
		if !t.checkBounds(ctx, sym.Name.Str, sym.TypeParams, targs, subst, n) {
			return res
		}
	}
	res.Ann = ast.Typed{Type: poly.Instantiate(targs), Sym: ast.SymOf(fun)}
	return res
}

// instantiate applies a polymorphic reference to fresh type variables.
func (t *Typer) instantiate(tree ast.Tree[ast.Typed], poly typesystem.TForall, ctx *Context) ast.Tree[ast.Typed] {
	c := ctx.State.Constraints()
	pos := ast.PosOf(tree)
	vars := make([]typesystem.Type, len(poly.Vars))
	subst := typesystem.Subst{}
	for i, p := range poly.Vars {
		v := c.Fresh(p.Name)
		vars[i] = v
		subst[p.Key()] = v
	}
	for i, p := range poly.Vars {
		sym := symbolOf(p.Ref)
		if sym == nil {
			continue
		}
		v := vars[i].(typesystem.TVar)
		if sym.Hi != nil {
			c.SetUpper(v, sym.Hi.Apply(subst))
		}
		if sym.Lo != nil {
			c.SetLower(v, sym.Lo.Apply(subst))
		}
	}
	args := make([]ast.Tree[ast.Typed], len(vars))
	for i, v := range vars {
		args[i] = &ast.InferredTypeTree[ast.Typed]{Node: t.synthetic(pos, v, nil)}
	}
	t.tracef("instantiate %s at %s with %v", poly, pos, vars)
	return &ast.TypeApply[ast.Typed]{
		Node: t.synthetic(pos, poly.Instantiate(vars), ast.SymOf(tree)),
		Fun:  tree,
		Args: args,
	}
}
