package typer

import (
	"strings"

	"github.com/funvibe/typer/internal/ast"
	"github.com/funvibe/typer/internal/diagnostics"
	"github.com/funvibe/typer/internal/symbols"
	"github.com/funvibe/typer/internal/typesystem"
)

// typedType types a tree in type position. allowRaw admits a generic class
// without type arguments, as in `new Box(1)` or the head of `Box[Int]`.
func (t *Typer) typedType(tree ast.Tree[ast.Untyped], ctx *Context, allowRaw bool) ast.Tree[ast.Typed] {
	switch n := tree.(type) {
	case *ast.TypeIdent[ast.Untyped]:
		d := t.findRef(ctx, symbols.TypeName(n.Name), n.Pos)
		if !d.Exists() {
			return &ast.TypeIdent[ast.Typed]{Node: node(n, typesystem.TError{}, nil), Name: n.Name}
		}
		a := d.Single()
		tp := t.typeRef(ctx, a, n, allowRaw)
		return &ast.TypeIdent[ast.Typed]{Node: node(n, tp, a.Sym), Name: n.Name}

	case *ast.TypeSelect[ast.Untyped]:
		qual := t.Typed(n.Qualifier, typesystem.AnyProto, ctx.WithMode(ModeType))
		site := ast.TypeOf(qual)
		res := &ast.TypeSelect[ast.Typed]{Node: node(n, typesystem.TError{}, nil), Qualifier: qual, Name: n.Name}
		if typesystem.IsError(site) {
			return res
		}
		if sym := ast.SymOf(qual); sym == nil || !sym.IsStable() {
			t.errorf(ctx, diagnostics.ErrT008, n.Pos, "stable identifier required, but %s found", t.show(ctx, site))
			return res
		}
		d := t.table.Member(t.env(ctx), site, symbols.TypeName(n.Name))
		if !d.Exists() {
			t.errorf(ctx, diagnostics.ErrT001, n.Pos, "type %s is not a member of %s", n.Name, t.show(ctx, site))
			return res
		}
		a := d.Single()
		res.Ann = ast.Typed{Type: t.typeRef(ctx, a, n, allowRaw), Sym: a.Sym}
		return res

	case *ast.AppliedTypeTree[ast.Untyped]:
		return t.typedAppliedType(n, ctx)

	case *ast.FunctionTypeTree[ast.Untyped]:
		params := make([]ast.Tree[ast.Typed], len(n.Params))
		fn := typesystem.TFunc{Params: make([]typesystem.Type, len(n.Params))}
		for i, p := range n.Params {
			params[i] = t.typedType(p, ctx, false)
			fn.Params[i] = ast.TypeOf(params[i])
		}
		result := t.typedType(n.Result, ctx, false)
		fn.ReturnType = ast.TypeOf(result)
		return &ast.FunctionTypeTree[ast.Typed]{Node: node(n, fn, nil), Params: params, Result: result}

	case *ast.TypeBoundsTree[ast.Untyped]:
		var lo, hi ast.Tree[ast.Typed]
		w := typesystem.TWildcard{}
		if n.Lo != nil {
			lo = t.typedType(n.Lo, ctx, false)
			w.Lo = ast.TypeOf(lo)
		}
		if n.Hi != nil {
			hi = t.typedType(n.Hi, ctx, false)
			w.Hi = ast.TypeOf(hi)
		}
		return &ast.TypeBoundsTree[ast.Typed]{Node: node(n, w, nil), Lo: lo, Hi: hi}

	case *ast.InferredTypeTree[ast.Untyped]:
		return &ast.InferredTypeTree[ast.Typed]{Node: node(n, typesystem.TWildcard{}, nil)}
	}
	t.errorf(ctx, diagnostics.ErrT000, ast.PosOf(tree), "type expected but %T found", tree)
	return errorTree(tree)
}

// typeRef is the type a type name stands for.
func (t *Typer) typeRef(ctx *Context, a symbols.SingleDenotation, at ast.Tree[ast.Untyped], allowRaw bool) typesystem.Type {
	sym := a.Sym
	if sym == nil {
		return a.Info
	}
	switch sym.Kind {
	case symbols.ClassSymbol:
		if len(sym.TypeParams) > 0 && !allowRaw {
			t.errorf(ctx, diagnostics.ErrT003, ast.PosOf(at), "%s takes type parameters", sym.Name)
			return typesystem.TError{}
		}
		return sym.TypeRef()
	case symbols.TypeParamSymbol:
		return sym.ParamRef()
	case symbols.TypeAliasSymbol:
		if sym.Flags.Has(symbols.Deferred) {
			return typesystem.TParam{Name: sym.Name.Str, Ref: sym}
		}
		if len(sym.TypeParams) > 0 && !allowRaw {
			t.errorf(ctx, diagnostics.ErrT003, ast.PosOf(at), "type %s takes type parameters", sym.Name)
			return typesystem.TError{}
		}
		return a.Info
	}
	t.errorf(ctx, diagnostics.ErrT003, ast.PosOf(at), "%s is not a type", sym.Name)
	return typesystem.TError{}
}

func (t *Typer) typedAppliedType(n *ast.AppliedTypeTree[ast.Untyped], ctx *Context) ast.Tree[ast.Typed] {
	tpt := t.typedType(n.Tpt, ctx, true)
	args := make([]ast.Tree[ast.Typed], len(n.Args))
	types := make([]typesystem.Type, len(n.Args))
	for i, a := range n.Args {
		args[i] = t.typedType(a, ctx, false)
		types[i] = ast.TypeOf(args[i])
	}
	res := &ast.AppliedTypeTree[ast.Typed]{Node: node(n, typesystem.TError{}, nil), Tpt: tpt, Args: args}
	sym := ast.SymOf(tpt)
	if hasErrorType(tpt) || sym == nil {
		return res
	}
	if len(sym.TypeParams) == 0 {
		t.errorf(ctx, diagnostics.ErrT003, n.Pos, "%s does not take type parameters", sym.Name)
		return res
	}
	if len(sym.TypeParams) != len(types) {
		t.errorf(ctx, diagnostics.ErrT003, n.Pos, "wrong number of type arguments for %s, should be %d", sym.Name, len(sym.TypeParams))
		return res
	}
	subst := typesystem.Subst{}
	for i, p := range sym.TypeParams {
		subst[p.ParamRef().Key()] = types[i]
	}
	if !t.checkBounds(ctx, sym.Name.Str, sym.TypeParams, types, subst, n) {
		return res
	}
	switch sym.Kind {
	case symbols.ClassSymbol:
		res.Ann.Type = typesystem.TApp{Constructor: sym.TypeRef(), Args: types}
	case symbols.TypeAliasSymbol:
		res.Ann.Type = ast.TypeOf(tpt).Apply(subst)
	}
	res.Ann.Sym = sym
	return res
}

// checkBounds reports type arguments outside the bounds of their parameters.
func (t *Typer) checkBounds(ctx *Context, owner string, params []*symbols.Symbol, args []typesystem.Type, subst typesystem.Subst, at ast.Tree[ast.Untyped]) bool {
	env := t.env(ctx)
	var bad []string
	for i, p := range params {
		arg := args[i]
		if _, wild := arg.(typesystem.TWildcard); wild || typesystem.IsError(arg) {
			continue
		}
		if p.Hi != nil && !env.Conforms(arg, p.Hi.Apply(subst)) {
			bad = append(bad, t.show(ctx, arg))
			continue
		}
		if p.Lo != nil && !env.Conforms(p.Lo.Apply(subst), arg) {
			bad = append(bad, t.show(ctx, arg))
		}
	}
	if len(bad) > 0 {
		t.errorf(ctx, diagnostics.ErrT003, ast.PosOf(at), "type arguments [%s] do not conform to %s's type parameter bounds",
			strings.Join(bad, ", "), owner)
		return false
	}
	return true
}
