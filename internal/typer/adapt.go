package typer

import (
	"fmt"

	"github.com/funvibe/typer/internal/ast"
	"github.com/funvibe/typer/internal/config"
	"github.com/funvibe/typer/internal/diagnostics"
	"github.com/funvibe/typer/internal/symbols"
	"github.com/funvibe/typer/internal/typesystem"
)

// adapt makes a typed tree fit the expected type pt. The repairs are tried
// in a fixed order: overload resolution, implicit application, eta
// expansion or empty application, literal narrowing, value discarding, SAM
// conversion and finally implicit views. A tree that already fits is
// returned unchanged, so adapting twice is the same as adapting once.
func (t *Typer) adapt(tree ast.Tree[ast.Typed], pt typesystem.Type, ctx *Context) ast.Tree[ast.Typed] {
	tp := ast.TypeOf(tree)
	if typesystem.IsError(tp) || ctx.Mode.Is(ModeType) {
		return tree
	}
	switch ft := tp.(type) {
	case typesystem.TOverloaded:
		return t.adaptOverloaded(tree, ft, pt, ctx)
	case typesystem.TForall:
		if _, ok := pt.(*PolyProto); ok {
			return tree
		}
		return t.adapt(t.instantiate(tree, ft, ctx), pt, ctx)
	case typesystem.TExpr:
		return t.adapt(ast.WithType(tree, ft.ReturnType), pt, ctx)
	case typesystem.TMethod:
		return t.adaptMethod(tree, ft, pt, ctx)
	}
	return t.adaptValue(tree, tp, pt, ctx)
}

func (t *Typer) adaptMethod(tree ast.Tree[ast.Typed], m typesystem.TMethod, pt typesystem.Type, ctx *Context) ast.Tree[ast.Typed] {
	if _, ok := pt.(*FunProto); ok {
		return tree
	}
	if m.Implicit {
		return t.adaptImplicitArgs(tree, m, pt, ctx)
	}
	sym := ast.SymOf(tree)
	if _, ok := t.functionShape(ctx, pt); ok && (sym == nil || !sym.IsConstructor()) {
		return t.adapt(t.etaExpand(tree, m, ctx), pt, ctx)
	}
	if len(m.Params) == 0 {
		app := &ast.Apply[ast.Typed]{Node: t.synthetic(ast.PosOf(tree), m.ReturnType, sym), Fun: tree}
		return t.adapt(app, pt, ctx)
	}
	t.errorf(ctx, diagnostics.ErrT005, ast.PosOf(tree),
		"missing argument list for %s; follow this method with `_` to treat it as a partially applied function", describe(tree))
	return withError(tree)
}

// adaptImplicitArgs fills an implicit parameter list from the implicit scope.
func (t *Typer) adaptImplicitArgs(tree ast.Tree[ast.Typed], m typesystem.TMethod, pt typesystem.Type, ctx *Context) ast.Tree[ast.Typed] {
	pos := ast.PosOf(tree)
	args := make([]ast.Tree[ast.Typed], len(m.Params))
	failed := false
	for i, p := range m.Params {
		arg, ok := t.implicits.Search(ctx, p, pos)
		if !ok {
			name := fmt.Sprintf("x%d", i+1)
			if i < len(m.ParamNames) {
				name = m.ParamNames[i]
			}
			t.errorf(ctx, diagnostics.ErrT001, pos, "could not find implicit value for parameter %s: %s", name, t.show(ctx, p))
			arg = &ast.ErrorTree[ast.Typed]{Node: t.synthetic(pos, typesystem.TError{}, nil)}
			failed = true
		}
		args[i] = arg
	}
	app := &ast.Apply[ast.Typed]{Node: t.synthetic(pos, m.ReturnType, ast.SymOf(tree)), Fun: tree, Args: args, Implicit: true}
	if failed {
		return withError(app)
	}
	return t.adapt(app, pt, ctx)
}

// etaExpand turns a method reference into a closure over fresh parameters.
func (t *Typer) etaExpand(tree ast.Tree[ast.Typed], m typesystem.TMethod, ctx *Context) ast.Tree[ast.Typed] {
	pos := ast.PosOf(tree)
	params := make([]*ast.ValDef[ast.Typed], len(m.Params))
	args := make([]ast.Tree[ast.Typed], len(m.Params))
	for i, p := range m.Params {
		name := fmt.Sprintf("%s%d", config.EtaParamPrefix, i+1)
		psym := t.table.NewSymbol(symbols.TermName(name), symbols.ValueSymbol, symbols.Param|symbols.Synthetic, ctx.Owner, ctx.Unit, pos)
		psym.SetInfo(p)
		params[i] = &ast.ValDef[ast.Typed]{Node: t.synthetic(pos, p, psym), Mods: ast.Mods{Flags: symbols.Param}, Name: name}
		args[i] = &ast.Ident[ast.Typed]{Node: t.synthetic(pos, p, psym), Name: name}
	}
	body := &ast.Apply[ast.Typed]{Node: t.synthetic(pos, m.ReturnType, ast.SymOf(tree)), Fun: tree, Args: args}
	t.tracef("eta-expand %s at %s", describe(tree), pos)
	return &ast.Function[ast.Typed]{
		Node:   t.synthetic(pos, typesystem.TFunc{Params: m.Params, ReturnType: m.ReturnType}, nil),
		Params: params,
		Body:   body,
	}
}

func (t *Typer) adaptValue(tree ast.Tree[ast.Typed], tp, pt typesystem.Type, ctx *Context) ast.Tree[ast.Typed] {
	switch pt.(type) {
	case *FunProto:
		if _, ok := typesystem.Dealias(typesystem.Widen(tp)).(typesystem.TFunc); ok {
			return tree
		}
		apply := t.table.Member(t.env(ctx), tp, symbols.TermName(config.ApplyMethodName))
		if !apply.Exists() {
			return tree
		}
		var sym *symbols.Symbol
		if !apply.IsOverloaded() {
			sym = apply.Single().Sym
		}
		sel := &ast.Select[ast.Typed]{
			Node:      t.synthetic(ast.PosOf(tree), apply.Type(config.ApplyMethodName), sym),
			Qualifier: tree,
			Name:      config.ApplyMethodName,
		}
		return t.adapt(sel, pt, ctx)
	case *SelectionProto, *PolyProto:
		return tree
	}
	if typesystem.IsNoProto(pt) {
		return tree
	}
	env := t.env(ctx)
	if env.Conforms(tp, pt) {
		env.IsSubtype(tp, pt)
		return tree
	}
	return t.adaptMismatch(tree, tp, pt, ctx)
}

// adaptMismatch tries the conversions that apply to a value whose type does
// not conform to pt, and reports a mismatch when none does.
func (t *Typer) adaptMismatch(tree ast.Tree[ast.Typed], tp, pt typesystem.Type, ctx *Context) ast.Tree[ast.Typed] {
	env := t.env(ctx)
	if lit, ok := tree.(*ast.Literal[ast.Typed]); ok {
		if con, _, ok := typesystem.ClassOf(typesystem.Dealias(pt)); ok && t.isBuiltin(con) {
			if c, ok := lit.Value.ConvertTo(con.Name); ok {
				cp := ast.WithType(lit, typesystem.TConst{Value: c, Underlying: con}).(*ast.Literal[ast.Typed])
				cp.Value = c
				return cp
			}
		}
	}

	if typesystem.IsUnit(typesystem.Dealias(pt)) {
		pos := ast.PosOf(tree)
		return &ast.Block[ast.Typed]{
			Node:  t.synthetic(pos, t.unitType(), nil),
			Stats: []ast.Tree[ast.Typed]{tree},
			Expr:  t.unitLiteral(pos),
		}
	}

	if fn, ok := tree.(*ast.Function[ast.Typed]); ok && fn.SAMTarget == nil && isFullyDefined(pt) {
		if ftp, ok := tp.(typesystem.TFunc); ok {
			if _, desc, ok := t.samOf(ctx, pt); ok && env.Conforms(ftp, desc) {
				env.IsSubtype(ftp, desc)
				cp := ast.WithType(fn, pt).(*ast.Function[ast.Typed])
				cp.SAMTarget = pt
				return cp
			}
		}
	}

	if t.opts.ImplicitConversions {
		if conv, ok := t.implicits.View(ctx, tree, pt); ok {
			t.tracef("implicit view at %s: %s => %s", ast.PosOf(tree), t.show(ctx, tp), t.show(ctx, pt))
			return conv
		}
	}

	t.errorf(ctx, diagnostics.ErrT003, ast.PosOf(tree), "type mismatch: found %s, required %s", t.show(ctx, tp), t.show(ctx, pt))
	return withError(tree)
}

func (t *Typer) isBuiltin(con typesystem.TCon) bool {
	sym := symbolOf(con.Ref)
	return sym != nil && sym == t.table.Builtin(con.Name)
}
