package typer

import (
	"github.com/funvibe/typer/internal/ast"
	"github.com/funvibe/typer/internal/config"
	"github.com/funvibe/typer/internal/diagnostics"
	"github.com/funvibe/typer/internal/symbols"
	"github.com/funvibe/typer/internal/token"
	"github.com/funvibe/typer/internal/typesystem"
)

func (t *Typer) typedMatch(n *ast.Match[ast.Untyped], pt typesystem.Type, ctx *Context) ast.Tree[ast.Typed] {
	sel := t.Typed(n.Selector, typesystem.AnyProto, ctx)
	selType := typesystem.Widen(ast.TypeOf(sel))

	gadt := ctx.Gadt
	if gadt == nil {
		gadt = typesystem.NewGadtConstraint()
	}
	candidates := t.narrowable(ctx, selType)

	cases := make([]*ast.CaseDef[ast.Typed], len(n.Cases))
	bodies := make([]typesystem.Type, 0, len(n.Cases))
	failed := hasErrorType(sel)
	for i, c := range n.Cases {
		cases[i] = t.typedCase(c, selType, pt, candidates, gadt, ctx)
		tp := ast.TypeOf(cases[i])
		if typesystem.IsError(tp) {
			failed = true
			continue
		}
		bodies = append(bodies, tp)
	}
	var tp typesystem.Type
	switch {
	case failed:
		tp = typesystem.TError{}
	case len(bodies) == 0:
		tp = t.nothingType()
	default:
		tp = t.env(ctx).JoinAll(bodies)
	}
	return &ast.Match[ast.Typed]{Node: node(n, tp, nil), Selector: sel, Cases: cases}
}

// narrowable lists the type parameters of the enclosing method that occur
// invariantly in the scrutinee type.
func (t *Typer) narrowable(ctx *Context, selType typesystem.Type) []typesystem.TParam {
	if ctx.Owner == nil {
		return nil
	}
	meth := ctx.Owner.EnclosingMethod()
	if meth == nil {
		return nil
	}
	env := t.env(ctx)
	var out []typesystem.TParam
	for _, p := range meth.TypeParams {
		ref := p.ParamRef()
		if env.OccurrenceVariance(selType, ref.Key()) == typesystem.Invariant {
			out = append(out, ref)
		}
	}
	return out
}

// typedCase types one case. Bounds the pattern narrows are visible in the
// guard and the body and dropped when the case is done.
func (t *Typer) typedCase(c *ast.CaseDef[ast.Untyped], selType, pt typesystem.Type, candidates []typesystem.TParam, gadt *typesystem.GadtConstraint, ctx *Context) *ast.CaseDef[ast.Typed] {
	snap := gadt.Snapshot()
	defer gadt.Restore(snap)
	for _, p := range candidates {
		gadt.AddNarrowable(p)
	}

	scope := symbols.NewScope()
	cctx := ctx.WithScope(scope).WithGadt(gadt)
	mark := ctx.State.Constraints().Mark()
	pat := t.typedPattern(c.Pat, selType, cctx.WithMode(ModePattern))
	pat = t.interpolate(pat, cctx, mark)
	if sol := ctx.State.Constraints().Solution(); len(sol) > 0 {
		for _, s := range scope.Symbols() {
			s.SetInfo(s.InfoOrError().Apply(sol))
		}
	}

	var guard ast.Tree[ast.Typed]
	if c.Guard != nil {
		guard = t.Typed(c.Guard, t.booleanType(), cctx)
	}
	body := t.Typed(c.Body, pt, cctx)
	tp := typesystem.Widen(ast.TypeOf(body))
	if len(gadt.Narrowed()) > 0 && isFullyDefined(pt) && !typesystem.IsError(tp) {
		tp = pt
	}
	if hasErrorType(pat) {
		tp = typesystem.TError{}
	}
	return &ast.CaseDef[ast.Typed]{Node: node(c, tp, nil), Pat: pat, Guard: guard, Body: body}
}

// typedPattern types a pattern against the scrutinee type pt and enters
// its variables into the case scope.
func (t *Typer) typedPattern(tree ast.Tree[ast.Untyped], pt typesystem.Type, ctx *Context) ast.Tree[ast.Typed] {
	switch n := tree.(type) {
	case *ast.Ident[ast.Untyped]:
		if n.Name == config.WildcardName {
			return &ast.Ident[ast.Typed]{Node: node(n, pt, nil), Name: n.Name}
		}
		if ast.IsVarPattern[ast.Untyped](n) {
			sym := t.patternVar(ctx, n.Name, pt, n.Pos)
			wild := &ast.Ident[ast.Typed]{Node: t.synthetic(n.Pos, pt, nil), Name: config.WildcardName}
			return &ast.Bind[ast.Typed]{Node: node(n, pt, sym), Name: n.Name, Body: wild}
		}
		return t.stablePattern(tree, pt, ctx)

	case *ast.Select[ast.Untyped], *ast.Literal[ast.Untyped]:
		return t.stablePattern(tree, pt, ctx)

	case *ast.Ascription[ast.Untyped]:
		return t.typedTypePattern(n, pt, ctx)

	case *ast.Bind[ast.Untyped]:
		body := t.typedPattern(n.Body, pt, ctx)
		sym := t.patternVar(ctx, n.Name, ast.TypeOf(body), n.Pos)
		return &ast.Bind[ast.Typed]{Node: node(n, ast.TypeOf(body), sym), Name: n.Name, Body: body}

	case *ast.Alternative[ast.Untyped]:
		actx := ctx.WithScope(symbols.NewScope())
		trees := make([]ast.Tree[ast.Typed], len(n.Trees))
		types := make([]typesystem.Type, len(n.Trees))
		for i, a := range n.Trees {
			trees[i] = t.typedPattern(a, pt, actx)
			types[i] = ast.TypeOf(trees[i])
		}
		if actx.Scope.Len() > 0 {
			t.errorf(ctx, diagnostics.ErrT008, n.Pos, "illegal variable in pattern alternative")
		}
		return &ast.Alternative[ast.Typed]{Node: node(n, typesystem.NormalizeUnion(types), nil), Trees: trees}

	case *ast.Apply[ast.Untyped]:
		return t.typedConstructorPattern(n, pt, ctx)

	case *ast.Parens[ast.Untyped]:
		if core, ok := t.desugarer.Desugar(tree); ok {
			return t.typedPattern(core, pt, ctx)
		}
	}
	t.errorf(ctx, diagnostics.ErrT008, ast.PosOf(tree), "illegal start of simple pattern")
	return errorTree(tree)
}

func (t *Typer) patternVar(ctx *Context, name string, tp typesystem.Type, pos token.Position) *symbols.Symbol {
	sym := t.table.NewSymbol(symbols.TermName(name), symbols.ValueSymbol, 0, ctx.Owner, ctx.Unit, pos)
	if len(ctx.Scope.Lookup(sym.Name)) > 0 {
		t.errorf(ctx, diagnostics.ErrT008, pos, "%s is already defined as a pattern variable", name)
	}
	sym.SetInfo(tp)
	ctx.Scope.Enter(sym)
	return sym
}

// stablePattern types a literal or a stable reference and checks it could
// equal a value of the scrutinee type.
func (t *Typer) stablePattern(tree ast.Tree[ast.Untyped], pt typesystem.Type, ctx *Context) ast.Tree[ast.Typed] {
	typed := t.Typed(tree, typesystem.AnyProto, ctx.WithMode(ModeExpr))
	if hasErrorType(typed) {
		return typed
	}
	if sym := ast.SymOf(typed); sym != nil && !sym.IsStable() {
		t.errorf(ctx, diagnostics.ErrT008, ast.PosOf(tree), "stable identifier required, but %s found", sym.Name)
		return withError(typed)
	}
	tp := ast.TypeOf(typed)
	env := t.env(ctx)
	if !env.Conforms(tp, pt) && !env.Conforms(pt, typesystem.Widen(tp)) {
		t.errorf(ctx, diagnostics.ErrT003, ast.PosOf(tree), "type mismatch: pattern type %s is incompatible with scrutinee type %s",
			t.show(ctx, tp), t.show(ctx, pt))
		return withError(typed)
	}
	return typed
}

// typedTypePattern types `x: T`. The subtype check against the scrutinee
// runs in recording mode, so it may narrow type parameters of the
// enclosing method.
func (t *Typer) typedTypePattern(n *ast.Ascription[ast.Untyped], pt typesystem.Type, ctx *Context) ast.Tree[ast.Typed] {
	tpt := t.typedType(n.Tpt, ctx, false)
	patType := ast.TypeOf(tpt)
	binder := pt
	if !typesystem.IsError(patType) {
		binder = t.narrowTo(ctx, patType, pt, n.Pos)
	}
	expr := t.typedPattern(n.Expr, binder, ctx)
	return &ast.Ascription[ast.Typed]{Node: node(n, binder, nil), Expr: expr, Tpt: tpt}
}

// narrowTo is the type a value of scrutinee type pt has once it matched
// patType.
func (t *Typer) narrowTo(ctx *Context, patType, pt typesystem.Type, pos token.Position) typesystem.Type {
	env := t.env(ctx)
	prev := ctx.Gadt.SetRecording(true)
	sub := env.IsSubtype(patType, pt)
	ctx.Gadt.SetRecording(prev)
	switch {
	case sub:
		return patType
	case env.Conforms(pt, patType):
		return pt
	}
	if !t.mayOverlap(ctx, patType, pt) {
		t.errorf(ctx, diagnostics.ErrT003, pos, "scrutinee is incompatible with pattern type; found %s, required %s",
			t.show(ctx, patType), t.show(ctx, pt))
		return typesystem.TError{}
	}
	return env.Meet(pt, patType)
}

// mayOverlap reports whether values of both types can exist: one of the
// classes is abstract or they are not both classes.
func (t *Typer) mayOverlap(ctx *Context, a, b typesystem.Type) bool {
	ca, _, okA := typesystem.ClassOf(a)
	cb, _, okB := typesystem.ClassOf(b)
	if !okA || !okB {
		return true
	}
	sa, sb := symbolOf(ca.Ref), symbolOf(cb.Ref)
	if sa == nil || sb == nil {
		return true
	}
	return sa.Flags.Has(symbols.Deferred) && sb.Flags.Has(symbols.Deferred)
}

// typedConstructorPattern types `C(p1, ..., pn)` for a case class C. The
// type arguments of C are inferred from the scrutinee type.
func (t *Typer) typedConstructorPattern(n *ast.Apply[ast.Untyped], pt typesystem.Type, ctx *Context) ast.Tree[ast.Typed] {
	var name string
	var d symbols.Denotation
	switch f := n.Fun.(type) {
	case *ast.Ident[ast.Untyped]:
		name = f.Name
		d = t.findRef(ctx, symbols.TypeName(f.Name), f.Pos)
	case *ast.Select[ast.Untyped]:
		name = f.Name
		tsel := &ast.TypeSelect[ast.Untyped]{Node: t.untyped(f.Pos), Qualifier: f.Qualifier, Name: f.Name}
		if sym := ast.SymOf(t.typedType(tsel, ctx, true)); sym != nil {
			d = symbols.Denotation{Alts: []symbols.SingleDenotation{{Sym: sym}}}
		}
	default:
		t.errorf(ctx, diagnostics.ErrT008, n.Pos, "illegal start of simple pattern")
		return errorTree(n)
	}
	res := &ast.Apply[ast.Typed]{Node: node(n, typesystem.TError{}, nil)}
	fun := &ast.Ident[ast.Typed]{Node: node(n.Fun, typesystem.TError{}, nil), Name: name}
	res.Fun = fun
	if !d.Exists() || d.IsOverloaded() {
		res.Args = t.typedLooseSubpatterns(n.Args, ctx)
		return res
	}
	cls := d.Single().Sym
	if cls == nil || !cls.IsClass() || !cls.Flags.Has(symbols.Case) {
		t.errorf(ctx, diagnostics.ErrT008, n.Pos, "%s is not a case class, nor does it have an unapply method", name)
		res.Args = t.typedLooseSubpatterns(n.Args, ctx)
		return res
	}

	c := ctx.State.Constraints()
	subst := typesystem.Subst{}
	var clsType typesystem.Type = cls.TypeRef()
	if len(cls.TypeParams) > 0 {
		args := make([]typesystem.Type, len(cls.TypeParams))
		for i, p := range cls.TypeParams {
			v := c.Fresh(p.Name.Str)
			args[i] = v
			subst[p.ParamRef().Key()] = v
		}
		clsType = typesystem.TApp{Constructor: cls.TypeRef(), Args: args}
	}
	binder := t.narrowTo(ctx, clsType, pt, n.Pos)
	fun.Ann = ast.Typed{Type: clsType, Sym: cls}

	var params []typesystem.Type
	if ctors := cls.Decls.Lookup(symbols.TermName(config.ConstructorName)); len(ctors) > 0 {
		if m, ok := ctors[0].InfoOrError().(typesystem.TMethod); ok {
			params = m.Params
		}
	}
	if len(params) != len(n.Args) {
		t.errorf(ctx, diagnostics.ErrT003, n.Pos, "wrong number of arguments for pattern %s, expected %d", cls.Name, len(params))
		res.Args = t.typedLooseSubpatterns(n.Args, ctx)
		return res
	}
	res.Args = make([]ast.Tree[ast.Typed], len(n.Args))
	for i, a := range n.Args {
		res.Args[i] = t.typedPattern(a, params[i].Apply(subst), ctx)
	}
	res.Ann = ast.Typed{Type: binder, Sym: cls}
	return res
}

// typedLooseSubpatterns types subpatterns against Any so their variables
// are still bound after an error.
func (t *Typer) typedLooseSubpatterns(args []ast.Tree[ast.Untyped], ctx *Context) []ast.Tree[ast.Typed] {
	out := make([]ast.Tree[ast.Typed], len(args))
	for i, a := range args {
		out[i] = t.typedPattern(a, typesystem.TError{}, ctx)
	}
	return out
}
