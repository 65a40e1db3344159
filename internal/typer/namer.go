package typer

import (
	"strings"

	"github.com/funvibe/typer/internal/ast"
	"github.com/funvibe/typer/internal/config"
	"github.com/funvibe/typer/internal/diagnostics"
	"github.com/funvibe/typer/internal/symbols"
	"github.com/funvibe/typer/internal/typerstate"
	"github.com/funvibe/typer/internal/typesystem"
)

// defEntry is everything the typer keeps about one definition tree. Entries
// are created when the definition is entered and live for the whole run.
type defEntry struct {
	tree ast.Tree[ast.Untyped]
	sym  *symbols.Symbol
	ctx  *Context // where the definition was entered

	sig      *Context // method parameters, class type parameters
	body     *Context // class and module bodies
	bodyCtxs []*Context

	result  typesystem.Type // declared result type of a method
	tpt     ast.Tree[ast.Typed]
	rhs     ast.Tree[ast.Typed]
	tparams []*ast.TypeDef[ast.Typed]
	params  [][]*ast.ValDef[ast.Typed]
	parents []ast.Tree[ast.Typed]

	typed ast.Tree[ast.Typed]
	diags []*diagnostics.DiagnosticError
}

// enterStats enters the definitions and imports of a statement sequence and
// returns the context each statement is typed in: a statement sees the
// imports before it and every definition of the sequence.
func (t *Typer) enterStats(stats []ast.Tree[ast.Untyped], ctx *Context) []*Context {
	ctxs := make([]*Context, len(stats))
	cur := ctx
	for i, s := range stats {
		if imp, ok := s.(*ast.Import[ast.Untyped]); ok {
			cur = cur.WithImport(t.newImport(imp, cur))
			ctxs[i] = cur
			continue
		}
		ctxs[i] = cur
		t.enterDef(s, cur)
	}
	return ctxs
}

// enterDef creates the symbol of a definition and enters it into the scope
// of ctx. A definition that was entered before keeps its symbol.
func (t *Typer) enterDef(tree ast.Tree[ast.Untyped], ctx *Context) *defEntry {
	if _, isPkg := tree.(*ast.PackageDef[ast.Untyped]); !isPkg && !ast.IsDefinition(tree) {
		return nil
	}
	if e, ok := t.enteredDef(tree, ctx); ok {
		if ctx.Scope != nil && !ctx.Scope.Contains(e.sym) && !e.sym.IsPackage() {
			t.checkDuplicate(e.sym, ctx)
			ctx.Scope.Enter(e.sym)
		}
		return e
	}
	e := &defEntry{tree: tree, ctx: ctx}
	switch n := tree.(type) {
	case *ast.ValDef[ast.Untyped]:
		e.sym = t.newSym(ctx, symbols.TermName(n.Name), symbols.ValueSymbol, n.Mods.Flags, n)
		e.sym.SetCompleter(t.completeVal(e))
	case *ast.DefDef[ast.Untyped]:
		e.sym = t.newSym(ctx, symbols.TermName(n.Name), symbols.MethodSymbol, n.Mods.Flags|symbols.Method, n)
		e.sig = ctx.WithOwner(e.sym).WithScope(symbols.NewScope())
		e.sym.SetCompleter(t.completeDef(e))
	case *ast.ClassDef[ast.Untyped]:
		t.enterClass(e, n, ctx)
	case *ast.ModuleDef[ast.Untyped]:
		mod := t.newSym(ctx, symbols.TermName(n.Name), symbols.ModuleSymbol, n.Mods.Flags|symbols.Stable, n)
		mod.Parents = []typesystem.Type{t.builtin(config.AnyRefTypeName)}
		mod.SetInfo(mod.TermRef())
		e.sym = mod
		e.body = ctx.WithOwner(mod).WithScope(mod.Decls)
		e.bodyCtxs = t.enterStats(n.Body, e.body)
		t.pending = append(t.pending, e)
	case *ast.TypeDef[ast.Untyped]:
		t.enterTypeDef(e, n, ctx)
	case *ast.PackageDef[ast.Untyped]:
		if ctx.Owner == nil || !ctx.Owner.IsPackage() {
			t.errorf(ctx, diagnostics.ErrT008, n.Pos, "package %s must be defined at top level", strings.Join(n.Pid, "."))
			return nil
		}
		var path []string
		if full := ctx.Owner.FullName(); full != "" {
			path = strings.Split(full, ".")
		}
		pkg := t.table.EnterPackage(append(path, n.Pid...))
		e.sym = pkg
		e.body = ctx.WithOwner(pkg).WithScope(pkg.Decls)
		e.bodyCtxs = t.enterStats(n.Stats, e.body)
	}
	ctx.State.SetMemo(defKey(ast.ID(tree)), e)
	t.bySym[e.sym] = e
	return e
}

// enteredDef finds the entry of a definition entered on ctx's state or on a
// state it derives from. Entries made during a discarded trial are not found.
func (t *Typer) enteredDef(tree ast.Tree[ast.Untyped], ctx *Context) (*defEntry, bool) {
	v, ok := ctx.State.Memo(defKey(ast.ID(tree)))
	if !ok {
		return nil, false
	}
	return v.(*defEntry), true
}

func (t *Typer) newSym(ctx *Context, name symbols.Name, kind symbols.SymbolKind, flags symbols.Flags, tree ast.Tree[ast.Untyped]) *symbols.Symbol {
	sym := t.table.NewSymbol(name, kind, flags, ctx.Owner, ctx.Unit, ast.PosOf(tree))
	t.checkDuplicate(sym, ctx)
	ctx.Scope.Enter(sym)
	return sym
}

// checkDuplicate reports a second definition of a name in one scope.
// Methods may share a name with other methods.
func (t *Typer) checkDuplicate(sym *symbols.Symbol, ctx *Context) {
	for _, other := range ctx.Scope.Lookup(sym.Name) {
		if other == sym {
			continue
		}
		if sym.Name.IsType || !sym.IsMethod() || !other.IsMethod() {
			t.errorf(ctx, diagnostics.ErrT008, sym.Pos, "%s is already defined in this scope", sym.Name)
			return
		}
	}
}

func (t *Typer) enterClass(e *defEntry, n *ast.ClassDef[ast.Untyped], ctx *Context) {
	cls := t.newSym(ctx, symbols.TypeName(n.Name), symbols.ClassSymbol, n.Mods.Flags, n)
	cls.SetInfo(cls.TypeRef())
	e.sym = cls
	e.sig = ctx.WithOwner(cls).WithScope(symbols.NewScope())
	cls.TypeParams = t.newTypeParams(n.TypeParams, cls, e.sig)
	e.body = e.sig.WithScope(cls.Decls)

	names := make([]string, len(n.Params))
	accessors := make([]*symbols.Symbol, len(n.Params))
	for i, p := range n.Params {
		acc := t.newSym(e.body, symbols.TermName(p.Name), symbols.ValueSymbol, p.Mods.Flags|symbols.ParamAccessor, p)
		acc.SetCompleter(t.completeParamAccessor(e, p))
		names[i] = p.Name
		accessors[i] = acc
	}
	ctor := t.table.NewSymbol(symbols.TermName(config.ConstructorName), symbols.MethodSymbol,
		symbols.Constructor|symbols.Method, cls, ctx.Unit, n.Pos)
	cls.Decls.Enter(ctor)
	ctor.SetCompleter(func(*symbols.Symbol) (typesystem.Type, error) {
		params := make([]typesystem.Type, len(accessors))
		for i, acc := range accessors {
			params[i] = acc.InfoOrError()
		}
		return typesystem.TMethod{ParamNames: names, Params: params, ReturnType: cls.AppliedRef()}, nil
	})
	e.bodyCtxs = t.enterStats(n.Body, e.body)
	t.pending = append(t.pending, e)
}

func (t *Typer) enterTypeDef(e *defEntry, n *ast.TypeDef[ast.Untyped], ctx *Context) {
	sym := t.newSym(ctx, symbols.TypeName(n.Name), symbols.TypeAliasSymbol, n.Mods.Flags, n)
	e.sym = sym
	e.sig = ctx.WithOwner(sym).WithScope(symbols.NewScope())
	sym.TypeParams = t.newTypeParams(n.TypeParams, sym, e.sig)
	if _, bounds := n.Rhs.(*ast.TypeBoundsTree[ast.Untyped]); n.Rhs == nil || bounds {
		sym.Flags |= symbols.Deferred
		sym.SetInfo(typesystem.TParam{Name: n.Name, Ref: sym})
		t.pending = append(t.pending, e)
		return
	}
	sym.SetCompleter(func(sym *symbols.Symbol) (typesystem.Type, error) {
		state := e.ctx.State.Detached()
		defer func() { e.diags = append(e.diags, state.Errors()...) }()
		c := e.sig.WithState(state)
		e.tparams = t.typedTypeParams(n.TypeParams, sym.TypeParams, c)
		e.tpt = t.typedType(n.Rhs, c, false)
		sym.Hi = ast.TypeOf(e.tpt)
		return sym.Hi, nil
	})
}

func (t *Typer) newTypeParams(defs []*ast.TypeDef[ast.Untyped], owner *symbols.Symbol, ctx *Context) []*symbols.Symbol {
	if len(defs) == 0 {
		return nil
	}
	syms := make([]*symbols.Symbol, len(defs))
	for i, d := range defs {
		flags := d.Mods.Flags & (symbols.Covariant | symbols.Contravariant)
		ps := t.table.NewSymbol(symbols.TypeName(d.Name), symbols.TypeParamSymbol, flags, owner, ctx.Unit, d.Pos)
		t.checkDuplicate(ps, ctx)
		ctx.Scope.Enter(ps)
		ps.SetInfo(ps.ParamRef())
		syms[i] = ps
	}
	return syms
}

// typedTypeParams types the bounds of entered type parameters.
func (t *Typer) typedTypeParams(defs []*ast.TypeDef[ast.Untyped], syms []*symbols.Symbol, ctx *Context) []*ast.TypeDef[ast.Typed] {
	out := make([]*ast.TypeDef[ast.Typed], len(defs))
	for i, d := range defs {
		ps := syms[i]
		var rhs ast.Tree[ast.Typed]
		if d.Rhs != nil {
			rhs = t.typedType(d.Rhs, ctx, false)
			if w, ok := ast.TypeOf(rhs).(typesystem.TWildcard); ok {
				ps.Lo, ps.Hi = w.Lo, w.Hi
			}
		}
		out[i] = &ast.TypeDef[ast.Typed]{Node: node(d, ps.ParamRef(), ps), Mods: d.Mods, Name: d.Name, Rhs: rhs}
	}
	return out
}

// completePending types the headers of entered classes, modules and
// abstract types: type parameter bounds and parents.
func (t *Typer) completePending() {
	for len(t.pending) > 0 {
		e := t.pending[0]
		t.pending = t.pending[1:]
		state := e.ctx.State.Detached()
		switch n := e.tree.(type) {
		case *ast.ClassDef[ast.Untyped]:
			c := e.sig.WithState(state)
			e.tparams = t.typedTypeParams(n.TypeParams, e.sym.TypeParams, c)
			e.parents, e.sym.Parents = t.typedParents(n.Parents, c)
		case *ast.ModuleDef[ast.Untyped]:
			if len(n.Parents) > 0 {
				e.parents, e.sym.Parents = t.typedParents(n.Parents, e.ctx.WithState(state))
			}
		case *ast.TypeDef[ast.Untyped]:
			c := e.sig.WithState(state)
			e.tparams = t.typedTypeParams(n.TypeParams, e.sym.TypeParams, c)
			if n.Rhs != nil {
				e.tpt = t.typedType(n.Rhs, c, false)
				if w, ok := ast.TypeOf(e.tpt).(typesystem.TWildcard); ok {
					e.sym.Lo, e.sym.Hi = w.Lo, w.Hi
				}
			}
		}
		e.diags = append(e.diags, state.Errors()...)
	}
}

func (t *Typer) typedParents(trees []ast.Tree[ast.Untyped], ctx *Context) ([]ast.Tree[ast.Typed], []typesystem.Type) {
	typed := make([]ast.Tree[ast.Typed], len(trees))
	var parents []typesystem.Type
	for i, p := range trees {
		typed[i] = t.typedType(p, ctx, false)
		tp := ast.TypeOf(typed[i])
		if typesystem.IsError(tp) {
			continue
		}
		if con, _, ok := typesystem.ClassOf(tp); !ok || symbolOf(con.Ref) == nil || !symbolOf(con.Ref).IsClass() {
			t.errorf(ctx, diagnostics.ErrT003, ast.PosOf(p), "class type required but %s found", tp)
			continue
		}
		parents = append(parents, tp)
	}
	return typed, parents
}

func (t *Typer) completeVal(e *defEntry) symbols.Completer {
	return func(sym *symbols.Symbol) (typesystem.Type, error) {
		vd := e.tree.(*ast.ValDef[ast.Untyped])
		state := e.ctx.State.Detached()
		defer func() { e.diags = append(e.diags, state.Errors()...) }()
		ctx := e.ctx.WithState(state)
		if vd.Tpt != nil {
			e.tpt = t.typedType(vd.Tpt, ctx, false)
			return ast.TypeOf(e.tpt), nil
		}
		if vd.Rhs == nil {
			t.errorf(ctx, diagnostics.ErrT008, vd.Pos, "type of value %s is missing", vd.Name)
			return typesystem.TError{}, nil
		}
		e.rhs = t.typedBody(vd.Rhs, typesystem.AnyProto, ctx.WithOwner(sym))
		return typesystem.Widen(ast.TypeOf(e.rhs)), nil
	}
}

func (t *Typer) completeParamAccessor(e *defEntry, p *ast.ValDef[ast.Untyped]) symbols.Completer {
	return func(sym *symbols.Symbol) (typesystem.Type, error) {
		state := e.ctx.State.Detached()
		defer func() { e.diags = append(e.diags, state.Errors()...) }()
		ctx := e.sig.WithState(state)
		if p.Tpt == nil {
			t.errorf(ctx, diagnostics.ErrT008, p.Pos, "missing parameter type for %s", p.Name)
			return typesystem.TError{}, nil
		}
		return ast.TypeOf(t.typedType(p.Tpt, ctx, false)), nil
	}
}

func (t *Typer) completeDef(e *defEntry) symbols.Completer {
	return func(sym *symbols.Symbol) (typesystem.Type, error) {
		dd := e.tree.(*ast.DefDef[ast.Untyped])
		state := e.ctx.State.Detached()
		defer func() { e.diags = append(e.diags, state.Errors()...) }()
		ctx := e.sig.WithState(state)

		if e.params == nil {
			sym.TypeParams = t.newTypeParams(dd.TypeParams, sym, e.sig)
			e.tparams = t.typedTypeParams(dd.TypeParams, sym.TypeParams, ctx)
			e.params = make([][]*ast.ValDef[ast.Typed], len(dd.ParamLists))
			for i, list := range dd.ParamLists {
				e.params[i] = t.typedParams(list, sym, ctx)
			}
		}

		var result typesystem.Type
		switch {
		case dd.Tpt != nil:
			e.tpt = t.typedType(dd.Tpt, ctx, false)
			e.result = ast.TypeOf(e.tpt)
			result = e.result
		case dd.Rhs == nil:
			t.errorf(ctx, diagnostics.ErrT008, dd.Pos, "abstract method %s needs a result type", dd.Name)
			result = typesystem.TError{}
		default:
			e.rhs = t.typedBody(dd.Rhs, typesystem.AnyProto, ctx)
			result = typesystem.Widen(ast.TypeOf(e.rhs))
		}
		return methodType(sym, e.params, result), nil
	}
}

// methodType folds parameter lists into a method type. A method without
// parameter lists has a by-name result.
func methodType(sym *symbols.Symbol, lists [][]*ast.ValDef[ast.Typed], result typesystem.Type) typesystem.Type {
	var tp typesystem.Type = result
	if len(lists) == 0 {
		tp = typesystem.TExpr{ReturnType: result}
	}
	for i := len(lists) - 1; i >= 0; i-- {
		m := typesystem.TMethod{ReturnType: tp}
		for _, p := range lists[i] {
			m.ParamNames = append(m.ParamNames, p.Name)
			m.Params = append(m.Params, ast.TypeOf(p))
			if p.Mods.Is(symbols.Implicit) {
				m.Implicit = true
			}
		}
		tp = m
	}
	if len(sym.TypeParams) > 0 {
		vars := make([]typesystem.TParam, len(sym.TypeParams))
		for i, p := range sym.TypeParams {
			vars[i] = p.ParamRef()
		}
		tp = typesystem.TForall{Vars: vars, Type: tp}
	}
	return tp
}

// typedParams enters method parameters into the signature scope.
func (t *Typer) typedParams(list []*ast.ValDef[ast.Untyped], owner *symbols.Symbol, ctx *Context) []*ast.ValDef[ast.Typed] {
	out := make([]*ast.ValDef[ast.Typed], len(list))
	for i, p := range list {
		psym := t.table.NewSymbol(symbols.TermName(p.Name), symbols.ValueSymbol, p.Mods.Flags|symbols.Param, owner, ctx.Unit, p.Pos)
		t.checkDuplicate(psym, ctx)
		ctx.Scope.Enter(psym)
		var tpt ast.Tree[ast.Typed]
		var tp typesystem.Type = typesystem.TError{}
		if p.Tpt != nil {
			tpt = t.typedType(p.Tpt, ctx, false)
			tp = ast.TypeOf(tpt)
		} else {
			t.errorf(ctx, diagnostics.ErrT008, p.Pos, "missing parameter type for %s", p.Name)
		}
		psym.SetInfo(tp)
		out[i] = &ast.ValDef[ast.Typed]{Node: node(p, tp, psym), Mods: p.Mods, Name: p.Name, Tpt: tpt}
	}
	return out
}

// typedBody types the right-hand side of a definition and solves the type
// variables it created.
func (t *Typer) typedBody(rhs ast.Tree[ast.Untyped], pt typesystem.Type, ctx *Context) ast.Tree[ast.Typed] {
	mark := ctx.State.Constraints().Mark()
	typed := t.Typed(rhs, pt, ctx)
	return t.interpolate(typed, ctx, mark)
}

// typedDefinition returns the typed form of an entered definition. The
// definition is typed the first time it is reached; its diagnostics are
// reported every time it is reached.
func (t *Typer) typedDefinition(tree ast.Tree[ast.Untyped], ctx *Context) ast.Tree[ast.Typed] {
	e, ok := t.enteredDef(tree, ctx)
	if !ok {
		if e = t.enterDef(tree, ctx); e == nil {
			return errorTree(tree)
		}
		t.completePending()
	}
	if e.typed == nil {
		e.typed = t.typeDefinition(e, ctx)
	}
	ctx.State.Replay(e.diags)
	return e.typed
}

func (t *Typer) typeDefinition(e *defEntry, ctx *Context) ast.Tree[ast.Typed] {
	state := ctx.State.Detached()
	defer func() { e.diags = append(e.diags, state.Errors()...) }()

	info, err := e.sym.Info()
	if err != nil {
		t.reportCompletion(e.ctx.WithState(state), e.sym, err, e.sym.Pos)
	}
	switch n := e.tree.(type) {
	case *ast.ValDef[ast.Untyped]:
		if n.Rhs != nil && e.rhs == nil {
			e.rhs = t.typedBody(n.Rhs, info, e.ctx.WithState(state).WithOwner(e.sym))
		}
		return &ast.ValDef[ast.Typed]{Node: node(n, typesystem.TNone{}, e.sym), Mods: n.Mods, Name: n.Name, Tpt: e.tpt, Rhs: e.rhs}

	case *ast.DefDef[ast.Untyped]:
		if n.Rhs != nil && e.rhs == nil && e.result != nil {
			e.rhs = t.typedBody(n.Rhs, e.result, e.sig.WithState(state))
		}
		return &ast.DefDef[ast.Typed]{
			Node: node(n, typesystem.TNone{}, e.sym), Mods: n.Mods, Name: n.Name,
			TypeParams: e.tparams, ParamLists: e.params, Tpt: e.tpt, Rhs: e.rhs,
		}

	case *ast.ClassDef[ast.Untyped]:
		params := make([]*ast.ValDef[ast.Typed], len(n.Params))
		for i, p := range n.Params {
			acc := e.sym.Decls.Lookup(symbols.TermName(p.Name))
			var sym *symbols.Symbol
			tp := typesystem.Type(typesystem.TError{})
			for _, a := range acc {
				if a.Flags.Has(symbols.ParamAccessor) {
					sym, tp = a, a.InfoOrError()
				}
			}
			params[i] = &ast.ValDef[ast.Typed]{Node: node(p, tp, sym), Mods: p.Mods, Name: p.Name}
		}
		body := t.typedEnteredStats(n.Body, e.bodyCtxs, state)
		return &ast.ClassDef[ast.Typed]{
			Node: node(n, typesystem.TNone{}, e.sym), Mods: n.Mods, Name: n.Name,
			TypeParams: e.tparams, Params: params, Parents: e.parents, Body: body,
		}

	case *ast.ModuleDef[ast.Untyped]:
		body := t.typedEnteredStats(n.Body, e.bodyCtxs, state)
		return &ast.ModuleDef[ast.Typed]{
			Node: node(n, typesystem.TNone{}, e.sym), Mods: n.Mods, Name: n.Name,
			Parents: e.parents, Body: body,
		}

	case *ast.TypeDef[ast.Untyped]:
		return &ast.TypeDef[ast.Typed]{
			Node: node(n, typesystem.TNone{}, e.sym), Mods: n.Mods, Name: n.Name,
			TypeParams: e.tparams, Rhs: e.tpt,
		}

	case *ast.PackageDef[ast.Untyped]:
		stats := t.typedEnteredStats(n.Stats, e.bodyCtxs, state)
		return &ast.PackageDef[ast.Typed]{Node: node(n, typesystem.TNone{}, e.sym), Pid: n.Pid, Stats: stats}
	}
	return errorTree(e.tree)
}

// typedStats enters and types a statement sequence. The returned context
// sees every import of the sequence.
func (t *Typer) typedStats(stats []ast.Tree[ast.Untyped], ctx *Context) ([]ast.Tree[ast.Typed], *Context) {
	ctxs := t.enterStats(stats, ctx)
	t.completePending()
	last := ctx
	if len(ctxs) > 0 {
		last = ctxs[len(ctxs)-1]
	}
	return t.typedEnteredStats(stats, ctxs, ctx.State), last.WithState(ctx.State)
}

// typedEnteredStats types statements left to right. Type variables created
// by a statement are solved once the statement is done.
func (t *Typer) typedEnteredStats(stats []ast.Tree[ast.Untyped], ctxs []*Context, state *typerstate.State) []ast.Tree[ast.Typed] {
	out := make([]ast.Tree[ast.Typed], len(stats))
	for i, s := range stats {
		ctx := ctxs[i].WithState(state)
		mark := state.Constraints().Mark()
		var typed ast.Tree[ast.Typed]
		switch n := s.(type) {
		case *ast.Import[ast.Untyped]:
			typed = t.typedImport(n, ctx)
		case *ast.PackageDef[ast.Untyped]:
			typed = t.typedDefinition(n, ctx)
		default:
			if ast.IsDefinition(s) {
				typed = t.typedDefinition(s, ctx)
			} else {
				typed = t.Typed(s, typesystem.AnyProto, ctx)
			}
		}
		out[i] = t.interpolate(typed, ctx, mark)
	}
	return out
}
