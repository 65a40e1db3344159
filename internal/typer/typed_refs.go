package typer

import (
	"github.com/funvibe/typer/internal/ast"
	"github.com/funvibe/typer/internal/config"
	"github.com/funvibe/typer/internal/diagnostics"
	"github.com/funvibe/typer/internal/symbols"
	"github.com/funvibe/typer/internal/typesystem"
)

func (t *Typer) typedIdent(n *ast.Ident[ast.Untyped], pt typesystem.Type, ctx *Context) ast.Tree[ast.Typed] {
	name := symbols.TermName(n.Name)
	d := t.findRef(ctx, name, n.Pos)
	if !d.Exists() {
		t.tracef("typedIdent %s at %s: not found", n.Name, n.Pos)
		return &ast.Ident[ast.Typed]{Node: node(n, typesystem.TError{}, nil), Name: n.Name}
	}
	var (
		tp  typesystem.Type
		sym *symbols.Symbol
	)
	if d.IsOverloaded() {
		tp = d.Type(n.Name)
	} else {
		a := d.Single()
		tp, sym = refType(a), a.Sym
	}
	t.tracef("typedIdent %s at %s: %s", n.Name, n.Pos, tp)
	return &ast.Ident[ast.Typed]{Node: node(n, tp, sym), Name: n.Name}
}

func (t *Typer) typedSelect(n *ast.Select[ast.Untyped], pt typesystem.Type, ctx *Context) ast.Tree[ast.Typed] {
	if n.Name == config.ConstructorName {
		return t.typedConstructorRef(n, ctx)
	}
	name := symbols.TermName(n.Name)
	qual := t.Typed(n.Qualifier, &SelectionProto{Name: name, table: t.table}, ctx)
	res := &ast.Select[ast.Typed]{Node: node(n, typesystem.TError{}, nil), Qualifier: qual, Name: n.Name}
	site := ast.TypeOf(qual)
	if typesystem.IsError(site) {
		return res
	}

	d := t.table.Member(t.env(ctx), site, name)
	if !d.Exists() {
		t.errorf(ctx, diagnostics.ErrT001, n.Pos, "value %s is not a member of %s", n.Name, t.show(ctx, typesystem.Widen(site)))
		return res
	}
	for _, a := range d.Alts {
		if a.Err != nil {
			t.reportCompletion(ctx, a.Sym, a.Err, n.Pos)
			return res
		}
	}
	if d.IsOverloaded() {
		d = d.Filter(func(a symbols.SingleDenotation) bool { return t.isAccessible(ctx, a.Sym) })
	}
	if !d.IsOverloaded() {
		a := d.Single()
		if a.Sym == nil || !t.isAccessible(ctx, a.Sym) {
			owner := ""
			if a.Sym != nil && a.Sym.Owner != nil {
				owner = a.Sym.Owner.Name.Str
			}
			t.errorf(ctx, diagnostics.ErrT004, n.Pos, "%s %s in %s cannot be accessed in %s", "value", n.Name, owner, t.show(ctx, typesystem.Widen(site)))
			return res
		}
		res.Ann = ast.Typed{Type: refType(a), Sym: a.Sym}
		return res
	}
	res.Ann = ast.Typed{Type: d.Type(n.Name)}
	return res
}

// typedConstructorRef types the function part of `new C(args)`: the
// constructor of C seen from the instantiated class type.
func (t *Typer) typedConstructorRef(n *ast.Select[ast.Untyped], ctx *Context) ast.Tree[ast.Typed] {
	nw, ok := n.Qualifier.(*ast.New[ast.Untyped])
	if !ok {
		t.errorf(ctx, diagnostics.ErrT008, n.Pos, "constructor can only be called through new")
		return errorTree(n)
	}
	qual := t.typedNew(nw, ctx)
	res := &ast.Select[ast.Typed]{Node: node(n, typesystem.TError{}, nil), Qualifier: qual, Name: n.Name}
	clsType := ast.TypeOf(qual)
	con, args, ok := typesystem.ClassOf(clsType)
	if !ok {
		return res
	}
	cls := symbolOf(con.Ref)
	if cls == nil {
		return res
	}
	ctors := cls.Decls.Lookup(symbols.TermName(config.ConstructorName))
	if len(ctors) == 0 {
		res.Ann = ast.Typed{Type: typesystem.TMethod{ReturnType: clsType}}
		return res
	}
	ctor := ctors[0]
	info, err := ctor.Info()
	if err != nil {
		t.reportCompletion(ctx, ctor, err, n.Pos)
		return res
	}
	subst := typesystem.Subst{}
	for i, p := range cls.TypeParams {
		if i < len(args) {
			subst[p.ParamRef().Key()] = args[i]
		}
	}
	res.Ann = ast.Typed{Type: info.Apply(subst), Sym: ctor}
	return res
}

// typedNew types `new C`. The type arguments of a generic class left
// without them are inferred from the constructor arguments.
func (t *Typer) typedNew(n *ast.New[ast.Untyped], ctx *Context) ast.Tree[ast.Typed] {
	tpt := t.typedType(n.Tpt, ctx, true)
	res := &ast.New[ast.Typed]{Node: node(n, typesystem.TError{}, nil), Tpt: tpt}
	tp := ast.TypeOf(tpt)
	if typesystem.IsError(tp) {
		return res
	}
	con, args, ok := typesystem.ClassOf(tp)
	cls := symbolOf(con.Ref)
	if !ok || cls == nil || !cls.IsClass() {
		t.errorf(ctx, diagnostics.ErrT003, n.Pos, "class type required but %s found", t.show(ctx, tp))
		return res
	}
	if cls.Flags.Has(symbols.Deferred) {
		t.errorf(ctx, diagnostics.ErrT008, n.Pos, "%s is abstract; cannot be instantiated", cls.Name)
		return res
	}
	if len(args) == 0 && len(cls.TypeParams) > 0 {
		c := ctx.State.Constraints()
		vars := make([]typesystem.Type, len(cls.TypeParams))
		for i, p := range cls.TypeParams {
			vars[i] = c.Fresh(p.Name.Str)
		}
		tp = typesystem.TApp{Constructor: cls.TypeRef(), Args: vars}
	}
	res.Ann = ast.Typed{Type: tp, Sym: cls}
	return res
}

func (t *Typer) typedLiteral(n *ast.Literal[ast.Untyped]) ast.Tree[ast.Typed] {
	tp := typesystem.TConst{Value: n.Value, Underlying: t.builtin(n.Value.TypeName())}
	return &ast.Literal[ast.Typed]{Node: node(n, tp, nil), Value: n.Value}
}

// enclosingTemplate finds the class or module named qual around the
// context, the innermost one when qual is empty.
func (t *Typer) enclosingTemplate(ctx *Context, qual string) *symbols.Symbol {
	for o := ctx.Owner; o != nil; o = o.Owner {
		if (o.IsClass() || o.IsModule()) && (qual == "" || o.Name.Str == qual) {
			return o
		}
	}
	return nil
}

func thisType(cls *symbols.Symbol) typesystem.Type {
	if cls.IsModule() {
		return cls.TermRef()
	}
	return cls.ThisType()
}

func (t *Typer) typedThis(n *ast.This[ast.Untyped], ctx *Context) ast.Tree[ast.Typed] {
	cls := t.enclosingTemplate(ctx, n.Qual)
	if cls == nil {
		if n.Qual == "" {
			t.errorf(ctx, diagnostics.ErrT008, n.Pos, "this can be used only in a class, object, or template")
		} else {
			t.errorf(ctx, diagnostics.ErrT008, n.Pos, "%s is not an enclosing class", n.Qual)
		}
		return &ast.This[ast.Typed]{Node: node(n, typesystem.TError{}, nil), Qual: n.Qual}
	}
	return &ast.This[ast.Typed]{Node: node(n, thisType(cls), cls), Qual: n.Qual}
}

func (t *Typer) typedSuper(n *ast.Super[ast.Untyped], ctx *Context) ast.Tree[ast.Typed] {
	res := &ast.Super[ast.Typed]{Node: node(n, typesystem.TError{}, nil), Qual: n.Qual, Mix: n.Mix}
	cls := t.enclosingTemplate(ctx, n.Qual)
	if cls == nil {
		t.errorf(ctx, diagnostics.ErrT008, n.Pos, "super can be used only in a class, object, or template")
		return res
	}
	parents := t.table.ClassParents(cls)
	var parent typesystem.Type
	for _, p := range parents {
		con, _, ok := typesystem.ClassOf(p)
		if !ok {
			continue
		}
		if n.Mix == "" || con.Name == n.Mix {
			parent = p
			break
		}
	}
	if parent == nil {
		if n.Mix != "" {
			t.errorf(ctx, diagnostics.ErrT008, n.Pos, "%s does not name a parent class of %s", n.Mix, cls.Name)
		} else {
			t.errorf(ctx, diagnostics.ErrT008, n.Pos, "%s has no parent class", cls.Name)
		}
		return res
	}
	res.Ann = ast.Typed{Type: typesystem.TSuper{This: cls.ThisType(), Super: parent}, Sym: cls}
	return res
}
