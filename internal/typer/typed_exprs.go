package typer

import (
	"github.com/funvibe/typer/internal/ast"
	"github.com/funvibe/typer/internal/diagnostics"
	"github.com/funvibe/typer/internal/symbols"
	"github.com/funvibe/typer/internal/token"
	"github.com/funvibe/typer/internal/typesystem"
)

func (t *Typer) typedAscription(n *ast.Ascription[ast.Untyped], ctx *Context) ast.Tree[ast.Typed] {
	tpt := t.typedType(n.Tpt, ctx, false)
	tp := ast.TypeOf(tpt)
	expr := t.Typed(n.Expr, tp, ctx)
	return &ast.Ascription[ast.Typed]{Node: node(n, tp, nil), Expr: expr, Tpt: tpt}
}

func (t *Typer) unitLiteral(at token.Position) ast.Tree[ast.Typed] {
	c := typesystem.UnitConst()
	return &ast.Literal[ast.Typed]{Node: t.synthetic(at, typesystem.TConst{Value: c, Underlying: t.unitType()}, nil), Value: c}
}

func (t *Typer) typedBlock(n *ast.Block[ast.Untyped], pt typesystem.Type, ctx *Context) ast.Tree[ast.Typed] {
	scope := symbols.NewScope()
	stats, last := t.typedStats(n.Stats, ctx.WithScope(scope))

	var expr ast.Tree[ast.Typed]
	if n.Expr != nil {
		expr = t.Typed(n.Expr, pt, last)
	} else {
		expr = t.unitLiteral(n.Pos)
	}
	tp := ast.TypeOf(expr)

	var locals []*symbols.Symbol
	for _, s := range scope.Symbols() {
		if s.IsClass() || s.Kind == symbols.TypeAliasSymbol {
			locals = append(locals, s)
		}
	}
	if cls := mentionsClass(tp, locals); cls != nil {
		if isFullyDefined(pt) {
			tp = pt
		} else {
			t.errorf(ctx, diagnostics.ErrT007, n.Pos, "type %s of block escapes its defining scope as part of local %s %s",
				t.show(ctx, tp), cls.Kind, cls.Name)
			tp = typesystem.TError{}
		}
	}
	return &ast.Block[ast.Typed]{Node: node(n, tp, nil), Stats: stats, Expr: expr}
}

func (t *Typer) typedIf(n *ast.If[ast.Untyped], pt typesystem.Type, ctx *Context) ast.Tree[ast.Typed] {
	cond := t.Typed(n.Cond, t.booleanType(), ctx)
	thenp := t.Typed(n.Then, pt, ctx)
	var elsep ast.Tree[ast.Typed]
	var elseType typesystem.Type = t.unitType()
	if n.Else != nil {
		elsep = t.Typed(n.Else, pt, ctx)
		elseType = ast.TypeOf(elsep)
	}
	var tp typesystem.Type
	switch {
	case hasErrorType(thenp) || typesystem.IsError(elseType):
		tp = typesystem.TError{}
	default:
		tp = t.env(ctx).Join(typesystem.Widen(ast.TypeOf(thenp)), typesystem.Widen(elseType))
	}
	return &ast.If[ast.Typed]{Node: node(n, tp, nil), Cond: cond, Then: thenp, Else: elsep}
}

// typedFunction types a closure. Parameters without a declared type take
// theirs from the function shape of pt.
func (t *Typer) typedFunction(n *ast.Function[ast.Untyped], pt typesystem.Type, ctx *Context) ast.Tree[ast.Typed] {
	shape, hasShape := t.functionShape(ctx, pt)
	if hasShape && len(shape.Params) != len(n.Params) {
		hasShape = false
	}
	scope := symbols.NewScope()
	fctx := ctx.WithScope(scope)

	params := make([]*ast.ValDef[ast.Typed], len(n.Params))
	fn := typesystem.TFunc{Params: make([]typesystem.Type, len(n.Params))}
	for i, p := range n.Params {
		psym := t.table.NewSymbol(symbols.TermName(p.Name), symbols.ValueSymbol, p.Mods.Flags|symbols.Param, ctx.Owner, ctx.Unit, p.Pos)
		t.checkDuplicate(psym, fctx)
		var tpt ast.Tree[ast.Typed]
		var tp typesystem.Type
		if _, inferred := p.Tpt.(*ast.InferredTypeTree[ast.Untyped]); p.Tpt != nil && !inferred {
			tpt = t.typedType(p.Tpt, fctx, false)
			tp = ast.TypeOf(tpt)
		} else if hasShape {
			tp = t.closureParamType(ctx, shape.Params[i])
		}
		if tp == nil {
			t.errorf(ctx, diagnostics.ErrT008, p.Pos, "missing parameter type for %s", p.Name)
			tp = typesystem.TError{}
		}
		psym.SetInfo(tp)
		scope.Enter(psym)
		fn.Params[i] = tp
		params[i] = &ast.ValDef[ast.Typed]{Node: node(p, tp, psym), Mods: p.Mods, Name: p.Name, Tpt: tpt}
	}

	var resultPt typesystem.Type = typesystem.AnyProto
	if hasShape {
		resultPt = shape.ReturnType
	}
	body := t.Typed(n.Body, resultPt, fctx)
	fn.ReturnType = typesystem.Widen(ast.TypeOf(body))
	return &ast.Function[ast.Typed]{Node: node(n, fn, nil), Params: params, Body: body}
}

// closureParamType is the type a closure parameter takes from a formal
// parameter type. A type variable is instantiated when its bounds say
// enough; nil means nothing is known.
func (t *Typer) closureParamType(ctx *Context, formal typesystem.Type) typesystem.Type {
	v, ok := typesystem.Dealias(formal).(typesystem.TVar)
	if !ok {
		return formal
	}
	c := ctx.State.Constraints()
	if inst, ok := c.Instance(v); ok {
		return inst
	}
	if b := c.Bounds(v); b.Lo == nil && b.Hi == nil {
		return nil
	}
	t.instantiateVar(ctx, v)
	inst, _ := c.Instance(v)
	return inst
}

// typedAssign types `lhs = rhs`: a write to a variable, or a call of the
// setter lhs_= when there is one.
func (t *Typer) typedAssign(n *ast.Assign[ast.Untyped], pt typesystem.Type, ctx *Context) ast.Tree[ast.Typed] {
	lhs := t.Typed(n.Lhs, typesystem.AnyProto, ctx)
	res := &ast.Assign[ast.Typed]{Node: node(n, typesystem.TError{}, nil), Lhs: lhs}
	sym := ast.SymOf(lhs)
	if hasErrorType(lhs) || sym == nil {
		res.Rhs = t.Typed(n.Rhs, typesystem.AnyProto, ctx)
		return res
	}
	if sym.IsMutable() {
		res.Rhs = t.Typed(n.Rhs, typesystem.Widen(sym.InfoOrError()), ctx)
		res.Ann = ast.Typed{Type: t.unitType()}
		return t.adapt(res, pt, ctx)
	}
	if setter := t.setterCall(n, sym, ctx); setter != nil {
		return t.Typed(setter, pt, ctx)
	}
	t.errorf(ctx, diagnostics.ErrT008, n.Pos, "reassignment to val %s", sym.Name)
	res.Rhs = t.Typed(n.Rhs, typesystem.AnyProto, ctx)
	return res
}

// setterCall rewrites an assignment into a call of the setter of sym, or
// returns nil when there is no setter.
func (t *Typer) setterCall(n *ast.Assign[ast.Untyped], sym *symbols.Symbol, ctx *Context) ast.Tree[ast.Untyped] {
	name := sym.Name.Setter()
	var fun ast.Tree[ast.Untyped]
	switch lhs := n.Lhs.(type) {
	case *ast.Ident[ast.Untyped]:
		if !t.resolve(ctx, name).best.exists() {
			return nil
		}
		fun = &ast.Ident[ast.Untyped]{Node: t.untyped(lhs.Pos), Name: name.Str}
	case *ast.Select[ast.Untyped]:
		if sym.Owner == nil || !t.table.Member(t.env(ctx), sym.Owner.AppliedRef(), name).Exists() {
			return nil
		}
		fun = &ast.Select[ast.Untyped]{Node: t.untyped(lhs.Pos), Qualifier: lhs.Qualifier, Name: name.Str}
	default:
		return nil
	}
	return &ast.Apply[ast.Untyped]{Node: t.untyped(n.Pos), Fun: fun, Args: []ast.Tree[ast.Untyped]{n.Rhs}}
}

func (t *Typer) typedReturn(n *ast.Return[ast.Untyped], ctx *Context) ast.Tree[ast.Typed] {
	res := &ast.Return[ast.Typed]{Node: node(n, t.nothingType(), nil)}
	meth := ctx.Owner.EnclosingMethod()
	var result typesystem.Type
	switch {
	case meth == nil:
		t.errorf(ctx, diagnostics.ErrT008, n.Pos, "return outside method definition")
	case t.bySym[meth] == nil || t.bySym[meth].result == nil:
		t.errorf(ctx, diagnostics.ErrT008, n.Pos, "method %s has return statement; needs result type", meth.Name)
	default:
		result = t.bySym[meth].result
	}
	if result == nil {
		if n.Expr != nil {
			res.Expr = t.Typed(n.Expr, typesystem.AnyProto, ctx)
		}
		return res
	}
	if n.Expr != nil {
		res.Expr = t.Typed(n.Expr, result, ctx)
	} else {
		res.Expr = t.adapt(t.unitLiteral(n.Pos), result, ctx)
	}
	return res
}
