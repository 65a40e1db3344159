package ast

import (
	"github.com/funvibe/typer/internal/typesystem"
)

// Children returns the direct subtrees of t in source order.
func Children[A Annotation](t Tree[A]) []Tree[A] {
	var out []Tree[A]
	add := func(ts ...Tree[A]) {
		for _, c := range ts {
			if c != nil {
				out = append(out, c)
			}
		}
	}
	switch n := t.(type) {
	case *Select[A]:
		add(n.Qualifier)
	case *Apply[A]:
		add(n.Fun)
		add(n.Args...)
	case *TypeApply[A]:
		add(n.Fun)
		add(n.Args...)
	case *New[A]:
		add(n.Tpt)
	case *Ascription[A]:
		add(n.Expr, n.Tpt)
	case *Assign[A]:
		add(n.Lhs, n.Rhs)
	case *Block[A]:
		add(n.Stats...)
		add(n.Expr)
	case *If[A]:
		add(n.Cond, n.Then, n.Else)
	case *Function[A]:
		for _, p := range n.Params {
			add(p)
		}
		add(n.Body)
	case *Match[A]:
		add(n.Selector)
		for _, c := range n.Cases {
			add(c)
		}
	case *CaseDef[A]:
		add(n.Pat, n.Guard, n.Body)
	case *Alternative[A]:
		add(n.Trees...)
	case *Bind[A]:
		add(n.Body)
	case *Return[A]:
		add(n.Expr)
	case *ValDef[A]:
		add(n.Tpt, n.Rhs)
	case *DefDef[A]:
		for _, tp := range n.TypeParams {
			add(tp)
		}
		for _, ps := range n.ParamLists {
			for _, p := range ps {
				add(p)
			}
		}
		add(n.Tpt, n.Rhs)
	case *TypeDef[A]:
		for _, tp := range n.TypeParams {
			add(tp)
		}
		add(n.Rhs)
	case *ClassDef[A]:
		for _, tp := range n.TypeParams {
			add(tp)
		}
		for _, p := range n.Params {
			add(p)
		}
		add(n.Parents...)
		add(n.Body...)
	case *ModuleDef[A]:
		add(n.Parents...)
		add(n.Body...)
	case *Import[A]:
		add(n.Expr)
	case *PackageDef[A]:
		add(n.Stats...)
	case *TypeSelect[A]:
		add(n.Qualifier)
	case *AppliedTypeTree[A]:
		add(n.Tpt)
		add(n.Args...)
	case *FunctionTypeTree[A]:
		add(n.Params...)
		add(n.Result)
	case *TypeBoundsTree[A]:
		add(n.Lo, n.Hi)
	case *InfixOp[A]:
		add(n.Left, n.Right)
	case *PrefixOp[A]:
		add(n.Operand)
	case *Parens[A]:
		add(n.Exprs...)
	}
	return out
}

// Walk calls visit for t and, while visit returns true, for its subtrees (pre-order).
func Walk[A Annotation](t Tree[A], visit func(Tree[A]) bool) {
	if t == nil || !visit(t) {
		return
	}
	for _, c := range Children(t) {
		Walk(c, visit)
	}
}

// Transform rebuilds t bottom-up: children are transformed first, then f is
// applied to the copy holding the new children. Untouched input is never mutated.
func Transform[A Annotation](t Tree[A], f func(Tree[A]) Tree[A]) Tree[A] {
	if t == nil {
		return nil
	}
	return f(mapChildren(t, func(c Tree[A]) Tree[A] { return Transform(c, f) }))
}

// MapTypes applies f to the type of every node of a typed tree.
func MapTypes(t Tree[Typed], f func(typesystem.Type) typesystem.Type) Tree[Typed] {
	return Transform(t, func(n Tree[Typed]) Tree[Typed] {
		h := n.Header()
		if h.Ann.Type != nil {
			h.Ann.Type = f(h.Ann.Type)
		}
		if fn, ok := n.(*Function[Typed]); ok && fn.SAMTarget != nil {
			fn.SAMTarget = f(fn.SAMTarget)
		}
		return n
	})
}

func mapAll[A Annotation](ts []Tree[A], f func(Tree[A]) Tree[A]) []Tree[A] {
	if ts == nil {
		return nil
	}
	out := make([]Tree[A], len(ts))
	for i, t := range ts {
		out[i] = f(t)
	}
	return out
}

func mapOpt[A Annotation](t Tree[A], f func(Tree[A]) Tree[A]) Tree[A] {
	if t == nil {
		return nil
	}
	return f(t)
}

func mapValDefs[A Annotation](ps []*ValDef[A], f func(Tree[A]) Tree[A]) []*ValDef[A] {
	if ps == nil {
		return nil
	}
	out := make([]*ValDef[A], len(ps))
	for i, p := range ps {
		out[i] = f(p).(*ValDef[A])
	}
	return out
}

func mapTypeDefs[A Annotation](ps []*TypeDef[A], f func(Tree[A]) Tree[A]) []*TypeDef[A] {
	if ps == nil {
		return nil
	}
	out := make([]*TypeDef[A], len(ps))
	for i, p := range ps {
		out[i] = f(p).(*TypeDef[A])
	}
	return out
}

// mapChildren returns a shallow copy of t whose children are replaced by f(child).
// Definition-shaped children (parameters, cases) must map to the same shape.
func mapChildren[A Annotation](t Tree[A], f func(Tree[A]) Tree[A]) Tree[A] {
	c := t.clone()
	switch n := c.(type) {
	case *Select[A]:
		n.Qualifier = f(n.Qualifier)
	case *Apply[A]:
		n.Fun = f(n.Fun)
		n.Args = mapAll(n.Args, f)
	case *TypeApply[A]:
		n.Fun = f(n.Fun)
		n.Args = mapAll(n.Args, f)
	case *New[A]:
		n.Tpt = f(n.Tpt)
	case *Ascription[A]:
		n.Expr = f(n.Expr)
		n.Tpt = f(n.Tpt)
	case *Assign[A]:
		n.Lhs = f(n.Lhs)
		n.Rhs = f(n.Rhs)
	case *Block[A]:
		n.Stats = mapAll(n.Stats, f)
		n.Expr = mapOpt(n.Expr, f)
	case *If[A]:
		n.Cond = f(n.Cond)
		n.Then = f(n.Then)
		n.Else = mapOpt(n.Else, f)
	case *Function[A]:
		n.Params = mapValDefs(n.Params, f)
		n.Body = f(n.Body)
	case *Match[A]:
		n.Selector = f(n.Selector)
		cases := make([]*CaseDef[A], len(n.Cases))
		for i, cd := range n.Cases {
			cases[i] = f(cd).(*CaseDef[A])
		}
		n.Cases = cases
	case *CaseDef[A]:
		n.Pat = f(n.Pat)
		n.Guard = mapOpt(n.Guard, f)
		n.Body = f(n.Body)
	case *Alternative[A]:
		n.Trees = mapAll(n.Trees, f)
	case *Bind[A]:
		n.Body = f(n.Body)
	case *Return[A]:
		n.Expr = mapOpt(n.Expr, f)
	case *ValDef[A]:
		n.Tpt = mapOpt(n.Tpt, f)
		n.Rhs = mapOpt(n.Rhs, f)
	case *DefDef[A]:
		n.TypeParams = mapTypeDefs(n.TypeParams, f)
		lists := make([][]*ValDef[A], len(n.ParamLists))
		for i, ps := range n.ParamLists {
			lists[i] = mapValDefs(ps, f)
		}
		n.ParamLists = lists
		n.Tpt = mapOpt(n.Tpt, f)
		n.Rhs = mapOpt(n.Rhs, f)
	case *TypeDef[A]:
		n.TypeParams = mapTypeDefs(n.TypeParams, f)
		n.Rhs = mapOpt(n.Rhs, f)
	case *ClassDef[A]:
		n.TypeParams = mapTypeDefs(n.TypeParams, f)
		n.Params = mapValDefs(n.Params, f)
		n.Parents = mapAll(n.Parents, f)
		n.Body = mapAll(n.Body, f)
	case *ModuleDef[A]:
		n.Parents = mapAll(n.Parents, f)
		n.Body = mapAll(n.Body, f)
	case *Import[A]:
		n.Expr = f(n.Expr)
	case *PackageDef[A]:
		n.Stats = mapAll(n.Stats, f)
	case *TypeSelect[A]:
		n.Qualifier = f(n.Qualifier)
	case *AppliedTypeTree[A]:
		n.Tpt = f(n.Tpt)
		n.Args = mapAll(n.Args, f)
	case *FunctionTypeTree[A]:
		n.Params = mapAll(n.Params, f)
		n.Result = f(n.Result)
	case *TypeBoundsTree[A]:
		n.Lo = mapOpt(n.Lo, f)
		n.Hi = mapOpt(n.Hi, f)
	case *InfixOp[A]:
		n.Left = f(n.Left)
		n.Right = f(n.Right)
	case *PrefixOp[A]:
		n.Operand = f(n.Operand)
	case *Parens[A]:
		n.Exprs = mapAll(n.Exprs, f)
	}
	return c
}
