package typer

import (
	"github.com/funvibe/typer/internal/ast"
	"github.com/funvibe/typer/internal/typesystem"
)

// interpolate instantiates the type variables created since mark and
// substitutes every known instance into tree.
func (t *Typer) interpolate(tree ast.Tree[ast.Typed], ctx *Context, mark int) ast.Tree[ast.Typed] {
	c := ctx.State.Constraints()
	for _, v := range c.UninstantiatedSince(mark) {
		t.instantiateVar(ctx, v)
	}
	if tree == nil {
		return nil
	}
	sol := c.Solution()
	if len(sol) == 0 {
		return tree
	}
	return ast.MapTypes(tree, func(tp typesystem.Type) typesystem.Type {
		if tp == nil {
			return nil
		}
		return tp.Apply(sol)
	})
}

// instantiateVar picks an instance within the bounds of v: the widened lower
// bound if it still fits, else the lower bound, else the upper bound, else Nothing.
func (t *Typer) instantiateVar(ctx *Context, v typesystem.TVar) {
	c := ctx.State.Constraints()
	if _, ok := c.Instance(v); ok {
		return
	}
	env := t.env(ctx)
	b := c.Bounds(v)
	var inst typesystem.Type
	switch {
	case b.Lo != nil:
		inst = typesystem.Widen(b.Lo)
		if b.Hi != nil && !env.Conforms(inst, b.Hi) {
			inst = b.Lo
		}
	case b.Hi != nil:
		inst = b.Hi
	default:
		inst = t.nothingType()
	}
	if typesystem.Occurring(inst).Contains(v.ID) {
		inst = t.nothingType()
	}
	c.Instantiate(v, inst)
}
