package desugar

import (
	"strings"

	"github.com/funvibe/typer/internal/ast"
	"github.com/funvibe/typer/internal/config"
	"github.com/funvibe/typer/internal/typesystem"
)

// Desugarer rewrites sugar shapes into core shapes, one level at a time:
// the children of the result are left as they are and get desugared when
// the typer reaches them.
type Desugarer struct {
	ids *ast.IDGen
}

func New(ids *ast.IDGen) *Desugarer {
	return &Desugarer{ids: ids}
}

// Desugar returns the core form of t, or false if t has no core form.
func (d *Desugarer) Desugar(t ast.Tree[ast.Untyped]) (ast.Tree[ast.Untyped], bool) {
	switch n := t.(type) {
	case *ast.InfixOp[ast.Untyped]:
		recv, arg := n.Left, n.Right
		if IsRightAssoc(n.Op) {
			recv, arg = arg, recv
		}
		sel := &ast.Select[ast.Untyped]{Node: d.node(t), Qualifier: recv, Name: n.Op}
		return &ast.Apply[ast.Untyped]{Node: n.Node, Fun: sel, Args: []ast.Tree[ast.Untyped]{arg}}, true

	case *ast.PrefixOp[ast.Untyped]:
		return &ast.Select[ast.Untyped]{Node: n.Node, Qualifier: n.Operand, Name: config.UnaryPrefix + n.Op}, true

	case *ast.Parens[ast.Untyped]:
		switch len(n.Exprs) {
		case 0:
			return &ast.Literal[ast.Untyped]{Node: n.Node, Value: typesystem.UnitConst()}, true
		case 1:
			return n.Exprs[0], true
		}
	}
	return nil, false
}

// IsRightAssoc reports whether an operator binds to its right operand (ends in ':').
func IsRightAssoc(op string) bool {
	return strings.HasSuffix(op, ":")
}

func (d *Desugarer) node(src ast.Tree[ast.Untyped]) ast.Node[ast.Untyped] {
	return ast.Node[ast.Untyped]{ID: d.ids.Next(), Pos: ast.PosOf(src)}
}
