package typer

import (
	"github.com/funvibe/typer/internal/ast"
	"github.com/funvibe/typer/internal/diagnostics"
	"github.com/funvibe/typer/internal/symbols"
	"github.com/funvibe/typer/internal/token"
	"github.com/funvibe/typer/internal/typesystem"
)

func (t *Typer) errorf(ctx *Context, code diagnostics.ErrorCode, pos token.Position, format string, args ...interface{}) {
	ctx.State.Report(diagnostics.NewErrorf(code, pos, format, args...))
}

// errorTree is the typed placeholder of a tree that failed to type check.
func errorTree(src ast.Tree[ast.Untyped]) ast.Tree[ast.Typed] {
	return &ast.ErrorTree[ast.Typed]{Node: node(src, typesystem.TError{}, nil)}
}

// node is the typed header of a node typed from src.
func node(src ast.Tree[ast.Untyped], tp typesystem.Type, sym *symbols.Symbol) ast.Node[ast.Typed] {
	return ast.TypedFrom(src, tp, sym)
}

// synthetic is the header of a node the typer inserts, positioned at at.
func (t *Typer) synthetic(at token.Position, tp typesystem.Type, sym *symbols.Symbol) ast.Node[ast.Typed] {
	return ast.Node[ast.Typed]{ID: t.ids.Next(), Pos: at, Ann: ast.Typed{Type: tp, Sym: sym}}
}

// untyped is the header of an untyped node the typer builds for retyping.
func (t *Typer) untyped(at token.Position) ast.Node[ast.Untyped] {
	return ast.Node[ast.Untyped]{ID: t.ids.Next(), Pos: at}
}

// withError keeps the shape of tree and gives it the error type.
func withError(tree ast.Tree[ast.Typed]) ast.Tree[ast.Typed] {
	return ast.WithType(tree, typesystem.TError{})
}

func hasErrorType(tree ast.Tree[ast.Typed]) bool {
	return typesystem.IsError(ast.TypeOf(tree))
}

// show prints a type for a diagnostic, with solved variables replaced.
func (t *Typer) show(ctx *Context, tp typesystem.Type) string {
	if tp == nil {
		return "<notype>"
	}
	return tp.Apply(ctx.State.Constraints().Solution()).String()
}
