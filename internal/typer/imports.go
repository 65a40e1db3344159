package typer

import (
	"strings"

	"github.com/funvibe/typer/internal/ast"
	"github.com/funvibe/typer/internal/config"
	"github.com/funvibe/typer/internal/diagnostics"
	"github.com/funvibe/typer/internal/symbols"
	"github.com/funvibe/typer/internal/typesystem"
)

// ImportInfo is one import clause as seen by name resolution. The site of a
// statement import is typed lazily, the first time a lookup consults it.
type ImportInfo struct {
	Qualifier string
	Selectors []ast.ImportSelector
	IsRoot    bool

	tree      *ast.Import[ast.Untyped]
	ctx       *Context
	done      bool
	computing bool
	site      typesystem.Type
	typedExpr ast.Tree[ast.Typed]
	diags     []*diagnostics.DiagnosticError
}

func (t *Typer) rootImport(qualifier string) *ImportInfo {
	return &ImportInfo{
		Qualifier: qualifier,
		Selectors: []ast.ImportSelector{{Wildcard: true}},
		IsRoot:    true,
	}
}

func (t *Typer) newImport(tree *ast.Import[ast.Untyped], ctx *Context) *ImportInfo {
	if v, ok := ctx.State.Memo(importKey(tree.ID)); ok {
		return v.(*ImportInfo)
	}
	imp := &ImportInfo{
		Qualifier: pathString(tree.Expr),
		Selectors: tree.Selectors,
		tree:      tree,
		ctx:       ctx,
	}
	ctx.State.SetMemo(importKey(tree.ID), imp)
	return imp
}

// pathString renders a stable path such as a.b.C.
func pathString(tree ast.Tree[ast.Untyped]) string {
	switch n := tree.(type) {
	case *ast.Ident[ast.Untyped]:
		return n.Name
	case *ast.Select[ast.Untyped]:
		return pathString(n.Qualifier) + "." + n.Name
	case *ast.This[ast.Untyped]:
		return "this"
	}
	return "?"
}

func (imp *ImportInfo) hasWildcard() bool {
	for _, s := range imp.Selectors {
		if s.Wildcard {
			return true
		}
	}
	return false
}

// mentions reports whether a non-wildcard selector names name, which hides
// it from the wildcard.
func (imp *ImportInfo) mentions(name string) bool {
	for _, s := range imp.Selectors {
		if !s.Wildcard && s.Name == name {
			return true
		}
	}
	return false
}

// site returns the type whose members the import brings into scope.
func (t *Typer) importSite(imp *ImportInfo) typesystem.Type {
	if imp.done {
		return imp.site
	}
	if imp.computing {
		return typesystem.TError{}
	}
	imp.computing = true
	defer func() { imp.computing = false }()

	if imp.IsRoot {
		imp.site = t.rootImportSite(imp.Qualifier)
		imp.done = true
		return imp.site
	}

	state := imp.ctx.State.Detached()
	ctx := imp.ctx.WithState(state)
	expr := t.Typed(imp.tree.Expr, typesystem.AnyProto, ctx)
	site := ast.TypeOf(expr)
	if sym := ast.SymOf(expr); !typesystem.IsError(site) && (sym == nil || !sym.IsStable()) {
		t.errorf(ctx, diagnostics.ErrT008, ast.PosOf(imp.tree.Expr), "stable identifier required, but %s found", imp.Qualifier)
		site = typesystem.TError{}
	}
	if !typesystem.IsError(site) {
		env := t.env(ctx)
		for _, s := range imp.Selectors {
			if s.Wildcard {
				continue
			}
			if !t.table.Member(env, site, symbols.TermName(s.Name)).Exists() &&
				!t.table.Member(env, site, symbols.TypeName(s.Name)).Exists() {
				t.errorf(ctx, diagnostics.ErrT001, imp.tree.Pos, "%s is not a member of %s", s.Name, imp.Qualifier)
			}
		}
	}
	imp.site = site
	imp.typedExpr = expr
	imp.diags = state.Errors()
	imp.done = true
	return site
}

func (t *Typer) rootImportSite(qualifier string) typesystem.Type {
	var site typesystem.Type = t.table.Root.TermRef()
	for _, part := range strings.Split(qualifier, ".") {
		d := t.table.Member(nil, site, symbols.TermName(part))
		if !d.Exists() || d.IsOverloaded() || d.Single().Sym == nil {
			return typesystem.TError{}
		}
		site = d.Single().Sym.TermRef()
	}
	return site
}

// importedDenot is what imp binds to name: through a named selector, or
// through the wildcard when wildcard is set.
func (t *Typer) importedDenot(ctx *Context, imp *ImportInfo, name symbols.Name, wildcard bool) symbols.Denotation {
	site := t.importSite(imp)
	if typesystem.IsError(site) {
		return symbols.NoDenotation
	}
	env := t.env(ctx)
	if !wildcard {
		for _, s := range imp.Selectors {
			if s.Wildcard || s.IsExclusion() || s.Imported() != name.Str {
				continue
			}
			return visibleMembers(t.table.Member(env, site, symbols.Name{Str: s.Name, IsType: name.IsType}))
		}
		return symbols.NoDenotation
	}
	if !imp.hasWildcard() || imp.mentions(name.Str) {
		return symbols.NoDenotation
	}
	return visibleMembers(t.table.Member(env, site, name))
}

// visibleMembers drops what an import never brings into scope.
func visibleMembers(d symbols.Denotation) symbols.Denotation {
	return d.Filter(func(a symbols.SingleDenotation) bool {
		if a.Sym == nil {
			return true
		}
		return !a.Sym.IsPrivate() && !a.Sym.IsConstructor() && a.Sym.Name.Str != config.ConstructorName
	})
}

// typedImport is the typed statement of an import. Diagnostics of its
// qualifier are reported here, where the import takes effect.
func (t *Typer) typedImport(tree *ast.Import[ast.Untyped], ctx *Context) ast.Tree[ast.Typed] {
	imp := t.newImport(tree, ctx)
	t.importSite(imp)
	ctx.State.Replay(imp.diags)
	expr := imp.typedExpr
	if expr == nil {
		expr = errorTree(tree.Expr)
	}
	return &ast.Import[ast.Typed]{
		Node:      node(tree, typesystem.TNone{}, nil),
		Expr:      expr,
		Selectors: tree.Selectors,
	}
}
