package typer

import (
	"github.com/hashicorp/go-set/v3"

	"github.com/funvibe/typer/internal/ast"
	"github.com/funvibe/typer/internal/symbols"
	"github.com/funvibe/typer/internal/token"
	"github.com/funvibe/typer/internal/typesystem"
)

// ImplicitSearch finds implicit arguments and implicit views. The typer
// consults it during adaptation; a failed search is an ordinary adaptation
// failure.
type ImplicitSearch interface {
	// Search finds a value conforming to pt.
	Search(ctx *Context, pt typesystem.Type, pos token.Position) (ast.Tree[ast.Typed], bool)
	// View converts tree to a value conforming to pt.
	View(ctx *Context, tree ast.Tree[ast.Typed], pt typesystem.Type) (ast.Tree[ast.Typed], bool)
}

// contextualSearch looks for implicit definitions in the enclosing scopes
// and in what imports bring into scope, innermost first.
type contextualSearch struct {
	typer *Typer
}

func (s *contextualSearch) eligible(ctx *Context) []*symbols.Symbol {
	t := s.typer
	seen := set.New[int](8)
	var out []*symbols.Symbol
	add := func(syms []*symbols.Symbol) {
		for _, sym := range syms {
			if sym == nil || !sym.Flags.Has(symbols.Implicit) {
				continue
			}
			if seen.Insert(sym.ID) {
				out = append(out, sym)
			}
		}
	}
	for c := ctx; c != nil; c = c.outer {
		if c.isNewScope() && c.Scope != nil {
			add(c.Scope.Symbols())
			continue
		}
		if !c.isNewImport() {
			continue
		}
		imp := c.Import
		site := t.importSite(imp)
		if typesystem.IsError(site) {
			continue
		}
		cls := t.table.MemberClass(t.env(ctx), site)
		if cls == nil || cls.Decls == nil {
			continue
		}
		for _, m := range cls.Decls.Symbols() {
			if m.IsPrivate() {
				continue
			}
			if imp.hasWildcard() && !imp.mentions(m.Name.Str) || importsByName(imp, m.Name.Str) {
				add([]*symbols.Symbol{m})
			}
		}
	}
	return out
}

func importsByName(imp *ImportInfo, name string) bool {
	for _, sel := range imp.Selectors {
		if !sel.Wildcard && !sel.IsExclusion() && sel.Name == name {
			return true
		}
	}
	return false
}

// implicitValueType is the type of a reference to an implicit value, or nil
// when sym needs explicit arguments.
func implicitValueType(sym *symbols.Symbol) typesystem.Type {
	info, err := sym.Info()
	if err != nil {
		return nil
	}
	switch m := info.(type) {
	case typesystem.TExpr:
		return m.ReturnType
	case typesystem.TMethod, typesystem.TForall:
		return nil
	}
	return info
}

func (s *contextualSearch) Search(ctx *Context, pt typesystem.Type, pos token.Position) (ast.Tree[ast.Typed], bool) {
	t := s.typer
	env := t.env(ctx)
	for _, sym := range s.eligible(ctx) {
		tp := implicitValueType(sym)
		if tp == nil || !env.Conforms(tp, pt) {
			continue
		}
		env.IsSubtype(tp, pt)
		t.tracef("implicit %s found for %s at %s", sym.Name, pt, pos)
		return &ast.Ident[ast.Typed]{Node: t.synthetic(pos, tp, sym), Name: sym.Name.Str}, true
	}
	return nil, false
}

func (s *contextualSearch) View(ctx *Context, tree ast.Tree[ast.Typed], pt typesystem.Type) (ast.Tree[ast.Typed], bool) {
	t := s.typer
	env := t.env(ctx)
	from := typesystem.Widen(ast.TypeOf(tree))
	pos := ast.PosOf(tree)
	for _, sym := range s.eligible(ctx) {
		info, err := sym.Info()
		if err != nil {
			continue
		}
		var param, result typesystem.Type
		switch m := info.(type) {
		case typesystem.TMethod:
			if m.Implicit || len(m.Params) != 1 {
				continue
			}
			param, result = m.Params[0], m.ReturnType
		case typesystem.TFunc:
			if len(m.Params) != 1 {
				continue
			}
			param, result = m.Params[0], m.ReturnType
		default:
			continue
		}
		if _, curried := result.(typesystem.TMethod); curried {
			continue
		}
		if !env.Conforms(from, param) || !env.Conforms(result, pt) {
			continue
		}
		env.IsSubtype(from, param)
		env.IsSubtype(result, pt)
		fun := &ast.Ident[ast.Typed]{Node: t.synthetic(pos, info, sym), Name: sym.Name.Str}
		return &ast.Apply[ast.Typed]{
			Node: t.synthetic(pos, result, sym),
			Fun:  fun,
			Args: []ast.Tree[ast.Typed]{tree},
		}, true
	}
	return nil, false
}
