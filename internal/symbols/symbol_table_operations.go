package symbols

import (
	"github.com/funvibe/typer/internal/config"
	"github.com/funvibe/typer/internal/token"
	"github.com/funvibe/typer/internal/typesystem"
)

// Table owns every symbol of a run: the root package, the prelude and all
// symbols entered while typing.
type Table struct {
	nextID int

	Root   *Symbol
	Lang   *Symbol
	Predef *Symbol

	builtins map[string]*Symbol // full name -> class symbol of the prelude
	packages map[string]*Symbol // full name -> package symbol
}

// NewTable creates a table with the root package and the prelude.
func NewTable() *Table {
	t := &Table{
		builtins: make(map[string]*Symbol),
		packages: make(map[string]*Symbol),
	}
	t.Root = t.NewSymbol(TermName(config.RootPackage), PackageSymbol, Stable, nil, "", token.Position{})
	t.Root.Decls = NewScope()
	t.Root.SetInfo(t.Root.TermRef())
	t.initPrelude()
	return t
}

// NewSymbol creates a symbol with a fresh ID. It is not entered anywhere.
func (t *Table) NewSymbol(name Name, kind SymbolKind, flags Flags, owner *Symbol, unit string, pos token.Position) *Symbol {
	t.nextID++
	sym := &Symbol{
		ID:    t.nextID,
		Name:  name,
		Kind:  kind,
		Flags: flags,
		Owner: owner,
		Unit:  unit,
		Pos:   pos,
	}
	if sym.HasMembers() {
		sym.Decls = NewScope()
	}
	return sym
}

// Enter creates a symbol and enters it into the member scope of its owner.
func (t *Table) Enter(name Name, kind SymbolKind, flags Flags, owner *Symbol, unit string, pos token.Position) *Symbol {
	sym := t.NewSymbol(name, kind, flags, owner, unit, pos)
	if owner != nil && owner.Decls != nil {
		owner.Decls.Enter(sym)
	}
	return sym
}

// EnterPackage returns the package with the given path, creating missing
// packages along the way.
func (t *Table) EnterPackage(path []string) *Symbol {
	owner := t.Root
	full := ""
	for _, part := range path {
		if full == "" {
			full = part
		} else {
			full += "." + part
		}
		if pkg, ok := t.packages[full]; ok {
			owner = pkg
			continue
		}
		pkg := t.Enter(TermName(part), PackageSymbol, Stable, owner, "", token.Position{})
		pkg.SetInfo(pkg.TermRef())
		t.packages[full] = pkg
		owner = pkg
	}
	return owner
}

// Package returns an existing package by full name.
func (t *Table) Package(fullName string) (*Symbol, bool) {
	if fullName == "" {
		return t.Root, true
	}
	pkg, ok := t.packages[fullName]
	return pkg, ok
}

// Builtin returns a prelude class by simple name, e.g. "Int".
func (t *Table) Builtin(name string) *Symbol {
	return t.builtins[config.QualifiedBuiltin(name)]
}

// BuiltinType returns the type reference of a prelude class.
func (t *Table) BuiltinType(name string) typesystem.TCon {
	if sym := t.Builtin(name); sym != nil {
		return sym.TypeRef()
	}
	return typesystem.Builtin(name)
}

// symbolOf maps a designator back to its symbol. Designators created by
// typesystem.Builtin are looked up by full name.
func (t *Table) symbolOf(ref typesystem.Designator) *Symbol {
	if ref == nil {
		return nil
	}
	if sym, ok := ref.(*Symbol); ok {
		return sym
	}
	if sym, ok := t.builtins[ref.FullName()]; ok {
		return sym
	}
	return nil
}

// SymbolOf is the exported form of symbolOf.
func (t *Table) SymbolOf(ref typesystem.Designator) *Symbol {
	return t.symbolOf(ref)
}
