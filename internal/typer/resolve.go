package typer

import (
	"github.com/hashicorp/go-set/v3"

	"github.com/funvibe/typer/internal/diagnostics"
	"github.com/funvibe/typer/internal/symbols"
	"github.com/funvibe/typer/internal/token"
	"github.com/funvibe/typer/internal/typesystem"
)

// Precedence tiers of a binding, highest wins.
const (
	tierNone = iota
	tierPackage
	tierWildcard
	tierNamed
	tierDefinition
)

// binding is a candidate meaning of a name found on one link of the chain.
type binding struct {
	denot symbols.Denotation
	tier  int
	scope *symbols.Scope // scope of the link it was found on
	imp   *ImportInfo
}

func (b binding) exists() bool { return b.denot.Exists() }

// resolution is the outcome of one identifier resolution. conflict is set
// when two bindings of the best tier in one scope disagree.
type resolution struct {
	best     binding
	conflict *binding
}

// resolve walks the context chain outward and returns the highest-precedence
// binding of name. It reports nothing.
func (t *Typer) resolve(ctx *Context, name symbols.Name) resolution {
	var res resolution
	rootSeen := set.New[string](2)

	offer := func(b binding) {
		if !b.exists() {
			return
		}
		switch {
		case b.tier > res.best.tier:
			res.best = b
			res.conflict = nil
		case b.tier < res.best.tier:
		case sameSymbols(b.denot, res.best.denot):
		case b.scope == res.best.scope && res.conflict == nil:
			res.conflict = &b
		}
	}

	for c := ctx; c != nil && res.best.tier < tierDefinition; c = c.outer {
		if c.isNewScope() && c.Scope != nil {
			d, tier := t.lookupIn(ctx, c, name)
			offer(binding{denot: d, tier: tier, scope: c.Scope})
			continue
		}
		if !c.isNewImport() {
			continue
		}
		imp := c.Import
		if imp.IsRoot {
			if res.best.tier > tierNone || rootSeen.Contains(imp.Qualifier) {
				continue
			}
			rootSeen.Insert(imp.Qualifier)
			offer(binding{denot: t.importedDenot(ctx, imp, name, true), tier: tierPackage, scope: c.Scope, imp: imp})
			continue
		}
		if res.best.tier <= tierNamed {
			named := t.importedDenot(ctx, imp, name, false)
			if named.Exists() {
				offer(binding{denot: named, tier: tierNamed, scope: c.Scope, imp: imp})
				continue
			}
		}
		if imp.hasWildcard() {
			rootSeen.Insert(imp.Qualifier)
			if res.best.tier <= tierWildcard {
				offer(binding{denot: t.importedDenot(ctx, imp, name, true), tier: tierWildcard, scope: c.Scope, imp: imp})
			}
		}
	}
	return res
}

// lookupIn queries the declarations a link introduces.
func (t *Typer) lookupIn(ctx, c *Context, name symbols.Name) (symbols.Denotation, int) {
	owner := scopeOwner(c)
	if owner == nil {
		return t.table.Lookup(c.Scope, name), tierDefinition
	}
	switch {
	case owner.IsClass():
		return t.table.Member(t.env(ctx), owner.ThisType(), name), tierDefinition
	case owner.IsModule():
		return t.table.Member(t.env(ctx), owner.TermRef(), name), tierDefinition
	}
	d := t.table.Lookup(c.Scope, name)
	if !d.Exists() {
		return d, tierNone
	}
	local := d.Filter(func(a symbols.SingleDenotation) bool { return a.Sym.Unit == ctx.Unit })
	if local.Exists() {
		return local, tierDefinition
	}
	return d, tierPackage
}

// scopeOwner returns the package, module or class whose member scope the
// link shows, nil for local scopes.
func scopeOwner(c *Context) *symbols.Symbol {
	for o := c.Owner; o != nil; o = o.Owner {
		if o.Decls != nil && o.Decls == c.Scope {
			return o
		}
	}
	return nil
}

func sameSymbols(a, b symbols.Denotation) bool {
	as, bs := a.Symbols(), b.Symbols()
	if len(as) != len(bs) {
		return false
	}
	for _, s := range as {
		found := false
		for _, o := range bs {
			if s == o {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// findRef resolves name and reports what is wrong with the result. The
// returned denotation is empty when nothing usable was found.
func (t *Typer) findRef(ctx *Context, name symbols.Name, pos token.Position) symbols.Denotation {
	res := t.resolve(ctx, name)
	if !res.best.exists() {
		kind := "value"
		if name.IsType {
			kind = "type"
		}
		t.errorf(ctx, diagnostics.ErrT001, pos, "not found: %s %s", kind, name.Str)
		return symbols.NoDenotation
	}
	if res.conflict != nil {
		t.errorf(ctx, diagnostics.ErrT002, pos, "reference to %s is ambiguous; it is both %s and %s",
			name.Str, bindingOrigin(res.best), bindingOrigin(*res.conflict))
		return symbols.NoDenotation
	}
	d := res.best.denot
	for _, a := range d.Alts {
		if a.Err != nil {
			t.reportCompletion(ctx, a.Sym, a.Err, pos)
			return symbols.NoDenotation
		}
	}
	if !d.IsOverloaded() {
		if sym := d.Single().Sym; sym != nil && !t.isAccessible(ctx, sym) {
			t.errorf(ctx, diagnostics.ErrT004, pos, "%s %s cannot be accessed from %s", sym.Kind, sym.Name, ctx.Owner.Name)
			return symbols.NoDenotation
		}
	}
	return d
}

func bindingOrigin(b binding) string {
	switch b.tier {
	case tierNamed:
		return "imported by import " + b.imp.Qualifier + "." + b.denot.Single().Sym.Name.Str
	case tierWildcard:
		return "imported by import " + b.imp.Qualifier + "._"
	case tierPackage:
		return "defined in another unit"
	}
	return "defined in an enclosing scope"
}

func (t *Typer) isAccessible(ctx *Context, sym *symbols.Symbol) bool {
	if !sym.IsPrivate() || sym.Owner == nil {
		return true
	}
	return ctx.Owner != nil && ctx.Owner.IsContainedIn(sym.Owner)
}

// reportCompletion turns a failed completion into a diagnostic.
func (t *Typer) reportCompletion(ctx *Context, sym *symbols.Symbol, err error, pos token.Position) {
	if !symbols.IsCyclic(err) {
		t.errorf(ctx, diagnostics.ErrT000, pos, "%v", err)
		return
	}
	switch {
	case sym == nil:
		t.errorf(ctx, diagnostics.ErrT008, pos, "cyclic reference")
	case sym.IsMethod():
		t.errorf(ctx, diagnostics.ErrT008, pos, "recursive method %s needs result type", sym.Name)
	case sym.Kind == symbols.ValueSymbol:
		t.errorf(ctx, diagnostics.ErrT008, pos, "recursive value %s needs type", sym.Name)
	default:
		t.errorf(ctx, diagnostics.ErrT008, pos, "cyclic reference involving %s", sym.Name)
	}
}

// refType is the type of a reference to one alternative: packages and
// modules are singletons, everything else has its info.
func refType(a symbols.SingleDenotation) typesystem.Type {
	if a.Sym != nil && (a.Sym.IsPackage() || a.Sym.IsModule()) {
		return a.Sym.TermRef()
	}
	return a.Info
}
