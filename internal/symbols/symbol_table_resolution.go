package symbols

import (
	"github.com/funvibe/typer/internal/config"
	"github.com/funvibe/typer/internal/typesystem"
)

// SingleDenotation is one symbol with its type as seen from a site.
type SingleDenotation struct {
	Sym  *Symbol
	Info typesystem.Type
	Err  error // completion failure, Info is TError then
}

// Denotation is the meaning of a name at a site: nothing, one symbol or
// several overloaded alternatives.
type Denotation struct {
	Alts []SingleDenotation
}

// NoDenotation is the result of a failed lookup.
var NoDenotation = Denotation{}

func (d Denotation) Exists() bool       { return len(d.Alts) > 0 }
func (d Denotation) IsOverloaded() bool { return len(d.Alts) > 1 }

// Single returns the only alternative. Callers check IsOverloaded first.
func (d Denotation) Single() SingleDenotation {
	if len(d.Alts) == 0 {
		return SingleDenotation{}
	}
	return d.Alts[0]
}

// Symbols returns the symbols of all alternatives.
func (d Denotation) Symbols() []*Symbol {
	syms := make([]*Symbol, len(d.Alts))
	for i, a := range d.Alts {
		syms[i] = a.Sym
	}
	return syms
}

// Filter keeps the alternatives satisfying keep.
func (d Denotation) Filter(keep func(SingleDenotation) bool) Denotation {
	var alts []SingleDenotation
	for _, a := range d.Alts {
		if keep(a) {
			alts = append(alts, a)
		}
	}
	return Denotation{Alts: alts}
}

// Type is the reference type of the denotation: an overloaded reference
// for several alternatives, the single alternative's info otherwise.
func (d Denotation) Type(name string) typesystem.Type {
	switch len(d.Alts) {
	case 0:
		return typesystem.TError{}
	case 1:
		return d.Alts[0].Info
	}
	alts := make([]typesystem.Alternative, len(d.Alts))
	for i, a := range d.Alts {
		alts[i] = typesystem.Alternative{Ref: a.Sym, Info: a.Info}
	}
	return typesystem.TOverloaded{Name: name, Alts: alts}
}

func denot(sym *Symbol, subst typesystem.Subst) SingleDenotation {
	info, err := sym.Info()
	if err == nil && len(subst) > 0 {
		info = info.Apply(subst)
	}
	return SingleDenotation{Sym: sym, Info: info, Err: err}
}

// Lookup finds the declarations named name in scope.
func (t *Table) Lookup(scope *Scope, name Name) Denotation {
	syms := scope.Lookup(name)
	if len(syms) == 0 {
		return NoDenotation
	}
	alts := make([]SingleDenotation, 0, len(syms))
	for _, s := range syms {
		alts = append(alts, denot(s, nil))
	}
	return Denotation{Alts: alts}
}

// Member finds the members named name of site, inherited ones included.
// Member types are seen from site: class type parameters are replaced by
// the site's type arguments. A member overridden with the same signature
// shows up once.
func (t *Table) Member(env *typesystem.Env, site typesystem.Type, name Name) Denotation {
	var alts []SingleDenotation
	t.collectMembers(env, site, name, &alts, 0)
	return Denotation{Alts: alts}
}

// MemberClass returns the class or module whose members a site exposes.
func (t *Table) MemberClass(env *typesystem.Env, site typesystem.Type) *Symbol {
	switch s := site.(type) {
	case typesystem.TTermRef:
		if sym := t.symbolOf(s.Ref); sym != nil && sym.HasMembers() {
			return sym
		}
		if s.Underlying != nil {
			return t.MemberClass(env, s.Underlying)
		}
	case typesystem.TCon:
		return t.symbolOf(s.Ref)
	case typesystem.TApp:
		return t.symbolOf(s.Constructor.Ref)
	case typesystem.TThis:
		return t.symbolOf(s.Class)
	}
	return nil
}

const maxMemberDepth = 32

func (t *Table) collectMembers(env *typesystem.Env, site typesystem.Type, name Name, alts *[]SingleDenotation, depth int) {
	if depth > maxMemberDepth || site == nil {
		return
	}
	switch s := site.(type) {
	case typesystem.TTermRef:
		sym := t.symbolOf(s.Ref)
		if sym != nil && (sym.IsPackage() || sym.IsModule()) {
			t.addMembers(sym, nil, name, alts)
			for _, p := range sym.Parents {
				t.collectMembers(env, p, name, alts, depth+1)
			}
			return
		}
		t.collectMembers(env, s.Underlying, name, alts, depth+1)
	case typesystem.TCon, typesystem.TApp:
		con, args, _ := typesystem.ClassOf(s)
		cls := t.symbolOf(con.Ref)
		if cls == nil {
			return
		}
		if cls.IsModule() || cls.IsPackage() {
			t.collectMembers(env, cls.TermRef(), name, alts, depth+1)
			return
		}
		subst := typesystem.Subst{}
		for i, p := range cls.TypeParams {
			if i < len(args) {
				subst[p.ParamRef().Key()] = args[i]
			}
		}
		t.addMembers(cls, subst, name, alts)
		for _, p := range t.ClassParents(cls) {
			t.collectMembers(env, p.Apply(subst), name, alts, depth+1)
		}
	case typesystem.TThis:
		t.collectMembers(env, s.Self, name, alts, depth+1)
	case typesystem.TSuper:
		t.collectMembers(env, s.Super, name, alts, depth+1)
	case typesystem.TConst:
		t.collectMembers(env, s.Underlying, name, alts, depth+1)
	case typesystem.TAnnotated:
		t.collectMembers(env, s.Type, name, alts, depth+1)
	case typesystem.TExpr:
		t.collectMembers(env, s.ReturnType, name, alts, depth+1)
	case typesystem.TRefined:
		if s.Name == name.Str {
			*alts = append(*alts, SingleDenotation{Info: s.Info})
			return
		}
		t.collectMembers(env, s.Parent, name, alts, depth+1)
	case typesystem.TAnd:
		for _, p := range s.Types {
			t.collectMembers(env, p, name, alts, depth+1)
		}
	case typesystem.TParam:
		var hi typesystem.Type
		if env != nil && env.Gadt != nil {
			_, hi, _ = env.Gadt.Bounds(s)
		}
		if hi == nil {
			if sym := t.symbolOf(s.Ref); sym != nil {
				hi = sym.Hi
			}
		}
		if hi == nil {
			hi = t.BuiltinType(config.AnyTypeName)
		}
		t.collectMembers(env, hi, name, alts, depth+1)
	case typesystem.TVar:
		if env == nil || env.Constraints == nil {
			return
		}
		if inst, ok := env.Constraints.Instance(s); ok {
			t.collectMembers(env, inst, name, alts, depth+1)
			return
		}
		b := env.Constraints.Bounds(s)
		if b.Hi != nil {
			t.collectMembers(env, b.Hi, name, alts, depth+1)
		} else if b.Lo != nil {
			t.collectMembers(env, typesystem.Widen(b.Lo), name, alts, depth+1)
		}
	}
}

func (t *Table) addMembers(owner *Symbol, subst typesystem.Subst, name Name, alts *[]SingleDenotation) {
outer:
	for _, sym := range owner.Decls.Lookup(name) {
		d := denot(sym, subst)
		for _, existing := range *alts {
			if existing.Sym == sym {
				continue outer
			}
			// overridden in a subclass with the same signature
			if existing.Sym != nil && d.Err == nil && sameSignature(existing.Info, d.Info) {
				continue outer
			}
		}
		*alts = append(*alts, d)
	}
}

func sameSignature(a, b typesystem.Type) bool {
	ma, okA := a.(typesystem.TMethod)
	mb, okB := b.(typesystem.TMethod)
	if okA && okB {
		if len(ma.Params) != len(mb.Params) {
			return false
		}
		for i := range ma.Params {
			if !typesystem.Equal(ma.Params[i], mb.Params[i]) {
				return false
			}
		}
		return true
	}
	if okA || okB {
		return false
	}
	_, polyA := a.(typesystem.TForall)
	_, polyB := b.(typesystem.TForall)
	if polyA || polyB {
		return typesystem.Equal(a, b)
	}
	// two non-method members (vals, parameterless defs) always override
	return true
}

// Complete forces the info of sym.
func (t *Table) Complete(sym *Symbol) (typesystem.Type, error) {
	return sym.Info()
}

// ClassParents implements typesystem.Resolver.
func (t *Table) ClassParents(ref typesystem.Designator) []typesystem.Type {
	sym := t.symbolOf(ref)
	if sym == nil {
		return nil
	}
	if sym.Kind == TypeAliasSymbol && sym.Hi != nil {
		return []typesystem.Type{sym.Hi}
	}
	if len(sym.Parents) == 0 && sym.Kind == ClassSymbol && !t.isRootClass(sym) {
		if anyRef := t.Builtin(config.AnyRefTypeName); anyRef != nil && anyRef != sym {
			return []typesystem.Type{anyRef.TypeRef()}
		}
	}
	return sym.Parents
}

// isRootClass reports the prelude classes without an implicit AnyRef parent.
func (t *Table) isRootClass(sym *Symbol) bool {
	for _, name := range []string{config.AnyTypeName, config.NothingTypeName, config.NullTypeName} {
		if t.Builtin(name) == sym {
			return true
		}
	}
	return false
}

// ClassTypeParams implements typesystem.Resolver.
func (t *Table) ClassTypeParams(ref typesystem.Designator) []typesystem.TParam {
	sym := t.symbolOf(ref)
	if sym == nil {
		return nil
	}
	params := make([]typesystem.TParam, len(sym.TypeParams))
	for i, p := range sym.TypeParams {
		params[i] = p.ParamRef()
	}
	return params
}

// ParamBounds implements typesystem.Resolver.
func (t *Table) ParamBounds(ref typesystem.Designator) (typesystem.Type, typesystem.Type) {
	sym := t.symbolOf(ref)
	if sym == nil {
		return nil, nil
	}
	return sym.Lo, sym.Hi
}

var _ typesystem.Resolver = (*Table)(nil)
