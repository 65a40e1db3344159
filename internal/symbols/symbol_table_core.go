package symbols

import (
	"strings"

	"github.com/funvibe/typer/internal/config"
	"github.com/funvibe/typer/internal/token"
	"github.com/funvibe/typer/internal/typesystem"
)

type SymbolKind int

const (
	PackageSymbol SymbolKind = iota
	ModuleSymbol             // object: a term with its own member scope
	ClassSymbol
	TypeAliasSymbol
	TypeParamSymbol
	MethodSymbol
	ValueSymbol
)

func (k SymbolKind) String() string {
	switch k {
	case PackageSymbol:
		return "package"
	case ModuleSymbol:
		return "object"
	case ClassSymbol:
		return "class"
	case TypeAliasSymbol:
		return "type"
	case TypeParamSymbol:
		return "type parameter"
	case MethodSymbol:
		return "method"
	}
	return "value"
}

type Flags uint32

const (
	Mutable Flags = 1 << iota
	Stable
	Deferred
	Method
	Accessor
	Implicit
	Private
	Case
	ParamAccessor
	Covariant
	Contravariant
	Constructor
	Synthetic
	Param
)

func (f Flags) Has(x Flags) bool { return f&x != 0 }

// Name is a simple name in either the term or the type namespace.
type Name struct {
	Str    string
	IsType bool
}

func TermName(s string) Name { return Name{Str: s} }
func TypeName(s string) Name { return Name{Str: s, IsType: true} }

func (n Name) String() string { return n.Str }

// ToType returns the same name in the type namespace.
func (n Name) ToType() Name { return Name{Str: n.Str, IsType: true} }

// ToTerm returns the same name in the term namespace.
func (n Name) ToTerm() Name { return Name{Str: n.Str} }

// Setter returns the name of the setter of an accessor, x -> x_=.
func (n Name) Setter() Name { return Name{Str: n.Str + config.SetterSuffix} }

// Symbol is the stable identity of a declaration.
type Symbol struct {
	ID    int
	Name  Name
	Kind  SymbolKind
	Flags Flags
	Owner *Symbol
	Unit  string // compilation unit the symbol is defined in
	Pos   token.Position

	// Decls holds members of packages, modules and classes.
	Decls *Scope
	// TypeParams of classes, aliases and polymorphic methods.
	TypeParams []*Symbol
	// Parents of classes and modules, in terms of the class's own type parameters.
	Parents []typesystem.Type
	// Lo and Hi are the bounds of type parameters; Hi is the aliased type of aliases.
	Lo typesystem.Type
	Hi typesystem.Type

	info       typesystem.Type
	completer  Completer
	completing bool
}

func (s *Symbol) DesignatorID() int { return s.ID }

// FullName is the dotted path of owners, without the root package.
func (s *Symbol) FullName() string {
	if s == nil {
		return ""
	}
	var parts []string
	for sym := s; sym != nil && sym.Name.Str != config.RootPackage; sym = sym.Owner {
		parts = append(parts, sym.Name.Str)
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, ".")
}

func (s *Symbol) String() string { return s.Name.Str }

func (s *Symbol) IsType() bool {
	switch s.Kind {
	case ClassSymbol, TypeAliasSymbol, TypeParamSymbol:
		return true
	}
	return false
}

func (s *Symbol) IsTerm() bool        { return !s.IsType() }
func (s *Symbol) IsClass() bool       { return s.Kind == ClassSymbol }
func (s *Symbol) IsPackage() bool     { return s.Kind == PackageSymbol }
func (s *Symbol) IsModule() bool      { return s.Kind == ModuleSymbol }
func (s *Symbol) IsMethod() bool      { return s.Kind == MethodSymbol }
func (s *Symbol) IsTypeParam() bool   { return s.Kind == TypeParamSymbol }
func (s *Symbol) IsConstructor() bool { return s.Flags.Has(Constructor) }
func (s *Symbol) IsPrivate() bool     { return s.Flags.Has(Private) }
func (s *Symbol) IsMutable() bool     { return s.Flags.Has(Mutable) }

// IsStable reports whether a reference to the symbol denotes a fixed value
// (packages, modules, immutable vals).
func (s *Symbol) IsStable() bool {
	switch s.Kind {
	case PackageSymbol, ModuleSymbol:
		return true
	case ValueSymbol:
		return !s.IsMutable()
	}
	return s.Flags.Has(Stable)
}

// HasMembers reports whether the symbol owns a member scope.
func (s *Symbol) HasMembers() bool {
	switch s.Kind {
	case PackageSymbol, ModuleSymbol, ClassSymbol:
		return true
	}
	return false
}

// IsContainedIn reports whether s is owner or owned (transitively) by owner.
func (s *Symbol) IsContainedIn(owner *Symbol) bool {
	for sym := s; sym != nil; sym = sym.Owner {
		if sym == owner {
			return true
		}
	}
	return false
}

// EnclosingClass returns the closest class or module owning s (s included).
func (s *Symbol) EnclosingClass() *Symbol {
	for sym := s; sym != nil; sym = sym.Owner {
		if sym.Kind == ClassSymbol || sym.Kind == ModuleSymbol {
			return sym
		}
	}
	return nil
}

// EnclosingMethod returns the closest method owning s (s included).
func (s *Symbol) EnclosingMethod() *Symbol {
	for sym := s; sym != nil; sym = sym.Owner {
		if sym.Kind == MethodSymbol {
			return sym
		}
		if sym.Kind == ClassSymbol || sym.Kind == PackageSymbol {
			return nil
		}
	}
	return nil
}

// ParamRef is the rigid type reference of a type parameter symbol.
func (s *Symbol) ParamRef() typesystem.TParam {
	v := typesystem.Invariant
	switch {
	case s.Flags.Has(Covariant):
		v = typesystem.Covariant
	case s.Flags.Has(Contravariant):
		v = typesystem.Contravariant
	}
	return typesystem.TParam{Name: s.Name.Str, Ref: s, Variance: v}
}

// TypeRef is the unapplied reference to a class.
func (s *Symbol) TypeRef() typesystem.TCon {
	return typesystem.TCon{Name: s.Name.Str, Ref: s}
}

// AppliedRef is the class applied to its own type parameters, the type of `this`.
func (s *Symbol) AppliedRef() typesystem.Type {
	if len(s.TypeParams) == 0 {
		return s.TypeRef()
	}
	args := make([]typesystem.Type, len(s.TypeParams))
	for i, p := range s.TypeParams {
		args[i] = p.ParamRef()
	}
	return typesystem.TApp{Constructor: s.TypeRef(), Args: args}
}

// ThisType is C.this.type.
func (s *Symbol) ThisType() typesystem.TThis {
	return typesystem.TThis{Class: s, Self: s.AppliedRef()}
}

// TermRef is the singleton type of a stable term: packages and modules get
// their own member scope as underlying type.
func (s *Symbol) TermRef() typesystem.TTermRef {
	ref := typesystem.TTermRef{Name: s.Name.Str, Ref: s}
	switch s.Kind {
	case PackageSymbol, ModuleSymbol:
		ref.Underlying = typesystem.TCon{Name: s.Name.Str + ".type", Ref: s}
	default:
		if s.HasInfo() {
			ref.Underlying = s.info
		}
	}
	return ref
}
