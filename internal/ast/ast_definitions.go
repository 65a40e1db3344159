package ast

// ValDef is val/var name: Tpt = Rhs, and also a method or closure parameter.
// Tpt and Rhs may be nil.
type ValDef[A Annotation] struct {
	Node[A]
	Mods Mods
	Name string
	Tpt  Tree[A]
	Rhs  Tree[A]
}

func (t *ValDef[A]) clone() Tree[A] { c := *t; return &c }

// DefDef is def name[TypeParams](params)...: Tpt = Rhs.
type DefDef[A Annotation] struct {
	Node[A]
	Mods       Mods
	Name       string
	TypeParams []*TypeDef[A]
	ParamLists [][]*ValDef[A]
	Tpt        Tree[A]
	Rhs        Tree[A]
}

func (t *DefDef[A]) clone() Tree[A] { c := *t; return &c }

// TypeDef is a type alias (type T = Rhs) or a type parameter, whose Rhs is
// a TypeBoundsTree (or nil).
type TypeDef[A Annotation] struct {
	Node[A]
	Mods       Mods
	Name       string
	TypeParams []*TypeDef[A]
	Rhs        Tree[A]
}

func (t *TypeDef[A]) clone() Tree[A] { c := *t; return &c }

// ClassDef is class Name[TypeParams](Params) extends Parents { Body }.
type ClassDef[A Annotation] struct {
	Node[A]
	Mods       Mods
	Name       string
	TypeParams []*TypeDef[A]
	Params     []*ValDef[A]
	Parents    []Tree[A]
	Body       []Tree[A]
}

func (t *ClassDef[A]) clone() Tree[A] { c := *t; return &c }

// ModuleDef is object Name extends Parents { Body }.
type ModuleDef[A Annotation] struct {
	Node[A]
	Mods    Mods
	Name    string
	Parents []Tree[A]
	Body    []Tree[A]
}

func (t *ModuleDef[A]) clone() Tree[A] { c := *t; return &c }

// ImportSelector is one selector of an import clause. Wildcard is `_`;
// a Rename of "_" excludes Name from a following wildcard.
type ImportSelector struct {
	Name     string
	Rename   string
	Wildcard bool
}

// IsExclusion reports whether the selector hides Name.
func (s ImportSelector) IsExclusion() bool { return s.Rename == "_" }

// Imported returns the name the selector binds in scope.
func (s ImportSelector) Imported() string {
	if s.Rename != "" {
		return s.Rename
	}
	return s.Name
}

// Import is import expr.{selectors}.
type Import[A Annotation] struct {
	Node[A]
	Expr      Tree[A]
	Selectors []ImportSelector
}

func (t *Import[A]) clone() Tree[A] { c := *t; return &c }

// PackageDef is package a.b { stats }, one per compilation unit.
type PackageDef[A Annotation] struct {
	Node[A]
	Pid   []string
	Stats []Tree[A]
}

func (t *PackageDef[A]) clone() Tree[A] { c := *t; return &c }
