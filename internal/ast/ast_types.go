package ast

// --- Type trees ---

// TypeIdent is a type name: Int, T.
type TypeIdent[A Annotation] struct {
	Node[A]
	Name string
}

func (t *TypeIdent[A]) clone() Tree[A] { c := *t; return &c }

// TypeSelect is a qualified type name: pkg.C.
type TypeSelect[A Annotation] struct {
	Node[A]
	Qualifier Tree[A]
	Name      string
}

func (t *TypeSelect[A]) clone() Tree[A] { c := *t; return &c }

// AppliedTypeTree is C[Args].
type AppliedTypeTree[A Annotation] struct {
	Node[A]
	Tpt  Tree[A]
	Args []Tree[A]
}

func (t *AppliedTypeTree[A]) clone() Tree[A] { c := *t; return &c }

// FunctionTypeTree is (Params) => Result.
type FunctionTypeTree[A Annotation] struct {
	Node[A]
	Params []Tree[A]
	Result Tree[A]
}

func (t *FunctionTypeTree[A]) clone() Tree[A] { c := *t; return &c }

// TypeBoundsTree is >: Lo <: Hi; as a type argument it is a wildcard `?`.
type TypeBoundsTree[A Annotation] struct {
	Node[A]
	Lo Tree[A]
	Hi Tree[A]
}

func (t *TypeBoundsTree[A]) clone() Tree[A] { c := *t; return &c }

// InferredTypeTree stands for an omitted type; typing fills in the type.
type InferredTypeTree[A Annotation] struct {
	Node[A]
}

func (t *InferredTypeTree[A]) clone() Tree[A] { c := *t; return &c }
