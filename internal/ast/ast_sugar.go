package ast

// Sugar shapes are never typed directly; the desugarer rewrites them into
// the core shapes above.

// InfixOp is left op right, desugared to left.op(right).
type InfixOp[A Annotation] struct {
	Node[A]
	Left  Tree[A]
	Op    string
	Right Tree[A]
}

func (t *InfixOp[A]) clone() Tree[A] { c := *t; return &c }

// PrefixOp is op operand, desugared to operand.unary_op.
type PrefixOp[A Annotation] struct {
	Node[A]
	Op      string
	Operand Tree[A]
}

func (t *PrefixOp[A]) clone() Tree[A] { c := *t; return &c }

// Parens is (e) or (); the empty form is the unit literal.
type Parens[A Annotation] struct {
	Node[A]
	Exprs []Tree[A]
}

func (t *Parens[A]) clone() Tree[A] { c := *t; return &c }
