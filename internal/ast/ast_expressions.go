package ast

import (
	"github.com/funvibe/typer/internal/typesystem"
)

// Ident is a simple name: x, println, _.
type Ident[A Annotation] struct {
	Node[A]
	Name string
}

func (t *Ident[A]) clone() Tree[A] { c := *t; return &c }

// Select is a member selection: qual.name.
type Select[A Annotation] struct {
	Node[A]
	Qualifier Tree[A]
	Name      string
}

func (t *Select[A]) clone() Tree[A] { c := *t; return &c }

// Apply is an application: f(args). Implicit marks an inserted implicit argument list.
type Apply[A Annotation] struct {
	Node[A]
	Fun      Tree[A]
	Args     []Tree[A]
	Implicit bool
}

func (t *Apply[A]) clone() Tree[A] { c := *t; return &c }

// TypeApply is an explicit type application: f[Int].
type TypeApply[A Annotation] struct {
	Node[A]
	Fun  Tree[A]
	Args []Tree[A]
}

func (t *TypeApply[A]) clone() Tree[A] { c := *t; return &c }

// Literal is a constant: 1, "s", true, (), null.
type Literal[A Annotation] struct {
	Node[A]
	Value typesystem.Constant
}

func (t *Literal[A]) clone() Tree[A] { c := *t; return &c }

// New is the allocation part of a constructor call: new C. The constructor
// call itself is Apply(Select(New(C), <init>), args).
type New[A Annotation] struct {
	Node[A]
	Tpt Tree[A]
}

func (t *New[A]) clone() Tree[A] { c := *t; return &c }

// Ascription is a type ascription, expr: T, or a typed pattern, x: T.
type Ascription[A Annotation] struct {
	Node[A]
	Expr Tree[A]
	Tpt  Tree[A]
}

func (t *Ascription[A]) clone() Tree[A] { c := *t; return &c }

// Assign is lhs = rhs.
type Assign[A Annotation] struct {
	Node[A]
	Lhs Tree[A]
	Rhs Tree[A]
}

func (t *Assign[A]) clone() Tree[A] { c := *t; return &c }

// Block is { stats; expr }.
type Block[A Annotation] struct {
	Node[A]
	Stats []Tree[A]
	Expr  Tree[A]
}

func (t *Block[A]) clone() Tree[A] { c := *t; return &c }

// If is a conditional. Else may be nil.
type If[A Annotation] struct {
	Node[A]
	Cond Tree[A]
	Then Tree[A]
	Else Tree[A]
}

func (t *If[A]) clone() Tree[A] { c := *t; return &c }

// Function is a closure: (x: Int, y) => body. Parameter Tpt may be nil.
// SAMTarget is set on typed closures converted to a single-abstract-method type.
type Function[A Annotation] struct {
	Node[A]
	Params    []*ValDef[A]
	Body      Tree[A]
	SAMTarget typesystem.Type
}

func (t *Function[A]) clone() Tree[A] { c := *t; return &c }

// Match is selector match { cases }.
type Match[A Annotation] struct {
	Node[A]
	Selector Tree[A]
	Cases    []*CaseDef[A]
}

func (t *Match[A]) clone() Tree[A] { c := *t; return &c }

// CaseDef is case pat if guard => body. Guard may be nil.
type CaseDef[A Annotation] struct {
	Node[A]
	Pat   Tree[A]
	Guard Tree[A]
	Body  Tree[A]
}

func (t *CaseDef[A]) clone() Tree[A] { c := *t; return &c }

// Alternative is a pattern alternative: p1 | p2.
type Alternative[A Annotation] struct {
	Node[A]
	Trees []Tree[A]
}

func (t *Alternative[A]) clone() Tree[A] { c := *t; return &c }

// Bind is a pattern binder: name @ pat.
type Bind[A Annotation] struct {
	Node[A]
	Name string
	Body Tree[A]
}

func (t *Bind[A]) clone() Tree[A] { c := *t; return &c }

// Return is return expr. Expr may be nil.
type Return[A Annotation] struct {
	Node[A]
	Expr Tree[A]
}

func (t *Return[A]) clone() Tree[A] { c := *t; return &c }

// This is C.this; Qual is empty for the innermost class.
type This[A Annotation] struct {
	Node[A]
	Qual string
}

func (t *This[A]) clone() Tree[A] { c := *t; return &c }

// Super is C.super[M]; Qual and Mix may be empty.
type Super[A Annotation] struct {
	Node[A]
	Qual string
	Mix  string
}

func (t *Super[A]) clone() Tree[A] { c := *t; return &c }

// ErrorTree is the placeholder for a tree that failed to type check.
type ErrorTree[A Annotation] struct {
	Node[A]
}

func (t *ErrorTree[A]) clone() Tree[A] { c := *t; return &c }
