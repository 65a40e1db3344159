package ast

import (
	"github.com/funvibe/typer/internal/symbols"
	"github.com/funvibe/typer/internal/token"
	"github.com/funvibe/typer/internal/typesystem"
)

// NodeID identifies a tree node. IDs are assigned when trees are loaded and
// survive typing: a typed node keeps the ID of the untyped node it came from.
type NodeID int

// IDGen hands out node IDs.
type IDGen struct {
	next NodeID
}

func (g *IDGen) Next() NodeID {
	g.next++
	return g.next
}

// Untyped is the annotation of trees that have not been typed yet.
type Untyped struct{}

// Typed is the annotation of typed trees: every typed node has a type, and
// references (identifiers, selections, definitions) a symbol.
type Typed struct {
	Type typesystem.Type
	Sym  *symbols.Symbol
}

// Annotation is the annotation slot of a tree.
type Annotation interface {
	Untyped | Typed
}

// Node is the header every tree shape embeds.
type Node[A Annotation] struct {
	ID  NodeID
	Pos token.Position
	Ann A
}

func (n *Node[A]) Header() *Node[A] { return n }

// Tree is the closed set of tree shapes. Tree[Untyped] and Tree[Typed] are
// distinct types, so an untyped node never stands where a typed one is required.
type Tree[A Annotation] interface {
	Header() *Node[A]
	clone() Tree[A]
}

// Mods are the modifiers of a definition.
type Mods struct {
	Flags symbols.Flags
}

func (m Mods) Is(f symbols.Flags) bool { return m.Flags.Has(f) }

// ID returns the node ID of any tree.
func ID[A Annotation](t Tree[A]) NodeID { return t.Header().ID }

// PosOf returns the position of any tree.
func PosOf[A Annotation](t Tree[A]) token.Position { return t.Header().Pos }

// TypeOf returns the type of a typed tree.
func TypeOf(t Tree[Typed]) typesystem.Type {
	if t == nil {
		return typesystem.TNone{}
	}
	return t.Header().Ann.Type
}

// SymOf returns the symbol of a typed tree (nil for non-references).
func SymOf(t Tree[Typed]) *symbols.Symbol {
	if t == nil {
		return nil
	}
	return t.Header().Ann.Sym
}

// TypedFrom builds the typed header of a node derived from src.
func TypedFrom[A Annotation](src Tree[A], tp typesystem.Type, sym *symbols.Symbol) Node[Typed] {
	h := src.Header()
	return Node[Typed]{ID: h.ID, Pos: h.Pos, Ann: Typed{Type: tp, Sym: sym}}
}

// WithType returns a copy of t with its type replaced.
func WithType(t Tree[Typed], tp typesystem.Type) Tree[Typed] {
	c := t.clone()
	c.Header().Ann.Type = tp
	return c
}

// WithSym returns a copy of t with its symbol and type replaced.
func WithSym(t Tree[Typed], sym *symbols.Symbol, tp typesystem.Type) Tree[Typed] {
	c := t.clone()
	c.Header().Ann = Typed{Type: tp, Sym: sym}
	return c
}

// Clone returns a shallow copy of t.
func Clone[A Annotation](t Tree[A]) Tree[A] { return t.clone() }
