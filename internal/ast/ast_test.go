package ast

import (
	"testing"

	"github.com/funvibe/typer/internal/typesystem"
)

func lit(g *IDGen, v int64) *Literal[Untyped] {
	return &Literal[Untyped]{Node: Node[Untyped]{ID: g.Next()}, Value: typesystem.IntConst(v)}
}

func ident(g *IDGen, name string) *Ident[Untyped] {
	return &Ident[Untyped]{Node: Node[Untyped]{ID: g.Next()}, Name: name}
}

func TestChildrenAndWalk(t *testing.T) {
	g := &IDGen{}
	block := &Block[Untyped]{
		Node: Node[Untyped]{ID: g.Next()},
		Stats: []Tree[Untyped]{
			&ValDef[Untyped]{Node: Node[Untyped]{ID: g.Next()}, Name: "x", Rhs: lit(g, 1)},
		},
		Expr: &If[Untyped]{
			Node: Node[Untyped]{ID: g.Next()},
			Cond: ident(g, "c"),
			Then: ident(g, "x"),
		},
	}
	if got := len(Children[Untyped](block)); got != 2 {
		t.Fatalf("block has %d children, want 2", got)
	}
	var idents []string
	Walk[Untyped](block, func(n Tree[Untyped]) bool {
		if id, ok := n.(*Ident[Untyped]); ok {
			idents = append(idents, id.Name)
		}
		return true
	})
	if len(idents) != 2 || idents[0] != "c" || idents[1] != "x" {
		t.Errorf("walk order = %v, want [c x]", idents)
	}
}

func TestTransformSharesNothingMutable(t *testing.T) {
	g := &IDGen{}
	orig := &Apply[Untyped]{Node: Node[Untyped]{ID: g.Next()}, Fun: ident(g, "f"), Args: []Tree[Untyped]{lit(g, 1)}}

	out := Transform[Untyped](orig, func(n Tree[Untyped]) Tree[Untyped] {
		if id, ok := n.(*Ident[Untyped]); ok {
			id.Name = "g"
		}
		return n
	})
	if orig.Fun.(*Ident[Untyped]).Name != "f" {
		t.Errorf("Transform mutated its input")
	}
	if out.(*Apply[Untyped]).Fun.(*Ident[Untyped]).Name != "g" {
		t.Errorf("Transform result not rewritten")
	}
	if ID[Untyped](out) != ID[Untyped](orig) {
		t.Errorf("Transform changed the node ID")
	}
}

func TestMapTypes(t *testing.T) {
	v := typesystem.TVar{ID: 1}
	intT := typesystem.Builtin("Int")
	tree := &Ident[Typed]{Node: Node[Typed]{ID: 1, Ann: Typed{Type: v}}, Name: "x"}

	out := MapTypes(tree, func(tp typesystem.Type) typesystem.Type {
		return tp.Apply(typesystem.Subst{v.Key(): intT})
	})
	if !typesystem.Equal(TypeOf(out), intT) {
		t.Errorf("MapTypes type = %v, want Int", TypeOf(out))
	}
	if !typesystem.Equal(TypeOf(tree), v) {
		t.Errorf("MapTypes mutated its input")
	}
}

func TestPatternPredicates(t *testing.T) {
	g := &IDGen{}
	if !IsWildcard[Untyped](ident(g, "_")) {
		t.Errorf("_ should be a wildcard")
	}
	if !IsVarPattern[Untyped](ident(g, "x")) || IsVarPattern[Untyped](ident(g, "None")) {
		t.Errorf("variable pattern detection is wrong")
	}
	bind := &Bind[Untyped]{Node: Node[Untyped]{ID: g.Next()}, Name: "b", Body: ident(g, "_")}
	if !IsWildcard(StripBind[Untyped](bind)) {
		t.Errorf("StripBind should expose the wildcard")
	}
}
