package source

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/funvibe/typer/internal/ast"
	"github.com/funvibe/typer/internal/symbols"
	"github.com/funvibe/typer/internal/typesystem"
)

func parse(t *testing.T, input string) *ast.PackageDef[ast.Untyped] {
	t.Helper()
	p, err := Parse([]byte(input), "test.yaml", &ast.IDGen{})
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	return p
}

func parseExpr(t *testing.T, input string) ast.Tree[ast.Untyped] {
	t.Helper()
	e, err := ParseExpr([]byte(input), "test.yaml", &ast.IDGen{})
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	return e
}

func TestScalars(t *testing.T) {
	tests := []struct {
		input string
		tag   typesystem.ConstTag
	}{
		{"1", typesystem.IntTag},
		{"1.5", typesystem.DoubleTag},
		{"true", typesystem.BooleanTag},
		{"null", typesystem.NullTag},
		{`"hi"`, typesystem.StringTag},
		{"{long: 3}", typesystem.LongTag},
		{"{char: c}", typesystem.CharTag},
		{"{unit: ~}", typesystem.UnitTag},
		{"{lit: x}", typesystem.StringTag},
	}
	for _, tt := range tests {
		lit, ok := parseExpr(t, tt.input).(*ast.Literal[ast.Untyped])
		if !ok {
			t.Errorf("%s: not a literal", tt.input)
			continue
		}
		if lit.Value.Tag != tt.tag {
			t.Errorf("%s: tag %v, want %v", tt.input, lit.Value.Tag, tt.tag)
		}
	}
}

func TestIdentifiersAndPaths(t *testing.T) {
	if id, ok := parseExpr(t, "x").(*ast.Ident[ast.Untyped]); !ok || id.Name != "x" {
		t.Errorf("bare scalar should be an identifier")
	}
	sel, ok := parseExpr(t, "lang.Predef.println").(*ast.Select[ast.Untyped])
	if !ok || sel.Name != "println" {
		t.Fatalf("dotted scalar should be a selection")
	}
	if q, ok := sel.Qualifier.(*ast.Select[ast.Untyped]); !ok || q.Name != "Predef" {
		t.Errorf("qualifier = %#v", sel.Qualifier)
	}
}

func TestApplyAndNew(t *testing.T) {
	app := parseExpr(t, `{apply: [f, 1, "s"]}`).(*ast.Apply[ast.Untyped])
	if len(app.Args) != 2 {
		t.Errorf("got %d args", len(app.Args))
	}
	ctor := parseExpr(t, `{new: ["Box[Int]", 1]}`).(*ast.Apply[ast.Untyped])
	sel := ctor.Fun.(*ast.Select[ast.Untyped])
	alloc, ok := sel.Qualifier.(*ast.New[ast.Untyped])
	if !ok || sel.Name != "<init>" {
		t.Fatalf("new should become a constructor call, got %#v", ctor.Fun)
	}
	if _, ok := alloc.Tpt.(*ast.AppliedTypeTree[ast.Untyped]); !ok {
		t.Errorf("tpt = %#v", alloc.Tpt)
	}
}

func TestBlockSplitsResultExpression(t *testing.T) {
	b := parseExpr(t, `{block: [{val: [x, 1]}, {val: [y, x]}, y]}`).(*ast.Block[ast.Untyped])
	if len(b.Stats) != 2 || b.Expr == nil {
		t.Errorf("stats %d, expr %v", len(b.Stats), b.Expr)
	}
	b = parseExpr(t, `{block: [{class: C}]}`).(*ast.Block[ast.Untyped])
	if len(b.Stats) != 1 || b.Expr != nil {
		t.Errorf("a trailing definition is a statement")
	}
}

func TestDefinitions(t *testing.T) {
	p := parse(t, `
package:
  name: a.b
  stats:
    - def:
        name: f
        tparams: ["+T", "U <: Any"]
        params: [[{x: Int}], [y]]
        implicit: [{ord: Ordering}]
        type: Int
        rhs: x
    - class:
        name: Box
        tparams: [T]
        params: [{v: T}]
        mods: [case]
    - object: {name: M, body: [{var: [n, Int, 0]}]}
    - type: [Alias, "(Int, String) => Boolean"]
    - import: [lang.Predef, "println => p", "identity => _", "_"]
`)
	if strings.Join(p.Pid, ".") != "a.b" {
		t.Errorf("pid = %v", p.Pid)
	}
	def := p.Stats[0].(*ast.DefDef[ast.Untyped])
	if len(def.ParamLists) != 3 || !def.ParamLists[2][0].Mods.Is(symbols.Implicit) {
		t.Errorf("param lists = %d", len(def.ParamLists))
	}
	if !def.TypeParams[0].Mods.Is(symbols.Covariant) {
		t.Errorf("+T lost its variance")
	}
	if b, ok := def.TypeParams[1].Rhs.(*ast.TypeBoundsTree[ast.Untyped]); !ok || b.Hi == nil {
		t.Errorf("U <: Any lost its bound")
	}
	cls := p.Stats[1].(*ast.ClassDef[ast.Untyped])
	if !cls.Mods.Is(symbols.Case) || !cls.Params[0].Mods.Is(symbols.ParamAccessor) {
		t.Errorf("class mods = %v", cls.Mods)
	}
	obj := p.Stats[2].(*ast.ModuleDef[ast.Untyped])
	if v := obj.Body[0].(*ast.ValDef[ast.Untyped]); !v.Mods.Is(symbols.Mutable) {
		t.Errorf("var is not mutable")
	}
	alias := p.Stats[3].(*ast.TypeDef[ast.Untyped])
	if fn, ok := alias.Rhs.(*ast.FunctionTypeTree[ast.Untyped]); !ok || len(fn.Params) != 2 {
		t.Errorf("alias rhs = %#v", alias.Rhs)
	}
	imp := p.Stats[4].(*ast.Import[ast.Untyped])
	if len(imp.Selectors) != 3 || imp.Selectors[0].Imported() != "p" || !imp.Selectors[1].IsExclusion() || !imp.Selectors[2].Wildcard {
		t.Errorf("selectors = %+v", imp.Selectors)
	}
}

func TestMatchAndPatterns(t *testing.T) {
	m := parseExpr(t, `
match:
  - x
  - case: [{ascribe: [y, "Box[Int]"]}, 1]
  - case: [{alt: [1, 2]}, {infix: [z, ">", 0]}, 2]
  - case: [_, 3]
`).(*ast.Match[ast.Untyped])
	if len(m.Cases) != 3 {
		t.Fatalf("got %d cases", len(m.Cases))
	}
	if m.Cases[1].Guard == nil {
		t.Errorf("guard missing")
	}
	if !ast.IsWildcard(m.Cases[2].Pat) {
		t.Errorf("_ is not a wildcard")
	}
}

func TestNodeIDsAreUnique(t *testing.T) {
	p := parse(t, `[{val: [x, {apply: [f, 1, 2]}]}, {def: {name: g, params: [], rhs: {block: [x]}}}]`)
	seen := map[ast.NodeID]bool{}
	ast.Walk[ast.Untyped](p, func(n ast.Tree[ast.Untyped]) bool {
		if seen[ast.ID(n)] {
			t.Errorf("duplicate id %d", ast.ID(n))
		}
		seen[ast.ID(n)] = true
		if !ast.PosOf(n).IsValid() {
			t.Errorf("%T has no position", n)
		}
		return true
	})
}

func TestErrors(t *testing.T) {
	inputs := []string{
		`{frob: 1}`,
		`{if: [c]}`,
		`{def: {params: []}}`,
		`{ascribe: [x, "Box[Int"]}`,
		`{val: {name: x, colour: red}}`,
	}
	for _, in := range inputs {
		if _, err := ParseExpr([]byte(in), "bad.yaml", &ast.IDGen{}); err == nil {
			t.Errorf("%s: expected an error", in)
		} else if !strings.Contains(err.Error(), "bad.yaml") {
			t.Errorf("%s: error %q has no position", in, err)
		}
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "unit.yaml")
	if err := os.WriteFile(path, []byte("- {val: [x, 1]}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	p, err := Load(path, &ast.IDGen{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(p.Stats) != 1 || ast.PosOf[ast.Untyped](p.Stats[0]).File != path {
		t.Errorf("loaded %d stats", len(p.Stats))
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), &ast.IDGen{}); err == nil {
		t.Errorf("missing file should fail")
	}
}
