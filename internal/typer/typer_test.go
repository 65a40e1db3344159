package typer

import (
	"bytes"
	"log"
	"strings"
	"testing"

	"github.com/davecgh/go-spew/spew"

	"github.com/funvibe/typer/internal/ast"
	"github.com/funvibe/typer/internal/config"
	"github.com/funvibe/typer/internal/diagnostics"
	"github.com/funvibe/typer/internal/source"
	"github.com/funvibe/typer/internal/symbols"
	"github.com/funvibe/typer/internal/typerstate"
	"github.com/funvibe/typer/internal/typesystem"
)

var dumper = spew.ConfigState{Indent: " ", DisablePointerAddresses: true, SortKeys: true, MaxDepth: 4}

const testUnit = "test.yaml"

func newTyper(opts *config.Options) (*Typer, *ast.IDGen) {
	ids := &ast.IDGen{}
	return New(symbols.NewTable(), ids, opts, nil), ids
}

// check types a unit written in the fixture syntax.
func check(t *testing.T, src string) (*Typer, Result) {
	t.Helper()
	return checkWith(t, src, config.DefaultOptions())
}

func checkWith(t *testing.T, src string, opts *config.Options) (*Typer, Result) {
	t.Helper()
	typ, ids := newTyper(opts)
	p, err := source.Parse([]byte(src), testUnit, ids)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	return typ, typ.TypeUnit(Unit{Name: testUnit, Tree: p})
}

// checkClean types a unit and fails the test on any diagnostic.
func checkClean(t *testing.T, src string) (*Typer, Result) {
	t.Helper()
	typ, res := check(t, src)
	for _, e := range res.Errors {
		t.Errorf("unexpected error: %v", e)
	}
	return typ, res
}

// exprContext is the context TypeExpr types in.
func exprContext(typ *Typer) *Context {
	return typ.unitContext(testUnit, typ.table.Root, typerstate.New(nil)).WithScope(symbols.NewScope())
}

// typeExprIn types a standalone expression and returns the context it was
// typed in, so tests can keep working with the same state.
func typeExprIn(t *testing.T, typ *Typer, src string, pt typesystem.Type) (ast.Tree[ast.Typed], *Context) {
	t.Helper()
	e, err := source.ParseExpr([]byte(src), testUnit, typ.ids)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	ctx := exprContext(typ)
	return typ.Typed(e, pt, ctx), ctx
}

// valType is the type of a top-level value of the unit.
func valType(t *testing.T, typ *Typer, name string) string {
	t.Helper()
	syms := typ.table.Root.Decls.Lookup(symbols.TermName(name))
	if len(syms) != 1 {
		t.Fatalf("%d top-level definitions named %s", len(syms), name)
	}
	return syms[0].InfoOrError().String()
}

// topDef finds a typed top-level definition by name.
func topDef(t *testing.T, res Result, name string) ast.Tree[ast.Typed] {
	t.Helper()
	for _, s := range res.Tree.Stats {
		switch d := s.(type) {
		case *ast.ValDef[ast.Typed]:
			if d.Name == name {
				return d
			}
		case *ast.DefDef[ast.Typed]:
			if d.Name == name {
				return d
			}
		}
	}
	t.Fatalf("no definition %s", name)
	return nil
}

func valRhs(t *testing.T, res Result, name string) ast.Tree[ast.Typed] {
	t.Helper()
	vd, ok := topDef(t, res, name).(*ast.ValDef[ast.Typed])
	if !ok {
		t.Fatalf("%s is not a value", name)
	}
	return vd.Rhs
}

func codes(errs []*diagnostics.DiagnosticError) []diagnostics.ErrorCode {
	out := make([]diagnostics.ErrorCode, len(errs))
	for i, e := range errs {
		out[i] = e.Code
	}
	return out
}

// expectError fails unless exactly one diagnostic was reported and it has
// the given code and a message containing msg.
func expectError(t *testing.T, res Result, code diagnostics.ErrorCode, msg string) {
	t.Helper()
	if len(res.Errors) != 1 {
		t.Fatalf("want one %s error, got %v", code, res.Errors)
	}
	e := res.Errors[0]
	if e.Code != code || !strings.Contains(e.Message, msg) {
		t.Errorf("got %s %q, want %s containing %q", e.Code, e.Message, code, msg)
	}
}

func TestLiteralsAndValues(t *testing.T) {
	typ, _ := checkClean(t, `
- {val: [i, 1]}
- {val: [l, {long: 3}]}
- {val: [d, 1.5]}
- {val: [s, "str"]}
- {val: [b, true]}
- {val: [u, {unit: ~}]}
- {val: [j, i]}
`)
	tests := map[string]string{
		"i": "Int", "l": "Long", "d": "Double", "s": "String", "b": "Boolean", "u": "Unit", "j": "Int",
	}
	for name, want := range tests {
		if got := valType(t, typ, name); got != want {
			t.Errorf("%s: got %s, want %s", name, got, want)
		}
	}
}

func TestBlockAndIf(t *testing.T) {
	tests := []struct {
		name string
		rhs  string
		want string
	}{
		{"block result", `{block: [{val: [x, 1]}, {infix: [x, "+", 1]}]}`, "Int"},
		{"empty block", `{block: []}`, "Unit"},
		{"if same branches", `{if: [true, 1, 2]}`, "Int"},
		{"if union", `{if: [true, 1, "s"]}`, "Int | String"},
		{"if without else", `{if: [true, 1]}`, "Int | Unit"},
		{"widened arithmetic", `{infix: [1, "+", {long: 2}]}`, "Long"},
		{"generic method", `{apply: [identity, 1]}`, "Int"},
		{"explicit type argument", `{apply: [{tapply: [identity, Long]}, 1]}`, "Long"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			typ, _ := checkClean(t, "- {val: [r, "+tt.rhs+"]}\n")
			if got := valType(t, typ, "r"); got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestBlockLocalEscapes(t *testing.T) {
	_, res := check(t, `
- val: [r, {block: [{class: L}, {new: [L]}]}]
`)
	expectError(t, res, diagnostics.ErrT007, "escapes its defining scope as part of local class L")

	typ, _ := checkClean(t, `
- val: [r, AnyRef, {block: [{class: L}, {new: [L]}]}]
`)
	if got := valType(t, typ, "r"); got != "AnyRef" {
		t.Errorf("got %s, want AnyRef", got)
	}
}

func TestErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		code diagnostics.ErrorCode
		msg  string
	}{
		{"not found", `[{val: [r, nope]}]`, diagnostics.ErrT001, "not found: value nope"},
		{"missing member", `[{val: [s, "a"]}, {val: [r, s.nope]}]`, diagnostics.ErrT001, "value nope is not a member of String"},
		{"type not found", `[{val: [r, Nope, 1]}]`, diagnostics.ErrT001, "not found: type Nope"},
		{"mismatch", `[{val: [r, Boolean, 1]}]`, diagnostics.ErrT003, "required Boolean"},
		{"private member", `
- object: {name: A, body: [{val: {name: p, rhs: 1, mods: [private]}}]}
- val: [r, A.p]
`, diagnostics.ErrT004, "cannot be accessed"},
		{"abstract class", `
- class: {name: C, mods: [abstract]}
- val: [r, {new: [C]}]
`, diagnostics.ErrT008, "C is abstract; cannot be instantiated"},
		{"too many arguments", `
- def: {name: f, params: [{x: Int}], type: Int, rhs: x}
- val: [r, {apply: [f, 1, 2]}]
`, diagnostics.ErrT006, "too many arguments (2) for method f"},
		{"not enough arguments", `
- def: {name: f, params: [{x: Int}, {y: Int}], type: Int, rhs: x}
- val: [r, {apply: [f, 1]}]
`, diagnostics.ErrT005, "unspecified value parameters: y"},
		{"missing argument list", `
- def: {name: f, params: [{x: Int}], type: Int, rhs: x}
- val: [r, f]
`, diagnostics.ErrT005, "missing argument list for method f"},
		{"type argument arity", `[{val: [r, {tapply: [identity, Int, Int]}]}]`, diagnostics.ErrT003, "wrong number of type arguments"},
		{"reassign val", `[{val: [r, {block: [{val: [c, 1]}, {assign: [c, 2]}]}]}]`, diagnostics.ErrT008, "reassignment to val c"},
		{"return outside method", `[{val: [r, {return: 1}]}]`, diagnostics.ErrT008, "return outside method definition"},
		{"return needs result type", `[{def: {name: m, rhs: {return: 1}}}]`, diagnostics.ErrT008, "method m has return statement; needs result type"},
		{"recursive value", `[{val: [x, y]}, {val: [y, x]}]`, diagnostics.ErrT008, "recursive value x needs type"},
		{"duplicate definition", `[{val: [x, 1]}, {val: [x, 2]}]`, diagnostics.ErrT008, "x is already defined in this scope"},
		{"closure parameter type", `[{val: [r, {fn: [[x], x]}]}]`, diagnostics.ErrT008, "missing parameter type for x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, res := check(t, tt.src)
			expectError(t, res, tt.code, tt.msg)
		})
	}
}

func TestAssignment(t *testing.T) {
	typ, _ := checkClean(t, `
- val: [r, {block: [{var: [v, 1]}, {assign: [v, 2]}]}]
- object: {name: O, body: [{var: [n, Int, 0]}]}
- val: [s, {assign: [O.n, 3]}]
`)
	if got := valType(t, typ, "r"); got != "Unit" {
		t.Errorf("assignment has type %s, want Unit", got)
	}
}

func TestReturnInMethod(t *testing.T) {
	checkClean(t, `[{def: {name: m, type: Int, rhs: {block: [{return: 1}]}}}]`)
}

func TestDefinitionsAreTypedOnce(t *testing.T) {
	typ, res := check(t, `
- val: [a, {apply: [f, 1]}]
- def: {name: f, params: [{x: Int}], rhs: {block: [nope, {apply: [g, x]}]}}
- def: {name: g, params: [{x: Int}], type: String, rhs: "s"}
`)
	// f's body is typed while completing a; its error is reported once.
	expectError(t, res, diagnostics.ErrT001, "not found: value nope")
	if got := valType(t, typ, "a"); got != "String" {
		t.Errorf("a: got %s, want String", got)
	}
}

func TestTypeUnitsSeeEachOther(t *testing.T) {
	typ, ids := newTyper(nil)
	p1, err := source.Parse([]byte(`{package: {name: p, stats: [{val: [x, 1]}]}}`), "a.yaml", ids)
	if err != nil {
		t.Fatal(err)
	}
	p2, err := source.Parse([]byte(`{package: {name: p, stats: [{val: [y, {infix: [x, "+", 1]}]}]}}`), "b.yaml", ids)
	if err != nil {
		t.Fatal(err)
	}
	results := typ.TypeUnits([]Unit{{Name: "b.yaml", Tree: p2}, {Name: "a.yaml", Tree: p1}})
	for _, r := range results {
		if r.HasErrors() {
			t.Errorf("%s: %v", r.Unit, r.Errors)
		}
	}
	pkg, ok := typ.table.Package("p")
	if !ok {
		t.Fatal("package p was not entered")
	}
	if got := pkg.Decls.Lookup(symbols.TermName("y"))[0].InfoOrError().String(); got != "Int" {
		t.Errorf("y: got %s, want Int", got)
	}
}

func TestTypedTreeIsFullyAnnotated(t *testing.T) {
	_, res := checkClean(t, `
- def: {name: twice, tparams: [A], params: [{f: "A => A"}, {x: A}], type: A, rhs: {apply: [f, {apply: [f, x]}]}}
- val: [r, {apply: [twice, {fn: [[{i: Int}], {infix: [i, "*", 2]}]}, 3]}]
`)
	ast.Walk[ast.Typed](res.Tree, func(n ast.Tree[ast.Typed]) bool {
		tp := ast.TypeOf(n)
		if tp == nil {
			t.Errorf("%T at %s has no type", n, ast.PosOf(n))
		} else if len(tp.FreeTypeVariables()) > 0 {
			t.Errorf("%T at %s has unsolved type %s", n, ast.PosOf(n), tp)
		}
		return true
	})
}

func TestTrace(t *testing.T) {
	var buf bytes.Buffer
	opts := config.DefaultOptions()
	opts.Trace = true
	ids := &ast.IDGen{}
	typ := New(symbols.NewTable(), ids, opts, log.New(&buf, "", 0))
	p, err := source.Parse([]byte(`[{val: [r, {infix: [1, "+", 2]}]}]`), testUnit, ids)
	if err != nil {
		t.Fatal(err)
	}
	if res := typ.TypeUnit(Unit{Name: testUnit, Tree: p}); res.HasErrors() {
		t.Fatalf("errors: %v", res.Errors)
	}
	if !strings.Contains(buf.String(), "overload +") {
		t.Errorf("trace has no overload line:\n%s", buf.String())
	}
}

func TestTypeExpr(t *testing.T) {
	typ, ids := newTyper(nil)
	e, err := source.ParseExpr([]byte(`{if: [true, 1, 2]}`), testUnit, ids)
	if err != nil {
		t.Fatal(err)
	}
	tree, errs := typ.TypeExpr(testUnit, e, typesystem.AnyProto)
	if len(errs) > 0 {
		t.Fatalf("errors: %v", errs)
	}
	if got := ast.TypeOf(tree).String(); got != "Int" {
		t.Errorf("got %s\n%s", got, dumper.Sdump(tree))
	}
}
