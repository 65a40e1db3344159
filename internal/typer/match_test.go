package typer

import (
	"testing"

	"github.com/funvibe/typer/internal/ast"
	"github.com/funvibe/typer/internal/diagnostics"
)

const exprClasses = `
- class: {name: Expr, tparams: [T], mods: [abstract]}
- class: {name: IntLit, params: [{v: Int}], parents: ["Expr[Int]"], mods: [case]}
- class: {name: StrLit, params: [{s: String}], parents: ["Expr[String]"], mods: [case]}
- class: {name: Pair, params: [{x: Int}, {y: Int}], mods: [case]}
`

func TestPatternVariables(t *testing.T) {
	typ, res := checkClean(t, exprClasses+`
- val: [r, {match: [1, {case: [n, {infix: [n, "+", 1]}]}]}]
- val:
    - s
    - match:
        - {new: [Pair, 1, 2]}
        - case: [{apply: [Pair, a, _]}, {infix: [a, "<", 3]}, a]
        - case: [{bind: [p, _]}, 0]
`)
	if got := valType(t, typ, "r"); got != "Int" {
		t.Errorf("r: got %s, want Int", got)
	}
	if got := valType(t, typ, "s"); got != "Int" {
		t.Errorf("s: got %s, want Int", got)
	}
	m := valRhs(t, res, "s").(*ast.Match[ast.Typed])
	b, ok := m.Cases[1].Pat.(*ast.Bind[ast.Typed])
	if !ok || ast.SymOf(b) == nil || ast.TypeOf(b).String() != "Pair" {
		t.Errorf("binder: %s", dumper.Sdump(m.Cases[1].Pat))
	}
}

func TestMatchTypeIsJoinOfCases(t *testing.T) {
	typ, _ := checkClean(t, `
- val: [r, {match: [1, {case: [1, "one"]}, {case: [_, 2]}]}]
`)
	if got := valType(t, typ, "r"); got != "String | Int" {
		t.Errorf("got %s, want String | Int", got)
	}
}

func TestGadtNarrowing(t *testing.T) {
	checkClean(t, exprClasses+`
- def:
    name: eval
    tparams: [T]
    params: [{e: "Expr[T]"}]
    type: T
    rhs:
      match:
        - e
        - case: [{apply: [IntLit, n]}, n]
        - case: [{apply: [StrLit, s]}, s]
`)
}

// A bound learned in one case does not survive into the next one.
func TestGadtBoundsAreRestored(t *testing.T) {
	_, res := check(t, exprClasses+`
- def:
    name: eval
    tparams: [T]
    params: [{e: "Expr[T]"}]
    type: T
    rhs:
      match:
        - e
        - case: [{apply: [IntLit, n]}, n]
        - case: [_, 1]
`)
	expectError(t, res, diagnostics.ErrT003, "type mismatch")
}

func TestGadtBoundsAreRestoredAfterFailingCase(t *testing.T) {
	_, res := check(t, exprClasses+`
- def:
    name: eval
    tparams: [T]
    params: [{e: "Expr[T]"}]
    type: T
    rhs:
      match:
        - e
        - case: [{apply: [IntLit, n]}, {sel: [n, nope]}]
        - case: [_, 1]
`)
	want := []diagnostics.ErrorCode{diagnostics.ErrT001, diagnostics.ErrT003}
	if got := codes(res.Errors); dumper.Sdump(got) != dumper.Sdump(want) {
		t.Errorf("got %v, want %v", res.Errors, want)
	}
}

// Inside a case the narrowed bound holds; after the match it is gone.
func TestGadtBoundsEndWithMatch(t *testing.T) {
	_, res := check(t, exprClasses+`
- def:
    name: eval
    tparams: [T]
    params: [{e: "Expr[T]"}, {d: T}]
    type: T
    rhs:
      block:
        - val:
            - m
            - match:
                - e
                - case: [{apply: [IntLit, n]}, {block: [{val: [z, T, n]}, z]}]
                - case: [_, 0]
        - val: [b, T, 1]
        - d
`)
	expectError(t, res, diagnostics.ErrT003, "required T")
}

func TestCaseBodyIsCheckedAgainstExpectedType(t *testing.T) {
	_, res := check(t, exprClasses+`
- val: [e, "Expr[String]", {new: [StrLit, "s"]}]
- val: [r, Int, {match: [e, {case: [{apply: [StrLit, s]}, s]}]}]
`)
	expectError(t, res, diagnostics.ErrT003, "required Int")
}

func TestPatternErrors(t *testing.T) {
	tests := []struct {
		name string
		pat  string
		code diagnostics.ErrorCode
		msg  string
	}{
		{"duplicate variable", `{apply: [Pair, a, a]}`, diagnostics.ErrT008, "a is already defined as a pattern variable"},
		{"variable in alternative", `{alt: [{apply: [Pair, a, _]}, _]}`, diagnostics.ErrT008, "illegal variable in pattern alternative"},
		{"not a case class", `{apply: [Expr, a]}`, diagnostics.ErrT008, "Expr is not a case class"},
		{"constructor arity", `{apply: [Pair, a]}`, diagnostics.ErrT003, "wrong number of arguments for pattern Pair"},
		{"incompatible literal", `"s"`, diagnostics.ErrT003, "pattern type"},
		{"incompatible class", `{ascribe: [_, IntLit]}`, diagnostics.ErrT003, "scrutinee is incompatible with pattern type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, res := check(t, exprClasses+`
- val: [r, {match: [{new: [Pair, 1, 2]}, {case: [`+tt.pat+`, 0]}]}]
`)
			expectError(t, res, tt.code, tt.msg)
		})
	}
}

func TestTypePatternNarrowsBinder(t *testing.T) {
	typ, res := checkClean(t, exprClasses+`
- val: [e, "Expr[Int]", {new: [IntLit, 1]}]
- val: [r, {match: [e, {case: [{ascribe: [l, IntLit]}, l.v]}, {case: [_, 0]}]}]
`)
	if got := valType(t, typ, "r"); got != "Int" {
		t.Errorf("got %s, want Int", got)
	}
	m := valRhs(t, res, "r").(*ast.Match[ast.Typed])
	if got := ast.TypeOf(m.Cases[0].Pat).String(); got != "IntLit" {
		t.Errorf("pattern type %s, want IntLit", got)
	}
}
