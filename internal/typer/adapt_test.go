package typer

import (
	"strings"
	"testing"

	"github.com/funvibe/typer/internal/ast"
	"github.com/funvibe/typer/internal/config"
	"github.com/funvibe/typer/internal/diagnostics"
	"github.com/funvibe/typer/internal/source"
	"github.com/funvibe/typer/internal/typerstate"
	"github.com/funvibe/typer/internal/typesystem"
)

const overloads = `
- def: {name: f, params: [{x: Int}], type: Int, rhs: x}
- def: {name: f, params: [{x: String}], type: String, rhs: x}
- def: {name: g, params: [{x: Int}], type: Int, rhs: x}
- def: {name: g, params: [{x: Long}], type: Long, rhs: x}
- def: {name: h, params: [{x: Int}, {y: Long}], type: Int, rhs: x}
- def: {name: h, params: [{x: Long}, {y: Int}], type: Int, rhs: y}
`

func TestOverloadResolution(t *testing.T) {
	tests := []struct {
		name string
		rhs  string
		want string
	}{
		{"by argument type", `{apply: [f, 1]}`, "Int"},
		{"other alternative", `{apply: [f, "s"]}`, "String"},
		{"most specific", `{apply: [g, 1]}`, "Int"},
		{"exact long", `{apply: [g, {long: 1}]}`, "Long"},
		{"by expected type", `{ascribe: [{apply: [f, 1]}, Int]}`, "Int"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			typ, _ := checkClean(t, overloads+"- {val: [r, "+tt.rhs+"]}\n")
			if got := valType(t, typ, "r"); got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestOverloadErrors(t *testing.T) {
	tests := []struct {
		name string
		rhs  string
		code diagnostics.ErrorCode
		msg  string
	}{
		{"too many", `{apply: [f, 1, 2]}`, diagnostics.ErrT006, "too many arguments (2) for overloaded method f"},
		{"too few", `{apply: [h, 1]}`, diagnostics.ErrT005, "not enough arguments (1) for overloaded method h"},
		{"no match", `{apply: [f, true]}`, diagnostics.ErrT003, "none of the overloaded alternatives of f match arguments (Boolean)"},
		{"ambiguous", `{apply: [h, 1, 1]}`, diagnostics.ErrT002, "ambiguous reference to overloaded definition"},
		{"value without arguments", `f`, diagnostics.ErrT005, "missing arguments for overloaded method f"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, res := check(t, overloads+"- {val: [r, "+tt.rhs+"]}\n")
			expectError(t, res, tt.code, tt.msg)
		})
	}
}

// Trials of rejected alternatives leave no diagnostics or type variables
// behind.
func TestOverloadTrialsAreIsolated(t *testing.T) {
	typ, res := checkClean(t, overloads+`
- def: {name: p, tparams: [A], params: [{x: A}, {y: Boolean}], type: A, rhs: x}
- def: {name: p, params: [{x: Int}, {y: Int}], type: Int, rhs: x}
- val: [r, {apply: [p, 1, 2]}]
`)
	if got := valType(t, typ, "r"); got != "Int" {
		t.Errorf("got %s, want Int", got)
	}
	ast.Walk[ast.Typed](res.Tree, func(n ast.Tree[ast.Typed]) bool {
		if tp := ast.TypeOf(n); tp != nil && len(tp.FreeTypeVariables()) > 0 {
			t.Errorf("%T has unsolved type %s", n, tp)
		}
		return true
	})
}

func TestDefinitionsInRejectedTrialsAreDiscarded(t *testing.T) {
	const alts = `
- def: {name: f, params: [{g: "Int => Int"}], type: Int, rhs: 1}
- def: {name: f, params: [{g: "String => Int"}], type: String, rhs: "s"}
`
	tests := []struct {
		name string
		arg  string
	}{
		{"selection on the parameter", `{fn: [[x], {sel: [x, length]}]}`},
		{"selection through a local value", `{fn: [[x], {block: [{val: [y, x]}, {sel: [y, length]}]}]}`},
		{"local method", `{fn: [[x], {block: [{def: {name: k, type: Int, rhs: {sel: [x, length]}}}, k]}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			typ, _ := checkClean(t, alts+"- val: [r, {apply: [f, "+tt.arg+"]}]\n")
			if got := valType(t, typ, "r"); got != "String" {
				t.Errorf("got %s, want String", got)
			}
		})
	}
}

func TestExploreDiscardsErrors(t *testing.T) {
	typ, _ := newTyper(nil)
	_, ctx := typeExprIn(t, typ, `1`, nil)
	e, err := source.ParseExpr([]byte(`{apply: [identity, nope]}`), testUnit, typ.ids)
	if err != nil {
		t.Fatal(err)
	}
	mark := ctx.State.Constraints().Mark()
	failed := typerstate.Explore(ctx.State, func(s *typerstate.State) bool {
		typ.Typed(e, typesystem.AnyProto, ctx.WithState(s))
		return s.HasErrors()
	})
	if !failed {
		t.Errorf("the trial should have failed")
	}
	if ctx.State.HasErrors() {
		t.Errorf("trial errors leaked: %v", ctx.State.Errors())
	}
	if vars := ctx.State.Constraints().UninstantiatedSince(mark); len(vars) > 0 {
		t.Errorf("trial type variables leaked: %v", vars)
	}
}

func TestApplyInsertion(t *testing.T) {
	typ, res := checkClean(t, `
- object:
    name: Adder
    body: [{def: {name: apply, params: [{x: Int}], type: Int, rhs: {infix: [x, "+", 1]}}}]
- val: [r, {apply: [Adder, 2]}]
`)
	if got := valType(t, typ, "r"); got != "Int" {
		t.Errorf("got %s, want Int", got)
	}
	app, ok := valRhs(t, res, "r").(*ast.Apply[ast.Typed])
	if !ok {
		t.Fatalf("rhs is %T", valRhs(t, res, "r"))
	}
	if sel, ok := app.Fun.(*ast.Select[ast.Typed]); !ok || sel.Name != config.ApplyMethodName {
		t.Errorf("apply was not inserted: %s", dumper.Sdump(app.Fun))
	}
}

func TestImplicitArguments(t *testing.T) {
	typ, res := checkClean(t, `
- val: {name: dflt, type: Int, rhs: 42, mods: [implicit]}
- def: {name: need, implicit: [{n: Int}], type: Int, rhs: n}
- val: [r, need]
`)
	if got := valType(t, typ, "r"); got != "Int" {
		t.Errorf("got %s, want Int", got)
	}
	app, ok := valRhs(t, res, "r").(*ast.Apply[ast.Typed])
	if !ok || !app.Implicit || len(app.Args) != 1 {
		t.Fatalf("no implicit application: %s", dumper.Sdump(valRhs(t, res, "r")))
	}
	if sym := ast.SymOf(app.Args[0]); sym == nil || sym.Name.Str != "dflt" {
		t.Errorf("implicit argument is %v", sym)
	}

	_, res = check(t, `
- def: {name: need, implicit: [{n: Int}], type: Int, rhs: n}
- val: [r, need]
`)
	expectError(t, res, diagnostics.ErrT001, "could not find implicit value for parameter n: Int")
}

func TestImplicitView(t *testing.T) {
	const src = `
- def: {name: show, params: [{i: Int}], type: String, rhs: "x", mods: [implicit]}
- val: [r, String, 1]
`
	_, res := checkClean(t, src)
	app, ok := valRhs(t, res, "r").(*ast.Apply[ast.Typed])
	if !ok || ast.SymOf(app.Fun) == nil || ast.SymOf(app.Fun).Name.Str != "show" {
		t.Fatalf("view was not inserted: %s", dumper.Sdump(valRhs(t, res, "r")))
	}

	opts := config.DefaultOptions()
	opts.ImplicitConversions = false
	_, res = checkWith(t, src, opts)
	expectError(t, res, diagnostics.ErrT003, "type mismatch")
}

func TestEtaExpansion(t *testing.T) {
	typ, res := checkClean(t, `
- def: {name: inc, params: [{i: Int}], type: Int, rhs: {infix: [i, "+", 1]}}
- val: [r, "Int => Int", inc]
- val: [s, {apply: [r, 1]}]
`)
	fn, ok := valRhs(t, res, "r").(*ast.Function[ast.Typed])
	if !ok {
		t.Fatalf("rhs is %T", valRhs(t, res, "r"))
	}
	if len(fn.Params) != 1 || !strings.HasPrefix(fn.Params[0].Name, config.EtaParamPrefix) {
		t.Errorf("eta parameters: %s", dumper.Sdump(fn.Params))
	}
	if got := valType(t, typ, "s"); got != "Int" {
		t.Errorf("s: got %s, want Int", got)
	}
}

func TestSAMConversion(t *testing.T) {
	_, res := checkClean(t, `
- class:
    name: Op
    mods: [abstract]
    body: [{def: {name: run, params: [{i: Int}], type: Int}}]
- val: [r, Op, {fn: [[i], {infix: [i, "*", 2]}]}]
`)
	fn, ok := valRhs(t, res, "r").(*ast.Function[ast.Typed])
	if !ok {
		t.Fatalf("rhs is %T", valRhs(t, res, "r"))
	}
	if fn.SAMTarget == nil || fn.SAMTarget.String() != "Op" {
		t.Errorf("SAM target = %v", fn.SAMTarget)
	}
	if got := ast.TypeOf(fn.Params[0]).String(); got != "Int" {
		t.Errorf("parameter type %s, want Int", got)
	}
}

func TestValueDiscard(t *testing.T) {
	_, res := checkClean(t, `[{def: {name: m, type: Unit, rhs: 1}}]`)
	dd := topDef(t, res, "m").(*ast.DefDef[ast.Typed])
	b, ok := dd.Rhs.(*ast.Block[ast.Typed])
	if !ok || len(b.Stats) != 1 || !typesystem.IsUnit(ast.TypeOf(b)) {
		t.Errorf("value was not discarded: %s", dumper.Sdump(dd.Rhs))
	}
}

func TestLiteralNarrowing(t *testing.T) {
	_, res := checkClean(t, `[{val: [r, Long, 1]}, {val: [b, Byte, 7]}]`)
	lit, ok := valRhs(t, res, "r").(*ast.Literal[ast.Typed])
	if !ok || lit.Value.Tag != typesystem.LongTag {
		t.Errorf("1 was not converted to Long: %s", dumper.Sdump(valRhs(t, res, "r")))
	}
	_, res = check(t, `[{val: [b, Byte, 300]}]`)
	expectError(t, res, diagnostics.ErrT003, "required Byte")
}

// Adapting a tree that already fits its expected type returns it unchanged.
func TestAdaptIsIdempotent(t *testing.T) {
	intFn := func(t *Typer) typesystem.Type {
		i := t.builtin(config.IntTypeName)
		return typesystem.TFunc{Params: []typesystem.Type{i}, ReturnType: i}
	}
	tests := []struct {
		name string
		src  string
		pt   func(*Typer) typesystem.Type
	}{
		{"literal narrowing", `1`, func(t *Typer) typesystem.Type { return t.builtin(config.LongTypeName) }},
		{"value discard", `1`, func(t *Typer) typesystem.Type { return t.unitType() }},
		{"eta expansion", `{block: [{def: {name: inc, params: [{i: Int}], type: Int, rhs: i}}, inc]}`, intFn},
		{"implicit application",
			`{block: [{val: {name: d, type: Int, rhs: 1, mods: [implicit]}}, {def: {name: need, implicit: [{n: Int}], type: Int, rhs: n}}, need]}`,
			func(t *Typer) typesystem.Type { return t.builtin(config.IntTypeName) }},
		{"overload", `{block: [
			{def: {name: f, params: [{x: Int}], type: Int, rhs: x}},
			{def: {name: f, params: [{x: String}], type: String, rhs: x}},
			{apply: [f, 1]}]}`,
			func(t *Typer) typesystem.Type { return t.builtin(config.IntTypeName) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			typ, _ := newTyper(nil)
			pt := tt.pt(typ)
			tree, ctx := typeExprIn(t, typ, tt.src, pt)
			if ctx.State.HasErrors() {
				t.Fatalf("errors: %v", ctx.State.Errors())
			}
			again := typ.adapt(tree, pt, ctx)
			if again != tree {
				t.Errorf("second adapt changed the tree:\n%s\n%s", dumper.Sdump(tree), dumper.Sdump(again))
			}
			if ctx.State.HasErrors() {
				t.Errorf("second adapt reported: %v", ctx.State.Errors())
			}
		})
	}
}
