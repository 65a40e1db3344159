// Package typer turns untyped trees into typed trees: it resolves names,
// picks overloads, inserts implicit applications and conversions, and
// narrows type parameters inside pattern matches.
package typer

import (
	"log"

	"github.com/funvibe/typer/internal/ast"
	"github.com/funvibe/typer/internal/config"
	"github.com/funvibe/typer/internal/desugar"
	"github.com/funvibe/typer/internal/diagnostics"
	"github.com/funvibe/typer/internal/symbols"
	"github.com/funvibe/typer/internal/typerstate"
	"github.com/funvibe/typer/internal/typesystem"
)

// Typer holds what outlives a single tree: the symbol table and the memo
// tables of entered definitions and imports, keyed by node ID.
type Typer struct {
	table     *symbols.Table
	ids       *ast.IDGen
	opts      *config.Options
	trace     *log.Logger
	desugarer *desugar.Desugarer
	implicits ImplicitSearch

	bySym   map[*symbols.Symbol]*defEntry
	pending []*defEntry
}

// Keys of entries memoized on a typer state.
type (
	defKey    ast.NodeID
	importKey ast.NodeID
)

// New creates a typer. trace may be nil; it is only used when opts.Trace is set.
func New(table *symbols.Table, ids *ast.IDGen, opts *config.Options, trace *log.Logger) *Typer {
	if opts == nil {
		opts = config.DefaultOptions()
	}
	if !opts.Trace {
		trace = nil
	}
	t := &Typer{
		table:     table,
		ids:       ids,
		opts:      opts,
		trace:     trace,
		desugarer: desugar.New(ids),
		bySym:     make(map[*symbols.Symbol]*defEntry),
	}
	t.implicits = &contextualSearch{typer: t}
	return t
}

// SetImplicitSearch replaces the default scope-based implicit search.
func (t *Typer) SetImplicitSearch(s ImplicitSearch) { t.implicits = s }

func (t *Typer) Table() *symbols.Table { return t.table }

func (t *Typer) tracef(format string, args ...interface{}) {
	if t.trace != nil {
		t.trace.Printf(format, args...)
	}
}

// Unit is one compilation unit.
type Unit struct {
	Name string
	Tree *ast.PackageDef[ast.Untyped]
}

// Result is the typed form of a unit with every diagnostic reported for it.
// A unit with errors still has a tree; it is not fit for later phases.
type Result struct {
	Unit   string
	Tree   *ast.PackageDef[ast.Typed]
	Errors []*diagnostics.DiagnosticError
}

func (r Result) HasErrors() bool { return len(r.Errors) > 0 }

type unitRun struct {
	unit  Unit
	pkg   *symbols.Symbol
	ctx   *Context
	ctxs  []*Context
	state *typerstate.State
}

// TypeUnits types several units against one symbol table. Every unit's
// top-level definitions are entered before any unit is typed, so units may
// refer to each other.
func (t *Typer) TypeUnits(units []Unit) []Result {
	runs := make([]*unitRun, len(units))
	for i, u := range units {
		pkg := t.table.EnterPackage(u.Tree.Pid)
		state := typerstate.New(t.trace)
		ctx := t.unitContext(u.Name, pkg, state)
		runs[i] = &unitRun{unit: u, pkg: pkg, ctx: ctx, state: state}
		runs[i].ctxs = t.enterStats(u.Tree.Stats, ctx)
	}
	t.completePending()

	results := make([]Result, len(runs))
	for i, r := range runs {
		stats := t.typedEnteredStats(r.unit.Tree.Stats, r.ctxs, r.state)
		tree := &ast.PackageDef[ast.Typed]{
			Node:  node(r.unit.Tree, typesystem.TNone{}, r.pkg),
			Pid:   r.unit.Tree.Pid,
			Stats: stats,
		}
		typed := t.finalize(tree, r.ctx).(*ast.PackageDef[ast.Typed])
		results[i] = Result{Unit: r.unit.Name, Tree: typed, Errors: diagnostics.Dedup(r.state.Errors())}
	}
	return results
}

// TypeUnit types a single unit.
func (t *Typer) TypeUnit(u Unit) Result {
	return t.TypeUnits([]Unit{u})[0]
}

// TypeExpr types a standalone expression inside an empty unit.
func (t *Typer) TypeExpr(unit string, tree ast.Tree[ast.Untyped], pt typesystem.Type) (ast.Tree[ast.Typed], []*diagnostics.DiagnosticError) {
	state := typerstate.New(t.trace)
	ctx := t.unitContext(unit, t.table.Root, state)
	ctx = ctx.WithScope(symbols.NewScope())
	typed := t.Typed(tree, pt, ctx)
	return t.finalize(typed, ctx), diagnostics.Dedup(state.Errors())
}

// unitContext builds the outermost links of a unit: one per root import,
// then the root package, then the unit's package.
func (t *Typer) unitContext(unit string, pkg *symbols.Symbol, state *typerstate.State) *Context {
	ctx := &Context{Owner: t.table.Root, Unit: unit, State: state}
	for _, q := range t.opts.RootImports {
		ctx = ctx.WithImport(t.rootImport(q))
	}
	ctx = ctx.WithScope(t.table.Root.Decls)
	if pkg != t.table.Root {
		ctx = ctx.WithOwner(pkg).WithScope(pkg.Decls)
	}
	return ctx
}

// Typed types tree against the expected type pt and adapts the result to it.
func (t *Typer) Typed(tree ast.Tree[ast.Untyped], pt typesystem.Type, ctx *Context) ast.Tree[ast.Typed] {
	if pt == nil {
		pt = typesystem.AnyProto
	}
	return t.typed(tree, pt, ctx, false)
}

func (t *Typer) typed(tree ast.Tree[ast.Untyped], pt typesystem.Type, ctx *Context, desugared bool) ast.Tree[ast.Typed] {
	if ctx.Mode.Is(ModePattern) {
		return t.typedPattern(tree, pt, ctx)
	}
	if ast.IsTypeTree(tree) {
		return t.typedType(tree, ctx, false)
	}

	var res ast.Tree[ast.Typed]
	switch n := tree.(type) {
	case *ast.Ident[ast.Untyped]:
		res = t.typedIdent(n, pt, ctx)
	case *ast.Select[ast.Untyped]:
		res = t.typedSelect(n, pt, ctx)
	case *ast.Apply[ast.Untyped]:
		res = t.typedApply(n, pt, ctx)
	case *ast.TypeApply[ast.Untyped]:
		res = t.typedTypeApply(n, pt, ctx)
	case *ast.Literal[ast.Untyped]:
		res = t.typedLiteral(n)
	case *ast.New[ast.Untyped]:
		res = t.typedNew(n, ctx)
	case *ast.Ascription[ast.Untyped]:
		res = t.typedAscription(n, ctx)
	case *ast.Assign[ast.Untyped]:
		return t.typedAssign(n, pt, ctx)
	case *ast.Block[ast.Untyped]:
		res = t.typedBlock(n, pt, ctx)
	case *ast.If[ast.Untyped]:
		res = t.typedIf(n, pt, ctx)
	case *ast.Function[ast.Untyped]:
		res = t.typedFunction(n, pt, ctx)
	case *ast.Match[ast.Untyped]:
		res = t.typedMatch(n, pt, ctx)
	case *ast.Return[ast.Untyped]:
		res = t.typedReturn(n, ctx)
	case *ast.This[ast.Untyped]:
		res = t.typedThis(n, ctx)
	case *ast.Super[ast.Untyped]:
		res = t.typedSuper(n, ctx)
	case *ast.ErrorTree[ast.Untyped]:
		return errorTree(n)
	case *ast.ValDef[ast.Untyped], *ast.DefDef[ast.Untyped], *ast.ClassDef[ast.Untyped],
		*ast.ModuleDef[ast.Untyped], *ast.TypeDef[ast.Untyped], *ast.Import[ast.Untyped]:
		stats, _ := t.typedStats([]ast.Tree[ast.Untyped]{tree}, ctx)
		return stats[0]
	default:
		if !desugared {
			if core, ok := t.desugarer.Desugar(tree); ok {
				return t.typed(core, pt, ctx, true)
			}
		}
		t.errorf(ctx, diagnostics.ErrT000, ast.PosOf(tree), "unexpected tree %T", tree)
		return errorTree(tree)
	}
	return t.adapt(res, pt, ctx)
}

// finalize solves every remaining type variable, substitutes the solution
// through the tree and reports what could not be resolved.
func (t *Typer) finalize(tree ast.Tree[ast.Typed], ctx *Context) ast.Tree[ast.Typed] {
	tree = t.interpolate(tree, ctx, 0)
	reported := false
	ast.Walk(tree, func(n ast.Tree[ast.Typed]) bool {
		tp := ast.TypeOf(n)
		if tp == nil {
			t.errorf(ctx, diagnostics.ErrT000, ast.PosOf(n), "tree %T has no type", n)
			return true
		}
		if reported {
			return true
		}
		if len(tp.FreeTypeVariables()) > 0 {
			t.errorf(ctx, diagnostics.ErrT000, ast.PosOf(n), "could not infer type %s", tp)
			reported = true
		} else if isOverloaded(tp) {
			t.errorf(ctx, diagnostics.ErrT000, ast.PosOf(n), "unresolved overload %s", tp)
			reported = true
		}
		return true
	})
	return tree
}
