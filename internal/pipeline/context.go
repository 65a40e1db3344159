package pipeline

import (
	"log"

	"github.com/google/uuid"

	"github.com/funvibe/typer/internal/ast"
	"github.com/funvibe/typer/internal/config"
	"github.com/funvibe/typer/internal/diagnostics"
	"github.com/funvibe/typer/internal/symbols"
)

// UnitData is one compilation unit as it moves through the stages.
type UnitData struct {
	Path   string
	Source *ast.PackageDef[ast.Untyped]
	Typed  *ast.PackageDef[ast.Typed]
	Errors []*diagnostics.DiagnosticError
}

func (u *UnitData) HasErrors() bool { return len(u.Errors) > 0 }

// PipelineContext carries the inputs and results of a run.
type PipelineContext struct {
	RunID   uuid.UUID
	Options *config.Options
	// Logger receives trace lines; nil disables them.
	Logger *log.Logger

	// Paths are the fixture files or directories given to the run.
	Paths []string

	IDs         *ast.IDGen
	SymbolTable *symbols.Table
	Units       []*UnitData

	// Errors holds problems that belong to no unit.
	Errors []*diagnostics.DiagnosticError
}

func NewPipelineContext(opts *config.Options, paths ...string) *PipelineContext {
	if opts == nil {
		opts = config.DefaultOptions()
	}
	return &PipelineContext{
		RunID:       uuid.New(),
		Options:     opts,
		Paths:       paths,
		IDs:         &ast.IDGen{},
		SymbolTable: symbols.NewTable(),
	}
}

// AddUnit appends a unit for path and returns it.
func (ctx *PipelineContext) AddUnit(path string) *UnitData {
	u := &UnitData{Path: path}
	ctx.Units = append(ctx.Units, u)
	return u
}

// AllErrors returns the run-level errors followed by each unit's, in unit order.
func (ctx *PipelineContext) AllErrors() []*diagnostics.DiagnosticError {
	out := append([]*diagnostics.DiagnosticError(nil), ctx.Errors...)
	for _, u := range ctx.Units {
		out = append(out, u.Errors...)
	}
	return out
}

func (ctx *PipelineContext) logf(format string, args ...interface{}) {
	if ctx.Logger != nil {
		ctx.Logger.Printf(format, args...)
	}
}
