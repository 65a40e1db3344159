package typer

import (
	"github.com/funvibe/typer/internal/pipeline"
)

// TyperProcessor types every loaded unit together, so units may refer to
// each other's definitions. Units that failed to load are left untyped.
type TyperProcessor struct{}

func (tp *TyperProcessor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	var units []Unit
	var data []*pipeline.UnitData
	for _, u := range ctx.Units {
		if u.Source == nil {
			continue
		}
		units = append(units, Unit{Name: u.Path, Tree: u.Source})
		data = append(data, u)
	}
	if len(units) == 0 {
		return ctx
	}
	typer := New(ctx.SymbolTable, ctx.IDs, ctx.Options, ctx.Logger)
	for i, res := range typer.TypeUnits(units) {
		data[i].Typed = res.Tree
		data[i].Errors = append(data[i].Errors, res.Errors...)
	}
	return ctx
}
