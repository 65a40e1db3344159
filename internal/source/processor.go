package source

import (
	"github.com/funvibe/typer/internal/diagnostics"
	"github.com/funvibe/typer/internal/pipeline"
	"github.com/funvibe/typer/internal/token"
)

// LoaderProcessor decodes the fixture of every unit that has no tree yet.
type LoaderProcessor struct{}

func (lp *LoaderProcessor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	for _, u := range ctx.Units {
		if u.Source != nil {
			continue
		}
		tree, err := Load(u.Path, ctx.IDs)
		if err != nil {
			u.Errors = append(u.Errors, diagnostics.NewError(diagnostics.ErrS001, token.Position{File: u.Path}, err.Error()))
			continue
		}
		u.Source = tree
	}
	return ctx
}
