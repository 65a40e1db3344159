package discover

import (
	"github.com/funvibe/typer/internal/diagnostics"
	"github.com/funvibe/typer/internal/pipeline"
	"github.com/funvibe/typer/internal/token"
)

// DiscoverProcessor expands ctx.Paths into one unit per fixture file.
type DiscoverProcessor struct{}

func (dp *DiscoverProcessor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	for _, root := range ctx.Paths {
		files, err := Fixtures(root)
		if err != nil {
			ctx.Errors = append(ctx.Errors, diagnostics.NewError(diagnostics.ErrS001, token.Position{File: root}, err.Error()))
			continue
		}
		for _, f := range files {
			ctx.AddUnit(f)
		}
	}
	return ctx
}
