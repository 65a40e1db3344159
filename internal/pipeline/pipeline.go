package pipeline

// Processor is one stage of a run. Stages record problems in ctx.Errors
// and return the context for the next stage.
type Processor interface {
	Process(ctx *PipelineContext) *PipelineContext
}

// Pipeline runs its stages in order.
type Pipeline struct {
	processors []Processor
}

func New(processors ...Processor) *Pipeline {
	return &Pipeline{processors: processors}
}

// Run executes every stage, including those after a stage that reported
// errors, so one run collects the diagnostics of all units.
func (p *Pipeline) Run(initialCtx *PipelineContext) *PipelineContext {
	ctx := initialCtx
	ctx.logf("run %s: %d stages", ctx.RunID, len(p.processors))
	for _, processor := range p.processors {
		ctx = processor.Process(ctx)
	}
	ctx.logf("run %s: %d units, %d errors", ctx.RunID, len(ctx.Units), len(ctx.AllErrors()))
	return ctx
}
