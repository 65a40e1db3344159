package pipeline_test

import (
	"bytes"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/funvibe/typer/internal/config"
	"github.com/funvibe/typer/internal/diagnostics"
	"github.com/funvibe/typer/internal/discover"
	"github.com/funvibe/typer/internal/pipeline"
	"github.com/funvibe/typer/internal/source"
	"github.com/funvibe/typer/internal/typer"
)

func writeFixture(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func newPipeline() *pipeline.Pipeline {
	return pipeline.New(
		&discover.DiscoverProcessor{},
		&source.LoaderProcessor{},
		&typer.TyperProcessor{},
	)
}

type recorder struct {
	name  string
	calls *[]string
}

func (r recorder) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	*r.calls = append(*r.calls, r.name)
	ctx.Errors = append(ctx.Errors, diagnostics.NewErrorf(diagnostics.ErrT000, ctx.Units[0].Source.Pos, "%s failed", r.name))
	return ctx
}

func TestRunContinuesAfterErrors(t *testing.T) {
	var calls []string
	ctx := pipeline.NewPipelineContext(nil)
	ctx.AddUnit("u.yaml")
	p, err := source.Parse([]byte(`[]`), "u.yaml", ctx.IDs)
	if err != nil {
		t.Fatal(err)
	}
	ctx.Units[0].Source = p

	out := pipeline.New(recorder{"first", &calls}, recorder{"second", &calls}).Run(ctx)
	if strings.Join(calls, ",") != "first,second" {
		t.Errorf("stages ran as %v", calls)
	}
	if len(out.AllErrors()) != 2 {
		t.Errorf("want both stage errors, got %v", out.AllErrors())
	}
}

func TestUnitsSeeEachOther(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "a.yaml", "- object: {name: A, body: [{val: [x, 1]}]}\n")
	writeFixture(t, dir, "b.yaml", "- val: [r, Int, A.x]\n")

	ctx := newPipeline().Run(pipeline.NewPipelineContext(nil, dir))
	if errs := ctx.AllErrors(); len(errs) > 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(ctx.Units) != 2 {
		t.Fatalf("got %d units, want 2", len(ctx.Units))
	}
	for _, u := range ctx.Units {
		if u.Typed == nil {
			t.Errorf("%s was not typed", u.Path)
		}
	}
}

func TestMalformedFixture(t *testing.T) {
	dir := t.TempDir()
	bad := writeFixture(t, dir, "bad.yaml", "- {frobnicate: 1}\n")
	writeFixture(t, dir, "good.yaml", "- val: [r, nope]\n")

	ctx := newPipeline().Run(pipeline.NewPipelineContext(nil, dir))
	if len(ctx.Units) != 2 {
		t.Fatalf("got %d units, want 2", len(ctx.Units))
	}
	for _, u := range ctx.Units {
		if len(u.Errors) != 1 {
			t.Errorf("%s: want one error, got %v", u.Path, u.Errors)
			continue
		}
		want := diagnostics.ErrT001
		if u.Path == bad {
			want = diagnostics.ErrS001
			if u.Typed != nil {
				t.Errorf("malformed unit was typed")
			}
		}
		if u.Errors[0].Code != want {
			t.Errorf("%s: got %s, want %s", u.Path, u.Errors[0].Code, want)
		}
	}
}

func TestMissingPath(t *testing.T) {
	ctx := newPipeline().Run(pipeline.NewPipelineContext(nil, filepath.Join(t.TempDir(), "missing")))
	if len(ctx.Errors) != 1 || ctx.Errors[0].Code != diagnostics.ErrS001 {
		t.Errorf("got %v", ctx.Errors)
	}
}

func TestTraceIsTaggedWithRunID(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "a.yaml", "- val: [r, 1]\n")
	opts := config.DefaultOptions()
	opts.Trace = true

	var buf bytes.Buffer
	ctx := pipeline.NewPipelineContext(opts, dir)
	ctx.Logger = log.New(&buf, "", 0)
	newPipeline().Run(ctx)
	if !strings.Contains(buf.String(), "run "+ctx.RunID.String()) {
		t.Errorf("trace does not mention the run ID:\n%s", buf.String())
	}
}
