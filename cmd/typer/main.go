// Command typer type checks tree fixtures and reports diagnostics.
//
// Usage:
//
//	typer [options] <fixture.yaml|dir>...
//
// All fixtures of one run are typed together, so they may refer to each
// other's top-level definitions.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/davecgh/go-spew/spew"

	"github.com/funvibe/typer/internal/config"
	"github.com/funvibe/typer/internal/diagnostics"
	"github.com/funvibe/typer/internal/discover"
	"github.com/funvibe/typer/internal/pipeline"
	"github.com/funvibe/typer/internal/prettyprinter"
	"github.com/funvibe/typer/internal/source"
	"github.com/funvibe/typer/internal/typer"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if os.Getenv(config.TestModeEnv) == "1" {
		config.IsTestMode = true
	}
	fs := flag.NewFlagSet("typer", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "options file (default: "+config.OptionsFileName+" next to the first input)")
	printTrees := fs.Bool("print", false, "print the typed trees")
	showTypes := fs.Bool("types", false, "with -print, annotate every expression with its type")
	dump := fs.Bool("dump", false, "dump the typed trees")
	trace := fs.Bool("trace", false, "log identifier typing and speculative trials")
	color := fs.String("color", "", "auto, always or never (overrides the options file)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	paths := fs.Args()
	if len(paths) == 0 {
		fmt.Fprintln(stderr, "usage: typer [options] <fixture.yaml|dir>...")
		fs.PrintDefaults()
		return 2
	}

	opts, err := loadOptions(*configPath, paths[0])
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	if *trace {
		opts.Trace = true
	}
	if *color != "" {
		opts.Color = *color
		if err := opts.Validate(); err != nil {
			fmt.Fprintln(stderr, err)
			return 2
		}
	}

	ctx := pipeline.NewPipelineContext(opts, paths...)
	if opts.Trace {
		ctx.Logger = log.New(stderr, fmt.Sprintf("[typer %s] ", ctx.RunID.String()[:8]), 0)
	}
	ctx = pipeline.New(
		&discover.DiscoverProcessor{},
		&source.LoaderProcessor{},
		&typer.TyperProcessor{},
	).Run(ctx)

	for _, u := range ctx.Units {
		if u.Typed == nil {
			continue
		}
		if *printTrees {
			fmt.Fprintf(stdout, "// %s\n", u.Path)
			fmt.Fprint(stdout, prettyprinter.NewTypedPrinter(*showTypes).Print(u.Typed))
		}
		if *dump {
			dumper := spew.ConfigState{Indent: "  ", DisablePointerAddresses: true, SortKeys: true, MaxDepth: 8}
			dumper.Fdump(stdout, u.Typed)
		}
	}

	errs := diagnostics.Dedup(ctx.AllErrors())
	if len(errs) == 0 {
		return 0
	}
	shown := errs
	if opts.MaxErrors > 0 && len(shown) > opts.MaxErrors {
		shown = shown[:opts.MaxErrors]
	}
	f, _ := stderr.(*os.File)
	diagnostics.Format(stderr, shown, diagnostics.UseColor(diagnostics.ColorMode(opts.Color), f))
	if len(shown) < len(errs) {
		fmt.Fprintf(stderr, "... %d more not shown\n", len(errs)-len(shown))
	}
	fmt.Fprintln(stderr, diagnostics.Summary(len(errs)))
	return 1
}

// loadOptions reads the -config file, else the options file next to the
// first input, else the defaults.
func loadOptions(configPath, firstInput string) (*config.Options, error) {
	if configPath != "" {
		return config.LoadOptions(configPath)
	}
	if path, ok := discover.OptionsFile(firstInput); ok {
		return config.LoadOptions(path)
	}
	return config.DefaultOptions(), nil
}
