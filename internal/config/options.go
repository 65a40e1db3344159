package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// OptionsFileName is looked up next to the inputs when no -config flag is given.
const OptionsFileName = "typer.yaml"

// Options represents the typer.yaml configuration.
type Options struct {
	// Trace enables debug trace lines for identifier typing and speculative trials.
	Trace bool `yaml:"trace"`

	// ImplicitConversions enables insertion of implicit views during adaptation.
	ImplicitConversions bool `yaml:"implicitConversions"`

	// RootImports are the wildcard imports visible in every compilation unit,
	// outermost first (e.g. "lang", "lang.Predef").
	RootImports []string `yaml:"rootImports,omitempty"`

	// MaxErrors limits how many diagnostics the CLI prints (0 = unlimited).
	MaxErrors int `yaml:"maxErrors,omitempty"`

	// Color is one of "auto", "always", "never".
	Color string `yaml:"color,omitempty"`
}

// DefaultOptions returns the configuration used when no typer.yaml exists.
func DefaultOptions() *Options {
	return &Options{
		ImplicitConversions: true,
		RootImports:         []string{LangPackage, LangPackage + "." + PredefModule},
		Color:               "auto",
	}
}

// LoadOptions reads a typer.yaml file. Missing fields keep their defaults.
func LoadOptions(path string) (*Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return ParseOptions(data, path)
}

// ParseOptions decodes and validates typer.yaml content.
func ParseOptions(data []byte, path string) (*Options, error) {
	opts := DefaultOptions()
	if err := yaml.Unmarshal(data, opts); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return opts, nil
}

// Validate checks field values.
func (o *Options) Validate() error {
	switch o.Color {
	case "", "auto", "always", "never":
	default:
		return fmt.Errorf("color: expected auto, always or never, got %q", o.Color)
	}
	if o.MaxErrors < 0 {
		return fmt.Errorf("maxErrors must not be negative")
	}
	for i, imp := range o.RootImports {
		if imp == "" {
			return fmt.Errorf("rootImports[%d] is empty", i)
		}
	}
	return nil
}
