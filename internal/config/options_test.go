package config

import (
	"strings"
	"testing"
)

func TestParseOptionsKeepsDefaults(t *testing.T) {
	opts, err := ParseOptions([]byte("trace: true\n"), "typer.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !opts.Trace {
		t.Errorf("trace should be enabled")
	}
	if !opts.ImplicitConversions {
		t.Errorf("implicitConversions should default to true")
	}
	if len(opts.RootImports) != 2 || opts.RootImports[1] != "lang.Predef" {
		t.Errorf("unexpected root imports: %v", opts.RootImports)
	}
}

func TestParseOptionsValidation(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{"bad color", "color: purple\n", "color"},
		{"negative max", "maxErrors: -1\n", "maxErrors"},
		{"empty import", "rootImports: [lang, \"\"]\n", "rootImports[1]"},
		{"not yaml", "trace: [\n", "parsing"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseOptions([]byte(tt.input), "typer.yaml")
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}
