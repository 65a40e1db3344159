package diagnostics

import (
	"bytes"
	"strings"
	"testing"

	"github.com/funvibe/typer/internal/token"
)

func TestCategories(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want Category
	}{
		{ErrT001, NotFound},
		{ErrT002, Ambiguous},
		{ErrT003, TypeMismatch},
		{ErrT004, Inaccessible},
		{ErrT005, MissingArguments},
		{ErrT006, ExtraArguments},
		{ErrT007, IllegalEscape},
		{ErrT008, StructuralMisuse},
		{ErrS001, Source},
		{ErrorCode("X999"), Internal},
	}
	for _, tt := range tests {
		if got := tt.code.Category(); got != tt.want {
			t.Errorf("%s.Category() = %s, want %s", tt.code, got, tt.want)
		}
	}
}

func TestDedupSortsAndDropsRepeats(t *testing.T) {
	a := NewError(ErrT003, token.Position{File: "f", Line: 3, Column: 1}, "type mismatch")
	b := NewError(ErrT001, token.Position{File: "f", Line: 1, Column: 5}, "not found: x")
	c := NewError(ErrT003, token.Position{File: "f", Line: 3, Column: 1}, "type mismatch")

	got := Dedup([]*DiagnosticError{a, b, c})
	if len(got) != 2 {
		t.Fatalf("expected 2 diagnostics, got %d", len(got))
	}
	if got[0] != b || got[1] != a {
		t.Errorf("unexpected order: %v", got)
	}
}

func TestFormatPlain(t *testing.T) {
	var buf bytes.Buffer
	Format(&buf, []*DiagnosticError{
		NewErrorf(ErrT002, token.Position{File: "u.yaml", Line: 2, Column: 4}, "reference to %s is ambiguous", "n"),
	}, false)
	want := "u.yaml:2:4: error[T002] reference to n is ambiguous\n"
	if buf.String() != want {
		t.Errorf("Format() = %q, want %q", buf.String(), want)
	}
}

func TestErrorString(t *testing.T) {
	e := NewError(ErrT008, token.Position{Line: 7, Column: 2}, "return outside method definition")
	if !strings.Contains(e.Error(), "[T008]") || !strings.Contains(e.Error(), "7:2") {
		t.Errorf("unexpected Error(): %s", e.Error())
	}
	if UseColor(ColorNever, nil) || !UseColor(ColorAlways, nil) {
		t.Errorf("explicit color modes must not consult the terminal")
	}
}
