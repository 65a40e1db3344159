package diagnostics

import (
	"fmt"
	"sort"

	"github.com/funvibe/typer/internal/token"
)

// ErrorCode is a stable identifier for a typer diagnostic.
type ErrorCode string

const (
	ErrT000 ErrorCode = "T000" // internal error
	ErrT001 ErrorCode = "T001" // not found
	ErrT002 ErrorCode = "T002" // ambiguous
	ErrT003 ErrorCode = "T003" // type mismatch
	ErrT004 ErrorCode = "T004" // inaccessible
	ErrT005 ErrorCode = "T005" // missing arguments
	ErrT006 ErrorCode = "T006" // extra arguments
	ErrT007 ErrorCode = "T007" // illegal escape of a local definition
	ErrT008 ErrorCode = "T008" // structural misuse

	ErrS001 ErrorCode = "S001" // unreadable or malformed fixture
)

// Category groups error codes into the typer's error taxonomy.
type Category string

const (
	Internal         Category = "Internal"
	NotFound         Category = "NotFound"
	Ambiguous        Category = "Ambiguous"
	TypeMismatch     Category = "TypeMismatch"
	Inaccessible     Category = "Inaccessible"
	MissingArguments Category = "MissingArguments"
	ExtraArguments   Category = "ExtraArguments"
	IllegalEscape    Category = "IllegalEscape"
	StructuralMisuse Category = "StructuralMisuse"
	Source           Category = "Source"
)

var categories = map[ErrorCode]Category{
	ErrT000: Internal,
	ErrT001: NotFound,
	ErrT002: Ambiguous,
	ErrT003: TypeMismatch,
	ErrT004: Inaccessible,
	ErrT005: MissingArguments,
	ErrT006: ExtraArguments,
	ErrT007: IllegalEscape,
	ErrT008: StructuralMisuse,
	ErrS001: Source,
}

func (c ErrorCode) Category() Category {
	if cat, ok := categories[c]; ok {
		return cat
	}
	return Internal
}

// Severity is always SeverityError for the typer; the type exists so the
// formatter and downstream consumers do not have to special-case it.
type Severity string

const SeverityError Severity = "error"

// DiagnosticError is a single reported problem.
type DiagnosticError struct {
	Code     ErrorCode
	Severity Severity
	Pos      token.Position
	File     string
	Message  string
}

func (e *DiagnosticError) Error() string {
	pos := e.Pos
	if pos.File == "" {
		pos.File = e.File
	}
	return fmt.Sprintf("[typer] %s [%s] at %s: %s", e.Severity, e.Code, pos, e.Message)
}

// Key identifies a diagnostic for deduplication (position + code + message).
func (e *DiagnosticError) Key() string {
	return fmt.Sprintf("%s:%d:%d:%s:%s", e.File, e.Pos.Line, e.Pos.Column, e.Code, e.Message)
}

func NewError(code ErrorCode, pos token.Position, msg string) *DiagnosticError {
	return &DiagnosticError{
		Code:     code,
		Severity: SeverityError,
		Pos:      pos,
		File:     pos.File,
		Message:  msg,
	}
}

func NewErrorf(code ErrorCode, pos token.Position, format string, args ...interface{}) *DiagnosticError {
	return NewError(code, pos, fmt.Sprintf(format, args...))
}

// Dedup removes repeated diagnostics, keeping the first occurrence, and sorts by position.
func Dedup(errs []*DiagnosticError) []*DiagnosticError {
	seen := make(map[string]bool, len(errs))
	out := make([]*DiagnosticError, 0, len(errs))
	for _, e := range errs {
		k := e.Key()
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Pos.Before(out[j].Pos)
	})
	return out
}

// Count returns how many diagnostics of the given category are in errs.
func Count(errs []*DiagnosticError, cat Category) int {
	n := 0
	for _, e := range errs {
		if e.Code.Category() == cat {
			n++
		}
	}
	return n
}
