package diagnostics

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

const (
	ansiRed   = "\x1b[31;1m"
	ansiBold  = "\x1b[1m"
	ansiReset = "\x1b[0m"
)

// ColorMode selects when the formatter emits ANSI colors.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"
	ColorAlways ColorMode = "always"
	ColorNever  ColorMode = "never"
)

// UseColor resolves a ColorMode against the given output file.
func UseColor(mode ColorMode, f *os.File) bool {
	switch mode {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	}
	if f == nil || os.Getenv("NO_COLOR") != "" || os.Getenv("TERM") == "dumb" {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Format writes one line per diagnostic.
func Format(w io.Writer, errs []*DiagnosticError, color bool) {
	for _, e := range errs {
		pos := e.Pos
		if pos.File == "" {
			pos.File = e.File
		}
		if color {
			fmt.Fprintf(w, "%s%s:%s %s%s[%s]%s %s\n", ansiBold, pos, ansiReset, ansiRed, e.Severity, e.Code, ansiReset, e.Message)
			continue
		}
		fmt.Fprintf(w, "%s: %s[%s] %s\n", pos, e.Severity, e.Code, e.Message)
	}
}

// Summary renders "N error(s)" for the end of a run.
func Summary(n int) string {
	if n == 1 {
		return "1 error"
	}
	return fmt.Sprintf("%d errors", n)
}
