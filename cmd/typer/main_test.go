package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/funvibe/typer/internal/config"
)

func writeFixture(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func runTyper(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRunClean(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "a.yaml", "- val: [x, 1]\n")

	code, stdout, stderr := runTyper(t, "-print", dir)
	if code != 0 {
		t.Fatalf("exit %d, stderr:\n%s", code, stderr)
	}
	if !strings.Contains(stdout, "val x: Int = 1") {
		t.Errorf("typed tree not printed:\n%s", stdout)
	}
}

func TestRunReportsErrors(t *testing.T) {
	dir := t.TempDir()
	path := writeFixture(t, dir, "a.yaml", "- val: [x, nope]\n- val: [y, nope2]\n")

	code, _, stderr := runTyper(t, "-color", "never", path)
	if code != 1 {
		t.Fatalf("exit %d, want 1", code)
	}
	for _, want := range []string{"error[T001] not found: value nope", "not found: value nope2", "2 errors"} {
		if !strings.Contains(stderr, want) {
			t.Errorf("missing %q in:\n%s", want, stderr)
		}
	}
	if strings.Contains(stderr, "\x1b[") {
		t.Errorf("colored output with -color never:\n%s", stderr)
	}
}

func TestRunUsesOptionsFile(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "a.yaml", "- val: [x, nope]\n- val: [y, nope2]\n")
	writeFixture(t, dir, "typer.yaml", "maxErrors: 1\ncolor: never\n")

	code, _, stderr := runTyper(t, dir)
	if code != 1 {
		t.Fatalf("exit %d, want 1", code)
	}
	if !strings.Contains(stderr, "1 more not shown") || !strings.Contains(stderr, "2 errors") {
		t.Errorf("maxErrors was not applied:\n%s", stderr)
	}
}

func TestRunExplicitConfig(t *testing.T) {
	dir := t.TempDir()
	fixture := writeFixture(t, dir, "a.yaml", "- val: [r, {apply: [identity, 1]}]\n")
	cfg := writeFixture(t, t.TempDir(), "custom.yaml", "rootImports: [lang]\ncolor: never\n")

	code, _, stderr := runTyper(t, "-config", cfg, fixture)
	if code != 1 || !strings.Contains(stderr, "not found: value identity") {
		t.Errorf("exit %d, stderr:\n%s", code, stderr)
	}
}

func TestRunTrace(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "a.yaml", "- val: [r, {infix: [1, \"+\", 2]}]\n")

	code, _, stderr := runTyper(t, "-trace", dir)
	if code != 0 {
		t.Fatalf("exit %d, stderr:\n%s", code, stderr)
	}
	if !strings.Contains(stderr, "[typer ") || !strings.Contains(stderr, "overload +") {
		t.Errorf("no trace output:\n%s", stderr)
	}
}

func TestRunDump(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "a.yaml", "- val: [x, 1]\n")

	code, stdout, _ := runTyper(t, "-dump", dir)
	if code != 0 || !strings.Contains(stdout, "PackageDef") {
		t.Errorf("exit %d, dump:\n%s", code, stdout)
	}
}

func TestRunUsage(t *testing.T) {
	tests := [][]string{
		nil,
		{"-color", "sometimes", "x.yaml"},
		{"-config", "/does/not/exist.yaml", "x.yaml"},
		{"-unknown"},
	}
	for _, args := range tests {
		if code, _, _ := runTyper(t, args...); code != 2 {
			t.Errorf("run(%v) = %d, want 2", args, code)
		}
	}
}

func TestRunTestModeFromEnvironment(t *testing.T) {
	t.Setenv(config.TestModeEnv, "1")
	t.Cleanup(func() { config.IsTestMode = false })
	dir := t.TempDir()
	writeFixture(t, dir, "a.yaml", "- val: [x, 1]\n")

	if code, _, stderr := runTyper(t, dir); code != 0 {
		t.Fatalf("exit %d, stderr:\n%s", code, stderr)
	}
	if !config.IsTestMode {
		t.Errorf("%s=1 did not enable test mode", config.TestModeEnv)
	}
}
