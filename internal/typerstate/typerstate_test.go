package typerstate

import (
	"testing"

	"github.com/davecgh/go-spew/spew"

	"github.com/funvibe/typer/internal/diagnostics"
	"github.com/funvibe/typer/internal/token"
	"github.com/funvibe/typer/internal/typesystem"
)

var dumper = spew.ConfigState{Indent: " ", DisablePointerAddresses: true, SortKeys: true}

func snapshot(s *State) string {
	return dumper.Sdump(s.Errors(), s.Constraints().Uninstantiated(), s.Constraints().Solution(), s.Generation())
}

func mismatch(msg string) *diagnostics.DiagnosticError {
	return diagnostics.NewError(diagnostics.ErrT003, token.Position{Line: 1, Column: 1}, msg)
}

func TestAbortLeavesParentUntouched(t *testing.T) {
	root := New(nil)
	v := root.Constraints().Fresh("A")
	root.Report(mismatch("before"))
	before := snapshot(root)

	child := root.Fork()
	child.Report(mismatch("speculative"))
	child.Constraints().Instantiate(v, typesystem.Builtin("Int"))
	child.Constraints().Fresh("B")
	child.Abort()

	if after := snapshot(root); after != before {
		t.Errorf("aborted fork leaked into parent:\nbefore:\n%s\nafter:\n%s", before, after)
	}
	if _, ok := root.Constraints().Instance(v); ok {
		t.Errorf("instance of %v leaked", v)
	}
}

func TestCommitMergesChild(t *testing.T) {
	root := New(nil)
	v := root.Constraints().Fresh("A")

	child := root.Fork()
	child.Report(mismatch("kept"))
	child.Constraints().Instantiate(v, typesystem.Builtin("Int"))
	if err := child.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if root.ErrorCount() != 1 {
		t.Errorf("root has %d errors, want 1", root.ErrorCount())
	}
	if inst, ok := root.Constraints().Instance(v); !ok || inst.String() != "Int" {
		t.Errorf("instance = %v, %v", inst, ok)
	}
	if err := child.Commit(); err == nil {
		t.Errorf("second commit should fail")
	}
}

func TestCommitRejectsChangedParent(t *testing.T) {
	root := New(nil)
	child := root.Fork()
	root.Report(mismatch("parent moved"))
	if err := child.Commit(); err == nil {
		t.Errorf("commit into a modified parent should fail")
	}
}

func TestTryEither(t *testing.T) {
	root := New(nil)

	got := TryEither(root, func(s *State) string {
		return "ok"
	}, func(string, *State) string {
		return "fallback"
	})
	if got != "ok" {
		t.Errorf("successful attempt: got %q", got)
	}

	var discarded int
	got = TryEither(root, func(s *State) string {
		s.Report(mismatch("fails"))
		return "failed"
	}, func(res string, failed *State) string {
		discarded = failed.ErrorCount()
		return res + " then fallback"
	})
	if got != "failed then fallback" {
		t.Errorf("failed attempt: got %q", got)
	}
	if discarded != 1 {
		t.Errorf("fallback saw %d errors, want 1", discarded)
	}
	if root.HasErrors() {
		t.Errorf("failed attempt leaked %d errors", root.ErrorCount())
	}
}

func TestExploreAlwaysDiscards(t *testing.T) {
	root := New(nil)
	v := root.Constraints().Fresh("A")
	before := snapshot(root)

	ok := Explore(root, func(s *State) bool {
		s.Constraints().Instantiate(v, typesystem.Builtin("String"))
		return true
	})
	if !ok {
		t.Fatalf("explore result lost")
	}
	if after := snapshot(root); after != before {
		t.Errorf("explore leaked:\n%s", after)
	}
}

func TestDetachedAndReplay(t *testing.T) {
	root := New(nil)
	outer := root.Constraints().Fresh("A")

	d := root.Detached()
	if !d.IsRoot() {
		t.Errorf("detached state should be a root")
	}
	inner := d.Constraints().Fresh("B")
	if inner.ID == outer.ID {
		t.Errorf("detached state reused variable id %d", inner.ID)
	}
	d.Report(mismatch("in definition"))
	root.Replay(d.Errors())
	if root.ErrorCount() != 1 {
		t.Errorf("replay: root has %d errors", root.ErrorCount())
	}
}

func TestMemoFollowsForksAndDetachedStates(t *testing.T) {
	type key int
	memo := func(s *State, k key) any {
		t.Helper()
		v, _ := s.Memo(k)
		return v
	}

	root := New(nil)
	root.SetMemo(key(1), "root")

	d := root.Detached()
	d.SetMemo(key(2), "detached")
	if got := memo(root, 2); got != "detached" {
		t.Errorf("entry stored on detached state: got %v in root", got)
	}

	aborted := root.Fork()
	aborted.SetMemo(key(3), "trial")
	inner := aborted.Detached()
	inner.SetMemo(key(4), "trial detached")
	if got := memo(inner, 1); got != "root" {
		t.Errorf("fork does not see parent entry: %v", got)
	}
	if got := memo(inner, 3); got != "trial" {
		t.Errorf("detached state does not see fork entry: %v", got)
	}
	aborted.Abort()

	tests := []struct {
		k    key
		want any
	}{
		{1, "root"},
		{2, "detached"},
		{3, nil},
		{4, nil},
	}
	for _, tt := range tests {
		if got := memo(root, tt.k); got != tt.want {
			t.Errorf("after abort: memo(%d) = %v, want %v", tt.k, got, tt.want)
		}
	}

	kept := d.Fork()
	kept.SetMemo(key(5), "kept")
	if got := memo(root, 5); got != nil {
		t.Errorf("live fork entry visible before commit: %v", got)
	}
	if err := kept.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if got := memo(root, 5); got != "kept" {
		t.Errorf("committed entry = %v\n%s", got, dumper.Sdump(root.memo))
	}
}
