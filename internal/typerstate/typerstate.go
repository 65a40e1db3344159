package typerstate

import (
	"log"

	"github.com/pkg/errors"

	"github.com/funvibe/typer/internal/diagnostics"
	"github.com/funvibe/typer/internal/typesystem"
)

// State is the mutable part of typing: reported diagnostics and the
// constraints of type variables. Speculative work runs on a Fork; the fork
// is either committed into its parent or aborted, never both.
type State struct {
	id          int
	parent      *State
	diags       []*diagnostics.DiagnosticError
	constraints *typesystem.Constraints

	// parentVersion is the parent's generation when this fork was created;
	// commit refuses to merge into a parent that changed meanwhile.
	parentVersion int
	generation    int
	children      int // live forks
	done          bool

	// memo holds results keyed by tree identity. A detached state keeps no
	// memo of its own and uses the one of the state it was detached from.
	memo   map[any]any
	origin *State

	ids   *int
	trace *log.Logger
}

// New creates a root state. trace may be nil.
func New(trace *log.Logger) *State {
	n := 0
	return &State{constraints: typesystem.NewConstraints(), ids: &n, trace: trace}
}

func (s *State) ID() int { return s.id }

func (s *State) Constraints() *typesystem.Constraints { return s.constraints }

// Generation increases whenever the state changes.
func (s *State) Generation() int { return s.generation + s.constraints.Version() }

// IsRoot reports whether s is not a fork.
func (s *State) IsRoot() bool { return s.parent == nil }

// Fork creates an isolated child. Until the child is committed or aborted
// the parent must not be modified.
func (s *State) Fork() *State {
	*s.ids++
	child := &State{
		id:            *s.ids,
		parent:        s,
		constraints:   s.constraints.Clone(),
		parentVersion: s.Generation(),
		ids:           s.ids,
		trace:         s.trace,
	}
	s.children++
	s.tracef("fork #%d -> #%d", s.id, child.id)
	return child
}

// Detached creates a new root state that starts from a copy of s's
// constraints. Definitions are typed on detached states; their diagnostics
// are replayed into the state that reaches the definition in sequence.
func (s *State) Detached() *State {
	*s.ids++
	d := &State{id: *s.ids, constraints: s.constraints.Clone(), ids: s.ids, trace: s.trace, origin: s}
	s.tracef("detach #%d from #%d", d.id, s.id)
	return d
}

func (s *State) memoOwner() *State {
	for s.origin != nil {
		s = s.origin
	}
	return s
}

// Memo returns the entry stored under key on s or on any state s derives
// from. Entries stored on a fork are visible to the fork's parent only after
// the fork is committed.
func (s *State) Memo(key any) (any, bool) {
	for st := s.memoOwner(); st != nil; {
		if v, ok := st.memo[key]; ok {
			return v, true
		}
		if st.parent == nil {
			break
		}
		st = st.parent.memoOwner()
	}
	return nil, false
}

// SetMemo stores an entry. On a detached state the entry goes to the state
// it was detached from.
func (s *State) SetMemo(key any, v any) {
	owner := s.memoOwner()
	if owner.memo == nil {
		owner.memo = make(map[any]any)
	}
	owner.memo[key] = v
}

// Replay reports diagnostics collected elsewhere (usually on a detached state).
func (s *State) Replay(errs []*diagnostics.DiagnosticError) {
	for _, e := range errs {
		s.Report(e)
	}
}

// Commit moves the child's diagnostics and constraints into its parent.
func (s *State) Commit() error {
	if s.parent == nil {
		return errors.New("typerstate: commit of root state")
	}
	if s.done {
		return errors.Errorf("typerstate: state #%d already committed or aborted", s.id)
	}
	p := s.parent
	if p.Generation() != s.parentVersion {
		return errors.Errorf("typerstate: parent #%d changed while fork #%d was live", p.id, s.id)
	}
	p.diags = append(p.diags, s.diags...)
	p.constraints = s.constraints
	for k, v := range s.memo {
		p.SetMemo(k, v)
	}
	p.generation++
	p.children--
	s.done = true
	s.parentVersion = p.Generation()
	s.tracef("commit #%d -> #%d (%d errors)", s.id, p.id, len(s.diags))
	return nil
}

// Abort discards the child. The parent is left exactly as it was at Fork.
func (s *State) Abort() {
	if s.parent == nil || s.done {
		return
	}
	s.parent.children--
	s.done = true
	s.tracef("abort #%d (%d errors)", s.id, len(s.diags))
}

// Report records a diagnostic.
func (s *State) Report(err *diagnostics.DiagnosticError) {
	s.diags = append(s.diags, err)
	s.generation++
}

func (s *State) HasErrors() bool { return len(s.diags) > 0 }

func (s *State) ErrorCount() int { return len(s.diags) }

// Errors returns the diagnostics reported to this state, in order.
func (s *State) Errors() []*diagnostics.DiagnosticError {
	out := make([]*diagnostics.DiagnosticError, len(s.diags))
	copy(out, s.diags)
	return out
}

func (s *State) tracef(format string, args ...interface{}) {
	if s.trace != nil {
		s.trace.Printf("typerstate: "+format, args...)
	}
}

// TryEither runs attempt on a fork. An error-free fork is committed and its
// result returned; otherwise the fork is aborted and fallback decides, given
// the failed result and the discarded state (for its diagnostics).
func TryEither[T any](s *State, attempt func(*State) T, fallback func(T, *State) T) T {
	child := s.Fork()
	result := attempt(child)
	if !child.HasErrors() {
		if err := child.Commit(); err == nil {
			return result
		}
	}
	child.Abort()
	return fallback(result, child)
}

// Explore runs f on a fork that is always discarded.
func Explore[T any](s *State, f func(*State) T) T {
	child := s.Fork()
	defer child.Abort()
	return f(child)
}
