package symbols

import (
	"github.com/pkg/errors"

	"github.com/funvibe/typer/internal/typesystem"
)

// ErrCyclicReference is returned (wrapped) when a symbol's info is requested
// while it is being completed.
var ErrCyclicReference = errors.New("cyclic reference")

// Completer computes the info of a symbol on first request. It may request
// the info of other symbols, re-entrantly.
type Completer func(sym *Symbol) (typesystem.Type, error)

// IsCyclic reports whether err was caused by a cyclic completion.
func IsCyclic(err error) bool {
	return errors.Cause(err) == ErrCyclicReference
}

// SetInfo sets the info of a symbol, dropping any pending completer.
func (s *Symbol) SetInfo(info typesystem.Type) {
	s.info = info
	s.completer = nil
}

// SetCompleter installs a lazy info computation.
func (s *Symbol) SetCompleter(c Completer) {
	s.info = nil
	s.completer = c
}

// HasInfo reports whether the info is already known.
func (s *Symbol) HasInfo() bool { return s.info != nil }

// IsCompleting reports whether the symbol's completer is running.
func (s *Symbol) IsCompleting() bool { return s.completing }

// Info returns the symbol's type, running its completer if needed.
// A request for a symbol that is currently being completed returns an
// error wrapping ErrCyclicReference instead of recursing.
func (s *Symbol) Info() (typesystem.Type, error) {
	if s.info != nil {
		return s.info, nil
	}
	if s.completer == nil {
		return typesystem.TError{}, errors.Errorf("symbol %s has no type", s.FullName())
	}
	if s.completing {
		return typesystem.TError{}, errors.Wrapf(ErrCyclicReference, "involving %s", s.Name)
	}
	s.completing = true
	defer func() { s.completing = false }()

	info, err := s.completer(s)
	if err != nil {
		if IsCyclic(err) {
			// let the outermost request for this symbol decide
			return typesystem.TError{}, err
		}
		s.info = typesystem.TError{}
		s.completer = nil
		return s.info, err
	}
	s.info = info
	s.completer = nil
	return info, nil
}

// InfoOrError is Info with the error discarded.
func (s *Symbol) InfoOrError() typesystem.Type {
	info, err := s.Info()
	if err != nil {
		return typesystem.TError{}
	}
	return info
}
