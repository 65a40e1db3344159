package symbols

// Scope is an insertion-ordered multimap from names to symbols.
// Several term symbols with one name are overloads.
type Scope struct {
	entries map[Name][]*Symbol
	order   []*Symbol
}

func NewScope() *Scope {
	return &Scope{entries: make(map[Name][]*Symbol)}
}

// Enter adds sym under its own name.
func (s *Scope) Enter(sym *Symbol) {
	s.EnterAs(sym.Name, sym)
}

// EnterAs adds sym under name (used for renamed or aliased entries).
func (s *Scope) EnterAs(name Name, sym *Symbol) {
	s.entries[name] = append(s.entries[name], sym)
	s.order = append(s.order, sym)
}

// Lookup returns all symbols entered under name, in declaration order.
func (s *Scope) Lookup(name Name) []*Symbol {
	if s == nil {
		return nil
	}
	return s.entries[name]
}

// Symbols returns every entered symbol in declaration order.
func (s *Scope) Symbols() []*Symbol {
	if s == nil {
		return nil
	}
	return s.order
}

func (s *Scope) Len() int {
	if s == nil {
		return 0
	}
	return len(s.order)
}

// Contains reports whether sym was entered in this scope.
func (s *Scope) Contains(sym *Symbol) bool {
	if s == nil {
		return false
	}
	for _, e := range s.entries[sym.Name] {
		if e == sym {
			return true
		}
	}
	return false
}
