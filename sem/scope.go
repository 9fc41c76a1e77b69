package sem

// Scope holds the symbols declared inside a symbol.  Symbols sharing a name
// form an overload list kept in insertion order.
type Scope struct {
	entries map[string][]Symbol
	order   []Symbol
}

func newScope() *Scope {
	return &Scope{entries: make(map[string][]Symbol)}
}

// Overloads returns every symbol declared with name, most recently added
// first.  A nil scope is empty.
func (s *Scope) Overloads(name string) []Symbol {
	if s == nil {
		return nil
	}

	list := s.entries[name]
	out := make([]Symbol, len(list))
	for i, sym := range list {
		out[len(list)-1-i] = sym
	}

	return out
}

// Lookup returns the most recently added symbol named name or nil
func (s *Scope) Lookup(name string) Symbol {
	if s == nil {
		return nil
	}

	if list := s.entries[name]; len(list) > 0 {
		return list[len(list)-1]
	}

	return nil
}

// Has reports whether any symbol with name is declared in the scope
func (s *Scope) Has(name string) bool {
	if s == nil {
		return false
	}

	return len(s.entries[name]) > 0
}

// Symbols returns every symbol in the scope in insertion order
func (s *Scope) Symbols() []Symbol {
	if s == nil {
		return nil
	}

	return append([]Symbol(nil), s.order...)
}

// Len returns the number of symbols in the scope
func (s *Scope) Len() int {
	if s == nil {
		return 0
	}

	return len(s.order)
}

func (s *Scope) insert(sym Symbol) {
	s.entries[sym.Name()] = append(s.entries[sym.Name()], sym)
	s.order = append(s.order, sym)
}

// remove deletes sym from the scope, reporting whether it was present
func (s *Scope) remove(sym Symbol) bool {
	list := s.entries[sym.Name()]
	for i, e := range list {
		if e != sym {
			continue
		}

		if len(list) == 1 {
			delete(s.entries, sym.Name())
		} else {
			s.entries[sym.Name()] = append(list[:i:i], list[i+1:]...)
		}

		for j, o := range s.order {
			if o == sym {
				s.order = append(s.order[:j:j], s.order[j+1:]...)
				break
			}
		}
		return true
	}

	return false
}
