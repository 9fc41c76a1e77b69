package sem

// SymbolKind enumerates the closed set of symbol kinds
type SymbolKind int

const (
	KindModule SymbolKind = iota
	KindType
	KindFunction
	KindParameter
	KindStackVariable
	KindMemberVariable
	KindConstant
)

// String returns a user facing name for the kind
func (k SymbolKind) String() string {
	switch k {
	case KindModule:
		return "module"
	case KindType:
		return "type"
	case KindFunction:
		return "function"
	case KindParameter:
		return "parameter"
	case KindStackVariable:
		return "variable"
	case KindMemberVariable:
		return "member"
	case KindConstant:
		return "constant"
	default:
		return "symbol"
	}
}

// Symbol is a named entity in the runtime's namespace tree.  Every symbol can
// also act as a scope for the symbols declared inside it.
type Symbol interface {
	Name() string
	QualifiedName() string
	Kind() SymbolKind

	// Owner is the symbol whose scope contains this one.  It is nil for the
	// root module and for symbols not yet added to a scope.
	Owner() Symbol

	// Scope returns the symbols declared inside this one (never nil)
	Scope() *Scope

	// Searchable reports whether the symbol can be found by lookups that ask
	// for searchable symbols only
	Searchable() bool

	Doc() string
	SetDoc(doc string)

	base() *symbolBase
}

// symbolBase implements the parts of Symbol common to every kind
type symbolBase struct {
	name         string
	owner        Symbol
	scope        *Scope
	doc          string
	unsearchable bool
}

func (sb *symbolBase) Name() string      { return sb.name }
func (sb *symbolBase) Owner() Symbol     { return sb.owner }
func (sb *symbolBase) Doc() string       { return sb.doc }
func (sb *symbolBase) SetDoc(doc string) { sb.doc = doc }
func (sb *symbolBase) Searchable() bool  { return !sb.unsearchable }
func (sb *symbolBase) base() *symbolBase { return sb }

// SetSearchable marks the symbol as visible (or hidden) to searchable-only
// lookups
func (sb *symbolBase) SetSearchable(searchable bool) {
	sb.unsearchable = !searchable
}

// peekScope returns the scope without creating it
func (sb *symbolBase) peekScope() *Scope {
	return sb.scope
}

func (sb *symbolBase) Scope() *Scope {
	if sb.scope == nil {
		sb.scope = newScope()
	}

	return sb.scope
}

// qualify builds a qualified name from an owner chain
func qualify(owner Symbol, name string) string {
	if owner == nil || owner.Name() == "" {
		return name
	}

	return owner.QualifiedName() + "." + name
}

func (sb *symbolBase) QualifiedName() string {
	return qualify(sb.owner, sb.name)
}

// -----------------------------------------------------------------------------

// AsFunction returns the symbol as a function if it is one
func AsFunction(s Symbol) (*Function, bool) {
	f, ok := s.(*Function)
	return f, ok
}

// AsType returns the symbol as a type if it is one
func AsType(s Symbol) (Type, bool) {
	if s == nil || s.Kind() != KindType {
		return nil, false
	}

	t, ok := s.(Type)
	return t, ok
}

// AsModule returns the symbol as a module if it is one
func AsModule(s Symbol) (*Module, bool) {
	m, ok := s.(*Module)
	return m, ok
}

// AsConstant returns the symbol as a constant if it is one
func AsConstant(s Symbol) (*Constant, bool) {
	c, ok := s.(*Constant)
	return c, ok
}
