package sem

// Provenance records which representation a module was loaded from
type Provenance int

const (
	ProvenanceBuiltin Provenance = iota
	ProvenanceNative
	ProvenanceArchive
	ProvenanceSource
)

func (p Provenance) String() string {
	switch p {
	case ProvenanceNative:
		return "native"
	case ProvenanceArchive:
		return "archive"
	case ProvenanceSource:
		return "source"
	default:
		return "builtin"
	}
}

// Module is a named, loadable unit of symbols
type Module struct {
	symbolBase

	location   string
	provenance Provenance
	native     bool
	requires   []string

	// docPath is the documentation sidecar associated with the module once it
	// has been looked for
	docPath      string
	docsResolved bool
}

// NewModule creates an empty module
func NewModule(name string) *Module {
	return &Module{symbolBase: symbolBase{name: name}}
}

func (m *Module) Kind() SymbolKind { return KindModule }

// Location returns the file the module was loaded from ("" for builtins)
func (m *Module) Location() string {
	return m.location
}

// Provenance returns how the module was loaded
func (m *Module) Provenance() Provenance {
	return m.provenance
}

// SetOrigin records where and how the module was loaded
func (m *Module) SetOrigin(location string, p Provenance) {
	m.location = location
	m.provenance = p
	m.native = p == ProvenanceNative
}

// IsNative reports whether the module is implemented by a native library
func (m *Module) IsNative() bool {
	return m.native
}

// SetNative marks the module as natively implemented
func (m *Module) SetNative(native bool) {
	m.native = native
}

// Requires returns the names of the modules this module required when loaded
func (m *Module) Requires() []string {
	return m.requires
}

// AddRequire records a module dependency
func (m *Module) AddRequire(name string) {
	for _, r := range m.requires {
		if r == name {
			return
		}
	}

	m.requires = append(m.requires, name)
}

// DocumentationPath returns the documentation sidecar path and whether it
// has been looked for yet
func (m *Module) DocumentationPath() (string, bool) {
	return m.docPath, m.docsResolved
}

// SetDocumentationPath records the result of looking for the sidecar
func (m *Module) SetDocumentationPath(path string) {
	m.docPath = path
	m.docsResolved = true
}

// FreezeTypes freezes every open type declared in the module, including
// types declared in nested modules
func (m *Module) FreezeTypes() error {
	for _, s := range m.peekScope().Symbols() {
		switch v := s.(type) {
		case Type:
			if !v.IsFrozen() {
				if err := v.Freeze(); err != nil {
					return err
				}
			}
		case *Module:
			if err := v.FreezeTypes(); err != nil {
				return err
			}
		}
	}

	return nil
}
