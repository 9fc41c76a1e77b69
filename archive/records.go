package archive

import "mu/sem"

// Archive is the decoded content of a `.muc` file.  Symbols are referred to by
// qualified name and types by the names sem.Context.LookupType understands so
// that an archive can be reinstalled into a fresh context.
type Archive struct {
	Version string
	Module  string

	// Source is the file the archive was compiled from
	Source string

	Requires []string

	// Decls are stored in declaration order: every record only refers to
	// symbols declared before it (or to itself)
	Decls []*Decl

	// Init are the top level expressions of the module
	Init []*Decl

	// InitAt gives the number of Decls that precede each Init record.  The
	// calls of an expression bind the overloads visible at that point.
	InitAt []int
}

// initPosition returns how many decls precede the i-th init record.  Records
// without a position follow every decl.
func (a *Archive) initPosition(i int) int {
	if i < len(a.InitAt) && a.InitAt[i] >= 0 && a.InitAt[i] <= len(a.Decls) {
		return a.InitAt[i]
	}

	return len(a.Decls)
}

// DeclKind identifies the kind of symbol a Decl records
type DeclKind int

const (
	DeclFunction DeclKind = iota
	DeclClass
	DeclInterface
	DeclVariant
	DeclConstant
)

func (k DeclKind) String() string {
	switch k {
	case DeclFunction:
		return "function"
	case DeclClass:
		return "class"
	case DeclInterface:
		return "interface"
	case DeclVariant:
		return "variant"
	default:
		return "constant"
	}
}

// Decl is one declared symbol.  Which fields are used depends on Kind.
type Decl struct {
	Kind DeclKind
	Name string

	// Owner is the type a function is declared in ("" for the module)
	Owner string

	// functions
	Returns   string
	Attrs     uint64
	Params    []*Field
	Body      *NodeRecord
	StackSize int

	// classes list their supers (classes and interfaces) and fields;
	// variants list their tags with an empty Type for tags without payload
	Supers []string
	Fields []*Field

	// interfaces
	Required []string

	// constants
	Value *ValueRecord
}

// Field is a named, typed slot: a parameter, a class field or a variant tag
type Field struct {
	Name    string
	Type    string
	Default *ValueRecord
}

// NodeRecord is a serialized sem.Node
type NodeRecord struct {
	Kind sem.NodeKind

	// Symbol names the function, class, member owner, tag or caught type
	Symbol string

	// Signature selects the overload of a function symbol
	Signature string

	// Member is the field name of field nodes
	Member string

	Type string
	Slot int
	Args []*NodeRecord
	Data *ValueRecord
}

// ValueKind identifies how a value's payload is stored
type ValueKind int

const (
	ValueNone ValueKind = iota
	ValueInt
	ValueFloat
	ValueString
	ValueZero
)

// ValueRecord is a serialized literal value
type ValueRecord struct {
	Kind  ValueKind
	Type  string
	Int   int64
	Float float64
	Str   string
}
