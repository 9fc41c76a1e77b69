package sem

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// MachineRep is the machine representation used to store a type's values
type MachineRep int

const (
	RepVoid MachineRep = iota
	RepBool
	RepByte
	RepChar
	RepShort
	RepInt
	RepInt64
	RepFloat
	RepDouble
	RepPointer
)

// IsIntegral reports whether values of the rep are stored as integers
func (r MachineRep) IsIntegral() bool {
	switch r {
	case RepBool, RepByte, RepChar, RepShort, RepInt, RepInt64:
		return true
	}

	return false
}

// IsFloating reports whether values of the rep are stored as floats
func (r MachineRep) IsFloating() bool {
	return r == RepFloat || r == RepDouble
}

// Type describes the shape of a value
type Type interface {
	Symbol

	MachineRep() MachineRep

	// IsAtomic reports whether instances of the type hold no references to
	// managed blocks.  Atomic objects are allocated without scanning.
	IsAtomic() bool

	IsFrozen() bool
	Freeze() error

	// IsA reports whether a value of this type can be used where other is
	// expected without conversion
	IsA(other Type) bool

	// Format renders a value of the type for display
	Format(v Value) string
}

// typeBase implements the parts of Type shared by every type
type typeBase struct {
	symbolBase

	rep    MachineRep
	atomic bool
	frozen bool
}

func (tb *typeBase) Kind() SymbolKind       { return KindType }
func (tb *typeBase) MachineRep() MachineRep { return tb.rep }
func (tb *typeBase) IsAtomic() bool         { return tb.atomic }
func (tb *typeBase) IsFrozen() bool         { return tb.frozen }

func (tb *typeBase) Freeze() error {
	tb.frozen = true
	return nil
}

// ErrFrozen is returned when a frozen type is modified
var ErrFrozen = errors.New("type is frozen")

// holdsReferences reports whether storing a value of t in an object makes that
// object non-atomic
func holdsReferences(t Type) bool {
	return t.MachineRep() == RepPointer || !t.IsAtomic()
}

// -----------------------------------------------------------------------------

// PrimitiveType is a builtin scalar type
type PrimitiveType struct {
	typeBase
}

// NewPrimitiveType creates a frozen primitive type
func NewPrimitiveType(name string, rep MachineRep) *PrimitiveType {
	return &PrimitiveType{typeBase{
		symbolBase: symbolBase{name: name},
		rep:        rep,
		atomic:     rep != RepPointer,
		frozen:     true,
	}}
}

func (pt *PrimitiveType) IsA(other Type) bool {
	return Type(pt) == other
}

func (pt *PrimitiveType) Format(v Value) string {
	switch pt.rep {
	case RepVoid:
		return "(void)"
	case RepBool:
		return strconv.FormatBool(v.Bool())
	case RepChar:
		return string(rune(v.Int()))
	case RepFloat:
		return strconv.FormatFloat(v.Float(), 'g', -1, 32)
	case RepDouble:
		return strconv.FormatFloat(v.Float(), 'g', -1, 64)
	case RepPointer:
		if s, ok := v.Pointer().(string); ok {
			return s
		}
		return fmt.Sprintf("<%s>", pt.name)
	default:
		return strconv.FormatInt(v.Int(), 10)
	}
}

// -----------------------------------------------------------------------------

// PatternType matches a family of types.  Pattern types only appear as
// parameter types of builtin generic functions.
type PatternType struct {
	typeBase

	match func(t Type) bool
}

// NewPatternType creates a pattern type using match to accept argument types
func NewPatternType(name string, match func(t Type) bool) *PatternType {
	return &PatternType{
		typeBase: typeBase{symbolBase: symbolBase{name: name}, rep: RepPointer, frozen: true},
		match:    match,
	}
}

// Matches reports whether t belongs to the pattern's family
func (pt *PatternType) Matches(t Type) bool {
	return t != nil && pt.match(t)
}

func (pt *PatternType) IsA(other Type) bool {
	return Type(pt) == other
}

func (pt *PatternType) Format(v Value) string {
	return "<" + pt.name + ">"
}

// -----------------------------------------------------------------------------

// ReferenceType is a mutable alias to a storage location of another type
type ReferenceType struct {
	typeBase

	target Type
}

// Target returns the referenced type
func (rt *ReferenceType) Target() Type {
	return rt.target
}

func (rt *ReferenceType) QualifiedName() string {
	return rt.target.QualifiedName() + "&"
}

func (rt *ReferenceType) IsA(other Type) bool {
	return Type(rt) == other
}

func (rt *ReferenceType) Format(v Value) string {
	if r, ok := v.Pointer().(*Reference); ok {
		return rt.target.Format(r.Load())
	}

	return "<" + rt.name + ">"
}

// Reference is the payload of a reference value.  A reference to a frame slot
// is closed when the frame returns: from then on it owns a cell holding the
// last value of the slot.
type Reference struct {
	Load  func() Value
	Store func(Value)

	cell *Value
}

// Close detaches the reference from the location it aliases
func (r *Reference) Close() {
	if r.cell != nil {
		return
	}

	v := r.Load()
	r.cell = &v
	r.Load = func() Value { return *r.cell }
	r.Store = func(v Value) { *r.cell = v }
}

// NewCellReference creates a closed reference holding v
func NewCellReference(v Value) *Reference {
	r := &Reference{Load: func() Value { return v }}
	r.Close()
	return r
}

// IsClosed reports whether the reference owns its own cell
func (r *Reference) IsClosed() bool {
	return r.cell != nil
}

// -----------------------------------------------------------------------------

// FunctionType is the type of first class function values
type FunctionType struct {
	typeBase

	returnType Type
	argTypes   []Type
}

// ReturnType returns the function type's return type
func (ft *FunctionType) ReturnType() Type {
	return ft.returnType
}

// ArgTypes returns the function type's argument types
func (ft *FunctionType) ArgTypes() []Type {
	return ft.argTypes
}

func (ft *FunctionType) QualifiedName() string {
	return signatureName(ft.returnType, ft.argTypes, true)
}

func (ft *FunctionType) IsA(other Type) bool {
	return Type(ft) == other
}

func (ft *FunctionType) Format(v Value) string {
	if f, ok := v.Pointer().(*Function); ok {
		return "<function " + f.QualifiedName() + f.Signature() + ">"
	}

	return "<function nil>"
}

// signatureName renders `(ret;a,b)`
func signatureName(ret Type, args []Type, qualified bool) string {
	name := func(t Type) string {
		if t == nil {
			return "?"
		}
		if qualified {
			return t.QualifiedName()
		}
		return t.Name()
	}

	sb := strings.Builder{}
	sb.WriteRune('(')
	sb.WriteString(name(ret))
	sb.WriteRune(';')
	for i, a := range args {
		if i > 0 {
			sb.WriteRune(',')
		}
		sb.WriteString(name(a))
	}
	sb.WriteRune(')')

	return sb.String()
}
