package sem

import (
	"fmt"
	"math"

	"mu/gc"
)

// Value is a runtime value: a payload tagged with its type.  The zero Value
// (nil type) means "no value".
type Value struct {
	typ Type
	i   int64
	f   float64
	p   interface{}
}

// NoValue is the empty value returned by void functions
var NoValue = Value{}

// IntValue creates a value of an integral type
func IntValue(t Type, n int64) Value {
	mustRep(t, MachineRep.IsIntegral)
	return Value{typ: t, i: n}
}

// FloatValue creates a value of a floating point type
func FloatValue(t Type, x float64) Value {
	mustRep(t, MachineRep.IsFloating)
	if t.MachineRep() == RepFloat {
		x = float64(float32(x))
	}

	return Value{typ: t, f: x}
}

// BoolValue creates a value of a boolean type
func BoolValue(t Type, b bool) Value {
	mustRep(t, func(r MachineRep) bool { return r == RepBool })
	if b {
		return Value{typ: t, i: 1}
	}

	return Value{typ: t}
}

// PointerValue creates a value of a pointer represented type
func PointerValue(t Type, p interface{}) Value {
	mustRep(t, func(r MachineRep) bool { return r == RepPointer })
	return Value{typ: t, p: p}
}

// VoidValue creates the single value of a void type
func VoidValue(t Type) Value {
	mustRep(t, func(r MachineRep) bool { return r == RepVoid })
	return Value{typ: t}
}

// mustRep panics if t's rep is not accepted: a mismatched tag and payload is a
// bug in the caller
func mustRep(t Type, ok func(MachineRep) bool) {
	if t == nil || !ok(t.MachineRep()) {
		panic(fmt.Sprintf("sem: value payload does not match type %v", typeName(t)))
	}
}

func typeName(t Type) string {
	if t == nil {
		return "<nil>"
	}

	return t.QualifiedName()
}

// Type returns the value's type (nil for NoValue)
func (v Value) Type() Type {
	return v.typ
}

// IsNone reports whether the value is NoValue
func (v Value) IsNone() bool {
	return v.typ == nil
}

// Int returns the integral payload
func (v Value) Int() int64 {
	return v.i
}

// Float returns the floating point payload
func (v Value) Float() float64 {
	return v.f
}

// Bool returns the boolean payload
func (v Value) Bool() bool {
	return v.i != 0
}

// Pointer returns the pointer payload
func (v Value) Pointer() interface{} {
	return v.p
}

// Str returns the payload as a string, or "" if it is not one
func (v Value) Str() string {
	s, _ := v.p.(string)
	return s
}

// Number returns the payload as a float64 regardless of numeric rep
func (v Value) Number() float64 {
	if v.typ != nil && v.typ.MachineRep().IsFloating() {
		return v.f
	}

	return float64(v.i)
}

// Equal compares two values by type and payload.  Pointers are compared by
// identity except strings, which are compared by content.
func (v Value) Equal(o Value) bool {
	if v.typ != o.typ {
		return false
	}

	switch {
	case v.typ == nil:
		return true
	case v.typ.MachineRep().IsFloating():
		return v.f == o.f || (math.IsNaN(v.f) && math.IsNaN(o.f))
	case v.typ.MachineRep() == RepPointer:
		return v.p == o.p
	default:
		return v.i == o.i
	}
}

func (v Value) String() string {
	if v.typ == nil {
		return "(no value)"
	}

	return v.typ.Format(v)
}

// block returns the managed block referenced by the value, if any
func (v Value) block() *gc.Block {
	if m, ok := v.p.(Managed); ok {
		return m.Block()
	}

	return nil
}

// Managed is implemented by payloads stored in collector blocks
type Managed interface {
	Block() *gc.Block
}

// TraceValues visits the blocks referenced by a list of values
func TraceValues(values []Value, visit func(*gc.Block)) {
	for _, v := range values {
		TraceValue(v, visit)
	}
}

// TraceValue visits the block referenced by a single value.  The cell of a
// closed reference is traced through.
func TraceValue(v Value, visit func(*gc.Block)) {
	if b := v.block(); b != nil {
		visit(b)
	} else if r, ok := v.p.(*Reference); ok && r != nil && r.cell != nil {
		TraceValue(*r.cell, visit)
	}
}
