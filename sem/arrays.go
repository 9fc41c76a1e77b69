package sem

import (
	"errors"
	"strconv"
	"strings"

	"mu/gc"
)

// ErrMixedArrayDimensions is returned for array declarations that mix fixed
// and dynamic dimensions
var ErrMixedArrayDimensions = errors.New("array dimensions cannot mix fixed and dynamic sizes")

// ArrayType is implemented by both array type variants
type ArrayType interface {
	Type

	ElementType() Type
	Rank() int

	// Dimensions returns the fixed dimensions or nil for dynamic arrays
	Dimensions() []int
}

// arrayAtomic reports whether an array of elem holds no references
func arrayAtomic(elem Type) bool {
	return !holdsReferences(elem)
}

// FixedArrayType is an array whose dimensions are known when declared
type FixedArrayType struct {
	typeBase

	elem Type
	dims []int
}

func newFixedArrayType(elem Type, dims []int) *FixedArrayType {
	parts := make([]string, len(dims))
	for i, d := range dims {
		parts[i] = strconv.Itoa(d)
	}

	return &FixedArrayType{
		typeBase: typeBase{
			symbolBase: symbolBase{name: elem.QualifiedName() + "[" + strings.Join(parts, ",") + "]"},
			rep:        RepPointer,
			atomic:     arrayAtomic(elem),
			frozen:     true,
		},
		elem: elem,
		dims: append([]int(nil), dims...),
	}
}

func (at *FixedArrayType) ElementType() Type     { return at.elem }
func (at *FixedArrayType) Rank() int             { return len(at.dims) }
func (at *FixedArrayType) Dimensions() []int     { return at.dims }
func (at *FixedArrayType) QualifiedName() string { return at.name }

// Len returns the total number of elements
func (at *FixedArrayType) Len() int {
	n := 1
	for _, d := range at.dims {
		n *= d
	}

	return n
}

func (at *FixedArrayType) IsA(other Type) bool {
	return Type(at) == other
}

func (at *FixedArrayType) Format(v Value) string {
	return formatArray(v)
}

// DynamicArrayType is an array resizable at runtime
type DynamicArrayType struct {
	typeBase

	elem Type
	rank int
}

func newDynamicArrayType(elem Type, rank int) *DynamicArrayType {
	return &DynamicArrayType{
		typeBase: typeBase{
			symbolBase: symbolBase{name: elem.QualifiedName() + "[" + strings.Repeat(",", rank-1) + "]"},
			rep:        RepPointer,
			atomic:     arrayAtomic(elem),
			frozen:     true,
		},
		elem: elem,
		rank: rank,
	}
}

func (at *DynamicArrayType) ElementType() Type     { return at.elem }
func (at *DynamicArrayType) Rank() int             { return at.rank }
func (at *DynamicArrayType) Dimensions() []int     { return nil }
func (at *DynamicArrayType) QualifiedName() string { return at.name }

func (at *DynamicArrayType) IsA(other Type) bool {
	return Type(at) == other
}

func (at *DynamicArrayType) Format(v Value) string {
	return formatArray(v)
}

func formatArray(v Value) string {
	arr, ok := v.Pointer().(*Array)
	if !ok || arr == nil {
		return "nil"
	}

	sb := strings.Builder{}
	sb.WriteRune('[')
	for i, e := range arr.Elems {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(e.String())
	}
	sb.WriteRune(']')

	return sb.String()
}

// -----------------------------------------------------------------------------

// Array is an array instance stored in a collector block.  Multi-dimensional
// arrays are stored row major in Elems.
type Array struct {
	block *gc.Block
	typ   ArrayType

	Elems []Value
	Dims  []int
}

// Block returns the collector block holding the array
func (a *Array) Block() *gc.Block {
	if a == nil {
		return nil
	}

	return a.block
}

// Type returns the array's type
func (a *Array) Type() ArrayType {
	return a.typ
}

// Trace visits the blocks referenced by the array's elements
func (a *Array) Trace(visit func(*gc.Block)) {
	TraceValues(a.Elems, visit)
}

// Index converts multi-dimensional indices into an offset into Elems
func (a *Array) Index(indices ...int) (int, bool) {
	if len(indices) != len(a.Dims) {
		return 0, false
	}

	offset := 0
	for i, ix := range indices {
		if ix < 0 || ix >= a.Dims[i] {
			return 0, false
		}
		offset = offset*a.Dims[i] + ix
	}

	return offset, true
}

// Append grows a one dimensional dynamic array by one element
func (a *Array) Append(v Value) {
	a.Elems = append(a.Elems, v)
	a.Dims[0] = len(a.Elems)
}

// Resize sets the length of a one dimensional dynamic array, filling new
// elements with zero
func (a *Array) Resize(n int, zero Value) {
	switch {
	case n <= len(a.Elems):
		for i := n; i < len(a.Elems); i++ {
			a.Elems[i] = Value{}
		}
		a.Elems = a.Elems[:n]
	default:
		for len(a.Elems) < n {
			a.Elems = append(a.Elems, zero)
		}
	}

	a.Dims[0] = n
}
