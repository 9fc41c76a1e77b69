package sem

import (
	"fmt"

	"mu/gc"
)

// VariantType is a tagged union: values hold exactly one of its tags along
// with that tag's payload.
type VariantType struct {
	typeBase

	tags []*VariantTagType
}

// NewVariantType creates an open variant type
func NewVariantType(name string) *VariantType {
	return &VariantType{typeBase: typeBase{symbolBase: symbolBase{name: name}, rep: RepPointer}}
}

// AddTag declares a new tag carrying a payload of type payload (nil for no
// payload)
func (vt *VariantType) AddTag(name string, payload Type) (*VariantTagType, error) {
	if vt.frozen {
		return nil, fmt.Errorf("cannot add tag `%s` to variant `%s`: %w", name, vt.QualifiedName(), ErrFrozen)
	}

	if vt.Scope().Has(name) {
		return nil, fmt.Errorf("variant `%s` already has a tag named `%s`", vt.QualifiedName(), name)
	}

	tag := &VariantTagType{
		typeBase: typeBase{symbolBase: symbolBase{name: name, owner: vt}, rep: RepPointer, frozen: true},
		variant:  vt,
		payload:  payload,
		index:    len(vt.tags),
	}
	tag.atomic = payload == nil || !holdsReferences(payload)

	vt.tags = append(vt.tags, tag)
	vt.Scope().insert(tag)
	return tag, nil
}

// Tags returns the variant's tags in declaration order
func (vt *VariantType) Tags() []*VariantTagType {
	return vt.tags
}

// Tag finds a tag by name
func (vt *VariantType) Tag(name string) *VariantTagType {
	for _, t := range vt.tags {
		if t.name == name {
			return t
		}
	}

	return nil
}

// Freeze finalizes the variant: no more tags may be added
func (vt *VariantType) Freeze() error {
	atomic := true
	for _, t := range vt.tags {
		atomic = atomic && t.atomic
	}

	vt.atomic = atomic
	vt.frozen = true
	return nil
}

func (vt *VariantType) IsA(other Type) bool {
	return Type(vt) == other
}

func (vt *VariantType) Format(v Value) string {
	inst, ok := v.Pointer().(*VariantInstance)
	if !ok || inst == nil {
		return "nil"
	}

	if inst.tag.payload == nil {
		return inst.tag.name
	}

	return inst.tag.name + "(" + inst.payload.String() + ")"
}

// VariantTagType is one alternative of a variant
type VariantTagType struct {
	typeBase

	variant *VariantType
	payload Type
	index   int
}

// Variant returns the variant the tag belongs to
func (tt *VariantTagType) Variant() *VariantType {
	return tt.variant
}

// Payload returns the tag's payload type or nil
func (tt *VariantTagType) Payload() Type {
	return tt.payload
}

// Index returns the tag's position in its variant
func (tt *VariantTagType) Index() int {
	return tt.index
}

func (tt *VariantTagType) IsA(other Type) bool {
	return Type(tt) == other || Type(tt.variant) == other
}

func (tt *VariantTagType) Format(v Value) string {
	return tt.variant.Format(v)
}

// VariantInstance is a variant value stored in a collector block
type VariantInstance struct {
	block   *gc.Block
	tag     *VariantTagType
	payload Value
}

// Block returns the collector block holding the instance
func (vi *VariantInstance) Block() *gc.Block {
	if vi == nil {
		return nil
	}

	return vi.block
}

// Tag returns the active tag
func (vi *VariantInstance) Tag() *VariantTagType {
	return vi.tag
}

// Get returns the payload if tag is the active tag.  Any other tag is a bad
// cast.
func (vi *VariantInstance) Get(tag *VariantTagType) (Value, error) {
	if vi.tag != tag {
		return NoValue, NewException(ExceptionBadCast, "variant holds `%s`, not `%s`", vi.tag.QualifiedName(), tag.QualifiedName())
	}

	return vi.payload, nil
}

// Trace visits the block referenced by the payload
func (vi *VariantInstance) Trace(visit func(*gc.Block)) {
	TraceValue(vi.payload, visit)
}
