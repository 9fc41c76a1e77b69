package sem

import (
	"fmt"

	"mu/gc"
)

// valueSize is the size accounted per value slot of an allocation
const valueSize = 24

// allocate requests a block from the collector's current back-end
func (c *Context) allocate(atomic bool, slots int) *gc.Block {
	api := c.gc.API()
	if atomic {
		return api.AllocateAtomic(slots * valueSize)
	}

	return api.Allocate(slots * valueSize)
}

// ZeroValue returns the default value of a type
func (c *Context) ZeroValue(t Type) Value {
	if t == nil {
		return NoValue
	}

	// pointer types zero to an untyped nil payload
	if t == Type(c.String) {
		return PointerValue(t, "")
	}

	return Value{typ: t}
}

// NewObject allocates an instance of class with zeroed fields.  The class is
// frozen first if it is still open.  Atomic classes are allocated without
// scanning.
func (c *Context) NewObject(class *Class) (*Object, error) {
	if err := class.Freeze(); err != nil {
		return nil, err
	}

	obj := &Object{class: class, Fields: make([]Value, len(class.fields))}
	for i, f := range class.fields {
		obj.Fields[i] = c.ZeroValue(f.typ)
	}

	obj.block = c.allocate(class.IsAtomic(), len(obj.Fields))
	obj.block.Payload = obj
	return obj, nil
}

// NewArray allocates an array of type t with the given dimensions filled with
// zero values
func (c *Context) NewArray(t ArrayType, dims []int) *Array {
	n := 1
	for _, d := range dims {
		n *= d
	}

	arr := &Array{typ: t, Elems: make([]Value, n), Dims: append([]int(nil), dims...)}
	zero := c.ZeroValue(t.ElementType())
	for i := range arr.Elems {
		arr.Elems[i] = zero
	}

	arr.block = c.allocate(t.IsAtomic(), n)
	arr.block.Payload = arr
	return arr
}

// NewVariant allocates a variant value holding tag and payload
func (c *Context) NewVariant(tag *VariantTagType, payload Value) (Value, error) {
	if tag.payload == nil {
		payload = NoValue
	} else if payload.Type() == nil || !payload.Type().IsA(tag.payload) {
		return NoValue, NewException(ExceptionBadCast, "`%s` expects a `%s` payload, got `%s`",
			tag.QualifiedName(), tag.payload.QualifiedName(), typeName(payload.Type()))
	}

	inst := &VariantInstance{tag: tag, payload: payload}
	inst.block = c.allocate(tag.atomic, 1)
	inst.block.Payload = inst
	return PointerValue(tag.variant, inst), nil
}

// -----------------------------------------------------------------------------

// AddDefaultConstructor freezes class and declares a generated constructor in
// its scope taking one argument per field
func (c *Context) AddDefaultConstructor(class *Class) (*Function, error) {
	if err := class.Freeze(); err != nil {
		return nil, err
	}

	params := make([]*ParameterVariable, len(class.fields))
	for i, f := range class.fields {
		params[i] = ParamDefault(f.name, f.typ, c.ZeroValue(f.typ))
	}

	ctor, err := NewNativeFunction(class.name, class, func(ev Evaluator, args []Value) (Value, error) {
		obj, err := ev.Context().NewObject(class)
		if err != nil {
			return NoValue, err
		}

		copy(obj.Fields, args)
		return PointerValue(class, obj), nil
	}, FnGenerated|FnMapped, params...)
	if err != nil {
		return nil, err
	}

	if err := c.AddSymbol(class, ctor); err != nil {
		return nil, fmt.Errorf("declaring constructor of `%s`: %w", class.QualifiedName(), err)
	}

	return ctor, nil
}

// AddVariantConstructors freezes the variant and declares a generated
// constructor for each tag in the tag's scope
func (c *Context) AddVariantConstructors(vt *VariantType) error {
	if err := vt.Freeze(); err != nil {
		return err
	}

	for _, tag := range vt.tags {
		tag := tag

		var params []*ParameterVariable
		if tag.payload != nil {
			params = append(params, Param("value", tag.payload))
		}

		ctor, err := NewNativeFunction(tag.name, vt, func(ev Evaluator, args []Value) (Value, error) {
			payload := NoValue
			if len(args) > 0 {
				payload = args[0]
			}

			return ev.Context().NewVariant(tag, payload)
		}, FnGenerated|FnMapped, params...)
		if err != nil {
			return err
		}

		if err := c.AddSymbol(tag, ctor); err != nil {
			return fmt.Errorf("declaring constructor of `%s`: %w", tag.QualifiedName(), err)
		}
	}

	return nil
}

// Constructors returns the functions that construct or convert to t: the
// functions in t's scope sharing its name
func (c *Context) Constructors(t Type) []*Function {
	var out []*Function
	for _, s := range t.base().peekScope().Overloads(t.Name()) {
		if f, ok := s.(*Function); ok {
			out = append(out, f)
		}
	}

	return out
}
