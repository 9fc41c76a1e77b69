package sem

// ParameterVariable is one declared parameter of a function
type ParameterVariable struct {
	symbolBase

	typ        Type
	def        Value
	hasDefault bool
	slot       int
}

// Param creates a parameter without a default value
func Param(name string, t Type) *ParameterVariable {
	return &ParameterVariable{symbolBase: symbolBase{name: name}, typ: t}
}

// ParamDefault creates a parameter with a default value
func ParamDefault(name string, t Type, def Value) *ParameterVariable {
	return &ParameterVariable{symbolBase: symbolBase{name: name}, typ: t, def: def, hasDefault: true}
}

func (pv *ParameterVariable) Kind() SymbolKind { return KindParameter }

// Type returns the parameter's declared type
func (pv *ParameterVariable) Type() Type {
	return pv.typ
}

// Default returns the default value and whether there is one
func (pv *ParameterVariable) Default() (Value, bool) {
	return pv.def, pv.hasDefault
}

// Slot returns the parameter's index in its function's stack frame
func (pv *ParameterVariable) Slot() int {
	return pv.slot
}

// StackVariable is a local variable stored in a function's stack frame
type StackVariable struct {
	symbolBase

	typ  Type
	slot int
}

// NewStackVariable creates a local variable bound to a frame slot
func NewStackVariable(name string, t Type, slot int) *StackVariable {
	return &StackVariable{symbolBase: symbolBase{name: name}, typ: t, slot: slot}
}

func (sv *StackVariable) Kind() SymbolKind { return KindStackVariable }

// Type returns the variable's type
func (sv *StackVariable) Type() Type {
	return sv.typ
}

// Slot returns the variable's frame slot
func (sv *StackVariable) Slot() int {
	return sv.slot
}

// Constant is a named immutable value declared in a module
type Constant struct {
	symbolBase

	value Value
}

// NewConstant creates a constant symbol
func NewConstant(name string, v Value) *Constant {
	return &Constant{symbolBase: symbolBase{name: name}, value: v}
}

func (c *Constant) Kind() SymbolKind { return KindConstant }

// Value returns the constant's value
func (c *Constant) Value() Value {
	return c.value
}

// Type returns the constant's type
func (c *Constant) Type() Type {
	return c.value.Type()
}
