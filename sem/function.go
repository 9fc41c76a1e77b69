package sem

import (
	"fmt"
	"strings"
)

// Attributes is the attribute bitset of a function
type Attributes uint32

const (
	FnOperator Attributes = 1 << iota
	FnMemberOperator
	FnCommutative
	FnCast
	FnLossy
	FnMapped
	FnNoSideEffects
	FnContextDependent
	FnNative
	FnNonNative
	FnRetaining
	FnDynamicActivation
	FnLambdaExpression
	FnHiddenArgument
	FnDependentSideEffects
	FnNativeInlined
	FnGenerated

	FnNone      Attributes = 0
	FnPure                 = FnNoSideEffects | FnMapped
	FnMaybePure            = FnDependentSideEffects | FnMapped
)

var attributeNames = []string{
	"operator", "member-operator", "commutative", "cast", "lossy", "mapped",
	"no-side-effects", "context-dependent", "native", "non-native", "retaining",
	"dynamic-activation", "lambda", "hidden-argument", "dependent-side-effects",
	"native-inlined", "generated",
}

func (a Attributes) String() string {
	var names []string
	for i, name := range attributeNames {
		if a&(1<<i) != 0 {
			names = append(names, name)
		}
	}

	return strings.Join(names, "|")
}

// NativeFunc implements a native function.  args has already been filled
// with defaults and converted to the parameter types.
type NativeFunc func(ev Evaluator, args []Value) (Value, error)

// implKind is the permanent implementation choice of a function
type implKind int

const (
	implNative implKind = iota
	implInterpreted
)

// Function is a callable signature together with its implementation: either
// a native Go function or an interpreted node tree.
type Function struct {
	symbolBase

	returnType Type
	params     []*ParameterVariable
	attrs      Attributes

	minArgs      int
	requiredArgs int
	maxArgs      int
	repeats      bool

	impl      implKind
	native    NativeFunc
	control   NodeFunc
	body      *Node
	stackSize int

	resultType func(args []Type) Type
}

// NewNativeFunction creates a natively implemented function.  The function
// is marked FnNative unless FnNonNative is given.
func NewNativeFunction(name string, ret Type, fn NativeFunc, attrs Attributes, params ...*ParameterVariable) (*Function, error) {
	if attrs&FnNonNative == 0 {
		attrs |= FnNative
	}

	f := &Function{
		symbolBase: symbolBase{name: name},
		returnType: ret,
		params:     params,
		attrs:      attrs,
		impl:       implNative,
		native:     fn,
	}

	return f, f.init()
}

// NewControlFunction creates a native function that receives its argument
// nodes unevaluated.  This is how short-circuiting constructs are built.
func NewControlFunction(name string, ret Type, control NodeFunc, attrs Attributes, params ...*ParameterVariable) (*Function, error) {
	f, err := NewNativeFunction(name, ret, nil, attrs, params...)
	if err != nil {
		return nil, err
	}

	f.control = control
	return f, nil
}

// NewFunction creates an interpreted function.  Its body is attached with
// SetBody, possibly after the function is added to a scope so that it can
// call itself.
func NewFunction(name string, ret Type, attrs Attributes, params ...*ParameterVariable) (*Function, error) {
	f := &Function{
		symbolBase: symbolBase{name: name},
		returnType: ret,
		params:     params,
		attrs:      attrs,
		impl:       implInterpreted,
		stackSize:  len(params),
	}

	return f, f.init()
}

// init computes argument counts and parameter slots
func (f *Function) init() error {
	f.minArgs = len(f.params)
	for i, p := range f.params {
		if p == nil || p.typ == nil {
			return fmt.Errorf("parameter %d of `%s` has no type", i, f.name)
		}

		p.slot = i
		p.owner = f

		if p.hasDefault {
			if f.minArgs == len(f.params) {
				f.minArgs = i
			}

			if p.def.Type() != nil && p.def.Type() != p.typ {
				return fmt.Errorf("default value of parameter `%s` of `%s` is not a `%s`", p.name, f.name, p.typ.QualifiedName())
			}
		} else if f.minArgs != len(f.params) {
			return fmt.Errorf("parameter `%s` of `%s` follows a parameter with a default value", p.name, f.name)
		}
	}

	f.requiredArgs = len(f.params)
	f.maxArgs = len(f.params)
	return nil
}

// SetMaximumArgs allows the last parameter to repeat until n arguments are
// given
func (f *Function) SetMaximumArgs(n int) error {
	if len(f.params) == 0 || n < len(f.params) {
		return fmt.Errorf("invalid maximum argument count %d for `%s`", n, f.name)
	}

	f.maxArgs = n
	f.repeats = n > len(f.params)
	return nil
}

// SetBody attaches the node tree of an interpreted function.  stackSize is the
// number of frame slots needed for parameters and locals.
func (f *Function) SetBody(body *Node, stackSize int) error {
	if f.impl != implInterpreted {
		return fmt.Errorf("cannot attach a body to native function `%s`", f.QualifiedName())
	}

	if stackSize < len(f.params) {
		return fmt.Errorf("stack size %d of `%s` cannot hold its %d parameters", stackSize, f.QualifiedName(), len(f.params))
	}

	f.body = body
	f.stackSize = stackSize
	return nil
}

// SetResultType installs a hook computing the result type of a call from its
// argument types (used by pattern typed builtins)
func (f *Function) SetResultType(fn func(args []Type) Type) {
	f.resultType = fn
}

// ResultType returns the type a call with the given argument types produces
func (f *Function) ResultType(args []Type) Type {
	if f.resultType != nil {
		if t := f.resultType(args); t != nil {
			return t
		}
	}

	return f.returnType
}

func (f *Function) Kind() SymbolKind { return KindFunction }

func (f *Function) ReturnType() Type              { return f.returnType }
func (f *Function) Params() []*ParameterVariable  { return f.params }
func (f *Function) NumArgs() int                  { return len(f.params) }
func (f *Function) MinimumArgs() int              { return f.minArgs }
func (f *Function) RequiredArgs() int             { return f.requiredArgs }
func (f *Function) MaximumArgs() int              { return f.maxArgs }
func (f *Function) Attributes() Attributes        { return f.attrs }
func (f *Function) Has(a Attributes) bool         { return f.attrs&a == a }
func (f *Function) Native() NativeFunc            { return f.native }
func (f *Function) Control() NodeFunc             { return f.control }
func (f *Function) Body() *Node                   { return f.body }
func (f *Function) StackSize() int                { return f.stackSize }
func (f *Function) IsInterpreted() bool           { return f.impl == implInterpreted }
func (f *Function) IsNative() bool                { return f.attrs&FnNative != 0 }
func (f *Function) IsOperator() bool              { return f.attrs&FnOperator != 0 }
func (f *Function) IsCast() bool                  { return f.attrs&FnCast != 0 }
func (f *Function) IsLossy() bool                 { return f.attrs&FnLossy != 0 }
func (f *Function) IsCommutative() bool           { return f.attrs&FnCommutative != 0 }
func (f *Function) IsGenerated() bool             { return f.attrs&FnGenerated != 0 }
func (f *Function) HasSideEffects() bool          { return f.attrs&FnNoSideEffects == 0 }
func (f *Function) HasDependentSideEffects() bool { return f.attrs&FnDependentSideEffects != 0 }

// IsPure reports whether calls can be evaluated ahead of time given constant
// arguments
func (f *Function) IsPure() bool {
	return f.attrs&FnMapped != 0 && !f.HasSideEffects() && !f.HasDependentSideEffects()
}

// ArgType returns the parameter type expected at argument position i.  A
// repeating last parameter covers positions beyond the declared list.
func (f *Function) ArgType(i int) Type {
	switch {
	case i < len(f.params):
		return f.params[i].typ
	case f.repeats && len(f.params) > 0:
		return f.params[len(f.params)-1].typ
	default:
		return nil
	}
}

// ArgTypes returns the declared parameter types
func (f *Function) ArgTypes() []Type {
	types := make([]Type, len(f.params))
	for i, p := range f.params {
		types[i] = p.typ
	}

	return types
}

// Signature renders the function's signature as `(ret;a,b)` using qualified
// type names
func (f *Function) Signature() string {
	return signatureName(f.returnType, f.ArgTypes(), true)
}

// Matches reports whether other has the same name, return type and argument
// types
func (f *Function) Matches(other *Function) bool {
	if f.name != other.name || len(f.params) != len(other.params) {
		return false
	}

	if typeName(f.returnType) != typeName(other.returnType) {
		return false
	}

	for i, p := range f.params {
		if typeName(p.typ) != typeName(other.params[i].typ) {
			return false
		}
	}

	return true
}

// FillDefaults completes an argument list with the defaults of the missing
// trailing parameters
func (f *Function) FillDefaults(args []Value) ([]Value, error) {
	if len(args) < f.minArgs || len(args) > f.maxArgs {
		return nil, NewException(ExceptionWrongArgCount, "`%s` expects %s arguments, got %d", f.QualifiedName(), f.countRange(), len(args))
	}

	if len(args) >= len(f.params) {
		return args, nil
	}

	filled := make([]Value, len(f.params))
	copy(filled, args)
	for i := len(args); i < len(f.params); i++ {
		def, ok := f.params[i].Default()
		if !ok {
			return nil, NewException(ExceptionBadArgument, "missing argument `%s` of `%s` has no default", f.params[i].name, f.QualifiedName())
		}

		filled[i] = def
	}

	return filled, nil
}

// countRange describes the accepted argument counts
func (f *Function) countRange() string {
	if f.minArgs == f.maxArgs {
		return fmt.Sprint(f.minArgs)
	}

	return fmt.Sprintf("%d to %d", f.minArgs, f.maxArgs)
}
