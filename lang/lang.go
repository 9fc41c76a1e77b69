package lang

import (
	"fmt"

	"mu/sem"
)

// declarer adds builtin functions to a scope and keeps the first error
type declarer struct {
	ctx   *sem.Context
	owner sem.Symbol
	err   error
}

func (d *declarer) add(owner sem.Symbol, f *sem.Function, err error) *sem.Function {
	if d.err != nil {
		return nil
	}

	if err != nil {
		d.err = err
		return nil
	}

	if err := d.ctx.AddSymbol(owner, f); err != nil {
		d.err = fmt.Errorf("declaring builtin `%s`: %w", f.Name(), err)
		return nil
	}

	return f
}

// native declares a native function in the declarer's scope
func (d *declarer) native(name string, ret sem.Type, attrs sem.Attributes, fn sem.NativeFunc, params ...*sem.ParameterVariable) *sem.Function {
	f, err := sem.NewNativeFunction(name, ret, fn, attrs, params...)
	return d.add(d.owner, f, err)
}

// control declares a control construct in the declarer's scope
func (d *declarer) control(name string, ret sem.Type, attrs sem.Attributes, fn sem.NodeFunc, params ...*sem.ParameterVariable) *sem.Function {
	f, err := sem.NewControlFunction(name, ret, fn, attrs, params...)
	return d.add(d.owner, f, err)
}

// repeat lets the last parameter of f repeat up to n arguments
func (d *declarer) repeat(f *sem.Function, n int) {
	if f == nil || d.err != nil {
		return
	}

	d.err = f.SetMaximumArgs(n)
}

// maxRepeats is the argument limit of variadic builtins
const maxRepeats = 32

// Declare adds the base language to the root scope of ctx: casts between the
// primitive types, operators, control constructs, array and string functions
// and printing
func Declare(ctx *sem.Context) error {
	d := &declarer{ctx: ctx, owner: ctx.Root()}

	declareCasts(d)
	declareOperators(d)
	declareControl(d)
	declareArrays(d)
	declareStrings(d)

	return d.err
}

// str creates a string value
func str(ctx *sem.Context, s string) sem.Value {
	return sem.PointerValue(ctx.String, s)
}
