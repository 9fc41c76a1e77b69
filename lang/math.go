package lang

import (
	"math"

	"mu/sem"
)

// DeclareMath creates the native `math` module as name in the root scope
func DeclareMath(ctx *sem.Context, name string) (*sem.Module, error) {
	mod := sem.NewModule(name)
	mod.SetOrigin("", sem.ProvenanceNative)
	mod.SetDoc("Floating point math functions")

	if err := ctx.AddSymbol(nil, mod); err != nil {
		return nil, err
	}

	d := &declarer{ctx: ctx, owner: mod}

	unary := map[string]func(float64) float64{
		"sqrt":  math.Sqrt,
		"sin":   math.Sin,
		"cos":   math.Cos,
		"tan":   math.Tan,
		"exp":   math.Exp,
		"log":   math.Log,
		"floor": math.Floor,
		"ceil":  math.Ceil,
		"abs":   math.Abs,
	}

	for _, fname := range []string{"sqrt", "sin", "cos", "tan", "exp", "log", "floor", "ceil", "abs"} {
		fn := unary[fname]
		d.native(fname, ctx.Double, sem.FnPure, func(ev sem.Evaluator, args []sem.Value) (sem.Value, error) {
			return sem.FloatValue(ctx.Double, fn(args[0].Float())), nil
		}, sem.Param("x", ctx.Double))
	}

	d.native("abs", ctx.Int, sem.FnPure, func(ev sem.Evaluator, args []sem.Value) (sem.Value, error) {
		n := args[0].Int()
		if n < 0 {
			n = -n
		}
		return sem.IntValue(ctx.Int, n), nil
	}, sem.Param("x", ctx.Int))

	d.native("pow", ctx.Double, sem.FnPure, func(ev sem.Evaluator, args []sem.Value) (sem.Value, error) {
		return sem.FloatValue(ctx.Double, math.Pow(args[0].Float(), args[1].Float())), nil
	}, sem.Param("x", ctx.Double), sem.Param("y", ctx.Double))

	for cname, v := range map[string]float64{"pi": math.Pi, "e": math.E} {
		if d.err == nil {
			d.err = ctx.AddSymbol(mod, sem.NewConstant(cname, sem.FloatValue(ctx.Double, v)))
		}
	}

	if d.err != nil {
		return nil, d.err
	}

	return mod, nil
}
