package lang

import (
	"math"

	"mu/sem"
)

// castSpec describes one primitive conversion
type castSpec struct {
	from, to *sem.PrimitiveType
	lossy    bool
}

func primitiveCasts(ctx *sem.Context) []castSpec {
	return []castSpec{
		{ctx.Byte, ctx.Short, false},
		{ctx.Short, ctx.Int, false},
		{ctx.Char, ctx.Int, false},
		{ctx.Int, ctx.Int64, false},
		{ctx.Int, ctx.Float, false},
		{ctx.Int, ctx.Double, false},
		{ctx.Float, ctx.Double, false},
		{ctx.Int64, ctx.Double, false},

		{ctx.Double, ctx.Float, true},
		{ctx.Float, ctx.Int, true},
		{ctx.Double, ctx.Int, true},
		{ctx.Int64, ctx.Int, true},
		{ctx.Int, ctx.Short, true},
		{ctx.Int, ctx.Byte, true},
		{ctx.Int, ctx.Char, true},
	}
}

// declareCasts adds each primitive conversion to the scope of its target type
// under the target's name, so `(double x)` converts explicitly
func declareCasts(d *declarer) {
	for _, c := range primitiveCasts(d.ctx) {
		attrs := sem.FnCast | sem.FnPure
		if c.lossy {
			attrs |= sem.FnLossy
		}

		f, err := sem.NewNativeFunction(c.to.Name(), c.to, convertTo(c.to), attrs, sem.Param("value", c.from))
		d.add(c.to, f, err)
	}
}

// convertTo converts any primitive numeric value to target
func convertTo(target *sem.PrimitiveType) sem.NativeFunc {
	return func(ev sem.Evaluator, args []sem.Value) (sem.Value, error) {
		return convertValue(args[0], target), nil
	}
}

func convertValue(v sem.Value, target *sem.PrimitiveType) sem.Value {
	rep := target.MachineRep()
	switch {
	case rep == sem.RepBool:
		return sem.BoolValue(target, v.Number() != 0)
	case rep.IsFloating():
		return sem.FloatValue(target, v.Number())
	}

	var n int64
	if v.Type().MachineRep().IsFloating() {
		f := v.Float()
		switch {
		case math.IsNaN(f):
			n = 0
		case f >= math.MaxInt64:
			n = math.MaxInt64
		case f <= math.MinInt64:
			n = math.MinInt64
		default:
			n = int64(f)
		}
	} else {
		n = v.Int()
	}

	switch rep {
	case sem.RepByte:
		n = int64(uint8(n))
	case sem.RepShort:
		n = int64(int16(n))
	case sem.RepInt, sem.RepChar:
		n = int64(int32(n))
	}

	return sem.IntValue(target, n)
}
