package lang

import (
	"math"
	"strings"

	"mu/sem"
)

// arith implements a binary arithmetic operator over one numeric type
type arith struct {
	name        string
	commutative bool
	ints        func(a, b int64) (int64, error)
	floats      func(a, b float64) float64
}

var errDivideByZero = sem.NewException(sem.ExceptionRuntime, "division by zero")

func arithmetic() []arith {
	return []arith{
		{"+", true, func(a, b int64) (int64, error) { return a + b, nil }, func(a, b float64) float64 { return a + b }},
		{"-", false, func(a, b int64) (int64, error) { return a - b, nil }, func(a, b float64) float64 { return a - b }},
		{"*", true, func(a, b int64) (int64, error) { return a * b, nil }, func(a, b float64) float64 { return a * b }},
		{"/", false, func(a, b int64) (int64, error) {
			if b == 0 {
				return 0, errDivideByZero
			}
			return a / b, nil
		}, func(a, b float64) float64 { return a / b }},
		{"%", false, func(a, b int64) (int64, error) {
			if b == 0 {
				return 0, errDivideByZero
			}
			return a % b, nil
		}, math.Mod},
	}
}

// comparisons maps each comparison operator to its test on an ordering
var comparisons = map[string]func(c int) bool{
	"<":  func(c int) bool { return c == -1 },
	">":  func(c int) bool { return c == 1 },
	"<=": func(c int) bool { return c == -1 || c == 0 },
	">=": func(c int) bool { return c == 1 || c == 0 },
	"==": func(c int) bool { return c == 0 },
	"!=": func(c int) bool { return c != 0 },
}

// unordered is the result of comparing with NaN: only != holds
const unordered = 2

var comparisonOrder = []string{"<", ">", "<=", ">=", "==", "!="}

func compareNumbers(a, b sem.Value) int {
	if a.Type().MachineRep().IsFloating() {
		x, y := a.Float(), b.Float()
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		case x == y:
			return 0
		}

		return unordered
	}

	x, y := a.Int(), b.Int()
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	}

	return 0
}

func declareOperators(d *declarer) {
	ctx := d.ctx

	numeric := []*sem.PrimitiveType{ctx.Int, ctx.Int64, ctx.Float, ctx.Double}
	for _, t := range numeric {
		t := t

		for _, op := range arithmetic() {
			op := op

			attrs := sem.FnOperator | sem.FnPure
			if op.commutative {
				attrs |= sem.FnCommutative
			}

			d.native(op.name, t, attrs, func(ev sem.Evaluator, args []sem.Value) (sem.Value, error) {
				if t.MachineRep().IsFloating() {
					return sem.FloatValue(t, op.floats(args[0].Float(), args[1].Float())), nil
				}

				n, err := op.ints(args[0].Int(), args[1].Int())
				if err != nil {
					return sem.NoValue, err
				}

				return convertValue(sem.IntValue(ctx.Int64, n), t), nil
			}, sem.Param("a", t), sem.Param("b", t))
		}

		d.native("-", t, sem.FnOperator|sem.FnPure, func(ev sem.Evaluator, args []sem.Value) (sem.Value, error) {
			if t.MachineRep().IsFloating() {
				return sem.FloatValue(t, -args[0].Float()), nil
			}

			return convertValue(sem.IntValue(ctx.Int64, -args[0].Int()), t), nil
		}, sem.Param("a", t))
	}

	ordered := append(numeric, ctx.Char, ctx.Byte)
	for _, t := range ordered {
		declareComparisons(d, t, compareNumbers)
	}

	declareComparisons(d, ctx.String, func(a, b sem.Value) int {
		return strings.Compare(a.Str(), b.Str())
	})

	for _, name := range []string{"==", "!="} {
		test := comparisons[name]
		d.native(name, ctx.Bool, sem.FnOperator|sem.FnPure|sem.FnCommutative, func(ev sem.Evaluator, args []sem.Value) (sem.Value, error) {
			c := 1
			if args[0].Bool() == args[1].Bool() {
				c = 0
			}
			return sem.BoolValue(ctx.Bool, test(c)), nil
		}, sem.Param("a", ctx.Bool), sem.Param("b", ctx.Bool))
	}

	d.native("not", ctx.Bool, sem.FnOperator|sem.FnPure, func(ev sem.Evaluator, args []sem.Value) (sem.Value, error) {
		return sem.BoolValue(ctx.Bool, !args[0].Bool()), nil
	}, sem.Param("a", ctx.Bool))

	d.native("+", ctx.String, sem.FnOperator|sem.FnPure, func(ev sem.Evaluator, args []sem.Value) (sem.Value, error) {
		return str(ctx, args[0].Str()+args[1].Str()), nil
	}, sem.Param("a", ctx.String), sem.Param("b", ctx.String))
}

func declareComparisons(d *declarer, t sem.Type, compare func(a, b sem.Value) int) {
	ctx := d.ctx

	for _, name := range comparisonOrder {
		test := comparisons[name]

		attrs := sem.FnOperator | sem.FnPure
		if name == "==" || name == "!=" {
			attrs |= sem.FnCommutative
		}

		d.native(name, ctx.Bool, attrs, func(ev sem.Evaluator, args []sem.Value) (sem.Value, error) {
			return sem.BoolValue(ctx.Bool, test(compare(args[0], args[1]))), nil
		}, sem.Param("a", t), sem.Param("b", t))
	}
}
