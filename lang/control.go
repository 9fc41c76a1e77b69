package lang

import (
	"mu/sem"
)

// branchType is the result type of a conditional: the type of its branches
// if they agree, otherwise any value
func branchType(anyType sem.Type) func(args []sem.Type) sem.Type {
	return func(args []sem.Type) sem.Type {
		if len(args) < 2 {
			return nil
		}

		if len(args) > 2 && args[2] != nil && args[2] != args[1] {
			return anyType
		}

		return args[1]
	}
}

func declareControl(d *declarer) {
	ctx := d.ctx

	// if evaluates only the branch selected by its condition
	ifFn := d.control("if", ctx.Any, sem.FnNone, conditional,
		sem.Param("condition", ctx.Bool),
		sem.Param("then", ctx.Any),
		sem.ParamDefault("else", ctx.Any, sem.NoValue))
	if ifFn != nil {
		ifFn.SetResultType(branchType(ctx.Any))
	}

	ternary := d.control("?:", ctx.Any, sem.FnNone, conditional,
		sem.Param("condition", ctx.Bool),
		sem.Param("then", ctx.Any),
		sem.Param("else", ctx.Any))
	if ternary != nil {
		ternary.SetResultType(branchType(ctx.Any))
	}

	and := d.control("and", ctx.Bool, sem.FnOperator, func(ev sem.Evaluator, n *sem.Node) (sem.Value, error) {
		return shortCircuit(ev, n, false)
	}, sem.Param("a", ctx.Bool), sem.Param("b", ctx.Bool))
	d.repeat(and, maxRepeats)

	or := d.control("or", ctx.Bool, sem.FnOperator, func(ev sem.Evaluator, n *sem.Node) (sem.Value, error) {
		return shortCircuit(ev, n, true)
	}, sem.Param("a", ctx.Bool), sem.Param("b", ctx.Bool))
	d.repeat(or, maxRepeats)

	while := d.control("while", ctx.Void, sem.FnNone, func(ev sem.Evaluator, n *sem.Node) (sem.Value, error) {
		for {
			cond, err := ev.Eval(n.Args[0])
			if err != nil {
				return sem.NoValue, err
			}

			if !cond.Bool() {
				return sem.VoidValue(ctx.Void), nil
			}

			for _, body := range n.Args[1:] {
				if _, err := ev.Eval(body); err != nil {
					return sem.NoValue, err
				}
			}
		}
	}, sem.Param("condition", ctx.Bool), sem.Param("body", ctx.Any))
	d.repeat(while, maxRepeats)

	d.native("throw", ctx.Void, sem.FnNone, func(ev sem.Evaluator, args []sem.Value) (sem.Value, error) {
		return sem.NoValue, sem.ThrowValue(args[0])
	}, sem.Param("value", ctx.Any))
}

// conditional implements if and ?:
func conditional(ev sem.Evaluator, n *sem.Node) (sem.Value, error) {
	cond, err := ev.Eval(n.Args[0])
	if err != nil {
		return sem.NoValue, err
	}

	if cond.Bool() {
		return ev.Eval(n.Args[1])
	}

	if len(n.Args) > 2 {
		return ev.Eval(n.Args[2])
	}

	return sem.NoValue, nil
}

// shortCircuit evaluates operands left to right until one equals stopAt
func shortCircuit(ev sem.Evaluator, n *sem.Node, stopAt bool) (sem.Value, error) {
	boolType := n.Type()
	for _, a := range n.Args {
		v, err := ev.Eval(a)
		if err != nil {
			return sem.NoValue, err
		}

		if v.Bool() == stopAt {
			return sem.BoolValue(boolType, stopAt), nil
		}
	}

	return sem.BoolValue(boolType, !stopAt), nil
}
