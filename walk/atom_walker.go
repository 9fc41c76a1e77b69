package walk

import (
	"math"
	"strconv"

	"mu/sem"
	"mu/syntax"
)

// walkAtom walks a leaf in expression position: a literal, a local variable
// or a constant
func (w *Walker) walkAtom(leaf *syntax.ASTLeaf) (*sem.Node, error) {
	if leaf.Kind != syntax.SYMBOL {
		v, err := w.literal(leaf)
		if err != nil {
			return nil, err
		}

		return sem.NewConstantNode(v), nil
	}

	switch leaf.Value {
	case "true", "false":
		return sem.NewConstantNode(sem.BoolValue(w.ctx.Bool, leaf.Value == "true")), nil
	}

	if l, ok := w.lookupLocal(leaf.Value); ok {
		return sem.NewLocalNode(l.slot, l.typ), nil
	}

	if k := w.lookupConstant(leaf.Value); k != nil {
		return sem.NewConstantNode(k.Value()), nil
	}

	if len(w.lookupFunctions(leaf.Value)) > 0 {
		return nil, w.errorf(leaf, "`%s` is a function: use `(function %s)` to refer to it", leaf.Value, leaf.Value)
	}

	return nil, w.errorf(leaf, "undefined symbol `%s`", leaf.Value)
}

// literal converts a literal token into its value.  Integers that do not fit
// in an int are int64; floats are float unless suffixed with `d`.
func (w *Walker) literal(leaf *syntax.ASTLeaf) (sem.Value, error) {
	switch leaf.Kind {
	case syntax.INTLIT:
		n, err := strconv.ParseInt(leaf.Value, 0, 64)
		if err != nil {
			return sem.NoValue, w.errorf(leaf, "malformed integer literal `%s`", leaf.Value)
		}

		if n < math.MinInt32 || n > math.MaxInt32 {
			return sem.IntValue(w.ctx.Int64, n), nil
		}

		return sem.IntValue(w.ctx.Int, n), nil
	case syntax.FLOATLIT:
		x, double, err := syntax.ParseFloat(leaf.Value)
		if err != nil {
			return sem.NoValue, w.errorf(leaf, "malformed float literal `%s`", leaf.Value)
		}

		if double {
			return sem.FloatValue(w.ctx.Double, x), nil
		}

		return sem.FloatValue(w.ctx.Float, x), nil
	case syntax.STRINGLIT:
		return sem.PointerValue(w.ctx.String, leaf.Value), nil
	case syntax.CHARLIT:
		r := []rune(leaf.Value)
		return sem.IntValue(w.ctx.Char, int64(r[0])), nil
	case syntax.SYMBOL:
		switch leaf.Value {
		case "true", "false":
			return sem.BoolValue(w.ctx.Bool, leaf.Value == "true"), nil
		}

		if k := w.lookupConstant(leaf.Value); k != nil {
			return k.Value(), nil
		}
	}

	return sem.NoValue, w.errorf(leaf, "expected a literal, got `%s`", leaf.Value)
}

// literalOf converts a literal into a value of type t.  Numeric literals are
// converted between the numeric types without loss checks.
func (w *Walker) literalOf(node syntax.ASTNode, t sem.Type) (sem.Value, error) {
	leaf, ok := node.(*syntax.ASTLeaf)
	if !ok {
		return sem.NoValue, w.errorf(node, "expected a literal, got `%s`", node.String())
	}

	v, err := w.literal(leaf)
	if err != nil {
		return sem.NoValue, err
	}

	if v.Type() == t {
		return v, nil
	}

	rep := t.MachineRep()
	from := v.Type().MachineRep()
	switch {
	case rep.IsFloating() && (from.IsFloating() || from.IsIntegral() && from != sem.RepBool):
		return sem.FloatValue(t, v.Number()), nil
	case rep.IsIntegral() && rep != sem.RepBool && from.IsIntegral() && from != sem.RepBool:
		return sem.IntValue(t, v.Int()), nil
	case v.Type().IsA(t):
		return v, nil
	}

	return sem.NoValue, w.errorf(node, "literal `%s` is not a `%s`", leaf.Value, t.QualifiedName())
}
