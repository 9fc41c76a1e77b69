package walk

import (
	"mu/sem"
	"mu/syntax"
)

// walkType resolves a type label: a (possibly composite) type name such as
// `int`, `Point[]` or `int&`, or a function type written `(fn R A...)`
func (w *Walker) walkType(node syntax.ASTNode) (sem.Type, error) {
	switch v := node.(type) {
	case *syntax.ASTLeaf:
		if v.Kind != syntax.SYMBOL {
			return nil, w.errorf(v, "expected a type label, got %s", syntax.TokenName(v.Kind))
		}

		if t := w.lookupType(v.Value); t != nil {
			return t, nil
		}

		return nil, w.errorf(v, "undefined type `%s`", v.Value)
	case *syntax.ASTList:
		if v.Head() != "fn" || v.Len() < 2 {
			return nil, w.errorf(v, "expected a type label, got `%s`", v.String())
		}

		ret, err := w.walkType(v.Content[1])
		if err != nil {
			return nil, err
		}

		var args []sem.Type
		for _, a := range v.Content[2:] {
			at, err := w.walkType(a)
			if err != nil {
				return nil, err
			}
			args = append(args, at)
		}

		return w.ctx.FunctionTypeOf(ret, args), nil
	}

	return nil, w.errorf(node, "expected a type label")
}

// convert wraps n in the implicit casts needed to pass it where a value of
// type to is expected
func (w *Walker) convert(n *sem.Node, to sem.Type, at syntax.ASTNode) (*sem.Node, error) {
	from := n.Type()
	if to == nil || from == to {
		return n, nil
	}

	if from == nil {
		return nil, w.errorf(at, "expression has no value, expected a `%s`", to.QualifiedName())
	}

	_, chain, ok := w.ctx.ConversionCost(from, to)
	if !ok {
		return nil, w.errorf(at, "cannot convert a `%s` to a `%s`", from.QualifiedName(), to.QualifiedName())
	}

	for _, cast := range chain {
		n = sem.NewCallNode(cast, n)
	}

	return n, nil
}
