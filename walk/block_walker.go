package walk

import (
	"mu/sem"
	"mu/syntax"
)

// walkLet walks `(let ((x e) (y T e)...) body...)`.  Bindings are made in
// order so later initializers see earlier variables.
func (w *Walker) walkLet(list *syntax.ASTList) (*sem.Node, error) {
	if list.Len() < 3 {
		return nil, w.errorf(list, "`let` expects a binding list and a body")
	}

	bindings := list.ListAt(1)
	if bindings == nil {
		return nil, w.errorf(list.Content[1], "expected a binding list")
	}

	w.fn.pushScope()
	defer w.fn.popScope()

	var nodes []*sem.Node
	for _, item := range bindings.Content {
		b, ok := item.(*syntax.ASTList)
		if !ok || b.Len() < 2 || b.Len() > 3 {
			return nil, w.errorf(item, "expected `(name value)` or `(name type value)`")
		}

		name, ok := b.SymbolAt(0)
		if !ok {
			return nil, w.errorf(b, "expected a variable name")
		}

		valueForm := b.Content[b.Len()-1]
		value, err := w.walkExpr(valueForm)
		if err != nil {
			return nil, err
		}

		t := value.Type()
		if b.Len() == 3 {
			if t, err = w.walkType(b.Content[1]); err != nil {
				return nil, err
			}

			if value, err = w.convert(value, t, valueForm); err != nil {
				return nil, err
			}
		}

		if t == nil || t.MachineRep() == sem.RepVoid {
			return nil, w.errorf(valueForm, "cannot bind `%s` to an expression with no value", name)
		}

		// defined after the initializer is walked so it cannot see itself
		l := w.fn.define(name, t)
		nodes = append(nodes, sem.NewAssignNode(l.slot, l.typ, value))
	}

	body, err := w.walkSequence(list.Content[2:], list)
	if err != nil {
		return nil, err
	}

	return sem.NewSequenceNode(body.Type(), append(nodes, body)...), nil
}

// walkSet walks `(set! x value)`.  Assigning to a reference stores through it.
func (w *Walker) walkSet(list *syntax.ASTList) (*sem.Node, error) {
	if list.Len() != 3 {
		return nil, w.errorf(list, "`set!` expects a variable and a value")
	}

	name, ok := list.SymbolAt(1)
	if !ok {
		return nil, w.errorf(list.Content[1], "expected a variable name")
	}

	l, ok := w.lookupLocal(name)
	if !ok {
		return nil, w.errorf(list.Content[1], "cannot assign to `%s`: not a local variable", name)
	}

	value, err := w.walkExpr(list.Content[2])
	if err != nil {
		return nil, err
	}

	target := l.typ
	if rt, ok := target.(*sem.ReferenceType); ok && value.Type() != target {
		target = rt.Target()
	}

	if value, err = w.convert(value, target, list.Content[2]); err != nil {
		return nil, err
	}

	return sem.NewAssignNode(l.slot, l.typ, value), nil
}

// walkTry walks `(try body... (catch (e T) handler...))`.  `(catch (e)
// ...)` catches every exception; runtime errors reach the handler as their
// message string.
func (w *Walker) walkTry(list *syntax.ASTList) (*sem.Node, error) {
	if list.Len() < 3 {
		return nil, w.errorf(list, "`try` expects a body and a catch clause")
	}

	catch := list.ListAt(list.Len() - 1)
	if catch == nil || catch.Head() != "catch" || catch.Len() < 3 {
		return nil, w.errorf(list.Content[list.Len()-1], "expected `(catch (name type) handler...)`")
	}

	body, err := w.walkSequence(list.Content[1:list.Len()-1], list)
	if err != nil {
		return nil, err
	}

	binding := catch.ListAt(1)
	if binding == nil || binding.Len() < 1 || binding.Len() > 2 {
		return nil, w.errorf(catch.Content[1], "expected `(name type)` or `(name)`")
	}

	name, ok := binding.SymbolAt(0)
	if !ok {
		return nil, w.errorf(binding, "expected a variable name")
	}

	var catchType sem.Type
	slotType := sem.Type(w.ctx.Any)
	if binding.Len() == 2 {
		if catchType, err = w.walkType(binding.Content[1]); err != nil {
			return nil, err
		}
		slotType = catchType
	}

	w.fn.pushScope()
	defer w.fn.popScope()

	l := w.fn.define(name, slotType)
	handler, err := w.walkSequence(catch.Content[2:], catch)
	if err != nil {
		return nil, err
	}

	if bt := body.Type(); bt != nil && bt.MachineRep() != sem.RepVoid {
		if handler, err = w.convert(handler, bt, catch); err != nil {
			return nil, err
		}
	}

	return sem.NewTryNode(body, catchType, l.slot, handler), nil
}
