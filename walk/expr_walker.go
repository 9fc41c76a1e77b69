package walk

import (
	"strings"

	"mu/sem"
	"mu/syntax"
)

// walkExpr walks a form in expression position
func (w *Walker) walkExpr(node syntax.ASTNode) (*sem.Node, error) {
	switch v := node.(type) {
	case *syntax.ASTLeaf:
		return w.walkAtom(v)
	case *syntax.ASTList:
		return w.walkList(v)
	}

	return nil, w.errorf(node, "unexpected form")
}

// walkSequence walks forms evaluated in order, producing the last value
func (w *Walker) walkSequence(forms []syntax.ASTNode, at syntax.ASTNode) (*sem.Node, error) {
	if len(forms) == 0 {
		return nil, w.errorf(at, "expected at least one expression")
	}

	nodes := make([]*sem.Node, len(forms))
	for i, f := range forms {
		n, err := w.walkExpr(f)
		if err != nil {
			return nil, err
		}
		nodes[i] = n
	}

	if len(nodes) == 1 {
		return nodes[0], nil
	}

	return sem.NewSequenceNode(w.ctx.Void, nodes...), nil
}

// walkArgs walks the argument forms of a call
func (w *Walker) walkArgs(forms []syntax.ASTNode) ([]*sem.Node, []sem.Type, error) {
	args := make([]*sem.Node, len(forms))
	types := make([]sem.Type, len(forms))
	for i, f := range forms {
		n, err := w.walkExpr(f)
		if err != nil {
			return nil, nil, err
		}

		if n.Type() == nil {
			return nil, nil, w.errorf(f, "expression has no value")
		}

		args[i], types[i] = n, n.Type()
	}

	return args, types, nil
}

// walkList walks a special form or a call
func (w *Walker) walkList(list *syntax.ASTList) (*sem.Node, error) {
	if list.Len() == 0 {
		return nil, w.errorf(list, "empty form")
	}

	head, isSymbol := list.SymbolAt(0)
	if !isSymbol {
		if list.ListAt(0) == nil {
			return nil, w.errorf(list.Content[0], "cannot call a literal")
		}

		fn, err := w.walkExpr(list.Content[0])
		if err != nil {
			return nil, err
		}

		return w.walkApply(fn, list)
	}

	switch head {
	case "let":
		return w.walkLet(list)
	case "set!":
		return w.walkSet(list)
	case "do":
		if list.Len() < 2 {
			return nil, w.errorf(list, "`do` expects at least one form")
		}
		return w.walkSequence(list.Content[1:], list)
	case "new":
		return w.walkNew(list)
	case ".":
		return w.walkField(list)
	case "set-field!":
		return w.walkSetField(list)
	case "variant-get", "variant-is":
		return w.walkVariantAccess(list, head == "variant-is")
	case "array":
		return w.walkArray(list)
	case "fixed-array":
		return w.walkFixedArray(list)
	case "try":
		return w.walkTry(list)
	case "function":
		return w.walkFunctionRef(list)
	case "ref":
		return w.walkRef(list)
	case "defun", "defclass", "definterface", "defvariant", "defconst", "require":
		return nil, w.errorf(list, "`%s` is only allowed at the top level", head)
	}

	// a local holding a function value is applied rather than resolved
	if l, ok := w.lookupLocal(head); ok {
		if _, isFn := l.typ.(*sem.FunctionType); isFn {
			return w.walkApply(sem.NewLocalNode(l.slot, l.typ), list)
		}
	}

	if t := w.lookupType(head); t != nil {
		return w.walkConstruct(t, list)
	}

	return w.walkCall(head, list)
}

// walkCall resolves a call by overload resolution on the argument types
func (w *Walker) walkCall(name string, list *syntax.ASTList) (*sem.Node, error) {
	candidates := w.lookupFunctions(name)
	if len(candidates) == 0 {
		return nil, w.errorf(list.Content[0], "undefined function `%s`", name)
	}

	args, types, err := w.walkArgs(list.Content[1:])
	if err != nil {
		return nil, err
	}

	return w.resolve(candidates, args, types, list)
}

func (w *Walker) resolve(candidates []*sem.Function, args []*sem.Node, types []sem.Type, at syntax.ASTNode) (*sem.Node, error) {
	r, err := w.ctx.Resolve(candidates, types)
	if err != nil {
		return nil, w.wrap(at, err)
	}

	n, err := r.Apply(args)
	if err != nil {
		return nil, w.wrap(at, err)
	}

	return n, nil
}

// walkConstruct walks `(T args...)`: a constructor or explicit cast.
// Converting a value to its own type is the value itself.
func (w *Walker) walkConstruct(t sem.Type, list *syntax.ASTList) (*sem.Node, error) {
	args, types, err := w.walkArgs(list.Content[1:])
	if err != nil {
		return nil, err
	}

	if len(args) == 1 && types[0] == t {
		return args[0], nil
	}

	candidates := w.ctx.Constructors(t)
	if len(candidates) == 0 {
		return nil, w.errorf(list, "type `%s` has no constructors", t.QualifiedName())
	}

	return w.resolve(candidates, args, types, list)
}

// walkApply calls a function value
func (w *Walker) walkApply(fn *sem.Node, list *syntax.ASTList) (*sem.Node, error) {
	ft, ok := fn.Type().(*sem.FunctionType)
	if !ok {
		return nil, w.errorf(list.Content[0], "cannot call a value of type `%s`", typeName(fn.Type()))
	}

	argForms := list.Content[1:]
	if len(argForms) != len(ft.ArgTypes()) {
		return nil, w.errorf(list, "function of type `%s` expects %d arguments, got %d", ft.QualifiedName(), len(ft.ArgTypes()), len(argForms))
	}

	args, _, err := w.walkArgs(argForms)
	if err != nil {
		return nil, err
	}

	for i, at := range ft.ArgTypes() {
		if args[i], err = w.convert(args[i], at, argForms[i]); err != nil {
			return nil, err
		}
	}

	return sem.NewApplyNode(fn, ft.ReturnType(), args...), nil
}

func typeName(t sem.Type) string {
	if t == nil {
		return "void"
	}

	return t.QualifiedName()
}

// -----------------------------------------------------------------------------

// walkNew walks `(new Class args...)`.  The arguments initialize the leading
// fields in layout order.
func (w *Walker) walkNew(list *syntax.ASTList) (*sem.Node, error) {
	if list.Len() < 2 {
		return nil, w.errorf(list, "`new` expects a class")
	}

	t, err := w.walkType(list.Content[1])
	if err != nil {
		return nil, err
	}

	class, ok := t.(*sem.Class)
	if !ok {
		return nil, w.errorf(list.Content[1], "`%s` is not a class", t.QualifiedName())
	}

	if err := class.Freeze(); err != nil {
		return nil, w.wrap(list, err)
	}

	argForms := list.Content[2:]
	if len(argForms) > len(class.Fields()) {
		return nil, w.errorf(list, "`%s` has %d fields, got %d initializers", class.QualifiedName(), len(class.Fields()), len(argForms))
	}

	args, _, err := w.walkArgs(argForms)
	if err != nil {
		return nil, err
	}

	for i, field := range class.Fields()[:len(args)] {
		if args[i], err = w.convert(args[i], field.Type(), argForms[i]); err != nil {
			return nil, err
		}
	}

	return sem.NewNewNode(class, args...), nil
}

// member finds a field of the class an object expression evaluates to
func (w *Walker) member(obj *sem.Node, nameForm syntax.ASTNode) (*sem.MemberVariable, error) {
	class, ok := obj.Type().(*sem.Class)
	if !ok {
		return nil, w.errorf(nameForm, "cannot access a field of a `%s`", typeName(obj.Type()))
	}

	leaf, ok := nameForm.(*syntax.ASTLeaf)
	if !ok || leaf.Kind != syntax.SYMBOL {
		return nil, w.errorf(nameForm, "expected a field name")
	}

	if err := class.Freeze(); err != nil {
		return nil, w.wrap(nameForm, err)
	}

	field := class.Field(leaf.Value)
	if field == nil {
		return nil, w.errorf(nameForm, "class `%s` has no field `%s`", class.QualifiedName(), leaf.Value)
	}

	return field, nil
}

// walkField walks `(. obj field)`
func (w *Walker) walkField(list *syntax.ASTList) (*sem.Node, error) {
	if list.Len() != 3 {
		return nil, w.errorf(list, "`.` expects an object and a field name")
	}

	obj, err := w.walkExpr(list.Content[1])
	if err != nil {
		return nil, err
	}

	field, err := w.member(obj, list.Content[2])
	if err != nil {
		return nil, err
	}

	return sem.NewFieldNode(obj, field), nil
}

// walkSetField walks `(set-field! obj field value)`
func (w *Walker) walkSetField(list *syntax.ASTList) (*sem.Node, error) {
	if list.Len() != 4 {
		return nil, w.errorf(list, "`set-field!` expects an object, a field name and a value")
	}

	obj, err := w.walkExpr(list.Content[1])
	if err != nil {
		return nil, err
	}

	field, err := w.member(obj, list.Content[2])
	if err != nil {
		return nil, err
	}

	value, err := w.walkExpr(list.Content[3])
	if err != nil {
		return nil, err
	}

	if value, err = w.convert(value, field.Type(), list.Content[3]); err != nil {
		return nil, err
	}

	return sem.NewSetFieldNode(obj, field, value), nil
}

// walkVariantAccess walks `(variant-get v Tag)` and `(variant-is v Tag)`
func (w *Walker) walkVariantAccess(list *syntax.ASTList, test bool) (*sem.Node, error) {
	if list.Len() != 3 {
		return nil, w.errorf(list, "`%s` expects a variant value and a tag", list.Head())
	}

	v, err := w.walkExpr(list.Content[1])
	if err != nil {
		return nil, err
	}

	vt, ok := v.Type().(*sem.VariantType)
	if !ok {
		return nil, w.errorf(list.Content[1], "`%s` is not a variant", typeName(v.Type()))
	}

	tagName, ok := list.SymbolAt(2)
	if !ok {
		return nil, w.errorf(list.Content[2], "expected a tag name")
	}

	// `Variant.Tag` names the same tag as `Tag`
	if dot := strings.LastIndexByte(tagName, '.'); dot >= 0 {
		tagName = tagName[dot+1:]
	}

	tag := vt.Tag(tagName)
	if tag == nil {
		return nil, w.errorf(list.Content[2], "variant `%s` has no tag `%s`", vt.QualifiedName(), tagName)
	}

	if test {
		return sem.NewVariantIsNode(v, tag, w.ctx.Bool), nil
	}

	if tag.Payload() == nil {
		return nil, w.errorf(list.Content[2], "tag `%s` carries no value", tag.QualifiedName())
	}

	return sem.NewVariantGetNode(v, tag), nil
}

// walkArray walks `(array T elems...)` building a dynamic array
func (w *Walker) walkArray(list *syntax.ASTList) (*sem.Node, error) {
	if list.Len() < 2 {
		return nil, w.errorf(list, "`array` expects an element type")
	}

	elem, err := w.walkType(list.Content[1])
	if err != nil {
		return nil, err
	}

	argForms := list.Content[2:]
	elems, _, err := w.walkArgs(argForms)
	if err != nil {
		return nil, err
	}

	for i := range elems {
		if elems[i], err = w.convert(elems[i], elem, argForms[i]); err != nil {
			return nil, err
		}
	}

	return sem.NewArrayNode(w.ctx.DynamicArrayOf(elem, 1), elems...), nil
}

// walkFixedArray walks `(fixed-array T dims...)` allocating a zeroed array
func (w *Walker) walkFixedArray(list *syntax.ASTList) (*sem.Node, error) {
	if list.Len() < 3 {
		return nil, w.errorf(list, "`fixed-array` expects an element type and dimensions")
	}

	elem, err := w.walkType(list.Content[1])
	if err != nil {
		return nil, err
	}

	dims := make([]int, list.Len()-2)
	for i, f := range list.Content[2:] {
		v, err := w.literalOf(f, w.ctx.Int)
		if err != nil {
			return nil, err
		}

		if v.Int() <= 0 {
			return nil, w.errorf(f, "array dimensions must be positive")
		}
		dims[i] = int(v.Int())
	}

	return sem.NewFixedArrayNode(w.ctx.FixedArrayOf(elem, dims)), nil
}

// walkFunctionRef walks `(function name [T...])`.  Argument types select an
// overload when the name is overloaded.
func (w *Walker) walkFunctionRef(list *syntax.ASTList) (*sem.Node, error) {
	name, ok := list.SymbolAt(1)
	if !ok {
		return nil, w.errorf(list, "`function` expects a function name")
	}

	candidates := w.lookupFunctions(name)
	if len(candidates) == 0 {
		return nil, w.errorf(list.Content[1], "undefined function `%s`", name)
	}

	f := candidates[0]
	if list.Len() > 2 || len(candidates) > 1 {
		types := make([]sem.Type, list.Len()-2)
		for i, tf := range list.Content[2:] {
			t, err := w.walkType(tf)
			if err != nil {
				return nil, err
			}
			types[i] = t
		}

		r, err := w.ctx.Resolve(candidates, types)
		if err != nil {
			return nil, w.wrap(list, err)
		}
		f = r.Function
	}

	if f.Control() != nil {
		return nil, w.errorf(list.Content[1], "`%s` cannot be used as a value", name)
	}

	return sem.NewFunctionRefNode(f, w.ctx.FunctionType(f)), nil
}

// walkRef walks `(ref x)` producing a reference to a local variable
func (w *Walker) walkRef(list *syntax.ASTList) (*sem.Node, error) {
	name, ok := list.SymbolAt(1)
	if !ok || list.Len() != 2 {
		return nil, w.errorf(list, "`ref` expects a variable name")
	}

	l, ok := w.lookupLocal(name)
	if !ok {
		return nil, w.errorf(list.Content[1], "`%s` is not a local variable", name)
	}

	if rt, ok := l.typ.(*sem.ReferenceType); ok {
		return sem.NewRefNode(l.slot, rt), nil
	}

	return sem.NewRefNode(l.slot, w.ctx.ReferenceTypeOf(l.typ)), nil
}
