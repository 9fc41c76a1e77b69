package walk

import (
	"strings"

	"mu/sem"
	"mu/syntax"
)

// splitDoc separates a trailing documentation string from a list of forms.
// A lone string is not a doc string: it is the body.
func splitDoc(forms []syntax.ASTNode, keepOne bool) ([]syntax.ASTNode, string) {
	if len(forms) == 0 || keepOne && len(forms) == 1 {
		return forms, ""
	}

	if leaf, ok := forms[0].(*syntax.ASTLeaf); ok && leaf.Kind == syntax.STRINGLIT {
		return forms[1:], leaf.Value
	}

	return forms, ""
}

// trailingDoc extracts an optional documentation string at the end of a form
func trailingDoc(forms []syntax.ASTNode) ([]syntax.ASTNode, string) {
	if len(forms) == 0 {
		return forms, ""
	}

	if leaf, ok := forms[len(forms)-1].(*syntax.ASTLeaf); ok && leaf.Kind == syntax.STRINGLIT {
		return forms[:len(forms)-1], leaf.Value
	}

	return forms, ""
}

// -----------------------------------------------------------------------------

// walkDefun walks `(defun name ((p T) (q T default)...) R ["doc"] body...)`.
// A name of the form `Type.name` declares the function in the type's scope.
func (w *Walker) walkDefun(list *syntax.ASTList) error {
	if list.Len() < 4 {
		return w.errorf(list, "`defun` expects a name, a parameter list, a return type and a body")
	}

	name, ok := list.SymbolAt(1)
	if !ok {
		return w.errorf(list.Content[1], "expected a function name")
	}

	var owner sem.Symbol = w.mod
	if dot := strings.LastIndexByte(name, '.'); dot > 0 {
		t := w.lookupType(name[:dot])
		if t == nil {
			return w.errorf(list.Content[1], "undefined type `%s`", name[:dot])
		}
		owner, name = t, name[dot+1:]
	}

	paramList := list.ListAt(2)
	if paramList == nil {
		return w.errorf(list.Content[2], "expected a parameter list")
	}

	params, err := w.walkParams(paramList)
	if err != nil {
		return err
	}

	ret, err := w.walkType(list.Content[3])
	if err != nil {
		return err
	}

	body, doc := splitDoc(list.Content[4:], true)
	if len(body) == 0 {
		return w.errorf(list, "function `%s` has no body", name)
	}

	f, err := sem.NewFunction(name, ret, sem.FnNone, params...)
	if err != nil {
		return w.wrap(list, err)
	}
	f.SetDoc(doc)

	// declared before the body is walked so that it can call itself
	if err := w.declare(owner, f, list); err != nil {
		return err
	}

	w.fn = newFuncContext(f)
	defer func() { w.fn = nil }()

	node, err := w.walkSequence(body, list)
	if err != nil {
		return err
	}

	switch {
	case ret.MachineRep() != sem.RepVoid:
		if node, err = w.convert(node, ret, body[len(body)-1]); err != nil {
			return err
		}
	case node.Type() != ret:
		node = sem.NewSequenceNode(ret, node, sem.NewConstantNode(sem.VoidValue(ret)))
	}

	if err := f.SetBody(node, w.fn.size()); err != nil {
		return w.wrap(list, err)
	}

	return nil
}

// walkParams walks a parameter list.  Each parameter is `(name T)` or
// `(name T default)` where the default is a literal.
func (w *Walker) walkParams(list *syntax.ASTList) ([]*sem.ParameterVariable, error) {
	params := make([]*sem.ParameterVariable, list.Len())
	for i := range list.Content {
		p := list.ListAt(i)
		if p == nil || p.Len() < 2 || p.Len() > 3 {
			return nil, w.errorf(list.Content[i], "expected `(name type)` or `(name type default)`")
		}

		name, ok := p.SymbolAt(0)
		if !ok {
			return nil, w.errorf(p, "expected a parameter name")
		}

		t, err := w.walkType(p.Content[1])
		if err != nil {
			return nil, err
		}

		if p.Len() == 2 {
			params[i] = sem.Param(name, t)
			continue
		}

		def, err := w.literalOf(p.Content[2], t)
		if err != nil {
			return nil, err
		}
		params[i] = sem.ParamDefault(name, t, def)
	}

	return params, nil
}

// walkDefClass walks `(defclass Name (Supers...) ((field T)...) ["doc"])`.
// Supers may name classes and interfaces.  The class gets a generated
// constructor taking its fields in layout order.
func (w *Walker) walkDefClass(list *syntax.ASTList) error {
	forms, doc := trailingDoc(list.Content)
	if len(forms) != 4 {
		return w.errorf(list, "`defclass` expects a name, a super class list and a field list")
	}

	name, ok := list.SymbolAt(1)
	if !ok {
		return w.errorf(forms[1], "expected a class name")
	}

	superList, ok := forms[2].(*syntax.ASTList)
	if !ok {
		return w.errorf(forms[2], "expected a super class list")
	}

	var supers []*sem.Class
	var ifaces []*sem.Interface
	for _, s := range superList.Content {
		t, err := w.walkType(s)
		if err != nil {
			return err
		}

		switch v := t.(type) {
		case *sem.Class:
			supers = append(supers, v)
		case *sem.Interface:
			ifaces = append(ifaces, v)
		default:
			return w.errorf(s, "cannot derive from `%s`", t.QualifiedName())
		}
	}

	class := sem.NewClass(name, supers...)
	class.SetDoc(doc)
	for _, iface := range ifaces {
		if err := class.Implement(iface); err != nil {
			return w.wrap(forms[2], err)
		}
	}

	// declared first so that fields may refer to the class
	if err := w.declare(w.mod, class, list); err != nil {
		return err
	}

	fieldList, ok := forms[3].(*syntax.ASTList)
	if !ok {
		return w.errorf(forms[3], "expected a field list")
	}

	for _, item := range fieldList.Content {
		field, ok := item.(*syntax.ASTList)
		if !ok || field.Len() != 2 {
			return w.errorf(item, "expected `(name type)`")
		}

		fname, ok := field.SymbolAt(0)
		if !ok {
			return w.errorf(field, "expected a field name")
		}

		ft, err := w.walkType(field.Content[1])
		if err != nil {
			return err
		}

		if _, err := class.AddMember(fname, ft); err != nil {
			return w.wrap(field, err)
		}
	}

	if _, err := w.ctx.AddDefaultConstructor(class); err != nil {
		return w.wrap(list, err)
	}

	return nil
}

// walkDefInterface walks `(definterface Name (fname...) ["doc"])`
func (w *Walker) walkDefInterface(list *syntax.ASTList) error {
	forms, doc := trailingDoc(list.Content)
	if len(forms) != 3 {
		return w.errorf(list, "`definterface` expects a name and a list of function names")
	}

	name, ok := list.SymbolAt(1)
	if !ok {
		return w.errorf(forms[1], "expected an interface name")
	}

	fnList, ok := forms[2].(*syntax.ASTList)
	if !ok {
		return w.errorf(forms[2], "expected a list of function names")
	}

	required := make([]string, fnList.Len())
	for i := range fnList.Content {
		fname, ok := fnList.SymbolAt(i)
		if !ok {
			return w.errorf(fnList.Content[i], "expected a function name")
		}
		required[i] = fname
	}

	iface := sem.NewInterface(name, required...)
	iface.SetDoc(doc)
	return w.declare(w.mod, iface, list)
}

// walkDefVariant walks `(defvariant Name ["doc"] (Tag [T])...)`.  Each tag gets
// a generated constructor.
func (w *Walker) walkDefVariant(list *syntax.ASTList) error {
	name, ok := list.SymbolAt(1)
	if !ok {
		return w.errorf(list, "`defvariant` expects a name")
	}

	vt := sem.NewVariantType(name)
	if err := w.declare(w.mod, vt, list); err != nil {
		return err
	}

	tags := 0
	for _, item := range list.Content[2:] {
		if leaf, ok := item.(*syntax.ASTLeaf); ok && leaf.Kind == syntax.STRINGLIT {
			vt.SetDoc(leaf.Value)
			continue
		}

		tag, ok := item.(*syntax.ASTList)
		if !ok || tag.Len() < 1 || tag.Len() > 2 {
			return w.errorf(item, "expected `(Tag)` or `(Tag type)`")
		}

		tname, ok := tag.SymbolAt(0)
		if !ok {
			return w.errorf(tag, "expected a tag name")
		}

		var payload sem.Type
		if tag.Len() == 2 {
			t, err := w.walkType(tag.Content[1])
			if err != nil {
				return err
			}
			payload = t
		}

		if _, err := vt.AddTag(tname, payload); err != nil {
			return w.wrap(tag, err)
		}
		tags++
	}

	if tags == 0 {
		return w.errorf(list, "variant `%s` has no tags", name)
	}

	if err := w.ctx.AddVariantConstructors(vt); err != nil {
		return w.wrap(list, err)
	}

	return nil
}

// walkDefConst walks `(defconst name [type] literal ["doc"])`
func (w *Walker) walkDefConst(list *syntax.ASTList) error {
	forms, doc := trailingDoc(list.Content)
	if len(forms) == 2 && doc != "" {
		// `(defconst name "text")` declares a string constant
		forms, doc = list.Content, ""
	}

	if len(forms) != 3 && len(forms) != 4 {
		return w.errorf(list, "`defconst` expects a name and a literal")
	}

	name, ok := list.SymbolAt(1)
	if !ok {
		return w.errorf(forms[1], "expected a constant name")
	}

	var v sem.Value
	var err error
	if len(forms) == 4 {
		t, terr := w.walkType(forms[2])
		if terr != nil {
			return terr
		}
		v, err = w.literalOf(forms[3], t)
	} else {
		leaf, ok := forms[2].(*syntax.ASTLeaf)
		if !ok {
			return w.errorf(forms[2], "expected a literal")
		}
		v, err = w.literal(leaf)
	}

	if err != nil {
		return err
	}

	k := sem.NewConstant(name, v)
	k.SetDoc(doc)
	return w.declare(w.mod, k, list)
}
