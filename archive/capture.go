package archive

import (
	"fmt"

	"mu/common"
	"mu/sem"
	"mu/walk"
)

// Capture records an assembled unit as an archive.  Only interpreted symbols
// can be captured: native functions have no body to store.
func Capture(unit *walk.Unit, source string) (*Archive, error) {
	a := &Archive{
		Version:  common.ArchiveVersion,
		Module:   unit.Module.QualifiedName(),
		Source:   source,
		Requires: append([]string(nil), unit.Module.Requires()...),
	}

	for _, sym := range unit.Decls {
		d, err := captureDecl(sym)
		if err != nil {
			return nil, err
		}
		a.Decls = append(a.Decls, d)
	}

	for i, f := range unit.Init {
		d, err := captureFunction(f)
		if err != nil {
			return nil, err
		}
		a.Init = append(a.Init, d)

		at := len(unit.Decls)
		if i < len(unit.InitAt) {
			at = unit.InitAt[i]
		}
		a.InitAt = append(a.InitAt, at)
	}

	return a, nil
}

func captureDecl(sym sem.Symbol) (*Decl, error) {
	switch v := sym.(type) {
	case *sem.Function:
		return captureFunction(v)
	case *sem.Class:
		d := &Decl{Kind: DeclClass, Name: v.Name()}
		for _, s := range v.Supers() {
			d.Supers = append(d.Supers, s.QualifiedName())
		}
		for _, i := range v.Interfaces() {
			d.Supers = append(d.Supers, i.QualifiedName())
		}
		for _, m := range v.Members() {
			d.Fields = append(d.Fields, &Field{Name: m.Name(), Type: m.Type().QualifiedName()})
		}
		return d, nil
	case *sem.Interface:
		return &Decl{Kind: DeclInterface, Name: v.Name(), Required: v.Required()}, nil
	case *sem.VariantType:
		d := &Decl{Kind: DeclVariant, Name: v.Name()}
		for _, tag := range v.Tags() {
			f := &Field{Name: tag.Name()}
			if tag.Payload() != nil {
				f.Type = tag.Payload().QualifiedName()
			}
			d.Fields = append(d.Fields, f)
		}
		return d, nil
	case *sem.Constant:
		vr, err := captureValue(v.Value())
		if err != nil {
			return nil, fmt.Errorf("constant `%s`: %w", v.QualifiedName(), err)
		}
		return &Decl{Kind: DeclConstant, Name: v.Name(), Value: vr}, nil
	}

	return nil, fmt.Errorf("cannot archive %s `%s`", sym.Kind(), sym.QualifiedName())
}

// captureFunction records an interpreted function with its body
func captureFunction(f *sem.Function) (*Decl, error) {
	if !f.IsInterpreted() || f.Body() == nil {
		return nil, fmt.Errorf("cannot archive function `%s`: it has no interpreted body", f.QualifiedName())
	}

	d := &Decl{
		Kind:      DeclFunction,
		Name:      f.Name(),
		Returns:   f.ReturnType().QualifiedName(),
		Attrs:     uint64(f.Attributes()),
		StackSize: f.StackSize(),
	}

	if t, ok := f.Owner().(sem.Type); ok {
		d.Owner = t.QualifiedName()
	}

	for _, p := range f.Params() {
		field := &Field{Name: p.Name(), Type: p.Type().QualifiedName()}
		if def, ok := p.Default(); ok {
			vr, err := captureValue(def)
			if err != nil {
				return nil, fmt.Errorf("default of `%s` in `%s`: %w", p.Name(), f.QualifiedName(), err)
			}
			field.Default = vr
		}
		d.Params = append(d.Params, field)
	}

	body, err := captureNode(f.Body())
	if err != nil {
		return nil, fmt.Errorf("body of `%s`: %w", f.QualifiedName(), err)
	}
	d.Body = body

	return d, nil
}

// captureNode records a node tree
func captureNode(n *sem.Node) (*NodeRecord, error) {
	nr := &NodeRecord{Kind: n.Kind, Slot: n.Slot}

	switch n.Kind {
	case sem.NodeCall, sem.NodeFunctionRef:
		f := n.Function()
		nr.Symbol, nr.Signature = f.QualifiedName(), f.Signature()
	case sem.NodeConstant:
		vr, err := captureValue(n.Data)
		if err != nil {
			return nil, err
		}
		nr.Data = vr
	case sem.NodeLocal:
		nr.Type = n.SlotType().QualifiedName()
	case sem.NodeNew:
		nr.Symbol = n.Symbol.QualifiedName()
	case sem.NodeField, sem.NodeSetField:
		nr.Symbol, nr.Member = n.Symbol.Owner().QualifiedName(), n.Symbol.Name()
	case sem.NodeVariantGet:
		nr.Symbol = n.Symbol.QualifiedName()
	case sem.NodeVariantIs:
		nr.Symbol, nr.Type = n.Symbol.QualifiedName(), n.Type().QualifiedName()
	case sem.NodeTry:
		if n.Symbol != nil {
			nr.Symbol = n.Symbol.QualifiedName()
		}
	default:
		// assign, sequence, arrays, ref and apply nodes are rebuilt from their
		// type
		if n.Type() != nil {
			nr.Type = n.Type().QualifiedName()
		}
	}

	for _, a := range n.Args {
		ar, err := captureNode(a)
		if err != nil {
			return nil, err
		}
		nr.Args = append(nr.Args, ar)
	}

	return nr, nil
}

// captureValue records a literal.  Values that point to heap objects cannot
// be archived.
func captureValue(v sem.Value) (*ValueRecord, error) {
	if v.IsNone() {
		return &ValueRecord{Kind: ValueNone}, nil
	}

	vr := &ValueRecord{Type: v.Type().QualifiedName()}
	rep := v.Type().MachineRep()
	switch {
	case rep.IsIntegral():
		vr.Kind, vr.Int = ValueInt, v.Int()
	case rep.IsFloating():
		vr.Kind, vr.Float = ValueFloat, v.Float()
	case rep == sem.RepVoid:
		vr.Kind = ValueZero
	case rep == sem.RepPointer:
		switch p := v.Pointer().(type) {
		case nil:
			vr.Kind = ValueZero
		case string:
			vr.Kind, vr.Str = ValueString, p
		default:
			return nil, fmt.Errorf("cannot archive a value of type `%s`", vr.Type)
		}
	default:
		return nil, fmt.Errorf("cannot archive a value of type `%s`", vr.Type)
	}

	return vr, nil
}
