package archive

import (
	"fmt"

	"mu/sem"
	"mu/walk"
)

// installer rebuilds the symbols of an archive inside a module
type installer struct {
	ctx  *sem.Context
	mod  *sem.Module
	unit *walk.Unit
}

// Install declares the records of an archive into mod and returns the
// rebuilt unit.  Modules the archive requires are loaded through req first.
// Generated constructors are not stored: they are added again as classes and
// variants are declared.
func Install(ctx *sem.Context, mod *sem.Module, a *Archive, req walk.Requirer) (*walk.Unit, error) {
	if a.Module != mod.QualifiedName() {
		return nil, fmt.Errorf("archive holds module `%s`, not `%s`", a.Module, mod.QualifiedName())
	}

	for _, name := range a.Requires {
		if req == nil {
			return nil, fmt.Errorf("cannot require `%s`: no module loader", name)
		}

		m, err := req.Require(name)
		if err != nil {
			return nil, err
		}

		if m == nil {
			return nil, fmt.Errorf("unable to locate module `%s`", name)
		}

		mod.AddRequire(name)
	}

	in := &installer{ctx: ctx, mod: mod, unit: &walk.Unit{Module: mod}}

	// init records are rebuilt between the decls they were walked between
	next := 0
	for i, d := range a.Init {
		if err := in.declareUpTo(a, a.initPosition(i), &next); err != nil {
			return nil, err
		}

		f, err := in.function(d)
		if err != nil {
			return nil, fmt.Errorf("installing `%s`: %w", d.Name, err)
		}
		in.unit.Init = append(in.unit.Init, f)
		in.unit.InitAt = append(in.unit.InitAt, len(in.unit.Decls))
	}

	if err := in.declareUpTo(a, len(a.Decls), &next); err != nil {
		return nil, err
	}

	return in.unit, nil
}

// declareUpTo declares the decls of a from *next up to (excluding) end
func (in *installer) declareUpTo(a *Archive, end int, next *int) error {
	for ; *next < end; *next++ {
		d := a.Decls[*next]
		sym, err := in.declare(d)
		if err != nil {
			return fmt.Errorf("installing %s `%s`: %w", d.Kind, d.Name, err)
		}
		in.unit.Decls = append(in.unit.Decls, sym)
	}

	return nil
}

// declare rebuilds one declaration
func (in *installer) declare(d *Decl) (sem.Symbol, error) {
	switch d.Kind {
	case DeclFunction:
		return in.declareFunction(d)
	case DeclClass:
		return in.declareClass(d)
	case DeclInterface:
		iface := sem.NewInterface(d.Name, d.Required...)
		return iface, in.ctx.AddSymbol(in.mod, iface)
	case DeclVariant:
		return in.declareVariant(d)
	case DeclConstant:
		v, err := in.value(d.Value)
		if err != nil {
			return nil, err
		}

		k := sem.NewConstant(d.Name, v)
		return k, in.ctx.AddSymbol(in.mod, k)
	}

	return nil, fmt.Errorf("%w: unknown declaration kind %d", ErrCorrupt, d.Kind)
}

func (in *installer) declareFunction(d *Decl) (*sem.Function, error) {
	var owner sem.Symbol = in.mod
	if d.Owner != "" {
		t, err := in.typ(d.Owner)
		if err != nil {
			return nil, err
		}
		owner = t
	}

	f, err := in.signature(d)
	if err != nil {
		return nil, err
	}

	// declared before the body is rebuilt so recursive calls resolve
	if err := in.ctx.AddSymbol(owner, f); err != nil {
		return nil, err
	}

	return f, in.body(f, d)
}

// function rebuilds an undeclared function such as a top level expression
func (in *installer) function(d *Decl) (*sem.Function, error) {
	f, err := in.signature(d)
	if err != nil {
		return nil, err
	}

	return f, in.body(f, d)
}

func (in *installer) signature(d *Decl) (*sem.Function, error) {
	if d.Kind != DeclFunction {
		return nil, fmt.Errorf("%w: `%s` is not a function", ErrCorrupt, d.Name)
	}

	ret, err := in.typ(d.Returns)
	if err != nil {
		return nil, err
	}

	params := make([]*sem.ParameterVariable, len(d.Params))
	for i, p := range d.Params {
		t, err := in.typ(p.Type)
		if err != nil {
			return nil, err
		}

		if p.Default == nil {
			params[i] = sem.Param(p.Name, t)
			continue
		}

		def, err := in.value(p.Default)
		if err != nil {
			return nil, err
		}
		params[i] = sem.ParamDefault(p.Name, t, def)
	}

	return sem.NewFunction(d.Name, ret, sem.Attributes(d.Attrs), params...)
}

func (in *installer) body(f *sem.Function, d *Decl) error {
	if d.Body == nil {
		return fmt.Errorf("%w: `%s` has no body", ErrCorrupt, d.Name)
	}

	body, err := in.node(d.Body)
	if err != nil {
		return err
	}

	return f.SetBody(body, d.StackSize)
}

func (in *installer) declareClass(d *Decl) (*sem.Class, error) {
	var supers []*sem.Class
	var ifaces []*sem.Interface
	for _, name := range d.Supers {
		t, err := in.typ(name)
		if err != nil {
			return nil, err
		}

		switch v := t.(type) {
		case *sem.Class:
			supers = append(supers, v)
		case *sem.Interface:
			ifaces = append(ifaces, v)
		default:
			return nil, fmt.Errorf("`%s` is neither a class nor an interface", name)
		}
	}

	class := sem.NewClass(d.Name, supers...)
	for _, iface := range ifaces {
		if err := class.Implement(iface); err != nil {
			return nil, err
		}
	}

	if err := in.ctx.AddSymbol(in.mod, class); err != nil {
		return nil, err
	}

	for _, f := range d.Fields {
		t, err := in.typ(f.Type)
		if err != nil {
			return nil, err
		}

		if _, err := class.AddMember(f.Name, t); err != nil {
			return nil, err
		}
	}

	if _, err := in.ctx.AddDefaultConstructor(class); err != nil {
		return nil, err
	}

	return class, nil
}

func (in *installer) declareVariant(d *Decl) (*sem.VariantType, error) {
	vt := sem.NewVariantType(d.Name)
	if err := in.ctx.AddSymbol(in.mod, vt); err != nil {
		return nil, err
	}

	for _, tag := range d.Fields {
		var payload sem.Type
		if tag.Type != "" {
			t, err := in.typ(tag.Type)
			if err != nil {
				return nil, err
			}
			payload = t
		}

		if _, err := vt.AddTag(tag.Name, payload); err != nil {
			return nil, err
		}
	}

	return vt, in.ctx.AddVariantConstructors(vt)
}

// -----------------------------------------------------------------------------

func (in *installer) typ(name string) (sem.Type, error) {
	if t := in.ctx.LookupType(nil, name); t != nil {
		return t, nil
	}

	return nil, fmt.Errorf("archive refers to unknown type `%s`", name)
}

// fn finds the overload of name with the given signature
func (in *installer) fn(name, sig string) (*sem.Function, error) {
	for _, f := range in.ctx.FindFunctions(nil, name) {
		if f.Signature() == sig {
			return f, nil
		}
	}

	return nil, fmt.Errorf("archive refers to unknown function `%s%s`", name, sig)
}

func (in *installer) value(vr *ValueRecord) (sem.Value, error) {
	if vr == nil || vr.Kind == ValueNone {
		return sem.NoValue, nil
	}

	t, err := in.typ(vr.Type)
	if err != nil {
		return sem.NoValue, err
	}

	rep := t.MachineRep()
	switch {
	case vr.Kind == ValueInt && rep.IsIntegral():
		return sem.IntValue(t, vr.Int), nil
	case vr.Kind == ValueFloat && rep.IsFloating():
		return sem.FloatValue(t, vr.Float), nil
	case vr.Kind == ValueString && rep == sem.RepPointer:
		return sem.PointerValue(t, vr.Str), nil
	case vr.Kind == ValueZero:
		return in.ctx.ZeroValue(t), nil
	}

	return sem.NoValue, fmt.Errorf("%w: value kind %d does not fit type `%s`", ErrCorrupt, vr.Kind, vr.Type)
}

// node rebuilds a node tree through the sem constructors so that node types
// are recomputed against the installed symbols
func (in *installer) node(nr *NodeRecord) (*sem.Node, error) {
	args := make([]*sem.Node, len(nr.Args))
	for i, a := range nr.Args {
		n, err := in.node(a)
		if err != nil {
			return nil, err
		}
		args[i] = n
	}

	arity := func(n int) error {
		if len(args) != n {
			return fmt.Errorf("%w: node kind %d expects %d arguments, got %d", ErrCorrupt, nr.Kind, n, len(args))
		}
		return nil
	}

	switch nr.Kind {
	case sem.NodeCall:
		f, err := in.fn(nr.Symbol, nr.Signature)
		if err != nil {
			return nil, err
		}
		return sem.NewCallNode(f, args...), nil
	case sem.NodeConstant:
		v, err := in.value(nr.Data)
		if err != nil {
			return nil, err
		}
		return sem.NewConstantNode(v), nil
	case sem.NodeLocal:
		t, err := in.typ(nr.Type)
		if err != nil {
			return nil, err
		}
		return sem.NewLocalNode(nr.Slot, t), nil
	case sem.NodeAssign:
		t, err := in.typ(nr.Type)
		if err != nil {
			return nil, err
		}
		if err := arity(1); err != nil {
			return nil, err
		}
		return sem.NewAssignNode(nr.Slot, t, args[0]), nil
	case sem.NodeSequence:
		var t sem.Type
		if nr.Type != "" {
			var err error
			if t, err = in.typ(nr.Type); err != nil {
				return nil, err
			}
		}
		return sem.NewSequenceNode(t, args...), nil
	case sem.NodeNew:
		class, err := in.class(nr.Symbol)
		if err != nil {
			return nil, err
		}
		return sem.NewNewNode(class, args...), nil
	case sem.NodeField, sem.NodeSetField:
		class, err := in.class(nr.Symbol)
		if err != nil {
			return nil, err
		}

		member := class.Field(nr.Member)
		if member == nil {
			return nil, fmt.Errorf("class `%s` has no field `%s`", nr.Symbol, nr.Member)
		}

		if nr.Kind == sem.NodeField {
			if err := arity(1); err != nil {
				return nil, err
			}
			return sem.NewFieldNode(args[0], member), nil
		}

		if err := arity(2); err != nil {
			return nil, err
		}
		return sem.NewSetFieldNode(args[0], member, args[1]), nil
	case sem.NodeVariantGet, sem.NodeVariantIs:
		t, err := in.typ(nr.Symbol)
		if err != nil {
			return nil, err
		}

		tag, ok := t.(*sem.VariantTagType)
		if !ok {
			return nil, fmt.Errorf("`%s` is not a variant tag", nr.Symbol)
		}

		if err := arity(1); err != nil {
			return nil, err
		}

		if nr.Kind == sem.NodeVariantGet {
			return sem.NewVariantGetNode(args[0], tag), nil
		}

		boolType, err := in.typ(nr.Type)
		if err != nil {
			return nil, err
		}
		return sem.NewVariantIsNode(args[0], tag, boolType), nil
	case sem.NodeArray:
		t, err := in.typ(nr.Type)
		if err != nil {
			return nil, err
		}

		at, ok := t.(*sem.DynamicArrayType)
		if !ok {
			return nil, fmt.Errorf("`%s` is not a dynamic array type", nr.Type)
		}
		return sem.NewArrayNode(at, args...), nil
	case sem.NodeFixedArray:
		t, err := in.typ(nr.Type)
		if err != nil {
			return nil, err
		}

		at, ok := t.(*sem.FixedArrayType)
		if !ok {
			return nil, fmt.Errorf("`%s` is not a fixed array type", nr.Type)
		}
		return sem.NewFixedArrayNode(at), nil
	case sem.NodeTry:
		var catchType sem.Type
		if nr.Symbol != "" {
			var err error
			if catchType, err = in.typ(nr.Symbol); err != nil {
				return nil, err
			}
		}

		if err := arity(2); err != nil {
			return nil, err
		}
		return sem.NewTryNode(args[0], catchType, nr.Slot, args[1]), nil
	case sem.NodeFunctionRef:
		f, err := in.fn(nr.Symbol, nr.Signature)
		if err != nil {
			return nil, err
		}
		return sem.NewFunctionRefNode(f, in.ctx.FunctionType(f)), nil
	case sem.NodeRef:
		t, err := in.typ(nr.Type)
		if err != nil {
			return nil, err
		}

		rt, ok := t.(*sem.ReferenceType)
		if !ok {
			return nil, fmt.Errorf("`%s` is not a reference type", nr.Type)
		}
		return sem.NewRefNode(nr.Slot, rt), nil
	case sem.NodeApply:
		ret, err := in.typ(nr.Type)
		if err != nil {
			return nil, err
		}

		if len(args) == 0 {
			return nil, fmt.Errorf("%w: apply node without a function", ErrCorrupt)
		}
		return sem.NewApplyNode(args[0], ret, args[1:]...), nil
	}

	return nil, fmt.Errorf("%w: unknown node kind %d", ErrCorrupt, nr.Kind)
}

func (in *installer) class(name string) (*sem.Class, error) {
	t, err := in.typ(name)
	if err != nil {
		return nil, err
	}

	class, ok := t.(*sem.Class)
	if !ok {
		return nil, fmt.Errorf("`%s` is not a class", name)
	}

	return class, nil
}
