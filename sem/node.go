package sem

import (
	"errors"
	"io"
)

// Evaluator is the evaluation context node functions run in.  The eval
// package's Thread is the implementation used at runtime.
type Evaluator interface {
	Context() *Context

	// Eval evaluates a node in the current frame
	Eval(n *Node) (Value, error)

	// Call invokes a function with evaluated arguments
	Call(f *Function, args []Value) (Value, error)

	// Local and SetLocal access slots of the current frame
	Local(slot int) Value
	SetLocal(slot int, v Value)

	// LocalRef returns a reference to a slot of the current frame that stays
	// valid while the frame is active
	LocalRef(slot int) *Reference

	Output() io.Writer
}

// NodeFunc evaluates a node.  Ordinary calls evaluate every argument node
// first; control constructs receive the unevaluated nodes.
type NodeFunc func(ev Evaluator, n *Node) (Value, error)

// NodeKind identifies how a node is evaluated so that node trees can be
// serialized and rebuilt
type NodeKind int

const (
	NodeCall NodeKind = iota
	NodeConstant
	NodeLocal
	NodeAssign
	NodeSequence
	NodeNew
	NodeField
	NodeSetField
	NodeVariantGet
	NodeVariantIs
	NodeArray
	NodeFixedArray
	NodeTry
	NodeFunctionRef
	NodeRef
	NodeApply
)

// Node is one element of an interpreted function body
type Node struct {
	Kind NodeKind
	Func NodeFunc

	// Symbol is the function called or referenced, the class instantiated,
	// the member accessed, the variant tag checked or the type caught,
	// depending on Kind
	Symbol Symbol

	Args []*Node

	// Data is the value of constant nodes
	Data Value

	// Slot is the frame slot of local, assignment, reference and try nodes
	Slot int

	typ Type
}

// Type returns the type the node evaluates to
func (n *Node) Type() Type {
	return n.typ
}

// Function returns the function of call and function reference nodes
func (n *Node) Function() *Function {
	f, _ := n.Symbol.(*Function)
	return f
}

// evalArgs evaluates argument nodes left to right
func evalArgs(ev Evaluator, nodes []*Node) ([]Value, error) {
	vals := make([]Value, len(nodes))
	for i, a := range nodes {
		v, err := ev.Eval(a)
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}

	return vals, nil
}

// -----------------------------------------------------------------------------

// NewCallNode creates a node calling f with the given argument nodes.  The
// arguments must already match f's parameters (see Resolution.Apply).
func NewCallNode(f *Function, args ...*Node) *Node {
	argTypes := make([]Type, len(args))
	for i, a := range args {
		argTypes[i] = a.typ
	}

	n := &Node{Kind: NodeCall, Symbol: f, Args: args, typ: f.ResultType(argTypes)}
	if f.control != nil {
		n.Func = f.control
	} else {
		n.Func = callNode
	}

	return n
}

func callNode(ev Evaluator, n *Node) (Value, error) {
	args, err := evalArgs(ev, n.Args)
	if err != nil {
		return NoValue, err
	}

	return ev.Call(n.Symbol.(*Function), args)
}

// Apply wraps each argument node in the resolution's casts and appends
// constant nodes for defaulted parameters, producing a call node
func (r *Resolution) Apply(args []*Node) (*Node, error) {
	f := r.Function
	converted := make([]*Node, len(args))
	for i, a := range args {
		for _, cast := range r.Conversions[i] {
			a = NewCallNode(cast, a)
		}
		converted[i] = a
	}

	for i := len(args); i < len(f.params); i++ {
		def, ok := f.params[i].Default()
		if !ok {
			return nil, NewException(ExceptionBadArgument, "missing argument `%s` of `%s` has no default", f.params[i].name, f.QualifiedName())
		}
		converted = append(converted, NewConstantNode(def))
	}

	return NewCallNode(f, converted...), nil
}

// NewConstantNode creates a node evaluating to v
func NewConstantNode(v Value) *Node {
	return &Node{Kind: NodeConstant, Func: constantNode, Data: v, typ: v.Type()}
}

func constantNode(ev Evaluator, n *Node) (Value, error) {
	return n.Data, nil
}

// NewLocalNode creates a node reading a frame slot of type t.  Reading a
// reference typed slot produces the referenced value.
func NewLocalNode(slot int, t Type) *Node {
	if rt, ok := t.(*ReferenceType); ok {
		return &Node{Kind: NodeLocal, Func: localNode, Symbol: rt, Slot: slot, typ: rt.target}
	}

	return &Node{Kind: NodeLocal, Func: localNode, Slot: slot, typ: t}
}

// SlotType returns the declared type of the slot a local node reads
func (n *Node) SlotType() Type {
	if rt, ok := n.Symbol.(*ReferenceType); ok {
		return rt
	}

	return n.typ
}

func localNode(ev Evaluator, n *Node) (Value, error) {
	v := ev.Local(n.Slot)
	if n.Symbol != nil {
		if ref, ok := v.Pointer().(*Reference); ok && ref != nil {
			return ref.Load(), nil
		}
	}

	return v, nil
}

// NewAssignNode creates a node storing the value of value in a frame slot.
// Assigning through a reference typed slot stores into the referenced
// location.
func NewAssignNode(slot int, t Type, value *Node) *Node {
	return &Node{Kind: NodeAssign, Func: assignNode, Slot: slot, Args: []*Node{value}, typ: t}
}

func assignNode(ev Evaluator, n *Node) (Value, error) {
	v, err := ev.Eval(n.Args[0])
	if err != nil {
		return NoValue, err
	}

	if _, isRef := n.typ.(*ReferenceType); isRef {
		if ref, ok := ev.Local(n.Slot).Pointer().(*Reference); ok && ref != nil {
			if _, vIsRef := v.Type().(*ReferenceType); !vIsRef {
				ref.Store(v)
				return v, nil
			}
		}
	}

	ev.SetLocal(n.Slot, v)
	return v, nil
}

// NewSequenceNode creates a node evaluating nodes in order and producing the
// last value.  t is the result type for an empty sequence.
func NewSequenceNode(t Type, nodes ...*Node) *Node {
	if len(nodes) > 0 {
		t = nodes[len(nodes)-1].typ
	}

	return &Node{Kind: NodeSequence, Func: sequenceNode, Args: nodes, typ: t}
}

func sequenceNode(ev Evaluator, n *Node) (Value, error) {
	result := NoValue
	for _, a := range n.Args {
		v, err := ev.Eval(a)
		if err != nil {
			return NoValue, err
		}
		result = v
	}

	if len(n.Args) == 0 && n.typ != nil && n.typ.MachineRep() == RepVoid {
		return VoidValue(n.typ), nil
	}

	return result, nil
}

// NewNewNode creates a node allocating an instance of class and initializing
// its leading fields from args
func NewNewNode(class *Class, args ...*Node) *Node {
	return &Node{Kind: NodeNew, Func: newNode, Symbol: class, Args: args, typ: class}
}

func newNode(ev Evaluator, n *Node) (Value, error) {
	args, err := evalArgs(ev, n.Args)
	if err != nil {
		return NoValue, err
	}

	class := n.Symbol.(*Class)
	obj, err := ev.Context().NewObject(class)
	if err != nil {
		return NoValue, err
	}

	if len(args) > len(obj.Fields) {
		return NoValue, NewException(ExceptionWrongArgCount, "`%s` has %d fields, got %d initializers", class.QualifiedName(), len(obj.Fields), len(args))
	}
	copy(obj.Fields, args)

	return PointerValue(class, obj), nil
}

// objectArg extracts a non-nil object from a value
func objectArg(v Value, what string) (*Object, error) {
	obj, _ := v.Pointer().(*Object)
	if obj == nil {
		return nil, NewException(ExceptionNilArgument, "%s of a nil object", what)
	}

	return obj, nil
}

// NewFieldNode creates a node reading member of the object obj evaluates to
func NewFieldNode(obj *Node, member *MemberVariable) *Node {
	return &Node{Kind: NodeField, Func: fieldNode, Symbol: member, Args: []*Node{obj}, typ: member.typ}
}

func fieldNode(ev Evaluator, n *Node) (Value, error) {
	v, err := ev.Eval(n.Args[0])
	if err != nil {
		return NoValue, err
	}

	obj, err := objectArg(v, "field access")
	if err != nil {
		return NoValue, err
	}

	return obj.Fields[n.Symbol.(*MemberVariable).index], nil
}

// NewSetFieldNode creates a node storing value into member of obj
func NewSetFieldNode(obj *Node, member *MemberVariable, value *Node) *Node {
	return &Node{Kind: NodeSetField, Func: setFieldNode, Symbol: member, Args: []*Node{obj, value}, typ: member.typ}
}

func setFieldNode(ev Evaluator, n *Node) (Value, error) {
	vals, err := evalArgs(ev, n.Args)
	if err != nil {
		return NoValue, err
	}

	obj, err := objectArg(vals[0], "field assignment")
	if err != nil {
		return NoValue, err
	}

	obj.Fields[n.Symbol.(*MemberVariable).index] = vals[1]
	return vals[1], nil
}

// variantArg extracts a non-nil variant instance from a value
func variantArg(v Value) (*VariantInstance, error) {
	inst, _ := v.Pointer().(*VariantInstance)
	if inst == nil {
		return nil, NewException(ExceptionNilArgument, "nil variant value")
	}

	return inst, nil
}

// NewVariantGetNode creates a node extracting the payload of tag.  Evaluating
// it on a value holding another tag raises a bad cast.
func NewVariantGetNode(v *Node, tag *VariantTagType) *Node {
	return &Node{Kind: NodeVariantGet, Func: variantGetNode, Symbol: tag, Args: []*Node{v}, typ: tag.payload}
}

func variantGetNode(ev Evaluator, n *Node) (Value, error) {
	v, err := ev.Eval(n.Args[0])
	if err != nil {
		return NoValue, err
	}

	inst, err := variantArg(v)
	if err != nil {
		return NoValue, err
	}

	return inst.Get(n.Symbol.(*VariantTagType))
}

// NewVariantIsNode creates a node testing whether a variant holds tag
func NewVariantIsNode(v *Node, tag *VariantTagType, boolType Type) *Node {
	return &Node{Kind: NodeVariantIs, Func: variantIsNode, Symbol: tag, Args: []*Node{v}, typ: boolType}
}

func variantIsNode(ev Evaluator, n *Node) (Value, error) {
	v, err := ev.Eval(n.Args[0])
	if err != nil {
		return NoValue, err
	}

	inst, err := variantArg(v)
	if err != nil {
		return NoValue, err
	}

	return BoolValue(n.typ, inst.tag == n.Symbol), nil
}

// NewArrayNode creates a node building a one dimensional dynamic array from
// element nodes
func NewArrayNode(t *DynamicArrayType, elems ...*Node) *Node {
	return &Node{Kind: NodeArray, Func: arrayNode, Symbol: t, Args: elems, typ: t}
}

func arrayNode(ev Evaluator, n *Node) (Value, error) {
	elems, err := evalArgs(ev, n.Args)
	if err != nil {
		return NoValue, err
	}

	t := n.Symbol.(*DynamicArrayType)
	arr := ev.Context().NewArray(t, []int{len(elems)})
	copy(arr.Elems, elems)

	return PointerValue(t, arr), nil
}

// NewFixedArrayNode creates a node allocating a zero filled fixed array
func NewFixedArrayNode(t *FixedArrayType) *Node {
	return &Node{Kind: NodeFixedArray, Func: fixedArrayNode, Symbol: t, typ: t}
}

func fixedArrayNode(ev Evaluator, n *Node) (Value, error) {
	t := n.Symbol.(*FixedArrayType)
	return PointerValue(t, ev.Context().NewArray(t, t.dims)), nil
}

// NewTryNode creates a node evaluating body and, if it raises an exception
// whose value is a catchType, binding the value to slot and evaluating
// handler instead
func NewTryNode(body *Node, catchType Type, slot int, handler *Node) *Node {
	return &Node{Kind: NodeTry, Func: tryNode, Symbol: catchType, Slot: slot, Args: []*Node{body, handler}, typ: body.typ}
}

func tryNode(ev Evaluator, n *Node) (Value, error) {
	v, err := ev.Eval(n.Args[0])
	if err == nil {
		return v, nil
	}

	var exc *Exception
	if !errors.As(err, &exc) {
		return NoValue, err
	}

	thrown := exc.Value
	if thrown.IsNone() {
		thrown = PointerValue(ev.Context().String, exc.Error())
	}

	if catchType, ok := n.Symbol.(Type); ok && catchType != nil && !thrown.Type().IsA(catchType) {
		return NoValue, err
	}

	ev.SetLocal(n.Slot, thrown)
	return ev.Eval(n.Args[1])
}

// NewFunctionRefNode creates a node producing f as a first class value
func NewFunctionRefNode(f *Function, t *FunctionType) *Node {
	return &Node{Kind: NodeFunctionRef, Func: constantNode, Symbol: f, Data: PointerValue(t, f), typ: t}
}

// NewRefNode creates a node producing a reference to a frame slot
func NewRefNode(slot int, t *ReferenceType) *Node {
	return &Node{Kind: NodeRef, Func: refNode, Slot: slot, typ: t}
}

func refNode(ev Evaluator, n *Node) (Value, error) {
	cur := ev.Local(n.Slot)
	if _, isRef := cur.Type().(*ReferenceType); isRef {
		return cur, nil
	}

	return PointerValue(n.typ, ev.LocalRef(n.Slot)), nil
}

// NewApplyNode creates a node calling the function value fn evaluates to
func NewApplyNode(fn *Node, ret Type, args ...*Node) *Node {
	return &Node{Kind: NodeApply, Func: applyNode, Args: append([]*Node{fn}, args...), typ: ret}
}

func applyNode(ev Evaluator, n *Node) (Value, error) {
	vals, err := evalArgs(ev, n.Args)
	if err != nil {
		return NoValue, err
	}

	f, _ := vals[0].Pointer().(*Function)
	if f == nil {
		return NoValue, NewException(ExceptionNilArgument, "call of a nil function value")
	}

	args, err := f.FillDefaults(vals[1:])
	if err != nil {
		return NoValue, err
	}

	return ev.Call(f, args)
}
