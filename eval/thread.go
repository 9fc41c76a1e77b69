package eval

import (
	"errors"
	"io"

	"mu/gc"
	"mu/sem"
)

// frame is one active call on a thread's stack
type frame struct {
	fn   *sem.Function
	base int

	// refs are the references taken to the frame's slots
	refs []*sem.Reference
}

// Thread is a per-host-thread evaluation context: a value stack divided into
// frames, the exception raised by the last outermost call and its return
// value.  A Thread must only be used by one goroutine at a time.
type Thread struct {
	proc *Process

	stack  []sem.Value
	frames []frame

	// pinned holds the arguments of an outermost call while the call is being
	// set up so that a collection at the safe point does not reclaim them
	pinned []sem.Value

	exception   *sem.Exception
	returnValue sem.Value

	env        CallEnvironment
	providerID int
}

// Process returns the process the thread belongs to
func (t *Thread) Process() *Process {
	return t.proc
}

func (t *Thread) Context() *sem.Context {
	return t.proc.ctx
}

func (t *Thread) Output() io.Writer {
	return t.proc.Output()
}

// Depth returns the number of active calls
func (t *Thread) Depth() int {
	return len(t.frames)
}

// UncaughtException returns the exception that ended the last outermost
// call, or nil if it returned normally
func (t *Thread) UncaughtException() *sem.Exception {
	return t.exception
}

// ClearException resets the exception slot
func (t *Thread) ClearException() {
	t.exception = nil
}

// ReturnValue returns the value produced by the last outermost call
func (t *Thread) ReturnValue() sem.Value {
	return t.returnValue
}

// Backtrace lists the active functions, outermost first
func (t *Thread) Backtrace() []string {
	names := make([]string, len(t.frames))
	for i, f := range t.frames {
		names[i] = f.fn.QualifiedName()
	}

	return names
}

// traceRoots reports every block referenced from the thread
func (t *Thread) traceRoots(visit func(*gc.Block)) {
	sem.TraceValues(t.stack, visit)
	sem.TraceValues(t.pinned, visit)
	sem.TraceValue(t.returnValue, visit)

	if t.exception != nil {
		sem.TraceValue(t.exception.Value, visit)
	}
}

// -----------------------------------------------------------------------------

// Eval evaluates a node in the current frame
func (t *Thread) Eval(n *sem.Node) (sem.Value, error) {
	return n.Func(t, n)
}

func (t *Thread) currentBase() int {
	if len(t.frames) == 0 {
		return 0
	}

	return t.frames[len(t.frames)-1].base
}

// Local reads a slot of the current frame
func (t *Thread) Local(slot int) sem.Value {
	return t.stack[t.currentBase()+slot]
}

// SetLocal writes a slot of the current frame
func (t *Thread) SetLocal(slot int, v sem.Value) {
	t.stack[t.currentBase()+slot] = v
}

// LocalRef returns a reference to a slot of the current frame.  The reference
// addresses the slot by index since the stack may be reallocated as it grows.
// It is closed over the slot's value when the frame returns.
func (t *Thread) LocalRef(slot int) *sem.Reference {
	ix := t.currentBase() + slot
	n := len(t.frames)
	if n == 0 || ix >= len(t.stack) {
		return sem.NewCellReference(sem.NoValue)
	}

	ref := &sem.Reference{
		Load:  func() sem.Value { return t.stack[ix] },
		Store: func(v sem.Value) { t.stack[ix] = v },
	}
	t.frames[n-1].refs = append(t.frames[n-1].refs, ref)

	return ref
}

// Call invokes f with evaluated arguments.  Arguments are filled with
// defaults but not converted: callers resolve overloads first.
//
// Within an interpreted call chain failures are returned as errors.  When the
// call is outermost (no other call active on the thread) the failure is also
// stored in the exception slot and the result in the return value, which is
// how native callers observe them.
func (t *Thread) Call(f *sem.Function, args []sem.Value) (sem.Value, error) {
	if len(t.frames) > 0 {
		return t.call(f, args)
	}

	t.exception = nil
	t.returnValue = sem.NoValue

	t.pinned = args
	t.proc.collectIfNeeded()

	t.proc.world.RLock()
	defer t.proc.world.RUnlock()

	v, err := t.callOutermost(f, args)
	t.pinned = nil

	if err != nil {
		t.exception = toException(err)
		return sem.NoValue, t.exception
	}

	t.returnValue = v
	return v, nil
}

// callOutermost runs an outermost call.  A panic escaping a native function
// becomes a runtime exception once the frames have been popped.
func (t *Thread) callOutermost(f *sem.Function, args []sem.Value) (v sem.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			v = sem.NoValue
			err = sem.NewException(sem.ExceptionRuntime, "panic calling `%s`: %v", f.QualifiedName(), r)
		}
	}()

	return t.call(f, args)
}

// Invoke calls f as an outermost call and reports failure only through the
// exception slot: callers must check UncaughtException afterwards
func (t *Thread) Invoke(f *sem.Function, args ...sem.Value) sem.Value {
	v, _ := t.Call(f, args)
	return v
}

func (t *Thread) call(f *sem.Function, args []sem.Value) (result sem.Value, err error) {
	if control := f.Control(); control != nil {
		nodes := make([]*sem.Node, len(args))
		for i, a := range args {
			nodes[i] = sem.NewConstantNode(a)
		}

		return control(t, sem.NewCallNode(f, nodes...))
	}

	if args, err = f.FillDefaults(args); err != nil {
		return sem.NoValue, err
	}

	if len(t.frames) >= t.proc.MaxDepth {
		return sem.NoValue, t.raise(sem.NewException(sem.ExceptionRuntime, "stack overflow calling `%s`", f.QualifiedName()))
	}

	t.pushFrame(f, args)
	defer func() {
		if err != nil {
			err = t.raise(err)
		}
		t.popFrame()
	}()

	if f.IsInterpreted() {
		if f.Body() == nil {
			return sem.NoValue, sem.NewException(sem.ExceptionRuntime, "`%s` has no body", f.QualifiedName())
		}

		return t.Eval(f.Body())
	}

	return f.Native()(t, args)
}

// pushFrame reserves the callee's stack slots and binds its arguments
func (t *Thread) pushFrame(f *sem.Function, args []sem.Value) {
	size := f.StackSize()
	if size < len(args) || !f.IsInterpreted() {
		size = len(args)
	}

	base := len(t.stack)
	for i := 0; i < size; i++ {
		if i < len(args) {
			t.stack = append(t.stack, args[i])
		} else {
			t.stack = append(t.stack, sem.NoValue)
		}
	}

	t.frames = append(t.frames, frame{fn: f, base: base})
}

// popFrame discards the innermost frame and its slots
func (t *Thread) popFrame() {
	top := t.frames[len(t.frames)-1]
	t.frames = t.frames[:len(t.frames)-1]

	for _, ref := range top.refs {
		ref.Close()
	}

	for i := top.base; i < len(t.stack); i++ {
		t.stack[i] = sem.NoValue
	}
	t.stack = t.stack[:top.base]
}

// raise converts err into an exception and records the backtrace of the
// point where it was first seen
func (t *Thread) raise(err error) error {
	exc := toException(err)
	if exc.Backtrace == nil {
		// copy so that shared exception values are never annotated
		annotated := *exc
		annotated.Backtrace = t.Backtrace()
		return &annotated
	}

	return exc
}

// toException converts a native failure into a catchable exception
func toException(err error) *sem.Exception {
	var exc *sem.Exception
	if errors.As(err, &exc) {
		return exc
	}

	return &sem.Exception{Kind: sem.ExceptionRuntime, Message: err.Error()}
}
