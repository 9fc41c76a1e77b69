package walk

import (
	"strings"

	"mu/sem"
)

// local is a frame slot bound to a name
type local struct {
	slot int

	// typ is the slot's declared type which may be a reference type
	typ sem.Type
}

// funcContext tracks the locals of the function being assembled.  Slots are
// never reused so the frame size is the number of slots ever allocated.
type funcContext struct {
	fn     *sem.Function
	scopes []map[string]local
	next   int
}

// newFuncContext creates a context whose outermost scope binds the
// parameters of fn (which may be nil for top level expressions)
func newFuncContext(fn *sem.Function) *funcContext {
	fc := &funcContext{fn: fn, scopes: []map[string]local{{}}}

	if fn != nil {
		for _, p := range fn.Params() {
			fc.scopes[0][p.Name()] = local{slot: p.Slot(), typ: p.Type()}
		}
		fc.next = fn.NumArgs()
	}

	return fc
}

func (fc *funcContext) pushScope() {
	fc.scopes = append(fc.scopes, map[string]local{})
}

func (fc *funcContext) popScope() {
	fc.scopes = fc.scopes[:len(fc.scopes)-1]
}

// define binds name to a new slot in the innermost scope.  Redefining a name
// in the same scope shadows the earlier binding.
func (fc *funcContext) define(name string, t sem.Type) local {
	l := local{slot: fc.next, typ: t}
	fc.next++

	fc.scopes[len(fc.scopes)-1][name] = l
	return l
}

// lookup finds the innermost binding of name
func (fc *funcContext) lookup(name string) (local, bool) {
	for i := len(fc.scopes) - 1; i >= 0; i-- {
		if l, ok := fc.scopes[i][name]; ok {
			return l, true
		}
	}

	return local{}, false
}

// size returns the frame size needed by the function
func (fc *funcContext) size() int {
	return fc.next
}

// -----------------------------------------------------------------------------

// lookupLocal finds a local variable of the function being assembled
func (w *Walker) lookupLocal(name string) (local, bool) {
	if w.fn == nil {
		return local{}, false
	}

	return w.fn.lookup(name)
}

// lookupType resolves a type name from the module and then from each
// required module
func (w *Walker) lookupType(name string) sem.Type {
	if t := w.ctx.LookupType(w.mod, name); t != nil {
		return t
	}

	for _, m := range w.required {
		if t := w.ctx.LookupType(m, name); t != nil {
			return t
		}
	}

	return nil
}

// lookupConstant resolves a constant name the same way as types
func (w *Walker) lookupConstant(name string) *sem.Constant {
	if k, ok := sem.LookupSymbolOfType[*sem.Constant](w.ctx, w.mod, name); ok {
		return k
	}

	for _, m := range w.required {
		if k, ok := sem.LookupSymbolOfType[*sem.Constant](w.ctx, m, name); ok {
			return k
		}
	}

	return nil
}

// lookupFunctions collects the overload candidates for name.  Functions
// visible from the module come first, then those declared directly in
// required modules.  A candidate with the signature of an earlier one is
// shadowed.
func (w *Walker) lookupFunctions(name string) []*sem.Function {
	fns := w.ctx.FindFunctions(w.mod, name)
	if strings.Contains(name, ".") {
		return fns
	}

	for _, m := range w.required {
		for _, s := range m.Scope().Overloads(name) {
			f, ok := s.(*sem.Function)
			if ok && !shadowedBy(fns, f) {
				fns = append(fns, f)
			}
		}
	}

	return fns
}

func shadowedBy(fns []*sem.Function, f *sem.Function) bool {
	for _, g := range fns {
		if g == f || g.Matches(f) {
			return true
		}
	}

	return false
}
