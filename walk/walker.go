package walk

import (
	"fmt"

	"mu/sem"
	"mu/syntax"
)

// Requirer loads the modules named by `require` forms
type Requirer interface {
	Require(name string) (*sem.Module, error)
}

// Unit is the result of assembling one source file
type Unit struct {
	Module *sem.Module

	// Decls lists the symbols the file declared, in declaration order
	Decls []sem.Symbol

	// Init holds the top level expressions compiled into functions.  They are
	// run in order once the unit is loaded.
	Init []*sem.Function

	// InitAt holds, for each Init function, how many of Decls were declared
	// when it was assembled
	InitAt []int
}

// Walker is the construct responsible for turning the forms of a source file
// into declarations and node trees
type Walker struct {
	ctx  *sem.Context
	mod  *sem.Module
	file string

	req      Requirer
	required []*sem.Module

	unit *Unit

	// fn is the function currently being assembled or nil at the top level
	fn *funcContext
}

// NewWalker creates a new walker declaring into mod.  req may be nil if the
// source does not require other modules.
func NewWalker(ctx *sem.Context, mod *sem.Module, file string, req Requirer) *Walker {
	return &Walker{
		ctx:  ctx,
		mod:  mod,
		file: file,
		req:  req,
		unit: &Unit{Module: mod},
	}
}

// Assemble parses and walks a source file into mod
func Assemble(ctx *sem.Context, mod *sem.Module, file, src string, req Requirer) (*Unit, error) {
	forms, err := syntax.Parse(file, src)
	if err != nil {
		return nil, err
	}

	return NewWalker(ctx, mod, file, req).WalkFile(forms)
}

// WalkFile walks every top level form.  Walking stops at the first error.
func (w *Walker) WalkFile(forms []syntax.ASTNode) (*Unit, error) {
	for _, form := range forms {
		if err := w.WalkForm(form); err != nil {
			return nil, err
		}
	}

	return w.unit, nil
}

// WalkForm walks a single top level form
func (w *Walker) WalkForm(form syntax.ASTNode) error {
	if list, ok := form.(*syntax.ASTList); ok {
		switch list.Head() {
		case "require":
			return w.walkRequire(list)
		case "defun":
			return w.walkDefun(list)
		case "defclass":
			return w.walkDefClass(list)
		case "definterface":
			return w.walkDefInterface(list)
		case "defvariant":
			return w.walkDefVariant(list)
		case "defconst":
			return w.walkDefConst(list)
		}
	}

	return w.walkTopLevelExpr(form)
}

// Use makes the symbols of m visible to unqualified names as if the source
// had required it
func (w *Walker) Use(m *sem.Module) {
	w.mod.AddRequire(m.Name())
	w.addRequired(m)
}

// Unit returns what has been assembled so far
func (w *Walker) Unit() *Unit {
	return w.unit
}

// declare adds a symbol to owner and records it in the unit
func (w *Walker) declare(owner sem.Symbol, sym sem.Symbol, at syntax.ASTNode) error {
	if err := w.ctx.AddSymbol(owner, sym); err != nil {
		return w.wrap(at, err)
	}

	w.unit.Decls = append(w.unit.Decls, sym)
	return nil
}

// walkRequire loads a module and makes its symbols visible to the rest of
// the file
func (w *Walker) walkRequire(list *syntax.ASTList) error {
	if list.Len() < 2 {
		return w.errorf(list, "`require` expects at least one module name")
	}

	for i := 1; i < list.Len(); i++ {
		name, ok := list.SymbolAt(i)
		if !ok {
			return w.errorf(list.Content[i], "expected a module name")
		}

		if w.req == nil {
			return w.errorf(list.Content[i], "cannot require `%s`: no module loader", name)
		}

		m, err := w.req.Require(name)
		if err != nil {
			return w.wrap(list.Content[i], err)
		}

		if m == nil {
			return w.errorf(list.Content[i], "unable to locate module `%s`", name)
		}

		w.mod.AddRequire(name)
		w.addRequired(m)
	}

	return nil
}

// addRequired records a module whose symbols unqualified names may refer to
func (w *Walker) addRequired(m *sem.Module) {
	for _, r := range w.required {
		if r == m {
			return
		}
	}

	w.required = append(w.required, m)
}

// walkTopLevelExpr compiles an expression into an init function
func (w *Walker) walkTopLevelExpr(form syntax.ASTNode) error {
	w.fn = newFuncContext(nil)
	defer func() { w.fn = nil }()

	body, err := w.walkExpr(form)
	if err != nil {
		return err
	}

	name := fmt.Sprintf("%s:init%d", w.moduleName(), len(w.unit.Init))
	f, err := sem.NewFunction(name, body.Type(), sem.FnGenerated)
	if err != nil {
		return w.wrap(form, err)
	}

	if err := f.SetBody(body, w.fn.size()); err != nil {
		return w.wrap(form, err)
	}

	w.unit.Init = append(w.unit.Init, f)
	w.unit.InitAt = append(w.unit.InitAt, len(w.unit.Decls))
	return nil
}

func (w *Walker) moduleName() string {
	if w.mod.Name() == "" {
		return "main"
	}

	return w.mod.QualifiedName()
}
