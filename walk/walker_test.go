package walk

import (
	"bytes"
	"errors"
	"testing"

	"mu/eval"
	"mu/gc"
	"mu/lang"
	"mu/sem"
	"mu/syntax"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	ctx *sem.Context
	mod *sem.Module
	th  *eval.Thread
	out *bytes.Buffer
}

func newFixture(t *testing.T) *fixture {
	ctx := sem.NewContext(gc.NewCollector(0), 0)
	require.NoError(t, lang.Declare(ctx))

	mod := sem.NewModule("test")
	require.NoError(t, ctx.AddSymbol(nil, mod))

	out := &bytes.Buffer{}
	proc := eval.NewProcess(ctx, out)
	th := proc.NewThread()
	t.Cleanup(func() { proc.Release(th) })

	return &fixture{ctx: ctx, mod: mod, th: th, out: out}
}

func (fx *fixture) assemble(src string, req Requirer) (*Unit, error) {
	return Assemble(fx.ctx, fx.mod, "test.mu", src, req)
}

// eval assembles src and runs its top level expressions, returning their
// values
func (fx *fixture) eval(t *testing.T, src string) []sem.Value {
	unit, err := fx.assemble(src, nil)
	require.NoError(t, err)

	var vals []sem.Value
	for _, f := range unit.Init {
		v, err := fx.th.Call(f, nil)
		require.NoError(t, err)
		vals = append(vals, v)
	}

	return vals
}

// requirer serves modules from a map
type requirer map[string]*sem.Module

func (r requirer) Require(name string) (*sem.Module, error) {
	if m, ok := r[name]; ok {
		return m, nil
	}

	return nil, errors.New("no such module")
}

// -----------------------------------------------------------------------------

func TestExactOverloadsFromSource(t *testing.T) {
	fx := newFixture(t)

	vals := fx.eval(t, `
(defun f ((x int)) string "int")
(defun f ((x float)) string "float")
(f 3)
(f 3.0)`)

	require.Len(t, vals, 2)
	assert.Equal(t, "int", vals[0].Str())
	assert.Equal(t, "float", vals[1].Str())

	_, err := fx.assemble(`(f "x")`, nil)
	assert.ErrorIs(t, err, sem.ErrNoMatchingOverload)

	var werr *Error
	require.True(t, errors.As(err, &werr))
	assert.Equal(t, 1, werr.Pos.Line)
}

func TestAmbiguousCallIsAnError(t *testing.T) {
	fx := newFixture(t)

	_, err := fx.assemble(`
(defun g ((x int64)) int 1)
(defun g ((x double)) int 2)
(g 1)`, nil)
	assert.ErrorIs(t, err, sem.ErrAmbiguousOverload)
}

func TestRecursionAndDocs(t *testing.T) {
	fx := newFixture(t)

	vals := fx.eval(t, `
(defun fact ((n int)) int
  "Computes n!"
  (if (<= n 1) 1 (* n (fact (- n 1)))))
(fact 10)`)

	assert.Equal(t, int64(3628800), vals[0].Int())

	fact := fx.ctx.FindFunctions(nil, "test.fact")
	require.Len(t, fact, 1)
	assert.Equal(t, "Computes n!", fact[0].Doc())
	assert.Equal(t, "(int;int)", fact[0].Signature())
}

func TestLocalsAndLoops(t *testing.T) {
	fx := newFixture(t)

	vals := fx.eval(t, `
(defun sum-to ((n int) (step int 1)) int
  (let ((i 0) (total 0))
    (while (< i n)
      (set! i (+ i step))
      (set! total (+ total i)))
    total))
(sum-to 4)
(sum-to 4 2)
(let ((x 1.5d) (y int 2)) (* x y))`)

	assert.Equal(t, int64(10), vals[0].Int())
	assert.Equal(t, int64(6), vals[1].Int())
	assert.Equal(t, 3.0, vals[2].Float())
}

func TestClasses(t *testing.T) {
	fx := newFixture(t)

	vals := fx.eval(t, `
(defclass Point () ((x double) (y double)) "A point")
(defclass Point3 (Point) ((z double)))
(defun norm2 ((p Point)) double
  (+ (* (. p x) (. p x)) (* (. p y) (. p y))))
(let ((p (Point3 3 4 12)))
  (set-field! p z 1)
  (+ (norm2 p) (. p z)))
(. (new Point 1.5d) y)`)

	assert.Equal(t, 26.0, vals[0].Float())
	assert.Equal(t, 0.0, vals[1].Float())

	point, ok := sem.FindSymbolOfType[*sem.Class](fx.ctx, "test.Point")
	require.True(t, ok)
	assert.Equal(t, "A point", point.Doc())
	assert.True(t, point.IsFrozen())
}

func TestInterfaces(t *testing.T) {
	fx := newFixture(t)

	vals := fx.eval(t, `
(definterface Shaped (area))
(defclass Square (Shaped) ((side double)))
(defun Square.area ((s Square)) double (* (. s side) (. s side)))
(defun describe ((s Shaped)) string "shaped")
(describe (Square 2))
(Square.area (Square 3))`)

	assert.Equal(t, "shaped", vals[0].Str())
	assert.Equal(t, 9.0, vals[1].Float())
}

func TestVariants(t *testing.T) {
	fx := newFixture(t)

	vals := fx.eval(t, `
(defvariant Shape "Shapes" (Circle double) (Empty))
(defun area ((s Shape)) double
  (if (variant-is s Circle)
      (* 3d (* (variant-get s Circle) (variant-get s Shape.Circle)))
      0d))
(area (Shape.Circle 2))
(area (Shape.Empty))`)

	assert.Equal(t, 12.0, vals[0].Float())
	assert.Equal(t, 0.0, vals[1].Float())

	unit, err := fx.assemble(`(variant-get (Shape.Empty) Circle)`, nil)
	require.NoError(t, err)
	_, err = fx.th.Call(unit.Init[0], nil)
	assert.ErrorIs(t, err, sem.ErrBadCast)
}

func TestTryCatch(t *testing.T) {
	fx := newFixture(t)

	vals := fx.eval(t, `
(try (throw "bad") (catch (e string) (+ "caught " e)))
(try (/ 1 0) (catch (e) -1))`)

	assert.Equal(t, "caught bad", vals[0].Str())
	assert.Equal(t, int64(-1), vals[1].Int())
}

func TestReferences(t *testing.T) {
	fx := newFixture(t)

	vals := fx.eval(t, `
(defun inc ((x int&)) void (set! x (+ x 1)))
(let ((n 1))
  (inc (ref n))
  (inc (ref n))
  n)`)

	assert.Equal(t, int64(3), vals[0].Int())
}

func TestReferencesOutliveTheirFrame(t *testing.T) {
	fx := newFixture(t)

	vals := fx.eval(t, `
(defun leak () int& (let ((x 41)) (ref x)))
(defun use ((r int&)) int (+ r 1))
(defun bump ((r int&)) void (set! r (+ r 1)))
(use (leak))
(let ((r (leak))) r)
(let ((r (leak)))
  (bump (ref r))
  (bump (ref r))
  r)`)

	require.Len(t, vals, 3)
	assert.Equal(t, int64(42), vals[0].Int())
	assert.Equal(t, int64(41), vals[1].Int())
	assert.Equal(t, int64(43), vals[2].Int())
}

func TestFunctionValues(t *testing.T) {
	fx := newFixture(t)

	vals := fx.eval(t, `
(defun twice ((f (fn int int)) (x int)) int (f (f x)))
(defun add3 ((x int)) int (+ x 3))
(twice (function add3) 1)
((function add3) 2)`)

	assert.Equal(t, int64(7), vals[0].Int())
	assert.Equal(t, int64(5), vals[1].Int())
}

func TestArrays(t *testing.T) {
	fx := newFixture(t)

	vals := fx.eval(t, `
(let ((a (array int 1 2 3)) (g (fixed-array double 2 2)))
  (push a 4)
  (aset g 1.5d 1 1)
  (+ (size a) (aref g 1 1)))`)

	assert.Equal(t, 5.5, vals[0].Float())
}

func TestConstantsAndPrinting(t *testing.T) {
	fx := newFixture(t)

	vals := fx.eval(t, `
(defconst limit 10 "the limit")
(defconst ratio double 2)
(defconst greeting "hi")
(println greeting " " (+ limit 1) " " ratio)
(float 3)`)

	assert.Equal(t, "hi 11 2\n", fx.out.String())
	assert.Same(t, fx.ctx.Float, vals[1].Type())

	limit := fx.ctx.FindConstant("test.limit")
	require.NotNil(t, limit)
	assert.Equal(t, "the limit", limit.Doc())
}

func TestRequire(t *testing.T) {
	fx := newFixture(t)

	util := sem.NewModule("util")
	require.NoError(t, fx.ctx.AddSymbol(nil, util))
	helper, err := sem.NewNativeFunction("helper", fx.ctx.Int, func(ev sem.Evaluator, args []sem.Value) (sem.Value, error) {
		return sem.IntValue(fx.ctx.Int, args[0].Int()*10), nil
	}, sem.FnPure, sem.Param("x", fx.ctx.Int))
	require.NoError(t, err)
	require.NoError(t, fx.ctx.AddSymbol(util, helper))

	unit, err := fx.assemble(`
(require util)
(+ (helper 2) (util.helper 3))`, requirer{"util": util})
	require.NoError(t, err)
	assert.Equal(t, []string{"util"}, fx.mod.Requires())

	v, err := fx.th.Call(unit.Init[0], nil)
	require.NoError(t, err)
	assert.Equal(t, int64(50), v.Int())

	_, err = fx.assemble(`(require missing)`, requirer{})
	assert.Error(t, err)
}

func TestWalkErrors(t *testing.T) {
	fx := newFixture(t)

	cases := []struct {
		src, message string
	}{
		{"(nope 1)", "undefined function `nope`"},
		{"(+ 1 y)", "undefined symbol `y`"},
		{"(do (defun f () int 1))", "only allowed at the top level"},
		{"(defun f ((x nothing)) int x)", "undefined type `nothing`"},
		{"(let ((x (println))) x)", "no value"},
		{"(set! q 1)", "not a local variable"},
	}

	for _, c := range cases {
		_, err := fx.assemble(c.src, nil)
		require.Error(t, err, c.src)
		assert.Contains(t, err.Error(), c.message, c.src)

		var serr *syntax.Error
		assert.True(t, errors.As(err, &serr), c.src)
	}
}

func TestDeclarationsAreRecorded(t *testing.T) {
	fx := newFixture(t)

	unit, err := fx.assemble(`
(defclass Box () ((v int)))
(defun Box.get ((b Box)) int (. b v))
(defconst one 1)
(print 1)`, nil)
	require.NoError(t, err)

	names := make([]string, len(unit.Decls))
	for i, d := range unit.Decls {
		names[i] = d.QualifiedName()
	}
	assert.Equal(t, []string{"test.Box", "test.Box.get", "test.one"}, names)
	assert.Len(t, unit.Init, 1)
}
