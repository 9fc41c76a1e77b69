package archive

import (
	"bytes"
	"io"
	"path/filepath"
	"testing"

	"mu/eval"
	"mu/gc"
	"mu/lang"
	"mu/sem"
	"mu/walk"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const geoSource = `
(definterface Named (name))
(defclass Point (Named) ((x double) (y double)) "A point")
(defvariant Shape (Circle double) (Dot))
(defconst scale double 2 "Scale factor")
(defun Point.name ((p Point)) string "point")
(defun norm2 ((p Point)) double (+ (* (. p x) (. p x)) (* (. p y) (. p y))))
(defun area ((s Shape)) double
  (if (variant-is s Circle) (* (variant-get s Circle) scale) 0d))
(defun inc ((x int&)) void (set! x (+ x 1)))
(defun twice ((f (fn int int)) (x int)) int (f (f x)))
(defun add3 ((x int) (y int 3)) int (+ x y))
(defun add3-once ((x int)) int (add3 x))
(defun run ((n int)) int
  "Exercises locals"
  (let ((total 0) (grid (fixed-array int 2)) (xs (array int 1 2)))
    (inc (ref total))
    (set! total (+ total (twice (function add3-once) n)))
    (aset grid total 1)
    (push xs (aref grid 1))
    (try (/ total 0) (catch (e) (size xs)))))
(defun shift ((p Point)) Point (set-field! p x 10) p)
(run 1)
(norm2 (Point 3 4))
(area (Shape.Circle 1.5d))
(. (shift (Point)) x)
(Point.name (Point))
`

func newContext(t *testing.T) *sem.Context {
	ctx := sem.NewContext(gc.NewCollector(0), 0)
	require.NoError(t, lang.Declare(ctx))
	return ctx
}

func newModule(t *testing.T, ctx *sem.Context, name string) *sem.Module {
	mod := sem.NewModule(name)
	require.NoError(t, ctx.AddSymbol(nil, mod))
	return mod
}

// runInit evaluates the top level expressions of a unit
func runInit(t *testing.T, ctx *sem.Context, unit *walk.Unit) []sem.Value {
	proc := eval.NewProcess(ctx, io.Discard)
	th := proc.NewThread()
	defer proc.Release(th)

	var vals []sem.Value
	for _, f := range unit.Init {
		v, err := th.Call(f, nil)
		require.NoError(t, err, f.Name())
		vals = append(vals, v)
	}

	return vals
}

// compileGeo assembles geoSource and encodes it
func compileGeo(t *testing.T) (*sem.Context, *walk.Unit, []byte) {
	ctx := newContext(t)
	unit, err := walk.Assemble(ctx, newModule(t, ctx, "geo"), "geo.mu", geoSource, nil)
	require.NoError(t, err)

	a, err := Capture(unit, "geo.mu")
	require.NoError(t, err)

	buff := &bytes.Buffer{}
	require.NoError(t, Write(buff, a))

	return ctx, unit, buff.Bytes()
}

// -----------------------------------------------------------------------------

func TestRoundTrip(t *testing.T) {
	srcCtx, srcUnit, data := compileGeo(t)

	a, err := Read(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, "geo", a.Module)
	assert.Equal(t, "geo.mu", a.Source)
	assert.Len(t, a.Decls, len(srcUnit.Decls))

	ctx := newContext(t)
	unit, err := Install(ctx, newModule(t, ctx, "geo"), a, nil)
	require.NoError(t, err)

	// the same qualified names with the same signatures
	for _, sym := range srcUnit.Decls {
		got := ctx.FindSymbolByQualifiedName(sym.QualifiedName(), false)
		require.NotNil(t, got, sym.QualifiedName())
		assert.Equal(t, sym.Kind(), got.Kind())

		if f, ok := sym.(*sem.Function); ok {
			fns := ctx.FindFunctions(nil, f.QualifiedName())
			require.Len(t, fns, 1)
			assert.Equal(t, f.Signature(), fns[0].Signature())
		}
	}

	// and the same results
	want := runInit(t, srcCtx, srcUnit)
	got := runInit(t, ctx, unit)
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].String(), got[i].String(), "init %d", i)
	}

	assert.Equal(t, int64(3), got[0].Int())
	assert.Equal(t, 25.0, got[1].Float())
	assert.Equal(t, 3.0, got[2].Float())
	assert.Equal(t, 10.0, got[3].Float())
	assert.Equal(t, "point", got[4].Str())

	// generated constructors are declared again
	point := ctx.FindType("geo.Point")
	require.NotNil(t, point)
	assert.Len(t, ctx.Constructors(point), 1)
}

func TestInitBindsOverloadsInDeclarationOrder(t *testing.T) {
	const source = `
(defun g () int 1)
(g)
(defun h () int (g))
(defun g () int 2)
(g)
(h)
`
	srcCtx := newContext(t)
	srcUnit, err := walk.Assemble(srcCtx, newModule(t, srcCtx, "redef"), "redef.mu", source, nil)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3, 3}, srcUnit.InitAt)

	a, err := Capture(srcUnit, "redef.mu")
	require.NoError(t, err)

	buff := &bytes.Buffer{}
	require.NoError(t, Write(buff, a))
	b, err := Read(buff)
	require.NoError(t, err)
	assert.Equal(t, a.InitAt, b.InitAt)

	ctx := newContext(t)
	unit, err := Install(ctx, newModule(t, ctx, "redef"), b, nil)
	require.NoError(t, err)
	assert.Equal(t, srcUnit.InitAt, unit.InitAt)

	want := runInit(t, srcCtx, srcUnit)
	got := runInit(t, ctx, unit)
	require.Len(t, got, 3)
	for i := range want {
		assert.Equal(t, want[i].Int(), got[i].Int(), "init %d", i)
	}

	assert.Equal(t, int64(1), got[0].Int())
	assert.Equal(t, int64(2), got[1].Int())
	assert.Equal(t, int64(1), got[2].Int())
}

func TestInstallWithoutInitPositions(t *testing.T) {
	_, srcUnit, data := compileGeo(t)
	a, err := Read(bytes.NewReader(data))
	require.NoError(t, err)

	// init records without a position follow every decl
	a.InitAt = nil
	ctx := newContext(t)
	unit, err := Install(ctx, newModule(t, ctx, "geo"), a, nil)
	require.NoError(t, err)
	assert.Len(t, unit.Init, len(srcUnit.Init))
	assert.Len(t, unit.Decls, len(srcUnit.Decls))
}

func TestInstallRejectsOtherModule(t *testing.T) {
	_, _, data := compileGeo(t)
	a, err := Read(bytes.NewReader(data))
	require.NoError(t, err)

	ctx := newContext(t)
	_, err = Install(ctx, newModule(t, ctx, "other"), a, nil)
	assert.Error(t, err)
}

func TestInstallLoadsRequirements(t *testing.T) {
	a := &Archive{Module: "app", Requires: []string{"util"}}

	ctx := newContext(t)
	util := newModule(t, ctx, "util")
	app := newModule(t, ctx, "app")

	_, err := Install(ctx, app, a, nil)
	assert.Error(t, err)

	unit, err := Install(ctx, app, a, requirer{"util": util})
	require.NoError(t, err)
	assert.Empty(t, unit.Decls)
	assert.Equal(t, []string{"util"}, app.Requires())
}

type requirer map[string]*sem.Module

func (r requirer) Require(name string) (*sem.Module, error) {
	return r[name], nil
}

func TestVersionCheck(t *testing.T) {
	assert.NoError(t, CheckVersion("v1.0.0"))
	assert.NoError(t, CheckVersion("v1.9.3"))
	assert.ErrorIs(t, CheckVersion("v2.0.0"), ErrVersion)
	assert.ErrorIs(t, CheckVersion("1.0"), ErrCorrupt)

	buff := &bytes.Buffer{}
	require.NoError(t, Write(buff, &Archive{Version: "v2.1.0", Module: "m"}))

	_, err := Read(buff)
	assert.ErrorIs(t, err, ErrVersion)
}

func TestCorruptArchives(t *testing.T) {
	_, _, data := compileGeo(t)

	_, err := Read(bytes.NewReader([]byte("not an archive")))
	assert.ErrorIs(t, err, ErrCorrupt)

	_, err = Read(bytes.NewReader(data[:len(data)/2]))
	assert.ErrorIs(t, err, ErrCorrupt)

	// a field claiming more bytes than the record holds
	_, err = unmarshalArchive([]byte{0x22, 0x05, 0x01})
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestFiles(t *testing.T) {
	_, unit, data := compileGeo(t)
	dir := t.TempDir()

	a, err := Read(bytes.NewReader(data))
	require.NoError(t, err)

	path := filepath.Join(dir, "geo.muc")
	require.NoError(t, WriteFile(path, a))

	b, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Contains(t, Dump(b), "geo.mu")

	docsPath := filepath.Join(dir, "geo.mud")
	require.NoError(t, WriteDocs(docsPath, CaptureDocs(unit)))

	name, ok := DocsModule(docsPath)
	require.True(t, ok)
	assert.Equal(t, "geo", name)

	docs, err := ReadDocs(docsPath)
	require.NoError(t, err)
	assert.Len(t, docs.Entries, 3)

	ctx := newContext(t)
	_, err = Install(ctx, newModule(t, ctx, "geo"), b, nil)
	require.NoError(t, err)

	run := ctx.FindFunctions(nil, "geo.run")
	require.Len(t, run, 1)
	assert.Empty(t, run[0].Doc())

	assert.Equal(t, 3, docs.Apply(ctx))
	assert.Equal(t, "Exercises locals", run[0].Doc())
	assert.Equal(t, "A point", ctx.FindType("geo.Point").Doc())

	// documented symbols are left alone
	assert.Equal(t, 0, docs.Apply(ctx))
}

func TestCaptureRejectsNativeFunctions(t *testing.T) {
	ctx := newContext(t)
	plus := ctx.FindFunctions(nil, "+")
	require.NotEmpty(t, plus)

	_, err := Capture(&walk.Unit{Module: ctx.Root(), Decls: []sem.Symbol{plus[0]}}, "")
	assert.Error(t, err)
}
