package mods

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"mu/eval"
	"mu/gc"
	"mu/lang"
	"mu/logging"
	"mu/sem"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	ctx  *sem.Context
	proc *eval.Process
	out  *bytes.Buffer
	l    *Loader
}

func newFixture(t *testing.T, opts Options) *fixture {
	ctx := sem.NewContext(gc.NewCollector(0), 0)
	require.NoError(t, lang.Declare(ctx))

	out := &bytes.Buffer{}
	proc := eval.NewProcess(ctx, out)

	return &fixture{ctx: ctx, proc: proc, out: out, l: NewLoader(ctx, proc, opts)}
}

// call runs a function of a loaded module with int arguments
func (fx *fixture) call(t *testing.T, name string, args ...int64) sem.Value {
	fns := fx.ctx.FindFunctions(nil, name)
	require.Len(t, fns, 1, name)

	vals := make([]sem.Value, len(args))
	for i, a := range args {
		vals[i] = sem.IntValue(fx.ctx.Int, a)
	}

	th := fx.proc.NewThread()
	defer fx.proc.Release(th)

	v, err := th.Call(fns[0], vals)
	require.NoError(t, err)
	return v
}

func writeFile(t *testing.T, dir, name, content string) string {
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// captureLog collects everything logged during a test
func captureLog(t *testing.T) *bytes.Buffer {
	buf := &bytes.Buffer{}
	logging.SetOutput(buf)
	logging.Initialize("verbose")

	t.Cleanup(func() {
		logging.SetOutput(nil)
		logging.Initialize("warning")
	})

	return buf
}

const fooSource = `
(defun bar ((x int)) int "Doubles x" (* x 2))
(println "loaded foo")
`

// -----------------------------------------------------------------------------

func TestCompileOnDemandThenLoadArchive(t *testing.T) {
	dir := t.TempDir()
	srcPath := writeFile(t, dir, "foo.mu", fooSource)
	log := captureLog(t)

	fx := newFixture(t, Options{Path: []string{dir}, CompileOnDemand: true, CompileDocs: true})
	foo, err := fx.l.Require("foo")
	require.NoError(t, err)
	require.NotNil(t, foo)
	assert.Equal(t, sem.ProvenanceSource, foo.Provenance())
	assert.Equal(t, srcPath, foo.Location())
	assert.Equal(t, "loaded foo\n", fx.out.String())
	assert.Equal(t, int64(6), fx.call(t, "foo.bar", 3).Int())
	assert.Contains(t, log.String(), "compiled "+srcPath)

	sig := fx.ctx.FindFunctions(nil, "foo.bar")[0].Signature()

	assert.FileExists(t, filepath.Join(dir, "foo.muc"))
	assert.FileExists(t, filepath.Join(dir, "foo.mud"))

	// the archive is preferred even when the source no longer compiles
	writeFile(t, dir, "foo.mu", "(((")

	fx = newFixture(t, Options{Path: []string{dir}})
	foo, err = fx.l.Require("foo")
	require.NoError(t, err)
	require.NotNil(t, foo)
	assert.Equal(t, sem.ProvenanceArchive, foo.Provenance())
	assert.Equal(t, "loaded foo\n", fx.out.String())

	bar := fx.ctx.FindFunctions(nil, "foo.bar")
	require.Len(t, bar, 1)
	assert.Equal(t, sig, bar[0].Signature())
	assert.Equal(t, int64(6), fx.call(t, "foo.bar", 3).Int())

	// documentation comes from the sidecar on demand
	assert.Empty(t, bar[0].Doc())
	docs, err := fx.l.Documentation(foo)
	require.NoError(t, err)
	require.NotNil(t, docs)
	assert.Equal(t, "Doubles x", bar[0].Doc())

	path, resolved := foo.DocumentationPath()
	assert.True(t, resolved)
	assert.Equal(t, filepath.Join(dir, "foo.mud"), path)

	again, err := fx.l.Documentation(foo)
	require.NoError(t, err)
	assert.Same(t, docs, again)
}

func TestArchiveKeepsRedefinitionOrder(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "redef.mu", `
(defun g () int 1)
(println (g))
(defun g () int 2)
(println (g))
`)

	fx := newFixture(t, Options{Path: []string{dir}, CompileOnDemand: true})
	m, err := fx.l.Require("redef")
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, sem.ProvenanceSource, m.Provenance())
	assert.Equal(t, "1\n2\n", fx.out.String())
	require.FileExists(t, filepath.Join(dir, "redef.muc"))

	fx = newFixture(t, Options{Path: []string{dir}})
	m, err = fx.l.Require("redef")
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, sem.ProvenanceArchive, m.Provenance())
	assert.Equal(t, "1\n2\n", fx.out.String())
}

func TestRequireIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "foo.mu", fooSource)

	fx := newFixture(t, Options{Path: []string{dir}})
	a, err := fx.l.Require("foo")
	require.NoError(t, err)
	b, err := fx.l.Require("foo")
	require.NoError(t, err)

	assert.Same(t, a, b)
	assert.Equal(t, Loaded, fx.l.State("foo"))

	// the top level expressions ran once
	assert.Equal(t, "loaded foo\n", fx.out.String())
}

func TestMissingModule(t *testing.T) {
	fx := newFixture(t, Options{Path: []string{t.TempDir()}})

	m, err := fx.l.Require("ghost")
	assert.NoError(t, err)
	assert.Nil(t, m)
	assert.Equal(t, Failed, fx.l.State("ghost"))
	assert.Equal(t, Unloaded, fx.l.State("other"))

	_, err = fx.l.Require("")
	assert.Error(t, err)
}

func TestBrokenLibrarySkipsEntry(t *testing.T) {
	first, second := t.TempDir(), t.TempDir()
	writeFile(t, first, "foo.so", "not a library")
	writeFile(t, first, "foo.mu", "(defun bar ((x int)) int 0)")
	writeFile(t, second, "foo.mu", fooSource)
	log := captureLog(t)

	fx := newFixture(t, Options{Path: []string{first, second}})
	fx.l.SetOpener(func(path string) (InitFunc, error) {
		return nil, errors.New("bad library")
	})

	foo, err := fx.l.Require("foo")
	require.NoError(t, err)
	require.NotNil(t, foo)

	// the source next to the broken library is not used
	assert.Equal(t, filepath.Join(second, "foo.mu"), foo.Location())
	assert.Equal(t, int64(8), fx.call(t, "foo.bar", 4).Int())
	assert.Contains(t, log.String(), "bad library")
}

func TestNativeLibrary(t *testing.T) {
	dir := t.TempDir()
	libPath := writeFile(t, dir, "nat.so", "")

	fx := newFixture(t, Options{Path: []string{dir}})

	opened := 0
	fx.l.SetOpener(func(path string) (InitFunc, error) {
		opened++
		return func(name string, ctx *sem.Context, proc *eval.Process) (*sem.Module, error) {
			m := sem.NewModule(name)
			if err := ctx.AddSymbol(nil, m); err != nil {
				return nil, err
			}

			answer, err := sem.NewNativeFunction("answer", ctx.Int, func(ev sem.Evaluator, args []sem.Value) (sem.Value, error) {
				return sem.IntValue(ctx.Int, 42), nil
			}, sem.FnPure)
			if err != nil {
				return nil, err
			}

			return m, ctx.AddSymbol(m, answer)
		}, nil
	})

	nat, err := fx.l.Require("nat")
	require.NoError(t, err)
	require.NotNil(t, nat)
	assert.True(t, nat.IsNative())
	assert.Equal(t, sem.ProvenanceNative, nat.Provenance())
	assert.Equal(t, libPath, nat.Location())
	assert.Equal(t, int64(42), fx.call(t, "nat.answer").Int())

	_, err = fx.l.Require("nat")
	require.NoError(t, err)
	assert.Equal(t, 1, opened)
}

func TestNativeEntryPointMustCreateNamedModule(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "nat.so", "")
	log := captureLog(t)

	fx := newFixture(t, Options{Path: []string{dir}})
	fx.l.SetOpener(func(path string) (InitFunc, error) {
		return func(name string, ctx *sem.Context, proc *eval.Process) (*sem.Module, error) {
			return sem.NewModule("wrong"), nil
		}, nil
	})

	nat, err := fx.l.Require("nat")
	require.NoError(t, err)
	assert.Nil(t, nat)
	assert.Nil(t, fx.ctx.FindModule("wrong"))
	assert.Contains(t, log.String(), "created module `wrong`")
}

func TestCorruptArchiveFallsBackToSource(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "foo.muc", "garbage")
	writeFile(t, dir, "foo.mu", fooSource)
	log := captureLog(t)

	fx := newFixture(t, Options{Path: []string{dir}})
	foo, err := fx.l.Require("foo")
	require.NoError(t, err)
	require.NotNil(t, foo)

	assert.Equal(t, sem.ProvenanceSource, foo.Provenance())
	assert.Contains(t, log.String(), "cannot use archive")
}

func TestSourceErrorDiscardsModule(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "foo.mu", "(defun ok () int 1)\n(nope 1)")
	log := captureLog(t)

	fx := newFixture(t, Options{Path: []string{dir}})
	before := logging.ErrorCount()

	foo, err := fx.l.Require("foo")
	require.NoError(t, err)
	assert.Nil(t, foo)
	assert.Equal(t, Failed, fx.l.State("foo"))
	assert.Nil(t, fx.ctx.FindModule("foo"))
	assert.Equal(t, before+1, logging.ErrorCount())
	assert.Contains(t, log.String(), "undefined function `nope`")
	assert.Contains(t, log.String(), "no usable module")

	// a fixed source is picked up by the next attempt
	writeFile(t, dir, "foo.mu", fooSource)
	foo, err = fx.l.Require("foo")
	require.NoError(t, err)
	assert.NotNil(t, foo)
}

func TestBrokenSourceSkipsEntry(t *testing.T) {
	first, second := t.TempDir(), t.TempDir()
	writeFile(t, first, "foo.mu", "(nope 1)")
	writeFile(t, second, "foo.mu", fooSource)
	log := captureLog(t)

	fx := newFixture(t, Options{Path: []string{first, second}})
	before := logging.ErrorCount()

	foo, err := fx.l.Require("foo")
	require.NoError(t, err)
	require.NotNil(t, foo)
	assert.Equal(t, filepath.Join(second, "foo.mu"), foo.Location())
	assert.Equal(t, "loaded foo\n", fx.out.String())

	// the rejected candidate is only a warning
	assert.Contains(t, log.String(), "undefined function `nope`")
	assert.Equal(t, before, logging.ErrorCount())
}

func TestRequiresBetweenModules(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "util.mu", "(defun helper ((x int)) int (* x 10))")
	writeFile(t, dir, "app.mu", "(require util)\n(defun run ((x int)) int (+ (helper x) 1))")

	fx := newFixture(t, Options{Path: []string{dir}})
	app, err := fx.l.Require("app")
	require.NoError(t, err)
	require.NotNil(t, app)

	assert.Equal(t, []string{"util"}, app.Requires())
	assert.Equal(t, Loaded, fx.l.State("util"))
	assert.Equal(t, int64(21), fx.call(t, "app.run", 2).Int())
}

func TestRequireCycle(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.mu", "(require b)\n(defun fa () int 1)")
	writeFile(t, dir, "b.mu", "(require a)\n(defun fb () int 2)")

	fx := newFixture(t, Options{Path: []string{dir}})
	a, err := fx.l.Require("a")
	require.NoError(t, err)
	require.NotNil(t, a)

	b, err := fx.l.Require("b")
	require.NoError(t, err)
	require.NotNil(t, b)

	assert.Equal(t, []string{"a"}, b.Requires())
	assert.Equal(t, int64(1), fx.call(t, "a.fa").Int())
	assert.Equal(t, int64(2), fx.call(t, "b.fb").Int())
}

func TestBuiltinModules(t *testing.T) {
	fx := newFixture(t, Options{})
	fx.l.RegisterBuiltin("math", func(name string, ctx *sem.Context, proc *eval.Process) (*sem.Module, error) {
		return lang.DeclareMath(ctx, name)
	})

	m, err := fx.l.Require("math")
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.True(t, m.IsNative())
	assert.Equal(t, Loaded, fx.l.State("math"))

	again, err := fx.l.Require("math")
	require.NoError(t, err)
	assert.Same(t, m, again)

	docs, err := fx.l.Documentation(m)
	assert.NoError(t, err)
	assert.Nil(t, docs)
}

func TestHostModulesCountAsLoaded(t *testing.T) {
	fx := newFixture(t, Options{})
	host := sem.NewModule("host")
	require.NoError(t, fx.ctx.AddSymbol(nil, host))

	m, err := fx.l.Require("host")
	require.NoError(t, err)
	assert.Same(t, host, m)
	assert.Equal(t, Loaded, fx.l.State("host"))
}

func TestCompile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "foo.mu", fooSource)

	fx := newFixture(t, Options{Path: []string{dir}})
	path, err := fx.l.Compile("foo")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "foo.muc"), path)
	assert.FileExists(t, path)
	assert.NoFileExists(t, filepath.Join(dir, "foo.mud"))
	assert.Equal(t, Loaded, fx.l.State("foo"))

	_, err = fx.l.Compile("ghost")
	assert.Error(t, err)
}

func TestDocumentationIgnoresOtherModules(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "foo.mu", fooSource)
	writeFile(t, dir, "foo.mud", "module = \"other\"\n")

	fx := newFixture(t, Options{Path: []string{dir}})
	foo, err := fx.l.Require("foo")
	require.NoError(t, err)

	docs, err := fx.l.Documentation(foo)
	require.NoError(t, err)
	assert.Nil(t, docs)

	path, resolved := foo.DocumentationPath()
	assert.True(t, resolved)
	assert.Empty(t, path)
}
