package engine

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"mu/config"
	"mu/eval"
	"mu/sem"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRuntime(t *testing.T) (*Runtime, *bytes.Buffer, string) {
	dir := t.TempDir()
	out := &bytes.Buffer{}

	r, err := New(config.Default(dir), out)
	require.NoError(t, err)

	return r, out, dir
}

// counter is a call environment counting the calls made through it
type counter struct {
	calls int
}

func (c *counter) Call(th *eval.Thread, f *sem.Function, args []sem.Value) (sem.Value, error) {
	c.calls++
	return th.Call(f, args)
}

// -----------------------------------------------------------------------------

func TestEvalSourceKeepsDeclarations(t *testing.T) {
	r, out, _ := newRuntime(t)

	v, err := r.EvalSource(`
(defun sq ((x int)) int (* x x))
(println "ready")
(sq 7)`)
	require.NoError(t, err)
	assert.Equal(t, int64(49), v.Int())
	assert.Equal(t, "ready\n", out.String())

	v, err = r.EvalSource("(sq 3)")
	require.NoError(t, err)
	assert.Equal(t, int64(9), v.Int())

	v, err = r.EvalSource("(defun unused () int 1)")
	require.NoError(t, err)
	assert.True(t, v.IsNone())
}

func TestEvalSourceWithModules(t *testing.T) {
	r, _, _ := newRuntime(t)

	v, err := r.EvalSource("(sqrt 16)", "math")
	require.NoError(t, err)
	assert.Equal(t, 4.0, v.Float())

	// modules stay visible for later evaluations
	v, err = r.EvalSource("(floor 2.5d)")
	require.NoError(t, err)
	assert.Equal(t, 2.0, v.Float())

	_, err = r.EvalSource("1", "nowhere")
	assert.Error(t, err)
}

func TestEvalErrors(t *testing.T) {
	r, _, _ := newRuntime(t)

	_, err := r.EvalSource("(nope")
	assert.Error(t, err)

	_, err = r.EvalSource("(defun explode () void (throw \"boom\"))\n(explode)")
	require.Error(t, err)

	exc, ok := ExceptionOf(err)
	require.True(t, ok)
	assert.Equal(t, sem.ExceptionUser, exc.Kind)
	assert.Equal(t, "boom", exc.Error())
	assert.Contains(t, exc.Backtrace, "user.explode")

	_, ok = ExceptionOf(os.ErrNotExist)
	assert.False(t, ok)
}

func TestEvalFile(t *testing.T) {
	r, _, dir := newRuntime(t)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "util.mu"), []byte("(defun triple ((x int)) int (* x 3))"), 0644))
	main := filepath.Join(dir, "main.mu")
	require.NoError(t, os.WriteFile(main, []byte("(require util)\n(triple 5)"), 0644))

	v, err := r.EvalFile(main)
	require.NoError(t, err)
	assert.Equal(t, int64(15), v.Int())

	util := r.Require("util")
	require.NotNil(t, util)
	assert.Equal(t, filepath.Join(dir, "util.mu"), util.Location())
	assert.Nil(t, r.Require("missing"))

	_, err = r.EvalFile(filepath.Join(dir, "none.mu"))
	assert.Error(t, err)
}

func TestCallConvertsArguments(t *testing.T) {
	r, _, _ := newRuntime(t)
	ctx := r.Context()
	require.NotNil(t, r.Require("math"))

	v, err := r.Call("math.sqrt", sem.IntValue(ctx.Int, 16))
	require.NoError(t, err)
	assert.Equal(t, 4.0, v.Float())

	_, err = r.EvalSource("(defun add ((x int) (y int 10)) int (+ x y))")
	require.NoError(t, err)

	v, err = r.Call("user.add", sem.IntValue(ctx.Int, 1))
	require.NoError(t, err)
	assert.Equal(t, int64(11), v.Int())

	_, err = r.Call("user.missing")
	exc, ok := ExceptionOf(err)
	require.True(t, ok)
	assert.Equal(t, sem.ExceptionNoMatchingOverload, exc.Kind)

	_, err = r.Call("user.add", sem.NoValue)
	assert.Error(t, err)
}

func TestCallEnvironments(t *testing.T) {
	r, _, _ := newRuntime(t)
	ctx := r.Context()

	_, err := r.EvalSource("(defun sq ((x int)) int (* x x))")
	require.NoError(t, err)

	env := &counter{}
	r.SetCallEnvironment("doc-1", env)
	assert.Same(t, env, r.CallEnvironment("doc-1"))
	assert.Nil(t, r.CallEnvironment("doc-2"))

	v, err := r.CallAs("doc-1", "user.sq", sem.IntValue(ctx.Int, 5))
	require.NoError(t, err)
	assert.Equal(t, int64(25), v.Int())

	_, err = r.CallAs("doc-2", "user.sq", sem.IntValue(ctx.Int, 5))
	require.NoError(t, err)
	assert.Equal(t, 1, env.calls)

	r.ReleaseHandle("doc-1")
	assert.Nil(t, r.CallEnvironment("doc-1"))
}

func TestRuntimesAreIndependent(t *testing.T) {
	a, _, _ := newRuntime(t)
	b, _, _ := newRuntime(t)

	_, err := a.EvalSource("(defun only-a () int 1)")
	require.NoError(t, err)

	_, err = b.EvalSource("(only-a)")
	assert.Error(t, err)
}
