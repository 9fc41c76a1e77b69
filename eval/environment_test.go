package eval

import (
	"testing"

	"mu/sem"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// session records the active document like a host application would
type session struct {
	active interface{}
	seen   []interface{}
}

func (s *session) ActiveDocument() interface{}       { return s.active }
func (s *session) SetActiveDocument(doc interface{}) { s.active = doc }

func TestDocumentEnvironmentRestoresActiveDocument(t *testing.T) {
	proc := newTestProcess()
	ctx := proc.Context()
	host := &session{active: "home"}

	record, err := sem.NewNativeFunction("record", ctx.Void, func(ev sem.Evaluator, args []sem.Value) (sem.Value, error) {
		host.seen = append(host.seen, host.active)
		return sem.NoValue, nil
	}, sem.FnNone)
	require.NoError(t, err)

	explode, err := sem.NewNativeFunction("explode", ctx.Void, func(ev sem.Evaluator, args []sem.Value) (sem.Value, error) {
		host.seen = append(host.seen, host.active)
		return sem.NoValue, sem.NewException(sem.ExceptionUser, "boom")
	}, sem.FnNone)
	require.NoError(t, err)

	env := NewDocumentEnvironment("review-42", host)
	th := proc.NewThread()

	_, err = th.CallIn(env, record, nil)
	require.NoError(t, err)
	assert.Equal(t, "home", host.active)

	_, err = th.CallIn(env, explode, nil)
	require.Error(t, err)
	assert.NotNil(t, th.UncaughtException())
	assert.Equal(t, "home", host.active)

	assert.Equal(t, []interface{}{"review-42", "review-42"}, host.seen)
}

func TestThreadDefaultEnvironment(t *testing.T) {
	proc := newTestProcess()
	ctx := proc.Context()
	host := &session{}

	record, err := sem.NewNativeFunction("record", ctx.Void, func(ev sem.Evaluator, args []sem.Value) (sem.Value, error) {
		host.seen = append(host.seen, host.active)
		return sem.NoValue, nil
	}, sem.FnNone)
	require.NoError(t, err)

	th := proc.ThreadFor(1)
	_, err = th.CallIn(nil, record, nil)
	require.NoError(t, err)

	th.SetEnvironment(NewDocumentEnvironment("doc", host))
	_, err = th.CallIn(nil, record, nil)
	require.NoError(t, err)

	assert.Equal(t, []interface{}{nil, "doc"}, host.seen)
	assert.Nil(t, host.active)
}
