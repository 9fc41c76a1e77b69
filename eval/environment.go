package eval

import "mu/sem"

// CallEnvironment redirects calls through some external state, eg. making a
// document the active one for the duration of the call
type CallEnvironment interface {
	Call(t *Thread, f *sem.Function, args []sem.Value) (sem.Value, error)
}

// Activator owns the notion of an active document in the host application
type Activator interface {
	ActiveDocument() interface{}
	SetActiveDocument(doc interface{})
}

// DocumentEnvironment makes Document the active document while a call runs.
// The previously active document is restored however the call ends.
type DocumentEnvironment struct {
	Document  interface{}
	Activator Activator
}

// NewDocumentEnvironment creates an environment activating doc through a
func NewDocumentEnvironment(doc interface{}, a Activator) *DocumentEnvironment {
	return &DocumentEnvironment{Document: doc, Activator: a}
}

func (de *DocumentEnvironment) Call(t *Thread, f *sem.Function, args []sem.Value) (sem.Value, error) {
	previous := de.Activator.ActiveDocument()
	de.Activator.SetActiveDocument(de.Document)
	defer de.Activator.SetActiveDocument(previous)

	return t.Call(f, args)
}

// SetEnvironment sets the environment calls made through CallIn use when
// none is given explicitly
func (t *Thread) SetEnvironment(env CallEnvironment) {
	t.env = env
}

// Environment returns the thread's default call environment
func (t *Thread) Environment() CallEnvironment {
	return t.env
}

// CallIn calls f through env, or through the thread's default environment if
// env is nil.  Without any environment it is the same as Call.
func (t *Thread) CallIn(env CallEnvironment, f *sem.Function, args []sem.Value) (sem.Value, error) {
	if env == nil {
		env = t.env
	}

	if env == nil {
		return t.Call(f, args)
	}

	return env.Call(t, f, args)
}
