package engine

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"mu/archive"
	"mu/config"
	"mu/eval"
	"mu/gc"
	"mu/lang"
	"mu/logging"
	"mu/mods"
	"mu/sem"
	"mu/syntax"
	"mu/walk"
)

// SessionModule is the module that evaluated source text declares into.
// Declarations persist from one evaluation to the next.
const SessionModule = "user"

// Runtime is one independent instance of the language: its own symbol
// table, collector, evaluation process and module loader
type Runtime struct {
	cfg    *config.Config
	ctx    *sem.Context
	proc   *eval.Process
	loader *mods.Loader

	// m serializes evaluations into the session module
	m       *sync.Mutex
	session *sem.Module
}

// New creates a runtime configured by cfg.  Output of the printing builtins
// goes to out (stdout if nil).
func New(cfg *config.Config, out io.Writer) (*Runtime, error) {
	ctx := sem.NewContext(gc.NewCollector(cfg.GCThreshold), cfg.ResolutionCache)
	if err := lang.Declare(ctx); err != nil {
		return nil, err
	}

	proc := eval.NewProcess(ctx, out)
	loader := mods.NewLoader(ctx, proc, cfg.LoaderOptions())
	loader.RegisterBuiltin("math", func(name string, ctx *sem.Context, proc *eval.Process) (*sem.Module, error) {
		return lang.DeclareMath(ctx, name)
	})

	return &Runtime{
		cfg:    cfg,
		ctx:    ctx,
		proc:   proc,
		loader: loader,
		m:      &sync.Mutex{},
	}, nil
}

// Context returns the runtime's symbol table
func (r *Runtime) Context() *sem.Context { return r.ctx }

// Process returns the runtime's evaluation process
func (r *Runtime) Process() *eval.Process { return r.proc }

// Loader returns the runtime's module loader
func (r *Runtime) Loader() *mods.Loader { return r.loader }

// Config returns the configuration the runtime was created with
func (r *Runtime) Config() *config.Config { return r.cfg }

// -----------------------------------------------------------------------------

// Require loads a module by name.  nil means the module could not be found
// or failed to load; the reasons have been logged.
func (r *Runtime) Require(name string) *sem.Module {
	m, err := r.loader.Require(name)
	if err != nil {
		logging.LogModuleError(name, err.Error())
		return nil
	}

	return m
}

// Documentation attaches and returns the documentation sidecar of a module
func (r *Runtime) Documentation(m *sem.Module) (*archive.Docs, error) {
	return r.loader.Documentation(m)
}

// Compile compiles a module's source to an archive and returns its path
func (r *Runtime) Compile(name string) (string, error) {
	return r.loader.Compile(name)
}

// -----------------------------------------------------------------------------

// EvalSource evaluates source text in the session module with the named
// modules visible and returns the value of the last top level expression.
// Modules required by earlier evaluations stay visible.
func (r *Runtime) EvalSource(text string, modules ...string) (sem.Value, error) {
	return r.evalIn("<input>", text, modules)
}

// EvalFile evaluates a source file like EvalSource
func (r *Runtime) EvalFile(path string, modules ...string) (sem.Value, error) {
	buff, err := os.ReadFile(path)
	if err != nil {
		return sem.NoValue, err
	}

	return r.evalIn(path, string(buff), modules)
}

func (r *Runtime) evalIn(file, text string, modules []string) (sem.Value, error) {
	r.m.Lock()
	defer r.m.Unlock()

	forms, err := syntax.Parse(file, text)
	if err != nil {
		return sem.NoValue, err
	}

	if r.session == nil {
		r.session = sem.NewModule(SessionModule)
		if err := r.ctx.AddSymbol(nil, r.session); err != nil {
			r.session = nil
			return sem.NoValue, err
		}
	}

	w := walk.NewWalker(r.ctx, r.session, file, r.loader)
	names := append(append([]string(nil), r.session.Requires()...), modules...)
	for _, name := range names {
		m := r.Require(name)
		if m == nil {
			return sem.NoValue, fmt.Errorf("unable to locate module `%s`", name)
		}
		w.Use(m)
	}

	unit, err := w.WalkFile(forms)
	if err != nil {
		return sem.NoValue, err
	}

	th := r.proc.NewThread()
	defer r.proc.Release(th)

	result := sem.NoValue
	for _, f := range unit.Init {
		if result, err = th.Call(f, nil); err != nil {
			return sem.NoValue, err
		}
	}

	return result, nil
}

// -----------------------------------------------------------------------------

// Call resolves the overloads of a function by the types of args, converts
// the arguments and calls the best match on a new thread.  An uncaught
// exception is returned as a *sem.Exception.
func (r *Runtime) Call(name string, args ...sem.Value) (sem.Value, error) {
	th := r.proc.NewThread()
	defer r.proc.Release(th)

	return r.callOn(th, name, args)
}

// CallAs is Call on the thread of a host handle and through its call
// environment
func (r *Runtime) CallAs(handle interface{}, name string, args ...sem.Value) (sem.Value, error) {
	return r.callOn(r.proc.ThreadFor(handle), name, args)
}

func (r *Runtime) callOn(th *eval.Thread, name string, args []sem.Value) (sem.Value, error) {
	argTypes := make([]sem.Type, len(args))
	for i, a := range args {
		if a.Type() == nil {
			return sem.NoValue, sem.NewException(sem.ExceptionNilArgument, "argument %d of `%s` has no value", i+1, name)
		}
		argTypes[i] = a.Type()
	}

	res, err := r.ctx.ResolveCall(nil, name, argTypes)
	if err != nil {
		return sem.NoValue, err
	}

	converted, err := res.Convert(th, args)
	if err != nil {
		return sem.NoValue, err
	}

	return th.CallIn(nil, res.Function, converted)
}

// SetCallEnvironment sets the call environment of a host handle (eg. the
// document a session acts on).  nil clears it.
func (r *Runtime) SetCallEnvironment(handle interface{}, env eval.CallEnvironment) {
	r.proc.ThreadFor(handle).SetEnvironment(env)
}

// CallEnvironment returns the call environment of a host handle
func (r *Runtime) CallEnvironment(handle interface{}) eval.CallEnvironment {
	return r.proc.ThreadFor(handle).Environment()
}

// ReleaseHandle discards the thread and environment of a host handle
func (r *Runtime) ReleaseHandle(handle interface{}) {
	r.proc.ReleaseThread(handle)
}

// ExceptionOf extracts the uncaught exception carried by an error
func ExceptionOf(err error) (*sem.Exception, bool) {
	var exc *sem.Exception
	if errors.As(err, &exc) {
		return exc, true
	}

	return nil, false
}
