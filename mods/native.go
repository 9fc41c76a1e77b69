package mods

import (
	"fmt"
	"plugin"

	"mu/common"
	"mu/eval"
	"mu/sem"
)

// Opener opens a native library and returns its entry point
type Opener func(path string) (InitFunc, error)

// OpenPlugin opens a library built with `go build -buildmode=plugin` and
// looks up its `MuInitialize` function
func OpenPlugin(path string) (InitFunc, error) {
	p, err := plugin.Open(path)
	if err != nil {
		return nil, err
	}

	sym, err := p.Lookup(common.NativeEntryPoint)
	if err != nil {
		return nil, fmt.Errorf("missing entry point `%s`", common.NativeEntryPoint)
	}

	switch fn := sym.(type) {
	case func(string, *sem.Context, *eval.Process) (*sem.Module, error):
		return fn, nil
	case *InitFunc:
		return *fn, nil
	}

	return nil, fmt.Errorf("entry point `%s` has the wrong type %T", common.NativeEntryPoint, sym)
}

// loadNative opens a library (once per file) and runs its entry point
func (l *Loader) loadNative(name, path string) (*sem.Module, error) {
	init, ok := l.natives[path]
	if !ok {
		var err error
		if init, err = l.open(path); err != nil {
			return nil, err
		}
		l.natives[path] = init
	}

	return l.initNative(name, path, init)
}

// initNative runs a native entry point.  The module is declared by the loader
// if the entry point did not declare it.
func (l *Loader) initNative(name, path string, init InitFunc) (*sem.Module, error) {
	m, err := init(name, l.ctx, l.proc)
	switch {
	case err != nil:
	case m == nil:
		err = fmt.Errorf("entry point created no module")
	case m.Name() != name:
		l.ctx.DiscardModule(m)
		err = fmt.Errorf("entry point created module `%s`", m.Name())
	case m.Owner() == nil:
		err = l.ctx.AddSymbol(nil, m)
	}

	if err != nil {
		l.discard(name)
		return nil, err
	}

	if path != "" {
		m.SetOrigin(path, sem.ProvenanceNative)
	}
	m.SetNative(true)

	l.modules[name] = m
	return m, nil
}
