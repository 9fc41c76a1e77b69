package mods

import (
	"fmt"
	"os"
	"sync"

	"mu/archive"
	"mu/eval"
	"mu/logging"
	"mu/sem"
	"mu/walk"
)

// State is the load state of a module name
type State int

const (
	Unloaded State = iota
	Loading
	Loaded
	Failed
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	case Failed:
		return "failed"
	default:
		return "unloaded"
	}
}

// InitFunc creates a native module named name.  Native libraries export one
// of these as `MuInitialize`; builtin modules register one with the loader.
// The function may declare the module itself or leave that to the loader.
type InitFunc func(name string, ctx *sem.Context, proc *eval.Process) (*sem.Module, error)

// Options configures a Loader
type Options struct {
	// Path is the ordered list of directories searched for modules
	Path []string

	// CompileOnDemand writes an archive next to every module loaded from
	// source
	CompileOnDemand bool

	// CompileDocs also writes the documentation sidecar when compiling
	CompileDocs bool

	// DebugArchive dumps archives as they are written and read
	DebugArchive bool
}

// Loader resolves module names to modules.  Loading is serialized: only one
// module is loaded at a time and requests made while a module is being
// loaded (by its `require` forms) are served on the same goroutine.
type Loader struct {
	ctx  *sem.Context
	proc *eval.Process
	opts Options

	m *sync.Mutex

	states   map[string]State
	modules  map[string]*sem.Module
	builtins map[string]InitFunc

	// natives caches the entry points of opened libraries by file
	natives map[string]InitFunc
	open    Opener

	// units holds the assembled form of modules loaded from source or
	// archives so they can be compiled later
	units map[string]*walk.Unit

	docs map[*sem.Module]*archive.Docs
}

// NewLoader creates a loader declaring modules into ctx.  Top level
// expressions of loaded modules are evaluated on threads of proc.
func NewLoader(ctx *sem.Context, proc *eval.Process, opts Options) *Loader {
	return &Loader{
		ctx:      ctx,
		proc:     proc,
		opts:     opts,
		m:        &sync.Mutex{},
		states:   make(map[string]State),
		modules:  make(map[string]*sem.Module),
		builtins: make(map[string]InitFunc),
		natives:  make(map[string]InitFunc),
		open:     OpenPlugin,
		units:    make(map[string]*walk.Unit),
		docs:     make(map[*sem.Module]*archive.Docs),
	}
}

// SetOpener replaces the function used to open native libraries
func (l *Loader) SetOpener(open Opener) {
	l.m.Lock()
	l.open = open
	l.m.Unlock()
}

// RegisterBuiltin registers a native module that is created by init rather
// than found on the search path.  Builtins are consulted first.
func (l *Loader) RegisterBuiltin(name string, init InitFunc) {
	l.m.Lock()
	l.builtins[name] = init
	l.m.Unlock()
}

// Path returns the search path
func (l *Loader) Path() []string {
	return l.opts.Path
}

// State returns the load state of a module name
func (l *Loader) State(name string) State {
	l.m.Lock()
	defer l.m.Unlock()

	return l.states[name]
}

// Require returns the module called name, loading it if necessary.  Loading
// the same name again returns the same module.  A module that cannot be found
// or whose every candidate failed to load yields nil; the failures are
// logged.  The error result is reserved for misuse of the loader.
func (l *Loader) Require(name string) (*sem.Module, error) {
	l.m.Lock()
	defer l.m.Unlock()

	return l.load(name)
}

// nested serves the `require` forms of the module being loaded; the loader
// lock is already held
type nested struct {
	l *Loader
}

func (n nested) Require(name string) (*sem.Module, error) {
	return n.l.load(name)
}

// load implements Require; assumes the lock is held
func (l *Loader) load(name string) (*sem.Module, error) {
	if name == "" {
		return nil, fmt.Errorf("empty module name")
	}

	switch l.states[name] {
	case Loaded, Loading:
		// a module still loading was required by one of its own
		// requirements: the cycle sees what has been declared so far
		return l.modules[name], nil
	}

	// modules declared directly by the host count as loaded
	if m := l.ctx.FindModule(name); m != nil {
		l.finish(name, m)
		return m, nil
	}

	l.states[name] = Loading

	if init, ok := l.builtins[name]; ok {
		m, err := l.initNative(name, "", init)
		if err != nil {
			logging.LogModuleError(name, err.Error())
			l.states[name] = Failed
			return nil, nil
		}

		l.finish(name, m)
		return m, nil
	}

	// failed candidates are warnings: only a search that found candidates
	// but could use none of them counts as an error
	rejected := false
	for _, dir := range l.opts.Path {
		m, tried := l.loadFrom(dir, name)
		if m != nil {
			l.finish(name, m)
			return m, nil
		}
		rejected = rejected || tried
	}

	if rejected {
		logging.LogModuleError(name, "no usable module found on the module path")
	}

	l.states[name] = Failed
	delete(l.modules, name)
	return nil, nil
}

func (l *Loader) finish(name string, m *sem.Module) {
	l.states[name] = Loaded
	l.modules[name] = m
}

// loadFrom tries the representations of name in one search path entry:
// native library, then archive, then source.  The flag reports whether the
// entry held any candidate.
func (l *Loader) loadFrom(dir, name string) (*sem.Module, bool) {
	c := findCandidates(dir, name)

	if c.native != "" {
		m, err := l.loadNative(name, c.native)
		if err == nil {
			return m, true
		}
		logging.LogModuleWarning(name, fmt.Sprintf("skipping %s: %s", c.native, err))
		return nil, true
	}

	if c.archive != "" {
		m, err := l.loadArchive(name, c.archive)
		if err == nil {
			return m, true
		}
		logging.LogModuleWarning(name, fmt.Sprintf("cannot use archive %s: %s", c.archive, err))
	}

	if c.source != "" {
		m, unit, err := l.loadSource(name, c.source)
		if err == nil {
			if l.opts.CompileOnDemand {
				if _, err := l.compile(unit, c.source); err != nil {
					logging.LogModuleWarning(name, fmt.Sprintf("cannot compile %s: %s", c.source, err))
				}
			}
			return m, true
		}
		logging.LogModuleWarning(name, fmt.Sprintf("cannot use %s: %s", c.source, err))
	}

	return nil, c.archive != "" || c.source != ""
}

// -----------------------------------------------------------------------------

// declareModule creates the module for a load attempt
func (l *Loader) declareModule(name, path string, p sem.Provenance) (*sem.Module, error) {
	m := sem.NewModule(name)
	m.SetOrigin(path, p)
	if err := l.ctx.AddSymbol(nil, m); err != nil {
		return nil, err
	}

	l.modules[name] = m
	return m, nil
}

// discard removes the module of a failed attempt so the next candidate can
// declare the name again
func (l *Loader) discard(name string) {
	if m := l.ctx.FindModule(name); m != nil {
		l.ctx.DiscardModule(m)
	}
	delete(l.modules, name)
	delete(l.units, name)
}

// loadSource assembles and evaluates a source file
func (l *Loader) loadSource(name, path string) (*sem.Module, *walk.Unit, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}

	m, err := l.declareModule(name, path, sem.ProvenanceSource)
	if err != nil {
		return nil, nil, err
	}

	unit, err := walk.Assemble(l.ctx, m, path, string(src), nested{l})
	if err == nil {
		err = l.runInit(unit)
	}

	if err != nil {
		l.discard(name)
		return nil, nil, err
	}

	l.units[name] = unit
	return m, unit, nil
}

// loadArchive installs a compiled archive
func (l *Loader) loadArchive(name, path string) (*sem.Module, error) {
	a, err := archive.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if l.opts.DebugArchive {
		logging.LogDebug("Archive", archive.Dump(a))
	}

	m, err := l.declareModule(name, path, sem.ProvenanceArchive)
	if err != nil {
		return nil, err
	}

	unit, err := archive.Install(l.ctx, m, a, nested{l})
	if err == nil {
		err = l.runInit(unit)
	}

	if err != nil {
		l.discard(name)
		return nil, err
	}

	l.units[name] = unit
	return m, nil
}

// runInit evaluates the top level expressions of a unit in order
func (l *Loader) runInit(unit *walk.Unit) error {
	if len(unit.Init) == 0 {
		return nil
	}

	th := l.proc.NewThread()
	defer l.proc.Release(th)

	for _, f := range unit.Init {
		if _, err := th.Call(f, nil); err != nil {
			return fmt.Errorf("evaluating %s: %w", unit.Module.Location(), err)
		}
	}

	return nil
}
