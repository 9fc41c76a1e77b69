package eval

import (
	"io"
	"os"
	"sync"

	"mu/gc"
	"mu/sem"
)

// DefaultMaxDepth is the number of nested calls a thread allows before it
// raises a stack overflow
const DefaultMaxDepth = 2048

// Process is the evaluation state shared by every Thread of one runtime
type Process struct {
	m *sync.Mutex

	ctx *sem.Context
	out io.Writer

	threads   []*Thread
	threadMap map[interface{}]*Thread

	// world is read-locked by every outermost call and write-locked by a
	// collection so that no thread is between safe points while the stacks
	// are scanned
	world *sync.RWMutex

	MaxDepth int
}

// NewProcess creates a process evaluating against ctx.  Output of the
// builtin printing functions goes to out (stdout if nil).
func NewProcess(ctx *sem.Context, out io.Writer) *Process {
	if out == nil {
		out = os.Stdout
	}

	return &Process{
		m:         &sync.Mutex{},
		ctx:       ctx,
		out:       out,
		threadMap: make(map[interface{}]*Thread),
		world:     &sync.RWMutex{},
		MaxDepth:  DefaultMaxDepth,
	}
}

// Context returns the symbol table the process evaluates against
func (p *Process) Context() *sem.Context {
	return p.ctx
}

// GC returns the process's collector
func (p *Process) GC() *gc.Collector {
	return p.ctx.GC()
}

// Output returns the writer used by the printing builtins
func (p *Process) Output() io.Writer {
	return p.out
}

// SetOutput redirects the printing builtins
func (p *Process) SetOutput(w io.Writer) {
	p.m.Lock()
	p.out = w
	p.m.Unlock()
}

// NewThread creates a thread not associated with any host handle.  Release
// it once it is no longer used.
func (p *Process) NewThread() *Thread {
	t := &Thread{proc: p}
	t.providerID = p.GC().AddRootProvider(t.traceRoots)

	p.m.Lock()
	p.threads = append(p.threads, t)
	p.m.Unlock()

	return t
}

// ThreadFor returns the thread associated with a host handle (eg. an OS
// thread or session identifier), creating it on first use
func (p *Process) ThreadFor(handle interface{}) *Thread {
	p.m.Lock()
	t, ok := p.threadMap[handle]
	p.m.Unlock()

	if ok {
		return t
	}

	t = p.NewThread()

	p.m.Lock()
	defer p.m.Unlock()

	// another caller may have raced us for the same handle
	if existing, ok := p.threadMap[handle]; ok {
		p.removeThread(t)
		return existing
	}

	p.threadMap[handle] = t
	return t
}

// ReleaseThread discards the thread associated with a handle
func (p *Process) ReleaseThread(handle interface{}) {
	p.m.Lock()
	defer p.m.Unlock()

	if t, ok := p.threadMap[handle]; ok {
		delete(p.threadMap, handle)
		p.removeThread(t)
	}
}

// Release discards a thread created by NewThread
func (p *Process) Release(t *Thread) {
	p.m.Lock()
	defer p.m.Unlock()

	for h, mapped := range p.threadMap {
		if mapped == t {
			delete(p.threadMap, h)
		}
	}

	p.removeThread(t)
}

// removeThread drops a thread from the list and the collector's roots.
// Assumes the lock is held.
func (p *Process) removeThread(t *Thread) {
	for i, other := range p.threads {
		if other == t {
			p.threads = append(p.threads[:i], p.threads[i+1:]...)
			break
		}
	}

	p.GC().RemoveRootProvider(t.providerID)
}

// Threads returns the live threads
func (p *Process) Threads() []*Thread {
	p.m.Lock()
	defer p.m.Unlock()

	return append([]*Thread(nil), p.threads...)
}

// -----------------------------------------------------------------------------

// Collect runs a collection if no thread is inside a call.  It returns the
// number of blocks reclaimed and false if the collection had to be skipped.
func (p *Process) Collect() (int, bool) {
	if !p.world.TryLock() {
		return 0, false
	}
	defer p.world.Unlock()

	return p.GC().Collect(), true
}

// collectIfNeeded is the safe point run at the start of an outermost call
func (p *Process) collectIfNeeded() {
	if !p.GC().NeedsCollection() || !p.world.TryLock() {
		return
	}
	defer p.world.Unlock()

	p.GC().CollectIfNeeded()
}

// Barrier disables collection until the returned function is called; the
// release runs a pending collection if no thread is inside a call
func (p *Process) Barrier() func() {
	collector := p.GC()
	collector.Disable()

	return func() {
		collector.Enable()
		p.collectIfNeeded()
	}
}
