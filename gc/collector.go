package gc

import (
	"errors"
	"sync"
)

// DefaultThreshold is the number of main heap allocations after which a
// collection is requested.
const DefaultThreshold = 4096

// RootProvider reports the blocks a root set (eg. a thread's stack) refers to
type RootProvider func(visit func(*Block))

// Stats summarizes the collector's activity
type Stats struct {
	Collections int // completed collections
	Scanned     int // blocks marked across all collections
	Reclaimed   int // blocks swept across all collections
	Live        int // main heap blocks alive after the last collection
	Allocated   int // main heap blocks allocated since the last collection
}

// Collector is a precise mark-and-sweep collector together with the stack of
// allocation back-ends that feed it.  Each runtime owns exactly one.
type Collector struct {
	m *sync.Mutex

	apis []API

	// heap contains every block allocated by a main heap back-end that has not
	// yet been swept
	heap []*Block

	// pools contains the pool back-ends currently on the stack; their live
	// blocks are treated as roots until the pool is popped
	pools []*poolAPI

	// freeList holds released pool blocks available for reuse
	freeList []*Block

	disabled        int
	needsCollection bool
	threshold       int

	roots     map[*Block]int
	providers map[int]RootProvider
	nextID    int

	stats Stats
}

// NewCollector creates a collector with a main heap back-end installed.  A
// threshold of zero or less selects DefaultThreshold.
func NewCollector(threshold int) *Collector {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	c := &Collector{
		m:         &sync.Mutex{},
		threshold: threshold,
		roots:     make(map[*Block]int),
		providers: make(map[int]RootProvider),
	}

	c.apis = []API{&heapAPI{c: c}}
	return c
}

// API returns the back-end currently on top of the stack
func (c *Collector) API() API {
	c.m.Lock()
	defer c.m.Unlock()

	return c.apis[len(c.apis)-1]
}

// Depth returns the number of back-ends on the stack
func (c *Collector) Depth() int {
	c.m.Lock()
	defer c.m.Unlock()

	return len(c.apis)
}

// top returns the top back-end; assumes the lock is held
func (c *Collector) top() API {
	return c.apis[len(c.apis)-1]
}

// -----------------------------------------------------------------------------

// PushMainHeap installs a main heap back-end
func (c *Collector) PushMainHeap() API {
	return c.push(&heapAPI{c: c})
}

// PushMainHeapNoOpt installs a main heap back-end that ignores atomic hints and
// scans every block.
func (c *Collector) PushMainHeapNoOpt() API {
	return c.push(&heapAPI{c: c, noOpt: true})
}

// PushAutorelease installs a pool back-end.  Every block it allocates is
// released when it is popped and the storage is recycled for later pools.
func (c *Collector) PushAutorelease() API {
	return c.push(&poolAPI{c: c, name: "autorelease", recycle: true})
}

// PushMallocAutorelease installs a pool back-end whose released blocks are
// returned to the Go allocator instead of being recycled.
func (c *Collector) PushMallocAutorelease() API {
	return c.push(&poolAPI{c: c, name: "malloc-autorelease"})
}

// PushStaticAutorelease installs an arena back-end.  Blocks are carved out of
// fixed size slabs, Free does nothing and the whole arena is released on pop.
func (c *Collector) PushStaticAutorelease() API {
	return c.push(&arenaAPI{poolAPI: poolAPI{c: c, name: "static-autorelease"}})
}

// PushStat installs a statistics back-end over the current top of the stack
func (c *Collector) PushStat() *StatAPI {
	s := &StatAPI{counts: make(map[string]int)}
	c.push(s)
	return s
}

// push installs a back-end and links it to the one beneath
func (c *Collector) push(api API) API {
	c.m.Lock()
	defer c.m.Unlock()

	switch v := api.(type) {
	case pooled:
		v.pool().next = c.top()
		c.pools = append(c.pools, v.pool())
	case *heapAPI:
		v.next = c.top()
	case *StatAPI:
		v.next = c.top()
	}

	c.apis = append(c.apis, api)
	return api
}

// ErrEmptyStack is returned when popping would remove the bottom main heap
var ErrEmptyStack = errors.New("gc: cannot pop the base allocation back-end")

// PopAPI removes the top back-end.  Pool back-ends release all of their blocks.
func (c *Collector) PopAPI() error {
	c.m.Lock()
	defer c.m.Unlock()

	if len(c.apis) == 1 {
		return ErrEmptyStack
	}

	api := c.apis[len(c.apis)-1]
	c.apis = c.apis[:len(c.apis)-1]

	if r, ok := api.(releaser); ok {
		r.release()
	}

	if p, ok := api.(pooled); ok {
		for i := len(c.pools) - 1; i >= 0; i-- {
			if c.pools[i] == p.pool() {
				c.pools = append(c.pools[:i], c.pools[i+1:]...)
				break
			}
		}
	}

	return nil
}

// -----------------------------------------------------------------------------

// Disable increments the disable nesting counter.  Collections requested while
// the counter is positive are deferred until it returns to zero.
func (c *Collector) Disable() {
	c.m.Lock()
	c.disabled++
	c.m.Unlock()
}

// Enable decrements the disable nesting counter.  It does not collect by
// itself: callers wanting that use Barrier or CollectIfNeeded.
func (c *Collector) Enable() {
	c.m.Lock()
	defer c.m.Unlock()

	if c.disabled == 0 {
		panic("gc: Enable called without a matching Disable")
	}

	c.disabled--
}

// IsDisabled reports whether collection is currently disabled
func (c *Collector) IsDisabled() bool {
	c.m.Lock()
	defer c.m.Unlock()

	return c.disabled > 0
}

// NeedsCollection reports whether a collection has been requested but not run
func (c *Collector) NeedsCollection() bool {
	c.m.Lock()
	defer c.m.Unlock()

	return c.needsCollection
}

// Barrier disables collection and returns a function that re-enables it and
// runs any collection requested in the meantime.  Use as:
//
//	defer c.Barrier()()
func (c *Collector) Barrier() func() {
	c.Disable()

	return func() {
		c.Enable()
		c.CollectIfNeeded()
	}
}

// CollectIfNeeded runs a collection if one was requested and collection is
// enabled.  It reports whether a collection ran.
func (c *Collector) CollectIfNeeded() bool {
	c.m.Lock()
	defer c.m.Unlock()

	if c.disabled > 0 || !c.needsCollection {
		return false
	}

	c.collect()
	return true
}

// Collect runs a full collection and returns the number of reclaimed blocks.
// If collection is disabled, the request is recorded and zero is returned.
func (c *Collector) Collect() int {
	c.m.Lock()
	defer c.m.Unlock()

	if c.disabled > 0 {
		c.needsCollection = true
		return 0
	}

	return c.collect()
}

// noteAllocation flags a collection once enough has been allocated.
// Assumes the lock is held.
func (c *Collector) noteAllocation() {
	c.stats.Allocated++
	if c.stats.Allocated >= c.threshold {
		c.needsCollection = true
	}
}

// collect performs the mark and sweep; assumes the lock is held
func (c *Collector) collect() int {
	var marked []*Block
	var work []*Block

	visit := func(b *Block) {
		if b == nil || b.released || b.marked {
			return
		}

		b.marked = true
		marked = append(marked, b)
		work = append(work, b)
	}

	for b := range c.roots {
		visit(b)
	}

	for _, p := range c.providers {
		p(visit)
	}

	// live pool blocks stay alive until their pool is popped
	for _, pool := range c.pools {
		for _, b := range pool.blocks {
			visit(b)
		}
	}

	for len(work) > 0 {
		b := work[len(work)-1]
		work = work[:len(work)-1]

		if b.atomic {
			continue
		}

		if t, ok := b.Payload.(Tracer); ok {
			t.Trace(visit)
		}
	}

	live := c.heap[:0]
	reclaimed := 0
	for _, b := range c.heap {
		if b.marked {
			live = append(live, b)
		} else {
			releaseBlock(b)
			reclaimed++
		}
	}

	// clear the tail so swept blocks can be freed by the Go runtime
	for i := len(live); i < len(c.heap); i++ {
		c.heap[i] = nil
	}
	c.heap = live

	for _, b := range marked {
		b.marked = false
	}

	c.needsCollection = false
	c.stats.Collections++
	c.stats.Scanned += len(marked)
	c.stats.Reclaimed += reclaimed
	c.stats.Live = len(c.heap)
	c.stats.Allocated = 0

	return reclaimed
}

// -----------------------------------------------------------------------------

// AddRoot pins a block so that it survives collections.  Roots are counted:
// each AddRoot needs a matching RemoveRoot.
func (c *Collector) AddRoot(b *Block) {
	c.m.Lock()
	c.roots[b]++
	c.m.Unlock()
}

// RemoveRoot unpins a block previously passed to AddRoot
func (c *Collector) RemoveRoot(b *Block) {
	c.m.Lock()
	defer c.m.Unlock()

	if n := c.roots[b]; n > 1 {
		c.roots[b] = n - 1
	} else {
		delete(c.roots, b)
	}
}

// AddRootProvider registers a root set and returns an id for removing it
func (c *Collector) AddRootProvider(p RootProvider) int {
	c.m.Lock()
	defer c.m.Unlock()

	c.nextID++
	c.providers[c.nextID] = p
	return c.nextID
}

// RemoveRootProvider unregisters a root set
func (c *Collector) RemoveRootProvider(id int) {
	c.m.Lock()
	delete(c.providers, id)
	c.m.Unlock()
}

// Stats returns a snapshot of the collector's statistics
func (c *Collector) Stats() Stats {
	c.m.Lock()
	defer c.m.Unlock()

	return c.stats
}
