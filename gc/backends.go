package gc

import "sync"

// heapAPI allocates blocks on the main heap.  Its blocks live until a
// collection finds them unreachable.
type heapAPI struct {
	c     *Collector
	next  API
	noOpt bool
}

func (h *heapAPI) Name() string {
	if h.noOpt {
		return "main-heap-noopt"
	}

	return "main-heap"
}

func (h *heapAPI) Next() API { return h.next }

func (h *heapAPI) alloc(size int, atomic, stubborn bool) *Block {
	if size < 0 {
		panic("gc: negative allocation size")
	}

	h.c.m.Lock()
	defer h.c.m.Unlock()

	b := &Block{size: size, atomic: atomic && !h.noOpt, stubborn: stubborn, owner: h}
	h.c.heap = append(h.c.heap, b)
	h.c.noteAllocation()
	return b
}

func (h *heapAPI) Allocate(size int) *Block              { return h.alloc(size, false, false) }
func (h *heapAPI) AllocateAtomic(size int) *Block        { return h.alloc(size, true, false) }
func (h *heapAPI) AllocateOffPage(size int) *Block       { return h.alloc(size, false, false) }
func (h *heapAPI) AllocateAtomicOffPage(size int) *Block { return h.alloc(size, true, false) }
func (h *heapAPI) AllocateStubborn(size int) *Block      { return h.alloc(size, false, true) }
func (h *heapAPI) BeginChangeStubborn(b *Block)          { b.changing = true }
func (h *heapAPI) EndChangeStubborn(b *Block)            { b.changing = false }

// Free is a no-op: heap blocks are reclaimed by collection only
func (h *heapAPI) Free(b *Block) {}

// -----------------------------------------------------------------------------

// pooled is implemented by back-ends whose blocks are scoped to their lifetime
// on the stack
type pooled interface {
	API
	pool() *poolAPI
}

// poolAPI is an autorelease pool: it keeps every block it hands out and
// releases them all when popped.
type poolAPI struct {
	c       *Collector
	next    API
	name    string
	recycle bool
	blocks  []*Block
}

func (p *poolAPI) Name() string     { return p.name }
func (p *poolAPI) Next() API        { return p.next }
func (p *poolAPI) pool() *poolAPI   { return p }
func (p *poolAPI) Blocks() []*Block { return p.blocks }

func (p *poolAPI) alloc(size int, atomic, stubborn bool) *Block {
	if size < 0 {
		panic("gc: negative allocation size")
	}

	p.c.m.Lock()
	defer p.c.m.Unlock()

	var b *Block
	if p.recycle && len(p.c.freeList) > 0 {
		b = p.c.freeList[len(p.c.freeList)-1]
		p.c.freeList = p.c.freeList[:len(p.c.freeList)-1]
	} else {
		b = &Block{}
	}

	b.reset(size, atomic, p)
	b.stubborn = stubborn
	p.blocks = append(p.blocks, b)
	return b
}

func (p *poolAPI) Allocate(size int) *Block              { return p.alloc(size, false, false) }
func (p *poolAPI) AllocateAtomic(size int) *Block        { return p.alloc(size, true, false) }
func (p *poolAPI) AllocateOffPage(size int) *Block       { return p.alloc(size, false, false) }
func (p *poolAPI) AllocateAtomicOffPage(size int) *Block { return p.alloc(size, true, false) }
func (p *poolAPI) AllocateStubborn(size int) *Block      { return p.alloc(size, false, true) }
func (p *poolAPI) BeginChangeStubborn(b *Block)          { b.changing = true }
func (p *poolAPI) EndChangeStubborn(b *Block)            { b.changing = false }

// Free releases a single block early.  Blocks owned by another back-end are
// handed to their owner.
func (p *poolAPI) Free(b *Block) {
	if b == nil {
		return
	}

	if b.owner != API(p) {
		if b.owner != nil {
			b.owner.Free(b)
		}
		return
	}

	p.c.m.Lock()
	defer p.c.m.Unlock()

	if !b.released {
		releaseBlock(b)
		if p.recycle {
			p.c.freeList = append(p.c.freeList, b)
		}
	}
}

// release frees every block allocated by the pool; assumes the collector lock
// is held
func (p *poolAPI) release() {
	for _, b := range p.blocks {
		if b.released {
			continue
		}

		releaseBlock(b)
		if p.recycle {
			p.c.freeList = append(p.c.freeList, b)
		}
	}

	p.blocks = nil
}

// -----------------------------------------------------------------------------

// slabSize is the number of blocks carved out of one arena slab
const slabSize = 64

// arenaAPI is the static autorelease back-end
type arenaAPI struct {
	poolAPI

	slab []Block
}

func (a *arenaAPI) pool() *poolAPI { return &a.poolAPI }

func (a *arenaAPI) alloc(size int, atomic, stubborn bool) *Block {
	if size < 0 {
		panic("gc: negative allocation size")
	}

	a.c.m.Lock()
	defer a.c.m.Unlock()

	if len(a.slab) == 0 {
		a.slab = make([]Block, slabSize)
	}

	b := &a.slab[0]
	a.slab = a.slab[1:]

	b.reset(size, atomic, a)
	b.stubborn = stubborn
	a.blocks = append(a.blocks, b)
	return b
}

func (a *arenaAPI) Allocate(size int) *Block              { return a.alloc(size, false, false) }
func (a *arenaAPI) AllocateAtomic(size int) *Block        { return a.alloc(size, true, false) }
func (a *arenaAPI) AllocateOffPage(size int) *Block       { return a.alloc(size, false, false) }
func (a *arenaAPI) AllocateAtomicOffPage(size int) *Block { return a.alloc(size, true, false) }
func (a *arenaAPI) AllocateStubborn(size int) *Block      { return a.alloc(size, false, true) }

// Free is a no-op: arena blocks only go away with the arena
func (a *arenaAPI) Free(b *Block) {}

func (a *arenaAPI) release() {
	a.poolAPI.release()
	a.slab = nil
}

// -----------------------------------------------------------------------------

// StatAPI counts the requests passing through it and forwards them to the
// back-end it was pushed over.
type StatAPI struct {
	next API

	m      sync.Mutex
	counts map[string]int
	bytes  int
}

func (s *StatAPI) Name() string { return "stat" }
func (s *StatAPI) Next() API    { return s.next }

func (s *StatAPI) count(entry string, size int) {
	s.m.Lock()
	s.counts[entry]++
	s.bytes += size
	s.m.Unlock()
}

func (s *StatAPI) Allocate(size int) *Block {
	s.count("allocate", size)
	return s.next.Allocate(size)
}

func (s *StatAPI) AllocateAtomic(size int) *Block {
	s.count("allocate-atomic", size)
	return s.next.AllocateAtomic(size)
}

func (s *StatAPI) AllocateOffPage(size int) *Block {
	s.count("allocate-off-page", size)
	return s.next.AllocateOffPage(size)
}

func (s *StatAPI) AllocateAtomicOffPage(size int) *Block {
	s.count("allocate-atomic-off-page", size)
	return s.next.AllocateAtomicOffPage(size)
}

func (s *StatAPI) AllocateStubborn(size int) *Block {
	s.count("allocate-stubborn", size)
	return s.next.AllocateStubborn(size)
}

func (s *StatAPI) BeginChangeStubborn(b *Block) { s.next.BeginChangeStubborn(b) }
func (s *StatAPI) EndChangeStubborn(b *Block)   { s.next.EndChangeStubborn(b) }

func (s *StatAPI) Free(b *Block) {
	s.count("free", 0)
	s.next.Free(b)
}

// Counts returns the number of requests seen per entry point
func (s *StatAPI) Counts() map[string]int {
	s.m.Lock()
	defer s.m.Unlock()

	out := make(map[string]int, len(s.counts))
	for k, v := range s.counts {
		out[k] = v
	}

	return out
}

// Bytes returns the total size requested through this back-end
func (s *StatAPI) Bytes() int {
	s.m.Lock()
	defer s.m.Unlock()

	return s.bytes
}
