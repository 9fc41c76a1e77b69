package gc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// node is a test payload holding references to other blocks
type node struct {
	refs []*Block
}

func (n *node) Trace(visit func(*Block)) {
	for _, r := range n.refs {
		visit(r)
	}
}

func TestMainHeapCollectsUnreachable(t *testing.T) {
	c := NewCollector(0)

	root := c.API().Allocate(16)
	child := c.API().Allocate(16)
	garbage := c.API().Allocate(16)
	root.Payload = &node{refs: []*Block{child}}

	c.AddRoot(root)
	reclaimed := c.Collect()

	assert.Equal(t, 1, reclaimed)
	assert.False(t, root.Released())
	assert.False(t, child.Released())
	assert.True(t, garbage.Released())
	assert.Equal(t, 2, c.Stats().Live)

	c.RemoveRoot(root)
	assert.Equal(t, 2, c.Collect())
}

func TestAtomicBlocksAreNotScanned(t *testing.T) {
	c := NewCollector(0)

	holder := c.API().AllocateAtomic(8)
	target := c.API().Allocate(8)
	holder.Payload = &node{refs: []*Block{target}}

	c.AddRoot(holder)
	c.Collect()

	// misclassifying a referencing object as atomic loses its referents
	assert.False(t, holder.Released())
	assert.True(t, target.Released())
}

func TestNoOptHeapIgnoresAtomicHint(t *testing.T) {
	c := NewCollector(0)
	c.PushMainHeapNoOpt()
	defer c.PopAPI()

	b := c.API().AllocateAtomic(8)
	assert.False(t, b.Atomic())
	assert.Equal(t, "main-heap-noopt", c.API().Name())
}

func TestRootProviders(t *testing.T) {
	c := NewCollector(0)

	var stack []*Block
	id := c.AddRootProvider(func(visit func(*Block)) {
		for _, b := range stack {
			visit(b)
		}
	})

	kept := c.API().Allocate(8)
	stack = append(stack, kept)
	lost := c.API().Allocate(8)

	c.Collect()
	assert.False(t, kept.Released())
	assert.True(t, lost.Released())

	c.RemoveRootProvider(id)
	c.Collect()
	assert.True(t, kept.Released())
}

func TestAutoreleaseScoping(t *testing.T) {
	for _, push := range []func(c *Collector) API{
		(*Collector).PushAutorelease,
		(*Collector).PushMallocAutorelease,
		(*Collector).PushStaticAutorelease,
	} {
		c := NewCollector(0)
		heapObj := c.API().Allocate(8)
		c.AddRoot(heapObj)

		pool := push(c)
		assert.Equal(t, 2, c.Depth())
		pooled := c.API().Allocate(8)
		pooledAtomic := c.API().AllocateAtomic(8)
		heapDuring := pool.Next().Allocate(8)
		c.AddRoot(heapDuring)
		pooled.Payload = &node{}

		// pool blocks survive collections while the pool is active
		c.Collect()
		assert.False(t, pooled.Released(), pool.Name())

		require.NoError(t, c.PopAPI())
		assert.True(t, pooled.Released(), pool.Name())
		assert.True(t, pooledAtomic.Released(), pool.Name())
		assert.Nil(t, pooled.Payload)
		assert.False(t, heapObj.Released(), pool.Name())
		assert.False(t, heapDuring.Released(), pool.Name())
		assert.Equal(t, 1, c.Depth())
	}
}

func TestPoolBlocksKeepHeapReferentsAlive(t *testing.T) {
	c := NewCollector(0)
	target := c.API().Allocate(8)

	c.PushAutorelease()
	holder := c.API().Allocate(8)
	holder.Payload = &node{refs: []*Block{target}}

	c.Collect()
	assert.False(t, target.Released())

	require.NoError(t, c.PopAPI())
	c.Collect()
	assert.True(t, target.Released())
}

func TestPoolFree(t *testing.T) {
	c := NewCollector(0)
	c.PushAutorelease()

	b := c.API().Allocate(8)
	c.API().Free(b)
	assert.True(t, b.Released())

	// the released storage is reused by the next allocation
	b2 := c.API().Allocate(4)
	assert.Same(t, b, b2)
	assert.False(t, b2.Released())
	assert.Equal(t, 4, b2.Size())

	require.NoError(t, c.PopAPI())
}

func TestHeapFreeIsNoop(t *testing.T) {
	c := NewCollector(0)
	b := c.API().Allocate(8)
	c.API().Free(b)
	assert.False(t, b.Released())
}

func TestPopBaseFails(t *testing.T) {
	c := NewCollector(0)
	assert.ErrorIs(t, c.PopAPI(), ErrEmptyStack)
}

func TestDisableNesting(t *testing.T) {
	c := NewCollector(0)
	b := c.API().Allocate(8)

	c.Disable()
	c.Disable()
	assert.Equal(t, 0, c.Collect())
	assert.True(t, c.NeedsCollection())
	assert.False(t, b.Released())

	c.Enable()
	assert.True(t, c.IsDisabled())
	assert.False(t, c.CollectIfNeeded())
	assert.False(t, b.Released())

	c.Enable()
	assert.False(t, c.IsDisabled())
	assert.True(t, c.CollectIfNeeded())
	assert.True(t, b.Released())
	assert.False(t, c.NeedsCollection())

	assert.Panics(t, c.Enable)
}

func TestBarrier(t *testing.T) {
	c := NewCollector(2)
	var b *Block

	func() {
		defer c.Barrier()()
		b = c.API().Allocate(8)
		c.API().Allocate(8)
		assert.True(t, c.NeedsCollection())
		assert.False(t, c.CollectIfNeeded())
	}()

	assert.True(t, b.Released())
	assert.Equal(t, 1, c.Stats().Collections)
}

func TestStatBackend(t *testing.T) {
	c := NewCollector(0)
	s := c.PushStat()

	c.API().Allocate(10)
	c.API().AllocateAtomic(6)
	b := c.API().AllocateStubborn(4)
	c.API().BeginChangeStubborn(b)
	assert.True(t, b.Changing())
	c.API().EndChangeStubborn(b)
	assert.False(t, b.Changing())
	c.API().Free(b)

	counts := s.Counts()
	assert.Equal(t, 1, counts["allocate"])
	assert.Equal(t, 1, counts["allocate-atomic"])
	assert.Equal(t, 1, counts["allocate-stubborn"])
	assert.Equal(t, 1, counts["free"])
	assert.Equal(t, 20, s.Bytes())
	assert.Equal(t, "main-heap", s.Next().Name())

	// blocks are owned by the wrapped heap
	assert.Equal(t, "main-heap", b.Owner().Name())
	require.NoError(t, c.PopAPI())
}
