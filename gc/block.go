package gc

// Block is a single allocation made through an API.  The collector only sees
// blocks: the runtime stores its object representation in Payload.
//
// Use of a block after it has been released (by a pool pop, an explicit Free
// or a sweep) is not guarded against.  Released blocks have their payload
// cleared so stale accesses fail loudly instead of reading recycled data.
type Block struct {
	// Payload is the object stored in the block.  If it implements Tracer and
	// the block is not atomic, the collector follows its references.
	Payload interface{}

	size     int
	atomic   bool
	stubborn bool
	changing bool
	released bool
	marked   bool
	owner    API
}

// Tracer is implemented by payloads holding references to other blocks
type Tracer interface {
	Trace(visit func(*Block))
}

// Size returns the size requested for the block
func (b *Block) Size() int {
	return b.size
}

// Atomic reports whether the block is excluded from scanning
func (b *Block) Atomic() bool {
	return b.atomic
}

// Stubborn reports whether the block was allocated as a stubborn object
func (b *Block) Stubborn() bool {
	return b.stubborn
}

// Changing reports whether a stubborn block is inside a change window
func (b *Block) Changing() bool {
	return b.changing
}

// Released reports whether the block has been reclaimed
func (b *Block) Released() bool {
	return b.released
}

// Owner returns the back-end that allocated the block
func (b *Block) Owner() API {
	return b.owner
}

// reset prepares a recycled block for reuse
func (b *Block) reset(size int, atomic bool, owner API) {
	*b = Block{size: size, atomic: atomic, owner: owner}
}

// releaseBlock clears a block's payload and marks it reclaimed
func releaseBlock(b *Block) {
	b.released = true
	b.changing = false
	b.Payload = nil
}
