package gc

// API is one allocation back-end in the collector's backend stack.  Back-ends
// form a chain through Next so that wrapping layers (statistics, pools) can
// hand requests to the layer they were pushed over.
type API interface {
	// Name identifies the back-end for statistics and debugging
	Name() string

	// Next returns the back-end this one was pushed over or nil for the main
	// heap at the bottom of the stack
	Next() API

	// Allocate returns a traced block: the collector scans its payload for
	// references to other blocks.
	Allocate(size int) *Block

	// AllocateAtomic returns a block the collector never scans.  It must only
	// be used for payloads that hold no block references.
	AllocateAtomic(size int) *Block

	// The off-page variants exist for conservative collectors that need every
	// pointer to land in the first page of the object.  The collector here is
	// precise so they behave exactly like their on-page counterparts.
	AllocateOffPage(size int) *Block
	AllocateAtomicOffPage(size int) *Block

	// AllocateStubborn returns a block that is expected to change rarely.
	// Mutations must be bracketed by BeginChangeStubborn/EndChangeStubborn.
	AllocateStubborn(size int) *Block
	BeginChangeStubborn(b *Block)
	EndChangeStubborn(b *Block)

	// Free explicitly releases a block.  It is a no-op for tracing back-ends.
	Free(b *Block)
}

// releaser is implemented by back-ends that batch-free their blocks when they
// are popped off the backend stack.
type releaser interface {
	release()
}
