package internal

// BatchingStrategy decides when batching scopes open and close.
type BatchingStrategy interface {
	IsBatchingUpdates() bool

	// BatchedUpdates runs fn inside a batching scope. The outermost scope
	// flushes on close.
	BatchedUpdates(fn func() error) error
}

// Batcher is the default BatchingStrategy.
type Batcher struct {
	// true while inside the outermost scope, nested scopes just run fn
	batching bool

	tx *Transaction
}

func NewBatcher(flush func() error) *Batcher {
	b := &Batcher{}

	// flush first, so work scheduled while draining lands in the dirty queue
	// instead of opening a new scope
	b.tx = NewTransaction(
		Wrapper{Close: func(any) error { return flush() }},
		Wrapper{Close: func(any) error {
			b.batching = false
			return nil
		}},
	)

	return b
}

func (b *Batcher) IsBatchingUpdates() bool {
	return b.batching
}

func (b *Batcher) BatchedUpdates(fn func() error) error {
	if b.batching {
		return fn()
	}

	b.batching = true
	return b.tx.Perform(fn)
}
