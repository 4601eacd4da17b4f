package internal

// ReconcileTransaction is the execution context of one reconcile pass,
// supplied by the host. Refs get attached through its post-update queue once
// the host considers its structural mutations complete.
type ReconcileTransaction interface {
	Perform(method func() error) error
	PostUpdateQueue() *CallbackQueue
}

// ReconcileTransactions hands out reconcile transactions, one per flush pass.
type ReconcileTransactions interface {
	Acquire() ReconcileTransaction
	Release(tx ReconcileTransaction)
}

// HostTransaction is the default ReconcileTransaction. It runs the host
// wrappers around each pass, then notifies its post-update queue.
type HostTransaction struct {
	*Transaction

	queue *CallbackQueue
}

func NewHostTransaction(wrappers ...Wrapper) *HostTransaction {
	tx := &HostTransaction{queue: NewCallbackQueue(nil)}

	queueing := Wrapper{
		Initialize: func() (any, error) {
			tx.queue.Reset()
			return nil, nil
		},
		Close: func(any) error {
			tx.queue.NotifyAll()
			return nil
		},
	}

	tx.Transaction = NewTransaction(append(wrappers[:len(wrappers):len(wrappers)], queueing)...)
	return tx
}

func (tx *HostTransaction) PostUpdateQueue() *CallbackQueue {
	return tx.queue
}

// Checkpoint and Rollback let a host undo post-update work queued by a
// subtree it decides to throw away.
func (tx *HostTransaction) Checkpoint() int { return tx.queue.Checkpoint() }

func (tx *HostTransaction) Rollback(n int) { tx.queue.Rollback(n) }

// HostTransactions is a pool of HostTransaction sharing the same wrappers.
type HostTransactions struct {
	pool *Pool[*HostTransaction]
}

func NewHostTransactions(size int, wrappers ...Wrapper) *HostTransactions {
	return &HostTransactions{
		pool: NewPool(size,
			func() *HostTransaction { return NewHostTransaction(wrappers...) },
			func(tx *HostTransaction) { tx.queue.Reset() },
		),
	}
}

func (h *HostTransactions) Acquire() ReconcileTransaction {
	return h.pool.Get()
}

func (h *HostTransactions) Release(tx ReconcileTransaction) {
	h.pool.Put(tx.(*HostTransaction))
}

// Outstanding is the number of transactions acquired and not yet released.
func (h *HostTransactions) Outstanding() int {
	return h.pool.Outstanding()
}
