package internal

import (
	"cmp"
	"slices"
)

// Scheduler owns the dirty queue and drains it in flush passes.
//
// All of its state is meant to be touched from a single goroutine. Node code
// may call back into the scheduler while it is draining.
type Scheduler struct {
	// nodes waiting to be flushed, sorted by mount order at each pass
	dirty []*Node

	// incremented at each flush pass
	generation uint64

	// callbacks to run once the whole drain loop is done
	asap         *CallbackQueue
	asapEnqueued bool

	// set while the drain loop runs, nested drains are folded into it
	flushing bool

	strategy BatchingStrategy
	txs      ReconcileTransactions

	flushPool *Pool[*flushTransaction]
	queuePool *Pool[*CallbackQueue]

	reconciler   *Reconciler
	instantiator *Instantiator
	updates      *UpdateQueue
	diag         *diagnostics
}

func NewScheduler(opts ...Option) *Scheduler {
	c := resolveConfig(opts)

	s := &Scheduler{
		txs:  c.txs,
		diag: c.diagnostics(),
	}

	s.queuePool = NewCallbackQueuePool(c.poolSize)
	s.asap = s.queuePool.Get()
	s.flushPool = NewPool(c.poolSize,
		func() *flushTransaction { return newFlushTransaction(s) },
		(*flushTransaction).reset,
	)

	s.reconciler = NewReconciler(s.diag)
	s.instantiator = NewInstantiator(c.host, c.composite)
	s.updates = &UpdateQueue{s: s}

	s.strategy = c.strategy
	if s.strategy == nil {
		s.strategy = NewBatcher(s.FlushBatchedUpdates)
	}

	return s
}

func (s *Scheduler) InjectBatchingStrategy(strategy BatchingStrategy) {
	if strategy == nil {
		invariant(ErrNotInjected, "batching strategy is nil")
	}
	s.strategy = strategy
}

func (s *Scheduler) InjectReconcileTransactions(txs ReconcileTransactions) {
	if txs == nil {
		invariant(ErrNotInjected, "reconcile transactions are nil")
	}
	s.txs = txs
}

func (s *Scheduler) InjectHost(host HostFactory) {
	s.instantiator.InjectHost(host)
}

func (s *Scheduler) InjectComposite(composite CompositeFactory) {
	s.instantiator.InjectComposite(composite)
}

func (s *Scheduler) Reconciler() *Reconciler { return s.reconciler }

func (s *Scheduler) Updates() *UpdateQueue { return s.updates }

// Instantiate builds a node for desc, see Instantiator.Instantiate.
func (s *Scheduler) Instantiate(desc any) *Node {
	return s.instantiator.Instantiate(desc)
}

// Transactions returns the injected reconcile transactions.
func (s *Scheduler) Transactions() ReconcileTransactions {
	s.ensureInjected()
	return s.txs
}

// Generation returns the generation of the last flush pass.
func (s *Scheduler) Generation() uint64 { return s.generation }

// DirtyLen returns the number of entries in the dirty queue.
func (s *Scheduler) DirtyLen() int { return len(s.dirty) }

// IsBatching reports whether scheduled nodes are currently deferred.
func (s *Scheduler) IsBatching() bool {
	return s.flushing || (s.strategy != nil && s.strategy.IsBatchingUpdates())
}

// BatchedUpdates runs fn in a batching scope. Updates scheduled by fn are
// flushed when the outermost scope closes.
func (s *Scheduler) BatchedUpdates(fn func() error) error {
	s.ensureInjected()
	return s.strategy.BatchedUpdates(fn)
}

// EnqueueUpdate marks n dirty. Outside of a batching scope, it opens one
// and n gets flushed before EnqueueUpdate returns.
func (s *Scheduler) EnqueueUpdate(n *Node) error {
	s.ensureInjected()

	if n.IsUnmounted() {
		return nil
	}

	if !s.IsBatching() {
		return s.strategy.BatchedUpdates(func() error {
			return s.EnqueueUpdate(n)
		})
	}

	s.dirty = append(s.dirty, n)

	// nodes scheduled during a pass wait for the next one
	if n.updateBatchNumber == 0 {
		n.updateBatchNumber = s.generation + 1
	}

	return nil
}

// Asap queues cb to run once the current drain loop completes.
// Only valid inside a batching scope.
func (s *Scheduler) Asap(cb Callback, ctx any) {
	if !s.IsBatching() {
		invariant(ErrAsapOutsideBatch, "updates are not being batched")
	}

	s.asap.Enqueue(cb, ctx)
	s.asapEnqueued = true
}

// FlushBatchedUpdates drains the dirty queue, pass after pass, until
// neither it nor the asap queue have anything left.
func (s *Scheduler) FlushBatchedUpdates() error {
	if s.flushing {
		return nil
	}
	s.flushing = true
	defer func() { s.flushing = false }()

	for len(s.dirty) > 0 || s.asapEnqueued {
		if len(s.dirty) > 0 {
			if err := s.flushPass(); err != nil {
				return err
			}
		}

		// asap callbacks wait for cascaded passes to drain
		if s.asapEnqueued && len(s.dirty) == 0 {
			s.asapEnqueued = false

			queue := s.asap
			s.asap = s.queuePool.Get()
			s.notifyAndRelease(queue)
		}
	}

	return nil
}

func (s *Scheduler) notifyAndRelease(queue *CallbackQueue) {
	defer s.queuePool.Put(queue)
	queue.NotifyAll()
}

func (s *Scheduler) flushPass() error {
	tx := s.flushPool.Get()
	defer s.flushPool.Put(tx)

	return tx.perform()
}

// runBatchedUpdates is the method of a flush pass.
func (s *Scheduler) runBatchedUpdates(tx *flushTransaction) error {
	n := tx.dirtyLength
	if n != len(s.dirty) {
		invariant(ErrDirtyLengthMismatch, "stored %d, queue has %d", n, len(s.dirty))
	}

	// ancestors first, flushing them usually flushes their descendants too
	slices.SortStableFunc(s.dirty, func(a, b *Node) int {
		return cmp.Compare(a.mountOrder, b.mountOrder)
	})

	s.generation++

	for i := 0; i < n; i++ {
		node := s.dirty[i]

		// callbacks of nodes waiting for the next pass stay with them
		var callbacks []Callback
		if node.updateBatchNumber != s.generation+1 {
			callbacks = node.pendingCallbacks
			node.pendingCallbacks = nil
		}

		if err := s.reconciler.FlushIfNecessary(node, tx.reconcileTx, s.generation); err != nil {
			return err
		}

		if len(callbacks) > 0 {
			instance := node.PublicInstance()
			for _, cb := range callbacks {
				tx.callbacks.Enqueue(cb, instance)
			}
		}
	}

	return nil
}

func (s *Scheduler) ensureInjected() {
	if s.strategy == nil {
		invariant(ErrNotInjected, "no batching strategy")
	}
	if s.txs == nil {
		invariant(ErrNotInjected, "no reconcile transactions")
	}
}
