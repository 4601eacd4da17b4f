package internal

// flushTransaction performs one flush pass over the dirty queue, nested
// around the host's reconcile transaction.
type flushTransaction struct {
	*Transaction

	s *Scheduler

	// length of the dirty queue when the pass started
	dirtyLength int

	// per-node callbacks, notified when the pass closes
	callbacks *CallbackQueue

	reconcileTx ReconcileTransaction
}

func newFlushTransaction(s *Scheduler) *flushTransaction {
	tx := &flushTransaction{s: s}

	batchAccounting := Wrapper{
		Initialize: func() (any, error) {
			tx.dirtyLength = len(s.dirty)
			return nil, nil
		},
		Close: func(any) error {
			// entries left behind by a failed pass lose their tag, so that
			// scheduling them again works
			for _, n := range s.dirty[:tx.dirtyLength] {
				if n.updateBatchNumber == s.generation {
					n.updateBatchNumber = 0
				}
			}

			if len(s.dirty) != tx.dirtyLength {
				// nodes got scheduled during the pass, drop the processed
				// entries and leave the new ones to the drain loop
				n := copy(s.dirty, s.dirty[tx.dirtyLength:])
				clear(s.dirty[n:])
				s.dirty = s.dirty[:n]
				return nil
			}

			clear(s.dirty)
			s.dirty = s.dirty[:0]
			return nil
		},
	}

	callbackAccounting := Wrapper{
		Initialize: func() (any, error) {
			tx.callbacks.Reset()
			return nil, nil
		},
		Close: func(any) error {
			tx.callbacks.NotifyAll()
			return nil
		},
	}

	tx.Transaction = NewTransaction(batchAccounting, callbackAccounting)
	return tx
}

func (tx *flushTransaction) perform() error {
	tx.callbacks = tx.s.queuePool.Get()
	tx.reconcileTx = tx.s.txs.Acquire()

	return tx.Perform(func() error {
		return tx.reconcileTx.Perform(func() error {
			return tx.s.runBatchedUpdates(tx)
		})
	})
}

func (tx *flushTransaction) reset() {
	if tx.callbacks != nil {
		tx.s.queuePool.Put(tx.callbacks)
		tx.callbacks = nil
	}
	if tx.reconcileTx != nil {
		tx.s.txs.Release(tx.reconcileTx)
		tx.reconcileTx = nil
	}
	tx.dirtyLength = 0
}
