package internal

// Reconciler is the single entry point through which nodes get mounted,
// updated, unmounted and flushed. It owns the ref protocol.
type Reconciler struct {
	tracker *Tracker
	diag    *diagnostics
}

func NewReconciler(diag *diagnostics) *Reconciler {
	return &Reconciler{
		tracker: NewTracker(),
		diag:    diag,
	}
}

// Current returns the node being reconciled, if any.
func (r *Reconciler) Current() *Node {
	return r.tracker.Current()
}

// Mount mounts n and returns its markup. Its ref, if any, is attached once
// the transaction's post-update queue is notified.
func (r *Reconciler) Mount(n *Node, tx ReconcileTransaction, hostParent any, ctx any) (any, error) {
	var markup any
	err := r.tracker.RunWithNode(n, func() (err error) {
		markup, err = n.kind.Mount(tx, hostParent, ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	n.state = nodeMounted
	n.context = ctx

	if ref, _ := refOf(n.element); ref != nil {
		tx.PostUpdateQueue().Enqueue(attachRefs, n)
	}

	return markup, nil
}

// HostNode returns the host-facing handle of n.
func (r *Reconciler) HostNode(n *Node) any {
	return n.kind.HostNode()
}

// Unmount detaches the ref of n right away, then tears it down.
func (r *Reconciler) Unmount(n *Node, safely bool) error {
	if n.state == nodeMounted {
		detachRefs(n, n.element)
	}

	n.state = nodeUnmounted
	n.clearPending()

	return n.kind.Unmount(safely)
}

// Receive updates n to the next description.
//
// Descriptions are immutable once handed to a node, so receiving the very
// same description with the same context is a no-op.
func (r *Reconciler) Receive(n *Node, next any, tx ReconcileTransaction, ctx any) error {
	prev := n.element
	if identical(next, prev) && identical(ctx, n.context) {
		return nil
	}

	refsChanged := shouldUpdateRefs(prev, next)

	n.updateBatchNumber = 0

	err := r.tracker.RunWithNode(n, func() error {
		return n.kind.Receive(next, tx, ctx)
	})
	if err != nil {
		return err
	}

	n.element = next
	n.context = ctx

	if refsChanged {
		queue := tx.PostUpdateQueue()

		if ref, _ := refOf(prev); ref != nil {
			queue.Enqueue(func(any, any) { detachRefs(n, prev) }, n)
		}
		if ref, _ := refOf(next); ref != nil {
			queue.Enqueue(attachRefs, n)
		}
	}

	return nil
}

// FlushIfNecessary flushes the pending work of n if it was scheduled for
// the given generation.
func (r *Reconciler) FlushIfNecessary(n *Node, tx ReconcileTransaction, generation uint64) error {
	if n.updateBatchNumber != generation {
		// either already flushed (0) or waiting for the next pass
		if n.updateBatchNumber != 0 && n.updateBatchNumber != generation+1 {
			r.diag.warn(CategoryStaleGeneration).
				Uint64("mount_order", n.mountOrder).
				Uint64("scheduled_for", n.updateBatchNumber).
				Uint64("generation", generation).
				Log("node scheduled for an unexpected generation")
		}
		return nil
	}

	// cleared first so the node may schedule itself again for the next pass
	n.updateBatchNumber = 0

	return r.tracker.RunWithNode(n, func() error {
		return r.diag.timed(n, generation, func() error {
			return n.kind.PerformUpdateIfNecessary(tx)
		})
	})
}
