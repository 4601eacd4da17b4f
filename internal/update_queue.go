package internal

// UpdateQueue is how node kinds record pending work on a node and get it
// scheduled. Updates on unmounted nodes are dropped.
type UpdateQueue struct {
	s *Scheduler
}

// IsMounted reports whether n can still receive updates.
func (q *UpdateQueue) IsMounted(n *Node) bool {
	return n != nil && n.IsMounted()
}

// EnqueueCallback queues cb to be called with the public instance of n,
// once n has been flushed.
func (q *UpdateQueue) EnqueueCallback(n *Node, cb Callback) error {
	if !q.ready(n, "callback") {
		return nil
	}

	n.pendingCallbacks = append(n.pendingCallbacks, cb)
	return q.s.EnqueueUpdate(n)
}

// EnqueueForceUpdate makes the next flush of n update it even if nothing
// changed.
func (q *UpdateQueue) EnqueueForceUpdate(n *Node) error {
	if !q.ready(n, "force_update") {
		return nil
	}

	n.pendingForce = true
	return q.s.EnqueueUpdate(n)
}

// EnqueueState queues a partial state, merged by the node kind in order.
func (q *UpdateQueue) EnqueueState(n *Node, partial any) error {
	if !q.ready(n, "state") {
		return nil
	}

	n.pendingStates = append(n.pendingStates, partial)
	return q.s.EnqueueUpdate(n)
}

// EnqueueReplaceState discards previously queued states, state replaces
// the current one.
func (q *UpdateQueue) EnqueueReplaceState(n *Node, state any) error {
	if !q.ready(n, "replace_state") {
		return nil
	}

	n.pendingStates = []any{state}
	n.pendingReplace = true
	return q.s.EnqueueUpdate(n)
}

// EnqueueElement queues a new description for n, applied at its next flush.
func (q *UpdateQueue) EnqueueElement(n *Node, next any, ctx any) error {
	if n == nil || n.IsUnmounted() {
		q.dropped(n, "element")
		return nil
	}

	n.pendingElement = next
	n.pendingContext = ctx
	n.hasPendingElement = true
	return q.s.EnqueueUpdate(n)
}

func (q *UpdateQueue) ready(n *Node, op string) bool {
	if n == nil || n.IsUnmounted() {
		q.dropped(n, op)
		return false
	}

	if q.s.reconciler.Current() == n {
		q.s.diag.warn(CategoryNestedUpdate).
			Str("op", op).
			Uint64("mount_order", n.mountOrder).
			Log("node scheduled itself while being reconciled")
	}

	return true
}

func (q *UpdateQueue) dropped(n *Node, op string) {
	b := q.s.diag.warn(CategoryUpdateUnmounted).Str("op", op)
	if n != nil {
		b = b.Uint64("mount_order", n.mountOrder)
	}
	b.Log("update dropped, node is not mounted")
}
