package internal

// Callback is a queued notification. It receives the context it was enqueued
// with and the queue-wide argument.
type Callback func(ctx any, arg any)

// CallbackQueue collects callbacks to be notified in one go, in FIFO order.
type CallbackQueue struct {
	callbacks []Callback
	contexts  []any

	// delivered to every callback on NotifyAll
	arg any
}

func NewCallbackQueue(arg any) *CallbackQueue {
	return &CallbackQueue{arg: arg}
}

func (q *CallbackQueue) Enqueue(cb Callback, ctx any) {
	q.callbacks = append(q.callbacks, cb)
	q.contexts = append(q.contexts, ctx)
}

// NotifyAll invokes every queued callback and empties the queue.
// Callbacks enqueued while notifying are kept for the next cycle.
func (q *CallbackQueue) NotifyAll() {
	callbacks, contexts := q.callbacks, q.contexts
	if len(callbacks) != len(contexts) {
		invariant(ErrCallbackMismatch, "%d callbacks, %d contexts", len(callbacks), len(contexts))
	}
	if len(callbacks) == 0 {
		return
	}

	q.callbacks, q.contexts = nil, nil

	for i := range callbacks {
		callbacks[i](contexts[i], q.arg)
	}

	// nothing new got queued, keep the backing arrays around
	if q.callbacks == nil && q.contexts == nil {
		clear(callbacks)
		clear(contexts)
		q.callbacks, q.contexts = callbacks[:0], contexts[:0]
	}
}

// Checkpoint returns the current length, to be used with Rollback.
func (q *CallbackQueue) Checkpoint() int {
	return len(q.callbacks)
}

// Rollback drops everything enqueued after the given checkpoint.
func (q *CallbackQueue) Rollback(n int) {
	if n < 0 || n > len(q.callbacks) {
		return
	}

	clear(q.callbacks[n:])
	clear(q.contexts[n:])
	q.callbacks = q.callbacks[:n]
	q.contexts = q.contexts[:n]
}

func (q *CallbackQueue) Len() int {
	return len(q.callbacks)
}

// Reset empties the queue without notifying anything.
func (q *CallbackQueue) Reset() {
	q.Rollback(0)
}

// SetArg changes the argument handed to every callback.
func (q *CallbackQueue) SetArg(arg any) {
	q.arg = arg
}

// NewCallbackQueuePool returns a pool of empty callback queues.
func NewCallbackQueuePool(size int) *Pool[*CallbackQueue] {
	return NewPool(size,
		func() *CallbackQueue { return NewCallbackQueue(nil) },
		func(q *CallbackQueue) {
			q.Reset()
			q.arg = nil
		},
	)
}
