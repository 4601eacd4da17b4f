package internal

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// perform runs fn in a reconcile transaction of h.
func (h *harness) perform(t *testing.T, fn func(tx ReconcileTransaction) error) {
	t.Helper()

	tx := h.txs.Acquire()
	defer h.txs.Release(tx)

	require.NoError(t, tx.Perform(func() error { return fn(tx) }))
}

func TestReconciler(t *testing.T) {
	t.Run("skips identical descriptions", func(t *testing.T) {
		h := newHarness()
		ka := h.kind("a")
		a := h.mount(t, ka, nil, nil)

		h.perform(t, func(tx ReconcileTransaction) error {
			return h.s.Reconciler().Receive(a, a.Element(), tx, a.Context())
		})

		assert.Equal(t, []string{"pass"}, h.log)
	})

	t.Run("receives a new description", func(t *testing.T) {
		h := newHarness()
		ka := h.kind("a")
		a := h.mount(t, ka, nil, nil)
		next := &Element{Type: kindOf{ka}, Props: map[string]any{"n": 1}}

		h.perform(t, func(tx ReconcileTransaction) error {
			return h.s.Reconciler().Receive(a, next, tx, nil)
		})

		assert.Equal(t, []string{"pass", "receive a"}, h.log)
		assert.Same(t, next, a.Element())
	})

	t.Run("receives the same description with a new context", func(t *testing.T) {
		h := newHarness()
		a := h.mount(t, h.kind("a"), nil, nil)

		h.perform(t, func(tx ReconcileTransaction) error {
			return h.s.Reconciler().Receive(a, a.Element(), tx, "ctx")
		})

		assert.Equal(t, []string{"pass", "receive a"}, h.log)
		assert.Equal(t, "ctx", a.Context())
	})

	t.Run("tracks the node being reconciled", func(t *testing.T) {
		h := newHarness()
		ka := h.kind("a")
		a := h.mount(t, ka, nil, nil)

		var current *Node
		ka.update = func(*Node, ReconcileTransaction) error {
			current = h.s.Reconciler().Current()
			return nil
		}

		require.NoError(t, h.s.EnqueueUpdate(a))

		assert.Same(t, a, current)
		assert.Nil(t, h.s.Reconciler().Current())
	})

	t.Run("attaches refs once the transaction closes", func(t *testing.T) {
		h := newHarness()
		owner := h.mount(t, h.kind("owner"), nil, nil)

		n := h.s.Instantiate(&Element{Type: kindOf{h.kind("a")}, Ref: NamedRef("a"), Owner: owner})

		h.perform(t, func(tx ReconcileTransaction) error {
			_, err := h.s.Reconciler().Mount(n, tx, nil, nil)
			assert.Nil(t, owner.Ref("a"))
			return err
		})

		assert.Equal(t, "a", owner.Ref("a"))
		assert.True(t, n.IsMounted())
	})

	t.Run("moves a named ref to a callback ref after mutations", func(t *testing.T) {
		h := newHarness()
		owner := h.mount(t, h.kind("owner"), nil, nil)

		kx := h.kind("x")
		x := h.mount(t, kx, NamedRef("a"), owner)
		require.Equal(t, "x", owner.Ref("a"))

		cb := RefFunc(func(instance any) {
			h.add("cb %v, owner has a: %v", instance, owner.Ref("a") != nil)
		})

		kx.receive = func(any, ReconcileTransaction) error {
			h.add("receive, owner has a: %v", owner.Ref("a") != nil)
			return nil
		}

		h.perform(t, func(tx ReconcileTransaction) error {
			next := &Element{Type: kindOf{kx}, Ref: cb}
			if err := h.s.Reconciler().Receive(x, next, tx, nil); err != nil {
				return err
			}
			h.add("mutations done")
			return nil
		})

		assert.Equal(t, []string{
			"pass",
			"receive x",
			"receive, owner has a: true",
			"mutations done",
			"cb x, owner has a: false",
		}, h.log)
	})

	t.Run("keeps refs that did not change", func(t *testing.T) {
		h := newHarness()

		calls := 0
		cb := RefFunc(func(any) { calls++ })

		kx := h.kind("x")
		x := h.mount(t, kx, cb, nil)
		require.Equal(t, 1, calls)

		h.perform(t, func(tx ReconcileTransaction) error {
			return h.s.Reconciler().Receive(x, &Element{Type: kindOf{kx}, Ref: cb}, tx, nil)
		})

		assert.Equal(t, 1, calls)
	})

	t.Run("moves a named ref to its new owner", func(t *testing.T) {
		h := newHarness()
		first := h.mount(t, h.kind("first"), nil, nil)
		second := h.mount(t, h.kind("second"), nil, nil)

		kx := h.kind("x")
		x := h.mount(t, kx, NamedRef("a"), first)

		h.perform(t, func(tx ReconcileTransaction) error {
			return h.s.Reconciler().Receive(x, &Element{Type: kindOf{kx}, Ref: NamedRef("a"), Owner: second}, tx, nil)
		})

		assert.Nil(t, first.Ref("a"))
		assert.Equal(t, "x", second.Ref("a"))
	})

	t.Run("detaches refs on unmount right away", func(t *testing.T) {
		h := newHarness()
		cb := RefFunc(func(instance any) { h.add("cb %v", instance) })

		x := h.mount(t, h.kind("x"), cb, nil)

		require.NoError(t, h.s.Reconciler().Unmount(x, false))

		assert.Equal(t, []string{"cb <nil>", "unmount x"}, h.log)
		assert.True(t, x.IsUnmounted())
	})

	t.Run("detach leaves a name taken over by another node", func(t *testing.T) {
		h := newHarness()
		owner := h.mount(t, h.kind("owner"), nil, nil)

		x := h.mount(t, h.kind("x"), NamedRef("a"), owner)
		h.mount(t, h.kind("y"), NamedRef("a"), owner)
		require.Equal(t, "y", owner.Ref("a"))

		require.NoError(t, h.s.Reconciler().Unmount(x, false))

		assert.Equal(t, map[string]any{"a": "y"}, owner.Refs())
	})

	t.Run("named refs need an owner", func(t *testing.T) {
		h := newHarness()

		requirePanicsIs(t, ErrNoRefOwner, func() {
			h.mount(t, h.kind("x"), NamedRef("a"), nil)
		})
	})

	t.Run("returns mount errors", func(t *testing.T) {
		h := newHarness()
		boom := fmt.Errorf("boom")

		n := newNode(&failingKind{err: boom}, nil, 1)

		tx := h.txs.Acquire()
		defer h.txs.Release(tx)

		err := tx.Perform(func() error {
			_, err := h.s.Reconciler().Mount(n, tx, nil, nil)
			return err
		})

		require.ErrorIs(t, err, boom)
		assert.False(t, n.IsMounted())
	})

	t.Run("warns about stale generations", func(t *testing.T) {
		var buf bytes.Buffer
		h := newHarness(WithLogger(newTestLogger(&buf)))
		a := h.mount(t, h.kind("a"), nil, nil)
		a.updateBatchNumber = 7

		h.perform(t, func(tx ReconcileTransaction) error {
			return h.s.Reconciler().FlushIfNecessary(a, tx, 3)
		})

		assert.Equal(t, []string{"pass"}, h.log)
		assert.Equal(t, uint64(7), a.ScheduledFor())
		assert.Contains(t, buf.String(), `"category":"stale_generation"`)
	})

	t.Run("logs flush timings", func(t *testing.T) {
		var buf bytes.Buffer
		h := newHarness(WithLogger(newTestLogger(&buf)), WithTiming(true))
		a := h.mount(t, h.kind("a"), nil, nil)

		require.NoError(t, h.s.EnqueueUpdate(a))

		assert.Contains(t, buf.String(), `"msg":"flushed node"`)
	})
}

type failingKind struct {
	testKind
	err error
}

func (k *failingKind) Mount(ReconcileTransaction, any, any) (any, error) {
	return nil, k.err
}
