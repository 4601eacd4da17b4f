package internal

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateQueue(t *testing.T) {
	t.Run("records state for the next update", func(t *testing.T) {
		h := newHarness()
		ka := h.kind("a")
		a := h.mount(t, ka, nil, nil)

		var states []any
		var replace bool
		ka.update = func(n *Node, _ ReconcileTransaction) error {
			states, replace, _ = n.TakePendingState()
			return nil
		}

		q := h.s.Updates()
		require.NoError(t, h.s.BatchedUpdates(func() error {
			if err := q.EnqueueState(a, "first"); err != nil {
				return err
			}
			return q.EnqueueState(a, "second")
		}))

		assert.Equal(t, []string{"pass", "update a"}, h.log)
		assert.Equal(t, []any{"first", "second"}, states)
		assert.False(t, replace)
		assert.False(t, a.HasPendingWork())
	})

	t.Run("replace drops earlier states", func(t *testing.T) {
		h := newHarness()
		a := h.mount(t, h.kind("a"), nil, nil)
		q := h.s.Updates()

		h.s.InjectBatchingStrategy(&manualStrategy{})
		require.NoError(t, q.EnqueueState(a, "dropped"))
		require.NoError(t, q.EnqueueReplaceState(a, "replaced"))
		require.NoError(t, q.EnqueueState(a, "merged"))

		states, replace, force := a.TakePendingState()
		assert.Equal(t, []any{"replaced", "merged"}, states)
		assert.True(t, replace)
		assert.False(t, force)
	})

	t.Run("force update", func(t *testing.T) {
		h := newHarness()
		a := h.mount(t, h.kind("a"), nil, nil)

		h.s.InjectBatchingStrategy(&manualStrategy{})
		require.NoError(t, h.s.Updates().EnqueueForceUpdate(a))

		assert.True(t, a.HasPendingWork())
		_, _, force := a.TakePendingState()
		assert.True(t, force)
		assert.Equal(t, 1, h.s.DirtyLen())
	})

	t.Run("records a pending element", func(t *testing.T) {
		h := newHarness()
		a := h.mount(t, h.kind("a"), nil, nil)

		h.s.InjectBatchingStrategy(&manualStrategy{})
		require.NoError(t, h.s.Updates().EnqueueElement(a, "next", "ctx"))

		el, ctx, ok := a.TakePendingElement()
		assert.True(t, ok)
		assert.Equal(t, "next", el)
		assert.Equal(t, "ctx", ctx)

		_, _, ok = a.TakePendingElement()
		assert.False(t, ok)
	})

	t.Run("calls back with the public instance", func(t *testing.T) {
		h := newHarness()
		a := h.mount(t, h.kind("a"), nil, nil)

		require.NoError(t, h.s.Updates().EnqueueCallback(a, func(ctx any, _ any) {
			h.add("callback %v", ctx)
		}))

		assert.Equal(t, []string{"pass", "update a", "callback a"}, h.log)
	})

	t.Run("drops updates on unmounted nodes", func(t *testing.T) {
		var buf bytes.Buffer
		h := newHarness(WithLogger(newTestLogger(&buf)))
		a := h.mount(t, h.kind("a"), nil, nil)
		require.NoError(t, h.s.Reconciler().Unmount(a, false))
		h.log = nil

		q := h.s.Updates()
		assert.False(t, q.IsMounted(a))
		require.NoError(t, q.EnqueueState(a, "x"))
		require.NoError(t, q.EnqueueCallback(a, func(any, any) { h.add("callback") }))
		require.NoError(t, q.EnqueueElement(a, "x", nil))

		assert.Empty(t, h.log)
		assert.False(t, a.HasPendingWork())
		assert.Contains(t, buf.String(), `"category":"update_unmounted"`)
	})

	t.Run("warns about nodes scheduling themselves", func(t *testing.T) {
		var buf bytes.Buffer
		h := newHarness(WithLogger(newTestLogger(&buf)))
		ka := h.kind("a")
		a := h.mount(t, ka, nil, nil)

		updates := 0
		ka.update = func(n *Node, _ ReconcileTransaction) error {
			updates++
			if updates > 1 {
				return nil
			}
			return h.s.Updates().EnqueueForceUpdate(n)
		}

		require.NoError(t, h.s.Updates().EnqueueForceUpdate(a))

		assert.Equal(t, 2, updates)
		assert.Contains(t, buf.String(), `"category":"nested_update"`)
	})

	t.Run("rate limits diagnostics per category", func(t *testing.T) {
		var buf bytes.Buffer
		h := newHarness(
			WithLogger(newTestLogger(&buf)),
			WithDiagnosticRates(map[time.Duration]int{time.Hour: 2}),
		)
		a := h.mount(t, h.kind("a"), nil, nil)
		require.NoError(t, h.s.Reconciler().Unmount(a, false))

		for range 5 {
			require.NoError(t, h.s.Updates().EnqueueForceUpdate(a))
		}

		assert.Equal(t, 2, strings.Count(buf.String(), "update_unmounted"))
	})
}
