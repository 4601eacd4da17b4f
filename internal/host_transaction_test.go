package internal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHostTransaction(t *testing.T) {
	t.Run("notifies the post-update queue after the host wrappers", func(t *testing.T) {
		log := []string{}
		tx := NewHostTransaction(traced(&log, "host", nil))

		err := tx.Perform(func() error {
			tx.PostUpdateQueue().Enqueue(func(ctx any, _ any) {
				log = append(log, ctx.(string))
			}, "post update")
			log = append(log, "method")
			return nil
		})

		require.NoError(t, err)
		assert.Equal(t, []string{"host init", "method", "host close host", "post update"}, log)
	})

	t.Run("rolls back to a checkpoint", func(t *testing.T) {
		log := []string{}
		tx := NewHostTransaction()
		cb := func(ctx any, _ any) { log = append(log, ctx.(string)) }

		err := tx.Perform(func() error {
			tx.PostUpdateQueue().Enqueue(cb, "kept")
			checkpoint := tx.Checkpoint()
			tx.PostUpdateQueue().Enqueue(cb, "thrown away")
			tx.Rollback(checkpoint)
			return nil
		})

		require.NoError(t, err)
		assert.Equal(t, []string{"kept"}, log)
	})

	t.Run("pools transactions", func(t *testing.T) {
		txs := NewHostTransactions(1)

		a := txs.Acquire()
		a.PostUpdateQueue().Enqueue(func(any, any) {}, nil)
		assert.Equal(t, 1, txs.Outstanding())
		txs.Release(a)

		b := txs.Acquire()
		assert.Same(t, a, b)
		assert.Equal(t, 0, b.PostUpdateQueue().Len())
	})
}

func TestIdentical(t *testing.T) {
	m := map[string]any{"a": 1}
	s := []int{1, 2}
	f := func() {}

	assert.True(t, identical(nil, nil))
	assert.True(t, identical("a", "a"))
	assert.True(t, identical(m, m))
	assert.True(t, identical(s, s))
	assert.True(t, identical(f, f))

	assert.False(t, identical(nil, "a"))
	assert.False(t, identical(1, int64(1)))
	assert.False(t, identical(m, map[string]any{"a": 1}))
	assert.False(t, identical(s, s[:1]))
	assert.False(t, identical(s, []int{1, 2}))
}
