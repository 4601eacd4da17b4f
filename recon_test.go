package recon_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AnatoleLucet/recon"
	"github.com/AnatoleLucet/recon/memhost"
)

func TestDefault(t *testing.T) {
	t.Run("one scheduler per goroutine", func(t *testing.T) {
		defer recon.Forget()

		s := recon.Default()
		assert.Same(t, s, recon.Default())

		other := make(chan *recon.Scheduler)
		go func() {
			defer recon.Forget()
			other <- recon.Default()
		}()

		assert.NotSame(t, s, <-other)
	})

	t.Run("forget drops the scheduler", func(t *testing.T) {
		s := recon.Default()
		recon.Forget()
		defer recon.Forget()

		assert.NotSame(t, s, recon.Default())
	})

	t.Run("batches on the default scheduler", func(t *testing.T) {
		defer recon.Forget()
		log := []string{}

		h := memhost.New(recon.Default())
		c := h.NewContainer(nil)

		_, err := c.Render(memhost.El("p", nil, "0"))
		require.NoError(t, err)

		err = recon.BatchedUpdates(func() error {
			for i := range 3 {
				if _, err := c.Render(memhost.El("p", nil, fmt.Sprint(i+1))); err != nil {
					return err
				}
			}
			log = append(log, c.String())
			return nil
		})
		require.NoError(t, err)
		log = append(log, c.String())

		assert.Equal(t, []string{"<p>0</p>", "<p>3</p>"}, log)
	})
}

func TestTransaction(t *testing.T) {
	t.Run("closes every initialized wrapper", func(t *testing.T) {
		log := []string{}
		wrapper := func(name string, initErr error) recon.Wrapper {
			return recon.Wrapper{
				Initialize: func() (any, error) {
					log = append(log, "init "+name)
					return name, initErr
				},
				Close: func(data any) error {
					log = append(log, fmt.Sprintf("close %s %v", name, data))
					return nil
				},
			}
		}

		boom := errors.New("boom")
		tx := recon.NewTransaction(wrapper("w1", nil), wrapper("w2", boom))

		err := tx.Perform(func() error {
			log = append(log, "method")
			return nil
		})

		assert.ErrorIs(t, err, boom)
		assert.Equal(t, []string{"init w1", "init w2", "close w1 w1"}, log)
		assert.False(t, tx.InTransaction())
	})

	t.Run("reentrancy is fatal", func(t *testing.T) {
		tx := recon.NewTransaction()

		requirePanicsIs(t, recon.ErrAlreadyInTransaction, func() {
			_ = tx.Perform(func() error {
				return tx.Perform(func() error { return nil })
			})
		})
	})
}

func TestCallbackQueue(t *testing.T) {
	log := []string{}
	q := recon.NewCallbackQueue("arg")

	record := func(ctx, arg any) {
		log = append(log, fmt.Sprintf("%v %v", ctx, arg))
	}

	q.Enqueue(record, 1)
	mark := q.Checkpoint()
	q.Enqueue(record, 2)
	q.Enqueue(record, 3)
	q.Rollback(mark)
	q.Enqueue(record, 4)

	q.NotifyAll()

	assert.Equal(t, []string{"1 arg", "4 arg"}, log)
	assert.Equal(t, 0, q.Len())
}
