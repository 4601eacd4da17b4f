package memhost

import "github.com/AnatoleLucet/recon"

// Container holds a top-level tree.
type Container struct {
	h    *Host
	root *recon.Node
	ctx  any
}

// NewContainer returns an empty container. ctx is the context every node of
// the tree gets reconciled with.
func (h *Host) NewContainer(ctx any) *Container {
	return &Container{h: h, ctx: ctx}
}

// Render mounts desc, or updates the current tree when desc describes the
// same kind of root node.
//
// Inside a batching scope, an update is deferred until the scope closes.
func (c *Container) Render(desc any) (*recon.Node, error) {
	s := c.h.s

	if c.root != nil && sameKind(c.root.Element(), desc) {
		return c.root, s.Updates().EnqueueElement(c.root, desc, c.ctx)
	}

	err := s.BatchedUpdates(func() error {
		if c.root != nil {
			old := c.root
			c.root = nil
			if err := s.Reconciler().Unmount(old, false); err != nil {
				return err
			}
		}

		n := s.Instantiate(desc)

		txs := s.Transactions()
		tx := txs.Acquire()
		defer txs.Release(tx)

		err := tx.Perform(func() error {
			_, err := s.Reconciler().Mount(n, tx, c, c.ctx)
			return err
		})
		if err != nil {
			return err
		}

		c.root = n
		return nil
	})

	return c.root, err
}

// Unmount tears the tree down.
func (c *Container) Unmount() error {
	if c.root == nil {
		return nil
	}

	root := c.root
	c.root = nil
	return c.h.s.Reconciler().Unmount(root, false)
}

func (c *Container) Root() *recon.Node { return c.root }

// String renders the current tree as markup.
func (c *Container) String() string {
	return c.h.markup(c.root)
}
