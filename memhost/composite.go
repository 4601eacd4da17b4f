package memhost

import (
	"maps"

	"github.com/AnatoleLucet/recon"
)

// Class describes a stateful composite. Elements whose type is a *Class are
// wrapped by the host's composite factory.
type Class struct {
	Name string

	// InitialState builds the state from the initial props.
	InitialState func(props map[string]any) map[string]any

	// Render returns the single child description.
	Render func(self *Instance) any

	// DidMount and DidUpdate run from the post-update queue, after the
	// reconcile pass is done mutating the host.
	DidMount  func(self *Instance)
	DidUpdate func(self *Instance)

	WillUnmount func(self *Instance)
}

// Instance is the public instance of a composite, the one refs and update
// callbacks receive.
type Instance struct {
	h     *Host
	class *Class
	node  *recon.Node

	Props map[string]any
	State map[string]any

	child      *recon.Node
	hostParent any
	renders    int
}

func (i *Instance) Name() string { return i.class.Name }

func (i *Instance) Node() *recon.Node { return i.node }

// Renders returns how many times the instance rendered.
func (i *Instance) Renders() int { return i.renders }

// SetState merges partial into the state at the next flush. partial is
// either a map[string]any or a func(map[string]any) map[string]any receiving
// the state merged so far. Callbacks run once the update is flushed.
func (i *Instance) SetState(partial any, callbacks ...func(*Instance)) error {
	return i.h.s.BatchedUpdates(func() error {
		if err := i.h.s.Updates().EnqueueState(i.node, partial); err != nil {
			return err
		}
		return i.enqueueCallbacks(callbacks)
	})
}

// ReplaceState replaces the state at the next flush.
func (i *Instance) ReplaceState(state map[string]any, callbacks ...func(*Instance)) error {
	return i.h.s.BatchedUpdates(func() error {
		if err := i.h.s.Updates().EnqueueReplaceState(i.node, state); err != nil {
			return err
		}
		return i.enqueueCallbacks(callbacks)
	})
}

// ForceUpdate re-renders the instance at the next flush.
func (i *Instance) ForceUpdate(callbacks ...func(*Instance)) error {
	return i.h.s.BatchedUpdates(func() error {
		if err := i.h.s.Updates().EnqueueForceUpdate(i.node); err != nil {
			return err
		}
		return i.enqueueCallbacks(callbacks)
	})
}

func (i *Instance) enqueueCallbacks(callbacks []func(*Instance)) error {
	for _, cb := range callbacks {
		err := i.h.s.Updates().EnqueueCallback(i.node, func(ctx any, _ any) {
			inst, _ := ctx.(*Instance)
			cb(inst)
		})
		if err != nil {
			return err
		}
	}

	return nil
}

// IsMounted reports whether the instance can still be updated.
func (i *Instance) IsMounted() bool {
	return i.h.s.Updates().IsMounted(i.node)
}

// Ref returns the public instance attached under name by an element this
// instance rendered.
func (i *Instance) Ref(name string) any {
	return i.node.Ref(name)
}

func (i *Instance) Refs() map[string]any {
	return i.node.Refs()
}

// Own sets the ref of el, with this instance as its owner, and returns el.
func (i *Instance) Own(el *recon.Element, ref recon.Ref) *recon.Element {
	el.Ref = ref
	el.Owner = i.node
	return el
}

func (i *Instance) render() any {
	i.renders++
	i.h.record("render %s", i.class.Name)

	if i.class.Render == nil {
		return nil
	}
	return i.class.Render(i)
}

func (i *Instance) mergeState(states []any, replace bool) {
	next := maps.Clone(i.State)
	if replace || next == nil {
		next = make(map[string]any)
	}

	for _, s := range states {
		switch s := s.(type) {
		case map[string]any:
			maps.Copy(next, s)
		case func(map[string]any) map[string]any:
			maps.Copy(next, s(next))
		}
	}

	i.State = next
}

// composite is the node kind wrapping an Instance.
type composite struct {
	inst *Instance
}

func (c *composite) BindNode(n *recon.Node) { c.inst.node = n }

func (c *composite) Mount(tx recon.ReconcileTransaction, hostParent any, ctx any) (any, error) {
	inst := c.inst
	el := inst.node.Element().(*recon.Element)

	inst.Props = el.Props
	inst.State = make(map[string]any)
	if inst.class.InitialState != nil {
		inst.State = inst.class.InitialState(el.Props)
	}
	inst.hostParent = hostParent

	child := inst.h.s.Instantiate(inst.render())
	markup, err := inst.h.s.Reconciler().Mount(child, tx, hostParent, ctx)
	if err != nil {
		return nil, err
	}
	inst.child = child

	if inst.class.DidMount != nil {
		tx.PostUpdateQueue().Enqueue(func(ctx any, _ any) {
			inst.class.DidMount(ctx.(*Instance))
		}, inst)
	}

	return markup, nil
}

func (c *composite) Receive(next any, tx recon.ReconcileTransaction, ctx any) error {
	c.inst.Props = next.(*recon.Element).Props
	return c.update(tx, ctx)
}

func (c *composite) PerformUpdateIfNecessary(tx recon.ReconcileTransaction) error {
	n := c.inst.node

	if el, ctx, ok := n.TakePendingElement(); ok {
		if err := c.inst.h.s.Reconciler().Receive(n, el, tx, ctx); err != nil {
			return err
		}
	}

	// the element may have been identical, leaving the state untouched
	if n.HasPendingWork() {
		return c.update(tx, n.Context())
	}

	return nil
}

func (c *composite) update(tx recon.ReconcileTransaction, ctx any) error {
	inst := c.inst

	states, replace, _ := inst.node.TakePendingState()
	inst.mergeState(states, replace)

	child, err := inst.h.reconcileChild(inst.child, inst.render(), tx, inst.hostParent, ctx)
	inst.child = child
	if err != nil {
		return err
	}

	if inst.class.DidUpdate != nil {
		tx.PostUpdateQueue().Enqueue(func(ctx any, _ any) {
			inst.class.DidUpdate(ctx.(*Instance))
		}, inst)
	}

	return nil
}

func (c *composite) Unmount(safely bool) error {
	inst := c.inst

	if inst.class.WillUnmount != nil {
		inst.class.WillUnmount(inst)
	}
	inst.h.record("unmount %s", inst.class.Name)

	if inst.child == nil {
		return nil
	}

	err := inst.h.s.Reconciler().Unmount(inst.child, safely)
	inst.child = nil
	return err
}

func (c *composite) PublicInstance() any { return c.inst }

func (c *composite) HostNode() any {
	if c.inst.child == nil {
		return nil
	}
	return c.inst.h.s.Reconciler().HostNode(c.inst.child)
}
