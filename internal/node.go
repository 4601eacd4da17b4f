package internal

// Component is the contract every node kind (host, composite, text, empty)
// implements. The Reconciler is the only caller.
type Component interface {
	// Mount builds the initial host representation and returns its markup.
	Mount(tx ReconcileTransaction, hostParent any, ctx any) (any, error)

	// Receive brings the node up to date with a new description.
	Receive(next any, tx ReconcileTransaction, ctx any) error

	Unmount(safely bool) error

	// PerformUpdateIfNecessary flushes whatever pending work the kind
	// accumulated since it was scheduled.
	PerformUpdateIfNecessary(tx ReconcileTransaction) error

	// PublicInstance is what refs and callbacks get to see.
	PublicInstance() any

	// HostNode is the host-facing handle.
	HostNode() any
}

// NodeBinder is implemented by kinds that want to know their own node
// handle, typically to schedule themselves.
type NodeBinder interface {
	BindNode(n *Node)
}

type nodeState uint8

const (
	nodeCreated nodeState = iota
	nodeMounted
	nodeUnmounted
)

// Node is the handle of one reconciled entity.
type Node struct {
	kind Component

	// assigned at creation, ancestors always get a lower value than their descendants
	mountOrder uint64

	// the flush generation this node is scheduled for, 0 when not scheduled
	updateBatchNumber uint64

	state nodeState

	element any
	context any

	pendingCallbacks []Callback

	// pending work recorded through the UpdateQueue
	pendingStates     []any
	pendingReplace    bool
	pendingForce      bool
	pendingElement    any
	pendingContext    any
	hasPendingElement bool

	// named refs attached to this node while it acts as an owner
	refs map[string]any
}

func newNode(kind Component, element any, mountOrder uint64) *Node {
	n := &Node{
		kind:       kind,
		element:    element,
		mountOrder: mountOrder,
	}

	if b, ok := kind.(NodeBinder); ok {
		b.BindNode(n)
	}

	return n
}

func (n *Node) Kind() Component { return n.kind }

func (n *Node) MountOrder() uint64 { return n.mountOrder }

// Element returns the description currently applied to the node.
func (n *Node) Element() any { return n.element }

// Context returns the external context the node was last reconciled with.
func (n *Node) Context() any { return n.context }

func (n *Node) IsMounted() bool { return n.state == nodeMounted }

func (n *Node) IsUnmounted() bool { return n.state == nodeUnmounted }

// ScheduledFor returns the flush generation the node is waiting for, or 0.
func (n *Node) ScheduledFor() uint64 { return n.updateBatchNumber }

func (n *Node) PublicInstance() any { return n.kind.PublicInstance() }

// TakePendingState returns and clears the state updates queued since the last
// update. replace reports whether the first state replaces the current one.
func (n *Node) TakePendingState() (states []any, replace, force bool) {
	states, replace, force = n.pendingStates, n.pendingReplace, n.pendingForce
	n.pendingStates, n.pendingReplace, n.pendingForce = nil, false, false
	return
}

// TakePendingElement returns and clears the description queued with
// UpdateQueue.EnqueueElement.
func (n *Node) TakePendingElement() (element any, ctx any, ok bool) {
	element, ctx, ok = n.pendingElement, n.pendingContext, n.hasPendingElement
	n.pendingElement, n.pendingContext, n.hasPendingElement = nil, nil, false
	return
}

// HasPendingWork reports whether an update would do anything.
func (n *Node) HasPendingWork() bool {
	return n.hasPendingElement || n.pendingForce || len(n.pendingStates) > 0
}

// Ref returns the public instance attached under name, with n as owner.
func (n *Node) Ref(name string) any {
	return n.refs[name]
}

func (n *Node) clearPending() {
	n.pendingCallbacks = nil
	n.pendingStates, n.pendingReplace, n.pendingForce = nil, false, false
	n.pendingElement, n.pendingContext, n.hasPendingElement = nil, nil, false
	n.updateBatchNumber = 0
}

// Element is the immutable description of a node to be built.
//
// Type is either a host tag (string), an InternalType building its own
// Component, or anything else, in which case the composite factory wraps it.
type Element struct {
	Type  any
	Key   string
	Ref   Ref
	Props map[string]any

	// the composite node that created this element, used by named refs
	Owner *Node
}

// InternalType is an element type providing its own Component.
type InternalType interface {
	NewComponent(el *Element) Component
}

// Ref describes where a node's public instance gets attached.
// It is either a NamedRef or a *CallbackRef.
type Ref interface {
	isRef()
}

// NamedRef attaches the instance to the element owner's ref table.
type NamedRef string

func (NamedRef) isRef() {}

// CallbackRef is called with the public instance on attach, and nil on detach.
// Compared by identity.
type CallbackRef struct {
	fn func(instance any)
}

func RefFunc(fn func(instance any)) *CallbackRef {
	return &CallbackRef{fn: fn}
}

func (*CallbackRef) isRef() {}
