package internal

// Tracker keeps track of the node currently being reconciled.
type Tracker struct {
	current *Node
}

func NewTracker() *Tracker {
	return &Tracker{}
}

func (t *Tracker) RunWithNode(n *Node, fn func() error) error {
	prev := t.current
	t.current = n
	defer func() { t.current = prev }()

	return fn()
}

// Current returns the innermost node being reconciled, if any.
func (t *Tracker) Current() *Node {
	return t.current
}
