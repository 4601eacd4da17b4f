package internal

// Nodes acting as element owners keep a table of named refs, mapping the
// ref name to the public instance of the node it points at.

func (n *Node) attachRef(name string, instance any) {
	if n.refs == nil {
		n.refs = make(map[string]any)
	}

	n.refs[name] = instance
}

// detachRef only removes the entry if it still points at instance, another
// node may have taken the name over in the meantime.
func (n *Node) detachRef(name string, instance any) {
	if current, ok := n.refs[name]; ok && identical(current, instance) {
		delete(n.refs, name)
	}
}

// Refs returns a copy of the named ref table.
func (n *Node) Refs() map[string]any {
	refs := make(map[string]any, len(n.refs))
	for name, instance := range n.refs {
		refs[name] = instance
	}

	return refs
}
