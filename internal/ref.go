package internal

func refOf(desc any) (Ref, *Node) {
	el, ok := desc.(*Element)
	if !ok || el == nil {
		return nil, nil
	}

	return el.Ref, el.Owner
}

// shouldUpdateRefs reports whether going from prev to next moves the ref.
// Callback refs do not care about the owner, named refs do.
func shouldUpdateRefs(prev, next any) bool {
	prevRef, prevOwner := refOf(prev)
	nextRef, nextOwner := refOf(next)

	if prevRef != nextRef {
		return true
	}

	_, named := nextRef.(NamedRef)
	return named && prevOwner != nextOwner
}

func attachRef(ref Ref, n *Node, owner *Node) {
	switch r := ref.(type) {
	case *CallbackRef:
		r.fn(n.PublicInstance())
	case NamedRef:
		if owner == nil {
			invariant(ErrNoRefOwner, "cannot attach ref %q", string(r))
		}
		owner.attachRef(string(r), n.PublicInstance())
	}
}

func detachRef(ref Ref, n *Node, owner *Node) {
	switch r := ref.(type) {
	case *CallbackRef:
		r.fn(nil)
	case NamedRef:
		if owner == nil {
			invariant(ErrNoRefOwner, "cannot detach ref %q", string(r))
		}
		owner.detachRef(string(r), n.PublicInstance())
	}
}

// attachRefs is queued on the post-update queue with the node as context.
// It reads the element at notify time.
func attachRefs(ctx any, _ any) {
	n := ctx.(*Node)
	if ref, owner := refOf(n.element); ref != nil {
		attachRef(ref, n, owner)
	}
}

func detachRefs(n *Node, desc any) {
	if ref, owner := refOf(desc); ref != nil {
		detachRef(ref, n, owner)
	}
}
