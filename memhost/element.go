package memhost

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/AnatoleLucet/recon"
)

// HostElement is an intrinsic element, rendered as a tag with attributes and
// children.
type HostElement struct {
	h    *Host
	node *recon.Node

	tag      string
	props    map[string]any
	children []*recon.Node
}

func (e *HostElement) BindNode(n *recon.Node) { e.node = n }

func (e *HostElement) Tag() string { return e.tag }

func (e *HostElement) Prop(key string) any { return e.props[key] }

// Children returns the child nodes, in order.
func (e *HostElement) Children() []*recon.Node { return slices.Clone(e.children) }

func (e *HostElement) Mount(tx recon.ReconcileTransaction, hostParent any, ctx any) (any, error) {
	el := e.node.Element().(*recon.Element)
	e.props = el.Props
	e.h.record("mount %s", e.tag)

	children, err := e.h.reconcileChildren(nil, childrenOf(el), tx, e, ctx)
	e.children = children
	if err != nil {
		return nil, err
	}

	return e.String(), nil
}

func (e *HostElement) Receive(next any, tx recon.ReconcileTransaction, ctx any) error {
	el := next.(*recon.Element)
	e.props = el.Props
	e.h.record("receive %s", e.tag)

	children, err := e.h.reconcileChildren(e.children, childrenOf(el), tx, e, ctx)
	e.children = children
	return err
}

func (e *HostElement) Unmount(safely bool) error {
	for _, c := range e.children {
		if err := e.h.s.Reconciler().Unmount(c, safely); err != nil {
			return err
		}
	}
	e.children = nil
	e.h.record("unmount %s", e.tag)

	return nil
}

func (e *HostElement) PerformUpdateIfNecessary(tx recon.ReconcileTransaction) error {
	if el, ctx, ok := e.node.TakePendingElement(); ok {
		return e.h.s.Reconciler().Receive(e.node, el, tx, ctx)
	}

	return nil
}

func (e *HostElement) PublicInstance() any { return e }

func (e *HostElement) HostNode() any { return e }

// String renders the element as markup, attributes sorted by name.
func (e *HostElement) String() string {
	var b strings.Builder

	b.WriteString("<")
	b.WriteString(e.tag)
	for _, k := range slices.Sorted(maps.Keys(e.props)) {
		if k == "children" {
			continue
		}
		fmt.Fprintf(&b, " %s=%v", k, e.props[k])
	}
	b.WriteString(">")

	for _, c := range e.children {
		b.WriteString(e.h.markup(c))
	}

	b.WriteString("</")
	b.WriteString(e.tag)
	b.WriteString(">")

	return b.String()
}

// HostText is a text node.
type HostText struct {
	h    *Host
	text string
}

func (t *HostText) Mount(recon.ReconcileTransaction, any, any) (any, error) {
	t.h.record("mount #text %q", t.text)
	return t.text, nil
}

func (t *HostText) Receive(next any, _ recon.ReconcileTransaction, _ any) error {
	text := fmt.Sprint(next)
	if text != t.text {
		t.text = text
		t.h.record("receive #text %q", t.text)
	}

	return nil
}

func (t *HostText) Unmount(bool) error {
	t.h.record("unmount #text %q", t.text)
	return nil
}

func (t *HostText) PerformUpdateIfNecessary(recon.ReconcileTransaction) error { return nil }

func (t *HostText) PublicInstance() any { return t }

func (t *HostText) HostNode() any { return t }

func (t *HostText) String() string { return t.text }

// HostEmpty stands in for nil and false.
type HostEmpty struct{}

func (*HostEmpty) Mount(recon.ReconcileTransaction, any, any) (any, error) { return "", nil }

func (*HostEmpty) Receive(any, recon.ReconcileTransaction, any) error { return nil }

func (*HostEmpty) Unmount(bool) error { return nil }

func (*HostEmpty) PerformUpdateIfNecessary(recon.ReconcileTransaction) error { return nil }

func (*HostEmpty) PublicInstance() any { return nil }

func (e *HostEmpty) HostNode() any { return e }

func (*HostEmpty) String() string { return "" }
