// Package memhost is an in-memory host for recon. Host nodes are plain
// structs rendering to markup strings, which makes it a convenient target
// for tests and for the recon CLI.
package memhost

import (
	"fmt"
	"slices"

	"github.com/AnatoleLucet/recon"
)

// Host builds the node kinds of the in-memory environment and records every
// structural operation it performs.
type Host struct {
	s   *recon.Scheduler
	txs *recon.HostTransactions

	ops    []string
	passes int
}

// New creates a host and injects it into s, along with its reconcile
// transactions. The wrappers run around every reconcile transaction.
func New(s *recon.Scheduler, wrappers ...recon.Wrapper) *Host {
	h := &Host{s: s}

	counting := recon.Wrapper{
		Initialize: func() (any, error) {
			h.passes++
			return nil, nil
		},
	}

	h.txs = recon.NewHostTransactions(recon.DefaultPoolSize, append([]recon.Wrapper{counting}, wrappers...)...)

	s.InjectHost(h)
	s.InjectComposite(h.Composite)
	s.InjectReconcileTransactions(h.txs)

	return h
}

func (h *Host) Scheduler() *recon.Scheduler { return h.s }

func (h *Host) Transactions() *recon.HostTransactions { return h.txs }

// Ops returns the operations recorded so far.
func (h *Host) Ops() []string {
	return slices.Clone(h.ops)
}

func (h *Host) ResetOps() {
	h.ops = nil
}

// Passes returns the number of reconcile transactions performed.
func (h *Host) Passes() int {
	return h.passes
}

func (h *Host) record(format string, args ...any) {
	h.ops = append(h.ops, fmt.Sprintf(format, args...))
}

func (h *Host) CreateHostComponent(el *recon.Element) recon.Component {
	return &HostElement{h: h, tag: el.Type.(string)}
}

func (h *Host) CreateTextComponent(text string) recon.Component {
	return &HostText{h: h, text: text}
}

func (h *Host) CreateEmptyComponent() recon.Component {
	return &HostEmpty{}
}

// Composite wraps elements whose type is a *Class. Any other type is
// rejected.
func (h *Host) Composite(el *recon.Element) recon.Component {
	class, ok := el.Type.(*Class)
	if !ok || class == nil {
		return nil
	}

	return &composite{inst: &Instance{h: h, class: class}}
}

// reconcileChild brings prev up to date with desc, or replaces it when desc
// describes another kind of node.
func (h *Host) reconcileChild(prev *recon.Node, desc any, tx recon.ReconcileTransaction, hostParent any, ctx any) (*recon.Node, error) {
	r := h.s.Reconciler()

	if prev != nil && sameKind(prev.Element(), desc) {
		return prev, r.Receive(prev, desc, tx, ctx)
	}

	if prev != nil {
		if err := r.Unmount(prev, false); err != nil {
			return nil, err
		}
	}

	n := h.s.Instantiate(desc)
	if _, err := r.Mount(n, tx, hostParent, ctx); err != nil {
		return nil, err
	}

	return n, nil
}

// reconcileChildren matches children by position.
func (h *Host) reconcileChildren(prev []*recon.Node, next []any, tx recon.ReconcileTransaction, hostParent any, ctx any) ([]*recon.Node, error) {
	children := make([]*recon.Node, 0, len(next))

	for i, desc := range next {
		var old *recon.Node
		if i < len(prev) {
			old = prev[i]
		}

		n, err := h.reconcileChild(old, desc, tx, hostParent, ctx)
		if n != nil {
			children = append(children, n)
		}
		if err != nil {
			// children not visited yet stay mounted, keep them for teardown
			if i+1 < len(prev) {
				children = append(children, prev[i+1:]...)
			}
			return children, err
		}
	}

	extra := prev[min(len(prev), len(next)):]
	for i, old := range extra {
		if err := h.s.Reconciler().Unmount(old, false); err != nil {
			return append(children, extra[i+1:]...), err
		}
	}

	return children, nil
}

func (h *Host) markup(n *recon.Node) string {
	if n == nil {
		return ""
	}

	if s, ok := h.s.Reconciler().HostNode(n).(fmt.Stringer); ok {
		return s.String()
	}

	return ""
}

// El builds an element. Children are stored under the "children" prop.
func El(typ any, props map[string]any, children ...any) *recon.Element {
	if len(children) > 0 {
		p := make(map[string]any, len(props)+1)
		for k, v := range props {
			p[k] = v
		}
		p["children"] = children
		props = p
	}

	return &recon.Element{Type: typ, Props: props}
}

func childrenOf(el *recon.Element) []any {
	if el == nil {
		return nil
	}

	switch c := el.Props["children"].(type) {
	case nil:
		return nil
	case []any:
		return c
	default:
		return []any{c}
	}
}

func sameKind(prev, next any) bool {
	switch {
	case isEmpty(prev) || isEmpty(next):
		return isEmpty(prev) && isEmpty(next)
	case isText(prev) || isText(next):
		return isText(prev) && isText(next)
	}

	pe, pok := prev.(*recon.Element)
	ne, nok := next.(*recon.Element)

	return pok && nok && pe.Type == ne.Type && pe.Key == ne.Key
}

func isEmpty(desc any) bool {
	switch d := desc.(type) {
	case nil:
		return true
	case bool:
		return !d
	case *recon.Element:
		return d == nil
	}

	return false
}

func isText(desc any) bool {
	switch desc.(type) {
	case string, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return true
	}

	return false
}
