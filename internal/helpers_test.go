package internal

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	log []string
}

func (r *recorder) add(format string, args ...any) {
	r.log = append(r.log, fmt.Sprintf(format, args...))
}

// testKind records every call it gets. update and receive hooks run after
// the call is recorded.
type testKind struct {
	r    *recorder
	name string
	node *Node

	update  func(n *Node, tx ReconcileTransaction) error
	receive func(next any, tx ReconcileTransaction) error
}

func (k *testKind) BindNode(n *Node) { k.node = n }

func (k *testKind) Mount(ReconcileTransaction, any, any) (any, error) {
	k.r.add("mount %s", k.name)
	return k.name, nil
}

func (k *testKind) Receive(next any, tx ReconcileTransaction, _ any) error {
	k.r.add("receive %s", k.name)
	if k.receive != nil {
		return k.receive(next, tx)
	}
	return nil
}

func (k *testKind) Unmount(bool) error {
	k.r.add("unmount %s", k.name)
	return nil
}

func (k *testKind) PerformUpdateIfNecessary(tx ReconcileTransaction) error {
	k.r.add("update %s", k.name)
	if k.update != nil {
		return k.update(k.node, tx)
	}
	return nil
}

func (k *testKind) PublicInstance() any { return k.name }

func (k *testKind) HostNode() any { return k.name }

// kindOf is an element type building the given kind.
type kindOf struct {
	k *testKind
}

func (t kindOf) NewComponent(*Element) Component { return t.k }

type testHost struct {
	r *recorder
}

func (h testHost) CreateHostComponent(el *Element) Component {
	return &testKind{r: h.r, name: el.Type.(string)}
}

func (h testHost) CreateTextComponent(text string) Component {
	return &testKind{r: h.r, name: "#" + text}
}

func (h testHost) CreateEmptyComponent() Component {
	return &testKind{r: h.r, name: "#empty"}
}

type harness struct {
	*recorder
	s   *Scheduler
	txs *HostTransactions
}

// newHarness returns a scheduler whose reconcile transactions record
// "pass" when they open.
func newHarness(opts ...Option) *harness {
	h := &harness{recorder: &recorder{}}

	h.txs = NewHostTransactions(0, Wrapper{
		Initialize: func() (any, error) {
			h.add("pass")
			return nil, nil
		},
	})

	h.s = NewScheduler(append([]Option{
		WithReconcileTransactions(h.txs),
		WithHost(testHost{r: h.recorder}),
	}, opts...)...)

	return h
}

func (h *harness) kind(name string) *testKind {
	return &testKind{r: h.recorder, name: name}
}

// mount instantiates and mounts a node for k, then clears the log.
func (h *harness) mount(t *testing.T, k *testKind, ref Ref, owner *Node) *Node {
	t.Helper()

	n := h.s.Instantiate(&Element{Type: kindOf{k}, Ref: ref, Owner: owner})

	txs := h.s.Transactions()
	tx := txs.Acquire()
	defer txs.Release(tx)

	err := tx.Perform(func() error {
		_, err := h.s.Reconciler().Mount(n, tx, nil, nil)
		return err
	})
	require.NoError(t, err)

	h.log = nil
	return n
}

func requirePanicsIs(t *testing.T, target error, fn func()) {
	t.Helper()

	defer func() {
		r := recover()
		require.NotNil(t, r, "expected a panic")

		err, ok := r.(error)
		require.True(t, ok, "expected an error, got %v", r)
		require.ErrorIs(t, err, target)
	}()

	fn()
}

// newTestLogger writes JSON lines to buf, without timestamps.
func newTestLogger(buf *bytes.Buffer) *logiface.Logger[logiface.Event] {
	return stumpy.L.New(
		stumpy.L.WithStumpy(stumpy.WithWriter(buf), stumpy.WithTimeField(``)),
		stumpy.L.WithLevel(logiface.LevelDebug),
	).Logger()
}
