// Package recon batches node updates and flushes them through a reconcile
// transaction, parents before children, attaching refs once the host is done
// mutating.
package recon

import (
	"time"

	"github.com/AnatoleLucet/recon/internal"
	"github.com/joeycumines/logiface"
)

type (
	Scheduler   = internal.Scheduler
	UpdateQueue = internal.UpdateQueue
	Reconciler  = internal.Reconciler
	Option      = internal.Option

	Node         = internal.Node
	Component    = internal.Component
	NodeBinder   = internal.NodeBinder
	Element      = internal.Element
	InternalType = internal.InternalType

	Ref         = internal.Ref
	NamedRef    = internal.NamedRef
	CallbackRef = internal.CallbackRef

	HostFactory      = internal.HostFactory
	CompositeFactory = internal.CompositeFactory

	BatchingStrategy      = internal.BatchingStrategy
	ReconcileTransaction  = internal.ReconcileTransaction
	ReconcileTransactions = internal.ReconcileTransactions
	HostTransaction       = internal.HostTransaction
	HostTransactions      = internal.HostTransactions

	Transaction   = internal.Transaction
	Wrapper       = internal.Wrapper
	Callback      = internal.Callback
	CallbackQueue = internal.CallbackQueue
)

// DefaultPoolSize is the number of retired transactions and queues kept for
// reuse.
const DefaultPoolSize = internal.DefaultPoolSize

var (
	ErrNotInjected          = internal.ErrNotInjected
	ErrCallbackMismatch     = internal.ErrCallbackMismatch
	ErrAsapOutsideBatch     = internal.ErrAsapOutsideBatch
	ErrDirtyLengthMismatch  = internal.ErrDirtyLengthMismatch
	ErrAlreadyInTransaction = internal.ErrAlreadyInTransaction
	ErrInvalidNode          = internal.ErrInvalidNode
	ErrInvalidElementType   = internal.ErrInvalidElementType
	ErrNoRefOwner           = internal.ErrNoRefOwner
	ErrForeignRelease       = internal.ErrForeignRelease
)

// NewScheduler creates a scheduler. Without WithBatchingStrategy it batches
// with the default strategy, flushing when the outermost scope closes.
// Reconcile transactions and a host must be provided before anything is
// scheduled or instantiated.
func NewScheduler(opts ...Option) *Scheduler {
	return internal.NewScheduler(opts...)
}

// Default returns the scheduler of the calling goroutine.
func Default() *Scheduler {
	return internal.Default()
}

// Forget drops the default scheduler of the calling goroutine. Goroutines
// done with Default should call it before exiting.
func Forget() {
	internal.Forget()
}

// BatchedUpdates runs fn in a batching scope of the default scheduler.
func BatchedUpdates(fn func() error) error {
	return internal.Default().BatchedUpdates(fn)
}

func WithLogger(logger *logiface.Logger[logiface.Event]) Option {
	return internal.WithLogger(logger)
}

func WithTiming(enabled bool) Option {
	return internal.WithTiming(enabled)
}

func WithDiagnosticRates(rates map[time.Duration]int) Option {
	return internal.WithDiagnosticRates(rates)
}

func WithPoolSize(size int) Option {
	return internal.WithPoolSize(size)
}

func WithBatchingStrategy(strategy BatchingStrategy) Option {
	return internal.WithBatchingStrategy(strategy)
}

func WithReconcileTransactions(txs ReconcileTransactions) Option {
	return internal.WithReconcileTransactions(txs)
}

func WithHost(host HostFactory) Option {
	return internal.WithHost(host)
}

func WithCompositeFactory(composite CompositeFactory) Option {
	return internal.WithCompositeFactory(composite)
}

// RefFunc builds a callback ref. It is called with the public instance on
// attach and with nil on detach.
func RefFunc(fn func(instance any)) *CallbackRef {
	return internal.RefFunc(fn)
}

// NewHostTransactions returns a pool of reconcile transactions running the
// given wrappers around every flush pass.
func NewHostTransactions(size int, wrappers ...Wrapper) *HostTransactions {
	return internal.NewHostTransactions(size, wrappers...)
}

func NewTransaction(wrappers ...Wrapper) *Transaction {
	return internal.NewTransaction(wrappers...)
}

func NewCallbackQueue(arg any) *CallbackQueue {
	return internal.NewCallbackQueue(arg)
}
