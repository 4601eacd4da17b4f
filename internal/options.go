package internal

import (
	"time"

	catrate "github.com/joeycumines/go-catrate"
	"github.com/joeycumines/logiface"
)

type Option func(c *schedulerConfig)

type schedulerConfig struct {
	logger    *logiface.Logger[logiface.Event]
	rates     map[time.Duration]int
	timing    bool
	poolSize  int
	strategy  BatchingStrategy
	txs       ReconcileTransactions
	host      HostFactory
	composite CompositeFactory
}

// WithLogger sets the logger used for advisory diagnostics.
func WithLogger(logger *logiface.Logger[logiface.Event]) Option {
	return func(c *schedulerConfig) { c.logger = logger }
}

// WithTiming logs the duration of every flushed node at debug level.
func WithTiming(enabled bool) Option {
	return func(c *schedulerConfig) { c.timing = enabled }
}

// WithDiagnosticRates sets the per category rate limits of advisory
// diagnostics. A nil or empty map disables limiting.
func WithDiagnosticRates(rates map[time.Duration]int) Option {
	return func(c *schedulerConfig) { c.rates = rates }
}

// WithPoolSize sets how many retired flush transactions and callback queues
// are kept for reuse.
func WithPoolSize(size int) Option {
	return func(c *schedulerConfig) { c.poolSize = size }
}

func WithBatchingStrategy(strategy BatchingStrategy) Option {
	return func(c *schedulerConfig) { c.strategy = strategy }
}

func WithReconcileTransactions(txs ReconcileTransactions) Option {
	return func(c *schedulerConfig) { c.txs = txs }
}

func WithHost(host HostFactory) Option {
	return func(c *schedulerConfig) { c.host = host }
}

func WithCompositeFactory(composite CompositeFactory) Option {
	return func(c *schedulerConfig) { c.composite = composite }
}

func resolveConfig(opts []Option) schedulerConfig {
	c := schedulerConfig{
		rates:    DefaultDiagnosticRates,
		poolSize: DefaultPoolSize,
	}
	for _, o := range opts {
		if o != nil {
			o(&c)
		}
	}

	return c
}

func (c *schedulerConfig) diagnostics() *diagnostics {
	d := &diagnostics{
		logger: c.logger,
		timing: c.timing,
	}
	if len(c.rates) != 0 {
		d.limiter = catrate.NewLimiter(c.rates)
	}

	return d
}
