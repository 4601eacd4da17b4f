package internal

import (
	"time"

	catrate "github.com/joeycumines/go-catrate"
	"github.com/joeycumines/logiface"
)

// Advisory diagnostic categories. They never change control flow.
const (
	CategoryStaleGeneration = "stale_generation"
	CategoryNestedUpdate    = "nested_update"
	CategoryUpdateUnmounted = "update_unmounted"
)

// DefaultDiagnosticRates caps every diagnostic category independently.
var DefaultDiagnosticRates = map[time.Duration]int{
	time.Second: 20,
	time.Minute: 200,
}

type diagnostics struct {
	logger  *logiface.Logger[logiface.Event]
	limiter *catrate.Limiter

	// log the duration of every flushed node
	timing bool
}

// warn returns a builder for a warning in the given category, or nil if the
// logger is disabled or the category is rate limited.
func (d *diagnostics) warn(category string) *logiface.Builder[logiface.Event] {
	if d == nil || d.logger == nil {
		return nil
	}

	next, ok := d.limiter.Allow(category)
	if !ok {
		return nil
	}

	b := d.logger.Warning().Str("category", category)
	if !next.IsZero() {
		b = b.Time("limited_until", next)
	}

	return b
}

// timed runs fn, logging its duration when timing is enabled.
func (d *diagnostics) timed(n *Node, generation uint64, fn func() error) error {
	if d == nil || !d.timing {
		return fn()
	}

	start := time.Now()
	err := fn()

	b := d.logger.Debug().
		Uint64("mount_order", n.mountOrder).
		Uint64("generation", generation).
		Dur("took", time.Since(start))
	if err != nil {
		b = b.Err(err)
	}
	b.Log("flushed node")

	return err
}
