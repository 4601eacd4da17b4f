package internal

import "slices"

// DefaultPoolSize is the number of retired instances a Pool keeps around.
const DefaultPoolSize = 10

// Pool is a typed free-list of reusable bookkeeping objects.
//
// Get pops a retired instance (or constructs one), Put resets it and pushes it
// back. Instances beyond the pool size are dropped for the GC to collect.
type Pool[T comparable] struct {
	free  []T
	size  int
	alloc func() T
	reset func(T)

	// number of instances handed out and not yet returned
	outstanding int
}

func NewPool[T comparable](size int, alloc func() T, reset func(T)) *Pool[T] {
	if size <= 0 {
		size = DefaultPoolSize
	}

	return &Pool[T]{
		free:  make([]T, 0, size),
		size:  size,
		alloc: alloc,
		reset: reset,
	}
}

func (p *Pool[T]) Get() T {
	p.outstanding++

	if n := len(p.free); n > 0 {
		x := p.free[n-1]
		var zero T
		p.free[n-1] = zero
		p.free = p.free[:n-1]
		return x
	}

	return p.alloc()
}

func (p *Pool[T]) Put(x T) {
	if p.outstanding <= 0 || slices.Contains(p.free, x) {
		invariant(ErrForeignRelease, "instance released twice")
	}
	p.outstanding--

	if p.reset != nil {
		p.reset(x)
	}

	if len(p.free) < p.size {
		p.free = append(p.free, x)
	}
}

// Use acquires an instance, runs fn with it, and releases it even if fn
// fails or panics.
func (p *Pool[T]) Use(fn func(T) error) error {
	x := p.Get()
	defer p.Put(x)

	return fn(x)
}

// Free returns the number of retired instances ready for reuse.
func (p *Pool[T]) Free() int { return len(p.free) }

// Outstanding returns the number of instances acquired and not yet released.
func (p *Pool[T]) Outstanding() int { return p.outstanding }
