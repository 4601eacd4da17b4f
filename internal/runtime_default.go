//go:build !wasm

package internal

import (
	"sync"

	"github.com/petermattis/goid"
)

var schedulers sync.Map

// Default returns the scheduler of the calling goroutine, creating it on
// first use. Schedulers are single threaded, so each goroutine gets its own.
func Default() *Scheduler {
	gid := getGID()

	if s, ok := schedulers.Load(gid); ok {
		return s.(*Scheduler)
	}

	s := NewScheduler()
	schedulers.Store(gid, s)
	return s
}

// Forget drops the calling goroutine's default scheduler.
func Forget() {
	schedulers.Delete(getGID())
}

func getGID() int64 {
	return goid.Get()
}
