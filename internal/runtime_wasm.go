//go:build wasm

package internal

import "sync"

var once sync.Once
var globalScheduler *Scheduler

// Default returns the process scheduler, wasm programs only have one thread.
func Default() *Scheduler {
	once.Do(func() {
		globalScheduler = NewScheduler()
	})

	return globalScheduler
}

// Forget is a no-op on wasm.
func Forget() {}
