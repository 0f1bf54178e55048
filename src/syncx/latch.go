// Package syncx provides small synchronization primitives
package syncx

import "sync/atomic"

// Latch is a single-slot non-blocking lock. TryAcquire fails closed: a
// caller that loses the race is expected to drop its work, not wait.
type Latch struct {
	held atomic.Bool
}

// TryAcquire takes the latch if it is free.
func (l *Latch) TryAcquire() bool {
	return l.held.CompareAndSwap(false, true)
}

// Release frees the latch. It reports false when the latch was not held,
// which callers treat as a double release.
func (l *Latch) Release() bool {
	return l.held.CompareAndSwap(true, false)
}

// Held reports whether the latch is currently taken.
func (l *Latch) Held() bool {
	return l.held.Load()
}
