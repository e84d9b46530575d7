package indexer

import "sync/atomic"

// IndexLock is a non-blocking lock guarding a single indexing run.
// A second caller gets false from TryAcquire instead of queueing.
type IndexLock struct {
	state atomic.Int32 // 0 = free, 1 = held
}

// TryAcquire attempts to take the lock without blocking
func (l *IndexLock) TryAcquire() bool {
	return l.state.CompareAndSwap(0, 1)
}

// Release frees the lock.
// Must only be called by the goroutine that acquired it.
func (l *IndexLock) Release() {
	l.state.Store(0)
}

// Held reports whether a run currently owns the lock
func (l *IndexLock) Held() bool {
	return l.state.Load() == 1
}
