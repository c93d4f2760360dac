package ksync

import (
	"sync/atomic"

	"kcore/pkg/process"
)

// SpinLock is a lock whose waiters retry after yielding instead of queueing.
type SpinLock struct {
	id     process.ResourceID
	d      Dispatcher
	locked atomic.Bool
}

// NewSpinLock creates a free spin lock registered under id.
func NewSpinLock(id process.ResourceID, d Dispatcher) *SpinLock {
	return &SpinLock{id: id, d: d}
}

// ID returns the handle the lock is registered under.
func (l *SpinLock) ID() process.ResourceID { return l.id }

// Lock claims the lock, yielding between failed attempts.
func (l *SpinLock) Lock() {
	for !l.locked.CompareAndSwap(false, true) {
		l.d.Yield()
	}
	grant(l.d.Current(), l.id)
}

// Unlock frees the lock.
func (l *SpinLock) Unlock() {
	l.locked.Store(false)
}

// Available returns 1 when the lock is free.
func (l *SpinLock) Available() int {
	if l.locked.Load() {
		return 0
	}
	return 1
}

// Busy reports whether the lock is held.
func (l *SpinLock) Busy() bool {
	return l.locked.Load()
}
