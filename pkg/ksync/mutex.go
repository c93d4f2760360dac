package ksync

import (
	"sync"

	"github.com/gammazero/deque"

	"kcore/pkg/process"
)

// BlockingLock is a lock whose waiters sleep on a FIFO list. Unlock hands
// ownership straight to the oldest waiter; the lock never appears free while
// someone is waiting.
type BlockingLock struct {
	id process.ResourceID
	d  Dispatcher

	mu      sync.Mutex
	locked  bool
	waiters deque.Deque[*process.Task]
}

// NewBlockingLock creates a free blocking lock registered under id.
func NewBlockingLock(id process.ResourceID, d Dispatcher) *BlockingLock {
	return &BlockingLock{id: id, d: d}
}

// ID returns the handle the lock is registered under.
func (l *BlockingLock) ID() process.ResourceID { return l.id }

// Lock claims the lock or waits until it is handed over.
func (l *BlockingLock) Lock() {
	t := l.d.Current()

	l.mu.Lock()
	if l.locked {
		l.waiters.PushBack(t)
		l.mu.Unlock()
		l.d.Block()
		return
	}
	l.locked = true
	l.mu.Unlock()

	grant(t, l.id)
}

// Unlock passes the lock to the oldest waiter, or frees it.
func (l *BlockingLock) Unlock() {
	l.mu.Lock()
	if l.waiters.Len() == 0 {
		l.locked = false
		l.mu.Unlock()
		return
	}
	next := l.waiters.PopFront()
	l.mu.Unlock()

	grant(next, l.id)
	l.d.Wake(next)
}

// Available returns 1 when the lock is free.
func (l *BlockingLock) Available() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.locked {
		return 0
	}
	return 1
}

// Busy reports whether the lock is held or has waiters.
func (l *BlockingLock) Busy() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.locked || l.waiters.Len() > 0
}

// Waiters returns the number of queued tasks.
func (l *BlockingLock) Waiters() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.waiters.Len()
}
