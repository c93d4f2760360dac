package ksync

import (
	"sync"

	"github.com/gammazero/deque"

	"kcore/pkg/process"
)

// Condvar is a condition variable. Wait gives up the caller's lock and does
// not take it back on wakeup; callers that need it reacquire explicitly.
type Condvar struct {
	d Dispatcher

	mu      sync.Mutex
	waiters deque.Deque[*process.Task]
}

// NewCondvar creates a condition variable with no waiters.
func NewCondvar(d Dispatcher) *Condvar {
	return &Condvar{d: d}
}

// Wait queues the caller, releases lock and blocks until Signal.
func (c *Condvar) Wait(lock process.Lock) {
	t := c.d.Current()

	c.mu.Lock()
	c.waiters.PushBack(t)
	c.mu.Unlock()

	lock.Unlock()
	c.d.Block()
}

// Signal wakes the oldest waiter. It does nothing when nobody waits.
func (c *Condvar) Signal() {
	c.mu.Lock()
	if c.waiters.Len() == 0 {
		c.mu.Unlock()
		return
	}
	next := c.waiters.PopFront()
	c.mu.Unlock()

	c.d.Wake(next)
}

// Busy reports whether tasks are waiting.
func (c *Condvar) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.waiters.Len() > 0
}
