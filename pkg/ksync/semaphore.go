package ksync

import (
	"sync"

	"github.com/gammazero/deque"

	"kcore/pkg/process"
)

// Semaphore is a counting semaphore. A positive count is the number of Down
// calls that succeed without blocking; a negative count is minus the number of
// queued waiters.
type Semaphore struct {
	id process.ResourceID
	d  Dispatcher

	mu      sync.Mutex
	count   int
	waiters deque.Deque[*process.Task]
}

// NewSemaphore creates a semaphore with count units, registered under id.
func NewSemaphore(id process.ResourceID, count int, d Dispatcher) *Semaphore {
	return &Semaphore{id: id, d: d, count: count}
}

// ID returns the handle the semaphore is registered under.
func (s *Semaphore) ID() process.ResourceID { return s.id }

// Down takes a unit, waiting for one when none is left.
func (s *Semaphore) Down() {
	t := s.d.Current()

	s.mu.Lock()
	s.count--
	if s.count < 0 {
		s.waiters.PushBack(t)
		s.mu.Unlock()
		s.d.Block()
		return
	}
	s.mu.Unlock()

	grant(t, s.id)
}

// Up returns a unit, handing it to the oldest waiter if there is one.
func (s *Semaphore) Up() {
	s.mu.Lock()
	s.count++
	if s.count > 0 || s.waiters.Len() == 0 {
		s.mu.Unlock()
		return
	}
	next := s.waiters.PopFront()
	s.mu.Unlock()

	grant(next, s.id)
	s.d.Wake(next)
}

// Count returns the signed count.
func (s *Semaphore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// Available returns the units that Down can take without blocking.
func (s *Semaphore) Available() int {
	return max(s.Count(), 0)
}

// Busy reports whether tasks are waiting on the semaphore.
func (s *Semaphore) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.waiters.Len() > 0
}
