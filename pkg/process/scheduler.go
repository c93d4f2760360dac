package process

import (
	"sync"

	"github.com/gammazero/deque"
)

// Scheduler implements stride scheduling over a single ready queue.
type Scheduler struct {
	// mu protects the scheduler state.
	mu sync.Mutex
	// bigStride is divided by a task's priority to get its pass increment.
	bigStride uint64
	// queue holds tasks in insertion order.
	queue deque.Deque[*Task]
	// dispatched counts successful fetches.
	dispatched int64
}

// NewScheduler creates a stride scheduler.
func NewScheduler(bigStride uint64) *Scheduler {
	return &Scheduler{bigStride: bigStride}
}

// Add appends a task to the ready queue.
func (s *Scheduler) Add(t *Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue.PushBack(t)
}

// Fetch removes and returns the Ready task with the smallest stride, first
// one wins on ties, and advances its stride by bigStride/priority. Queued
// tasks that are not Ready are skipped and stay queued. It returns nil when no
// queued task is Ready.
func (s *Scheduler) Fetch() *Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	target := -1
	var best uint64
	for i := 0; i < s.queue.Len(); i++ {
		t := s.queue.At(i)
		t.mu.Lock()
		if t.status == StatusReady && (target < 0 || t.stride < best) {
			target, best = i, t.stride
		}
		t.mu.Unlock()
	}
	if target < 0 {
		return nil
	}

	t := s.queue.Remove(target)
	t.mu.Lock()
	t.stride += s.bigStride / t.priority
	t.mu.Unlock()
	s.dispatched++
	return t
}

// Remove drops a task from the queue and reports whether it was queued.
func (s *Scheduler) Remove(t *Task) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := 0; i < s.queue.Len(); i++ {
		if s.queue.At(i) == t {
			s.queue.Remove(i)
			return true
		}
	}
	return false
}

// Len returns the number of queued tasks.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Len()
}

// Stats returns scheduler statistics.
func (s *Scheduler) Stats() SchedulerStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SchedulerStats{
		Queued:     s.queue.Len(),
		Dispatched: s.dispatched,
		BigStride:  s.bigStride,
	}
}

// SchedulerStats contains scheduler statistics.
type SchedulerStats struct {
	Queued     int
	Dispatched int64
	BigStride  uint64
}
