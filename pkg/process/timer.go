package process

import (
	"container/heap"
	"context"
	"sync"
	"time"
)

// Clock supplies the millisecond time base used by sleep.
type Clock interface {
	// NowMs returns the current time in milliseconds.
	NowMs() uint64
	// SleepUntil waits until NowMs reaches ms or ctx is done.
	SleepUntil(ctx context.Context, ms uint64) error
}

// SystemClock measures wall time from its creation.
type SystemClock struct {
	start time.Time
}

// NewSystemClock creates a clock starting at zero now.
func NewSystemClock() *SystemClock {
	return &SystemClock{start: time.Now()}
}

// NowMs implements Clock.
func (c *SystemClock) NowMs() uint64 {
	return uint64(time.Since(c.start).Milliseconds())
}

// SleepUntil implements Clock.
func (c *SystemClock) SleepUntil(ctx context.Context, ms uint64) error {
	now := c.NowMs()
	if ms <= now {
		return nil
	}
	timer := time.NewTimer(time.Duration(ms-now) * time.Millisecond)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ManualClock is a virtual clock. SleepUntil jumps straight to the deadline.
type ManualClock struct {
	mu  sync.Mutex
	now uint64
}

// NewManualClock creates a virtual clock at zero.
func NewManualClock() *ManualClock {
	return &ManualClock{}
}

// NowMs implements Clock.
func (c *ManualClock) NowMs() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by ms.
func (c *ManualClock) Advance(ms uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now += ms
}

// SleepUntil implements Clock.
func (c *ManualClock) SleepUntil(ctx context.Context, ms uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if ms > c.now {
		c.now = ms
	}
	return nil
}

type timer struct {
	deadline uint64
	seq      uint64
	task     *Task
}

type timerHeap []timer

func (h timerHeap) Len() int { return len(h) }

func (h timerHeap) Less(i, j int) bool {
	if h[i].deadline != h[j].deadline {
		return h[i].deadline < h[j].deadline
	}
	return h[i].seq < h[j].seq
}

func (h timerHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *timerHeap) Push(x interface{}) { *h = append(*h, x.(timer)) }

func (h *timerHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = timer{}
	*h = old[:n-1]
	return item
}

// heap.Interface implementation for timerHeap.
var _ heap.Interface = (*timerHeap)(nil)

// TimerQueue holds sleeping tasks ordered by deadline. Tasks with equal
// deadlines expire in insertion order.
type TimerQueue struct {
	mu  sync.Mutex
	h   timerHeap
	seq uint64
}

// NewTimerQueue creates an empty queue.
func NewTimerQueue() *TimerQueue {
	return &TimerQueue{}
}

// Add schedules t to be woken at deadline.
func (q *TimerQueue) Add(deadline uint64, t *Task) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.seq++
	heap.Push(&q.h, timer{deadline: deadline, seq: q.seq, task: t})
}

// Expire removes and returns every task whose deadline is at or before now.
func (q *TimerQueue) Expire(now uint64) []*Task {
	q.mu.Lock()
	defer q.mu.Unlock()

	var due []*Task
	for q.h.Len() > 0 && q.h[0].deadline <= now {
		due = append(due, heap.Pop(&q.h).(timer).task)
	}
	return due
}

// Next returns the earliest pending deadline.
func (q *TimerQueue) Next() (uint64, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.h.Len() == 0 {
		return 0, false
	}
	return q.h[0].deadline, true
}

// Len returns the number of pending timers.
func (q *TimerQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.h.Len()
}
