package ksync

import (
	"kcore/pkg/process"
)

// Dispatcher is the part of the task dispatcher a primitive needs.
type Dispatcher interface {
	// Current returns the running task.
	Current() *process.Task
	// Yield requeues the running task and switches away.
	Yield()
	// Block suspends the running task until Wake.
	Block()
	// Wake makes a blocked task Ready.
	Wake(t *process.Task)
}

var (
	_ Dispatcher        = (*process.Dispatcher)(nil)
	_ process.Lock      = (*SpinLock)(nil)
	_ process.Lock      = (*BlockingLock)(nil)
	_ process.Semaphore = (*Semaphore)(nil)
	_ process.Condvar   = (*Condvar)(nil)
)

func grant(t *process.Task, id process.ResourceID) {
	if t != nil {
		t.Grant(id)
	}
}
