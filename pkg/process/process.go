package process

import (
	"sync"
	"time"

	"kcore/pkg/mm"
)

// Exit codes assigned by the dispatcher.
const (
	// ExitAborted is recorded for a task whose body panicked.
	ExitAborted = -1
	// ExitKilled is recorded for a task torn down by the dispatcher.
	ExitKilled = -2
)

// Lock is a mutual exclusion handle shared by the tasks of a process.
type Lock interface {
	// Lock acquires the lock for the calling task, suspending it if needed.
	Lock()
	// Unlock releases the lock.
	Unlock()
	// Available returns 1 when the lock is free and 0 otherwise.
	Available() int
	// Busy reports whether the lock is held or has waiters.
	Busy() bool
}

// Semaphore is a counting semaphore handle.
type Semaphore interface {
	Up()
	Down()
	// Available returns the units that can be taken without blocking.
	Available() int
	Busy() bool
}

// Condvar is a condition variable handle.
type Condvar interface {
	// Wait releases lock and suspends the caller until signalled. The lock
	// is not reacquired.
	Wait(lock Lock)
	Signal()
	Busy() bool
}

// Task is a thread of a process and the unit of scheduling.
type Task struct {
	tid     int
	process *Process // owner; not owned by the task
	entry   func()

	// resume hands the baton from the dispatcher to the task goroutine.
	resume  chan struct{}
	started bool
	killed  bool

	// mu protects the fields below.
	mu        sync.Mutex
	status    TaskStatus
	stride    uint64
	priority  uint64
	exitCode  int
	requested [numKinds]ResourceSet
	held      [numKinds]ResourceSet
}

func newTask(p *Process, tid int, priority uint64, entry func()) *Task {
	t := &Task{
		tid:      tid,
		process:  p,
		entry:    entry,
		resume:   make(chan struct{}),
		status:   StatusReady,
		priority: priority,
	}
	for k := range t.requested {
		t.requested[k] = make(ResourceSet)
		t.held[k] = make(ResourceSet)
	}
	return t
}

// TID returns the thread id, unique within the process.
func (t *Task) TID() int { return t.tid }

// Process returns the owning process.
func (t *Task) Process() *Process { return t.process }

// Stride returns the accumulated virtual time.
func (t *Task) Stride() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stride
}

// Priority returns the scheduling priority.
func (t *Task) Priority() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.priority
}

// SetPriority changes the scheduling priority. Priorities below 1 are rejected.
func (t *Task) SetPriority(priority uint64) error {
	if priority < 1 {
		return ErrInvalidPriority
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.priority = priority
	return nil
}

// ExitCode returns the exit code recorded when the task became a zombie.
func (t *Task) ExitCode() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.exitCode
}

// Process owns a set of tasks and the synchronization handles they share.
type Process struct {
	// PID is the unique process identifier.
	PID int
	// Name is a label for logs.
	Name string
	// CreatedAt is when the process was created.
	CreatedAt time.Time
	// Memory is the user address space.
	Memory *mm.MemorySet

	Locks      *HandleTable[Lock]
	Semaphores *HandleTable[Semaphore]
	Condvars   *HandleTable[Condvar]

	tasks *HandleTable[*Task]

	// mu protects detection.
	mu        sync.Mutex
	detection bool
}

// NewProcess creates a process with an empty address space.
func NewProcess(pid int, name string, memory *mm.MemorySet) *Process {
	return &Process{
		PID:        pid,
		Name:       name,
		CreatedAt:  time.Now(),
		Memory:     memory,
		Locks:      NewHandleTable[Lock](),
		Semaphores: NewHandleTable[Semaphore](),
		Condvars:   NewHandleTable[Condvar](),
		tasks:      NewHandleTable[*Task](),
	}
}

// NewTask creates a Ready task running entry. The caller hands it to the
// dispatcher.
func (p *Process) NewTask(priority uint64, entry func()) (*Task, error) {
	if priority < 1 {
		return nil, ErrInvalidPriority
	}
	var t *Task
	p.tasks.Alloc(func(tid int) *Task {
		t = newTask(p, tid, priority, entry)
		return t
	})
	return t, nil
}

// Task returns the task with the given tid.
func (p *Process) Task(tid int) (*Task, error) {
	t, ok := p.tasks.Get(tid)
	if !ok {
		return nil, ErrTaskNotFound
	}
	return t, nil
}

// Tasks returns the live task slots in tid order.
func (p *Process) Tasks() []*Task {
	tasks := make([]*Task, 0, p.tasks.Len())
	p.tasks.Each(func(_ int, t *Task) {
		tasks = append(tasks, t)
	})
	return tasks
}

// ReapTask frees the slot of an exited task so its tid can be reused.
func (p *Process) ReapTask(tid int) (*Task, error) {
	t, ok := p.tasks.Get(tid)
	if !ok {
		return nil, ErrTaskNotFound
	}
	if !t.IsZombie() {
		return nil, ErrInvalidTransition
	}
	p.tasks.Remove(tid)
	return t, nil
}

// SetDeadlockDetection turns the acquisition safety check on or off.
func (p *Process) SetDeadlockDetection(enabled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.detection = enabled
}

// DeadlockDetection reports whether acquisitions are checked.
func (p *Process) DeadlockDetection() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.detection
}

// IsAlive reports whether any task has not exited.
func (p *Process) IsAlive() bool {
	for _, t := range p.Tasks() {
		if !t.IsZombie() {
			return true
		}
	}
	return false
}
