package process

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"kcore/pkg/klog"
)

// Dispatcher errors.
var (
	ErrStalled = errors.New("every live task is blocked and no timer is pending")
)

// Unwinding signals raised inside a task goroutine.
type (
	taskExit   struct{ code int }
	taskKilled struct{}
)

// Dispatcher binds one running task to the execution unit. Every task body
// runs on its own goroutine, but a baton passed over channels lets exactly one
// of them, or the dispatcher loop, make progress at any time.
type Dispatcher struct {
	sched  *Scheduler
	timers *TimerQueue
	clock  Clock
	log    *slog.Logger

	// baton returns control from the running task to the dispatch loop.
	baton chan struct{}
	group errgroup.Group

	// mu protects current and tasks.
	mu      sync.Mutex
	current *Task
	tasks   []*Task
}

// NewDispatcher creates a dispatcher over the given scheduler and clock.
func NewDispatcher(sched *Scheduler, clock Clock, log *slog.Logger) *Dispatcher {
	return &Dispatcher{
		sched:  sched,
		timers: NewTimerQueue(),
		clock:  clock,
		log:    klog.OrDiscard(log),
		baton:  make(chan struct{}),
	}
}

// Scheduler returns the ready-queue scheduler.
func (d *Dispatcher) Scheduler() *Scheduler { return d.sched }

// Clock returns the time base.
func (d *Dispatcher) Clock() Clock { return d.clock }

// Timers returns the sleep queue.
func (d *Dispatcher) Timers() *TimerQueue { return d.timers }

// Spawn registers a Ready task and queues it.
func (d *Dispatcher) Spawn(t *Task) {
	d.mu.Lock()
	d.tasks = append(d.tasks, t)
	d.mu.Unlock()
	d.sched.Add(t)
	d.log.Debug("task spawned", "pid", t.process.PID, "tid", t.tid, "priority", t.Priority())
}

// Live returns the number of tasks that have not exited.
func (d *Dispatcher) Live() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.tasks)
}

// Current returns the running task, or nil outside task context.
func (d *Dispatcher) Current() *Task {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.current
}

// CurrentProcess returns the process of the running task.
func (d *Dispatcher) CurrentProcess() *Process {
	if t := d.Current(); t != nil {
		return t.process
	}
	return nil
}

func (d *Dispatcher) mustCurrent() *Task {
	t := d.Current()
	if t == nil {
		panic("process: suspend called outside task context")
	}
	if t.killed {
		panic(taskKilled{})
	}
	return t
}

func (d *Dispatcher) setCurrent(t *Task) {
	d.mu.Lock()
	d.current = t
	d.mu.Unlock()
}

// Yield puts the running task back on the ready queue and switches away.
func (d *Dispatcher) Yield() {
	t := d.mustCurrent()
	if err := t.TransitionTo(StatusReady); err != nil {
		panic(err)
	}
	d.sched.Add(t)
	d.suspend(t)
}

// Block suspends the running task until another party calls Wake. The
// caller must already have recorded the task on some wait list.
func (d *Dispatcher) Block() {
	t := d.mustCurrent()
	if err := t.TransitionTo(StatusBlocked); err != nil {
		panic(err)
	}
	d.suspend(t)
}

// Wake makes a blocked task Ready and queues it.
func (d *Dispatcher) Wake(t *Task) {
	if err := t.TransitionTo(StatusReady); err != nil {
		d.log.Warn("wake ignored", "pid", t.process.PID, "tid", t.tid, "err", err)
		return
	}
	d.sched.Add(t)
}

// Sleep blocks the running task for at least ms milliseconds.
func (d *Dispatcher) Sleep(ms uint64) {
	t := d.mustCurrent()
	d.timers.Add(d.clock.NowMs()+ms, t)
	d.Block()
}

// Exit terminates the running task with code. It does not return.
func (d *Dispatcher) Exit(code int) {
	d.mustCurrent()
	panic(taskExit{code: code})
}

func (d *Dispatcher) suspend(t *Task) {
	d.baton <- struct{}{}
	<-t.resume
	if t.killed {
		panic(taskKilled{})
	}
}

// Run dispatches tasks until none is left. It returns ErrStalled when every
// remaining task is blocked with no timer pending, and ctx.Err() when ctx is
// cancelled. In both cases the remaining tasks are torn down first.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			d.shutdown()
			return err
		}

		for _, t := range d.timers.Expire(d.clock.NowMs()) {
			d.Wake(t)
		}

		t := d.sched.Fetch()
		if t == nil {
			live := d.Live()
			if live == 0 {
				return d.group.Wait()
			}
			if next, ok := d.timers.Next(); ok {
				if err := d.clock.SleepUntil(ctx, next); err != nil {
					d.shutdown()
					return err
				}
				continue
			}
			d.log.Warn("all live tasks blocked", "live", live)
			d.shutdown()
			return ErrStalled
		}

		d.dispatch(t)
	}
}

func (d *Dispatcher) dispatch(t *Task) {
	if err := t.TransitionTo(StatusRunning); err != nil {
		d.log.Error("dispatch refused", "pid", t.process.PID, "tid", t.tid, "err", err)
		return
	}
	d.setCurrent(t)
	if !t.started {
		t.started = true
		d.group.Go(func() error {
			d.runTask(t)
			return nil
		})
	}
	t.resume <- struct{}{}
	<-d.baton
	d.setCurrent(nil)
}

func (d *Dispatcher) runTask(t *Task) {
	<-t.resume
	code := d.callEntry(t)
	d.exit(t, code)
}

func (d *Dispatcher) callEntry(t *Task) (code int) {
	defer func() {
		switch v := recover().(type) {
		case nil:
		case taskExit:
			code = v.code
		case taskKilled:
			code = ExitKilled
		default:
			d.log.Error("task aborted", "pid", t.process.PID, "tid", t.tid, "panic", v)
			code = ExitAborted
		}
	}()
	t.entry()
	return 0
}

func (d *Dispatcher) exit(t *Task, code int) {
	t.mu.Lock()
	t.exitCode = code
	err := t.transitionLocked(StatusZombie)
	t.mu.Unlock()
	if err != nil {
		d.log.Error("exit transition", "pid", t.process.PID, "tid", t.tid, "err", err)
	}

	d.forget(t)
	d.log.Debug("task exited", "pid", t.process.PID, "tid", t.tid, "code", code)
	d.baton <- struct{}{}
}

func (d *Dispatcher) forget(t *Task) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if i := slices.Index(d.tasks, t); i >= 0 {
		d.tasks = slices.Delete(d.tasks, i, i+1)
	}
}

// shutdown unwinds every remaining task and waits for their goroutines.
func (d *Dispatcher) shutdown() {
	d.mu.Lock()
	tasks := slices.Clone(d.tasks)
	d.mu.Unlock()

	for _, t := range tasks {
		d.sched.Remove(t)
		if !t.started {
			t.mu.Lock()
			t.exitCode = ExitKilled
			_ = t.transitionLocked(StatusZombie)
			t.mu.Unlock()
			d.forget(t)
			continue
		}
		t.killed = true
		d.setCurrent(t)
		t.resume <- struct{}{}
		<-d.baton
		d.setCurrent(nil)
	}
	_ = d.group.Wait()
}
