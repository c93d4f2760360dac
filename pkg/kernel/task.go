package kernel

import (
	"fmt"
)

// Yield gives up the processor.
func (k *Kernel) Yield() error {
	if _, _, err := k.current(); err != nil {
		return err
	}
	k.disp.Yield()
	return nil
}

// Exit terminates the calling task with code. It does not return when called
// from a task.
func (k *Kernel) Exit(code int) error {
	t, _, err := k.current()
	if err != nil {
		return err
	}
	k.trace("exit", t, "code", code)
	k.disp.Exit(code)
	return nil
}

// Sleep blocks the caller for at least ms milliseconds.
func (k *Kernel) Sleep(ms uint64) error {
	t, _, err := k.current()
	if err != nil {
		return err
	}
	k.trace("sleep", t, "ms", ms)
	k.disp.Sleep(ms)
	return nil
}

// GetTimeMs returns the current time in milliseconds.
func (k *Kernel) GetTimeMs() uint64 {
	return k.clock.NowMs()
}

// SetPriority changes the caller's priority. Priorities below 1 are rejected.
func (k *Kernel) SetPriority(priority uint64) error {
	t, _, err := k.current()
	if err != nil {
		return err
	}
	if err := t.SetPriority(priority); err != nil {
		return fmt.Errorf("set_priority %d: %w", priority, err)
	}
	k.trace("set_priority", t, "priority", priority)
	return nil
}

// ThreadCreate starts a new task in the caller's process with the default
// priority and returns its tid.
func (k *Kernel) ThreadCreate(entry func()) (int, error) {
	t, p, err := k.current()
	if err != nil {
		return 0, err
	}
	if entry == nil {
		return 0, fmt.Errorf("thread_create: %w", ErrInvalidArgument)
	}
	child, err := k.Spawn(p, 0, entry)
	if err != nil {
		return 0, err
	}
	k.trace("thread_create", t, "child", child.TID())
	return child.TID(), nil
}

// Gettid returns the caller's tid.
func (k *Kernel) Gettid() (int, error) {
	t, _, err := k.current()
	if err != nil {
		return 0, err
	}
	return t.TID(), nil
}

// Waittid returns the exit code of thread tid and frees its slot. It does not
// block: a thread that has not exited yields ErrStillRunning.
func (k *Kernel) Waittid(tid int) (int, error) {
	t, p, err := k.current()
	if err != nil {
		return 0, err
	}
	if tid == t.TID() {
		return 0, fmt.Errorf("waittid %d: %w", tid, ErrInvalidArgument)
	}
	target, err := p.Task(tid)
	if err != nil {
		return 0, fmt.Errorf("waittid %d: %w", tid, err)
	}
	if !target.IsZombie() {
		return 0, ErrStillRunning
	}
	if _, err := p.ReapTask(tid); err != nil {
		return 0, fmt.Errorf("waittid %d: %w", tid, err)
	}
	k.trace("waittid", t, "target", tid, "code", target.ExitCode())
	return target.ExitCode(), nil
}
