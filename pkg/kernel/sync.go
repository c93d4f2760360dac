package kernel

import (
	"fmt"

	"kcore/pkg/deadlock"
	"kcore/pkg/ksync"
	"kcore/pkg/process"
)

// SetDeadlockDetection turns the safety check on or off for the caller's
// process.
func (k *Kernel) SetDeadlockDetection(enabled bool) error {
	t, p, err := k.current()
	if err != nil {
		return err
	}
	p.SetDeadlockDetection(enabled)
	k.trace("enable_deadlock_detect", t, "enabled", enabled)
	return nil
}

// admit records t's request for r and, with detection enabled, refuses it if
// the resulting state is unsafe.
func (k *Kernel) admit(t *process.Task, p *process.Process, r process.ResourceID) error {
	t.RecordIntent(r)
	if !p.DeadlockDetection() {
		return nil
	}

	if snapshot(p, r.Kind).Check() {
		return nil
	}

	t.WithdrawIntent(r)
	k.log.Warn("request refused", "pid", p.PID, "tid", t.TID(), "resource", r.String())
	return fmt.Errorf("%s: %w", r, ErrWouldDeadlock)
}

// snapshot captures the allocation state of kind k across p's tasks.
func snapshot(p *process.Process, k process.ResourceKind) *deadlock.Snapshot {
	if k == process.KindSemaphore {
		return p.Snapshot(k, p.Semaphores.Cap(), func(id int) int {
			if s, ok := p.Semaphores.Get(id); ok {
				return s.Available()
			}
			return 0
		})
	}
	return p.Snapshot(k, p.Locks.Cap(), func(id int) int {
		if l, ok := p.Locks.Get(id); ok {
			return l.Available()
		}
		return 0
	})
}

// LockCreate creates a lock in the caller's process and returns its id. A
// blocking lock queues waiters; otherwise waiters spin and yield.
func (k *Kernel) LockCreate(blocking bool) (int, error) {
	t, p, err := k.current()
	if err != nil {
		return 0, err
	}
	id := p.Locks.Alloc(func(id int) process.Lock {
		r := process.ResourceID{Kind: process.KindLock, Index: id}
		if blocking {
			return ksync.NewBlockingLock(r, k.disp)
		}
		return ksync.NewSpinLock(r, k.disp)
	})
	k.trace("mutex_create", t, "id", id, "blocking", blocking)
	return id, nil
}

func (k *Kernel) lock(p *process.Process, id int) (process.Lock, error) {
	l, ok := p.Locks.Get(id)
	if !ok {
		return nil, fmt.Errorf("lock %d: %w", id, process.ErrInvalidHandle)
	}
	return l, nil
}

// LockAcquire takes lock id, suspending the caller until it is granted.
func (k *Kernel) LockAcquire(id int) error {
	t, p, err := k.current()
	if err != nil {
		return err
	}
	l, err := k.lock(p, id)
	if err != nil {
		return err
	}
	if err := k.admit(t, p, process.ResourceID{Kind: process.KindLock, Index: id}); err != nil {
		return err
	}
	k.trace("mutex_lock", t, "id", id)
	l.Lock()
	return nil
}

// LockRelease releases lock id, which the caller must hold.
func (k *Kernel) LockRelease(id int) error {
	t, p, err := k.current()
	if err != nil {
		return err
	}
	l, err := k.lock(p, id)
	if err != nil {
		return err
	}
	if !t.Release(process.ResourceID{Kind: process.KindLock, Index: id}) {
		return fmt.Errorf("lock %d: %w", id, ErrNotHeld)
	}
	k.trace("mutex_unlock", t, "id", id)
	l.Unlock()
	return nil
}

// LockDestroy frees lock id. A lock that is held, contended or still
// requested by any task is not freed.
func (k *Kernel) LockDestroy(id int) error {
	t, p, err := k.current()
	if err != nil {
		return err
	}
	l, err := k.lock(p, id)
	if err != nil {
		return err
	}
	if l.Busy() || p.Referenced(process.ResourceID{Kind: process.KindLock, Index: id}) {
		return fmt.Errorf("lock %d: %w", id, ErrBusy)
	}
	p.Locks.Remove(id)
	k.trace("mutex_destroy", t, "id", id)
	return nil
}

// SemaphoreCreate creates a semaphore with count units and returns its id.
func (k *Kernel) SemaphoreCreate(count int) (int, error) {
	t, p, err := k.current()
	if err != nil {
		return 0, err
	}
	if count < 0 {
		return 0, fmt.Errorf("semaphore count %d: %w", count, ErrInvalidArgument)
	}
	id := p.Semaphores.Alloc(func(id int) process.Semaphore {
		return ksync.NewSemaphore(process.ResourceID{Kind: process.KindSemaphore, Index: id}, count, k.disp)
	})
	k.trace("semaphore_create", t, "id", id, "count", count)
	return id, nil
}

func (k *Kernel) semaphore(p *process.Process, id int) (process.Semaphore, error) {
	s, ok := p.Semaphores.Get(id)
	if !ok {
		return nil, fmt.Errorf("semaphore %d: %w", id, process.ErrInvalidHandle)
	}
	return s, nil
}

// SemaphoreUp returns a unit to semaphore id.
func (k *Kernel) SemaphoreUp(id int) error {
	t, p, err := k.current()
	if err != nil {
		return err
	}
	s, err := k.semaphore(p, id)
	if err != nil {
		return err
	}
	t.Release(process.ResourceID{Kind: process.KindSemaphore, Index: id})
	k.trace("semaphore_up", t, "id", id)
	s.Up()
	return nil
}

// SemaphoreDown takes a unit from semaphore id, suspending the caller until
// one is granted.
func (k *Kernel) SemaphoreDown(id int) error {
	t, p, err := k.current()
	if err != nil {
		return err
	}
	s, err := k.semaphore(p, id)
	if err != nil {
		return err
	}
	if err := k.admit(t, p, process.ResourceID{Kind: process.KindSemaphore, Index: id}); err != nil {
		return err
	}
	k.trace("semaphore_down", t, "id", id)
	s.Down()
	return nil
}

// SemaphoreDestroy frees semaphore id. A semaphore with waiters, or with
// units still held or requested by any task, is not freed.
func (k *Kernel) SemaphoreDestroy(id int) error {
	t, p, err := k.current()
	if err != nil {
		return err
	}
	s, err := k.semaphore(p, id)
	if err != nil {
		return err
	}
	if s.Busy() || p.Referenced(process.ResourceID{Kind: process.KindSemaphore, Index: id}) {
		return fmt.Errorf("semaphore %d: %w", id, ErrBusy)
	}
	p.Semaphores.Remove(id)
	k.trace("semaphore_destroy", t, "id", id)
	return nil
}

// CondvarCreate creates a condition variable and returns its id.
func (k *Kernel) CondvarCreate() (int, error) {
	t, p, err := k.current()
	if err != nil {
		return 0, err
	}
	id := p.Condvars.Insert(ksync.NewCondvar(k.disp))
	k.trace("condvar_create", t, "id", id)
	return id, nil
}

func (k *Kernel) condvar(p *process.Process, id int) (process.Condvar, error) {
	c, ok := p.Condvars.Get(id)
	if !ok {
		return nil, fmt.Errorf("condvar %d: %w", id, process.ErrInvalidHandle)
	}
	return c, nil
}

// CondvarSignal wakes the oldest waiter of condvar id, if any.
func (k *Kernel) CondvarSignal(id int) error {
	t, p, err := k.current()
	if err != nil {
		return err
	}
	c, err := k.condvar(p, id)
	if err != nil {
		return err
	}
	k.trace("condvar_signal", t, "id", id)
	c.Signal()
	return nil
}

// CondvarWait releases lock lid and blocks on condvar cid. The lock is not
// held when the call returns.
func (k *Kernel) CondvarWait(cid, lid int) error {
	t, p, err := k.current()
	if err != nil {
		return err
	}
	c, err := k.condvar(p, cid)
	if err != nil {
		return err
	}
	l, err := k.lock(p, lid)
	if err != nil {
		return err
	}
	if !t.Release(process.ResourceID{Kind: process.KindLock, Index: lid}) {
		return fmt.Errorf("lock %d: %w", lid, ErrNotHeld)
	}
	k.trace("condvar_wait", t, "id", cid, "lock", lid)
	c.Wait(l)
	return nil
}

// CondvarDestroy frees condvar id. A condvar with waiters is not freed.
func (k *Kernel) CondvarDestroy(id int) error {
	t, p, err := k.current()
	if err != nil {
		return err
	}
	c, err := k.condvar(p, id)
	if err != nil {
		return err
	}
	if c.Busy() {
		return fmt.Errorf("condvar %d: %w", id, ErrBusy)
	}
	p.Condvars.Remove(id)
	k.trace("condvar_destroy", t, "id", id)
	return nil
}
