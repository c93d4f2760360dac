package process

import (
	"errors"
	"fmt"
)

// State transition errors.
var (
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrProcessNotFound   = errors.New("process not found")
	ErrTaskNotFound      = errors.New("task not found")
	ErrInvalidPriority   = errors.New("priority must be at least 1")
)

// TaskStatus represents the scheduling state of a task.
type TaskStatus string

const (
	// StatusReady indicates the task is queued for dispatch.
	StatusReady TaskStatus = "ready"
	// StatusRunning indicates the task owns the execution unit.
	StatusRunning TaskStatus = "running"
	// StatusBlocked indicates the task waits on a primitive or a timer.
	StatusBlocked TaskStatus = "blocked"
	// StatusZombie indicates the task has exited.
	StatusZombie TaskStatus = "zombie"
)

// StateTransition represents a valid state transition.
type StateTransition struct {
	From TaskStatus
	To   TaskStatus
}

// ValidTransitions defines all valid state transitions.
var ValidTransitions = []StateTransition{
	// Dispatch: Ready -> Running
	{From: StatusReady, To: StatusRunning},
	// Yield: Running -> Ready
	{From: StatusRunning, To: StatusReady},
	// Wait on a lock, semaphore, condvar or timer: Running -> Blocked
	{From: StatusRunning, To: StatusBlocked},
	// Woken: Blocked -> Ready
	{From: StatusBlocked, To: StatusReady},
	// Exit: Running -> Zombie
	{From: StatusRunning, To: StatusZombie},
	// Torn down while waiting: Blocked -> Zombie
	{From: StatusBlocked, To: StatusZombie},
	// Torn down before dispatch: Ready -> Zombie
	{From: StatusReady, To: StatusZombie},
}

// IsValidTransition checks if a state transition is valid.
func IsValidTransition(from, to TaskStatus) bool {
	for _, t := range ValidTransitions {
		if t.From == from && t.To == to {
			return true
		}
	}
	return false
}

// TransitionTo attempts to move the task to a new status.
func (t *Task) TransitionTo(to TaskStatus) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.transitionLocked(to)
}

func (t *Task) transitionLocked(to TaskStatus) error {
	if !IsValidTransition(t.status, to) {
		return fmt.Errorf("%w: tid %d %s -> %s", ErrInvalidTransition, t.tid, t.status, to)
	}
	t.status = to
	return nil
}

// Status returns the current status.
func (t *Task) Status() TaskStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// IsReady reports whether the task may be dispatched.
func (t *Task) IsReady() bool {
	return t.Status() == StatusReady
}

// IsZombie reports whether the task has exited.
func (t *Task) IsZombie() bool {
	return t.Status() == StatusZombie
}
