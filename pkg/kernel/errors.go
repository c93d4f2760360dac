package kernel

import (
	"errors"

	"kcore/pkg/mm"
)

// Syscall errors.
var (
	ErrNoTask          = errors.New("no running task")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrWouldDeadlock   = errors.New("request would leave the process unsafe")
	ErrBusy            = errors.New("handle still in use")
	ErrStillRunning    = errors.New("thread has not exited")
	ErrNotHeld         = errors.New("lock not held by caller")
)

// Errno values returned through Syscall.
const (
	ErrnoWouldDeadlock = -0xdead
	ErrnoStillRunning  = -2
	ErrnoFailure       = -1
)

// ErrorClass groups errors by how a caller should react.
type ErrorClass int

const (
	ClassNone ErrorClass = iota
	ClassInvalidArgument
	ClassConflict
	ClassNotMapped
	ClassWouldDeadlock
	ClassResourceExhausted
)

func (c ErrorClass) String() string {
	switch c {
	case ClassNone:
		return "none"
	case ClassInvalidArgument:
		return "invalid argument"
	case ClassConflict:
		return "conflict"
	case ClassNotMapped:
		return "not mapped"
	case ClassWouldDeadlock:
		return "would deadlock"
	case ClassResourceExhausted:
		return "resource exhausted"
	default:
		return "unknown"
	}
}

// Classify maps err onto its ErrorClass.
func Classify(err error) ErrorClass {
	switch {
	case err == nil:
		return ClassNone
	case errors.Is(err, ErrWouldDeadlock):
		return ClassWouldDeadlock
	case errors.Is(err, mm.ErrConflict), errors.Is(err, ErrBusy):
		return ClassConflict
	case errors.Is(err, mm.ErrNotMapped):
		return ClassNotMapped
	case errors.Is(err, mm.ErrOutOfFrames):
		return ClassResourceExhausted
	default:
		return ClassInvalidArgument
	}
}

// Errno converts err into the integer result of a failed syscall.
func Errno(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrWouldDeadlock):
		return ErrnoWouldDeadlock
	case errors.Is(err, ErrStillRunning):
		return ErrnoStillRunning
	default:
		return ErrnoFailure
	}
}

func result(v int, err error) int {
	if err != nil {
		return Errno(err)
	}
	return v
}
