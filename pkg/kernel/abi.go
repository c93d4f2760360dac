package kernel

// Syscall ids.
const (
	SysExit                 = 93
	SysSleep                = 101
	SysYield                = 124
	SysSetPriority          = 140
	SysGetTime              = 169
	SysMunmap               = 215
	SysMmap                 = 222
	SysGettid               = 1001
	SysWaittid              = 1002
	SysMutexCreate          = 463
	SysMutexLock            = 464
	SysMutexUnlock          = 466
	SysSemaphoreCreate      = 467
	SysSemaphoreUp          = 468
	SysEnableDeadlockDetect = 469
	SysSemaphoreDown        = 470
	SysCondvarCreate        = 471
	SysCondvarSignal        = 472
	SysCondvarWait          = 473
)

// Syscall runs syscall id with raw arguments and returns its integer result:
// a non-negative value on success, or an errno from Errno. Unknown ids return
// ErrnoFailure.
func (k *Kernel) Syscall(id int, a0, a1, a2 uint64) int {
	switch id {
	case SysExit:
		return result(0, k.Exit(int(int64(a0))))
	case SysSleep:
		return result(0, k.Sleep(a0))
	case SysYield:
		return result(0, k.Yield())
	case SysSetPriority:
		return result(int(a0), k.SetPriority(a0))
	case SysGetTime:
		return int(k.GetTimeMs())
	case SysMmap:
		return result(0, k.Mmap(a0, a1, a2))
	case SysMunmap:
		return result(0, k.Munmap(a0, a1))
	case SysGettid:
		return result(k.Gettid())
	case SysWaittid:
		return result(k.Waittid(int(a0)))
	case SysMutexCreate:
		return result(k.LockCreate(a0 != 0))
	case SysMutexLock:
		return result(0, k.LockAcquire(int(a0)))
	case SysMutexUnlock:
		return result(0, k.LockRelease(int(a0)))
	case SysSemaphoreCreate:
		return result(k.SemaphoreCreate(int(a0)))
	case SysSemaphoreUp:
		return result(0, k.SemaphoreUp(int(a0)))
	case SysSemaphoreDown:
		return result(0, k.SemaphoreDown(int(a0)))
	case SysEnableDeadlockDetect:
		switch a0 {
		case 0, 1:
			return result(0, k.SetDeadlockDetection(a0 == 1))
		default:
			return ErrnoFailure
		}
	case SysCondvarCreate:
		return result(k.CondvarCreate())
	case SysCondvarSignal:
		return result(0, k.CondvarSignal(int(a0)))
	case SysCondvarWait:
		return result(0, k.CondvarWait(int(a0), int(a1)))
	default:
		k.log.Warn("unknown syscall", "id", id)
		return ErrnoFailure
	}
}
