package process

import (
	"cmp"
	"errors"
	"slices"
	"sync"
	"sync/atomic"

	"kcore/pkg/mm"
)

// Process table errors.
var (
	ErrInvalidPID  = errors.New("invalid PID")
	ErrInvalidName = errors.New("invalid process name")
)

// Manager is the process table.
type Manager struct {
	// processes holds all processes by PID.
	processes sync.Map
	// pidCounter generates unique PIDs.
	pidCounter int32
	// frames backs every address space created by this manager.
	frames *mm.FrameAllocator
	// detection is the initial deadlock-detection flag of new processes.
	detection bool
}

// NewManager creates a process table whose address spaces draw from frames.
func NewManager(frames *mm.FrameAllocator, detection bool) *Manager {
	return &Manager{
		frames:    frames,
		detection: detection,
	}
}

// allocatePID allocates a new unique PID.
func (pm *Manager) allocatePID() int {
	return int(atomic.AddInt32(&pm.pidCounter, 1))
}

// CreateProcess creates and registers an empty process.
func (pm *Manager) CreateProcess(name string) (*Process, error) {
	if name == "" {
		return nil, ErrInvalidName
	}

	p := NewProcess(pm.allocatePID(), name, mm.NewMemorySet(pm.frames))
	p.SetDeadlockDetection(pm.detection)
	pm.processes.Store(p.PID, p)
	return p, nil
}

// GetProcess retrieves a process by PID.
func (pm *Manager) GetProcess(pid int) (*Process, error) {
	if pid <= 0 {
		return nil, ErrInvalidPID
	}

	p, ok := pm.processes.Load(pid)
	if !ok {
		return nil, ErrProcessNotFound
	}
	return p.(*Process), nil
}

// GetProcesses returns all processes ordered by PID.
func (pm *Manager) GetProcesses() []*Process {
	var processes []*Process
	pm.processes.Range(func(_, value any) bool {
		processes = append(processes, value.(*Process))
		return true
	})
	slices.SortFunc(processes, func(a, b *Process) int { return cmp.Compare(a.PID, b.PID) })
	return processes
}

// Reap removes a process whose tasks have all exited and releases its
// address space.
func (pm *Manager) Reap(pid int) error {
	p, err := pm.GetProcess(pid)
	if err != nil {
		return err
	}
	if p.IsAlive() {
		return ErrInvalidTransition
	}
	p.Memory.Recycle()
	pm.processes.Delete(pid)
	return nil
}

// CountProcesses returns the total number of processes.
func (pm *Manager) CountProcesses() int {
	count := 0
	pm.processes.Range(func(_, _ any) bool {
		count++
		return true
	})
	return count
}
