package kernel

import (
	"context"
	"fmt"
	"log/slog"

	"kcore/pkg/config"
	"kcore/pkg/klog"
	"kcore/pkg/mm"
	"kcore/pkg/process"
)

// Kernel ties the process table, the dispatcher and physical memory together.
type Kernel struct {
	cfg    *config.Config
	log    *slog.Logger
	clock  process.Clock
	frames *mm.FrameAllocator
	procs  *process.Manager
	disp   *process.Dispatcher
}

// New creates a kernel from cfg. A nil cfg uses config.Default and a nil log
// discards output.
func New(cfg *config.Config, log *slog.Logger) (*Kernel, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("kernel config: %w", err)
	}
	log = klog.OrDiscard(log)

	var clock process.Clock
	switch cfg.Clock {
	case config.ClockVirtual:
		clock = process.NewManualClock()
	default:
		clock = process.NewSystemClock()
	}

	frames := mm.NewFrameAllocator(0, cfg.Frames)
	return &Kernel{
		cfg:    cfg,
		log:    log,
		clock:  clock,
		frames: frames,
		procs:  process.NewManager(frames, cfg.DeadlockDetection),
		disp:   process.NewDispatcher(process.NewScheduler(cfg.BigStride), clock, log),
	}, nil
}

// Config returns the configuration the kernel was built with.
func (k *Kernel) Config() *config.Config { return k.cfg }

// Clock returns the time base.
func (k *Kernel) Clock() process.Clock { return k.clock }

// Frames returns the physical frame pool.
func (k *Kernel) Frames() *mm.FrameAllocator { return k.frames }

// Processes returns the process table.
func (k *Kernel) Processes() *process.Manager { return k.procs }

// Dispatcher returns the task dispatcher.
func (k *Kernel) Dispatcher() *process.Dispatcher { return k.disp }

// CreateProcess registers an empty process.
func (k *Kernel) CreateProcess(name string) (*process.Process, error) {
	p, err := k.procs.CreateProcess(name)
	if err != nil {
		return nil, err
	}
	k.log.Info("process created", "pid", p.PID, "name", name, "deadlock_detection", p.DeadlockDetection())
	return p, nil
}

// Spawn creates a task of p running entry and queues it. A zero priority
// selects the configured default.
func (k *Kernel) Spawn(p *process.Process, priority uint64, entry func()) (*process.Task, error) {
	if priority == 0 {
		priority = k.cfg.DefaultPriority
	}
	t, err := p.NewTask(priority, entry)
	if err != nil {
		return nil, err
	}
	k.disp.Spawn(t)
	return t, nil
}

// Run dispatches tasks until every task has exited, the system stalls or ctx
// is done. Afterwards every process whose tasks have all exited is reaped and
// its frames are returned to the pool.
func (k *Kernel) Run(ctx context.Context) error {
	k.log.Info("kernel running", "big_stride", k.cfg.BigStride, "clock", k.cfg.Clock)
	err := k.disp.Run(ctx)
	k.reap()
	if err != nil {
		k.log.Warn("kernel stopped", "err", err)
		return err
	}
	k.log.Info("kernel idle", "dispatched", k.disp.Scheduler().Stats().Dispatched)
	return nil
}

func (k *Kernel) reap() {
	for _, p := range k.procs.GetProcesses() {
		if p.IsAlive() {
			continue
		}
		if err := k.procs.Reap(p.PID); err != nil {
			k.log.Warn("reap failed", "pid", p.PID, "err", err)
			continue
		}
		k.log.Debug("process reaped", "pid", p.PID, "name", p.Name)
	}
}

func (k *Kernel) current() (*process.Task, *process.Process, error) {
	t := k.disp.Current()
	if t == nil {
		return nil, nil, ErrNoTask
	}
	return t, t.Process(), nil
}

func (k *Kernel) trace(op string, t *process.Task, args ...any) {
	k.log.Debug(op, append([]any{"pid", t.Process().PID, "tid", t.TID()}, args...)...)
}
