package process

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"

	"kcore/pkg/mm"
)

func newTestProcess(t *testing.T) *Process {
	t.Helper()
	pm := NewManager(mm.NewFrameAllocator(0, 64), false)
	p, err := pm.CreateProcess("test")
	if err != nil {
		t.Fatalf("CreateProcess() error = %v", err)
	}
	return p
}

func newTestDispatcher() (*Dispatcher, *ManualClock) {
	clock := NewManualClock()
	return NewDispatcher(NewScheduler(1<<20), clock, nil), clock
}

// TestTaskStateTransitions tests valid state transitions.
func TestTaskStateTransitions(t *testing.T) {
	p := newTestProcess(t)
	task, _ := p.NewTask(1, func() {})

	tests := []struct {
		name    string
		from    TaskStatus
		to      TaskStatus
		wantErr bool
	}{
		{"Ready to Running", StatusReady, StatusRunning, false},
		{"Running to Blocked", StatusRunning, StatusBlocked, false},
		{"Blocked to Ready", StatusBlocked, StatusReady, false},
		{"Running to Ready", StatusRunning, StatusReady, false},
		{"Running to Zombie", StatusRunning, StatusZombie, false},
		{"Blocked to Zombie", StatusBlocked, StatusZombie, false},
		{"Ready to Blocked", StatusReady, StatusBlocked, true},
		{"Zombie to Ready", StatusZombie, StatusReady, true},
		{"Blocked to Running", StatusBlocked, StatusRunning, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task.status = tt.from
			err := task.TransitionTo(tt.to)
			if (err != nil) != tt.wantErr {
				t.Errorf("TransitionTo() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, ErrInvalidTransition) {
				t.Errorf("TransitionTo() error = %v, want %v", err, ErrInvalidTransition)
			}
		})
	}
}

// TestSchedulerFetch tests minimum-stride selection.
func TestSchedulerFetch(t *testing.T) {
	p := newTestProcess(t)
	s := NewScheduler(100)

	a, _ := p.NewTask(1, nil)
	b, _ := p.NewTask(2, nil)
	c, _ := p.NewTask(4, nil)
	a.stride, b.stride, c.stride = 30, 10, 10
	s.Add(a)
	s.Add(b)
	s.Add(c)

	got := s.Fetch()
	if got != b {
		t.Fatalf("Fetch() = tid %d, want tid %d (first of equal minimum)", got.TID(), b.TID())
	}
	if got.Stride() != 60 {
		t.Errorf("Stride() = %d, want 60", got.Stride())
	}
	if s.Len() != 2 {
		t.Errorf("Len() = %d, want 2", s.Len())
	}
	if got := s.Fetch(); got != c {
		t.Errorf("Fetch() = tid %d, want tid %d", got.TID(), c.TID())
	}
}

// TestSchedulerSkipsNonReady tests that non-Ready tasks stay queued.
func TestSchedulerSkipsNonReady(t *testing.T) {
	p := newTestProcess(t)
	s := NewScheduler(100)

	blocked, _ := p.NewTask(1, nil)
	blocked.status = StatusBlocked
	s.Add(blocked)

	if got := s.Fetch(); got != nil {
		t.Fatalf("Fetch() = tid %d, want nil", got.TID())
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}

	ready, _ := p.NewTask(1, nil)
	ready.stride = 1000
	s.Add(ready)
	if got := s.Fetch(); got != ready {
		t.Errorf("Fetch() = %v, want the ready task", got)
	}
	if !s.Remove(blocked) || s.Len() != 0 {
		t.Errorf("Remove() left %d tasks", s.Len())
	}
	if NewScheduler(1).Fetch() != nil {
		t.Error("Fetch() on empty queue should return nil")
	}
}

// TestStrideFairness tests that dispatch counts follow priority ratios.
func TestStrideFairness(t *testing.T) {
	p := newTestProcess(t)
	s := NewScheduler(1 << 20)

	priorities := []uint64{2, 3, 6}
	tasks := make([]*Task, len(priorities))
	for i, prio := range priorities {
		tasks[i], _ = p.NewTask(prio, nil)
		s.Add(tasks[i])
	}

	counts := make(map[*Task]int)
	const rounds = 1100
	for i := 0; i < rounds; i++ {
		next := s.Fetch()
		counts[next]++
		s.Add(next)
	}

	var total uint64
	for _, prio := range priorities {
		total += prio
	}
	for i, task := range tasks {
		want := float64(rounds) * float64(priorities[i]) / float64(total)
		got := float64(counts[task])
		if math.Abs(got-want) > want*0.02+1 {
			t.Errorf("priority %d dispatched %v times, want about %.0f", priorities[i], got, want)
		}
	}
	if s.Stats().Dispatched != rounds {
		t.Errorf("Stats().Dispatched = %d, want %d", s.Stats().Dispatched, rounds)
	}
}

// TestHandleTableReuse tests the free list.
func TestHandleTableReuse(t *testing.T) {
	h := NewHandleTable[string]()
	for _, v := range []string{"a", "b", "c"} {
		h.Insert(v)
	}

	if _, ok := h.Remove(1); !ok {
		t.Fatal("Remove(1) = false")
	}
	h.Remove(0)
	if _, ok := h.Remove(0); ok {
		t.Error("Remove(0) twice should fail")
	}
	if h.Len() != 1 || h.Cap() != 3 {
		t.Errorf("Len(), Cap() = %d, %d, want 1, 3", h.Len(), h.Cap())
	}

	if id := h.Insert("d"); id != 0 {
		t.Errorf("Insert() = %d, want lowest freed id 0", id)
	}
	if id := h.Insert("e"); id != 1 {
		t.Errorf("Insert() = %d, want 1", id)
	}
	if id := h.Insert("f"); id != 3 {
		t.Errorf("Insert() = %d, want 3", id)
	}

	if v, ok := h.Get(1); !ok || v != "e" {
		t.Errorf("Get(1) = %q, %v", v, ok)
	}
	for _, id := range []int{-1, 4, 100} {
		if _, ok := h.Get(id); ok {
			t.Errorf("Get(%d) should fail", id)
		}
	}

	var ids []int
	h.Each(func(id int, _ string) { ids = append(ids, id) })
	if !reflect.DeepEqual(ids, []int{0, 1, 2, 3}) {
		t.Errorf("Each() ids = %v", ids)
	}
}

// TestLedger tests intent, grant and release bookkeeping.
func TestLedger(t *testing.T) {
	p := newTestProcess(t)
	task, _ := p.NewTask(1, nil)
	r := ResourceID{Kind: KindSemaphore, Index: 2}

	task.RecordIntent(r)
	task.RecordIntent(r)
	if got := task.Requested(KindSemaphore).Count(2); got != 2 {
		t.Fatalf("requested count = %d, want 2", got)
	}

	task.Grant(r)
	if task.Requested(KindSemaphore).Count(2) != 1 || task.Held(KindSemaphore).Count(2) != 1 {
		t.Errorf("after Grant requested=%v held=%v", task.Requested(KindSemaphore), task.Held(KindSemaphore))
	}

	task.WithdrawIntent(r)
	if task.Requested(KindSemaphore).Len() != 0 {
		t.Errorf("requested after withdraw = %v", task.Requested(KindSemaphore))
	}
	if len(task.Held(KindLock)) != 0 {
		t.Error("lock ledger touched by semaphore operations")
	}

	if !task.Release(r) || task.Release(r) {
		t.Error("Release() should succeed exactly once")
	}
}

// TestProcessSnapshot tests building the detector input.
func TestProcessSnapshot(t *testing.T) {
	p := newTestProcess(t)
	a, _ := p.NewTask(1, nil)
	b, _ := p.NewTask(1, nil)

	a.RecordIntent(ResourceID{KindLock, 0})
	a.Grant(ResourceID{KindLock, 0})
	b.RecordIntent(ResourceID{KindLock, 0})
	b.RecordIntent(ResourceID{KindLock, 1})
	b.RecordIntent(ResourceID{KindSemaphore, 0})

	s := p.Snapshot(KindLock, 2, func(id int) int { return []int{0, 1}[id] })
	if !reflect.DeepEqual(s.Work, []int{0, 1}) {
		t.Errorf("Work = %v", s.Work)
	}
	if !reflect.DeepEqual(s.Need, [][]int{{0, 0}, {1, 1}}) {
		t.Errorf("Need = %v", s.Need)
	}
	if !reflect.DeepEqual(s.Allocation, [][]int{{1, 0}, {0, 0}}) {
		t.Errorf("Allocation = %v", s.Allocation)
	}
	if !s.Check() {
		t.Error("Check() = false, want true")
	}
}

// TestDispatcherYieldOrder tests round-robin behaviour of equal priorities.
func TestDispatcherYieldOrder(t *testing.T) {
	d, _ := newTestDispatcher()
	p := newTestProcess(t)

	var trace []string
	body := func(name string) func() {
		return func() {
			for i := 0; i < 2; i++ {
				trace = append(trace, name)
				d.Yield()
			}
		}
	}
	a, _ := p.NewTask(4, body("a"))
	b, _ := p.NewTask(4, body("b"))
	d.Spawn(a)
	d.Spawn(b)

	if err := d.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if want := []string{"a", "b", "a", "b"}; !reflect.DeepEqual(trace, want) {
		t.Errorf("trace = %v, want %v", trace, want)
	}
	if !a.IsZombie() || !b.IsZombie() {
		t.Error("tasks should be zombies after Run")
	}
	if d.Live() != 0 {
		t.Errorf("Live() = %d, want 0", d.Live())
	}
}

// TestDispatcherSleep tests sleeping on the virtual clock.
func TestDispatcherSleep(t *testing.T) {
	d, clock := newTestDispatcher()
	p := newTestProcess(t)

	var woke []uint64
	sleeper := func(ms uint64) func() {
		return func() {
			d.Sleep(ms)
			woke = append(woke, clock.NowMs())
		}
	}
	long, _ := p.NewTask(1, sleeper(200))
	short, _ := p.NewTask(1, sleeper(50))
	d.Spawn(long)
	d.Spawn(short)

	if err := d.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !reflect.DeepEqual(woke, []uint64{50, 200}) {
		t.Errorf("wake times = %v, want [50 200]", woke)
	}
}

// TestDispatcherStalled tests that a task nobody wakes is torn down.
func TestDispatcherStalled(t *testing.T) {
	d, _ := newTestDispatcher()
	p := newTestProcess(t)

	cleaned := false
	stuck, _ := p.NewTask(1, func() {
		defer func() { cleaned = true }()
		d.Block()
	})
	d.Spawn(stuck)

	err := d.Run(context.Background())
	if !errors.Is(err, ErrStalled) {
		t.Fatalf("Run() error = %v, want %v", err, ErrStalled)
	}
	if !stuck.IsZombie() || stuck.ExitCode() != ExitKilled {
		t.Errorf("stuck task status = %s, code = %d", stuck.Status(), stuck.ExitCode())
	}
	if !cleaned {
		t.Error("deferred code of the torn down task did not run")
	}
}

// TestDispatcherAbortOnlyOffender tests that a panicking task does not stop others.
func TestDispatcherAbortOnlyOffender(t *testing.T) {
	d, _ := newTestDispatcher()
	p := newTestProcess(t)

	bad, _ := p.NewTask(1, func() {
		var table []int
		_ = table[3]
	})
	done := false
	good, _ := p.NewTask(1, func() {
		d.Yield()
		done = true
	})
	exiting, _ := p.NewTask(1, func() {
		d.Exit(7)
	})
	d.Spawn(bad)
	d.Spawn(good)
	d.Spawn(exiting)

	if err := d.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if bad.ExitCode() != ExitAborted {
		t.Errorf("aborted task code = %d, want %d", bad.ExitCode(), ExitAborted)
	}
	if !done || good.ExitCode() != 0 {
		t.Errorf("good task done = %v, code = %d", done, good.ExitCode())
	}
	if exiting.ExitCode() != 7 {
		t.Errorf("Exit(7) code = %d", exiting.ExitCode())
	}
}

// TestDispatcherCancel tests that a cancelled context ends Run.
func TestDispatcherCancel(t *testing.T) {
	d, _ := newTestDispatcher()
	p := newTestProcess(t)

	ctx, cancel := context.WithCancel(context.Background())
	spinner, _ := p.NewTask(1, func() {
		for i := 0; ; i++ {
			if i == 10 {
				cancel()
			}
			d.Yield()
		}
	})
	d.Spawn(spinner)

	if err := d.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v, want %v", err, context.Canceled)
	}
	if !spinner.IsZombie() {
		t.Errorf("spinner status = %s, want zombie", spinner.Status())
	}
}

// TestManager tests the process table.
func TestManager(t *testing.T) {
	pm := NewManager(mm.NewFrameAllocator(0, 8), true)

	if _, err := pm.CreateProcess(""); !errors.Is(err, ErrInvalidName) {
		t.Errorf("CreateProcess(\"\") error = %v", err)
	}
	p, err := pm.CreateProcess("init")
	if err != nil {
		t.Fatalf("CreateProcess() error = %v", err)
	}
	if p.PID <= 0 || !p.DeadlockDetection() {
		t.Errorf("process = pid %d, detection %v", p.PID, p.DeadlockDetection())
	}
	if got, _ := pm.GetProcess(p.PID); got != p {
		t.Error("GetProcess() returned a different process")
	}
	if _, err := pm.GetProcess(0); !errors.Is(err, ErrInvalidPID) {
		t.Errorf("GetProcess(0) error = %v", err)
	}

	second, _ := pm.CreateProcess("worker")
	if got := pm.GetProcesses(); len(got) != 2 || got[0] != p || got[1] != second {
		t.Errorf("GetProcesses() = %v, want [init worker]", got)
	}
	if err := pm.Reap(second.PID); err != nil {
		t.Errorf("Reap() of an empty process error = %v", err)
	}

	task, _ := p.NewTask(1, nil)
	if err := pm.Reap(p.PID); err == nil {
		t.Error("Reap() of a live process should fail")
	}
	task.status = StatusZombie
	if err := pm.Reap(p.PID); err != nil {
		t.Fatalf("Reap() error = %v", err)
	}
	if pm.CountProcesses() != 0 {
		t.Errorf("CountProcesses() = %d, want 0", pm.CountProcesses())
	}
	if _, err := pm.GetProcess(p.PID); !errors.Is(err, ErrProcessNotFound) {
		t.Errorf("GetProcess() after reap error = %v", err)
	}
}

// TestNewTaskPriority tests priority validation and tid reuse.
func TestNewTaskPriority(t *testing.T) {
	p := newTestProcess(t)
	if _, err := p.NewTask(0, nil); !errors.Is(err, ErrInvalidPriority) {
		t.Errorf("NewTask(0) error = %v", err)
	}

	first, _ := p.NewTask(1, nil)
	if err := first.SetPriority(0); !errors.Is(err, ErrInvalidPriority) {
		t.Errorf("SetPriority(0) error = %v", err)
	}
	if _, err := p.ReapTask(first.TID()); err == nil {
		t.Error("ReapTask() of a live task should fail")
	}
	first.status = StatusZombie
	if _, err := p.ReapTask(first.TID()); err != nil {
		t.Fatalf("ReapTask() error = %v", err)
	}
	second, _ := p.NewTask(1, nil)
	if second.TID() != first.TID() {
		t.Errorf("tid = %d, want reused %d", second.TID(), first.TID())
	}
}
