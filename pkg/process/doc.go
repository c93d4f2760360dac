/*
Package process provides the scheduling core of the kernel.

It implements cooperative multitasking over tasks (threads) grouped into
processes:

  - Task lifecycle and the status machine (ready, running, blocked, zombie)
  - Stride scheduling over a single ready queue
  - A dispatcher that runs exactly one task at a time and offers the
    yield, block, wake and sleep paths used by synchronization primitives
  - Per-process handle tables for locks, semaphores and condition variables
  - Per-task requested and held resource sets, and the snapshot of them taken
    by the deadlock detector
  - A process table

# Task States

  - Ready: queued and waiting for dispatch
  - Running: owns the execution unit
  - Blocked: waiting on a primitive or a sleep timer
  - Zombie: exited; the exit code stays readable until the slot is reaped

# Stride Scheduling

Each dispatch adds BigStride/priority to the chosen task's stride, and the
scheduler always picks the Ready task with the smallest stride. A task with
priority 8 is therefore dispatched about twice as often as one with priority 4.

# Usage

	sched := process.NewScheduler(1 << 20)
	d := process.NewDispatcher(sched, process.NewManualClock(), nil)
	pm := process.NewManager(mm.NewFrameAllocator(0, 1024), false)

	p, _ := pm.CreateProcess("init")
	t, _ := p.NewTask(16, func() {
		d.Yield()
	})
	d.Spawn(t)

	if err := d.Run(context.Background()); err != nil {
		// Handle error
	}
*/
package process
