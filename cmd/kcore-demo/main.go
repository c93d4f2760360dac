package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"kcore/pkg/config"
	"kcore/pkg/kernel"
	"kcore/pkg/klog"
	"kcore/pkg/mm"
	"kcore/pkg/process"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	scenario := flag.String("scenario", "all", "scenario to run: stride, philosophers, mmap or all")
	detect := flag.Bool("detect", true, "enable deadlock detection for the philosophers scenario")
	logLevel := flag.String("log-level", "", "override the configured log level")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	cfg.Clock = config.ClockVirtual

	fmt.Println("=== kcore Scheduling Demo ===")
	fmt.Println()

	scenarios := map[string]func(*config.Config){
		"stride":       func(cfg *config.Config) { runStride(cfg) },
		"philosophers": func(cfg *config.Config) { runPhilosophers(cfg, *detect) },
		"mmap":         func(cfg *config.Config) { runMmap(cfg) },
	}
	order := []string{"stride", "philosophers", "mmap"}

	if *scenario != "all" {
		run, ok := scenarios[*scenario]
		if !ok {
			log.Fatalf("Unknown scenario %q", *scenario)
		}
		run(cfg)
		return
	}
	for _, name := range order {
		scenarios[name](cfg)
		fmt.Println()
	}
	fmt.Println("=== Demo Complete ===")
}

func newKernel(cfg *config.Config) *kernel.Kernel {
	k, err := kernel.New(cfg, klog.New(cfg.LogLevel, os.Stderr))
	if err != nil {
		log.Fatalf("Failed to create kernel: %v", err)
	}
	return k
}

func runStride(cfg *config.Config) {
	fmt.Println("--- Stride Scheduling ---")
	k := newKernel(cfg)
	p, err := k.CreateProcess("stride")
	if err != nil {
		log.Fatalf("Failed to create process: %v", err)
	}

	const slices = 600
	total := 0
	priorities := []uint64{2, 4, 6, 8}
	counts := make([]int, len(priorities))
	for i, prio := range priorities {
		_, err := k.Spawn(p, prio, func() {
			for total < slices {
				counts[i]++
				total++
				_ = k.Yield()
			}
		})
		if err != nil {
			log.Fatalf("Failed to spawn task: %v", err)
		}
	}

	if err := k.Run(context.Background()); err != nil {
		log.Fatalf("Run failed: %v", err)
	}
	for i, prio := range priorities {
		fmt.Printf("priority %d: %d slices (%.1f%%)\n", prio, counts[i], 100*float64(counts[i])/float64(total))
	}
}

func runPhilosophers(cfg *config.Config, detect bool) {
	fmt.Printf("--- Dining Philosophers (detection=%v) ---\n", detect)
	const n, meals = 5, 3

	k := newKernel(cfg)
	p, err := k.CreateProcess("philosophers")
	if err != nil {
		log.Fatalf("Failed to create process: %v", err)
	}

	eaten := make([]int, n)
	refused := 0
	_, err = k.Spawn(p, 0, func() {
		_ = k.SetDeadlockDetection(detect)
		forks := make([]int, n)
		for i := range forks {
			forks[i], _ = k.LockCreate(true)
		}
		for i := 0; i < n; i++ {
			left, right := forks[i], forks[(i+1)%n]
			_, _ = k.ThreadCreate(func() {
				for eaten[i] < meals {
					if err := k.LockAcquire(left); err != nil {
						_ = k.Yield()
						continue
					}
					_ = k.Yield()
					if err := k.LockAcquire(right); err != nil {
						refused++
						_ = k.LockRelease(left)
						_ = k.Sleep(1)
						continue
					}
					eaten[i]++
					_ = k.Sleep(5)
					_ = k.LockRelease(right)
					_ = k.LockRelease(left)
					_ = k.Yield()
				}
			})
		}
	})
	if err != nil {
		log.Fatalf("Failed to spawn task: %v", err)
	}

	err = k.Run(context.Background())
	switch {
	case errors.Is(err, process.ErrStalled):
		fmt.Println("Every philosopher holds one fork and waits for another: deadlock")
	case err != nil:
		log.Fatalf("Run failed: %v", err)
	default:
		fmt.Printf("All philosophers ate %d meals, %d requests refused, %d ms virtual time\n",
			meals, refused, k.GetTimeMs())
	}
	fmt.Printf("Meals: %v\n", eaten)
}

func runMmap(cfg *config.Config) {
	fmt.Println("--- Anonymous Mappings ---")
	const base = 0x1000_0000

	k := newKernel(cfg)
	p, err := k.CreateProcess("mmap")
	if err != nil {
		log.Fatalf("Failed to create process: %v", err)
	}

	steps := []struct {
		name  string
		id    int
		start uint64
		len   uint64
		port  uint64
	}{
		{"mmap rw 4 pages", kernel.SysMmap, base, 4 * mm.PageSize, 3},
		{"mmap overlapping", kernel.SysMmap, base + mm.PageSize, mm.PageSize, 1},
		{"mmap misaligned", kernel.SysMmap, base + 10, mm.PageSize, 1},
		{"mmap no access", kernel.SysMmap, base + 8*mm.PageSize, mm.PageSize, 0},
		{"munmap tail past end", kernel.SysMunmap, base + 2*mm.PageSize, 4 * mm.PageSize, 0},
		{"munmap all", kernel.SysMunmap, base, 4 * mm.PageSize, 0},
	}

	_, err = k.Spawn(p, 0, func() {
		for _, s := range steps {
			ret := k.Syscall(s.id, s.start, s.len, s.port)
			fmt.Printf("%-22s -> %3d  mapped pages: %d  free frames: %d\n",
				s.name, ret, len(p.Memory.MappedPages()), k.Frames().Free())
		}
	})
	if err != nil {
		log.Fatalf("Failed to spawn task: %v", err)
	}
	if err := k.Run(context.Background()); err != nil {
		log.Fatalf("Run failed: %v", err)
	}
}
