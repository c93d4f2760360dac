package mm

import (
	"fmt"
	"sync"
)

// FrameAllocator hands out physical frames from a fixed pool. Freed frames
// are reused before untouched ones.
type FrameAllocator struct {
	mu       sync.Mutex
	current  PhysPageNum
	end      PhysPageNum
	recycled []PhysPageNum
	inUse    map[PhysPageNum]struct{}
}

// NewFrameAllocator creates an allocator over frames [base, base+count).
func NewFrameAllocator(base PhysPageNum, count int) *FrameAllocator {
	return &FrameAllocator{
		current: base,
		end:     base + PhysPageNum(count),
		inUse:   make(map[PhysPageNum]struct{}),
	}
}

// Alloc returns one frame.
func (f *FrameAllocator) Alloc() (PhysPageNum, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.allocLocked()
}

// AllocN returns n frames or none at all.
func (f *FrameAllocator) AllocN(n int) ([]PhysPageNum, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.freeLocked() < n {
		return nil, fmt.Errorf("%w: want %d, have %d", ErrOutOfFrames, n, f.freeLocked())
	}
	frames := make([]PhysPageNum, 0, n)
	for i := 0; i < n; i++ {
		ppn, err := f.allocLocked()
		if err != nil {
			return nil, err
		}
		frames = append(frames, ppn)
	}
	return frames, nil
}

func (f *FrameAllocator) allocLocked() (PhysPageNum, error) {
	var ppn PhysPageNum
	if n := len(f.recycled); n > 0 {
		ppn = f.recycled[n-1]
		f.recycled = f.recycled[:n-1]
	} else if f.current < f.end {
		ppn = f.current
		f.current++
	} else {
		return 0, ErrOutOfFrames
	}
	f.inUse[ppn] = struct{}{}
	return ppn, nil
}

// Dealloc returns a frame to the pool.
func (f *FrameAllocator) Dealloc(ppn PhysPageNum) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.inUse[ppn]; !ok {
		return fmt.Errorf("%w: frame %#x", ErrFrameNotAllocated, uint64(ppn))
	}
	delete(f.inUse, ppn)
	f.recycled = append(f.recycled, ppn)
	return nil
}

// Free returns the number of frames still available.
func (f *FrameAllocator) Free() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.freeLocked()
}

func (f *FrameAllocator) freeLocked() int {
	return int(f.end-f.current) + len(f.recycled)
}
