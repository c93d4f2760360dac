package mm

import (
	"fmt"
	"sort"
	"sync"
)

// PageTableEntry is the translation of one virtual page.
type PageTableEntry struct {
	PPN   PhysPageNum
	Flags MapPermission
}

// Valid reports whether the entry maps a frame.
func (e PageTableEntry) Valid() bool { return e.Flags != 0 }

// AddressSpace is the page-table view the mapper needs.
type AddressSpace interface {
	// Translate returns the entry for vpn if one is installed.
	Translate(vpn VirtPageNum) (PageTableEntry, bool)
	// InsertFramedArea backs every page of r with a fresh frame.
	InsertFramedArea(r PageRange, perm MapPermission) error
	// Unmap removes the mapping of vpn.
	Unmap(vpn VirtPageNum) error
}

// MemorySet is an in-memory address space over a shared frame pool.
type MemorySet struct {
	mu     sync.Mutex
	table  map[VirtPageNum]PageTableEntry
	frames *FrameAllocator
}

// NewMemorySet creates an empty address space drawing frames from frames.
func NewMemorySet(frames *FrameAllocator) *MemorySet {
	return &MemorySet{
		table:  make(map[VirtPageNum]PageTableEntry),
		frames: frames,
	}
}

// Translate implements AddressSpace.
func (m *MemorySet) Translate(vpn VirtPageNum) (PageTableEntry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pte, ok := m.table[vpn]
	return pte, ok && pte.Valid()
}

// InsertFramedArea implements AddressSpace. Either the whole range is mapped
// or nothing is.
func (m *MemorySet) InsertFramedArea(r PageRange, perm MapPermission) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var conflict error
	r.Each(func(vpn VirtPageNum) bool {
		if _, ok := m.table[vpn]; ok {
			conflict = fmt.Errorf("%w: page %#x", ErrConflict, uint64(vpn.Addr()))
			return false
		}
		return true
	})
	if conflict != nil {
		return conflict
	}

	frames, err := m.frames.AllocN(r.Len())
	if err != nil {
		return err
	}
	i := 0
	r.Each(func(vpn VirtPageNum) bool {
		m.table[vpn] = PageTableEntry{PPN: frames[i], Flags: perm}
		i++
		return true
	})
	return nil
}

// Unmap implements AddressSpace and releases the backing frame.
func (m *MemorySet) Unmap(vpn VirtPageNum) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	pte, ok := m.table[vpn]
	if !ok {
		return fmt.Errorf("%w: page %#x", ErrNotMapped, uint64(vpn.Addr()))
	}
	delete(m.table, vpn)
	return m.frames.Dealloc(pte.PPN)
}

// MappedPages returns the mapped page numbers in ascending order.
func (m *MemorySet) MappedPages() []VirtPageNum {
	m.mu.Lock()
	defer m.mu.Unlock()

	pages := make([]VirtPageNum, 0, len(m.table))
	for vpn := range m.table {
		pages = append(pages, vpn)
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i] < pages[j] })
	return pages
}

// Recycle unmaps everything and returns all frames to the pool.
func (m *MemorySet) Recycle() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for vpn, pte := range m.table {
		_ = m.frames.Dealloc(pte.PPN)
		delete(m.table, vpn)
	}
}
