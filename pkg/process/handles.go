package process

import (
	"errors"
	"slices"
	"sync"
)

// Handle table errors.
var (
	ErrInvalidHandle = errors.New("invalid handle")
)

// HandleTable maps small integer ids to shared objects. Freed ids are kept on
// a free list and the lowest one is reused before the table grows.
type HandleTable[T any] struct {
	mu    sync.Mutex
	slots []T
	used  []bool
	free  []int // sorted ascending
}

// NewHandleTable creates an empty table.
func NewHandleTable[T any]() *HandleTable[T] {
	return &HandleTable[T]{}
}

// Alloc reserves an id and stores the value built for it. The constructor
// runs with the table locked and must not touch the table.
func (h *HandleTable[T]) Alloc(build func(id int) T) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	var id int
	if len(h.free) > 0 {
		id = h.free[0]
		h.free = h.free[1:]
	} else {
		id = len(h.slots)
		var zero T
		h.slots = append(h.slots, zero)
		h.used = append(h.used, false)
	}
	h.slots[id] = build(id)
	h.used[id] = true
	return id
}

// Insert stores v under a fresh id.
func (h *HandleTable[T]) Insert(v T) int {
	return h.Alloc(func(int) T { return v })
}

// Get returns the value stored under id.
func (h *HandleTable[T]) Get(id int) (T, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if id < 0 || id >= len(h.slots) || !h.used[id] {
		var zero T
		return zero, false
	}
	return h.slots[id], true
}

// Remove frees id and returns the value it held.
func (h *HandleTable[T]) Remove(id int) (T, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var zero T
	if id < 0 || id >= len(h.slots) || !h.used[id] {
		return zero, false
	}
	v := h.slots[id]
	h.slots[id] = zero
	h.used[id] = false
	pos, _ := slices.BinarySearch(h.free, id)
	h.free = slices.Insert(h.free, pos, id)
	return v, true
}

// Cap returns the number of slots, used or free. It is the width of the id
// space seen by the deadlock detector.
func (h *HandleTable[T]) Cap() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.slots)
}

// Len returns the number of live handles.
func (h *HandleTable[T]) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.slots) - len(h.free)
}

// Each calls fn for every live handle in id order. fn runs without the table
// lock held.
func (h *HandleTable[T]) Each(fn func(id int, v T)) {
	h.mu.Lock()
	ids := make([]int, 0, len(h.slots))
	vals := make([]T, 0, len(h.slots))
	for id, ok := range h.used {
		if ok {
			ids = append(ids, id)
			vals = append(vals, h.slots[id])
		}
	}
	h.mu.Unlock()

	for i, id := range ids {
		fn(id, vals[i])
	}
}
