package process

import (
	"fmt"
	"maps"

	"kcore/pkg/deadlock"
)

// ResourceKind separates the id spaces checked by the deadlock detector.
type ResourceKind int

const (
	// KindLock covers lock handles.
	KindLock ResourceKind = iota
	// KindSemaphore covers semaphore handles.
	KindSemaphore

	numKinds
)

func (k ResourceKind) String() string {
	switch k {
	case KindLock:
		return "lock"
	case KindSemaphore:
		return "semaphore"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ResourceID names one handle of one kind within a process.
type ResourceID struct {
	Kind  ResourceKind
	Index int
}

func (r ResourceID) String() string {
	return fmt.Sprintf("%s#%d", r.Kind, r.Index)
}

// ResourceSet is a multiset of handle ids.
type ResourceSet map[int]int

// Add records one more occurrence of id.
func (s ResourceSet) Add(id int) {
	s[id]++
}

// Remove drops one occurrence of id and reports whether one was present.
func (s ResourceSet) Remove(id int) bool {
	n, ok := s[id]
	if !ok {
		return false
	}
	if n <= 1 {
		delete(s, id)
	} else {
		s[id] = n - 1
	}
	return true
}

// Count returns the multiplicity of id.
func (s ResourceSet) Count(id int) int {
	return s[id]
}

// Len returns the total number of occurrences.
func (s ResourceSet) Len() int {
	total := 0
	for _, n := range s {
		total += n
	}
	return total
}

// RecordIntent notes that the task is asking for r.
func (t *Task) RecordIntent(r ResourceID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.requested[r.Kind].Add(r.Index)
}

// WithdrawIntent forgets a request that was refused.
func (t *Task) WithdrawIntent(r ResourceID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.requested[r.Kind].Remove(r.Index)
}

// Grant moves r from the requested set to the held set. It is called by the
// primitive at the moment the resource is handed to the task.
func (t *Task) Grant(r ResourceID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.requested[r.Kind].Remove(r.Index)
	t.held[r.Kind].Add(r.Index)
}

// Release drops one held occurrence of r and reports whether it was held.
func (t *Task) Release(r ResourceID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.held[r.Kind].Remove(r.Index)
}

// Requested returns a copy of the requested set of kind k.
func (t *Task) Requested(k ResourceKind) ResourceSet {
	t.mu.Lock()
	defer t.mu.Unlock()
	return maps.Clone(t.requested[k])
}

// Held returns a copy of the held set of kind k.
func (t *Task) Held(k ResourceKind) ResourceSet {
	t.mu.Lock()
	defer t.mu.Unlock()
	return maps.Clone(t.held[k])
}

// fillRow copies the task's counts of kind k into need and allocation.
// Ids outside the row width are ignored.
func (t *Task) fillRow(k ResourceKind, need, allocation []int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, n := range t.requested[k] {
		if id < len(need) {
			need[id] += n
		}
	}
	for id, n := range t.held[k] {
		if id < len(allocation) {
			allocation[id] += n
		}
	}
}

// Snapshot builds the allocation state of resource kind k over every task of
// the process. available reports the free units of each handle id; ids whose
// slot is empty count as zero.
func (p *Process) Snapshot(k ResourceKind, m int, available func(id int) int) *deadlock.Snapshot {
	tasks := p.Tasks()
	s := deadlock.NewSnapshot(len(tasks), m)
	for j := 0; j < m; j++ {
		s.Work[j] = available(j)
	}
	for i, t := range tasks {
		t.fillRow(k, s.Need[i], s.Allocation[i])
	}
	return s
}

// Referenced reports whether any task of the process requests or holds r.
// A referenced handle stays allocated.
func (p *Process) Referenced(r ResourceID) bool {
	for _, t := range p.Tasks() {
		t.mu.Lock()
		n := t.requested[r.Kind][r.Index] + t.held[r.Kind][r.Index]
		t.mu.Unlock()
		if n > 0 {
			return true
		}
	}
	return false
}
