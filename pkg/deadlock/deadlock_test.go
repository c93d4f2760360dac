package deadlock

import (
	"reflect"
	"testing"
)

// TestCheckSafe tests a three task, two resource state with a known safe order.
func TestCheckSafe(t *testing.T) {
	work := []int{1, 1}
	need := [][]int{{2, 0}, {1, 1}, {0, 2}}
	allocation := [][]int{{1, 0}, {0, 1}, {1, 0}}

	order, safe := SafeSequence(3, 2, work, need, allocation)
	if !safe {
		t.Fatal("SafeSequence() safe = false, want true")
	}
	if want := []int{1, 2, 0}; !reflect.DeepEqual(order, want) {
		t.Errorf("SafeSequence() order = %v, want %v", order, want)
	}
	if want := []int{3, 2}; !reflect.DeepEqual(work, want) {
		t.Errorf("work after check = %v, want %v", work, want)
	}
}

// TestCheckCyclicWait tests two tasks each holding what the other needs.
func TestCheckCyclicWait(t *testing.T) {
	work := []int{0, 0}
	need := [][]int{{0, 1}, {1, 0}, {0, 0}}
	allocation := [][]int{{1, 0}, {0, 1}, {0, 0}}

	if Check(3, 2, work, need, allocation) {
		t.Error("Check() = true for cyclic wait, want false")
	}
}

func TestCheckTable(t *testing.T) {
	tests := []struct {
		name       string
		work       []int
		need       [][]int
		allocation [][]int
		want       bool
	}{
		{"no tasks", []int{1}, nil, nil, true},
		{"no resources", nil, [][]int{{}, {}}, [][]int{{}, {}}, true},
		{"self relock", []int{0}, [][]int{{1}}, [][]int{{1}}, false},
		{"waiter behind holder", []int{0}, [][]int{{0}, {1}}, [][]int{{1}, {0}}, true},
		{"semaphore shortage", []int{1}, [][]int{{2}, {2}}, [][]int{{1}, {0}}, false},
		{"semaphore enough", []int{1}, [][]int{{2}, {1}}, [][]int{{1}, {1}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Check(len(tt.need), len(tt.work), tt.work, tt.need, tt.allocation)
			if got != tt.want {
				t.Errorf("Check() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSnapshot(t *testing.T) {
	s := NewSnapshot(2, 1)
	if s.Tasks() != 2 || s.Resources() != 1 {
		t.Fatalf("NewSnapshot(2, 1) dims = %d x %d", s.Tasks(), s.Resources())
	}

	s.Work[0] = 0
	s.Allocation[0][0] = 1
	s.Need[1][0] = 1
	if !s.Check() {
		t.Error("Check() = false, want true")
	}

	s = NewSnapshot(2, 1)
	s.Allocation[0][0] = 1
	s.Need[0][0] = 1
	s.Need[1][0] = 1
	if s.Check() {
		t.Error("Check() = true, want false")
	}
}
