/*
Package deadlock implements the Banker's safety check used to refuse
acquisitions that would leave a process unable to finish.

The check works on a snapshot of one resource kind:

  - work[j] is the number of free units of resource j
  - need[i][j] is how many units of j task i is still asking for
  - allocation[i][j] is how many units of j task i currently holds

A state is safe when some order exists in which every task can have its need
satisfied from work, finish, and return its allocation to work.
*/
package deadlock

// SafeSequence runs the safety check over n tasks and m resources. It returns
// the completion order it found and whether every task finished. work is used
// as scratch space and holds the final free vector on return.
func SafeSequence(n, m int, work []int, need, allocation [][]int) ([]int, bool) {
	finish := make([]bool, n)
	order := make([]int, 0, n)

	for {
		progressed := false
		for i := 0; i < n; i++ {
			if finish[i] || !fits(m, need[i], work) {
				continue
			}
			for j := 0; j < m; j++ {
				work[j] += allocation[i][j]
			}
			finish[i] = true
			order = append(order, i)
			progressed = true
			break
		}
		if !progressed {
			break
		}
	}

	return order, len(order) == n
}

// Check reports whether the state is safe. It mutates work.
func Check(n, m int, work []int, need, allocation [][]int) bool {
	_, safe := SafeSequence(n, m, work, need, allocation)
	return safe
}

func fits(m int, need, work []int) bool {
	for j := 0; j < m; j++ {
		if need[j] > work[j] {
			return false
		}
	}
	return true
}

// Snapshot is the allocation state of one acquisition attempt.
type Snapshot struct {
	Work       []int
	Need       [][]int
	Allocation [][]int
}

// NewSnapshot allocates a zeroed snapshot for n tasks and m resources.
func NewSnapshot(n, m int) *Snapshot {
	s := &Snapshot{
		Work:       make([]int, m),
		Need:       make([][]int, n),
		Allocation: make([][]int, n),
	}
	for i := 0; i < n; i++ {
		s.Need[i] = make([]int, m)
		s.Allocation[i] = make([]int, m)
	}
	return s
}

// Tasks returns the number of task rows.
func (s *Snapshot) Tasks() int { return len(s.Need) }

// Resources returns the number of resource columns.
func (s *Snapshot) Resources() int { return len(s.Work) }

// Check runs the safety check. The snapshot's work vector is consumed.
func (s *Snapshot) Check() bool {
	return Check(s.Tasks(), s.Resources(), s.Work, s.Need, s.Allocation)
}
