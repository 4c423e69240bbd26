package workload

import (
	"fmt"
	"sync"
)

// RunIDs hands out small, human-readable run numbers: increment, wrap,
// skip numbers still attached to a live run. Keeps log lines and status
// output short-lived-unique without dragging UUIDs into a demo harness.
type RunIDs struct {
	mu    sync.Mutex
	next  int
	inUse map[int]struct{}
	max   int
}

// NewRunIDs returns an allocator over [1, 9999], starting at 1.
func NewRunIDs() *RunIDs {
	return &RunIDs{
		next:  1,
		max:   9999,
		inUse: make(map[int]struct{}),
	}
}

// Alloc returns the next free run number, or panics if every number is
// attached to a live run. Thousands of concurrent runs means the harness
// is miswired, not busy.
func (a *RunIDs) Alloc() int {
	a.mu.Lock()
	defer a.mu.Unlock()

	start := a.next
	for {
		n := a.next

		a.next++
		if a.next > a.max {
			a.next = 1
		}

		if _, used := a.inUse[n]; !used {
			a.inUse[n] = struct{}{}
			return n
		}

		if a.next == start {
			panic(fmt.Sprintf("run numbers exhausted: 1..%d all live", a.max))
		}
	}
}

// Release returns a run number to the free space.
// No-op on numbers that are not live.
func (a *RunIDs) Release(n int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	delete(a.inUse, n)
}
