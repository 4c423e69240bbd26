package soak

import (
	"container/heap"
	"time"
)

// dueRun is one pending cadence firing.
// index is required for heap.Fix + O(log n) removals.
type dueRun struct {
	cadence int64
	when    time.Time
	index   int
}

// scheduler orders pending firings by due time, one per cadence.
type scheduler struct {
	h runHeap
	// cadence → pending firing, enables selective removal when a
	// cadence is dropped mid-wait.
	entries map[int64]*dueRun
}

func newScheduler() *scheduler {
	h := runHeap{}
	heap.Init(&h)
	return &scheduler{
		h:       h,
		entries: make(map[int64]*dueRun),
	}
}

// push inserts the next firing for a cadence. A still-pending firing for
// the same cadence is replaced.
func (s *scheduler) push(cadence int64, when time.Time) {
	if old, ok := s.entries[cadence]; ok {
		heap.Remove(&s.h, old.index)
		delete(s.entries, cadence)
	}

	r := &dueRun{cadence: cadence, when: when}
	s.entries[cadence] = r
	heap.Push(&s.h, r)
}

// next returns the soonest firing but does not remove it.
func (s *scheduler) next() (cadence int64, when time.Time, ok bool) {
	if len(s.h) == 0 {
		return 0, time.Time{}, false
	}
	r := s.h[0]
	return r.cadence, r.when, true
}

// pop removes the head firing unconditionally.
func (s *scheduler) pop() {
	if len(s.h) == 0 {
		return
	}
	r := heap.Pop(&s.h).(*dueRun)
	delete(s.entries, r.cadence)
}

// remove drops the pending firing for a cadence (if any).
func (s *scheduler) remove(cadence int64) {
	r, ok := s.entries[cadence]
	if !ok {
		return
	}
	heap.Remove(&s.h, r.index)
	delete(s.entries, cadence)
}

// pendingAt reports when a cadence fires next.
func (s *scheduler) pendingAt(cadence int64) (time.Time, bool) {
	r, ok := s.entries[cadence]
	if !ok {
		return time.Time{}, false
	}
	return r.when, true
}

// --- heap internals ----------------------------------------------------------

// runHeap is a min-heap ordered by dueRun.when.
type runHeap []*dueRun

func (h runHeap) Len() int { return len(h) }

func (h runHeap) Less(i, j int) bool {
	return h[i].when.Before(h[j].when)
}

func (h runHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *runHeap) Push(x any) {
	r := x.(*dueRun)
	r.index = len(*h)
	*h = append(*h, r)
}

func (h *runHeap) Pop() any {
	old := *h
	n := len(old)
	r := old[n-1]
	r.index = -1 // mark as removed
	*h = old[:n-1]
	return r
}
