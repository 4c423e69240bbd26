package workload

import "sync/atomic"

// tracker accumulates the live counters behind a Report. All methods are
// safe for concurrent use from leaf bodies.
type tracker struct {
	iterations atomic.Int64
	holders    atomic.Int64
	peak       atomic.Int64
	perSlot    []atomic.Uint64
}

func newTracker(capacity int) *tracker {
	return &tracker{perSlot: make([]atomic.Uint64, capacity)}
}

// enter records a slot checkout and pushes the holder high-water mark.
func (t *tracker) enter(slot int) {
	t.perSlot[slot].Add(1)
	cur := t.holders.Add(1)
	for {
		peak := t.peak.Load()
		if cur <= peak || t.peak.CompareAndSwap(peak, cur) {
			return
		}
	}
}

// exit records the matching release.
func (t *tracker) exit() {
	t.holders.Add(-1)
}

// done records one completed leaf iteration.
func (t *tracker) done() {
	t.iterations.Add(1)
}

func (t *tracker) slotCounts() []uint64 {
	out := make([]uint64, len(t.perSlot))
	for i := range t.perSlot {
		out[i] = t.perSlot[i].Load()
	}
	return out
}
