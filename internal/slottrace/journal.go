// Package slottrace keeps a bounded activity journal for each slot of a
// fixed-capacity pool. Workload iterations record completed holds; the
// status API reads them back newest first. Recording is cheap enough to
// sit on the hot path of a leaf task.
package slottrace

// Journal is the per-slot hold journal.
// The slot set is fixed at construction; all methods are safe for
// concurrent use.
type Journal struct {
	rings []*ring // index = slot identifier
}

// NewJournal builds a journal for slots [0, capacity).
// Panics if capacity is not positive.
func NewJournal(capacity int) *Journal {
	if capacity <= 0 {
		panic("slottrace: capacity must be positive")
	}
	rings := make([]*ring, capacity)
	for i := range rings {
		rings[i] = new(ring)
	}
	return &Journal{rings: rings}
}

// Record appends a completed hold to the slot's ring.
func (j *Journal) Record(slot int, h Hold) {
	j.ring(slot).append(h)
}

// Recent returns the last n holds of a slot, newest first.
// n <= 0 means "all retained".
func (j *Journal) Recent(slot, n int) []Hold {
	return j.ring(slot).read(n)
}

// Total returns the cumulative number of holds recorded for a slot,
// including records the ring has since overwritten.
func (j *Journal) Total(slot int) uint64 {
	return j.ring(slot).count()
}

// Totals returns the cumulative hold count for every slot, indexed by
// slot identifier.
func (j *Journal) Totals() []uint64 {
	out := make([]uint64, len(j.rings))
	for i, r := range j.rings {
		out[i] = r.count()
	}
	return out
}

// Capacity returns the size of the slot set the journal covers.
func (j *Journal) Capacity() int { return len(j.rings) }

func (j *Journal) ring(slot int) *ring {
	if slot < 0 || slot >= len(j.rings) {
		panic("slottrace: slot identifier out of range")
	}
	return j.rings[slot]
}
