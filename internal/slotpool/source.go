// Package slotpool hands out a fixed set of small integer identifiers to
// concurrently running units of work. A unit of work acquires a slot while
// active (typically to index per-worker scratch state), and returns it when it
// finishes; acquisition blocks while all slots are checked out.
//
// Two formulations with identical semantics are provided:
//
//   - Pool: mutex + condition variable over a FIFO free queue
//   - ChanPool: buffered channel pre-seeded with the identifiers
//
// Both guarantee conservation (every identifier is either free or held by
// exactly one caller) and FIFO recycling of identifiers. Which *waiter* is
// served first when several acquirers are blocked is scheduler-dependent;
// only the identifier order is FIFO.
package slotpool

import "context"

// Source is the acquire/release surface shared by all pool formulations,
// including the Redis-backed lease pool for cross-process capacity.
type Source interface {
	// Acquire blocks until a slot identifier is available or ctx ends.
	// On cancellation it returns -1 and the ctx error.
	Acquire(ctx context.Context) (int, error)
	// Release returns a previously acquired identifier to circulation.
	Release(id int)
	// Capacity reports the fixed number of identifiers managed by the pool.
	Capacity() int
}

// WithSlot runs fn while holding a slot identifier from src. The slot is
// returned on every exit path, including a panic inside fn, which removes the
// leak and double-release hazards of manual pairing.
func WithSlot(ctx context.Context, src Source, fn func(ctx context.Context, slot int) error) error {
	slot, err := src.Acquire(ctx)
	if err != nil {
		return err
	}
	defer src.Release(slot)
	return fn(ctx, slot)
}
