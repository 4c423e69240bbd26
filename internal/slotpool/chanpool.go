package slotpool

import (
	"context"
	"fmt"
	"sync/atomic"
)

// ChanPool is the channel formulation of the slot pool. The buffered channel
// is the free queue: it is pre-seeded with the identifiers [0, capacity) in
// ascending order, acquire receives and release sends. Channel delivery order
// makes the FIFO recycling guarantee structural, and cancellable acquisition
// falls out of select, with the runtime doing the waiter parking that Pool
// does with a condition variable.
//
// A per-identifier ownership ledger catches the same misuse Pool catches:
// double release, release of a never-acquired identifier, use after Close.
type ChanPool struct {
	ids    chan int      // free queue; buffer size is the capacity
	held   []atomic.Bool // held[id] is true while id is checked out
	done   chan struct{} // closed by Close to fail late callers loudly
	closed atomic.Bool
}

// NewChan returns a channel-backed pool managing the identifiers
// [0, capacity), all available. capacity must be positive.
func NewChan(capacity int) *ChanPool {
	if capacity <= 0 {
		panic(fmt.Sprintf("slotpool: capacity %d, want > 0", capacity))
	}

	p := &ChanPool{
		ids:  make(chan int, capacity),
		held: make([]atomic.Bool, capacity),
		done: make(chan struct{}),
	}
	for i := 0; i < capacity; i++ {
		p.ids <- i
	}
	return p
}

// Acquire blocks until an identifier is available or ctx ends, then returns
// the earliest-released free identifier. On cancellation it returns -1 and
// the ctx error without consuming a slot.
func (p *ChanPool) Acquire(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return -1, err
	}

	select {
	case id := <-p.ids:
		p.held[id].Store(true)
		return id, nil
	case <-ctx.Done():
		return -1, ctx.Err()
	case <-p.done:
		panic("slotpool: Acquire woken by Close; teardown ran before all work finished")
	}
}

// AcquireBlocking waits indefinitely for an identifier.
func (p *ChanPool) AcquireBlocking() int {
	select {
	case id := <-p.ids:
		p.held[id].Store(true)
		return id
	case <-p.done:
		panic("slotpool: AcquireBlocking woken by Close; teardown ran before all work finished")
	}
}

// TryAcquire removes and returns a free identifier without blocking.
// It reports false when all slots are checked out.
func (p *ChanPool) TryAcquire() (int, bool) {
	if p.closed.Load() {
		panic("slotpool: TryAcquire after Close")
	}

	select {
	case id := <-p.ids:
		p.held[id].Store(true)
		return id, true
	default:
		return -1, false
	}
}

// Release returns id to the tail of the free queue and unblocks one waiting
// acquirer if any. id must be currently checked out.
//
// The send cannot block: the ledger swap below proves id is in no one's
// hands and not in the queue, so the buffer has room for it.
func (p *ChanPool) Release(id int) {
	if p.closed.Load() {
		panic("slotpool: Release after Close")
	}
	if id < 0 || id >= len(p.held) {
		panic(fmt.Sprintf("slotpool: Release(%d) outside [0, %d)", id, len(p.held)))
	}
	if !p.held[id].CompareAndSwap(true, false) {
		panic(fmt.Sprintf("slotpool: Release(%d) of an identifier that is not checked out", id))
	}
	p.ids <- id
}

// Close discards all pool state. The pool must be idle: every acquired
// identifier released, no acquirer blocked.
func (p *ChanPool) Close() {
	if !p.closed.CompareAndSwap(false, true) {
		panic("slotpool: Close twice")
	}
	if n := cap(p.ids) - len(p.ids); n > 0 {
		panic(fmt.Sprintf("slotpool: Close with %d slot(s) still held", n))
	}

	close(p.done)
	for {
		select {
		case <-p.ids:
		default:
			return
		}
	}
}

// Capacity reports the fixed identifier count. Immutable after NewChan.
func (p *ChanPool) Capacity() int { return cap(p.ids) }

// Free reports how many identifiers are currently available. The value is a
// snapshot and may be stale by the time the caller reads it.
func (p *ChanPool) Free() int { return len(p.ids) }

// InUse reports how many identifiers are currently checked out. Snapshot
// semantics, same as Free.
func (p *ChanPool) InUse() int { return cap(p.ids) - len(p.ids) }
