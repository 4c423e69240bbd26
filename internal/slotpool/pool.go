package slotpool

import (
	"context"
	"fmt"
	"sync"
)

// Pool is the condition-variable formulation of the slot pool: a mutex guards
// a FIFO queue of free identifiers plus an ownership ledger, and a condition
// variable parks acquirers while the queue is empty. Release inserts one
// identifier and signals exactly one waiter; a single insertion can satisfy
// exactly one blocked acquire, so waking more would only cause wake-storms.
//
// Identifiers are the integers [0, capacity). At construction the queue holds
// them in ascending order; afterwards the queue order is the release order.
//
// Misuse is a caller bug, not an operational error, and fails loudly:
// releasing an identifier that is not currently held, using the pool after
// Close, or closing it while slots are still held all panic.
type Pool struct {
	mu     sync.Mutex
	cond   *sync.Cond
	free   []int            // FIFO queue of available identifiers
	held   map[int]struct{} // identifiers currently checked out
	size   int
	closed bool
}

// New returns a pool managing the identifiers [0, capacity), all available.
// capacity must be positive.
func New(capacity int) *Pool {
	if capacity <= 0 {
		panic(fmt.Sprintf("slotpool: capacity %d, want > 0", capacity))
	}

	p := &Pool{
		free: make([]int, capacity),
		held: make(map[int]struct{}, capacity),
		size: capacity,
	}
	for i := range p.free {
		p.free[i] = i
	}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// Acquire blocks until an identifier is available or ctx ends, then removes
// and returns the earliest-released free identifier. On cancellation it
// returns -1 and the ctx error without consuming a slot.
func (p *Pool) Acquire(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return -1, err
	}

	// The condition variable cannot wake one specific waiter, so a cancelled
	// context broadcasts and every waiter re-checks its own ctx. Release
	// still signals a single waiter; only cancellation pays the broadcast.
	stop := context.AfterFunc(ctx, func() {
		p.mu.Lock()
		p.cond.Broadcast()
		p.mu.Unlock()
	})
	defer stop()

	p.mu.Lock()
	defer p.mu.Unlock()

	for len(p.free) == 0 {
		if p.closed {
			panic("slotpool: Acquire woken by Close; teardown ran before all work finished")
		}
		if err := ctx.Err(); err != nil {
			return -1, err
		}
		p.cond.Wait()
	}
	return p.checkout(), nil
}

// AcquireBlocking is Acquire without a cancellation path: it waits
// indefinitely for an identifier. Intended for callers that own the
// pool lifecycle and cannot observe cancellation anyway.
func (p *Pool) AcquireBlocking() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	for len(p.free) == 0 {
		if p.closed {
			panic("slotpool: AcquireBlocking woken by Close; teardown ran before all work finished")
		}
		p.cond.Wait()
	}
	return p.checkout()
}

// TryAcquire removes and returns a free identifier without blocking.
// It reports false when all slots are checked out.
func (p *Pool) TryAcquire() (int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		panic("slotpool: TryAcquire after Close")
	}
	if len(p.free) == 0 {
		return -1, false
	}
	return p.checkout(), true
}

// checkout pops the head of the free queue and records ownership.
// Caller holds p.mu.
func (p *Pool) checkout() int {
	id := p.free[0]
	p.free = p.free[1:]
	p.held[id] = struct{}{}
	return id
}

// Release returns id to the tail of the free queue and wakes one blocked
// acquirer if any are waiting. id must be currently checked out.
func (p *Pool) Release(id int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		panic("slotpool: Release after Close")
	}
	if _, ok := p.held[id]; !ok {
		panic(fmt.Sprintf("slotpool: Release(%d) of an identifier that is not checked out", id))
	}

	delete(p.held, id)
	p.free = append(p.free, id)
	p.cond.Signal()
}

// Close discards all pool state. The pool must be idle: every acquired
// identifier released, no acquirer blocked. A fresh computation constructs a
// fresh pool rather than reusing a closed one.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		panic("slotpool: Close twice")
	}
	if n := len(p.held); n > 0 {
		panic(fmt.Sprintf("slotpool: Close with %d slot(s) still held", n))
	}

	p.closed = true
	p.free = nil
	p.held = nil
	// With nothing held there can be no waiters; one that exists anyway
	// must fail loudly rather than hang forever.
	p.cond.Broadcast()
}

// Capacity reports the fixed identifier count. Immutable after New.
func (p *Pool) Capacity() int { return p.size }

// Free reports how many identifiers are currently available.
func (p *Pool) Free() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.free)
}

// InUse reports how many identifiers are currently checked out.
func (p *Pool) InUse() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.held)
}
