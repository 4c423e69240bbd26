// Package redis moves slot identity out of process. Free identifiers live
// in a shared Redis list; leasing pops the head, returning pushes the tail,
// so identifiers recycle in release order exactly like the in-process
// pools. Several processes draw from one capacity this way.
//
// Conservation across processes is operator-assisted: a process that dies
// holding a lease loses it, and slotctl reseeds the set. The pool itself
// never invents identifiers.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/edirooss/taskslot/internal/slotpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var (
	freeKey     = "taskslot:slots:free"     // LIST of free slot ids, head = next lease
	capacityKey = "taskslot:slots:capacity" // STRING, seeded slot-set size
)

// releaseTimeout bounds the fire-and-forget return of a lease.
const releaseTimeout = 3 * time.Second

// blpopInterval is the per-round block time; rounds loop until an
// identifier arrives or ctx ends.
const blpopInterval = time.Second

var _ slotpool.Source = (*LeasePool)(nil)

// LeasePool leases slot identities out of a shared Redis list.
// Seed or Open must succeed before leases move.
type LeasePool struct {
	client   *Client
	log      *zap.Logger
	capacity int // set once by Seed/Open/Reset, before concurrent use
}

// NewLeasePool wires a pool over client.
func NewLeasePool(client *Client, log *zap.Logger) *LeasePool {
	return &LeasePool{
		client: client,
		log:    log.Named("leasepool"),
	}
}

// Seed initializes the shared slot set to [0, capacity). The first caller
// wins; repeating with the same capacity is a no-op, a different capacity
// is an error (Reset changes size).
func (p *LeasePool) Seed(ctx context.Context, capacity int) error {
	if capacity <= 0 {
		return fmt.Errorf("capacity must be positive, got %d", capacity)
	}

	ok, err := p.client.SetNX(ctx, capacityKey, capacity, 0).Result()
	if err != nil {
		return fmt.Errorf("setnx: %w", err)
	}
	if !ok {
		existing, err := p.client.Get(ctx, capacityKey).Int()
		if err != nil {
			return fmt.Errorf("get capacity: %w", err)
		}
		if existing != capacity {
			return fmt.Errorf("already seeded with capacity %d", existing)
		}
		p.capacity = capacity
		return nil
	}

	if err := p.fill(ctx, capacity); err != nil {
		return err
	}
	p.capacity = capacity
	p.log.Info("slot set seeded", zap.Int("capacity", capacity))
	return nil
}

// Open loads the seeded capacity. Errors if the slot set was never seeded.
func (p *LeasePool) Open(ctx context.Context) error {
	capacity, err := p.client.Get(ctx, capacityKey).Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return errors.New("slot set not seeded (run slotctl -seed)")
		}
		return fmt.Errorf("get capacity: %w", err)
	}
	p.capacity = capacity
	return nil
}

// Acquire leases the head of the free list, blocking while it is empty.
// Returns -1 with the ctx error on cancellation.
func (p *LeasePool) Acquire(ctx context.Context) (int, error) {
	p.mustBeOpen()

	for {
		if err := ctx.Err(); err != nil {
			return -1, err
		}

		vals, err := p.client.BLPop(ctx, blpopInterval, freeKey).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				// Round elapsed with the list still empty.
				continue
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return -1, ctxErr
			}
			return -1, fmt.Errorf("blpop: %w", err)
		}

		id, err := strconv.Atoi(vals[1])
		if err != nil {
			return -1, fmt.Errorf("parse lease %q: %w", vals[1], err)
		}
		return id, nil
	}
}

// Release returns a leased identifier to the tail of the free list.
// Redis failures are logged, not returned: the identifier stays lost until
// an operator reseeds, and the pool keeps serving the rest.
func (p *LeasePool) Release(id int) {
	p.mustBeOpen()
	if id < 0 || id >= p.capacity {
		panic(fmt.Sprintf("taskslot: Release(%d) of an identifier outside [0, %d)", id, p.capacity))
	}

	ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
	defer cancel()

	if err := p.client.RPush(ctx, freeKey, id).Err(); err != nil {
		p.log.Error("lease not returned, repair with slotctl -reset",
			zap.Int("slot", id),
			zap.Error(err),
		)
	}
}

// Capacity returns the seeded slot-set size.
func (p *LeasePool) Capacity() int {
	p.mustBeOpen()
	return p.capacity
}

// Stat reports the free and seeded counts. capacity is 0 when the set was
// never seeded.
func (p *LeasePool) Stat(ctx context.Context) (free, capacity int, err error) {
	n, err := p.client.LLen(ctx, freeKey).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("llen: %w", err)
	}

	capacity, err = p.client.Get(ctx, capacityKey).Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return int(n), 0, nil
		}
		return 0, 0, fmt.Errorf("get capacity: %w", err)
	}
	return int(n), capacity, nil
}

// Reset forces the slot set back to a full free list of [0, capacity).
// Outstanding leases become invalid: returning one re-adds an identifier
// that is already free, so Reset belongs to quiesced maintenance windows.
func (p *LeasePool) Reset(ctx context.Context, capacity int) error {
	if capacity <= 0 {
		return fmt.Errorf("capacity must be positive, got %d", capacity)
	}

	if err := p.client.Set(ctx, capacityKey, capacity, 0).Err(); err != nil {
		return fmt.Errorf("set capacity: %w", err)
	}
	if err := p.fill(ctx, capacity); err != nil {
		return err
	}
	p.capacity = capacity
	p.log.Warn("slot set reset", zap.Int("capacity", capacity))
	return nil
}

// Drain empties the free list so no further leases are granted until a
// reseed. Returns the number of identifiers removed.
func (p *LeasePool) Drain(ctx context.Context) (int, error) {
	n, err := p.client.LLen(ctx, freeKey).Result()
	if err != nil {
		return 0, fmt.Errorf("llen: %w", err)
	}
	if err := p.client.Del(ctx, freeKey).Err(); err != nil {
		return 0, fmt.Errorf("del: %w", err)
	}
	p.log.Warn("free list drained", zap.Int("removed", int(n)))
	return int(n), nil
}

// fill replaces the free list with [0, capacity) in ascending order.
func (p *LeasePool) fill(ctx context.Context, capacity int) error {
	ids := make([]interface{}, capacity)
	for i := range ids {
		ids[i] = i
	}

	pipe := p.client.TxPipeline()
	pipe.Del(ctx, freeKey)
	pipe.RPush(ctx, freeKey, ids...)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("exec: %w", err)
	}
	return nil
}

func (p *LeasePool) mustBeOpen() {
	if p.capacity <= 0 {
		panic("taskslot: lease pool used before Seed/Open")
	}
}
