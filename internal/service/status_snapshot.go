package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/edirooss/taskslot/internal/slotpool"
	"github.com/edirooss/taskslot/internal/soak"
	"go.uber.org/zap"
)

type StatusOptions struct {
	// TTL controls how long the in-memory snapshot is served.
	// 150-400ms works well for ~1s polling; default 250ms.
	TTL time.Duration
	// RefreshTimeout bounds occupancy lookups for a single refresh.
	// Only the remote lease pool does I/O here; default 300ms.
	RefreshTimeout time.Duration
	// Allow serving stale on refresh error (graceful degrade).
	AllowStaleOnError bool
}

func (o *StatusOptions) setDefaults() {
	if o.TTL <= 0 {
		o.TTL = 250 * time.Millisecond
	}
	if o.RefreshTimeout <= 0 {
		o.RefreshTimeout = 300 * time.Millisecond
	}
}

// Snapshot is the assembled status payload. Published snapshots are
// immutable; handlers share them read-only.
type Snapshot struct {
	soak.Status
	Free  *int `json:"free,omitempty"`   // free slots, when the pool exposes counts
	InUse *int `json:"in_use,omitempty"` // held slots, same condition
}

// StatusResult lets the handler set headers/telemetry.
type StatusResult struct {
	Data        Snapshot
	CacheHit    bool
	GeneratedAt time.Time // snapshot timestamp
}

// statusSource is the part of the soak surface the service reads.
type statusSource interface {
	Status() soak.Status
}

type StatusService struct {
	log   *zap.Logger
	soak  statusSource
	slots slotpool.Source

	mu       sync.RWMutex
	cache    Snapshot
	hasCache bool
	expires  time.Time
	genAt    time.Time

	opts StatusOptions
	now  func() time.Time

	sg singleflight.Group
}

// NewStatusService wires the soak view and cache policy.
// Reuse a single instance per process (handlers call Get()).
func NewStatusService(log *zap.Logger, src statusSource, slots slotpool.Source, opts StatusOptions) *StatusService {
	opts.setDefaults()

	return &StatusService{
		log:   log.Named("status_service"),
		soak:  src,
		slots: slots,
		opts:  opts,
		now:   time.Now,
	}
}

// Get returns the cached snapshot or refreshes it when expired.
// Multiple concurrent refreshes are coalesced.
func (s *StatusService) Get(ctx context.Context) (StatusResult, error) {
	// Fast path: fresh cache
	s.mu.RLock()
	if s.hasCache && s.now().Before(s.expires) {
		out := s.cache
		genAt := s.genAt
		s.mu.RUnlock()
		return StatusResult{Data: out, CacheHit: true, GeneratedAt: genAt}, nil
	}
	s.mu.RUnlock()

	// Slow path: singleflight refresh
	v, err, _ := s.sg.Do("status-refresh", func() (any, error) {
		// Double-check freshness after we won the flight
		s.mu.RLock()
		if s.hasCache && s.now().Before(s.expires) {
			out := s.cache
			genAt := s.genAt
			s.mu.RUnlock()
			return StatusResult{Data: out, CacheHit: true, GeneratedAt: genAt}, nil
		}
		s.mu.RUnlock()

		ctx, cancel := context.WithTimeout(ctx, s.opts.RefreshTimeout)
		defer cancel()

		start := s.now()
		data, err := s.refresh(ctx)
		if err != nil {
			// Refresh failed: optionally serve stale, else propagate error
			if s.opts.AllowStaleOnError {
				s.mu.RLock()
				if s.hasCache {
					out := s.cache
					genAt := s.genAt
					s.mu.RUnlock()
					s.log.Warn("status refresh failed; serving stale", zap.Error(err))
					return StatusResult{Data: out, CacheHit: true, GeneratedAt: genAt}, nil
				}
				s.mu.RUnlock()
			}
			return nil, err
		}

		// Publish new snapshot
		s.mu.Lock()
		s.cache = data
		s.hasCache = true
		s.expires = s.now().Add(s.opts.TTL)
		s.genAt = start
		s.mu.Unlock()

		return StatusResult{Data: data, CacheHit: false, GeneratedAt: start}, nil
	})
	if err != nil {
		return StatusResult{}, err
	}
	return v.(StatusResult), nil
}

func (s *StatusService) Invalidate() {
	s.mu.Lock()
	s.cache = Snapshot{}
	s.hasCache = false
	s.expires = time.Time{}
	s.genAt = time.Time{}
	s.mu.Unlock()
}

// refresh assembles the snapshot: soak state plus pool occupancy. The
// occupancy shape depends on the pool formulation; the remote lease pool
// answers over the wire, the in-process pools answer from counters.
func (s *StatusService) refresh(ctx context.Context) (Snapshot, error) {
	snap := Snapshot{Status: s.soak.Status()}

	switch src := s.slots.(type) {
	case interface {
		Stat(ctx context.Context) (free, capacity int, err error)
	}:
		free, capacity, err := src.Stat(ctx)
		if err != nil {
			return Snapshot{}, fmt.Errorf("stat: %w", err)
		}
		inUse := capacity - free
		snap.Free = &free
		snap.InUse = &inUse
	case interface {
		Free() int
		InUse() int
	}:
		free, inUse := src.Free(), src.InUse()
		snap.Free = &free
		snap.InUse = &inUse
	}
	return snap, nil
}
