// Package soak keeps workloads running on cadences for long observation.
// One loop owns a due-time heap; runs execute one at a time and publish
// reports the status API reads back.
package soak

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/edirooss/taskslot/internal/runner"
	"github.com/edirooss/taskslot/internal/slotpool"
	"github.com/edirooss/taskslot/internal/slottrace"
	"github.com/edirooss/taskslot/internal/workload"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// historyLimit bounds retained run reports.
const historyLimit = 32

// Cadence names a workload and how often it reruns.
type Cadence struct {
	Workload string        `yaml:"workload" json:"workload"`
	Every    time.Duration `yaml:"every" json:"every"`
}

// Current describes the run in flight.
type Current struct {
	Workload  string    `json:"workload"`
	Run       int       `json:"run"`
	StartedAt time.Time `json:"started_at"`
}

// CadenceStatus is one registered cadence plus its next firing.
type CadenceStatus struct {
	ID     int64     `json:"id"`
	Cadence
	NextAt time.Time `json:"next_at,omitempty"`
}

// Status is a point-in-time view of the soak state.
type Status struct {
	Backend  string             `json:"backend"`
	Capacity int                `json:"capacity"`
	Current  *Current           `json:"current,omitempty"`
	Cadences []CadenceStatus    `json:"cadences"`
	Recent   []*workload.Report `json:"recent"` // newest first
}

// Soak runs registered cadences against one pool and backend.
//
// Concurrency model:
//   - All mutable state (cadences, sched, history, current) is protected
//     by a single mutex s.mu.
//   - The loop never holds s.mu across a run; a run can take minutes.
//   - sig is a coalescing wake-up: cadence changes poke the loop so it
//     re-reads the heap head instead of sleeping toward a stale deadline.
//
// Runs execute sequentially. A cadence reschedules after its run
// completes, at completion time plus Every, so a run longer than its
// cadence delays the next firing instead of stacking runs.
type Soak struct {
	log     *zap.Logger
	backend runner.Backend
	slots   slotpool.Source
	journal *slottrace.Journal
	runids  *workload.RunIDs
	unit    time.Duration
	pace    rate.Limit

	mu       sync.Mutex
	cadences map[int64]Cadence
	nextID   int64
	sched    *scheduler
	history  []*workload.Report // newest first
	current  *Current

	sig chan struct{}
}

// Options tunes the runs a Soak launches.
type Options struct {
	Unit time.Duration // base sleep unit passed to every run
	Pace rate.Limit    // burst submission pacing, 0 = unpaced
}

// New constructs an idle Soak. Cadences are added separately; Run starts
// the loop.
func New(log *zap.Logger, backend runner.Backend, slots slotpool.Source, journal *slottrace.Journal, opts Options) *Soak {
	return &Soak{
		log:     log.Named("soak"),
		backend: backend,
		slots:   slots,
		journal: journal,
		runids:  workload.NewRunIDs(),
		unit:    opts.Unit,
		pace:    opts.Pace,

		cadences: make(map[int64]Cadence),
		sched:    newScheduler(),
		sig:      make(chan struct{}, 1), // coalescing wake-up
	}
}

// AddCadence registers a cadence and schedules its first run immediately.
// Returns the cadence id for later removal.
func (s *Soak) AddCadence(c Cadence) (int64, error) {
	if _, err := workload.ByName(c.Workload); err != nil {
		return 0, err
	}
	if c.Every <= 0 {
		return 0, fmt.Errorf("cadence for %q: every must be positive, got %v", c.Workload, c.Every)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	id := s.nextID
	s.cadences[id] = c
	s.scheduleUnsafe(id, 0)

	s.log.Info("cadence added",
		zap.Int64("id", id),
		zap.String("workload", c.Workload),
		zap.Duration("every", c.Every),
	)
	return id, nil
}

// RemoveCadence drops a cadence and its pending firing. A run already in
// flight finishes.
func (s *Soak) RemoveCadence(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.cadences[id]; !exists {
		return
	}
	delete(s.cadences, id)
	s.sched.remove(id)
	s.log.Info("cadence removed", zap.Int64("id", id))
}

// Status snapshots the soak state.
func (s *Soak) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		Backend:  s.backend.Name(),
		Capacity: s.slots.Capacity(),
		Current:  s.current,
		Cadences: make([]CadenceStatus, 0, len(s.cadences)),
		Recent:   make([]*workload.Report, len(s.history)),
	}
	copy(st.Recent, s.history)

	for id, c := range s.cadences {
		cs := CadenceStatus{ID: id, Cadence: c}
		if at, ok := s.sched.pendingAt(id); ok {
			cs.NextAt = at
		}
		st.Cadences = append(st.Cadences, cs)
	}
	return st
}

// Run drives the loop until ctx ends. Always returns the ctx error.
func (s *Soak) Run(ctx context.Context) error {
	s.log.Info("soak loop started", zap.String("backend", s.backend.Name()), zap.Int("n_slots", s.slots.Capacity()))

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		s.mu.Lock()
		id, when, ok := s.sched.next()

		if !ok {
			s.mu.Unlock()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-s.sig:
			}
			continue
		}

		if delay := time.Until(when); delay > 0 {
			arm(timer, delay)
			s.mu.Unlock()

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-timer.C:
			case <-s.sig:
			}
			continue
		}

		// Fire: detach the head, then run without the lock.
		s.sched.pop()
		c, live := s.cadences[id]
		s.mu.Unlock()

		if !live {
			continue
		}
		s.runOnce(ctx, id, c)
	}
}

// runOnce executes one firing and reschedules the cadence.
func (s *Soak) runOnce(ctx context.Context, id int64, c Cadence) {
	run := s.runids.Alloc()
	defer s.runids.Release(run)

	s.mu.Lock()
	s.current = &Current{Workload: c.Workload, Run: run, StartedAt: time.Now()}
	s.mu.Unlock()

	rep, err := workload.Run(ctx, c.Workload, workload.Params{
		Backend: s.backend,
		Slots:   s.slots,
		Log:     s.log,
		Journal: s.journal,
		Run:     run,
		Unit:    s.unit,
		Pace:    s.pace,
	})
	if err != nil {
		// The report carries the error; the loop exits on the next
		// iteration if ctx is the cause.
		s.log.Warn("run failed", zap.Int64("cadence", id), zap.Int("run", run), zap.Error(err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = nil
	if rep != nil {
		s.recordUnsafe(rep)
	}

	// Reschedule only cadences still registered.
	if _, exists := s.cadences[id]; exists {
		s.scheduleUnsafe(id, c.Every)
	}
}

// recordUnsafe prepends a report and trims the history to its bound.
// Caller holds s.mu.
func (s *Soak) recordUnsafe(rep *workload.Report) {
	s.history = append([]*workload.Report{rep}, s.history...)
	if len(s.history) > historyLimit {
		s.history = s.history[:historyLimit]
	}
}

// scheduleUnsafe pushes the next firing and pokes the loop.
// Caller holds s.mu.
func (s *Soak) scheduleUnsafe(id int64, after time.Duration) {
	s.sched.push(id, time.Now().Add(after))

	select {
	case s.sig <- struct{}{}:
	default:
	}
}

// arm resets a possibly armed, possibly fired timer to d.
func arm(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}
