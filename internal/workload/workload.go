// Package workload ships the demo scenarios that exercise a slot pool
// through a parallel backend.
//
// Every scenario decomposes into leaf units of work, and every leaf follows
// one discipline: acquire a slot, hold it for a cancellable sleep, log the
// finish, release. Slots are never held across child spawns or region
// waits, which is what keeps a pool smaller than the live task count free
// of deadlock.
//
// Scenario shapes vary to stress different pool behaviors: staggered task
// durations, uniform fan-out, one wide flat loop, a burst of thousands of
// independent tasks, and nested parallel-for regions.
package workload

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/edirooss/taskslot/internal/runner"
	"github.com/edirooss/taskslot/internal/slotpool"
	"github.com/edirooss/taskslot/internal/slottrace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Params carries the runtime dependencies and tuning of one run.
type Params struct {
	Backend runner.Backend
	Slots   slotpool.Source
	Log     *zap.Logger        // nil means discard
	Journal *slottrace.Journal // optional per-slot hold journal
	Run     int                // run number for logs and the journal

	// Unit is the base sleep duration leaves scale. The demo shapes were
	// tuned around one second; milliseconds keep test runs short.
	Unit time.Duration

	// Pace caps task submissions per second in burst scenarios.
	// 0 means unpaced.
	Pace rate.Limit
}

// Workload is one named, runnable scenario.
type Workload struct {
	Name string
	Desc string
	run  func(ctx context.Context, e *execution) error
}

// Run executes the scenario and returns its report. The returned error is
// also recorded on the report; a report is returned in both cases.
func (w Workload) Run(ctx context.Context, p Params) (*Report, error) {
	log := p.Log
	if log == nil {
		log = zap.NewNop()
	}

	e := &execution{
		backend: p.Backend,
		slots:   p.Slots,
		journal: p.Journal,
		log:     log,
		track:   newTracker(p.Slots.Capacity()),
		run:     p.Run,
		unit:    p.Unit,
		pace:    p.Pace,
	}

	log.Info("begin",
		zap.String("workload", w.Name),
		zap.Int("run", p.Run),
		zap.String("backend", p.Backend.Name()),
		zap.Int("n_slots", p.Slots.Capacity()),
	)

	started := time.Now()
	err := w.run(ctx, e)
	elapsed := time.Since(started)

	rep := &Report{
		Workload:   w.Name,
		Run:        p.Run,
		Backend:    p.Backend.Name(),
		Capacity:   p.Slots.Capacity(),
		Iterations: e.track.iterations.Load(),
		PerSlot:    e.track.slotCounts(),
		PeakHeld:   e.track.peak.Load(),
		Elapsed:    elapsed,
		StartedAt:  started,
	}
	if err != nil {
		rep.Error = err.Error()
		log.Warn("end",
			zap.String("workload", w.Name),
			zap.Int("run", p.Run),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
		return rep, err
	}

	log.Info("end",
		zap.String("workload", w.Name),
		zap.Int("run", p.Run),
		zap.Int("n_slots", p.Slots.Capacity()),
		zap.Int64("iterations", rep.Iterations),
		zap.Int64("peak_held", rep.PeakHeld),
		zap.Duration("elapsed", elapsed),
	)
	return rep, nil
}

// Run executes the named scenario.
func Run(ctx context.Context, name string, p Params) (*Report, error) {
	w, err := ByName(name)
	if err != nil {
		return nil, err
	}
	return w.Run(ctx, p)
}

// ByName resolves a scenario.
func ByName(name string) (Workload, error) {
	for _, w := range workloads {
		if w.Name == name {
			return w, nil
		}
	}
	return Workload{}, fmt.Errorf("unknown workload %q (available: %v)", name, Names())
}

// Names lists the available scenarios, sorted.
func Names() []string {
	names := make([]string, len(workloads))
	for i, w := range workloads {
		names[i] = w.Name
	}
	sort.Strings(names)
	return names
}

// All returns every scenario in registration order.
func All() []Workload {
	out := make([]Workload, len(workloads))
	copy(out, workloads)
	return out
}

// execution is the per-run state shared by scenario bodies.
type execution struct {
	backend runner.Backend
	slots   slotpool.Source
	journal *slottrace.Journal
	log     *zap.Logger
	track   *tracker
	run     int
	unit    time.Duration
	pace    rate.Limit
}

// leaf is one unit of work and the only place slots are touched: acquire,
// hold through units of cancellable sleep, log the finish, release. task
// and loop name the leaf's position in its scenario; -1 marks an axis the
// scenario does not have. axes carry the same position for the log line.
func (e *execution) leaf(ctx context.Context, units, task, loop int, axes ...zap.Field) error {
	return slotpool.WithSlot(ctx, e.slots, func(ctx context.Context, slot int) error {
		e.track.enter(slot)
		defer e.track.exit()

		held := time.Now()
		if err := sleepFor(ctx, time.Duration(units)*e.unit); err != nil {
			return err
		}

		fields := append([]zap.Field{zap.Int("slot", slot)}, axes...)
		e.log.Info("finish sleeping", fields...)

		if e.journal != nil {
			e.journal.Record(slot, slottrace.Hold{
				Run:        e.run,
				Task:       task,
				Loop:       loop,
				HeldFor:    time.Since(held),
				ReleasedAt: time.Now(),
			})
		}
		e.track.done()
		return nil
	})
}

// sleepFor sleeps for d unless ctx ends first.
func sleepFor(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
