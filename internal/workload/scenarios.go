package workload

import (
	"context"
	"fmt"

	"github.com/edirooss/taskslot/internal/runner"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	staggeredTasks = 10
	staggeredLoops = 4
	uniformTasks   = 10
	uniformLoops   = 10
	flatIterations = 400
	burstTasks     = 3200
	nestedOuter    = 1
	nestedInner    = 400
)

var workloads = []Workload{
	{
		Name: "staggered-tasks",
		Desc: "tasks labelled 10 down to 1, each a 4-iteration parallel-for sleeping label units",
		run:  runStaggered,
	},
	{
		Name: "uniform-tasks",
		Desc: "10 tasks, each a 10-iteration parallel-for sleeping one unit",
		run:  runUniform,
	},
	{
		Name: "flat-for",
		Desc: "one 400-iteration parallel-for sleeping one unit",
		run:  runFlat,
	},
	{
		Name: "task-burst",
		Desc: "3200 independent one-unit tasks, optionally paced",
		run:  runBurst,
	},
	{
		Name: "nested-for",
		Desc: "a 1-iteration parallel-for wrapping a 400-iteration parallel-for",
		run:  runNested,
	},
}

// runStaggered spawns tasks labelled 10 down to 1. Task k runs a
// parallel-for whose every iteration holds a slot for k units, so long and
// short holders contend for the same small slot set.
func runStaggered(ctx context.Context, e *execution) error {
	g := e.backend.Group(ctx)
	for k := staggeredTasks; k >= 1; k-- {
		g.Go(func(ctx context.Context) error {
			return runner.ParallelFor(ctx, e.backend, staggeredLoops, func(ctx context.Context, i int) error {
				return e.leaf(ctx, k, k, i, zap.Int("task", k), zap.Int("loop", i))
			})
		})
	}
	return g.Wait()
}

// runUniform spawns identical tasks, each fanning out a parallel-for of
// one-unit holds.
func runUniform(ctx context.Context, e *execution) error {
	g := e.backend.Group(ctx)
	for k := 0; k < uniformTasks; k++ {
		g.Go(func(ctx context.Context) error {
			return runner.ParallelFor(ctx, e.backend, uniformLoops, func(ctx context.Context, i int) error {
				return e.leaf(ctx, 1, k, i, zap.Int("task", k), zap.Int("loop", i))
			})
		})
	}
	return g.Wait()
}

// runFlat is a single wide parallel-for; slot reuse cycles fastest here.
func runFlat(ctx context.Context, e *execution) error {
	return runner.ParallelFor(ctx, e.backend, flatIterations, func(ctx context.Context, i int) error {
		return e.leaf(ctx, 1, -1, i, zap.Int("loop", i))
	})
}

// runBurst floods the backend with independent leaf tasks. With pacing
// enabled, submissions are spread out instead of front-loaded.
func runBurst(ctx context.Context, e *execution) error {
	var lim *rate.Limiter
	if e.pace > 0 {
		lim = rate.NewLimiter(e.pace, 1)
	}

	g := e.backend.Group(ctx)
	for i := 0; i < burstTasks; i++ {
		if lim != nil {
			if err := lim.Wait(ctx); err != nil {
				_ = g.Wait()
				return fmt.Errorf("pace submissions: %w", err)
			}
		}
		g.Go(func(ctx context.Context) error {
			return e.leaf(ctx, 1, i, -1, zap.Int("task", i))
		})
	}
	return g.Wait()
}

// runNested opens a region inside a region. Leaves still follow the hold
// discipline, so the depth adds scheduling pressure without adding
// deadlock risk.
func runNested(ctx context.Context, e *execution) error {
	return runner.ParallelFor(ctx, e.backend, nestedOuter, func(ctx context.Context, outer int) error {
		return runner.ParallelFor(ctx, e.backend, nestedInner, func(ctx context.Context, inner int) error {
			return e.leaf(ctx, 1, outer, inner, zap.Int("outer", outer), zap.Int("inner", inner))
		})
	})
}
