// Package runner abstracts the parallel runtime a workload executes on.
//
// A Backend opens parallel regions; a Group is one open region with the two
// capabilities every workload needs: spawn a child unit of work, and wait
// for every child to finish. Slot identity is deliberately out of scope.
// Workloads acquire slots inside their leaf bodies; backends never touch
// the pool, and the pool never schedules work.
//
// Two backends ship. The group backend spawns plain goroutines fenced by
// errgroup, optionally capped to a worker limit. The pond backend runs each
// region on a dedicated fixed worker pool. Both present identical semantics
// to workloads, so the choice is configuration, not code.
package runner

import (
	"context"
	"fmt"
)

// Group is one open parallel region.
type Group interface {
	// Go schedules one child unit of work. The ctx passed to fn is the
	// region's context; it is cancelled once any sibling fails.
	Go(fn func(ctx context.Context) error)
	// Wait blocks until every scheduled child has finished and returns
	// the first error among them.
	Wait() error
}

// Backend opens parallel regions.
type Backend interface {
	// Name identifies the backend in logs and status output.
	Name() string
	// Group opens a region derived from ctx.
	Group(ctx context.Context) Group
}

// New selects a backend by name. workers caps region concurrency;
// 0 or negative means unbounded.
func New(name string, workers int) (Backend, error) {
	switch name {
	case "group":
		return NewGroupBackend(workers), nil
	case "pond":
		return NewPondBackend(workers), nil
	default:
		return nil, fmt.Errorf("unknown backend %q (want \"group\" or \"pond\")", name)
	}
}

// ParallelFor runs body(ctx, i) for every i in [0, n) as one parallel
// region and waits for the whole region. The first body error cancels the
// region context and is returned.
func ParallelFor(ctx context.Context, b Backend, n int, body func(ctx context.Context, i int) error) error {
	g := b.Group(ctx)
	for i := 0; i < n; i++ {
		g.Go(func(ctx context.Context) error {
			return body(ctx, i)
		})
	}
	return g.Wait()
}
