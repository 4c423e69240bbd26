package runner

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// groupBackend opens regions as errgroup-fenced goroutines. With no worker
// cap this matches the runtime's native scheduling: every child gets its own
// goroutine immediately.
type groupBackend struct {
	workers int
}

// NewGroupBackend returns the goroutine-per-child backend. workers caps the
// number of children running at once; 0 or negative leaves it unbounded.
func NewGroupBackend(workers int) Backend {
	return &groupBackend{workers: workers}
}

func (b *groupBackend) Name() string { return "group" }

func (b *groupBackend) Group(ctx context.Context) Group {
	g, gctx := errgroup.WithContext(ctx)
	if b.workers > 0 {
		g.SetLimit(b.workers)
	}
	return &errGroup{g: g, ctx: gctx}
}

type errGroup struct {
	g   *errgroup.Group
	ctx context.Context
}

func (eg *errGroup) Go(fn func(ctx context.Context) error) {
	eg.g.Go(func() error {
		return fn(eg.ctx)
	})
}

func (eg *errGroup) Wait() error { return eg.g.Wait() }
