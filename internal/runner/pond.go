package runner

import (
	"context"

	"github.com/alitto/pond/v2"
)

// pondBackend opens each region on a dedicated fixed worker pool. Children
// queue until a worker frees up, which mirrors runtimes that pin a region to
// a worker team. A region gets its own pool so a nested region can never
// starve waiting for its parent's workers.
type pondBackend struct {
	workers int
}

// NewPondBackend returns the worker-pool backend. workers is the pool size
// per region; 0 or negative means unlimited workers.
func NewPondBackend(workers int) Backend {
	return &pondBackend{workers: workers}
}

func (b *pondBackend) Name() string { return "pond" }

func (b *pondBackend) Group(ctx context.Context) Group {
	gctx, cancel := context.WithCancelCause(ctx)
	pool := pond.NewPool(b.workers, pond.WithContext(gctx))
	return &pondGroup{
		pool:   pool,
		group:  pool.NewGroup(),
		ctx:    gctx,
		cancel: cancel,
	}
}

type pondGroup struct {
	pool   pond.Pool
	group  pond.TaskGroup
	ctx    context.Context
	cancel context.CancelCauseFunc
}

func (pg *pondGroup) Go(fn func(ctx context.Context) error) {
	pg.group.SubmitErr(func() error {
		err := fn(pg.ctx)
		if err != nil {
			// First failure cancels the region, same contract as the
			// group backend.
			pg.cancel(err)
		}
		return err
	})
}

// Wait drains the region, retires its workers, and releases the region
// context.
func (pg *pondGroup) Wait() error {
	err := pg.group.Wait()
	pg.pool.StopAndWait()
	pg.cancel(nil)
	return err
}
