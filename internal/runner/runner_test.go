package runner

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

var backends = []struct {
	name string
	make func(workers int) Backend
}{
	{name: "group", make: NewGroupBackend},
	{name: "pond", make: NewPondBackend},
}

func TestNewSelectsBackendByName(t *testing.T) {
	cases := []struct {
		name    string
		wantErr bool
	}{
		{name: "group"},
		{name: "pond"},
		{name: "cilk", wantErr: true},
		{name: "", wantErr: true},
	}
	for _, tc := range cases {
		b, err := New(tc.name, 4)
		if tc.wantErr {
			if err == nil {
				t.Errorf("New(%q): expected error", tc.name)
			}
			continue
		}
		if err != nil {
			t.Errorf("New(%q): %v", tc.name, err)
			continue
		}
		if b.Name() != tc.name {
			t.Errorf("New(%q).Name(): got %q", tc.name, b.Name())
		}
	}
}

func TestParallelForRunsEveryIndexOnce(t *testing.T) {
	const n = 50
	for _, be := range backends {
		be := be
		t.Run(be.name, func(t *testing.T) {
			b := be.make(0)

			var mu sync.Mutex
			seen := make([]int, n)
			err := ParallelFor(context.Background(), b, n, func(_ context.Context, i int) error {
				mu.Lock()
				seen[i]++
				mu.Unlock()
				return nil
			})
			if err != nil {
				t.Fatalf("ParallelFor: %v", err)
			}
			for i, count := range seen {
				if count != 1 {
					t.Fatalf("index %d ran %d times, want 1", i, count)
				}
			}
		})
	}
}

func TestParallelForZeroIterations(t *testing.T) {
	for _, be := range backends {
		be := be
		t.Run(be.name, func(t *testing.T) {
			err := ParallelFor(context.Background(), be.make(2), 0, func(context.Context, int) error {
				t.Error("body ran for an empty region")
				return nil
			})
			if err != nil {
				t.Fatalf("ParallelFor: %v", err)
			}
		})
	}
}

func TestFirstErrorCancelsRegion(t *testing.T) {
	sentinel := errors.New("child failed")

	for _, be := range backends {
		be := be
		t.Run(be.name, func(t *testing.T) {
			g := be.make(0).Group(context.Background())

			g.Go(func(context.Context) error {
				time.Sleep(10 * time.Millisecond)
				return sentinel
			})
			g.Go(func(ctx context.Context) error {
				select {
				case <-ctx.Done():
					return nil
				case <-time.After(2 * time.Second):
					return errors.New("sibling failure did not cancel the region")
				}
			})

			if err := g.Wait(); !errors.Is(err, sentinel) {
				t.Fatalf("Wait: got %v, want %v", err, sentinel)
			}
		})
	}
}

func TestWorkerCapBoundsConcurrency(t *testing.T) {
	const (
		workers = 2
		n       = 8
	)
	for _, be := range backends {
		be := be
		t.Run(be.name, func(t *testing.T) {
			b := be.make(workers)

			var (
				mu        sync.Mutex
				cur, peak int
			)
			err := ParallelFor(context.Background(), b, n, func(context.Context, int) error {
				mu.Lock()
				cur++
				if cur > peak {
					peak = cur
				}
				mu.Unlock()

				time.Sleep(20 * time.Millisecond)

				mu.Lock()
				cur--
				mu.Unlock()
				return nil
			})
			if err != nil {
				t.Fatalf("ParallelFor: %v", err)
			}
			if peak > workers {
				t.Fatalf("peak concurrency %d exceeds worker cap %d", peak, workers)
			}
		})
	}
}

// TestNestedRegions opens an inner region inside every child of an outer
// one. Regions are independent, so a capped backend must still finish:
// inner children never compete for the outer region's workers.
func TestNestedRegions(t *testing.T) {
	const (
		outer = 3
		inner = 4
	)
	for _, be := range backends {
		be := be
		t.Run(be.name, func(t *testing.T) {
			b := be.make(2)

			var mu sync.Mutex
			leaves := 0

			g := b.Group(context.Background())
			for i := 0; i < outer; i++ {
				g.Go(func(ctx context.Context) error {
					return ParallelFor(ctx, b, inner, func(context.Context, int) error {
						mu.Lock()
						leaves++
						mu.Unlock()
						return nil
					})
				})
			}
			if err := g.Wait(); err != nil {
				t.Fatalf("Wait: %v", err)
			}
			if leaves != outer*inner {
				t.Fatalf("leaf bodies ran %d times, want %d", leaves, outer*inner)
			}
		})
	}
}
