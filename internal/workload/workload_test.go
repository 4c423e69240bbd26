package workload

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/edirooss/taskslot/internal/runner"
	"github.com/edirooss/taskslot/internal/slotpool"
	"github.com/edirooss/taskslot/internal/slottrace"
)

func TestByName(t *testing.T) {
	for _, name := range Names() {
		w, err := ByName(name)
		if err != nil {
			t.Errorf("ByName(%q): %v", name, err)
			continue
		}
		if w.Name != name {
			t.Errorf("ByName(%q): resolved %q", name, w.Name)
		}
		if w.Desc == "" {
			t.Errorf("ByName(%q): empty description", name)
		}
	}

	if _, err := ByName("quicksort"); err == nil {
		t.Error("ByName with an unknown name: expected error")
	}
}

func TestNamesSortedAndComplete(t *testing.T) {
	names := Names()
	if len(names) != len(All()) {
		t.Fatalf("Names lists %d scenarios, All has %d", len(names), len(All()))
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] >= names[i] {
			t.Fatalf("Names not sorted: %q before %q", names[i-1], names[i])
		}
	}
}

// TestScenariosCompleteAndConserve runs every scenario with instant sleeps
// and checks the shape of the report plus pool conservation afterwards.
func TestScenariosCompleteAndConserve(t *testing.T) {
	wantIterations := map[string]int64{
		"staggered-tasks": 40,
		"uniform-tasks":   100,
		"flat-for":        400,
		"task-burst":      3200,
		"nested-for":      400,
	}

	const capacity = 4
	for _, w := range All() {
		w := w
		t.Run(w.Name, func(t *testing.T) {
			pool := slotpool.NewChan(capacity)

			rep, err := w.Run(context.Background(), Params{
				Backend: runner.NewGroupBackend(0),
				Slots:   pool,
				Run:     7,
			})
			if err != nil {
				t.Fatalf("run: %v", err)
			}

			want, ok := wantIterations[w.Name]
			if !ok {
				t.Fatalf("no expected iteration count for %q", w.Name)
			}
			if rep.Iterations != want {
				t.Fatalf("iterations: got %d, want %d", rep.Iterations, want)
			}
			if rep.Run != 7 || rep.Workload != w.Name || rep.Backend != "group" {
				t.Fatalf("report identity: %+v", rep)
			}
			if rep.Capacity != capacity || len(rep.PerSlot) != capacity {
				t.Fatalf("report capacity: got %d slots over capacity %d, want %d", len(rep.PerSlot), rep.Capacity, capacity)
			}

			var perSlotSum int64
			for _, n := range rep.PerSlot {
				perSlotSum += int64(n)
			}
			if perSlotSum != want {
				t.Fatalf("per-slot counts sum to %d, want %d", perSlotSum, want)
			}
			if rep.PeakHeld < 1 || rep.PeakHeld > capacity {
				t.Fatalf("peak held %d outside [1, %d]", rep.PeakHeld, capacity)
			}
			if rep.Error != "" {
				t.Fatalf("report error: %q", rep.Error)
			}

			// Every slot came back.
			if free := pool.Free(); free != capacity {
				t.Fatalf("pool holds %d free slots after run, want %d", free, capacity)
			}
			pool.Close()
		})
	}
}

func TestRunOnPondBackend(t *testing.T) {
	pool := slotpool.New(2)
	rep, err := Run(context.Background(), "staggered-tasks", Params{
		Backend: runner.NewPondBackend(8),
		Slots:   pool,
		Run:     1,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if rep.Backend != "pond" {
		t.Fatalf("report backend: got %q, want pond", rep.Backend)
	}
	if rep.Iterations != 40 {
		t.Fatalf("iterations: got %d, want 40", rep.Iterations)
	}
	if free := pool.Free(); free != 2 {
		t.Fatalf("pool holds %d free slots after run, want 2", free)
	}
	pool.Close()
}

func TestRunUnknownWorkload(t *testing.T) {
	_, err := Run(context.Background(), "matrix-multiply", Params{})
	if err == nil {
		t.Fatal("expected error for unknown workload")
	}
}

func TestJournalRecordsHolds(t *testing.T) {
	const capacity = 3
	pool := slotpool.NewChan(capacity)
	journal := slottrace.NewJournal(capacity)

	rep, err := Run(context.Background(), "uniform-tasks", Params{
		Backend: runner.NewGroupBackend(0),
		Slots:   pool,
		Journal: journal,
		Run:     42,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	var recorded uint64
	for _, n := range journal.Totals() {
		recorded += n
	}
	if recorded != uint64(rep.Iterations) {
		t.Fatalf("journal recorded %d holds, report counted %d", recorded, rep.Iterations)
	}

	for slot := 0; slot < capacity; slot++ {
		for _, h := range journal.Recent(slot, 0) {
			if h.Run != 42 {
				t.Fatalf("slot %d hold carries run %d, want 42", slot, h.Run)
			}
		}
	}
	pool.Close()
}

// TestCancellationReleasesSlots cancels a run mid-sleep and checks that
// every slot still comes back through the scoped release.
func TestCancellationReleasesSlots(t *testing.T) {
	pool := slotpool.New(1)
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	rep, err := Run(ctx, "staggered-tasks", Params{
		Backend: runner.NewGroupBackend(0),
		Slots:   pool,
		Run:     1,
		Unit:    50 * time.Millisecond,
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("run: got %v, want context.Canceled", err)
	}
	if rep == nil || rep.Error == "" {
		t.Fatalf("report should carry the run error, got %+v", rep)
	}
	if free := pool.Free(); free != 1 {
		t.Fatalf("pool holds %d free slots after cancelled run, want 1", free)
	}
	pool.Close()
}

func TestBurstPacingStillCompletes(t *testing.T) {
	pool := slotpool.NewChan(8)
	rep, err := Run(context.Background(), "task-burst", Params{
		Backend: runner.NewGroupBackend(0),
		Slots:   pool,
		Run:     1,
		Pace:    100000, // exercise the limiter without slowing the test
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if rep.Iterations != 3200 {
		t.Fatalf("iterations: got %d, want 3200", rep.Iterations)
	}
	pool.Close()
}

func TestSleepFor(t *testing.T) {
	t.Run("elapses", func(t *testing.T) {
		if err := sleepFor(context.Background(), time.Millisecond); err != nil {
			t.Fatalf("sleepFor: %v", err)
		}
	})
	t.Run("zero returns immediately", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		// d <= 0 never consults the context.
		if err := sleepFor(ctx, 0); err != nil {
			t.Fatalf("sleepFor: %v", err)
		}
	})
	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		err := sleepFor(ctx, time.Second)
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("sleepFor: got %v, want deadline exceeded", err)
		}
	})
}
