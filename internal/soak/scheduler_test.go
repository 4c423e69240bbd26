package soak

import (
	"testing"
	"time"
)

func TestSchedulerOrdersByDueTime(t *testing.T) {
	s := newScheduler()
	base := time.Now()

	s.push(1, base.Add(30*time.Millisecond))
	s.push(2, base.Add(10*time.Millisecond))
	s.push(3, base.Add(20*time.Millisecond))

	wantOrder := []int64{2, 3, 1}
	for _, want := range wantOrder {
		got, _, ok := s.next()
		if !ok {
			t.Fatalf("next: empty, want cadence %d", want)
		}
		if got != want {
			t.Fatalf("next: got cadence %d, want %d", got, want)
		}
		s.pop()
	}

	if _, _, ok := s.next(); ok {
		t.Fatal("next on empty scheduler: ok = true")
	}
}

func TestSchedulerPushReplacesPending(t *testing.T) {
	s := newScheduler()
	base := time.Now()

	s.push(1, base.Add(time.Hour))
	s.push(1, base.Add(time.Millisecond))

	if len(s.h) != 1 {
		t.Fatalf("heap holds %d entries after replacement, want 1", len(s.h))
	}

	_, when, ok := s.next()
	if !ok || !when.Equal(base.Add(time.Millisecond)) {
		t.Fatalf("next: got (%v, %v), want the replacement time", when, ok)
	}
}

func TestSchedulerRemove(t *testing.T) {
	s := newScheduler()
	base := time.Now()

	s.push(1, base.Add(10*time.Millisecond))
	s.push(2, base.Add(20*time.Millisecond))

	s.remove(1)
	s.remove(99) // unknown is a no-op

	got, _, ok := s.next()
	if !ok || got != 2 {
		t.Fatalf("next after remove: got (%d, %v), want cadence 2", got, ok)
	}

	if _, ok := s.pendingAt(1); ok {
		t.Fatal("pendingAt(1) after remove: still pending")
	}
	if at, ok := s.pendingAt(2); !ok || !at.Equal(base.Add(20*time.Millisecond)) {
		t.Fatalf("pendingAt(2): got (%v, %v)", at, ok)
	}
}

func TestSchedulerPopOnEmptyIsNoop(t *testing.T) {
	s := newScheduler()
	s.pop()

	if _, _, ok := s.next(); ok {
		t.Fatal("next after pop on empty: ok = true")
	}
}
