package slottrace

import (
	"sync"
	"time"
)

// Hold is one completed checkout of a slot: which unit of work held it,
// for how long, and when it came back.
type Hold struct {
	Run        int           `json:"run"`
	Task       int           `json:"task"`
	Loop       int           `json:"loop"`
	HeldFor    time.Duration `json:"held_for"`
	ReleasedAt time.Time     `json:"released_at"`
}

// ring is a thread-safe circular buffer of hold records with O(1) append
// and O(N) read.
type ring struct {
	holds [128]Hold    // fixed-size circular buffer
	head  int          // next write position
	size  int          // current number of records
	full  bool         // whether the buffer has wrapped around
	total uint64       // cumulative appends, survives overwrites
	mu    sync.RWMutex // protects all fields
}

// append adds a hold record, overwriting the oldest once full.
func (r *ring) append(h Hold) {
	r.mu.Lock()
	defer r.mu.Unlock()

	const capN = len(r.holds)

	r.holds[r.head] = h
	r.head = (r.head + 1) % capN
	r.total++

	if r.full {
		return
	}
	r.size++
	if r.size == capN {
		r.full = true
	}
}

// read returns the last n records, newest first, in a new slice the caller
// owns. n <= 0 or n beyond the buffer capacity means "all available".
func (r *ring) read(n int) []Hold {
	r.mu.RLock()
	defer r.mu.RUnlock()

	const capN = len(r.holds)
	if r.size == 0 {
		return nil
	}

	if n <= 0 || n > capN {
		n = capN
	}
	if n > r.size {
		n = r.size
	}

	// Newest is one behind head once wrapped, size-1 before that.
	var newest int
	if r.full {
		newest = (r.head - 1 + capN) % capN
	} else {
		newest = r.size - 1
	}

	out := make([]Hold, n)
	for i := 0; i < n; i++ {
		out[i] = r.holds[(newest-i+capN)%capN]
	}
	return out
}

func (r *ring) count() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.total
}
