package workload

import "time"

// Report summarizes one finished run.
type Report struct {
	Workload   string        `json:"workload"`
	Run        int           `json:"run"`
	Backend    string        `json:"backend"`
	Capacity   int           `json:"capacity"`
	Iterations int64         `json:"iterations"`
	PerSlot    []uint64      `json:"per_slot"`      // completed holds, indexed by slot
	PeakHeld   int64         `json:"peak_held"`     // most slots held at once
	Elapsed    time.Duration `json:"elapsed"`
	StartedAt  time.Time     `json:"started_at"`
	Error      string        `json:"error,omitempty"`
}
