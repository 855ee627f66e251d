// Package bench runs pluggable benchmark units through a fixed
// lifecycle: one setup phase, then a configured number of strictly
// sequential timed iterations. It also provides the in-process actor
// stub units use in place of a real worker boundary.
package bench

import "time"

// Result holds the measurements from one completed harness run.
type Result struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Iterations  int             `json:"iterations"`
	SetupTime   time.Duration   `json:"setup_ns"`
	Elapsed     time.Duration   `json:"elapsed_ns"`
	Samples     []time.Duration `json:"samples_ns"`
	CompletedAt time.Time       `json:"completed_at"`
}
