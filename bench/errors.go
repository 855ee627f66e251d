package bench

import (
	"fmt"
	"time"
)

// SetupError reports a failure during a unit's setup phase. No
// iterations have run and no samples exist when it is returned.
type SetupError struct {
	Unit string
	Err  error
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("setup %s: %v", e.Unit, e.Err)
}

func (e *SetupError) Unwrap() error { return e.Err }

// IterationError reports a bench call failing mid-run. Iterations
// after the failing one were never started. Partial holds the samples
// collected before the failure; they belong to a failed run and must
// not be reported as a completed one.
type IterationError struct {
	Unit      string
	Iteration int
	Partial   []time.Duration
	Err       error
}

func (e *IterationError) Error() string {
	return fmt.Sprintf("bench %s: iteration %d: %v", e.Unit, e.Iteration, e.Err)
}

func (e *IterationError) Unwrap() error { return e.Err }
