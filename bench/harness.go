package bench

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// DefaultIterations is the trial count used when no override is given.
const DefaultIterations = 10

// Harness drives a single Unit through its benchmark lifecycle.
type Harness struct {
	Name   string
	Unit   Unit
	Iters  int
	Logger *slog.Logger
}

// Option adjusts harness construction.
type Option func(*Harness)

// WithIterations overrides the trial count. Zero is allowed and
// produces an empty sample set.
func WithIterations(n int) Option {
	return func(h *Harness) { h.Iters = n }
}

// NewHarness creates a Harness for the named unit.
func NewHarness(
	name string, unit Unit, logger *slog.Logger, opts ...Option,
) *Harness {
	h := &Harness{
		Name:   name,
		Unit:   unit,
		Iters:  DefaultIterations,
		Logger: logger.With(slog.String("unit", name)),
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// Run executes the full lifecycle: setup exactly once, then Iters
// strictly sequential timed bench calls. The returned Result is the
// run's completion signal; there is no other channel.
//
// A setup failure aborts the run before any bench call and is returned
// wrapped in a *SetupError. A bench failure surfaces as a
// *IterationError. In both cases the Result is nil: a failed run
// produces no elapsed-time report.
func (h *Harness) Run(ctx context.Context) (*Result, error) {
	h.Logger.InfoContext(ctx, "starting run",
		slog.Int("iterations", h.Iters),
	)

	setupStart := time.Now()

	if err := h.Unit.Setup(ctx); err != nil {
		return nil, &SetupError{Unit: h.Name, Err: err}
	}

	setupTime := time.Since(setupStart)

	h.Logger.InfoContext(ctx, "setup complete",
		slog.Duration("setup_time", setupTime),
	)

	elapsed, samples, err := h.RunIterations(ctx, h.Iters)
	if err != nil {
		return nil, err
	}

	h.Logger.InfoContext(ctx, "run complete",
		slog.Duration("elapsed", elapsed),
	)

	return &Result{
		ID:          uuid.NewString(),
		Name:        h.Name,
		Iterations:  h.Iters,
		SetupTime:   setupTime,
		Elapsed:     elapsed,
		Samples:     samples,
		CompletedAt: time.Now(),
	}, nil
}

// RunIterations invokes the unit's Bench exactly n times, each call
// starting only after the previous one has fully settled. It captures
// the wall clock immediately before the first call and immediately
// after the last completes, so the returned total is never less than
// the sum of the per-call latencies.
//
// A bench failure at iteration k aborts iterations k+1..n; the samples
// collected so far travel inside the returned *IterationError.
func (h *Harness) RunIterations(
	ctx context.Context, n int,
) (time.Duration, []time.Duration, error) {
	samples := make([]time.Duration, 0, n)

	start := time.Now()

	for i := 0; i < n; i++ {
		iterStart := time.Now()

		if err := h.Unit.Bench(ctx, Providers{}); err != nil {
			return 0, nil, &IterationError{
				Unit:      h.Name,
				Iteration: i,
				Partial:   samples,
				Err:       err,
			}
		}

		samples = append(samples, time.Since(iterStart))
	}

	return time.Since(start), samples, nil
}
