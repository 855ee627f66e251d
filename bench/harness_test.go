package bench

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// probeUnit counts lifecycle calls and detects overlapping bench
// invocations.
type probeUnit struct {
	setupCalls int
	benchCalls int
	active     int32
	overlapped int32
	delay      time.Duration
	setupErr   error
	benchErr   error
	failAt     int
}

func newProbeUnit() *probeUnit {
	return &probeUnit{failAt: -1}
}

func (p *probeUnit) Setup(_ context.Context) error {
	p.setupCalls++

	return p.setupErr
}

func (p *probeUnit) Bench(_ context.Context, _ Providers) error {
	if atomic.AddInt32(&p.active, 1) > 1 {
		atomic.StoreInt32(&p.overlapped, 1)
	}
	defer atomic.AddInt32(&p.active, -1)

	p.benchCalls++

	if p.failAt >= 0 && p.benchCalls == p.failAt+1 {
		return p.benchErr
	}

	if p.delay > 0 {
		time.Sleep(p.delay)
	}

	return nil
}

// asyncUnit settles its bench call through a spawned goroutine, the
// way a real unit settles actor round-trips.
type asyncUnit struct {
	probeUnit
}

func (a *asyncUnit) Bench(ctx context.Context, p Providers) error {
	done := make(chan error, 1)

	go func() {
		done <- a.probeUnit.Bench(ctx, p)
	}()

	return <-done
}

func TestRunIterationsCount(t *testing.T) {
	unit := newProbeUnit()
	h := NewHarness("probe", unit, testLogger())

	elapsed, samples, err := h.RunIterations(context.Background(), 5)
	if err != nil {
		t.Fatalf("RunIterations failed: %v", err)
	}

	if unit.benchCalls != 5 {
		t.Errorf("bench calls = %d, want 5", unit.benchCalls)
	}
	if len(samples) != 5 {
		t.Errorf("samples = %d, want 5", len(samples))
	}
	if elapsed < 0 {
		t.Errorf("elapsed = %v, want non-negative", elapsed)
	}
	if atomic.LoadInt32(&unit.overlapped) != 0 {
		t.Error("bench calls overlapped")
	}
}

func TestRunIterationsZero(t *testing.T) {
	unit := newProbeUnit()
	h := NewHarness("probe", unit, testLogger())

	elapsed, samples, err := h.RunIterations(context.Background(), 0)
	if err != nil {
		t.Fatalf("RunIterations failed: %v", err)
	}

	if unit.benchCalls != 0 {
		t.Errorf("bench calls = %d, want 0", unit.benchCalls)
	}
	if len(samples) != 0 {
		t.Errorf("samples = %d, want 0", len(samples))
	}
	if elapsed < 0 || elapsed > 100*time.Millisecond {
		t.Errorf("elapsed = %v, want near zero", elapsed)
	}
}

func TestRunIterationsElapsedFloor(t *testing.T) {
	unit := newProbeUnit()
	unit.delay = 5 * time.Millisecond

	h := NewHarness("probe", unit, testLogger())

	elapsed, _, err := h.RunIterations(context.Background(), 10)
	if err != nil {
		t.Fatalf("RunIterations failed: %v", err)
	}

	if elapsed < 50*time.Millisecond {
		t.Errorf("elapsed = %v, want >= 50ms for 10 x 5ms benches", elapsed)
	}
}

func TestRunIterationsAsyncSequencing(t *testing.T) {
	unit := &asyncUnit{}
	unit.failAt = -1
	unit.delay = time.Millisecond

	h := NewHarness("async", unit, testLogger())

	_, samples, err := h.RunIterations(context.Background(), 20)
	if err != nil {
		t.Fatalf("RunIterations failed: %v", err)
	}

	if unit.benchCalls != 20 {
		t.Errorf("bench calls = %d, want 20", unit.benchCalls)
	}
	if len(samples) != 20 {
		t.Errorf("samples = %d, want 20", len(samples))
	}
	if atomic.LoadInt32(&unit.overlapped) != 0 {
		t.Error("async bench calls overlapped")
	}
}

func TestRunSetupFailure(t *testing.T) {
	unit := newProbeUnit()
	unit.setupErr = fmt.Errorf("fetch failed")

	h := NewHarness("probe", unit, testLogger())

	result, err := h.Run(context.Background())
	if err == nil {
		t.Fatal("expected error from failing setup")
	}
	if result != nil {
		t.Errorf("result = %+v, want nil for failed run", result)
	}

	var setupErr *SetupError
	if !errors.As(err, &setupErr) {
		t.Fatalf("error %v is not a *SetupError", err)
	}

	if unit.benchCalls != 0 {
		t.Errorf("bench calls = %d, want 0 after setup failure", unit.benchCalls)
	}
	if unit.setupCalls != 1 {
		t.Errorf("setup calls = %d, want 1", unit.setupCalls)
	}
}

func TestRunIterationFailure(t *testing.T) {
	unit := newProbeUnit()
	unit.failAt = 3
	unit.benchErr = fmt.Errorf("parse blew up")

	h := NewHarness("probe", unit, testLogger())

	result, err := h.Run(context.Background())
	if err == nil {
		t.Fatal("expected error from failing bench")
	}
	if result != nil {
		t.Errorf("result = %+v, want nil for failed run", result)
	}

	var iterErr *IterationError
	if !errors.As(err, &iterErr) {
		t.Fatalf("error %v is not a *IterationError", err)
	}

	if iterErr.Iteration != 3 {
		t.Errorf("failing iteration = %d, want 3", iterErr.Iteration)
	}
	if len(iterErr.Partial) != 3 {
		t.Errorf("partial samples = %d, want 3", len(iterErr.Partial))
	}
	if unit.benchCalls != 4 {
		t.Errorf("bench calls = %d, want 4 (failure aborts the rest)", unit.benchCalls)
	}
}

func TestRunSuccess(t *testing.T) {
	unit := newProbeUnit()
	unit.delay = time.Millisecond

	h := NewHarness("probe", unit, testLogger(), WithIterations(4))

	result, err := h.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if unit.setupCalls != 1 {
		t.Errorf("setup calls = %d, want exactly 1", unit.setupCalls)
	}
	if result.Iterations != 4 {
		t.Errorf("iterations = %d, want 4", result.Iterations)
	}
	if len(result.Samples) != 4 {
		t.Errorf("samples = %d, want 4", len(result.Samples))
	}
	if result.ID == "" {
		t.Error("result has no run id")
	}
	if result.Name != "probe" {
		t.Errorf("name = %q, want probe", result.Name)
	}

	var sampleSum time.Duration
	for _, s := range result.Samples {
		if s < 0 {
			t.Errorf("negative sample %v", s)
		}

		sampleSum += s
	}

	if result.Elapsed < sampleSum {
		t.Errorf("elapsed %v < sum of samples %v", result.Elapsed, sampleSum)
	}
}

func TestRunDefaultIterations(t *testing.T) {
	unit := newProbeUnit()
	h := NewHarness("probe", unit, testLogger())

	result, err := h.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.Iterations != DefaultIterations {
		t.Errorf("iterations = %d, want %d", result.Iterations, DefaultIterations)
	}
	if unit.benchCalls != DefaultIterations {
		t.Errorf("bench calls = %d, want %d", unit.benchCalls, DefaultIterations)
	}
}
