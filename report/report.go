// Package report formats collected benchmark samples into comparison
// tables, JSON, and the Go benchmark format.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"golang.org/x/perf/benchfmt"

	"github.com/mapward/tilebench/bench"
)

// Generate writes a markdown summary table for the given results,
// followed by the raw per-iteration samples. Min, mean and max are
// display formatting over the raw samples, nothing more.
func Generate(w io.Writer, results []bench.Result) error {
	if len(results) == 0 {
		return fmt.Errorf("no results to report")
	}

	fmt.Fprintln(w, "## Benchmark Results")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "| Unit | Iterations | Setup | Total | Min | Mean | Max |")
	fmt.Fprintln(w, "|------|------------|-------|-------|-----|------|-----|")

	for _, r := range results {
		minS, meanS, maxS := sampleSpread(r)

		fmt.Fprintf(w, "| %s | %d | %s | %s | %s | %s | %s |\n",
			r.Name,
			r.Iterations,
			formatDuration(r.SetupTime),
			formatDuration(r.Elapsed),
			formatDuration(minS),
			formatDuration(meanS),
			formatDuration(maxS),
		)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "### Samples")
	fmt.Fprintln(w)

	for _, r := range results {
		if len(r.Samples) == 0 {
			fmt.Fprintf(w, "- %s: (none)\n", r.Name)

			continue
		}

		formatted := make([]string, len(r.Samples))
		for i, s := range r.Samples {
			formatted[i] = formatDuration(s)
		}

		fmt.Fprintf(w, "- %s: %s\n", r.Name, strings.Join(formatted, ", "))
	}

	return nil
}

// GenerateJSON writes results as JSON to w.
func GenerateJSON(w io.Writer, results []bench.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(results)
}

// GenerateBench writes results as Go benchmark format lines that
// benchstat and related tooling can consume: the iteration count and
// per-operation time form the regression pair. Results with zero
// iterations carry no per-operation value and are skipped.
func GenerateBench(w io.Writer, results []bench.Result) error {
	bw := benchfmt.NewWriter(w)

	for _, r := range results {
		if r.Iterations == 0 {
			continue
		}

		perOp := r.Elapsed.Seconds() / float64(r.Iterations)

		res := &benchfmt.Result{
			Name:  benchfmt.Name(r.Name),
			Iters: r.Iterations,
			Values: []benchfmt.Value{
				{Value: perOp, Unit: "sec/op"},
			},
		}

		if err := bw.Write(res); err != nil {
			return fmt.Errorf("write benchmark line for %s: %w", r.Name, err)
		}
	}

	return nil
}

func sampleSpread(r bench.Result) (minS, meanS, maxS time.Duration) {
	if len(r.Samples) == 0 {
		return 0, 0, 0
	}

	minS = r.Samples[0]
	maxS = r.Samples[0]

	var total time.Duration

	for _, s := range r.Samples {
		if s < minS {
			minS = s
		}

		if s > maxS {
			maxS = s
		}

		total += s
	}

	return minS, total / time.Duration(len(r.Samples)), maxS
}

func formatDuration(d time.Duration) string {
	switch {
	case d == 0:
		return "-"
	case d < time.Millisecond:
		return fmt.Sprintf("%dµs", d.Microseconds())
	case d < time.Second:
		return fmt.Sprintf("%.1fms", float64(d.Microseconds())/1000)
	default:
		return fmt.Sprintf("%.2fs", d.Seconds())
	}
}
