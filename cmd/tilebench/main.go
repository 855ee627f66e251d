// Package main provides the CLI entry point for tilebench, a
// micro-benchmark harness for vector-tile parsing.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mapward/tilebench/bench"
	"github.com/mapward/tilebench/fixture"
	"github.com/mapward/tilebench/report"
	"github.com/mapward/tilebench/tileparse"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	root := newRootCmd(logger)
	if err := root.Execute(); err != nil {
		logger.Error("benchmark did not complete",
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}
}

func newRootCmd(logger *slog.Logger) *cobra.Command {
	root := &cobra.Command{
		Use:   "tilebench",
		Short: "Vector-tile parsing micro-benchmark harness",
		Long: `Tilebench measures the wall-clock cost of parsing map vector tiles
into renderable buffers. Each fixture coordinate becomes one benchmark unit,
run through a setup-then-sample lifecycle with strictly sequential trials.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newRunCmd(logger))

	return root
}

func newRunCmd(logger *slog.Logger) *cobra.Command {
	var (
		token      string
		styleURL   string
		tileURL    string
		coords     []string
		iterations int
		timeout    time.Duration
		outputJSON bool
		outputGo   bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the tile-parse benchmark suite",
		Long: `Fetch the style document and one tile per coordinate, then measure
repeated parse passes for each and report the collected samples.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBenchmark(cmd.Context(), logger, runConfig{
				token:      token,
				styleURL:   styleURL,
				tileURL:    tileURL,
				coords:     coords,
				iterations: iterations,
				timeout:    timeout,
				outputJSON: outputJSON,
				outputGo:   outputGo,
			})
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&token, "token", "",
		"Access token for fixture endpoints (default: $MAPWARD_TOKEN)")
	flags.StringVar(&styleURL, "style", "",
		"Style document URL")
	flags.StringVar(&tileURL, "tile-url", "",
		"Tile URL template with {z}/{x}/{y} placeholders")
	flags.StringSliceVar(&coords, "coords", nil,
		"Tile coordinates as z/x/y (default: built-in fixture list)")
	flags.IntVar(&iterations, "iterations", bench.DefaultIterations,
		"Bench trials per unit")
	flags.DurationVar(&timeout, "timeout", 0,
		"Per-unit run timeout (0 = none)")
	flags.BoolVar(&outputJSON, "json", false,
		"Output results as JSON instead of a table")
	flags.BoolVar(&outputGo, "bench", false,
		"Output results in Go benchmark format")

	return cmd
}

type runConfig struct {
	token      string
	styleURL   string
	tileURL    string
	coords     []string
	iterations int
	timeout    time.Duration
	outputJSON bool
	outputGo   bool
}

func runBenchmark(
	ctx context.Context,
	logger *slog.Logger,
	cfg runConfig,
) error {
	if cfg.iterations < 0 {
		return fmt.Errorf("iterations must be >= 0, got %d", cfg.iterations)
	}

	token := cfg.token
	if token == "" {
		token = os.Getenv("MAPWARD_TOKEN")
	}

	if token == "" {
		logger.Warn("no access token set; fixture fetches may be rejected")
	}

	coords, err := parseCoords(cfg.coords)
	if err != nil {
		return err
	}

	logger.InfoContext(ctx, "starting benchmark",
		slog.Int("iterations", cfg.iterations),
		slog.Int("coordinates", coordCount(coords)),
	)

	client := fixture.NewClient(fixture.Config{
		Token:    token,
		StyleURL: cfg.styleURL,
		TileURL:  cfg.tileURL,
	}, logger)

	suite := tileparse.NewSuite(client, coords, logger)

	results := make([]bench.Result, 0, len(suite.Units()))

	for _, spec := range suite.Units() {
		runCtx := ctx

		var cancel context.CancelFunc
		if cfg.timeout > 0 {
			runCtx, cancel = context.WithTimeout(ctx, cfg.timeout)
		}

		harness := bench.NewHarness(
			spec.Name, spec.New(), logger,
			bench.WithIterations(cfg.iterations),
		)

		result, runErr := harness.Run(runCtx)

		if cancel != nil {
			cancel()
		}

		if runErr != nil {
			return fmt.Errorf("run %s: %w", spec.Name, runErr)
		}

		results = append(results, *result)
	}

	switch {
	case cfg.outputGo:
		if err := report.GenerateBench(os.Stdout, results); err != nil {
			return fmt.Errorf("generate benchmark output: %w", err)
		}
	case cfg.outputJSON:
		if err := report.GenerateJSON(os.Stdout, results); err != nil {
			return fmt.Errorf("generate JSON report: %w", err)
		}
	default:
		if err := report.Generate(os.Stdout, results); err != nil {
			return fmt.Errorf("generate report: %w", err)
		}
	}

	logger.InfoContext(ctx, "benchmark complete")

	return nil
}

func parseCoords(raw []string) ([]fixture.Coordinate, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	coords := make([]fixture.Coordinate, 0, len(raw))

	for _, s := range raw {
		c, err := fixture.ParseCoordinate(s)
		if err != nil {
			return nil, err
		}

		coords = append(coords, c)
	}

	return coords, nil
}

func coordCount(coords []fixture.Coordinate) int {
	if coords == nil {
		return len(fixture.DefaultCoordinates())
	}

	return len(coords)
}
