package harness

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"github.com/weiihann/tlsbench/benchmark"
)

// RunConfig holds parameters for a single engine execution.
type RunConfig struct {
	// ManifestPath is the JSONL suite description fed to the engine.
	ManifestPath string
	// Benchmarks are the names the engine must report on each side.
	Benchmarks []string
	// OutputDir is where the engine may leave per-benchmark artifacts.
	OutputDir string
	Timeout   time.Duration
}

// Runner launches and manages the engine binary.
type Runner struct {
	BinaryPath string
	ExtraArgs  []string
	Env        []string
	Logger     *slog.Logger
}

// NewRunner creates a Runner. When the engine runs under a wrapper (e.g. a
// profiler), pass the wrapper as binaryPath and the engine path in
// extraArgs. Env is appended to the inherited environment.
func NewRunner(
	binaryPath string,
	extraArgs, env []string,
	logger *slog.Logger,
) *Runner {
	return &Runner{
		BinaryPath: binaryPath,
		ExtraArgs:  extraArgs,
		Env:        env,
		Logger:     logger.With(slog.String("engine", binaryPath)),
	}
}

// Run executes every benchmark of the manifest on both sides and returns
// the counts keyed by bare benchmark name. It fails if the engine leaves
// any expected benchmark unreported.
func (r *Runner) Run(ctx context.Context, cfg RunConfig) (benchmark.Results, error) {
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	if cfg.OutputDir != "" {
		if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
			return nil, fmt.Errorf("create output dir %s: %w", cfg.OutputDir, err)
		}
	}

	c := newCollector(cfg.Benchmarks)

	for _, side := range benchmark.AllSides() {
		if err := r.runSide(ctx, cfg, side, c); err != nil {
			return nil, err
		}
	}

	if err := c.complete(); err != nil {
		return nil, err
	}

	return c.results, nil
}

func (r *Runner) runSide(
	ctx context.Context,
	cfg RunConfig,
	side benchmark.Side,
	c *collector,
) error {
	args := make([]string, 0, len(r.ExtraArgs)+4)
	args = append(args, r.ExtraArgs...)
	args = append(args, "--side", side.String())

	if cfg.OutputDir != "" {
		args = append(args, "--output-dir", cfg.OutputDir)
	}

	cmd := exec.CommandContext(ctx, r.BinaryPath, args...)

	if len(r.Env) > 0 {
		cmd.Env = append(os.Environ(), r.Env...)
	}

	manifest, err := os.Open(cfg.ManifestPath)
	if err != nil {
		return fmt.Errorf("open manifest %s: %w", cfg.ManifestPath, err)
	}
	defer manifest.Close()

	cmd.Stdin = manifest

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logger := r.Logger.With(slog.String("side", side.String()))
	logger.Info("starting engine",
		slog.Int("benchmarks", len(cfg.Benchmarks)),
	)

	start := time.Now()

	if err := cmd.Run(); err != nil {
		return fmt.Errorf(
			"engine failed on %s side: %w\nstderr: %s",
			side, err, stderr.String(),
		)
	}

	logger.Info("engine finished",
		slog.Duration("wall_time", time.Since(start)),
	)

	if err := c.parse(side, &stdout); err != nil {
		return fmt.Errorf("parse %s output: %w", side, err)
	}

	return nil
}

// collector accumulates engine records into a result map.
type collector struct {
	results  benchmark.Results
	reported map[string][2]bool
	order    []string
}

func newCollector(names []string) *collector {
	c := &collector{
		results:  make(benchmark.Results, len(names)),
		reported: make(map[string][2]bool, len(names)),
		order:    names,
	}

	for _, name := range names {
		c.reported[name] = [2]bool{}
	}

	return c
}

func (c *collector) parse(side benchmark.Side, r io.Reader) error {
	dec := json.NewDecoder(r)

	for {
		var rec Record

		err := dec.Decode(&rec)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("decode JSON: %w", err)
		}

		if rec.Side != "" && rec.Side != side.String() {
			return fmt.Errorf("record for %q has side %q, want %s",
				rec.Benchmark, rec.Side, side)
		}

		seen, ok := c.reported[rec.Benchmark]
		if !ok {
			return fmt.Errorf("unknown benchmark %q", rec.Benchmark)
		}
		if seen[side] {
			return fmt.Errorf("benchmark %q reported twice", rec.Benchmark)
		}

		seen[side] = true
		c.reported[rec.Benchmark] = seen

		counts := c.results[rec.Benchmark]
		if side == benchmark.SideServer {
			counts.Server = rec.Instructions
		} else {
			counts.Client = rec.Instructions
		}
		c.results[rec.Benchmark] = counts
	}
}

func (c *collector) complete() error {
	var missing []string

	for _, name := range c.order {
		seen := c.reported[name]
		for _, side := range benchmark.AllSides() {
			if !seen[side] {
				missing = append(missing, fmt.Sprintf("%s (%s)", name, side))
			}
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("engine did not report %d results: %v", len(missing), missing)
	}

	return nil
}
