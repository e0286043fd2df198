// Package main provides the CLI entry point for tlsbench, an instruction
// count benchmarking tool for TLS handshakes and transfers.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/weiihann/tlsbench/benchmark"
	"github.com/weiihann/tlsbench/harness"
	"github.com/weiihann/tlsbench/report"
	"github.com/weiihann/tlsbench/results"
	"github.com/weiihann/tlsbench/suite"
)

func main() {
	level := new(slog.LevelVar)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))

	root := newRootCmd(logger, level)
	if err := root.Execute(); err != nil {
		logger.Error("tlsbench failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func newRootCmd(logger *slog.Logger, level *slog.LevelVar) *cobra.Command {
	v := viper.New()

	root := &cobra.Command{
		Use:   "tlsbench",
		Short: "Instruction count benchmarks for TLS handshakes and transfers",
		Long: `Tlsbench generates a suite of TLS benchmarks covering every compatible
cipher suite, protocol version, key type and resumption strategy, validates it,
runs it through an external engine on both sides of the connection and reports
the instructions each side executed.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return loadConfig(v, cmd, level)
		},
	}

	flags := root.PersistentFlags()
	flags.String("config", "",
		"Config file providing flag defaults (toml, yaml or json)")
	flags.String("log-level", "info",
		"Log level: debug, info, warn, error")
	flags.String("suite", "",
		"Suite definition file (default: built-in suite)")

	root.AddCommand(
		newListCmd(v),
		newValidateCmd(v, logger),
		newRunCmd(v, logger),
		newCompareCmd(v, logger),
	)

	return root
}

func loadConfig(v *viper.Viper, cmd *cobra.Command, level *slog.LevelVar) error {
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("bind flags: %w", err)
	}

	v.SetEnvPrefix("TLSBENCH")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)

		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", path, err)
		}
	}

	if err := level.UnmarshalText([]byte(v.GetString("log-level"))); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}

	return nil
}

func newListCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print the benchmarks of the suite",
		RunE: func(cmd *cobra.Command, _ []string) error {
			benches, _, err := loadSuite(v)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if v.GetBool("json") {
				return suite.WriteManifest(out, benches)
			}

			for i := range benches {
				fmt.Fprintln(out, benches[i].Name())
			}

			return nil
		},
	}

	cmd.Flags().Bool("json", false,
		"Print the engine manifest instead of names")

	return cmd
}

func newValidateCmd(v *viper.Viper, logger *slog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check that the suite can be run",
		RunE: func(cmd *cobra.Command, _ []string) error {
			benches, summary, err := loadValidSuite(cmd.Context(), v, logger)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(),
				"%d benchmarks over %d parameter sets are valid\n",
				len(benches), summary.ParamSets)

			return nil
		},
	}
}

func newRunCmd(v *viper.Viper, logger *slog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the suite through the engine",
		Long: `Validate the suite, hand it to the engine for both the client and the
server side, store the instruction counts and report them.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSuite(cmd.Context(), logger, v, cmd.OutOrStdout())
		},
	}

	flags := cmd.Flags()
	flags.String("engine", "",
		"Path to a prebuilt engine binary")
	flags.String("engine-dir", "",
		"Path to the engine sources (default: ./engine)")
	flags.Bool("skip-build", false,
		"Skip building the engine")
	flags.StringSlice("wrapper", nil,
		"Command wrapping the engine, e.g. valgrind,--tool=callgrind")
	flags.String("output-dir", filepath.Join("target", "tlsbench"),
		"Directory for the manifest, engine artifacts and results")
	flags.String("label", "",
		"Label stored with the results")
	flags.Duration("timeout", 30*time.Minute,
		"Timeout for each engine invocation")
	flags.Bool("json", false,
		"Output results as JSON instead of table")
	flags.String("metrics-file", "",
		"Also write results in Prometheus text format to this file")

	return cmd
}

func newCompareCmd(v *viper.Viper, logger *slog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare BASELINE CANDIDATE",
		Short: "Compare two stored result files",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return compareRuns(cmd.Context(), logger, v, cmd.OutOrStdout(), args[0], args[1])
		},
	}

	flags := cmd.Flags()
	flags.Float64("threshold", 0.2,
		"Flag changes of at least this many percent")
	flags.Bool("fail-on-significant", false,
		"Exit with an error if any change is flagged")

	return cmd
}

func loadSuite(v *viper.Viper) ([]benchmark.Benchmark, suite.Summary, error) {
	cfg := suite.DefaultConfig()

	if path := v.GetString("suite"); path != "" {
		var err error

		cfg, err = suite.LoadFile(path)
		if err != nil {
			return nil, suite.Summary{}, fmt.Errorf("load suite %s: %w", path, err)
		}
	}

	gen, err := suite.NewGenerator(cfg)
	if err != nil {
		return nil, suite.Summary{}, err
	}

	if err := suite.CheckTicketer(gen.Ticketer()); err != nil {
		return nil, suite.Summary{}, err
	}

	benches, summary := gen.Build()

	return benches, summary, nil
}

func loadValidSuite(
	ctx context.Context,
	v *viper.Viper,
	logger *slog.Logger,
) ([]benchmark.Benchmark, suite.Summary, error) {
	benches, summary, err := loadSuite(v)
	if err != nil {
		return nil, summary, err
	}

	if err := benchmark.Validate(benches); err != nil {
		return nil, summary, fmt.Errorf("invalid suite: %w", err)
	}

	logger.InfoContext(ctx, "suite validated",
		slog.Int("benchmarks", summary.TotalBenchmarks),
		slog.Int("handshakes", summary.Handshakes),
		slog.Int("transfers", summary.Transfers),
		slog.Int("param_sets", summary.ParamSets),
		slog.Int("skipped", summary.Skipped),
	)

	return benches, summary, nil
}

func runSuite(
	ctx context.Context,
	logger *slog.Logger,
	v *viper.Viper,
	out io.Writer,
) error {
	// Step 1: Build and validate the suite.
	benches, _, err := loadValidSuite(ctx, v, logger)
	if err != nil {
		return err
	}

	outputDir := v.GetString("output-dir")
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	// Step 2: Write the manifest.
	manifestPath := filepath.Join(outputDir, "suite.jsonl")
	if err := writeManifest(manifestPath, benches); err != nil {
		return err
	}

	// Step 3: Resolve the engine (building it unless --skip-build).
	binPath, err := resolveEngine(ctx, logger, v)
	if err != nil {
		return err
	}

	// Step 4: Run both sides.
	names := make([]string, len(benches))
	for i := range benches {
		names[i] = benches[i].Name()
	}

	cmdCfg := harness.WrapCommand(binPath, v.GetStringSlice("wrapper"))
	runner := harness.NewRunner(cmdCfg.Binary, cmdCfg.ExtraArgs, nil, logger)

	counts, err := runner.Run(ctx, harness.RunConfig{
		ManifestPath: manifestPath,
		Benchmarks:   names,
		OutputDir:    filepath.Join(outputDir, "engine"),
		Timeout:      v.GetDuration("timeout"),
	})
	if err != nil {
		return fmt.Errorf("run engine: %w", err)
	}

	// Step 5: Store results.
	resultsPath := filepath.Join(outputDir, "results.cbor")
	if err := results.Save(resultsPath, results.NewRun(v.GetString("label"), counts)); err != nil {
		return err
	}

	if path := v.GetString("metrics-file"); path != "" {
		if err := report.WriteMetrics(path, benches, counts); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}

	// Step 6: Generate report.
	if v.GetBool("json") {
		if err := report.GenerateJSON(out, benches, counts); err != nil {
			return fmt.Errorf("generate JSON report: %w", err)
		}
	} else {
		if err := report.Generate(out, benches, counts); err != nil {
			return fmt.Errorf("generate report: %w", err)
		}
	}

	logger.InfoContext(ctx, "benchmark complete",
		slog.String("results", resultsPath),
	)

	return nil
}

func writeManifest(path string, benches []benchmark.Benchmark) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create manifest: %w", err)
	}

	if err := suite.WriteManifest(f, benches); err != nil {
		f.Close()

		return fmt.Errorf("write manifest: %w", err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("close manifest: %w", err)
	}

	return nil
}

func resolveEngine(
	ctx context.Context,
	logger *slog.Logger,
	v *viper.Viper,
) (string, error) {
	if engine := v.GetString("engine"); engine != "" {
		return engine, nil
	}

	engineDir := v.GetString("engine-dir")
	if engineDir == "" {
		engineDir = "engine"
	}

	engineDir, err := filepath.Abs(engineDir)
	if err != nil {
		return "", fmt.Errorf("resolve engine dir: %w", err)
	}

	if !v.GetBool("skip-build") {
		return harness.Build(ctx, logger, engineDir)
	}

	toolchain, err := harness.DetectToolchain(engineDir)
	if err != nil {
		return "", err
	}

	return harness.ResolveBinary(engineDir, toolchain), nil
}

var errSignificant = errors.New("significant instruction count changes")

func compareRuns(
	ctx context.Context,
	logger *slog.Logger,
	v *viper.Viper,
	out io.Writer,
	baselinePath, candidatePath string,
) error {
	benches, _, err := loadValidSuite(ctx, v, logger)
	if err != nil {
		return err
	}

	baseline, err := results.Load(baselinePath)
	if err != nil {
		return fmt.Errorf("load baseline: %w", err)
	}

	candidate, err := results.Load(candidatePath)
	if err != nil {
		return fmt.Errorf("load candidate: %w", err)
	}

	if missing := missingResults(benches, candidate.Counts); len(missing) > 0 {
		return fmt.Errorf("candidate %s was not produced by this suite: missing %s",
			candidatePath, strings.Join(missing, ", "))
	}

	summary, err := report.Compare(out, benches, baseline.Counts, candidate.Counts, v.GetFloat64("threshold"))
	if err != nil {
		return err
	}

	logger.InfoContext(ctx, "comparison complete",
		slog.Int("compared", summary.Compared),
		slog.Int("significant", summary.Significant),
		slog.Int("new", len(summary.New)),
	)

	if summary.Significant > 0 && v.GetBool("fail-on-significant") {
		return fmt.Errorf("%w: %d", errSignificant, summary.Significant)
	}

	return nil
}

func missingResults(benches []benchmark.Benchmark, counts benchmark.Results) []string {
	var missing []string

	for i := range benches {
		if _, ok := counts[benches[i].Name()]; !ok {
			missing = append(missing, benches[i].Name())
		}
	}

	return missing
}
