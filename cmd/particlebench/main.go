// Package main runs the stepping backends headless over a fixed number of
// frames and reports per-frame timing as a table and CSV.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/pthm-cable/fountain/config"
	"github.com/pthm-cable/fountain/sim"
	"github.com/pthm-cable/fountain/telemetry"
)

// benchOptions carries the command-line overrides into run.
type benchOptions struct {
	count     int
	frames    int
	workers   int
	seed      int64
	modes     string
	outputDir string
	device    sim.Device
}

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Base config YAML file (empty = use defaults)")
	count := flag.Int("particles", 0, "Particle count (0 = use config)")
	frames := flag.Int("frames", 0, "Timed frames per backend (0 = use config)")
	modes := flag.String("modes", "", "Comma-separated backends (empty = all)")
	workers := flag.Int("workers", 0, "Worker pool size (0 = use config)")
	seed := flag.Int64("seed", 1, "RNG seed")
	emulate := flag.Bool("emulate", true, "Benchmark the device path on the host-memory emulation")
	outputDir := flag.String("output", "", "Output directory for benchmark.csv (empty = none)")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	opts := benchOptions{
		count:     *count,
		frames:    *frames,
		workers:   *workers,
		seed:      *seed,
		modes:     *modes,
		outputDir: *outputDir,
	}
	if *emulate {
		opts.device = sim.NewEmulatedDevice(nil)
	}

	if err := run(config.Cfg(), opts, os.Stdout, logger); err != nil {
		slog.Error("benchmark failed", "error", err)
		os.Exit(1)
	}
}

// run benchmarks the selected backends, prints the table to w and writes the
// CSV. The stepper is closed before run returns, whatever the outcome.
func run(cfg *config.Config, o benchOptions, w io.Writer, logger *slog.Logger) error {
	if o.count > 0 {
		cfg.Particles.Count = o.count
	}
	if o.frames > 0 {
		cfg.Telemetry.BenchmarkFrames = o.frames
	}
	selected, err := parseModes(o.modes)
	if err != nil {
		return fmt.Errorf("invalid -modes: %w", err)
	}

	opts, err := sim.OptionsFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	opts.Mode = sim.ModeScalar
	opts.Seed = o.seed
	opts.Logger = logger
	opts.Device = o.device
	if o.workers > 0 {
		opts.Workers = o.workers
	}

	stepper, err := sim.NewStepper(sim.ParamsFromConfig(cfg), cfg.Particles.Count, opts)
	if err != nil {
		return fmt.Errorf("creating stepper: %w", err)
	}
	defer func() {
		if cerr := stepper.Close(); cerr != nil {
			logger.Error("failed to close stepper", "error", cerr)
		}
	}()

	results, err := telemetry.RunBenchmark(stepper, telemetry.BenchmarkConfig{
		Modes:  selected,
		Frames: cfg.Telemetry.BenchmarkFrames,
		DT:     cfg.Derived.BenchmarkDT32,
	}, logger)

	writeTable(w, results)

	output, oerr := telemetry.NewOutputManager(o.outputDir)
	if oerr != nil {
		return errors.Join(err, fmt.Errorf("creating output: %w", oerr))
	}
	if werr := output.WriteBenchmark(results); werr != nil {
		logger.Error("failed to write benchmark", "error", werr)
	}
	if werr := output.WriteConfig(cfg); werr != nil {
		logger.Error("failed to write config", "error", werr)
	}
	if cerr := output.Close(); cerr != nil {
		logger.Error("failed to close output", "error", cerr)
	}
	return err
}

// parseModes turns a comma-separated list into modes; empty means all.
func parseModes(list string) ([]sim.Mode, error) {
	if strings.TrimSpace(list) == "" {
		return sim.Modes(), nil
	}
	var out []sim.Mode
	for _, name := range strings.Split(list, ",") {
		m, err := sim.ParseMode(name)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func writeTable(w io.Writer, results []telemetry.BenchmarkResult) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "mode\tparticles\tmean_us\tstddev_us\tp50_us\tp95_us\tMparticles/s\t")
	for _, r := range results {
		if r.Skipped != "" {
			fmt.Fprintf(tw, "%s\t%d\t%s\t\t\t\t\t\n", r.Mode, r.Particles, r.Skipped)
			continue
		}
		fmt.Fprintf(tw, "%s\t%d\t%.1f\t%.1f\t%.1f\t%.1f\t%.2f\t\n",
			r.Mode, r.Particles, r.MeanUS, r.StdDevUS, r.P50US, r.P95US, r.ParticlesPerSec/1e6)
	}
	tw.Flush()
}
