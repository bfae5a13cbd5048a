package telemetry

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/fountain/sim"
)

// BenchTarget is the part of sim.Stepper a benchmark drives.
type BenchTarget interface {
	Mode() sim.Mode
	SetMode(sim.Mode) error
	Step(dt float32) error
	SyncPositions() error
	Len() int
}

// BenchmarkResult summarizes the step times of one backend.
type BenchmarkResult struct {
	Mode            string  `csv:"mode"`
	Particles       int     `csv:"particles"`
	Frames          int     `csv:"frames"`
	MeanUS          float64 `csv:"mean_us"`
	StdDevUS        float64 `csv:"stddev_us"`
	P50US           float64 `csv:"p50_us"`
	P95US           float64 `csv:"p95_us"`
	MinUS           float64 `csv:"min_us"`
	MaxUS           float64 `csv:"max_us"`
	ParticlesPerSec float64 `csv:"particles_per_sec"`
	Skipped         string  `csv:"skipped"` // Reason the mode was not run, if any
}

// LogValue implements slog.LogValuer for structured logging.
func (r BenchmarkResult) LogValue() slog.Value {
	if r.Skipped != "" {
		return slog.GroupValue(
			slog.String("mode", r.Mode),
			slog.String("skipped", r.Skipped),
		)
	}
	return slog.GroupValue(
		slog.String("mode", r.Mode),
		slog.Int("particles", r.Particles),
		slog.Int("frames", r.Frames),
		slog.Float64("mean_us", r.MeanUS),
		slog.Float64("stddev_us", r.StdDevUS),
		slog.Float64("p50_us", r.P50US),
		slog.Float64("p95_us", r.P95US),
		slog.Float64("particles_per_sec", r.ParticlesPerSec),
	)
}

// Summarize computes statistics over per-frame step durations.
func Summarize(mode string, particles int, durations []time.Duration) BenchmarkResult {
	r := BenchmarkResult{Mode: mode, Particles: particles, Frames: len(durations)}
	if len(durations) == 0 {
		return r
	}

	us := make([]float64, len(durations))
	for i, d := range durations {
		us[i] = float64(d) / float64(time.Microsecond)
	}
	sort.Float64s(us)

	r.MeanUS, r.StdDevUS = stat.MeanStdDev(us, nil)
	if len(us) < 2 {
		r.StdDevUS = 0
	}
	r.P50US = stat.Quantile(0.5, stat.Empirical, us, nil)
	r.P95US = stat.Quantile(0.95, stat.Empirical, us, nil)
	r.MinUS = us[0]
	r.MaxUS = us[len(us)-1]
	if r.MeanUS > 0 {
		r.ParticlesPerSec = float64(particles) / (r.MeanUS / 1e6)
	}
	return r
}

// BenchmarkConfig controls a benchmark run.
type BenchmarkConfig struct {
	Modes  []sim.Mode // Modes to run, in order
	Frames int        // Timed frames per mode
	DT     float32    // Fixed frame delta
}

// RunBenchmark steps target for cfg.Frames frames at a fixed dt in each mode
// and summarizes the per-frame time, including the device read-back the
// renderer would need. Modes whose capability is missing are reported as
// skipped. The active mode is restored afterwards.
func RunBenchmark(target BenchTarget, cfg BenchmarkConfig, logger *slog.Logger) ([]BenchmarkResult, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Frames < 1 {
		return nil, fmt.Errorf("benchmark needs at least one frame, got %d", cfg.Frames)
	}

	original := target.Mode()
	defer func() {
		if err := target.SetMode(original); err != nil {
			logger.Warn("restoring mode after benchmark", "mode", original.String(), "error", err)
		}
	}()

	results := make([]BenchmarkResult, 0, len(cfg.Modes))
	for _, mode := range cfg.Modes {
		if err := target.SetMode(mode); err != nil {
			if errors.Is(err, sim.ErrCapabilityUnavailable) {
				r := BenchmarkResult{Mode: mode.String(), Particles: target.Len(), Skipped: "unavailable"}
				logger.Info("benchmark", "result", r)
				results = append(results, r)
				continue
			}
			return results, fmt.Errorf("switching to %s: %w", mode, err)
		}

		// One untimed frame so pool start-up and first transfers are excluded
		if err := benchFrame(target, cfg.DT); err != nil {
			return results, fmt.Errorf("benchmark %s: %w", mode, err)
		}

		durations := make([]time.Duration, cfg.Frames)
		for i := range durations {
			start := time.Now()
			if err := benchFrame(target, cfg.DT); err != nil {
				return results, fmt.Errorf("benchmark %s: %w", mode, err)
			}
			durations[i] = time.Since(start)
		}

		r := Summarize(mode.String(), target.Len(), durations)
		logger.Info("benchmark", "result", r)
		results = append(results, r)
	}
	return results, nil
}

func benchFrame(target BenchTarget, dt float32) error {
	if err := target.Step(dt); err != nil {
		return err
	}
	return target.SyncPositions()
}
