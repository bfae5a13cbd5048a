package demo

import (
	"fmt"

	"github.com/pthm-cable/fountain/sim"
	"github.com/pthm-cable/fountain/telemetry"
)

// afterFrame emits the periodic perf log line and CSV row.
func (a *App) afterFrame() {
	interval := a.logInterval()
	if interval <= 0 {
		return
	}
	now := a.clock.Since()
	if now < a.nextLog {
		return
	}
	a.nextLog = now + interval

	stats := a.perf.Stats()
	frame := a.perf.Frames()
	mode := a.stepper.Mode().String()
	a.logger.Info("perf",
		"frame", frame,
		"mode", mode,
		"particles", a.stepper.Len(),
		"paused", a.paused,
		"stats", stats,
	)
	if err := a.output.WritePerf(stats.ToCSV(frame, mode, a.stepper.Len())); err != nil {
		a.logger.Warn("writing perf row", "error", err)
	}
}

// RunBenchmark steps every backend for the configured number of frames,
// logs and writes the results, and restores the active mode.
func (a *App) RunBenchmark() ([]telemetry.BenchmarkResult, error) {
	a.logger.Info("benchmark started",
		"particles", a.stepper.Len(),
		"frames", a.cfg.Telemetry.BenchmarkFrames,
		"dt", a.cfg.Derived.BenchmarkDT32,
	)
	results, err := telemetry.RunBenchmark(a.stepper, telemetry.BenchmarkConfig{
		Modes:  sim.Modes(),
		Frames: a.cfg.Telemetry.BenchmarkFrames,
		DT:     a.cfg.Derived.BenchmarkDT32,
	}, a.logger)
	if werr := a.output.WriteBenchmark(results); werr != nil {
		a.logger.Warn("writing benchmark", "error", werr)
	}
	if err != nil {
		a.message = fmt.Sprintf("benchmark: %v", err)
		return results, err
	}

	a.message = benchmarkSummary(results)
	// Benchmark frames are not real time; do not catch up on them
	a.stepper.Skip()
	return results, nil
}

// benchmarkSummary names the fastest backend that ran.
func benchmarkSummary(results []telemetry.BenchmarkResult) string {
	var best *telemetry.BenchmarkResult
	for i := range results {
		r := &results[i]
		if r.Skipped != "" || r.Frames == 0 {
			continue
		}
		if best == nil || r.MeanUS < best.MeanUS {
			best = r
		}
	}
	if best == nil {
		return "benchmark: no backend ran"
	}
	return fmt.Sprintf("benchmark: fastest %s at %.0fus/frame", best.Mode, best.MeanUS)
}
