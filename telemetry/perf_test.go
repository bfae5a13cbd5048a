package telemetry

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestPerfCollector_BasicTiming(t *testing.T) {
	pc := NewPerfCollector(10)

	// Simulate a few frames
	for i := 0; i < 5; i++ {
		pc.StartFrame()
		pc.StartPhase(PhaseSimulate)
		time.Sleep(100 * time.Microsecond)
		pc.StartPhase(PhaseDraw)
		time.Sleep(200 * time.Microsecond)
		pc.EndFrame()
	}

	stats := pc.Stats()

	if stats.AvgFrameDuration <= 0 {
		t.Error("expected positive average frame duration")
	}
	if _, ok := stats.PhaseAvg[PhaseSimulate]; !ok {
		t.Error("expected simulate phase to be tracked")
	}
	if _, ok := stats.PhaseAvg[PhaseDraw]; !ok {
		t.Error("expected draw phase to be tracked")
	}
	if pc.Frames() != 5 {
		t.Errorf("expected 5 frames, got %d", pc.Frames())
	}
}

func TestPerfCollector_RollingWindow(t *testing.T) {
	pc := NewPerfCollector(5) // Small window

	// Fill window more than once
	for i := 0; i < 12; i++ {
		pc.StartFrame()
		pc.StartPhase(PhaseSimulate)
		time.Sleep(50 * time.Microsecond)
		pc.EndFrame()
	}

	stats := pc.Stats()

	if stats.AvgFrameDuration <= 0 {
		t.Error("expected positive average frame duration after window filled")
	}
	if stats.FramesPerSecond <= 0 {
		t.Error("expected positive frames per second")
	}
	if stats.MinFrameDuration > stats.AvgFrameDuration || stats.AvgFrameDuration > stats.MaxFrameDuration {
		t.Errorf("expected min <= avg <= max, got %v %v %v",
			stats.MinFrameDuration, stats.AvgFrameDuration, stats.MaxFrameDuration)
	}
	if pc.Frames() != 12 {
		t.Errorf("expected 12 frames, got %d", pc.Frames())
	}
}

func TestPerfCollector_PhasePercentages(t *testing.T) {
	pc := NewPerfCollector(10)

	// Simulate with uneven phase durations
	for i := 0; i < 5; i++ {
		pc.StartFrame()
		pc.StartPhase(PhaseTransfer)
		time.Sleep(10 * time.Microsecond)
		pc.StartPhase(PhaseSimulate)
		time.Sleep(2 * time.Millisecond)
		pc.EndFrame()
	}

	stats := pc.Stats()

	fastPct := stats.PhasePct[PhaseTransfer]
	slowPct := stats.PhasePct[PhaseSimulate]

	if slowPct <= fastPct {
		t.Errorf("expected simulate phase (%v%%) > transfer phase (%v%%)", slowPct, fastPct)
	}
}

func TestPerfCollector_EmptyStats(t *testing.T) {
	pc := NewPerfCollector(0)

	stats := pc.Stats()

	// Empty collector should return zero values without panicking
	if stats.AvgFrameDuration != 0 {
		t.Error("expected zero avg frame duration for empty collector")
	}
	if stats.PhaseAvg == nil {
		t.Error("expected non-nil PhaseAvg map")
	}
	if stats.PhasePct == nil {
		t.Error("expected non-nil PhasePct map")
	}
}

func TestPerfStats_LogValue(t *testing.T) {
	stats := PerfStats{
		AvgFrameDuration: 2 * time.Millisecond,
		FramesPerSecond:  500,
		PhasePct:         map[string]float64{PhaseSimulate: 75.55, PhaseUI: 0.01},
	}

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	logger.Info("perf", "stats", stats)

	out := buf.String()
	if !strings.Contains(out, `"avg_frame_us":2000`) {
		t.Errorf("missing avg_frame_us in %s", out)
	}
	if !strings.Contains(out, `"simulate_pct":75.5`) {
		t.Errorf("missing simulate_pct in %s", out)
	}
	if strings.Contains(out, "ui_pct") {
		t.Errorf("negligible phase should be omitted: %s", out)
	}
}

func TestPerfStats_ToCSV(t *testing.T) {
	stats := PerfStats{
		AvgFrameDuration: 3 * time.Millisecond,
		PhaseAvg:         map[string]time.Duration{PhaseSimulate: 2 * time.Millisecond},
		PhasePct:         map[string]float64{PhaseSimulate: 66.6},
	}
	row := stats.ToCSV(120, "vector8", 1000)
	if row.Frame != 120 || row.Mode != "vector8" || row.Particles != 1000 {
		t.Errorf("unexpected identity columns: %+v", row)
	}
	if row.AvgFrameUS != 3000 || row.SimulateUS != 2000 || row.SimulatePct != 66.6 {
		t.Errorf("unexpected timing columns: %+v", row)
	}
	if row.TransferUS != 0 {
		t.Errorf("expected missing phase to be zero, got %d", row.TransferUS)
	}
}
