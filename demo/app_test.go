package demo

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm-cable/fountain/config"
	"github.com/pthm-cable/fountain/particles"
	"github.com/pthm-cable/fountain/sim"
	"github.com/pthm-cable/fountain/telemetry"
)

func testConfig() *config.Config {
	cfg := config.Defaults()
	cfg.Particles.Count = 256
	cfg.Backend.Seed = 3
	cfg.Backend.Mode = "scalar"
	cfg.GPU.Enabled = false
	cfg.Telemetry.BenchmarkFrames = 2
	cfg.Telemetry.LogInterval = 1
	return cfg
}

func newTestApp(t *testing.T, opts Options) (*App, *sim.ManualClock) {
	t.Helper()
	if opts.Config == nil {
		opts.Config = testConfig()
	}
	clock := &sim.ManualClock{}
	opts.Clock = clock
	opts.Headless = true
	opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))

	a, err := New(opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Unload() })
	return a, clock
}

func TestNewAppliesOverrides(t *testing.T) {
	a, _ := newTestApp(t, Options{Mode: "vector8", Seed: 9})
	assert.Equal(t, sim.ModeVectorWide, a.Stepper().Mode())
	assert.Equal(t, 256, a.Stepper().Len())
	assert.False(t, a.Stepper().DeviceAvailable())
}

func TestNewRejectsUnknownMode(t *testing.T) {
	_, err := New(Options{
		Config:   testConfig(),
		Mode:     "warp",
		Headless: true,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	assert.ErrorIs(t, err, sim.ErrUnknownMode)
}

func TestNewFallsBackWithoutDevice(t *testing.T) {
	a, _ := newTestApp(t, Options{Mode: "device"})
	assert.Equal(t, sim.ModeParallel, a.Stepper().Mode())
}

func TestNewUsesEmulatedDevice(t *testing.T) {
	cfg := testConfig()
	cfg.GPU.Enabled = true
	cfg.GPU.Emulate = true
	cfg.Backend.Mode = "device"

	a, _ := newTestApp(t, Options{Config: cfg})
	assert.True(t, a.Stepper().DeviceAvailable())
	assert.Equal(t, sim.ModeDevice, a.Stepper().Mode())
}

func TestHeadlessFramesAdvance(t *testing.T) {
	a, clock := newTestApp(t, Options{})

	before := append([]particles.Vec4(nil), a.Stepper().Positions()...)
	for i := 0; i < 5; i++ {
		clock.Add(16 * time.Millisecond)
		a.UpdateHeadless()
	}
	assert.Equal(t, int64(5), a.Frame())
	assert.NotEqual(t, before, a.Stepper().Positions())
	assert.InDelta(t, 0.08, a.Stepper().Elapsed(), 1e-6)
}

func TestPauseFreezesParticles(t *testing.T) {
	a, clock := newTestApp(t, Options{})

	a.TogglePause()
	require.True(t, a.Paused())
	before := append([]particles.Vec4(nil), a.Stepper().Positions()...)
	clock.Add(time.Second)
	a.UpdateHeadless()
	assert.Equal(t, before, a.Stepper().Positions())

	a.TogglePause()
	clock.Add(10 * time.Millisecond)
	a.UpdateHeadless()
	assert.False(t, a.Paused())
	assert.InDelta(t, 1.01, a.Stepper().Elapsed(), 1e-5)
	assert.NotEqual(t, before, a.Stepper().Positions())
}

func TestSelectModeFailureShowsMessage(t *testing.T) {
	a, _ := newTestApp(t, Options{})

	err := a.SelectMode(sim.ModeDevice)
	assert.ErrorIs(t, err, sim.ErrCapabilityUnavailable)
	assert.Equal(t, sim.ModeScalar, a.Stepper().Mode())
	assert.Contains(t, a.Message(), "device")

	require.NoError(t, a.SelectMode(sim.ModeBLAS))
	assert.Equal(t, sim.ModeBLAS, a.Stepper().Mode())
	assert.Empty(t, a.Message())
}

func TestDeviceFailurePausesStepping(t *testing.T) {
	dev := sim.NewEmulatedDevice(particles.NewRandSource(1))
	a, clock := newTestApp(t, Options{Device: dev})
	require.NoError(t, a.SelectMode(sim.ModeDevice))

	dev.FailNext = errors.New("lost context")
	clock.Add(16 * time.Millisecond)
	a.UpdateHeadless()

	assert.True(t, a.Paused())
	assert.Contains(t, a.Message(), "lost context")
	assert.Equal(t, sim.ModeDevice, a.Stepper().Mode())
}

func TestRotateUsesConfiguredSpeed(t *testing.T) {
	a, _ := newTestApp(t, Options{})
	a.Rotate(1)
	a.Rotate(1)
	assert.InDelta(t, 2*0.02, a.Camera().Angle, 1e-6)

	a.ToggleDrawing()
	assert.False(t, a.drawParticles)
}

func TestToggleSelectorHidesButtons(t *testing.T) {
	a, _ := newTestApp(t, Options{})
	require.True(t, a.selector.IsVisible())

	assert.False(t, a.ToggleSelector())
	assert.False(t, a.selector.IsVisible())
	assert.True(t, a.ToggleSelector())
}

func TestRunBenchmarkWritesCSV(t *testing.T) {
	dir := t.TempDir()
	a, _ := newTestApp(t, Options{OutputDir: dir, Mode: "vector4"})

	results, err := a.RunBenchmark()
	require.NoError(t, err)
	require.Len(t, results, len(sim.Modes()))
	assert.Equal(t, "unavailable", results[sim.ModeDevice].Skipped)
	assert.Equal(t, sim.ModeVectorNarrow, a.Stepper().Mode())
	assert.Contains(t, a.Message(), "fastest")

	data, err := os.ReadFile(filepath.Join(dir, "benchmark.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "particles_per_sec")

	_, err = os.Stat(filepath.Join(dir, "config.yaml"))
	assert.NoError(t, err)
}

func TestPerfRowsFollowLogInterval(t *testing.T) {
	dir := t.TempDir()
	a, clock := newTestApp(t, Options{OutputDir: dir})

	// Interval is one second: frames at 0.5s, 1.0s, 1.5s, 2.0s log twice
	for i := 0; i < 4; i++ {
		clock.Add(500 * time.Millisecond)
		a.UpdateHeadless()
	}
	require.NoError(t, a.output.Close())

	data, err := os.ReadFile(filepath.Join(dir, "perf.csv"))
	require.NoError(t, err)
	lines := 0
	for _, b := range data {
		if b == '\n' {
			lines++
		}
	}
	assert.Equal(t, 3, lines) // header + two rows
}

func TestBenchmarkSummary(t *testing.T) {
	assert.Equal(t, "benchmark: no backend ran", benchmarkSummary(nil))
	got := benchmarkSummary([]telemetry.BenchmarkResult{
		{Mode: "scalar", Frames: 2, MeanUS: 900},
		{Mode: "device", Skipped: "unavailable"},
		{Mode: "vector8", Frames: 2, MeanUS: 300},
	})
	assert.Equal(t, "benchmark: fastest vector8 at 300us/frame", got)
}
