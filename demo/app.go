// Package demo runs the fountain viewer: it owns the stepper, reads input,
// draws the particles and overlay, and reports frame timing.
package demo

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pthm-cable/fountain/camera"
	"github.com/pthm-cable/fountain/config"
	"github.com/pthm-cable/fountain/renderer"
	"github.com/pthm-cable/fountain/sim"
	"github.com/pthm-cable/fountain/telemetry"
	"github.com/pthm-cable/fountain/ui"
)

// Title is shown in the window title bar and the HUD.
const Title = "Particle Fountain"

// Options configures an App.
type Options struct {
	Config    *config.Config // nil = config.Cfg()
	Seed      int64          // Overrides backend.seed when non-zero
	Mode      string         // Overrides backend.mode when non-empty
	OutputDir string         // CSV and config snapshot directory, empty = off
	Headless  bool           // No window; the OpenGL device is never probed
	Device    sim.Device     // Overrides device selection from the gpu section
	Clock     sim.Clock      // Defaults to the wall clock
	Logger    *slog.Logger
}

// App holds the viewer state.
type App struct {
	cfg    *config.Config
	logger *slog.Logger
	clock  sim.Clock

	stepper *sim.Stepper
	camera  *camera.Orbit
	perf    *telemetry.PerfCollector
	output  *telemetry.OutputManager

	// Rendering
	particles *renderer.ParticleRenderer
	ground    *renderer.Ground
	hud       *ui.HUD
	perfPanel *ui.PerfPanel
	selector  *ui.ModeSelector

	// State
	headless      bool
	paused        bool
	drawParticles bool
	showPerf      bool
	message       string
	nextLog       time.Duration

	screenWidth, screenHeight int32
}

// New builds the stepper and viewer collaborators. If the requested mode is
// the device and no device is usable, it falls back to the parallel backend.
func New(opts Options) (*App, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Cfg()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := opts.Clock
	if clock == nil {
		clock = sim.NewWallClock()
	}

	so, err := sim.OptionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	if opts.Mode != "" {
		if so.Mode, err = sim.ParseMode(opts.Mode); err != nil {
			return nil, err
		}
	}
	if opts.Seed != 0 {
		so.Seed = opts.Seed
	}
	so.Device = selectDevice(cfg, opts, logger)
	so.Clock = clock
	so.Logger = logger

	params := sim.ParamsFromConfig(cfg)
	stepper, err := sim.NewStepper(params, cfg.Particles.Count, so)
	if errors.Is(err, sim.ErrCapabilityUnavailable) {
		logger.Warn("device mode unavailable, falling back", "mode", sim.ModeParallel.String())
		so.Mode = sim.ModeParallel
		stepper, err = sim.NewStepper(params, cfg.Particles.Count, so)
	}
	if err != nil {
		return nil, fmt.Errorf("creating stepper: %w", err)
	}

	output, err := telemetry.NewOutputManager(opts.OutputDir)
	if err != nil {
		stepper.Close()
		return nil, err
	}
	if err := output.WriteConfig(cfg); err != nil {
		logger.Warn("writing config snapshot", "error", err)
	}

	a := &App{
		cfg:           cfg,
		logger:        logger,
		clock:         clock,
		stepper:       stepper,
		camera:        camera.FromSlices(cfg.Camera.Eye, cfg.Camera.Target, cfg.Camera.Fovy),
		perf:          telemetry.NewPerfCollector(cfg.Telemetry.PerfWindow),
		output:        output,
		particles:     renderer.NewParticleRenderer(),
		ground:        renderer.NewGround(20, 0.25),
		hud:           ui.NewHUD(),
		headless:      opts.Headless,
		drawParticles: true,
		screenWidth:   int32(cfg.Screen.Width),
		screenHeight:  int32(cfg.Screen.Height),
	}
	a.perfPanel = ui.NewPerfPanel(10, 120, 230)
	a.selector = ui.NewModeSelector(a.screenWidth-130, 10)
	a.nextLog = clock.Since() + a.logInterval()

	if output != nil {
		logger.Info("output enabled", "dir", output.Dir())
	}
	return a, nil
}

// selectDevice picks the compute device from the gpu config section.
func selectDevice(cfg *config.Config, opts Options, logger *slog.Logger) sim.Device {
	switch {
	case opts.Device != nil:
		return opts.Device
	case !cfg.GPU.Enabled:
		return nil
	case cfg.GPU.Emulate:
		return sim.NewEmulatedDevice(nil)
	case opts.Headless:
		// No GL context to compile against
		return nil
	default:
		return renderer.NewComputeDevice(cfg.GPU.LocalSize, cfg.GPU.Shader, logger)
	}
}

// Stepper returns the simulation stepper.
func (a *App) Stepper() *sim.Stepper { return a.stepper }

// Frame returns the number of completed frames.
func (a *App) Frame() int64 { return a.perf.Frames() }

// Paused reports whether stepping is suspended.
func (a *App) Paused() bool { return a.paused }

// Message returns the last notice shown in the HUD.
func (a *App) Message() string { return a.message }

// SelectMode switches the backend. Failures are logged and shown in the HUD;
// the previous mode stays active.
func (a *App) SelectMode(m sim.Mode) error {
	from := a.stepper.Mode()
	if err := a.stepper.SetMode(m); err != nil {
		a.logger.Warn("mode switch failed", "from", from.String(), "to", m.String(), "error", err)
		a.message = fmt.Sprintf("%s: %v", m, err)
		return err
	}
	if from != m {
		a.logger.Info("mode switched", "from", from.String(), "to", m.String())
	}
	a.message = ""
	return nil
}

// TogglePause suspends or resumes stepping.
func (a *App) TogglePause() {
	a.paused = !a.paused
}

// ToggleDrawing turns particle drawing on or off, leaving the simulation and
// its transfers running.
func (a *App) ToggleDrawing() {
	a.drawParticles = !a.drawParticles
}

// ToggleSelector shows or hides the mode buttons and reports whether they are
// now visible.
func (a *App) ToggleSelector() bool {
	return a.selector.Toggle()
}

// Rotate orbits the camera by dir times the configured speed.
func (a *App) Rotate(dir float32) {
	a.camera.Rotate(dir * float32(a.cfg.Camera.RotateSpeed))
}

// Camera returns the orbit camera.
func (a *App) Camera() *camera.Orbit { return a.camera }

// Unload releases the stepper, device and output files.
func (a *App) Unload() error {
	return errors.Join(a.stepper.Close(), a.output.Close())
}

func (a *App) logInterval() time.Duration {
	return time.Duration(a.cfg.Telemetry.LogInterval * float64(time.Second))
}
