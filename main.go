package main

import (
	"flag"
	"log/slog"
	"os"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/fountain/config"
	"github.com/pthm-cable/fountain/demo"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	headless := flag.Bool("headless", false, "Run without graphics")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	seed := flag.Int64("seed", 0, "RNG seed (0 = config or time-based)")
	mode := flag.String("mode", "", "Initial backend: scalar, parallel, vector4, vector8, blas, device")
	maxFrames := flag.Int64("max-frames", 0, "Stop after N frames (0 = unlimited)")
	benchmark := flag.Bool("benchmark", false, "Run the benchmark once after startup")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Initialize config before anything else
	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	opts := demo.Options{
		Config:    cfg,
		Seed:      *seed,
		Mode:      *mode,
		OutputDir: *outputDir,
		Headless:  *headless,
		Logger:    logger,
	}

	if *headless {
		// Headless mode - pure CPU simulation, no raylib window
		app, err := demo.New(opts)
		if err != nil {
			slog.Error("failed to start", "error", err)
			os.Exit(1)
		}
		defer unload(app)

		slog.Info("starting headless simulation",
			"particles", cfg.Particles.Count,
			"mode", app.Stepper().Mode().String(),
			"max_frames", *maxFrames,
		)

		if *benchmark {
			if _, err := app.RunBenchmark(); err != nil {
				slog.Error("benchmark failed", "error", err)
			}
		}

		for *maxFrames <= 0 || app.Frame() < *maxFrames {
			app.UpdateHeadless()
		}
		slog.Info("max frames reached", "frame", app.Frame())
		return
	}

	// Graphical mode
	rl.SetConfigFlags(rl.FlagWindowResizable | rl.FlagMsaa4xHint)
	rl.InitWindow(int32(cfg.Screen.Width), int32(cfg.Screen.Height), demo.Title)
	defer rl.CloseWindow()

	rl.SetTargetFPS(int32(cfg.Screen.TargetFPS))

	// The compute device needs the GL context created above
	app, err := demo.New(opts)
	if err != nil {
		slog.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer unload(app)

	if *benchmark {
		if _, err := app.RunBenchmark(); err != nil {
			slog.Error("benchmark failed", "error", err)
		}
	}

	for !rl.WindowShouldClose() {
		app.Update()
		app.Draw()

		if *maxFrames > 0 && app.Frame() >= *maxFrames {
			break
		}
	}
}

func unload(app *demo.App) {
	if err := app.Unload(); err != nil {
		slog.Warn("shutdown", "error", err)
	}
}
