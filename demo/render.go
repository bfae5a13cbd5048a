package demo

import (
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/fountain/camera"
	"github.com/pthm-cable/fountain/telemetry"
	"github.com/pthm-cable/fountain/ui"
)

var background = rl.Color{R: 12, G: 14, B: 20, A: 255}

// Update reads input and advances the simulation for one frame.
func (a *App) Update() {
	a.perf.StartFrame()
	a.handleInput()
	a.simulate()
}

// Draw renders the scene and overlay, then closes the frame opened by Update.
func (a *App) Draw() {
	a.perf.StartPhase(telemetry.PhaseDraw)

	rl.BeginDrawing()
	rl.ClearBackground(background)

	rl.BeginMode3D(a.camera3D())
	a.ground.Draw()
	if a.drawParticles {
		a.particles.Draw(a.stepper.Positions(), a.cfg.Particles.DrawStride)
	}
	rl.EndMode3D()

	a.perf.StartPhase(telemetry.PhaseUI)
	a.drawUI()

	rl.EndDrawing()

	a.perf.EndFrame()
	a.afterFrame()
}

func (a *App) drawUI() {
	stats := a.perf.Stats()
	a.hud.Draw(ui.HUDData{
		Title:           Title,
		Mode:            a.stepper.Mode().String(),
		Particles:       a.stepper.Len(),
		Workers:         a.stepper.Workers(),
		SubSteps:        a.stepper.SubSteps(rl.GetFrameTime()),
		FPS:             rl.GetFPS(),
		StepTime:        stats.PhaseAvg[telemetry.PhaseSimulate],
		Paused:          a.paused,
		DeviceAvailable: a.stepper.DeviceAvailable(),
		Message:         a.message,
	})

	if picked, ok := a.selector.Draw(a.stepper.Mode(), a.stepper.DeviceAvailable()); ok {
		_ = a.SelectMode(picked)
	}
	if a.showPerf {
		a.perfPanel.Draw(stats)
	}
	a.hud.DrawControls(a.screenHeight, ui.ControlsLegend)
}

// camera3D converts the orbit camera to a raylib camera.
func (a *App) camera3D() rl.Camera3D {
	return rl.Camera3D{
		Position:   toVector3(a.camera.Eye()),
		Target:     toVector3(a.camera.Target),
		Up:         toVector3(a.camera.Up()),
		Fovy:       a.camera.Fovy,
		Projection: rl.CameraPerspective,
	}
}

func toVector3(v camera.Vec3) rl.Vector3 {
	return rl.Vector3{X: v.X, Y: v.Y, Z: v.Z}
}
