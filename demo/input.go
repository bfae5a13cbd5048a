package demo

import (
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/fountain/sim"
)

// modeKeys maps number keys to backends in sim.Modes order.
var modeKeys = []int32{rl.KeyOne, rl.KeyTwo, rl.KeyThree, rl.KeyFour, rl.KeyFive, rl.KeySix}

// handleInput processes keyboard input.
func (a *App) handleInput() {
	// Window resize propagation
	a.handleResize()

	for i, key := range modeKeys {
		if rl.IsKeyPressed(key) {
			_ = a.SelectMode(sim.Mode(i))
		}
	}

	if rl.IsKeyPressed(rl.KeySpace) {
		a.TogglePause()
	}
	if rl.IsKeyPressed(rl.KeyP) {
		a.ToggleDrawing()
	}
	if rl.IsKeyPressed(rl.KeyM) {
		a.ToggleSelector()
	}
	if rl.IsKeyPressed(rl.KeyTab) {
		a.showPerf = !a.showPerf
	}
	if rl.IsKeyPressed(rl.KeyF6) {
		_, _ = a.RunBenchmark()
	}

	if rl.IsKeyDown(rl.KeyRight) {
		a.Rotate(1)
	}
	if rl.IsKeyDown(rl.KeyLeft) {
		a.Rotate(-1)
	}

	// Zoom with mouse wheel
	if wheel := rl.GetMouseWheelMove(); wheel != 0 {
		a.camera.ZoomBy(1 + wheel*0.1)
	}
	if rl.IsKeyPressed(rl.KeyHome) {
		a.camera.Reset()
	}
}

// handleResize checks for window resize and propagates new dimensions.
func (a *App) handleResize() {
	if !rl.IsWindowResized() {
		return
	}
	w := int32(rl.GetScreenWidth())
	h := int32(rl.GetScreenHeight())
	if w == a.screenWidth && h == a.screenHeight {
		return
	}
	a.screenWidth = w
	a.screenHeight = h

	a.selector.SetPosition(w-130, 10)
	a.perfPanel.SetPosition(10, 120)
}
