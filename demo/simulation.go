package demo

import (
	"errors"

	"github.com/pthm-cable/fountain/sim"
	"github.com/pthm-cable/fountain/telemetry"
)

// simulate runs the simulate and transfer phases of a frame.
func (a *App) simulate() {
	a.perf.StartPhase(telemetry.PhaseSimulate)
	if a.paused {
		a.stepper.Skip()
	} else if err := a.stepper.Advance(); err != nil {
		a.stepFailed(err)
	}

	a.perf.StartPhase(telemetry.PhaseTransfer)
	if a.stepper.Mode().Residency() == sim.DeviceResident {
		if err := a.stepper.SyncPositions(); err != nil {
			a.stepFailed(err)
		}
		return
	}
	if err := a.stepper.MirrorPositions(); err != nil {
		// Only costs a full upload on the next switch to device mode
		a.logger.Warn("mirroring positions", "error", err)
	}
}

// stepFailed pauses the simulation so a failing device is not retried every
// frame. The user can switch backends and resume.
func (a *App) stepFailed(err error) {
	a.logger.Error("step failed", "mode", a.stepper.Mode().String(), "error", err)
	a.message = err.Error()
	if errors.Is(err, sim.ErrDeviceFailure) {
		a.paused = true
	}
}

// UpdateHeadless advances one frame without drawing.
func (a *App) UpdateHeadless() {
	a.perf.StartFrame()
	a.simulate()
	a.perf.EndFrame()
	a.afterFrame()
}
