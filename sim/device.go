package sim

import (
	"fmt"

	"github.com/pthm-cable/fountain/particles"
)

// Device is a compute device that keeps its own copy of the particle arrays.
// Implementations live outside the core (see renderer.ComputeDevice); the
// stepper only drives this contract.
type Device interface {
	// Probe reports whether the device can run the kernel. Called once.
	Probe() bool
	// Allocate sizes the device buffers for n particles, discarding contents.
	Allocate(n int) error

	UploadPositions(src []particles.Vec4) error
	UploadVelocities(src []particles.Vec4) error
	DownloadPositions(dst []particles.Vec4) error
	DownloadVelocities(dst []particles.Vec4) error

	// Dispatch runs one update and respawn pass over the device arrays and
	// returns only after the results are complete.
	Dispatch(args DispatchArgs) error

	Close() error
}

// DispatchArgs are the per-step inputs of a device dispatch.
type DispatchArgs struct {
	DT      float32
	Elapsed float32 // Seconds since program start, phases the spawn drift
	Params  Params
	Count   int
	Seed    uint32 // Varies per dispatch so respawns draw fresh numbers
}

// DeviceBackend steps the particles on a Device. Host arrays are untouched;
// the stepper moves data across on mode transitions.
type DeviceBackend struct {
	dev    Device
	params Params
	count  func() int
	seed   uint32
}

// NewDeviceBackend creates the offload backend. count reports the current
// particle count, which changes on resize.
func NewDeviceBackend(dev Device, params Params, count func() int, seed uint32) *DeviceBackend {
	return &DeviceBackend{dev: dev, params: params, count: count, seed: seed}
}

func (b *DeviceBackend) Mode() Mode     { return ModeDevice }
func (b *DeviceBackend) Alignment() int { return particles.MinAlignment }
func (b *DeviceBackend) Close() error   { return nil }

// Step dispatches one pass and waits for it.
func (b *DeviceBackend) Step(dt, elapsed float32) error {
	b.seed++
	err := b.dev.Dispatch(DispatchArgs{
		DT:      dt,
		Elapsed: elapsed,
		Params:  b.params,
		Count:   b.count(),
		Seed:    b.seed,
	})
	if err != nil {
		return fmt.Errorf("%w: dispatch: %v", ErrDeviceFailure, err)
	}
	return nil
}
