package sim

import (
	"errors"
	"fmt"

	"github.com/pthm-cable/fountain/particles"
)

// errNotAllocated is returned by transfers issued before Allocate.
var errNotAllocated = errors.New("device buffers not allocated")

// TransferCounts tallies host/device copies, one per array per direction.
type TransferCounts struct {
	PositionUploads   int
	VelocityUploads   int
	PositionDownloads int
	VelocityDownloads int
	Dispatches        int
}

// EmulatedDevice is a Device backed by host memory. It runs the scalar kernel
// on its own copy of the arrays, so results only become visible to the host
// through downloads, as with real device memory.
type EmulatedDevice struct {
	// Unavailable makes Probe fail, as on a machine without compute support.
	Unavailable bool
	// FailNext, when set, is returned (once) by the next transfer or dispatch.
	FailNext error

	rng       particles.RandomSource
	store     *particles.Store
	allocated bool
	counts    TransferCounts
}

// NewEmulatedDevice creates an emulated device drawing respawns from rng.
func NewEmulatedDevice(rng particles.RandomSource) *EmulatedDevice {
	if rng == nil {
		rng = particles.NewRandSource(0)
	}
	return &EmulatedDevice{rng: rng, store: particles.NewStore()}
}

func (d *EmulatedDevice) Probe() bool {
	return !d.Unavailable
}

func (d *EmulatedDevice) Allocate(n int) error {
	if err := d.takeFailure(); err != nil {
		return err
	}
	if err := d.store.Resize(n, particles.MinAlignment); err != nil {
		return err
	}
	d.allocated = true
	return nil
}

func (d *EmulatedDevice) UploadPositions(src []particles.Vec4) error {
	if err := d.transfer(len(src)); err != nil {
		return err
	}
	copy(d.store.Positions, src)
	d.counts.PositionUploads++
	return nil
}

func (d *EmulatedDevice) UploadVelocities(src []particles.Vec4) error {
	if err := d.transfer(len(src)); err != nil {
		return err
	}
	copy(d.store.Velocities, src)
	d.counts.VelocityUploads++
	return nil
}

func (d *EmulatedDevice) DownloadPositions(dst []particles.Vec4) error {
	if err := d.transfer(len(dst)); err != nil {
		return err
	}
	copy(dst, d.store.Positions)
	d.counts.PositionDownloads++
	return nil
}

func (d *EmulatedDevice) DownloadVelocities(dst []particles.Vec4) error {
	if err := d.transfer(len(dst)); err != nil {
		return err
	}
	copy(dst, d.store.Velocities)
	d.counts.VelocityDownloads++
	return nil
}

// Dispatch runs the update pass then the respawn pass on the device copy.
func (d *EmulatedDevice) Dispatch(args DispatchArgs) error {
	if err := d.transfer(args.Count); err != nil {
		return err
	}
	s := d.store
	c := newStepConsts(args.Params, args.DT)
	integrateRange(s.Positions, s.Velocities, &c, 0, s.Len())
	respawnRange(s, args.Params.SpawnRule(), d.rng, c.threshold, args.Elapsed, 0, s.Len())
	d.counts.Dispatches++
	return nil
}

func (d *EmulatedDevice) Close() error {
	d.allocated = false
	return d.store.Resize(0, particles.MinAlignment)
}

// Counts returns the transfers performed so far.
func (d *EmulatedDevice) Counts() TransferCounts {
	return d.counts
}

// ResetCounts zeroes the transfer tally.
func (d *EmulatedDevice) ResetCounts() {
	d.counts = TransferCounts{}
}

func (d *EmulatedDevice) transfer(n int) error {
	if err := d.takeFailure(); err != nil {
		return err
	}
	if !d.allocated {
		return errNotAllocated
	}
	if n != d.store.Len() {
		return fmt.Errorf("%w: transfer of %d into %d slots", particles.ErrBadCount, n, d.store.Len())
	}
	return nil
}

func (d *EmulatedDevice) takeFailure() error {
	err := d.FailNext
	d.FailNext = nil
	return err
}
