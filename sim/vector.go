package sim

import "github.com/pthm-cable/fountain/particles"

// WideAlignment is the store alignment the 8-lane backend loads from.
const WideAlignment = 32

// Vector4Backend restates the law in 4-lane form, one particle per lane op,
// fork-joined over the worker pool.
type Vector4Backend struct {
	host *Host
}

// NewVector4Backend creates the narrow vector backend.
func NewVector4Backend(h *Host) *Vector4Backend {
	return &Vector4Backend{host: h}
}

func (b *Vector4Backend) Mode() Mode     { return ModeVectorNarrow }
func (b *Vector4Backend) Alignment() int { return particles.MinAlignment }
func (b *Vector4Backend) Close() error   { return nil }

// Step runs the lane-form update pass then the respawn pass.
func (b *Vector4Backend) Step(dt, elapsed float32) error {
	h := b.host
	s := h.Store
	c := newStepConsts(h.Params, dt)
	k := newLaneConsts(&c)

	h.Pool.Run(s.Len(), 1, func(_, lo, hi int) {
		pos, vel := s.Positions, s.Velocities
		for i := lo; i < hi; i++ {
			integrate4(&pos[i], &vel[i], &k)
		}
	})
	h.respawnParallel(elapsed, 1)
	return nil
}

// Vector8Backend processes two particles per 8-lane op. Chunks start on even
// indices; an odd trailing particle goes through the 4-lane kernel.
type Vector8Backend struct {
	host *Host
}

// NewVector8Backend creates the wide vector backend.
func NewVector8Backend(h *Host) *Vector8Backend {
	return &Vector8Backend{host: h}
}

func (b *Vector8Backend) Mode() Mode     { return ModeVectorWide }
func (b *Vector8Backend) Alignment() int { return WideAlignment }
func (b *Vector8Backend) Close() error   { return nil }

// Step runs the wide update pass then the respawn pass.
func (b *Vector8Backend) Step(dt, elapsed float32) error {
	h := b.host
	s := h.Store
	c := newStepConsts(h.Params, dt)
	k := newLaneConsts(&c)
	w := newWideConsts(&k)

	h.Pool.Run(s.Len(), 2, func(_, lo, hi int) {
		pos, vel := s.Positions, s.Velocities
		i := lo
		for ; i+1 < hi; i += 2 {
			integrate8(&pos[i], &vel[i], &w)
		}
		if i < hi {
			integrate4(&pos[i], &vel[i], &k)
		}
	})
	h.respawnParallel(elapsed, 2)
	return nil
}
