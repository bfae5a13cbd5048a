package sim

import (
	"gonum.org/v1/gonum/blas/blas32"

	"github.com/pthm-cable/fountain/particles"
)

// BLASBackend evaluates the linear part of the update law with blas32 level 1
// kernels over each chunk's flattened lanes, then finishes bounce and cached
// speed in a per-particle pass.
//
// Expanding f into the law gives
//
//	p = p + v*(dt - 0.5*dt²*friction) + 0.5*dt²*g
//	v = v*(1 - dt*friction) + dt*g
//
// which is two Axpy calls for p and a Scal plus an Axpy for v.
type BLASBackend struct {
	host *Host

	// gravityTile repeats (gx, gy, gz, 0) once per particle. Read-only
	// during a pass, shared by every chunk.
	gravityTile []float32
}

// NewBLASBackend creates the BLAS backend.
func NewBLASBackend(h *Host) *BLASBackend {
	return &BLASBackend{host: h}
}

func (b *BLASBackend) Mode() Mode     { return ModeBLAS }
func (b *BLASBackend) Alignment() int { return particles.MinAlignment }
func (b *BLASBackend) Close() error   { return nil }

// tile returns the gravity tile for n particles, regrowing it after a resize.
func (b *BLASBackend) tile(n int) []float32 {
	if len(b.gravityTile) != 4*n {
		g := b.host.Params.Gravity
		b.gravityTile = make([]float32, 4*n)
		for i := 0; i < n; i++ {
			b.gravityTile[4*i+0] = g.X
			b.gravityTile[4*i+1] = g.Y
			b.gravityTile[4*i+2] = g.Z
		}
	}
	return b.gravityTile
}

// Step runs the BLAS update pass then the respawn pass.
func (b *BLASBackend) Step(dt, elapsed float32) error {
	h := b.host
	s := h.Store
	c := newStepConsts(h.Params, dt)
	gt := b.tile(s.Len())

	posAlpha := dt - c.halfDt2*c.friction
	velScale := 1 - dt*c.friction

	h.Pool.Run(s.Len(), 1, func(_, lo, hi int) {
		n := 4 * (hi - lo)
		p := blas32.Vector{N: n, Inc: 1, Data: s.PositionFloats()[4*lo : 4*hi]}
		v := blas32.Vector{N: n, Inc: 1, Data: s.VelocityFloats()[4*lo : 4*hi]}
		g := blas32.Vector{N: n, Inc: 1, Data: gt[4*lo : 4*hi]}

		blas32.Axpy(posAlpha, v, p)
		blas32.Axpy(c.halfDt2, g, p)
		blas32.Scal(velScale, v)
		blas32.Axpy(dt, g, v)

		bounceRange(s.Positions, s.Velocities, &c, lo, hi)
	})
	h.respawnParallel(elapsed, 1)
	return nil
}

// bounceRange applies the ground reflection and refreshes the cached speed on
// particles whose linear update has already been applied.
func bounceRange(pos, vel []particles.Vec4, c *stepConsts, lo, hi int) {
	for i := lo; i < hi; i++ {
		p, v := &pos[i], &vel[i]
		if p.Y < 0 {
			p.Y = -p.Y
			v.X *= c.damp
			v.Y = -v.Y * c.damp
			v.Z *= c.damp
		}
		p.W = v.X*v.X + v.Y*v.Y + v.Z*v.Z
	}
}
