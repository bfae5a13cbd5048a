package sim

import "github.com/pthm-cable/fountain/particles"

// stepConsts are the per-step values shared by every particle.
type stepConsts struct {
	dt        float32
	halfDt2   float32 // 0.5 * dt^2
	gravity   particles.Vec4
	friction  float32
	damp      float32 // 1 - friction, applied on bounce
	threshold float32
}

func newStepConsts(p Params, dt float32) stepConsts {
	return stepConsts{
		dt:        dt,
		halfDt2:   0.5 * dt * dt,
		gravity:   p.Gravity,
		friction:  p.Friction,
		damp:      1 - p.Friction,
		threshold: p.VelocityThreshold,
	}
}

// integrate applies the update law to one particle:
//
//	f = gravity - v*friction
//	p = p + v*dt + 0.5*f*dt^2
//	v = v + f*dt
//	bounce on p.y < 0, then p.w = |v.xyz|^2
func integrate(p, v *particles.Vec4, c *stepConsts) {
	fx := c.gravity.X - v.X*c.friction
	fy := c.gravity.Y - v.Y*c.friction
	fz := c.gravity.Z - v.Z*c.friction

	p.X = p.X + v.X*c.dt + fx*c.halfDt2
	p.Y = p.Y + v.Y*c.dt + fy*c.halfDt2
	p.Z = p.Z + v.Z*c.dt + fz*c.halfDt2

	v.X = v.X + fx*c.dt
	v.Y = v.Y + fy*c.dt
	v.Z = v.Z + fz*c.dt

	if p.Y < 0 {
		p.Y = -p.Y
		v.X *= c.damp
		v.Y = -v.Y * c.damp
		v.Z *= c.damp
	}

	p.W = v.X*v.X + v.Y*v.Y + v.Z*v.Z
}

// integrateRange runs the update pass over [lo, hi).
func integrateRange(pos, vel []particles.Vec4, c *stepConsts, lo, hi int) {
	for i := lo; i < hi; i++ {
		integrate(&pos[i], &vel[i], c)
	}
}

// respawnRange runs the respawn pass over [lo, hi). It must only run after the
// update pass has finished for the whole range, since it reads the cached speed.
func respawnRange(s *particles.Store, rule particles.SpawnRule, rng particles.RandomSource, threshold, elapsed float32, lo, hi int) {
	pos := s.Positions
	for i := lo; i < hi; i++ {
		if pos[i].W < threshold {
			s.Spawn(i, rule, rng, elapsed)
		}
	}
}
