package particles

import "github.com/chewxy/math32"

// Drift phase frequencies, applied to elapsed seconds * driftRate.
const (
	driftRate  = 10
	driftFreqX = 0.121031
	driftFreqY = 0.618709
	driftFreqZ = 0.545545

	// maxDirectionDraws bounds resampling of degenerate directions.
	maxDirectionDraws = 16
	minDirectionLen2  = 1e-12
)

// SpawnRule describes where fresh particles appear.
type SpawnRule struct {
	Origin Vec4    // Emitter center
	Radius float32 // Direction scale for the spawn offset
}

// Drift returns the pseudo-periodic velocity bias for a spawn at elapsed
// seconds since program start, so swarms do not spawn in lockstep.
func Drift(elapsed float32) Vec4 {
	e := elapsed * driftRate
	return Vec4{
		X: math32.Sin(driftFreqX * e),
		Y: 3 + 2*math32.Sin(driftFreqY*e),
		Z: math32.Sin(driftFreqZ * e),
	}
}

// Direction draws a unit direction from three uniform samples in [-1, 1].
// All-zero draws are resampled; after maxDirectionDraws it returns +Y.
func Direction(rng RandomSource) Vec4 {
	for i := 0; i < maxDirectionDraws; i++ {
		d := Vec4{
			X: rng.Uniform(-1, 1),
			Y: rng.Uniform(-1, 1),
			Z: rng.Uniform(-1, 1),
		}
		l2 := d.Dot3(d)
		if l2 < minDirectionLen2 {
			continue
		}
		return d.Scale(1 / math32.Sqrt(l2))
	}
	return Vec4{Y: 1}
}

// Spawn resets slot i to a fresh particle.
//
//	position = direction*radius + origin
//	velocity = direction*(speed*0.5+0.5) + Drift(elapsed)
//
// position.W caches the squared speed of the new velocity.
func (s *Store) Spawn(i int, rule SpawnRule, rng RandomSource, elapsed float32) {
	dir := Direction(rng)
	speed := rng.Uniform(0, 1)

	vel := dir.Scale(speed*0.5 + 0.5).Add(Drift(elapsed))
	vel.W = 0

	pos := dir.Scale(rule.Radius).Add(rule.Origin)
	pos.W = vel.Dot3(vel)

	s.Positions[i] = pos
	s.Velocities[i] = vel
}

// SpawnAll populates every slot.
func (s *Store) SpawnAll(rule SpawnRule, rng RandomSource, elapsed float32) {
	for i := range s.Positions {
		s.Spawn(i, rule, rng, elapsed)
	}
}
