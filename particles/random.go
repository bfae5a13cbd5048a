package particles

import "math/rand"

// RandomSource yields uniform samples. An instance is owned by one goroutine
// at a time; the parallel steppers hold one per worker.
type RandomSource interface {
	// Uniform returns a sample in [lo, hi].
	Uniform(lo, hi float32) float32
}

// RandSource is a RandomSource backed by math/rand.
type RandSource struct {
	rng *rand.Rand
}

// NewRandSource creates a seeded source.
func NewRandSource(seed int64) *RandSource {
	return &RandSource{rng: rand.New(rand.NewSource(seed))}
}

// Uniform returns a sample in [lo, hi).
func (r *RandSource) Uniform(lo, hi float32) float32 {
	return lo + r.rng.Float32()*(hi-lo)
}

// SequenceSource replays a fixed cycle of unit samples in [0, 1], mapped onto
// the requested range. Useful for reproducible spawns.
type SequenceSource struct {
	values []float32
	next   int
}

// NewSequenceSource creates a source cycling through values.
func NewSequenceSource(values ...float32) *SequenceSource {
	if len(values) == 0 {
		values = []float32{0.5}
	}
	return &SequenceSource{values: values}
}

// Uniform returns the next value of the cycle mapped onto [lo, hi].
func (s *SequenceSource) Uniform(lo, hi float32) float32 {
	t := s.values[s.next]
	s.next = (s.next + 1) % len(s.values)
	return lo + t*(hi-lo)
}
