package sim

import (
	"fmt"

	"github.com/pthm-cable/fountain/particles"
)

// Backend advances every particle by dt seconds. All implementations share the
// same observable semantics and differ only in how the work is executed.
type Backend interface {
	Mode() Mode
	// Alignment is the byte alignment the backend needs from the store.
	Alignment() int
	// Step runs the update pass then the respawn pass. elapsed is seconds
	// since program start and phases the spawn drift.
	Step(dt, elapsed float32) error
	Close() error
}

// SourceFactory creates the random source owned by one worker.
type SourceFactory func(worker int) particles.RandomSource

// SeededSources returns a factory handing worker w a math/rand source seeded
// with seed+w.
func SeededSources(seed int64) SourceFactory {
	return func(worker int) particles.RandomSource {
		return particles.NewRandSource(seed + int64(worker))
	}
}

// Host bundles the host-side state the CPU backends operate on.
type Host struct {
	Store   *particles.Store
	Params  Params
	Pool    *WorkerPool
	Sources []particles.RandomSource // Sources[w] is owned by worker w

	rule particles.SpawnRule
}

// NewHost wires a store, parameters and pool together, creating one random
// source per worker.
func NewHost(store *particles.Store, params Params, pool *WorkerPool, newSource SourceFactory) (*Host, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if newSource == nil {
		return nil, fmt.Errorf("%w: nil source factory", ErrInvalidParams)
	}
	sources := make([]particles.RandomSource, pool.Workers())
	for w := range sources {
		sources[w] = newSource(w)
	}
	return &Host{
		Store:   store,
		Params:  params,
		Pool:    pool,
		Sources: sources,
		rule:    params.SpawnRule(),
	}, nil
}

// respawnParallel runs the respawn pass across the pool.
func (h *Host) respawnParallel(elapsed float32, grain int) {
	threshold := h.Params.VelocityThreshold
	h.Pool.Run(h.Store.Len(), grain, func(worker, lo, hi int) {
		respawnRange(h.Store, h.rule, h.Sources[worker], threshold, elapsed, lo, hi)
	})
}

// SpawnAll populates every slot using worker 0's source.
func (h *Host) SpawnAll(elapsed float32) {
	h.Store.SpawnAll(h.rule, h.Sources[0], elapsed)
}

// ScalarBackend steps one particle at a time on the calling goroutine.
type ScalarBackend struct {
	host *Host
}

// NewScalarBackend creates the sequential backend.
func NewScalarBackend(h *Host) *ScalarBackend {
	return &ScalarBackend{host: h}
}

func (b *ScalarBackend) Mode() Mode     { return ModeScalar }
func (b *ScalarBackend) Alignment() int { return particles.MinAlignment }
func (b *ScalarBackend) Close() error   { return nil }

// Step advances all particles sequentially.
func (b *ScalarBackend) Step(dt, elapsed float32) error {
	h := b.host
	s := h.Store
	c := newStepConsts(h.Params, dt)

	integrateRange(s.Positions, s.Velocities, &c, 0, s.Len())
	respawnRange(s, h.rule, h.Sources[0], c.threshold, elapsed, 0, s.Len())
	return nil
}

// ParallelBackend partitions the scalar law across the worker pool.
type ParallelBackend struct {
	host *Host
}

// NewParallelBackend creates the fork-join backend.
func NewParallelBackend(h *Host) *ParallelBackend {
	return &ParallelBackend{host: h}
}

func (b *ParallelBackend) Mode() Mode     { return ModeParallel }
func (b *ParallelBackend) Alignment() int { return particles.MinAlignment }
func (b *ParallelBackend) Close() error   { return nil }

// Step runs the update pass, waits for every chunk, then runs the respawn pass.
func (b *ParallelBackend) Step(dt, elapsed float32) error {
	h := b.host
	s := h.Store
	c := newStepConsts(h.Params, dt)

	h.Pool.Run(s.Len(), 1, func(_, lo, hi int) {
		integrateRange(s.Positions, s.Velocities, &c, lo, hi)
	})
	h.respawnParallel(elapsed, 1)
	return nil
}
