package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats/scalar"

	"github.com/pthm-cable/fountain/particles"
)

// cycleSources gives every worker its own source replaying the same cycle.
// Each spawn draws exactly four samples, so every respawn is identical no
// matter which worker handles it.
func cycleSources(int) particles.RandomSource {
	return particles.NewSequenceSource(0.9, 0.2, 0.7, 0.4)
}

var hostConstructors = map[Mode]func(*Host) Backend{
	ModeScalar:       func(h *Host) Backend { return NewScalarBackend(h) },
	ModeParallel:     func(h *Host) Backend { return NewParallelBackend(h) },
	ModeVectorNarrow: func(h *Host) Backend { return NewVector4Backend(h) },
	ModeVectorWide:   func(h *Host) Backend { return NewVector8Backend(h) },
	ModeBLAS:         func(h *Host) Backend { return NewBLASBackend(h) },
}

// newTestHost builds a host whose pool really forks for small counts.
func newTestHost(t testing.TB, params Params, n int) *Host {
	t.Helper()
	pool := NewWorkerPool(4, 64)
	t.Cleanup(pool.Close)

	store := particles.NewStore()
	require.NoError(t, store.Resize(n, WideAlignment))
	h, err := NewHost(store, params, pool, cycleSources)
	require.NoError(t, err)

	store.SpawnAll(params.SpawnRule(), particles.NewRandSource(7), 0)
	return h
}

func requireClose(t *testing.T, want, got []particles.Vec4, tol float64) {
	t.Helper()
	require.Equal(t, len(want), len(got))
	for i := range want {
		w, g := want[i], got[i]
		lanes := [4][2]float32{{w.X, g.X}, {w.Y, g.Y}, {w.Z, g.Z}, {w.W, g.W}}
		for lane, pair := range lanes {
			if !scalar.EqualWithinAbsOrRel(float64(pair[0]), float64(pair[1]), tol, tol) {
				t.Fatalf("particle %d lane %d: want %v, got %v", i, lane, pair[0], pair[1])
			}
		}
	}
}

func TestHostBackendsMatchScalar(t *testing.T) {
	const (
		n     = 1001 // odd, so the wide backend handles a tail
		steps = 240
		dt    = float32(1.0 / 60)
	)
	params := DefaultParams()

	ref := newTestHost(t, params, n)
	refBackend := NewScalarBackend(ref)
	for i := 0; i < steps; i++ {
		require.NoError(t, refBackend.Step(dt, float32(i)*dt))
	}

	for _, mode := range []Mode{ModeParallel, ModeVectorNarrow, ModeVectorWide} {
		t.Run(mode.String(), func(t *testing.T) {
			h := newTestHost(t, params, n)
			b := hostConstructors[mode](h)
			assert.Equal(t, mode, b.Mode())
			for i := 0; i < steps; i++ {
				require.NoError(t, b.Step(dt, float32(i)*dt))
			}
			requireClose(t, ref.Store.Positions, h.Store.Positions, 1e-4)
			requireClose(t, ref.Store.Velocities, h.Store.Velocities, 1e-4)
		})
	}
}

// The BLAS backend regroups the law's terms, so it is compared over a window
// where no particle reaches the ground or the respawn threshold.
func TestBLASBackendMatchesScalar(t *testing.T) {
	const (
		n     = 513
		steps = 10
		dt    = float32(1.0 / 60)
	)
	params := DefaultParams()

	ref := newTestHost(t, params, n)
	h := newTestHost(t, params, n)
	refBackend := NewScalarBackend(ref)
	b := NewBLASBackend(h)

	for i := 0; i < steps; i++ {
		require.NoError(t, refBackend.Step(dt, 0))
		require.NoError(t, b.Step(dt, 0))
	}
	requireClose(t, ref.Store.Positions, h.Store.Positions, 1e-4)
	requireClose(t, ref.Store.Velocities, h.Store.Velocities, 1e-4)
}

func TestBLASBackendTileFollowsResize(t *testing.T) {
	params := DefaultParams()
	h := newTestHost(t, params, 16)
	b := NewBLASBackend(h)
	require.NoError(t, b.Step(0.01, 0))
	assert.Len(t, b.gravityTile, 64)

	require.NoError(t, h.Store.Resize(40, WideAlignment))
	h.SpawnAll(0)
	require.NoError(t, b.Step(0.01, 0))
	assert.Len(t, b.gravityTile, 160)
	assert.Equal(t, params.Gravity.Y, b.gravityTile[4*39+1])
}

func TestEmulatedDeviceMatchesScalar(t *testing.T) {
	const (
		n     = 300
		steps = 120
		dt    = float32(1.0 / 60)
	)
	params := DefaultParams()

	ref := newTestHost(t, params, n)
	refBackend := NewScalarBackend(ref)

	h := newTestHost(t, params, n)
	dev := NewEmulatedDevice(cycleSources(0))
	require.NoError(t, dev.Allocate(n))
	require.NoError(t, dev.UploadPositions(h.Store.Positions))
	require.NoError(t, dev.UploadVelocities(h.Store.Velocities))
	b := NewDeviceBackend(dev, params, h.Store.Len, 1)

	for i := 0; i < steps; i++ {
		elapsed := float32(i) * dt
		require.NoError(t, refBackend.Step(dt, elapsed))
		require.NoError(t, b.Step(dt, elapsed))
	}

	got := particles.NewStore()
	require.NoError(t, got.Resize(n, particles.MinAlignment))
	require.NoError(t, dev.DownloadPositions(got.Positions))
	require.NoError(t, dev.DownloadVelocities(got.Velocities))
	requireClose(t, ref.Store.Positions, got.Positions, 1e-4)
	requireClose(t, ref.Store.Velocities, got.Velocities, 1e-4)
	assert.Equal(t, steps, dev.Counts().Dispatches)
}

func TestGroundAndRespawnInvariants(t *testing.T) {
	params := DefaultParams()
	for mode, construct := range hostConstructors {
		t.Run(mode.String(), func(t *testing.T) {
			h := newTestHost(t, params, 777)
			h.Sources[0] = particles.NewRandSource(3)
			b := construct(h)
			for step := 0; step < 300; step++ {
				require.NoError(t, b.Step(1.0/60, float32(step)/60))
				for i, p := range h.Store.Positions {
					if p.Y < 0 {
						t.Fatalf("step %d particle %d below ground: y=%v", step, i, p.Y)
					}
					if p.W < params.VelocityThreshold {
						t.Fatalf("step %d particle %d kept below threshold: w=%v", step, i, p.W)
					}
					v := h.Store.Velocities[i]
					if !scalar.EqualWithinAbsOrRel(float64(p.W), float64(v.Dot3(v)), 1e-6, 1e-5) {
						t.Fatalf("step %d particle %d cached speed %v, want %v", step, i, p.W, v.Dot3(v))
					}
				}
			}
		})
	}
}

func TestFreeFall(t *testing.T) {
	params := DefaultParams()
	params.Friction = 0

	for mode, construct := range hostConstructors {
		t.Run(mode.String(), func(t *testing.T) {
			h := newTestHost(t, params, 1)
			h.Store.Positions[0] = particles.Vec4{Y: 5}
			h.Store.Velocities[0] = particles.Vec4{}

			require.NoError(t, construct(h).Step(0.1, 0))

			p, v := h.Store.Positions[0], h.Store.Velocities[0]
			assert.InDelta(t, 4.950967, p.Y, 1e-5)
			assert.InDelta(t, -0.980665, v.Y, 1e-5)
			assert.InDelta(t, 0.961704, p.W, 1e-5)
			assert.Zero(t, p.X)
			assert.Zero(t, v.X)
		})
	}
}

func TestBounceDampsAndReflects(t *testing.T) {
	params := DefaultParams()
	params.Gravity = particles.Vec4{}
	params.Friction = 0.25

	for mode, construct := range hostConstructors {
		t.Run(mode.String(), func(t *testing.T) {
			h := newTestHost(t, params, 1)
			h.Store.Positions[0] = particles.Vec4{Y: 0.01}
			h.Store.Velocities[0] = particles.Vec4{Y: -2}

			require.NoError(t, construct(h).Step(0.01, 0))

			// f = 0.5 up; y = 0.01 - 0.02 + 0.000025, reflected.
			// vy = -1.995, reflected and scaled by 0.75.
			p, v := h.Store.Positions[0], h.Store.Velocities[0]
			assert.InDelta(t, 0.009975, p.Y, 1e-6)
			assert.InDelta(t, 1.49625, v.Y, 1e-5)
			assert.InDelta(t, 1.49625*1.49625, p.W, 1e-4)
		})
	}
}

func TestStalledParticleRespawns(t *testing.T) {
	params := DefaultParams()
	params.Gravity = particles.Vec4{}
	params.Friction = 0

	for mode, construct := range hostConstructors {
		t.Run(mode.String(), func(t *testing.T) {
			h := newTestHost(t, params, 1)
			h.Sources[0] = particles.NewSequenceSource(1, 0.5, 0.5, 1)
			h.Store.Positions[0] = particles.Vec4{X: 3, Y: 0.2, Z: -1}
			h.Store.Velocities[0] = particles.Vec4{}

			require.NoError(t, construct(h).Step(0.01, 0))

			// direction (1,0,0), speed 1, drift at t=0 is (0,3,0)
			p, v := h.Store.Positions[0], h.Store.Velocities[0]
			assert.InDelta(t, 0.1, p.X, 1e-6)
			assert.InDelta(t, 0.5, p.Y, 1e-6)
			assert.InDelta(t, 0, p.Z, 1e-6)
			assert.InDelta(t, 10, p.W, 1e-5)
			assert.InDelta(t, 1, v.X, 1e-6)
			assert.InDelta(t, 3, v.Y, 1e-6)
		})
	}
}

func TestMovingParticleIsNotRespawned(t *testing.T) {
	params := DefaultParams()
	params.Gravity = particles.Vec4{}
	params.Friction = 0

	h := newTestHost(t, params, 1)
	h.Store.Positions[0] = particles.Vec4{X: 3, Y: 1}
	h.Store.Velocities[0] = particles.Vec4{X: 0.5}

	require.NoError(t, NewScalarBackend(h).Step(0.1, 0))
	assert.InDelta(t, 3.05, h.Store.Positions[0].X, 1e-6)
	assert.InDelta(t, 0.25, h.Store.Positions[0].W, 1e-6)
}

func TestWideKernelMatchesNarrowPerLane(t *testing.T) {
	params := DefaultParams()
	c := newStepConsts(params, 0.02)
	k := newLaneConsts(&c)
	w := newWideConsts(&k)

	// first particle bounces, second does not
	pos := []particles.Vec4{{X: 1, Y: 0.001, Z: 2}, {X: -1, Y: 3, Z: 0.5}}
	vel := []particles.Vec4{{X: 0.3, Y: -4, Z: 0.1}, {X: 2, Y: 1, Z: -1}}

	narrowPos := append([]particles.Vec4(nil), pos...)
	narrowVel := append([]particles.Vec4(nil), vel...)
	for i := range narrowPos {
		integrate4(&narrowPos[i], &narrowVel[i], &k)
	}
	integrate8(&pos[0], &vel[0], &w)

	assert.Equal(t, narrowPos, pos)
	assert.Equal(t, narrowVel, vel)
	assert.GreaterOrEqual(t, pos[0].Y, float32(0))
	assert.Greater(t, vel[0].Y, float32(0))
}

func TestNewHostRejectsBadInput(t *testing.T) {
	pool := NewWorkerPool(1, 0)
	store := particles.NewStore()

	bad := DefaultParams()
	bad.Friction = 1
	_, err := NewHost(store, bad, pool, cycleSources)
	assert.ErrorIs(t, err, ErrInvalidParams)

	_, err = NewHost(store, DefaultParams(), pool, nil)
	assert.ErrorIs(t, err, ErrInvalidParams)
}

func TestSeededSourcesDifferPerWorker(t *testing.T) {
	f := SeededSources(42)
	a, b := f(0), f(1)
	same := true
	for i := 0; i < 8; i++ {
		if a.Uniform(0, 1) != b.Uniform(0, 1) {
			same = false
		}
	}
	assert.False(t, same)
}
