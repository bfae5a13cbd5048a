package sim

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/pthm-cable/fountain/config"
	"github.com/pthm-cable/fountain/particles"
)

// Options configures a Stepper. Zero values pick sensible defaults.
type Options struct {
	Mode              Mode          // Initial backend
	Workers           int           // Worker pool size, 0 = GOMAXPROCS
	ParallelThreshold int           // Below this many particles, chunks run inline
	Seed              int64         // Seed for the default per-worker sources
	Sources           SourceFactory // Overrides the seeded math/rand sources
	Device            Device        // Optional compute device, probed once
	Clock             Clock         // Time source for Advance, defaults to the wall clock
	Logger            *slog.Logger
}

// OptionsFromConfig builds Options from the backend section of cfg.
// A zero seed is replaced with a time-based one.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	mode, err := ParseMode(cfg.Backend.Mode)
	if err != nil {
		return Options{}, fmt.Errorf("backend.mode: %w", err)
	}
	seed := cfg.Backend.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return Options{
		Mode:              mode,
		Workers:           cfg.Derived.Workers,
		ParallelThreshold: cfg.Backend.ParallelThreshold,
		Seed:              seed,
	}, nil
}

// Stepper owns the particle store and advances it with the active backend.
// It is not safe for concurrent use: the render path reads Positions between
// calls to Step or Advance.
type Stepper struct {
	params   Params
	store    *particles.Store
	pool     *WorkerPool
	host     *Host
	backends [numModes]Backend
	align    int
	mode     Mode

	device      Device
	deviceReady bool

	// mirrored is set when the device position buffer matches the host array
	// and cleared by every host step.
	mirrored bool

	clock   Clock
	last    time.Duration
	elapsed float32

	logger *slog.Logger
}

// NewStepper builds a stepper for n particles, spawns all of them at time zero
// and activates opts.Mode. Requesting the device mode without a usable device
// fails with ErrCapabilityUnavailable.
func NewStepper(params Params, n int, opts Options) (*Stepper, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if !opts.Mode.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownMode, uint8(opts.Mode))
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := opts.Clock
	if clock == nil {
		clock = NewWallClock()
	}
	sources := opts.Sources
	if sources == nil {
		sources = SeededSources(opts.Seed)
	}

	pool := NewWorkerPool(opts.Workers, opts.ParallelThreshold)
	store := particles.NewStore()
	host, err := NewHost(store, params, pool, sources)
	if err != nil {
		return nil, err
	}

	s := &Stepper{
		params: params,
		store:  store,
		pool:   pool,
		host:   host,
		mode:   ModeScalar,
		device: opts.Device,
		clock:  clock,
		logger: logger,
	}
	s.backends[ModeScalar] = NewScalarBackend(host)
	s.backends[ModeParallel] = NewParallelBackend(host)
	s.backends[ModeVectorNarrow] = NewVector4Backend(host)
	s.backends[ModeVectorWide] = NewVector8Backend(host)
	s.backends[ModeBLAS] = NewBLASBackend(host)
	if s.device != nil {
		s.backends[ModeDevice] = NewDeviceBackend(s.device, params, store.Len, uint32(opts.Seed))
	}

	s.align = particles.MinAlignment
	for _, b := range s.backends {
		if b != nil && b.Alignment() > s.align {
			s.align = b.Alignment()
		}
	}

	if err := store.Resize(n, s.align); err != nil {
		pool.Close()
		return nil, err
	}
	host.SpawnAll(0)

	s.probeDevice()
	s.last = clock.Since()

	if err := s.SetMode(opts.Mode); err != nil {
		pool.Close()
		return nil, err
	}

	logger.Info("stepper ready",
		"particles", n,
		"mode", s.mode.String(),
		"workers", pool.Workers(),
		"alignment", s.align,
		"device", s.deviceReady,
	)
	return s, nil
}

// probeDevice runs the capability probe and sizes the device buffers.
func (s *Stepper) probeDevice() {
	if s.device == nil {
		return
	}
	if !s.device.Probe() {
		s.logger.Warn("compute device unavailable", "reason", "probe failed")
		return
	}
	if err := s.device.Allocate(s.store.Len()); err != nil {
		s.logger.Warn("compute device unavailable", "reason", "allocation failed", "error", err)
		return
	}
	s.deviceReady = true
}

// Mode returns the active backend.
func (s *Stepper) Mode() Mode { return s.mode }

// DeviceAvailable reports whether the device passed its probe and allocation.
func (s *Stepper) DeviceAvailable() bool { return s.deviceReady }

// Len returns the particle count.
func (s *Stepper) Len() int { return s.store.Len() }

// Params returns the simulation constants.
func (s *Stepper) Params() Params { return s.params }

// Workers returns the worker pool size.
func (s *Stepper) Workers() int { return s.pool.Workers() }

// Alignment returns the byte alignment of the particle arrays.
func (s *Stepper) Alignment() int { return s.align }

// Elapsed returns the seconds since the clock epoch at the last Advance or Skip.
func (s *Stepper) Elapsed() float32 { return s.elapsed }

// SubSteps returns how many sub-steps Step(dt) runs.
func (s *Stepper) SubSteps(dt float32) int { return s.params.SubSteps(dt) }

// SetMode switches backends, moving the arrays across when residency changes.
// On error the previous mode stays active.
func (s *Stepper) SetMode(m Mode) error {
	if !m.Valid() {
		return fmt.Errorf("%w: %d", ErrUnknownMode, uint8(m))
	}
	if m == s.mode {
		return nil
	}
	if m == ModeDevice && !s.deviceReady {
		return ErrCapabilityUnavailable
	}

	from, to := s.mode.Residency(), m.Residency()
	switch {
	case from == HostResident && to == DeviceResident:
		if err := s.uploadAll(); err != nil {
			return err
		}
	case from == DeviceResident && to == HostResident:
		if err := s.device.DownloadPositions(s.store.Positions); err != nil {
			return fmt.Errorf("%w: download positions: %v", ErrDeviceFailure, err)
		}
		if err := s.device.DownloadVelocities(s.store.Velocities); err != nil {
			return fmt.Errorf("%w: download velocities: %v", ErrDeviceFailure, err)
		}
		s.mirrored = true
	}

	s.logger.Debug("mode changed", "from", s.mode.String(), "to", m.String())
	s.mode = m
	return nil
}

// uploadAll moves host state to the device. Positions are skipped when the
// render path already mirrored them since the last host step.
func (s *Stepper) uploadAll() error {
	if !s.mirrored {
		if err := s.device.UploadPositions(s.store.Positions); err != nil {
			return fmt.Errorf("%w: upload positions: %v", ErrDeviceFailure, err)
		}
		s.mirrored = true
	}
	if err := s.device.UploadVelocities(s.store.Velocities); err != nil {
		return fmt.Errorf("%w: upload velocities: %v", ErrDeviceFailure, err)
	}
	return nil
}

// Step advances the simulation by dt seconds in SubSteps(dt) equal sub-steps.
// Non-positive dt is a no-op; NaN and infinite dt are rejected.
func (s *Stepper) Step(dt float32) error {
	if math.IsNaN(float64(dt)) || math.IsInf(float64(dt), 0) {
		return fmt.Errorf("%w: non-finite dt %v", ErrInvalidParams, dt)
	}
	if dt <= 0 {
		return nil
	}

	steps := s.params.SubSteps(dt)
	sub := dt / float32(steps)
	b := s.backends[s.mode]
	for i := 0; i < steps; i++ {
		if err := b.Step(sub, s.elapsed); err != nil {
			return err
		}
	}
	if s.mode.Residency() == HostResident {
		s.mirrored = false
	}
	return nil
}

// Advance reads the clock and steps by the time since the previous reading.
func (s *Stepper) Advance() error {
	return s.Step(s.tick())
}

// Skip consumes a clock reading without stepping, so a paused simulation does
// not catch up on resume.
func (s *Stepper) Skip() {
	s.tick()
}

func (s *Stepper) tick() float32 {
	now := s.clock.Since()
	dt := now - s.last
	s.last = now
	s.elapsed = float32(now.Seconds())
	return float32(dt.Seconds())
}

// Positions returns the host position array. In device mode it holds the
// state of the last SyncPositions.
func (s *Stepper) Positions() []particles.Vec4 { return s.store.Positions }

// Velocities returns the host velocity array, with the same caveat as
// Positions.
func (s *Stepper) Velocities() []particles.Vec4 { return s.store.Velocities }

// SyncPositions copies device positions into the host array for drawing.
// No-op in host modes.
func (s *Stepper) SyncPositions() error {
	if s.mode.Residency() != DeviceResident {
		return nil
	}
	if err := s.device.DownloadPositions(s.store.Positions); err != nil {
		return fmt.Errorf("%w: download positions: %v", ErrDeviceFailure, err)
	}
	return nil
}

// MirrorPositions uploads host positions to the device, keeping the device
// copy current so a later switch to device mode only moves velocities.
// No-op in device mode or without a device.
func (s *Stepper) MirrorPositions() error {
	if s.mode.Residency() != HostResident || !s.deviceReady || s.mirrored {
		return nil
	}
	if err := s.device.UploadPositions(s.store.Positions); err != nil {
		return fmt.Errorf("%w: mirror positions: %v", ErrDeviceFailure, err)
	}
	s.mirrored = true
	return nil
}

// Resize reallocates the arrays for n particles and respawns all of them.
// If the device cannot be resized it is marked unavailable and a device-mode
// stepper falls back to scalar.
func (s *Stepper) Resize(n int) error {
	if err := s.store.Resize(n, s.align); err != nil {
		return err
	}
	s.host.SpawnAll(s.elapsed)
	s.mirrored = false

	if !s.deviceReady {
		return nil
	}
	if err := s.device.Allocate(n); err != nil {
		s.deviceReady = false
		if s.mode == ModeDevice {
			s.mode = ModeScalar
		}
		s.logger.Warn("compute device unavailable", "reason", "resize failed", "error", err)
		return fmt.Errorf("%w: allocate %d: %v", ErrDeviceFailure, n, err)
	}
	if s.mode.Residency() == DeviceResident {
		return s.uploadAll()
	}
	return nil
}

// Close stops the worker pool and releases backends and the device.
func (s *Stepper) Close() error {
	s.pool.Close()
	var errs []error
	for _, b := range s.backends {
		if b == nil {
			continue
		}
		if err := b.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if s.device != nil {
		if err := s.device.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
