// Package config provides configuration loading and access for the particle demo.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"runtime"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all demo configuration parameters.
type Config struct {
	Screen    ScreenConfig    `yaml:"screen"`
	Particles ParticlesConfig `yaml:"particles"`
	Physics   PhysicsConfig   `yaml:"physics"`
	Backend   BackendConfig   `yaml:"backend"`
	GPU       GPUConfig       `yaml:"gpu"`
	Camera    CameraConfig    `yaml:"camera"`
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// ScreenConfig holds display settings.
type ScreenConfig struct {
	Width     int `yaml:"width"`
	Height    int `yaml:"height"`
	TargetFPS int `yaml:"target_fps"`
}

// ParticlesConfig holds population and spawn parameters.
type ParticlesConfig struct {
	Count       int       `yaml:"count"`
	Origin      []float64 `yaml:"origin"`       // Spawn center (xyz)
	SpawnRadius float64   `yaml:"spawn_radius"` // Direction scale for spawn position
	DrawStride  int       `yaml:"draw_stride"`  // Draw every Nth particle (1 = all)
}

// PhysicsConfig holds the per-particle update law constants.
type PhysicsConfig struct {
	Gravity           []float64 `yaml:"gravity"`            // xyz(w) acceleration, m/s^2
	Friction          float64   `yaml:"friction"`           // Velocity damping per unit time, also bounce loss
	VelocityThreshold float64   `yaml:"velocity_threshold"` // Squared speed below which a particle respawns
	MaxStep           float64   `yaml:"max_step"`           // Sub-step cap in seconds
	MaxSubSteps       int       `yaml:"max_substeps"`       // Upper clamp on sub-steps per frame
}

// BackendConfig holds stepping backend selection and worker pool settings.
type BackendConfig struct {
	Mode              string `yaml:"mode"`               // scalar, parallel, vector4, vector8, blas, device
	Workers           int    `yaml:"workers"`            // 0 = GOMAXPROCS
	ParallelThreshold int    `yaml:"parallel_threshold"` // Below this many particles, run chunks inline
	Seed              int64  `yaml:"seed"`               // 0 = time-based
}

// GPUConfig holds compute device parameters.
type GPUConfig struct {
	Enabled   bool   `yaml:"enabled"`    // Probe the compute device at startup
	Emulate   bool   `yaml:"emulate"`    // Use the host-memory device emulation instead of OpenGL
	LocalSize int    `yaml:"local_size"` // Compute shader work group size
	Shader    string `yaml:"shader"`     // Optional override path for the compute shader source
}

// CameraConfig holds orbit camera parameters.
type CameraConfig struct {
	Eye         []float64 `yaml:"eye"`          // Eye position at angle 0
	Target      []float64 `yaml:"target"`       // Look-at point
	Fovy        float64   `yaml:"fovy"`         // Vertical field of view in degrees
	RotateSpeed float64   `yaml:"rotate_speed"` // Radians per key press
}

// TelemetryConfig holds performance and benchmark parameters.
type TelemetryConfig struct {
	PerfWindow      int     `yaml:"perf_window"`      // Frames averaged by the perf collector
	LogInterval     float64 `yaml:"log_interval"`     // Seconds between perf log lines (0 = off)
	BenchmarkFrames int     `yaml:"benchmark_frames"` // Frames per backend in benchmark mode
	BenchmarkDT     float64 `yaml:"benchmark_dt"`     // Fixed frame delta used while benchmarking
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	Gravity32     [4]float32 // Physics.Gravity padded to four lanes
	Origin32      [4]float32 // Particles.Origin padded to four lanes
	Friction32    float32
	Threshold32   float32
	MaxStep32     float32
	Workers       int // Effective worker count
	BenchmarkDT32 float32
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Defaults returns a fresh copy of the embedded defaults.
func Defaults() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults are invalid: %v", err))
	}
	return cfg
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Only overwrites fields present in the file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.computeDerived()

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Particles.Count < 0 {
		return fmt.Errorf("particles.count must be >= 0, got %d", c.Particles.Count)
	}
	if len(c.Physics.Gravity) < 3 || len(c.Physics.Gravity) > 4 {
		return fmt.Errorf("physics.gravity needs 3 or 4 components, got %d", len(c.Physics.Gravity))
	}
	if len(c.Particles.Origin) < 3 || len(c.Particles.Origin) > 4 {
		return fmt.Errorf("particles.origin needs 3 or 4 components, got %d", len(c.Particles.Origin))
	}
	if c.Particles.Origin[1] < c.Particles.SpawnRadius {
		return fmt.Errorf("particles.origin y %v must be >= spawn_radius %v", c.Particles.Origin[1], c.Particles.SpawnRadius)
	}
	if c.Physics.MaxStep <= 0 {
		return fmt.Errorf("physics.max_step must be > 0, got %v", c.Physics.MaxStep)
	}
	return nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.Gravity32 = pad4(c.Physics.Gravity)
	c.Derived.Origin32 = pad4(c.Particles.Origin)
	// w lanes carry no physics
	c.Derived.Gravity32[3] = 0
	c.Derived.Origin32[3] = 0
	c.Derived.Friction32 = float32(c.Physics.Friction)
	c.Derived.Threshold32 = float32(c.Physics.VelocityThreshold)
	c.Derived.MaxStep32 = float32(c.Physics.MaxStep)
	c.Derived.BenchmarkDT32 = float32(c.Telemetry.BenchmarkDT)

	c.Derived.Workers = c.Backend.Workers
	if c.Derived.Workers <= 0 {
		c.Derived.Workers = runtime.GOMAXPROCS(0)
	}

	if c.Particles.DrawStride < 1 {
		c.Particles.DrawStride = 1
	}
	if c.Physics.MaxSubSteps < 1 {
		c.Physics.MaxSubSteps = 1
	}
	if c.GPU.LocalSize <= 0 {
		c.GPU.LocalSize = 256
	}
}

func pad4(v []float64) [4]float32 {
	var out [4]float32
	for i := 0; i < len(v) && i < 4; i++ {
		out[i] = float32(v[i])
	}
	return out
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
