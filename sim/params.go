// Package sim advances the particle store under gravity and friction using one
// of several interchangeable backends, and keeps host and device copies of the
// arrays consistent when the active backend changes.
package sim

import (
	"fmt"
	"math"

	"github.com/pthm-cable/fountain/config"
	"github.com/pthm-cable/fountain/particles"
)

// Params are the simulation constants. Immutable once a Stepper is built.
type Params struct {
	Gravity           particles.Vec4 // Constant acceleration; W must be 0
	Friction          float32        // Velocity damping per unit time and bounce loss
	VelocityThreshold float32        // Squared speed below which a particle respawns
	Origin            particles.Vec4 // Spawn center
	SpawnRadius       float32        // Direction scale for spawn positions
	MaxStep           float32        // Sub-step cap in seconds
	MaxSubSteps       int            // Upper clamp on sub-steps per frame
}

// DefaultParams returns the standard fountain constants.
func DefaultParams() Params {
	return Params{
		Gravity:           particles.Vec4{Y: -9.80665},
		Friction:          0.33,
		VelocityThreshold: 1e-4,
		Origin:            particles.Vec4{Y: 0.5},
		SpawnRadius:       0.1,
		MaxStep:           0.016,
		MaxSubSteps:       8,
	}
}

// ParamsFromConfig builds Params from the loaded configuration.
func ParamsFromConfig(cfg *config.Config) Params {
	g, o := cfg.Derived.Gravity32, cfg.Derived.Origin32
	return Params{
		Gravity:           particles.Vec4{X: g[0], Y: g[1], Z: g[2]},
		Friction:          cfg.Derived.Friction32,
		VelocityThreshold: cfg.Derived.Threshold32,
		Origin:            particles.Vec4{X: o[0], Y: o[1], Z: o[2]},
		SpawnRadius:       float32(cfg.Particles.SpawnRadius),
		MaxStep:           cfg.Derived.MaxStep32,
		MaxSubSteps:       cfg.Physics.MaxSubSteps,
	}
}

// Validate checks the parameters for values the update law cannot use.
func (p Params) Validate() error {
	switch {
	case p.Friction < 0 || p.Friction >= 1:
		return fmt.Errorf("%w: friction %v outside [0, 1)", ErrInvalidParams, p.Friction)
	case p.VelocityThreshold < 0:
		return fmt.Errorf("%w: negative velocity threshold %v", ErrInvalidParams, p.VelocityThreshold)
	case !(p.MaxStep > 0):
		return fmt.Errorf("%w: max step %v must be positive", ErrInvalidParams, p.MaxStep)
	case p.MaxSubSteps < 1:
		return fmt.Errorf("%w: max substeps %d must be >= 1", ErrInvalidParams, p.MaxSubSteps)
	case p.SpawnRadius < 0:
		return fmt.Errorf("%w: negative spawn radius %v", ErrInvalidParams, p.SpawnRadius)
	case p.Origin.Y < p.SpawnRadius:
		// Spawn positions reach origin.y - radius and must not start below ground
		return fmt.Errorf("%w: origin y %v below spawn radius %v", ErrInvalidParams, p.Origin.Y, p.SpawnRadius)
	case p.Gravity.W != 0:
		return fmt.Errorf("%w: gravity w lane must be 0", ErrInvalidParams)
	}
	return nil
}

// SpawnRule returns the spawn rule described by p.
func (p Params) SpawnRule() particles.SpawnRule {
	origin := p.Origin
	origin.W = 0
	return particles.SpawnRule{Origin: origin, Radius: p.SpawnRadius}
}

// SubSteps returns how many equal sub-steps a frame of dt seconds is split into:
// clamp(round(dt/MaxStep), 1, MaxSubSteps).
func (p Params) SubSteps(dt float32) int {
	steps := math.Round(float64(dt / p.MaxStep))
	if !(steps >= 1) {
		return 1
	}
	if steps > float64(p.MaxSubSteps) {
		return p.MaxSubSteps
	}
	return int(steps)
}
