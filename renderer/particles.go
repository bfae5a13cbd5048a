// Package renderer draws the particle fountain with raylib and hosts the
// OpenGL compute device used by the offload backend.
package renderer

import (
	"image/color"

	"github.com/chewxy/math32"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/fountain/particles"
)

// Squared speed at which particles reach full brightness.
const fullBrightSpeed2 = 25

var (
	slowColor = rl.Color{R: 40, G: 70, B: 160, A: 255}
	fastColor = rl.Color{R: 235, G: 245, B: 255, A: 255}
)

// ParticleRenderer draws particles as 3D points. It only reads the position
// array, so it must run between steps.
type ParticleRenderer struct{}

// NewParticleRenderer creates a new particle renderer.
func NewParticleRenderer() *ParticleRenderer {
	return &ParticleRenderer{}
}

// Draw renders every stride-th particle, brightest where the cached squared
// speed in W is highest. Call inside BeginMode3D.
func (r *ParticleRenderer) Draw(positions []particles.Vec4, stride int) {
	if stride < 1 {
		stride = 1
	}
	for i := 0; i < len(positions); i += stride {
		p := positions[i]
		rl.DrawPoint3D(rl.Vector3{X: p.X, Y: p.Y, Z: p.Z}, SpeedColor(p.W))
	}
}

// SpeedColor maps a squared speed to a point color.
func SpeedColor(speed2 float32) color.RGBA {
	t := speed2 / fullBrightSpeed2
	if t > 1 || math32.IsNaN(t) {
		t = 1
	}
	if t < 0 {
		t = 0
	}
	return lerpColor(slowColor, fastColor, t)
}

func lerpColor(a, b color.RGBA, t float32) color.RGBA {
	mix := func(x, y uint8) uint8 {
		return uint8(float32(x) + (float32(y)-float32(x))*t + 0.5)
	}
	return color.RGBA{R: mix(a.R, b.R), G: mix(a.G, b.G), B: mix(a.B, b.B), A: mix(a.A, b.A)}
}
