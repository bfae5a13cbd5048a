package renderer

import rl "github.com/gen2brain/raylib-go/raylib"

// Ground draws the y = 0 plane the particles bounce on.
type Ground struct {
	Slices  int32
	Spacing float32
	Color   rl.Color
}

// NewGround creates a ground grid covering slices*spacing units.
func NewGround(slices int32, spacing float32) *Ground {
	return &Ground{
		Slices:  slices,
		Spacing: spacing,
		Color:   rl.Color{R: 30, G: 32, B: 40, A: 255},
	}
}

// Draw renders a filled plane under the grid. Call inside BeginMode3D.
func (g *Ground) Draw() {
	size := float32(g.Slices) * g.Spacing
	rl.DrawPlane(rl.Vector3{Y: -0.001}, rl.Vector2{X: size, Y: size}, g.Color)
	rl.DrawGrid(g.Slices, g.Spacing)
}
