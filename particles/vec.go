// Package particles holds the particle state store: index-aligned position and
// velocity arrays laid out for lane-wise access, plus the spawn rule.
package particles

import "github.com/chewxy/math32"

// Vec4 is a four-lane float32 record. Layout-identical to [4]float32.
type Vec4 struct {
	X, Y, Z, W float32
}

// Add returns v + o.
func (v Vec4) Add(o Vec4) Vec4 {
	return Vec4{v.X + o.X, v.Y + o.Y, v.Z + o.Z, v.W + o.W}
}

// Sub returns v - o.
func (v Vec4) Sub(o Vec4) Vec4 {
	return Vec4{v.X - o.X, v.Y - o.Y, v.Z - o.Z, v.W - o.W}
}

// Scale returns v * s.
func (v Vec4) Scale(s float32) Vec4 {
	return Vec4{v.X * s, v.Y * s, v.Z * s, v.W * s}
}

// Dot3 returns the dot product of the xyz lanes.
func (v Vec4) Dot3(o Vec4) float32 {
	return v.X*o.X + v.Y*o.Y + v.Z*o.Z
}

// Len3 returns the length of the xyz lanes.
func (v Vec4) Len3() float32 {
	return math32.Sqrt(v.Dot3(v))
}
