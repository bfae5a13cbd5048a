// Package camera provides the orbit camera that circles the fountain.
package camera

import "math"

// Vec3 is a point or direction in world space.
type Vec3 struct {
	X, Y, Z float32
}

func (v Vec3) sub(o Vec3) Vec3 { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }
func (v Vec3) add(o Vec3) Vec3 { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }

func (v Vec3) scale(s float32) Vec3 { return Vec3{v.X * s, v.Y * s, v.Z * s} }

// Len returns the length of v.
func (v Vec3) Len() float32 {
	return float32(math.Sqrt(float64(v.X*v.X + v.Y*v.Y + v.Z*v.Z)))
}

// Orbit looks at a fixed target from an eye that rotates about the vertical
// axis through the target.
type Orbit struct {
	// BaseEye is the eye position at angle 0 and zoom 1
	BaseEye Vec3

	// Target is the look-at point
	Target Vec3

	// Fovy is the vertical field of view in degrees
	Fovy float32

	// Angle is the rotation about the Y axis in radians, kept in [0, 2π)
	Angle float32

	// Zoom divides the eye distance (1.0 = BaseEye distance)
	Zoom float32

	// Zoom constraints
	MinZoom, MaxZoom float32
}

// New creates an orbit camera at angle 0 with 1:1 zoom.
func New(eye, target Vec3, fovy float32) *Orbit {
	return &Orbit{
		BaseEye: eye,
		Target:  target,
		Fovy:    fovy,
		Zoom:    1.0,
		MinZoom: 0.25,
		MaxZoom: 4.0,
	}
}

// FromSlices builds a camera from config-style coordinate slices. Missing
// components are zero.
func FromSlices(eye, target []float64, fovy float64) *Orbit {
	return New(vec3(eye), vec3(target), float32(fovy))
}

func vec3(v []float64) Vec3 {
	var out [3]float32
	for i := 0; i < len(v) && i < 3; i++ {
		out[i] = float32(v[i])
	}
	return Vec3{out[0], out[1], out[2]}
}

// Rotate turns the eye by delta radians about the vertical axis.
func (c *Orbit) Rotate(delta float32) {
	c.Angle = wrapAngle(c.Angle + delta)
}

// Eye returns the current eye position.
func (c *Orbit) Eye() Vec3 {
	offset := c.BaseEye.sub(c.Target)

	sin, cos := math.Sincos(float64(c.Angle))
	s, co := float32(sin), float32(cos)
	rotated := Vec3{
		X: offset.X*co + offset.Z*s,
		Y: offset.Y,
		Z: -offset.X*s + offset.Z*co,
	}
	return c.Target.add(rotated.scale(1 / c.Zoom))
}

// Up returns the camera up vector.
func (c *Orbit) Up() Vec3 {
	return Vec3{Y: 1}
}

// Distance returns the current eye to target distance.
func (c *Orbit) Distance() float32 {
	return c.Eye().sub(c.Target).Len()
}

// SetZoom sets the zoom level, clamped to min/max.
func (c *Orbit) SetZoom(zoom float32) {
	c.Zoom = clamp(zoom, c.MinZoom, c.MaxZoom)
}

// ZoomBy multiplies the current zoom by the given factor.
func (c *Orbit) ZoomBy(factor float32) {
	c.SetZoom(c.Zoom * factor)
}

// Reset returns the camera to angle 0 and 1:1 zoom.
func (c *Orbit) Reset() {
	c.Angle = 0
	c.Zoom = 1.0
}

// wrapAngle maps a into [0, 2π).
func wrapAngle(a float32) float32 {
	r := float32(math.Mod(float64(a), 2*math.Pi))
	if r < 0 {
		r += 2 * math.Pi
	}
	if r >= 2*math.Pi {
		r = 0
	}
	return r
}

// clamp restricts a value to a range.
func clamp(x, min, max float32) float32 {
	if x < min {
		return min
	}
	if x > max {
		return max
	}
	return x
}
