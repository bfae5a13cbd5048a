package sim

import (
	"unsafe"

	"github.com/pthm-cable/fountain/particles"
)

// lane4 is one particle record in register form.
type lane4 [4]float32

func splat4(x, y, z, w float32) lane4 { return lane4{x, y, z, w} }

func load4(v *particles.Vec4) lane4 { return *(*lane4)(unsafe.Pointer(v)) }

func store4(dst *particles.Vec4, l lane4) { *(*lane4)(unsafe.Pointer(dst)) = l }

func add4(a, b lane4) lane4 {
	return lane4{a[0] + b[0], a[1] + b[1], a[2] + b[2], a[3] + b[3]}
}

func sub4(a, b lane4) lane4 {
	return lane4{a[0] - b[0], a[1] - b[1], a[2] - b[2], a[3] - b[3]}
}

func mul4(a, b lane4) lane4 {
	return lane4{a[0] * b[0], a[1] * b[1], a[2] * b[2], a[3] * b[3]}
}

// dot3 is the xyz dot product.
func dot3(a lane4) float32 {
	return a[0]*a[0] + a[1]*a[1] + a[2]*a[2]
}

// lane8 holds two consecutive particle records.
type lane8 [8]float32

func splat8(l lane4) lane8 {
	return lane8{l[0], l[1], l[2], l[3], l[0], l[1], l[2], l[3]}
}

func load8(v *particles.Vec4) lane8 { return *(*lane8)(unsafe.Pointer(v)) }

func store8(dst *particles.Vec4, l lane8) { *(*lane8)(unsafe.Pointer(dst)) = l }

func add8(a, b lane8) lane8 {
	return lane8{
		a[0] + b[0], a[1] + b[1], a[2] + b[2], a[3] + b[3],
		a[4] + b[4], a[5] + b[5], a[6] + b[6], a[7] + b[7],
	}
}

func sub8(a, b lane8) lane8 {
	return lane8{
		a[0] - b[0], a[1] - b[1], a[2] - b[2], a[3] - b[3],
		a[4] - b[4], a[5] - b[5], a[6] - b[6], a[7] - b[7],
	}
}

func mul8(a, b lane8) lane8 {
	return lane8{
		a[0] * b[0], a[1] * b[1], a[2] * b[2], a[3] * b[3],
		a[4] * b[4], a[5] * b[5], a[6] * b[6], a[7] * b[7],
	}
}

// blend8 picks each four-lane half from b when its flag is set, else from a.
func blend8(a, b lane8, low, high bool) lane8 {
	out := a
	if low {
		copy(out[0:4], b[0:4])
	}
	if high {
		copy(out[4:8], b[4:8])
	}
	return out
}

// laneConsts are the step constants broadcast into lanes. The w lane of every
// multiplier is 0 so w never picks up physics.
type laneConsts struct {
	gravity  lane4
	friction lane4
	dt       lane4
	halfDt2  lane4
	one      lane4
	flipPos  lane4 // (1, -1, 1, 1)
	flipVel  lane4 // (1-f)(1, -1, 1, 0)
}

func newLaneConsts(c *stepConsts) laneConsts {
	g := c.gravity
	return laneConsts{
		gravity:  splat4(g.X, g.Y, g.Z, 0),
		friction: splat4(c.friction, c.friction, c.friction, 0),
		dt:       splat4(c.dt, c.dt, c.dt, 0),
		halfDt2:  splat4(c.halfDt2, c.halfDt2, c.halfDt2, 0),
		one:      splat4(1, 1, 1, 1),
		flipPos:  splat4(1, -1, 1, 1),
		flipVel:  splat4(c.damp, -c.damp, c.damp, 0),
	}
}

// integrate4 is the update law on one particle in lane form.
func integrate4(p, v *particles.Vec4, k *laneConsts) {
	lp := load4(p)
	lv := load4(v)

	f := sub4(k.gravity, mul4(lv, k.friction))
	lp = add4(add4(lp, mul4(lv, k.dt)), mul4(f, k.halfDt2))
	lv = add4(lv, mul4(f, k.dt))

	if lp[1] < 0 {
		lp = mul4(lp, k.flipPos)
		lv = mul4(lv, k.flipVel)
	}

	lp[3] = dot3(lv)
	store4(p, lp)
	store4(v, lv)
}

// integrate8 is the update law on particles i and i+1 in lane form.
func integrate8(p, v *particles.Vec4, w *wideConsts) {
	lp := load8(p)
	lv := load8(v)

	f := sub8(w.gravity, mul8(lv, w.friction))
	lp = add8(add8(lp, mul8(lv, w.dt)), mul8(f, w.halfDt2))
	lv = add8(lv, mul8(f, w.dt))

	low, high := lp[1] < 0, lp[5] < 0
	if low || high {
		lp = mul8(lp, blend8(w.one, w.flipPos, low, high))
		lv = mul8(lv, blend8(w.one, w.flipVel, low, high))
	}

	lp[3] = lv[0]*lv[0] + lv[1]*lv[1] + lv[2]*lv[2]
	lp[7] = lv[4]*lv[4] + lv[5]*lv[5] + lv[6]*lv[6]
	store8(p, lp)
	store8(v, lv)
}

// wideConsts are laneConsts broadcast across two records.
type wideConsts struct {
	gravity  lane8
	friction lane8
	dt       lane8
	halfDt2  lane8
	one      lane8
	flipPos  lane8
	flipVel  lane8
}

func newWideConsts(k *laneConsts) wideConsts {
	return wideConsts{
		gravity:  splat8(k.gravity),
		friction: splat8(k.friction),
		dt:       splat8(k.dt),
		halfDt2:  splat8(k.halfDt2),
		one:      splat8(k.one),
		flipPos:  splat8(k.flipPos),
		flipVel:  splat8(k.flipVel),
	}
}
