// Package geom holds the small amount of vector math the companion needs on
// top of gonum's r3 package. The world is y-up.
package geom

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

const epsilon = 1e-9

var (
	// Up is the world vertical axis.
	Up = r3.Vec{Y: 1}
	// Forward is used whenever a facing direction is missing.
	Forward = r3.Vec{Z: 1}
)

// Unit returns v scaled to length 1, or the zero vector when v is (nearly) zero.
// r3.Unit divides by the norm unconditionally.
func Unit(v r3.Vec) r3.Vec {
	n := r3.Norm(v)
	if n < epsilon {
		return r3.Vec{}
	}
	return r3.Scale(1/n, v)
}

// IsZero reports whether v has (nearly) zero length.
func IsZero(v r3.Vec) bool {
	return r3.Norm(v) < epsilon
}

// Distance returns |a-b|.
func Distance(a, b r3.Vec) float64 {
	return r3.Norm(r3.Sub(a, b))
}

// Lerp interpolates between a and b; t is not clamped.
func Lerp(a, b r3.Vec, t float64) r3.Vec {
	return r3.Add(a, r3.Scale(t, r3.Sub(b, a)))
}

// ClampLength limits the length of v to max.
func ClampLength(v r3.Vec, max float64) r3.Vec {
	n := r3.Norm(v)
	if n <= max || n < epsilon {
		return v
	}
	return r3.Scale(max/n, v)
}

// Flatten projects v onto the horizontal plane.
func Flatten(v r3.Vec) r3.Vec {
	v.Y = 0
	return v
}

// HorizontalForward returns the unit horizontal facing of forward, falling back
// to +Z when forward is vertical or zero.
func HorizontalForward(forward r3.Vec) r3.Vec {
	f := Unit(Flatten(forward))
	if IsZero(f) {
		return Forward
	}
	return f
}

// RotateAround rotates p about an axis through pivot by angle radians.
func RotateAround(p, pivot, axis r3.Vec, angle float64) r3.Vec {
	rot := r3.NewRotation(angle, Unit(axis))
	return r3.Add(pivot, rot.Rotate(r3.Sub(p, pivot)))
}

// Radians converts degrees to radians.
func Radians(deg float64) float64 {
	return deg * math.Pi / 180
}

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
