package geom

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/spatial/r3"
)

const tol = 1e-9

func TestUnitZero(t *testing.T) {
	assert.Equal(t, r3.Vec{}, Unit(r3.Vec{}))
	u := Unit(r3.Vec{X: 3, Y: 4})
	assert.InDelta(t, 1, r3.Norm(u), tol)
	assert.InDelta(t, 0.6, u.X, tol)
}

func TestClampLength(t *testing.T) {
	v := ClampLength(r3.Vec{X: 10}, 2)
	assert.InDelta(t, 2, v.X, tol)

	short := r3.Vec{X: 1}
	assert.Equal(t, short, ClampLength(short, 2))
}

func TestLerp(t *testing.T) {
	mid := Lerp(r3.Vec{}, r3.Vec{X: 2, Y: 4}, 0.5)
	assert.InDelta(t, 1, mid.X, tol)
	assert.InDelta(t, 2, mid.Y, tol)
}

func TestHorizontalForward(t *testing.T) {
	assert.Equal(t, Forward, HorizontalForward(r3.Vec{}))
	assert.Equal(t, Forward, HorizontalForward(r3.Vec{Y: 1}))

	f := HorizontalForward(r3.Vec{X: 1, Y: 5})
	assert.InDelta(t, 1, f.X, tol)
	assert.InDelta(t, 0, f.Y, tol)
}

func TestRotateAroundKeepsRadiusAndHeight(t *testing.T) {
	pivot := r3.Vec{X: 1, Y: 2, Z: 3}
	p := r3.Vec{X: 2, Y: 2, Z: 3}

	q := RotateAround(p, pivot, Up, Radians(90))
	assert.InDelta(t, 1, Distance(q, pivot), tol)
	assert.InDelta(t, 2, q.Y, tol)
	// a quarter turn moves the point off the +X spoke onto the Z axis
	assert.InDelta(t, 1, q.X, tol)
	assert.InDelta(t, 1, math.Abs(q.Z-3), tol)
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 1.0, Clamp(3, 0, 1))
	assert.Equal(t, 0.0, Clamp(-3, 0, 1))
	assert.Equal(t, 0.5, Clamp(0.5, 0, 1))
}
