package movement

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/teslashibe/go-companion/pkg/geom"
)

func testCone() Cone {
	return Cone{
		Origin:     r3.Vec{Y: 2},
		Forward:    r3.Vec{Z: 1, Y: -0.3},
		MinDist:    0.5,
		MaxDist:    2,
		Angle:      60,
		Resolution: 15,
		Radius:     0.1,
	}
}

func TestConeDirections(t *testing.T) {
	c := testCone()
	dirs := c.Directions()
	require.Len(t, dirs, 15)

	first := math.Acos(r3.Dot(dirs[0], geom.Forward)) * 180 / math.Pi
	last := math.Acos(r3.Dot(dirs[14], geom.Forward)) * 180 / math.Pi
	assert.InDelta(t, 30, first, 1e-6)
	assert.InDelta(t, 30, last, 1e-6)
	assert.InDelta(t, 1, r3.Dot(dirs[7], geom.Forward), 1e-9)
	for _, d := range dirs {
		assert.InDelta(t, 0, d.Y, 1e-9)
		assert.InDelta(t, 1, r3.Norm(d), 1e-9)
	}

	c.Resolution = 1
	assert.Equal(t, []r3.Vec{geom.Forward}, c.Directions())
}

func TestSampleWithinBounds(t *testing.T) {
	s := NewSampler(rand.New(rand.NewPCG(7, 7)), nil)
	c := testCone()
	current := r3.Vec{X: 50}

	for i := 0; i < 200; i++ {
		p, ok := s.Sample(c, current, 0.2)
		require.True(t, ok)

		offset := r3.Sub(p, c.Origin)
		dist := r3.Norm(offset)
		assert.GreaterOrEqual(t, dist, c.MinDist-1e-9)
		assert.LessOrEqual(t, dist, c.MaxDist+1e-9)
		assert.InDelta(t, c.Origin.Y, p.Y, 1e-9, "samples stay level with the origin")

		angle := math.Acos(geom.Clamp(r3.Dot(geom.Unit(offset), geom.Forward), -1, 1)) * 180 / math.Pi
		assert.LessOrEqual(t, angle, c.Angle/2+1e-6)
	}
}

func TestSampleFallbackWhenObstructed(t *testing.T) {
	blocked := ObstructionFunc(func(r3.Vec, r3.Vec, float64, float64) bool { return true })
	s := NewSampler(rand.New(rand.NewPCG(1, 1)), blocked)
	current := r3.Vec{X: 1, Y: 2, Z: 3}

	p, ok := s.Sample(testCone(), current, 0.2)
	assert.False(t, ok)
	assert.Equal(t, current, p)
}

func TestSampleRespectsSeparation(t *testing.T) {
	s := NewSampler(rand.New(rand.NewPCG(1, 1)), nil)
	c := testCone()
	c.Resolution = 1
	c.MinDist, c.MaxDist = 1, 1
	current := r3.Add(c.Origin, geom.Forward)

	_, ok := s.Sample(c, current, 0.2)
	assert.False(t, ok)

	p, ok := s.Sample(c, c.Origin, 0.2)
	require.True(t, ok)
	assert.InDelta(t, 0, geom.Distance(p, current), 1e-9)
}

func TestSamplePassesRayToObstruction(t *testing.T) {
	var radii []float64
	obs := ObstructionFunc(func(origin, dir r3.Vec, radius, maxDist float64) bool {
		radii = append(radii, radius)
		// block everything to the right of forward
		return dir.X > 1e-9
	})
	s := NewSampler(rand.New(rand.NewPCG(3, 3)), obs)
	c := testCone()

	for _, p := range s.Candidates(c, r3.Vec{X: 50}, 0.2) {
		assert.LessOrEqual(t, p.X, 1e-6)
	}
	assert.Len(t, radii, c.Resolution)
	assert.Equal(t, 0.1, radii[0])
}
