package movement

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/teslashibe/go-companion/pkg/geom"
)

// Cone describes a horizontal fan of candidate rays.
type Cone struct {
	Origin  r3.Vec
	Forward r3.Vec // projected onto the horizontal plane; zero means +Z
	MinDist float64
	MaxDist float64
	// Angle is the full opening in degrees; rays span [-Angle/2, +Angle/2].
	Angle      float64
	Resolution int
	// Radius of the sphere cast along each ray.
	Radius float64
}

// Sampler picks wander destinations.
type Sampler struct {
	rng         *rand.Rand
	obstruction Obstruction
}

// NewSampler creates a sampler. obstruction may be nil for open space.
func NewSampler(rng *rand.Rand, obstruction Obstruction) *Sampler {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Sampler{rng: rng, obstruction: obstruction}
}

// Directions returns the unit ray directions of the cone, evenly spaced and
// including both edges. A resolution of one yields only the centre ray.
func (c Cone) Directions() []r3.Vec {
	forward := geom.HorizontalForward(c.Forward)
	n := c.Resolution
	if n < 1 {
		n = 1
	}
	dirs := make([]r3.Vec, n)
	if n == 1 {
		dirs[0] = forward
		return dirs
	}
	step := c.Angle / float64(n-1)
	for i := range dirs {
		deg := -c.Angle/2 + step*float64(i)
		dirs[i] = geom.RotateAround(forward, r3.Vec{}, geom.Up, geom.Radians(deg))
	}
	return dirs
}

// Candidates casts every ray of the cone, each with its own uniformly drawn
// length, and returns the unobstructed end points farther than minSeparation
// from current.
func (s *Sampler) Candidates(c Cone, current r3.Vec, minSeparation float64) []r3.Vec {
	var out []r3.Vec
	for _, dir := range c.Directions() {
		dist := c.MinDist + s.rng.Float64()*(c.MaxDist-c.MinDist)
		if s.obstruction != nil && s.obstruction.Obstructed(c.Origin, dir, c.Radius, dist) {
			continue
		}
		p := r3.Add(c.Origin, r3.Scale(dist, dir))
		if geom.Distance(p, current) <= minSeparation {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Sample returns a uniformly chosen candidate. With no candidate it returns
// current and false; callers retry on a later tick.
func (s *Sampler) Sample(c Cone, current r3.Vec, minSeparation float64) (r3.Vec, bool) {
	candidates := s.Candidates(c, current, minSeparation)
	if len(candidates) == 0 {
		return current, false
	}
	return candidates[s.rng.IntN(len(candidates))], true
}
