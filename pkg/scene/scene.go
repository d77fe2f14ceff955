// Package scene is a minimal collision world: an axis-aligned room with
// spherical obstacles, queried by sphere casts.
package scene

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/teslashibe/go-companion/internal/config"
	"github.com/teslashibe/go-companion/pkg/geom"
)

// Sphere is a spherical obstacle.
type Sphere struct {
	Center r3.Vec  `json:"center"`
	Radius float64 `json:"radius"`
}

// Room is the space the companion moves in. Min and Max are the inner
// corners of the walls; the floor is Min.Y.
type Room struct {
	Min       r3.Vec   `json:"min"`
	Max       r3.Vec   `json:"max"`
	Obstacles []Sphere `json:"obstacles"`
}

// DefaultRoom returns a 6 x 3 x 6 m room centred on the origin at floor level.
func DefaultRoom() Room {
	return Room{
		Min: r3.Vec{X: -3, Y: 0, Z: -3},
		Max: r3.Vec{X: 3, Y: 3, Z: 3},
	}
}

// Validate checks the room has volume and every obstacle is sized.
func (r Room) Validate() error {
	if r.Max.X <= r.Min.X || r.Max.Y <= r.Min.Y || r.Max.Z <= r.Min.Z {
		return &config.ConfigError{Field: "Room", Message: "max corner must exceed min corner on every axis"}
	}
	for i, o := range r.Obstacles {
		if o.Radius <= 0 {
			return &config.ConfigError{Field: fmt.Sprintf("Obstacles[%d]", i), Message: "radius must be positive"}
		}
	}
	return nil
}

// Obstructed reports whether a sphere of the given radius, swept from origin
// along dir for maxDist, would leave the room or touch an obstacle.
//
// A sphere that already overlaps an obstacle or sticks out of the walls may
// always move out again: an overlapped obstacle only blocks motion towards
// its centre, and a wall only blocks a step that ends deeper outside than it
// started.
func (r Room) Obstructed(origin, dir r3.Vec, radius, maxDist float64) bool {
	dir = geom.Unit(dir)
	end := r3.Add(origin, r3.Scale(maxDist, dir))
	if !r.contains(end, radius) && r.outside(end, radius) > r.outside(origin, radius)+epsilon {
		return true
	}
	for _, o := range r.Obstacles {
		reach := radius + o.Radius
		toCenter := r3.Sub(o.Center, origin)
		if r3.Norm(toCenter) <= reach {
			if r3.Dot(dir, toCenter) > 0 {
				return true
			}
			continue
		}
		if segmentDistance(origin, dir, maxDist, o.Center) <= reach {
			return true
		}
	}
	return false
}

const epsilon = 1e-9

// Contains reports whether a sphere at p fits inside the walls.
func (r Room) Contains(p r3.Vec, radius float64) bool {
	return r.contains(p, radius)
}

func (r Room) contains(p r3.Vec, radius float64) bool {
	return r.outside(p, radius) <= 0
}

// outside is how far a sphere at p sticks through the deepest wall, zero
// when it fits.
func (r Room) outside(p r3.Vec, radius float64) float64 {
	return max(0,
		r.Min.X-(p.X-radius), (p.X+radius)-r.Max.X,
		r.Min.Y-(p.Y-radius), (p.Y+radius)-r.Max.Y,
		r.Min.Z-(p.Z-radius), (p.Z+radius)-r.Max.Z,
	)
}

// segmentDistance is the distance from c to the segment origin + t*dir,
// t in [0, length], with dir a unit vector.
func segmentDistance(origin, dir r3.Vec, length float64, c r3.Vec) float64 {
	t := geom.Clamp(r3.Dot(r3.Sub(c, origin), dir), 0, length)
	closest := r3.Add(origin, r3.Scale(t, dir))
	return geom.Distance(closest, c)
}
