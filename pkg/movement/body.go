package movement

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/teslashibe/go-companion/pkg/geom"
)

// Obstruction answers sphere-cast queries against the world.
type Obstruction interface {
	// Obstructed reports whether a sphere of radius moving from origin along
	// the unit vector dir for maxDist hits anything.
	Obstructed(origin, dir r3.Vec, radius, maxDist float64) bool
}

// ObstructionFunc adapts a function to Obstruction.
type ObstructionFunc func(origin, dir r3.Vec, radius, maxDist float64) bool

// Obstructed calls f.
func (f ObstructionFunc) Obstructed(origin, dir r3.Vec, radius, maxDist float64) bool {
	return f(origin, dir, radius, maxDist)
}

// Body is the companion's rigid body.
//
// A kinematic body ignores forces and only moves through MovePosition.
type Body struct {
	Position  r3.Vec  `json:"position"`
	Velocity  r3.Vec  `json:"velocity"`
	Kinematic bool    `json:"kinematic"`
	MaxSpeed  float64 `json:"max_speed"`
	Mass      float64 `json:"mass"`
	Radius    float64 `json:"radius"`
}

// AddForce applies f for dt seconds.
func (b *Body) AddForce(f r3.Vec, dt float64) {
	if b.Kinematic {
		return
	}
	mass := b.Mass
	if mass <= 0 {
		mass = 1
	}
	b.Velocity = r3.Add(b.Velocity, r3.Scale(dt/mass, f))
}

// MovePosition teleports the body.
func (b *Body) MovePosition(p r3.Vec) {
	b.Position = p
}

// ClampVelocity limits the speed to MaxSpeed.
func (b *Body) ClampVelocity() {
	b.Velocity = geom.ClampLength(b.Velocity, b.MaxSpeed)
}

// Integrate advances a dynamic body by its velocity. A step whose swept
// sphere is obstructed is not taken, the velocity is zeroed and true is
// returned.
func (b *Body) Integrate(dt float64, obstruction Obstruction) bool {
	if b.Kinematic {
		return false
	}
	step := r3.Scale(dt, b.Velocity)
	dist := r3.Norm(step)
	if dist == 0 {
		return false
	}
	if obstruction != nil && obstruction.Obstructed(b.Position, r3.Scale(1/dist, step), b.Radius, dist) {
		b.Velocity = r3.Vec{}
		return true
	}
	b.Position = r3.Add(b.Position, step)
	return false
}

// Speed returns |Velocity|.
func (b *Body) Speed() float64 {
	return r3.Norm(b.Velocity)
}
