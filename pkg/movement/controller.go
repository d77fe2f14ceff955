package movement

import (
	"log/slog"
	"math"
	"math/rand/v2"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/teslashibe/go-companion/internal/log"
	"github.com/teslashibe/go-companion/pkg/behavior"
	"github.com/teslashibe/go-companion/pkg/geom"
	"github.com/teslashibe/go-companion/pkg/sensor"
)

// WanderTarget is the current idle destination.
type WanderTarget struct {
	Position  r3.Vec        `json:"position"`
	Arrived   bool          `json:"arrived"`
	WaitUntil time.Duration `json:"wait_until"`
}

// Options carries the controller's collaborators. Every field is optional.
type Options struct {
	Obstruction Obstruction
	Emitter     behavior.Emitter
	Rand        *rand.Rand
	Logger      *slog.Logger
}

// Snapshot is a copy of the controller state for status reporting.
type Snapshot struct {
	State            behavior.State `json:"state"`
	Body             Body           `json:"body"`
	Speed            float64        `json:"speed"`
	ObservedVelocity r3.Vec         `json:"observed_velocity"`
	Wander           WanderTarget   `json:"wander_target"`
	FollowTarget     r3.Vec         `json:"follow_target"`
	OrbitRate        float64        `json:"orbit_rate"`

	LogicTicks   uint64 `json:"logic_ticks"`
	PhysicsTicks uint64 `json:"physics_ticks"`
	Collisions   uint64 `json:"collisions"`
	Resamples    uint64 `json:"resamples"`
}

// Controller is the movement state machine. It is driven from a single
// goroutine and is not safe for concurrent use.
type Controller struct {
	tuning      Tuning
	obstruction Obstruction
	emit        behavior.Emitter
	rng         *rand.Rand
	sampler     *Sampler
	logger      *slog.Logger

	running bool
	state   behavior.State
	now     time.Duration
	signals sensor.Signals
	body    Body

	target       WanderTarget
	needTarget   bool // last sample found no free point
	handHeld     sensor.Signal
	followTarget r3.Vec
	orbitRate    float64

	prevPosition     r3.Vec
	observedVelocity r3.Vec

	// Diagnostics
	logicTicks   uint64
	physicsTicks uint64
	collisions   uint64
	resamples    uint64
}

// NewController creates a stopped controller.
func NewController(tuning Tuning, opts Options) *Controller {
	if opts.Emitter == nil {
		opts.Emitter = behavior.Discard
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Controller{
		tuning:      tuning,
		obstruction: opts.Obstruction,
		emit:        opts.Emitter,
		rng:         opts.Rand,
		sampler:     NewSampler(opts.Rand, opts.Obstruction),
		logger:      log.Or(opts.Logger).With("component", "movement"),
	}
}

// Start places the body and enters Wander. When a hand is present the body
// spawns at the hand instead of spawn.
func (c *Controller) Start(signals sensor.Signals, spawn r3.Vec) {
	if c.running {
		return
	}
	c.signals = signals
	pos := spawn
	if signals.HandPresent {
		pos = signals.HandPosition
	}
	c.body = Body{
		Position: pos,
		Mass:     c.tuning.BodyMass,
		Radius:   c.tuning.BodyRadius,
	}
	c.prevPosition = pos
	c.observedVelocity = r3.Vec{}
	c.running = true
	c.logger.Info("movement started", "position", pos)
	c.transition(behavior.Wander)
}

// Stop runs the exit hook of the current state and halts the controller.
func (c *Controller) Stop() {
	if !c.running {
		return
	}
	c.transition(behavior.None)
	c.running = false
	c.logger.Info("movement stopped")
}

// Running reports whether Start has been called without a matching Stop.
func (c *Controller) Running() bool { return c.running }

// State returns the active behaviour.
func (c *Controller) State() behavior.State { return c.state }

// Tuning returns the active tuning.
func (c *Controller) Tuning() Tuning { return c.tuning }

// SetTuning swaps the tuning. The current state's speed cap and the hand
// loss grace follow immediately.
func (c *Controller) SetTuning(t Tuning) {
	c.tuning = t
	c.body.Mass = t.BodyMass
	c.body.Radius = t.BodyRadius
	c.body.MaxSpeed = c.maxSpeed(c.state)
	c.handHeld.Grace = t.HandLossGrace
	c.logger.Info("movement tuning updated")
}

// Update is the logic tick: it records the signals, derives the observed
// velocity and evaluates transitions.
func (c *Controller) Update(signals sensor.Signals, dt time.Duration) {
	if !c.running {
		return
	}
	c.now += dt
	c.signals = signals
	c.logicTicks++

	if s := dt.Seconds(); s > 0 {
		c.observedVelocity = r3.Scale(1/s, r3.Sub(c.body.Position, c.prevPosition))
	}
	c.prevPosition = c.body.Position

	if signals.HandPresent {
		c.followTarget = r3.Add(signals.HandPosition, r3.Scale(c.tuning.HandHoverOffset, geom.Up))
	}

	switch c.state {
	case behavior.Wander:
		if signals.EyesClosed {
			c.transition(behavior.OrbitAnchor)
		} else if signals.HandPresent {
			c.transition(behavior.FollowTarget)
		}

	case behavior.FollowTarget:
		if signals.EyesClosed {
			c.transition(behavior.OrbitAnchor)
			return
		}
		c.handHeld.Update(signals.HandPresent, dt)
		if !c.handHeld.Value() {
			c.transition(behavior.Wander)
		}

	case behavior.OrbitAnchor:
		if signals.EyesClosed {
			c.orbitRate = c.tuning.OrbitRate
			return
		}
		c.orbitRate = c.tuning.OrbitRateEyesOpen
		if c.inView() {
			if signals.HandPresent {
				c.transition(behavior.FollowTarget)
			} else {
				c.transition(behavior.Wander)
			}
		}
	}
}

// FixedUpdate is the physics tick.
func (c *Controller) FixedUpdate(dt time.Duration) {
	if !c.running {
		return
	}
	sec := dt.Seconds()
	c.physicsTicks++

	switch c.state {
	case behavior.Wander:
		c.wander(sec)
	case behavior.FollowTarget:
		c.follow(sec)
	case behavior.OrbitAnchor:
		c.orbit(sec)
	}

	c.body.ClampVelocity()
	if c.body.Integrate(sec, c.obstruction) {
		c.onCollision()
	}
}

// Snapshot copies the controller state.
func (c *Controller) Snapshot() Snapshot {
	return Snapshot{
		State:            c.state,
		Body:             c.body,
		Speed:            c.body.Speed(),
		ObservedVelocity: c.observedVelocity,
		Wander:           c.target,
		FollowTarget:     c.followTarget,
		OrbitRate:        c.orbitRate,
		LogicTicks:       c.logicTicks,
		PhysicsTicks:     c.physicsTicks,
		Collisions:       c.collisions,
		Resamples:        c.resamples,
	}
}

func (c *Controller) transition(next behavior.State) {
	prev := c.state
	if prev == next {
		return
	}
	c.exit(prev)
	c.state = next
	c.logger.Info("behavior state changed", "from", prev, "to", next)
	c.emit.Emit(behavior.Event{Kind: behavior.KindStateChanged, At: c.now, From: prev, To: next})
	c.enter(next)
}

func (c *Controller) enter(s behavior.State) {
	c.body.MaxSpeed = c.maxSpeed(s)

	switch s {
	case behavior.Wander:
		c.chooseWanderTarget()

	case behavior.FollowTarget:
		c.handHeld = sensor.NewSignal(0, c.tuning.HandLossGrace)
		c.handHeld.Force(true)

	case behavior.OrbitAnchor:
		c.body.Kinematic = true
		c.body.Velocity = r3.Vec{}
		c.orbitRate = c.tuning.OrbitRate
		if !c.signals.EyesClosed {
			c.orbitRate = c.tuning.OrbitRateEyesOpen
		}
		c.emit.Emit(behavior.Event{Kind: behavior.KindOrbitChanged, At: c.now, Active: true})
	}
}

func (c *Controller) exit(s behavior.State) {
	if s != behavior.OrbitAnchor {
		return
	}
	c.body.Kinematic = false
	c.body.Velocity = c.observedVelocity
	c.emit.Emit(behavior.Event{Kind: behavior.KindOrbitChanged, At: c.now, Active: false})
}

func (c *Controller) maxSpeed(s behavior.State) float64 {
	switch s {
	case behavior.FollowTarget:
		return c.tuning.MaxHandSpeed
	case behavior.OrbitAnchor:
		return c.tuning.MaxOrbitSpeed
	default:
		return c.tuning.MaxWanderSpeed
	}
}

func (c *Controller) wander(sec float64) {
	if c.needTarget {
		c.chooseWanderTarget()
		if c.needTarget {
			return
		}
	}
	t := &c.target
	if t.Arrived {
		if c.now > t.WaitUntil {
			c.chooseWanderTarget()
		}
		return
	}

	dist := geom.Distance(t.Position, c.body.Position)
	if dist > c.tuning.MaxWanderDist {
		c.chooseWanderTarget()
		dist = geom.Distance(t.Position, c.body.Position)
	}
	if dist > c.tuning.WanderDeadzone {
		c.steerForce(t.Position, c.tuning.MoveSpeedWander, false, sec)
		return
	}
	t.Arrived = true
	t.WaitUntil = c.now + c.randomWait()
}

func (c *Controller) follow(sec float64) {
	if !c.signals.HandPresent {
		return
	}
	c.steerForce(c.followTarget, c.tuning.MoveSpeedHand, true, sec)
}

func (c *Controller) orbit(sec float64) {
	anchor := c.signals.HeadPosition
	pos := c.body.Position
	offset := r3.Sub(pos, anchor)

	if math.Abs(r3.Norm(offset)-c.tuning.OrbitRadius) > c.tuning.OrbitDeadzone {
		dir := geom.Unit(offset)
		if geom.IsZero(dir) {
			dir = r3.Scale(-1, geom.HorizontalForward(c.signals.HeadForward))
		}
		c.steerDirect(r3.Add(anchor, r3.Scale(c.tuning.OrbitRadius, dir)), c.tuning.MoveSpeedOrbit, sec)
		return
	}

	rotated := geom.RotateAround(pos, anchor, geom.Up, geom.Radians(c.orbitRate*sec))
	c.body.MovePosition(rotated)
	level := rotated
	level.Y = anchor.Y
	c.steerDirect(level, c.tuning.MoveSpeedOrbit, sec)
}

// steerForce pushes the body towards target. With opposing set, a body
// moving away from the target gets a stronger pull proportional to how
// directly it is moving away.
func (c *Controller) steerForce(target r3.Vec, speed float64, opposing bool, sec float64) {
	offset := r3.Sub(target, c.body.Position)
	dist := r3.Norm(offset)
	if dist <= c.tuning.StopDistance {
		return
	}
	dir := r3.Scale(1/dist, offset)
	k := 1.0
	if opposing {
		if dot := r3.Dot(dir, geom.Unit(c.body.Velocity)); dot < 0 {
			k = -dot * c.tuning.OpposingForceMult
		}
	}
	c.body.AddForce(r3.Scale(c.body.Mass*speed*k, dir), sec)
}

// steerDirect moves a kinematic body towards target, slowing inside
// StopDistance and never passing it.
func (c *Controller) steerDirect(target r3.Vec, speed, sec float64) {
	offset := r3.Sub(target, c.body.Position)
	dist := r3.Norm(offset)
	if dist == 0 {
		return
	}
	step := math.Min(dist, dist/c.tuning.StopDistance*speed*sec)
	c.body.MovePosition(r3.Add(c.body.Position, r3.Scale(step/dist, offset)))
}

func (c *Controller) inView() bool {
	dir := geom.Unit(r3.Sub(c.body.Position, c.signals.HeadPosition))
	forward := c.signals.HeadForward
	if geom.IsZero(forward) {
		forward = geom.Forward
	}
	return r3.Dot(geom.Unit(forward), dir) >= c.tuning.ViewDotThreshold
}

func (c *Controller) chooseWanderTarget() {
	cone := Cone{
		Origin:     r3.Add(c.signals.HeadPosition, r3.Scale(c.tuning.HeightAboveAnchor, geom.Up)),
		Forward:    c.signals.HeadForward,
		MinDist:    c.tuning.MinWanderDist,
		MaxDist:    c.tuning.MaxWanderDist,
		Angle:      c.tuning.WanderConeAngle,
		Resolution: c.tuning.WanderConeResolution,
		Radius:     c.body.Radius,
	}
	p, ok := c.sampler.Sample(cone, c.body.Position, c.tuning.MinWanderSeparation)
	c.target = WanderTarget{Position: p}
	c.needTarget = !ok
	c.resamples++
	if !ok {
		c.logger.Debug("no free wander point, retrying next tick", "position", p)
	}
}

func (c *Controller) randomWait() time.Duration {
	lo, hi := c.tuning.MinWanderWait, c.tuning.MaxWanderWait
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(c.rng.Int64N(int64(hi-lo)+1))
}

func (c *Controller) onCollision() {
	c.collisions++
	c.emit.Emit(behavior.Event{Kind: behavior.KindCollision, At: c.now, Position: c.body.Position})
	if c.state == behavior.Wander {
		c.chooseWanderTarget()
	}
}
