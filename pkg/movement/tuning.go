// Package movement drives the companion's body through three behaviours:
// wandering between sampled points, following the user's hand, and orbiting
// the user's head while their eyes are closed.
//
// The controller has a logic tick (Update, once per frame) that evaluates
// transitions, and a physics tick (FixedUpdate, fixed rate) that steers and
// integrates the body.
package movement

import (
	"time"

	"github.com/teslashibe/go-companion/internal/config"
)

// Tuning holds every movement constant. Distances are metres, speeds are
// metres per second, rates are degrees per second, angles are degrees.
type Tuning struct {
	// Steering speed per state
	MoveSpeedOrbit  float64 `json:"move_speed_orbit" env:"COMPANION_MOVE_SPEED_ORBIT"`
	MoveSpeedHand   float64 `json:"move_speed_hand" env:"COMPANION_MOVE_SPEED_HAND"`
	MoveSpeedWander float64 `json:"move_speed_wander" env:"COMPANION_MOVE_SPEED_WANDER"`

	// Velocity caps per state
	MaxWanderSpeed float64 `json:"max_wander_speed" env:"COMPANION_MAX_WANDER_SPEED"`
	MaxOrbitSpeed  float64 `json:"max_orbit_speed" env:"COMPANION_MAX_ORBIT_SPEED"`
	MaxHandSpeed   float64 `json:"max_hand_speed" env:"COMPANION_MAX_HAND_SPEED"`

	// Orbit
	OrbitRate         float64 `json:"orbit_rate" env:"COMPANION_ORBIT_RATE"`
	OrbitRateEyesOpen float64 `json:"orbit_rate_eyes_open" env:"COMPANION_ORBIT_RATE_EYES_OPEN"`
	OrbitRadius       float64 `json:"orbit_radius" env:"COMPANION_ORBIT_RADIUS"`
	OrbitDeadzone     float64 `json:"orbit_deadzone" env:"COMPANION_ORBIT_DEADZONE"`
	ViewDotThreshold  float64 `json:"view_dot_threshold" env:"COMPANION_VIEW_DOT_THRESHOLD"`

	// Steering
	OpposingForceMult float64 `json:"opposing_force_mult" env:"COMPANION_OPPOSING_FORCE_MULT"`
	StopDistance      float64 `json:"stop_distance" env:"COMPANION_STOP_DISTANCE"`

	// Wander
	HeightAboveAnchor    float64       `json:"height_above_anchor" env:"COMPANION_HEIGHT_ABOVE_ANCHOR"`
	WanderDeadzone       float64       `json:"wander_deadzone" env:"COMPANION_WANDER_DEADZONE"`
	MinWanderWait        time.Duration `json:"min_wander_wait" env:"COMPANION_MIN_WANDER_WAIT"`
	MaxWanderWait        time.Duration `json:"max_wander_wait" env:"COMPANION_MAX_WANDER_WAIT"`
	MinWanderDist        float64       `json:"min_wander_dist" env:"COMPANION_MIN_WANDER_DIST"`
	MaxWanderDist        float64       `json:"max_wander_dist" env:"COMPANION_MAX_WANDER_DIST"`
	WanderConeAngle      float64       `json:"wander_cone_angle" env:"COMPANION_WANDER_CONE_ANGLE"`
	WanderConeResolution int           `json:"wander_cone_resolution" env:"COMPANION_WANDER_CONE_RESOLUTION"`
	MinWanderSeparation  float64       `json:"min_wander_separation" env:"COMPANION_MIN_WANDER_SEPARATION"`

	// Hand
	HandLossGrace   time.Duration `json:"hand_loss_grace" env:"COMPANION_HAND_LOSS_GRACE"`
	HandHoverOffset float64       `json:"hand_hover_offset" env:"COMPANION_HAND_HOVER_OFFSET"`

	// Body
	BodyMass   float64 `json:"body_mass" env:"COMPANION_BODY_MASS"`
	BodyRadius float64 `json:"body_radius" env:"COMPANION_BODY_RADIUS"`
}

// DefaultTuning returns the stock behaviour.
func DefaultTuning() Tuning {
	return Tuning{
		MoveSpeedOrbit:  0.05,
		MoveSpeedHand:   0.3,
		MoveSpeedWander: 0.03,

		MaxWanderSpeed: 0.1,
		MaxOrbitSpeed:  0.1,
		MaxHandSpeed:   0.4,

		OrbitRate:         90,
		OrbitRateEyesOpen: 90,
		OrbitRadius:       0.5,
		OrbitDeadzone:     0.1,
		ViewDotThreshold:  0.85,

		OpposingForceMult: 10,
		StopDistance:      0.05,

		HeightAboveAnchor:    0.6,
		WanderDeadzone:       0.1,
		MinWanderWait:        time.Second,
		MaxWanderWait:        5 * time.Second,
		MinWanderDist:        0.5,
		MaxWanderDist:        2,
		WanderConeAngle:      60,
		WanderConeResolution: 15,
		MinWanderSeparation:  0.2,

		HandLossGrace:   330 * time.Millisecond,
		HandHoverOffset: 0.1,

		BodyMass:   1,
		BodyRadius: 0.1,
	}
}

// CalmTuning drifts slower and lingers longer at each wander point.
func CalmTuning() Tuning {
	t := DefaultTuning()
	t.MoveSpeedWander = 0.02
	t.MaxWanderSpeed = 0.06
	t.MaxHandSpeed = 0.25
	t.OrbitRate = 45
	t.OrbitRateEyesOpen = 45
	t.MinWanderWait = 3 * time.Second
	t.MaxWanderWait = 8 * time.Second
	return t
}

// PlayfulTuning reacts faster and speeds up the orbit once the eyes open so
// the companion hurries back into view.
func PlayfulTuning() Tuning {
	t := DefaultTuning()
	t.MoveSpeedWander = 0.06
	t.MaxWanderSpeed = 0.2
	t.MoveSpeedHand = 0.5
	t.MaxHandSpeed = 0.6
	t.OrbitRate = 120
	t.OrbitRateEyesOpen = 240
	t.MinWanderWait = 500 * time.Millisecond
	t.MaxWanderWait = 2 * time.Second
	return t
}

// PresetTuning returns a named preset, or false for an unknown name.
func PresetTuning(name string) (Tuning, bool) {
	switch name {
	case "", "default":
		return DefaultTuning(), true
	case "calm":
		return CalmTuning(), true
	case "playful":
		return PlayfulTuning(), true
	}
	return Tuning{}, false
}

// LoadTuning applies COMPANION_* environment overrides to base.
func LoadTuning(base Tuning) (Tuning, error) {
	if err := config.ParseEnv(&base); err != nil {
		return base, err
	}
	return base, base.Validate()
}

// Validate checks the tuning is physically meaningful.
func (t Tuning) Validate() error {
	positive := []struct {
		field string
		v     float64
	}{
		{"MoveSpeedOrbit", t.MoveSpeedOrbit},
		{"MoveSpeedHand", t.MoveSpeedHand},
		{"MoveSpeedWander", t.MoveSpeedWander},
		{"MaxWanderSpeed", t.MaxWanderSpeed},
		{"MaxOrbitSpeed", t.MaxOrbitSpeed},
		{"MaxHandSpeed", t.MaxHandSpeed},
		{"OrbitRadius", t.OrbitRadius},
		{"StopDistance", t.StopDistance},
		{"MaxWanderDist", t.MaxWanderDist},
		{"BodyMass", t.BodyMass},
	}
	for _, p := range positive {
		if p.v <= 0 {
			return &config.ConfigError{Field: p.field, Message: "must be positive"}
		}
	}
	if t.MinWanderDist < 0 || t.MinWanderDist > t.MaxWanderDist {
		return &config.ConfigError{Field: "MinWanderDist", Message: "must be in [0, MaxWanderDist]"}
	}
	if t.MinWanderWait < 0 || t.MinWanderWait > t.MaxWanderWait {
		return &config.ConfigError{Field: "MinWanderWait", Message: "must be in [0, MaxWanderWait]"}
	}
	if t.WanderConeResolution < 1 {
		return &config.ConfigError{Field: "WanderConeResolution", Message: "must be at least 1"}
	}
	if t.ViewDotThreshold < -1 || t.ViewDotThreshold > 1 {
		return &config.ConfigError{Field: "ViewDotThreshold", Message: "must be in [-1, 1]"}
	}
	if t.BodyRadius < 0 || t.HandLossGrace < 0 {
		return &config.ConfigError{Field: "BodyRadius", Message: "must not be negative"}
	}
	return nil
}

// Merge returns t with every non-zero field of update applied.
func (t Tuning) Merge(update Tuning) Tuning {
	setF := func(dst *float64, v float64) {
		if v != 0 {
			*dst = v
		}
	}
	setD := func(dst *time.Duration, v time.Duration) {
		if v != 0 {
			*dst = v
		}
	}

	setF(&t.MoveSpeedOrbit, update.MoveSpeedOrbit)
	setF(&t.MoveSpeedHand, update.MoveSpeedHand)
	setF(&t.MoveSpeedWander, update.MoveSpeedWander)
	setF(&t.MaxWanderSpeed, update.MaxWanderSpeed)
	setF(&t.MaxOrbitSpeed, update.MaxOrbitSpeed)
	setF(&t.MaxHandSpeed, update.MaxHandSpeed)
	setF(&t.OrbitRate, update.OrbitRate)
	setF(&t.OrbitRateEyesOpen, update.OrbitRateEyesOpen)
	setF(&t.OrbitRadius, update.OrbitRadius)
	setF(&t.OrbitDeadzone, update.OrbitDeadzone)
	setF(&t.ViewDotThreshold, update.ViewDotThreshold)
	setF(&t.OpposingForceMult, update.OpposingForceMult)
	setF(&t.StopDistance, update.StopDistance)
	setF(&t.HeightAboveAnchor, update.HeightAboveAnchor)
	setF(&t.WanderDeadzone, update.WanderDeadzone)
	setD(&t.MinWanderWait, update.MinWanderWait)
	setD(&t.MaxWanderWait, update.MaxWanderWait)
	setF(&t.MinWanderDist, update.MinWanderDist)
	setF(&t.MaxWanderDist, update.MaxWanderDist)
	setF(&t.WanderConeAngle, update.WanderConeAngle)
	if update.WanderConeResolution != 0 {
		t.WanderConeResolution = update.WanderConeResolution
	}
	setF(&t.MinWanderSeparation, update.MinWanderSeparation)
	setD(&t.HandLossGrace, update.HandLossGrace)
	setF(&t.HandHoverOffset, update.HandHoverOffset)
	setF(&t.BodyMass, update.BodyMass)
	setF(&t.BodyRadius, update.BodyRadius)
	return t
}
