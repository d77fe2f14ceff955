package companion

import (
	"fmt"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/teslashibe/go-companion/internal/config"
	"github.com/teslashibe/go-companion/pkg/feedback"
	"github.com/teslashibe/go-companion/pkg/movement"
	"github.com/teslashibe/go-companion/pkg/sensor"
)

// Config holds everything the App needs besides its collaborators.
type Config struct {
	// Logic tick period for Run
	FrameInterval time.Duration `json:"frame_interval"`

	// Fixed physics step; the logic tick accumulates into it
	PhysicsStep time.Duration `json:"physics_step"`

	// A longer wall-clock gap between frames is clamped to this
	MaxFrameDelta time.Duration `json:"max_frame_delta"`

	// Physics steps run per frame at most; the remainder is dropped
	MaxPhysicsSteps int `json:"max_physics_steps"`

	Sensor   sensor.Config   `json:"sensor"`
	Tuning   movement.Tuning `json:"tuning"`
	Feedback feedback.Config `json:"feedback"`

	// Where the body appears when no hand is present at Start
	Spawn r3.Vec `json:"spawn"`

	// Seeds the sampler and accent randomness; 0 picks a random seed
	Seed uint64 `json:"seed"`
}

// DefaultConfig returns a 60 Hz logic tick over a 50 Hz physics step.
func DefaultConfig() Config {
	return Config{
		FrameInterval:   16 * time.Millisecond,
		PhysicsStep:     20 * time.Millisecond,
		MaxFrameDelta:   100 * time.Millisecond,
		MaxPhysicsSteps: 8,
		Sensor:          sensor.DefaultConfig(),
		Tuning:          movement.DefaultTuning(),
		Feedback:        feedback.DefaultConfig(),
		Spawn:           r3.Vec{X: 0, Y: 1.5, Z: 1},
	}
}

// Validate checks the timing fields and every nested config.
func (c Config) Validate() error {
	if c.FrameInterval <= 0 {
		return &config.ConfigError{Field: "FrameInterval", Message: "must be positive"}
	}
	if c.PhysicsStep <= 0 {
		return &config.ConfigError{Field: "PhysicsStep", Message: "must be positive"}
	}
	if c.MaxFrameDelta < c.FrameInterval {
		return &config.ConfigError{Field: "MaxFrameDelta", Message: "must be at least FrameInterval"}
	}
	if c.MaxPhysicsSteps < 1 {
		return &config.ConfigError{Field: "MaxPhysicsSteps", Message: "must be at least 1"}
	}
	if err := c.Sensor.Validate(); err != nil {
		return fmt.Errorf("sensor: %w", err)
	}
	if err := c.Tuning.Validate(); err != nil {
		return fmt.Errorf("tuning: %w", err)
	}
	if err := c.Feedback.Validate(); err != nil {
		return fmt.Errorf("feedback: %w", err)
	}
	return nil
}
