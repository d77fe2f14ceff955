package sensor

import (
	"time"

	"github.com/teslashibe/go-companion/internal/config"
)

// Config controls debouncing thresholds.
type Config struct {
	// HandConfidence is the per-frame confidence a hand needs to count as detected.
	HandConfidence float64 `env:"COMPANION_HAND_CONFIDENCE" json:"hand_confidence"`

	// ClosedDwell is how long both eyes must read zero before EyesClosed.
	ClosedDwell time.Duration `env:"COMPANION_EYES_CLOSED_DWELL" json:"closed_dwell"`

	// HandSmoothing is the lerp factor applied to the hand position each tick.
	HandSmoothing float64 `env:"COMPANION_HAND_SMOOTHING" json:"hand_smoothing"`
}

// DefaultConfig returns the stock thresholds.
func DefaultConfig() Config {
	return Config{
		HandConfidence: 0.9,
		ClosedDwell:    time.Second,
		HandSmoothing:  0.5,
	}
}

// LoadConfig returns DefaultConfig with environment overrides applied.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()
	if err := config.ParseEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// Validate checks the thresholds are in range.
func (c Config) Validate() error {
	if c.HandConfidence <= 0 || c.HandConfidence > 1 {
		return &config.ConfigError{Field: "HandConfidence", Message: "must be in (0, 1]"}
	}
	if c.ClosedDwell < 0 {
		return &config.ConfigError{Field: "ClosedDwell", Message: "must not be negative"}
	}
	if c.HandSmoothing <= 0 || c.HandSmoothing > 1 {
		return &config.ConfigError{Field: "HandSmoothing", Message: "must be in (0, 1]"}
	}
	return nil
}
