package config

import (
	"time"
)

// Daemon holds process-level settings for cmd/companion.
type Daemon struct {
	Addr          string        `env:"COMPANION_ADDR"`
	LogLevel      string        `env:"COMPANION_LOG_LEVEL"`
	SensorURL     string        `env:"COMPANION_SENSOR_URL"`
	Dashboard     bool          `env:"COMPANION_DASHBOARD"`
	FrameInterval time.Duration `env:"COMPANION_FRAME_INTERVAL"`
	PhysicsStep   time.Duration `env:"COMPANION_PHYSICS_STEP"`
	SampleTTL     time.Duration `env:"COMPANION_SAMPLE_TTL"`
	Preset        string        `env:"COMPANION_PRESET"`
	Seed          uint64        `env:"COMPANION_SEED"`
	TuningFile    string        `env:"COMPANION_TUNING_FILE"`
}

// DefaultDaemon returns the settings used when nothing is overridden.
func DefaultDaemon() Daemon {
	return Daemon{
		Addr:          ":8090",
		LogLevel:      "info",
		Dashboard:     true,
		FrameInterval: 16 * time.Millisecond,
		PhysicsStep:   20 * time.Millisecond,
		SampleTTL:     500 * time.Millisecond,
		Preset:        "default",
	}
}

// LoadDaemon returns the defaults with environment overrides applied.
func LoadDaemon() (Daemon, error) {
	cfg := DefaultDaemon()
	if err := ParseEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the settings are usable.
func (d Daemon) Validate() error {
	if d.Addr == "" {
		return &ConfigError{Field: "Addr", Message: "listen address is required"}
	}
	if d.FrameInterval <= 0 {
		return &ConfigError{Field: "FrameInterval", Message: "must be positive"}
	}
	if d.PhysicsStep <= 0 {
		return &ConfigError{Field: "PhysicsStep", Message: "must be positive"}
	}
	if d.SampleTTL <= 0 {
		return &ConfigError{Field: "SampleTTL", Message: "must be positive"}
	}
	switch d.Preset {
	case "default", "calm", "playful":
	default:
		return &ConfigError{Field: "Preset", Message: "unknown preset " + d.Preset}
	}
	return nil
}
