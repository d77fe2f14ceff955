package feedback

import (
	"time"

	"github.com/teslashibe/go-companion/internal/config"
)

// Sound event names.
const (
	EventSpawn         = "spawn"
	EventAmbient       = "ambient"
	EventOrbit         = "orbit"
	EventOrbitAmbience = "orbit_ambience"
	EventOrbitAccent   = "orbit_accent"
	EventOrbitStart    = "orbit_start"
	EventRain          = "rain"
	EventThunder       = "thunder"
	EventHand          = "hand"
)

// Audio channel names. Each looping sound owns one channel.
const (
	ChannelAmbient       = "ambient"
	ChannelHand          = "hand"
	ChannelRain          = "rain"
	ChannelOrbit         = "orbit"
	ChannelOrbitAmbience = "orbit_ambience"
)

// Animation parameters.
const (
	ParamActive    = "active"
	ParamFollowing = "following"
	ParamOrbiting  = "orbiting"
)

// Config holds the choreography timings.
type Config struct {
	// EntityID is the companion's own id in gaze hits.
	EntityID string `env:"COMPANION_ENTITY_ID" json:"entity_id"`

	HandSoundDelay time.Duration `env:"COMPANION_HAND_SOUND_DELAY" json:"hand_sound_delay"`
	PadFadeIn      time.Duration `env:"COMPANION_PAD_FADE_IN" json:"pad_fade_in"`
	PadFadeOut     time.Duration `env:"COMPANION_PAD_FADE_OUT" json:"pad_fade_out"`

	RainDelay   time.Duration `env:"COMPANION_RAIN_DELAY" json:"rain_delay"`
	RainFadeIn  time.Duration `env:"COMPANION_RAIN_FADE_IN" json:"rain_fade_in"`
	RainFadeOut time.Duration `env:"COMPANION_RAIN_FADE_OUT" json:"rain_fade_out"`

	OrbitDelay   time.Duration `env:"COMPANION_ORBIT_DELAY" json:"orbit_delay"`
	OrbitFadeIn  time.Duration `env:"COMPANION_ORBIT_FADE_IN" json:"orbit_fade_in"`
	OrbitFadeOut time.Duration `env:"COMPANION_ORBIT_FADE_OUT" json:"orbit_fade_out"`

	AccentDelay       time.Duration `env:"COMPANION_ACCENT_DELAY" json:"accent_delay"`
	AccentVariance    time.Duration `env:"COMPANION_ACCENT_VARIANCE" json:"accent_variance"`
	MinAccentInterval time.Duration `env:"COMPANION_MIN_ACCENT_INTERVAL" json:"min_accent_interval"`

	// Palette is cycled on every thunder clap.
	Palette []StormColor `json:"palette"`
}

// DefaultConfig returns the stock choreography.
func DefaultConfig() Config {
	return Config{
		EntityID:          "companion",
		HandSoundDelay:    time.Second,
		PadFadeIn:         500 * time.Millisecond,
		PadFadeOut:        1500 * time.Millisecond,
		RainDelay:         500 * time.Millisecond,
		RainFadeIn:        2 * time.Second,
		RainFadeOut:       2 * time.Second,
		OrbitDelay:        3 * time.Second,
		OrbitFadeIn:       2 * time.Second,
		OrbitFadeOut:      2 * time.Second,
		AccentDelay:       2 * time.Second,
		AccentVariance:    2 * time.Second,
		MinAccentInterval: 50 * time.Millisecond,
		Palette:           DefaultPalette(),
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

// Validate checks the timings.
func (c Config) Validate() error {
	if c.EntityID == "" {
		return &config.ConfigError{Field: "EntityID", Message: "is required"}
	}
	if c.MinAccentInterval <= 0 {
		return &config.ConfigError{Field: "MinAccentInterval", Message: "must be positive"}
	}
	if c.AccentVariance < 0 {
		return &config.ConfigError{Field: "AccentVariance", Message: "must not be negative"}
	}
	for _, d := range []time.Duration{c.HandSoundDelay, c.RainDelay, c.OrbitDelay, c.AccentDelay} {
		if d < 0 {
			return &config.ConfigError{Field: "Delay", Message: "delays must not be negative"}
		}
	}
	return nil
}
