// Package config provides configuration helpers for go-companion commands.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// ParseEnv overlays COMPANION_* environment variables onto target.
// Fields whose variable is unset keep the value already in target, so callers
// pass a struct pre-filled with defaults.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}
