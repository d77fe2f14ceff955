// Package debug provides global debug logging flags
package debug

import (
	"fmt"

	"github.com/teslashibe/go-companion/internal/log"
)

// Enabled controls whether debug logging is active
var Enabled bool

// Sensors controls per-tick sensor logs (raw confidences, smoothed hand, gaze).
// Use --debug-sensors to enable these very verbose logs
var Sensors bool

// Log prints a message only if debug mode is enabled
func Log(format string, args ...any) {
	if Enabled {
		fmt.Printf(format, args...)
	}
}

// SensorLog emits a structured per-tick sensor line when Sensors is set.
func SensorLog(msg string, args ...any) {
	if Sensors {
		log.L().Info(msg, args...)
	}
}
