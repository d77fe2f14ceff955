// Package feedback turns behaviour events into audio and animation commands
// with delays, fades and looping accents.
package feedback

import (
	"errors"
	"log/slog"
	"time"

	"github.com/teslashibe/go-companion/internal/log"
)

// ErrOutputUnavailable is returned by outputs that have no renderer attached.
var ErrOutputUnavailable = errors.New("feedback: output unavailable")

// Audio plays named sound events on named channels.
type Audio interface {
	PlayEvent(name string) error
	PlayAndFadeIn(name string, d time.Duration, channel string) error
	FadeOut(channel string, d time.Duration, stopAfter bool) error
	FadeIn(channel string, d time.Duration) error
}

// Animator sets parameters on the companion's animation graph.
type Animator interface {
	SetBool(name string, v bool) error
	SetFloat(name string, v float64) error
}

// LogOutput is an Audio and Animator that only logs. It stands in when no
// renderer is attached.
type LogOutput struct {
	logger *slog.Logger
}

// NewLogOutput creates a logging output.
func NewLogOutput(logger *slog.Logger) *LogOutput {
	return &LogOutput{logger: log.Or(logger).With("component", "feedback-output")}
}

func (o *LogOutput) PlayEvent(name string) error {
	o.logger.Debug("play event", "event", name)
	return nil
}

func (o *LogOutput) PlayAndFadeIn(name string, d time.Duration, channel string) error {
	o.logger.Debug("play and fade in", "event", name, "channel", channel, "duration", d)
	return nil
}

func (o *LogOutput) FadeOut(channel string, d time.Duration, stopAfter bool) error {
	o.logger.Debug("fade out", "channel", channel, "duration", d, "stop_after", stopAfter)
	return nil
}

func (o *LogOutput) FadeIn(channel string, d time.Duration) error {
	o.logger.Debug("fade in", "channel", channel, "duration", d)
	return nil
}

func (o *LogOutput) SetBool(name string, v bool) error {
	o.logger.Debug("set bool", "param", name, "value", v)
	return nil
}

func (o *LogOutput) SetFloat(name string, v float64) error {
	o.logger.Debug("set float", "param", name, "value", v)
	return nil
}
