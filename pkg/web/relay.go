package web

import (
	"time"

	"github.com/teslashibe/go-companion/pkg/feedback"
	"github.com/teslashibe/go-companion/pkg/hub"
	"github.com/teslashibe/go-companion/pkg/protocol"
)

// FeedbackRelay forwards audio and animation commands to every renderer
// connected to /ws/feedback. It implements feedback.Audio and
// feedback.Animator.
type FeedbackRelay struct {
	hub *hub.Hub
}

// NewFeedbackRelay creates a relay broadcasting through h.
func NewFeedbackRelay(h *hub.Hub) *FeedbackRelay {
	return &FeedbackRelay{hub: h}
}

func (r *FeedbackRelay) send(f protocol.FeedbackData) error {
	if !r.hub.IsRunning() {
		return feedback.ErrOutputUnavailable
	}
	msg, err := protocol.NewFeedbackMessage(f)
	if err != nil {
		return err
	}
	return r.hub.BroadcastMessage(msg)
}

func ms(d time.Duration) int64 { return d.Milliseconds() }

func (r *FeedbackRelay) PlayEvent(name string) error {
	return r.send(protocol.FeedbackData{Op: protocol.OpPlayEvent, Name: name})
}

func (r *FeedbackRelay) PlayAndFadeIn(name string, d time.Duration, channel string) error {
	return r.send(protocol.FeedbackData{Op: protocol.OpPlayAndFadeIn, Name: name, Channel: channel, DurationMs: ms(d)})
}

func (r *FeedbackRelay) FadeOut(channel string, d time.Duration, stopAfter bool) error {
	return r.send(protocol.FeedbackData{Op: protocol.OpFadeOut, Channel: channel, DurationMs: ms(d), StopAfter: stopAfter})
}

func (r *FeedbackRelay) FadeIn(channel string, d time.Duration) error {
	return r.send(protocol.FeedbackData{Op: protocol.OpFadeIn, Channel: channel, DurationMs: ms(d)})
}

func (r *FeedbackRelay) SetBool(name string, v bool) error {
	return r.send(protocol.FeedbackData{Op: protocol.OpSetBool, Name: name, Bool: v})
}

func (r *FeedbackRelay) SetFloat(name string, v float64) error {
	return r.send(protocol.FeedbackData{Op: protocol.OpSetFloat, Name: name, Float: v})
}
