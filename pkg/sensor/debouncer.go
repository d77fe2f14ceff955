package sensor

import (
	"log/slog"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/teslashibe/go-companion/internal/log"
	"github.com/teslashibe/go-companion/pkg/behavior"
	"github.com/teslashibe/go-companion/pkg/debug"
	"github.com/teslashibe/go-companion/pkg/geom"
)

// Signals is the debounced view of the sensors after a tick.
type Signals struct {
	EyesClosed   bool    `json:"eyes_closed"`
	ClosedDwell  float64 `json:"closed_progress"`
	HandPresent  bool    `json:"hand_present"`
	HandPosition r3.Vec  `json:"hand_position"`
	GazeEntity   string  `json:"gaze_entity,omitempty"`
	HeadPosition r3.Vec  `json:"head_position"`
	HeadForward  r3.Vec  `json:"head_forward"`
	Enabled      bool    `json:"enabled"`
}

// Debouncer converts raw samples into Signals and edge events.
//
// Eyes closed needs a dwell and releases immediately. Hands have no dwell;
// the movement controller applies its own loss grace on top. Blinks fire once
// per contiguous blinking interval. Blink and gaze events are suppressed while
// the eyes are closed.
type Debouncer struct {
	cfg     Config
	emit    behavior.Emitter
	logger  *slog.Logger
	enabled bool
	now     time.Duration

	eyesClosed  Signal
	insideBlink bool
	gaze        string

	handPresent bool
	handPos     r3.Vec

	last Sample
}

// NewDebouncer creates a debouncer publishing edges to emit. emit and logger
// may be nil.
func NewDebouncer(cfg Config, emit behavior.Emitter, logger *slog.Logger) *Debouncer {
	if emit == nil {
		emit = behavior.Discard
	}
	return &Debouncer{
		cfg:        cfg,
		emit:       emit,
		logger:     log.Or(logger).With("component", "sensor"),
		enabled:    true,
		eyesClosed: NewSignal(cfg.ClosedDwell, 0),
	}
}

// SetEnabled turns input processing on or off. While disabled every tick
// sees the inactive sample, so held signals release and their exit events
// fire on the next Update.
func (d *Debouncer) SetEnabled(enabled bool) {
	if d.enabled == enabled {
		return
	}
	d.enabled = enabled
	d.logger.Info("sensor input toggled", "enabled", enabled)
}

// Enabled reports whether input is processed.
func (d *Debouncer) Enabled() bool { return d.enabled }

// Update processes one tick. When ok is false (no sample this tick) or the
// debouncer is disabled the inactive sample is used instead.
func (d *Debouncer) Update(s Sample, ok bool, dt time.Duration) Signals {
	d.now += dt
	if !ok || !d.enabled {
		s = Inactive(d.last)
	}
	d.last = s

	d.updateEyes(s, dt)
	d.updateBlink(s)
	d.updateGaze(s)
	d.updateHand(s)

	debug.SensorLog("sensor tick",
		"left_eye", s.LeftEyeConfidence,
		"right_eye", s.RightEyeConfidence,
		"left_hand", s.LeftHandConfidence,
		"right_hand", s.RightHandConfidence,
		"gaze", s.GazeHitEntity,
		"eyes_closed", d.eyesClosed.Value(),
		"hand", d.handPresent)

	return d.Signals()
}

// Signals returns the current debounced state.
func (d *Debouncer) Signals() Signals {
	return Signals{
		EyesClosed:   d.eyesClosed.Value(),
		ClosedDwell:  d.eyesClosed.Progress(),
		HandPresent:  d.handPresent,
		HandPosition: d.handPos,
		GazeEntity:   d.gaze,
		HeadPosition: d.last.HeadPosition,
		HeadForward:  d.last.Forward(),
		Enabled:      d.enabled,
	}
}

func (d *Debouncer) updateEyes(s Sample, dt time.Duration) {
	closed := s.LeftEyeConfidence == 0 && s.RightEyeConfidence == 0
	if !d.eyesClosed.Update(closed, dt) {
		return
	}
	if d.eyesClosed.Value() {
		d.logger.Debug("eyes closed")
		d.emit.Emit(behavior.Event{Kind: behavior.KindEyesClosed, At: d.now})
	} else {
		d.logger.Debug("eyes opened")
		d.emit.Emit(behavior.Event{Kind: behavior.KindEyesOpened, At: d.now})
	}
}

func (d *Debouncer) updateBlink(s Sample) {
	if !s.BothEyesBlinking {
		d.insideBlink = false
		return
	}
	if d.insideBlink {
		return
	}
	// The interval counts as seen even when suppressed, so reopening the
	// eyes mid-blink does not produce a late blink.
	d.insideBlink = true
	if d.eyesClosed.Value() {
		return
	}
	d.emit.Emit(behavior.Event{Kind: behavior.KindBlink, At: d.now})
}

func (d *Debouncer) updateGaze(s Sample) {
	if s.GazeHitEntity == d.gaze {
		return
	}
	old := d.gaze
	d.gaze = s.GazeHitEntity
	if d.eyesClosed.Value() {
		return
	}
	if old != "" {
		d.emit.Emit(behavior.Event{Kind: behavior.KindGazeExit, At: d.now, Entity: old})
	}
	if d.gaze != "" {
		d.emit.Emit(behavior.Event{Kind: behavior.KindGazeEnter, At: d.now, Entity: d.gaze})
	}
}

func (d *Debouncer) updateHand(s Sample) {
	var (
		raw      r3.Vec
		detected bool
	)
	switch {
	case s.LeftHandConfidence >= d.cfg.HandConfidence:
		raw, detected = s.LeftHandCenter, true
	case s.RightHandConfidence >= d.cfg.HandConfidence:
		raw, detected = s.RightHandCenter, true
	}

	if !detected {
		if d.handPresent {
			d.handPresent = false
			d.emit.Emit(behavior.Event{Kind: behavior.KindHandLost, At: d.now, Position: d.handPos})
		}
		return
	}

	if d.handPresent {
		d.handPos = geom.Lerp(d.handPos, raw, d.cfg.HandSmoothing)
		return
	}
	d.handPresent = true
	d.handPos = raw
	d.emit.Emit(behavior.Event{Kind: behavior.KindHandAcquired, At: d.now, Position: raw})
}
