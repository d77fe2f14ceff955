package protocol

import (
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/teslashibe/go-companion/pkg/behavior"
	"github.com/teslashibe/go-companion/pkg/sensor"
)

// =============================================================================
// Conversions
// =============================================================================

// VecOf converts an r3 vector
func VecOf(v r3.Vec) Vec3 { return Vec3{v.X, v.Y, v.Z} }

// R3 converts back to an r3 vector
func (v Vec3) R3() r3.Vec { return r3.Vec{X: v[0], Y: v[1], Z: v[2]} }

// SampleDataFrom encodes a sensor sample
func SampleDataFrom(s sensor.Sample) SampleData {
	return SampleData{
		LeftEye:   s.LeftEyeConfidence,
		RightEye:  s.RightEyeConfidence,
		Blinking:  s.BothEyesBlinking,
		LeftHand:  HandData{Confidence: s.LeftHandConfidence, Center: VecOf(s.LeftHandCenter)},
		RightHand: HandData{Confidence: s.RightHandConfidence, Center: VecOf(s.RightHandCenter)},
		Gaze:      s.GazeHitEntity,
		Head:      &HeadData{Position: VecOf(s.HeadPosition), Forward: VecOf(s.HeadForward)},
	}
}

// Sample decodes into a sensor sample. A missing head pose leaves the
// anchor at the origin facing +Z.
func (d SampleData) Sample() sensor.Sample {
	s := sensor.Sample{
		LeftEyeConfidence:   d.LeftEye,
		RightEyeConfidence:  d.RightEye,
		BothEyesBlinking:    d.Blinking,
		LeftHandConfidence:  d.LeftHand.Confidence,
		RightHandConfidence: d.RightHand.Confidence,
		LeftHandCenter:      d.LeftHand.Center.R3(),
		RightHandCenter:     d.RightHand.Center.R3(),
		GazeHitEntity:       d.Gaze,
	}
	if d.Head != nil {
		s.HeadPosition = d.Head.Position.R3()
		s.HeadForward = d.Head.Forward.R3()
	}
	return s
}

// EventDataFrom encodes a behaviour event
func EventDataFrom(ev behavior.Event) EventData {
	d := EventData{
		ID:     ev.ID.String(),
		Kind:   string(ev.Kind),
		AtMs:   float64(ev.At) / float64(time.Millisecond),
		Active: ev.Active,
		Entity: ev.Entity,
	}
	switch ev.Kind {
	case behavior.KindStateChanged:
		d.From = ev.From.String()
		d.To = ev.To.String()
	case behavior.KindHandAcquired, behavior.KindHandLost, behavior.KindCollision:
		p := VecOf(ev.Position)
		d.Position = &p
	}
	return d
}

// =============================================================================
// Helper functions for creating messages
// =============================================================================

// NewSampleMessage creates a sample message
func NewSampleMessage(s sensor.Sample, seq uint64) (*Message, error) {
	d := SampleDataFrom(s)
	d.Seq = seq
	return NewMessage(TypeSample, d)
}

// NewEventMessage creates a behaviour event message
func NewEventMessage(ev behavior.Event) (*Message, error) {
	return NewMessage(TypeEvent, EventDataFrom(ev))
}

// NewFeedbackMessage creates a feedback command message
func NewFeedbackMessage(f FeedbackData) (*Message, error) {
	return NewMessage(TypeFeedback, f)
}

// NewAnimStateMessage creates an anim state report
func NewAnimStateMessage(state string) (*Message, error) {
	return NewMessage(TypeAnimState, AnimStateData{State: state})
}

// NewStatusMessage wraps any status snapshot
func NewStatusMessage(status any) (*Message, error) {
	return NewMessage(TypeStatus, status)
}

// NewPingMessage creates a ping message
func NewPingMessage(id string) (*Message, error) {
	return NewMessage(TypePing, PingData{
		ID:        id,
		Timestamp: time.Now().UnixMilli(),
	})
}

// NewPongMessage creates a pong response message
func NewPongMessage(id string, pingTS, pongTS int64) (*Message, error) {
	return NewMessage(TypePong, PongData{
		ID:        id,
		PingTS:    pingTS,
		PongTS:    pongTS,
		LatencyMs: pongTS - pingTS,
	})
}

// =============================================================================
// Helper functions for parsing messages
// =============================================================================

// GetSampleData extracts sample data from a message
func (m *Message) GetSampleData() (*SampleData, error) {
	var data SampleData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetEventData extracts event data from a message
func (m *Message) GetEventData() (*EventData, error) {
	var data EventData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetFeedbackData extracts feedback data from a message
func (m *Message) GetFeedbackData() (*FeedbackData, error) {
	var data FeedbackData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetAnimStateData extracts anim state data from a message
func (m *Message) GetAnimStateData() (*AnimStateData, error) {
	var data AnimStateData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPingData extracts ping data from a message
func (m *Message) GetPingData() (*PingData, error) {
	var data PingData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPongData extracts pong data from a message
func (m *Message) GetPongData() (*PongData, error) {
	var data PongData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}
