package protocol

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/teslashibe/go-companion/pkg/behavior"
	"github.com/teslashibe/go-companion/pkg/sensor"
)

func TestNewMessage(t *testing.T) {
	tests := []struct {
		name    string
		msgType MessageType
		data    any
		wantErr bool
	}{
		{
			name:    "sample message",
			msgType: TypeSample,
			data:    SampleData{LeftEye: 1, RightEye: 1},
		},
		{
			name:    "feedback message",
			msgType: TypeFeedback,
			data:    FeedbackData{Op: OpPlayEvent, Name: "thunder"},
		},
		{
			name:    "nil data",
			msgType: TypePing,
			data:    nil,
		},
		{
			name:    "unmarshalable data",
			msgType: TypeStatus,
			data:    map[string]any{"bad": make(chan int)},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := NewMessage(tt.msgType, tt.data)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewMessage() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr {
				return
			}
			if msg.Type != tt.msgType {
				t.Errorf("NewMessage() type = %v, want %v", msg.Type, tt.msgType)
			}
			if msg.Timestamp == 0 {
				t.Error("NewMessage() timestamp should be set")
			}
		})
	}
}

func TestParseMessageErrors(t *testing.T) {
	if _, err := ParseMessage([]byte("not json")); err == nil {
		t.Error("ParseMessage() should fail on invalid JSON")
	}
	if _, err := ParseMessage([]byte(`{"ts": 1}`)); err == nil {
		t.Error("ParseMessage() should fail without a type")
	}
}

func TestSampleMessage(t *testing.T) {
	in := sensor.Sample{
		LeftEyeConfidence:   0.8,
		RightEyeConfidence:  0.7,
		BothEyesBlinking:    true,
		LeftHandConfidence:  0.95,
		LeftHandCenter:      r3.Vec{X: 0.1, Y: 1.2, Z: 0.4},
		RightHandConfidence: 0.2,
		GazeHitEntity:       "companion",
		HeadPosition:        r3.Vec{Y: 1.6},
		HeadForward:         r3.Vec{Z: 1},
	}

	msg, err := NewSampleMessage(in, 7)
	if err != nil {
		t.Fatalf("NewSampleMessage() error = %v", err)
	}
	b, err := msg.Bytes()
	if err != nil {
		t.Fatalf("Bytes() error = %v", err)
	}
	parsed, err := ParseMessage(b)
	if err != nil {
		t.Fatalf("ParseMessage() error = %v", err)
	}
	if parsed.Type != TypeSample {
		t.Errorf("Type = %v, want %v", parsed.Type, TypeSample)
	}

	data, err := parsed.GetSampleData()
	if err != nil {
		t.Fatalf("GetSampleData() error = %v", err)
	}
	if data.Seq != 7 {
		t.Errorf("Seq = %v, want 7", data.Seq)
	}
	if out := data.Sample(); out != in {
		t.Errorf("Sample() = %+v, want %+v", out, in)
	}
}

func TestSampleWithoutHead(t *testing.T) {
	msg := &Message{Type: TypeSample, Data: []byte(`{"left_eye":1,"right_eye":1}`)}
	data, err := msg.GetSampleData()
	if err != nil {
		t.Fatalf("GetSampleData() error = %v", err)
	}
	s := data.Sample()
	if s.HeadPosition != (r3.Vec{}) {
		t.Errorf("HeadPosition = %v, want origin", s.HeadPosition)
	}
	if s.Forward() != (r3.Vec{Z: 1}) {
		t.Errorf("Forward() = %v, want +Z", s.Forward())
	}
}

func TestEventMessage(t *testing.T) {
	id := uuid.New()
	msg, err := NewEventMessage(behavior.Event{
		ID:   id,
		Kind: behavior.KindStateChanged,
		At:   1500 * time.Millisecond,
		From: behavior.Wander,
		To:   behavior.OrbitAnchor,
	})
	if err != nil {
		t.Fatalf("NewEventMessage() error = %v", err)
	}
	data, err := msg.GetEventData()
	if err != nil {
		t.Fatalf("GetEventData() error = %v", err)
	}
	if data.ID != id.String() {
		t.Errorf("ID = %v, want %v", data.ID, id)
	}
	if data.From != "wander" || data.To != "orbit_anchor" {
		t.Errorf("From/To = %v/%v, want wander/orbit_anchor", data.From, data.To)
	}
	if data.AtMs != 1500 {
		t.Errorf("AtMs = %v, want 1500", data.AtMs)
	}
	if data.Position != nil {
		t.Error("Position should be omitted for state changes")
	}

	hand := EventDataFrom(behavior.Event{Kind: behavior.KindHandAcquired, Position: r3.Vec{X: 1}})
	if hand.Position == nil || hand.Position[0] != 1 {
		t.Errorf("Position = %v, want [1 0 0]", hand.Position)
	}
}

func TestFeedbackMessage(t *testing.T) {
	msg, err := NewFeedbackMessage(FeedbackData{Op: OpFadeOut, Channel: "hand", DurationMs: 1500, StopAfter: true})
	if err != nil {
		t.Fatalf("NewFeedbackMessage() error = %v", err)
	}
	data, err := msg.GetFeedbackData()
	if err != nil {
		t.Fatalf("GetFeedbackData() error = %v", err)
	}
	if data.Duration() != 1500*time.Millisecond {
		t.Errorf("Duration() = %v, want 1.5s", data.Duration())
	}
	if !data.StopAfter {
		t.Error("StopAfter should be true")
	}
}

func TestAnimStateMessage(t *testing.T) {
	msg, err := NewAnimStateMessage("active")
	if err != nil {
		t.Fatalf("NewAnimStateMessage() error = %v", err)
	}
	data, err := msg.GetAnimStateData()
	if err != nil {
		t.Fatalf("GetAnimStateData() error = %v", err)
	}
	if data.State != "active" {
		t.Errorf("State = %v, want active", data.State)
	}
}

func TestPingPongMessage(t *testing.T) {
	pingMsg, err := NewPingMessage("test-123")
	if err != nil {
		t.Fatalf("NewPingMessage() error = %v", err)
	}

	if pingMsg.Type != TypePing {
		t.Errorf("Type = %v, want %v", pingMsg.Type, TypePing)
	}

	pingData, err := pingMsg.GetPingData()
	if err != nil {
		t.Fatalf("GetPingData() error = %v", err)
	}

	if pingData.ID != "test-123" {
		t.Errorf("ID = %v, want test-123", pingData.ID)
	}

	// Create pong response
	now := time.Now().UnixMilli()
	pongMsg, err := NewPongMessage("test-123", pingData.Timestamp, now)
	if err != nil {
		t.Fatalf("NewPongMessage() error = %v", err)
	}

	pongData, err := pongMsg.GetPongData()
	if err != nil {
		t.Fatalf("GetPongData() error = %v", err)
	}

	if pongData.ID != "test-123" {
		t.Errorf("ID = %v, want test-123", pongData.ID)
	}
	if pongData.LatencyMs < 0 {
		t.Errorf("LatencyMs = %v, should be >= 0", pongData.LatencyMs)
	}
}
