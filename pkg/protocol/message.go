// Package protocol defines the WebSocket message types exchanged with sensor
// producers, feedback renderers and dashboard clients.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageType identifies the type of WebSocket message
type MessageType string

const (
	// Producer → companion
	TypeSample MessageType = "sample" // Decoded sensor frame

	// Renderer → companion
	TypeAnimState MessageType = "anim_state" // Lifecycle state of the rendered companion

	// Companion → clients
	TypeEvent    MessageType = "event"    // Behaviour event
	TypeFeedback MessageType = "feedback" // Audio / animation command
	TypeStatus   MessageType = "status"   // Periodic status snapshot

	// Bidirectional
	TypePing MessageType = "ping" // Health check
	TypePong MessageType = "pong" // Health check response
)

// Message is the base wrapper for all WebSocket messages
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp int64           `json:"ts,omitempty"` // Unix milliseconds
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(msgType MessageType, data any) (*Message, error) {
	var rawData json.RawMessage
	if data != nil {
		var err error
		rawData, err = json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal message data: %w", err)
		}
	}

	return &Message{
		Type:      msgType,
		Timestamp: time.Now().UnixMilli(),
		Data:      rawData,
	}, nil
}

// ParseData unmarshals the message data into the provided struct
func (m *Message) ParseData(v any) error {
	if m.Data == nil {
		return nil
	}
	return json.Unmarshal(m.Data, v)
}

// Bytes returns the JSON-encoded message
func (m *Message) Bytes() ([]byte, error) {
	return json.Marshal(m)
}

// ParseMessage parses a JSON message from bytes
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	if msg.Type == "" {
		return nil, fmt.Errorf("failed to parse message: missing type")
	}
	return &msg, nil
}

// =============================================================================
// Producer → Companion Message Types
// =============================================================================

// Vec3 is a vector encoded as [x, y, z]
type Vec3 [3]float64

// HandData is one tracked hand
type HandData struct {
	Confidence float64 `json:"confidence"`
	Center     Vec3    `json:"center"`
}

// HeadData is the user's head pose
type HeadData struct {
	Position Vec3 `json:"position"`
	Forward  Vec3 `json:"forward"`
}

// SampleData is one decoded sensor frame
type SampleData struct {
	LeftEye   float64   `json:"left_eye"`  // Openness confidence 0..1
	RightEye  float64   `json:"right_eye"` // Openness confidence 0..1
	Blinking  bool      `json:"blinking"`  // Both eyes flagged blinking
	LeftHand  HandData  `json:"left_hand"`
	RightHand HandData  `json:"right_hand"`
	Gaze      string    `json:"gaze,omitempty"` // Entity id under gaze
	Head      *HeadData `json:"head,omitempty"`
	Seq       uint64    `json:"seq,omitempty"`
}

// =============================================================================
// Renderer → Companion Message Types
// =============================================================================

// AnimStateData reports the rendered companion's lifecycle state
type AnimStateData struct {
	State string `json:"state"` // "spawn", "active", "inactive"
}

// =============================================================================
// Companion → Client Message Types
// =============================================================================

// EventData is a behaviour event
type EventData struct {
	ID       string  `json:"id"`
	Kind     string  `json:"kind"`
	AtMs     float64 `json:"at_ms"` // Companion clock
	From     string  `json:"from,omitempty"`
	To       string  `json:"to,omitempty"`
	Active   bool    `json:"active,omitempty"`
	Entity   string  `json:"entity,omitempty"`
	Position *Vec3   `json:"position,omitempty"`
}

// Feedback operations
const (
	OpPlayEvent     = "play_event"
	OpPlayAndFadeIn = "play_and_fade_in"
	OpFadeOut       = "fade_out"
	OpFadeIn        = "fade_in"
	OpSetBool       = "set_bool"
	OpSetFloat      = "set_float"
)

// FeedbackData is one audio or animation command for a renderer
type FeedbackData struct {
	Op         string  `json:"op"`
	Name       string  `json:"name,omitempty"`    // Sound event or parameter
	Channel    string  `json:"channel,omitempty"` // Audio channel
	DurationMs int64   `json:"duration_ms,omitempty"`
	StopAfter  bool    `json:"stop_after,omitempty"`
	Bool       bool    `json:"bool,omitempty"`
	Float      float64 `json:"float,omitempty"`
}

// Duration returns DurationMs as a time.Duration
func (f FeedbackData) Duration() time.Duration {
	return time.Duration(f.DurationMs) * time.Millisecond
}

// =============================================================================
// Bidirectional Message Types
// =============================================================================

// PingData contains ping information
type PingData struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"ts"`
}

// PongData contains pong response
type PongData struct {
	ID        string `json:"id"`
	PingTS    int64  `json:"ping_ts"`
	PongTS    int64  `json:"pong_ts"`
	LatencyMs int64  `json:"latency_ms"`
}
