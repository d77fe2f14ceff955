package behavior

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/spatial/r3"
)

// Kind identifies an event type on the bus.
type Kind string

const (
	KindStateChanged Kind = "behavior_state_changed"
	KindOrbitChanged Kind = "orbit_state_changed"
	KindEyesClosed   Kind = "eyes_closed"
	KindEyesOpened   Kind = "eyes_opened"
	KindBlink        Kind = "blink_detected"
	KindGazeEnter    Kind = "gaze_enter"
	KindGazeExit     Kind = "gaze_exit"
	KindHandAcquired Kind = "hand_acquired"
	KindHandLost     Kind = "hand_lost"
	KindCollision    Kind = "collision"
)

// Event is a single occurrence published on the Bus. Only the fields that
// matter for the Kind are set.
type Event struct {
	ID   uuid.UUID     `json:"id"`
	Kind Kind          `json:"kind"`
	At   time.Duration `json:"at"`

	// KindStateChanged
	From State `json:"from,omitempty"`
	To   State `json:"to,omitempty"`

	// KindOrbitChanged
	Active bool `json:"active,omitempty"`

	// KindGazeEnter / KindGazeExit
	Entity string `json:"entity,omitempty"`

	// KindHandAcquired / KindCollision
	Position r3.Vec `json:"position"`
}

// Emitter publishes events.
type Emitter interface {
	Emit(Event)
}

// Handler receives events.
type Handler func(Event)

// Bus is a synchronous publish/subscribe dispatcher keyed by event kind.
// Emit calls handlers on the caller's goroutine in registration order, so
// events are observed in the order they were emitted.
type Bus struct {
	mu     sync.RWMutex
	byKind map[Kind][]Handler
	all    []Handler
	seq    uint64
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{byKind: make(map[Kind][]Handler)}
}

// Subscribe registers h for the given kinds.
func (b *Bus) Subscribe(h Handler, kinds ...Kind) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, k := range kinds {
		b.byKind[k] = append(b.byKind[k], h)
	}
}

// SubscribeAll registers h for every kind. Wildcard handlers run after the
// kind-specific ones.
func (b *Bus) SubscribeAll(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.all = append(b.all, h)
}

// Emit delivers ev to every matching handler. Handlers may emit further
// events; those are delivered before Emit returns.
func (b *Bus) Emit(ev Event) {
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}

	b.mu.Lock()
	b.seq++
	handlers := make([]Handler, 0, len(b.byKind[ev.Kind])+len(b.all))
	handlers = append(handlers, b.byKind[ev.Kind]...)
	handlers = append(handlers, b.all...)
	b.mu.Unlock()

	for _, h := range handlers {
		h(ev)
	}
}

// Emitted returns how many events went through the bus.
func (b *Bus) Emitted() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.seq
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(Event)

// Emit calls f(ev).
func (f EmitterFunc) Emit(ev Event) { f(ev) }

// Discard drops every event.
var Discard Emitter = EmitterFunc(func(Event) {})
