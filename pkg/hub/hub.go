// Package hub fans protocol messages out to websocket clients. Each hub owns
// its client set from a single goroutine; everything else talks to it over
// channels.
package hub

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/teslashibe/go-companion/internal/log"
	"github.com/teslashibe/go-companion/pkg/protocol"
)

const (
	defaultBroadcastBuffer = 256
	defaultClientBuffer    = 256
)

// InboundHandler receives a message read from a client.
type InboundHandler func(c *Client, data []byte)

// Option configures a Hub.
type Option func(*Hub)

// WithReplay keeps the last n broadcasts and sends them to every client that
// joins, oldest first.
func WithReplay(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.replayCap = n
		}
	}
}

// WithClientBuffer sets how many messages a client may fall behind before it
// is dropped.
func WithClientBuffer(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.clientBuffer = n
		}
	}
}

// Hub maintains the set of active clients and broadcasts messages to them
type Hub struct {
	name   string
	logger *slog.Logger

	// owned by Run
	clients map[*Client]struct{}

	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	stopped    chan struct{}
	stopOnce   sync.Once

	onMessage    InboundHandler
	clientBuffer int

	// mu guards count and replay for readers outside Run
	mu        sync.RWMutex
	count     int
	replay    [][]byte
	replayCap int

	running     atomic.Bool
	dropped     atomic.Uint64
	slowClients atomic.Uint64
}

// New creates a hub. Call Run before clients connect.
func New(name string, logger *slog.Logger, opts ...Option) *Hub {
	h := &Hub{
		name:         name,
		logger:       log.Or(logger).With("component", "hub", "hub", name),
		clients:      make(map[*Client]struct{}),
		broadcast:    make(chan []byte, defaultBroadcastBuffer),
		register:     make(chan *Client),
		unregister:   make(chan *Client),
		stopped:      make(chan struct{}),
		clientBuffer: defaultClientBuffer,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// OnMessage sets the handler for messages clients send to the server.
// Set it before Run.
func (h *Hub) OnMessage(fn InboundHandler) {
	h.onMessage = fn
}

// Run owns the client set until ctx is done. On return every client is
// closed and later registrations are refused.
func (h *Hub) Run(ctx context.Context) {
	h.running.Store(true)
	defer func() {
		for c := range h.clients {
			c.close()
			delete(h.clients, c)
		}
		h.setCount()
		h.running.Store(false)
		h.stopOnce.Do(func() { close(h.stopped) })
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case c := <-h.register:
			h.clients[c] = struct{}{}
			h.setCount()
			h.mu.RLock()
			for _, msg := range h.replay {
				c.Send(msg)
			}
			h.mu.RUnlock()
			h.logger.Info("client connected", "clients", len(h.clients))

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				c.close()
				h.setCount()
			}
			h.logger.Info("client disconnected", "clients", len(h.clients))

		case msg := <-h.broadcast:
			h.remember(msg)
			for c := range h.clients {
				if !c.Send(msg) {
					delete(h.clients, c)
					c.close()
					h.slowClients.Add(1)
					h.logger.Warn("dropped slow client")
				}
			}
			h.setCount()
		}
	}
}

func (h *Hub) setCount() {
	h.mu.Lock()
	h.count = len(h.clients)
	h.mu.Unlock()
}

func (h *Hub) remember(msg []byte) {
	if h.replayCap == 0 {
		return
	}
	h.mu.Lock()
	if len(h.replay) == h.replayCap {
		copy(h.replay, h.replay[1:])
		h.replay = h.replay[:len(h.replay)-1]
	}
	h.replay = append(h.replay, msg)
	h.mu.Unlock()
}

// join hands c to Run. It fails once the hub has stopped.
func (h *Hub) join(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.stopped:
		return false
	}
}

func (h *Hub) leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.stopped:
	}
}

// Broadcast queues data for every connected client. It never blocks; when
// the queue is full the message is counted and discarded.
func (h *Hub) Broadcast(data []byte) {
	select {
	case h.broadcast <- data:
	default:
		h.dropped.Add(1)
		h.logger.Warn("broadcast channel full, dropping message")
	}
}

// BroadcastJSON encodes and broadcasts v
func (h *Hub) BroadcastJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h.Broadcast(data)
	return nil
}

// BroadcastMessage encodes and broadcasts a protocol envelope
func (h *Hub) BroadcastMessage(msg *protocol.Message) error {
	data, err := msg.Bytes()
	if err != nil {
		return err
	}
	h.Broadcast(data)
	return nil
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

// Buffered returns how many messages a new client would be replayed
func (h *Hub) Buffered() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.replay)
}

// Dropped returns how many broadcasts were discarded
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}

// SlowClients returns how many clients were cut off for falling behind
func (h *Hub) SlowClients() uint64 {
	return h.slowClients.Load()
}

// IsRunning returns whether the hub is running
func (h *Hub) IsRunning() bool {
	return h.running.Load()
}
