// Package ingest accepts sensor producers over WebSocket and feeds their
// samples into a sensor store.
package ingest

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/teslashibe/go-companion/internal/log"
	"github.com/teslashibe/go-companion/pkg/debug"
	"github.com/teslashibe/go-companion/pkg/protocol"
	"github.com/teslashibe/go-companion/pkg/sensor"
)

// Sink receives decoded samples. *sensor.Latest satisfies it.
type Sink interface {
	Store(s sensor.Sample)
}

// Producer is a connected sensor producer
type Producer struct {
	ID        string
	Conn      *websocket.Conn
	Connected time.Time
	LastSeen  time.Time
	Samples   uint64
	LastSeq   uint64

	mu sync.Mutex
}

// Send sends a message to the producer
func (p *Producer) Send(msg *protocol.Message) error {
	data, err := msg.Bytes()
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Conn.WriteMessage(websocket.TextMessage, data)
}

// Hub manages producer connections
type Hub struct {
	mu        sync.RWMutex
	producers map[string]*Producer
	sink      Sink
	logger    *slog.Logger

	// Callbacks
	onConnect    func(id string)
	onDisconnect func(id string)

	// Stats
	messagesReceived atomic.Uint64
	messagesSent     atomic.Uint64
	samplesReceived  atomic.Uint64
	samplesStale     atomic.Uint64
	parseErrors      atomic.Uint64
}

// NewHub creates a hub storing samples into sink
func NewHub(sink Sink, logger *slog.Logger) *Hub {
	return &Hub{
		producers: make(map[string]*Producer),
		sink:      sink,
		logger:    log.Or(logger).With("component", "ingest"),
	}
}

// OnConnect sets the callback for new producers
func (h *Hub) OnConnect(callback func(id string)) {
	h.mu.Lock()
	h.onConnect = callback
	h.mu.Unlock()
}

// OnDisconnect sets the callback for departed producers
func (h *Hub) OnDisconnect(callback func(id string)) {
	h.mu.Lock()
	h.onDisconnect = callback
	h.mu.Unlock()
}

// RegisterRoutes registers the producer WebSocket routes on a Fiber app
func (h *Hub) RegisterRoutes(app *fiber.App) {
	app.Get("/ws/sensors", upgradeOnly, websocket.New(h.handleProducer))
	app.Get("/ws/sensors/:id", upgradeOnly, websocket.New(h.handleProducer))
}

func upgradeOnly(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		c.Locals("allowed", true)
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// handleProducer serves one producer connection
func (h *Hub) handleProducer(c *websocket.Conn) {
	id := c.Params("id")
	if id == "" {
		id = uuid.NewString()
	}

	now := time.Now()
	p := &Producer{
		ID:        id,
		Conn:      c,
		Connected: now,
		LastSeen:  now,
	}

	h.mu.Lock()
	if old, ok := h.producers[id]; ok {
		// a reconnecting producer replaces its stale session
		old.Conn.Close()
	}
	h.producers[id] = p
	count := len(h.producers)
	onConnect := h.onConnect
	h.mu.Unlock()

	h.logger.Info("producer connected", "id", id, "producers", count)
	if onConnect != nil {
		onConnect(id)
	}

	defer func() {
		h.mu.Lock()
		if h.producers[id] == p {
			delete(h.producers, id)
		}
		count := len(h.producers)
		onDisconnect := h.onDisconnect
		h.mu.Unlock()

		h.logger.Info("producer disconnected", "id", id, "producers", count)
		if onDisconnect != nil {
			onDisconnect(id)
		}
	}()

	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			h.logger.Debug("producer read error", "id", id, "error", err)
			return
		}

		p.mu.Lock()
		p.LastSeen = time.Now()
		p.mu.Unlock()

		h.messagesReceived.Add(1)
		h.handleMessage(p, data)
	}
}

// handleMessage processes one message from a producer
func (h *Hub) handleMessage(p *Producer, data []byte) {
	msg, err := protocol.ParseMessage(data)
	if err != nil {
		h.parseErrors.Add(1)
		h.logger.Warn("parse error", "id", p.ID, "error", err)
		return
	}

	switch msg.Type {
	case protocol.TypeSample:
		sample, err := msg.GetSampleData()
		if err != nil {
			h.parseErrors.Add(1)
			h.logger.Warn("bad sample", "id", p.ID, "error", err)
			return
		}
		h.acceptSample(p, sample)

	case protocol.TypePing:
		var pingTS int64
		var pingID string
		if ping, err := msg.GetPingData(); err == nil && ping.Timestamp != 0 {
			pingTS, pingID = ping.Timestamp, ping.ID
		} else {
			pingTS = msg.Timestamp
		}
		if err := h.sendPong(p, pingID, pingTS); err != nil {
			h.logger.Warn("pong failed", "id", p.ID, "error", err)
		}

	default:
		h.logger.Debug("ignoring message", "id", p.ID, "type", msg.Type)
	}
}

// acceptSample stores a sample unless its sequence number is behind the last
// one seen on this connection. A zero sequence is always accepted.
func (h *Hub) acceptSample(p *Producer, d *protocol.SampleData) {
	p.mu.Lock()
	if d.Seq != 0 && d.Seq <= p.LastSeq {
		p.mu.Unlock()
		h.samplesStale.Add(1)
		return
	}
	if d.Seq != 0 {
		p.LastSeq = d.Seq
	}
	p.Samples++
	p.mu.Unlock()

	h.samplesReceived.Add(1)
	s := d.Sample()
	if debug.Sensors {
		debug.SensorLog("sample", "id", p.ID, "seq", d.Seq,
			"eyes", [2]float64{s.LeftEyeConfidence, s.RightEyeConfidence},
			"hands", [2]float64{s.LeftHandConfidence, s.RightHandConfidence})
	}
	if h.sink != nil {
		h.sink.Store(s)
	}
}

func (h *Hub) sendPong(p *Producer, id string, pingTS int64) error {
	msg, err := protocol.NewPongMessage(id, pingTS, time.Now().UnixMilli())
	if err != nil {
		return err
	}
	h.messagesSent.Add(1)
	return p.Send(msg)
}

// GetProducer returns a producer by ID
func (h *Hub) GetProducer(id string) *Producer {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.producers[id]
}

// ProducerCount returns the number of connected producers
func (h *Hub) ProducerCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.producers)
}

// Stats contains hub statistics
type Stats struct {
	ProducerCount    int    `json:"producer_count"`
	MessagesReceived uint64 `json:"messages_received"`
	MessagesSent     uint64 `json:"messages_sent"`
	SamplesReceived  uint64 `json:"samples_received"`
	SamplesStale     uint64 `json:"samples_stale"`
	ParseErrors      uint64 `json:"parse_errors"`
}

// GetStats returns hub statistics
func (h *Hub) GetStats() Stats {
	return Stats{
		ProducerCount:    h.ProducerCount(),
		MessagesReceived: h.messagesReceived.Load(),
		MessagesSent:     h.messagesSent.Load(),
		SamplesReceived:  h.samplesReceived.Load(),
		SamplesStale:     h.samplesStale.Load(),
		ParseErrors:      h.parseErrors.Load(),
	}
}

// ProducerInfo describes a connected producer
type ProducerInfo struct {
	ID        string    `json:"id"`
	Connected time.Time `json:"connected"`
	LastSeen  time.Time `json:"last_seen"`
	Samples   uint64    `json:"samples"`
	LastSeq   uint64    `json:"last_seq"`
}

// GetProducerInfos returns info about all connected producers
func (h *Hub) GetProducerInfos() []ProducerInfo {
	h.mu.RLock()
	defer h.mu.RUnlock()

	infos := make([]ProducerInfo, 0, len(h.producers))
	for _, p := range h.producers {
		p.mu.Lock()
		infos = append(infos, ProducerInfo{
			ID:        p.ID,
			Connected: p.Connected,
			LastSeen:  p.LastSeen,
			Samples:   p.Samples,
			LastSeq:   p.LastSeq,
		})
		p.mu.Unlock()
	}
	return infos
}

// RegisterAPIRoutes registers the ingest API under api
func (h *Hub) RegisterAPIRoutes(api fiber.Router) {
	ingest := api.Group("/ingest")

	ingest.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"producers": h.GetProducerInfos(),
			"count":     h.ProducerCount(),
		})
	})

	ingest.Get("/stats", func(c *fiber.Ctx) error {
		return c.JSON(h.GetStats())
	})
}
