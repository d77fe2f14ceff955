// Package sensorfeed dials an upstream sensor server and stores the samples
// it streams. It is the outbound counterpart of pkg/ingest.
package sensorfeed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-companion/internal/log"
	"github.com/teslashibe/go-companion/pkg/protocol"
	"github.com/teslashibe/go-companion/pkg/sensor"
)

const (
	reconnectBaseDelay = 500 * time.Millisecond
	reconnectMaxDelay  = 30 * time.Second
	keepaliveInterval  = 15 * time.Second
	handshakeTimeout   = 10 * time.Second
)

// ErrNoURL is returned by Run when no upstream URL is configured.
var ErrNoURL = errors.New("sensorfeed: no upstream url")

// Sink receives decoded samples. *sensor.Latest satisfies it.
type Sink interface {
	Store(s sensor.Sample)
}

// Config configures the client
type Config struct {
	URL          string
	BaseDelay    time.Duration
	MaxDelay     time.Duration
	Keepalive    time.Duration
	OnConnect    func()
	OnDisconnect func()
}

// Stats reports client counters
type Stats struct {
	Connected   bool   `json:"connected"`
	Samples     uint64 `json:"samples"`
	Dials       uint64 `json:"dials"`
	Failures    uint64 `json:"failures"`
	ParseErrors uint64 `json:"parse_errors"`
}

// Client streams samples from an upstream server into a sink.
type Client struct {
	cfg    Config
	sink   Sink
	logger *slog.Logger
	dialer websocket.Dialer

	connected   atomic.Bool
	samples     atomic.Uint64
	dials       atomic.Uint64
	failures    atomic.Uint64
	parseErrors atomic.Uint64
}

// New creates a client. Zero delays take the package defaults.
func New(cfg Config, sink Sink, logger *slog.Logger) *Client {
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = reconnectBaseDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = reconnectMaxDelay
	}
	if cfg.MaxDelay < cfg.BaseDelay {
		cfg.MaxDelay = cfg.BaseDelay
	}
	if cfg.Keepalive <= 0 {
		cfg.Keepalive = keepaliveInterval
	}
	return &Client{
		cfg:    cfg,
		sink:   sink,
		logger: log.Or(logger).With("component", "sensorfeed", "url", cfg.URL),
		dialer: websocket.Dialer{HandshakeTimeout: handshakeTimeout},
	}
}

// Run connects and reconnects with exponential backoff until ctx is done.
// It returns ctx.Err() on shutdown.
func (c *Client) Run(ctx context.Context) error {
	if c.cfg.URL == "" {
		return ErrNoURL
	}

	delay := c.cfg.BaseDelay
	for {
		conn, err := c.dial(ctx)
		if err == nil {
			delay = c.cfg.BaseDelay
			c.serve(ctx, conn)
		} else {
			c.failures.Add(1)
			c.logger.Warn("dial failed", "error", err, "retry_in", delay)
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		if err != nil {
			delay *= 2
			if delay > c.cfg.MaxDelay {
				delay = c.cfg.MaxDelay
			}
		}
	}
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	c.dials.Add(1)
	conn, resp, err := c.dialer.DialContext(ctx, c.cfg.URL, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket dial failed (status %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}
	return conn, nil
}

// serve reads from conn until it fails or ctx is done.
func (c *Client) serve(ctx context.Context, conn *websocket.Conn) {
	c.connected.Store(true)
	c.logger.Info("upstream connected")
	if c.cfg.OnConnect != nil {
		c.cfg.OnConnect()
	}

	done := make(chan struct{})
	go c.keepalive(ctx, conn, done)

	defer func() {
		close(done)
		conn.Close()
		c.connected.Store(false)
		c.logger.Info("upstream disconnected")
		if c.cfg.OnDisconnect != nil {
			c.cfg.OnDisconnect()
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				c.logger.Warn("read failed", "error", err)
			}
			return
		}
		c.handle(data)
	}
}

// keepalive pings the upstream and closes the connection when ctx ends so
// the blocked read returns. It is the connection's only writer.
func (c *Client) keepalive(ctx context.Context, conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(c.cfg.Keepalive)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			conn.Close()
			return
		case <-ticker.C:
			msg, err := protocol.NewPingMessage("sensorfeed")
			if err != nil {
				continue
			}
			data, _ := msg.Bytes()
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Warn("keepalive ping failed", "error", err)
				conn.Close()
				return
			}
		}
	}
}

func (c *Client) handle(data []byte) {
	msg, err := protocol.ParseMessage(data)
	if err != nil {
		c.parseErrors.Add(1)
		c.logger.Debug("parse error", "error", err)
		return
	}

	switch msg.Type {
	case protocol.TypeSample:
		d, err := msg.GetSampleData()
		if err != nil {
			c.parseErrors.Add(1)
			return
		}
		c.samples.Add(1)
		if c.sink != nil {
			c.sink.Store(d.Sample())
		}
	case protocol.TypePong:
		if pong, err := msg.GetPongData(); err == nil {
			c.logger.Debug("upstream pong", "latency_ms", time.Now().UnixMilli()-pong.PingTS)
		}
	}
}

// IsConnected reports whether an upstream connection is open.
func (c *Client) IsConnected() bool {
	return c.connected.Load()
}

// Stats returns the client counters
func (c *Client) Stats() Stats {
	return Stats{
		Connected:   c.connected.Load(),
		Samples:     c.samples.Load(),
		Dials:       c.dials.Load(),
		Failures:    c.failures.Load(),
		ParseErrors: c.parseErrors.Load(),
	}
}
