// Package web provides the companion's HTTP dashboard and WebSocket feeds
package web

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-companion/internal/log"
	"github.com/teslashibe/go-companion/pkg/behavior"
	"github.com/teslashibe/go-companion/pkg/companion"
	"github.com/teslashibe/go-companion/pkg/feedback"
	"github.com/teslashibe/go-companion/pkg/hub"
	"github.com/teslashibe/go-companion/pkg/movement"
	"github.com/teslashibe/go-companion/pkg/protocol"
)

// recent behaviour events sent to a dashboard when it connects
const eventReplay = 32

// Backend is what the dashboard reads and controls. *companion.App
// satisfies it.
type Backend interface {
	Status() companion.Status
	Tuning() movement.Tuning
	SetTuning(t movement.Tuning) error
	ReportAnimState(s feedback.AnimState)
	SetInputEnabled(enabled bool)
}

// TuningSaver persists tuning applied through the API.
type TuningSaver interface {
	SaveTuning(t movement.Tuning) error
}

// Routes is a component that mounts its own routes on the dashboard, such as
// the sensor ingest hub.
type Routes interface {
	RegisterRoutes(app *fiber.App)
	RegisterAPIRoutes(api fiber.Router)
}

// Options configures the server
type Options struct {
	Backend Backend
	Logger  *slog.Logger

	// Optional; tuning set over the API is saved here
	Tuning TuningSaver

	// Extra route sets mounted after the dashboard's own
	Mounts []Routes

	// How often /ws/status clients get a snapshot
	StatusInterval time.Duration
}

// Server is the web dashboard server
type Server struct {
	app     *fiber.App
	addr    string
	backend Backend
	saver   TuningSaver
	logger  *slog.Logger

	statusInterval time.Duration

	// Hubs for websocket broadcast
	eventHub    *hub.Hub
	feedbackHub *hub.Hub
	statusHub   *hub.Hub

	relay *FeedbackRelay
}

// NewServer creates the dashboard. The backend can be attached later with
// SetBackend, which lets the feedback relay be handed to the App first.
func NewServer(addr string, opts Options) *Server {
	logger := log.Or(opts.Logger)
	if opts.StatusInterval <= 0 {
		opts.StatusInterval = 250 * time.Millisecond
	}

	s := &Server{
		addr:           addr,
		backend:        opts.Backend,
		saver:          opts.Tuning,
		logger:         logger.With("component", "web"),
		statusInterval: opts.StatusInterval,
		eventHub:       hub.New("events", logger, hub.WithReplay(eventReplay)),
		feedbackHub:    hub.New("feedback", logger),
		statusHub:      hub.New("status", logger),
	}
	s.relay = NewFeedbackRelay(s.feedbackHub)
	s.feedbackHub.OnMessage(s.handleRendererMessage)

	app := fiber.New(fiber.Config{
		AppName:               "Companion Dashboard",
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(cors.New())

	// API routes
	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/tuning", s.handleGetTuning)
	api.Post("/tuning", s.handleSetTuning)
	api.Post("/input", s.handleSetInput)
	api.Post("/anim_state", s.handleAnimState)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/events", websocket.New(s.handleEventsWS))
	app.Get("/ws/feedback", websocket.New(s.handleFeedbackWS))
	app.Get("/ws/status", websocket.New(s.handleStatusWS))

	for _, m := range opts.Mounts {
		m.RegisterRoutes(app)
		m.RegisterAPIRoutes(api)
	}

	s.app = app
	return s
}

// SetBackend attaches the backend. Call it before Start.
func (s *Server) SetBackend(b Backend) {
	s.backend = b
}

// App returns the underlying Fiber app
func (s *Server) App() *fiber.App {
	return s.app
}

// Feedback returns the relay that forwards commands to /ws/feedback clients.
func (s *Server) Feedback() *FeedbackRelay {
	return s.relay
}

// RunHubs runs the broadcast hubs and the status ticker until ctx is done.
func (s *Server) RunHubs(ctx context.Context) {
	go s.eventHub.Run(ctx)
	go s.feedbackHub.Run(ctx)
	go s.statusHub.Run(ctx)
	go s.statusLoop(ctx)
}

// Start runs the hubs and serves until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	if s.backend == nil {
		return errors.New("web: no backend attached")
	}
	s.RunHubs(ctx)

	go func() {
		<-ctx.Done()
		if err := s.app.Shutdown(); err != nil {
			s.logger.Warn("shutdown failed", "error", err)
		}
	}()

	s.logger.Info("web dashboard listening", "addr", s.addr)
	return s.app.Listen(s.addr)
}

// Shutdown gracefully stops the web server
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// OnEvent broadcasts a behaviour event to /ws/events clients. It has the
// behavior.Handler signature and never blocks.
func (s *Server) OnEvent(ev behavior.Event) {
	if !s.eventHub.IsRunning() {
		return
	}
	msg, err := protocol.NewEventMessage(ev)
	if err != nil {
		s.logger.Warn("encode event failed", "kind", ev.Kind, "error", err)
		return
	}
	s.eventHub.BroadcastMessage(msg)
}

func (s *Server) statusLoop(ctx context.Context) {
	ticker := time.NewTicker(s.statusInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.statusHub.ClientCount() == 0 || s.backend == nil {
				continue
			}
			msg, err := protocol.NewStatusMessage(s.backend.Status())
			if err != nil {
				continue
			}
			s.statusHub.BroadcastMessage(msg)
		}
	}
}

// EventHub returns the behaviour event hub
func (s *Server) EventHub() *hub.Hub {
	return s.eventHub
}

// FeedbackHub returns the renderer hub
func (s *Server) FeedbackHub() *hub.Hub {
	return s.feedbackHub
}

// StatusHub returns the status hub
func (s *Server) StatusHub() *hub.Hub {
	return s.statusHub
}
