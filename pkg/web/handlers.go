package web

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-companion/pkg/feedback"
	"github.com/teslashibe/go-companion/pkg/hub"
	"github.com/teslashibe/go-companion/pkg/movement"
	"github.com/teslashibe/go-companion/pkg/protocol"
)

// handleStatus returns the companion snapshot
func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.backend.Status())
}

// handleGetTuning returns the active movement tuning
func (s *Server) handleGetTuning(c *fiber.Ctx) error {
	return c.JSON(s.backend.Tuning())
}

// handleSetTuning applies the non-zero fields of the body to the current
// tuning.
func (s *Server) handleSetTuning(c *fiber.Ctx) error {
	var update movement.Tuning
	if err := c.BodyParser(&update); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	merged := s.backend.Tuning().Merge(update)
	if err := s.backend.SetTuning(merged); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	if s.saver != nil {
		if err := s.saver.SaveTuning(merged); err != nil {
			s.logger.Warn("persist tuning failed", "error", err)
		}
	}
	s.logger.Info("tuning updated via API")
	return c.JSON(merged)
}

// InputRequest toggles sensor processing
type InputRequest struct {
	Enabled bool `json:"enabled"`
}

func (s *Server) handleSetInput(c *fiber.Ctx) error {
	var req InputRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	s.backend.SetInputEnabled(req.Enabled)
	return c.JSON(fiber.Map{"enabled": req.Enabled})
}

// handleAnimState accepts a lifecycle report over HTTP, for renderers that
// do not hold a feedback socket.
func (s *Server) handleAnimState(c *fiber.Ctx) error {
	var req protocol.AnimStateData
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	state, err := feedback.ParseAnimState(req.State)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	s.backend.ReportAnimState(state)
	return c.JSON(fiber.Map{"state": state.String()})
}

// handleEventsWS streams behaviour events
func (s *Server) handleEventsWS(c *websocket.Conn) {
	hub.NewClient(s.eventHub, c).Run()
}

// handleFeedbackWS streams feedback commands to a renderer and reads its
// anim_state reports
func (s *Server) handleFeedbackWS(c *websocket.Conn) {
	hub.NewClient(s.feedbackHub, c).Run()
}

// handleStatusWS streams periodic status snapshots, starting with the
// current one
func (s *Server) handleStatusWS(c *websocket.Conn) {
	client := hub.NewClient(s.statusHub, c)
	if msg, err := protocol.NewStatusMessage(s.backend.Status()); err == nil {
		if data, err := msg.Bytes(); err == nil {
			client.Send(data)
		}
	}
	client.Run()
}

// handleRendererMessage handles client → server messages on /ws/feedback
func (s *Server) handleRendererMessage(client *hub.Client, data []byte) {
	msg, err := protocol.ParseMessage(data)
	if err != nil {
		s.logger.Warn("bad renderer message", "error", err)
		return
	}

	switch msg.Type {
	case protocol.TypeAnimState:
		d, err := msg.GetAnimStateData()
		if err != nil {
			s.logger.Warn("bad anim_state", "error", err)
			return
		}
		state, err := feedback.ParseAnimState(d.State)
		if err != nil {
			s.logger.Warn("unknown anim state", "state", d.State)
			return
		}
		s.backend.ReportAnimState(state)

	case protocol.TypePing:
		var id string
		pingTS := msg.Timestamp
		if ping, err := msg.GetPingData(); err == nil {
			id = ping.ID
			if ping.Timestamp != 0 {
				pingTS = ping.Timestamp
			}
		}
		pong, err := protocol.NewPongMessage(id, pingTS, time.Now().UnixMilli())
		if err != nil {
			return
		}
		if out, err := pong.Bytes(); err == nil {
			client.Send(out)
		}
	}
}
