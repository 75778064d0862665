package web

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-soundfield/pkg/hub"
)

// handleStatus returns the session snapshot and counters
func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.status())
}

// handleSources returns per-source geometry as of the last tick
func (s *Server) handleSources(c *fiber.Ctx) error {
	snap := s.provider.Snapshot()
	if len(snap.Sources) == 0 {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "no session running",
			"phase": snap.Phase,
		})
	}
	return c.JSON(snap.Sources)
}

// handleConfig returns the normalized session configuration
func (s *Server) handleConfig(c *fiber.Ctx) error {
	return c.JSON(s.provider.Config())
}

// handleMessagesWS streams outbound messages, optionally only those under
// ?address=<prefix>. A text frame from the client replaces the prefix.
func (s *Server) handleMessagesWS(c *websocket.Conn) {
	client := hub.NewClient(s.messageHub, c, c.Query("address"))
	if client == nil {
		return
	}
	client.Run()
}

// handleStatusWS pushes the current status immediately, then periodically
func (s *Server) handleStatusWS(c *websocket.Conn) {
	// Written before registering, so no pump is writing yet.
	if err := c.WriteJSON(s.status()); err != nil {
		s.logger.Debug("status client gone before first write", "error", err)
		return
	}
	client := hub.NewClient(s.statusHub, c, "")
	if client == nil {
		return
	}
	client.Run()
}
