// Package web serves a live monitor for a running session: the current
// listener and source geometry over HTTP, and every outbound message over
// a websocket.
package web

import (
	"log/slog"
	"net"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-soundfield/internal/log"
	"github.com/teslashibe/go-soundfield/pkg/hub"
	"github.com/teslashibe/go-soundfield/pkg/protocol"
	"github.com/teslashibe/go-soundfield/pkg/session"
)

// DefaultStatusInterval is how often /ws/status pushes a snapshot.
const DefaultStatusInterval = 200 * time.Millisecond

// StatusProvider is the read side of a session.
type StatusProvider interface {
	Snapshot() session.Snapshot
	Stats() session.Stats
	Config() session.Config
}

// Status is the body of GET /api/status.
type Status struct {
	Session session.Snapshot `json:"session"`
	Stats   session.Stats    `json:"stats"`
	Monitor MonitorStats     `json:"monitor"`
}

// MonitorStats describes the monitor's own connections.
type MonitorStats struct {
	MessageClients  int    `json:"message_clients"`
	StatusClients   int    `json:"status_clients"`
	DroppedMessages uint64 `json:"dropped_messages"`
}

// Server is the monitor server.
type Server struct {
	app      *fiber.App
	provider StatusProvider
	logger   *slog.Logger
	interval time.Duration

	messageHub *hub.Hub
	statusHub  *hub.Hub
	done       chan struct{}
}

// NewServer creates a monitor for provider.
func NewServer(provider StatusProvider) *Server {
	s := &Server{
		provider:   provider,
		logger:     log.Component("monitor"),
		interval:   DefaultStatusInterval,
		messageHub: hub.New("messages"),
		statusHub:  hub.New("status"),
		done:       make(chan struct{}),
	}

	app := fiber.New(fiber.Config{
		AppName:               "soundfield monitor",
		DisableStartupMessage: true,
	})

	// CORS for the patch designer's browser tools
	app.Use(cors.New())

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/sources", s.handleSources)
	api.Get("/config", s.handleConfig)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/messages", websocket.New(s.handleMessagesWS))
	app.Get("/ws/status", websocket.New(s.handleStatusWS))

	s.app = app
	return s
}

// App exposes the fiber app, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Send implements transport.Sender so the monitor can sit beside the
// renderer in a transport.Multi. It never blocks the session.
func (s *Server) Send(msg protocol.Message) error {
	return s.messageHub.Publish(msg.Address, msg)
}

// Serve runs the monitor on ln until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	go s.messageHub.Run()
	go s.statusHub.Run()
	go s.publishStatus()

	s.logger.Info("monitor listening", "addr", ln.Addr().String())
	return s.app.Listener(ln)
}

// Start listens on addr and serves until Shutdown.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// StartAsync starts the monitor in a goroutine.
func (s *Server) StartAsync(addr string) {
	go func() {
		if err := s.Start(addr); err != nil {
			s.logger.Warn("monitor stopped", "error", err)
		}
	}()
}

// Shutdown gracefully stops the monitor.
func (s *Server) Shutdown() error {
	select {
	case <-s.done:
		return nil
	default:
		close(s.done)
	}
	s.messageHub.Stop()
	s.statusHub.Stop()
	return s.app.Shutdown()
}

func (s *Server) publishStatus() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			if s.statusHub.ClientCount() == 0 {
				continue
			}
			if err := s.statusHub.BroadcastJSON(s.status()); err != nil {
				s.logger.Warn("status encode failed", "error", err)
			}
		}
	}
}

func (s *Server) status() Status {
	return Status{
		Session: s.provider.Snapshot(),
		Stats:   s.provider.Stats(),
		Monitor: MonitorStats{
			MessageClients:  s.messageHub.ClientCount(),
			StatusClients:   s.statusHub.ClientCount(),
			DroppedMessages: s.messageHub.Dropped(),
		},
	}
}
