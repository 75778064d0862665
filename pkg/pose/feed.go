package pose

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-soundfield/internal/log"
)

// FeedConfig configures a websocket pose feed.
type FeedConfig struct {
	// URL of the tracker's pose stream, e.g. ws://tracker.local:8765/pose
	URL string `yaml:"url" json:"url"`

	// MaxAge rejects poses older than this. 0 accepts any age.
	MaxAge time.Duration `yaml:"max_age" json:"max_age"`

	// ReconnectInterval is the wait between reconnection attempts.
	ReconnectInterval time.Duration `yaml:"reconnect_interval" json:"reconnect_interval"`
}

// DefaultFeedConfig returns sensible defaults for a tracker on the LAN.
func DefaultFeedConfig() FeedConfig {
	return FeedConfig{
		MaxAge:            500 * time.Millisecond,
		ReconnectInterval: 2 * time.Second,
	}
}

// Feed reads JSON poses pushed by the tracker over a websocket and keeps the
// latest one.
type Feed struct {
	cfg    FeedConfig
	dialer websocket.Dialer
	logger *slog.Logger
	latest latest

	mu     sync.Mutex
	conn   *websocket.Conn
	cancel context.CancelFunc
	done   chan struct{}

	received atomic.Uint64
	dropped  atomic.Uint64
}

// NewFeed creates a feed. Call Connect to start reading.
func NewFeed(cfg FeedConfig) *Feed {
	f := &Feed{
		cfg:    cfg,
		dialer: websocket.Dialer{HandshakeTimeout: 5 * time.Second},
		logger: log.Component("pose-feed"),
	}
	f.latest.maxAge = cfg.MaxAge
	return f
}

// Connect dials the tracker and starts the read loop. The loop reconnects
// until ctx is done or Close is called.
func (f *Feed) Connect(ctx context.Context) error {
	if f.cfg.URL == "" {
		return fmt.Errorf("pose: feed URL required")
	}

	conn, _, err := f.dialer.DialContext(ctx, f.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("pose: connect %s: %w", f.cfg.URL, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	f.mu.Lock()
	f.conn = conn
	f.cancel = cancel
	f.done = make(chan struct{})
	f.mu.Unlock()

	go f.run(ctx, conn)
	return nil
}

// Current implements Source.
func (f *Feed) Current() (Pose, error) {
	return f.latest.current()
}

// Received returns how many poses have been accepted.
func (f *Feed) Received() uint64 {
	return f.received.Load()
}

// Close stops the read loop and closes the connection.
func (f *Feed) Close() error {
	f.mu.Lock()
	cancel, conn, done := f.cancel, f.conn, f.done
	f.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	if conn != nil {
		conn.Close()
	}
	<-done
	return nil
}

func (f *Feed) run(ctx context.Context, conn *websocket.Conn) {
	defer close(f.done)

	// Unblock ReadMessage when the context ends.
	go func() {
		<-ctx.Done()
		f.mu.Lock()
		if f.conn != nil {
			f.conn.Close()
		}
		f.mu.Unlock()
	}()

	for {
		f.read(conn)
		if ctx.Err() != nil {
			return
		}

		next, err := f.redial(ctx)
		if err != nil {
			return
		}
		conn = next
	}
}

func (f *Feed) read(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			f.logger.Debug("read stopped", "error", err)
			return
		}

		var d Data
		if err := json.Unmarshal(data, &d); err != nil {
			f.dropped.Add(1)
			f.logger.Warn("bad pose frame", "error", err)
			continue
		}
		f.latest.store(d.Pose())
		f.received.Add(1)
	}
}

func (f *Feed) redial(ctx context.Context) (*websocket.Conn, error) {
	interval := f.cfg.ReconnectInterval
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}

		conn, _, err := f.dialer.DialContext(ctx, f.cfg.URL, nil)
		if err != nil {
			f.logger.Warn("reconnect failed", "url", f.cfg.URL, "error", err)
			continue
		}
		f.mu.Lock()
		f.conn = conn
		f.mu.Unlock()
		f.logger.Info("reconnected", "url", f.cfg.URL)
		return conn, nil
	}
}
