package pose

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/teslashibe/go-soundfield/internal/httpc"
	"github.com/teslashibe/go-soundfield/internal/log"
)

// Poller fetches the pose from an HTTP endpoint at a fixed interval, for
// trackers that only expose a request/response API.
type Poller struct {
	url      string
	interval time.Duration
	client   *http.Client
	logger   *slog.Logger
	latest   latest
}

// NewPoller creates a poller for url. Poses older than three intervals are
// reported as stale.
func NewPoller(url string, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = 50 * time.Millisecond
	}
	p := &Poller{
		url:      url,
		interval: interval,
		client:   httpc.NewClient(interval * 4),
		logger:   log.Component("pose-poller"),
	}
	p.latest.maxAge = 3 * interval
	return p
}

// Fetch performs a single request and stores the result.
func (p *Poller) Fetch(ctx context.Context) (Pose, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return Pose{}, fmt.Errorf("pose: request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return Pose{}, fmt.Errorf("pose: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Pose{}, fmt.Errorf("pose: tracker returned status %d", resp.StatusCode)
	}

	var d Data
	if err := json.NewDecoder(resp.Body).Decode(&d); err != nil {
		return Pose{}, fmt.Errorf("pose: decode failed: %w", err)
	}

	pose := d.Pose()
	p.latest.store(pose)
	return pose, nil
}

// Run polls until ctx is done. Failed polls are logged and skipped.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		if _, err := p.Fetch(ctx); err != nil && ctx.Err() == nil {
			p.logger.Debug("poll failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Current implements Source.
func (p *Poller) Current() (Pose, error) {
	return p.latest.current()
}
