package session

import (
	"context"
	"errors"
	"time"

	"github.com/teslashibe/go-soundfield/pkg/pose"
)

// DefaultTickInterval matches a 60 Hz tracking frame.
const DefaultTickInterval = time.Second / 60

// Run starts the session, ticks it every interval until ctx is done and
// then shuts it down. Callers may also defer Shutdown for abnormal exits;
// the end of session is announced once either way.
func Run(ctx context.Context, s *Scheduler, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	if err := s.Start(ctx); err != nil {
		return err
	}
	defer s.Shutdown()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	waiting := false
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		_, err := s.Tick()
		switch {
		case err == nil:
			if waiting {
				s.logger.Info("listener pose available")
				waiting = false
			}
		case errors.Is(err, pose.ErrNoPose) || errors.Is(err, pose.ErrStale):
			// Expected while the tracker warms up or drops out; log the edge only.
			if !waiting {
				s.logger.Warn("waiting for listener pose", "error", err)
				waiting = true
			}
		case errors.Is(err, ErrNotRunning):
			return nil
		default:
			s.logger.Warn("tick failed", "error", err)
		}
	}
}
