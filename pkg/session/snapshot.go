package session

import (
	"time"

	"github.com/teslashibe/go-soundfield/pkg/pose"
	"github.com/teslashibe/go-soundfield/pkg/source"
	"github.com/teslashibe/go-soundfield/pkg/spatial"
)

// Stats counts scheduler activity since creation.
type Stats struct {
	Ticks        uint64 `json:"ticks"`
	SkippedTicks uint64 `json:"skipped_ticks"`
	MessagesSent uint64 `json:"messages_sent"`
	SendFailures uint64 `json:"send_failures"`
}

// SourceState is one source as of the last tick.
type SourceState struct {
	source.Source
	Relative spatial.RelativePosition `json:"relative"`
	Gain     float64                  `json:"gain"`
}

// Snapshot is a read-only view of the session for monitoring.
type Snapshot struct {
	ID       string        `json:"id,omitempty"`
	Phase    Phase         `json:"phase"`
	Started  time.Time     `json:"started,omitempty"`
	Ticks    uint64        `json:"ticks"`
	Listener pose.Pose     `json:"listener"`
	Sources  []SourceState `json:"sources"`
}

// Snapshot returns the latest session view. After the session ends the
// final view is kept with the phase set to ended.
func (s *Scheduler) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.last
	snap.Phase = s.phase
	snap.Sources = append([]SourceState(nil), snap.Sources...)
	return snap
}

// Stats returns activity counters.
func (s *Scheduler) Stats() Stats {
	return Stats{
		Ticks:        s.stats.ticks.Load(),
		SkippedTicks: s.stats.skipped.Load(),
		MessagesSent: s.stats.sent.Load(),
		SendFailures: s.stats.sendFailures.Load(),
	}
}

func (s *Scheduler) snapshotLocked() Snapshot {
	c := s.ctx
	snap := Snapshot{
		ID:       c.id.String(),
		Phase:    s.phase,
		Started:  c.started,
		Ticks:    c.ticks,
		Listener: c.listener,
	}
	for i, src := range c.registry.All() {
		snap.Sources = append(snap.Sources, SourceState{
			Source:   src,
			Relative: c.relative[i],
			Gain:     c.gains[i],
		})
	}
	return snap
}
