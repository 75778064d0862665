// Package session runs a spatial-audio session: it announces playback,
// initializes each source once, streams listener-relative positions every
// tick and announces the end of playback exactly once.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/go-soundfield/internal/log"
	"github.com/teslashibe/go-soundfield/pkg/debug"
	"github.com/teslashibe/go-soundfield/pkg/pose"
	"github.com/teslashibe/go-soundfield/pkg/protocol"
	"github.com/teslashibe/go-soundfield/pkg/source"
	"github.com/teslashibe/go-soundfield/pkg/spatial"
	"github.com/teslashibe/go-soundfield/pkg/transport"
)

// Phase is the lifecycle state of a session.
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseRunning Phase = "running"
	PhaseEnded   Phase = "ended"
)

// Options wires a scheduler to its collaborators.
type Options struct {
	Sender     transport.Sender  // Required
	Poses      pose.Source       // Required
	Discoverer source.Discoverer // Used when Config.AutoDetect is set
	Sources    []source.Source   // Used when Config.AutoDetect is not set
	Logger     *slog.Logger
}

// sessionContext is the per-session state owned by the scheduler.
type sessionContext struct {
	id       uuid.UUID
	started  time.Time
	registry *source.Registry
	listener pose.Pose
	relative []spatial.RelativePosition
	gains    []float64
	ticks    uint64
}

// Scheduler drives one session. Start, Tick and Shutdown may be called from
// different goroutines (a frame loop and a signal handler) but are
// serialized internally.
type Scheduler struct {
	cfg    Config
	opts   Options
	logger *slog.Logger

	mu    sync.Mutex
	phase Phase
	ctx   *sessionContext
	last  Snapshot // Kept after the session ends for the monitor

	stats struct {
		ticks        atomic.Uint64
		skipped      atomic.Uint64
		sent         atomic.Uint64
		sendFailures atomic.Uint64
	}
}

// New creates an idle scheduler. Out-of-range options are clamped here.
func New(cfg Config, opts Options) *Scheduler {
	logger := opts.Logger
	if logger == nil {
		logger = log.Component("session")
	}
	if cfg.Normalize() {
		logger.Warn("config clamped to renderer range",
			"ambient_aperture", cfg.AmbientAperture,
			"background_level", cfg.BackgroundLevel)
	}

	return &Scheduler{
		cfg:    cfg,
		opts:   opts,
		logger: logger,
		phase:  PhaseIdle,
	}
}

// Config returns the normalized configuration.
func (s *Scheduler) Config() Config {
	return s.cfg
}

// Phase returns the current lifecycle phase.
func (s *Scheduler) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Start resolves the source set, announces playback and sends the one-time
// per-source setup. It fails before sending anything if a required
// collaborator is missing or no sources are found.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.phase {
	case PhaseRunning:
		return ErrAlreadyStarted
	case PhaseEnded:
		return ErrEnded
	}

	if s.opts.Poses == nil {
		return ErrNoPoseSource
	}
	if s.opts.Sender == nil {
		return ErrNoSender
	}

	registry, err := source.Resolve(ctx, s.cfg.AutoDetect, s.opts.Sources, s.opts.Discoverer)
	if errors.Is(err, source.ErrEmpty) {
		return ErrNoSources
	}
	if err != nil {
		return fmt.Errorf("session: resolve sources: %w", err)
	}

	if s.cfg.UseObjectTrigger {
		s.logger.Warn("object trigger is reserved and not implemented; ignoring")
	}

	n := registry.Len()
	s.ctx = &sessionContext{
		id:       uuid.New(),
		started:  time.Now(),
		registry: registry,
		relative: make([]spatial.RelativePosition, n),
		gains:    make([]float64, n),
	}
	s.phase = PhaseRunning
	s.logger.Info("session started",
		"session", s.ctx.id,
		"sources", n,
		"ambient", len(registry.Ambient()),
		"doppler", s.cfg.UseDopplerEffect,
		"distanced_gain", s.cfg.UseDistancedGain)

	s.send(protocol.NewStatusMessage(true))
	for _, src := range registry.All() {
		k := src.Index()
		if s.cfg.UseDopplerEffect {
			s.send(protocol.NewDopplerMessage(k))
		}
		if src.Ambient() {
			s.send(protocol.NewApertureMessage(k, s.cfg.AmbientAperture))
			s.send(protocol.NewBackgroundMessage(k, s.cfg.BackgroundLevel))
		}
	}

	s.last = s.snapshotLocked()
	for _, st := range s.last.Sources {
		debug.Log("source", "k", st.Index(), "name", st.Name, "layer", st.Layer, "position", st.Position)
	}
	return nil
}

// Tick refreshes the listener pose from the pose source and runs one update.
// If no usable pose is available the tick is skipped and nothing is sent.
func (s *Scheduler) Tick() ([]protocol.Message, error) {
	if s.Phase() != PhaseRunning {
		return nil, ErrNotRunning
	}
	p, err := s.opts.Poses.Current()
	if err != nil {
		s.stats.skipped.Add(1)
		debug.Log("tick skipped", "error", err)
		return nil, fmt.Errorf("session: tick skipped: %w", err)
	}
	return s.TickPose(p)
}

// TickPose runs one update for the given listener pose and returns the
// messages it emitted, in send order.
func (s *Scheduler) TickPose(p pose.Pose) ([]protocol.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseRunning {
		return nil, ErrNotRunning
	}

	c := s.ctx
	c.listener = p

	sources := c.registry.All()
	slope := s.cfg.RollOff()
	out := make([]protocol.Message, 0, len(sources)+1)
	for i, src := range sources {
		rel := spatial.Relative(p.Position, p.Heading, src.Position)
		c.relative[i] = rel
		out = append(out, protocol.NewPositionMessage(src.Index(), rel.X, rel.Z))

		if s.cfg.UseDistancedGain {
			c.gains[i] = spatial.Gain(rel.Distance, slope)
		}
	}
	if s.cfg.UseDistancedGain {
		out = append(out, protocol.NewDistancesMessage(c.gains))
	}

	for _, m := range out {
		s.send(m)
	}

	c.ticks++
	s.stats.ticks.Add(1)
	s.last = s.snapshotLocked()
	return out, nil
}

// Move repositions a source between ticks.
func (s *Scheduler) Move(id int, pos spatial.Vector3) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseRunning {
		return ErrNotRunning
	}
	return s.ctx.registry.Move(id, pos)
}

// Shutdown ends the session and sends /status 0. It is safe to call more
// than once and from several paths; only the first call sends anything.
// A session that never started ends silently.
func (s *Scheduler) Shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.phase {
	case PhaseEnded:
		return nil
	case PhaseIdle:
		s.phase = PhaseEnded
		return nil
	}

	s.send(protocol.NewStatusMessage(false))
	s.phase = PhaseEnded
	s.last = s.snapshotLocked()
	s.logger.Info("session ended",
		"session", s.ctx.id,
		"ticks", s.ctx.ticks,
		"duration", time.Since(s.ctx.started).Round(time.Millisecond))
	s.ctx = nil
	return nil
}

// send delivers one message. Failures are logged and counted, never fatal.
func (s *Scheduler) send(m protocol.Message) {
	debug.TraceMessage(m)
	if err := s.opts.Sender.Send(m); err != nil {
		s.stats.sendFailures.Add(1)
		s.logger.Warn("send failed", "address", m.Address, "error", err)
		return
	}
	s.stats.sent.Add(1)
}
