package session

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-soundfield/internal/log"
	"github.com/teslashibe/go-soundfield/pkg/pose"
	"github.com/teslashibe/go-soundfield/pkg/protocol"
	"github.com/teslashibe/go-soundfield/pkg/source"
	"github.com/teslashibe/go-soundfield/pkg/spatial"
	"github.com/teslashibe/go-soundfield/pkg/transport"
)

var approx = cmpopts.EquateApprox(0, 1e-5)

func twoSources() []source.Source {
	return []source.Source{
		{Name: "east", Position: spatial.Vec3(5, 0, 0)},
		{Name: "north", Position: spatial.Vec3(0, 0, 5)},
	}
}

type fixture struct {
	rec   *transport.Recorder
	poses *pose.Manual
	s     *Scheduler
}

func newFixture(t *testing.T, cfg Config, sources []source.Source) *fixture {
	t.Helper()
	f := &fixture{
		rec:   transport.NewRecorder(),
		poses: pose.NewManual(pose.Pose{}),
	}
	cfg.AutoDetect = false
	f.s = New(cfg, Options{
		Sender:  f.rec,
		Poses:   f.poses,
		Sources: sources,
		Logger:  log.Discard(),
	})
	return f
}

func TestSession_EndToEnd(t *testing.T) {
	cfg := DefaultConfig()
	cfg.UseDistancedGain = true
	cfg.GainRollOff = -1
	f := newFixture(t, cfg, twoSources())

	require.NoError(t, f.s.Start(context.Background()))
	msgs, err := f.s.Tick()
	require.NoError(t, err)

	want := []protocol.Message{
		protocol.NewPositionMessage(1, 5, 0),
		protocol.NewPositionMessage(2, 0, 5),
		protocol.NewDistancesMessage([]float64{-5, -5}),
	}
	if diff := cmp.Diff(want, msgs, approx); diff != "" {
		t.Errorf("tick messages mismatch (-want +got):\n%s", diff)
	}

	require.NoError(t, f.s.Shutdown())

	all := f.rec.Messages()
	wantAll := append([]protocol.Message{protocol.NewStatusMessage(true)}, want...)
	wantAll = append(wantAll, protocol.NewStatusMessage(false))
	if diff := cmp.Diff(wantAll, all, approx); diff != "" {
		t.Errorf("session messages mismatch (-want +got):\n%s", diff)
	}
}

func TestStart_OneTimeSourceSetup(t *testing.T) {
	cfg := DefaultConfig()
	cfg.UseDopplerEffect = true
	cfg.AmbientAperture = 120
	cfg.BackgroundLevel = -30
	sources := []source.Source{
		{Name: "bell", Position: spatial.Vec3(1, 0, 0)},
		{Name: "rain", Position: spatial.Vec3(0, 0, 1), Layer: source.LayerAmbient},
	}
	f := newFixture(t, cfg, sources)

	require.NoError(t, f.s.Start(context.Background()))

	want := []protocol.Message{
		protocol.NewStatusMessage(true),
		protocol.NewDopplerMessage(1),
		protocol.NewDopplerMessage(2),
		protocol.NewApertureMessage(2, 120),
		protocol.NewBackgroundMessage(2, -30),
	}
	if diff := cmp.Diff(want, f.rec.Messages()); diff != "" {
		t.Errorf("start messages mismatch (-want +got):\n%s", diff)
	}

	// Ticks never repeat the setup.
	for i := 0; i < 3; i++ {
		_, err := f.s.Tick()
		require.NoError(t, err)
	}
	assert.Equal(t, 1, f.rec.Count("/source/1/doppler"))
	assert.Equal(t, 1, f.rec.Count("/source/2/doppler"))
	assert.Equal(t, 1, f.rec.Count("/src/2/gain"))
	assert.Equal(t, 1, f.rec.Count("/status"))
}

func TestStart_NoDopplerNoAmbient(t *testing.T) {
	f := newFixture(t, DefaultConfig(), twoSources())

	require.NoError(t, f.s.Start(context.Background()))
	assert.Equal(t, []protocol.Message{protocol.NewStatusMessage(true)}, f.rec.Messages())
}

func TestStart_ClampsConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AmbientAperture = 45
	cfg.BackgroundLevel = -100
	f := newFixture(t, cfg, []source.Source{{Name: "bed", Layer: source.LayerAmbient}})

	require.NoError(t, f.s.Start(context.Background()))

	aperture := f.rec.ByAddress("/source/1/aperture")
	require.Len(t, aperture, 1)
	assert.Equal(t, []any{float32(90)}, aperture[0].Args)

	background := f.rec.ByAddress("/src/1/gain")
	require.Len(t, background, 1)
	assert.Equal(t, []any{float32(-72)}, background[0].Args)
}

func TestStart_FailsFast(t *testing.T) {
	t.Run("no pose source", func(t *testing.T) {
		rec := transport.NewRecorder()
		s := New(DefaultConfig(), Options{Sender: rec, Sources: twoSources(), Logger: log.Discard()})

		assert.ErrorIs(t, s.Start(context.Background()), ErrNoPoseSource)
		assert.Empty(t, rec.Messages())
		assert.Equal(t, PhaseIdle, s.Phase())
	})

	t.Run("no sender", func(t *testing.T) {
		s := New(DefaultConfig(), Options{Poses: &pose.Manual{}, Sources: twoSources(), Logger: log.Discard()})
		assert.ErrorIs(t, s.Start(context.Background()), ErrNoSender)
	})

	t.Run("empty manual sources", func(t *testing.T) {
		f := newFixture(t, DefaultConfig(), nil)
		assert.ErrorIs(t, f.s.Start(context.Background()), ErrNoSources)
		assert.Empty(t, f.rec.Messages())
	})

	t.Run("discovery finds nothing", func(t *testing.T) {
		rec := transport.NewRecorder()
		s := New(DefaultConfig(), Options{
			Sender:     rec,
			Poses:      &pose.Manual{},
			Discoverer: source.Static(nil),
			Logger:     log.Discard(),
		})
		assert.ErrorIs(t, s.Start(context.Background()), ErrNoSources)
		assert.Empty(t, rec.Messages())
	})

	t.Run("discovery error", func(t *testing.T) {
		boom := errors.New("scene offline")
		s := New(DefaultConfig(), Options{
			Sender: transport.NewRecorder(),
			Poses:  &pose.Manual{},
			Discoverer: source.DiscovererFunc(func(context.Context) ([]source.Source, error) {
				return nil, boom
			}),
			Logger: log.Discard(),
		})
		assert.ErrorIs(t, s.Start(context.Background()), boom)
	})
}

func TestStart_AutoDetect(t *testing.T) {
	rec := transport.NewRecorder()
	s := New(DefaultConfig(), Options{
		Sender:     rec,
		Poses:      pose.NewManual(pose.Pose{}),
		Discoverer: source.Static(twoSources()),
		Sources:    []source.Source{{Name: "ignored"}},
		Logger:     log.Discard(),
	})

	require.NoError(t, s.Start(context.Background()))
	msgs, err := s.Tick()
	require.NoError(t, err)
	assert.Len(t, msgs, 2)
}

func TestStart_Twice(t *testing.T) {
	f := newFixture(t, DefaultConfig(), twoSources())
	require.NoError(t, f.s.Start(context.Background()))
	assert.ErrorIs(t, f.s.Start(context.Background()), ErrAlreadyStarted)
	assert.Equal(t, 1, f.rec.Count("/status"))
}

func TestTick_RequiresRunningSession(t *testing.T) {
	f := newFixture(t, DefaultConfig(), twoSources())

	_, err := f.s.Tick()
	assert.ErrorIs(t, err, ErrNotRunning)

	require.NoError(t, f.s.Start(context.Background()))
	require.NoError(t, f.s.Shutdown())

	_, err = f.s.Tick()
	assert.ErrorIs(t, err, ErrNotRunning)
	_, err = f.s.TickPose(pose.Pose{})
	assert.ErrorIs(t, err, ErrNotRunning)
}

func TestTick_SkipsWithoutPose(t *testing.T) {
	rec := transport.NewRecorder()
	cfg := DefaultConfig()
	cfg.AutoDetect = false
	s := New(cfg, Options{
		Sender:  rec,
		Poses:   &pose.Manual{}, // Nothing set yet
		Sources: twoSources(),
		Logger:  log.Discard(),
	})
	require.NoError(t, s.Start(context.Background()))
	rec.Reset()

	msgs, err := s.Tick()
	assert.ErrorIs(t, err, pose.ErrNoPose)
	assert.Empty(t, msgs)
	assert.Empty(t, rec.Messages(), "no geometry is sent without a fresh pose")
	assert.EqualValues(t, 1, s.Stats().SkippedTicks)
}

func TestTick_UsesCurrentPose(t *testing.T) {
	f := newFixture(t, DefaultConfig(), twoSources())
	require.NoError(t, f.s.Start(context.Background()))

	f.poses.Set(pose.Pose{Heading: 90})
	msgs, err := f.s.Tick()
	require.NoError(t, err)

	// Source on +x is at bearing 0; a 90° heading moves it to +z.
	want := []protocol.Message{
		protocol.NewPositionMessage(1, 0, 5),
		protocol.NewPositionMessage(2, -5, 0),
	}
	if diff := cmp.Diff(want, msgs, approx); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestTick_FollowsMovedSource(t *testing.T) {
	f := newFixture(t, DefaultConfig(), twoSources())
	require.NoError(t, f.s.Start(context.Background()))

	require.NoError(t, f.s.Move(0, spatial.Vec3(-3, 0, 0)))
	msgs, err := f.s.Tick()
	require.NoError(t, err)

	if diff := cmp.Diff(protocol.NewPositionMessage(1, -3, 0), msgs[0], approx); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
	assert.Error(t, f.s.Move(5, spatial.Vector3{}))
}

func TestTick_DistancedGainClamped(t *testing.T) {
	cfg := DefaultConfig()
	cfg.UseDistancedGain = true
	f := newFixture(t, cfg, []source.Source{
		{Name: "near", Position: spatial.Vec3(0, 0, 0)},
		{Name: "far", Position: spatial.Vec3(100, 0, 0)},
	})
	require.NoError(t, f.s.Start(context.Background()))

	msgs, err := f.s.Tick()
	require.NoError(t, err)
	require.Len(t, msgs, 3)

	last := msgs[2]
	assert.Equal(t, "/distances", last.Address)
	assert.Equal(t, []any{float32(0), float32(-70)}, last.Args)
}

func TestTick_DistancedGainUsesResolvedRollOff(t *testing.T) {
	tests := []struct {
		name    string
		rollOff float64
		want    float32
	}{
		{"sentinel", spatial.RollOffDefault, -5},
		{"steeper", -2, -10},
		{"nan", math.NaN(), -5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.UseDistancedGain = true
			cfg.GainRollOff = tt.rollOff
			f := newFixture(t, cfg, []source.Source{{Name: "east", Position: spatial.Vec3(5, 0, 0)}})
			require.NoError(t, f.s.Start(context.Background()))

			msgs, err := f.s.Tick()
			require.NoError(t, err)
			require.Len(t, msgs, 2)
			assert.Equal(t, []any{tt.want}, msgs[1].Args)
		})
	}
}

func TestTick_SendFailureIsNotFatal(t *testing.T) {
	f := newFixture(t, DefaultConfig(), twoSources())
	require.NoError(t, f.s.Start(context.Background()))

	f.rec.Reset()
	f.rec.SendFunc = func(protocol.Message) error { return errors.New("network unreachable") }

	msgs, err := f.s.Tick()
	require.NoError(t, err)
	assert.Len(t, msgs, 2)
	assert.Len(t, f.rec.Messages(), 2, "every message is still attempted")
	assert.EqualValues(t, 2, f.s.Stats().SendFailures)
}

func TestShutdown_SendsStopOnce(t *testing.T) {
	f := newFixture(t, DefaultConfig(), twoSources())
	require.NoError(t, f.s.Start(context.Background()))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.s.Shutdown()
		}()
	}
	wg.Wait()
	require.NoError(t, f.s.Shutdown())

	stops := f.rec.ByAddress("/status")
	require.Len(t, stops, 2)
	assert.Equal(t, protocol.NewStatusMessage(true), stops[0])
	assert.Equal(t, protocol.NewStatusMessage(false), stops[1])
	assert.Equal(t, PhaseEnded, f.s.Phase())
}

func TestShutdown_BeforeStart(t *testing.T) {
	f := newFixture(t, DefaultConfig(), twoSources())

	require.NoError(t, f.s.Shutdown())
	assert.Empty(t, f.rec.Messages())
	assert.ErrorIs(t, f.s.Start(context.Background()), ErrEnded)
}

func TestSnapshot(t *testing.T) {
	cfg := DefaultConfig()
	cfg.UseDistancedGain = true
	f := newFixture(t, cfg, twoSources())

	assert.Equal(t, PhaseIdle, f.s.Snapshot().Phase)

	require.NoError(t, f.s.Start(context.Background()))
	f.poses.Set(pose.Pose{Position: spatial.Vec3(1, 0, 0)})
	_, err := f.s.Tick()
	require.NoError(t, err)

	snap := f.s.Snapshot()
	assert.Equal(t, PhaseRunning, snap.Phase)
	assert.NotEmpty(t, snap.ID)
	assert.EqualValues(t, 1, snap.Ticks)
	require.Len(t, snap.Sources, 2)
	assert.InDelta(t, 4, snap.Sources[0].Relative.Distance, 1e-9)
	assert.InDelta(t, -4, snap.Sources[0].Gain, 1e-9)
	assert.Equal(t, "north", snap.Sources[1].Name)

	require.NoError(t, f.s.Shutdown())
	ended := f.s.Snapshot()
	assert.Equal(t, PhaseEnded, ended.Phase)
	assert.Equal(t, snap.ID, ended.ID, "last view is kept for the monitor")
}

func TestRun_LifecycleAndCancellation(t *testing.T) {
	f := newFixture(t, DefaultConfig(), twoSources())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Run(ctx, f.s, 5*time.Millisecond) }()

	require.Eventually(t, func() bool {
		return f.rec.Count("/source/2/xy") >= 3
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	// A second, deferred shutdown from the host changes nothing.
	require.NoError(t, f.s.Shutdown())

	assert.Equal(t, PhaseEnded, f.s.Phase())
	status := f.rec.ByAddress("/status")
	require.Len(t, status, 2)
	assert.Equal(t, []any{protocol.StatusStart}, status[0].Args)
	assert.Equal(t, []any{protocol.StatusStop}, status[1].Args)

	all := f.rec.Messages()
	assert.Equal(t, "/status", all[len(all)-1].Address, "nothing follows the stop message")
}

func TestRun_StartError(t *testing.T) {
	s := New(DefaultConfig(), Options{Sender: transport.NewRecorder(), Logger: log.Discard()})
	assert.ErrorIs(t, Run(context.Background(), s, time.Millisecond), ErrNoPoseSource)
}
