package web

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-soundfield/internal/log"
	"github.com/teslashibe/go-soundfield/pkg/pose"
	"github.com/teslashibe/go-soundfield/pkg/protocol"
	"github.com/teslashibe/go-soundfield/pkg/session"
	"github.com/teslashibe/go-soundfield/pkg/source"
	"github.com/teslashibe/go-soundfield/pkg/spatial"
	"github.com/teslashibe/go-soundfield/pkg/transport"
)

func newSession(t *testing.T, sender transport.Sender) *session.Scheduler {
	t.Helper()
	cfg := session.DefaultConfig()
	cfg.AutoDetect = false
	cfg.UseDistancedGain = true
	return session.New(cfg, session.Options{
		Sender: sender,
		Poses:  pose.NewManual(pose.Pose{}),
		Sources: []source.Source{
			{Name: "east", Position: spatial.Vec3(5, 0, 0)},
			{Name: "bed", Position: spatial.Vec3(0, 0, 5), Layer: source.LayerAmbient},
		},
		Logger: log.Discard(),
	})
}

func getJSON(t *testing.T, srv *Server, path string, v any) int {
	t.Helper()
	resp, err := srv.App().Test(httptest.NewRequest("GET", path, nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if v != nil {
		require.NoError(t, json.Unmarshal(body, v), string(body))
	}
	return resp.StatusCode
}

func TestStatusEndpoint(t *testing.T) {
	s := newSession(t, transport.NewRecorder())
	srv := NewServer(s)

	var idle Status
	assert.Equal(t, 200, getJSON(t, srv, "/api/status", &idle))
	assert.Equal(t, session.PhaseIdle, idle.Session.Phase)

	require.NoError(t, s.Start(context.Background()))
	_, err := s.Tick()
	require.NoError(t, err)

	var running Status
	assert.Equal(t, 200, getJSON(t, srv, "/api/status", &running))
	assert.Equal(t, session.PhaseRunning, running.Session.Phase)
	assert.EqualValues(t, 1, running.Stats.Ticks)
	require.Len(t, running.Session.Sources, 2)
	assert.InDelta(t, 5, running.Session.Sources[0].Relative.X, 1e-9)
	assert.InDelta(t, -5, running.Session.Sources[1].Gain, 1e-9)
}

func TestSourcesEndpoint(t *testing.T) {
	s := newSession(t, transport.NewRecorder())
	srv := NewServer(s)

	assert.Equal(t, 503, getJSON(t, srv, "/api/sources", nil))

	require.NoError(t, s.Start(context.Background()))
	var sources []session.SourceState
	assert.Equal(t, 200, getJSON(t, srv, "/api/sources", &sources))
	require.Len(t, sources, 2)
	assert.Equal(t, source.LayerAmbient, sources[1].Layer)
}

func TestConfigEndpoint(t *testing.T) {
	srv := NewServer(newSession(t, transport.NewRecorder()))

	var cfg session.Config
	assert.Equal(t, 200, getJSON(t, srv, "/api/config", &cfg))
	assert.True(t, cfg.UseDistancedGain)
	assert.Equal(t, spatial.RollOffDefault, cfg.GainRollOff)
}

func TestWebSocketRequiresUpgrade(t *testing.T) {
	srv := NewServer(newSession(t, transport.NewRecorder()))
	assert.Equal(t, 426, getJSON(t, srv, "/ws/messages", nil))
}

func TestMessagesStream(t *testing.T) {
	srv := NewServer(nil)
	s := newSession(t, transport.Multi{transport.NewRecorder(), srv})
	srv.provider = s

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go srv.Serve(ln)
	defer srv.Shutdown()

	url := "ws://" + ln.Addr().String() + "/ws/messages"
	var conn *websocket.Conn
	require.Eventually(t, func() bool {
		conn, _, err = websocket.DefaultDialer.Dial(url, nil)
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)
	defer conn.Close()

	require.Eventually(t, func() bool {
		return srv.messageHub.ClientCount() == 1
	}, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, s.Start(context.Background()))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got struct {
		Kind    protocol.Kind `json:"kind"`
		Address string        `json:"address"`
		Args    []float64     `json:"args"`
	}
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, protocol.KindStatus, got.Kind)
	assert.Equal(t, "/status", got.Address)
	assert.Equal(t, []float64{1}, got.Args)
}

func TestMessagesStreamFiltered(t *testing.T) {
	srv := NewServer(nil)
	s := newSession(t, srv)
	srv.provider = s

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go srv.Serve(ln)
	defer srv.Shutdown()

	url := "ws://" + ln.Addr().String() + "/ws/messages?address=/distances"
	var conn *websocket.Conn
	require.Eventually(t, func() bool {
		conn, _, err = websocket.DefaultDialer.Dial(url, nil)
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)
	defer conn.Close()

	require.Eventually(t, func() bool {
		return srv.messageHub.ClientCount() == 1
	}, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, s.Start(context.Background()))
	_, err = s.Tick()
	require.NoError(t, err)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got protocol.Message
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, protocol.AddrDistances, got.Address)
	assert.Len(t, got.Args, 2)
}

func TestClientsDisconnectCleanly(t *testing.T) {
	srv := NewServer(nil)
	s := newSession(t, srv)
	srv.provider = s
	require.NoError(t, s.Start(context.Background()))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go srv.Serve(ln)
	defer srv.Shutdown()

	base := "ws://" + ln.Addr().String()
	require.Eventually(t, func() bool {
		conn, _, err := websocket.DefaultDialer.Dial(base+"/ws/messages", nil)
		if err == nil {
			conn.Close()
		}
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)

	for i := 0; i < 50; i++ {
		for _, path := range []string{"/ws/messages", "/ws/status"} {
			conn, _, err := websocket.DefaultDialer.Dial(base+path, nil)
			require.NoError(t, err)
			_, err = s.Tick()
			require.NoError(t, err)
			require.NoError(t, srv.Send(protocol.NewStatusMessage(true)))
			conn.Close()
		}
	}

	require.Eventually(t, func() bool {
		return srv.messageHub.ClientCount() == 0 && srv.statusHub.ClientCount() == 0
	}, 5*time.Second, 10*time.Millisecond)
}
