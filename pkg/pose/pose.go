// Package pose supplies the listener's position and heading each tick.
package pose

import (
	"errors"
	"sync"
	"time"

	"github.com/teslashibe/go-soundfield/pkg/spatial"
)

// Sentinel errors for common error conditions.
var (
	// ErrNoPose is returned before the first pose has arrived.
	ErrNoPose = errors.New("pose: no pose received yet")

	// ErrStale is returned when the latest pose is older than the allowed age.
	ErrStale = errors.New("pose: pose is stale")
)

// Pose is the listener's world position and heading in degrees.
type Pose struct {
	Position spatial.Vector3 `json:"position"`
	Heading  float64         `json:"heading"`
}

// Source provides the current listener pose. Current must not block.
type Source interface {
	Current() (Pose, error)
}

// Data is the JSON form of a pose as sent by the tracking system.
type Data struct {
	X   float64 `json:"x"`
	Y   float64 `json:"y"`
	Z   float64 `json:"z"`
	Yaw float64 `json:"yaw"` // Degrees
}

// Pose converts the wire form.
func (d Data) Pose() Pose {
	return Pose{Position: spatial.Vec3(d.X, d.Y, d.Z), Heading: d.Yaw}
}

// Manual is a pose set directly by the caller. The zero value has no pose.
type Manual struct {
	mu   sync.RWMutex
	pose Pose
	set  bool
}

// NewManual returns a Manual already holding p.
func NewManual(p Pose) *Manual {
	return &Manual{pose: p, set: true}
}

// Set replaces the pose.
func (m *Manual) Set(p Pose) {
	m.mu.Lock()
	m.pose, m.set = p, true
	m.mu.Unlock()
}

// Current implements Source.
func (m *Manual) Current() (Pose, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.set {
		return Pose{}, ErrNoPose
	}
	return m.pose, nil
}

// latest holds the most recent pose from a background reader.
type latest struct {
	mu     sync.RWMutex
	pose   Pose
	at     time.Time
	maxAge time.Duration
}

func (l *latest) store(p Pose) {
	l.mu.Lock()
	l.pose, l.at = p, time.Now()
	l.mu.Unlock()
}

func (l *latest) current() (Pose, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.at.IsZero() {
		return Pose{}, ErrNoPose
	}
	if l.maxAge > 0 && time.Since(l.at) > l.maxAge {
		return l.pose, ErrStale
	}
	return l.pose, nil
}
