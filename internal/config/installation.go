// Package config loads the installation file for go-soundfield commands.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/teslashibe/go-soundfield/pkg/pose"
	"github.com/teslashibe/go-soundfield/pkg/session"
	"github.com/teslashibe/go-soundfield/pkg/source"
	"github.com/teslashibe/go-soundfield/pkg/transport"
)

// Defaults for an installation without a config file.
const (
	DefaultTickRate    = 60 // Hz
	DefaultMonitorAddr = ":8080"
	DefaultLogLevel    = "info"
)

// Installation is everything needed to run the service in one room.
type Installation struct {
	LogLevel string `yaml:"log_level"`

	// TickRate is the update frequency in Hz.
	TickRate int `yaml:"tick_rate"`

	Renderer transport.Config `yaml:"renderer"`
	Spatial  session.Config   `yaml:"spatial"`

	// Sources is the manual source list, used when auto-detect is off.
	Sources []source.Source `yaml:"sources"`

	// Scene drives auto-detect.
	Scene SceneConfig `yaml:"scene"`

	Pose PoseConfig `yaml:"pose"`

	// MonitorAddr is where the live monitor listens. Empty disables it.
	MonitorAddr string `yaml:"monitor_addr"`
}

// SceneConfig points at the scene description used for auto-detect.
type SceneConfig struct {
	Path       string `yaml:"path"`
	MarkerTag  string `yaml:"marker_tag"`
	AmbientTag string `yaml:"ambient_tag"`
}

// PoseConfig selects where the listener pose comes from.
// Exactly one of FeedURL and PollURL is expected.
type PoseConfig struct {
	FeedURL      string        `yaml:"feed_url"`
	PollURL      string        `yaml:"poll_url"`
	PollInterval time.Duration `yaml:"poll_interval"`
	MaxAge       time.Duration `yaml:"max_age"`
}

// Default returns an installation with the built-in defaults.
func Default() Installation {
	feed := pose.DefaultFeedConfig()
	return Installation{
		LogLevel:    DefaultLogLevel,
		TickRate:    DefaultTickRate,
		Renderer:    transport.DefaultConfig(),
		Spatial:     session.DefaultConfig(),
		Scene:       SceneConfig{MarkerTag: source.DefaultMarkerTag, AmbientTag: source.DefaultAmbientTag},
		Pose:        PoseConfig{MaxAge: feed.MaxAge, PollInterval: 20 * time.Millisecond},
		MonitorAddr: DefaultMonitorAddr,
	}
}

// Load reads a YAML installation file over the defaults. An empty path
// returns the defaults.
func Load(path string) (Installation, error) {
	inst := Default()
	if path == "" {
		return inst, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return inst, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &inst); err != nil {
		return inst, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return inst, nil
}

// ApplyEnv overrides fields from environment variables.
func (i *Installation) ApplyEnv() error {
	if host := os.Getenv("RENDERER_HOST"); host != "" {
		i.Renderer.Host = host
	}
	if port := os.Getenv("RENDERER_PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return &Error{Field: "RENDERER_PORT", Message: fmt.Sprintf("not a port: %q", port)}
		}
		i.Renderer.Port = p
	}
	if url := os.Getenv("POSE_URL"); url != "" {
		i.Pose.FeedURL, i.Pose.PollURL = url, ""
	}
	if addr, ok := os.LookupEnv("MONITOR_ADDR"); ok {
		i.MonitorAddr = addr
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		i.LogLevel = level
	}
	return nil
}

// Validate checks that required configuration is present.
func (i *Installation) Validate() error {
	if err := i.Renderer.Validate(); err != nil {
		return &Error{Field: "renderer", Message: err.Error()}
	}
	if i.TickRate <= 0 || i.TickRate > 1000 {
		return &Error{Field: "tick_rate", Message: fmt.Sprintf("must be 1-1000 Hz, got %d", i.TickRate)}
	}
	if i.Spatial.AutoDetect && i.Scene.Path == "" {
		return &Error{Field: "scene.path", Message: "auto-detect needs a scene file"}
	}
	if !i.Spatial.AutoDetect && len(i.Sources) == 0 {
		return &Error{Field: "sources", Message: "manual mode needs at least one source"}
	}
	if i.Pose.FeedURL == "" && i.Pose.PollURL == "" {
		return &Error{Field: "pose", Message: "a listener pose feed_url or poll_url is required"}
	}
	return nil
}

// TickInterval converts the tick rate to a duration.
func (i *Installation) TickInterval() time.Duration {
	if i.TickRate <= 0 {
		return session.DefaultTickInterval
	}
	return time.Second / time.Duration(i.TickRate)
}

// Discoverer returns the scene-file discoverer for auto-detect.
func (i *Installation) Discoverer() source.Discoverer {
	return source.SceneFile{
		Path:       i.Scene.Path,
		MarkerTag:  i.Scene.MarkerTag,
		AmbientTag: i.Scene.AmbientTag,
	}
}

// Error represents a configuration validation error.
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}
