package session

import (
	"math"

	"github.com/teslashibe/go-soundfield/pkg/spatial"
)

// Ranges accepted by the renderer.
const (
	MinAmbientAperture = 90.0  // degrees
	MaxAmbientAperture = 180.0 // degrees
	MinBackgroundLevel = -72.0 // dB
	MaxBackgroundLevel = 0.0   // dB
)

// Config holds the spatial options for one session. It is read-only once
// the session has started.
type Config struct {
	// AutoDetect discovers sources at start instead of using the manual list.
	AutoDetect bool `yaml:"auto_detect" json:"auto_detect"`

	// UseObjectTrigger is reserved for /source/{k}/status. It has no effect.
	UseObjectTrigger bool `yaml:"use_object_trigger" json:"use_object_trigger"`

	// UseDistancedGain sends /distances every tick.
	UseDistancedGain bool `yaml:"use_distanced_gain" json:"use_distanced_gain"`

	// UseDopplerEffect enables doppler on every source at start.
	UseDopplerEffect bool `yaml:"use_doppler_effect" json:"use_doppler_effect"`

	// AmbientAperture is the spread of ambient sources in degrees [90, 180].
	AmbientAperture float64 `yaml:"ambient_aperture" json:"ambient_aperture"`

	// BackgroundLevel is the level of ambient sources in dB [-72, 0].
	BackgroundLevel float64 `yaml:"background_level" json:"background_level"`

	// GainRollOff is the distanced-gain slope in dB per metre.
	// spatial.RollOffDefault selects spatial.DefaultRollOffSlope.
	GainRollOff float64 `yaml:"gain_roll_off" json:"gain_roll_off"`
}

// DefaultConfig returns the configuration used by the installation.
func DefaultConfig() Config {
	return Config{
		AutoDetect:      true,
		AmbientAperture: MaxAmbientAperture, // Widest bed
		BackgroundLevel: -20,
		GainRollOff:     spatial.RollOffDefault,
	}
}

// Normalize clamps out-of-range values so later stages can trust them.
// It reports whether anything changed.
func (c *Config) Normalize() bool {
	before := *c
	def := DefaultConfig()

	if math.IsNaN(c.AmbientAperture) {
		c.AmbientAperture = def.AmbientAperture
	}
	if math.IsNaN(c.BackgroundLevel) {
		c.BackgroundLevel = def.BackgroundLevel
	}
	c.AmbientAperture = spatial.Clamp(c.AmbientAperture, MinAmbientAperture, MaxAmbientAperture)
	c.BackgroundLevel = spatial.Clamp(c.BackgroundLevel, MinBackgroundLevel, MaxBackgroundLevel)

	return before != *c
}

// RollOff returns the slope actually used for distanced gain.
func (c Config) RollOff() float64 {
	return spatial.EffectiveRollOff(c.GainRollOff)
}
