package spatial

import "math"

// Gain limits in dB.
const (
	// GainFloor is the quietest level ever sent to the renderer.
	GainFloor = -70.0

	// GainCeiling is the loudest level; the model only attenuates.
	GainCeiling = 0.0
)

// Roll-off settings in dB per metre.
const (
	// RollOffDefault is the configuration value meaning "use the default
	// slope". It must be resolved with EffectiveRollOff before use.
	RollOffDefault = -1.0

	// DefaultRollOffSlope is the slope applied when the roll-off is left at
	// RollOffDefault. The installation patch was tuned against -1 dB/m.
	DefaultRollOffSlope = -1.0
)

// EffectiveRollOff resolves the configured roll-off to the slope that is
// actually multiplied with distance.
func EffectiveRollOff(rollOff float64) float64 {
	if rollOff == RollOffDefault || math.IsNaN(rollOff) || math.IsInf(rollOff, 0) {
		return DefaultRollOffSlope
	}
	return rollOff
}

// Gain returns the linear-decay gain in dB for a source at distance metres,
// clamped to [GainFloor, GainCeiling].
func Gain(distance, rollOff float64) float64 {
	if distance < 0 || math.IsNaN(distance) {
		distance = 0
	}
	g := Clamp(distance*EffectiveRollOff(rollOff), GainFloor, GainCeiling)
	if g == 0 {
		return 0 // no negative zero on the wire
	}
	return g
}

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
