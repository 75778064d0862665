package spatial

import "math"

// RelativePosition is a source as seen from the listener, on the floor plane.
type RelativePosition struct {
	Distance float64 `json:"distance"` // 3D distance, metres
	Angle    float64 `json:"angle"`    // Radians, heading-compensated bearing
	X        float64 `json:"x"`        // Cartesian, listener frame
	Z        float64 `json:"z"`        // Cartesian, listener frame
}

// Vector returns the relative position as a Vector3 with y = 0.
func (r RelativePosition) Vector() Vector3 {
	return Vector3{X: r.X, Z: r.Z}
}

// Relative places source in the frame of a listener standing at listener
// with the given heading (degrees).
//
// The bearing is taken on the floor plane but the distance is the full 3D
// distance, so a source overhead still reads as near. The heading follows the
// tracker's yaw convention (clockwise seen from above) and is added to the
// counter-clockwise bearing, which cancels the listener's rotation.
func Relative(listener Vector3, heading float64, source Vector3) RelativePosition {
	offset := source.Sub(listener)
	distance := offset.Length()
	angle := Radians(heading + Bearing(offset.Flatten()))

	return RelativePosition{
		Distance: distance,
		Angle:    angle,
		X:        distance * math.Cos(angle),
		Z:        distance * math.Sin(angle),
	}
}
