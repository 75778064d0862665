package spatial

import "math"

// Degrees converts radians to degrees for logging/display.
func Degrees(radians float64) float64 {
	return radians * 180.0 / math.Pi
}

// Radians converts degrees to radians.
func Radians(degrees float64) float64 {
	return degrees * math.Pi / 180.0
}

// Bearing returns the signed angle in degrees from the planar offset d to
// the world +x axis, measured around +y with the right-hand rule. A source
// on +x has bearing 0, a source on +z has bearing +90.
//
// A zero planar offset has no direction; it reports 0.
func Bearing(d Vector3) float64 {
	if d.X == 0 && d.Z == 0 {
		return 0
	}
	return Degrees(math.Atan2(d.Z, d.X))
}

// WrapDegrees folds an angle into (-180, 180].
func WrapDegrees(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg <= -180 {
		deg += 360
	} else if deg > 180 {
		deg -= 360
	}
	return deg
}
