// Package spatial provides the listener-relative geometry used to place
// sound sources around a tracked listener.
//
// World space follows the tracking system: y is up, x and z span the floor.
// Headings are degrees about the vertical axis.
package spatial

import "math"

// Vector3 is a point or offset in world space (metres).
type Vector3 struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
}

// Vec3 is shorthand for building a Vector3.
func Vec3(x, y, z float64) Vector3 {
	return Vector3{X: x, Y: y, Z: z}
}

// Sub returns v - o.
func (v Vector3) Sub(o Vector3) Vector3 {
	return Vector3{X: v.X - o.X, Y: v.Y - o.Y, Z: v.Z - o.Z}
}

// Add returns v + o.
func (v Vector3) Add(o Vector3) Vector3 {
	return Vector3{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z}
}

// Length returns the Euclidean norm.
func (v Vector3) Length() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Flatten drops the vertical component.
func (v Vector3) Flatten() Vector3 {
	return Vector3{X: v.X, Z: v.Z}
}

// Distance returns the 3D distance between two points.
func Distance(a, b Vector3) float64 {
	return b.Sub(a).Length()
}
