// Package vmath holds the float64 vector and quaternion helpers used by orbit integration.
package vmath

import "math"

// Vec3 is a float64 3D vector.
type Vec3 struct {
	X, Y, Z float64
}

// OrbitAxis is the fixed reference axis every orbit rotates about.
var OrbitAxis = Vec3{0, 1, 0}

func V3Add(a, b Vec3) Vec3 {
	return Vec3{a.X + b.X, a.Y + b.Y, a.Z + b.Z}
}

func V3Sub(a, b Vec3) Vec3 {
	return Vec3{a.X - b.X, a.Y - b.Y, a.Z - b.Z}
}

func V3Scale(v Vec3, s float64) Vec3 {
	return Vec3{v.X * s, v.Y * s, v.Z * s}
}

func V3Dot(a, b Vec3) float64 {
	return a.X*b.X + a.Y*b.Y + a.Z*b.Z
}

func V3Cross(a, b Vec3) Vec3 {
	return Vec3{
		a.Y*b.Z - a.Z*b.Y,
		a.Z*b.X - a.X*b.Z,
		a.X*b.Y - a.Y*b.X,
	}
}

func V3MagSq(v Vec3) float64 {
	return V3Dot(v, v)
}

func V3Mag(v Vec3) float64 {
	return math.Sqrt(V3MagSq(v))
}

func V3Normalize(v Vec3) Vec3 {
	mag := V3Mag(v)
	if mag == 0 {
		return Vec3{}
	}
	return V3Scale(v, 1/mag)
}

// V3AxisDistance returns the distance of v from the line through the origin along unit axis.
func V3AxisDistance(v, axis Vec3) float64 {
	along := V3Scale(axis, V3Dot(v, axis))
	return V3Mag(V3Sub(v, along))
}
