package vmath

import "math"

// Quat is a rotation quaternion W + Xi + Yj + Zk.
type Quat struct {
	W, X, Y, Z float64
}

// QuatIdentity is the rotation that leaves every vector unchanged.
var QuatIdentity = Quat{W: 1}

// QuatAxisAngle returns the rotation of angle radians about unit axis.
func QuatAxisAngle(axis Vec3, angle float64) Quat {
	s, c := math.Sincos(angle / 2)
	return Quat{W: c, X: axis.X * s, Y: axis.Y * s, Z: axis.Z * s}
}

// QuatMul returns a⊗b, the rotation b followed by a.
func QuatMul(a, b Quat) Quat {
	return Quat{
		W: a.W*b.W - a.X*b.X - a.Y*b.Y - a.Z*b.Z,
		X: a.W*b.X + a.X*b.W + a.Y*b.Z - a.Z*b.Y,
		Y: a.W*b.Y - a.X*b.Z + a.Y*b.W + a.Z*b.X,
		Z: a.W*b.Z + a.X*b.Y - a.Y*b.X + a.Z*b.W,
	}
}

func QuatNorm(q Quat) float64 {
	return math.Sqrt(q.W*q.W + q.X*q.X + q.Y*q.Y + q.Z*q.Z)
}

// QuatNormalize rescales q to unit length; the zero quaternion becomes identity.
func QuatNormalize(q Quat) Quat {
	n := QuatNorm(q)
	if n == 0 {
		return QuatIdentity
	}
	inv := 1 / n
	return Quat{q.W * inv, q.X * inv, q.Y * inv, q.Z * inv}
}

// QuatRotate applies unit quaternion q to v.
func QuatRotate(q Quat, v Vec3) Vec3 {
	// v' = v + 2w(u×v) + 2u×(u×v), u = (x, y, z)
	u := Vec3{q.X, q.Y, q.Z}
	t := V3Scale(V3Cross(u, v), 2)
	return V3Add(V3Add(v, V3Scale(t, q.W)), V3Cross(u, t))
}
