package vmath

import (
	"math"
	"testing"
)

const eps = 1e-9

func near(a, b float64) bool {
	return math.Abs(a-b) <= eps
}

func TestQuatRotateQuarterTurn(t *testing.T) {
	q := QuatAxisAngle(OrbitAxis, math.Pi/2)
	got := QuatRotate(q, Vec3{1, 0, 0})
	// Right-handed rotation about +Y takes +X to -Z.
	if !near(got.X, 0) || !near(got.Y, 0) || !near(got.Z, -1) {
		t.Fatalf("unexpected rotation result %+v", got)
	}
}

func TestQuatMulComposesAngles(t *testing.T) {
	a := QuatAxisAngle(OrbitAxis, 0.3)
	b := QuatAxisAngle(OrbitAxis, 0.4)
	want := QuatAxisAngle(OrbitAxis, 0.7)
	got := QuatMul(a, b)
	if !near(got.W, want.W) || !near(got.X, want.X) || !near(got.Y, want.Y) || !near(got.Z, want.Z) {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}

func TestQuatRotatePreservesAxisDistance(t *testing.T) {
	v := Vec3{3, 2, -4}
	before := V3AxisDistance(v, OrbitAxis)
	for _, angle := range []float64{0, 0.01, 1, math.Pi, 17.5, -3} {
		got := QuatRotate(QuatAxisAngle(OrbitAxis, angle), v)
		if !near(V3AxisDistance(got, OrbitAxis), before) {
			t.Fatalf("angle %v changed axis distance: %v != %v", angle, V3AxisDistance(got, OrbitAxis), before)
		}
		if !near(got.Y, v.Y) {
			t.Fatalf("angle %v moved the point along the axis", angle)
		}
	}
}

func TestQuatNormalize(t *testing.T) {
	if QuatNormalize(Quat{}) != QuatIdentity {
		t.Fatalf("zero quaternion should normalize to identity")
	}
	q := QuatNormalize(Quat{W: 2, Y: 2})
	if !near(QuatNorm(q), 1) {
		t.Fatalf("expected unit norm, got %v", QuatNorm(q))
	}
}

func TestV3Normalize(t *testing.T) {
	if V3Normalize(Vec3{}) != (Vec3{}) {
		t.Fatalf("zero vector should stay zero")
	}
	if !near(V3Mag(V3Normalize(Vec3{3, 4, 0})), 1) {
		t.Fatalf("expected unit vector")
	}
}
