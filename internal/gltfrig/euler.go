package gltfrig

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/normanking/cortexrig/internal/rig"
)

// toQuat converts an XYZ-order Euler rotation to a glTF quaternion (x, y, z, w).
func toQuat(r rig.Rotation) [4]float64 {
	q := mgl64.AnglesToQuat(r.X, r.Y, r.Z, mgl64.XYZ).Normalize()
	return [4]float64{q.V[0], q.V[1], q.V[2], q.W}
}

// toEuler converts a glTF quaternion to XYZ-order Euler angles. A zero
// quaternion is read as identity.
func toEuler(v [4]float64) rig.Rotation {
	q := mgl64.Quat{W: v[3], V: mgl64.Vec3{v[0], v[1], v[2]}}
	if q.Len() == 0 {
		return rig.Rotation{}
	}
	m := q.Normalize().Mat4().Mat3()

	m13 := clampUnit(m.At(0, 2))
	out := rig.Rotation{Y: math.Asin(m13)}
	if math.Abs(m13) < 0.9999999 {
		out.X = math.Atan2(-m.At(1, 2), m.At(2, 2))
		out.Z = math.Atan2(-m.At(0, 1), m.At(0, 0))
	} else {
		out.X = math.Atan2(m.At(2, 1), m.At(1, 1))
	}
	return out
}

func clampUnit(v float64) float64 {
	return math.Max(-1, math.Min(1, v))
}
