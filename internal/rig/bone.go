// Package rig holds the bone transform model shared by every animation layer:
// Euler rotations, bone maps, the per-bone rotation limits, bone resolution
// against a host skeleton and the blend primitives used to write results.
package rig

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Rotation is a bone's local rotation as XYZ Euler angles in radians.
type Rotation struct {
	X float64 `yaml:"x" json:"x"`
	Y float64 `yaml:"y" json:"y"`
	Z float64 `yaml:"z" json:"z"`
}

func (r Rotation) Add(o Rotation) Rotation {
	return Rotation{X: r.X + o.X, Y: r.Y + o.Y, Z: r.Z + o.Z}
}

func (r Rotation) Sub(o Rotation) Rotation {
	return Rotation{X: r.X - o.X, Y: r.Y - o.Y, Z: r.Z - o.Z}
}

func (r Rotation) Scale(s float64) Rotation {
	return Rotation{X: r.X * s, Y: r.Y * s, Z: r.Z * s}
}

// Lerp interpolates per axis. t is not clamped.
func (r Rotation) Lerp(to Rotation, t float64) Rotation {
	return Rotation{
		X: r.X + (to.X-r.X)*t,
		Y: r.Y + (to.Y-r.Y)*t,
		Z: r.Z + (to.Z-r.Z)*t,
	}
}

func (r Rotation) IsFinite() bool {
	return finite(r.X) && finite(r.Y) && finite(r.Z)
}

// Sanitize replaces NaN and infinite components with zero.
func (r Rotation) Sanitize() Rotation {
	return Rotation{X: Finite(r.X), Y: Finite(r.Y), Z: Finite(r.Z)}
}

// MaxAbs returns the largest absolute component.
func (r Rotation) MaxAbs() float64 {
	return math.Max(math.Abs(r.X), math.Max(math.Abs(r.Y), math.Abs(r.Z)))
}

// BoneState is a bone's transform. Position is rarely used; layers work on
// Rotation.
type BoneState struct {
	Rotation Rotation    `yaml:",inline" json:"rotation"`
	Position *mgl64.Vec3 `yaml:"-" json:"position,omitempty"`
}

// BoneMap maps canonical bone names to their state for one layer or frame.
type BoneMap map[string]BoneState

// Set stores a rotation, keeping any position already present.
func (m BoneMap) Set(name string, r Rotation) {
	st := m[name]
	st.Rotation = r
	m[name] = st
}

// Rotation returns the rotation for name.
func (m BoneMap) Rotation(name string) (Rotation, bool) {
	st, ok := m[name]
	return st.Rotation, ok
}

// AddRotation adds r to the existing rotation of name (zero if absent).
func (m BoneMap) AddRotation(name string, r Rotation) {
	st := m[name]
	st.Rotation = st.Rotation.Add(r)
	m[name] = st
}

// Clone returns a copy that shares no position pointers with m.
func (m BoneMap) Clone() BoneMap {
	out := make(BoneMap, len(m))
	for name, st := range m {
		if st.Position != nil {
			p := *st.Position
			st.Position = &p
		}
		out[name] = st
	}
	return out
}

// Finite returns v, or 0 when v is NaN or infinite.
func Finite(v float64) float64 {
	if !finite(v) {
		return 0
	}
	return v
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
