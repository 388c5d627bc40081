package rig

import "math"

// Limit bounds every axis of a bone's rotation, in radians.
type Limit struct {
	Min float64
	Max float64
}

// DefaultLimit applies to bones missing from the limit table.
var DefaultLimit = Limit{Min: -math.Pi, Max: math.Pi}

// Limits is the per-bone rotation clamp table. It is read-only shared data.
var Limits = map[string]Limit{
	Hips:   {-0.5, 0.5},
	Spine:  {-0.6, 0.6},
	Spine1: {-0.5, 0.5},
	Spine2: {-0.5, 0.5},
	Neck:   {-0.7, 0.7},
	Head:   {-0.9, 0.9},

	LeftShoulder:  {-0.6, 0.6},
	RightShoulder: {-0.6, 0.6},
	LeftArm:       {-2.6, 2.6},
	RightArm:      {-2.6, 2.6},
	LeftForeArm:   {-2.6, 2.6},
	RightForeArm:  {-2.6, 2.6},
	LeftHand:      {-1.2, 1.2},
	RightHand:     {-1.2, 1.2},

	LeftUpLeg:  {-1.6, 1.6},
	RightUpLeg: {-1.6, 1.6},
	LeftLeg:    {-2.4, 2.4},
	RightLeg:   {-2.4, 2.4},
	LeftFoot:   {-0.8, 0.8},
	RightFoot:  {-0.8, 0.8},

	LeftHandThumb1:   {-0.8, 1.2},
	LeftHandIndex1:   {-0.3, 1.6},
	LeftHandMiddle1:  {-0.3, 1.6},
	RightHandThumb1:  {-0.8, 1.2},
	RightHandIndex1:  {-0.3, 1.6},
	RightHandMiddle1: {-0.3, 1.6},
}

// LimitFor returns the clamp range of a bone.
func LimitFor(name string) Limit {
	if l, ok := Limits[name]; ok {
		return l
	}
	return DefaultLimit
}

func (l Limit) clamp(v float64) float64 {
	v = Finite(v)
	if v < l.Min {
		return l.Min
	}
	if v > l.Max {
		return l.Max
	}
	return v
}

// ClampRotation sanitizes non-finite components to zero and clamps every
// axis to the bone's limit.
func ClampRotation(name string, r Rotation) Rotation {
	l := LimitFor(name)
	return Rotation{X: l.clamp(r.X), Y: l.clamp(r.Y), Z: l.clamp(r.Z)}
}
