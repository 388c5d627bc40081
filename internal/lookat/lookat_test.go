package lookat

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/normanking/cortexrig/internal/motion"
	"github.com/normanking/cortexrig/internal/rig"
)

const frame = 1.0 / 60

func run(l *Layer, from float64, frames int) float64 {
	now := from
	for i := 0; i < frames; i++ {
		now += frame
		l.Update(now, frame)
	}
	return now
}

func TestAngles(t *testing.T) {
	l := New(DefaultConfig(), nil)

	tests := []struct {
		name   string
		target mgl64.Vec3
		facing float64
		want   Angles
	}{
		{"straight ahead", mgl64.Vec3{0, 1.6, 5}, 0, Angles{}},
		{"left diagonal", mgl64.Vec3{1, 1.6, 1}, 0, Angles{Yaw: math.Pi / 4}},
		{"facing the target", mgl64.Vec3{1, 1.6, 1}, math.Pi / 4, Angles{}},
		{"above", mgl64.Vec3{0, 2.6, 1}, 0, Angles{Pitch: 0.5}},
		{"behind clamps", mgl64.Vec3{0.1, 1.6, -5}, 0, Angles{Yaw: 1.0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l.SetPlacement(mgl64.Vec3{}, tt.facing)
			got := l.Angles(tt.target)
			assert.InDelta(t, tt.want.Yaw, got.Yaw, 1e-9)
			assert.InDelta(t, tt.want.Pitch, got.Pitch, 1e-9)
		})
	}
}

func TestHeadNeckSplit(t *testing.T) {
	l := New(DefaultConfig(), nil)
	target := mgl64.Vec3{1, 1.6, 1}
	l.SetTarget(&target)
	run(l, 0, 600)

	yaw := math.Pi / 4
	assert.InDelta(t, 0.7*yaw, l.HeadOffset().Y, 1e-6)
	assert.InDelta(t, 0.3*yaw, l.NeckOffset().Y, 1e-6)
	assert.InDelta(t, yaw, l.Eyes().Yaw, 1e-6)
}

func TestEyesLeadHead(t *testing.T) {
	l := New(DefaultConfig(), nil)
	target := mgl64.Vec3{1, 1.6, 1}
	l.SetTarget(&target)
	run(l, 0, 6)

	yaw := math.Pi / 4
	eyeProgress := l.Eyes().Yaw / yaw
	headProgress := l.HeadOffset().Y / (0.7 * yaw)
	assert.Greater(t, eyeProgress, 0.8)
	assert.Less(t, headProgress, eyeProgress)
}

func TestHeadOvershootsOnQuickChange(t *testing.T) {
	l := New(DefaultConfig(), nil)
	target := mgl64.Vec3{1, 1.6, 1}
	l.SetTarget(&target)

	goal := 0.7 * math.Pi / 4
	var peak float64
	now := 0.0
	for i := 0; i < 300; i++ {
		now = run(l, now, 1)
		peak = math.Max(peak, l.HeadOffset().Y)
	}
	assert.Greater(t, peak, goal, "head spring is under-damped")
}

func TestReleaseReturnsToBasePose(t *testing.T) {
	l := New(DefaultConfig(), nil)
	target := mgl64.Vec3{-2, 2.5, 1}
	l.SetTarget(&target)
	now := run(l, 0, 120)
	require.True(t, l.Active())

	l.SetTarget(nil)
	run(l, now, 900)
	assert.False(t, l.Active())

	base := rig.BoneMap{
		rig.Head: {Rotation: rig.Rotation{X: 0.1, Y: -0.05}},
		rig.Neck: {Rotation: rig.Rotation{Z: 0.02}},
	}
	out := base.Clone()
	l.Apply(out)
	for _, bone := range []string{rig.Head, rig.Neck} {
		got, _ := out.Rotation(bone)
		want, _ := base.Rotation(bone)
		assert.InDelta(t, want.X, got.X, 1e-4, bone)
		assert.InDelta(t, want.Y, got.Y, 1e-4, bone)
		assert.InDelta(t, want.Z, got.Z, 1e-4, bone)
	}
	for _, m := range EyeMorphs {
		assert.InDelta(t, 0, l.Morphs()[m], 1e-4, m)
	}
}

func TestEyeMorphs(t *testing.T) {
	l := New(DefaultConfig(), nil)
	target := mgl64.Vec3{1, 1.0, 1}
	l.SetTarget(&target)
	run(l, 0, 120)

	m := l.Morphs()
	assert.Greater(t, m[EyeLookOutLeft], 0.0)
	assert.Equal(t, m[EyeLookOutLeft], m[EyeLookInRight])
	assert.Zero(t, m[EyeLookOutRight])
	assert.Zero(t, m[EyeLookInLeft])
	assert.Greater(t, m[EyeLookDownLeft], 0.0)
	assert.Zero(t, m[EyeLookUpLeft])
	for name, v := range m {
		assert.LessOrEqual(t, v, 1.0, name)
	}
}

func TestBreakAwayGlance(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BreakAwayChance = 1000
	cfg.BreakAwayMin, cfg.BreakAwayMax = 0.2, 0.3
	l := New(cfg, motion.NewRand(7))

	target := mgl64.Vec3{0, 1.6, 3}
	l.SetTarget(&target)
	now := run(l, 0, 1)
	require.True(t, l.Glancing())
	until := l.glance.until
	assert.GreaterOrEqual(t, until-now, 0.2-frame)
	assert.LessOrEqual(t, until-now, 0.3)

	for now < until {
		now = run(l, now, 1)
	}
	assert.NotEqual(t, until, l.glance.until, "glance ended or was replaced")

	l.SetTarget(nil)
	assert.False(t, l.Glancing())
}

func TestNoGlanceWithoutTarget(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BreakAwayChance = 1000
	l := New(cfg, motion.NewRand(1))
	run(l, 0, 60)
	assert.False(t, l.Glancing())
}

func TestEyeLeadDelay(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EyeLeadDelay = 0.5
	l := New(cfg, nil)

	target := mgl64.Vec3{1, 1.6, 1}
	l.SetTarget(&target)
	now := run(l, 0, 18)
	assert.Zero(t, l.head.Target().Y, "head still sees the old target")
	assert.Greater(t, l.Eyes().Yaw, 0.5)

	run(l, now, 30)
	assert.InDelta(t, 0.7*math.Pi/4, l.head.Target().Y, 1e-9)
}

func TestSameSeedSameGlances(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BreakAwayChance = 2
	a := New(cfg, motion.NewRand(42))
	b := New(cfg, motion.NewRand(42))
	target := mgl64.Vec3{0.5, 1.2, 2}
	a.SetTarget(&target)
	b.SetTarget(&target)

	now := 0.0
	for i := 0; i < 600; i++ {
		now += frame
		a.Update(now, frame)
		b.Update(now, frame)
		require.Equal(t, a.HeadOffset(), b.HeadOffset())
	}
}

func TestNonFiniteTargetIgnored(t *testing.T) {
	l := New(DefaultConfig(), nil)
	bad := mgl64.Vec3{math.NaN(), 0, 1}
	l.SetTarget(&bad)
	_, ok := l.Target()
	assert.False(t, ok)
}
