package animator

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/normanking/cortexrig/internal/expression"
	"github.com/normanking/cortexrig/internal/gesture"
	"github.com/normanking/cortexrig/internal/lookat"
	"github.com/normanking/cortexrig/internal/pose"
	"github.com/normanking/cortexrig/internal/rig"
)

const frame = 1.0 / 60

func newController(t *testing.T, opts ...Option) (*Controller, *rig.MemorySkeleton) {
	t.Helper()
	c := New(DefaultConfig(), opts...)
	skel := rig.NewFullSkeleton()
	c.AttachSkeleton(skel)
	return c, skel
}

func run(c *Controller, from float64, frames int) (float64, Frame) {
	now := from
	var f Frame
	for i := 0; i < frames; i++ {
		now += frame
		if out, ok := c.Tick(now, frame); ok {
			f = out
		}
	}
	return now, f
}

// still disables every layer that moves on its own.
var still = QualityConfig{}

func TestNoSkeletonNoFrame(t *testing.T) {
	c := New(DefaultConfig())
	_, ok := c.Tick(1, frame)
	assert.False(t, ok)
	assert.Equal(t, rig.ResolvePending, c.Status())
	_, ok = c.LastFrame()
	assert.False(t, ok)
}

func TestBoneDiscoveryGivesUp(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxResolveAttempts = 5
	c := New(cfg)
	c.AttachSkeleton(rig.NewMemorySkeleton("Root", "Tail"))

	for i := 0; i < 4; i++ {
		_, ok := c.Tick(float64(i)*frame, frame)
		require.False(t, ok)
		require.Equal(t, rig.ResolvePending, c.Status())
	}
	c.Tick(1, frame)
	assert.Equal(t, rig.ResolveFailed, c.Status())

	c.AttachSkeleton(rig.NewFullSkeleton())
	_, ok := c.Tick(2, frame)
	assert.False(t, ok, "an un-animatable instance stays that way")
}

func TestLateSkeletonResolves(t *testing.T) {
	c := New(DefaultConfig())
	for i := 0; i < 10; i++ {
		c.Tick(float64(i)*frame, frame)
	}
	c.AttachSkeleton(rig.NewFullSkeleton())
	_, ok := c.Tick(1, frame)
	assert.True(t, ok)
	assert.Equal(t, rig.ResolveReady, c.Status())
}

func TestFirstResolveSnapsBasePose(t *testing.T) {
	c, skel := newController(t, WithQuality(still))

	_, ok := c.Tick(5, 0)
	assert.False(t, ok, "zero delta is skipped")

	relaxed, _ := pose.DefaultLibrary().Pose(pose.Relaxed)
	got := skel.Rotations()
	for bone, st := range relaxed {
		r, _ := got.Rotation(bone)
		assert.Equal(t, st.Rotation, r, bone)
	}
}

func TestAbnormalDeltaSkipsTick(t *testing.T) {
	c, skel := newController(t)
	now, _ := run(c, 0, 30)
	before := skel.Rotations()

	for _, dt := range []float64{-frame, 0, 0.5, 30} {
		_, ok := c.Tick(now+dt, dt)
		assert.False(t, ok, "dt=%v", dt)
	}
	assert.Equal(t, before, skel.Rotations())

	_, ok := c.Tick(now+31, frame)
	assert.True(t, ok, "normal ticks resume")
}

func TestOutputStaysWithinLimits(t *testing.T) {
	c, skel := newController(t)
	c.SetLookAt(&mgl64.Vec3{-10, 6, -1})
	c.PlayGesture(gesture.Celebrate, nil)
	now := 0.0
	for i := 0; i < 240; i++ {
		var f Frame
		now, f = run(c, now, 1)
		for bone, st := range f.Bones {
			require.Equal(t, rig.ClampRotation(bone, st.Rotation), st.Rotation, "frame %d bone %s", i, bone)
		}
	}
	for bone, st := range skel.Rotations() {
		assert.Equal(t, rig.ClampRotation(bone, st.Rotation), st.Rotation, bone)
	}
}

type flakySource struct {
	pose.Source
	armed bool
}

func (f *flakySource) Pose(n pose.Name) (rig.BoneMap, bool) {
	if f.armed {
		panic("corrupt pose table")
	}
	return f.Source.Pose(n)
}

func TestPanicIsRecoveredAndPoseKept(t *testing.T) {
	src := &flakySource{Source: pose.DefaultLibrary()}
	c, skel := newController(t, WithPoses(src))
	now, good := run(c, 0, 10)
	before := skel.Rotations()

	src.armed = true
	f, ok := c.Tick(now+frame, frame)
	assert.False(t, ok)
	assert.Equal(t, 1, c.Panics())
	assert.Equal(t, good.Seq, f.Seq, "last good frame is returned")
	assert.Equal(t, before, skel.Rotations())

	src.armed = false
	_, ok = c.Tick(now+2*frame, frame)
	assert.True(t, ok)
}

func TestGestureOverridesLookAt(t *testing.T) {
	q := still
	q.EnableEyeTracking = true
	c, _ := newController(t, WithQuality(q))
	now, _ := run(c, 0, 1)

	c.SetLookAt(&mgl64.Vec3{5, 1.6, 1})
	now, f := run(c, now, 120)
	head, _ := f.Bones.Rotation(rig.Head)
	require.Greater(t, head.Y, 0.3, "look-at turns the head")

	require.True(t, c.PlayGesture(gesture.HeadShake, nil))
	clip, _ := gesture.DefaultLibrary().Clip(gesture.HeadShake)
	start := now
	// Past blend-in, still inside the clip.
	now, f = run(c, now, 30)
	require.Equal(t, 1.0, f.GestureWeight)

	want, _ := clip.Sample((now - start) / clip.Duration).Rotation(rig.Head)
	head, _ = f.Bones.Rotation(rig.Head)
	assert.InDelta(t, want.Y, head.Y, 1e-9)
}

func TestGestureCompletesThroughController(t *testing.T) {
	c, _ := newController(t)
	run(c, 0, 1)

	done := 0
	require.True(t, c.PlayGesture(gesture.Nod, func() { done++ }))
	_, f := run(c, frame, 10)
	assert.Equal(t, gesture.Nod, f.Gesture)

	run(c, 11*frame, 120)
	assert.Equal(t, 1, done)
	assert.False(t, c.GestureState().IsPlaying)
	last, _ := c.LastFrame()
	assert.Empty(t, last.Gesture)
}

func TestMorphsAreUnioned(t *testing.T) {
	c, skel := newController(t)
	c.SetContext(expression.RelationshipContext{HasSelection: true, Score: 90})
	c.SetLookAt(&mgl64.Vec3{3, 0.5, 2})
	_, f := run(c, 0, 240)

	assert.Equal(t, expression.Admiration, f.Expression)
	assert.Greater(t, f.Morphs[expression.MouthSmileLeft], 0.4)
	assert.Greater(t, f.Morphs[lookat.EyeLookOutLeft], 0.0)
	assert.Contains(t, f.Morphs, expression.EyeBlinkLeft)
	assert.Equal(t, f.Morphs[expression.MouthSmileLeft], skel.Morph(expression.MouthSmileLeft))
	for name, w := range f.Morphs {
		assert.GreaterOrEqual(t, w, 0.0, name)
		assert.LessOrEqual(t, w, 1.0, name)
	}
}

func TestLowQualityReleasesOptionalChannels(t *testing.T) {
	c, skel := newController(t)
	c.SetContext(expression.RelationshipContext{HasSelection: true, Score: 90})
	c.SetLookAt(&mgl64.Vec3{3, 0.5, 2})
	now, _ := run(c, 0, 120)

	low, err := QualityPreset(QualityLow)
	require.NoError(t, err)
	c.SetQuality(low)
	_, f := run(c, now, 1)

	assert.Zero(t, f.Morphs[expression.MouthSmileLeft])
	assert.Zero(t, f.Morphs[lookat.EyeLookOutLeft])
	assert.Zero(t, skel.Morph(lookat.EyeLookOutLeft))
}

func TestSameIDSameOutput(t *testing.T) {
	a, _ := newController(t, WithID("npc-7"))
	b, _ := newController(t, WithID("npc-7"))
	other, _ := newController(t, WithID("npc-8"))

	_, fa := run(a, 0, 90)
	_, fb := run(b, 0, 90)
	_, fo := run(other, 0, 90)

	if diff := cmp.Diff(fa.Bones, fb.Bones); diff != "" {
		t.Errorf("equal ids should animate identically (-a +b):\n%s", diff)
	}
	assert.Equal(t, fa.Morphs, fb.Morphs)
	assert.NotEqual(t, fa.Bones, fo.Bones, "different ids are out of phase")
}

func TestInstancesAreIsolated(t *testing.T) {
	a, _ := newController(t, WithID("npc-1"))
	ref, _ := newController(t, WithID("npc-1"))
	b, _ := newController(t, WithID("npc-2"))

	now := 0.0
	b.PlayGesture(gesture.Wave, nil)
	b.SetPose(pose.Defensive)
	b.SetLookAt(&mgl64.Vec3{1, 1, 1})
	for i := 0; i < 120; i++ {
		now += frame
		fa, _ := a.Tick(now, frame)
		fr, _ := ref.Tick(now, frame)
		b.Tick(now, frame)
		require.Empty(t, cmp.Diff(fr.Bones, fa.Bones))
	}
}

func TestMixamoSkeleton(t *testing.T) {
	names := make([]string, 0, len(rig.BoneNames))
	for _, n := range rig.BoneNames {
		names = append(names, "mixamorig:"+n)
	}
	skel := rig.NewMemorySkeleton(names...)
	c := New(DefaultConfig(), WithQuality(still))
	c.AttachSkeleton(skel)
	_, f := run(c, 0, 5)

	got, _ := skel.Rotations().Rotation("mixamorig:Head")
	want, _ := f.Bones.Rotation(rig.Head)
	assert.Equal(t, want, got)
}

func TestPoseTransitionThroughController(t *testing.T) {
	c, _ := newController(t, WithQuality(still))
	now, _ := run(c, 0, 1)
	require.True(t, c.SetPose(pose.Confident))
	assert.False(t, c.SetPose(pose.Confident))
	_, f := run(c, now, 60)

	confident, _ := pose.DefaultLibrary().Pose(pose.Confident)
	for bone, st := range confident {
		got, ok := f.Bones.Rotation(bone)
		require.True(t, ok, bone)
		if diff := cmp.Diff(st.Rotation, got, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
			t.Errorf("%s (-want +got):\n%s", bone, diff)
		}
	}
	assert.Equal(t, pose.Confident, f.Pose)
}

func TestQualityPresets(t *testing.T) {
	high, err := QualityPreset(QualityHigh)
	require.NoError(t, err)
	assert.True(t, high.EnableMicroMovements)

	medium, err := QualityPreset(QualityMedium)
	require.NoError(t, err)
	assert.False(t, medium.EnableMicroMovements)
	assert.True(t, medium.EnablePhysics)

	_, err = QualityPreset("ultra")
	assert.ErrorIs(t, err, ErrUnknownQuality)
}

func TestGestureBeforeFirstTickStartsOnHostClock(t *testing.T) {
	c, _ := newController(t, WithQuality(still))
	done := 0
	require.True(t, c.PlayGesture(gesture.Wave, func() { done++ }))

	now, peak := 100.0, 0.0
	for i := 0; i < 60; i++ {
		now += frame
		f, ok := c.Tick(now, frame)
		require.True(t, ok)
		peak = math.Max(peak, f.GestureWeight)
	}
	assert.Equal(t, 1.0, peak, "clip blends in fully during its first second")
	assert.Zero(t, done)
	st := c.GestureState()
	assert.True(t, st.IsPlaying)
	assert.InDelta(t, 100+frame, st.StartTime, 1e-9)
}

func TestControlsStampedWhileSkeletonPending(t *testing.T) {
	c := New(DefaultConfig(), WithQuality(still))
	now := 50.0
	for i := 0; i < 3; i++ {
		now += frame
		_, ok := c.Tick(now, frame)
		require.False(t, ok)
	}

	require.True(t, c.PlayGesture(gesture.Nod, nil))
	assert.Equal(t, now, c.GestureState().StartTime)

	c.AttachSkeleton(rig.NewFullSkeleton())
	_, f := run(c, now, 10)
	assert.Equal(t, gesture.Nod, f.Gesture)
	assert.Greater(t, f.GestureWeight, 0.0)
}

func TestQualityRoundTripKeepsLookAtTarget(t *testing.T) {
	c, _ := newController(t)
	target := mgl64.Vec3{5, 1.6, 1}
	c.SetLookAt(&target)
	now, _ := run(c, 0, 60)

	low, err := QualityPreset(QualityLow)
	require.NoError(t, err)
	c.SetQuality(low)
	now, _ = run(c, now, 10)

	high, err := QualityPreset(QualityHigh)
	require.NoError(t, err)
	c.SetQuality(high)
	_, f := run(c, now, 120)

	assert.Greater(t, f.Morphs[lookat.EyeLookOutLeft], 0.0, "gaze resumes without a new target")
}
