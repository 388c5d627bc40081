package motion

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/normanking/cortexrig/internal/rig"
)

func TestEasingEndpoints(t *testing.T) {
	for name, f := range easings {
		t.Run(string(name), func(t *testing.T) {
			assert.InDelta(t, 0, f(0), 1e-9)
			assert.InDelta(t, 1, f(1), 1e-9)
			assert.InDelta(t, 0, f(-3), 1e-9, "clamped below")
			assert.InDelta(t, 1, f(4), 1e-9, "clamped above")
		})
	}
}

func TestInOutQuadMonotonic(t *testing.T) {
	prev := InOutQuad(0)
	for i := 1; i <= 100; i++ {
		v := InOutQuad(float64(i) / 100)
		require.Greater(t, v, prev)
		prev = v
	}
}

func TestOutBackOvershoots(t *testing.T) {
	peak := 0.0
	for i := 0; i <= 100; i++ {
		peak = math.Max(peak, OutBack(float64(i)/100))
	}
	assert.Greater(t, peak, 1.0)
}

func TestEasingLookup(t *testing.T) {
	f, err := Easing("").Func()
	require.NoError(t, err)
	assert.InDelta(t, InOutQuad(0.3), f(0.3), 1e-12)

	_, err = Easing("bogus").Func()
	assert.Error(t, err)
}

func TestSmoothNoiseBounded(t *testing.T) {
	for i := 0; i < 5000; i++ {
		x := float64(i) * 0.037
		require.LessOrEqual(t, math.Abs(SmoothNoise(x)), 1.0)
		require.LessOrEqual(t, math.Abs(HarmonicNoise(x, 1.3)), 1.0)
	}
}

func TestHarmonicNoisePeriodic(t *testing.T) {
	for i := 0; i < 50; i++ {
		p := float64(i) * 0.21
		assert.InDelta(t, HarmonicNoise(p, 0.8), HarmonicNoise(p+2*math.Pi, 0.8), 1e-9)
	}
}

func TestPhaseFromID(t *testing.T) {
	a := PhaseFromID("houseguest-1")
	assert.Equal(t, a, PhaseFromID("houseguest-1"))
	assert.NotEqual(t, a, PhaseFromID("houseguest-2"))
	for _, id := range []string{"", "a", "npc-17", "player"} {
		p := PhaseFromID(id)
		assert.GreaterOrEqual(t, p, 0.0)
		assert.Less(t, p, 2*math.Pi)
	}
}

func TestNewRandDeterministic(t *testing.T) {
	a, b := NewRand(42), NewRand(42)
	for i := 0; i < 10; i++ {
		assert.Equal(t, a.Float64(), b.Float64())
	}
}

func TestSpringCriticalNoOvershoot(t *testing.T) {
	for _, damping := range []float64{1, 1.5, 3} {
		cfg := SpringConfig{Stiffness: 0.2, Damping: damping, Mass: 1}
		var s Spring
		s.Target = 1
		for i := 0; i < 600; i++ {
			s.Step(cfg, 1.0/60)
			require.LessOrEqual(t, s.Position, 1.0+1e-12, "damping %v overshot at step %d", damping, i)
		}
		assert.InDelta(t, 1, s.Position, 1e-3, "damping %v did not converge", damping)
	}
}

func TestSpringUnderdampedOvershoots(t *testing.T) {
	cfg := SpringConfig{Stiffness: 0.2, Damping: 0.4, Mass: 1}
	var s Spring
	s.Target = 1

	overshoot := false
	for i := 0; i < 600; i++ {
		s.Step(cfg, 1.0/60)
		if s.Position > 1 {
			overshoot = true
		}
	}
	assert.True(t, overshoot)
	assert.InDelta(t, 1, s.Position, 1e-3)
}

func TestSpringLargeStepStable(t *testing.T) {
	cfg := SpringConfig{Stiffness: 0.5, Damping: 0.3, Mass: 0.5}
	var s Spring
	s.Target = 2
	for i := 0; i < 200; i++ {
		s.Step(cfg, 5)
		require.False(t, math.IsNaN(s.Position))
		require.Less(t, math.Abs(s.Position), 10.0)
	}
}

func TestSpringIgnoresBadDelta(t *testing.T) {
	cfg := SpringConfig{Stiffness: 0.2, Damping: 1, Mass: 1}
	s := Spring{Target: 1}
	for _, dt := range []float64{0, -1, math.NaN(), math.Inf(-1)} {
		s.Step(cfg, dt)
		assert.Equal(t, 0.0, s.Position)
	}
}

func TestSpring3(t *testing.T) {
	var s Spring3
	s.Reset(rig.Rotation{X: 0.1})
	assert.True(t, s.Settled(1e-9))

	s.SetTarget(rig.Rotation{X: 0.5, Y: math.NaN()})
	assert.Equal(t, rig.Rotation{X: 0.5}, s.Target())

	cfg := SpringConfig{Stiffness: 0.3, Damping: 1, Mass: 1}
	for i := 0; i < 300; i++ {
		s.Step(cfg, 1.0/60)
	}
	assert.InDelta(t, 0.5, s.Value().X, 1e-4)
	assert.True(t, s.Settled(1e-3))
}

func TestSmoothingFactor(t *testing.T) {
	assert.Equal(t, 0.0, SmoothingFactor(5, 0))
	f := SmoothingFactor(5, 1.0/60)
	assert.Greater(t, f, 0.0)
	assert.Less(t, f, 1.0)
}
