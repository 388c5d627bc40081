// Package motion provides the numeric building blocks shared by the
// animation layers: easing curves, smooth noise, per-instance phase hashing
// and damped springs.
package motion

import (
	"fmt"
	"math"
)

// EaseFunc maps normalized progress in [0,1] to eased progress.
type EaseFunc func(t float64) float64

// Easing names a curve in clip and config data.
type Easing string

const (
	Linear         Easing = "linear"
	EaseInQuad     Easing = "easeInQuad"
	EaseOutQuad    Easing = "easeOutQuad"
	EaseInOutQuad  Easing = "easeInOutQuad"
	EaseInOutCubic Easing = "easeInOutCubic"
	EaseOutBack    Easing = "easeOutBack"
)

var easings = map[Easing]EaseFunc{
	Linear:         func(t float64) float64 { return Clamp01(t) },
	EaseInQuad:     InQuad,
	EaseOutQuad:    OutQuad,
	EaseInOutQuad:  InOutQuad,
	EaseInOutCubic: InOutCubic,
	EaseOutBack:    OutBack,
}

// Func returns the curve for e. The empty name selects easeInOutQuad.
func (e Easing) Func() (EaseFunc, error) {
	if e == "" {
		return InOutQuad, nil
	}
	f, ok := easings[e]
	if !ok {
		return nil, fmt.Errorf("unknown easing %q", string(e))
	}
	return f, nil
}

func InQuad(t float64) float64 {
	t = Clamp01(t)
	return t * t
}

func OutQuad(t float64) float64 {
	t = Clamp01(t)
	return t * (2 - t)
}

func InOutQuad(t float64) float64 {
	t = Clamp01(t)
	if t < 0.5 {
		return 2 * t * t
	}
	return 1 - math.Pow(-2*t+2, 2)/2
}

func InOutCubic(t float64) float64 {
	t = Clamp01(t)
	if t < 0.5 {
		return 4 * t * t * t
	}
	return 1 - math.Pow(-2*t+2, 3)/2
}

// OutBack overshoots past 1 before settling, for punchier keyframes.
func OutBack(t float64) float64 {
	const c1 = 1.70158
	const c3 = c1 + 1
	t = Clamp01(t)
	return 1 + c3*math.Pow(t-1, 3) + c1*math.Pow(t-1, 2)
}

// Clamp01 clamps t to [0,1]; NaN maps to 0.
func Clamp01(t float64) float64 {
	if math.IsNaN(t) || t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}

func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func Lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// SmoothingFactor converts a per-second exponential rate into the lerp
// factor for one step of dt seconds.
func SmoothingFactor(rate, dt float64) float64 {
	if dt <= 0 || rate <= 0 {
		return 0
	}
	return 1 - math.Exp(-rate*dt)
}
