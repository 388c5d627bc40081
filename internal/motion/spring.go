package motion

import (
	"math"

	"github.com/normanking/cortexrig/internal/rig"
)

// NominalFPS is the step rate spring constants are tuned for.
const NominalFPS = 60.0

// MaxSpringDelta caps the dt fed to springs, in seconds.
const MaxSpringDelta = 0.1

// SpringConfig tunes a damped harmonic oscillator. Stiffness and Mass are in
// per-frame units at NominalFPS. Damping is the damping ratio: 1 is
// critically damped, above 1 over-damped and below 1 under-damped.
type SpringConfig struct {
	Stiffness float64 `mapstructure:"stiffness" yaml:"stiffness"`
	Damping   float64 `mapstructure:"damping" yaml:"damping"`
	Mass      float64 `mapstructure:"mass" yaml:"mass"`
}

func (c SpringConfig) omega() float64 {
	m := c.Mass
	if m <= 0 {
		m = 1
	}
	k := c.Stiffness
	if k <= 0 {
		return 0
	}
	return math.Sqrt(k / m)
}

// Frames converts a dt in seconds to clamped nominal frames.
func Frames(dt float64) float64 {
	dt = rig.Finite(dt)
	if dt <= 0 {
		return 0
	}
	if dt > MaxSpringDelta {
		dt = MaxSpringDelta
	}
	return dt * NominalFPS
}

// Spring is one scalar spring.
type Spring struct {
	Position float64
	Velocity float64
	Target   float64
}

// Reset places the spring at rest on v.
func (s *Spring) Reset(v float64) {
	s.Position, s.Velocity, s.Target = v, 0, v
}

// Step advances the spring by dt seconds. The oscillator is integrated in
// closed form, so it is stable for any step size and a damping ratio >= 1
// never overshoots a step change from rest.
func (s *Spring) Step(cfg SpringConfig, dt float64) {
	t := Frames(dt)
	if t == 0 {
		return
	}
	w := cfg.omega()
	if w == 0 {
		return
	}
	zeta := math.Max(cfg.Damping, 0)
	x0 := s.Position - s.Target
	v0 := s.Velocity

	var x, v float64
	switch {
	case math.Abs(zeta-1) < 1e-6:
		e := math.Exp(-w * t)
		b := v0 + w*x0
		x = (x0 + b*t) * e
		v = (v0 - w*b*t) * e
	case zeta < 1:
		wd := w * math.Sqrt(1-zeta*zeta)
		e := math.Exp(-zeta * w * t)
		c, sn := math.Cos(wd*t), math.Sin(wd*t)
		x = e * (x0*c + (v0+zeta*w*x0)/wd*sn)
		v = e * (v0*c - (zeta*w*v0+w*w*x0)/wd*sn)
	default:
		root := math.Sqrt(zeta*zeta - 1)
		r1 := -w * (zeta - root)
		r2 := -w * (zeta + root)
		c2 := (v0 - r1*x0) / (r2 - r1)
		c1 := x0 - c2
		e1, e2 := math.Exp(r1*t), math.Exp(r2*t)
		x = c1*e1 + c2*e2
		v = r1*c1*e1 + r2*c2*e2
	}

	if math.IsNaN(x) || math.IsInf(x, 0) || math.IsNaN(v) || math.IsInf(v, 0) {
		s.Position, s.Velocity = s.Target, 0
		return
	}
	s.Position = s.Target + x
	s.Velocity = v
}

// Spring3 drives the three axes of a rotation.
type Spring3 struct {
	X, Y, Z Spring
}

func (s *Spring3) Reset(r rig.Rotation) {
	s.X.Reset(r.X)
	s.Y.Reset(r.Y)
	s.Z.Reset(r.Z)
}

func (s *Spring3) SetTarget(r rig.Rotation) {
	r = r.Sanitize()
	s.X.Target, s.Y.Target, s.Z.Target = r.X, r.Y, r.Z
}

func (s *Spring3) Step(cfg SpringConfig, dt float64) {
	s.X.Step(cfg, dt)
	s.Y.Step(cfg, dt)
	s.Z.Step(cfg, dt)
}

func (s *Spring3) Value() rig.Rotation {
	return rig.Rotation{X: s.X.Position, Y: s.Y.Position, Z: s.Z.Position}
}

func (s *Spring3) Target() rig.Rotation {
	return rig.Rotation{X: s.X.Target, Y: s.Y.Target, Z: s.Z.Target}
}

// Settled reports whether every axis is within eps of its target and nearly
// at rest.
func (s *Spring3) Settled(eps float64) bool {
	for _, sp := range []*Spring{&s.X, &s.Y, &s.Z} {
		if math.Abs(sp.Position-sp.Target) > eps || math.Abs(sp.Velocity) > eps {
			return false
		}
	}
	return true
}
