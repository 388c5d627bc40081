// Package secondary adds spring follow-through to a fixed set of bones. It
// is the last stage before bones are written to the skeleton.
package secondary

import (
	"github.com/normanking/cortexrig/internal/motion"
	"github.com/normanking/cortexrig/internal/rig"
)

// DefaultTuning is the per-bone spring table. Hands are loosest and
// lightest, the upper spine stiffest and heaviest.
var DefaultTuning = map[string]motion.SpringConfig{
	rig.Head:         {Stiffness: 0.22, Damping: 0.85, Mass: 1.0},
	rig.Neck:         {Stiffness: 0.28, Damping: 0.9, Mass: 1.2},
	rig.Spine2:       {Stiffness: 0.9, Damping: 1.0, Mass: 1.5},
	rig.LeftForeArm:  {Stiffness: 0.16, Damping: 0.75, Mass: 0.8},
	rig.RightForeArm: {Stiffness: 0.16, Damping: 0.75, Mass: 0.8},
	rig.LeftHand:     {Stiffness: 0.08, Damping: 0.6, Mass: 0.5},
	rig.RightHand:    {Stiffness: 0.08, Damping: 0.6, Mass: 0.5},
}

// Bones is the filtered whitelist.
var Bones = []string{
	rig.Head, rig.Neck, rig.Spine2,
	rig.LeftForeArm, rig.RightForeArm, rig.LeftHand, rig.RightHand,
}

// State holds one spring per whitelisted bone for one instance.
type State struct {
	tuning      map[string]motion.SpringConfig
	springs     map[string]*motion.Spring3
	initialized bool
	enabled     bool
}

// New returns an enabled filter. A nil tuning uses DefaultTuning; bones
// missing from a custom table fall back to the default entry.
func New(tuning map[string]motion.SpringConfig) *State {
	t := make(map[string]motion.SpringConfig, len(Bones))
	for _, b := range Bones {
		cfg, ok := tuning[b]
		if !ok {
			cfg = DefaultTuning[b]
		}
		t[b] = cfg
	}
	s := &State{tuning: t, springs: make(map[string]*motion.Spring3, len(Bones)), enabled: true}
	for _, b := range Bones {
		s.springs[b] = &motion.Spring3{}
	}
	return s
}

func (s *State) Enabled() bool { return s.enabled }

// SetEnabled toggles filtering. Re-enabling reseeds from the next frame so
// springs do not fly from a stale position.
func (s *State) SetEnabled(on bool) {
	if on && !s.enabled {
		s.initialized = false
	}
	s.enabled = on
}

// Reset forgets spring state; the next Filter seeds from its input.
func (s *State) Reset() { s.initialized = false }

// Filter retargets each whitelisted spring at the bone's computed rotation,
// steps it by dt and replaces the rotation with the spring output. Bones not
// in the map are left alone. When disabled bones pass through unchanged.
func (s *State) Filter(bones rig.BoneMap, dt float64) {
	if !s.enabled {
		return
	}
	if !s.initialized {
		for _, name := range Bones {
			r, _ := bones.Rotation(name)
			s.springs[name].Reset(r.Sanitize())
		}
		s.initialized = true
		return
	}
	for _, name := range Bones {
		r, ok := bones.Rotation(name)
		if !ok {
			continue
		}
		sp := s.springs[name]
		sp.SetTarget(r)
		sp.Step(s.tuning[name], dt)
		bones.Set(name, sp.Value())
	}
}

// Value returns the current spring output for a whitelisted bone.
func (s *State) Value(name string) (rig.Rotation, bool) {
	sp, ok := s.springs[name]
	if !ok {
		return rig.Rotation{}, false
	}
	return sp.Value(), true
}
