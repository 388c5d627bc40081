// Package idle generates continuous procedural motion layered additively on
// top of the base pose: breathing, weight shift and micro-movements.
package idle

import (
	"math"

	"github.com/normanking/cortexrig/internal/motion"
	"github.com/normanking/cortexrig/internal/rig"
)

// Config tunes the idle signals for one character.
type Config struct {
	BreathRate      float64 `mapstructure:"breath_rate" yaml:"breath_rate"`           // breaths per minute
	BreathDepth     float64 `mapstructure:"breath_depth" yaml:"breath_depth"`         // radians at full inhale
	BreathVariation float64 `mapstructure:"breath_variation" yaml:"breath_variation"` // 0..1 shape modulation

	WeightShiftFrequency float64 `mapstructure:"weight_shift_frequency" yaml:"weight_shift_frequency"` // Hz
	WeightShiftMagnitude float64 `mapstructure:"weight_shift_magnitude" yaml:"weight_shift_magnitude"` // radians

	MicroMovementScale float64 `mapstructure:"micro_movement_scale" yaml:"micro_movement_scale"` // radians

	// EnergyLevel scales every signal; calm characters move less.
	EnergyLevel float64 `mapstructure:"energy_level" yaml:"energy_level"`
}

func DefaultConfig() Config {
	return Config{
		BreathRate:           14,
		BreathDepth:          0.025,
		BreathVariation:      0.15,
		WeightShiftFrequency: 0.08,
		WeightShiftMagnitude: 0.03,
		MicroMovementScale:   0.008,
		EnergyLevel:          1.0,
	}
}

// Options toggles sub-signals, typically from the quality tier.
type Options struct {
	WeightShift    bool
	MicroMovements bool
	// BreathScale multiplies breathing amplitude; cheap tiers use < 1.
	BreathScale float64
}

func FullOptions() Options {
	return Options{WeightShift: true, MicroMovements: true, BreathScale: 1}
}

// BreathAmplitudes are the per-bone multipliers of the breathing signal.
var BreathAmplitudes = map[string]float64{
	rig.Spine:         0.45,
	rig.Spine1:        0.75,
	rig.Spine2:        1.0,
	rig.LeftShoulder:  0.35,
	rig.RightShoulder: 0.35,
}

const (
	exhaleScale       = 0.7
	twitchThreshold   = 0.9
	twitchMagnitude   = 0.12
	secondaryWaveRate = 2.3
)

// Layer produces idle motion for one instance.
type Layer struct {
	cfg    Config
	opts   Options
	offset float64
}

// NewLayer derives the phase offset from the instance id so characters
// animated together never breathe in sync.
func NewLayer(id string, cfg Config, opts Options) *Layer {
	if cfg.EnergyLevel <= 0 {
		cfg.EnergyLevel = 1
	}
	if opts.BreathScale < 0 {
		opts.BreathScale = 0
	}
	return &Layer{cfg: cfg, opts: opts, offset: motion.PhaseFromID(id)}
}

func (l *Layer) Config() Config { return l.cfg }

func (l *Layer) SetOptions(opts Options) {
	if opts.BreathScale < 0 {
		opts.BreathScale = 0
	}
	l.opts = opts
}

func (l *Layer) Offset() float64 { return l.offset }

// Breath returns the breathing signal at time t in seconds. Positive values
// are inhale, negative exhale. The signal repeats every 60/BreathRate
// seconds and its magnitude never exceeds BreathDepth*EnergyLevel.
func (l *Layer) Breath(t float64) float64 {
	if l.cfg.BreathRate <= 0 {
		return 0
	}
	phase := 2*math.Pi*(l.cfg.BreathRate/60)*t + l.offset
	s := math.Sin(phase)
	if s < 0 {
		s *= exhaleScale
	}
	variation := motion.Clamp01(l.cfg.BreathVariation)
	mod := 1 - variation*(0.5+0.5*motion.HarmonicNoise(phase, l.offset))
	return s * mod * l.cfg.BreathDepth * l.cfg.EnergyLevel
}

// Apply adds the idle signals at time t onto bones in place.
func (l *Layer) Apply(bones rig.BoneMap, t float64) {
	l.applyBreathing(bones, t)
	if l.opts.WeightShift {
		l.applyWeightShift(bones, t)
	}
	if l.opts.MicroMovements {
		l.applyMicroMovements(bones, t)
	}
}

// Evaluate returns only the idle contribution at time t.
func (l *Layer) Evaluate(t float64) rig.BoneMap {
	out := rig.BoneMap{}
	l.Apply(out, t)
	return out
}

func (l *Layer) applyBreathing(bones rig.BoneMap, t float64) {
	b := l.Breath(t) * l.opts.BreathScale
	if b == 0 {
		return
	}
	bones.AddRotation(rig.Spine, rig.Rotation{X: -b * BreathAmplitudes[rig.Spine]})
	bones.AddRotation(rig.Spine1, rig.Rotation{X: -b * BreathAmplitudes[rig.Spine1]})
	bones.AddRotation(rig.Spine2, rig.Rotation{X: -b * BreathAmplitudes[rig.Spine2]})
	bones.AddRotation(rig.LeftShoulder, rig.Rotation{Z: -b * BreathAmplitudes[rig.LeftShoulder]})
	bones.AddRotation(rig.RightShoulder, rig.Rotation{Z: b * BreathAmplitudes[rig.RightShoulder]})
}

func (l *Layer) applyWeightShift(bones rig.BoneMap, t float64) {
	mag := l.cfg.WeightShiftMagnitude * l.cfg.EnergyLevel
	if mag == 0 {
		return
	}
	f := l.cfg.WeightShiftFrequency * 2 * math.Pi
	sway := motion.SmoothNoise(t*f + l.offset)
	twist := motion.SmoothNoise(t*f*0.7 + l.offset + 10)
	secondary := math.Sin(t*f*secondaryWaveRate+l.offset*1.7) * 0.25

	hipZ := (sway + secondary) * mag
	hipY := twist * mag * 0.5

	bones.AddRotation(rig.Hips, rig.Rotation{Y: hipY, Z: hipZ})
	// Counter-rotate the spine to keep the head over the feet.
	bones.AddRotation(rig.Spine, rig.Rotation{Y: -hipY * 0.5, Z: -hipZ * 0.6})
	bones.AddRotation(rig.Spine1, rig.Rotation{Z: -hipZ * 0.25})
	bones.AddRotation(rig.LeftUpLeg, rig.Rotation{Z: -hipZ * 0.5})
	bones.AddRotation(rig.RightUpLeg, rig.Rotation{Z: -hipZ * 0.5})
}

func (l *Layer) applyMicroMovements(bones rig.BoneMap, t float64) {
	scale := l.cfg.MicroMovementScale * l.cfg.EnergyLevel
	if scale == 0 {
		return
	}
	o := l.offset
	bones.AddRotation(rig.Head, rig.Rotation{
		X: motion.SmoothNoise(t*0.9+o+20) * scale,
		Y: motion.SmoothNoise(t*0.7+o+30) * scale * 1.5,
		Z: motion.SmoothNoise(t*0.5+o+40) * scale * 0.6,
	})
	bones.AddRotation(rig.Neck, rig.Rotation{
		Y: motion.SmoothNoise(t*0.6+o+50) * scale * 0.5,
	})

	// Rare finger twitches: only the peaks of a slow noise cross the gate.
	if n := motion.SmoothNoise(t*1.3 + o + 60); n > twitchThreshold {
		amount := (n - twitchThreshold) / (1 - twitchThreshold) * twitchMagnitude * l.cfg.EnergyLevel
		bones.AddRotation(rig.LeftHandIndex1, rig.Rotation{X: amount})
		bones.AddRotation(rig.LeftHandMiddle1, rig.Rotation{X: amount * 0.6})
	}
	if n := motion.SmoothNoise(t*1.1 + o + 70); n > twitchThreshold {
		amount := (n - twitchThreshold) / (1 - twitchThreshold) * twitchMagnitude * l.cfg.EnergyLevel
		bones.AddRotation(rig.RightHandIndex1, rig.Rotation{X: amount})
	}
}
