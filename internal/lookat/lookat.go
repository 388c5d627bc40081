// Package lookat turns a world-space gaze target into head and neck
// rotation offsets and eye-direction morph weights. Eyes converge on the
// live target almost immediately; head and neck follow through springs.
package lookat

import (
	"math"
	"math/rand/v2"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/normanking/cortexrig/internal/motion"
	"github.com/normanking/cortexrig/internal/rig"
)

// ARKit eye morph channels.
const (
	EyeLookOutLeft   = "eyeLookOutLeft"
	EyeLookInLeft    = "eyeLookInLeft"
	EyeLookOutRight  = "eyeLookOutRight"
	EyeLookInRight   = "eyeLookInRight"
	EyeLookUpLeft    = "eyeLookUpLeft"
	EyeLookUpRight   = "eyeLookUpRight"
	EyeLookDownLeft  = "eyeLookDownLeft"
	EyeLookDownRight = "eyeLookDownRight"
)

// EyeMorphs lists every channel the layer writes.
var EyeMorphs = []string{
	EyeLookOutLeft, EyeLookInLeft, EyeLookOutRight, EyeLookInRight,
	EyeLookUpLeft, EyeLookUpRight, EyeLookDownLeft, EyeLookDownRight,
}

type Config struct {
	MaxYaw    float64 `mapstructure:"max_yaw" yaml:"max_yaw"`       // radians
	MaxPitch  float64 `mapstructure:"max_pitch" yaml:"max_pitch"`   // radians
	EyeHeight float64 `mapstructure:"eye_height" yaml:"eye_height"` // meters above the character origin

	HeadShare float64 `mapstructure:"head_share" yaml:"head_share"`
	NeckShare float64 `mapstructure:"neck_share" yaml:"neck_share"`

	Head motion.SpringConfig `mapstructure:"head" yaml:"head"`
	Neck motion.SpringConfig `mapstructure:"neck" yaml:"neck"`

	// EyeRate is the exponential convergence rate of the eyes per second.
	EyeRate float64 `mapstructure:"eye_rate" yaml:"eye_rate"`
	// EyeRangeYaw and EyeRangePitch are the angles that saturate the eye
	// morphs.
	EyeRangeYaw   float64 `mapstructure:"eye_range_yaw" yaml:"eye_range_yaw"`
	EyeRangePitch float64 `mapstructure:"eye_range_pitch" yaml:"eye_range_pitch"`

	BreakAwayChance    float64 `mapstructure:"break_away_chance" yaml:"break_away_chance"` // per second while a target is held
	BreakAwayMin       float64 `mapstructure:"break_away_min" yaml:"break_away_min"`       // seconds
	BreakAwayMax       float64 `mapstructure:"break_away_max" yaml:"break_away_max"`       // seconds
	BreakAwayMagnitude float64 `mapstructure:"break_away_magnitude" yaml:"break_away_magnitude"`

	// EyeLeadDelay, when positive, feeds the head springs with the target
	// angles from this many seconds ago.
	EyeLeadDelay float64 `mapstructure:"eye_lead_delay" yaml:"eye_lead_delay"`
}

func DefaultConfig() Config {
	return Config{
		MaxYaw:             1.0,
		MaxPitch:           0.5,
		EyeHeight:          1.6,
		HeadShare:          0.7,
		NeckShare:          0.3,
		Head:               motion.SpringConfig{Stiffness: 0.09, Damping: 0.7, Mass: 0.8},
		Neck:               motion.SpringConfig{Stiffness: 0.05, Damping: 1.0, Mass: 1.2},
		EyeRate:            18,
		EyeRangeYaw:        0.6,
		EyeRangePitch:      0.4,
		BreakAwayChance:    0.08,
		BreakAwayMin:       0.4,
		BreakAwayMax:       1.2,
		BreakAwayMagnitude: 0.25,
	}
}

// Angles is a yaw/pitch pair in radians. Positive yaw turns toward the
// character's left, positive pitch looks up.
type Angles struct {
	Yaw, Pitch float64
}

func (a Angles) add(o Angles) Angles { return Angles{a.Yaw + o.Yaw, a.Pitch + o.Pitch} }

type breakAway struct {
	offset Angles
	until  float64
	active bool
}

// Layer is the per-instance look-at state.
type Layer struct {
	cfg Config
	rng *rand.Rand

	target   *mgl64.Vec3
	position mgl64.Vec3
	facing   float64

	head, neck motion.Spring3
	eyes       Angles
	glance     breakAway
	history    *history
}

// New returns a layer at rest. rng drives break-away glances; nil disables
// them.
func New(cfg Config, rng *rand.Rand) *Layer {
	l := &Layer{cfg: cfg, rng: rng}
	if cfg.EyeLeadDelay > 0 {
		l.history = newHistory(cfg.EyeLeadDelay)
	}
	return l
}

func (l *Layer) Config() Config { return l.cfg }

// SetTarget sets the world-space point to look at; nil releases the gaze.
func (l *Layer) SetTarget(p *mgl64.Vec3) {
	if p == nil {
		l.target = nil
		l.glance = breakAway{}
		if l.history != nil {
			l.history.reset()
		}
		return
	}
	v := *p
	if !vecFinite(v) {
		return
	}
	l.target = &v
}

func (l *Layer) Target() (mgl64.Vec3, bool) {
	if l.target == nil {
		return mgl64.Vec3{}, false
	}
	return *l.target, true
}

// SetPlacement sets the character's world position and facing yaw
// (radians, 0 faces +Z).
func (l *Layer) SetPlacement(position mgl64.Vec3, facing float64) {
	if vecFinite(position) {
		l.position = position
	}
	l.facing = rig.Finite(facing)
}

// Angles returns the clamped yaw and pitch from the character's eyes to p.
func (l *Layer) Angles(p mgl64.Vec3) Angles {
	eye := l.position.Add(mgl64.Vec3{0, l.cfg.EyeHeight, 0})
	d := p.Sub(eye)
	horizontal := math.Hypot(d.X(), d.Z())

	yaw := wrapAngle(math.Atan2(d.X(), d.Z()) - l.facing)
	pitch := math.Atan2(d.Y(), horizontal)
	return Angles{
		Yaw:   motion.Clamp(rig.Finite(yaw), -l.cfg.MaxYaw, l.cfg.MaxYaw),
		Pitch: motion.Clamp(rig.Finite(pitch), -l.cfg.MaxPitch, l.cfg.MaxPitch),
	}
}

// Active reports whether the layer contributes: a target is held or the
// springs are still returning to rest.
func (l *Layer) Active() bool {
	return l.target != nil || !l.head.Settled(1e-4) || !l.neck.Settled(1e-4)
}

// Update advances springs, eyes and glances to time now.
func (l *Layer) Update(now, dt float64) {
	var live, lead Angles
	if l.target != nil {
		live = l.Angles(*l.target)
		l.updateGlance(now, dt)
		if l.glance.active {
			live = live.add(l.glance.offset)
		}
		lead = live
		if l.history != nil {
			l.history.push(now, live)
			lead = l.history.at(now - l.cfg.EyeLeadDelay)
		}
	}

	l.head.SetTarget(offsetFor(lead, l.cfg.HeadShare))
	l.neck.SetTarget(offsetFor(lead, l.cfg.NeckShare))
	l.head.Step(l.cfg.Head, dt)
	l.neck.Step(l.cfg.Neck, dt)

	k := motion.SmoothingFactor(l.cfg.EyeRate, dt)
	l.eyes.Yaw += (live.Yaw - l.eyes.Yaw) * k
	l.eyes.Pitch += (live.Pitch - l.eyes.Pitch) * k
}

func (l *Layer) updateGlance(now, dt float64) {
	if l.glance.active {
		if now >= l.glance.until {
			l.glance = breakAway{}
		}
		return
	}
	if l.rng == nil || l.cfg.BreakAwayChance <= 0 {
		return
	}
	if l.rng.Float64() >= l.cfg.BreakAwayChance*dt {
		return
	}
	mag := l.cfg.BreakAwayMagnitude
	span := math.Max(l.cfg.BreakAwayMax-l.cfg.BreakAwayMin, 0)
	l.glance = breakAway{
		offset: Angles{
			Yaw:   (l.rng.Float64()*2 - 1) * mag,
			Pitch: (l.rng.Float64()*2 - 1) * mag * 0.5,
		},
		until:  now + l.cfg.BreakAwayMin + l.rng.Float64()*span,
		active: true,
	}
}

// Glancing reports whether a break-away glance is in progress.
func (l *Layer) Glancing() bool { return l.glance.active }

func offsetFor(a Angles, share float64) rig.Rotation {
	return rig.Rotation{X: -a.Pitch * share, Y: a.Yaw * share}
}

// HeadOffset and NeckOffset are the current spring outputs.
func (l *Layer) HeadOffset() rig.Rotation { return l.head.Value() }
func (l *Layer) NeckOffset() rig.Rotation { return l.neck.Value() }

// Eyes returns the current eye angles.
func (l *Layer) Eyes() Angles { return l.eyes }

// Apply adds the head and neck offsets onto the rotations already in bones.
// Bones absent from the map are treated as zero.
func (l *Layer) Apply(bones rig.BoneMap) {
	bones.AddRotation(rig.Head, l.head.Value())
	bones.AddRotation(rig.Neck, l.neck.Value())
}

// Morphs returns eye-look weights in [0,1].
func (l *Layer) Morphs() map[string]float64 {
	out := make(map[string]float64, len(EyeMorphs))
	for _, m := range EyeMorphs {
		out[m] = 0
	}
	h := ratio(l.eyes.Yaw, l.cfg.EyeRangeYaw)
	v := ratio(l.eyes.Pitch, l.cfg.EyeRangePitch)
	if h > 0 {
		out[EyeLookOutLeft], out[EyeLookInRight] = h, h
	} else {
		out[EyeLookOutRight], out[EyeLookInLeft] = -h, -h
	}
	if v > 0 {
		out[EyeLookUpLeft], out[EyeLookUpRight] = v, v
	} else {
		out[EyeLookDownLeft], out[EyeLookDownRight] = -v, -v
	}
	return out
}

// Reset returns springs, eyes and glances to rest. The target is kept so
// the gaze resumes when the layer runs again.
func (l *Layer) Reset() {
	l.glance = breakAway{}
	if l.history != nil {
		l.history.reset()
	}
	l.head.Reset(rig.Rotation{})
	l.neck.Reset(rig.Rotation{})
	l.eyes = Angles{}
}

func ratio(v, full float64) float64 {
	if full <= 0 {
		return 0
	}
	return motion.Clamp(rig.Finite(v/full), -1, 1)
}

func wrapAngle(a float64) float64 {
	return math.Remainder(a, 2*math.Pi)
}

func vecFinite(v mgl64.Vec3) bool {
	for _, c := range v {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}
