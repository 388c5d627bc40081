// Package expression maps social context to a facial expression and
// cross-fades ARKit morph weights toward it. It also drives blinking.
package expression

import (
	"sort"

	"github.com/normanking/cortexrig/internal/motion"
	"github.com/normanking/cortexrig/internal/rig"
)

// Expression names a facial expression preset.
type Expression string

const (
	Neutral    Expression = "neutral"
	Confidence Expression = "confidence"
	Respect    Expression = "respect"
	Concern    Expression = "concern"
	Admiration Expression = "admiration"
	Jealousy   Expression = "jealousy"
	Curiosity  Expression = "curiosity"
)

// ARKit blendshape channels used by the presets.
const (
	BrowDownLeft     = "browDownLeft"
	BrowDownRight    = "browDownRight"
	BrowInnerUp      = "browInnerUp"
	BrowOuterUpLeft  = "browOuterUpLeft"
	BrowOuterUpRight = "browOuterUpRight"
	CheekSquintLeft  = "cheekSquintLeft"
	CheekSquintRight = "cheekSquintRight"
	EyeSquintLeft    = "eyeSquintLeft"
	EyeSquintRight   = "eyeSquintRight"
	EyeWideLeft      = "eyeWideLeft"
	EyeWideRight     = "eyeWideRight"
	JawOpen          = "jawOpen"
	MouthFrownLeft   = "mouthFrownLeft"
	MouthFrownRight  = "mouthFrownRight"
	MouthPressLeft   = "mouthPressLeft"
	MouthPressRight  = "mouthPressRight"
	MouthSmileLeft   = "mouthSmileLeft"
	MouthSmileRight  = "mouthSmileRight"
	MouthPucker      = "mouthPucker"
	NoseSneerLeft    = "noseSneerLeft"
	NoseSneerRight   = "noseSneerRight"
)

// Presets is the morph table of each expression.
var Presets = map[Expression]map[string]float64{
	Neutral: {},
	Confidence: {
		MouthSmileLeft: 0.25, MouthSmileRight: 0.25,
		CheekSquintLeft: 0.1, CheekSquintRight: 0.1,
		EyeSquintLeft: 0.08, EyeSquintRight: 0.08,
	},
	Respect: {
		BrowInnerUp:    0.15,
		MouthSmileLeft: 0.12, MouthSmileRight: 0.12,
		MouthPressLeft: 0.1, MouthPressRight: 0.1,
	},
	Concern: {
		BrowInnerUp:  0.4,
		BrowDownLeft: 0.2, BrowDownRight: 0.2,
		MouthFrownLeft: 0.2, MouthFrownRight: 0.2,
	},
	Admiration: {
		BrowInnerUp:     0.2,
		BrowOuterUpLeft: 0.15, BrowOuterUpRight: 0.15,
		EyeWideLeft: 0.15, EyeWideRight: 0.15,
		MouthSmileLeft: 0.45, MouthSmileRight: 0.45,
		CheekSquintLeft: 0.2, CheekSquintRight: 0.2,
	},
	Jealousy: {
		BrowDownLeft: 0.35, BrowDownRight: 0.35,
		EyeSquintLeft: 0.25, EyeSquintRight: 0.25,
		NoseSneerLeft: 0.15, NoseSneerRight: 0.15,
		MouthPressLeft: 0.25, MouthPressRight: 0.25,
		MouthFrownLeft: 0.1, MouthFrownRight: 0.1,
	},
	Curiosity: {
		BrowInnerUp:     0.25,
		BrowOuterUpLeft: 0.2, BrowOuterUpRight: 0.05,
		EyeWideLeft: 0.1, EyeWideRight: 0.1,
		MouthPucker: 0.08,
	},
}

// Channels returns every morph referenced by any preset, sorted.
func Channels() []string {
	set := map[string]struct{}{}
	for _, table := range Presets {
		for m := range table {
			set[m] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for m := range set {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// RelationshipContext is the social input from the host.
type RelationshipContext struct {
	Score        float64 `json:"score"`
	IsNominee    bool    `json:"isNominee"`
	IsHoH        bool    `json:"isHoH"`
	IsSelf       bool    `json:"isSelf"`
	HasSelection bool    `json:"hasSelection"`
}

const (
	admirationScore = 40
	jealousyScore   = -30
)

// SelectExpression picks the expression for ctx. Earlier rules win.
func SelectExpression(ctx RelationshipContext) Expression {
	switch {
	case !ctx.HasSelection:
		return Neutral
	case ctx.IsSelf:
		return Confidence
	case ctx.IsHoH:
		return Respect
	case ctx.IsNominee:
		return Concern
	case ctx.Score > admirationScore:
		return Admiration
	case ctx.Score < jealousyScore:
		return Jealousy
	default:
		return Curiosity
	}
}

// DefaultRate is the per-second smoothing rate of reactive morphs.
const DefaultRate = 4.0

// Reactive is the per-instance smoothed expression state.
type Reactive struct {
	rate     float64
	channels []string

	current Expression
	target  Expression
	values  map[string]float64
	elapsed float64
}

// NewReactive starts at rest on Neutral.
func NewReactive(rate float64) *Reactive {
	if rate <= 0 {
		rate = DefaultRate
	}
	r := &Reactive{
		rate:     rate,
		channels: Channels(),
		current:  Neutral,
		target:   Neutral,
		values:   map[string]float64{},
	}
	for _, m := range r.channels {
		r.values[m] = 0
	}
	return r
}

// SetContext retargets from a relationship context.
func (r *Reactive) SetContext(ctx RelationshipContext) {
	r.SetTarget(SelectExpression(ctx))
}

// SetTarget retargets directly. Unknown expressions are ignored.
func (r *Reactive) SetTarget(e Expression) {
	if _, ok := Presets[e]; !ok || e == r.target {
		return
	}
	r.current = r.target
	r.target = e
	r.elapsed = 0
}

func (r *Reactive) Target() Expression { return r.target }

// Current is the expression being faded from.
func (r *Reactive) Current() Expression { return r.current }

// Progress estimates how far the cross-fade has converged, in [0,1].
func (r *Reactive) Progress() float64 {
	return motion.SmoothingFactor(r.rate, r.elapsed)
}

// Update moves every channel toward the target table and returns the
// smoothed weights. The returned map is owned by the caller.
func (r *Reactive) Update(dt float64) map[string]float64 {
	dt = rig.Finite(dt)
	if dt > 0 {
		r.elapsed += dt
		k := motion.SmoothingFactor(r.rate, dt)
		table := Presets[r.target]
		for _, m := range r.channels {
			v := r.values[m]
			r.values[m] = v + (table[m]-v)*k
		}
		if r.Progress() > 0.999 {
			r.current = r.target
		}
	}
	return r.Values()
}

// Values returns a copy of the smoothed weights.
func (r *Reactive) Values() map[string]float64 {
	out := make(map[string]float64, len(r.values))
	for m, v := range r.values {
		out[m] = v
	}
	return out
}
