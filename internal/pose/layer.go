package pose

import (
	"github.com/normanking/cortexrig/internal/motion"
	"github.com/normanking/cortexrig/internal/rig"
)

// DefaultTransition is the pose change duration in seconds.
const DefaultTransition = 0.8

// TransitionState is the per-instance transition record.
type TransitionState struct {
	From            rig.BoneMap
	To              rig.BoneMap
	FromPose        Name
	ToPose          Name
	StartTime       float64
	Duration        float64
	IsTransitioning bool
}

// Layer is the base pose state machine: at rest on one pose, or easing from
// a captured bone map to a target pose.
type Layer struct {
	src      Source
	duration float64
	state    TransitionState
}

// NewLayer starts at rest on initial. An unknown initial pose falls back to
// Relaxed.
func NewLayer(src Source, initial Name, duration float64) *Layer {
	if duration <= 0 {
		duration = DefaultTransition
	}
	if _, ok := src.Pose(initial); !ok {
		initial = Relaxed
	}
	return &Layer{
		src:      src,
		duration: duration,
		state:    TransitionState{FromPose: initial, ToPose: initial},
	}
}

// Current returns the pose the layer is at or heading to.
func (l *Layer) Current() Name { return l.state.ToPose }

func (l *Layer) State() TransitionState { return l.state }

func (l *Layer) IsTransitioning() bool { return l.state.IsTransitioning }

// Request starts a transition to p at time now. It is a no-op when p is
// already the current pose or is unknown, and reports whether a transition
// started.
func (l *Layer) Request(p Name, now float64) bool {
	return l.RequestWithDuration(p, now, l.duration)
}

func (l *Layer) RequestWithDuration(p Name, now, duration float64) bool {
	if p == l.state.ToPose {
		return false
	}
	to, ok := l.src.Pose(p)
	if !ok {
		return false
	}
	if duration <= 0 {
		duration = l.duration
	}
	// Capture the live pose so a request mid-transition starts from where
	// the body actually is.
	from := l.Evaluate(now).Clone()
	l.state = TransitionState{
		From:            from,
		To:              to,
		FromPose:        l.state.ToPose,
		ToPose:          p,
		StartTime:       now,
		Duration:        duration,
		IsTransitioning: true,
	}
	return true
}

// Shift moves an in-flight transition by d seconds.
func (l *Layer) Shift(d float64) {
	if l.state.IsTransitioning {
		l.state.StartTime += d
	}
}

// Progress returns linear transition progress in [0,1].
func (l *Layer) Progress(now float64) float64 {
	if !l.state.IsTransitioning {
		return 1
	}
	return motion.Clamp01((now - l.state.StartTime) / l.state.Duration)
}

// Evaluate returns the base bone map at now. At rest the library map is
// returned directly; callers must not mutate it.
func (l *Layer) Evaluate(now float64) rig.BoneMap {
	if !l.state.IsTransitioning {
		bones, _ := l.src.Pose(l.state.ToPose)
		return bones
	}

	progress := l.Progress(now)
	if progress >= 1 {
		l.state.IsTransitioning = false
		l.state.From = nil
		l.state.FromPose = l.state.ToPose
		return l.state.To
	}
	return Interpolate(l.state.From, l.state.To, motion.InOutCubic(progress))
}

// Interpolate lerps two bone maps over the union of their bones. A bone
// missing from one side takes the other side's value.
func Interpolate(from, to rig.BoneMap, t float64) rig.BoneMap {
	out := make(rig.BoneMap, len(to))
	for name, a := range from {
		b, ok := to[name]
		if !ok {
			out[name] = a
			continue
		}
		out.Set(name, a.Rotation.Lerp(b.Rotation, t))
	}
	for name, b := range to {
		if _, ok := from[name]; !ok {
			out[name] = b
		}
	}
	return out
}
