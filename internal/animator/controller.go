// Package animator composes every animation layer for one character and
// writes the result to its skeleton once per host frame.
package animator

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/normanking/cortexrig/internal/expression"
	"github.com/normanking/cortexrig/internal/gesture"
	"github.com/normanking/cortexrig/internal/idle"
	"github.com/normanking/cortexrig/internal/lookat"
	"github.com/normanking/cortexrig/internal/motion"
	"github.com/normanking/cortexrig/internal/pose"
	"github.com/normanking/cortexrig/internal/rig"
	"github.com/normanking/cortexrig/internal/secondary"
)

// ErrTickPanic wraps a panic recovered at the tick boundary.
var ErrTickPanic = errors.New("animation tick panicked")

// Frame is the composed output of one tick.
type Frame struct {
	ID            string                `json:"id"`
	Time          float64               `json:"t"`
	Seq           uint64                `json:"seq"`
	Bones         rig.BoneMap           `json:"bones"`
	Morphs        rig.Morphs            `json:"morphs"`
	Pose          pose.Name             `json:"pose"`
	Gesture       gesture.Name          `json:"gesture,omitempty"`
	GestureWeight float64               `json:"gestureWeight"`
	Expression    expression.Expression `json:"expression"`
}

// Controller owns all per-instance animation state. It is not safe for
// concurrent use; each character is ticked from one goroutine at a time.
type Controller struct {
	id  string
	cfg Config
	log zerolog.Logger

	quality    QualityConfig
	qualitySet bool
	tuning     map[string]motion.SpringConfig

	poses pose.Source
	clips gesture.Source

	skeleton rig.Skeleton
	sink     rig.MorphSink
	resolver *rig.Resolver
	snapped  bool
	failed   bool

	base      *pose.Layer
	idle      *idle.Layer
	look      *lookat.Layer
	gestures  *gesture.Player
	reactive  *expression.Reactive
	blink     *expression.Blinker
	secondary *secondary.State

	now     float64
	clocked bool
	seq     uint64
	last    Frame
	ready   bool
	panics  int
}

// New builds a controller. Nothing is written until a skeleton is attached
// and its bones resolve.
func New(cfg Config, opts ...Option) *Controller {
	if cfg.MaxFrameDelta <= 0 {
		cfg.MaxFrameDelta = DefaultMaxFrameDelta
	}
	c := &Controller{
		id:    uuid.NewString(),
		cfg:   cfg,
		log:   zerolog.Nop(),
		poses: pose.DefaultLibrary(),
		clips: gesture.DefaultLibrary(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With().Str("instance", c.id).Logger()

	if !c.qualitySet {
		q, err := QualityPreset(cfg.Quality)
		if err != nil {
			if cfg.Quality != "" {
				c.log.Warn().Err(err).Msg("falling back to high quality")
			}
			q, _ = QualityPreset(QualityHigh)
		}
		c.quality = q
	}

	seed := motion.SeedFromID(c.id)
	c.resolver = rig.NewResolver(nil, cfg.MaxResolveAttempts)
	c.base = pose.NewLayer(c.poses, pose.Name(cfg.InitialPose), cfg.PoseTransition)
	c.idle = idle.NewLayer(c.id, cfg.Idle, idleOptions(c.quality))
	c.look = lookat.New(cfg.LookAt, motion.NewRand(seed))
	c.gestures = gesture.NewPlayer(c.clips)
	c.reactive = expression.NewReactive(cfg.ExpressionRate)
	c.blink = expression.NewBlinker(cfg.Blink, motion.NewRand(seed+1))
	c.secondary = secondary.New(c.tuning)
	c.secondary.SetEnabled(c.quality.EnablePhysics)
	return c
}

func idleOptions(q QualityConfig) idle.Options {
	return idle.Options{
		WeightShift:    q.EnableWeightShift,
		MicroMovements: q.EnableMicroMovements,
		BreathScale:    q.BreathingDetail,
	}
}

func (c *Controller) ID() string { return c.id }

// AttachSkeleton hands the controller its skeleton. If s also implements
// rig.MorphSink it receives morph weights. Bones are resolved on the
// following ticks.
func (c *Controller) AttachSkeleton(s rig.Skeleton) {
	c.skeleton = s
	if sink, ok := s.(rig.MorphSink); ok && c.sink == nil {
		c.sink = sink
	}
}

// SetMorphSink routes morph weights to a separate face mesh.
func (c *Controller) SetMorphSink(s rig.MorphSink) { c.sink = s }

// Status reports bone discovery progress.
func (c *Controller) Status() rig.ResolveStatus { return c.resolver.Status() }

// SetPose requests a base pose change. Unknown or current poses are ignored.
func (c *Controller) SetPose(p pose.Name) bool {
	return c.base.Request(p, c.now)
}

// Pose returns the pose the character is at or heading to.
func (c *Controller) Pose() pose.Name { return c.base.Current() }

// PlayGesture starts a clip; onComplete runs once when it fully blends out.
func (c *Controller) PlayGesture(name gesture.Name, onComplete func()) bool {
	return c.gestures.Start(name, c.now, onComplete)
}

// StopGesture forces the active clip to blend out.
func (c *Controller) StopGesture() { c.gestures.Stop(c.now) }

// GestureState returns the gesture player's record.
func (c *Controller) GestureState() gesture.State { return c.gestures.State() }

// SetLookAt sets the gaze target in world space; nil releases it.
func (c *Controller) SetLookAt(target *mgl64.Vec3) { c.look.SetTarget(target) }

// SetPlacement sets the character's world position and facing yaw.
func (c *Controller) SetPlacement(position mgl64.Vec3, facing float64) {
	c.look.SetPlacement(position, facing)
}

// SetContext updates the social context driving the facial expression.
func (c *Controller) SetContext(ctx expression.RelationshipContext) {
	c.reactive.SetContext(ctx)
}

// Expression returns the target facial expression.
func (c *Controller) Expression() expression.Expression { return c.reactive.Target() }

// SetQuality switches optional layers at runtime.
func (c *Controller) SetQuality(q QualityConfig) {
	c.quality = q
	c.idle.SetOptions(idleOptions(q))
	c.secondary.SetEnabled(q.EnablePhysics)
	if !q.EnableEyeTracking {
		c.look.Reset()
	}
}

func (c *Controller) Quality() QualityConfig { return c.quality }

// Panics counts ticks that were abandoned after a recovered panic.
func (c *Controller) Panics() int { return c.panics }

// LastFrame returns the most recent successfully composed frame.
func (c *Controller) LastFrame() (Frame, bool) { return c.last, c.ready }

// Tick advances the character to host time now with delta dt seconds and
// writes the result. It reports whether a new frame was produced; when it
// was not, the skeleton keeps its previous pose.
func (c *Controller) Tick(now, dt float64) (Frame, bool) {
	c.advanceClock(now)
	if c.skeleton == nil {
		return c.last, false
	}
	cache, err := c.resolver.Attempt(c.skeleton)
	switch {
	case errors.Is(err, rig.ErrUnanimatable):
		if !c.failed {
			c.failed = true
			c.log.Warn().Int("attempts", c.resolver.Attempts()).Msg("bone discovery failed, character will not animate")
		}
		return c.last, false
	case err != nil || cache == nil:
		return c.last, false
	}

	frame, err := c.safeStep(cache, now, dt)
	if err != nil {
		c.log.Error().Err(err).Float64("t", now).Msg("tick failed, keeping last pose")
		return c.last, false
	}
	if frame == nil {
		return c.last, false
	}
	c.last, c.ready = *frame, true
	return c.last, true
}

// advanceClock records host time even on ticks that produce nothing, so
// control calls between ticks are stamped with the host clock. Controls
// issued before the first tick are moved onto it.
func (c *Controller) advanceClock(now float64) {
	if math.IsNaN(now) || math.IsInf(now, 0) {
		return
	}
	if !c.clocked {
		c.clocked = true
		c.base.Shift(now - c.now)
		c.gestures.Shift(now - c.now)
	}
	c.now = now
}

// safeStep runs one tick and converts a panic into an error so a single
// malformed character cannot halt the host loop.
func (c *Controller) safeStep(cache *rig.BoneCache, now, dt float64) (frame *Frame, err error) {
	defer func() {
		if r := recover(); r != nil {
			c.panics++
			frame, err = nil, fmt.Errorf("%w: %v", ErrTickPanic, r)
		}
	}()

	if !c.snapped {
		c.snapped = true
		rig.ApplyBoneMap(cache, c.base.Evaluate(now), 1)
		c.log.Debug().Int("bones", cache.Len()).Int("attempts", c.resolver.Attempts()).Msg("bones resolved, base pose snapped")
	}

	if !validDelta(dt, c.cfg.MaxFrameDelta) {
		c.log.Debug().Float64("dt", dt).Msg("skipping tick with abnormal delta")
		return nil, nil
	}

	f := c.compose(now, dt)
	rig.ApplyBoneMap(cache, f.Bones, 1)
	if c.sink != nil {
		c.sink.SetMorphWeights(f.Morphs)
	}
	return f, nil
}

func validDelta(dt, limit float64) bool {
	return dt > 0 && !math.IsNaN(dt) && !math.IsInf(dt, 0) && dt <= limit
}

// compose runs the layer stack in priority order: base, idle, look-at,
// gesture, secondary motion.
func (c *Controller) compose(now, dt float64) *Frame {
	bones := c.base.Evaluate(now).Clone()

	c.idle.Apply(bones, now)

	var eyes map[string]float64
	if c.quality.EnableEyeTracking {
		c.look.Update(now, dt)
		if c.look.Active() {
			c.look.Apply(bones)
		}
		eyes = c.look.Morphs()
	}

	clip, weight := c.gestures.Tick(now)
	if weight > 0 {
		rig.Overlay(bones, clip, weight)
	}

	c.secondary.Filter(bones, dt)

	for name, st := range bones {
		bones.Set(name, rig.ClampRotation(name, st.Rotation))
	}

	var expr map[string]float64
	if c.quality.EnableExpressions {
		expr = c.reactive.Update(dt)
	}
	c.blink.Update(now, dt)

	c.seq++
	state := c.gestures.State()
	f := &Frame{
		ID:            c.id,
		Time:          now,
		Seq:           c.seq,
		Bones:         bones,
		Morphs:        rig.UnionMax(zeroMorphs, c.blink.Morphs(), eyes, expr),
		Pose:          c.base.Current(),
		GestureWeight: weight,
		Expression:    c.reactive.Target(),
	}
	if state.IsPlaying {
		f.Gesture = state.Current
	}
	return f
}

// zeroMorphs lists every channel the controller drives so disabled layers
// release their channels instead of leaving stale weights behind.
var zeroMorphs = func() map[string]float64 {
	out := map[string]float64{
		expression.EyeBlinkLeft:  0,
		expression.EyeBlinkRight: 0,
	}
	for _, m := range lookat.EyeMorphs {
		out[m] = 0
	}
	for _, m := range expression.Channels() {
		out[m] = 0
	}
	return out
}()
