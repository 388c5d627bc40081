package animator

import (
	"github.com/rs/zerolog"

	"github.com/normanking/cortexrig/internal/expression"
	"github.com/normanking/cortexrig/internal/gesture"
	"github.com/normanking/cortexrig/internal/idle"
	"github.com/normanking/cortexrig/internal/lookat"
	"github.com/normanking/cortexrig/internal/motion"
	"github.com/normanking/cortexrig/internal/pose"
)

// DefaultMaxFrameDelta is the largest dt, in seconds, a tick will integrate.
// Longer gaps mean the host was paused and the tick is skipped.
const DefaultMaxFrameDelta = 0.25

// Config tunes one character. It is usually loaded through internal/config.
type Config struct {
	MaxFrameDelta      float64 `mapstructure:"max_frame_delta" yaml:"max_frame_delta"`
	PoseTransition     float64 `mapstructure:"pose_transition" yaml:"pose_transition"`
	MaxResolveAttempts int     `mapstructure:"max_resolve_attempts" yaml:"max_resolve_attempts"`
	InitialPose        string  `mapstructure:"initial_pose" yaml:"initial_pose"`
	ExpressionRate     float64 `mapstructure:"expression_rate" yaml:"expression_rate"`
	Quality            string  `mapstructure:"quality" yaml:"quality"`

	Idle   idle.Config            `mapstructure:"idle" yaml:"idle"`
	LookAt lookat.Config          `mapstructure:"lookat" yaml:"lookat"`
	Blink  expression.BlinkConfig `mapstructure:"blink" yaml:"blink"`
}

func DefaultConfig() Config {
	return Config{
		MaxFrameDelta:      DefaultMaxFrameDelta,
		PoseTransition:     pose.DefaultTransition,
		MaxResolveAttempts: 30,
		InitialPose:        string(pose.Relaxed),
		ExpressionRate:     expression.DefaultRate,
		Quality:            QualityHigh,
		Idle:               idle.DefaultConfig(),
		LookAt:             lookat.DefaultConfig(),
		Blink:              expression.DefaultBlinkConfig(),
	}
}

// Option configures a Controller.
type Option func(*Controller)

// WithID sets the instance id. It seeds the per-instance phase and random
// generator, so equal ids animate identically.
func WithID(id string) Option {
	return func(c *Controller) {
		if id != "" {
			c.id = id
		}
	}
}

// WithPoses replaces the pose source, e.g. with a hot-reloading watcher.
func WithPoses(src pose.Source) Option {
	return func(c *Controller) {
		if src != nil {
			c.poses = src
		}
	}
}

// WithClips replaces the gesture clip source.
func WithClips(src gesture.Source) Option {
	return func(c *Controller) {
		if src != nil {
			c.clips = src
		}
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Controller) {
		c.log = log
	}
}

// WithQuality overrides the tier named in Config.
func WithQuality(q QualityConfig) Option {
	return func(c *Controller) {
		c.quality = q
		c.qualitySet = true
	}
}

// WithSecondaryTuning overrides per-bone follow-through springs.
func WithSecondaryTuning(t map[string]motion.SpringConfig) Option {
	return func(c *Controller) {
		c.tuning = t
	}
}
