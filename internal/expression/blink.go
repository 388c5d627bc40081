package expression

import (
	"math/rand/v2"

	"github.com/normanking/cortexrig/internal/motion"
)

const (
	EyeBlinkLeft  = "eyeBlinkLeft"
	EyeBlinkRight = "eyeBlinkRight"
)

type BlinkState int

const (
	BlinkOpen BlinkState = iota
	BlinkClosing
	BlinkClosed
	BlinkOpening
)

type BlinkConfig struct {
	Duration float64 `mapstructure:"duration" yaml:"duration"` // seconds for a full blink
	MinGap   float64 `mapstructure:"min_gap" yaml:"min_gap"`   // seconds between blinks
	MaxGap   float64 `mapstructure:"max_gap" yaml:"max_gap"`
}

func DefaultBlinkConfig() BlinkConfig {
	return BlinkConfig{Duration: 0.15, MinGap: 2, MaxGap: 5}
}

// Blinker runs the blink cycle Open → Closing → Closed → Opening on the
// host clock.
type Blinker struct {
	cfg      BlinkConfig
	rng      *rand.Rand
	state    BlinkState
	progress float64
	next     float64
	started  bool
}

// NewBlinker returns an open-eyed blinker. rng spaces blinks; nil uses the
// midpoint of the gap range.
func NewBlinker(cfg BlinkConfig, rng *rand.Rand) *Blinker {
	if cfg.Duration <= 0 {
		cfg.Duration = DefaultBlinkConfig().Duration
	}
	if cfg.MaxGap < cfg.MinGap {
		cfg.MaxGap = cfg.MinGap
	}
	return &Blinker{cfg: cfg, rng: rng}
}

func (b *Blinker) State() BlinkState { return b.state }

// Trigger starts a blink now if the eyes are open.
func (b *Blinker) Trigger() {
	if b.state == BlinkOpen {
		b.state = BlinkClosing
		b.progress = 0
	}
}

func (b *Blinker) gap() float64 {
	span := b.cfg.MaxGap - b.cfg.MinGap
	if b.rng == nil {
		return b.cfg.MinGap + span/2
	}
	return b.cfg.MinGap + b.rng.Float64()*span
}

// Update advances the cycle and returns the eyelid closure in [0,1].
func (b *Blinker) Update(now, dt float64) float64 {
	if !b.started {
		b.started = true
		b.next = now + b.gap()
	}
	d := b.cfg.Duration
	switch b.state {
	case BlinkOpen:
		if now >= b.next {
			b.state = BlinkClosing
			b.progress = 0
		}
	case BlinkClosing:
		b.progress += dt / (d * 0.4)
		if b.progress >= 1 {
			b.progress = 1
			b.state = BlinkClosed
		}
	case BlinkClosed:
		b.progress += dt / (d * 0.1)
		if b.progress >= 1.1 {
			b.progress = 1
			b.state = BlinkOpening
		}
	case BlinkOpening:
		b.progress -= dt / (d * 0.5)
		if b.progress <= 0 {
			b.progress = 0
			b.state = BlinkOpen
			b.next = now + b.gap()
		}
	}
	return b.Amount()
}

// Amount is the current eyelid closure.
func (b *Blinker) Amount() float64 {
	switch b.state {
	case BlinkClosing:
		return motion.OutQuad(b.progress)
	case BlinkClosed:
		return 1
	case BlinkOpening:
		return motion.InQuad(b.progress)
	default:
		return 0
	}
}

// Morphs returns the blink channels.
func (b *Blinker) Morphs() map[string]float64 {
	a := b.Amount()
	return map[string]float64{EyeBlinkLeft: a, EyeBlinkRight: a}
}
