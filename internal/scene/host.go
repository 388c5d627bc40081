// Package scene hosts many animated characters on one clock.
package scene

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/normanking/cortexrig/internal/animator"
)

var (
	// ErrDuplicateID is returned when a character id is already hosted.
	ErrDuplicateID = errors.New("character id already hosted")
	// ErrNotFound is returned for an unknown character id.
	ErrNotFound = errors.New("character not found")
)

// FrameSink receives every composed frame set, in host order.
type FrameSink interface {
	Publish(frames []animator.Frame)
}

// Host owns a set of controllers and advances them together. Controllers
// share nothing mutable, so one step ticks them in parallel. Control calls
// must go through Do so they never race a step.
type Host struct {
	mu      sync.Mutex
	order   []string
	chars   map[string]*animator.Controller
	now     float64
	steps   uint64
	workers int
	sinks   []FrameSink
	metrics *Metrics
	log     zerolog.Logger
}

// Option configures a Host.
type Option func(*Host)

// WithWorkers bounds the number of characters ticked at once; n <= 0 ticks
// all of them in parallel.
func WithWorkers(n int) Option {
	return func(h *Host) { h.workers = n }
}

func WithLogger(log zerolog.Logger) Option {
	return func(h *Host) { h.log = log }
}

// WithSink adds a frame sink.
func WithSink(s FrameSink) Option {
	return func(h *Host) {
		if s != nil {
			h.sinks = append(h.sinks, s)
		}
	}
}

// WithMetrics records step timings and frame counts.
func WithMetrics(m *Metrics) Option {
	return func(h *Host) { h.metrics = m }
}

func NewHost(opts ...Option) *Host {
	h := &Host{
		chars: make(map[string]*animator.Controller),
		log:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Add hosts a controller under its id.
func (h *Host) Add(c *animator.Controller) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.chars[c.ID()]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateID, c.ID())
	}
	h.chars[c.ID()] = c
	h.order = append(h.order, c.ID())
	h.metrics.setCharacters(len(h.order))
	h.log.Debug().Str("instance", c.ID()).Int("characters", len(h.order)).Msg("character added")
	return nil
}

// Remove drops a character. It reports whether it was hosted.
func (h *Host) Remove(id string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.chars[id]; !ok {
		return false
	}
	delete(h.chars, id)
	for i, o := range h.order {
		if o == id {
			h.order = append(h.order[:i], h.order[i+1:]...)
			break
		}
	}
	h.metrics.setCharacters(len(h.order))
	return true
}

// Do runs fn against one character between steps.
func (h *Host) Do(id string, fn func(*animator.Controller)) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.chars[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	fn(c)
	return nil
}

// IDs returns the hosted ids in insertion order.
func (h *Host) IDs() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.order...)
}

func (h *Host) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.order)
}

// Now returns the host clock in seconds.
func (h *Host) Now() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.now
}

// Steps returns the number of completed steps.
func (h *Host) Steps() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.steps
}

// Step advances the clock by dt and ticks every character. Characters that
// produced no frame this step are left out of the result. The clock
// advances even when the controllers reject dt.
func (h *Host) Step(ctx context.Context, dt float64) ([]animator.Frame, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.now += dt
	now := h.now
	start := time.Now()

	chars := make([]*animator.Controller, len(h.order))
	for i, id := range h.order {
		chars[i] = h.chars[id]
	}
	frames := make([]animator.Frame, len(chars))
	produced := make([]bool, len(chars))

	g, gCtx := errgroup.WithContext(ctx)
	if h.workers > 0 {
		g.SetLimit(h.workers)
	}
	for i, c := range chars {
		i, c := i, c
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			frames[i], produced[i] = c.Tick(now, dt)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("scene step at t=%.3f: %w", now, err)
	}
	h.steps++

	out := frames[:0]
	for i, f := range frames {
		if produced[i] {
			out = append(out, f)
		}
	}
	h.metrics.observeStep(time.Since(start).Seconds(), len(chars), len(out))
	for _, s := range h.sinks {
		s.Publish(out)
	}
	return out, nil
}

// Run steps the host at fps until ctx is cancelled, measuring dt from the
// wall clock. onFrames, if set, sees every step's frames.
func (h *Host) Run(ctx context.Context, fps float64, onFrames func([]animator.Frame)) error {
	if fps <= 0 {
		return fmt.Errorf("invalid fps %v", fps)
	}
	ticker := time.NewTicker(time.Duration(float64(time.Second) / fps))
	defer ticker.Stop()

	h.log.Info().Float64("fps", fps).Int("characters", h.Len()).Msg("scene running")
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			h.log.Info().Uint64("steps", h.Steps()).Msg("scene stopped")
			return nil
		case t := <-ticker.C:
			dt := t.Sub(last).Seconds()
			last = t
			frames, err := h.Step(ctx, dt)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
			if onFrames != nil {
				onFrames(frames)
			}
		}
	}
}

// Stats summarizes the hosted characters.
type Stats struct {
	Characters int            `json:"characters"`
	Steps      uint64         `json:"steps"`
	Now        float64        `json:"now"`
	Panics     map[string]int `json:"panics,omitempty"`
}

func (h *Host) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	s := Stats{Characters: len(h.order), Steps: h.steps, Now: h.now}
	for _, id := range h.order {
		if n := h.chars[id].Panics(); n > 0 {
			if s.Panics == nil {
				s.Panics = make(map[string]int)
			}
			s.Panics[id] = n
		}
	}
	return s
}
