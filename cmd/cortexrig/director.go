package main

import (
	"math/rand/v2"

	"github.com/normanking/cortexrig/internal/animator"
	"github.com/normanking/cortexrig/internal/expression"
	"github.com/normanking/cortexrig/internal/gesture"
	"github.com/normanking/cortexrig/internal/motion"
	"github.com/normanking/cortexrig/internal/pose"
	"github.com/normanking/cortexrig/internal/scene"
)

// director gives headless characters something to do: occasional idle
// variants, pose changes and shifting social context.
type director struct {
	rng      *rand.Rand
	ids      []string
	next     map[string]float64
	interval float64
}

func newDirector(ids []string, seed uint64) *director {
	d := &director{
		rng:      motion.NewRand(seed),
		ids:      ids,
		next:     make(map[string]float64, len(ids)),
		interval: 3,
	}
	for _, id := range ids {
		d.next[id] = d.rng.Float64() * d.interval
	}
	return d
}

var directedPoses = []pose.Name{pose.Relaxed, pose.Confident, pose.Thinking, pose.Defensive, pose.Open}

func (d *director) step(h *scene.Host, now float64) {
	for _, id := range d.ids {
		if now < d.next[id] {
			continue
		}
		d.next[id] = now + d.interval + d.rng.Float64()*d.interval
		roll := d.rng.Float64()
		score := d.rng.Float64()*160 - 80
		_ = h.Do(id, func(c *animator.Controller) {
			switch {
			case roll < 0.5:
				c.PlayGesture(gesture.IdleVariants[d.rng.IntN(len(gesture.IdleVariants))], nil)
			case roll < 0.75:
				c.SetPose(directedPoses[d.rng.IntN(len(directedPoses))])
			default:
				c.SetContext(expression.RelationshipContext{HasSelection: true, Score: score})
			}
		})
	}
}
