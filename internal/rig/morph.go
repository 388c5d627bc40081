package rig

import "math"

// Morphs maps morph-target channel names to weights in [0,1].
type Morphs map[string]float64

// UnionMax merges layers by taking the largest weight per channel, so a
// blink during a wide-eyed expression still closes the eyes. Non-finite
// weights count as 0 and results are clamped to [0,1].
func UnionMax(layers ...map[string]float64) Morphs {
	n := 0
	for _, l := range layers {
		n += len(l)
	}
	out := make(Morphs, n)
	for _, l := range layers {
		for name, w := range l {
			w = math.Min(math.Max(Finite(w), 0), 1)
			if cur, ok := out[name]; !ok || w > cur {
				out[name] = w
			}
		}
	}
	return out
}
