package motion

import (
	"math"
	"math/rand/v2"

	"github.com/cespare/xxhash/v2"
)

// SmoothNoise is a cheap multi-octave pseudo noise in [-1,1]: three sines at
// incommensurate frequencies, so it never visibly repeats.
func SmoothNoise(t float64) float64 {
	n1 := math.Sin(t)
	n2 := math.Sin(t*2.3+1.7) * 0.5
	n3 := math.Sin(t*4.1+3.2) * 0.25
	return (n1 + n2 + n3) / 1.75
}

// HarmonicNoise is multi-octave noise that is periodic in phase (period 2π),
// in [-1,1]. offset decorrelates instances.
func HarmonicNoise(phase, offset float64) float64 {
	n1 := math.Sin(2*phase + offset)
	n2 := math.Sin(3*phase+offset*1.7) * 0.5
	n3 := math.Sin(5*phase+offset*2.9) * 0.25
	return (n1 + n2 + n3) / 1.75
}

// PhaseFromID folds a stable hash of id into [0, 2π).
func PhaseFromID(id string) float64 {
	h := xxhash.Sum64String(id)
	return float64(h%1_000_000) / 1_000_000 * 2 * math.Pi
}

// SeedFromID derives a generator seed from an instance id.
func SeedFromID(id string) uint64 {
	return xxhash.Sum64String(id)
}

// NewRand returns a deterministic generator for one instance.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}
