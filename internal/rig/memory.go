package rig

import "sort"

// MemoryBone is a plain in-memory bone.
type MemoryBone struct {
	rot Rotation
}

func (b *MemoryBone) Rotation() Rotation     { return b.rot }
func (b *MemoryBone) SetRotation(r Rotation) { b.rot = r }

// MemorySkeleton is a Skeleton and MorphSink with no renderer behind it.
// It is used by the headless host and by tests.
type MemorySkeleton struct {
	bones  map[string]*MemoryBone
	morphs map[string]float64
}

// NewMemorySkeleton creates bones with the given host names, all at rest.
func NewMemorySkeleton(names ...string) *MemorySkeleton {
	s := &MemorySkeleton{
		bones:  make(map[string]*MemoryBone, len(names)),
		morphs: make(map[string]float64),
	}
	for _, n := range names {
		s.bones[n] = &MemoryBone{}
	}
	return s
}

// NewFullSkeleton creates a MemorySkeleton with every canonical bone.
func NewFullSkeleton() *MemorySkeleton {
	return NewMemorySkeleton(BoneNames...)
}

func (s *MemorySkeleton) Bone(name string) (Bone, bool) {
	b, ok := s.bones[name]
	if !ok {
		return nil, false
	}
	return b, true
}

func (s *MemorySkeleton) SetMorphWeights(weights map[string]float64) {
	for k, v := range weights {
		s.morphs[k] = v
	}
}

// Morph returns the last weight written for a morph channel.
func (s *MemorySkeleton) Morph(name string) float64 {
	return s.morphs[name]
}

// Rotations returns a snapshot of every bone keyed by host name.
func (s *MemorySkeleton) Rotations() BoneMap {
	out := make(BoneMap, len(s.bones))
	for n, b := range s.bones {
		out.Set(n, b.rot)
	}
	return out
}

// Names returns the host bone names in sorted order.
func (s *MemorySkeleton) Names() []string {
	out := make([]string, 0, len(s.bones))
	for n := range s.bones {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
