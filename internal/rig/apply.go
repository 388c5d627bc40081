package rig

// ApplyBoneMap writes m onto the cached bones. Targets are clamped to the
// bone limits first. blend >= 1 snaps; otherwise each bone moves linearly
// from its current rotation toward the target. Bones missing from the cache
// are skipped.
func ApplyBoneMap(cache *BoneCache, m BoneMap, blend float64) {
	blend = Finite(blend)
	if blend <= 0 {
		return
	}
	for name, st := range m {
		bone, ok := cache.Get(name)
		if !ok {
			continue
		}
		target := ClampRotation(name, st.Rotation)
		if blend >= 1 {
			bone.SetRotation(target)
			continue
		}
		current := bone.Rotation().Sanitize()
		bone.SetRotation(ClampRotation(name, current.Lerp(target, blend)))
	}
}

// WeightedMap is one contributor to BlendBoneMaps.
type WeightedMap struct {
	Bones  BoneMap
	Weight float64
}

// BlendBoneMaps returns the per-bone weighted average of the given maps.
// Only maps that contain a bone contribute to it; non-positive weights are
// ignored.
func BlendBoneMaps(layers []WeightedMap) BoneMap {
	type acc struct {
		sum    Rotation
		weight float64
	}
	sums := make(map[string]*acc)
	for _, layer := range layers {
		w := Finite(layer.Weight)
		if w <= 0 {
			continue
		}
		for name, st := range layer.Bones {
			a, ok := sums[name]
			if !ok {
				a = &acc{}
				sums[name] = a
			}
			a.sum = a.sum.Add(st.Rotation.Sanitize().Scale(w))
			a.weight += w
		}
	}

	out := make(BoneMap, len(sums))
	for name, a := range sums {
		out.Set(name, a.sum.Scale(1/a.weight))
	}
	return out
}

// Overlay blends over onto base in place with the given weight, as used by
// override layers. Bones only present in over are blended from zero.
func Overlay(base, over BoneMap, weight float64) {
	weight = Finite(weight)
	if weight <= 0 {
		return
	}
	if weight > 1 {
		weight = 1
	}
	for name, st := range over {
		cur, _ := base.Rotation(name)
		base.Set(name, cur.Lerp(st.Rotation.Sanitize(), weight))
	}
}
