// Package gltfrig adapts a glTF document to the engine's skeleton and morph
// interfaces so animated frames can be baked back to disk.
package gltfrig

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/qmuntal/gltf"

	"github.com/normanking/cortexrig/internal/rig"
)

// ErrNoBones is returned for a document without any named node.
var ErrNoBones = errors.New("gltf document has no named nodes")

// Bone is a glTF node seen as a rig bone. Rotations are XYZ Euler angles
// stored back into the node's quaternion.
type Bone struct {
	node *gltf.Node
}

func (b *Bone) Name() string { return b.node.Name }

func (b *Bone) Rotation() rig.Rotation { return toEuler(b.node.Rotation) }

func (b *Bone) SetRotation(r rig.Rotation) { b.node.Rotation = toQuat(r.Sanitize()) }

type morphRef struct {
	mesh   int
	target int
}

// Rig implements rig.Skeleton and rig.MorphSink over a loaded document.
type Rig struct {
	doc    *gltf.Document
	bones  map[string]*Bone
	morphs map[string][]morphRef
}

// Load opens a .gltf or .glb file.
func Load(path string) (*Rig, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return FromDocument(doc)
}

// FromDocument indexes the bones and morph channels of doc. Skin joints are
// the bones when the document is skinned; otherwise every named node is.
// Morph channels are named by each mesh's extras.targetNames.
func FromDocument(doc *gltf.Document) (*Rig, error) {
	r := &Rig{
		doc:    doc,
		bones:  make(map[string]*Bone),
		morphs: make(map[string][]morphRef),
	}

	joints := make(map[int]bool)
	for _, skin := range doc.Skins {
		for _, j := range skin.Joints {
			joints[j] = true
		}
	}
	for i, n := range doc.Nodes {
		if n == nil || n.Name == "" {
			continue
		}
		if len(joints) > 0 && !joints[i] {
			continue
		}
		if _, dup := r.bones[n.Name]; dup {
			continue
		}
		r.bones[n.Name] = &Bone{node: n}
	}
	if len(r.bones) == 0 {
		return nil, ErrNoBones
	}

	for mi, mesh := range doc.Meshes {
		if mesh == nil {
			continue
		}
		names := targetNames(mesh.Extras)
		count := len(names)
		for _, p := range mesh.Primitives {
			if p != nil && len(p.Targets) > count {
				count = len(p.Targets)
			}
		}
		if count == 0 {
			continue
		}
		if len(mesh.Weights) < count {
			w := make([]float64, count)
			copy(w, mesh.Weights)
			mesh.Weights = w
		}
		for ti, name := range names {
			if name == "" || ti >= count {
				continue
			}
			r.morphs[name] = append(r.morphs[name], morphRef{mesh: mi, target: ti})
		}
	}
	return r, nil
}

func targetNames(extras any) []string {
	m, ok := extras.(map[string]any)
	if !ok {
		return nil
	}
	switch v := m["targetNames"].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, len(v))
		for i, n := range v {
			out[i], _ = n.(string)
		}
		return out
	}
	return nil
}

// Bone implements rig.Skeleton.
func (r *Rig) Bone(name string) (rig.Bone, bool) {
	b, ok := r.bones[name]
	if !ok {
		return nil, false
	}
	return b, true
}

// SetMorphWeights implements rig.MorphSink. Unknown channels are ignored.
// Node-level weights, which override mesh weights in glTF, are kept in sync.
func (r *Rig) SetMorphWeights(weights map[string]float64) {
	for name, w := range weights {
		for _, ref := range r.morphs[name] {
			r.doc.Meshes[ref.mesh].Weights[ref.target] = rig.Finite(w)
		}
	}
	for _, n := range r.doc.Nodes {
		if n == nil || n.Mesh == nil || len(n.Weights) == 0 {
			continue
		}
		copy(n.Weights, r.doc.Meshes[*n.Mesh].Weights)
	}
}

// Morph returns the weight of a channel, or 0 when it is unknown.
func (r *Rig) Morph(name string) float64 {
	refs := r.morphs[name]
	if len(refs) == 0 {
		return 0
	}
	return r.doc.Meshes[refs[0].mesh].Weights[refs[0].target]
}

// BoneNames returns the bone node names, sorted.
func (r *Rig) BoneNames() []string {
	out := make([]string, 0, len(r.bones))
	for n := range r.bones {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// MorphNames returns the named morph channels, sorted.
func (r *Rig) MorphNames() []string {
	out := make([]string, 0, len(r.morphs))
	for n := range r.morphs {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func (r *Rig) Document() *gltf.Document { return r.doc }

// Save writes the document; a .glb extension selects the binary container.
func (r *Rig) Save(path string) error {
	var err error
	if strings.EqualFold(filepath.Ext(path), ".glb") {
		err = gltf.SaveBinary(r.doc, path)
	} else {
		err = gltf.Save(r.doc, path)
	}
	if err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}
