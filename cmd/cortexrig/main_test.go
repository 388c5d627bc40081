package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/qmuntal/gltf"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/normanking/cortexrig/internal/animator"
	"github.com/normanking/cortexrig/internal/expression"
	"github.com/normanking/cortexrig/internal/gltfrig"
	"github.com/normanking/cortexrig/internal/rig"
	"github.com/normanking/cortexrig/internal/scene"
)

// execute runs the CLI with a config that keeps logs quiet.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "cortexrig.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("log:\n  level: error\n  console: false\n"), 0644))

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", cfgPath}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestClipsList(t *testing.T) {
	out, err := execute(t, "clips", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "wave")
	assert.Contains(t, out, "walk")
}

func TestClipsValidate(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.yaml")
	require.NoError(t, os.WriteFile(good, []byte(`
bow:
  duration: 1.0
  blend_in: 0.2
  blend_out: 0.2
  interruptible: true
  keyframes:
    - time: 0
      bones:
        Spine: {x: 0}
    - time: 0.5
      bones:
        Spine: {x: 0.4}
    - time: 1
      bones:
        Spine: {x: 0}
`), 0644))
	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("bow:\n  duration: 0\n"), 0644))

	out, err := execute(t, "clips", "validate", good)
	require.NoError(t, err)
	assert.Contains(t, out, "1 clips")

	out, err = execute(t, "clips", "validate", good, bad)
	assert.Error(t, err)
	assert.Contains(t, out, "bad.yaml")
}

func TestSimulateWritesFrames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frames.jsonl")
	_, err := execute(t, "simulate", "--duration", "1", "--characters", "3", "--fps", "30", "--every", "10", "--out", path)
	require.NoError(t, err)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	lines := 0
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 1<<20), 1<<22)
	for sc.Scan() {
		var rec struct {
			Step   int              `json:"step"`
			Frames []animator.Frame `json:"frames"`
		}
		require.NoError(t, json.Unmarshal(sc.Bytes(), &rec))
		assert.Len(t, rec.Frames, 3)
		assert.Equal(t, lines*10, rec.Step)
		lines++
	}
	require.NoError(t, sc.Err())
	assert.Equal(t, 3, lines)
}

func writeModel(t *testing.T, path string) {
	t.Helper()
	doc := &gltf.Document{Asset: gltf.Asset{Version: "2.0"}}
	for _, n := range rig.BoneNames {
		doc.Nodes = append(doc.Nodes, &gltf.Node{Name: n, Rotation: [4]float64{0, 0, 0, 1}})
	}
	doc.Meshes = []*gltf.Mesh{{
		Name:   "face",
		Extras: map[string]any{"targetNames": []any{expression.MouthSmileLeft}},
	}}
	require.NoError(t, gltf.Save(doc, path))
}

func TestBake(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.gltf")
	out := filepath.Join(dir, "out.glb")
	writeModel(t, in)

	_, err := execute(t, "bake", in, out, "--pose", "confident", "--expression", "admiration", "--at", "2")
	require.NoError(t, err)

	r, err := gltfrig.Load(out)
	require.NoError(t, err)
	assert.Greater(t, r.Morph(expression.MouthSmileLeft), 0.3)
	spine, ok := r.Bone(rig.Spine)
	require.True(t, ok)
	assert.NotEqual(t, rig.Rotation{}, spine.Rotation())

	_, err = execute(t, "bake", in, out, "--gesture", "moonwalk")
	assert.Error(t, err)
	_, err = execute(t, "bake", in, out, "--expression", "smug")
	assert.Error(t, err)
}

func TestContextForSelectsExpression(t *testing.T) {
	for _, e := range []expression.Expression{
		expression.Neutral, expression.Confidence, expression.Respect, expression.Concern,
		expression.Admiration, expression.Jealousy, expression.Curiosity,
	} {
		ctx, err := contextFor(e)
		require.NoError(t, err)
		assert.Equal(t, e, expression.SelectExpression(ctx), e)
	}
}

func TestReporter(t *testing.T) {
	_, err := newReporter("every minute", zerolog.Nop(), scene.NewHost(), nil, nil)
	assert.Error(t, err)

	var buf bytes.Buffer
	h := scene.NewHost()
	c := animator.New(animator.DefaultConfig(), animator.WithID("a"))
	c.AttachSkeleton(rig.NewFullSkeleton())
	require.NoError(t, h.Add(c))

	r, err := newReporter("@every 1h", zerolog.New(&buf), h, nil, nil)
	require.NoError(t, err)
	r.report()

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "scene report", rec["message"])
	assert.Equal(t, 1.0, rec["characters"])
	assert.NotContains(t, rec, "viewers")
}
