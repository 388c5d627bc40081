// Package pose implements the base pose layer: a library of named static
// stances and the eased transition state machine between them.
package pose

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"slices"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/normanking/cortexrig/internal/rig"
)

// Name identifies a base pose.
type Name string

const (
	Relaxed   Name = "relaxed"
	Confident Name = "confident"
	Defensive Name = "defensive"
	Open      Name = "open"
	Thinking  Name = "thinking"
)

var (
	ErrUnknownPose = errors.New("unknown pose")
	ErrInvalidPose = errors.New("invalid pose data")
)

//go:embed data/poses.yaml
var defaultPoses []byte

// Source resolves pose names to bone maps. Returned maps are shared and must
// not be mutated.
type Source interface {
	Pose(name Name) (rig.BoneMap, bool)
}

// Library is an immutable set of pose definitions.
type Library struct {
	poses map[Name]rig.BoneMap
}

var (
	defaultOnce sync.Once
	defaultLib  *Library
)

// DefaultLibrary returns the built-in poses.
func DefaultLibrary() *Library {
	defaultOnce.Do(func() {
		lib, err := ParseLibrary(defaultPoses)
		if err != nil {
			panic(fmt.Sprintf("pose: embedded library: %v", err))
		}
		defaultLib = lib
	})
	return defaultLib
}

// ParseLibrary decodes a YAML document mapping pose names to bone maps.
func ParseLibrary(data []byte) (*Library, error) {
	var raw map[string]rig.BoneMap
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse poses: %w", err)
	}
	lib := &Library{poses: make(map[Name]rig.BoneMap, len(raw))}
	for name, bones := range raw {
		if err := validate(name, bones); err != nil {
			return nil, err
		}
		lib.poses[Name(name)] = bones
	}
	return lib, nil
}

func validate(name string, bones rig.BoneMap) error {
	if len(bones) == 0 {
		return fmt.Errorf("%w: pose %q has no bones", ErrInvalidPose, name)
	}
	for bone, st := range bones {
		if !slices.Contains(rig.BoneNames, bone) {
			return fmt.Errorf("%w: pose %q: unknown bone %q", ErrInvalidPose, name, bone)
		}
		if !st.Rotation.IsFinite() {
			return fmt.Errorf("%w: pose %q: bone %q is not finite", ErrInvalidPose, name, bone)
		}
	}
	return nil
}

func (l *Library) Pose(name Name) (rig.BoneMap, bool) {
	bones, ok := l.poses[name]
	return bones, ok
}

// Names returns the pose names in sorted order.
func (l *Library) Names() []Name {
	out := make([]Name, 0, len(l.poses))
	for n := range l.poses {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Overrides are user-authored replacement bone maps keyed by pose name.
type Overrides map[Name]rig.BoneMap

// WithOverrides returns a new library where every pose present in o replaces
// the default definition. Overrides for poses the library does not know are
// added as new poses.
func (l *Library) WithOverrides(o Overrides) *Library {
	out := &Library{poses: make(map[Name]rig.BoneMap, len(l.poses)+len(o))}
	for n, b := range l.poses {
		out.poses[n] = b
	}
	for n, b := range o {
		out.poses[n] = b
	}
	return out
}

// ParseOverrides decodes and validates an override table.
func ParseOverrides(data []byte) (Overrides, error) {
	var raw map[string]rig.BoneMap
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse pose overrides: %w", err)
	}
	out := make(Overrides, len(raw))
	for name, bones := range raw {
		if err := validate(name, bones); err != nil {
			return nil, err
		}
		out[Name(name)] = bones
	}
	return out, nil
}

// LoadOverrides reads an override file. A missing file yields no overrides.
func LoadOverrides(path string) (Overrides, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Overrides{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read pose overrides: %w", err)
	}
	return ParseOverrides(data)
}

// SaveOverrides writes an override table as YAML.
func SaveOverrides(path string, o Overrides) error {
	data, err := yaml.Marshal(o)
	if err != nil {
		return fmt.Errorf("encode pose overrides: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write pose overrides: %w", err)
	}
	return nil
}
