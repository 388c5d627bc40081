// Package gesture implements discrete keyframed clips and the player that
// blends them in and out over the rest of the animation stack.
package gesture

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"slices"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/normanking/cortexrig/internal/motion"
	"github.com/normanking/cortexrig/internal/rig"
)

// Name identifies a clip.
type Name string

const (
	Wave      Name = "wave"
	Nod       Name = "nod"
	Shrug     Name = "shrug"
	Clap      Name = "clap"
	Point     Name = "point"
	ThumbsUp  Name = "thumbsUp"
	HeadShake Name = "headShake"
	Celebrate Name = "celebrate"
	Thinking  Name = "thinking"
	Welcome   Name = "welcome"
	Dismiss   Name = "dismiss"
	ListenNod Name = "listenNod"
	Walk      Name = "walk"

	IdleLookAround  Name = "idleLookAround"
	IdleStretch     Name = "idleStretch"
	IdleCheckWatch  Name = "idleCheckWatch"
	IdleShiftWeight Name = "idleShiftWeight"
	IdleScratchHead Name = "idleScratchHead"
)

// IdleVariants are the clips an autonomous character may pick on its own.
var IdleVariants = []Name{IdleLookAround, IdleStretch, IdleCheckWatch, IdleShiftWeight, IdleScratchHead}

var (
	ErrUnknownClip = errors.New("unknown gesture clip")
	ErrInvalidClip = errors.New("invalid gesture clip")
)

//go:embed data/clips.yaml
var defaultClips []byte

// Keyframe is a partial bone map at a normalized clip time. Easing shapes the
// segment that ends on this keyframe.
type Keyframe struct {
	Time   float64       `yaml:"time"`
	Easing motion.Easing `yaml:"easing,omitempty"`
	Bones  rig.BoneMap   `yaml:"bones"`

	ease motion.EaseFunc
}

// Definition is one clip.
type Definition struct {
	Name          Name       `yaml:"-"`
	Duration      float64    `yaml:"duration"`
	BlendIn       float64    `yaml:"blend_in"`
	BlendOut      float64    `yaml:"blend_out"`
	Interruptible bool       `yaml:"interruptible"`
	Loop          bool       `yaml:"loop,omitempty"`
	Keyframes     []Keyframe `yaml:"keyframes"`

	times []float64
}

// Bones returns the union of bones the clip drives.
func (d *Definition) Bones() []string {
	if len(d.Keyframes) == 0 {
		return nil
	}
	out := make([]string, 0, len(d.Keyframes[0].Bones))
	for name := range d.Keyframes[0].Bones {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Sample returns the bone map at normalized progress p in [0,1].
func (d *Definition) Sample(p float64) rig.BoneMap {
	kfs := d.Keyframes
	if len(kfs) == 0 {
		return rig.BoneMap{}
	}
	p = motion.Clamp01(p)

	idx := sort.Search(len(d.times), func(i int) bool {
		return d.times[i] > p
	})
	if idx == 0 {
		return kfs[0].Bones.Clone()
	}
	if idx >= len(kfs) {
		return kfs[len(kfs)-1].Bones.Clone()
	}

	prev, next := kfs[idx-1], kfs[idx]
	var alpha float64
	if span := next.Time - prev.Time; span > 0 {
		alpha = (p - prev.Time) / span
	}
	alpha = next.ease(motion.Clamp01(alpha))

	out := make(rig.BoneMap, len(prev.Bones))
	for name, a := range prev.Bones {
		b, ok := next.Bones[name]
		if !ok {
			out[name] = a
			continue
		}
		out.Set(name, a.Rotation.Lerp(b.Rotation, alpha))
	}
	return out
}

// prepare validates d, resolves easings and fills sparse keyframes so every
// keyframe names every bone the clip drives.
func (d *Definition) prepare() error {
	if d.Duration <= 0 {
		return fmt.Errorf("%w: %s: duration must be positive", ErrInvalidClip, d.Name)
	}
	if d.BlendIn < 0 || d.BlendOut < 0 {
		return fmt.Errorf("%w: %s: negative blend duration", ErrInvalidClip, d.Name)
	}
	if len(d.Keyframes) < 2 {
		return fmt.Errorf("%w: %s: need at least two keyframes", ErrInvalidClip, d.Name)
	}
	if first := d.Keyframes[0].Time; first != 0 {
		return fmt.Errorf("%w: %s: first keyframe at %v, want 0", ErrInvalidClip, d.Name, first)
	}
	if last := d.Keyframes[len(d.Keyframes)-1].Time; last != 1 {
		return fmt.Errorf("%w: %s: last keyframe at %v, want 1", ErrInvalidClip, d.Name, last)
	}

	seen := map[string]bool{}
	d.times = make([]float64, len(d.Keyframes))
	for i := range d.Keyframes {
		kf := &d.Keyframes[i]
		if kf.Time < 0 || kf.Time > 1 {
			return fmt.Errorf("%w: %s: keyframe %d time %v outside [0,1]", ErrInvalidClip, d.Name, i, kf.Time)
		}
		if i > 0 && kf.Time < d.Keyframes[i-1].Time {
			return fmt.Errorf("%w: %s: keyframe %d goes back in time", ErrInvalidClip, d.Name, i)
		}
		ease, err := kf.Easing.Func()
		if err != nil {
			return fmt.Errorf("%w: %s: keyframe %d: %v", ErrInvalidClip, d.Name, i, err)
		}
		kf.ease = ease
		for bone, st := range kf.Bones {
			if !slices.Contains(rig.BoneNames, bone) {
				return fmt.Errorf("%w: %s: keyframe %d: unknown bone %q", ErrInvalidClip, d.Name, i, bone)
			}
			if !st.Rotation.IsFinite() {
				return fmt.Errorf("%w: %s: keyframe %d: bone %q is not finite", ErrInvalidClip, d.Name, i, bone)
			}
			seen[bone] = true
		}
		d.times[i] = kf.Time
	}
	if len(seen) == 0 {
		return fmt.Errorf("%w: %s: clip drives no bones", ErrInvalidClip, d.Name)
	}

	fill(d.Keyframes, seen)
	return nil
}

// fill forward-fills each bone from the previous keyframe; bones that first
// appear later are back-filled into the leading keyframes.
func fill(kfs []Keyframe, bones map[string]bool) {
	for bone := range bones {
		var last *rig.BoneState
		for i := range kfs {
			if kfs[i].Bones == nil {
				kfs[i].Bones = rig.BoneMap{}
			}
			if st, ok := kfs[i].Bones[bone]; ok {
				if last == nil {
					for j := 0; j < i; j++ {
						kfs[j].Bones[bone] = st
					}
				}
				last = &st
				continue
			}
			if last != nil {
				kfs[i].Bones[bone] = *last
			}
		}
	}
}

// Source resolves clip names.
type Source interface {
	Clip(name Name) (*Definition, bool)
}

// Library is an immutable set of validated clips.
type Library struct {
	clips map[Name]*Definition
}

var (
	defaultOnce sync.Once
	defaultLib  *Library
)

// DefaultLibrary returns the built-in clips.
func DefaultLibrary() *Library {
	defaultOnce.Do(func() {
		lib, err := ParseLibrary(defaultClips)
		if err != nil {
			panic(fmt.Sprintf("gesture: embedded clips: %v", err))
		}
		defaultLib = lib
	})
	return defaultLib
}

// ParseLibrary decodes and validates a YAML clip document.
func ParseLibrary(data []byte) (*Library, error) {
	var raw map[string]*Definition
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse clips: %w", err)
	}
	lib := &Library{clips: make(map[Name]*Definition, len(raw))}
	for name, def := range raw {
		if def == nil {
			return nil, fmt.Errorf("%w: %s: empty definition", ErrInvalidClip, name)
		}
		def.Name = Name(name)
		if err := def.prepare(); err != nil {
			return nil, err
		}
		lib.clips[def.Name] = def
	}
	return lib, nil
}

// LoadLibrary reads and validates a clip file.
func LoadLibrary(path string) (*Library, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read clips: %w", err)
	}
	return ParseLibrary(data)
}

func (l *Library) Clip(name Name) (*Definition, bool) {
	d, ok := l.clips[name]
	return d, ok
}

// Names returns the clip names in sorted order.
func (l *Library) Names() []Name {
	out := make([]Name, 0, len(l.clips))
	for n := range l.clips {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Merge returns a library with the clips of o added, replacing same-named
// clips of l.
func (l *Library) Merge(o *Library) *Library {
	out := &Library{clips: make(map[Name]*Definition, len(l.clips)+len(o.clips))}
	for n, d := range l.clips {
		out.clips[n] = d
	}
	for n, d := range o.clips {
		out.clips[n] = d
	}
	return out
}
