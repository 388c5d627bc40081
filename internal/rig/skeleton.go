package rig

// Bone is a mutable handle on one joint of a host skeleton.
type Bone interface {
	Rotation() Rotation
	SetRotation(Rotation)
}

// Skeleton looks bones up by the name the host rig uses.
type Skeleton interface {
	Bone(name string) (Bone, bool)
}

// MorphSink receives the per-frame facial morph weights of one character.
// Channels the sink does not have are ignored by the sink.
type MorphSink interface {
	SetMorphWeights(weights map[string]float64)
}

// Lookup resolves a canonical bone name, falling back to its aliases.
func Lookup(s Skeleton, canonical string) (Bone, bool) {
	if s == nil {
		return nil, false
	}
	if b, ok := s.Bone(canonical); ok && b != nil {
		return b, true
	}
	for _, alias := range Aliases(canonical) {
		if b, ok := s.Bone(alias); ok && b != nil {
			return b, true
		}
	}
	return nil, false
}

// BoneCache is the per-instance result of bone discovery, keyed by
// canonical name.
type BoneCache struct {
	bones map[string]Bone
}

func (c *BoneCache) Get(name string) (Bone, bool) {
	if c == nil {
		return nil, false
	}
	b, ok := c.bones[name]
	return b, ok
}

func (c *BoneCache) Len() int {
	if c == nil {
		return 0
	}
	return len(c.bones)
}

// Snapshot reads the current rotation of every cached bone.
func (c *BoneCache) Snapshot() BoneMap {
	out := make(BoneMap, c.Len())
	if c == nil {
		return out
	}
	for name, b := range c.bones {
		out.Set(name, b.Rotation())
	}
	return out
}

// ResolveStatus reports the progress of bone discovery.
type ResolveStatus int

const (
	ResolvePending ResolveStatus = iota
	ResolveReady
	ResolveFailed
)

func (s ResolveStatus) String() string {
	switch s {
	case ResolvePending:
		return "pending"
	case ResolveReady:
		return "ready"
	case ResolveFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// DefaultMaxAttempts is the number of frames bone discovery is retried for.
const DefaultMaxAttempts = 30

// Resolver builds a BoneCache with bounded per-frame retries, since a
// skeleton may attach a few frames after the character is created.
type Resolver struct {
	names       []string
	maxAttempts int
	attempts    int
	status      ResolveStatus
	cache       *BoneCache
}

// NewResolver creates a resolver for the given canonical names. A
// non-positive maxAttempts selects DefaultMaxAttempts.
func NewResolver(names []string, maxAttempts int) *Resolver {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if len(names) == 0 {
		names = BoneNames
	}
	return &Resolver{names: names, maxAttempts: maxAttempts}
}

func (r *Resolver) Status() ResolveStatus { return r.status }
func (r *Resolver) Attempts() int         { return r.attempts }
func (r *Resolver) Cache() *BoneCache     { return r.cache }

// Attempt performs one resolution pass. It returns the cache once the core
// bones resolve, ErrNoSkeleton or nil while still pending, and
// ErrUnanimatable after the retry budget is spent.
func (r *Resolver) Attempt(s Skeleton) (*BoneCache, error) {
	switch r.status {
	case ResolveReady:
		return r.cache, nil
	case ResolveFailed:
		return nil, ErrUnanimatable
	}

	r.attempts++
	cache, ok := r.resolve(s)
	if ok {
		r.cache = cache
		r.status = ResolveReady
		return cache, nil
	}

	if r.attempts >= r.maxAttempts {
		r.status = ResolveFailed
		return nil, ErrUnanimatable
	}
	if s == nil {
		return nil, ErrNoSkeleton
	}
	return nil, nil
}

func (r *Resolver) resolve(s Skeleton) (*BoneCache, bool) {
	if s == nil {
		return nil, false
	}
	bones := make(map[string]Bone, len(r.names))
	for _, name := range r.names {
		if b, ok := Lookup(s, name); ok {
			bones[name] = b
		}
	}
	for _, core := range CoreBones {
		if _, ok := bones[core]; !ok {
			return nil, false
		}
	}
	return &BoneCache{bones: bones}, true
}

// NewBoneCache builds a cache directly from handles, bypassing discovery.
func NewBoneCache(bones map[string]Bone) *BoneCache {
	cp := make(map[string]Bone, len(bones))
	for k, v := range bones {
		cp[k] = v
	}
	return &BoneCache{bones: cp}
}
