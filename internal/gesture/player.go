package gesture

import (
	"github.com/normanking/cortexrig/internal/motion"
	"github.com/normanking/cortexrig/internal/rig"
)

// Phase is the player's position in Idle → BlendIn → Playing → BlendOut.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseBlendIn
	PhasePlaying
	PhaseBlendOut
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseBlendIn:
		return "blend-in"
	case PhasePlaying:
		return "playing"
	case PhaseBlendOut:
		return "blend-out"
	default:
		return "unknown"
	}
}

// State is the per-instance playback record.
type State struct {
	IsPlaying         bool
	Current           Name
	StartTime         float64
	BlendingOut       bool
	BlendOutStartTime float64
}

// Player plays one clip at a time for one character. Times are host clock
// seconds.
type Player struct {
	src   Source
	clip  *Definition
	state State

	// Weight when blend-out began; a stop during blend-in fades from there.
	outFrom    float64
	onComplete func()
	weight     float64
}

func NewPlayer(src Source) *Player {
	if src == nil {
		src = DefaultLibrary()
	}
	return &Player{src: src}
}

func (p *Player) State() State { return p.state }

// Weight returns the blend weight computed by the last Tick.
func (p *Player) Weight() float64 { return p.weight }

// Start begins clip name at now. It is ignored for unknown clips and while
// a non-interruptible clip is playing and not yet blending out. An
// interrupted clip's completion callback never fires.
func (p *Player) Start(name Name, now float64, onComplete func()) bool {
	clip, ok := p.src.Clip(name)
	if !ok {
		return false
	}
	if p.state.IsPlaying && !p.state.BlendingOut && !p.clip.Interruptible {
		return false
	}
	p.clip = clip
	p.onComplete = onComplete
	p.outFrom = 1
	p.weight = 0
	p.state = State{IsPlaying: true, Current: name, StartTime: now}
	return true
}

// Stop forces the current clip into blend-out at now.
func (p *Player) Stop(now float64) {
	if !p.state.IsPlaying || p.state.BlendingOut {
		return
	}
	p.beginBlendOut(now, p.blendInWeight(now))
}

func (p *Player) beginBlendOut(at, from float64) {
	p.state.BlendingOut = true
	p.state.BlendOutStartTime = at
	p.outFrom = from
}

// Shift moves the active clip's timeline by d seconds.
func (p *Player) Shift(d float64) {
	if !p.state.IsPlaying {
		return
	}
	p.state.StartTime += d
	if p.state.BlendingOut {
		p.state.BlendOutStartTime += d
	}
}

// Phase reports the phase at now without advancing state.
func (p *Player) Phase(now float64) Phase {
	switch {
	case !p.state.IsPlaying:
		return PhaseIdle
	case p.state.BlendingOut:
		return PhaseBlendOut
	case !p.clip.Loop && now-p.state.StartTime >= p.clip.Duration:
		return PhaseBlendOut
	case now-p.state.StartTime < p.clip.BlendIn:
		return PhaseBlendIn
	default:
		return PhasePlaying
	}
}

func (p *Player) blendInWeight(now float64) float64 {
	if p.clip.BlendIn <= 0 {
		return 1
	}
	return motion.InOutQuad((now - p.state.StartTime) / p.clip.BlendIn)
}

func (p *Player) progress(now float64) float64 {
	elapsed := now - p.state.StartTime
	if elapsed <= 0 {
		return 0
	}
	if p.clip.Loop {
		cycles := elapsed / p.clip.Duration
		return cycles - float64(int64(cycles))
	}
	return motion.Clamp01(elapsed / p.clip.Duration)
}

// Tick advances the player to now and returns the clip's bone map and the
// override weight to apply it with. An idle player returns (nil, 0).
func (p *Player) Tick(now float64) (rig.BoneMap, float64) {
	if !p.state.IsPlaying {
		p.weight = 0
		return nil, 0
	}

	if !p.state.BlendingOut && !p.clip.Loop {
		if end := p.state.StartTime + p.clip.Duration; now >= end {
			p.beginBlendOut(end, p.blendInWeight(end))
		}
	}

	bones := p.clip.Sample(p.progress(now))

	if !p.state.BlendingOut {
		p.weight = p.blendInWeight(now)
		return bones, p.weight
	}

	t := 1.0
	if p.clip.BlendOut > 0 {
		t = motion.Clamp01((now - p.state.BlendOutStartTime) / p.clip.BlendOut)
	}
	if t >= 1 {
		p.finish()
		return bones, 0
	}
	p.weight = p.outFrom * (1 - motion.InOutQuad(t))
	return bones, p.weight
}

func (p *Player) finish() {
	cb := p.onComplete
	p.onComplete = nil
	p.weight = 0
	p.state = State{Current: p.state.Current}
	p.clip = nil
	if cb != nil {
		cb()
	}
}
