package scene

import (
	"errors"
	"fmt"
	"sort"

	"github.com/Faultbox/charscene/pkg/math"
)

// ErrUnknownRange is returned when an animation range does not exist.
var ErrUnknownRange = errors.New("unknown animation range")

// DefaultFrameRate is used when a skeleton does not declare one.
const DefaultFrameRate = 30

// Bone is one joint of a skeleton.
type Bone struct {
	Name   string
	Index  int
	Parent int // -1 for roots
	Matrix math.Mat4
}

// AnimationRange names a frame interval of a skeleton's keyframes.
type AnimationRange struct {
	Name string
	From float32
	To   float32
}

// Skeleton is a bone hierarchy with named animation ranges.
type Skeleton struct {
	Name      string
	ID        int
	Bones     []*Bone
	FrameRate float32

	ranges map[string]AnimationRange

	blending      bool
	blendingSpeed float32

	current  *Animatable
	previous *Animatable
}

// NewSkeleton creates an empty skeleton and adds it to s.
func NewSkeleton(name string, id int, s *Scene) *Skeleton {
	sk := &Skeleton{
		Name:      name,
		ID:        id,
		FrameRate: DefaultFrameRate,
		ranges:    make(map[string]AnimationRange),
	}
	s.skeletons = append(s.skeletons, sk)
	return sk
}

// CreateAnimationRange adds or replaces a named range.
func (sk *Skeleton) CreateAnimationRange(name string, from, to float32) {
	sk.ranges[name] = AnimationRange{Name: name, From: from, To: to}
}

// AnimationRange returns the range called name.
func (sk *Skeleton) AnimationRange(name string) (AnimationRange, bool) {
	r, ok := sk.ranges[name]
	return r, ok
}

// RangeNames returns the range names sorted.
func (sk *Skeleton) RangeNames() []string {
	names := make([]string, 0, len(sk.ranges))
	for n := range sk.ranges {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// EnableBlending turns on cross-fading between animations. speed is the
// weight gained by the incoming animation per frame, in (0, 1].
func (sk *Skeleton) EnableBlending(speed float32) {
	sk.blending = true
	sk.blendingSpeed = math.Clamp(speed, 0.001, 1)
}

// DisableBlending makes new animations take over immediately.
func (sk *Skeleton) DisableBlending() {
	sk.blending = false
}

// Blending reports whether blending is on and its per-frame speed.
func (sk *Skeleton) Blending() (enabled bool, speed float32) {
	return sk.blending, sk.blendingSpeed
}

// Current returns the animation being blended in (or playing), or nil.
func (sk *Skeleton) Current() *Animatable {
	return sk.current
}

// Previous returns the animation being blended out, or nil.
func (sk *Skeleton) Previous() *Animatable {
	return sk.previous
}

// BeginAnimation starts the named range. speedRatio scales playback.
func (sk *Skeleton) BeginAnimation(name string, loop bool, speedRatio float32) (*Animatable, error) {
	r, ok := sk.ranges[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q on skeleton %q", ErrUnknownRange, name, sk.Name)
	}

	a := &Animatable{
		Range:      r,
		Loop:       loop,
		SpeedRatio: speedRatio,
		Frame:      r.From,
		Weight:     1,
	}

	if sk.blending && sk.current != nil {
		a.Weight = 0
		sk.previous = sk.current
	} else {
		sk.previous = nil
	}
	sk.current = a
	return a, nil
}

// StopAnimation stops all playback.
func (sk *Skeleton) StopAnimation() {
	sk.current = nil
	sk.previous = nil
}

// Advance moves playback forward by dt seconds and steps the blend once.
func (sk *Skeleton) Advance(dt float64) {
	if sk.current == nil {
		return
	}

	step := float32(dt) * sk.FrameRate
	sk.current.advance(step)
	if sk.previous != nil {
		sk.previous.advance(step)
	}

	if sk.previous == nil {
		return
	}
	sk.current.Weight += sk.blendingSpeed
	if sk.current.Weight >= 1 {
		sk.current.Weight = 1
		sk.previous = nil
		return
	}
	sk.previous.Weight = 1 - sk.current.Weight
}

// Animatable is one running animation range.
type Animatable struct {
	Range      AnimationRange
	Loop       bool
	SpeedRatio float32
	Frame      float32
	Weight     float32
	ended      bool
}

// Ended reports whether a non-looping animation reached its last frame.
func (a *Animatable) Ended() bool {
	return a.ended
}

func (a *Animatable) advance(frames float32) {
	if a.ended {
		return
	}
	a.Frame += frames * a.SpeedRatio

	length := a.Range.To - a.Range.From
	if a.Frame <= a.Range.To {
		return
	}
	if !a.Loop || length <= 0 {
		a.Frame = a.Range.To
		a.ended = true
		return
	}
	for a.Frame > a.Range.To {
		a.Frame -= length
	}
}
