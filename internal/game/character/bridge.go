package character

import (
	"fmt"

	"github.com/Faultbox/charscene/internal/engine/camera"
	"github.com/Faultbox/charscene/internal/engine/scene"
	"github.com/Faultbox/charscene/pkg/math"
)

// State is a locomotion state that can carry an animation.
type State string

const (
	StateIdle      State = "idle"
	StateWalk      State = "walk"
	StateRun       State = "run"
	StateTurnLeft  State = "turnLeft"
	StateTurnRight State = "turnRight"
	StateWalkBack  State = "walkBack"
	StateIdleJump  State = "idleJump"
	StateRunJump   State = "runJump"
	StateFall      State = "fall"
	StateSlideBack State = "slideBack"
)

// RequiredStates must all be bound before a controller starts. Walk and run
// use the controller's built-in defaults.
var RequiredStates = []State{
	StateIdle,
	StateTurnLeft,
	StateTurnRight,
	StateWalkBack,
	StateIdleJump,
	StateRunJump,
	StateFall,
	StateSlideBack,
}

// AnimBinding maps a state to an animation range.
type AnimBinding struct {
	Clip string  // range name; empty means the state plays no animation
	Rate float32 // playback speed ratio
	Loop bool
}

// HasClip reports whether the binding names an animation.
func (b AnimBinding) HasClip() bool {
	return b.Clip != ""
}

// Controller is a third-person character controller.
type Controller interface {
	// SetCameraTarget sets the orbit center relative to the character.
	SetCameraTarget(offset math.Vec3)
	// SetNoFirstPerson disables switching to first person when the
	// camera zooms to its lower radius limit.
	SetNoFirstPerson(disabled bool)
	SetStepOffset(height float32)
	// SetSlopeLimit sets the walkable (min) and climbable (max) slope in degrees.
	SetSlopeLimit(minDeg, maxDeg float32)
	SetAnim(state State, b AnimBinding)
	// Start begins per-frame updates. Stop ends them.
	Start()
	Stop()
}

// Factory creates a controller for player, driven by cam, in sc.
type Factory func(player *scene.Mesh, cam *camera.ArcRotateCamera, sc *scene.Scene) Controller

// Config is applied by Bind.
type Config struct {
	CameraTarget  math.Vec3
	NoFirstPerson bool
	StepOffset    float32
	MinSlopeLimit float32
	MaxSlopeLimit float32
	Anims         map[State]AnimBinding
}

// DefaultConfig returns the bindings for the Vincent asset.
func DefaultConfig() Config {
	return Config{
		CameraTarget:  math.V3(0, 1.5, 0),
		NoFirstPerson: true,
		StepOffset:    0.4,
		MinSlopeLimit: 30,
		MaxSlopeLimit: 60,
		Anims: map[State]AnimBinding{
			StateIdle:      {Clip: "idle", Rate: 1, Loop: true},
			StateTurnLeft:  {Clip: "turnLeft", Rate: 0.5, Loop: true},
			StateTurnRight: {Clip: "turnRight", Rate: 0.5, Loop: true},
			StateWalkBack:  {Clip: "walkBack", Rate: 0.5, Loop: true},
			StateIdleJump:  {Clip: "idleJump", Rate: 0.5, Loop: false},
			StateRunJump:   {Clip: "runJump", Rate: 0.6, Loop: false},
			StateFall:      {Rate: 2, Loop: false},
			StateSlideBack: {Clip: "slideBack", Rate: 1, Loop: false},
		},
	}
}

// Validate checks that every required state is bound and the slope limits
// are ordered.
func (c Config) Validate() error {
	for _, s := range RequiredStates {
		if _, ok := c.Anims[s]; !ok {
			return fmt.Errorf("character config: no binding for state %q", s)
		}
	}
	if c.MinSlopeLimit < 0 || c.MaxSlopeLimit < c.MinSlopeLimit || c.MaxSlopeLimit > 90 {
		return fmt.Errorf("character config: bad slope limits %v..%v", c.MinSlopeLimit, c.MaxSlopeLimit)
	}
	if c.StepOffset < 0 {
		return fmt.Errorf("character config: negative step offset")
	}
	return nil
}

// Bind creates a controller with factory and applies cfg. The controller
// is returned unstarted.
func Bind(factory Factory, player *scene.Mesh, cam *camera.ArcRotateCamera, sc *scene.Scene, cfg Config) (Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cc := factory(player, cam, sc)
	cc.SetCameraTarget(cfg.CameraTarget)
	cc.SetNoFirstPerson(cfg.NoFirstPerson)
	cc.SetStepOffset(cfg.StepOffset)
	cc.SetSlopeLimit(cfg.MinSlopeLimit, cfg.MaxSlopeLimit)

	for _, s := range RequiredStates {
		cc.SetAnim(s, cfg.Anims[s])
	}
	// Optional overrides of the built-in clips.
	for _, s := range []State{StateWalk, StateRun} {
		if b, ok := cfg.Anims[s]; ok {
			cc.SetAnim(s, b)
		}
	}
	return cc, nil
}
