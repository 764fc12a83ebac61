// Package locomotion implements a keyboard-driven third-person character
// controller: walking, running, turning, jumping, falling and sliding on
// collidable ground, with one skeleton animation per state.
package locomotion

import (
	gomath "math"

	"go.uber.org/zap"

	"github.com/Faultbox/charscene/internal/engine/camera"
	"github.com/Faultbox/charscene/internal/engine/input"
	"github.com/Faultbox/charscene/internal/engine/scene"
	"github.com/Faultbox/charscene/internal/game/character"
	"github.com/Faultbox/charscene/internal/logger"
	"github.com/Faultbox/charscene/pkg/math"
)

// Movement tuning, in world units and seconds.
const (
	WalkSpeed  = 3
	RunSpeed   = 6
	BackSpeed  = 1.5
	SlideSpeed = 2
	TurnSpeed  = gomath.Pi / 2 // rad/s
	JumpSpeed  = 6
	Gravity    = 9.8

	// KillHeight sends a character that fell off the world back to its
	// start position.
	KillHeight = -50

	// maxStep clamps frame time so a stalled frame does not tunnel.
	maxStep = 0.1
)

// Key bindings.
var (
	KeysForward   = []input.Key{input.KeyW, input.KeyUp}
	KeysBack      = []input.Key{input.KeyS, input.KeyDown}
	KeysTurnLeft  = []input.Key{input.KeyA, input.KeyLeft}
	KeysTurnRight = []input.Key{input.KeyD, input.KeyRight}
	KeysRun       = []input.Key{input.KeyLeftShift}
	KeysJump      = []input.Key{input.KeySpace}
)

// Built-in clips for states the caller usually leaves unbound.
var defaultAnims = map[character.State]character.AnimBinding{
	character.StateWalk: {Clip: "walk", Rate: 1, Loop: true},
	character.StateRun:  {Clip: "run", Rate: 1, Loop: true},
}

// Controller implements character.Controller.
type Controller struct {
	player *scene.Mesh
	cam    *camera.ArcRotateCamera
	sc     *scene.Scene
	log    *zap.Logger

	cameraTarget  math.Vec3
	noFirstPerson bool
	stepOffset    float32
	minSlope      float32
	maxSlope      float32
	anims         map[character.State]character.AnimBinding

	keys     *input.Keyboard
	remove   func()
	spawn    math.Vec3
	wasJump  bool
	state    character.State
	grounded bool
	velY     float32
	airVel   math.Vec3 // horizontal velocity kept while airborne

	firstPerson bool
}

// New creates an unstarted controller. It satisfies character.Factory.
func New(player *scene.Mesh, cam *camera.ArcRotateCamera, sc *scene.Scene) character.Controller {
	return NewController(player, cam, sc)
}

// NewController is New returning the concrete type.
func NewController(player *scene.Mesh, cam *camera.ArcRotateCamera, sc *scene.Scene) *Controller {
	c := &Controller{
		player:       player,
		cam:          cam,
		sc:           sc,
		log:          logger.Named("locomotion"),
		cameraTarget: character.CameraTargetOffset,
		stepOffset:   0.25,
		minSlope:     30,
		maxSlope:     45,
		anims:        make(map[character.State]character.AnimBinding),
	}
	for s, b := range defaultAnims {
		c.anims[s] = b
	}
	return c
}

// SetCameraTarget sets the orbit center relative to the player position.
func (c *Controller) SetCameraTarget(offset math.Vec3) { c.cameraTarget = offset }

// SetNoFirstPerson disables the first-person switch.
func (c *Controller) SetNoFirstPerson(disabled bool) { c.noFirstPerson = disabled }

// SetStepOffset sets the highest ledge the player walks up or down without
// jumping or falling.
func (c *Controller) SetStepOffset(height float32) { c.stepOffset = height }

// SetSlopeLimit sets the slope (degrees) above which the player slides back
// when standing, and above which it cannot walk at all.
func (c *Controller) SetSlopeLimit(minDeg, maxDeg float32) {
	c.minSlope, c.maxSlope = minDeg, maxDeg
}

// SetAnim binds an animation to a state.
func (c *Controller) SetAnim(state character.State, b character.AnimBinding) {
	c.anims[state] = b
}

// State returns the current locomotion state.
func (c *Controller) State() character.State { return c.state }

// Grounded reports whether the player stands on ground.
func (c *Controller) Grounded() bool { return c.grounded }

// FirstPerson reports whether the camera is in first-person mode.
func (c *Controller) FirstPerson() bool { return c.firstPerson }

// Start registers the per-frame update. Starting twice is a no-op.
func (c *Controller) Start() {
	if c.remove != nil {
		return
	}
	c.keys = input.NewKeyboard(c.sc.Input())
	c.spawn = c.player.Position
	c.grounded = false
	c.state = ""
	c.setState(character.StateIdle)
	c.remove = c.sc.OnBeforeRender(c.update)
	c.log.Info("controller started", zap.String("player", c.player.Name))
}

// Stop removes the per-frame update and stops the player's animation.
func (c *Controller) Stop() {
	if c.remove == nil {
		return
	}
	c.remove()
	c.remove = nil
	c.keys.Release()
	if sk := c.player.Skeleton; sk != nil {
		sk.StopAnimation()
	}
	c.log.Info("controller stopped", zap.String("player", c.player.Name))
}

// forward is the walking direction for the current yaw. The player model
// faces local -Z.
func (c *Controller) forward() math.Vec3 {
	yaw := float64(c.player.Rotation.Y)
	return math.V3(-float32(gomath.Sin(yaw)), 0, -float32(gomath.Cos(yaw)))
}

func (c *Controller) held(keys []input.Key) bool {
	for _, k := range keys {
		if c.keys.IsDown(k) {
			return true
		}
	}
	return false
}

func (c *Controller) update(dt float64) {
	step := math.Clamp(float32(dt), 0, maxStep)

	jumpHeld := c.held(KeysJump)
	jumpPressed := jumpHeld && !c.wasJump
	c.wasJump = jumpHeld

	fwd := c.held(KeysForward)
	back := c.held(KeysBack) && !fwd
	left := c.held(KeysTurnLeft)
	right := c.held(KeysTurnRight)
	run := c.held(KeysRun)

	if left != right {
		turn := float32(TurnSpeed) * step
		if left {
			turn = -turn
		}
		c.player.Rotation.Y += turn
	}

	if c.grounded {
		c.updateGrounded(step, fwd, back, left, right, run, jumpPressed)
	} else {
		c.updateAirborne(step)
	}

	if c.player.Position.Y < KillHeight {
		c.log.Warn("player fell out of the world, respawning", zap.Float32("y", c.player.Position.Y))
		c.player.Position = c.spawn
		c.velY = 0
		c.airVel = math.Vec3{}
		c.grounded = false
	}

	c.cam.SetTarget(c.player.Position.Add(c.cameraTarget))
	c.updateFirstPerson()
}

func (c *Controller) updateGrounded(step float32, fwd, back, left, right, run, jump bool) {
	var speed float32
	next := character.StateIdle
	switch {
	case fwd && run:
		next, speed = character.StateRun, RunSpeed
	case fwd:
		next, speed = character.StateWalk, WalkSpeed
	case back:
		next, speed = character.StateWalkBack, -BackSpeed
	case left:
		next = character.StateTurnLeft
	case right:
		next = character.StateTurnRight
	}

	vel := c.forward().Scale(speed)

	if jump {
		c.grounded = false
		c.velY = JumpSpeed
		c.airVel = vel
		if next == character.StateRun || next == character.StateWalk {
			c.setState(character.StateRunJump)
		} else {
			c.setState(character.StateIdleJump)
		}
		return
	}

	pos := c.player.Position
	here, onGround := c.ground(pos.X, pos.Z, pos.Y+c.stepOffset)

	if onGround && speed == 0 && here.SlopeDegrees() > c.minSlope {
		// Standing on a steep slope: slide down it.
		down := math.V3(here.Normal.X, 0, here.Normal.Z).Normalize().Scale(SlideSpeed)
		vel = down
		next = character.StateSlideBack
	}

	target := pos.Add(vel.Scale(step))
	hit, ok := c.ground(target.X, target.Z, pos.Y+c.stepOffset)
	if c.blocked(target, pos.Y) || ok && speed != 0 && hit.SlopeDegrees() > c.maxSlope {
		target.X, target.Z = pos.X, pos.Z
		hit, ok = here, onGround
	}

	if !ok || pos.Y-hit.Height > c.stepOffset {
		// Walked off a ledge.
		c.player.Position = target
		c.grounded = false
		c.velY = 0
		c.airVel = vel
		c.setState(character.StateFall)
		return
	}

	target.Y = hit.Height
	c.player.Position = target
	c.setState(next)
}

func (c *Controller) updateAirborne(step float32) {
	prevY := c.player.Position.Y
	c.velY -= Gravity * step

	pos := c.player.Position.Add(c.airVel.Scale(step))
	pos.Y += c.velY * step

	if c.velY < 0 {
		if hit, ok := c.ground(pos.X, pos.Z, prevY); ok && pos.Y <= hit.Height {
			pos.Y = hit.Height
			c.player.Position = pos
			c.grounded = true
			c.velY = 0
			c.airVel = math.Vec3{}
			c.setState(character.StateIdle)
			return
		}
		if c.state != character.StateIdleJump && c.state != character.StateRunJump {
			c.setState(character.StateFall)
		} else if sk := c.player.Skeleton; sk == nil || sk.Current() == nil || sk.Current().Ended() {
			c.setState(character.StateFall)
		}
	}
	c.player.Position = pos
}

// blocked reports whether a surface between step height and head height
// stands at target.
func (c *Controller) blocked(target math.Vec3, feet float32) bool {
	head := feet + 2*c.player.Ellipsoid.Y
	top, ok := c.ground(target.X, target.Z, head)
	return ok && top.Height > feet+c.stepOffset
}

func (c *Controller) ground(x, z, maxHeight float32) (scene.GroundHit, bool) {
	return c.sc.GroundBelow(x, z, maxHeight, c.player)
}

// setState switches state and starts its animation. A binding without a
// clip leaves the current animation playing.
func (c *Controller) setState(s character.State) {
	if s == c.state {
		return
	}
	c.state = s

	b, ok := c.anims[s]
	if !ok || !b.HasClip() {
		return
	}
	sk := c.player.Skeleton
	if sk == nil {
		return
	}
	if _, err := sk.BeginAnimation(b.Clip, b.Loop, b.Rate); err != nil {
		c.log.Warn("cannot play animation", zap.String("state", string(s)), zap.Error(err))
	}
}

func (c *Controller) updateFirstPerson() {
	fp := !c.noFirstPerson && c.cam.LowerRadiusLimit > 0 && c.cam.Radius <= c.cam.LowerRadiusLimit
	if fp == c.firstPerson {
		return
	}
	c.firstPerson = fp
	c.player.IsVisible = !fp
	c.log.Debug("first person", zap.Bool("enabled", fp))
}
