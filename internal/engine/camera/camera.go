// Package camera provides camera implementations for 3D rendering.
package camera

import (
	gomath "math"

	"github.com/Faultbox/charscene/internal/engine/input"
	"github.com/Faultbox/charscene/internal/engine/scene"
	"github.com/Faultbox/charscene/pkg/math"
)

// Mouse-wheel units per notch, and the divisor applied with WheelPrecision.
const (
	wheelNotch   = 120
	wheelDivisor = 40
)

// ArcRotateCamera orbits a target point.
//
// Alpha is the azimuth around Y, Beta the angle from +Y, Radius the
// distance to Target. Position = Target + Radius*(cos α sin β, cos β, sin α sin β).
type ArcRotateCamera struct {
	name string

	Alpha  float32
	Beta   float32
	Radius float32
	Target math.Vec3

	// Constraints
	LowerRadiusLimit float32 // 0 disables
	UpperRadiusLimit float32 // 0 disables
	LowerBetaLimit   float32
	UpperBetaLimit   float32

	// Sensitivity
	WheelPrecision      float32 // higher is slower zoom
	AngularSensibilityX float32 // pixels per radian
	AngularSensibilityY float32
	KeyAngularStep      float32 // radians per key press

	// Default keyboard bindings. Empty lists disable keyboard orbiting.
	KeysLeft  []input.Key
	KeysRight []input.Key
	KeysUp    []input.Key
	KeysDown  []input.Key

	CheckCollisions bool

	// Projection
	FOV  float32
	MinZ float32
	MaxZ float32

	noPreventDefault bool
	dragging         bool
	unsubscribe      func()
}

// NewArcRotateCamera creates a camera and registers it with s. The first
// camera added to a scene becomes its active camera.
func NewArcRotateCamera(name string, alpha, beta, radius float32, target math.Vec3, s *scene.Scene) *ArcRotateCamera {
	c := &ArcRotateCamera{
		name:                name,
		Alpha:               alpha,
		Beta:                beta,
		Radius:              radius,
		Target:              target,
		LowerBetaLimit:      0.01,
		UpperBetaLimit:      gomath.Pi - 0.01,
		WheelPrecision:      3,
		AngularSensibilityX: 1000,
		AngularSensibilityY: 1000,
		KeyAngularStep:      0.05,
		KeysLeft:            []input.Key{input.KeyLeft},
		KeysRight:           []input.Key{input.KeyRight},
		KeysUp:              []input.Key{input.KeyUp},
		KeysDown:            []input.Key{input.KeyDown},
		CheckCollisions:     true,
		FOV:                 0.8,
		MinZ:                1,
		MaxZ:                10000,
	}
	if s != nil {
		s.AddCamera(c)
	}
	return c
}

// Name returns the camera name.
func (c *ArcRotateCamera) Name() string {
	return c.name
}

// Position returns the camera position in world space.
func (c *ArcRotateCamera) Position() math.Vec3 {
	sinB := gomath.Sin(float64(c.Beta))
	offset := math.Vec3{
		X: c.Radius * float32(gomath.Cos(float64(c.Alpha))*sinB),
		Y: c.Radius * float32(gomath.Cos(float64(c.Beta))),
		Z: c.Radius * float32(gomath.Sin(float64(c.Alpha))*sinB),
	}
	return c.Target.Add(offset)
}

// TargetPoint returns the orbit center.
func (c *ArcRotateCamera) TargetPoint() math.Vec3 {
	return c.Target
}

// SetTarget moves the orbit center. Alpha, Beta and Radius are kept.
func (c *ArcRotateCamera) SetTarget(t math.Vec3) {
	c.Target = t
}

// ViewMatrix returns the view matrix for this camera.
func (c *ArcRotateCamera) ViewMatrix() math.Mat4 {
	return math.LookAt(c.Position(), c.Target, math.V3(0, 1, 0))
}

// ProjectionMatrix returns a perspective projection for the given aspect.
func (c *ArcRotateCamera) ProjectionMatrix(aspect float32) math.Mat4 {
	if aspect <= 0 {
		aspect = 1
	}
	return math.Perspective(c.FOV, aspect, c.MinZ, c.MaxZ)
}

// AttachControl makes the camera respond to pointer drag, wheel and its
// key lists. noPreventDefault is recorded for surfaces that forward events
// to a host page; keyboard events are otherwise consumed.
func (c *ArcRotateCamera) AttachControl(src input.Source, noPreventDefault bool) {
	c.DetachControl()
	c.noPreventDefault = noPreventDefault
	c.unsubscribe = src.Subscribe(c.HandleEvent)
}

// DetachControl stops responding to input.
func (c *ArcRotateCamera) DetachControl() {
	if c.unsubscribe != nil {
		c.unsubscribe()
		c.unsubscribe = nil
	}
	c.dragging = false
}

// IsAttached reports whether the camera listens to an input source.
func (c *ArcRotateCamera) IsAttached() bool {
	return c.unsubscribe != nil
}

// NoPreventDefault returns the flag passed to AttachControl.
func (c *ArcRotateCamera) NoPreventDefault() bool {
	return c.noPreventDefault
}

// HandleEvent applies one input event.
func (c *ArcRotateCamera) HandleEvent(e input.Event) {
	switch e.Type {
	case input.EventPointerDown:
		c.dragging = true
	case input.EventPointerUp:
		c.dragging = false
	case input.EventPointerMove:
		if c.dragging {
			c.HandleDrag(float32(e.DX), float32(e.DY))
		}
	case input.EventWheel:
		c.HandleZoom(e.Wheel)
	case input.EventKeyDown:
		c.handleKey(e.Key)
	}
}

// HandleDrag orbits by a pointer delta in pixels.
func (c *ArcRotateCamera) HandleDrag(dx, dy float32) {
	if c.AngularSensibilityX > 0 {
		c.Alpha -= dx / c.AngularSensibilityX
	}
	if c.AngularSensibilityY > 0 {
		c.Beta -= dy / c.AngularSensibilityY
	}
	c.clampBeta()
}

// HandleZoom changes Radius by wheel notches and clamps it to the limits.
func (c *ArcRotateCamera) HandleZoom(notches float32) {
	precision := c.WheelPrecision
	if precision <= 0 {
		precision = 1
	}
	c.Radius -= notches * wheelNotch / (precision * wheelDivisor)
	c.clampRadius()
}

func (c *ArcRotateCamera) handleKey(k input.Key) {
	switch {
	case input.ContainsKey(c.KeysLeft, k):
		c.Alpha -= c.KeyAngularStep
	case input.ContainsKey(c.KeysRight, k):
		c.Alpha += c.KeyAngularStep
	case input.ContainsKey(c.KeysUp, k):
		c.Beta -= c.KeyAngularStep
		c.clampBeta()
	case input.ContainsKey(c.KeysDown, k):
		c.Beta += c.KeyAngularStep
		c.clampBeta()
	}
}

func (c *ArcRotateCamera) clampRadius() {
	if c.LowerRadiusLimit > 0 && c.Radius < c.LowerRadiusLimit {
		c.Radius = c.LowerRadiusLimit
	}
	if c.UpperRadiusLimit > 0 && c.Radius > c.UpperRadiusLimit {
		c.Radius = c.UpperRadiusLimit
	}
	if c.Radius < 0.001 {
		c.Radius = 0.001
	}
}

func (c *ArcRotateCamera) clampBeta() {
	c.Beta = math.Clamp(c.Beta, c.LowerBetaLimit, c.UpperBetaLimit)
}

// ForwardDirection returns the horizontal direction from the camera to its target.
func (c *ArcRotateCamera) ForwardDirection() math.Vec3 {
	d := c.Target.Sub(c.Position())
	d.Y = 0
	return d.Normalize()
}
