// Package scene provides the scene graph the application composes: meshes,
// materials, skeletons, lights, the active camera and per-frame observers.
//
// A Scene is owned by a single engine thread. The only cross-thread entry
// point is Post, which hands work to the host's task queue.
package scene

import (
	"github.com/Faultbox/charscene/internal/engine/input"
	"github.com/Faultbox/charscene/pkg/math"
)

// Host is the engine side of a scene.
type Host interface {
	// Post queues task to run on the engine thread. Safe from any goroutine.
	Post(task func())
	// Input returns the event source of the surface the scene renders to.
	Input() input.Source
	// Draw presents the current state of the scene.
	Draw(s *Scene)
}

// Camera is what the scene needs from its active camera.
type Camera interface {
	Name() string
	Position() math.Vec3
	TargetPoint() math.Vec3
	ViewMatrix() math.Mat4
}

// Scene is a container for everything that gets rendered or collided with.
type Scene struct {
	host Host

	ClearColor   math.Color4
	AmbientColor math.Color3

	meshes    []*Mesh
	materials []*StandardMaterial
	skeletons []*Skeleton
	lights    []*Light
	env       *Environment
	camera    Camera

	observers []observer
	nextObsID int

	debug *DebugLayer

	// Frame timing
	frameCount    uint64
	fps           float64
	fpsAccumTime  float64
	fpsAccumCount int

	disposed bool
}

type observer struct {
	id int
	fn func(dt float64)
}

// New creates an empty scene attached to host.
func New(host Host) *Scene {
	s := &Scene{
		host:       host,
		ClearColor: math.Color4{R: 0.2, G: 0.2, B: 0.3, A: 1},
	}
	s.debug = &DebugLayer{scene: s}
	return s
}

// Post queues task on the engine thread.
func (s *Scene) Post(task func()) {
	s.host.Post(task)
}

// Input returns the host surface's event source.
func (s *Scene) Input() input.Source {
	return s.host.Input()
}

// ActiveCamera returns the camera used for rendering, or nil.
func (s *Scene) ActiveCamera() Camera {
	return s.camera
}

// SetActiveCamera sets the camera used for rendering.
func (s *Scene) SetActiveCamera(c Camera) {
	s.camera = c
}

// RemoveCamera clears the active camera if it is c.
func (s *Scene) RemoveCamera(c Camera) {
	if s.camera == c {
		s.camera = nil
	}
}

// AddCamera makes c the active camera if there is none yet.
func (s *Scene) AddCamera(c Camera) {
	if s.camera == nil {
		s.camera = c
	}
}

// Meshes returns the meshes in insertion order.
func (s *Scene) Meshes() []*Mesh {
	return s.meshes
}

// MeshByName returns the first mesh called name.
func (s *Scene) MeshByName(name string) *Mesh {
	for _, m := range s.meshes {
		if m.Name == name {
			return m
		}
	}
	return nil
}

// Materials returns the materials in insertion order.
func (s *Scene) Materials() []*StandardMaterial {
	return s.materials
}

// Skeletons returns the skeletons in insertion order.
func (s *Scene) Skeletons() []*Skeleton {
	return s.skeletons
}

// Lights returns the scene lights.
func (s *Scene) Lights() []*Light {
	return s.lights
}

// Environment returns the default environment, or nil if none was created.
func (s *Scene) Environment() *Environment {
	return s.env
}

// DebugLayer returns the scene's diagnostic overlay state.
func (s *Scene) DebugLayer() *DebugLayer {
	return s.debug
}

// FrameCount returns the number of rendered frames.
func (s *Scene) FrameCount() uint64 {
	return s.frameCount
}

// FPS returns the frame rate averaged over the last half second.
func (s *Scene) FPS() float64 {
	return s.fps
}

// OnBeforeRender registers fn to run at the start of every Render.
// The returned func removes it.
func (s *Scene) OnBeforeRender(fn func(dt float64)) (remove func()) {
	s.nextObsID++
	id := s.nextObsID
	s.observers = append(s.observers, observer{id: id, fn: fn})
	return func() {
		for i, o := range s.observers {
			if o.id == id {
				s.observers = append(s.observers[:i], s.observers[i+1:]...)
				return
			}
		}
	}
}

// Render advances one frame: observers, skeletal animation, then drawing.
// dt is the elapsed time in seconds.
func (s *Scene) Render(dt float64) {
	if s.disposed {
		return
	}

	s.frameCount++
	s.fpsAccumTime += dt
	s.fpsAccumCount++
	if s.fpsAccumTime >= 0.5 {
		s.fps = float64(s.fpsAccumCount) / s.fpsAccumTime
		s.fpsAccumTime = 0
		s.fpsAccumCount = 0
	}

	// Snapshot so observers may remove themselves.
	obs := make([]observer, len(s.observers))
	copy(obs, s.observers)
	for _, o := range obs {
		o.fn(dt)
	}

	for _, sk := range s.skeletons {
		sk.Advance(dt)
	}

	s.host.Draw(s)
}

// Dispose drops every object and observer. Render becomes a no-op.
func (s *Scene) Dispose() {
	s.meshes = nil
	s.materials = nil
	s.skeletons = nil
	s.lights = nil
	s.env = nil
	s.camera = nil
	s.observers = nil
	s.disposed = true
}

func (s *Scene) addMesh(m *Mesh) {
	s.meshes = append(s.meshes, m)
}

// RemoveMesh detaches m from the scene.
func (s *Scene) RemoveMesh(m *Mesh) {
	s.meshes = without(s.meshes, m)
}

// RemoveMaterial detaches m from the scene. Meshes still referencing it
// keep their pointer.
func (s *Scene) RemoveMaterial(m *StandardMaterial) {
	s.materials = without(s.materials, m)
}

// RemoveSkeleton stops sk and detaches it from the scene.
func (s *Scene) RemoveSkeleton(sk *Skeleton) {
	sk.StopAnimation()
	s.skeletons = without(s.skeletons, sk)
}

func without[T comparable](list []T, v T) []T {
	for i, c := range list {
		if c == v {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}
