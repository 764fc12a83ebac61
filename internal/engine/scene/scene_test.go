package scene

import (
	"errors"
	"testing"

	"github.com/Faultbox/charscene/internal/engine/input"
	"github.com/Faultbox/charscene/pkg/math"
)

type fakeHost struct {
	tasks []func()
	draws int
	bus   *input.Dispatcher
}

func newFakeHost() *fakeHost {
	return &fakeHost{bus: input.NewDispatcher()}
}

func (h *fakeHost) Post(task func())    { h.tasks = append(h.tasks, task) }
func (h *fakeHost) Input() input.Source { return h.bus }
func (h *fakeHost) Draw(*Scene)         { h.draws++ }

func TestCreateGround(t *testing.T) {
	s := New(newFakeHost())
	g := CreateGround("ground", GroundOptions{Width: 128, Height: 128}, s)

	if w, h := g.GroundSize(); w != 128 || h != 128 {
		t.Errorf("ground size = %vx%v, want 128x128", w, h)
	}
	if !g.IsGround() {
		t.Error("expected ground mesh")
	}
	if g.Geometry.VertexCount() != 4 || len(g.Geometry.Indices) != 6 {
		t.Errorf("unexpected ground geometry: %d verts, %d indices", g.Geometry.VertexCount(), len(g.Geometry.Indices))
	}
	if s.MeshByName("ground") != g {
		t.Error("ground not registered in scene")
	}
}

func TestGroundBelow(t *testing.T) {
	s := New(newFakeHost())
	g := CreateGround("ground", GroundOptions{Width: 10, Height: 10}, s)

	if _, ok := s.GroundBelow(0, 0, 100, nil); ok {
		t.Fatal("non-collidable ground should not be hit")
	}

	g.CheckCollisions = true
	hit, ok := s.GroundBelow(1, 1, 100, nil)
	if !ok || hit.Height != 0 || hit.Mesh != g {
		t.Fatalf("expected hit on ground at 0, got %+v ok=%v", hit, ok)
	}
	if hit.SlopeDegrees() > 0.01 {
		t.Errorf("flat ground slope = %v, want 0", hit.SlopeDegrees())
	}

	if _, ok := s.GroundBelow(6, 0, 100, nil); ok {
		t.Error("point outside ground bounds should miss")
	}
	if _, ok := s.GroundBelow(0, 0, -1, nil); ok {
		t.Error("ground above maxHeight should be ignored")
	}
	if _, ok := s.GroundBelow(0, 0, 100, g); ok {
		t.Error("excluded mesh should be ignored")
	}
}

func TestGroundBelowTilted(t *testing.T) {
	s := New(newFakeHost())
	g := CreateGround("ramp", GroundOptions{Width: 10, Height: 10}, s)
	g.CheckCollisions = true
	g.Rotation = math.V3(math.Deg2Rad(45), 0, 0)

	hit, ok := s.GroundBelow(0, 2, 100, nil)
	if !ok {
		t.Fatal("expected hit on ramp")
	}
	if d := hit.SlopeDegrees(); d < 44.9 || d > 45.1 {
		t.Errorf("ramp slope = %v, want 45", d)
	}
}

func TestMeshDefaults(t *testing.T) {
	s := New(newFakeHost())
	m := NewMesh("box", s)

	if m.Scaling != math.V3(1, 1, 1) {
		t.Errorf("default scaling = %v", m.Scaling)
	}
	if !m.IsVisible || m.CheckCollisions {
		t.Error("mesh should start visible and non-collidable")
	}

	m.Dispose()
	if len(s.Meshes()) != 0 {
		t.Error("disposed mesh still in scene")
	}
}

func TestStandardMaterialDefaults(t *testing.T) {
	s := New(newFakeHost())
	mat := NewStandardMaterial("m", s)

	if mat.Alpha != 1 || !mat.BackFaceCulling {
		t.Errorf("unexpected defaults: %+v", mat)
	}
	if mat.HasDiffuseTexture() {
		t.Error("new material should have no texture")
	}
	var nilMat *StandardMaterial
	if nilMat.HasDiffuseTexture() {
		t.Error("nil material has no texture")
	}
}

func TestDefaultLightAndEnvironment(t *testing.T) {
	s := New(newFakeHost())

	l := s.CreateDefaultLight()
	if l2 := s.CreateDefaultLight(); l2 != l || len(s.Lights()) != 1 {
		t.Error("CreateDefaultLight should not add a second light")
	}
	env := s.CreateDefaultEnvironment()
	if env == nil || s.CreateDefaultEnvironment() != env {
		t.Error("CreateDefaultEnvironment should be idempotent")
	}
	if len(s.Meshes()) != 0 {
		t.Error("environment and light must not add meshes")
	}
}

func TestRenderRunsObserversThenDraws(t *testing.T) {
	host := newFakeHost()
	s := New(host)

	var calls []float64
	remove := s.OnBeforeRender(func(dt float64) { calls = append(calls, dt) })

	s.Render(0.016)
	s.Render(0.020)
	remove()
	s.Render(0.016)

	if len(calls) != 2 || calls[1] != 0.020 {
		t.Errorf("observer calls = %v", calls)
	}
	if host.draws != 3 || s.FrameCount() != 3 {
		t.Errorf("draws = %d frames = %d, want 3", host.draws, s.FrameCount())
	}
}

func TestObserverCanRemoveItself(t *testing.T) {
	s := New(newFakeHost())
	count := 0
	var remove func()
	remove = s.OnBeforeRender(func(float64) {
		count++
		remove()
	})
	s.Render(0.01)
	s.Render(0.01)
	if count != 1 {
		t.Errorf("self-removing observer ran %d times", count)
	}
}

func TestDispose(t *testing.T) {
	host := newFakeHost()
	s := New(host)
	CreateGround("ground", GroundOptions{Width: 1, Height: 1}, s)
	s.Dispose()
	s.Render(0.01)

	if len(s.Meshes()) != 0 || host.draws != 0 {
		t.Error("disposed scene should be empty and not draw")
	}
}

type namedCamera string

func (c namedCamera) Name() string           { return string(c) }
func (c namedCamera) Position() math.Vec3    { return math.Vec3{} }
func (c namedCamera) TargetPoint() math.Vec3 { return math.Vec3{} }
func (c namedCamera) ViewMatrix() math.Mat4  { return math.Identity() }

func TestRemoveObjects(t *testing.T) {
	s := New(newFakeHost())
	keep := NewStandardMaterial("keep", s)
	drop := NewStandardMaterial("drop", s)
	sk := NewSkeleton("rig", 0, s)
	sk.CreateAnimationRange("idle", 0, 10)
	if _, err := sk.BeginAnimation("idle", true, 1); err != nil {
		t.Fatal(err)
	}

	s.RemoveMaterial(drop)
	s.RemoveMaterial(drop)
	if len(s.Materials()) != 1 || s.Materials()[0] != keep {
		t.Errorf("materials = %v", s.Materials())
	}

	s.RemoveSkeleton(sk)
	if len(s.Skeletons()) != 0 || sk.Current() != nil {
		t.Error("removed skeleton should be stopped and gone")
	}

	cam, other := namedCamera("a"), namedCamera("b")
	s.SetActiveCamera(cam)
	s.RemoveCamera(other)
	if s.ActiveCamera() != Camera(cam) {
		t.Error("removing another camera must keep the active one")
	}
	s.RemoveCamera(cam)
	if s.ActiveCamera() != nil {
		t.Error("active camera should be cleared")
	}
}

func TestDebugLayerToggle(t *testing.T) {
	s := New(newFakeHost())
	CreateGround("ground", GroundOptions{Width: 1, Height: 1}, s)
	d := s.DebugLayer()

	if d.IsVisible() {
		t.Error("debug layer should start hidden")
	}
	d.Show(true)
	if !d.IsVisible() || !d.IsOverlay() {
		t.Error("expected visible overlay")
	}
	d.Watch("player", func() string { return "idle" })
	lines := d.Lines()
	if lines[len(lines)-1] != "player: idle" {
		t.Errorf("watch line missing: %v", lines)
	}
	d.Hide()
	if d.IsVisible() {
		t.Error("expected hidden layer")
	}
	if len(s.Meshes()) != 1 {
		t.Error("toggling the debug layer changed the scene graph")
	}
}

func TestBeginAnimationUnknownRange(t *testing.T) {
	s := New(newFakeHost())
	sk := NewSkeleton("skel", 0, s)

	_, err := sk.BeginAnimation("idle", true, 1)
	if !errors.Is(err, ErrUnknownRange) {
		t.Errorf("expected ErrUnknownRange, got %v", err)
	}
}

func TestAnimationLoopAndEnd(t *testing.T) {
	s := New(newFakeHost())
	sk := NewSkeleton("skel", 0, s)
	sk.FrameRate = 10
	sk.CreateAnimationRange("idle", 0, 10)
	sk.CreateAnimationRange("jump", 20, 25)

	a, err := sk.BeginAnimation("idle", true, 1)
	if err != nil {
		t.Fatalf("BeginAnimation: %v", err)
	}
	sk.Advance(1.5) // 15 frames -> wraps to 5
	if a.Frame != 5 || a.Ended() {
		t.Errorf("looping frame = %v ended=%v, want 5 false", a.Frame, a.Ended())
	}

	j, _ := sk.BeginAnimation("jump", false, 2)
	sk.Advance(1) // 20 frames at 2x
	if j.Frame != 25 || !j.Ended() {
		t.Errorf("non-looping frame = %v ended=%v, want 25 true", j.Frame, j.Ended())
	}
}

func TestAnimationBlending(t *testing.T) {
	s := New(newFakeHost())
	sk := NewSkeleton("skel", 0, s)
	sk.CreateAnimationRange("idle", 0, 10)
	sk.CreateAnimationRange("walk", 10, 20)
	sk.EnableBlending(0.25)

	idle, _ := sk.BeginAnimation("idle", true, 1)
	if idle.Weight != 1 {
		t.Errorf("first animation weight = %v, want 1", idle.Weight)
	}

	walk, _ := sk.BeginAnimation("walk", true, 1)
	if walk.Weight != 0 || sk.Previous() != idle {
		t.Fatalf("blend should start from 0 with idle as previous")
	}

	sk.Advance(0.01)
	if walk.Weight != 0.25 || idle.Weight != 0.75 {
		t.Errorf("after one frame weights = %v/%v, want 0.25/0.75", walk.Weight, idle.Weight)
	}
	for i := 0; i < 3; i++ {
		sk.Advance(0.01)
	}
	if walk.Weight != 1 || sk.Previous() != nil {
		t.Errorf("blend should complete after 4 frames, weight=%v", walk.Weight)
	}
}

func TestRenderAdvancesSkeletons(t *testing.T) {
	s := New(newFakeHost())
	sk := NewSkeleton("skel", 0, s)
	sk.FrameRate = 30
	sk.CreateAnimationRange("idle", 0, 100)
	a, _ := sk.BeginAnimation("idle", true, 1)

	s.Render(0.5)
	if a.Frame != 15 {
		t.Errorf("frame after render = %v, want 15", a.Frame)
	}
}
