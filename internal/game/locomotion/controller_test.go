package locomotion

import (
	gomath "math"
	"testing"

	"github.com/Faultbox/charscene/internal/engine/camera"
	"github.com/Faultbox/charscene/internal/engine/input"
	"github.com/Faultbox/charscene/internal/engine/scene"
	"github.com/Faultbox/charscene/internal/game/character"
	"github.com/Faultbox/charscene/internal/game/world"
	"github.com/Faultbox/charscene/pkg/math"
)

const frame = 1.0 / 60

type testHost struct{ events *input.Dispatcher }

func (h *testHost) Post(task func())    { task() }
func (h *testHost) Input() input.Source { return h.events }
func (h *testHost) Draw(*scene.Scene)   {}

type rig struct {
	sc     *scene.Scene
	keys   *input.Dispatcher
	player *scene.Mesh
	cam    *camera.ArcRotateCamera
	cc     *Controller
}

// newRig builds a player above the origin with every clip, a camera and a
// started controller. withGround adds the 128x128 ground.
func newRig(t *testing.T, withGround bool, cfg character.Config) *rig {
	t.Helper()
	d := input.NewDispatcher()
	sc := scene.New(&testHost{events: d})
	if withGround {
		world.BuildGround(sc)
	}

	player := scene.NewMesh("Vincent", sc)
	sk := scene.NewSkeleton("Vincent", 0, sc)
	for i, name := range []string{"idle", "walk", "run", "turnLeft", "turnRight", "walkBack", "idleJump", "runJump", "slideBack"} {
		sk.CreateAnimationRange(name, float32(i*40), float32(i*40+30))
	}
	character.ConfigurePlayer(player, sk)
	cam := character.AttachCamera(player, sc, d)

	var cc *Controller
	factory := func(p *scene.Mesh, c *camera.ArcRotateCamera, s *scene.Scene) character.Controller {
		cc = NewController(p, c, s)
		return cc
	}
	if _, err := character.Bind(factory, player, cam, sc, cfg); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	cc.Start()
	return &rig{sc: sc, keys: d, player: player, cam: cam, cc: cc}
}

func (r *rig) frames(n int) {
	for i := 0; i < n; i++ {
		r.sc.Render(frame)
	}
}

func (r *rig) land(t *testing.T) {
	t.Helper()
	for i := 0; i < 600; i++ {
		if r.cc.Grounded() {
			return
		}
		r.sc.Render(frame)
	}
	t.Fatal("player never landed")
}

func (r *rig) press(keys ...input.Key) {
	for _, k := range keys {
		r.keys.Dispatch(input.Event{Type: input.EventKeyDown, Key: k})
	}
}

func (r *rig) release(keys ...input.Key) {
	for _, k := range keys {
		r.keys.Dispatch(input.Event{Type: input.EventKeyUp, Key: k})
	}
}

func (r *rig) clip() string {
	a := r.player.Skeleton.Current()
	if a == nil {
		return ""
	}
	return a.Range.Name
}

func near(a, b, tol float32) bool {
	return gomath.Abs(float64(a-b)) <= float64(tol)
}

func TestFallsAndLands(t *testing.T) {
	r := newRig(t, true, character.DefaultConfig())

	if r.cc.State() != character.StateIdle || r.clip() != "idle" {
		t.Fatalf("start: state %s clip %s", r.cc.State(), r.clip())
	}

	r.frames(2)
	if r.cc.State() != character.StateFall {
		t.Errorf("state = %s, want fall", r.cc.State())
	}
	if r.clip() != "idle" {
		t.Errorf("fall has no clip, current should stay idle, got %s", r.clip())
	}
	if r.player.Position.Y >= 12 {
		t.Error("player should be falling")
	}

	r.land(t)
	if r.player.Position.Y != 0 {
		t.Errorf("landed at y = %v, want 0", r.player.Position.Y)
	}
	if r.cc.State() != character.StateIdle {
		t.Errorf("state after landing = %s", r.cc.State())
	}
}

func TestGroundedMovement(t *testing.T) {
	tests := []struct {
		name  string
		keys  []input.Key
		state character.State
		clip  string
		dz    float32
		yaw   float32
	}{
		{"walk", []input.Key{input.KeyW}, character.StateWalk, "walk", -WalkSpeed, 0},
		{"run", []input.Key{input.KeyW, input.KeyLeftShift}, character.StateRun, "run", -RunSpeed, 0},
		{"walk back", []input.Key{input.KeyS}, character.StateWalkBack, "walkBack", BackSpeed, 0},
		{"turn left", []input.Key{input.KeyA}, character.StateTurnLeft, "turnLeft", 0, -gomath.Pi / 2},
		{"turn right", []input.Key{input.KeyD}, character.StateTurnRight, "turnRight", 0, gomath.Pi / 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRig(t, true, character.DefaultConfig())
			r.land(t)
			start := r.player.Position

			r.press(tt.keys...)
			r.frames(60)

			if r.cc.State() != tt.state || r.clip() != tt.clip {
				t.Errorf("state %s clip %s, want %s/%s", r.cc.State(), r.clip(), tt.state, tt.clip)
			}
			if dz := r.player.Position.Z - start.Z; !near(dz, tt.dz, 0.05) {
				t.Errorf("dz = %v, want %v", dz, tt.dz)
			}
			if !near(r.player.Rotation.Y, tt.yaw, 0.01) {
				t.Errorf("yaw = %v, want %v", r.player.Rotation.Y, tt.yaw)
			}
			if r.player.Position.Y != 0 {
				t.Errorf("y = %v, want 0", r.player.Position.Y)
			}

			r.release(tt.keys...)
			r.frames(1)
			if r.cc.State() != character.StateIdle {
				t.Errorf("state after release = %s", r.cc.State())
			}
		})
	}
}

func TestJump(t *testing.T) {
	tests := []struct {
		name string
		keys []input.Key
		want character.State
	}{
		{"idle jump", nil, character.StateIdleJump},
		{"run jump", []input.Key{input.KeyW, input.KeyLeftShift}, character.StateRunJump},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRig(t, true, character.DefaultConfig())
			r.land(t)
			r.press(tt.keys...)
			r.frames(1)

			r.press(input.KeySpace)
			r.frames(1)
			if r.cc.State() != tt.want || r.clip() != string(tt.want) {
				t.Fatalf("state %s clip %s, want %s", r.cc.State(), r.clip(), tt.want)
			}
			r.frames(10)
			if r.player.Position.Y <= 0 || r.cc.Grounded() {
				t.Error("player should be airborne")
			}

			r.release(input.KeySpace)
			r.land(t)
			if r.player.Position.Y != 0 {
				t.Errorf("landed at %v", r.player.Position.Y)
			}
		})
	}
}

func TestHeldJumpDoesNotRepeat(t *testing.T) {
	r := newRig(t, true, character.DefaultConfig())
	r.land(t)

	r.press(input.KeySpace)
	r.frames(1)
	if r.cc.Grounded() {
		t.Fatal("first press should jump")
	}
	r.land(t)
	r.frames(5)
	if !r.cc.Grounded() {
		t.Error("holding space must not jump again")
	}
}

func TestCameraFollowsWithoutTurning(t *testing.T) {
	r := newRig(t, true, character.DefaultConfig())
	alpha, beta, radius := r.cam.Alpha, r.cam.Beta, r.cam.Radius

	r.land(t)
	r.press(input.KeyW, input.KeyD)
	r.frames(30)

	want := r.player.Position.Add(math.V3(0, 1.5, 0))
	if r.cam.Target != want {
		t.Errorf("camera target = %v, want %v", r.cam.Target, want)
	}
	if r.cam.Alpha != alpha || r.cam.Beta != beta || r.cam.Radius != radius {
		t.Error("controller must not change the orbit angles or radius")
	}
}

func TestStepOffset(t *testing.T) {
	tests := []struct {
		name    string
		height  float32
		climbed bool
	}{
		{"low step", 0.3, true},
		{"tall ledge", 1.0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRig(t, true, character.DefaultConfig())
			step := scene.CreateGround("step", scene.GroundOptions{Width: 4, Height: 4}, r.sc)
			step.Position = math.V3(0, tt.height, -4)
			step.CheckCollisions = true

			r.land(t)
			r.press(input.KeyW)
			r.frames(60)

			if tt.climbed {
				if r.player.Position.Y != tt.height || !near(r.player.Position.Z, -3, 0.05) {
					t.Errorf("position = %v, want on the step", r.player.Position)
				}
				return
			}
			if r.player.Position.Y != 0 || r.player.Position.Z < -2.1 {
				t.Errorf("position = %v, want stopped at the ledge", r.player.Position)
			}
		})
	}
}

func TestWalkOffLedgeFalls(t *testing.T) {
	r := newRig(t, true, character.DefaultConfig())
	high := scene.CreateGround("platform", scene.GroundOptions{Width: 2, Height: 2}, r.sc)
	high.Position = math.V3(0, 5, 0)
	high.CheckCollisions = true

	r.land(t)
	if r.player.Position.Y != 5 {
		t.Fatalf("should land on the platform, y = %v", r.player.Position.Y)
	}

	r.press(input.KeyW)
	r.frames(30)
	if r.cc.Grounded() && r.player.Position.Y == 5 {
		t.Fatal("player should have walked off")
	}
	r.release(input.KeyW)
	r.land(t)
	if r.player.Position.Y != 0 {
		t.Errorf("y = %v, want 0", r.player.Position.Y)
	}
}

func TestSlopes(t *testing.T) {
	slope := func(r *rig, deg float32) {
		g := scene.CreateGround("slope", scene.GroundOptions{Width: 40, Height: 40}, r.sc)
		g.Rotation.X = math.Deg2Rad(deg)
		g.CheckCollisions = true
	}

	t.Run("gentle slope holds", func(t *testing.T) {
		r := newRig(t, false, character.DefaultConfig())
		slope(r, 20)
		r.land(t)
		start := r.player.Position
		r.frames(30)
		if r.player.Position != start || r.cc.State() != character.StateIdle {
			t.Errorf("moved to %v in state %s", r.player.Position, r.cc.State())
		}
	})

	t.Run("steep slope slides", func(t *testing.T) {
		r := newRig(t, false, character.DefaultConfig())
		slope(r, 45)
		r.land(t)
		start := r.player.Position
		r.frames(30)
		if r.cc.State() != character.StateSlideBack || r.clip() != "slideBack" {
			t.Errorf("state %s clip %s", r.cc.State(), r.clip())
		}
		if r.player.Position.Y >= start.Y {
			t.Error("sliding should go downhill")
		}
	})

	t.Run("too steep to climb", func(t *testing.T) {
		r := newRig(t, false, character.DefaultConfig())
		slope(r, 70)
		r.land(t)
		r.press(input.KeyW) // facing -Z, uphill
		start := r.player.Position
		r.frames(1)
		if r.player.Position.X != start.X || r.player.Position.Z != start.Z {
			t.Errorf("moved from %v to %v", start, r.player.Position)
		}
	})
}

func TestMissingClipKeepsAnimation(t *testing.T) {
	cfg := character.DefaultConfig()
	cfg.Anims[character.StateTurnLeft] = character.AnimBinding{Clip: "nope", Rate: 1, Loop: true}
	r := newRig(t, true, cfg)
	r.land(t)

	r.press(input.KeyA)
	r.frames(1)
	if r.cc.State() != character.StateTurnLeft {
		t.Errorf("state = %s, want turnLeft", r.cc.State())
	}
	if r.clip() != "idle" {
		t.Errorf("clip = %s, want idle to keep playing", r.clip())
	}
}

func TestStopAndRestart(t *testing.T) {
	r := newRig(t, true, character.DefaultConfig())
	r.land(t)

	r.cc.Stop()
	r.cc.Stop()
	r.press(input.KeyW)
	start := r.player.Position
	r.frames(30)
	if r.player.Position != start {
		t.Error("stopped controller must not move the player")
	}
	if r.player.Skeleton.Current() != nil {
		t.Error("Stop should stop the animation")
	}

	r.cc.Start()
	r.cc.Start()
	r.press(input.KeyW)
	r.frames(2) // settle onto the ground
	r.frames(30)
	if r.player.Position.Z >= start.Z {
		t.Error("restarted controller should move the player")
	}
}

func TestRespawnBelowKillHeight(t *testing.T) {
	r := newRig(t, false, character.DefaultConfig())

	respawned := false
	prev := r.player.Position.Y
	for i := 0; i < 100 && !respawned; i++ {
		r.sc.Render(0.1)
		if r.player.Position.Y > prev {
			respawned = true
		}
		prev = r.player.Position.Y
	}
	if !respawned {
		t.Fatal("player was never respawned")
	}
	if r.player.Position != character.SpawnPosition {
		t.Errorf("respawned at %v", r.player.Position)
	}
}

func TestFirstPerson(t *testing.T) {
	tests := []struct {
		name          string
		noFirstPerson bool
		want          bool
	}{
		{"disabled", true, false},
		{"enabled", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := character.DefaultConfig()
			cfg.NoFirstPerson = tt.noFirstPerson
			r := newRig(t, true, cfg)

			r.keys.Dispatch(input.Event{Type: input.EventWheel, Wheel: 100})
			r.frames(1)
			if r.cc.FirstPerson() != tt.want || r.player.IsVisible == tt.want {
				t.Errorf("first person = %v visible = %v", r.cc.FirstPerson(), r.player.IsVisible)
			}

			r.keys.Dispatch(input.Event{Type: input.EventWheel, Wheel: -1})
			r.frames(1)
			if r.cc.FirstPerson() || !r.player.IsVisible {
				t.Error("zooming out should leave first person")
			}
		})
	}
}
