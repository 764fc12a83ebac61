package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Faultbox/charscene/internal/engine/enginetest"
	"github.com/Faultbox/charscene/internal/engine/input"
	"github.com/Faultbox/charscene/internal/engine/scene"
)

func newTestEngine(t *testing.T) (*Engine, *enginetest.Surface, *enginetest.Backend) {
	t.Helper()
	surface := enginetest.NewSurface(800, 600)
	backend := &enginetest.Backend{}
	e, err := New(surface, backend)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e, surface, backend
}

func TestNewRequiresSurface(t *testing.T) {
	if _, err := New(nil, &enginetest.Backend{}); !errors.Is(err, ErrNoSurface) {
		t.Errorf("expected ErrNoSurface, got %v", err)
	}
	if _, err := New(enginetest.NewSurface(1, 1), nil); err == nil {
		t.Error("expected error without backend")
	}
}

func TestNewFitsBackend(t *testing.T) {
	_, _, backend := newTestEngine(t)
	if backend.Width != 800 || backend.Height != 600 {
		t.Errorf("backend size = %dx%d, want 800x600", backend.Width, backend.Height)
	}
}

func TestResizeHandlerRunsBeforeFrame(t *testing.T) {
	e, surface, backend := newTestEngine(t)
	sc := scene.New(e)

	e.OnSurfaceResize(func(int, int) { e.Resize() })
	e.RunRenderLoop(func(dt float64) { sc.Render(dt) })

	surface.Resize(1920, 1080)
	e.Step(0.016)

	if len(backend.Frames) != 1 {
		t.Fatalf("frames = %d, want 1", len(backend.Frames))
	}
	f := backend.Frames[0]
	if f.Width != 1920 || f.Height != 1080 {
		t.Errorf("frame rendered at %dx%d, want 1920x1080", f.Width, f.Height)
	}
	if w, h := e.RenderSize(); w != 1920 || h != 1080 {
		t.Errorf("render size = %dx%d", w, h)
	}
}

func TestResizeFiresOncePerEvent(t *testing.T) {
	e, surface, backend := newTestEngine(t)
	e.OnSurfaceResize(func(int, int) { e.Resize() })

	before := backend.Resizes
	surface.Resize(1000, 700)
	surface.Resize(1100, 800)
	surface.Resize(1200, 900)
	e.Step(0)

	if got := backend.Resizes - before; got != 3 {
		t.Errorf("resizes = %d, want 3", got)
	}
}

func TestStepWithoutRenderLoop(t *testing.T) {
	e, surface, backend := newTestEngine(t)

	ran := false
	e.Post(func() { ran = true })
	e.Step(0.016)

	if !ran {
		t.Error("posted task did not run")
	}
	if len(backend.Frames) != 0 || surface.Presented != 0 {
		t.Error("nothing should render before the render loop starts")
	}
	if e.IsRendering() {
		t.Error("IsRendering should be false")
	}
}

func TestPostFromGoroutines(t *testing.T) {
	e, _, _ := newTestEngine(t)

	var wg sync.WaitGroup
	count := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.Post(func() { count++ })
		}()
	}
	wg.Wait()
	e.Step(0)

	if count != 20 {
		t.Errorf("ran %d tasks, want 20", count)
	}
}

func TestInputReachesSubscribers(t *testing.T) {
	e, surface, _ := newTestEngine(t)

	var got []input.EventType
	e.Input().Subscribe(func(ev input.Event) { got = append(got, ev.Type) })

	surface.Queue(input.Event{Type: input.EventKeyDown, Key: input.KeyW})
	surface.Resize(10, 10)
	e.Step(0)

	if len(got) != 2 || got[0] != input.EventKeyDown || got[1] != input.EventResize {
		t.Errorf("events = %v", got)
	}
}

func TestRunStopsWhenSurfaceCloses(t *testing.T) {
	e, surface, _ := newTestEngine(t)

	frames := 0
	e.RunRenderLoop(func(float64) {
		frames++
		if frames == 3 {
			surface.Quit()
		}
	})

	if err := e.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if frames != 4 {
		t.Errorf("frames = %d, want 4", frames)
	}
}

func TestRunHonorsContext(t *testing.T) {
	e, _, _ := newTestEngine(t)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := e.Run(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline error, got %v", err)
	}
}

func TestClose(t *testing.T) {
	e, surface, backend := newTestEngine(t)
	e.Close()
	e.Close()

	if !surface.Closed || !backend.Closed {
		t.Error("Close should release surface and backend")
	}
	if e.Step(0) {
		t.Error("Step after Close should report closed")
	}
}
