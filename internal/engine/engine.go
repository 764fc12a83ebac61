// Package engine owns the render surface, the drawing backend and the
// single-threaded loop that pumps events, runs posted tasks and renders.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/charscene/internal/engine/input"
	"github.com/Faultbox/charscene/internal/engine/scene"
	"github.com/Faultbox/charscene/internal/logger"
)

// ErrNoSurface is returned when an engine is created without a surface.
var ErrNoSurface = errors.New("engine: no surface")

// idleFrame is how long Run waits per iteration while no render loop runs.
const idleFrame = 16 * time.Millisecond

// Surface is a drawable region that delivers input.
type Surface interface {
	// Size returns the drawable size in pixels.
	Size() (width, height int)
	// PollEvents delivers pending events to emit. It returns false once the
	// surface has been closed by the user.
	PollEvents(emit func(input.Event)) bool
	// Present shows the frame drawn since the last call.
	Present()
	Close()
}

// Backend draws scenes onto the surface.
type Backend interface {
	Resize(width, height int)
	DrawScene(s *scene.Scene)
	Close()
}

// Engine drives one surface and backend.
type Engine struct {
	surface Surface
	backend Backend
	events  *input.Dispatcher
	log     *zap.Logger

	mu    sync.Mutex
	tasks []func()

	resizeHandlers []func(width, height int)
	renderLoop     func(dt float64)
	width, height  int
	lastFrame      time.Time
	closed         bool
}

// New creates an engine. The backend is sized to the surface immediately.
func New(surface Surface, backend Backend) (*Engine, error) {
	if surface == nil {
		return nil, ErrNoSurface
	}
	if backend == nil {
		return nil, fmt.Errorf("engine: no backend")
	}

	e := &Engine{
		surface: surface,
		backend: backend,
		events:  input.NewDispatcher(),
		log:     logger.Named("engine"),
	}
	e.Resize()
	return e, nil
}

// Post queues task for the engine thread. Safe from any goroutine.
func (e *Engine) Post(task func()) {
	e.mu.Lock()
	e.tasks = append(e.tasks, task)
	e.mu.Unlock()
}

// Input returns the surface event source.
func (e *Engine) Input() input.Source {
	return e.events
}

// Draw renders s through the backend.
func (e *Engine) Draw(s *scene.Scene) {
	e.backend.DrawScene(s)
}

// OnSurfaceResize registers fn for every surface resize event.
func (e *Engine) OnSurfaceResize(fn func(width, height int)) {
	e.resizeHandlers = append(e.resizeHandlers, fn)
}

// Resize re-fits the backend to the current surface size.
func (e *Engine) Resize() {
	w, h := e.surface.Size()
	e.width, e.height = w, h
	e.backend.Resize(w, h)
	e.log.Debug("engine resized", zap.Int("width", w), zap.Int("height", h))
}

// RenderSize returns the size the backend was last fitted to.
func (e *Engine) RenderSize() (width, height int) {
	return e.width, e.height
}

// RunRenderLoop installs fn as the per-frame callback, replacing any previous one.
func (e *Engine) RunRenderLoop(fn func(dt float64)) {
	e.renderLoop = fn
	e.lastFrame = time.Time{}
	e.log.Info("render loop started")
}

// StopRenderLoop removes the per-frame callback.
func (e *Engine) StopRenderLoop() {
	e.renderLoop = nil
}

// IsRendering reports whether a render loop is installed.
func (e *Engine) IsRendering() bool {
	return e.renderLoop != nil
}

// Step runs one loop iteration: events, then posted tasks, then one frame
// if a render loop is installed. dt is the frame time in seconds. It returns
// false when the surface was closed.
func (e *Engine) Step(dt float64) bool {
	if e.closed {
		return false
	}

	open := e.surface.PollEvents(e.dispatch)
	e.runTasks()

	if e.renderLoop != nil {
		e.renderLoop(dt)
		e.surface.Present()
	}
	return open
}

func (e *Engine) dispatch(ev input.Event) {
	if ev.Type == input.EventResize {
		for _, fn := range e.resizeHandlers {
			fn(ev.Width, ev.Height)
		}
	}
	e.events.Dispatch(ev)
}

func (e *Engine) runTasks() {
	e.mu.Lock()
	tasks := e.tasks
	e.tasks = nil
	e.mu.Unlock()

	for _, task := range tasks {
		task()
	}
}

// Run steps the loop until ctx is cancelled or the surface closes.
func (e *Engine) Run(ctx context.Context) error {
	e.log.Info("starting engine loop")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		now := time.Now()
		dt := 0.0
		if !e.lastFrame.IsZero() {
			dt = now.Sub(e.lastFrame).Seconds()
		}
		e.lastFrame = now

		if !e.Step(dt) {
			e.log.Info("surface closed")
			return nil
		}
		if e.renderLoop == nil {
			time.Sleep(idleFrame)
		}
	}
}

// Close releases the backend and the surface.
func (e *Engine) Close() {
	if e.closed {
		return
	}
	e.closed = true
	e.renderLoop = nil
	e.backend.Close()
	e.surface.Close()
}
