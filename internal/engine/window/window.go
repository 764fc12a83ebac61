// Package window creates the SDL2 window and OpenGL context and translates
// SDL events into surface input events.
package window

import (
	"fmt"

	"github.com/veandco/go-sdl2/sdl"
	"go.uber.org/zap"

	"github.com/Faultbox/charscene/internal/engine/input"
	"github.com/Faultbox/charscene/internal/logger"
)

// Config holds window configuration.
type Config struct {
	Title      string
	Width      int
	Height     int
	Fullscreen bool
	VSync      bool
}

// Window wraps an SDL2 window with an OpenGL 4.1 core context.
// All methods must be called from the thread that created it.
type Window struct {
	config    Config
	sdlWindow *sdl.Window
	glContext sdl.GLContext
	log       *zap.Logger

	// last reported size, used to drop duplicate resize notifications
	width, height int32

	closed bool
}

// New creates a new window with OpenGL context.
func New(cfg Config) (*Window, error) {
	w := &Window{
		config: cfg,
		log:    logger.Named("window"),
	}

	w.log.Info("initializing SDL2")
	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_EVENTS); err != nil {
		return nil, fmt.Errorf("SDL_Init failed: %w", err)
	}

	// 4.1 core is the highest profile macOS offers.
	sdl.GLSetAttribute(sdl.GL_CONTEXT_MAJOR_VERSION, 4)
	sdl.GLSetAttribute(sdl.GL_CONTEXT_MINOR_VERSION, 1)
	sdl.GLSetAttribute(sdl.GL_CONTEXT_PROFILE_MASK, sdl.GL_CONTEXT_PROFILE_CORE)
	sdl.GLSetAttribute(sdl.GL_DOUBLEBUFFER, 1)
	sdl.GLSetAttribute(sdl.GL_DEPTH_SIZE, 24)

	flags := uint32(sdl.WINDOW_OPENGL | sdl.WINDOW_RESIZABLE | sdl.WINDOW_ALLOW_HIGHDPI)
	if cfg.Fullscreen {
		flags |= sdl.WINDOW_FULLSCREEN_DESKTOP
	}

	var err error
	w.sdlWindow, err = sdl.CreateWindow(
		cfg.Title,
		sdl.WINDOWPOS_CENTERED,
		sdl.WINDOWPOS_CENTERED,
		int32(cfg.Width),
		int32(cfg.Height),
		flags,
	)
	if err != nil {
		sdl.Quit()
		return nil, fmt.Errorf("SDL_CreateWindow failed: %w", err)
	}

	w.glContext, err = w.sdlWindow.GLCreateContext()
	if err != nil {
		w.sdlWindow.Destroy()
		sdl.Quit()
		return nil, fmt.Errorf("SDL_GL_CreateContext failed: %w", err)
	}

	if cfg.VSync {
		if err := sdl.GLSetSwapInterval(1); err != nil {
			w.log.Warn("failed to enable VSync", zap.Error(err))
		}
	} else {
		sdl.GLSetSwapInterval(0)
	}

	w.width, w.height = w.sdlWindow.GLGetDrawableSize()

	w.log.Info("window created",
		zap.String("title", cfg.Title),
		zap.Int("width", cfg.Width),
		zap.Int("height", cfg.Height),
		zap.Bool("fullscreen", cfg.Fullscreen),
		zap.Bool("vsync", cfg.VSync),
	)

	return w, nil
}

// Size returns the drawable size in pixels, which differs from the window
// size on high-DPI displays.
func (w *Window) Size() (int, int) {
	width, height := w.sdlWindow.GLGetDrawableSize()
	return int(width), int(height)
}

// PollEvents drains the SDL queue into emit. It returns false after a quit
// request.
func (w *Window) PollEvents(emit func(input.Event)) bool {
	open := true
	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		switch e := event.(type) {
		case *sdl.QuitEvent:
			emit(input.Event{Type: input.EventQuit})
			open = false

		case *sdl.WindowEvent:
			// RESIZED only fires for user resizes; SIZE_CHANGED also covers
			// fullscreen toggles and DPI changes.
			if e.Event != sdl.WINDOWEVENT_RESIZED && e.Event != sdl.WINDOWEVENT_SIZE_CHANGED {
				continue
			}
			dw, dh := w.sdlWindow.GLGetDrawableSize()
			if dw == w.width && dh == w.height {
				continue
			}
			w.width, w.height = dw, dh
			emit(input.Event{Type: input.EventResize, Width: int(dw), Height: int(dh)})

		case *sdl.KeyboardEvent:
			ev := input.Event{Key: input.Key(e.Keysym.Scancode)}
			switch e.Type {
			case sdl.KEYDOWN:
				ev.Type = input.EventKeyDown
			case sdl.KEYUP:
				ev.Type = input.EventKeyUp
			default:
				continue
			}
			emit(ev)

		case *sdl.MouseMotionEvent:
			emit(input.Event{
				Type:   input.EventPointerMove,
				X:      int(e.X),
				Y:      int(e.Y),
				DX:     int(e.XRel),
				DY:     int(e.YRel),
				Button: pressedButton(e.State),
			})

		case *sdl.MouseButtonEvent:
			ev := input.Event{X: int(e.X), Y: int(e.Y), Button: e.Button}
			if e.Type == sdl.MOUSEBUTTONDOWN {
				ev.Type = input.EventPointerDown
			} else {
				ev.Type = input.EventPointerUp
			}
			emit(ev)

		case *sdl.MouseWheelEvent:
			notches := float32(e.Y)
			if e.Direction == sdl.MOUSEWHEEL_FLIPPED {
				notches = -notches
			}
			emit(input.Event{Type: input.EventWheel, Wheel: notches})
		}
	}
	return open
}

// pressedButton returns the lowest held button for a motion state mask.
func pressedButton(state uint32) uint8 {
	for b := uint8(sdl.BUTTON_LEFT); b <= sdl.BUTTON_X2; b++ {
		if state&sdl.Button(uint32(b)) != 0 {
			return b
		}
	}
	return 0
}

// Present swaps the OpenGL buffers.
func (w *Window) Present() {
	w.sdlWindow.GLSwap()
}

// SetTitle sets the window title.
func (w *Window) SetTitle(title string) {
	w.sdlWindow.SetTitle(title)
}

// Close destroys the window and cleans up SDL2. Calling it again does
// nothing.
func (w *Window) Close() {
	if w.closed {
		return
	}
	w.closed = true
	w.log.Info("closing window")

	if w.glContext != nil {
		sdl.GLDeleteContext(w.glContext)
		w.glContext = nil
	}
	if w.sdlWindow != nil {
		w.sdlWindow.Destroy()
		w.sdlWindow = nil
	}

	sdl.Quit()
}
