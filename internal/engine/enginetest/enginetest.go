// Package enginetest provides in-memory surfaces and backends for tests.
package enginetest

import (
	"github.com/Faultbox/charscene/internal/engine/input"
	"github.com/Faultbox/charscene/internal/engine/scene"
)

// Surface is a scripted engine.Surface.
type Surface struct {
	Width, Height int
	Presented     int
	Closed        bool

	pending []input.Event
	open    bool
}

// NewSurface returns an open surface of the given size.
func NewSurface(width, height int) *Surface {
	return &Surface{Width: width, Height: height, open: true}
}

// Size implements engine.Surface.
func (s *Surface) Size() (int, int) { return s.Width, s.Height }

// PollEvents delivers queued events in order.
func (s *Surface) PollEvents(emit func(input.Event)) bool {
	events := s.pending
	s.pending = nil
	for _, e := range events {
		emit(e)
	}
	return s.open
}

// Present counts presented frames.
func (s *Surface) Present() { s.Presented++ }

// Close marks the surface closed.
func (s *Surface) Close() { s.Closed = true }

// Queue adds events for the next PollEvents.
func (s *Surface) Queue(events ...input.Event) {
	s.pending = append(s.pending, events...)
}

// Resize changes the size and queues the matching resize event.
func (s *Surface) Resize(width, height int) {
	s.Width, s.Height = width, height
	s.Queue(input.Event{Type: input.EventResize, Width: width, Height: height})
}

// Quit makes the next PollEvents report a closed surface.
func (s *Surface) Quit() {
	s.open = false
}

// Frame records what the backend saw when drawing.
type Frame struct {
	Width, Height int
	Meshes        int
	Overlay       bool
}

// Backend is a recording engine.Backend.
type Backend struct {
	Width, Height int
	Resizes       int
	Frames        []Frame
	Closed        bool
}

// Resize implements engine.Backend.
func (b *Backend) Resize(width, height int) {
	b.Width, b.Height = width, height
	b.Resizes++
}

// DrawScene records a frame.
func (b *Backend) DrawScene(s *scene.Scene) {
	b.Frames = append(b.Frames, Frame{
		Width:   b.Width,
		Height:  b.Height,
		Meshes:  len(s.Meshes()),
		Overlay: s.DebugLayer().IsVisible(),
	})
}

// Close implements engine.Backend.
func (b *Backend) Close() { b.Closed = true }
