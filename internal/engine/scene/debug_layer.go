package scene

import "fmt"

// DebugLayer is the on/off state of the diagnostic overlay plus the values
// it displays. Toggling it never touches the scene graph.
type DebugLayer struct {
	scene   *Scene
	visible bool
	overlay bool
	watches []watch
}

type watch struct {
	label string
	value func() string
}

// Show makes the layer visible. overlay draws it on top of the scene
// instead of beside it.
func (d *DebugLayer) Show(overlay bool) {
	d.visible = true
	d.overlay = overlay
}

// Hide makes the layer invisible.
func (d *DebugLayer) Hide() {
	d.visible = false
}

// IsVisible reports whether the layer is shown.
func (d *DebugLayer) IsVisible() bool {
	return d.visible
}

// IsOverlay reports whether the layer is drawn over the scene.
func (d *DebugLayer) IsOverlay() bool {
	return d.overlay
}

// Watch adds a labeled value evaluated each time Lines is called.
func (d *DebugLayer) Watch(label string, value func() string) {
	d.watches = append(d.watches, watch{label: label, value: value})
}

// Lines returns the text the overlay shows.
func (d *DebugLayer) Lines() []string {
	s := d.scene
	lines := []string{
		fmt.Sprintf("FPS: %.1f", s.FPS()),
		fmt.Sprintf("Frame: %d", s.FrameCount()),
		fmt.Sprintf("Meshes: %d  Lights: %d", len(s.meshes), len(s.lights)),
	}
	if s.camera != nil {
		lines = append(lines, "Camera: "+s.camera.Name())
	}
	for _, w := range d.watches {
		lines = append(lines, w.label+": "+w.value())
	}
	return lines
}
