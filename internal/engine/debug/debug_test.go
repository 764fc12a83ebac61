package debug

import (
	"image/png"
	"os"
	"testing"
	"time"

	"github.com/Faultbox/charscene/pkg/math"
)

func TestRasterizeEmpty(t *testing.T) {
	if img := Rasterize(nil); img != nil {
		t.Error("expected nil image for no lines")
	}
}

func TestRasterizeSize(t *testing.T) {
	lines := []string{"FPS: 60.0", "Meshes: 2  Lights: 1", "x"}
	img := Rasterize(lines)
	if img == nil {
		t.Fatal("expected image")
	}

	w, h := PanelSize(lines)
	if img.Bounds().Dx() != w || img.Bounds().Dy() != h {
		t.Errorf("bounds = %v, want %dx%d", img.Bounds(), w, h)
	}
	// Face7x13 advances 7px per glyph.
	if want := len("Meshes: 2  Lights: 1")*7 + 2*PanelPadding; w != want {
		t.Errorf("width = %d, want %d", w, want)
	}
}

func TestRasterizeDrawsText(t *testing.T) {
	img := Rasterize([]string{"#####"})

	corner := img.RGBAAt(0, 0)
	if corner != PanelBackground {
		t.Errorf("corner = %v, want background", corner)
	}

	inked := 0
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if img.RGBAAt(x, y) != PanelBackground {
				inked++
			}
		}
	}
	if inked == 0 {
		t.Error("no glyph pixels drawn")
	}
}

func TestColliderBoxVertices(t *testing.T) {
	v := ColliderBoxVertices(math.V3(0, 1, 0), math.V3(0.5, 1, 0.5))
	if len(v) != 72 {
		t.Fatalf("len = %d, want 72", len(v))
	}

	for i := 0; i < len(v); i += 3 {
		x, y, z := v[i], v[i+1], v[i+2]
		if (x != -0.5 && x != 0.5) || (y != 0 && y != 2) || (z != -0.5 && z != 0.5) {
			t.Fatalf("vertex %d = (%v,%v,%v) is not a box corner", i/3, x, y, z)
		}
	}
}

func TestSaveFramebufferFlips(t *testing.T) {
	s := NewScreenshots(t.TempDir(), "shot")
	s.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }

	// 1x2 image: bottom row red, top row blue (OpenGL order).
	pixels := []byte{
		255, 0, 0, 255,
		0, 0, 255, 255,
	}
	path, err := s.SaveFramebuffer(pixels, 1, 2)
	if err != nil {
		t.Fatalf("SaveFramebuffer: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatal(err)
	}

	r, _, b, _ := img.At(0, 0).RGBA()
	if b == 0 || r != 0 {
		t.Error("top row should be blue after flip")
	}
}

func TestSaveFramebufferSizeMismatch(t *testing.T) {
	s := NewScreenshots(t.TempDir(), "shot")
	if _, err := s.SaveFramebuffer(make([]byte, 3), 1, 1); err == nil {
		t.Error("expected size mismatch error")
	}
}
