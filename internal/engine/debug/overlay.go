// Package debug provides the diagnostic overlay: text panels, collider
// wireframes and screenshots.
package debug

import (
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/colornames"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Panel layout in pixels.
const (
	PanelPadding = 6
	LineSpacing  = 2
)

// Default panel colors.
var (
	PanelBackground = color.RGBA{R: 0, G: 0, B: 0, A: 160}
	PanelText       = colornames.Whitesmoke
)

var face = basicfont.Face7x13

// PanelSize returns the pixel size needed to draw lines.
func PanelSize(lines []string) (width, height int) {
	if len(lines) == 0 {
		return 0, 0
	}
	d := font.Drawer{Face: face}
	widest := fixed.Int26_6(0)
	for _, l := range lines {
		if adv := d.MeasureString(l); adv > widest {
			widest = adv
		}
	}
	lineHeight := face.Metrics().Height.Ceil() + LineSpacing
	return widest.Ceil() + 2*PanelPadding, len(lines)*lineHeight - LineSpacing + 2*PanelPadding
}

// Rasterize draws lines onto a translucent panel. It returns nil for no lines.
func Rasterize(lines []string) *image.RGBA {
	w, h := PanelSize(lines)
	if w == 0 || h == 0 {
		return nil
	}

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(PanelBackground), image.Point{}, draw.Src)

	metrics := face.Metrics()
	lineHeight := metrics.Height.Ceil() + LineSpacing
	d := font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(PanelText),
		Face: face,
	}
	for i, l := range lines {
		baseline := PanelPadding + i*lineHeight + metrics.Ascent.Ceil()
		d.Dot = fixed.P(PanelPadding, baseline)
		d.DrawString(l)
	}
	return img
}
