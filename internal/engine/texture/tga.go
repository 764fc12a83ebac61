package texture

import (
	"errors"
	"image"
	"image/color"
)

// TGA image types.
const (
	TGATypeUncompressed = 2
	TGATypeRLE          = 10
)

const tgaHeaderSize = 18

// ErrTruncated is returned for image data that ends early.
var ErrTruncated = errors.New("texture: image data truncated")

// DecodeTGA decodes an uncompressed or RLE true-color TGA image with 24 or
// 32 bits per pixel.
func DecodeTGA(data []byte) (*image.RGBA, error) {
	if len(data) < tgaHeaderSize {
		return nil, ErrTruncated
	}

	idLength := int(data[0])
	if data[1] != 0 {
		return nil, errors.New("texture: color-mapped TGA not supported")
	}
	kind := data[2]
	if kind != TGATypeUncompressed && kind != TGATypeRLE {
		return nil, errors.New("texture: unsupported TGA type")
	}
	width := int(data[12]) | int(data[13])<<8
	height := int(data[14]) | int(data[15])<<8
	bpp := int(data[16]) / 8
	if bpp != 3 && bpp != 4 {
		return nil, errors.New("texture: unsupported TGA bit depth")
	}
	topDown := data[17]&0x20 != 0

	offset := tgaHeaderSize + idLength
	if offset > len(data) {
		return nil, ErrTruncated
	}
	src := data[offset:]

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	d := tgaDecoder{img: img, width: width, height: height, bpp: bpp, topDown: topDown}

	if kind == TGATypeUncompressed {
		if len(src) < width*height*bpp {
			return nil, ErrTruncated
		}
		for i := 0; i < width*height; i++ {
			d.put(d.pixel(src[i*bpp:]))
		}
		return img, nil
	}

	for d.n < width*height {
		if len(src) == 0 {
			return nil, ErrTruncated
		}
		header := src[0]
		src = src[1:]
		count := int(header&0x7f) + 1

		if header&0x80 != 0 {
			if len(src) < bpp {
				return nil, ErrTruncated
			}
			c := d.pixel(src)
			src = src[bpp:]
			for ; count > 0; count-- {
				d.put(c)
			}
			continue
		}
		if len(src) < count*bpp {
			return nil, ErrTruncated
		}
		for ; count > 0; count-- {
			d.put(d.pixel(src))
			src = src[bpp:]
		}
	}
	return img, nil
}

type tgaDecoder struct {
	img           *image.RGBA
	width, height int
	bpp           int
	topDown       bool
	n             int // pixels written
}

// pixel reads one BGR(A) pixel.
func (d *tgaDecoder) pixel(p []byte) color.RGBA {
	c := color.RGBA{R: p[2], G: p[1], B: p[0], A: 255}
	if d.bpp == 4 {
		c.A = p[3]
	}
	return c
}

// put stores c at the next pixel position. Extra pixels of a run that
// overshoots the image are dropped.
func (d *tgaDecoder) put(c color.RGBA) {
	if d.n >= d.width*d.height {
		return
	}
	x, y := d.n%d.width, d.n/d.width
	if !d.topDown {
		y = d.height - 1 - y
	}
	d.img.SetRGBA(x, y, c)
	d.n++
}
