// Package shmimage provides image.Image implementations over the pixel
// layouts used by wl_shm buffers.
package shmimage

import (
	"image"
	"image/color"
	"image/draw"

	"deedles.dev/oxyde/internal/bin"
)

// Format is a wl_shm pixel format.
type Format uint32

const (
	ARGB8888 Format = 0
	XRGB8888 Format = 1
)

func (f Format) Valid() bool {
	return (f == ARGB8888) || (f == XRGB8888)
}

func (f Format) String() string {
	switch f {
	case ARGB8888:
		return "argb8888"
	case XRGB8888:
		return "xrgb8888"
	default:
		return "unknown"
	}
}

// BytesPerPixel is the size of a pixel in every supported format.
const BytesPerPixel = 4

// Image is an in-memory image in one of the supported formats. Each
// pixel is a single native-endian 32-bit word with the channels
// arranged as the format's name describes, from the high bits to the
// low ones.
type Image struct {
	// Pix holds the image's pixels. The pixel at (x, y) starts at
	// Pix[(y-Rect.Min.Y)*Stride + (x-Rect.Min.X)*4].
	Pix []uint8
	// Stride is the Pix stride (in bytes) between vertically adjacent pixels.
	Stride int
	// Rect is the image's bounds.
	Rect   image.Rectangle
	Format Format
}

// New returns a new image with the given bounds.
func New(r image.Rectangle, format Format) *Image {
	return &Image{
		Pix:    make([]uint8, r.Dx()*r.Dy()*BytesPerPixel),
		Stride: BytesPerPixel * r.Dx(),
		Rect:   r,
		Format: format,
	}
}

func (p *Image) Bounds() image.Rectangle { return p.Rect }

func (p *Image) ColorModel() color.Model {
	if p.Format == XRGB8888 {
		return XRGB8888Model
	}
	return ARGB8888Model
}

func (p *Image) At(x, y int) color.Color {
	return p.PixelAt(x, y)
}

// PixelAt returns the pixel at (x, y). For XRGB8888 images the alpha
// channel is always opaque.
func (p *Image) PixelAt(x, y int) Pixel {
	if !(image.Point{x, y}.In(p.Rect)) {
		return 0
	}
	i := p.PixOffset(x, y)
	c := Pixel(bin.Get[uint32](p.Pix[i : i+4 : i+4]))
	if p.Format == XRGB8888 {
		c |= 0xFF000000
	}
	return c
}

// PixOffset returns the index of the first element of Pix that corresponds to
// the pixel at (x, y).
func (p *Image) PixOffset(x, y int) int {
	return (y-p.Rect.Min.Y)*p.Stride + (x-p.Rect.Min.X)*BytesPerPixel
}

func (p *Image) Set(x, y int, c color.Color) {
	if !(image.Point{x, y}.In(p.Rect)) {
		return
	}
	i := p.PixOffset(x, y)
	px := ARGB8888Model.Convert(c).(Pixel)
	bin.Append(p.Pix[i:i:i+4], uint32(px))
}

// SubImage returns an image representing the portion of the image p visible
// through r. The returned value shares pixels with the original image.
func (p *Image) SubImage(r image.Rectangle) draw.Image {
	r = r.Intersect(p.Rect)
	if r.Empty() {
		return &Image{Format: p.Format}
	}
	i := p.PixOffset(r.Min.X, r.Min.Y)
	return &Image{
		Pix:    p.Pix[i:],
		Stride: p.Stride,
		Rect:   r,
		Format: p.Format,
	}
}

// Opaque scans the entire image and reports whether it is fully opaque.
func (p *Image) Opaque() bool {
	if p.Format == XRGB8888 {
		return true
	}
	for y := p.Rect.Min.Y; y < p.Rect.Max.Y; y++ {
		for x := p.Rect.Min.X; x < p.Rect.Max.X; x++ {
			if p.PixelAt(x, y).a() != 0xFF {
				return false
			}
		}
	}
	return true
}
