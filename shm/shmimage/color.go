package shmimage

import "image/color"

// Pixel is a single pixel as stored in an Image, with alpha in the high
// byte followed by red, green and blue. Colour channels are not
// premultiplied.
type Pixel uint32

func NewPixel(r, g, b, a uint8) Pixel {
	return Pixel((uint32(a) << 24) | (uint32(r) << 16) | (uint32(g) << 8) | uint32(b))
}

func (c Pixel) RGBA() (r, g, b, a uint32) {
	a = uint32(c.a()) * 0xFFFF / 0xFF
	r = uint32(c.r()) * a / 0xFF
	g = uint32(c.g()) * a / 0xFF
	b = uint32(c.b()) * a / 0xFF
	return
}

func (c Pixel) r() uint8 {
	return uint8((c & 0x00FF0000) >> 16)
}

func (c Pixel) g() uint8 {
	return uint8((c & 0x0000FF00) >> 8)
}

func (c Pixel) b() uint8 {
	return uint8(c & 0x000000FF)
}

func (c Pixel) a() uint8 {
	return uint8((c & 0xFF000000) >> 24)
}

var (
	ARGB8888Model color.Model = color.ModelFunc(argb8888Model)
	XRGB8888Model color.Model = color.ModelFunc(xrgb8888Model)
)

func argb8888Model(c color.Color) color.Color {
	switch c := c.(type) {
	case Pixel:
		return c
	case color.NRGBA:
		return NewPixel(c.R, c.G, c.B, c.A)
	default:
		r, g, b, a := c.RGBA()
		if a == 0 {
			return Pixel(0)
		}
		r = r * 0xFF / a
		g = g * 0xFF / a
		b = b * 0xFF / a
		a = a * 0xFF / 0xFFFF
		return NewPixel(uint8(r), uint8(g), uint8(b), uint8(a))
	}
}

func xrgb8888Model(c color.Color) color.Color {
	px := argb8888Model(c).(Pixel)
	return px | 0xFF000000
}
