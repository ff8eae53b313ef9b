package scene

import (
	"fmt"
	"image"
)

// Transform is a buffer or output transform, with the same values as
// wl_output.transform.
type Transform uint32

const (
	TransformNormal Transform = iota
	Transform90
	Transform180
	Transform270
	TransformFlipped
	TransformFlipped90
	TransformFlipped180
	TransformFlipped270
)

func (t Transform) Valid() bool {
	return t <= TransformFlipped270
}

// Swaps reports whether t exchanges width and height.
func (t Transform) Swaps() bool {
	return t&1 != 0
}

// Invert returns the transform that undoes t.
func (t Transform) Invert() Transform {
	switch t {
	case Transform90:
		return Transform270
	case Transform270:
		return Transform90
	default:
		return t
	}
}

// Size returns the size of a w by h area after it is transformed.
func (t Transform) Size(size image.Point) image.Point {
	if t.Swaps() {
		return image.Pt(size.Y, size.X)
	}
	return size
}

// Rect maps r, which lies in an area of the given size, through t.
func (t Transform) Rect(r image.Rectangle, size image.Point) image.Rectangle {
	x, y, w, h := r.Min.X, r.Min.Y, r.Dx(), r.Dy()
	W, H := size.X, size.Y

	switch t {
	case Transform90:
		x, y, w, h = H-y-h, x, h, w
	case Transform180:
		x, y = W-x-w, H-y-h
	case Transform270:
		x, y, w, h = y, W-x-w, h, w
	case TransformFlipped:
		x = W - x - w
	case TransformFlipped90:
		x, y, w, h = y, x, h, w
	case TransformFlipped180:
		y = H - y - h
	case TransformFlipped270:
		x, y, w, h = H-y-h, W-x-w, h, w
	}

	return image.Rect(x, y, x+w, y+h)
}

func (t Transform) String() string {
	switch t {
	case TransformNormal:
		return "normal"
	case Transform90:
		return "90"
	case Transform180:
		return "180"
	case Transform270:
		return "270"
	case TransformFlipped:
		return "flipped"
	case TransformFlipped90:
		return "flipped-90"
	case TransformFlipped180:
		return "flipped-180"
	case TransformFlipped270:
		return "flipped-270"
	default:
		return fmt.Sprintf("Transform(%d)", uint32(t))
	}
}

// ParseTransform parses the names returned by Transform.String.
func ParseTransform(v string) (Transform, error) {
	for t := TransformNormal; t.Valid(); t++ {
		if t.String() == v {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown transform %q", v)
}
