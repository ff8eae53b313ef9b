package scene

import (
	"image"
)

// Edge is an anchor or gravity value, with the same values as
// xdg_positioner.anchor and xdg_positioner.gravity.
type Edge uint32

const (
	EdgeNone Edge = iota
	EdgeTop
	EdgeBottom
	EdgeLeft
	EdgeRight
	EdgeTopLeft
	EdgeBottomLeft
	EdgeTopRight
	EdgeBottomRight
)

func (e Edge) Valid() bool {
	return e <= EdgeBottomRight
}

func (e Edge) top() bool {
	return (e == EdgeTop) || (e == EdgeTopLeft) || (e == EdgeTopRight)
}

func (e Edge) bottom() bool {
	return (e == EdgeBottom) || (e == EdgeBottomLeft) || (e == EdgeBottomRight)
}

func (e Edge) left() bool {
	return (e == EdgeLeft) || (e == EdgeTopLeft) || (e == EdgeBottomLeft)
}

func (e Edge) right() bool {
	return (e == EdgeRight) || (e == EdgeTopRight) || (e == EdgeBottomRight)
}

func makeEdge(top, bottom, left, right bool) Edge {
	switch {
	case top && left:
		return EdgeTopLeft
	case top && right:
		return EdgeTopRight
	case bottom && left:
		return EdgeBottomLeft
	case bottom && right:
		return EdgeBottomRight
	case top:
		return EdgeTop
	case bottom:
		return EdgeBottom
	case left:
		return EdgeLeft
	case right:
		return EdgeRight
	default:
		return EdgeNone
	}
}

func (e Edge) flipX() Edge {
	return makeEdge(e.top(), e.bottom(), e.right(), e.left())
}

func (e Edge) flipY() Edge {
	return makeEdge(e.bottom(), e.top(), e.left(), e.right())
}

// Adjustment is a set of xdg_positioner.constraint_adjustment flags.
type Adjustment uint32

const (
	AdjustSlideX Adjustment = 1 << iota
	AdjustSlideY
	AdjustFlipX
	AdjustFlipY
	AdjustResizeX
	AdjustResizeY
)

// Positioner holds the rules for placing a popup relative to its
// parent.
type Positioner struct {
	Size       image.Point
	AnchorRect image.Rectangle
	Anchor     Edge
	Gravity    Edge
	Adjust     Adjustment
	Offset     image.Point

	Reactive        bool
	ParentSize      image.Point
	ParentConfigure uint32

	anchorSet bool
}

// SetAnchorRect sets the anchor rectangle and records that it has been
// set.
func (p *Positioner) SetAnchorRect(r image.Rectangle) {
	p.AnchorRect = r
	p.anchorSet = true
}

// Complete reports whether both a size and an anchor rectangle have
// been set, which is required before a positioner can be used.
func (p *Positioner) Complete() bool {
	return (p.Size.X > 0) && (p.Size.Y > 0) && p.anchorSet
}

// Place returns the popup geometry relative to the parent's window
// geometry without any constraint adjustment.
func (p *Positioner) Place() image.Rectangle {
	return p.place(p.Anchor, p.Gravity)
}

func (p *Positioner) place(anchor, gravity Edge) image.Rectangle {
	ar := p.AnchorRect
	var pt image.Point
	switch {
	case anchor.left():
		pt.X = ar.Min.X
	case anchor.right():
		pt.X = ar.Max.X
	default:
		pt.X = ar.Min.X + ar.Dx()/2
	}
	switch {
	case anchor.top():
		pt.Y = ar.Min.Y
	case anchor.bottom():
		pt.Y = ar.Max.Y
	default:
		pt.Y = ar.Min.Y + ar.Dy()/2
	}

	var origin image.Point
	switch {
	case gravity.left():
		origin.X = pt.X - p.Size.X
	case gravity.right():
		origin.X = pt.X
	default:
		origin.X = pt.X - p.Size.X/2
	}
	switch {
	case gravity.top():
		origin.Y = pt.Y - p.Size.Y
	case gravity.bottom():
		origin.Y = pt.Y
	default:
		origin.Y = pt.Y - p.Size.Y/2
	}

	origin = origin.Add(p.Offset)
	return image.Rectangle{Min: origin, Max: origin.Add(p.Size)}
}

func fitsX(r, bounds image.Rectangle) bool {
	return (r.Min.X >= bounds.Min.X) && (r.Max.X <= bounds.Max.X)
}

func fitsY(r, bounds image.Rectangle) bool {
	return (r.Min.Y >= bounds.Min.Y) && (r.Max.Y <= bounds.Max.Y)
}

// Resolve places the popup and then adjusts it to fit inside bounds,
// which is given in the same coordinate space as the anchor rectangle.
// Adjustments are tried in the order flip, slide, resize, separately
// for each axis.
func (p *Positioner) Resolve(bounds image.Rectangle) image.Rectangle {
	anchor, gravity := p.Anchor, p.Gravity
	r := p.place(anchor, gravity)

	if !fitsX(r, bounds) && (p.Adjust&AdjustFlipX != 0) {
		flipped := p.place(anchor.flipX(), gravity.flipX())
		if fitsX(flipped, bounds) {
			anchor, gravity = anchor.flipX(), gravity.flipX()
			r.Min.X, r.Max.X = flipped.Min.X, flipped.Max.X
		}
	}
	if !fitsY(r, bounds) && (p.Adjust&AdjustFlipY != 0) {
		flipped := p.place(anchor.flipY(), gravity.flipY())
		if fitsY(flipped, bounds) {
			r.Min.Y, r.Max.Y = flipped.Min.Y, flipped.Max.Y
		}
	}

	if !fitsX(r, bounds) && (p.Adjust&AdjustSlideX != 0) {
		r = r.Add(image.Pt(slide(r.Min.X, r.Max.X, bounds.Min.X, bounds.Max.X), 0))
	}
	if !fitsY(r, bounds) && (p.Adjust&AdjustSlideY != 0) {
		r = r.Add(image.Pt(0, slide(r.Min.Y, r.Max.Y, bounds.Min.Y, bounds.Max.Y)))
	}

	if !fitsX(r, bounds) && (p.Adjust&AdjustResizeX != 0) {
		r.Min.X = max(r.Min.X, bounds.Min.X)
		r.Max.X = min(r.Max.X, bounds.Max.X)
	}
	if !fitsY(r, bounds) && (p.Adjust&AdjustResizeY != 0) {
		r.Min.Y = max(r.Min.Y, bounds.Min.Y)
		r.Max.Y = min(r.Max.Y, bounds.Max.Y)
	}

	if r.Empty() {
		return p.Place()
	}
	return r
}

// slide returns how far to move the span [lo, hi) to get it inside
// [bmin, bmax). If it is larger than the bounds, it is aligned with the
// leading edge.
func slide(lo, hi, bmin, bmax int) int {
	switch {
	case lo < bmin:
		return bmin - lo
	case hi > bmax:
		return max(bmin-lo, bmax-hi)
	default:
		return 0
	}
}
