// Package region implements sets of pixels described by rectangles, as
// used for damage, opaque and input regions.
//
// A Region is stored in a canonical form: a list of horizontal bands,
// sorted from top to bottom, each made of sorted, non-touching spans.
// Two regions covering the same pixels therefore always have identical
// representations.
package region

import (
	"fmt"
	"image"
	"strings"

	"golang.org/x/exp/slices"
)

// Region is an immutable set of pixels. The zero value is empty.
type Region struct {
	rects []image.Rectangle
}

// Rect returns a region covering r.
func Rect(r image.Rectangle) Region {
	r = r.Canon()
	if r.Empty() {
		return Region{}
	}
	return Region{rects: []image.Rectangle{r}}
}

// XYWH returns a region covering the given rectangle, as it is
// described in protocol requests.
func XYWH(x, y, w, h int) Region {
	if (w <= 0) || (h <= 0) {
		return Region{}
	}
	return Rect(image.Rect(x, y, x+w, y+h))
}

// New returns the union of rects.
func New(rects ...image.Rectangle) Region {
	var r Region
	for _, rect := range rects {
		r = r.Add(rect)
	}
	return r
}

// Infinite returns a region that covers every representable
// coordinate that a client can send.
func Infinite() Region {
	const m = 1 << 30
	return Rect(image.Rect(-m, -m, m, m))
}

func (r Region) Empty() bool {
	return len(r.rects) == 0
}

// Rects returns the rectangles that make up r in canonical order. The
// returned slice must not be modified.
func (r Region) Rects() []image.Rectangle {
	return r.rects
}

func (r Region) Bounds() image.Rectangle {
	var b image.Rectangle
	for _, rect := range r.rects {
		b = b.Union(rect)
	}
	return b
}

// Contains reports whether the pixel at p is in r.
func (r Region) Contains(p image.Point) bool {
	for _, rect := range r.rects {
		if p.In(rect) {
			return true
		}
	}
	return false
}

// Overlaps reports whether r and o have any pixels in common.
func (r Region) Overlaps(o image.Rectangle) bool {
	for _, rect := range r.rects {
		if rect.Overlaps(o) {
			return true
		}
	}
	return false
}

func (r Region) Equal(o Region) bool {
	return slices.Equal(r.rects, o.rects)
}

func (r Region) Add(rect image.Rectangle) Region {
	return r.Union(Rect(rect))
}

func (r Region) Sub(rect image.Rectangle) Region {
	return r.Subtract(Rect(rect))
}

func (r Region) Union(o Region) Region {
	switch {
	case r.Empty():
		return o
	case o.Empty():
		return r
	}
	return combine(r, o, func(a, b bool) bool { return a || b })
}

func (r Region) Intersect(o Region) Region {
	if r.Empty() || o.Empty() {
		return Region{}
	}
	return combine(r, o, func(a, b bool) bool { return a && b })
}

func (r Region) Subtract(o Region) Region {
	if r.Empty() || o.Empty() {
		return r
	}
	return combine(r, o, func(a, b bool) bool { return a && !b })
}

// Clip returns the part of r inside of rect.
func (r Region) Clip(rect image.Rectangle) Region {
	return r.Intersect(Rect(rect))
}

func (r Region) Translate(d image.Point) Region {
	if (d == image.Point{}) || r.Empty() {
		return r
	}

	rects := make([]image.Rectangle, len(r.rects))
	for i, rect := range r.rects {
		rects[i] = rect.Add(d)
	}
	return Region{rects: rects}
}

// Map returns the union of f applied to every rectangle of r. It is
// used for transformations, such as scaling and rotation, that don't
// preserve the canonical form.
func (r Region) Map(f func(image.Rectangle) image.Rectangle) Region {
	var out Region
	for _, rect := range r.rects {
		out = out.Add(f(rect))
	}
	return out
}

func (r Region) String() string {
	strs := make([]string, 0, len(r.rects))
	for _, rect := range r.rects {
		strs = append(strs, rect.String())
	}
	return fmt.Sprintf("{%v}", strings.Join(strs, " "))
}

type span struct {
	x0, x1 int
}

type band struct {
	y0, y1 int
	spans  []span
}

func (r Region) bands() (bands []band) {
	for _, rect := range r.rects {
		if n := len(bands); (n > 0) && (bands[n-1].y0 == rect.Min.Y) {
			bands[n-1].spans = append(bands[n-1].spans, span{rect.Min.X, rect.Max.X})
			continue
		}
		bands = append(bands, band{
			y0:    rect.Min.Y,
			y1:    rect.Max.Y,
			spans: []span{{rect.Min.X, rect.Max.X}},
		})
	}
	return bands
}

func fromBands(bands []band) Region {
	var rects []image.Rectangle
	for _, b := range bands {
		for _, s := range b.spans {
			rects = append(rects, image.Rect(s.x0, b.y0, s.x1, b.y1))
		}
	}
	return Region{rects: rects}
}

func spansAt(bands []band, y int) []span {
	i, ok := slices.BinarySearchFunc(bands, y, func(b band, y int) int {
		switch {
		case b.y1 <= y:
			return -1
		case b.y0 > y:
			return 1
		default:
			return 0
		}
	})
	if !ok {
		return nil
	}
	return bands[i].spans
}

func edges(bands ...[]band) []int {
	var ys []int
	for _, bs := range bands {
		for _, b := range bs {
			ys = append(ys, b.y0, b.y1)
		}
	}
	slices.Sort(ys)
	return slices.Compact(ys)
}

func combine(a, b Region, op func(a, b bool) bool) Region {
	ab, bb := a.bands(), b.bands()
	ys := edges(ab, bb)

	var out []band
	for i := 0; i < len(ys)-1; i++ {
		y0, y1 := ys[i], ys[i+1]
		spans := combineSpans(spansAt(ab, y0), spansAt(bb, y0), op)
		if len(spans) == 0 {
			continue
		}

		if n := len(out); (n > 0) && (out[n-1].y1 == y0) && slices.Equal(out[n-1].spans, spans) {
			out[n-1].y1 = y1
			continue
		}
		out = append(out, band{y0: y0, y1: y1, spans: spans})
	}

	return fromBands(out)
}

func covered(spans []span, x int) bool {
	for _, s := range spans {
		if (x >= s.x0) && (x < s.x1) {
			return true
		}
	}
	return false
}

func combineSpans(a, b []span, op func(a, b bool) bool) []span {
	xs := make([]int, 0, 2*(len(a)+len(b)))
	for _, s := range a {
		xs = append(xs, s.x0, s.x1)
	}
	for _, s := range b {
		xs = append(xs, s.x0, s.x1)
	}
	slices.Sort(xs)
	xs = slices.Compact(xs)

	var out []span
	for i := 0; i < len(xs)-1; i++ {
		x0, x1 := xs[i], xs[i+1]
		if !op(covered(a, x0), covered(b, x0)) {
			continue
		}

		if n := len(out); (n > 0) && (out[n-1].x1 == x0) {
			out[n-1].x1 = x1
			continue
		}
		out = append(out, span{x0, x1})
	}
	return out
}
