package scene

import (
	"image"

	"deedles.dev/oxyde/region"
)

// Field identifies a piece of double-buffered surface state that is
// only changed by a commit if the client set it.
type Field uint16

const (
	FieldBuffer Field = 1 << iota
	FieldOffset
	FieldOpaque
	FieldInput
	FieldTransform
	FieldScale
)

// FrameCallback is called with a millisecond timestamp when a frame
// that included the surface has been presented.
type FrameCallback func(ms uint32)

// State is one copy of a surface's double-buffered state.
type State struct {
	// Committed records which of the sticky fields were set since the
	// state was last applied.
	Committed Field

	Buffer    *Buffer
	Offset    image.Point
	Opaque    region.Region
	Input     region.Region
	Transform Transform
	Scale     int

	// Damage is in surface-local coordinates and BufferDamage in
	// buffer coordinates. Both are reset by every commit.
	Damage       region.Region
	BufferDamage region.Region

	Frames []FrameCallback
}

func initialState() State {
	return State{
		Input: region.Infinite(),
		Scale: 1,
	}
}

// Has reports whether f was set.
func (st *State) Has(f Field) bool {
	return st.Committed&f != 0
}

// merge moves everything that was set in src onto st and then clears
// src's per-commit fields. Sticky values in src are left alone so that
// they still read back as the most recently requested values.
func (st *State) merge(src *State) {
	if src.Has(FieldBuffer) {
		st.Buffer = src.Buffer
	}
	if src.Has(FieldOffset) {
		st.Offset = st.Offset.Add(src.Offset)
	}
	if src.Has(FieldOpaque) {
		st.Opaque = src.Opaque
	}
	if src.Has(FieldInput) {
		st.Input = src.Input
	}
	if src.Has(FieldTransform) {
		st.Transform = src.Transform
	}
	if src.Has(FieldScale) {
		st.Scale = src.Scale
	}
	st.Committed |= src.Committed

	st.Damage = st.Damage.Union(src.Damage)
	st.BufferDamage = st.BufferDamage.Union(src.BufferDamage)
	st.Frames = append(st.Frames, src.Frames...)

	src.Committed = 0
	src.Offset = image.Point{}
	src.Damage = region.Region{}
	src.BufferDamage = region.Region{}
	src.Frames = nil
}

// Size returns the size of the surface that the state describes, in
// surface-local coordinates.
func (st *State) Size() image.Point {
	if st.Buffer == nil {
		return image.Point{}
	}
	return st.Transform.Size(st.Buffer.Size).Div(max(st.Scale, 1))
}

// bufferToSurface converts a rectangle in buffer coordinates into
// surface-local coordinates.
func (st *State) bufferToSurface(r image.Rectangle) image.Rectangle {
	if st.Buffer == nil {
		return image.Rectangle{}
	}

	r = st.Transform.Invert().Rect(r, st.Buffer.Size)
	scale := max(st.Scale, 1)
	return image.Rectangle{
		Min: r.Min.Div(scale),
		Max: image.Pt(ceilDiv(r.Max.X, scale), ceilDiv(r.Max.Y, scale)),
	}
}

func ceilDiv(a, b int) int {
	if a >= 0 {
		return (a + b - 1) / b
	}
	return a / b
}
