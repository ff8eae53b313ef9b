package scene

import (
	"image"

	"deedles.dev/oxyde/region"
)

// Element is one surface's contribution to a frame.
type Element struct {
	Surface *Surface
	Buffer  *Buffer

	// Rect is where the surface is shown, in output-local logical
	// coordinates.
	Rect      image.Rectangle
	Transform Transform
	Scale     int
	Opaque    region.Region
}

// FramePlan is everything a back-end needs to draw one frame of an
// output. The buffers of its elements are held until the plan is
// replaced on screen by a later one.
type FramePlan struct {
	Output   *Output
	Elements []Element
	Damage   region.Region

	released bool
}

func (p *FramePlan) release() {
	if p.released {
		return
	}
	p.released = true
	for _, e := range p.Elements {
		e.Buffer.Unhold()
	}
}

// NeedsFrame reports whether o has damage or surfaces waiting for
// frame callbacks.
func (sc *Scene) NeedsFrame(o *Output) bool {
	if !o.damage.Empty() {
		return true
	}

	need := false
	sc.walk(func(s *Surface, r image.Rectangle) {
		need = need || ((len(s.frames) > 0) && s.outputs.Has(o))
	})
	return need
}

// NextFrame builds the plan for the next frame of o and resets its
// damage.
func (sc *Scene) NextFrame(o *Output) *FramePlan {
	b := o.Bounds()
	plan := FramePlan{
		Output: o,
		Damage: o.damage,
	}
	o.damage = region.Region{}

	sc.walk(func(s *Surface, r image.Rectangle) {
		if !r.Overlaps(b) {
			return
		}

		origin := r.Min.Sub(b.Min)
		s.current.Buffer.Hold()
		plan.Elements = append(plan.Elements, Element{
			Surface:   s,
			Buffer:    s.current.Buffer,
			Rect:      r.Sub(b.Min),
			Transform: s.current.Transform,
			Scale:     max(s.current.Scale, 1),
			Opaque:    s.current.Opaque.Clip(image.Rectangle{Max: r.Size()}).Translate(origin),
		})
	})

	if o.inflight != nil {
		o.inflight.release()
	}
	o.inflight = &plan
	return &plan
}

// FramePresented tells the scene that plan is now on screen. The
// previously shown plan's buffers are released and the frame callbacks
// of every surface in plan are fired with the timestamp ms.
func (sc *Scene) FramePresented(plan *FramePlan, ms uint32) {
	o := plan.Output
	if o.inflight == plan {
		o.inflight = nil
	}
	if o.onScreen != nil {
		o.onScreen.release()
	}
	o.onScreen = plan

	for _, e := range plan.Elements {
		s := e.Surface
		if sc.surfaces[s.handle] != s {
			continue
		}

		frames := s.frames
		s.frames = nil
		for _, cb := range frames {
			cb(ms)
		}
	}
}

// FrameDropped tells the scene that the back-end will not present
// plan. Its damage is returned to the output.
func (sc *Scene) FrameDropped(plan *FramePlan) {
	o := plan.Output
	if o.inflight == plan {
		o.inflight = nil
	}
	plan.release()
	o.damage = o.damage.Union(plan.Damage)
}
