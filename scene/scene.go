// Package scene holds the compositor's authoritative model of
// surfaces, buffers and outputs, and derives from it the per-output
// frame plans that a back-end presents.
//
// Surfaces live in an arena and refer to each other by Handle, so a
// destroyed surface never leaves a dangling pointer in its relatives.
// A Scene is not safe for concurrent use.
package scene

import (
	"image"

	"deedles.dev/oxyde/internal/set"
	"deedles.dev/oxyde/region"
	"golang.org/x/exp/slices"
)

// Handle is a stable reference to a surface. Handles are never reused,
// and the zero Handle refers to nothing.
type Handle uint32

// Listener is notified of changes in the scene that need to be passed
// on to clients or the back-end.
type Listener interface {
	// Enter and Leave are called when a surface starts or stops being
	// shown on an output.
	Enter(s *Surface, o *Output)
	Leave(s *Surface, o *Output)

	// Dirty is called when o has new damage or frame callbacks waiting
	// for a frame.
	Dirty(o *Output)
}

type Scene struct {
	listener Listener

	surfaces map[Handle]*Surface
	next     Handle
	roots    []Handle
	outputs  []*Output

	cursor    Handle
	cursorPos image.Point

	depth     int
	committed []*Surface
	restacked bool
}

func New(listener Listener) *Scene {
	return &Scene{
		listener: listener,
		surfaces: make(map[Handle]*Surface),
	}
}

// NewSurface creates a surface with no role and no content.
func (sc *Scene) NewSurface(owner any) *Surface {
	sc.next++
	s := &Surface{
		Owner:   owner,
		scene:   sc,
		handle:  sc.next,
		pending: initialState(),
		current: initialState(),
		cached:  initialState(),
		outputs: make(set.Set[*Output]),
	}
	s.stack = []Handle{s.handle}
	s.pendingStack = []Handle{s.handle}
	sc.surfaces[s.handle] = s
	return s
}

// Surface returns the surface referred to by h, or nil if it has been
// destroyed.
func (sc *Scene) Surface(h Handle) *Surface {
	if h == 0 {
		return nil
	}
	return sc.surfaces[h]
}

// DestroySurface removes s from the scene. Its subsurfaces remain but
// are no longer shown.
func (sc *Scene) DestroySurface(s *Surface) {
	if sc.surfaces[s.handle] != s {
		return
	}

	before := sc.begin()
	defer sc.end(before)

	sc.roots = slices.DeleteFunc(sc.roots, func(h Handle) bool { return h == s.handle })
	if sc.cursor == s.handle {
		sc.cursor = 0
	}
	if parent := s.Parent(); parent != nil {
		parent.stack = slices.DeleteFunc(parent.stack, func(h Handle) bool { return h == s.handle })
		parent.pendingStack = slices.DeleteFunc(parent.pendingStack, func(h Handle) bool { return h == s.handle })
	}
	if b := s.current.Buffer; b != nil {
		s.current.Buffer = nil
		b.unref()
	}
	s.dropCache()

	s.frames = nil
	s.handler = nil
	clear(s.outputs)
	delete(sc.surfaces, s.handle)
}

// Map adds a root surface, such as a toplevel or a popup, to the top of
// the stack of shown surfaces.
func (sc *Scene) Map(s *Surface) {
	if slices.Contains(sc.roots, s.handle) {
		return
	}

	before := sc.begin()
	defer sc.end(before)

	sc.roots = append(sc.roots, s.handle)
}

// Unmap removes a root surface from the stack of shown surfaces.
func (sc *Scene) Unmap(s *Surface) {
	before := sc.begin()
	defer sc.end(before)

	sc.roots = slices.DeleteFunc(sc.roots, func(h Handle) bool { return h == s.handle })
}

// IsMapped reports whether s has been mapped as a root surface.
func (sc *Scene) IsMapped(s *Surface) bool {
	return slices.Contains(sc.roots, s.handle)
}

// Raise moves a mapped root surface to the top of the stack.
func (sc *Scene) Raise(s *Surface) {
	i := slices.Index(sc.roots, s.handle)
	if (i < 0) || (i == len(sc.roots)-1) {
		return
	}

	before := sc.begin()
	defer sc.end(before)

	sc.roots = append(slices.Delete(sc.roots, i, i+1), s.handle)
	sc.restacked = true
	sc.committed = append(sc.committed, s)
}

// SetPosition moves s. The position is relative to its parent if it
// has one.
func (sc *Scene) SetPosition(s *Surface, p image.Point) {
	if s.pos == p {
		return
	}

	before := sc.begin()
	defer sc.end(before)

	s.pos = p
}

// SetParent sets the surface that s is positioned relative to without
// making it a subsurface. It is used by popups.
func (sc *Scene) SetParent(s, parent *Surface) {
	s.parent = 0
	if parent != nil {
		s.parent = parent.handle
	}
}

// SetCursor shows s as the cursor with its top-left corner at p. A nil
// s hides the cursor.
func (sc *Scene) SetCursor(s *Surface, p image.Point) {
	before := sc.begin()
	defer sc.end(before)

	sc.cursor = 0
	if s != nil {
		sc.cursor = s.handle
	}
	sc.cursorPos = p
}

func (sc *Scene) Outputs() []*Output {
	return sc.outputs
}

// AddOutput adds o to the scene and damages all of it.
func (sc *Scene) AddOutput(o *Output) {
	if slices.Contains(sc.outputs, o) {
		return
	}

	before := sc.begin()
	defer sc.end(before)

	sc.outputs = append(sc.outputs, o)
	o.damage = region.Rect(image.Rectangle{Max: o.Bounds().Size()})
	sc.listener.Dirty(o)
}

// RemoveOutput removes o from the scene. Surfaces that were shown on it
// leave it, and any frame plans that it was holding are dropped.
func (sc *Scene) RemoveOutput(o *Output) {
	i := slices.Index(sc.outputs, o)
	if i < 0 {
		return
	}

	before := sc.begin()
	defer sc.end(before)

	sc.outputs = slices.Delete(sc.outputs, i, i+1)
	if o.inflight != nil {
		o.inflight.release()
		o.inflight = nil
	}
	if o.onScreen != nil {
		o.onScreen.release()
		o.onScreen = nil
	}
	o.damage = region.Region{}
}

// globalPos returns the position of s in global coordinates.
func (sc *Scene) globalPos(s *Surface) image.Point {
	p := s.pos
	for parent := s.Parent(); parent != nil; parent = parent.Parent() {
		p = p.Add(parent.pos)
	}
	return p
}

// walk calls yield for every visible surface from bottom to top with
// the surface's global bounds.
func (sc *Scene) walk(yield func(s *Surface, r image.Rectangle)) {
	for _, h := range sc.roots {
		s := sc.surfaces[h]
		if (s == nil) || ((s.parent != 0) && (s.Parent() == nil)) {
			continue
		}
		sc.walkTree(s, sc.globalPos(s), yield)
	}

	if c := sc.Surface(sc.cursor); c != nil {
		sc.walkTree(c, sc.cursorPos, yield)
	}
}

func (sc *Scene) walkTree(s *Surface, origin image.Point, yield func(*Surface, image.Rectangle)) {
	if s.current.Buffer == nil {
		return
	}

	for _, h := range s.stack {
		if h == s.handle {
			yield(s, image.Rectangle{Min: origin, Max: origin.Add(s.current.Size())})
			continue
		}

		child := sc.surfaces[h]
		if (child == nil) || (child.sub == nil) {
			continue
		}
		sc.walkTree(child, origin.Add(child.pos), yield)
	}
}

func (sc *Scene) extents() map[Handle]image.Rectangle {
	m := make(map[Handle]image.Rectangle)
	sc.walk(func(s *Surface, r image.Rectangle) {
		m[s.handle] = r
	})
	return m
}

// begin starts a change to the scene. Changes may nest, and only the
// outermost one is settled.
func (sc *Scene) begin() map[Handle]image.Rectangle {
	sc.depth++
	if sc.depth > 1 {
		return nil
	}
	return sc.extents()
}

func (sc *Scene) end(before map[Handle]image.Rectangle) {
	sc.depth--
	if sc.depth > 0 {
		return
	}
	sc.settle(before)
}

// settle works out what a change did to the scene: damage from moved,
// resized, shown or hidden surfaces, damage from commits, and which
// outputs each surface is now on.
func (sc *Scene) settle(before map[Handle]image.Rectangle) {
	after := sc.extents()

	var damage region.Region
	for h, r := range before {
		if after[h] != r {
			damage = damage.Add(r)
		}
	}
	for h, r := range after {
		if before[h] != r {
			damage = damage.Add(r)
		}
	}

	var framed []*Surface
	for _, s := range sc.committed {
		if sc.restacked {
			damage = damage.Add(before[s.handle]).Add(after[s.handle])
			for _, h := range s.stack {
				damage = damage.Add(before[h]).Add(after[h])
			}
		}

		if r, ok := after[s.handle]; ok {
			damage = damage.Union(s.localDamage().Translate(r.Min))
		}
		s.current.Damage = region.Region{}
		s.current.BufferDamage = region.Region{}

		if len(s.current.Frames) > 0 {
			s.frames = append(s.frames, s.current.Frames...)
			s.current.Frames = nil
			framed = append(framed, s)
		}
	}
	sc.committed = sc.committed[:0]
	sc.restacked = false

	dirty := make(set.Set[*Output])
	for _, o := range sc.outputs {
		prev := o.damage
		o.addDamage(damage)
		if !o.damage.Equal(prev) {
			dirty.Add(o)
		}
	}

	sc.updateOutputs(after)
	for _, s := range framed {
		for o := range s.outputs {
			dirty.Add(o)
		}
	}

	for _, o := range sc.outputs {
		if dirty.Has(o) {
			sc.listener.Dirty(o)
		}
	}
}

func (sc *Scene) updateOutputs(extents map[Handle]image.Rectangle) {
	for _, s := range sc.surfaces {
		r, visible := extents[s.handle]

		for _, o := range sc.outputs {
			on := visible && r.Overlaps(o.Bounds())
			switch {
			case on && !s.outputs.Has(o):
				s.outputs.Add(o)
				sc.listener.Enter(s, o)
			case !on && s.outputs.Has(o):
				s.outputs.Delete(o)
				sc.listener.Leave(s, o)
			}
		}
		for o := range s.outputs {
			if !slices.Contains(sc.outputs, o) {
				s.outputs.Delete(o)
				sc.listener.Leave(s, o)
			}
		}
	}
}

// SurfaceAt finds the topmost surface whose input region contains the
// global point p. It returns the surface and p in its local
// coordinates.
func (sc *Scene) SurfaceAt(p image.Point) (*Surface, image.Point, bool) {
	type hit struct {
		s *Surface
		r image.Rectangle
	}
	var hits []hit
	sc.walk(func(s *Surface, r image.Rectangle) {
		if s.handle == sc.cursor {
			return
		}
		hits = append(hits, hit{s, r})
	})

	for i := len(hits) - 1; i >= 0; i-- {
		h := hits[i]
		if !p.In(h.r) {
			continue
		}
		local := p.Sub(h.r.Min)
		if h.s.current.Input.Contains(local) {
			return h.s, local, true
		}
	}
	return nil, image.Point{}, false
}

// Bounds returns the global bounds of s if it is currently shown.
func (sc *Scene) Bounds(s *Surface) (image.Rectangle, bool) {
	var out image.Rectangle
	var found bool
	sc.walk(func(cur *Surface, r image.Rectangle) {
		if cur == s {
			out, found = r, true
		}
	})
	return out, found
}

// View describes one shown surface.
type View struct {
	Surface *Surface
	Role    Role
	Bounds  image.Rectangle
	Outputs []*Output
}

// Snapshot returns every shown surface from bottom to top.
func (sc *Scene) Snapshot() []View {
	var views []View
	sc.walk(func(s *Surface, r image.Rectangle) {
		views = append(views, View{
			Surface: s,
			Role:    s.role,
			Bounds:  r,
			Outputs: s.Outputs(),
		})
	})
	return views
}

// SurfacesOnOutput returns the shown surfaces on o from bottom to top.
func (sc *Scene) SurfacesOnOutput(o *Output) []*Surface {
	var surfaces []*Surface
	sc.walk(func(s *Surface, r image.Rectangle) {
		if s.outputs.Has(o) {
			surfaces = append(surfaces, s)
		}
	})
	return surfaces
}
