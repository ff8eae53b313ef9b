package scene

import (
	"image"
	"testing"

	"deedles.dev/oxyde/region"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type event struct {
	kind    string
	surface Handle
	output  string
}

type recorder struct {
	events []event
	dirty  map[string]int
}

func (r *recorder) Enter(s *Surface, o *Output) {
	r.events = append(r.events, event{"enter", s.Handle(), o.Name})
}

func (r *recorder) Leave(s *Surface, o *Output) {
	r.events = append(r.events, event{"leave", s.Handle(), o.Name})
}

func (r *recorder) Dirty(o *Output) {
	if r.dirty == nil {
		r.dirty = make(map[string]int)
	}
	r.dirty[o.Name]++
}

func newTestScene(t *testing.T) (*Scene, *recorder, *Output) {
	t.Helper()

	var rec recorder
	sc := New(&rec)
	o := &Output{Name: "HEADLESS-1", Mode: image.Pt(1000, 800), Scale: 1}
	sc.AddOutput(o)
	sc.FramePresented(sc.NextFrame(o), 0)
	return sc, &rec, o
}

func newBuffer(w, h int) *Buffer {
	return NewBuffer(image.Pt(w, h), 0, nil)
}

func mapToplevel(t *testing.T, sc *Scene, b *Buffer) *Surface {
	t.Helper()

	s := sc.NewSurface(nil)
	require.NoError(t, s.SetRole(RoleToplevel, nil))
	require.NoError(t, s.Attach(b, image.Point{}))
	require.NoError(t, s.Commit())
	sc.Map(s)
	return s
}

func TestCommitClearsPending(t *testing.T) {
	sc, _, _ := newTestScene(t)
	s := sc.NewSurface(nil)

	var fired bool
	require.NoError(t, s.Attach(newBuffer(10, 10), image.Point{}))
	s.Damage(image.Rect(0, 0, 10, 10))
	s.Frame(func(uint32) { fired = true })
	s.SetOpaqueRegion(region.XYWH(0, 0, 5, 5))
	require.NoError(t, s.Commit())

	assert.True(t, s.Pending().Damage.Empty())
	assert.Empty(t, s.Pending().Frames)
	assert.Zero(t, s.Pending().Committed)
	assert.NotNil(t, s.Current().Buffer)
	assert.False(t, fired)

	require.NoError(t, s.Commit())
	assert.True(t, s.Current().Opaque.Equal(region.XYWH(0, 0, 5, 5)), "opaque region is sticky")
	assert.NotNil(t, s.Current().Buffer, "buffer is sticky")
	assert.Equal(t, image.Pt(10, 10), s.Current().Size())
}

func TestAttachZeroSize(t *testing.T) {
	sc, _, _ := newTestScene(t)
	s := sc.NewSurface(nil)

	assert.ErrorIs(t, s.Attach(newBuffer(0, 10), image.Point{}), ErrZeroSize)
	assert.NoError(t, s.Attach(nil, image.Point{}))
	assert.ErrorIs(t, s.SetBufferScale(0), ErrBadScale)
	assert.ErrorIs(t, s.SetBufferTransform(8), ErrBadTransform)
}

func TestRoles(t *testing.T) {
	sc, _, _ := newTestScene(t)
	s := sc.NewSurface(nil)

	require.NoError(t, s.SetRole(RoleToplevel, nopHandler{}))
	var rerr RoleError
	assert.ErrorAs(t, s.SetRole(RolePopup, nil), &rerr)
	assert.Equal(t, RoleToplevel, rerr.Have)
	assert.ErrorAs(t, s.SetRole(RoleToplevel, nopHandler{}), &rerr)

	parent := sc.NewSurface(nil)
	assert.ErrorAs(t, s.AddSubsurface(parent), &rerr)

	s.SetHandler(nil)
	assert.NoError(t, s.SetRole(RoleToplevel, nopHandler{}))
	assert.Equal(t, RoleToplevel, s.Role())
}

type nopHandler struct{}

func (nopHandler) Precommit(*Surface) error { return nil }
func (nopHandler) Committed(*Surface)       {}

func TestBufferRelease(t *testing.T) {
	sc, _, o := newTestScene(t)

	var released int
	a := newBuffer(100, 100)
	a.OnRelease = func() { released++ }
	s := mapToplevel(t, sc, a)
	assert.True(t, a.Busy())

	sc.FramePresented(sc.NextFrame(o), 16)
	assert.Zero(t, released)

	require.NoError(t, s.Attach(newBuffer(100, 100), image.Point{}))
	require.NoError(t, s.Commit())
	assert.Zero(t, released, "still on screen")
	assert.Zero(t, a.Refs())

	sc.FramePresented(sc.NextFrame(o), 32)
	assert.Equal(t, 1, released)
	assert.False(t, a.Busy())

	sc.FramePresented(sc.NextFrame(o), 48)
	assert.Equal(t, 1, released)
}

func TestBufferDestroyedWhileBusy(t *testing.T) {
	sc, _, o := newTestScene(t)

	var released, freed int
	a := newBuffer(10, 10)
	a.OnRelease = func() { released++ }
	a.OnFree = func() { freed++ }
	s := mapToplevel(t, sc, a)
	sc.FramePresented(sc.NextFrame(o), 16)

	a.Destroy()
	assert.Zero(t, freed)

	sc.DestroySurface(s)
	assert.Zero(t, freed, "held by the back-end")
	sc.FramePresented(sc.NextFrame(o), 32)
	assert.Equal(t, 1, freed)
	assert.Zero(t, released)
}

func TestFrameCallbacks(t *testing.T) {
	sc, rec, o := newTestScene(t)
	s := mapToplevel(t, sc, newBuffer(10, 10))
	sc.FramePresented(sc.NextFrame(o), 1)
	assert.False(t, sc.NeedsFrame(o))

	var got []uint32
	s.Frame(func(ms uint32) { got = append(got, ms) })
	dirty := rec.dirty[o.Name]
	require.NoError(t, s.Commit())
	assert.Greater(t, rec.dirty[o.Name], dirty)
	assert.True(t, sc.NeedsFrame(o))

	plan := sc.NextFrame(o)
	assert.Empty(t, got)
	sc.FramePresented(plan, 1234)
	assert.Equal(t, []uint32{1234}, got)

	sc.FramePresented(sc.NextFrame(o), 2000)
	assert.Equal(t, []uint32{1234}, got, "callbacks fire once")
}

func TestDamage(t *testing.T) {
	sc, _, o := newTestScene(t)
	s := mapToplevel(t, sc, newBuffer(200, 200))
	sc.SetPosition(s, image.Pt(50, 50))
	sc.FramePresented(sc.NextFrame(o), 0)
	assert.True(t, o.Damage().Empty())

	require.NoError(t, s.SetBufferScale(2))
	require.NoError(t, s.Commit())
	sc.FramePresented(sc.NextFrame(o), 0)

	s.DamageBuffer(image.Rect(0, 0, 20, 20))
	s.Damage(image.Rect(90, 90, 200, 200))
	require.NoError(t, s.Commit())

	want := region.New(
		image.Rect(50, 50, 60, 60),
		image.Rect(140, 140, 150, 150),
	)
	assert.True(t, o.Damage().Equal(want), "%v", o.Damage())

	plan := sc.NextFrame(o)
	assert.True(t, plan.Damage.Equal(want))
	require.Len(t, plan.Elements, 1)
	assert.Equal(t, image.Rect(50, 50, 150, 150), plan.Elements[0].Rect)
	assert.True(t, o.Damage().Empty())
}

func TestEnterLeave(t *testing.T) {
	sc, rec, _ := newTestScene(t)
	right := &Output{Name: "HEADLESS-2", Position: image.Pt(1000, 0), Mode: image.Pt(500, 500), Scale: 1}
	sc.AddOutput(right)

	s := mapToplevel(t, sc, newBuffer(100, 100))
	assert.Equal(t, []event{{"enter", s.Handle(), "HEADLESS-1"}}, rec.events)

	rec.events = nil
	sc.SetPosition(s, image.Pt(950, 0))
	assert.Equal(t, []event{{"enter", s.Handle(), "HEADLESS-2"}}, rec.events)
	assert.Len(t, s.Outputs(), 2)

	rec.events = nil
	sc.RemoveOutput(right)
	assert.Equal(t, []event{{"leave", s.Handle(), "HEADLESS-2"}}, rec.events)

	rec.events = nil
	sc.Unmap(s)
	assert.Equal(t, []event{{"leave", s.Handle(), "HEADLESS-1"}}, rec.events)
}

func TestSyncSubsurface(t *testing.T) {
	sc, _, _ := newTestScene(t)
	parent := mapToplevel(t, sc, newBuffer(100, 100))

	child := sc.NewSurface(nil)
	require.NoError(t, child.AddSubsurface(parent))
	assert.True(t, child.Synchronized())
	child.SetSubsurfacePosition(image.Pt(10, 10))

	cb := newBuffer(20, 20)
	require.NoError(t, child.Attach(cb, image.Point{}))
	require.NoError(t, child.Commit())
	assert.Nil(t, child.Current().Buffer, "cached until the parent commits")
	assert.Len(t, sc.Snapshot(), 1)

	require.NoError(t, parent.Commit())
	assert.Equal(t, cb, child.Current().Buffer)

	views := sc.Snapshot()
	require.Len(t, views, 2)
	assert.Equal(t, parent, views[0].Surface)
	assert.Equal(t, child, views[1].Surface)
	assert.Equal(t, image.Rect(10, 10, 30, 30), views[1].Bounds)

	var rerr RoleError
	assert.ErrorAs(t, child.AddSubsurface(parent), &rerr)
	assert.ErrorIs(t, parent.AddSubsurface(child), ErrBadParent)
}

func TestCachedBufferRelease(t *testing.T) {
	sc, _, o := newTestScene(t)
	parent := mapToplevel(t, sc, newBuffer(100, 100))
	child := sc.NewSurface(nil)
	require.NoError(t, child.AddSubsurface(parent))

	released := make(map[string]int)
	buffer := func(name string) *Buffer {
		b := newBuffer(20, 20)
		b.OnRelease = func() { released[name]++ }
		return b
	}

	a := buffer("a")
	require.NoError(t, child.Attach(a, image.Point{}))
	require.NoError(t, child.Commit())
	assert.True(t, a.Busy(), "busy once cached")

	b := buffer("b")
	require.NoError(t, child.Attach(b, image.Point{}))
	require.NoError(t, child.Commit())
	assert.Equal(t, 1, released["a"], "superseded in the cache")
	assert.False(t, a.Busy())

	require.NoError(t, parent.Commit())
	assert.Equal(t, b, child.Current().Buffer)
	assert.Equal(t, 1, b.Refs(), "cache reference handed to the current state")
	sc.FramePresented(sc.NextFrame(o), 16)
	assert.Zero(t, released["b"])

	require.NoError(t, parent.Commit())
	sc.FramePresented(sc.NextFrame(o), 32)
	assert.Equal(t, map[string]int{"a": 1}, released)

	c := buffer("c")
	require.NoError(t, child.Attach(c, image.Point{}))
	require.NoError(t, child.Commit())
	sc.DestroySurface(child)
	assert.Equal(t, 1, released["c"], "cache dropped with the surface")
	assert.False(t, c.Busy())
}

func TestDesync(t *testing.T) {
	sc, _, _ := newTestScene(t)
	parent := mapToplevel(t, sc, newBuffer(100, 100))
	child := sc.NewSurface(nil)
	require.NoError(t, child.AddSubsurface(parent))
	require.NoError(t, parent.Commit())

	cb := newBuffer(20, 20)
	require.NoError(t, child.Attach(cb, image.Point{}))
	require.NoError(t, child.Commit())
	assert.Nil(t, child.Current().Buffer)

	child.SetSync(false)
	assert.Equal(t, cb, child.Current().Buffer, "cached state applied on desync")

	next := newBuffer(30, 30)
	require.NoError(t, child.Attach(next, image.Point{}))
	require.NoError(t, child.Commit())
	assert.Equal(t, next, child.Current().Buffer)
}

func TestNestedSync(t *testing.T) {
	sc, _, _ := newTestScene(t)
	root := mapToplevel(t, sc, newBuffer(100, 100))
	mid := sc.NewSurface(nil)
	require.NoError(t, mid.AddSubsurface(root))
	mid.SetSync(false)
	leaf := sc.NewSurface(nil)
	require.NoError(t, leaf.AddSubsurface(mid))
	leaf.SetSync(false)

	mid.SetSync(true)
	assert.True(t, leaf.Synchronized(), "synchronized through its parent")

	require.NoError(t, leaf.Attach(newBuffer(5, 5), image.Point{}))
	require.NoError(t, leaf.Commit())
	assert.Nil(t, leaf.Current().Buffer)
}

func TestPlaceAboveBelow(t *testing.T) {
	sc, _, _ := newTestScene(t)
	parent := mapToplevel(t, sc, newBuffer(100, 100))

	a := sc.NewSurface(nil)
	b := sc.NewSurface(nil)
	for _, s := range []*Surface{a, b} {
		require.NoError(t, s.AddSubsurface(parent))
		require.NoError(t, s.Attach(newBuffer(10, 10), image.Point{}))
		require.NoError(t, s.Commit())
	}
	require.NoError(t, parent.Commit())
	assert.Equal(t, []Handle{parent.Handle(), a.Handle(), b.Handle()}, parent.stack)

	require.NoError(t, b.PlaceBelow(parent))
	assert.Equal(t, []Handle{parent.Handle(), a.Handle(), b.Handle()}, parent.stack, "applied on parent commit")
	require.NoError(t, parent.Commit())
	assert.Equal(t, []Handle{b.Handle(), parent.Handle(), a.Handle()}, parent.stack)

	require.NoError(t, b.PlaceAbove(a))
	require.NoError(t, parent.Commit())
	assert.Equal(t, []Handle{parent.Handle(), a.Handle(), b.Handle()}, parent.stack)

	stranger := sc.NewSurface(nil)
	assert.ErrorIs(t, a.PlaceAbove(stranger), ErrBadSibling)
	assert.Equal(t, []Handle{parent.Handle(), a.Handle(), b.Handle()}, parent.pendingStack)
}

func TestSurfaceAt(t *testing.T) {
	sc, _, _ := newTestScene(t)
	s := mapToplevel(t, sc, newBuffer(100, 100))
	s.SetInputRegion(region.XYWH(0, 0, 50, 50))
	require.NoError(t, s.Commit())

	hit, local, ok := sc.SurfaceAt(image.Pt(10, 20))
	require.True(t, ok)
	assert.Equal(t, s, hit)
	assert.Equal(t, image.Pt(10, 20), local)

	_, _, ok = sc.SurfaceAt(image.Pt(60, 60))
	assert.False(t, ok)
}

func TestDestroySurface(t *testing.T) {
	sc, _, o := newTestScene(t)
	parent := mapToplevel(t, sc, newBuffer(100, 100))
	child := sc.NewSurface(nil)
	require.NoError(t, child.AddSubsurface(parent))
	require.NoError(t, child.Attach(newBuffer(10, 10), image.Point{}))
	require.NoError(t, child.Commit())
	require.NoError(t, parent.Commit())
	sc.FramePresented(sc.NextFrame(o), 0)

	sc.DestroySurface(parent)
	assert.Nil(t, sc.Surface(parent.Handle()))
	assert.Nil(t, child.Parent())
	assert.Empty(t, sc.Snapshot())
	assert.True(t, o.Damage().Equal(region.XYWH(0, 0, 100, 100)))
}
