package scene

import (
	"errors"
	"fmt"
	"image"

	"deedles.dev/oxyde/internal/set"
	"deedles.dev/oxyde/region"
	"golang.org/x/exp/slices"
)

// Role is the semantic category of a surface.
type Role int

const (
	RoleNone Role = iota
	RoleToplevel
	RolePopup
	RoleSubsurface
	RoleCursor
)

func (r Role) String() string {
	switch r {
	case RoleNone:
		return "none"
	case RoleToplevel:
		return "xdg_toplevel"
	case RolePopup:
		return "xdg_popup"
	case RoleSubsurface:
		return "wl_subsurface"
	case RoleCursor:
		return "cursor"
	default:
		return fmt.Sprintf("Role(%d)", int(r))
	}
}

// RoleError is returned when a surface is given a role that conflicts
// with the role that it already has.
type RoleError struct {
	Surface Handle
	Have    Role
	Want    Role
}

func (err RoleError) Error() string {
	return fmt.Sprintf("surface %v already has role %v, can't become %v", err.Surface, err.Have, err.Want)
}

var (
	ErrBadParent    = errors.New("parent surface is invalid")
	ErrBadSibling   = errors.New("surface is not a sibling or the parent")
	ErrZeroSize     = errors.New("buffer has zero size")
	ErrBadScale     = errors.New("buffer scale must be positive")
	ErrBadTransform = errors.New("invalid buffer transform")
)

// CommitHandler receives commits of a surface on behalf of its role.
type CommitHandler interface {
	// Precommit may reject the pending state before it is applied or
	// cached.
	Precommit(s *Surface) error

	// Committed is called after new state has become current.
	Committed(s *Surface)
}

type subsurface struct {
	pos, pendingPos image.Point
	posSet          bool
	sync            bool
}

// Surface is a client's rectangular drawing area and its
// double-buffered state.
type Surface struct {
	// Owner is arbitrary data associated with the surface by its
	// creator.
	Owner any

	scene  *Scene
	handle Handle

	pending  State
	current  State
	cached   State
	hasCache bool

	role    Role
	handler CommitHandler

	parent       Handle
	pos          image.Point
	sub          *subsurface
	stack        []Handle
	pendingStack []Handle

	frames  []FrameCallback
	outputs set.Set[*Output]
}

func (s *Surface) Handle() Handle {
	return s.handle
}

func (s *Surface) Scene() *Scene {
	return s.scene
}

// Pending returns the state that will be applied by the next commit.
func (s *Surface) Pending() *State {
	return &s.pending
}

// Current returns the state that is currently in effect.
func (s *Surface) Current() *State {
	return &s.current
}

func (s *Surface) Role() Role {
	return s.role
}

// SetRole gives s a role. A surface may only ever have one role, but
// it may be given the same role again once the previous role object has
// been destroyed and the handler cleared.
func (s *Surface) SetRole(r Role, h CommitHandler) error {
	if (s.role != RoleNone) && ((s.role != r) || (s.handler != nil)) {
		return RoleError{Surface: s.handle, Have: s.role, Want: r}
	}

	s.role = r
	s.handler = h
	return nil
}

// SetHandler replaces the surface's commit handler without changing
// its role. It is used to detach a role object that has been
// destroyed.
func (s *Surface) SetHandler(h CommitHandler) {
	s.handler = h
}

func (s *Surface) Handler() CommitHandler {
	return s.handler
}

// Parent returns the surface that s is positioned relative to, if any.
func (s *Surface) Parent() *Surface {
	return s.scene.Surface(s.parent)
}

// Position returns the position of s relative to its parent, or in
// global coordinates if it has none.
func (s *Surface) Position() image.Point {
	return s.pos
}

// Outputs returns the outputs that s is currently shown on.
func (s *Surface) Outputs() []*Output {
	return s.outputs.Slice()
}

func (s *Surface) Attach(b *Buffer, offset image.Point) error {
	if (b != nil) && ((b.Size.X <= 0) || (b.Size.Y <= 0)) {
		return ErrZeroSize
	}

	s.pending.Buffer = b
	s.pending.Committed |= FieldBuffer
	s.SetOffset(offset)
	return nil
}

func (s *Surface) SetOffset(offset image.Point) {
	if offset == (image.Point{}) {
		return
	}
	s.pending.Offset = s.pending.Offset.Add(offset)
	s.pending.Committed |= FieldOffset
}

func (s *Surface) Damage(r image.Rectangle) {
	s.pending.Damage = s.pending.Damage.Add(r)
}

func (s *Surface) DamageBuffer(r image.Rectangle) {
	s.pending.BufferDamage = s.pending.BufferDamage.Add(r)
}

func (s *Surface) Frame(cb FrameCallback) {
	s.pending.Frames = append(s.pending.Frames, cb)
}

func (s *Surface) SetOpaqueRegion(r region.Region) {
	s.pending.Opaque = r
	s.pending.Committed |= FieldOpaque
}

func (s *Surface) SetInputRegion(r region.Region) {
	s.pending.Input = r
	s.pending.Committed |= FieldInput
}

func (s *Surface) SetBufferTransform(t Transform) error {
	if !t.Valid() {
		return ErrBadTransform
	}
	s.pending.Transform = t
	s.pending.Committed |= FieldTransform
	return nil
}

func (s *Surface) SetBufferScale(scale int) error {
	if scale <= 0 {
		return ErrBadScale
	}
	s.pending.Scale = scale
	s.pending.Committed |= FieldScale
	return nil
}

// Synchronized reports whether s is a subsurface whose commits are
// held until its parent commits, either because it is in sync mode or
// because an ancestor is.
func (s *Surface) Synchronized() bool {
	for cur := s; cur.sub != nil; {
		if cur.sub.sync {
			return true
		}
		cur = cur.Parent()
		if cur == nil {
			return false
		}
	}
	return false
}

// Commit applies the pending state. If s is synchronized, the pending
// state is cached instead and applied when the parent next commits.
func (s *Surface) Commit() error {
	if s.handler != nil {
		err := s.handler.Precommit(s)
		if err != nil {
			return err
		}
	}

	if s.Synchronized() {
		s.cache()
		return nil
	}

	sc := s.scene
	before := sc.begin()
	s.apply(&s.pending)
	sc.end(before)
	return nil
}

func (s *Surface) apply(src *State) {
	prev := s.current.Buffer

	s.current.Offset = image.Point{}
	s.current.Committed = 0
	s.current.merge(src)

	if next := s.current.Buffer; next != prev {
		if next != nil {
			next.ref()
		}
		if prev != nil {
			prev.unref()
		}
	}

	if !slices.Equal(s.stack, s.pendingStack) {
		s.stack = slices.Clone(s.pendingStack)
		s.scene.restacked = true
	}

	for _, h := range s.stack {
		child := s.scene.Surface(h)
		if (child == nil) || (child == s) || (child.sub == nil) {
			continue
		}
		if child.sub.posSet {
			child.sub.pos = child.sub.pendingPos
			child.pos = child.sub.pos
			child.sub.posSet = false
		}
		if child.hasCache && child.Synchronized() {
			child.applyCache()
		}
	}

	s.scene.committed = append(s.scene.committed, s)
	if s.handler != nil {
		s.handler.Committed(s)
	}
}

// cachedBuffer returns the buffer that applying the cached state would
// attach. The cache holds a reference to it, so a buffer stays busy from
// the commit that caches it.
func (s *Surface) cachedBuffer() *Buffer {
	if !s.hasCache || !s.cached.Has(FieldBuffer) {
		return nil
	}
	return s.cached.Buffer
}

func (s *Surface) cache() {
	prev := s.cachedBuffer()
	s.cached.merge(&s.pending)
	s.hasCache = true

	if next := s.cachedBuffer(); next != prev {
		if next != nil {
			next.ref()
		}
		if prev != nil {
			prev.unref()
		}
	}
}

func (s *Surface) applyCache() {
	held := s.cachedBuffer()
	s.hasCache = false
	s.apply(&s.cached)
	if held != nil {
		held.unref()
	}
}

// dropCache discards cached state without applying it.
func (s *Surface) dropCache() {
	held := s.cachedBuffer()
	s.hasCache = false

	var discard State
	discard.merge(&s.cached)
	if held != nil {
		held.unref()
	}
}

// localDamage returns the damage of the most recent commit in
// surface-local coordinates.
func (s *Surface) localDamage() region.Region {
	d := s.current.Damage
	for _, r := range s.current.BufferDamage.Rects() {
		d = d.Add(s.current.bufferToSurface(r))
	}
	return d.Clip(image.Rectangle{Max: s.current.Size()})
}

// AddSubsurface makes s a subsurface of parent. s is placed on top of
// its new siblings once parent commits.
func (s *Surface) AddSubsurface(parent *Surface) error {
	if (parent == s) || (parent == nil) {
		return ErrBadParent
	}
	for anc := parent; anc != nil; anc = anc.Parent() {
		if anc == s {
			return ErrBadParent
		}
	}

	if s.sub != nil {
		return RoleError{Surface: s.handle, Have: RoleSubsurface, Want: RoleSubsurface}
	}
	err := s.SetRole(RoleSubsurface, nil)
	if err != nil {
		return err
	}

	s.parent = parent.handle
	s.sub = &subsurface{sync: true}
	s.pos = image.Point{}
	parent.pendingStack = append(parent.pendingStack, s.handle)
	return nil
}

// RemoveSubsurface detaches s from its parent immediately. Its role is
// kept.
func (s *Surface) RemoveSubsurface() {
	sc := s.scene
	before := sc.begin()
	defer sc.end(before)

	if parent := s.Parent(); parent != nil {
		parent.stack = slices.DeleteFunc(parent.stack, func(h Handle) bool { return h == s.handle })
		parent.pendingStack = slices.DeleteFunc(parent.pendingStack, func(h Handle) bool { return h == s.handle })
	}
	s.parent = 0
	s.sub = nil
	s.handler = nil
	s.dropCache()
}

// IsSubsurface reports whether s is currently attached to a parent as
// a subsurface.
func (s *Surface) IsSubsurface() bool {
	return s.sub != nil
}

func (s *Surface) SetSubsurfacePosition(p image.Point) {
	if s.sub == nil {
		return
	}
	s.sub.pendingPos = p
	s.sub.posSet = true
}

func (s *Surface) PlaceAbove(sibling *Surface) error {
	return s.place(sibling, 1)
}

func (s *Surface) PlaceBelow(sibling *Surface) error {
	return s.place(sibling, 0)
}

func (s *Surface) place(sibling *Surface, delta int) error {
	parent := s.Parent()
	if (parent == nil) || (sibling == nil) || (sibling == s) {
		return ErrBadSibling
	}
	if (sibling != parent) && (sibling.parent != parent.handle || sibling.sub == nil) {
		return ErrBadSibling
	}

	stack := slices.DeleteFunc(slices.Clone(parent.pendingStack), func(h Handle) bool { return h == s.handle })
	i := slices.Index(stack, sibling.handle)
	if i < 0 {
		return ErrBadSibling
	}
	parent.pendingStack = slices.Insert(stack, i+delta, s.handle)
	return nil
}

// SetSync switches s between synchronized and desynchronized mode.
// Switching to desynchronized applies any cached state if s is no
// longer synchronized through an ancestor.
func (s *Surface) SetSync(sync bool) {
	if s.sub == nil {
		return
	}

	s.sub.sync = sync
	if !sync && s.hasCache && !s.Synchronized() {
		sc := s.scene
		before := sc.begin()
		s.applyCache()
		sc.end(before)
	}
}
