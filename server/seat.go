package server

import (
	"errors"
	"fmt"
	"image"
	"math"
	"os"
	"sync"

	"deedles.dev/oxyde/internal/bin"
	"deedles.dev/oxyde/internal/set"
	"deedles.dev/oxyde/pointer"
	"deedles.dev/oxyde/protocol"
	"deedles.dev/oxyde/scene"
	"deedles.dev/oxyde/shm"
	"deedles.dev/oxyde/wire"
	"golang.org/x/exp/slices"
)

var devNull = sync.OnceValues(func() (*os.File, error) {
	return os.Open(os.DevNull)
})

// ErrGrabbed is returned when keyboard focus can't be changed because
// the keyboard is grabbed.
var ErrGrabbed = errors.New("input is grabbed")

type seat struct {
	server *Server
	name   string
	caps   uint32

	keymap       *os.File
	keymapFormat uint32
	keymapSize   uint32

	pointers  []*Object
	keyboards []*Object
	touches   []*Object

	x, y         float64
	pointerFocus *surface
	pointerGrab  *surface
	buttons      pointer.Buttons
	cursor       *surface
	hotspot      image.Point

	keyboardFocus *surface
	keyboardGrab  *surface
	keys          []uint32
	mods          [4]uint32

	touchFocus map[int32]*surface
	touched    set.Set[*Client]

	popups      []*xdgPopup
	popupReturn *surface
}

func newSeat(s *Server) (*seat, error) {
	st := seat{
		server:     s,
		name:       s.opts.Seat,
		caps:       protocol.SeatCapabilityPointer | protocol.SeatCapabilityKeyboard | protocol.SeatCapabilityTouch,
		touchFocus: make(map[int32]*surface),
		touched:    make(set.Set[*Client]),
	}

	if s.opts.Keymap == "" {
		f, err := devNull()
		if err != nil {
			return nil, fmt.Errorf("open %v: %w", os.DevNull, err)
		}
		st.keymap = f
		st.keymapFormat = protocol.KeyboardKeymapFormatNoKeymap
		return &st, nil
	}

	f, size, err := loadKeymap(s.opts.Keymap)
	if err != nil {
		return nil, err
	}
	st.keymap = f
	st.keymapSize = size
	st.keymapFormat = protocol.KeyboardKeymapFormatXkbV1
	return &st, nil
}

// loadKeymap copies an XKB keymap into a sealed memory file that can
// be shared with clients.
func loadKeymap(path string) (*os.File, uint32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, fmt.Errorf("read keymap: %w", err)
	}

	size := len(data) + 1
	f, err := shm.Create(size)
	if err != nil {
		return nil, 0, fmt.Errorf("create keymap file: %w", err)
	}
	_, err = f.WriteAt(data, 0)
	if err != nil {
		f.Close()
		return nil, 0, fmt.Errorf("write keymap: %w", err)
	}
	return f, uint32(size), nil
}

func (st *seat) close() {
	if st.keymapFormat != protocol.KeyboardKeymapFormatNoKeymap {
		st.keymap.Close()
	}
}

func (s *Server) implementSeat() {
	s.implement(protocol.SeatInterface, map[uint16]HandlerFunc{
		protocol.SeatGetPointer:  s.getPointer,
		protocol.SeatGetKeyboard: s.getKeyboard,
		protocol.SeatGetTouch:    s.getTouch,
		protocol.SeatRelease:     noop,
	})
	s.implement(protocol.PointerInterface, map[uint16]HandlerFunc{
		protocol.PointerSetCursor: s.setCursor,
		protocol.PointerRelease:   noop,
	})
	s.implement(protocol.KeyboardInterface, map[uint16]HandlerFunc{
		protocol.KeyboardRelease: noop,
	})
	s.implement(protocol.TouchInterface, map[uint16]HandlerFunc{
		protocol.TouchRelease: noop,
	})
}

func (st *seat) bind(c *Client, obj *Object) error {
	obj.Data = st
	obj.Send(protocol.SeatEventCapabilities, st.caps)
	obj.Send(protocol.SeatEventName, st.name)
	return nil
}

func track(list *[]*Object, obj *Object) {
	*list = append(*list, obj)
	obj.OnDestroy(func() {
		*list = slices.DeleteFunc(*list, func(o *Object) bool { return o == obj })
	})
}

// each calls f for each object in objs that belongs to c.
func each(objs []*Object, c *Client, f func(obj *Object)) {
	if c == nil {
		return
	}
	for _, obj := range slices.Clone(objs) {
		if (obj.client == c) && !obj.Destroyed() {
			f(obj)
		}
	}
}

func (s *Server) getPointer(c *Client, obj *Object, args wire.Args) error {
	st := s.seat
	pobj, err := c.NewObject(args.NewID(0).ID, protocol.PointerInterface, obj.Version, st)
	if err != nil {
		return err
	}
	track(&st.pointers, pobj)

	if focus := st.pointerFocus; (focus != nil) && (focus.obj.client == c) {
		lx, ly, _ := st.local(focus)
		pobj.Send(protocol.PointerEventEnter, s.NextSerial(), wire.ObjectID(focus.obj.ID), wire.FixedFloat(lx), wire.FixedFloat(ly))
		pobj.Send(protocol.PointerEventFrame)
	}
	return nil
}

func (s *Server) getKeyboard(c *Client, obj *Object, args wire.Args) error {
	st := s.seat
	kobj, err := c.NewObject(args.NewID(0).ID, protocol.KeyboardInterface, obj.Version, st)
	if err != nil {
		return err
	}
	track(&st.keyboards, kobj)

	kobj.Send(protocol.KeyboardEventKeymap, st.keymapFormat, st.keymap, st.keymapSize)
	kobj.Send(protocol.KeyboardEventRepeatInfo, s.opts.RepeatRate, s.opts.RepeatDelay)

	if focus := st.keyboardFocus; (focus != nil) && (focus.obj.client == c) {
		serial := s.NextSerial()
		kobj.Send(protocol.KeyboardEventEnter, serial, wire.ObjectID(focus.obj.ID), st.keyArray())
		kobj.Send(protocol.KeyboardEventModifiers, serial, st.mods[0], st.mods[1], st.mods[2], st.mods[3])
	}
	return nil
}

func (s *Server) getTouch(c *Client, obj *Object, args wire.Args) error {
	st := s.seat
	tobj, err := c.NewObject(args.NewID(0).ID, protocol.TouchInterface, obj.Version, st)
	if err != nil {
		return err
	}
	track(&st.touches, tobj)
	return nil
}

func (s *Server) setCursor(c *Client, obj *Object, args wire.Args) error {
	st := s.seat
	if (st.pointerFocus == nil) || (st.pointerFocus.obj.client != c) {
		return nil
	}

	surf, ok := argData[*surface](c, args, 1)
	if !ok {
		st.cursor = nil
		st.updateCursor()
		return nil
	}

	err := surf.scene.SetRole(scene.RoleCursor, nil)
	if err != nil {
		var rerr scene.RoleError
		if errors.As(err, &rerr) {
			return protoErr(obj, protocol.PointerErrorRole, "%v", err)
		}
		return err
	}

	st.cursor = surf
	st.hotspot = image.Pt(int(args.Int(2)), int(args.Int(3)))
	st.updateCursor()
	return nil
}

func (st *seat) updateCursor() {
	sc := st.server.scene
	if (st.cursor == nil) || st.cursor.obj.Destroyed() {
		sc.SetCursor(nil, image.Point{})
		return
	}

	p := image.Pt(int(math.Floor(st.x)), int(math.Floor(st.y)))
	sc.SetCursor(st.cursor.scene, p.Sub(st.hotspot))
}

// surfaceGone forgets a surface that is being destroyed.
func (st *seat) surfaceGone(surf *surface) {
	if st.pointerFocus == surf {
		st.pointerFocus = nil
		st.buttons.Reset()
	}
	if st.pointerGrab == surf {
		st.pointerGrab = nil
	}
	if st.cursor == surf {
		st.cursor = nil
	}
	if st.keyboardGrab == surf {
		st.keyboardGrab = nil
	}
	if st.keyboardFocus == surf {
		st.keyboardFocus = nil
	}
	if st.popupReturn == surf {
		st.popupReturn = nil
	}
	for id, s := range st.touchFocus {
		if s == surf {
			delete(st.touchFocus, id)
		}
	}
}

// local converts the pointer position into the coordinate space of
// surf.
func (st *seat) local(surf *surface) (x, y float64, ok bool) {
	r, ok := st.server.scene.Bounds(surf.scene)
	if !ok {
		return 0, 0, false
	}
	return st.x - float64(r.Min.X), st.y - float64(r.Min.Y), true
}

func (st *seat) popupClient() *Client {
	if len(st.popups) == 0 {
		return nil
	}
	return st.popups[0].xs.obj.client
}

// pointerTarget works out which surface should have pointer focus.
func (st *seat) pointerTarget() *surface {
	if st.pointerGrab != nil {
		return st.pointerGrab
	}
	if st.buttons.Any() && (st.pointerFocus != nil) {
		return st.pointerFocus
	}

	p := image.Pt(int(math.Floor(st.x)), int(math.Floor(st.y)))
	ss, _, ok := st.server.scene.SurfaceAt(p)
	if !ok {
		return nil
	}
	surf, ok := ss.Owner.(*surface)
	if !ok {
		return nil
	}
	if c := st.popupClient(); (c != nil) && (surf.obj.client != c) {
		return nil
	}
	return surf
}

func (st *seat) pointerMotion(x, y float64) {
	st.x, st.y = x, y
	target := st.pointerTarget()
	if target != st.pointerFocus {
		st.setPointerFocus(target)
		st.updateCursor()
		return
	}
	st.updateCursor()

	if target == nil {
		return
	}
	lx, ly, ok := st.local(target)
	if !ok {
		return
	}
	now := st.server.now()
	each(st.pointers, target.obj.client, func(obj *Object) {
		obj.Send(protocol.PointerEventMotion, now, wire.FixedFloat(lx), wire.FixedFloat(ly))
		obj.Send(protocol.PointerEventFrame)
	})
}

func (st *seat) setPointerFocus(surf *surface) {
	if old := st.pointerFocus; old != nil {
		serial := st.server.NextSerial()
		each(st.pointers, old.obj.client, func(obj *Object) {
			obj.Send(protocol.PointerEventLeave, serial, wire.ObjectID(old.obj.ID))
			obj.Send(protocol.PointerEventFrame)
		})
		st.cursor = nil
	}

	st.pointerFocus = surf
	if surf == nil {
		return
	}

	lx, ly, _ := st.local(surf)
	serial := st.server.NextSerial()
	each(st.pointers, surf.obj.client, func(obj *Object) {
		obj.Send(protocol.PointerEventEnter, serial, wire.ObjectID(surf.obj.ID), wire.FixedFloat(lx), wire.FixedFloat(ly))
		obj.Send(protocol.PointerEventFrame)
	})
}

func (st *seat) pointerButton(b pointer.Button, pressed bool) {
	state := protocol.PointerButtonStateReleased
	if pressed {
		if !st.buttons.Press(b) {
			return
		}
		state = protocol.PointerButtonStatePressed

		if c := st.popupClient(); c != nil {
			if (st.pointerFocus == nil) || (st.pointerFocus.obj.client != c) {
				st.dismissPopups()
			}
		}
	} else if !st.buttons.Release(b) {
		return
	}

	if focus := st.pointerFocus; focus != nil {
		serial, now := st.server.NextSerial(), st.server.now()
		each(st.pointers, focus.obj.client, func(obj *Object) {
			obj.Send(protocol.PointerEventButton, serial, now, uint32(b), state)
			obj.Send(protocol.PointerEventFrame)
		})
	}

	if !st.buttons.Any() {
		if target := st.pointerTarget(); target != st.pointerFocus {
			st.setPointerFocus(target)
			st.updateCursor()
		}
	}
}

func (st *seat) pointerAxis(axis pointer.Axis, value float64) {
	focus := st.pointerFocus
	if focus == nil {
		return
	}

	now := st.server.now()
	each(st.pointers, focus.obj.client, func(obj *Object) {
		obj.Send(protocol.PointerEventAxis, now, uint32(axis), wire.FixedFloat(value))
		obj.Send(protocol.PointerEventFrame)
	})
}

func (st *seat) keyArray() []byte {
	buf := make([]byte, 0, 4*len(st.keys))
	for _, k := range st.keys {
		buf = bin.Append(buf, k)
	}
	return buf
}

// setKeyboardFocus moves keyboard focus, updating the activated state
// of toplevels along the way.
func (st *seat) setKeyboardFocus(surf *surface) {
	old := st.keyboardFocus
	if old == surf {
		return
	}

	if old != nil {
		serial := st.server.NextSerial()
		each(st.keyboards, old.obj.client, func(obj *Object) {
			obj.Send(protocol.KeyboardEventLeave, serial, wire.ObjectID(old.obj.ID))
		})
		if tl := old.toplevel(); tl != nil {
			tl.setActivated(false)
		}
	}

	st.keyboardFocus = surf
	if surf == nil {
		return
	}

	serial := st.server.NextSerial()
	keys := st.keyArray()
	each(st.keyboards, surf.obj.client, func(obj *Object) {
		obj.Send(protocol.KeyboardEventEnter, serial, wire.ObjectID(surf.obj.ID), keys)
		obj.Send(protocol.KeyboardEventModifiers, serial, st.mods[0], st.mods[1], st.mods[2], st.mods[3])
	})
	if tl := surf.toplevel(); tl != nil {
		tl.setActivated(true)
	}
}

func (st *seat) focus(surf *surface) error {
	if (st.keyboardGrab != nil) && (surf != st.keyboardGrab) {
		return ErrGrabbed
	}
	if len(st.popups) > 0 {
		st.popupReturn = surf
		return nil
	}
	st.setKeyboardFocus(surf)
	return nil
}

func (st *seat) key(key uint32, pressed bool) {
	state := protocol.KeyboardKeyStateReleased
	if pressed {
		if slices.Contains(st.keys, key) {
			return
		}
		st.keys = append(st.keys, key)
		state = protocol.KeyboardKeyStatePressed
	} else {
		i := slices.Index(st.keys, key)
		if i < 0 {
			return
		}
		st.keys = slices.Delete(st.keys, i, i+1)
	}

	focus := st.keyboardFocus
	if focus == nil {
		return
	}
	serial, now := st.server.NextSerial(), st.server.now()
	each(st.keyboards, focus.obj.client, func(obj *Object) {
		obj.Send(protocol.KeyboardEventKey, serial, now, key, state)
	})
}

func (st *seat) modifiers(depressed, latched, locked, group uint32) {
	st.mods = [4]uint32{depressed, latched, locked, group}

	focus := st.keyboardFocus
	if focus == nil {
		return
	}
	serial := st.server.NextSerial()
	each(st.keyboards, focus.obj.client, func(obj *Object) {
		obj.Send(protocol.KeyboardEventModifiers, serial, depressed, latched, locked, group)
	})
}

func (st *seat) touchDown(id int32, x, y float64) {
	ss, _, ok := st.server.scene.SurfaceAt(image.Pt(int(math.Floor(x)), int(math.Floor(y))))
	if !ok {
		return
	}
	surf := ss.Owner.(*surface)
	r, _ := st.server.scene.Bounds(ss)
	st.touchFocus[id] = surf
	st.touched.Add(surf.obj.client)

	serial, now := st.server.NextSerial(), st.server.now()
	lx, ly := wire.FixedFloat(x-float64(r.Min.X)), wire.FixedFloat(y-float64(r.Min.Y))
	each(st.touches, surf.obj.client, func(obj *Object) {
		obj.Send(protocol.TouchEventDown, serial, now, wire.ObjectID(surf.obj.ID), id, lx, ly)
	})
}

func (st *seat) touchMotion(id int32, x, y float64) {
	surf := st.touchFocus[id]
	if surf == nil {
		return
	}
	r, ok := st.server.scene.Bounds(surf.scene)
	if !ok {
		return
	}
	st.touched.Add(surf.obj.client)

	now := st.server.now()
	lx, ly := wire.FixedFloat(x-float64(r.Min.X)), wire.FixedFloat(y-float64(r.Min.Y))
	each(st.touches, surf.obj.client, func(obj *Object) {
		obj.Send(protocol.TouchEventMotion, now, id, lx, ly)
	})
}

func (st *seat) touchUp(id int32) {
	surf := st.touchFocus[id]
	if surf == nil {
		return
	}
	delete(st.touchFocus, id)
	st.touched.Add(surf.obj.client)

	serial, now := st.server.NextSerial(), st.server.now()
	each(st.touches, surf.obj.client, func(obj *Object) {
		obj.Send(protocol.TouchEventUp, serial, now, id)
	})
}

func (st *seat) touchFrame() {
	for c := range st.touched {
		each(st.touches, c, func(obj *Object) {
			obj.Send(protocol.TouchEventFrame)
		})
	}
	clear(st.touched)
}

func (st *seat) touchCancel() {
	clients := make(set.Set[*Client])
	for _, surf := range st.touchFocus {
		clients.Add(surf.obj.client)
	}
	for c := range clients {
		each(st.touches, c, func(obj *Object) {
			obj.Send(protocol.TouchEventCancel)
		})
	}
	clear(st.touchFocus)
	clear(st.touched)
}

// pushPopup adds a grabbing popup to the top of the grab stack and
// gives it keyboard focus.
func (st *seat) pushPopup(p *xdgPopup) {
	if len(st.popups) == 0 {
		st.popupReturn = st.keyboardFocus
	}
	st.popups = append(st.popups, p)
	st.setKeyboardFocus(p.xs.surf)
}

func (st *seat) topPopup() *xdgPopup {
	if len(st.popups) == 0 {
		return nil
	}
	return st.popups[len(st.popups)-1]
}

// removePopup removes p from the grab stack along with every popup
// above it.
func (st *seat) removePopup(p *xdgPopup) {
	i := slices.Index(st.popups, p)
	if i < 0 {
		return
	}
	st.popups = st.popups[:i]
	st.restoreFocus()
}

func (st *seat) restoreFocus() {
	if top := st.topPopup(); top != nil {
		st.setKeyboardFocus(top.xs.surf)
		return
	}

	ret := st.popupReturn
	st.popupReturn = nil
	if (ret != nil) && ret.obj.Destroyed() {
		ret = nil
	}
	st.setKeyboardFocus(ret)
}

// dismissPopups closes every grabbing popup, topmost first.
func (st *seat) dismissPopups() {
	popups := st.popups
	st.popups = nil
	for i := len(popups) - 1; i >= 0; i-- {
		popups[i].done()
	}
	st.restoreFocus()
}

// PointerMotion moves the pointer to a position in the global
// compositor space. Like the other input methods, it may be called
// from any goroutine.
func (s *Server) PointerMotion(x, y float64) {
	s.post(func() error {
		s.seat.pointerMotion(x, y)
		return nil
	})
}

func (s *Server) PointerButton(b pointer.Button, pressed bool) {
	s.post(func() error {
		s.seat.pointerButton(b, pressed)
		return nil
	})
}

func (s *Server) PointerAxis(axis pointer.Axis, value float64) {
	s.post(func() error {
		s.seat.pointerAxis(axis, value)
		return nil
	})
}

// Key reports a key press or release. key is a Linux input event code.
func (s *Server) Key(key uint32, pressed bool) {
	s.post(func() error {
		s.seat.key(key, pressed)
		return nil
	})
}

func (s *Server) Modifiers(depressed, latched, locked, group uint32) {
	s.post(func() error {
		s.seat.modifiers(depressed, latched, locked, group)
		return nil
	})
}

func (s *Server) TouchDown(id int32, x, y float64) {
	s.post(func() error {
		s.seat.touchDown(id, x, y)
		return nil
	})
}

func (s *Server) TouchMotion(id int32, x, y float64) {
	s.post(func() error {
		s.seat.touchMotion(id, x, y)
		return nil
	})
}

func (s *Server) TouchUp(id int32) {
	s.post(func() error {
		s.seat.touchUp(id)
		return nil
	})
}

func (s *Server) TouchFrame() {
	s.post(func() error {
		s.seat.touchFrame()
		return nil
	})
}

func (s *Server) TouchCancel() {
	s.post(func() error {
		s.seat.touchCancel()
		return nil
	})
}
