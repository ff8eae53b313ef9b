package server

import (
	"errors"
	"image"
	"time"

	"deedles.dev/oxyde/internal/bin"
	"deedles.dev/oxyde/internal/set"
	"deedles.dev/oxyde/protocol"
	"deedles.dev/oxyde/scene"
	"deedles.dev/oxyde/wire"
	"golang.org/x/exp/slices"
)

type wmBase struct {
	obj      *Object
	surfaces set.Set[*xdgSurface]

	ping  uint32
	timer *time.Timer
}

// xdgConfigure is a configure sequence that was sent to the client.
type xdgConfigure struct {
	serial uint32
	size   image.Point
	states []uint32
}

// xdgSurface is the data of an xdg_surface and the commit handler of
// its wl_surface.
type xdgSurface struct {
	server *Server
	obj    *Object
	wm     *wmBase
	surf   *surface

	toplevel *xdgToplevel
	popup    *xdgPopup
	popups   []*xdgPopup

	// initialized is set once the initial commit has been answered
	// with a configure. configured is set once the client has acked
	// one.
	constructed bool
	initialized bool
	configured  bool
	configs     []xdgConfigure
	acked       *xdgConfigure
	lastAck     uint32
	mapped      bool

	geometry        image.Rectangle
	pendingGeometry image.Rectangle
	geometrySet     bool
}

type xdgToplevel struct {
	obj *Object
	xs  *xdgSurface

	title  string
	appID  string
	parent *xdgToplevel
	kids   set.Set[*xdgToplevel]

	min, max               image.Point
	pendingMin, pendingMax image.Point

	// size and states are what the compositor wants. curSize and
	// curStates are what the client has acked and committed.
	size      image.Point
	states    []uint32
	curSize   image.Point
	curStates []uint32

	extrasSent bool
	placed     bool

	handles []*foreignHandle
}

type xdgPopup struct {
	obj    *Object
	xs     *xdgSurface
	parent *xdgSurface

	positioner scene.Positioner
	rect       image.Rectangle

	grab      bool
	dismissed bool
}

var validResizeEdges = []uint32{
	protocol.XdgToplevelResizeEdgeNone,
	protocol.XdgToplevelResizeEdgeTop,
	protocol.XdgToplevelResizeEdgeBottom,
	protocol.XdgToplevelResizeEdgeLeft,
	protocol.XdgToplevelResizeEdgeTopLeft,
	protocol.XdgToplevelResizeEdgeBottomLeft,
	protocol.XdgToplevelResizeEdgeRight,
	protocol.XdgToplevelResizeEdgeTopRight,
	protocol.XdgToplevelResizeEdgeBottomRight,
}

var wmCapabilities = []uint32{
	protocol.XdgToplevelWmCapabilitiesWindowMenu,
	protocol.XdgToplevelWmCapabilitiesMaximize,
	protocol.XdgToplevelWmCapabilitiesFullscreen,
	protocol.XdgToplevelWmCapabilitiesMinimize,
}

func (s *Server) implementXdg() {
	s.implement(protocol.XdgWmBaseInterface, map[uint16]HandlerFunc{
		protocol.XdgWmBaseDestroy:          wmBaseDestroy,
		protocol.XdgWmBaseCreatePositioner: createPositioner,
		protocol.XdgWmBaseGetXdgSurface:    s.getXdgSurface,
		protocol.XdgWmBasePong:             wmBasePong,
	})

	s.implement(protocol.XdgPositionerInterface, map[uint16]HandlerFunc{
		protocol.XdgPositionerDestroy:                 noop,
		protocol.XdgPositionerSetSize:                 positionerSetSize,
		protocol.XdgPositionerSetAnchorRect:           positionerSetAnchorRect,
		protocol.XdgPositionerSetAnchor:               positionerSetAnchor,
		protocol.XdgPositionerSetGravity:              positionerSetGravity,
		protocol.XdgPositionerSetConstraintAdjustment: positionerSetConstraintAdjustment,
		protocol.XdgPositionerSetOffset:               positionerSetOffset,
		protocol.XdgPositionerSetReactive:             positionerSetReactive,
		protocol.XdgPositionerSetParentSize:           positionerSetParentSize,
		protocol.XdgPositionerSetParentConfigure:      positionerSetParentConfigure,
	})

	s.implement(protocol.XdgSurfaceInterface, map[uint16]HandlerFunc{
		protocol.XdgSurfaceDestroy:           xdgSurfaceDestroy,
		protocol.XdgSurfaceGetToplevel:       s.getToplevel,
		protocol.XdgSurfaceGetPopup:          s.getPopup,
		protocol.XdgSurfaceSetWindowGeometry: xdgSurfaceSetWindowGeometry,
		protocol.XdgSurfaceAckConfigure:      xdgSurfaceAckConfigure,
	})

	s.implement(protocol.XdgToplevelInterface, map[uint16]HandlerFunc{
		protocol.XdgToplevelDestroy:         noop,
		protocol.XdgToplevelSetParent:       toplevelSetParent,
		protocol.XdgToplevelSetTitle:        s.toplevelSetTitle,
		protocol.XdgToplevelSetAppId:        s.toplevelSetAppID,
		protocol.XdgToplevelShowWindowMenu:  s.toplevelShowWindowMenu,
		protocol.XdgToplevelMove:            s.toplevelMove,
		protocol.XdgToplevelResize:          s.toplevelResize,
		protocol.XdgToplevelSetMaxSize:      toplevelSetMaxSize,
		protocol.XdgToplevelSetMinSize:      toplevelSetMinSize,
		protocol.XdgToplevelSetMaximized:    s.toplevelRequest(MaximizeEvent),
		protocol.XdgToplevelUnsetMaximized:  s.toplevelRequest(UnmaximizeEvent),
		protocol.XdgToplevelSetFullscreen:   s.toplevelSetFullscreen,
		protocol.XdgToplevelUnsetFullscreen: s.toplevelRequest(UnfullscreenEvent),
		protocol.XdgToplevelSetMinimized:    s.toplevelSetMinimized,
	})

	s.implement(protocol.XdgPopupInterface, map[uint16]HandlerFunc{
		protocol.XdgPopupDestroy:    s.popupDestroy,
		protocol.XdgPopupGrab:       s.popupGrab,
		protocol.XdgPopupReposition: popupReposition,
	})
}

func (surf *surface) toplevel() *xdgToplevel {
	if surf.xdg == nil {
		return nil
	}
	return surf.xdg.toplevel
}

func (s *Server) bindWmBase(c *Client, obj *Object) error {
	wm := wmBase{
		obj:      obj,
		surfaces: make(set.Set[*xdgSurface]),
	}
	obj.Data = &wm

	c.wmBases = append(c.wmBases, &wm)
	obj.OnDestroy(func() {
		c.wmBases = slices.DeleteFunc(c.wmBases, func(b *wmBase) bool { return b == &wm })
		if wm.timer != nil {
			wm.timer.Stop()
		}
	})
	return nil
}

func wmBaseDestroy(c *Client, obj *Object, args wire.Args) error {
	wm := obj.Data.(*wmBase)
	if len(wm.surfaces) > 0 {
		return protoErr(obj, protocol.XdgWmBaseErrorDefunctSurfaces, "%v destroyed with %v xdg_surfaces remaining", obj, len(wm.surfaces))
	}
	return nil
}

func wmBasePong(c *Client, obj *Object, args wire.Args) error {
	wm := obj.Data.(*wmBase)
	if (wm.ping == 0) || (args.Uint(0) != wm.ping) {
		return nil
	}
	wm.ping = 0
	if wm.timer != nil {
		wm.timer.Stop()
		wm.timer = nil
	}
	return nil
}

// ping sends a ping on each of the client's xdg_wm_base objects that
// doesn't already have one outstanding. If a pong doesn't arrive in
// time, an UnresponsiveEvent is emitted.
func (s *Server) ping(c *Client) bool {
	sent := false
	for _, wm := range c.wmBases {
		if wm.ping != 0 {
			sent = true
			continue
		}

		serial := s.NextSerial()
		wm.ping = serial
		wm.obj.Send(protocol.XdgWmBaseEventPing, serial)
		wm.timer = time.AfterFunc(s.opts.PingTimeout, func() {
			s.post(func() error {
				if (wm.ping != serial) || wm.obj.Destroyed() {
					return nil
				}
				c.log.WithField("serial", serial).Warn("client did not respond to ping")
				s.emit(Event{Kind: UnresponsiveEvent, Client: c.ID})
				return nil
			})
		})
		sent = true
	}
	return sent
}

func createPositioner(c *Client, obj *Object, args wire.Args) error {
	_, err := c.NewObject(args.NewID(0).ID, protocol.XdgPositionerInterface, obj.Version, &scene.Positioner{})
	return err
}

func positionerSetSize(c *Client, obj *Object, args wire.Args) error {
	p := obj.Data.(*scene.Positioner)
	w, h := args.Int(0), args.Int(1)
	if (w <= 0) || (h <= 0) {
		return protoErr(obj, protocol.XdgPositionerErrorInvalidInput, "invalid size %vx%v", w, h)
	}
	p.Size = image.Pt(int(w), int(h))
	return nil
}

func positionerSetAnchorRect(c *Client, obj *Object, args wire.Args) error {
	p := obj.Data.(*scene.Positioner)
	x, y, w, h := args.Int(0), args.Int(1), args.Int(2), args.Int(3)
	if (w < 0) || (h < 0) {
		return protoErr(obj, protocol.XdgPositionerErrorInvalidInput, "invalid anchor rect size %vx%v", w, h)
	}
	p.SetAnchorRect(image.Rect(int(x), int(y), int(x+w), int(y+h)))
	return nil
}

func positionerSetAnchor(c *Client, obj *Object, args wire.Args) error {
	p := obj.Data.(*scene.Positioner)
	e := scene.Edge(args.Uint(0))
	if !e.Valid() {
		return protoErr(obj, protocol.XdgPositionerErrorInvalidInput, "invalid anchor %v", uint32(e))
	}
	p.Anchor = e
	return nil
}

func positionerSetGravity(c *Client, obj *Object, args wire.Args) error {
	p := obj.Data.(*scene.Positioner)
	e := scene.Edge(args.Uint(0))
	if !e.Valid() {
		return protoErr(obj, protocol.XdgPositionerErrorInvalidInput, "invalid gravity %v", uint32(e))
	}
	p.Gravity = e
	return nil
}

func positionerSetConstraintAdjustment(c *Client, obj *Object, args wire.Args) error {
	p := obj.Data.(*scene.Positioner)
	p.Adjust = scene.Adjustment(args.Uint(0))
	return nil
}

func positionerSetOffset(c *Client, obj *Object, args wire.Args) error {
	p := obj.Data.(*scene.Positioner)
	p.Offset = image.Pt(int(args.Int(0)), int(args.Int(1)))
	return nil
}

func positionerSetReactive(c *Client, obj *Object, args wire.Args) error {
	p := obj.Data.(*scene.Positioner)
	p.Reactive = true
	return nil
}

func positionerSetParentSize(c *Client, obj *Object, args wire.Args) error {
	p := obj.Data.(*scene.Positioner)
	p.ParentSize = image.Pt(int(args.Int(0)), int(args.Int(1)))
	return nil
}

func positionerSetParentConfigure(c *Client, obj *Object, args wire.Args) error {
	p := obj.Data.(*scene.Positioner)
	p.ParentConfigure = args.Uint(0)
	return nil
}

func (s *Server) getXdgSurface(c *Client, obj *Object, args wire.Args) error {
	wm := obj.Data.(*wmBase)
	surf, _ := argData[*surface](c, args, 1)

	switch surf.scene.Role() {
	case scene.RoleNone, scene.RoleToplevel, scene.RolePopup:
	default:
		return protoErr(obj, protocol.XdgWmBaseErrorRole, "%v already has role %v", surf.obj, surf.scene.Role())
	}
	if surf.xdg != nil {
		return protoErr(obj, protocol.XdgWmBaseErrorRole, "%v already has an xdg_surface", surf.obj)
	}

	xs := xdgSurface{
		server: s,
		wm:     wm,
		surf:   surf,
	}
	xobj, err := c.NewObject(args.NewID(0).ID, protocol.XdgSurfaceInterface, obj.Version, &xs)
	if err != nil {
		return err
	}
	xs.obj = xobj

	pending := surf.scene.Pending()
	if (surf.scene.Current().Buffer != nil) || (pending.Has(scene.FieldBuffer) && (pending.Buffer != nil)) {
		return protoErr(xobj, protocol.XdgSurfaceErrorUnconfiguredBuffer, "%v already has a buffer", surf.obj)
	}

	surf.xdg = &xs
	surf.scene.SetHandler(&xs)
	wm.surfaces.Add(&xs)
	xobj.OnDestroy(func() {
		wm.surfaces.Delete(&xs)
		if surf.xdg == &xs {
			surf.xdg = nil
		}
		if !surf.obj.Destroyed() {
			surf.scene.SetHandler(nil)
		}
		xs.unmap()
	})
	return nil
}

func xdgSurfaceDestroy(c *Client, obj *Object, args wire.Args) error {
	xs := obj.Data.(*xdgSurface)
	if (xs.toplevel != nil) || (xs.popup != nil) {
		return protoErr(obj, protocol.XdgSurfaceErrorDefunctRoleObject, "%v destroyed before its role object", obj)
	}
	return nil
}

// assignRole gives the wl_surface the role r with xs as its commit
// handler.
func (xs *xdgSurface) assignRole(r scene.Role) error {
	ss := xs.surf.scene
	ss.SetHandler(nil)
	err := ss.SetRole(r, xs)
	if err != nil {
		ss.SetHandler(xs)
		var rerr scene.RoleError
		if errors.As(err, &rerr) {
			return protoErr(xs.wm.obj, protocol.XdgWmBaseErrorRole, "%v", err)
		}
		return err
	}
	xs.constructed = true
	return nil
}

func (s *Server) getToplevel(c *Client, obj *Object, args wire.Args) error {
	xs := obj.Data.(*xdgSurface)
	if (xs.toplevel != nil) || (xs.popup != nil) {
		return protoErr(obj, protocol.XdgSurfaceErrorAlreadyConstructed, "%v already has a role object", obj)
	}
	err := xs.assignRole(scene.RoleToplevel)
	if err != nil {
		return err
	}

	tl := xdgToplevel{
		xs:   xs,
		kids: make(set.Set[*xdgToplevel]),
	}
	tobj, err := c.NewObject(args.NewID(0).ID, protocol.XdgToplevelInterface, obj.Version, &tl)
	if err != nil {
		return err
	}
	tl.obj = tobj
	xs.toplevel = &tl

	if s.seat.keyboardFocus == xs.surf {
		tl.states = append(tl.states, protocol.XdgToplevelStateActivated)
	}

	tobj.OnDestroy(func() {
		xs.unmap()
		xs.reset()
		xs.toplevel = nil
		if tl.parent != nil {
			tl.parent.kids.Delete(&tl)
		}
		for kid := range tl.kids {
			kid.parent = tl.parent
			if tl.parent != nil {
				tl.parent.kids.Add(kid)
			}
			kid.foreignParent()
		}
	})
	return nil
}

func (s *Server) getPopup(c *Client, obj *Object, args wire.Args) error {
	xs := obj.Data.(*xdgSurface)
	if (xs.toplevel != nil) || (xs.popup != nil) {
		return protoErr(obj, protocol.XdgSurfaceErrorAlreadyConstructed, "%v already has a role object", obj)
	}

	parent, ok := argData[*xdgSurface](c, args, 1)
	if !ok {
		return protoErr(xs.wm.obj, protocol.XdgWmBaseErrorInvalidPopupParent, "popups must have a parent")
	}
	pos, _ := argData[*scene.Positioner](c, args, 2)
	if !pos.Complete() {
		return protoErr(xs.wm.obj, protocol.XdgWmBaseErrorInvalidPositioner, "positioner is missing a size or anchor rect")
	}

	err := xs.assignRole(scene.RolePopup)
	if err != nil {
		return err
	}

	p := xdgPopup{
		xs:         xs,
		parent:     parent,
		positioner: *pos,
	}
	pobj, err := c.NewObject(args.NewID(0).ID, protocol.XdgPopupInterface, obj.Version, &p)
	if err != nil {
		return err
	}
	p.obj = pobj
	xs.popup = &p
	parent.popups = append(parent.popups, &p)

	pobj.OnDestroy(func() {
		s.seat.removePopup(&p)
		xs.unmap()
		xs.reset()
		xs.popup = nil
		parent.popups = slices.DeleteFunc(parent.popups, func(other *xdgPopup) bool { return other == &p })
	})
	return nil
}

func xdgSurfaceSetWindowGeometry(c *Client, obj *Object, args wire.Args) error {
	xs := obj.Data.(*xdgSurface)
	r, ok := argRect(args, 0)
	if !ok {
		return protoErr(obj, protocol.XdgSurfaceErrorInvalidSize, "window geometry must have a positive size")
	}
	xs.pendingGeometry = r
	xs.geometrySet = true
	return nil
}

// xdgSurfaceAckConfigure handles an ack. Acking the latest configure
// makes its state take effect on the next commit. Acking an older one
// is allowed but only discards the configures up to it.
func xdgSurfaceAckConfigure(c *Client, obj *Object, args wire.Args) error {
	xs := obj.Data.(*xdgSurface)
	if !xs.constructed {
		return protoErr(obj, protocol.XdgSurfaceErrorNotConstructed, "%v has no role object", obj)
	}

	serial := args.Uint(0)
	i := slices.IndexFunc(xs.configs, func(cfg xdgConfigure) bool { return cfg.serial == serial })
	switch {
	case (i >= 0) && (i == len(xs.configs)-1):
		cfg := xs.configs[i]
		xs.acked = &cfg
		xs.configs = nil
	case i >= 0:
		xs.configs = xs.configs[i+1:]
	case (serial != 0) && (serial <= xs.lastAck):
		return nil
	default:
		return protoErr(obj, protocol.XdgSurfaceErrorInvalidSerial, "invalid configure serial %v", serial)
	}

	xs.configured = true
	xs.lastAck = max(xs.lastAck, serial)
	return nil
}

// Precommit implements scene.CommitHandler.
func (xs *xdgSurface) Precommit(ss *scene.Surface) error {
	if !xs.constructed {
		return protoErr(xs.obj, protocol.XdgSurfaceErrorNotConstructed, "%v committed without a role object", xs.obj)
	}

	pending := ss.Pending()
	if pending.Has(scene.FieldBuffer) && (pending.Buffer != nil) && !xs.configured {
		return protoErr(xs.obj, protocol.XdgSurfaceErrorUnconfiguredBuffer, "buffer attached before the first configure was acked")
	}

	if tl := xs.toplevel; tl != nil {
		lo, hi := tl.pendingMin, tl.pendingMax
		if ((hi.X > 0) && (lo.X > hi.X)) || ((hi.Y > 0) && (lo.Y > hi.Y)) {
			return protoErr(tl.obj, protocol.XdgToplevelErrorInvalidSize, "min size %v is larger than max size %v", lo, hi)
		}
	}
	return nil
}

// Committed implements scene.CommitHandler.
func (xs *xdgSurface) Committed(ss *scene.Surface) {
	if xs.geometrySet {
		xs.geometry = xs.pendingGeometry
		xs.geometrySet = false
	}

	if tl := xs.toplevel; tl != nil {
		tl.min, tl.max = tl.pendingMin, tl.pendingMax
		if xs.acked != nil {
			tl.curSize = xs.acked.size
			tl.curStates = xs.acked.states
		}
	}
	xs.acked = nil

	if !xs.initialized {
		switch {
		case xs.toplevel != nil:
			xs.initialized = true
			xs.toplevel.configure()
		case xs.popup != nil:
			xs.initialized = true
			xs.popup.configure()
		}
		return
	}

	switch {
	case (ss.Current().Buffer == nil) && xs.mapped:
		xs.unmap()
		xs.reset()
	case (ss.Current().Buffer != nil) && !xs.mapped:
		xs.mapSurface()
	case xs.mapped && (xs.popup != nil):
		xs.popup.updatePosition()
	}
}

// windowGeometry returns the part of the surface that is the window
// proper, excluding decorations such as shadows.
func (xs *xdgSurface) windowGeometry() image.Rectangle {
	if !xs.geometry.Empty() {
		return xs.geometry
	}
	return image.Rectangle{Max: xs.surf.scene.Current().Size()}
}

func (xs *xdgSurface) sendConfigure(cfg xdgConfigure) uint32 {
	cfg.serial = xs.server.NextSerial()
	xs.configs = append(xs.configs, cfg)
	xs.obj.Send(protocol.XdgSurfaceEventConfigure, cfg.serial)
	return cfg.serial
}

// reset returns the surface to its unmapped state, after which the
// client has to go through the initial commit again.
func (xs *xdgSurface) reset() {
	xs.initialized = false
	xs.configured = false
	xs.configs = nil
	xs.acked = nil
}

func (xs *xdgSurface) event(kind EventKind) Event {
	return Event{
		Kind:    kind,
		Surface: xs.surf.scene.Handle(),
		Client:  xs.obj.client.ID,
	}
}

func (xs *xdgSurface) mapSurface() {
	s := xs.server
	ss := xs.surf.scene

	switch {
	case xs.toplevel != nil:
		tl := xs.toplevel
		if !tl.placed {
			tl.placed = true
			var origin image.Point
			if outs := s.scene.Outputs(); len(outs) > 0 {
				origin = outs[0].Bounds().Min
			}
			s.scene.SetPosition(ss, origin.Sub(xs.windowGeometry().Min))
		}
		s.scene.Map(ss)

	case xs.popup != nil:
		p := xs.popup
		if p.dismissed {
			return
		}
		s.scene.SetParent(ss, p.parent.surf.scene)
		p.updatePosition()
		s.scene.Map(ss)
		if p.grab {
			s.seat.pushPopup(p)
		}

	default:
		return
	}

	xs.mapped = true
	s.emit(xs.event(MapEvent))
	if xs.toplevel != nil {
		s.toplevelMapped(xs.toplevel)
	}
}

func (xs *xdgSurface) unmap() {
	if !xs.mapped {
		return
	}
	xs.mapped = false

	for _, p := range slices.Clone(xs.popups) {
		p.done()
	}

	s := xs.server
	if xs.popup != nil {
		s.seat.removePopup(xs.popup)
	}
	if !xs.surf.obj.Destroyed() {
		s.scene.Unmap(xs.surf.scene)
	}

	st := s.seat
	if st.keyboardFocus == xs.surf {
		st.setKeyboardFocus(nil)
	}
	if st.pointerFocus == xs.surf {
		st.setPointerFocus(nil)
		st.buttons.Reset()
		st.updateCursor()
	}
	if st.pointerGrab == xs.surf {
		st.pointerGrab = nil
	}

	if xs.toplevel != nil {
		s.toplevelUnmapped(xs.toplevel)
	}
	s.emit(xs.event(UnmapEvent))
}

func statesArray(states []uint32) []byte {
	buf := make([]byte, 0, 4*len(states))
	for _, state := range states {
		buf = bin.Append(buf, state)
	}
	return buf
}

// configure sends the compositor's wanted state to the client. Before
// the initial commit, the state is only recorded and will be sent in
// response to it.
func (tl *xdgToplevel) configure() uint32 {
	xs := tl.xs
	if !xs.initialized {
		return 0
	}

	if !tl.extrasSent {
		tl.extrasSent = true
		if outs := xs.server.scene.Outputs(); len(outs) > 0 {
			b := outs[0].Bounds()
			tl.obj.Send(protocol.XdgToplevelEventConfigureBounds, int32(b.Dx()), int32(b.Dy()))
		}
		tl.obj.Send(protocol.XdgToplevelEventWmCapabilities, statesArray(wmCapabilities))
	}

	states := slices.Clone(tl.states)
	tl.obj.Send(protocol.XdgToplevelEventConfigure, int32(tl.size.X), int32(tl.size.Y), statesArray(states))
	tl.foreignState()
	return xs.sendConfigure(xdgConfigure{size: tl.size, states: states})
}

func (tl *xdgToplevel) setActivated(active bool) {
	has := slices.Contains(tl.states, protocol.XdgToplevelStateActivated)
	switch {
	case active && !has:
		tl.states = append(tl.states, protocol.XdgToplevelStateActivated)
	case !active && has:
		tl.states = slices.DeleteFunc(tl.states, func(state uint32) bool { return state == protocol.XdgToplevelStateActivated })
	default:
		return
	}
	tl.configure()
}

func toplevelSetParent(c *Client, obj *Object, args wire.Args) error {
	tl := obj.Data.(*xdgToplevel)
	parent, _ := argData[*xdgToplevel](c, args, 0)
	for p := parent; p != nil; p = p.parent {
		if p == tl {
			return protoErr(obj, protocol.XdgToplevelErrorInvalidParent, "%v can't be its own ancestor", obj)
		}
	}

	if tl.parent != nil {
		tl.parent.kids.Delete(tl)
	}
	tl.parent = parent
	if parent != nil {
		parent.kids.Add(tl)
	}
	tl.foreignParent()
	return nil
}

func (s *Server) toplevelSetTitle(c *Client, obj *Object, args wire.Args) error {
	tl := obj.Data.(*xdgToplevel)
	tl.title = args.String(0)
	tl.foreignTitle()

	ev := tl.xs.event(TitleEvent)
	ev.Text = tl.title
	s.emit(ev)
	return nil
}

func (s *Server) toplevelSetAppID(c *Client, obj *Object, args wire.Args) error {
	tl := obj.Data.(*xdgToplevel)
	tl.appID = args.String(0)
	tl.foreignAppID()

	ev := tl.xs.event(AppIDEvent)
	ev.Text = tl.appID
	s.emit(ev)
	return nil
}

func (s *Server) toplevelShowWindowMenu(c *Client, obj *Object, args wire.Args) error {
	tl := obj.Data.(*xdgToplevel)
	ev := tl.xs.event(WindowMenuEvent)
	ev.Point = image.Pt(int(args.Int(2)), int(args.Int(3)))
	s.emit(ev)
	return nil
}

func (s *Server) toplevelMove(c *Client, obj *Object, args wire.Args) error {
	tl := obj.Data.(*xdgToplevel)
	s.emit(tl.xs.event(MoveEvent))
	return nil
}

func (s *Server) toplevelResize(c *Client, obj *Object, args wire.Args) error {
	tl := obj.Data.(*xdgToplevel)
	edges := args.Uint(2)
	if !slices.Contains(validResizeEdges, edges) {
		return protoErr(obj, protocol.XdgToplevelErrorInvalidResizeEdge, "invalid resize edge %v", edges)
	}

	ev := tl.xs.event(ResizeEvent)
	ev.Edges = edges
	s.emit(ev)
	return nil
}

func toplevelSetMaxSize(c *Client, obj *Object, args wire.Args) error {
	tl := obj.Data.(*xdgToplevel)
	w, h := args.Int(0), args.Int(1)
	if (w < 0) || (h < 0) {
		return protoErr(obj, protocol.XdgToplevelErrorInvalidSize, "invalid max size %vx%v", w, h)
	}
	tl.pendingMax = image.Pt(int(w), int(h))
	return nil
}

func toplevelSetMinSize(c *Client, obj *Object, args wire.Args) error {
	tl := obj.Data.(*xdgToplevel)
	w, h := args.Int(0), args.Int(1)
	if (w < 0) || (h < 0) {
		return protoErr(obj, protocol.XdgToplevelErrorInvalidSize, "invalid min size %vx%v", w, h)
	}
	tl.pendingMin = image.Pt(int(w), int(h))
	return nil
}

// toplevelRequest returns a handler for a request that asks for a
// state change. The shell decides whether to honor it, but the client
// is always answered with a configure.
func (s *Server) toplevelRequest(kind EventKind) HandlerFunc {
	return func(c *Client, obj *Object, args wire.Args) error {
		tl := obj.Data.(*xdgToplevel)
		s.emit(tl.xs.event(kind))
		tl.configure()
		return nil
	}
}

func (s *Server) toplevelSetFullscreen(c *Client, obj *Object, args wire.Args) error {
	tl := obj.Data.(*xdgToplevel)
	ev := tl.xs.event(FullscreenEvent)
	if og, ok := argData[*outputGlobal](c, args, 0); ok {
		ev.Output = og.out.Name
	}
	s.emit(ev)
	tl.configure()
	return nil
}

func (s *Server) toplevelSetMinimized(c *Client, obj *Object, args wire.Args) error {
	tl := obj.Data.(*xdgToplevel)
	s.emit(tl.xs.event(MinimizeEvent))
	return nil
}

// place resolves the popup's positioner against the output that its
// parent is on. The result is relative to the parent's window
// geometry.
func (p *xdgPopup) place() image.Rectangle {
	sc := p.xs.server.scene
	pr, ok := sc.Bounds(p.parent.surf.scene)
	outs := sc.Outputs()
	if !ok || (len(outs) == 0) {
		return p.positioner.Place()
	}

	out := outs[0]
	for _, o := range outs {
		if pr.Min.In(o.Bounds()) {
			out = o
			break
		}
	}

	origin := pr.Min.Add(p.parent.windowGeometry().Min)
	return p.positioner.Resolve(out.Bounds().Sub(origin))
}

func (p *xdgPopup) configure() uint32 {
	p.rect = p.place()
	r := p.rect
	p.obj.Send(protocol.XdgPopupEventConfigure, int32(r.Min.X), int32(r.Min.Y), int32(r.Dx()), int32(r.Dy()))
	return p.xs.sendConfigure(xdgConfigure{size: r.Size()})
}

// updatePosition moves the popup's surface to match the rectangle that
// was last sent to the client.
func (p *xdgPopup) updatePosition() {
	pos := p.parent.windowGeometry().Min.Add(p.rect.Min).Sub(p.xs.windowGeometry().Min)
	p.xs.server.scene.SetPosition(p.xs.surf.scene, pos)
}

// done dismisses the popup.
func (p *xdgPopup) done() {
	if p.dismissed {
		return
	}
	p.dismissed = true
	p.obj.Send(protocol.XdgPopupEventPopupDone)
	p.xs.unmap()
}

func (s *Server) popupDestroy(c *Client, obj *Object, args wire.Args) error {
	p := obj.Data.(*xdgPopup)
	st := s.seat
	if slices.Contains(st.popups, p) && (st.topPopup() != p) {
		return protoErr(p.xs.wm.obj, protocol.XdgWmBaseErrorNotTheTopmostPopup, "%v is not the topmost popup", obj)
	}
	return nil
}

func (s *Server) popupGrab(c *Client, obj *Object, args wire.Args) error {
	p := obj.Data.(*xdgPopup)
	if p.xs.mapped {
		return protoErr(obj, protocol.XdgPopupErrorInvalidGrab, "%v grabbed after being mapped", obj)
	}

	if pp := p.parent.popup; pp != nil {
		if !pp.grab || pp.dismissed {
			p.done()
			return nil
		}
	}
	if c := s.seat.popupClient(); (c != nil) && (c != obj.client) {
		p.done()
		return nil
	}

	p.grab = true
	return nil
}

func popupReposition(c *Client, obj *Object, args wire.Args) error {
	p := obj.Data.(*xdgPopup)
	pos, _ := argData[*scene.Positioner](c, args, 0)
	if !pos.Complete() {
		return protoErr(p.xs.wm.obj, protocol.XdgWmBaseErrorInvalidPositioner, "positioner is missing a size or anchor rect")
	}

	p.positioner = *pos
	if !p.xs.initialized || p.dismissed {
		return nil
	}
	obj.Send(protocol.XdgPopupEventRepositioned, args.Uint(1))
	p.configure()
	return nil
}
