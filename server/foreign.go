package server

import (
	"deedles.dev/oxyde/protocol"
	"deedles.dev/oxyde/scene"
	"deedles.dev/oxyde/wire"
	"golang.org/x/exp/slices"
)

// foreignHandle is a zwlr_foreign_toplevel_handle_v1, a view of a
// mapped toplevel given to a taskbar or similar client. A handle whose
// toplevel has gone away is inert until the client destroys it.
type foreignHandle struct {
	obj *Object
	mgr *Object
	tl  *xdgToplevel
}

func (s *Server) implementForeign() {
	s.implement(protocol.ZwlrForeignToplevelManagerV1Interface, map[uint16]HandlerFunc{
		protocol.ZwlrForeignToplevelManagerV1Stop: foreignStop,
	})

	s.implement(protocol.ZwlrForeignToplevelHandleV1Interface, map[uint16]HandlerFunc{
		protocol.ZwlrForeignToplevelHandleV1SetMaximized:    s.foreignRequest(MaximizeEvent),
		protocol.ZwlrForeignToplevelHandleV1UnsetMaximized:  s.foreignRequest(UnmaximizeEvent),
		protocol.ZwlrForeignToplevelHandleV1SetMinimized:    s.foreignRequest(MinimizeEvent),
		protocol.ZwlrForeignToplevelHandleV1UnsetMinimized:  s.foreignRequest(UnminimizeEvent),
		protocol.ZwlrForeignToplevelHandleV1Activate:        s.foreignActivate,
		protocol.ZwlrForeignToplevelHandleV1Close:           foreignClose,
		protocol.ZwlrForeignToplevelHandleV1SetRectangle:    foreignSetRectangle,
		protocol.ZwlrForeignToplevelHandleV1Destroy:         noop,
		protocol.ZwlrForeignToplevelHandleV1SetFullscreen:   s.foreignSetFullscreen,
		protocol.ZwlrForeignToplevelHandleV1UnsetFullscreen: s.foreignRequest(UnfullscreenEvent),
	})
}

func (s *Server) bindForeignManager(c *Client, obj *Object) error {
	s.foreignManagers.Add(obj)
	obj.OnDestroy(func() { s.foreignManagers.Delete(obj) })

	for _, tl := range s.toplevels {
		s.announceToplevel(obj, tl)
	}
	return nil
}

func foreignStop(c *Client, obj *Object, args wire.Args) error {
	obj.Send(protocol.ZwlrForeignToplevelManagerV1EventFinished)
	obj.Destroy()
	return nil
}

// toplevelMapped tells every manager about a toplevel that has just
// been mapped.
func (s *Server) toplevelMapped(tl *xdgToplevel) {
	s.toplevels = append(s.toplevels, tl)
	for mgr := range s.foreignManagers {
		s.announceToplevel(mgr, tl)
	}
}

func (s *Server) toplevelUnmapped(tl *xdgToplevel) {
	i := slices.Index(s.toplevels, tl)
	if i < 0 {
		return
	}
	s.toplevels = slices.Delete(s.toplevels, i, i+1)

	handles := tl.handles
	tl.handles = nil
	for _, fh := range handles {
		fh.tl = nil
		fh.obj.Send(protocol.ZwlrForeignToplevelHandleV1EventClosed)
	}
}

func (s *Server) announceToplevel(mgr *Object, tl *xdgToplevel) {
	c := mgr.client
	fh := foreignHandle{mgr: mgr, tl: tl}
	obj, err := c.newServerObject(protocol.ZwlrForeignToplevelHandleV1Interface, mgr.Version, &fh)
	if err != nil {
		c.fail(err)
		return
	}
	fh.obj = obj
	tl.handles = append(tl.handles, &fh)
	obj.OnDestroy(func() {
		if fh.tl != nil {
			fh.tl.handles = slices.DeleteFunc(fh.tl.handles, func(h *foreignHandle) bool { return h == &fh })
		}
	})

	mgr.Send(protocol.ZwlrForeignToplevelManagerV1EventToplevel, obj.ID)
	obj.Send(protocol.ZwlrForeignToplevelHandleV1EventTitle, tl.title)
	obj.Send(protocol.ZwlrForeignToplevelHandleV1EventAppId, tl.appID)
	for _, o := range tl.xs.surf.scene.Outputs() {
		fh.sendOutput(o, protocol.ZwlrForeignToplevelHandleV1EventOutputEnter)
	}
	fh.sendState()
	fh.sendParent()
	obj.Send(protocol.ZwlrForeignToplevelHandleV1EventDone)

	// Children that were mapped first were told that they had no
	// parent.
	for kid := range tl.kids {
		if kh := kid.handleFor(mgr); kh != nil {
			kh.sendParent()
			kh.obj.Send(protocol.ZwlrForeignToplevelHandleV1EventDone)
		}
	}
}

func (tl *xdgToplevel) handleFor(mgr *Object) *foreignHandle {
	for _, fh := range tl.handles {
		if fh.mgr == mgr {
			return fh
		}
	}
	return nil
}

func (tl *xdgToplevel) foreignTitle() {
	for _, fh := range tl.handles {
		fh.obj.Send(protocol.ZwlrForeignToplevelHandleV1EventTitle, tl.title)
		fh.obj.Send(protocol.ZwlrForeignToplevelHandleV1EventDone)
	}
}

func (tl *xdgToplevel) foreignAppID() {
	for _, fh := range tl.handles {
		fh.obj.Send(protocol.ZwlrForeignToplevelHandleV1EventAppId, tl.appID)
		fh.obj.Send(protocol.ZwlrForeignToplevelHandleV1EventDone)
	}
}

func (tl *xdgToplevel) foreignState() {
	for _, fh := range tl.handles {
		fh.sendState()
		fh.obj.Send(protocol.ZwlrForeignToplevelHandleV1EventDone)
	}
}

func (tl *xdgToplevel) foreignParent() {
	for _, fh := range tl.handles {
		if !fh.obj.Supports(protocol.ZwlrForeignToplevelHandleV1EventParent) {
			continue
		}
		fh.sendParent()
		fh.obj.Send(protocol.ZwlrForeignToplevelHandleV1EventDone)
	}
}

func (tl *xdgToplevel) foreignOutput(o *scene.Output, event uint16) {
	for _, fh := range tl.handles {
		fh.sendOutput(o, event)
		fh.obj.Send(protocol.ZwlrForeignToplevelHandleV1EventDone)
	}
}

// sendState translates the toplevel's xdg_toplevel states. Fullscreen
// is left out for handles that predate it.
func (fh *foreignHandle) sendState() {
	fullscreen := fh.obj.Version >= 2

	var states []uint32
	for _, state := range fh.tl.states {
		switch state {
		case protocol.XdgToplevelStateMaximized:
			states = append(states, protocol.ZwlrForeignToplevelHandleV1StateMaximized)
		case protocol.XdgToplevelStateActivated:
			states = append(states, protocol.ZwlrForeignToplevelHandleV1StateActivated)
		case protocol.XdgToplevelStateFullscreen:
			if fullscreen {
				states = append(states, protocol.ZwlrForeignToplevelHandleV1StateFullscreen)
			}
		}
	}
	fh.obj.Send(protocol.ZwlrForeignToplevelHandleV1EventState, statesArray(states))
}

func (fh *foreignHandle) sendParent() {
	var parent wire.ObjectID
	if p := fh.tl.parent; p != nil {
		if ph := p.handleFor(fh.mgr); ph != nil {
			parent = wire.ObjectID(ph.obj.ID)
		}
	}
	fh.obj.Send(protocol.ZwlrForeignToplevelHandleV1EventParent, parent)
}

// sendOutput sends output_enter or output_leave for each of the
// manager's client's wl_output objects for o.
func (fh *foreignHandle) sendOutput(o *scene.Output, event uint16) {
	og := fh.tl.xs.server.outputs[o]
	if og == nil {
		return
	}
	for _, obj := range og.bound {
		if obj.client == fh.obj.client {
			fh.obj.Send(event, wire.ObjectID(obj.ID))
		}
	}
}

// foreignRequest returns a handler for a request that asks for a
// state change on a foreign toplevel. As with the toplevel's own
// requests, the shell decides.
func (s *Server) foreignRequest(kind EventKind) HandlerFunc {
	return func(c *Client, obj *Object, args wire.Args) error {
		fh := obj.Data.(*foreignHandle)
		if fh.tl == nil {
			return nil
		}
		s.emit(fh.tl.xs.event(kind))
		return nil
	}
}

func (s *Server) foreignSetFullscreen(c *Client, obj *Object, args wire.Args) error {
	fh := obj.Data.(*foreignHandle)
	if fh.tl == nil {
		return nil
	}

	ev := fh.tl.xs.event(FullscreenEvent)
	if og, ok := argData[*outputGlobal](c, args, 0); ok {
		ev.Output = og.out.Name
	}
	s.emit(ev)
	return nil
}

func (s *Server) foreignActivate(c *Client, obj *Object, args wire.Args) error {
	fh := obj.Data.(*foreignHandle)
	if fh.tl == nil {
		return nil
	}

	surf := fh.tl.xs.surf
	s.scene.Raise(surf.scene)
	err := s.seat.focus(surf)
	if err != nil {
		c.log.WithError(err).WithField("toplevel", fh.tl.obj.String()).Debug("activate")
	}
	return nil
}

func foreignClose(c *Client, obj *Object, args wire.Args) error {
	fh := obj.Data.(*foreignHandle)
	if fh.tl == nil {
		return nil
	}
	fh.tl.obj.Send(protocol.XdgToplevelEventClose)
	return nil
}

// foreignSetRectangle only validates the rectangle. It is a hint for
// minimize animations, which are up to the shell.
func foreignSetRectangle(c *Client, obj *Object, args wire.Args) error {
	w, h := args.Int(3), args.Int(4)
	if (w < 0) || (h < 0) {
		return protoErr(obj, protocol.ZwlrForeignToplevelHandleV1ErrorInvalidRectangle, "invalid rectangle size %vx%v", w, h)
	}
	return nil
}
