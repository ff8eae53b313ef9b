package server_test

import (
	"testing"

	"deedles.dev/oxyde/internal/wltest"
	"deedles.dev/oxyde/pointer"
	"deedles.dev/oxyde/protocol"
	"deedles.dev/oxyde/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type popup struct {
	surface uint32
	xdg     uint32
	popup   uint32
	serial  uint32
}

// newPopup creates a 50x50 popup of parent, which is an xdg_surface,
// and does the initial commit. If seat is not zero, the popup grabs
// it.
func newPopup(c *wltest.Client, g globals, parent, seat uint32) popup {
	pos := c.New(protocol.XdgPositionerInterface)
	c.Send(g.wm, protocol.XdgWmBaseCreatePositioner, pos)
	c.Send(pos, protocol.XdgPositionerSetSize, int32(50), int32(50))
	c.Send(pos, protocol.XdgPositionerSetAnchorRect, int32(0), int32(0), int32(10), int32(10))

	var p popup
	p.surface = newSurface(c, g)
	p.xdg = c.New(protocol.XdgSurfaceInterface)
	c.Send(g.wm, protocol.XdgWmBaseGetXdgSurface, p.xdg, p.surface)
	p.popup = c.New(protocol.XdgPopupInterface)
	c.Send(p.xdg, protocol.XdgSurfaceGetPopup, p.popup, parent, pos)
	if seat != 0 {
		c.Send(p.popup, protocol.XdgPopupGrab, seat, uint32(0))
	}
	c.Send(p.surface, protocol.SurfaceCommit)

	c.Expect(p.popup, "configure")
	p.serial = c.Expect(p.xdg, "configure").Args.Uint(0)
	return p
}

func mapPopup(t *testing.T, c *wltest.Client, g globals, p popup) {
	buf := newBuffer(t, c, g, 50, 50, protocol.ShmFormatArgb8888)
	c.Send(p.xdg, protocol.XdgSurfaceAckConfigure, p.serial)
	c.Send(p.surface, protocol.SurfaceAttach, buf, int32(0), int32(0))
	c.Send(p.surface, protocol.SurfaceCommit)
	c.Roundtrip()
}

func TestPopupDismiss(t *testing.T) {
	h := newHarness(t)
	c := h.dial()
	g := bindAll(c)
	seat := c.Bind(protocol.SeatInterface, 0)
	kbd := c.New(protocol.KeyboardInterface)
	c.Send(seat, protocol.SeatGetKeyboard, kbd)

	w := newWindow(c, g)
	mapWindow(t, c, g, w, 100, 100)
	require.NoError(t, h.shell.Focus(h.waitEvent(server.MapEvent).Surface))
	assert.Equal(t, w.surface, c.Expect(kbd, "enter").Args.Object(1))

	p := newPopup(c, g, w.xdg, seat)
	mapPopup(t, c, g, p)
	h.waitEvent(server.MapEvent)
	assert.Equal(t, p.surface, c.Expect(kbd, "enter").Args.Object(1), "grabbing popup takes keyboard focus")
	assert.Len(t, h.snapshot(), 2)

	// A click that doesn't land on one of the client's surfaces
	// dismisses the grab.
	h.srv.PointerMotion(900, 700)
	h.srv.PointerButton(pointer.ButtonLeft, true)
	c.Expect(p.popup, "popup_done")
	assert.Equal(t, w.surface, c.Expect(kbd, "enter").Args.Object(1), "focus returns to the parent")
	h.waitEvent(server.UnmapEvent)
	assert.Len(t, h.snapshot(), 1)
}

func TestPopupNotTopmost(t *testing.T) {
	h := newHarness(t)
	c := h.dial()
	g := bindAll(c)
	seat := c.Bind(protocol.SeatInterface, 0)

	w := newWindow(c, g)
	mapWindow(t, c, g, w, 100, 100)

	p1 := newPopup(c, g, w.xdg, seat)
	mapPopup(t, c, g, p1)
	p2 := newPopup(c, g, p1.xdg, seat)
	mapPopup(t, c, g, p2)

	c.Send(p2.popup, protocol.XdgPopupDestroy)
	c.Roundtrip()

	p3 := newPopup(c, g, p1.xdg, seat)
	mapPopup(t, c, g, p3)

	c.Send(p1.popup, protocol.XdgPopupDestroy)
	obj, code, _ := c.ExpectError()
	assert.Equal(t, g.wm, obj)
	assert.Equal(t, protocol.XdgWmBaseErrorNotTheTopmostPopup, code)
}

func TestPopupGrabAfterMap(t *testing.T) {
	h := newHarness(t)
	c := h.dial()
	g := bindAll(c)
	seat := c.Bind(protocol.SeatInterface, 0)

	w := newWindow(c, g)
	mapWindow(t, c, g, w, 100, 100)
	p := newPopup(c, g, w.xdg, 0)
	mapPopup(t, c, g, p)

	c.Send(p.popup, protocol.XdgPopupGrab, seat, uint32(0))
	obj, code, _ := c.ExpectError()
	assert.Equal(t, p.popup, obj)
	assert.Equal(t, protocol.XdgPopupErrorInvalidGrab, code)
}
