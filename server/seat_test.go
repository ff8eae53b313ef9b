package server_test

import (
	"testing"

	"deedles.dev/oxyde/internal/wltest"
	"deedles.dev/oxyde/pointer"
	"deedles.dev/oxyde/protocol"
	"deedles.dev/oxyde/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slices"
)

// eventNames returns the names of the events in evs that were sent to
// obj.
func eventNames(evs []wltest.Event, obj uint32) []string {
	var names []string
	for _, ev := range evs {
		if ev.Object == obj {
			names = append(names, ev.Name)
		}
	}
	return names
}

func TestPointerButtonAxis(t *testing.T) {
	h := newHarness(t)
	c := h.dial()
	g := bindAll(c)
	seat := c.Bind(protocol.SeatInterface, 0)
	ptr := c.New(protocol.PointerInterface)
	c.Send(seat, protocol.SeatGetPointer, ptr)

	w := newWindow(c, g)
	mapWindow(t, c, g, w, 100, 100)

	h.srv.PointerMotion(10, 10)
	enter := c.Expect(ptr, "enter")
	assert.Equal(t, w.surface, enter.Args.Object(1))
	c.Expect(ptr, "frame")

	h.srv.PointerButton(pointer.ButtonLeft, true)
	h.srv.PointerButton(pointer.ButtonLeft, true)
	press := c.Expect(ptr, "button")
	assert.Equal(t, uint32(pointer.ButtonLeft), press.Args.Uint(2))
	assert.Equal(t, protocol.PointerButtonStatePressed, press.Args.Uint(3))
	c.Expect(ptr, "frame")

	// Focus stays with the pressed surface while a button is held.
	h.srv.PointerMotion(500, 500)
	motion := c.Expect(ptr, "motion")
	assert.Equal(t, wire.FixedInt(500), motion.Args.Fixed(1))

	h.srv.PointerAxis(pointer.AxisVertical, 15)
	axis := c.Expect(ptr, "axis")
	assert.Equal(t, protocol.PointerAxisVerticalScroll, axis.Args.Uint(1))
	assert.Equal(t, wire.FixedInt(15), axis.Args.Fixed(2))

	h.srv.PointerButton(pointer.ButtonLeft, false)
	assert.Equal(t, []string{"frame", "button", "frame", "leave", "frame"}, eventNames(c.Roundtrip(), ptr))

	h.srv.PointerAxis(pointer.AxisVertical, 15)
	h.srv.PointerButton(pointer.ButtonRight, false)
	assert.Empty(t, eventNames(c.Roundtrip(), ptr), "no focus and no pressed button")
}

func TestTouch(t *testing.T) {
	h := newHarness(t)
	c := h.dial()
	g := bindAll(c)
	seat := c.Bind(protocol.SeatInterface, 0)
	touch := c.New(protocol.TouchInterface)
	c.Send(seat, protocol.SeatGetTouch, touch)

	w := newWindow(c, g)
	mapWindow(t, c, g, w, 100, 100)

	h.srv.TouchDown(3, 10, 20)
	h.srv.TouchFrame()
	evs := c.Roundtrip()
	assert.Equal(t, []string{"down", "frame"}, eventNames(evs, touch))

	i := slices.IndexFunc(evs, func(ev wltest.Event) bool { return ev.Object == touch })
	require.GreaterOrEqual(t, i, 0)
	down := evs[i]
	assert.Equal(t, w.surface, down.Args.Object(2))
	assert.Equal(t, int32(3), down.Args.Int(3))
	assert.Equal(t, wire.FixedInt(10), down.Args.Fixed(4))
	assert.Equal(t, wire.FixedInt(20), down.Args.Fixed(5))

	h.srv.TouchMotion(3, 15, 25)
	h.srv.TouchUp(3)
	h.srv.TouchFrame()
	assert.Equal(t, []string{"motion", "up", "frame"}, eventNames(c.Roundtrip(), touch))

	h.srv.TouchDown(4, 900, 700)
	h.srv.TouchMotion(4, 901, 701)
	h.srv.TouchUp(4)
	h.srv.TouchFrame()
	assert.Empty(t, eventNames(c.Roundtrip(), touch), "touch outside of every surface")
}

func TestSetCursorRole(t *testing.T) {
	h := newHarness(t)
	c := h.dial()
	g := bindAll(c)
	seat := c.Bind(protocol.SeatInterface, 0)
	ptr := c.New(protocol.PointerInterface)
	c.Send(seat, protocol.SeatGetPointer, ptr)

	w := newWindow(c, g)
	mapWindow(t, c, g, w, 100, 100)

	h.srv.PointerMotion(10, 10)
	serial := c.Expect(ptr, "enter").Args.Uint(0)

	cursor := newSurface(c, g)
	c.Send(ptr, protocol.PointerSetCursor, serial, cursor, int32(2), int32(2))
	c.Send(ptr, protocol.PointerSetCursor, serial, cursor, int32(0), int32(0))
	c.Roundtrip()

	c.Send(ptr, protocol.PointerSetCursor, serial, w.surface, int32(0), int32(0))
	obj, code, _ := c.ExpectError()
	assert.Equal(t, ptr, obj)
	assert.Equal(t, protocol.PointerErrorRole, code)
}

func TestEventsLimitedByVersion(t *testing.T) {
	h := newHarness(t)
	c := h.dial()
	g := bindAll(c)

	old := c.Bind(protocol.SeatInterface, 1)
	current := c.Bind(protocol.SeatInterface, 0)
	evs := c.Roundtrip()
	assert.Equal(t, []string{"capabilities"}, eventNames(evs, old), "name is a version 2 event")
	assert.Equal(t, []string{"capabilities", "name"}, eventNames(evs, current))

	oldPtr := c.New(protocol.PointerInterface)
	c.Send(old, protocol.SeatGetPointer, oldPtr)
	ptr := c.New(protocol.PointerInterface)
	c.Send(current, protocol.SeatGetPointer, ptr)
	oldKbd := c.New(protocol.KeyboardInterface)
	c.Send(old, protocol.SeatGetKeyboard, oldKbd)
	kbd := c.New(protocol.KeyboardInterface)
	c.Send(current, protocol.SeatGetKeyboard, kbd)
	evs = c.Roundtrip()
	assert.Equal(t, []string{"keymap"}, eventNames(evs, oldKbd), "repeat_info is a version 4 event")
	assert.Equal(t, []string{"keymap", "repeat_info"}, eventNames(evs, kbd))

	w := newWindow(c, g)
	mapWindow(t, c, g, w, 100, 100)

	h.srv.PointerMotion(10, 10)
	evs = c.Roundtrip()
	assert.Equal(t, []string{"enter"}, eventNames(evs, oldPtr), "frame is a version 5 event")
	assert.Equal(t, []string{"enter", "frame"}, eventNames(evs, ptr))
	require.NoError(t, c.Err())
}
