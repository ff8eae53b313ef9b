package protocol

import (
	"strings"
	"testing"

	"deedles.dev/oxyde/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltin(t *testing.T) {
	s := Builtin()

	names := []string{
		"wl_display", "wl_registry", "wl_callback", "wl_compositor",
		"wl_subcompositor", "wl_surface", "wl_subsurface", "wl_region",
		"wl_shm", "wl_shm_pool", "wl_buffer", "wl_seat", "wl_pointer",
		"wl_keyboard", "wl_touch", "wl_output", "xdg_wm_base",
		"xdg_surface", "xdg_toplevel", "xdg_popup", "xdg_positioner",
		"zwlr_foreign_toplevel_manager_v1", "zwlr_foreign_toplevel_handle_v1",
	}
	for _, name := range names {
		assert.NotNil(t, s.Interface(name), name)
	}
	assert.Len(t, s.Names(), len(names))
	assert.Nil(t, s.Interface("wl_data_device_manager"))
}

func TestOpcodes(t *testing.T) {
	s := Builtin()

	requests := []struct {
		iface string
		op    uint16
		name  string
	}{
		{DisplayInterface, DisplaySync, "sync"},
		{DisplayInterface, DisplayGetRegistry, "get_registry"},
		{RegistryInterface, RegistryBind, "bind"},
		{SurfaceInterface, SurfaceAttach, "attach"},
		{SurfaceInterface, SurfaceCommit, "commit"},
		{SurfaceInterface, SurfaceDamageBuffer, "damage_buffer"},
		{SurfaceInterface, SurfaceOffset, "offset"},
		{ShmInterface, ShmRelease, "release"},
		{SubsurfaceInterface, SubsurfaceSetDesync, "set_desync"},
		{XdgSurfaceInterface, XdgSurfaceAckConfigure, "ack_configure"},
		{XdgToplevelInterface, XdgToplevelSetMinimized, "set_minimized"},
		{XdgPopupInterface, XdgPopupReposition, "reposition"},
		{ZwlrForeignToplevelHandleV1Interface, ZwlrForeignToplevelHandleV1SetRectangle, "set_rectangle"},
		{ZwlrForeignToplevelHandleV1Interface, ZwlrForeignToplevelHandleV1UnsetFullscreen, "unset_fullscreen"},
	}
	for _, r := range requests {
		op, err := s.Interface(r.iface).Request(r.op)
		require.NoError(t, err)
		assert.Equal(t, r.name, op.Name, "%v request %v", r.iface, r.op)
	}

	events := []struct {
		iface string
		op    uint16
		name  string
	}{
		{DisplayInterface, DisplayEventError, "error"},
		{DisplayInterface, DisplayEventDeleteId, "delete_id"},
		{SurfaceInterface, SurfaceEventPreferredBufferTransform, "preferred_buffer_transform"},
		{PointerInterface, PointerEventAxisDiscrete, "axis_discrete"},
		{KeyboardInterface, KeyboardEventRepeatInfo, "repeat_info"},
		{OutputInterface, OutputEventDescription, "description"},
		{XdgToplevelInterface, XdgToplevelEventWmCapabilities, "wm_capabilities"},
	}
	for _, e := range events {
		op, err := s.Interface(e.iface).Event(e.op)
		require.NoError(t, err)
		assert.Equal(t, e.name, op.Name, "%v event %v", e.iface, e.op)
	}

	v, ok := s.Interface(XdgToplevelInterface).Enum("state").Value("activated")
	assert.True(t, ok)
	assert.Equal(t, int(XdgToplevelStateActivated), v)
	v, ok = s.Interface(DisplayInterface).Enum("error").Value("implementation")
	assert.True(t, ok)
	assert.Equal(t, int(DisplayErrorImplementation), v)
}

func TestVersions(t *testing.T) {
	s := Builtin()

	assert.Equal(t, CompositorVersion, s.Interface(CompositorInterface).Version)
	assert.Equal(t, 6, s.Interface(SurfaceInterface).Version)
	assert.Equal(t, 7, s.Interface(SeatInterface).Version)
	assert.Equal(t, 4, s.Interface(OutputInterface).Version)
	assert.Equal(t, 6, s.Interface(XdgWmBaseInterface).Version)

	op, err := s.Interface(SurfaceInterface).Request(SurfaceOffset)
	require.NoError(t, err)
	assert.Equal(t, 5, op.MinVersion())

	op, err = s.Interface(SurfaceInterface).Request(SurfaceAttach)
	require.NoError(t, err)
	assert.Equal(t, 1, op.MinVersion())
	assert.False(t, op.IsDestructor())

	op, err = s.Interface(BufferInterface).Request(BufferDestroy)
	require.NoError(t, err)
	assert.True(t, op.IsDestructor())
}

func TestSignatures(t *testing.T) {
	s := Builtin()

	op, err := s.Interface(SurfaceInterface).Request(SurfaceAttach)
	require.NoError(t, err)
	assert.Equal(t, wire.Signature{
		{Name: "buffer", Type: wire.TypeObject, Interface: "wl_buffer", Nullable: true},
		{Name: "x", Type: wire.TypeInt},
		{Name: "y", Type: wire.TypeInt},
	}, op.Signature())

	op, err = s.Interface(RegistryInterface).Request(RegistryBind)
	require.NoError(t, err)
	assert.Equal(t, wire.TypeNewID, op.Signature()[1].Type)
	assert.Empty(t, op.Signature()[1].Interface)

	op, err = s.Interface(ShmInterface).Request(ShmCreatePool)
	require.NoError(t, err)
	assert.Equal(t, 1, op.Signature().FDs())

	_, err = s.Interface(SurfaceInterface).Request(200)
	var uerr wire.UnknownOpError
	assert.ErrorAs(t, err, &uerr)
}

func TestNewSetErrors(t *testing.T) {
	proto, err := Load(strings.NewReader(`<protocol name="test">
		<interface name="a" version="1">
			<request name="r"><arg name="x" type="object" interface="missing"/></request>
		</interface>
	</protocol>`))
	require.NoError(t, err)
	_, err = NewSet(proto)
	assert.Error(t, err)

	proto, err = Load(strings.NewReader(`<protocol name="test">
		<interface name="a" version="1">
			<request name="r"><arg name="x" type="float"/></request>
		</interface>
	</protocol>`))
	require.NoError(t, err)
	_, err = NewSet(proto)
	assert.Error(t, err)

	proto, err = Load(strings.NewReader(`<protocol name="test">
		<interface name="a" version="1"/>
	</protocol>`))
	require.NoError(t, err)
	_, err = NewSet(proto, proto)
	assert.Error(t, err)
}
