package server

import (
	"errors"
	"image"

	"deedles.dev/oxyde/protocol"
	"deedles.dev/oxyde/scene"
	"deedles.dev/oxyde/wire"
)

func (s *Server) implementSubcompositor() {
	s.implement(protocol.SubcompositorInterface, map[uint16]HandlerFunc{
		protocol.SubcompositorDestroy:       noop,
		protocol.SubcompositorGetSubsurface: s.getSubsurface,
	})

	s.implement(protocol.SubsurfaceInterface, map[uint16]HandlerFunc{
		protocol.SubsurfaceDestroy:     noop,
		protocol.SubsurfaceSetPosition: subsurfaceSetPosition,
		protocol.SubsurfacePlaceAbove:  subsurfacePlaceAbove,
		protocol.SubsurfacePlaceBelow:  subsurfacePlaceBelow,
		protocol.SubsurfaceSetSync:     subsurfaceSetSync,
		protocol.SubsurfaceSetDesync:   subsurfaceSetDesync,
	})
}

func (s *Server) getSubsurface(c *Client, obj *Object, args wire.Args) error {
	surf, _ := argData[*surface](c, args, 1)
	parent, _ := argData[*surface](c, args, 2)

	err := surf.scene.AddSubsurface(parent.scene)
	if err != nil {
		var rerr scene.RoleError
		switch {
		case errors.Is(err, scene.ErrBadParent):
			return protoErr(obj, protocol.SubcompositorErrorBadParent, "%v can't be the parent of %v", parent.obj, surf.obj)
		case errors.As(err, &rerr):
			return protoErr(obj, protocol.SubcompositorErrorBadSurface, "%v", err)
		default:
			return err
		}
	}

	sub, err := c.NewObject(args.NewID(0).ID, protocol.SubsurfaceInterface, obj.Version, surf)
	if err != nil {
		return err
	}
	surf.sub = sub
	sub.OnDestroy(func() {
		surf.sub = nil
		if !surf.obj.Destroyed() {
			surf.scene.RemoveSubsurface()
		}
	})
	return nil
}

// subsurfaceTarget returns the surface of a wl_subsurface, or nil if
// the wl_surface has already been destroyed, in which case the
// subsurface is inert.
func subsurfaceTarget(obj *Object) *surface {
	surf := obj.Data.(*surface)
	if surf.obj.Destroyed() {
		return nil
	}
	return surf
}

func subsurfaceSetPosition(c *Client, obj *Object, args wire.Args) error {
	surf := subsurfaceTarget(obj)
	if surf == nil {
		return nil
	}
	surf.scene.SetSubsurfacePosition(image.Pt(int(args.Int(0)), int(args.Int(1))))
	return nil
}

func subsurfacePlace(c *Client, obj *Object, args wire.Args, above bool) error {
	surf := subsurfaceTarget(obj)
	if surf == nil {
		return nil
	}
	sibling, _ := argData[*surface](c, args, 0)

	place := surf.scene.PlaceBelow
	if above {
		place = surf.scene.PlaceAbove
	}
	err := place(sibling.scene)
	if errors.Is(err, scene.ErrBadSibling) {
		return protoErr(obj, protocol.SubsurfaceErrorBadSurface, "%v is not a sibling or the parent of %v", sibling.obj, surf.obj)
	}
	return err
}

func subsurfacePlaceAbove(c *Client, obj *Object, args wire.Args) error {
	return subsurfacePlace(c, obj, args, true)
}

func subsurfacePlaceBelow(c *Client, obj *Object, args wire.Args) error {
	return subsurfacePlace(c, obj, args, false)
}

func subsurfaceSetSync(c *Client, obj *Object, args wire.Args) error {
	if surf := subsurfaceTarget(obj); surf != nil {
		surf.scene.SetSync(true)
	}
	return nil
}

func subsurfaceSetDesync(c *Client, obj *Object, args wire.Args) error {
	if surf := subsurfaceTarget(obj); surf != nil {
		surf.scene.SetSync(false)
	}
	return nil
}
