package server

import (
	"errors"
	"image"

	"deedles.dev/oxyde/protocol"
	"deedles.dev/oxyde/region"
	"deedles.dev/oxyde/scene"
	"deedles.dev/oxyde/wire"
)

// surface is the data of a wl_surface object.
type surface struct {
	obj   *Object
	scene *scene.Surface

	xdg *xdgSurface
	sub *Object

	// scale and transform are the preferred values that were last sent
	// to the client.
	scale     int32
	transform uint32
}

type regionData struct {
	r region.Region
}

func (s *Server) implementCompositor() {
	s.implement(protocol.CompositorInterface, map[uint16]HandlerFunc{
		protocol.CompositorCreateSurface: s.createSurface,
		protocol.CompositorCreateRegion:  s.createRegion,
	})

	s.implement(protocol.SurfaceInterface, map[uint16]HandlerFunc{
		protocol.SurfaceDestroy:            s.surfaceDestroy,
		protocol.SurfaceAttach:             s.surfaceAttach,
		protocol.SurfaceDamage:             s.surfaceDamage,
		protocol.SurfaceFrame:              s.surfaceFrame,
		protocol.SurfaceSetOpaqueRegion:    s.surfaceSetOpaqueRegion,
		protocol.SurfaceSetInputRegion:     s.surfaceSetInputRegion,
		protocol.SurfaceCommit:             s.surfaceCommit,
		protocol.SurfaceSetBufferTransform: s.surfaceSetBufferTransform,
		protocol.SurfaceSetBufferScale:     s.surfaceSetBufferScale,
		protocol.SurfaceDamageBuffer:       s.surfaceDamageBuffer,
		protocol.SurfaceOffset:             s.surfaceOffset,
	})

	s.implement(protocol.RegionInterface, map[uint16]HandlerFunc{
		protocol.RegionDestroy:  noop,
		protocol.RegionAdd:      regionAdd,
		protocol.RegionSubtract: regionSubtract,
	})
}

func (s *Server) createSurface(c *Client, obj *Object, args wire.Args) error {
	var surf surface
	sobj, err := c.NewObject(args.NewID(0).ID, protocol.SurfaceInterface, obj.Version, &surf)
	if err != nil {
		return err
	}

	surf.obj = sobj
	surf.scene = s.scene.NewSurface(&surf)
	surf.scale = 1
	sobj.OnDestroy(func() { s.destroySurface(&surf) })
	return nil
}

func (s *Server) destroySurface(surf *surface) {
	s.seat.surfaceGone(surf)
	s.scene.DestroySurface(surf.scene)
}

func (s *Server) createRegion(c *Client, obj *Object, args wire.Args) error {
	_, err := c.NewObject(args.NewID(0).ID, protocol.RegionInterface, obj.Version, &regionData{})
	return err
}

func regionAdd(c *Client, obj *Object, args wire.Args) error {
	rd := obj.Data.(*regionData)
	w, h := args.Int(2), args.Int(3)
	if (w <= 0) || (h <= 0) {
		return nil
	}
	rd.r = rd.r.Union(region.XYWH(int(args.Int(0)), int(args.Int(1)), int(w), int(h)))
	return nil
}

func regionSubtract(c *Client, obj *Object, args wire.Args) error {
	rd := obj.Data.(*regionData)
	w, h := args.Int(2), args.Int(3)
	if (w <= 0) || (h <= 0) {
		return nil
	}
	rd.r = rd.r.Subtract(region.XYWH(int(args.Int(0)), int(args.Int(1)), int(w), int(h)))
	return nil
}

func (s *Server) surfaceDestroy(c *Client, obj *Object, args wire.Args) error {
	surf := obj.Data.(*surface)
	if (surf.xdg != nil) && !surf.xdg.obj.Destroyed() {
		return protoErr(obj, protocol.SurfaceErrorDefunctRoleObject, "%v destroyed before its xdg_surface", obj)
	}
	return nil
}

func (s *Server) surfaceAttach(c *Client, obj *Object, args wire.Args) error {
	surf := obj.Data.(*surface)
	offset := image.Pt(int(args.Int(1)), int(args.Int(2)))
	if (obj.Version >= 5) && (offset != image.Point{}) {
		return protoErr(obj, protocol.SurfaceErrorInvalidOffset, "attach offset must be zero since version 5")
	}

	var b *scene.Buffer
	if buf, ok := argData[*buffer](c, args, 0); ok {
		b = buf.scene
	}

	err := surf.scene.Attach(b, offset)
	if errors.Is(err, scene.ErrZeroSize) {
		return protoErr(obj, protocol.SurfaceErrorInvalidSize, "%v", err)
	}
	return err
}

func (s *Server) surfaceDamage(c *Client, obj *Object, args wire.Args) error {
	surf := obj.Data.(*surface)
	r, ok := argRect(args, 0)
	if ok {
		surf.scene.Damage(r)
	}
	return nil
}

func (s *Server) surfaceDamageBuffer(c *Client, obj *Object, args wire.Args) error {
	surf := obj.Data.(*surface)
	r, ok := argRect(args, 0)
	if ok {
		surf.scene.DamageBuffer(r)
	}
	return nil
}

// argRect reads an x, y, width, height argument list starting at i.
// Rectangles with no area are reported as not ok.
func argRect(args wire.Args, i int) (image.Rectangle, bool) {
	x, y := int(args.Int(i)), int(args.Int(i+1))
	w, h := int(args.Int(i+2)), int(args.Int(i+3))
	if (w <= 0) || (h <= 0) {
		return image.Rectangle{}, false
	}
	return image.Rect(x, y, x+w, y+h), true
}

func (s *Server) surfaceFrame(c *Client, obj *Object, args wire.Args) error {
	surf := obj.Data.(*surface)
	done, err := newCallback(c, args.NewID(0).ID)
	if err != nil {
		return err
	}
	surf.scene.Frame(done)
	return nil
}

func (s *Server) surfaceSetOpaqueRegion(c *Client, obj *Object, args wire.Args) error {
	surf := obj.Data.(*surface)
	var r region.Region
	if rd, ok := argData[*regionData](c, args, 0); ok {
		r = rd.r
	}
	surf.scene.SetOpaqueRegion(r)
	return nil
}

func (s *Server) surfaceSetInputRegion(c *Client, obj *Object, args wire.Args) error {
	surf := obj.Data.(*surface)
	r := region.Infinite()
	if rd, ok := argData[*regionData](c, args, 0); ok {
		r = rd.r
	}
	surf.scene.SetInputRegion(r)
	return nil
}

func (s *Server) surfaceCommit(c *Client, obj *Object, args wire.Args) error {
	surf := obj.Data.(*surface)
	return surf.scene.Commit()
}

func (s *Server) surfaceSetBufferTransform(c *Client, obj *Object, args wire.Args) error {
	surf := obj.Data.(*surface)
	t := args.Int(0)
	if t < 0 {
		return protoErr(obj, protocol.SurfaceErrorInvalidTransform, "invalid transform %v", t)
	}
	err := surf.scene.SetBufferTransform(scene.Transform(t))
	if errors.Is(err, scene.ErrBadTransform) {
		return protoErr(obj, protocol.SurfaceErrorInvalidTransform, "invalid transform %v", t)
	}
	return err
}

func (s *Server) surfaceSetBufferScale(c *Client, obj *Object, args wire.Args) error {
	surf := obj.Data.(*surface)
	err := surf.scene.SetBufferScale(int(args.Int(0)))
	if errors.Is(err, scene.ErrBadScale) {
		return protoErr(obj, protocol.SurfaceErrorInvalidScale, "invalid scale %v", args.Int(0))
	}
	return err
}

func (s *Server) surfaceOffset(c *Client, obj *Object, args wire.Args) error {
	surf := obj.Data.(*surface)
	surf.scene.SetOffset(image.Pt(int(args.Int(0)), int(args.Int(1))))
	return nil
}
