package server

import (
	"errors"

	"deedles.dev/oxyde/protocol"
	"deedles.dev/oxyde/scene"
	"deedles.dev/oxyde/shm"
	"deedles.dev/oxyde/shm/shmimage"
	"deedles.dev/oxyde/wire"
)

// buffer is the data of a wl_buffer object.
type buffer struct {
	obj   *Object
	shm   *shm.Buffer
	scene *scene.Buffer
}

var shmFormats = []uint32{
	protocol.ShmFormatArgb8888,
	protocol.ShmFormatXrgb8888,
}

func (s *Server) implementShm() {
	s.implement(protocol.ShmInterface, map[uint16]HandlerFunc{
		protocol.ShmCreatePool: s.createPool,
		protocol.ShmRelease:    noop,
	})

	s.implement(protocol.ShmPoolInterface, map[uint16]HandlerFunc{
		protocol.ShmPoolCreateBuffer: s.createBuffer,
		protocol.ShmPoolDestroy:      noop,
		protocol.ShmPoolResize:       poolResize,
	})

	s.implement(protocol.BufferInterface, map[uint16]HandlerFunc{
		protocol.BufferDestroy: noop,
	})
}

func (s *Server) bindShm(c *Client, obj *Object) error {
	for _, f := range shmFormats {
		obj.Send(protocol.ShmEventFormat, f)
	}
	return nil
}

func (s *Server) createPool(c *Client, obj *Object, args wire.Args) error {
	pool, err := shm.NewPool(args.File(1), int(args.Int(2)))
	if err != nil {
		switch {
		case errors.Is(err, shm.ErrInvalidSize):
			return protoErr(obj, protocol.ShmErrorInvalidStride, "%v", err)
		case errors.Is(err, shm.ErrInvalidFD):
			return protoErr(obj, protocol.ShmErrorInvalidFd, "%v", err)
		default:
			return err
		}
	}

	pobj, err := c.NewObject(args.NewID(0).ID, protocol.ShmPoolInterface, obj.Version, pool)
	if err != nil {
		pool.Unref()
		return err
	}
	pobj.OnDestroy(func() {
		err := pool.Unref()
		if err != nil {
			c.log.WithError(err).WithField("object", pobj.String()).Warn("release shm pool")
		}
	})
	return nil
}

func poolResize(c *Client, obj *Object, args wire.Args) error {
	pool := obj.Data.(*shm.Pool)
	err := pool.Resize(int(args.Int(0)))
	if err != nil {
		switch {
		case errors.Is(err, shm.ErrShrink):
			return protoErr(obj, protocol.ShmErrorInvalidStride, "%v", err)
		case errors.Is(err, shm.ErrInvalidFD):
			return protoErr(obj, protocol.ShmErrorInvalidFd, "%v", err)
		default:
			return err
		}
	}
	return nil
}

func shmFormat(f uint32) (shmimage.Format, bool) {
	switch f {
	case protocol.ShmFormatArgb8888:
		return shmimage.ARGB8888, true
	case protocol.ShmFormatXrgb8888:
		return shmimage.XRGB8888, true
	default:
		return 0, false
	}
}

func (s *Server) createBuffer(c *Client, obj *Object, args wire.Args) error {
	pool := obj.Data.(*shm.Pool)

	wlFormat := args.Uint(5)
	format, ok := shmFormat(wlFormat)
	if !ok {
		return ProtocolError{Object: obj.ID, Code: protocol.ShmErrorInvalidFormat, Message: "unsupported format"}
	}

	sb, err := pool.NewBuffer(int(args.Int(1)), int(args.Int(2)), int(args.Int(3)), int(args.Int(4)), format)
	if err != nil {
		switch {
		case errors.Is(err, shm.ErrInvalidFormat):
			return protoErr(obj, protocol.ShmErrorInvalidFormat, "%v", err)
		case errors.Is(err, shm.ErrInvalidStride):
			return protoErr(obj, protocol.ShmErrorInvalidStride, "%v", err)
		default:
			return err
		}
	}

	buf := buffer{shm: sb}
	bobj, err := c.NewObject(args.NewID(0).ID, protocol.BufferInterface, 1, &buf)
	if err != nil {
		sb.Release()
		return err
	}
	buf.obj = bobj

	buf.scene = scene.NewBuffer(sb.Size(), wlFormat, sb)
	buf.scene.OnRelease = func() {
		bobj.Send(protocol.BufferEventRelease)
	}
	buf.scene.OnFree = func() {
		err := sb.Release()
		if err != nil {
			c.log.WithError(err).WithField("object", bobj.String()).Warn("release shm buffer")
		}
	}
	bobj.OnDestroy(buf.scene.Destroy)
	return nil
}
