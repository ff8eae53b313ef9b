package server

import (
	"deedles.dev/oxyde/protocol"
	"deedles.dev/oxyde/wire"
	"golang.org/x/exp/slices"
)

func (s *Server) implementDisplay() {
	s.implement(protocol.DisplayInterface, map[uint16]HandlerFunc{
		protocol.DisplaySync:        s.sync,
		protocol.DisplayGetRegistry: s.getRegistry,
	})
	s.implement(protocol.RegistryInterface, map[uint16]HandlerFunc{
		protocol.RegistryBind: s.bindRegistry,
	})
}

// sync is answered immediately. Every request that the client sent
// before it has already been handled by the time the callback fires
// because requests are dispatched in order.
func (s *Server) sync(c *Client, obj *Object, args wire.Args) error {
	cb, err := c.NewObject(args.NewID(0).ID, protocol.CallbackInterface, 1, nil)
	if err != nil {
		return err
	}
	cb.Send(protocol.CallbackEventDone, s.serial)
	cb.Destroy()
	return nil
}

func (s *Server) getRegistry(c *Client, obj *Object, args wire.Args) error {
	reg, err := c.NewObject(args.NewID(0).ID, protocol.RegistryInterface, 1, nil)
	if err != nil {
		return err
	}

	c.registries = append(c.registries, reg)
	reg.OnDestroy(func() {
		c.registries = slices.DeleteFunc(c.registries, func(r *Object) bool { return r == reg })
	})

	for _, g := range s.globals {
		reg.Send(protocol.RegistryEventGlobal, g.Name, g.Interface, g.Version)
	}
	return nil
}

// newCallback creates a wl_callback that is fired and destroyed by
// calling the returned function.
func newCallback(c *Client, id uint32) (func(data uint32), error) {
	cb, err := c.NewObject(id, protocol.CallbackInterface, 1, nil)
	if err != nil {
		return nil, err
	}
	return func(data uint32) {
		if cb.Destroyed() {
			return
		}
		cb.Send(protocol.CallbackEventDone, data)
		cb.Destroy()
	}, nil
}
