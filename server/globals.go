package server

import (
	"fmt"

	"deedles.dev/oxyde/protocol"
	"deedles.dev/oxyde/wire"
	"golang.org/x/exp/slices"
)

// BindFunc is called when a client binds to a global. obj has already
// been created with the negotiated version.
type BindFunc func(c *Client, obj *Object) error

// Global is an object advertised through wl_registry.
type Global struct {
	Name      uint32
	Interface string
	Version   uint32

	bind BindFunc
}

func (s *Server) addGlobal(iface string, version uint32, bind BindFunc) (*Global, error) {
	if s.protocols.Interface(iface) == nil {
		return nil, fmt.Errorf("unknown interface %q", iface)
	}
	if limit, ok := s.opts.Versions[iface]; ok && (limit > 0) {
		version = min(version, limit)
	}

	s.nextName++
	g := Global{
		Name:      s.nextName,
		Interface: iface,
		Version:   version,
		bind:      bind,
	}
	s.globals = append(s.globals, &g)

	for c := range s.clients {
		for _, reg := range c.registries {
			reg.Send(protocol.RegistryEventGlobal, g.Name, g.Interface, g.Version)
		}
	}

	return &g, nil
}

func (s *Server) removeGlobal(name uint32) error {
	i := slices.IndexFunc(s.globals, func(g *Global) bool { return g.Name == name })
	if i < 0 {
		return ErrNoGlobal
	}
	s.globals = slices.Delete(s.globals, i, i+1)

	for c := range s.clients {
		for _, reg := range c.registries {
			reg.Send(protocol.RegistryEventGlobalRemove, name)
		}
	}
	return nil
}

func (s *Server) global(name uint32) *Global {
	i := slices.IndexFunc(s.globals, func(g *Global) bool { return g.Name == name })
	if i < 0 {
		return nil
	}
	return s.globals[i]
}

func (s *Server) bindRegistry(c *Client, reg *Object, args wire.Args) error {
	name := args.Uint(0)
	id := args.NewID(1)

	g := s.global(name)
	if g == nil {
		return protoErr(reg, protocol.DisplayErrorInvalidObject, "no global named %v", name)
	}
	if id.Interface != g.Interface {
		return protoErr(reg, protocol.DisplayErrorInvalidObject, "global %v is %v, not %v", name, g.Interface, id.Interface)
	}
	if id.Version == 0 {
		return protoErr(reg, protocol.DisplayErrorInvalidObject, "invalid version 0 for %v", g.Interface)
	}

	obj, err := c.NewObject(id.ID, g.Interface, min(id.Version, g.Version), nil)
	if err != nil {
		return err
	}
	if g.bind == nil {
		return nil
	}
	return g.bind(c, obj)
}
