package server

import (
	"fmt"

	"deedles.dev/oxyde/protocol"
	"deedles.dev/oxyde/scene"
	"deedles.dev/oxyde/wire"
	"golang.org/x/exp/slices"
)

// outputGlobal ties a scene output to its wl_output global and the
// objects that clients have bound to it.
type outputGlobal struct {
	out    *scene.Output
	global *Global
	bound  []*Object
}

func (s *Server) implementOutput() {
	s.implement(protocol.OutputInterface, map[uint16]HandlerFunc{
		protocol.OutputRelease: noop,
	})
}

// AddOutput adds an output to the scene and advertises it to clients.
// It is safe to call from any goroutine.
func (s *Server) AddOutput(o *scene.Output) error {
	var err error
	cerr := s.call(func() { err = s.addOutput(o) })
	if cerr != nil {
		return cerr
	}
	return err
}

// RemoveOutput removes an output. Surfaces that were on it receive
// leave events and its global is withdrawn. It is safe to call from
// any goroutine.
func (s *Server) RemoveOutput(o *scene.Output) error {
	var err error
	cerr := s.call(func() { err = s.removeOutput(o) })
	if cerr != nil {
		return cerr
	}
	return err
}

func (s *Server) addOutput(o *scene.Output) error {
	if _, ok := s.outputs[o]; ok {
		return fmt.Errorf("output %q already added", o.Name)
	}

	og := outputGlobal{out: o}
	g, err := s.addGlobal(protocol.OutputInterface, protocol.OutputVersion, func(c *Client, obj *Object) error {
		s.bindOutput(&og, c, obj)
		return nil
	})
	if err != nil {
		return err
	}
	og.global = g
	s.outputs[o] = &og

	s.scene.AddOutput(o)
	return nil
}

func (s *Server) removeOutput(o *scene.Output) error {
	og, ok := s.outputs[o]
	if !ok {
		return fmt.Errorf("output %q not found", o.Name)
	}

	s.scene.RemoveOutput(o)
	delete(s.outputs, o)
	s.armed.Delete(o)
	for _, obj := range og.bound {
		obj.Data = nil
	}
	return s.removeGlobal(og.global.Name)
}

// outputByName finds an output by its configured name.
func (s *Server) outputByName(name string) *scene.Output {
	for o := range s.outputs {
		if o.Name == name {
			return o
		}
	}
	return nil
}

func (s *Server) bindOutput(og *outputGlobal, c *Client, obj *Object) {
	obj.Data = og
	og.bound = append(og.bound, obj)
	obj.OnDestroy(func() {
		og.bound = slices.DeleteFunc(og.bound, func(b *Object) bool { return b == obj })
	})

	o := og.out
	obj.Send(protocol.OutputEventGeometry,
		int32(o.Position.X), int32(o.Position.Y),
		int32(o.PhysicalSize.X), int32(o.PhysicalSize.Y),
		int32(protocol.OutputSubpixelUnknown),
		o.Make, o.Model,
		int32(o.Transform),
	)
	obj.Send(protocol.OutputEventMode,
		protocol.OutputModeCurrent|protocol.OutputModePreferred,
		int32(o.Mode.X), int32(o.Mode.Y),
		int32(o.Refresh),
	)
	obj.Send(protocol.OutputEventScale, int32(max(o.Scale, 1)))
	obj.Send(protocol.OutputEventName, o.Name)
	obj.Send(protocol.OutputEventDescription, o.Description)
	obj.Send(protocol.OutputEventDone)

	// Surfaces that were already shown on the output before the client
	// bound it need to be told about it.
	for _, ss := range s.scene.SurfacesOnOutput(o) {
		surf := ss.Owner.(*surface)
		if surf.obj.client == c {
			surf.obj.Send(protocol.SurfaceEventEnter, wire.ObjectID(obj.ID))
		}
	}
}

// Enter implements scene.Listener.
func (s *Server) Enter(ss *scene.Surface, o *scene.Output) {
	s.sendOutputEvent(ss, o, protocol.SurfaceEventEnter)
}

// Leave implements scene.Listener.
func (s *Server) Leave(ss *scene.Surface, o *scene.Output) {
	s.sendOutputEvent(ss, o, protocol.SurfaceEventLeave)
}

func (s *Server) sendOutputEvent(ss *scene.Surface, o *scene.Output, event uint16) {
	surf, ok := ss.Owner.(*surface)
	if !ok || surf.obj.Destroyed() {
		return
	}

	if og := s.outputs[o]; og != nil {
		for _, obj := range og.bound {
			if obj.client == surf.obj.client {
				surf.obj.Send(event, wire.ObjectID(obj.ID))
			}
		}
	}
	s.updatePreferred(surf)

	if tl := surf.toplevel(); tl != nil {
		fev := protocol.ZwlrForeignToplevelHandleV1EventOutputEnter
		if event == protocol.SurfaceEventLeave {
			fev = protocol.ZwlrForeignToplevelHandleV1EventOutputLeave
		}
		tl.foreignOutput(o, fev)
	}
}

// updatePreferred tells a client the scale and transform that suit the
// outputs that its surface is on.
func (s *Server) updatePreferred(surf *surface) {
	scale := int32(1)
	var transform uint32
	for _, o := range surf.scene.Outputs() {
		if int32(o.Scale) > scale {
			scale = int32(o.Scale)
			transform = uint32(o.Transform)
		}
	}

	if scale != surf.scale {
		surf.scale = scale
		surf.obj.Send(protocol.SurfaceEventPreferredBufferScale, scale)
	}
	if transform != surf.transform {
		surf.transform = transform
		surf.obj.Send(protocol.SurfaceEventPreferredBufferTransform, transform)
	}
}
