package server

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"image"

	"deedles.dev/oxyde/internal/cq"
	"deedles.dev/oxyde/protocol"
	"deedles.dev/oxyde/scene"
	"github.com/google/uuid"
	"golang.org/x/exp/slices"
	"golang.org/x/image/draw"
)

// EventKind identifies what happened in an Event.
type EventKind int

const (
	MapEvent EventKind = iota + 1
	UnmapEvent
	TitleEvent
	AppIDEvent
	MoveEvent
	ResizeEvent
	MaximizeEvent
	UnmaximizeEvent
	FullscreenEvent
	UnfullscreenEvent
	MinimizeEvent
	UnminimizeEvent
	WindowMenuEvent
	UnresponsiveEvent
	ConnectEvent
	DisconnectEvent
)

func (k EventKind) String() string {
	switch k {
	case MapEvent:
		return "map"
	case UnmapEvent:
		return "unmap"
	case TitleEvent:
		return "title"
	case AppIDEvent:
		return "app_id"
	case MoveEvent:
		return "move"
	case ResizeEvent:
		return "resize"
	case MaximizeEvent:
		return "maximize"
	case UnmaximizeEvent:
		return "unmaximize"
	case FullscreenEvent:
		return "fullscreen"
	case UnfullscreenEvent:
		return "unfullscreen"
	case MinimizeEvent:
		return "minimize"
	case UnminimizeEvent:
		return "unminimize"
	case WindowMenuEvent:
		return "window_menu"
	case UnresponsiveEvent:
		return "unresponsive"
	case ConnectEvent:
		return "connect"
	case DisconnectEvent:
		return "disconnect"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event is something that a shell might want to react to, mostly
// requests from clients that are a matter of window management policy.
type Event struct {
	Kind    EventKind
	Surface scene.Handle
	Client  uuid.UUID

	// Text is the new title or app ID.
	Text string

	// Edges is the xdg_toplevel.resize_edge of a ResizeEvent.
	Edges uint32

	// Point is the surface-local position of a WindowMenuEvent.
	Point image.Point

	// Output is the name of the output requested by a FullscreenEvent,
	// if any.
	Output string
}

type subscriber struct {
	f     func(Event)
	queue *cq.Queue[Event]
}

func (sub *subscriber) run() {
	for {
		select {
		case <-sub.queue.Done():
			return
		case batch := <-sub.queue.Get():
			for _, ev := range batch {
				sub.f(ev)
			}
		}
	}
}

func (s *Server) emit(ev Event) {
	for sub := range s.subscribers {
		sub.queue.Post(ev)
	}
}

// GrabKind selects the input devices affected by Shell.GrabInput.
type GrabKind int

const (
	GrabPointer GrabKind = 1 << iota
	GrabKeyboard

	GrabAll = GrabPointer | GrabKeyboard
)

// SurfaceInfo describes a shown surface.
type SurfaceInfo struct {
	ID      scene.Handle
	Client  uuid.UUID
	Role    scene.Role
	Bounds  image.Rectangle
	Outputs []string

	// These are only set for toplevels. Geometry is the window
	// geometry in global coordinates.
	Title    string
	AppID    string
	States   []uint32
	Geometry image.Rectangle
}

// ClientInfo describes a connected client.
type ClientInfo struct {
	ID      uuid.UUID
	PID     int32
	Objects int
}

// Message is an event to be sent to a client by Shell.PostEvent.
type Message struct {
	Object uint32
	Opcode uint16
	Args   []any
}

// Shell is the interface through which shell components such as
// panels, docks and launchers observe and steer the compositor. Its
// methods may be called from any goroutine. They run on the reactor
// and wait for it, so they must not be called from a HandlerFunc or
// BindFunc.
type Shell struct {
	s *Server
}

func (s *Server) Shell() *Shell {
	return &Shell{s: s}
}

func (s *Server) surfaceByHandle(h scene.Handle) (*surface, error) {
	ss := s.scene.Surface(h)
	if ss == nil {
		return nil, ErrNoSurface
	}
	surf, ok := ss.Owner.(*surface)
	if !ok || surf.obj.Destroyed() {
		return nil, ErrNoSurface
	}
	return surf, nil
}

func (s *Server) clientByID(id uuid.UUID) *Client {
	for c := range s.clients {
		if c.ID == id {
			return c
		}
	}
	return nil
}

func (s *Server) surfaceInfo(v scene.View) SurfaceInfo {
	info := SurfaceInfo{
		ID:     v.Surface.Handle(),
		Role:   v.Role,
		Bounds: v.Bounds,
	}
	for _, o := range v.Outputs {
		info.Outputs = append(info.Outputs, o.Name)
	}
	slices.Sort(info.Outputs)

	surf, ok := v.Surface.Owner.(*surface)
	if !ok {
		return info
	}
	info.Client = surf.obj.client.ID
	if tl := surf.toplevel(); tl != nil {
		info.Title = tl.title
		info.AppID = tl.appID
		info.States = slices.Clone(tl.curStates)
		info.Geometry = tl.xs.windowGeometry().Add(v.Bounds.Min)
	}
	return info
}

// SceneSnapshot returns every shown surface from bottom to top.
func (sh *Shell) SceneSnapshot() (infos []SurfaceInfo, err error) {
	s := sh.s
	err = s.call(func() {
		for _, v := range s.scene.Snapshot() {
			infos = append(infos, s.surfaceInfo(v))
		}
	})
	return infos, err
}

// SurfacesOnOutput returns the surfaces shown on the named output from
// bottom to top.
func (sh *Shell) SurfacesOnOutput(name string) (infos []SurfaceInfo, err error) {
	s := sh.s
	cerr := s.call(func() {
		o := s.outputByName(name)
		if o == nil {
			err = fmt.Errorf("%w: %q", ErrNoOutput, name)
			return
		}
		for _, v := range s.scene.Snapshot() {
			if slices.Contains(v.Outputs, o) {
				infos = append(infos, s.surfaceInfo(v))
			}
		}
	})
	return infos, errors.Join(cerr, err)
}

// Focus gives keyboard focus to a surface. The zero handle removes
// focus.
func (sh *Shell) Focus(id scene.Handle) (err error) {
	s := sh.s
	cerr := s.call(func() {
		var surf *surface
		if id != 0 {
			surf, err = s.surfaceByHandle(id)
			if err != nil {
				return
			}
		}
		err = s.seat.focus(surf)
	})
	return errors.Join(cerr, err)
}

// GrabInput sends all input of the given kinds to a surface regardless
// of where the pointer is. The zero handle releases the grab.
func (sh *Shell) GrabInput(kind GrabKind, id scene.Handle) (err error) {
	s := sh.s
	cerr := s.call(func() {
		var surf *surface
		if id != 0 {
			surf, err = s.surfaceByHandle(id)
			if err != nil {
				return
			}
		}

		st := s.seat
		if kind&GrabKeyboard != 0 {
			st.keyboardGrab = surf
			if surf != nil {
				st.setKeyboardFocus(surf)
			}
		}
		if kind&GrabPointer != 0 {
			st.pointerGrab = surf
			if target := st.pointerTarget(); target != st.pointerFocus {
				st.setPointerFocus(target)
				st.updateCursor()
			}
		}
	})
	return errors.Join(cerr, err)
}

// RegisterGlobal advertises a new global. Requests on objects of
// interfaces that the server doesn't implement itself need handlers
// from Implement. It returns the global's name.
func (sh *Shell) RegisterGlobal(iface string, version uint32, bind BindFunc) (name uint32, err error) {
	s := sh.s
	cerr := s.call(func() {
		var g *Global
		g, err = s.addGlobal(iface, version, bind)
		if err == nil {
			name = g.Name
		}
	})
	return name, errors.Join(cerr, err)
}

// Implement sets the handler for a request.
func (sh *Shell) Implement(iface string, op uint16, h HandlerFunc) (err error) {
	s := sh.s
	cerr := s.call(func() {
		err = s.Implement(iface, op, h)
	})
	return errors.Join(cerr, err)
}

// RemoveGlobal withdraws a global. Objects that are already bound to
// it keep working.
func (sh *Shell) RemoveGlobal(name uint32) (err error) {
	s := sh.s
	cerr := s.call(func() {
		err = s.removeGlobal(name)
	})
	return errors.Join(cerr, err)
}

// PostEvent sends an event to one of a client's objects.
func (sh *Shell) PostEvent(client uuid.UUID, msg Message) (err error) {
	s := sh.s
	cerr := s.call(func() {
		c := s.clientByID(client)
		if c == nil {
			err = ErrNoClient
			return
		}
		obj, lerr := c.Object(msg.Object)
		if lerr != nil {
			err = fmt.Errorf("object %v: %w", msg.Object, lerr)
			return
		}
		err = c.queueEvent(obj, msg.Opcode, msg.Args...)
	})
	return errors.Join(cerr, err)
}

// Subscribe calls f with every event from now on until cancel is
// called. f is called on its own goroutine, in order.
func (sh *Shell) Subscribe(f func(Event)) (cancel func(), err error) {
	s := sh.s
	sub := subscriber{
		f:     f,
		queue: cq.New[Event](),
	}
	err = s.call(func() { s.subscribers.Add(&sub) })
	if err != nil {
		sub.queue.Stop()
		return nil, err
	}

	go sub.run()
	return func() {
		s.post(func() error {
			s.subscribers.Delete(&sub)
			return nil
		})
		sub.queue.Stop()
	}, nil
}

// Configure asks a toplevel to take on a size and set of
// xdg_toplevel.state values. A zero size lets the client choose. It
// returns the serial of the configure, or zero if the toplevel hasn't
// done its initial commit yet, in which case the state will be sent in
// response to it.
func (sh *Shell) Configure(id scene.Handle, size image.Point, states []uint32) (serial uint32, err error) {
	s := sh.s
	cerr := s.call(func() {
		surf, serr := s.surfaceByHandle(id)
		if serr != nil {
			err = serr
			return
		}
		tl := surf.toplevel()
		if tl == nil {
			err = ErrNotToplevel
			return
		}

		tl.size = size
		tl.states = slices.Clone(states)
		serial = tl.configure()
	})
	return serial, errors.Join(cerr, err)
}

// Close asks a toplevel to close.
func (sh *Shell) Close(id scene.Handle) (err error) {
	s := sh.s
	cerr := s.call(func() {
		surf, serr := s.surfaceByHandle(id)
		if serr != nil {
			err = serr
			return
		}
		tl := surf.toplevel()
		if tl == nil {
			err = ErrNotToplevel
			return
		}
		tl.obj.Send(protocol.XdgToplevelEventClose)
	})
	return errors.Join(cerr, err)
}

// Ping checks whether a client is responsive. If it doesn't answer
// within the ping timeout, an UnresponsiveEvent is emitted.
func (sh *Shell) Ping(client uuid.UUID) (err error) {
	s := sh.s
	cerr := s.call(func() {
		c := s.clientByID(client)
		if c == nil {
			err = ErrNoClient
			return
		}
		if !s.ping(c) {
			err = errors.New("client has not bound xdg_wm_base")
		}
	})
	return errors.Join(cerr, err)
}

// Move places a mapped surface so that its window geometry starts at
// p in global coordinates.
func (sh *Shell) Move(id scene.Handle, p image.Point) (err error) {
	s := sh.s
	cerr := s.call(func() {
		surf, serr := s.surfaceByHandle(id)
		if serr != nil {
			err = serr
			return
		}
		if surf.xdg != nil {
			p = p.Sub(surf.xdg.windowGeometry().Min)
		}
		s.scene.SetPosition(surf.scene, p)
	})
	return errors.Join(cerr, err)
}

// Raise moves a mapped surface to the top of the stack.
func (sh *Shell) Raise(id scene.Handle) (err error) {
	s := sh.s
	cerr := s.call(func() {
		surf, serr := s.surfaceByHandle(id)
		if serr != nil {
			err = serr
			return
		}
		s.scene.Raise(surf.scene)
	})
	return errors.Join(cerr, err)
}

func (sh *Shell) Clients() (infos []ClientInfo, err error) {
	s := sh.s
	err = s.call(func() {
		for c := range s.clients {
			info := ClientInfo{ID: c.ID, Objects: c.objects.Len()}
			if c.Cred != nil {
				info.PID = c.Cred.Pid
			}
			infos = append(infos, info)
		}
	})
	slices.SortFunc(infos, func(i1, i2 ClientInfo) int { return cmp.Compare(i1.PID, i2.PID) })
	return infos, err
}

// Thumbnail renders a surface's current buffer scaled to size. The
// scaling happens on the worker pool, and cb is called from a worker
// goroutine. If the surface's client disconnects in the meantime, cb
// gets ErrClientGone instead of an image.
func (sh *Shell) Thumbnail(id scene.Handle, size image.Point, cb func(image.Image, error)) error {
	s := sh.s
	if s.opts.Workers == nil {
		return ErrNoWorkers
	}
	if (size.X <= 0) || (size.Y <= 0) {
		return fmt.Errorf("invalid thumbnail size %v", size)
	}

	var (
		src    image.Image
		client *Client
		err    error
	)
	cerr := s.call(func() {
		surf, serr := s.surfaceByHandle(id)
		if serr != nil {
			err = serr
			return
		}
		b := surf.scene.Current().Buffer
		if b == nil {
			err = ErrNoContent
			return
		}
		src, err = b.Source.Image()
		client = surf.obj.client
	})
	if err := errors.Join(cerr, err); err != nil {
		return err
	}

	ok := s.opts.Workers.Submit(func(ctx context.Context) {
		dst := image.NewRGBA(image.Rectangle{Max: size})
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

		var gone bool
		err := s.call(func() { gone = client.closed })
		switch {
		case err != nil:
			cb(nil, err)
		case gone:
			cb(nil, ErrClientGone)
		default:
			cb(dst, nil)
		}
	})
	if !ok {
		return ErrNoWorkers
	}
	return nil
}
