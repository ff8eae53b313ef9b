// Package server implements the compositor's protocol core: it accepts
// Wayland clients, dispatches their requests against the scene, and
// schedules frames with a back-end.
//
// All protocol and scene state is owned by a single reactor goroutine
// running Serve. Client sockets, the listener, the back-end, the
// worker pool and the shell API only ever reach that state by posting
// closures to the reactor's queue.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"deedles.dev/oxyde/internal/cq"
	"deedles.dev/oxyde/internal/set"
	"deedles.dev/oxyde/internal/worker"
	"deedles.dev/oxyde/protocol"
	"deedles.dev/oxyde/scene"
	"deedles.dev/oxyde/wire"
	"github.com/sirupsen/logrus"
	"github.com/thejerf/suture/v4"
)

const (
	DefaultOutboundLimit = 4 << 20
	DefaultPingTimeout   = 10 * time.Second
	DefaultDrainTimeout  = time.Second
)

// Options configure a Server.
type Options struct {
	// Listener is the socket that clients connect to. It is closed when
	// the server stops.
	Listener *wire.Listener

	Backend Backend

	// Workers runs long jobs such as thumbnails. It is not started or
	// stopped by the server.
	Workers *worker.Pool

	// Protocols is the set of interfaces that the server knows about.
	// It defaults to protocol.Builtin.
	Protocols *protocol.Set

	// OutboundLimit is the number of bytes of events that can be queued
	// for a client that isn't reading before it is disconnected.
	OutboundLimit int

	Seat        string
	Keymap      string
	RepeatRate  int32
	RepeatDelay int32

	PingTimeout  time.Duration
	DrainTimeout time.Duration

	// Versions caps the advertised version of globals by interface
	// name.
	Versions map[string]uint32
}

// Server is a Wayland compositor core. It is a suture.Service.
type Server struct {
	opts      Options
	protocols *protocol.Set
	handlers  map[string][]HandlerFunc
	backend   Backend
	queue     *cq.Queue[func() error]
	epoch     time.Time
	start     sync.Once

	clients  set.Set[*Client]
	dirty    set.Set[*Client]
	globals  []*Global
	nextName uint32
	serial   uint32
	stopped  bool

	scene   *scene.Scene
	outputs map[*scene.Output]*outputGlobal
	armed   set.Set[*scene.Output]

	seat *seat

	// toplevels are the mapped toplevels in the order they were mapped.
	toplevels       []*xdgToplevel
	foreignManagers set.Set[*Object]

	subscribers set.Set[*subscriber]
}

// New creates a server. It does not start accepting clients until
// Serve is called.
func New(opts Options) (*Server, error) {
	if opts.Listener == nil {
		return nil, errors.New("no listener")
	}
	if opts.Backend == nil {
		return nil, errors.New("no back-end")
	}
	if opts.Protocols == nil {
		opts.Protocols = protocol.Builtin()
	}
	if opts.OutboundLimit <= 0 {
		opts.OutboundLimit = DefaultOutboundLimit
	}
	if opts.PingTimeout <= 0 {
		opts.PingTimeout = DefaultPingTimeout
	}
	if opts.DrainTimeout <= 0 {
		opts.DrainTimeout = DefaultDrainTimeout
	}
	if opts.Seat == "" {
		opts.Seat = "seat0"
	}

	s := Server{
		opts:        opts,
		protocols:   opts.Protocols,
		handlers:    make(map[string][]HandlerFunc),
		backend:     opts.Backend,
		queue:       cq.New[func() error](),
		epoch:       time.Now(),
		clients:     make(set.Set[*Client]),
		dirty:       make(set.Set[*Client]),
		outputs:     make(map[*scene.Output]*outputGlobal),
		armed:       make(set.Set[*scene.Output]),
		subscribers: make(set.Set[*subscriber]),

		foreignManagers: make(set.Set[*Object]),
	}
	s.scene = scene.New(&s)

	s.implementDisplay()
	s.implementCompositor()
	s.implementSubcompositor()
	s.implementShm()
	s.implementSeat()
	s.implementOutput()
	s.implementXdg()
	s.implementForeign()

	seat, err := newSeat(&s)
	if err != nil {
		return nil, err
	}
	s.seat = seat

	globals := []struct {
		iface   string
		version uint32
		bind    BindFunc
	}{
		{protocol.CompositorInterface, protocol.CompositorVersion, nil},
		{protocol.SubcompositorInterface, protocol.SubcompositorVersion, nil},
		{protocol.ShmInterface, protocol.ShmVersion, s.bindShm},
		{protocol.XdgWmBaseInterface, protocol.XdgWmBaseVersion, s.bindWmBase},
		{protocol.SeatInterface, protocol.SeatVersion, s.seat.bind},
		{protocol.ZwlrForeignToplevelManagerV1Interface, protocol.ZwlrForeignToplevelManagerV1Version, s.bindForeignManager},
	}
	for _, g := range globals {
		_, err := s.addGlobal(g.iface, g.version, g.bind)
		if err != nil {
			return nil, err
		}
	}

	for _, o := range s.backend.Outputs() {
		err := s.addOutput(o)
		if err != nil {
			return nil, err
		}
	}

	s.backend.Attach(&s)
	return &s, nil
}

// Serve runs the reactor until ctx is cancelled or the back-end fails.
func (s *Server) Serve(ctx context.Context) error {
	s.start.Do(func() { go s.accept() })

	for {
		select {
		case <-ctx.Done():
			s.shutdown(nil)
			return ctx.Err()

		case batch := <-s.queue.Get():
			errs := cq.Flush(batch)
			s.flush()

			if err := errors.Join(errs...); err != nil {
				logrus.WithError(err).Error("compositor failure, shutting down")
				s.shutdown(err)
				return fmt.Errorf("%w: %w", suture.ErrTerminateSupervisorTree, err)
			}
		}
	}
}

func (s *Server) String() string {
	return "reactor"
}

// post queues f to be run on the reactor. An error returned by f is
// fatal to the server. It returns false if the server has stopped.
func (s *Server) post(f func() error) bool {
	return s.queue.Post(f)
}

// call runs f on the reactor and waits for it to finish. It must not
// be called from the reactor.
func (s *Server) call(f func()) error {
	done := make(chan struct{})
	ok := s.post(func() error {
		defer close(done)
		f()
		return nil
	})
	if !ok {
		return ErrStopped
	}

	select {
	case <-done:
		return nil
	case <-s.queue.Done():
		return ErrStopped
	}
}

func (s *Server) accept() {
	for {
		conn, err := s.opts.Listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}

			logrus.WithError(err).Warn("accept failed")
			select {
			case <-s.queue.Done():
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		ok := s.post(func() error {
			s.addClient(conn)
			return nil
		})
		if !ok {
			conn.Close()
			return
		}
	}
}

func (s *Server) addClient(conn *wire.Conn) {
	if s.stopped {
		conn.Close()
		return
	}

	c := newClient(s, conn)
	s.clients.Add(c)
	c.log.Info("client connected")
	s.emit(Event{Kind: ConnectEvent, Client: c.ID})

	go c.listen()
}

func (s *Server) removeClient(c *Client) {
	s.clients.Delete(c)
	s.dirty.Delete(c)
	s.emit(Event{Kind: DisconnectEvent, Client: c.ID})
}

func (s *Server) markDirty(c *Client) {
	s.dirty.Add(c)
}

// flush writes out everything that was queued during a turn.
func (s *Server) flush() {
	for c := range s.dirty {
		c.flush()
	}
	clear(s.dirty)
}

// NextSerial returns a new serial for use in events.
func (s *Server) NextSerial() uint32 {
	s.serial++
	return s.serial
}

// now returns a millisecond timestamp for events.
func (s *Server) now() uint32 {
	return uint32(time.Since(s.epoch).Milliseconds())
}

// shutdown disconnects every client. If cause is not nil, clients are
// told that the compositor has failed.
func (s *Server) shutdown(cause error) {
	if s.stopped {
		return
	}
	s.stopped = true

	err := s.opts.Listener.Close()
	if err != nil {
		logrus.WithError(err).Warn("close listener")
	}

	clients := s.clients.Slice()
	for _, c := range clients {
		if cause != nil {
			c.display.Send(protocol.DisplayEventError, wire.ObjectID(1), protocol.DisplayErrorImplementation, "compositor shutting down")
		}
	}

	deadline := time.Now().Add(s.opts.DrainTimeout)
	var wg sync.WaitGroup
	for _, c := range clients {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.conn.SetWriteDeadline(deadline)
			c.conn.Drain()
		}()
	}
	wg.Wait()

	for _, c := range clients {
		c.close(cause)
	}

	s.seat.close()
	for sub := range s.subscribers {
		sub.queue.Stop()
	}
	s.queue.Stop()
}

// Implement sets the handler for a request. It can be used to add
// support for interfaces in Options.Protocols that the server doesn't
// implement itself. It must be called before Serve. Use
// Shell.Implement afterwards.
func (s *Server) Implement(iface string, op uint16, h HandlerFunc) error {
	pi := s.protocols.Interface(iface)
	if pi == nil {
		return fmt.Errorf("unknown interface %q", iface)
	}
	if int(op) >= len(pi.Requests) {
		return fmt.Errorf("%v has no request %v", iface, op)
	}

	table := s.handlers[iface]
	if table == nil {
		table = make([]HandlerFunc, len(pi.Requests))
		s.handlers[iface] = table
	}
	table[op] = h
	return nil
}

func (s *Server) implement(iface string, handlers map[uint16]HandlerFunc) {
	for op, h := range handlers {
		err := s.Implement(iface, op, h)
		if err != nil {
			panic(err)
		}
	}
}

func (s *Server) handler(iface string, op uint16) HandlerFunc {
	table := s.handlers[iface]
	if int(op) >= len(table) {
		return nil
	}
	return table[op]
}

// noop handles requests that need no work beyond what the dispatcher
// does, such as most destructors.
func noop(c *Client, obj *Object, args wire.Args) error {
	return nil
}
