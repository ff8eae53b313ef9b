// Package wltest provides a minimal Wayland client for testing the
// server over a real socket. It knows nothing about the semantics of
// any interface beyond wl_display and wl_registry. Tests send requests
// and inspect the events that come back.
package wltest

import (
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"testing"
	"time"

	"deedles.dev/oxyde/protocol"
	"deedles.dev/oxyde/wire"
	"github.com/stretchr/testify/require"
)

// Timeout is how long Next waits for an event.
var Timeout = 5 * time.Second

// Event is a decoded event.
type Event struct {
	Object    uint32
	Interface string
	Name      string
	Opcode    uint16
	Args      wire.Args
}

func (ev Event) String() string {
	return fmt.Sprintf("%v@%v.%v%v", ev.Interface, ev.Object, ev.Name, []any(ev.Args))
}

// Global is an advertised global.
type Global struct {
	Name      uint32
	Interface string
	Version   uint32
}

type Client struct {
	t         testing.TB
	conn      *wire.Conn
	protocols *protocol.Set
	events    chan Event
	closing   sync.Once
	listening sync.Once

	m       sync.Mutex
	objects map[uint32]string
	err     error

	nextID   uint32
	registry uint32
	globals  []Global
}

// Dial connects to the socket at path and starts reading events.
func Dial(t testing.TB, path string) *Client {
	c := DialPaused(t, path)
	c.Resume()
	return c
}

// DialPaused connects to the socket at path without reading anything
// from it until Resume is called.
func DialPaused(t testing.TB, path string) *Client {
	t.Helper()

	conn, err := wire.DialPath(path)
	require.NoError(t, err)

	c := Client{
		t:         t,
		conn:      conn,
		protocols: protocol.Builtin(),
		events:    make(chan Event, 1024),
		objects:   map[uint32]string{1: protocol.DisplayInterface},
		nextID:    2,
	}
	t.Cleanup(func() { c.Close() })
	return &c
}

// Resume starts reading events.
func (c *Client) Resume() {
	c.listening.Do(func() { go c.listen() })
}

func (c *Client) Close() error {
	var err error
	c.closing.Do(func() { err = c.conn.Close() })
	return err
}

func (c *Client) listen() {
	defer close(c.events)

	for {
		frames, err := c.conn.ReadFrames()
		for _, frame := range frames {
			ev, err := c.decode(frame)
			if err != nil {
				c.fail(err)
				return
			}
			c.events <- ev
		}
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				c.fail(err)
			}
			return
		}
	}
}

func (c *Client) fail(err error) {
	c.m.Lock()
	defer c.m.Unlock()

	if c.err == nil {
		c.err = err
	}
}

func (c *Client) decode(frame []byte) (Event, error) {
	msg, err := wire.NewMessageBuffer(frame, c.conn)
	if err != nil {
		return Event{}, err
	}

	c.m.Lock()
	iface, ok := c.objects[msg.Sender()]
	c.m.Unlock()
	if !ok {
		return Event{}, wire.UnknownSenderIDError{ID: msg.Sender()}
	}

	op, err := c.protocols.Interface(iface).Event(msg.Op())
	if err != nil {
		return Event{}, err
	}
	args, err := msg.Decode(op.Signature())
	if err != nil {
		return Event{}, fmt.Errorf("decode %v.%v: %w", iface, op.Name, err)
	}

	c.m.Lock()
	// Objects created by the server are known from then on.
	for i, spec := range op.Signature() {
		if (spec.Type == wire.TypeNewID) && (spec.Interface != "") {
			c.objects[args.NewID(i).ID] = spec.Interface
		}
	}
	if (msg.Sender() == 1) && (msg.Op() == protocol.DisplayEventDeleteId) {
		delete(c.objects, args.Uint(0))
	}
	c.m.Unlock()

	return Event{
		Object:    msg.Sender(),
		Interface: iface,
		Name:      op.Name,
		Opcode:    msg.Op(),
		Args:      args,
	}, nil
}

// New allocates an ID for a new object of the given interface.
func (c *Client) New(iface string) uint32 {
	id := c.nextID
	c.nextID++

	c.m.Lock()
	defer c.m.Unlock()

	c.objects[id] = iface
	return id
}

// Interface returns the interface of a live object, or an empty string
// if it has been deleted.
func (c *Client) Interface(id uint32) string {
	c.m.Lock()
	defer c.m.Unlock()

	return c.objects[id]
}

// Send sends a request. Arguments must have the types that wire
// expects for the request's signature.
func (c *Client) Send(id uint32, op uint16, args ...any) {
	c.t.Helper()
	require.NoError(c.t, c.TrySend(id, op, args...))
}

// TrySend is like Send but returns errors instead of failing the test.
func (c *Client) TrySend(id uint32, op uint16, args ...any) error {
	iface := c.Interface(id)
	if iface == "" {
		return fmt.Errorf("object %v has been deleted", id)
	}

	rop, err := c.protocols.Interface(iface).Request(op)
	if err != nil {
		return err
	}

	mb := wire.NewMessage(id, op)
	mb.Method = iface + "." + rop.Name
	err = mb.Encode(rop.Signature(), args...)
	if err != nil {
		mb.Discard()
		return err
	}
	frame, fds, err := mb.Build()
	if err != nil {
		return err
	}
	return c.Raw(frame, fds)
}

// SendAs sends a request to id as though it were an object of the
// given interface, even if the client believes it to be deleted.
func (c *Client) SendAs(iface string, id uint32, op uint16, args ...any) {
	c.t.Helper()

	c.m.Lock()
	old, ok := c.objects[id]
	c.objects[id] = iface
	c.m.Unlock()

	err := c.TrySend(id, op, args...)

	c.m.Lock()
	if ok {
		c.objects[id] = old
	} else {
		delete(c.objects, id)
	}
	c.m.Unlock()

	require.NoError(c.t, err)
}

// Raw writes an already encoded frame.
func (c *Client) Raw(frame []byte, fds []int) error {
	c.conn.Queue(frame, fds)
	err := c.conn.Flush()
	if errors.Is(err, wire.ErrWouldBlock) {
		c.conn.SetWriteDeadline(time.Now().Add(Timeout))
		err = c.conn.Drain()
	}
	return err
}

// Next returns the next event. It fails the test if none arrives in
// time. ok is false if the connection was closed.
func (c *Client) Next() (ev Event, ok bool) {
	c.t.Helper()

	select {
	case ev, ok := <-c.events:
		return ev, ok
	case <-time.After(Timeout):
		c.t.Fatal("timed out waiting for event")
		return Event{}, false
	}
}

// Expect reads events until one named name arrives from object id. A
// wl_display.error along the way fails the test unless it is what is
// being waited for.
func (c *Client) Expect(id uint32, name string) Event {
	c.t.Helper()

	for {
		ev, ok := c.Next()
		if !ok {
			c.t.Fatalf("connection closed while waiting for %v@%v.%v: %v", c.Interface(id), id, name, c.Err())
		}
		if (ev.Object == id) && (ev.Name == name) {
			return ev
		}
		if (ev.Object == 1) && (ev.Opcode == protocol.DisplayEventError) {
			c.t.Fatalf("unexpected protocol error: %v", ev)
		}
		c.observe(ev)
	}
}

// ExpectError waits for a wl_display.error and returns the object,
// code and message.
func (c *Client) ExpectError() (obj uint32, code uint32, msg string) {
	c.t.Helper()

	for {
		ev, ok := c.Next()
		if !ok {
			c.t.Fatalf("connection closed without a protocol error: %v", c.Err())
		}
		if (ev.Object == 1) && (ev.Opcode == protocol.DisplayEventError) {
			return uint32(ev.Args[0].(wire.ObjectID)), ev.Args.Uint(1), ev.Args.String(2)
		}
		c.observe(ev)
	}
}

// Roundtrip sends wl_display.sync and returns every event received
// before the callback fires.
func (c *Client) Roundtrip() []Event {
	c.t.Helper()

	cb := c.New(protocol.CallbackInterface)
	c.Send(1, protocol.DisplaySync, cb)

	var evs []Event
	for {
		ev, ok := c.Next()
		if !ok {
			c.t.Fatalf("connection closed during roundtrip: %v", c.Err())
		}
		if (ev.Object == cb) && (ev.Opcode == protocol.CallbackEventDone) {
			return evs
		}
		if (ev.Object == 1) && (ev.Opcode == protocol.DisplayEventError) {
			c.t.Fatalf("unexpected protocol error: %v", ev)
		}
		c.observe(ev)
		evs = append(evs, ev)
	}
}

// WaitClosed reads and discards events until the server closes the
// connection.
func (c *Client) WaitClosed() []Event {
	c.t.Helper()

	var evs []Event
	for {
		ev, ok := c.Next()
		if !ok {
			return evs
		}
		evs = append(evs, ev)
	}
}

// Err returns the error, if any, that stopped the reader.
func (c *Client) Err() error {
	c.m.Lock()
	defer c.m.Unlock()

	return c.err
}

func (c *Client) observe(ev Event) {
	if ev.Object != c.registry {
		return
	}

	switch ev.Opcode {
	case protocol.RegistryEventGlobal:
		c.globals = append(c.globals, Global{
			Name:      ev.Args.Uint(0),
			Interface: ev.Args.String(1),
			Version:   ev.Args.Uint(2),
		})
	case protocol.RegistryEventGlobalRemove:
		name := ev.Args.Uint(0)
		for i, g := range c.globals {
			if g.Name == name {
				c.globals = append(c.globals[:i], c.globals[i+1:]...)
				break
			}
		}
	}
}

// Registry creates a registry if necessary and returns its ID after
// waiting for the initial globals.
func (c *Client) Registry() uint32 {
	c.t.Helper()

	if c.registry == 0 {
		c.registry = c.New(protocol.RegistryInterface)
		c.Send(1, protocol.DisplayGetRegistry, c.registry)
		c.Roundtrip()
	}
	return c.registry
}

// Globals returns the globals currently known to be advertised.
func (c *Client) Globals() []Global {
	c.Registry()
	return c.globals
}

// Global returns the first advertised global with the given
// interface.
func (c *Client) Global(iface string) (Global, bool) {
	for _, g := range c.Globals() {
		if g.Interface == iface {
			return g, true
		}
	}
	return Global{}, false
}

// Bind binds the first global of the given interface at version, or
// at the advertised version if version is zero.
func (c *Client) Bind(iface string, version uint32) uint32 {
	c.t.Helper()

	g, ok := c.Global(iface)
	require.True(c.t, ok, "no %v global", iface)
	if version == 0 {
		version = g.Version
	}

	id := c.New(iface)
	c.Send(c.Registry(), protocol.RegistryBind, g.Name, wire.NewID{
		Interface: iface,
		Version:   version,
		ID:        id,
	})
	return id
}

// File returns a temporary file of the given size, suitable for a
// wl_shm pool.
func File(t testing.TB, size int) *os.File {
	t.Helper()

	file, err := os.CreateTemp(t.TempDir(), "pool")
	require.NoError(t, err)
	t.Cleanup(func() { file.Close() })
	require.NoError(t, file.Truncate(int64(size)))
	return file
}
