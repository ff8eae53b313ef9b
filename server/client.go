package server

import (
	"cmp"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"deedles.dev/oxyde/internal/debug"
	"deedles.dev/oxyde/internal/objstore"
	"deedles.dev/oxyde/protocol"
	"deedles.dev/oxyde/wire"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/exp/slices"
	"golang.org/x/sys/unix"
)

// Client is a connected Wayland client. Its methods must only be
// called on the reactor.
type Client struct {
	ID   uuid.UUID
	Cred *unix.Ucred

	server  *Server
	conn    *wire.Conn
	objects *objstore.Store[*Object]
	display *Object
	log     *logrus.Entry

	registries []*Object
	wmBases    []*wmBase

	closed     bool
	reason     error
	draining   bool
	overflowed bool
}

func newClient(s *Server, conn *wire.Conn) *Client {
	c := Client{
		ID:      uuid.New(),
		server:  s,
		conn:    conn,
		objects: objstore.New[*Object](),
	}

	fields := logrus.Fields{"client": c.ID}
	cred, err := conn.Credentials()
	if err != nil {
		logrus.WithFields(fields).WithError(err).Warn("get peer credentials")
	} else {
		c.Cred = cred
		fields["pid"] = cred.Pid
	}
	c.log = logrus.WithFields(fields)

	c.display = &Object{
		ID:        1,
		Interface: s.protocols.Interface(protocol.DisplayInterface),
		Version:   1,
		client:    &c,
	}
	c.objects.Insert(1, objstore.ClientSide, c.display)

	return &c
}

// Closed reports whether the client has been disconnected.
func (c *Client) Closed() bool {
	return c.closed
}

func (c *Client) listen() {
	for {
		frames, err := c.conn.ReadFrames()
		if len(frames) > 0 {
			ok := c.server.post(func() error {
				c.dispatchAll(frames)
				return nil
			})
			if !ok {
				return
			}
		}

		if err != nil {
			c.server.post(func() error {
				c.readFailed(err)
				return nil
			})
			return
		}
	}
}

func (c *Client) readFailed(err error) {
	if c.closed {
		return
	}

	var ferr wire.FrameError
	switch {
	case errors.As(err, &ferr):
		c.fail(err)
	case errors.Is(err, net.ErrClosed), errors.Is(err, io.EOF), errors.Is(err, unix.ECONNRESET):
		c.close(nil)
	default:
		c.log.WithError(err).Warn("read failed")
		c.close(err)
	}
}

func (c *Client) dispatchAll(frames [][]byte) {
	for _, frame := range frames {
		if c.closed {
			return
		}

		err := c.dispatch(frame)
		if err != nil {
			c.fail(err)
			return
		}
	}
}

func (c *Client) dispatch(frame []byte) error {
	msg, err := wire.NewMessageBuffer(frame, c.conn)
	if err != nil {
		return err
	}

	obj, state := c.objects.Get(msg.Sender())
	if state == objstore.Missing {
		return wire.UnknownSenderIDError{ID: msg.Sender()}
	}

	op, err := obj.Interface.Request(msg.Op())
	if err != nil {
		if state == objstore.Zombie {
			return nil
		}
		return protoErr(obj, protocol.DisplayErrorInvalidMethod, "%v", err)
	}
	args, err := msg.Decode(op.Signature())
	if err != nil {
		return protoErr(obj, protocol.DisplayErrorInvalidMethod, "%v.%v: %v", obj, op.Name, err)
	}
	debug.Printf("[%v] %v", c.ID, msg.Debug(obj.String(), op.Name))

	// The fds of a request to a zombie still have to be taken off the
	// connection.
	if state == objstore.Zombie {
		args.CloseFiles()
		return nil
	}

	if uint32(op.MinVersion()) > obj.Version {
		args.CloseFiles()
		return protoErr(obj, protocol.DisplayErrorInvalidMethod, "%v.%v requires version %v", obj, op.Name, op.MinVersion())
	}

	drop, err := c.checkObjects(op.Signature(), args)
	if drop || (err != nil) {
		args.CloseFiles()
		return err
	}

	h := c.server.handler(obj.Interface.Name, msg.Op())
	if h == nil {
		args.CloseFiles()
		return fmt.Errorf("%v.%v is not implemented", obj.Interface.Name, op.Name)
	}

	err = h(c, obj, args)
	if err != nil {
		args.CloseFiles()
		return err
	}

	if op.IsDestructor() {
		c.destroy(obj, true)
	}
	return nil
}

// checkObjects makes sure that every object argument refers to a live
// object of the right interface. A reference to a zombie means the
// message was sent before the client learned of the destruction, so
// the message is dropped.
func (c *Client) checkObjects(sig wire.Signature, args wire.Args) (drop bool, err error) {
	for i, spec := range sig {
		if spec.Type != wire.TypeObject {
			continue
		}
		id := args.Object(i)
		if id == 0 {
			continue
		}

		arg, state := c.objects.Get(id)
		switch state {
		case objstore.Missing:
			return false, ProtocolError{Object: 1, Code: protocol.DisplayErrorInvalidObject, Message: fmt.Sprintf("invalid object %v for argument %q", id, spec.Name)}
		case objstore.Zombie:
			return true, nil
		}
		if (spec.Interface != "") && (arg.Interface.Name != spec.Interface) {
			return false, ProtocolError{Object: 1, Code: protocol.DisplayErrorInvalidObject, Message: fmt.Sprintf("%v is not a %v", arg, spec.Interface)}
		}
	}
	return false, nil
}

// NewObject creates a client-allocated object.
func (c *Client) NewObject(id uint32, iface string, version uint32, data any) (*Object, error) {
	pi := c.server.protocols.Interface(iface)
	if pi == nil {
		return nil, fmt.Errorf("unknown interface %q", iface)
	}

	obj := Object{
		ID:        id,
		Interface: pi,
		Version:   version,
		Data:      data,
		client:    c,
	}
	err := c.objects.Insert(id, objstore.ClientSide, &obj)
	if err != nil {
		return nil, ProtocolError{Object: 1, Code: protocol.DisplayErrorInvalidObject, Message: fmt.Sprintf("invalid new id %v: %v", id, err)}
	}
	return &obj, nil
}

// newServerObject creates an object with a server-allocated ID, such
// as one announced by a new_id argument of an event.
func (c *Client) newServerObject(iface string, version uint32, data any) (*Object, error) {
	pi := c.server.protocols.Interface(iface)
	if pi == nil {
		return nil, fmt.Errorf("unknown interface %q", iface)
	}

	id, err := c.objects.NewServerID()
	if err != nil {
		return nil, err
	}
	obj := Object{
		ID:        id,
		Interface: pi,
		Version:   version,
		Data:      data,
		client:    c,
	}
	err = c.objects.Insert(id, objstore.ServerSide, &obj)
	if err != nil {
		return nil, err
	}
	return &obj, nil
}

// Object returns the live object with the given ID.
func (c *Client) Object(id uint32) (*Object, error) {
	return c.objects.Lookup(id)
}

// Destroy destroys obj on the server's initiative, such as after a
// wl_callback is done. Requests that the client sends to it before
// it sees the delete_id event are ignored.
func (obj *Object) Destroy() {
	obj.client.destroy(obj, false)
}

func (c *Client) destroy(obj *Object, byClient bool) {
	if obj.destroyed {
		return
	}
	obj.destroyed = true

	hooks := obj.onDestroy
	obj.onDestroy = nil
	for i := len(hooks) - 1; i >= 0; i-- {
		hooks[i]()
	}

	if c.closed || byClient {
		c.objects.Destroy(obj.ID)
	} else {
		c.objects.Zombie(obj.ID)
	}

	if !c.closed && (objstore.SideOf(obj.ID) == objstore.ClientSide) {
		c.display.Send(protocol.DisplayEventDeleteId, obj.ID)
	}
}

func (c *Client) send(obj *Object, event uint16, args ...any) {
	err := c.queueEvent(obj, event, args...)
	if err != nil {
		c.log.WithError(err).WithField("object", obj.String()).Error("send event")
		c.postError(ProtocolError{Object: 1, Code: protocol.DisplayErrorImplementation, Message: "compositor error"})
	}
}

// queueEvent encodes an event and queues it for the next flush. Events
// that are newer than the object's version are silently skipped.
func (c *Client) queueEvent(obj *Object, event uint16, args ...any) error {
	if c.closed {
		return nil
	}

	ev, err := obj.Interface.Event(event)
	if err != nil {
		return err
	}
	if uint32(ev.MinVersion()) > obj.Version {
		return nil
	}

	mb := wire.NewMessage(obj.ID, event)
	mb.Method = ev.Name
	err = mb.Encode(ev.Signature(), args...)
	if err != nil {
		mb.Discard()
		return err
	}
	frame, fds, err := mb.Build()
	if err != nil {
		return err
	}

	debug.Printf("[%v]  -> %v", c.ID, mb.Debug(obj.String()))
	c.conn.Queue(frame, fds)
	c.server.markDirty(c)

	if !c.overflowed && (c.conn.Buffered() > c.server.opts.OutboundLimit) {
		c.overflowed = true
		c.log.WithField("buffered", c.conn.Buffered()).Warn("outbound buffer limit exceeded")
		c.postError(ProtocolError{Object: 1, Code: protocol.DisplayErrorImplementation, Message: "outbound buffer limit exceeded"})
	}
	return nil
}

// fail reports an error from one of the client's requests to the
// client and disconnects it.
func (c *Client) fail(err error) {
	perr, fault := toProtocolError(err)
	if fault {
		c.log.WithError(err).Error("compositor fault while handling request")
	} else {
		c.log.WithError(err).Warn("protocol error")
	}
	c.postError(perr)
}

func (c *Client) postError(perr ProtocolError) {
	if c.closed {
		return
	}

	c.display.Send(protocol.DisplayEventError, wire.ObjectID(perr.Object), perr.Code, perr.Message)
	c.conn.Flush()
	c.close(perr)
}

// flush writes queued events without blocking. If the socket is full,
// a goroutine waits for it to become writable.
func (c *Client) flush() {
	if c.closed || c.draining {
		return
	}

	err := c.conn.Flush()
	switch {
	case err == nil:
	case errors.Is(err, wire.ErrWouldBlock):
		c.draining = true
		go c.drain()
	default:
		c.log.WithError(err).Info("write failed")
		c.close(err)
	}
}

func (c *Client) drain() {
	err := c.conn.Drain()
	c.server.post(func() error {
		c.draining = false
		if c.closed {
			return nil
		}
		if err != nil {
			c.log.WithError(err).Info("write failed")
			c.close(err)
			return nil
		}

		c.flush()
		return nil
	})
}

// close disconnects the client and destroys all of its objects, newest
// first.
func (c *Client) close(reason error) {
	if c.closed {
		return
	}
	c.closed = true
	c.reason = reason

	var objs []*Object
	c.objects.Range(func(id uint32, obj *Object) bool {
		objs = append(objs, obj)
		return true
	})
	slices.SortFunc(objs, func(o1, o2 *Object) int { return cmp.Compare(o2.ID, o1.ID) })
	for _, obj := range objs {
		c.destroy(obj, true)
	}

	c.closeConn()
	c.server.removeClient(c)

	entry := c.log
	if reason != nil {
		entry = entry.WithField("reason", reason)
	}
	entry.Info("client disconnected")
}

// closeConn closes the connection once everything queued on it, usually
// a final error, has been written or the drain timeout has passed.
func (c *Client) closeConn() {
	if c.conn.Buffered() == 0 {
		err := c.conn.Close()
		if err != nil {
			c.log.WithError(err).Debug("close connection")
		}
		return
	}

	deadline := time.Now().Add(c.server.opts.DrainTimeout)
	go func() {
		c.conn.SetWriteDeadline(deadline)
		err := c.conn.Drain()
		if err != nil {
			c.log.WithError(err).Debug("drain before close")
		}
		c.conn.Close()
	}()
}
