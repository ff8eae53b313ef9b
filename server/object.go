package server

import (
	"fmt"

	"deedles.dev/oxyde/protocol"
	"deedles.dev/oxyde/wire"
)

// HandlerFunc handles a single request. args has been decoded against
// the request's signature, and every non-null object argument refers
// to a live object of the right interface.
type HandlerFunc func(c *Client, obj *Object, args wire.Args) error

// Object is a protocol object that belongs to a client.
type Object struct {
	ID        uint32
	Interface *protocol.Interface
	Version   uint32

	// Data is the state that backs the object, such as a surface.
	Data any

	client    *Client
	destroyed bool
	onDestroy []func()
}

func (obj *Object) String() string {
	return fmt.Sprintf("%v@%v", obj.Interface.Name, obj.ID)
}

func (obj *Object) Client() *Client {
	return obj.client
}

// Destroyed reports whether the object has been destroyed.
func (obj *Object) Destroyed() bool {
	return obj.destroyed
}

// OnDestroy registers f to be called when the object is destroyed,
// either by the client or because the client disconnected. Functions
// are called in the reverse of the order in which they were
// registered.
func (obj *Object) OnDestroy(f func()) {
	obj.onDestroy = append(obj.onDestroy, f)
}

// Supports reports whether the object's version is new enough for the
// event with the given opcode.
func (obj *Object) Supports(event uint16) bool {
	ev, err := obj.Interface.Event(event)
	if err != nil {
		return false
	}
	return uint32(ev.MinVersion()) <= obj.Version
}

// Send queues an event from the object. Events that are newer than the
// object's version are never sent.
func (obj *Object) Send(event uint16, args ...any) {
	if obj.destroyed {
		return
	}
	obj.client.send(obj, event, args...)
}

// argObject returns the object referred to by the object argument at i,
// or nil if the argument was null.
func (c *Client) argObject(args wire.Args, i int) *Object {
	id := args.Object(i)
	if id == 0 {
		return nil
	}
	obj, _ := c.objects.Lookup(id)
	return obj
}

// argData returns the backing data of the object argument at i.
func argData[T any](c *Client, args wire.Args, i int) (v T, ok bool) {
	obj := c.argObject(args, i)
	if obj == nil {
		return v, false
	}
	v, ok = obj.Data.(T)
	return v, ok
}
