package wire

import (
	"errors"
	"fmt"
)

// ErrWouldBlock is returned by a non-blocking flush that could not
// write everything that was queued.
var ErrWouldBlock = errors.New("write would block")

// FrameError is returned when a message header is malformed. The
// stream can not be resynchronised after one of these.
type FrameError struct {
	Header Header
	Reason string
}

func (err FrameError) Error() string {
	return fmt.Sprintf("malformed message from %v (size %v): %v", err.Header.Sender, err.Header.Size, err.Reason)
}

// DecodeError is returned when a message's arguments don't match its
// signature.
type DecodeError struct {
	Sender uint32
	Op     uint16
	Reason string
}

func (err DecodeError) Error() string {
	return fmt.Sprintf("decode message %v.%v: %v", err.Sender, err.Op, err.Reason)
}

// UnknownOpError is returned if a message names an opcode that its
// target interface does not have.
type UnknownOpError struct {
	Interface string
	Type      string
	Op        uint16
}

func (err UnknownOpError) Error() string {
	return fmt.Sprintf("unknown %v opcode for %v: %v", err.Type, err.Interface, err.Op)
}

// UnknownSenderIDError is returned by an attempt to dispatch an
// incoming message that indicates a method call on an object that
// doesn't exist.
type UnknownSenderIDError struct {
	ID uint32
}

func (err UnknownSenderIDError) Error() string {
	return fmt.Sprintf("unknown sender object ID: %v", err.ID)
}
