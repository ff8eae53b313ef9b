// Package wire implements the Wayland wire protocol: message framing,
// argument encoding and decoding against interface signatures, and file
// descriptor passing over Unix domain sockets.
package wire

import (
	"fmt"
	"os"

	"deedles.dev/oxyde/internal/bin"
)

const (
	// HeaderSize is the size of a message header in bytes.
	HeaderSize = 8

	// MaxMessageSize is the largest message that will be accepted or
	// produced.
	MaxMessageSize = 4096

	// MaxFDs is the largest number of file descriptors that will be
	// sent alongside a single chunk of data.
	MaxFDs = 28
)

// Header is the fixed-size part at the start of every message.
type Header struct {
	Sender uint32
	Op     uint16
	Size   uint16
}

// ParseHeader decodes and validates the header at the start of buf.
func ParseHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, FrameError{Reason: "short header"}
	}

	so := bin.Get[uint32](buf[4:])
	h := Header{
		Sender: bin.Get[uint32](buf),
		Op:     uint16(so & 0xFFFF),
		Size:   uint16(so >> 16),
	}
	switch {
	case h.Size < HeaderSize:
		return h, FrameError{Header: h, Reason: "size smaller than header"}
	case h.Size%4 != 0:
		return h, FrameError{Header: h, Reason: "size not a multiple of 4"}
	case h.Size > MaxMessageSize:
		return h, FrameError{Header: h, Reason: "message too large"}
	}
	return h, nil
}

// Append appends the encoded header to buf.
func (h Header) Append(buf []byte) []byte {
	buf = bin.Append(buf, h.Sender)
	return bin.Append(buf, (uint32(h.Size)<<16)|uint32(h.Op))
}

// ArgType is the type of a single message argument.
type ArgType uint8

const (
	TypeInt ArgType = 1 + iota
	TypeUint
	TypeFixed
	TypeString
	TypeObject
	TypeNewID
	TypeArray
	TypeFD
)

func (t ArgType) String() string {
	switch t {
	case TypeInt:
		return "int"
	case TypeUint:
		return "uint"
	case TypeFixed:
		return "fixed"
	case TypeString:
		return "string"
	case TypeObject:
		return "object"
	case TypeNewID:
		return "new_id"
	case TypeArray:
		return "array"
	case TypeFD:
		return "fd"
	default:
		return fmt.Sprintf("ArgType(%d)", uint8(t))
	}
}

// ParseArgType maps a protocol XML type name to an ArgType.
func ParseArgType(v string) (ArgType, error) {
	switch v {
	case "int":
		return TypeInt, nil
	case "uint":
		return TypeUint, nil
	case "fixed":
		return TypeFixed, nil
	case "string":
		return TypeString, nil
	case "object":
		return TypeObject, nil
	case "new_id":
		return TypeNewID, nil
	case "array":
		return TypeArray, nil
	case "fd":
		return TypeFD, nil
	default:
		return 0, fmt.Errorf("unknown type: %q", v)
	}
}

// ArgSpec describes one argument of a request or event.
type ArgSpec struct {
	Name string
	Type ArgType

	// Interface is the interface of an object or new_id argument. An
	// empty interface on a new_id means that the interface and version
	// are transmitted inline.
	Interface string

	// Nullable is set for object and string arguments that may be
	// null.
	Nullable bool
}

// Signature is the argument list of a request or event.
type Signature []ArgSpec

// FDs returns the number of file descriptor arguments in s.
func (s Signature) FDs() (n int) {
	for _, arg := range s {
		if arg.Type == TypeFD {
			n++
		}
	}
	return n
}

// ObjectID is the decoded form of an object argument. Zero is null.
type ObjectID uint32

// NewID is the decoded form of a new_id argument. Interface and Version
// are only set when the signature doesn't name an interface.
type NewID struct {
	Interface string
	Version   uint32
	ID        uint32
}

// Args holds decoded arguments. Each element has the Go type matching
// its ArgType: int32, uint32, Fixed, string (nil for a null string),
// ObjectID, NewID, []byte or *os.File.
type Args []any

func (a Args) Int(i int) int32 {
	return a[i].(int32)
}

func (a Args) Uint(i int) uint32 {
	return a[i].(uint32)
}

func (a Args) Fixed(i int) Fixed {
	return a[i].(Fixed)
}

// String returns the string argument at i, or "" if it was null.
func (a Args) String(i int) string {
	v, _ := a[i].(string)
	return v
}

func (a Args) Object(i int) uint32 {
	return uint32(a[i].(ObjectID))
}

func (a Args) NewID(i int) NewID {
	return a[i].(NewID)
}

func (a Args) Array(i int) []byte {
	return a[i].([]byte)
}

func (a Args) File(i int) *os.File {
	return a[i].(*os.File)
}

// CloseFiles closes every file descriptor argument in a.
func (a Args) CloseFiles() {
	for _, arg := range a {
		if f, ok := arg.(*os.File); ok && (f != nil) {
			f.Close()
		}
	}
}
