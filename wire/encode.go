package wire

import (
	"errors"
	"fmt"
	"os"

	"deedles.dev/oxyde/internal/bin"
	"golang.org/x/sys/unix"
)

// MessageBuilder is a message that is under construction.
type MessageBuilder struct {
	// Method is the name of the method being called. It is included
	// purely for debugging purposes.
	Method string

	sender uint32
	op     uint16
	data   []byte
	fds    []int
	args   []any
	err    error
}

func NewMessage(sender uint32, op uint16) *MessageBuilder {
	return &MessageBuilder{
		sender: sender,
		op:     op,
		data:   make([]byte, HeaderSize, 64),
	}
}

func (mb *MessageBuilder) Sender() uint32 {
	return mb.sender
}

func (mb *MessageBuilder) Op() uint16 {
	return mb.op
}

func (mb *MessageBuilder) word(v uint32) {
	if mb.err != nil {
		return
	}
	mb.data = bin.Append(mb.data, v)
}

func (mb *MessageBuilder) WriteInt(v int32) {
	mb.word(uint32(v))
	mb.args = append(mb.args, v)
}

func (mb *MessageBuilder) WriteUint(v uint32) {
	mb.word(v)
	mb.args = append(mb.args, v)
}

func (mb *MessageBuilder) WriteFixed(v Fixed) {
	mb.word(uint32(v))
	mb.args = append(mb.args, v)
}

// WriteObject writes an object argument. An ID of zero is null.
func (mb *MessageBuilder) WriteObject(id uint32) {
	mb.word(id)
	mb.args = append(mb.args, ObjectID(id))
}

func (mb *MessageBuilder) WriteNewID(id uint32) {
	mb.word(id)
	mb.args = append(mb.args, NewID{ID: id})
}

// WriteUntypedNewID writes a new_id whose interface is given inline.
func (mb *MessageBuilder) WriteUntypedNewID(v NewID) {
	mb.block([]byte(v.Interface), true)
	mb.word(v.Version)
	mb.word(v.ID)
	mb.args = append(mb.args, v)
}

func (mb *MessageBuilder) block(v []byte, terminate bool) {
	if mb.err != nil {
		return
	}

	length := len(v)
	if terminate {
		length++
	}
	mb.data = bin.Append(mb.data, uint32(length))
	mb.data = append(mb.data, v...)
	if terminate {
		mb.data = append(mb.data, 0)
	}
	for range bin.Pad(length) {
		mb.data = append(mb.data, 0)
	}
}

func (mb *MessageBuilder) WriteString(v string) {
	mb.block([]byte(v), true)
	mb.args = append(mb.args, v)
}

// WriteNullString writes a null string, which is encoded as a length
// of zero with no data.
func (mb *MessageBuilder) WriteNullString() {
	mb.word(0)
	mb.args = append(mb.args, nil)
}

func (mb *MessageBuilder) WriteArray(v []byte) {
	mb.block(v, false)
	mb.args = append(mb.args, v)
}

// WriteFile queues a duplicate of v's file descriptor to be sent with
// the message. The caller retains ownership of v.
func (mb *MessageBuilder) WriteFile(v *os.File) {
	if mb.err != nil {
		return
	}

	fd, err := unix.FcntlInt(v.Fd(), unix.F_DUPFD_CLOEXEC, 0)
	if err != nil {
		mb.err = fmt.Errorf("dup fd: %w", err)
		return
	}
	mb.fds = append(mb.fds, fd)
	mb.args = append(mb.args, v)
}

// Encode writes args according to sig. A nil element is accepted for
// nullable strings and objects.
func (mb *MessageBuilder) Encode(sig Signature, args ...any) error {
	if len(args) != len(sig) {
		return fmt.Errorf("encode %v: expected %v arguments but got %v", mb.Method, len(sig), len(args))
	}

	for i, spec := range sig {
		if err := mb.encodeArg(spec, args[i]); err != nil {
			return fmt.Errorf("encode %v argument %q: %w", mb.Method, spec.Name, err)
		}
	}
	return mb.err
}

func (mb *MessageBuilder) encodeArg(spec ArgSpec, arg any) error {
	if arg == nil {
		switch {
		case !spec.Nullable:
			return errors.New("nil for non-nullable argument")
		case spec.Type == TypeString:
			mb.WriteNullString()
		case spec.Type == TypeObject:
			mb.WriteObject(0)
		default:
			return fmt.Errorf("nil for %v argument", spec.Type)
		}
		return nil
	}

	switch spec.Type {
	case TypeInt:
		v, ok := arg.(int32)
		if !ok {
			return typeError(spec, arg)
		}
		mb.WriteInt(v)
	case TypeUint:
		v, ok := arg.(uint32)
		if !ok {
			return typeError(spec, arg)
		}
		mb.WriteUint(v)
	case TypeFixed:
		v, ok := arg.(Fixed)
		if !ok {
			return typeError(spec, arg)
		}
		mb.WriteFixed(v)
	case TypeString:
		v, ok := arg.(string)
		if !ok {
			return typeError(spec, arg)
		}
		mb.WriteString(v)
	case TypeObject:
		switch v := arg.(type) {
		case ObjectID:
			if (v == 0) && !spec.Nullable {
				return errors.New("null object for non-nullable argument")
			}
			mb.WriteObject(uint32(v))
		case uint32:
			mb.WriteObject(v)
		default:
			return typeError(spec, arg)
		}
	case TypeNewID:
		switch v := arg.(type) {
		case NewID:
			if spec.Interface == "" {
				mb.WriteUntypedNewID(v)
				break
			}
			mb.WriteNewID(v.ID)
		case uint32:
			mb.WriteNewID(v)
		default:
			return typeError(spec, arg)
		}
	case TypeArray:
		v, ok := arg.([]byte)
		if !ok {
			return typeError(spec, arg)
		}
		mb.WriteArray(v)
	case TypeFD:
		v, ok := arg.(*os.File)
		if !ok {
			return typeError(spec, arg)
		}
		mb.WriteFile(v)
	default:
		return fmt.Errorf("bad signature type %v", spec.Type)
	}
	return nil
}

func typeError(spec ArgSpec, arg any) error {
	return fmt.Errorf("%T is not valid for %v", arg, spec.Type)
}

// Build finishes the message, returning the encoded frame and any
// file descriptors that must be sent with it. Ownership of the file
// descriptors passes to the caller. The MessageBuilder should not be
// used again after this method is called.
func (mb *MessageBuilder) Build() ([]byte, []int, error) {
	if (mb.err == nil) && (len(mb.data) > MaxMessageSize) {
		mb.err = fmt.Errorf("message %v is %v bytes, which exceeds the maximum of %v", mb.Method, len(mb.data), MaxMessageSize)
	}
	if (mb.err == nil) && (len(mb.fds) > MaxFDs) {
		mb.err = fmt.Errorf("message %v carries %v file descriptors", mb.Method, len(mb.fds))
	}
	if mb.err != nil {
		mb.Discard()
		return nil, nil, mb.err
	}

	h := Header{Sender: mb.sender, Op: mb.op, Size: uint16(len(mb.data))}
	h.Append(mb.data[:0])
	return mb.data, mb.fds, nil
}

// Discard closes any file descriptors that were duplicated for the
// message.
func (mb *MessageBuilder) Discard() {
	for _, fd := range mb.fds {
		unix.Close(fd)
	}
	mb.fds = nil
}

// Debug formats the message for protocol traces.
func (mb *MessageBuilder) Debug(sender string) string {
	return formatCall(sender, mb.Method, mb.args)
}
