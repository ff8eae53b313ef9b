package wire

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"deedles.dev/oxyde/internal/bin"
)

// FDSource supplies file descriptors received alongside message data,
// in the order that they were received.
type FDSource interface {
	NextFD() (int, bool)
}

// MessageBuffer holds a single received message that has not yet been
// fully decoded. Read methods record the first error that occurs and
// do nothing afterwards.
type MessageBuffer struct {
	header Header
	data   []byte
	fds    FDSource
	err    error
	args   Args
}

// NewMessageBuffer wraps a complete frame, header included. fds may be
// nil if the message has no file descriptor arguments.
func NewMessageBuffer(frame []byte, fds FDSource) (*MessageBuffer, error) {
	h, err := ParseHeader(frame)
	if err != nil {
		return nil, err
	}
	if int(h.Size) != len(frame) {
		return nil, FrameError{Header: h, Reason: fmt.Sprintf("frame is %v bytes", len(frame))}
	}

	return &MessageBuffer{
		header: h,
		data:   frame[HeaderSize:],
		fds:    fds,
	}, nil
}

// Sender is the object ID of the sender of the message.
func (r *MessageBuffer) Sender() uint32 {
	return r.header.Sender
}

// Op is the opcode of the message.
func (r *MessageBuffer) Op() uint16 {
	return r.header.Op
}

// Size is the total size of the message, including the 8 byte header.
func (r *MessageBuffer) Size() uint16 {
	return r.header.Size
}

func (r *MessageBuffer) Err() error {
	return r.err
}

// Args returns the arguments decoded so far.
func (r *MessageBuffer) Args() Args {
	return r.args
}

func (r *MessageBuffer) fail(format string, args ...any) {
	if r.err != nil {
		return
	}
	r.err = DecodeError{
		Sender: r.header.Sender,
		Op:     r.header.Op,
		Reason: fmt.Sprintf(format, args...),
	}
}

func (r *MessageBuffer) word() (v uint32) {
	if r.err != nil {
		return 0
	}
	if len(r.data) < 4 {
		r.fail("message truncated")
		return 0
	}

	v = bin.Get[uint32](r.data)
	r.data = r.data[4:]
	return v
}

func (r *MessageBuffer) ReadInt() int32 {
	v := int32(r.word())
	r.args = append(r.args, v)
	return v
}

func (r *MessageBuffer) ReadUint() uint32 {
	v := r.word()
	r.args = append(r.args, v)
	return v
}

func (r *MessageBuffer) ReadFixed() Fixed {
	v := Fixed(r.word())
	r.args = append(r.args, v)
	return v
}

func (r *MessageBuffer) ReadObject(nullable bool) uint32 {
	v := r.word()
	if (v == 0) && !nullable {
		r.fail("null object for non-nullable argument")
	}
	r.args = append(r.args, ObjectID(v))
	return v
}

func (r *MessageBuffer) ReadNewID() uint32 {
	v := r.word()
	if v == 0 {
		r.fail("null new_id")
	}
	r.args = append(r.args, NewID{ID: v})
	return v
}

// ReadUntypedNewID reads a new_id whose interface is not fixed by the
// signature and so is transmitted as a string and version first.
func (r *MessageBuffer) ReadUntypedNewID() NewID {
	name, ok := r.str(false)
	version := r.word()
	id := r.word()
	if ok && (id == 0) {
		r.fail("null new_id")
	}

	v := NewID{Interface: name, Version: version, ID: id}
	r.args = append(r.args, v)
	return v
}

func (r *MessageBuffer) block() []byte {
	length := r.word()
	if r.err != nil {
		return nil
	}

	padded := int(length) + bin.Pad(int(length))
	if (int(length) > len(r.data)) || (padded > len(r.data)) {
		r.fail("length %v exceeds message size", length)
		return nil
	}

	v := r.data[:length:length]
	r.data = r.data[padded:]
	return v
}

func (r *MessageBuffer) str(nullable bool) (string, bool) {
	buf := r.block()
	if r.err != nil {
		return "", false
	}
	if len(buf) == 0 {
		if !nullable {
			r.fail("null string for non-nullable argument")
		}
		return "", false
	}
	if buf[len(buf)-1] != 0 {
		r.fail("string is not null-terminated")
		return "", false
	}

	return string(buf[:len(buf)-1]), true
}

// ReadString reads a string. A null string is recorded as nil in the
// decoded arguments and returned as "".
func (r *MessageBuffer) ReadString(nullable bool) string {
	v, ok := r.str(nullable)
	if !ok {
		r.args = append(r.args, nil)
		return ""
	}
	r.args = append(r.args, v)
	return v
}

func (r *MessageBuffer) ReadArray() []byte {
	buf := r.block()
	v := make([]byte, len(buf))
	copy(v, buf)
	r.args = append(r.args, v)
	return v
}

func (r *MessageBuffer) ReadFile() *os.File {
	if r.err != nil {
		return nil
	}

	if r.fds == nil {
		r.fail("no file descriptors available")
		return nil
	}
	fd, ok := r.fds.NextFD()
	if !ok {
		r.fail("no more file descriptors")
		return nil
	}

	f := os.NewFile(uintptr(fd), "")
	r.args = append(r.args, f)
	return f
}

// Decode reads every argument in sig and checks that nothing is left
// over. On failure, any file descriptors that were taken are closed.
func (r *MessageBuffer) Decode(sig Signature) (Args, error) {
	for _, arg := range sig {
		switch arg.Type {
		case TypeInt:
			r.ReadInt()
		case TypeUint:
			r.ReadUint()
		case TypeFixed:
			r.ReadFixed()
		case TypeString:
			r.ReadString(arg.Nullable)
		case TypeObject:
			r.ReadObject(arg.Nullable)
		case TypeNewID:
			if arg.Interface == "" {
				r.ReadUntypedNewID()
				continue
			}
			r.ReadNewID()
		case TypeArray:
			r.ReadArray()
		case TypeFD:
			r.ReadFile()
		default:
			r.fail("bad signature type %v", arg.Type)
		}
	}
	if (r.err == nil) && (len(r.data) != 0) {
		r.fail("%v trailing bytes", len(r.data))
	}

	if r.err != nil {
		r.args.CloseFiles()
		return nil, r.err
	}
	return r.args, nil
}

// Debug formats the decoded message for protocol traces.
func (r *MessageBuffer) Debug(sender, method string) string {
	return formatCall(sender, method, r.args)
}

func formatCall(sender, method string, args []any) string {
	strs := make([]string, 0, len(args))
	for _, arg := range args {
		switch arg := arg.(type) {
		case nil:
			strs = append(strs, "nil")
		case string:
			strs = append(strs, strconv.Quote(arg))
		case *os.File:
			strs = append(strs, fmt.Sprintf("fd %v", arg.Fd()))
		case ObjectID:
			if arg == 0 {
				strs = append(strs, "nil")
				continue
			}
			strs = append(strs, fmt.Sprintf("object %v", uint32(arg)))
		case NewID:
			if arg.Interface != "" {
				strs = append(strs, fmt.Sprintf("new id %v@%v (v%v)", arg.Interface, arg.ID, arg.Version))
				continue
			}
			strs = append(strs, fmt.Sprintf("new id %v", arg.ID))
		case []byte:
			strs = append(strs, fmt.Sprintf("array[%v]", len(arg)))
		default:
			strs = append(strs, fmt.Sprint(arg))
		}
	}

	return fmt.Sprintf("%v.%v(%v)", sender, method, strings.Join(strs, ", "))
}
