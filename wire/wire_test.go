package wire

import (
	"net"
	"os"
	"testing"

	"deedles.dev/oxyde/internal/bin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func socketPair(t *testing.T) (*Conn, *Conn) {
	t.Helper()

	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	require.NoError(t, err)

	conns := make([]*Conn, 2)
	for i, fd := range fds {
		f := os.NewFile(uintptr(fd), "socketpair")
		c, err := net.FileConn(f)
		f.Close()
		require.NoError(t, err)

		conns[i], err = NewConn(c.(*net.UnixConn))
		require.NoError(t, err)
		t.Cleanup(func() { conns[i].Close() })
	}
	return conns[0], conns[1]
}

func TestParseHeader(t *testing.T) {
	tests := []struct {
		name string
		size uint16
		ok   bool
	}{
		{"minimal", 8, true},
		{"args", 20, true},
		{"max", MaxMessageSize, true},
		{"tooSmall", 4, false},
		{"unaligned", 10, false},
		{"tooLarge", MaxMessageSize + 4, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			buf := Header{Sender: 3, Op: 2, Size: test.size}.Append(nil)
			h, err := ParseHeader(buf)
			if !test.ok {
				var ferr FrameError
				assert.ErrorAs(t, err, &ferr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, Header{Sender: 3, Op: 2, Size: test.size}, h)
		})
	}

	_, err := ParseHeader([]byte{1, 2, 3})
	assert.Error(t, err)
}

var testSig = Signature{
	{Name: "i", Type: TypeInt},
	{Name: "u", Type: TypeUint},
	{Name: "f", Type: TypeFixed},
	{Name: "s", Type: TypeString},
	{Name: "ns", Type: TypeString, Nullable: true},
	{Name: "o", Type: TypeObject, Interface: "wl_surface", Nullable: true},
	{Name: "id", Type: TypeNewID, Interface: "wl_callback"},
	{Name: "a", Type: TypeArray},
	{Name: "any", Type: TypeNewID},
}

func TestRoundTrip(t *testing.T) {
	mb := NewMessage(7, 3)
	err := mb.Encode(testSig,
		int32(-5),
		uint32(42),
		FixedFloat(1.5),
		"hello",
		nil,
		ObjectID(0),
		uint32(9),
		[]byte{1, 2, 3},
		NewID{Interface: "wl_seat", Version: 7, ID: 10},
	)
	require.NoError(t, err)
	frame, fds, err := mb.Build()
	require.NoError(t, err)
	assert.Empty(t, fds)
	assert.Zero(t, len(frame)%4)

	buf, err := NewMessageBuffer(frame, nil)
	require.NoError(t, err)
	assert.Equal(t, uint32(7), buf.Sender())
	assert.Equal(t, uint16(3), buf.Op())

	args, err := buf.Decode(testSig)
	require.NoError(t, err)
	assert.Equal(t, int32(-5), args.Int(0))
	assert.Equal(t, uint32(42), args.Uint(1))
	assert.Equal(t, 1.5, args.Fixed(2).Float())
	assert.Equal(t, "hello", args.String(3))
	assert.Nil(t, args[4])
	assert.Equal(t, uint32(0), args.Object(5))
	assert.Equal(t, uint32(9), args.NewID(6).ID)
	assert.Equal(t, []byte{1, 2, 3}, args.Array(7))
	assert.Equal(t, NewID{Interface: "wl_seat", Version: 7, ID: 10}, args.NewID(8))

	re := NewMessage(7, 3)
	require.NoError(t, re.Encode(testSig, args...))
	again, _, err := re.Build()
	require.NoError(t, err)
	assert.Equal(t, frame, again)
}

func TestEmptyString(t *testing.T) {
	mb := NewMessage(1, 0)
	mb.WriteString("")
	frame, _, err := mb.Build()
	require.NoError(t, err)
	assert.Equal(t, 16, len(frame))

	buf, err := NewMessageBuffer(frame, nil)
	require.NoError(t, err)
	args, err := buf.Decode(Signature{{Type: TypeString}})
	require.NoError(t, err)
	assert.Equal(t, "", args[0])
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name  string
		build func(mb *MessageBuilder)
		sig   Signature
	}{
		{
			name:  "truncated",
			build: func(mb *MessageBuilder) { mb.WriteUint(1) },
			sig:   Signature{{Type: TypeUint}, {Type: TypeUint}},
		},
		{
			name:  "trailing",
			build: func(mb *MessageBuilder) { mb.WriteUint(1); mb.WriteUint(2) },
			sig:   Signature{{Type: TypeUint}},
		},
		{
			name:  "nullString",
			build: func(mb *MessageBuilder) { mb.WriteNullString() },
			sig:   Signature{{Type: TypeString}},
		},
		{
			name:  "nullObject",
			build: func(mb *MessageBuilder) { mb.WriteObject(0) },
			sig:   Signature{{Type: TypeObject, Interface: "wl_surface"}},
		},
		{
			name:  "arrayOverrun",
			build: func(mb *MessageBuilder) { mb.WriteUint(64) },
			sig:   Signature{{Type: TypeArray}},
		},
		{
			name:  "missingFD",
			build: func(mb *MessageBuilder) {},
			sig:   Signature{{Type: TypeFD}},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			mb := NewMessage(1, 0)
			test.build(mb)
			frame, _, err := mb.Build()
			require.NoError(t, err)

			buf, err := NewMessageBuffer(frame, nil)
			require.NoError(t, err)
			_, err = buf.Decode(test.sig)
			var derr DecodeError
			assert.ErrorAs(t, err, &derr)
		})
	}
}

func TestUnterminatedString(t *testing.T) {
	frame := Header{Sender: 1, Size: 16}.Append(nil)
	frame = bin.Append(frame, uint32(4))
	frame = append(frame, 'a', 'b', 'c', 'd')

	buf, err := NewMessageBuffer(frame, nil)
	require.NoError(t, err)
	_, err = buf.Decode(Signature{{Type: TypeString}})
	assert.Error(t, err)
}

func TestEncodeErrors(t *testing.T) {
	mb := NewMessage(1, 0)
	assert.Error(t, mb.Encode(Signature{{Type: TypeInt}}, "nope"))

	mb = NewMessage(1, 0)
	assert.Error(t, mb.Encode(Signature{{Type: TypeString}}, nil))

	mb = NewMessage(1, 0)
	assert.Error(t, mb.Encode(Signature{{Type: TypeInt}}))

	mb = NewMessage(1, 0)
	mb.WriteArray(make([]byte, MaxMessageSize))
	_, _, err := mb.Build()
	assert.Error(t, err)
}

func TestFDPassing(t *testing.T) {
	a, b := socketPair(t)

	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()

	sig := Signature{{Type: TypeUint}, {Type: TypeFD}}
	for i := range 3 {
		mb := NewMessage(2, uint16(i))
		require.NoError(t, mb.Encode(sig, uint32(i), w))
		frame, fds, err := mb.Build()
		require.NoError(t, err)
		require.Len(t, fds, 1)
		a.Queue(frame, fds)
	}
	assert.Equal(t, 36, a.Buffered())
	require.NoError(t, a.Flush())
	assert.Zero(t, a.Buffered())

	var frames [][]byte
	for len(frames) < 3 {
		got, err := b.ReadFrames()
		require.NoError(t, err)
		frames = append(frames, got...)
	}

	for i, frame := range frames {
		buf, err := NewMessageBuffer(frame, b)
		require.NoError(t, err)
		args, err := buf.Decode(sig)
		require.NoError(t, err)
		assert.Equal(t, uint32(i), args.Uint(0))

		f := args.File(1)
		_, err = f.Write([]byte{byte(i)})
		require.NoError(t, err)
		f.Close()
	}

	data := make([]byte, 3)
	n, err := r.Read(data)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 1, 2}, data[:n])
}

func TestPartialFrames(t *testing.T) {
	a, b := socketPair(t)

	mb := NewMessage(1, 0)
	mb.WriteString("partial")
	frame, _, err := mb.Build()
	require.NoError(t, err)

	_, err = a.conn.Write(frame[:5])
	require.NoError(t, err)
	go func() {
		a.conn.Write(frame[5:])
	}()

	frames, err := b.ReadFrames()
	require.NoError(t, err)
	require.Len(t, frames, 1)
	assert.Equal(t, frame, frames[0])
}

func TestMalformedStream(t *testing.T) {
	a, b := socketPair(t)

	_, err := a.conn.Write(Header{Sender: 1, Size: 6}.Append(nil))
	require.NoError(t, err)

	_, err = b.ReadFrames()
	var ferr FrameError
	assert.ErrorAs(t, err, &ferr)
}

func TestFlushWouldBlock(t *testing.T) {
	a, b := socketPair(t)

	mb := NewMessage(1, 0)
	mb.WriteArray(make([]byte, 2048))
	frame, _, err := mb.Build()
	require.NoError(t, err)

	for range 1024 {
		a.Queue(frame, nil)
	}
	assert.ErrorIs(t, a.Flush(), ErrWouldBlock)
	assert.NotZero(t, a.Buffered())

	done := make(chan error, 1)
	go func() { done <- a.Drain() }()

	var total int
	for total < 1024*len(frame) {
		frames, err := b.ReadFrames()
		require.NoError(t, err)
		for _, f := range frames {
			total += len(f)
		}
	}
	require.NoError(t, <-done)
	assert.Zero(t, a.Buffered())
}

func TestListen(t *testing.T) {
	dir := t.TempDir()

	l1, err := Listen(dir, "")
	require.NoError(t, err)
	defer l1.Close()
	assert.Equal(t, "wayland-0", l1.Name())

	l2, err := Listen(dir, "")
	require.NoError(t, err)
	assert.Equal(t, "wayland-1", l2.Name())

	_, err = Listen(dir, "wayland-0")
	assert.Error(t, err)

	require.NoError(t, l2.Close())
	_, err = os.Stat(l2.Path())
	assert.ErrorIs(t, err, os.ErrNotExist)

	done := make(chan *Conn, 1)
	go func() {
		c, err := l1.Accept()
		if err != nil {
			close(done)
			return
		}
		done <- c
	}()

	c, err := DialPath(l1.Path())
	require.NoError(t, err)
	defer c.Close()

	s := <-done
	require.NotNil(t, s)
	defer s.Close()

	cred, err := s.Credentials()
	require.NoError(t, err)
	assert.Equal(t, int32(os.Getpid()), cred.Pid)
}

func TestFixed(t *testing.T) {
	assert.Equal(t, Fixed(256), FixedInt(1))
	assert.Equal(t, 3, FixedFloat(3.75).Int())
	assert.Equal(t, -2.5, FixedFloat(-2.5).Float())
	assert.Equal(t, "0.5", FixedFloat(0.5).String())
}
