package wire

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/adrg/xdg"
	"golang.org/x/sys/unix"
)

// SocketPath determines the path to the Wayland Unix domain socket
// based on the contents of the $WAYLAND_DISPLAY environment variable.
// It does not attempt to determine if the value corresponds to an
// actual socket.
func SocketPath() string {
	v, ok := os.LookupEnv("WAYLAND_DISPLAY")
	if !ok {
		v = "wayland-0"
	}
	if filepath.IsAbs(v) {
		return v
	}

	return filepath.Join(xdg.RuntimeDir, v)
}

type chunk struct {
	data []byte
	fds  []int
}

// Conn is one end of a Wayland connection. Reading and writing are
// independent of each other: a single goroutine may call ReadFrames
// while another queues and flushes outgoing messages.
type Conn struct {
	conn *net.UnixConn
	raw  syscall.RawConn

	rbuf []byte
	oob  []byte

	inm   sync.Mutex
	infds []int

	outm   sync.Mutex
	out    []chunk
	outLen int
}

// NewConn creates a new Conn that wraps c. After this is called, use
// the provided Close method to close c instead of calling its own
// Close method.
func NewConn(c *net.UnixConn) (*Conn, error) {
	raw, err := c.SyscallConn()
	if err != nil {
		return nil, fmt.Errorf("get raw connection: %w", err)
	}

	return &Conn{
		conn: c,
		raw:  raw,
		oob:  make([]byte, unix.CmsgSpace(MaxFDs*4)),
	}, nil
}

// Dial opens a connection to the Wayland socket based on the current
// environment.
func Dial() (*Conn, error) {
	return DialPath(SocketPath())
}

// DialPath opens a connection to the Wayland socket at path.
func DialPath(path string) (*Conn, error) {
	if v, ok := os.LookupEnv("WAYLAND_SOCKET"); ok && (path == SocketPath()) {
		fd, err := strconv.ParseInt(v, 10, 0)
		if err != nil {
			return nil, fmt.Errorf("parse WAYLAND_SOCKET fd: %w", err)
		}
		file := os.NewFile(uintptr(fd), "WAYLAND_SOCKET")
		defer file.Close()

		c, err := net.FileConn(file)
		if err != nil {
			return nil, fmt.Errorf("open WAYLAND_SOCKET connection: %w", err)
		}
		return NewConn(c.(*net.UnixConn))
	}

	c, err := net.DialUnix("unix", nil, &net.UnixAddr{Name: path, Net: "unix"})
	if err != nil {
		return nil, err
	}
	return NewConn(c)
}

// Close closes the underlying connection along with any file
// descriptors that were received but not consumed or queued but not
// sent.
func (c *Conn) Close() error {
	c.inm.Lock()
	for _, fd := range c.infds {
		unix.Close(fd)
	}
	c.infds = nil
	c.inm.Unlock()

	c.outm.Lock()
	for _, ch := range c.out {
		for _, fd := range ch.fds {
			unix.Close(fd)
		}
	}
	c.out = nil
	c.outLen = 0
	c.outm.Unlock()

	return c.conn.Close()
}

// Credentials returns the process credentials of the peer.
func (c *Conn) Credentials() (cred *unix.Ucred, err error) {
	cerr := c.raw.Control(func(fd uintptr) {
		cred, err = unix.GetsockoptUcred(int(fd), unix.SOL_SOCKET, unix.SO_PEERCRED)
	})
	return cred, errors.Join(cerr, err)
}

func (c *Conn) readFDs(data []byte) error {
	cmsgs, err := unix.ParseSocketControlMessage(data)
	if err != nil {
		return fmt.Errorf("parse socket control messages: %w", err)
	}

	c.inm.Lock()
	defer c.inm.Unlock()

	for _, cmsg := range cmsgs {
		fds, err := unix.ParseUnixRights(&cmsg)
		if err != nil {
			if errors.Is(err, unix.EINVAL) {
				continue
			}
			return fmt.Errorf("parse unix control message: %w", err)
		}
		c.infds = append(c.infds, fds...)
	}
	return nil
}

// NextFD removes and returns the oldest received file descriptor that
// has not yet been consumed.
func (c *Conn) NextFD() (int, bool) {
	c.inm.Lock()
	defer c.inm.Unlock()

	if len(c.infds) == 0 {
		return -1, false
	}
	fd := c.infds[0]
	c.infds = c.infds[1:]
	return fd, true
}

// ReadFrames blocks until data is available and then returns every
// complete message that has been received. A partial message is kept
// until the rest of it arrives. File descriptors received along the
// way are made available via NextFD.
//
// A FrameError is returned if a header is malformed, after which the
// connection is unusable.
func (c *Conn) ReadFrames() ([][]byte, error) {
	for {
		frames, err := c.split()
		if (err != nil) || (len(frames) > 0) {
			return frames, err
		}

		buf := make([]byte, MaxMessageSize)
		n, oobn, _, _, err := c.conn.ReadMsgUnix(buf, c.oob)
		if oobn > 0 {
			if err := c.readFDs(c.oob[:oobn]); err != nil {
				return nil, err
			}
		}
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, net.ErrClosed
		}
		c.rbuf = append(c.rbuf, buf[:n]...)
	}
}

func (c *Conn) split() (frames [][]byte, err error) {
	for len(c.rbuf) >= HeaderSize {
		h, err := ParseHeader(c.rbuf)
		if err != nil {
			return frames, err
		}
		if len(c.rbuf) < int(h.Size) {
			break
		}

		frame := make([]byte, h.Size)
		copy(frame, c.rbuf)
		frames = append(frames, frame)
		c.rbuf = c.rbuf[h.Size:]
	}
	if len(c.rbuf) == 0 {
		c.rbuf = nil
	}
	return frames, nil
}

// Queue appends a built message to the outgoing buffer. Ownership of
// fds passes to the Conn, which closes them once they have been sent.
func (c *Conn) Queue(frame []byte, fds []int) {
	c.outm.Lock()
	defer c.outm.Unlock()

	c.outLen += len(frame)
	if (len(fds) == 0) && (len(c.out) > 0) {
		last := &c.out[len(c.out)-1]
		last.data = append(last.data, frame...)
		return
	}

	data := make([]byte, len(frame), max(len(frame), 512))
	copy(data, frame)
	c.out = append(c.out, chunk{data: data, fds: fds})
}

// Buffered returns the number of bytes that have been queued but not
// yet written.
func (c *Conn) Buffered() int {
	c.outm.Lock()
	defer c.outm.Unlock()

	return c.outLen
}

// Flush attempts to write everything that has been queued without
// blocking. If the socket can not accept all of it, ErrWouldBlock is
// returned and the remainder stays queued.
func (c *Conn) Flush() error {
	c.outm.Lock()
	defer c.outm.Unlock()

	var err error
	cerr := c.raw.Control(func(fd uintptr) {
		err = c.send(int(fd))
	})
	if cerr != nil {
		return cerr
	}
	return err
}

// Drain blocks until everything that has been queued is written, the
// write deadline passes, or an error occurs.
func (c *Conn) Drain() error {
	var err error
	werr := c.raw.Write(func(fd uintptr) bool {
		c.outm.Lock()
		defer c.outm.Unlock()

		err = c.send(int(fd))
		return !errors.Is(err, ErrWouldBlock)
	})
	if werr != nil {
		return werr
	}
	return err
}

// SetWriteDeadline sets the deadline used by Drain.
func (c *Conn) SetWriteDeadline(t time.Time) error {
	return c.conn.SetWriteDeadline(t)
}

func (c *Conn) send(fd int) error {
	for len(c.out) > 0 {
		ch := &c.out[0]

		var oob []byte
		if len(ch.fds) > 0 {
			oob = unix.UnixRights(ch.fds...)
		}

		n, err := unix.SendmsgN(fd, ch.data, oob, nil, unix.MSG_DONTWAIT|unix.MSG_NOSIGNAL)
		if err != nil {
			switch {
			case errors.Is(err, unix.EINTR):
				continue
			case errors.Is(err, unix.EAGAIN):
				return ErrWouldBlock
			default:
				return fmt.Errorf("sendmsg: %w", err)
			}
		}

		for _, fd := range ch.fds {
			unix.Close(fd)
		}
		ch.fds = nil

		c.outLen -= n
		ch.data = ch.data[n:]
		if len(ch.data) == 0 {
			c.out[0] = chunk{}
			c.out = c.out[1:]
		}
	}

	c.out = nil
	return nil
}
