package wire

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// maxAutoSockets is the number of wayland-N names that Listen tries
// before giving up.
const maxAutoSockets = 32

// Listener accepts Wayland connections on a socket in a runtime
// directory. The socket is guarded by an exclusive lock on a sibling
// lock file so that a stale socket left behind by a crashed server can
// be told apart from one that is in use.
type Listener struct {
	l    *net.UnixListener
	path string
	lock *os.File
}

// Listen opens a listening socket in dir. If name is empty, the first
// available name of the form wayland-N is used.
func Listen(dir, name string) (*Listener, error) {
	if name != "" {
		return listen(dir, name)
	}

	for i := range maxAutoSockets {
		l, err := listen(dir, fmt.Sprintf("wayland-%v", i))
		if errors.Is(err, unix.EWOULDBLOCK) {
			continue
		}
		return l, err
	}
	return nil, fmt.Errorf("no free socket name in %v", dir)
}

func listen(dir, name string) (*Listener, error) {
	path := filepath.Join(dir, name)

	lock, err := os.OpenFile(path+".lock", os.O_CREATE|os.O_RDWR, 0660)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}
	err = unix.Flock(int(lock.Fd()), unix.LOCK_EX|unix.LOCK_NB)
	if err != nil {
		lock.Close()
		return nil, fmt.Errorf("lock %v: %w", path, err)
	}

	err = os.Remove(path)
	if (err != nil) && !errors.Is(err, os.ErrNotExist) {
		lock.Close()
		return nil, fmt.Errorf("remove stale socket: %w", err)
	}

	l, err := net.ListenUnix("unix", &net.UnixAddr{Name: path, Net: "unix"})
	if err != nil {
		lock.Close()
		return nil, fmt.Errorf("listen on %v: %w", path, err)
	}
	l.SetUnlinkOnClose(false)

	return &Listener{l: l, path: path, lock: lock}, nil
}

// Path returns the full path of the socket.
func (l *Listener) Path() string {
	return l.path
}

// Name returns the name of the socket within its directory, suitable
// for use as $WAYLAND_DISPLAY.
func (l *Listener) Name() string {
	return filepath.Base(l.path)
}

func (l *Listener) Accept() (*Conn, error) {
	c, err := l.l.AcceptUnix()
	if err != nil {
		return nil, err
	}

	conn, err := NewConn(c)
	if err != nil {
		c.Close()
		return nil, err
	}
	return conn, nil
}

// Close stops listening and removes the socket and its lock file.
func (l *Listener) Close() error {
	err := l.l.Close()
	os.Remove(l.path)
	os.Remove(l.path + ".lock")
	return errors.Join(err, l.lock.Close())
}
