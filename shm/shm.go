// Package shm provides helpers for dealing with shared memory. The
// client side creates and maps files to draw into, while the server
// side maps client-provided pools and reads buffers out of them.
package shm

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Create returns an anonymous memory-backed file of the given size,
// suitable for passing to wl_shm.create_pool.
func Create(size int) (*os.File, error) {
	fd, err := unix.MemfdCreate("oxyde-shm", unix.MFD_CLOEXEC|unix.MFD_ALLOW_SEALING)
	if err != nil {
		return nil, fmt.Errorf("memfd_create: %w", err)
	}
	file := os.NewFile(uintptr(fd), "oxyde-shm")

	err = file.Truncate(int64(size))
	if err != nil {
		file.Close()
		return nil, err
	}

	_, err = unix.FcntlInt(uintptr(fd), unix.F_ADD_SEALS, unix.F_SEAL_SHRINK)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("seal: %w", err)
	}

	return file, nil
}

type Mmap []byte

func Map(file *os.File, size int, prot int) (mmap Mmap, err error) {
	sc, err := file.SyscallConn()
	if err != nil {
		return nil, err
	}

	cerr := sc.Control(func(fd uintptr) {
		m, merr := unix.Mmap(int(fd), 0, size, prot, unix.MAP_SHARED)
		mmap, err = Mmap(m), merr
	})
	if cerr != nil {
		return nil, cerr
	}

	return mmap, err
}

func (mmap Mmap) Unmap() error {
	return unix.Munmap(mmap)
}

func fileSize(file *os.File) (size int64, err error) {
	sc, err := file.SyscallConn()
	if err != nil {
		return 0, err
	}

	var st unix.Stat_t
	cerr := sc.Control(func(fd uintptr) {
		err = unix.Fstat(int(fd), &st)
	})
	if cerr != nil {
		return 0, cerr
	}
	return st.Size, err
}
