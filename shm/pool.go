package shm

import (
	"errors"
	"fmt"
	"image"
	"os"
	rdebug "runtime/debug"

	"deedles.dev/oxyde/shm/shmimage"
	"golang.org/x/sys/unix"
)

var (
	ErrInvalidFD     = errors.New("invalid pool file descriptor")
	ErrInvalidSize   = errors.New("invalid pool size")
	ErrShrink        = errors.New("pool can not shrink")
	ErrInvalidStride = errors.New("invalid buffer geometry")
	ErrInvalidFormat = errors.New("unsupported buffer format")
	ErrReleased      = errors.New("buffer has been released")
	ErrFault         = errors.New("pool memory is not accessible")
)

// Pool is a client's shared memory file mapped read-only into the
// compositor. It stays mapped until the pool object and every buffer
// created from it are gone.
type Pool struct {
	file *os.File
	data Mmap
	refs int
}

// NewPool maps size bytes of file. The Pool takes ownership of file,
// closing it on failure.
func NewPool(file *os.File, size int) (*Pool, error) {
	if size <= 0 {
		file.Close()
		return nil, fmt.Errorf("%w: %v", ErrInvalidSize, size)
	}

	fsize, err := fileSize(file)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("%w: stat: %v", ErrInvalidFD, err)
	}
	if fsize < int64(size) {
		file.Close()
		return nil, fmt.Errorf("%w: file is %v bytes but pool is %v", ErrInvalidFD, fsize, size)
	}

	data, err := Map(file, size, unix.PROT_READ)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("%w: mmap: %v", ErrInvalidFD, err)
	}

	return &Pool{file: file, data: data, refs: 1}, nil
}

// Size returns the number of bytes that are currently mapped.
func (p *Pool) Size() int {
	return len(p.data)
}

// Resize grows the mapping to size bytes. Pools can only grow.
func (p *Pool) Resize(size int) error {
	if p.data == nil {
		return ErrReleased
	}
	switch {
	case size < len(p.data):
		return fmt.Errorf("%w: %v to %v", ErrShrink, len(p.data), size)
	case size == len(p.data):
		return nil
	}

	data, err := Map(p.file, size, unix.PROT_READ)
	if err != nil {
		return fmt.Errorf("%w: mmap: %v", ErrInvalidFD, err)
	}
	old := p.data
	p.data = data
	return old.Unmap()
}

func (p *Pool) Ref() {
	p.refs++
}

// Unref drops a reference. The pool is unmapped and its file closed
// when the last one is gone.
func (p *Pool) Unref() error {
	p.refs--
	if p.refs > 0 {
		return nil
	}

	data := p.data
	p.data = nil
	return errors.Join(data.Unmap(), p.file.Close())
}

// read calls f with the mapped memory, turning a fault caused by the
// client truncating the file out from under the mapping into an error.
func (p *Pool) read(f func(data []byte)) (err error) {
	if p.data == nil {
		return ErrReleased
	}

	old := rdebug.SetPanicOnFault(true)
	defer rdebug.SetPanicOnFault(old)
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrFault, r)
		}
	}()

	f(p.data)
	return nil
}

// Buffer is an image stored in a Pool.
type Buffer struct {
	Offset int
	Width  int
	Height int
	Stride int
	Format shmimage.Format

	pool *Pool
}

// NewBuffer describes an image inside of p. The buffer holds a
// reference to the pool until it is released.
func (p *Pool) NewBuffer(offset, width, height, stride int, format shmimage.Format) (*Buffer, error) {
	if !format.Valid() {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, uint32(format))
	}
	if (offset < 0) || (width < 0) || (height < 0) || (stride < width*shmimage.BytesPerPixel) {
		return nil, fmt.Errorf("%w: offset %v, size %vx%v, stride %v", ErrInvalidStride, offset, width, height, stride)
	}
	if (offset > len(p.data)) || ((height > 0) && (stride > (len(p.data)-offset)/height)) {
		return nil, fmt.Errorf("%w: buffer extends past the end of the %v byte pool", ErrInvalidStride, len(p.data))
	}

	p.Ref()
	return &Buffer{
		Offset: offset,
		Width:  width,
		Height: height,
		Stride: stride,
		Format: format,
		pool:   p,
	}, nil
}

func (b *Buffer) Size() image.Point {
	return image.Pt(b.Width, b.Height)
}

// Image copies the buffer's current contents out of the pool.
func (b *Buffer) Image() (image.Image, error) {
	if b.pool == nil {
		return nil, ErrReleased
	}

	img := shmimage.New(image.Rect(0, 0, b.Width, b.Height), b.Format)
	row := b.Width * shmimage.BytesPerPixel
	err := b.pool.read(func(data []byte) {
		for y := range b.Height {
			start := b.Offset + y*b.Stride
			copy(img.Pix[y*img.Stride:], data[start:start+row])
		}
	})
	if err != nil {
		return nil, err
	}
	return img, nil
}

// Release drops the buffer's reference to its pool.
func (b *Buffer) Release() error {
	if b.pool == nil {
		return nil
	}
	p := b.pool
	b.pool = nil
	return p.Unref()
}
