package shm

import (
	"image"
	"os"
	"testing"

	"deedles.dev/oxyde/shm/shmimage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func newFile(t *testing.T, size int) *os.File {
	t.Helper()

	file, err := Create(size)
	require.NoError(t, err)
	t.Cleanup(func() { file.Close() })
	return file
}

// dup returns a second handle to file for the pool to take ownership
// of.
func dup(t *testing.T, file *os.File) *os.File {
	t.Helper()

	fd, err := unix.FcntlInt(file.Fd(), unix.F_DUPFD_CLOEXEC, 0)
	require.NoError(t, err)
	return os.NewFile(uintptr(fd), "dup")
}

func TestBufferImage(t *testing.T) {
	const w, h, stride = 4, 3, 20
	file := newFile(t, stride*h)

	m, err := Map(file, stride*h, unix.PROT_READ|unix.PROT_WRITE)
	require.NoError(t, err)
	defer m.Unmap()

	draw := shmimage.Image{Pix: m, Stride: stride, Rect: image.Rect(0, 0, w, h), Format: shmimage.ARGB8888}
	px := shmimage.NewPixel(0x11, 0x22, 0x33, 0xFF)
	draw.Set(2, 1, px)

	pool, err := NewPool(dup(t, file), stride*h)
	require.NoError(t, err)

	buf, err := pool.NewBuffer(0, w, h, stride, shmimage.ARGB8888)
	require.NoError(t, err)
	assert.Equal(t, image.Pt(w, h), buf.Size())

	img, err := buf.Image()
	require.NoError(t, err)
	assert.Equal(t, px, img.(*shmimage.Image).PixelAt(2, 1))
	assert.Equal(t, shmimage.Pixel(0), img.(*shmimage.Image).PixelAt(0, 0))

	require.NoError(t, pool.Unref())
	assert.Equal(t, stride*h, pool.Size(), "buffer keeps pool mapped")

	require.NoError(t, buf.Release())
	assert.Equal(t, 0, pool.Size())

	_, err = buf.Image()
	assert.ErrorIs(t, err, ErrReleased)
}

func TestBufferValidation(t *testing.T) {
	file := newFile(t, 4096)
	pool, err := NewPool(dup(t, file), 4096)
	require.NoError(t, err)
	defer pool.Unref()

	tests := []struct {
		name   string
		offset int
		w, h   int
		stride int
		format shmimage.Format
		err    error
	}{
		{"Valid", 0, 16, 16, 64, shmimage.XRGB8888, nil},
		{"ZeroSize", 0, 0, 0, 0, shmimage.ARGB8888, nil},
		{"Format", 0, 16, 16, 64, 0x34325258, ErrInvalidFormat},
		{"NegativeOffset", -4, 16, 16, 64, shmimage.ARGB8888, ErrInvalidStride},
		{"NegativeWidth", 0, -1, 16, 64, shmimage.ARGB8888, ErrInvalidStride},
		{"ShortStride", 0, 16, 16, 60, shmimage.ARGB8888, ErrInvalidStride},
		{"PastEnd", 64, 16, 64, 64, shmimage.ARGB8888, ErrInvalidStride},
		{"Overflow", 0, 16, 1 << 40, 1 << 30, shmimage.ARGB8888, ErrInvalidStride},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			buf, err := pool.NewBuffer(test.offset, test.w, test.h, test.stride, test.format)
			if test.err != nil {
				assert.ErrorIs(t, err, test.err)
				return
			}
			require.NoError(t, err)
			buf.Release()
		})
	}
}

func TestPoolResize(t *testing.T) {
	file := newFile(t, 8192)
	pool, err := NewPool(dup(t, file), 4096)
	require.NoError(t, err)
	defer pool.Unref()

	assert.ErrorIs(t, pool.Resize(1024), ErrShrink)
	require.NoError(t, pool.Resize(4096))
	require.NoError(t, pool.Resize(8192))
	assert.Equal(t, 8192, pool.Size())

	buf, err := pool.NewBuffer(4096, 32, 32, 128, shmimage.ARGB8888)
	require.NoError(t, err)
	buf.Release()
}

func TestNewPoolErrors(t *testing.T) {
	file := newFile(t, 1024)

	_, err := NewPool(dup(t, file), 0)
	assert.ErrorIs(t, err, ErrInvalidSize)

	_, err = NewPool(dup(t, file), 4096)
	assert.ErrorIs(t, err, ErrInvalidFD)
}

func TestTruncatedPool(t *testing.T) {
	file, err := os.CreateTemp(t.TempDir(), "pool")
	require.NoError(t, err)
	defer file.Close()
	require.NoError(t, file.Truncate(1<<16))

	pool, err := NewPool(dup(t, file), 1<<16)
	require.NoError(t, err)
	defer pool.Unref()

	buf, err := pool.NewBuffer(0, 128, 128, 512, shmimage.ARGB8888)
	require.NoError(t, err)
	defer buf.Release()

	require.NoError(t, file.Truncate(0))
	_, err = buf.Image()
	assert.ErrorIs(t, err, ErrFault)
}
