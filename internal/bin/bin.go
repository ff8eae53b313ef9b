// Package bin contains utilities for dealing with binary representations
// of Wayland wire words. Wayland uses the host's byte order.
package bin

import (
	"io"
	"unsafe"
)

// Word is any type that occupies exactly one wire word.
type Word interface {
	~int32 | ~uint32
}

func Bytes[T Word](v T) [4]byte {
	return *(*[4]byte)(unsafe.Pointer(&v))
}

func Value[T Word](data [4]byte) T {
	return *(*T)(unsafe.Pointer(&data))
}

// Get decodes the word at the start of buf. buf must be at least four
// bytes long.
func Get[T Word](buf []byte) T {
	return Value[T]([4]byte(buf[:4]))
}

// Append appends the encoding of v to buf.
func Append[T Word](buf []byte, v T) []byte {
	data := Bytes(v)
	return append(buf, data[:]...)
}

// Pad returns the number of zero bytes needed to align n to a word
// boundary.
func Pad(n int) int {
	return (4 - (n & 3)) & 3
}

func Read[T Word](r io.Reader) (T, error) {
	var data [4]byte
	_, err := io.ReadFull(r, data[:])
	if err != nil {
		return 0, err
	}

	return Value[T](data), nil
}

func Write[T Word](w io.Writer, v T) error {
	data := Bytes(v)
	n, err := w.Write(data[:])
	if (err == nil) && (n < len(data)) {
		return io.ErrShortWrite
	}
	return err
}
