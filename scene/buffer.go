package scene

import (
	"image"
)

// Source provides the pixels of a Buffer.
type Source interface {
	Image() (image.Image, error)
}

// Buffer is client-provided pixel content that can be attached to
// surfaces.
//
// A buffer is busy from the moment that it is committed to a surface,
// either as its current buffer or into a synchronized subsurface's
// cache, until no surface refers to it that way and the back-end has
// dropped every hold on it. OnRelease is called exactly
// once at the end of each busy period.
type Buffer struct {
	Size   image.Point
	Format uint32
	Source Source

	// OnRelease is called when the buffer stops being busy.
	OnRelease func()

	// OnFree is called once the buffer has been destroyed and is no
	// longer busy, at which point its Source will not be used again.
	OnFree func()

	refs      int
	holds     int
	busy      bool
	destroyed bool
	freed     bool
}

func NewBuffer(size image.Point, format uint32, src Source) *Buffer {
	return &Buffer{
		Size:   size,
		Format: format,
		Source: src,
	}
}

// Busy reports whether the buffer is in use by the compositor.
func (b *Buffer) Busy() bool {
	return b.busy
}

// Refs returns the number of current and cached surface states that
// refer to b.
func (b *Buffer) Refs() int {
	return b.refs
}

func (b *Buffer) ref() {
	b.refs++
	b.busy = true
}

func (b *Buffer) unref() {
	b.refs--
	b.check()
}

// Hold prevents b from being released while the back-end is using its
// contents.
func (b *Buffer) Hold() {
	b.holds++
	b.busy = true
}

// Unhold drops a hold that was acquired by Hold.
func (b *Buffer) Unhold() {
	b.holds--
	b.check()
}

// Destroy marks b as destroyed by its owner. It will be freed once it
// is no longer busy, and no release will be sent for it.
func (b *Buffer) Destroy() {
	b.destroyed = true
	b.check()
}

func (b *Buffer) check() {
	if (b.refs > 0) || (b.holds > 0) {
		return
	}

	if b.busy {
		b.busy = false
		if !b.destroyed && (b.OnRelease != nil) {
			b.OnRelease()
		}
	}

	if b.destroyed && !b.freed {
		b.freed = true
		if b.OnFree != nil {
			b.OnFree()
		}
	}
}
