// Package pointer contains utilities for handling pointer input.
package pointer

import (
	"fmt"

	"golang.org/x/exp/slices"
)

// Button indicates a mouse button. Values are Linux input event codes,
// which is what wl_pointer.button carries.
type Button uint32

// These values were pulled from linux/input-event-codes.h.
const (
	ButtonLeft Button = 0x110 + iota
	ButtonRight
	ButtonMiddle
	ButtonSide
	ButtonExtra
	ButtonForward
	ButtonBack
	ButtonTask
)

func (b Button) String() string {
	switch b {
	case ButtonLeft:
		return "left"
	case ButtonRight:
		return "right"
	case ButtonMiddle:
		return "middle"
	case ButtonSide:
		return "side"
	case ButtonExtra:
		return "extra"
	case ButtonForward:
		return "forward"
	case ButtonBack:
		return "back"
	case ButtonTask:
		return "task"
	}

	return fmt.Sprintf("Button(%#x)", uint32(b))
}

// ParseButton parses the name of a button as returned by String.
func ParseButton(name string) (Button, error) {
	for b := ButtonLeft; b <= ButtonTask; b++ {
		if b.String() == name {
			return b, nil
		}
	}
	return 0, fmt.Errorf("unknown button %q", name)
}

// Axis is a scroll axis, with the same values as wl_pointer.axis.
type Axis uint32

const (
	AxisVertical Axis = iota
	AxisHorizontal
)

func (a Axis) String() string {
	switch a {
	case AxisVertical:
		return "vertical"
	case AxisHorizontal:
		return "horizontal"
	default:
		return fmt.Sprintf("Axis(%d)", uint32(a))
	}
}

// Buttons tracks which buttons are held down. While any are, the
// pointer is implicitly grabbed by the surface that the first press
// happened on. The zero value has no buttons pressed.
type Buttons struct {
	pressed []Button
}

// Press records b as pressed. It returns false if it already was, in
// which case the press should not be forwarded.
func (bs *Buttons) Press(b Button) bool {
	if slices.Contains(bs.pressed, b) {
		return false
	}
	bs.pressed = append(bs.pressed, b)
	return true
}

// Release records b as released. It returns false if it wasn't
// pressed.
func (bs *Buttons) Release(b Button) bool {
	i := slices.Index(bs.pressed, b)
	if i < 0 {
		return false
	}
	bs.pressed = slices.Delete(bs.pressed, i, i+1)
	return true
}

// Any reports whether any button is held.
func (bs *Buttons) Any() bool {
	return len(bs.pressed) > 0
}

// Pressed returns the held buttons in the order that they were
// pressed.
func (bs *Buttons) Pressed() []Button {
	return slices.Clone(bs.pressed)
}

func (bs *Buttons) Reset() {
	bs.pressed = bs.pressed[:0]
}
