package pointer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestButtons(t *testing.T) {
	var bs Buttons
	assert.False(t, bs.Any())

	require.True(t, bs.Press(ButtonLeft))
	assert.False(t, bs.Press(ButtonLeft), "double press")
	require.True(t, bs.Press(ButtonRight))
	assert.Equal(t, []Button{ButtonLeft, ButtonRight}, bs.Pressed())

	assert.True(t, bs.Release(ButtonLeft))
	assert.False(t, bs.Release(ButtonLeft))
	assert.True(t, bs.Any())

	bs.Reset()
	assert.False(t, bs.Any())
}

func TestParseButton(t *testing.T) {
	b, err := ParseButton("middle")
	require.NoError(t, err)
	assert.Equal(t, ButtonMiddle, b)
	assert.Equal(t, Button(0x112), b)

	_, err = ParseButton("nope")
	assert.Error(t, err)
	assert.Equal(t, "Button(0x200)", Button(0x200).String())
}
