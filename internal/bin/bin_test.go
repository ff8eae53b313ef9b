package bin

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendGet(t *testing.T) {
	buf := Append(nil, uint32(0xDEADBEEF))
	buf = Append(buf, int32(-7))
	require.Len(t, buf, 8)

	assert.Equal(t, uint32(0xDEADBEEF), Get[uint32](buf))
	assert.Equal(t, int32(-7), Get[int32](buf[4:]))
}

func TestReadWrite(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, uint32(42)))
	v, err := Read[uint32](&buf)
	require.NoError(t, err)
	assert.Equal(t, uint32(42), v)

	_, err = Read[uint32](&buf)
	assert.Error(t, err)
}

func TestPad(t *testing.T) {
	for n, want := range []int{0, 3, 2, 1, 0, 3} {
		assert.Equal(t, want, Pad(n), "Pad(%v)", n)
	}
}
