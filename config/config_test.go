package config

import (
	"image"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"deedles.dev/oxyde/scene"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/colornames"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestParse(t *testing.T) {
	const src = `
socket: wayland-test
log_level: debug
keyboard:
  repeat_rate: 30
outputs:
  - name: A
    width: 800
    height: 600
    scale: 2
    transform: "90"
  - name: B
    x: 800
    width: 1024
    height: 768
background: Navy
ping_timeout: 2s
versions:
  wl_seat: 5
`
	c, err := Parse(strings.NewReader(src))
	require.NoError(t, err)

	assert.Equal(t, "wayland-test", c.Socket)
	assert.Equal(t, "debug", c.LogLevel)
	assert.Equal(t, int32(30), c.Keyboard.RepeatRate)
	assert.Equal(t, int32(600), c.Keyboard.RepeatDelay, "unset fields keep their defaults")
	assert.Equal(t, 2*time.Second, c.PingTimeout)
	assert.Equal(t, map[string]uint32{"wl_seat": 5}, c.Versions)
	assert.Equal(t, colornames.Navy, c.BackgroundColor())
	require.Len(t, c.Outputs, 2)

	o, err := c.Outputs[0].SceneOutput()
	require.NoError(t, err)
	assert.Equal(t, image.Pt(800, 600), o.Mode)
	assert.Equal(t, scene.Transform90, o.Transform)
	assert.Equal(t, image.Rect(0, 0, 300, 400), o.Bounds())

	o, err = c.Outputs[1].SceneOutput()
	require.NoError(t, err)
	assert.Equal(t, 1, o.Scale)
	assert.Equal(t, image.Pt(800, 0), o.Position)
}

func TestParseEmpty(t *testing.T) {
	c, err := Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, Default(), c)
}

func TestValidationErrors(t *testing.T) {
	tests := []struct {
		src  string
		path string
	}{
		{"socket: a/b", "socket"},
		{"log_level: loud", "log_level"},
		{"outbound_limit: 10", "outbound_limit"},
		{"keyboard: {repeat_delay: -1}", "keyboard.repeat_delay"},
		{"outputs: []", "outputs"},
		{"outputs: [{name: A, width: 0, height: 10}]", "outputs[0].width"},
		{"outputs: [{name: A, width: 10, height: 10}, {name: A, width: 10, height: 10}]", "outputs[1].name"},
		{"outputs: [{name: A, width: 10, height: 10, transform: sideways}]", "outputs[0].transform"},
		{"background: notacolour", "background"},
		{"workers: 0", "workers"},
		{"versions: {wl_nothing: 1}", "versions.wl_nothing"},
		{"versions: {wl_seat: 100}", "versions.wl_seat"},
	}
	for _, test := range tests {
		t.Run(test.path, func(t *testing.T) {
			_, err := Parse(strings.NewReader(test.src))
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, test.path, verr.Path)
		})
	}
}

func TestUnknownField(t *testing.T) {
	_, err := Parse(strings.NewReader("sockets: wayland-1"))
	assert.ErrorContains(t, err, "sockets")
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("workers: 8\n"), 0644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8, c.Workers)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
