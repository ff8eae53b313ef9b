package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"deedles.dev/oxyde/config"
	"deedles.dev/oxyde/internal/wltest"
	"deedles.dev/oxyde/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_CONFIG_DIRS", filepath.Join(dir, "config-dirs"))
	t.Setenv("XDG_RUNTIME_DIR", dir)
	t.Setenv("WAYLAND_DISPLAY", "")
	t.Setenv("OXYDE_LOG", "off")
	return dir
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, exitCode(nil))
	assert.Equal(t, exitFatal, exitCode(errors.New("failed")))
	assert.Equal(t, exitBind, exitCode(exitError{code: exitBind, err: errors.New("failed")}))
	assert.Equal(t, exitBackend, exitCode(fmt.Errorf("start: %w", exitError{code: exitBackend, err: errors.New("failed")})))
}

func TestMissingRuntimeDir(t *testing.T) {
	isolate(t)
	t.Setenv("XDG_RUNTIME_DIR", "")

	err := run(context.Background(), nil)
	assert.Equal(t, exitBind, exitCode(err))
}

func TestSocketInUse(t *testing.T) {
	dir := isolate(t)

	l, err := wire.Listen(dir, "wayland-test")
	require.NoError(t, err)
	defer l.Close()

	err = run(context.Background(), []string{"-socket", "wayland-test"})
	assert.Equal(t, exitBind, exitCode(err))
}

func TestInvalidConfig(t *testing.T) {
	dir := isolate(t)

	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("outputs:\n  - name: BROKEN\n    width: -1\n    height: 10\n"), 0600))

	err := run(context.Background(), []string{"-config", path})
	var verr *config.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "outputs[0].width", verr.Path)
	assert.Equal(t, exitFatal, exitCode(err))
}

func TestRunAndShutdown(t *testing.T) {
	dir := isolate(t)

	marker := filepath.Join(dir, "autostarted")
	path := filepath.Join(dir, "config.yaml")
	conf := "autostart:\n  - echo \"$WAYLAND_DISPLAY\" > " + marker + "\n"
	require.NoError(t, os.WriteFile(path, []byte(conf), 0600))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- run(ctx, []string{"-config", path, "-socket", "wayland-run"}) }()

	socket := filepath.Join(dir, "wayland-run")
	require.Eventually(t, func() bool {
		data, err := os.ReadFile(marker)
		return (err == nil) && (strings.TrimSpace(string(data)) == "wayland-run")
	}, wltest.Timeout, 10*time.Millisecond)

	c := wltest.Dial(t, socket)
	c.Registry()
	_, ok := c.Global("wl_compositor")
	assert.True(t, ok)
	_, ok = c.Global("wl_output")
	assert.True(t, ok)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("compositor did not shut down")
	}
}
