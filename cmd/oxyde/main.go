// oxyde is a Wayland compositor. Without a display back-end of its own
// it drives headless outputs, which shells and tests can inspect.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"deedles.dev/oxyde/backend/headless"
	"deedles.dev/oxyde/config"
	"deedles.dev/oxyde/internal/debug"
	"deedles.dev/oxyde/internal/worker"
	"deedles.dev/oxyde/scene"
	"deedles.dev/oxyde/server"
	"deedles.dev/oxyde/wire"
	"github.com/adrg/xdg"
	"github.com/sirupsen/logrus"
	"github.com/thejerf/suture/v4"
)

const (
	exitFatal   = 1
	exitBind    = 2
	exitBackend = 3
)

type exitError struct {
	code int
	err  error
}

func (err exitError) Error() string {
	return err.err.Error()
}

func (err exitError) Unwrap() error {
	return err.err
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var eerr exitError
	if errors.As(err, &eerr) {
		return eerr.code
	}
	return exitFatal
}

type flags struct {
	config string
	socket string
	log    string
}

func parseFlags(args []string, output io.Writer) (f flags, err error) {
	fset := flag.NewFlagSet("oxyde", flag.ContinueOnError)
	fset.SetOutput(output)
	fset.Usage = func() {
		fmt.Fprintf(output, "Usage: %v [options]\n\n", fset.Name())
		fset.PrintDefaults()
	}
	fset.StringVar(&f.config, "config", "", "path to the config file (default: $XDG_CONFIG_HOME/"+config.File+")")
	fset.StringVar(&f.socket, "socket", "", "name of the socket in $XDG_RUNTIME_DIR (default: first free wayland-N)")
	fset.StringVar(&f.log, "log", "", "log level: off, error, warn, info, debug or trace")
	err = fset.Parse(args)
	return f, err
}

func run(ctx context.Context, args []string) error {
	f, err := parseFlags(args, os.Stderr)
	if err != nil {
		return exitError{code: exitFatal, err: err}
	}

	c, err := config.Load(f.config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if f.socket != "" {
		c.Socket = f.socket
	}
	if f.log != "" {
		c.LogLevel = f.log
	}
	err = debug.Setup(c.LogLevel)
	if err != nil {
		return fmt.Errorf("set up logging: %w", err)
	}

	if os.Getenv("XDG_RUNTIME_DIR") == "" {
		return exitError{code: exitBind, err: errors.New("XDG_RUNTIME_DIR is not set")}
	}
	xdg.Reload()
	l, err := wire.Listen(xdg.RuntimeDir, c.Socket)
	if err != nil {
		return exitError{code: exitBind, err: fmt.Errorf("bind socket: %w", err)}
	}

	outputs := make([]*scene.Output, 0, len(c.Outputs))
	for _, o := range c.Outputs {
		so, err := o.SceneOutput()
		if err != nil {
			l.Close()
			return fmt.Errorf("output %q: %w", o.Name, err)
		}
		outputs = append(outputs, so)
	}
	backend, err := headless.New(headless.Options{
		Outputs:    outputs,
		Background: c.BackgroundColor(),
	})
	if err != nil {
		l.Close()
		return exitError{code: exitBackend, err: fmt.Errorf("initialize back-end: %w", err)}
	}

	workers := worker.New(c.Workers)
	srv, err := server.New(server.Options{
		Listener:      l,
		Backend:       backend,
		Workers:       workers,
		OutboundLimit: c.OutboundLimit,
		Seat:          c.Seat,
		Keymap:        c.Keyboard.Keymap,
		RepeatRate:    c.Keyboard.RepeatRate,
		RepeatDelay:   c.Keyboard.RepeatDelay,
		PingTimeout:   c.PingTimeout,
		Versions:      c.Versions,
	})
	if err != nil {
		l.Close()
		return fmt.Errorf("create server: %w", err)
	}

	err = os.Setenv("WAYLAND_DISPLAY", l.Name())
	if err != nil {
		return fmt.Errorf("set WAYLAND_DISPLAY: %w", err)
	}
	logrus.WithFields(logrus.Fields{
		"socket":  l.Path(),
		"outputs": len(outputs),
	}).Info("listening")

	sup := suture.New("oxyde", suture.Spec{EventHook: debug.SutureHook})
	sup.Add(srv)
	sup.Add(backend)
	sup.Add(workers)

	errc := sup.ServeBackground(ctx)
	autostart(ctx, c.Autostart)

	err = <-errc
	if ctx.Err() != nil {
		logrus.Info("shut down")
		return nil
	}
	if err == nil {
		err = errors.New("supervisor stopped unexpectedly")
	}
	return err
}

// autostart launches commands with the compositor's environment. They
// are killed when ctx is cancelled.
func autostart(ctx context.Context, cmds []string) {
	for _, line := range cmds {
		cmd := exec.CommandContext(ctx, "/bin/sh", "-c", line)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr

		log := logrus.WithField("command", line)
		err := cmd.Start()
		if err != nil {
			log.WithError(err).Warn("autostart failed")
			continue
		}

		log = log.WithField("pid", cmd.Process.Pid)
		log.Info("autostarted")
		go func() {
			err := cmd.Wait()
			if (err != nil) && (ctx.Err() == nil) {
				log.WithError(err).Warn("autostart command exited")
				return
			}
			log.Debug("autostart command exited")
		}()
	}
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	err := run(ctx, os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		logrus.WithError(err).Error("fatal")
	}
	cancel()
	os.Exit(exitCode(err))
}
