// Package debug configures logging and implements the WAYLAND_DEBUG
// protocol trace.
package debug

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/thejerf/suture/v4"
)

var (
	trace   = func(string, ...any) {}
	tracing bool
)

func init() {
	debugLevel, err := strconv.ParseInt(os.Getenv("WAYLAND_DEBUG"), 10, 0)
	if err != nil {
		return
	}
	if debugLevel > 0 {
		EnableTrace()
	}
}

// EnableTrace turns on protocol tracing regardless of WAYLAND_DEBUG.
func EnableTrace() {
	tracing = true
	trace = func(str string, args ...any) {
		logrus.WithField("trace", "wayland").Debugf(str, args...)
	}
}

// Printf logs a protocol trace line if tracing is enabled.
func Printf(str string, args ...any) {
	trace(str, args...)
}

// ParseLevel parses a log level as accepted by OXYDE_LOG. "off" is
// reported as ok with a nil level.
func ParseLevel(v string) (level *logrus.Level, err error) {
	v = strings.ToLower(strings.TrimSpace(v))
	switch v {
	case "off":
		return nil, nil
	case "error", "warn", "info", "debug", "trace":
		l, err := logrus.ParseLevel(v)
		return &l, err
	default:
		return nil, fmt.Errorf("unknown log level %q", v)
	}
}

// Setup configures the global logger. The level from OXYDE_LOG takes
// precedence over fallback, which is usually the config file's value.
func Setup(fallback string) error {
	v, ok := os.LookupEnv("OXYDE_LOG")
	if !ok || v == "" {
		v = fallback
	}
	if v == "" {
		v = "info"
	}

	level, err := ParseLevel(v)
	if err != nil {
		return err
	}

	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if level == nil {
		logrus.SetOutput(io.Discard)
		return nil
	}

	logrus.SetOutput(os.Stderr)
	logrus.SetLevel(*level)
	if tracing && (*level < logrus.DebugLevel) {
		logrus.SetLevel(logrus.DebugLevel)
	}
	return nil
}

// SutureHook logs supervisor events. It is meant to be used as a
// suture.Spec's EventHook.
func SutureHook(ev suture.Event) {
	entry := logrus.WithFields(logrus.Fields(ev.Map()))
	switch ev.Type() {
	case suture.EventTypeServicePanic, suture.EventTypeServiceTerminate:
		entry.Error(ev.String())
	case suture.EventTypeResume:
		entry.Info(ev.String())
	default:
		entry.Warn(ev.String())
	}
}
