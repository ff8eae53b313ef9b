// Package config loads the compositor's configuration file.
package config

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"os"
	"strings"
	"time"

	"deedles.dev/oxyde/internal/debug"
	"deedles.dev/oxyde/protocol"
	"deedles.dev/oxyde/scene"
	"github.com/adrg/xdg"
	"golang.org/x/image/colornames"
	"gopkg.in/yaml.v3"
)

// File is the path of the config file relative to the XDG config
// directories.
const File = "oxyde/config.yaml"

type Config struct {
	// Socket is the name of the listening socket in the runtime
	// directory. If it is empty, the first free wayland-N is used.
	Socket   string `yaml:"socket"`
	LogLevel string `yaml:"log_level"`

	// OutboundLimit is the number of bytes of events that may be queued
	// for a client before it is disconnected.
	OutboundLimit int      `yaml:"outbound_limit"`
	Seat          string   `yaml:"seat"`
	Keyboard      Keyboard `yaml:"keyboard"`
	Outputs       []Output `yaml:"outputs"`

	// Background is a colour name from the SVG 1.1 specification.
	Background string `yaml:"background"`

	PingTimeout time.Duration `yaml:"ping_timeout"`
	Workers     int           `yaml:"workers"`

	// Autostart commands are run through sh -c once the socket is
	// ready.
	Autostart []string `yaml:"autostart"`

	// Versions caps the version of globals by interface name.
	Versions map[string]uint32 `yaml:"versions"`
}

type Keyboard struct {
	// Keymap is the path of an XKB keymap file.
	Keymap      string `yaml:"keymap"`
	RepeatRate  int32  `yaml:"repeat_rate"`
	RepeatDelay int32  `yaml:"repeat_delay"`
}

type Output struct {
	Name  string `yaml:"name"`
	Make  string `yaml:"make"`
	Model string `yaml:"model"`

	X      int `yaml:"x"`
	Y      int `yaml:"y"`
	Width  int `yaml:"width"`
	Height int `yaml:"height"`

	// Refresh is in mHz.
	Refresh   int    `yaml:"refresh"`
	Scale     int    `yaml:"scale"`
	Transform string `yaml:"transform"`

	PhysicalWidth  int `yaml:"physical_width"`
	PhysicalHeight int `yaml:"physical_height"`
}

// Default returns the configuration used when there is no config file.
func Default() *Config {
	return &Config{
		LogLevel:      "info",
		OutboundLimit: 4 << 20,
		Seat:          "seat0",
		Keyboard: Keyboard{
			RepeatRate:  25,
			RepeatDelay: 600,
		},
		Outputs: []Output{{
			Name:    "HEADLESS-1",
			Make:    "oxyde",
			Model:   "headless",
			Width:   1920,
			Height:  1080,
			Refresh: 60000,
			Scale:   1,
		}},
		Background:  "darkslategray",
		PingTimeout: 10 * time.Second,
		Workers:     4,
	}
}

// Find returns the path of the config file in the XDG config
// directories. It returns an empty path if there isn't one.
func Find() string {
	path, err := xdg.SearchConfigFile(File)
	if err != nil {
		return ""
	}
	return path
}

// Load loads the config file at path. If path is empty, the file is
// looked for with Find, and if none exists the defaults are returned.
func Load(path string) (*Config, error) {
	if path == "" {
		path = Find()
		if path == "" {
			return Default(), nil
		}
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	c, err := Parse(file)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", path, err)
	}
	return c, nil
}

// Parse decodes and validates a config. Fields that are missing keep
// their default values.
func Parse(r io.Reader) (*Config, error) {
	c := Default()

	d := yaml.NewDecoder(r)
	d.KnownFields(true)
	err := d.Decode(c)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	err = c.Validate()
	if err != nil {
		return nil, err
	}
	return c, nil
}

// ValidationError is an invalid value in a config. Path is the YAML
// path of the field.
type ValidationError struct {
	Path string
	Err  error
}

func (err *ValidationError) Error() string {
	return fmt.Sprintf("%v: %v", err.Path, err.Err)
}

func (err *ValidationError) Unwrap() error {
	return err.Err
}

func invalid(path string, format string, args ...any) error {
	return &ValidationError{Path: path, Err: fmt.Errorf(format, args...)}
}

func (c *Config) Validate() error {
	if strings.ContainsRune(c.Socket, '/') {
		return invalid("socket", "must be a name, not a path")
	}
	if _, err := debug.ParseLevel(c.LogLevel); err != nil {
		return invalid("log_level", "%w", err)
	}
	if c.OutboundLimit < 4096 {
		return invalid("outbound_limit", "must be at least 4096 bytes")
	}
	if c.Seat == "" {
		return invalid("seat", "must not be empty")
	}
	if c.Keyboard.RepeatRate < 0 {
		return invalid("keyboard.repeat_rate", "must not be negative")
	}
	if c.Keyboard.RepeatDelay < 0 {
		return invalid("keyboard.repeat_delay", "must not be negative")
	}

	if len(c.Outputs) == 0 {
		return invalid("outputs", "at least one output is required")
	}
	names := make(map[string]struct{}, len(c.Outputs))
	for i, o := range c.Outputs {
		path := fmt.Sprintf("outputs[%v]", i)
		if o.Name == "" {
			return invalid(path+".name", "must not be empty")
		}
		if _, ok := names[o.Name]; ok {
			return invalid(path+".name", "duplicate output %q", o.Name)
		}
		names[o.Name] = struct{}{}

		if o.Width <= 0 {
			return invalid(path+".width", "must be positive")
		}
		if o.Height <= 0 {
			return invalid(path+".height", "must be positive")
		}
		if o.Refresh < 0 {
			return invalid(path+".refresh", "must not be negative")
		}
		if o.Scale < 0 {
			return invalid(path+".scale", "must not be negative")
		}
		if _, err := scene.ParseTransform(o.transform()); err != nil {
			return invalid(path+".transform", "%w", err)
		}
	}

	if _, ok := colornames.Map[strings.ToLower(c.Background)]; !ok {
		return invalid("background", "unknown colour %q", c.Background)
	}
	if c.PingTimeout <= 0 {
		return invalid("ping_timeout", "must be positive")
	}
	if c.Workers <= 0 {
		return invalid("workers", "must be positive")
	}

	builtin := protocol.Builtin()
	for iface, v := range c.Versions {
		path := "versions." + iface
		pi := builtin.Interface(iface)
		if pi == nil {
			return invalid(path, "unknown interface")
		}
		if (v == 0) || (int(v) > pi.Version) {
			return invalid(path, "version must be between 1 and %v", pi.Version)
		}
	}

	return nil
}

// BackgroundColor returns the background colour.
func (c *Config) BackgroundColor() color.Color {
	return colornames.Map[strings.ToLower(c.Background)]
}

func (o Output) transform() string {
	if o.Transform == "" {
		return scene.TransformNormal.String()
	}
	return o.Transform
}

// SceneOutput converts the output's configuration into a scene.Output.
func (o Output) SceneOutput() (*scene.Output, error) {
	t, err := scene.ParseTransform(o.transform())
	if err != nil {
		return nil, err
	}

	return &scene.Output{
		Name:         o.Name,
		Description:  strings.TrimSpace(o.Make + " " + o.Model),
		Make:         o.Make,
		Model:        o.Model,
		Position:     image.Pt(o.X, o.Y),
		Mode:         image.Pt(o.Width, o.Height),
		Refresh:      o.Refresh,
		PhysicalSize: image.Pt(o.PhysicalWidth, o.PhysicalHeight),
		Scale:        max(o.Scale, 1),
		Transform:    t,
	}, nil
}
