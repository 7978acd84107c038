// Package config loads the YAML host configuration.
//
// Example file:
//
//	group: 0
//	poll_interval: 10ms
//	queue_size: 256
//	capture: /tmp/host.ulog
//	log_level: debug
//	handlers:
//	  - name: Canvas
//	    kind: canvas
//	    zoom: 1.5
//
// Zero values select defaults; see ApplyDefaults.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/fountain-coach/midi2-go/pkg/registry"
	"github.com/fountain-coach/midi2-go/pkg/transport"
	"github.com/fountain-coach/midi2-go/pkg/ump"
)

// Defaults applied to zero fields.
const (
	DefaultPollInterval = 10 * time.Millisecond
	DefaultLogLevel     = "info"
	DefaultHandlerName  = "Canvas"
	KindCanvas          = "canvas"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// HandlerConfig describes one registered handler and its endpoint.
type HandlerConfig struct {
	// Name is the registry name.
	Name string `yaml:"name"`

	// Kind selects the handler implementation. Only "canvas" exists.
	Kind string `yaml:"kind"`

	// Endpoint is the loopback display name. Empty uses Name.
	Endpoint string `yaml:"endpoint,omitempty"`

	// Zoom is the initial zoom. Zero means 1.
	Zoom float64 `yaml:"zoom,omitempty"`

	// TranslationX and TranslationY are the initial translation.
	TranslationX float64 `yaml:"translation_x,omitempty"`
	TranslationY float64 `yaml:"translation_y,omitempty"`
}

// Config is the host configuration.
type Config struct {
	// Group is the UMP group replies and console traffic use (0-15).
	Group uint8 `yaml:"group"`

	// DeviceID is the MIDI-CI device ID on outgoing envelopes. Unset
	// selects the function block.
	DeviceID *uint8 `yaml:"device_id,omitempty"`

	// PollInterval is the Poller interval.
	PollInterval time.Duration `yaml:"poll_interval"`

	// QueueSize bounds each endpoint queue.
	QueueSize int `yaml:"queue_size"`

	// MaxMessageSize bounds reassembled SysEx messages.
	MaxMessageSize int `yaml:"max_message_size,omitempty"`

	// CapturePath is the protocol capture file. Empty disables capture.
	CapturePath string `yaml:"capture,omitempty"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	// Handlers lists the handlers to register.
	Handlers []HandlerConfig `yaml:"handlers"`
}

// LoadError describes a configuration file that could not be loaded.
type LoadError struct {
	// File is the path, empty when parsing bytes directly.
	File string

	// Message describes the error.
	Message string

	// Cause is the underlying error, if any.
	Cause error
}

func (e *LoadError) Error() string {
	msg := e.Message
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	if e.File == "" {
		return msg
	}
	return e.File + ": " + msg
}

func (e *LoadError) Unwrap() error {
	return e.Cause
}

// Default returns a configuration with every default applied.
func Default() *Config {
	c := &Config{}
	c.ApplyDefaults()
	return c
}

// Parse decodes YAML bytes, applies defaults, and validates the result.
// Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	var c Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return nil, &LoadError{Message: "failed to parse YAML", Cause: err}
	}

	c.ApplyDefaults()
	if err := c.Validate(); err != nil {
		return nil, &LoadError{Message: "validation failed", Cause: err}
	}
	return &c, nil
}

// Load reads and parses the file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{File: path, Message: "failed to read file", Cause: err}
	}
	c, err := Parse(data)
	if err != nil {
		var le *LoadError
		if errors.As(err, &le) {
			le.File = path
			return nil, le
		}
		return nil, &LoadError{File: path, Message: err.Error()}
	}
	return c, nil
}

// ApplyDefaults fills zero fields with defaults.
func (c *Config) ApplyDefaults() {
	if c.PollInterval == 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.QueueSize == 0 {
		c.QueueSize = transport.DefaultQueueSize
	}
	if c.MaxMessageSize == 0 {
		c.MaxMessageSize = ump.DefaultMaxMessageSize
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if len(c.Handlers) == 0 {
		c.Handlers = []HandlerConfig{{Name: DefaultHandlerName}}
	}
	for i := range c.Handlers {
		h := &c.Handlers[i]
		if h.Kind == "" {
			h.Kind = KindCanvas
		}
		if h.Endpoint == "" {
			h.Endpoint = h.Name
		}
		if h.Zoom == 0 {
			h.Zoom = 1
		}
	}
}

// Validate checks ranges and handler definitions.
func (c *Config) Validate() error {
	var errs []error
	if c.Group > ump.MaxGroup {
		errs = append(errs, fmt.Errorf("%w: group %d out of range 0-%d", ErrInvalid, c.Group, ump.MaxGroup))
	}
	if c.DeviceID != nil && *c.DeviceID > 0x7F {
		errs = append(errs, fmt.Errorf("%w: device_id 0x%02X is not 7-bit", ErrInvalid, *c.DeviceID))
	}
	if c.PollInterval < 0 {
		errs = append(errs, fmt.Errorf("%w: poll_interval %v is negative", ErrInvalid, c.PollInterval))
	}
	if c.QueueSize < 0 {
		errs = append(errs, fmt.Errorf("%w: queue_size %d is negative", ErrInvalid, c.QueueSize))
	}
	if c.MaxMessageSize < 0 {
		errs = append(errs, fmt.Errorf("%w: max_message_size %d is negative", ErrInvalid, c.MaxMessageSize))
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}

	names := make(map[string]bool, len(c.Handlers))
	endpoints := make(map[string]bool, len(c.Handlers))
	for i, h := range c.Handlers {
		switch {
		case h.Name == "":
			errs = append(errs, fmt.Errorf("%w: handlers[%d] has no name", ErrInvalid, i))
			continue
		case names[h.Name]:
			errs = append(errs, fmt.Errorf("%w: duplicate handler %q", ErrInvalid, h.Name))
		}
		names[h.Name] = true

		if h.Endpoint != "" && endpoints[h.Endpoint] {
			errs = append(errs, fmt.Errorf("%w: duplicate endpoint %q", ErrInvalid, h.Endpoint))
		}
		endpoints[h.Endpoint] = true

		if h.Kind != KindCanvas {
			errs = append(errs, fmt.Errorf("%w: handler %q has unknown kind %q", ErrInvalid, h.Name, h.Kind))
		}
		if h.Zoom != 0 && (h.Zoom < registry.MinZoom || h.Zoom > registry.MaxZoom) {
			errs = append(errs, fmt.Errorf("%w: handler %q zoom %v outside %v-%v",
				ErrInvalid, h.Name, h.Zoom, registry.MinZoom, registry.MaxZoom))
		}
	}
	return errors.Join(errs...)
}

// Level returns the configured slog level.
func (c *Config) Level() slog.Level {
	level, err := ParseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

// ParseLevel maps debug, info, warn, and error to slog levels.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("%w: unknown log level %q", ErrInvalid, s)
	}
}

// NewHandler builds the registry handler h describes.
func NewHandler(h HandlerConfig) (registry.Handler, error) {
	switch h.Kind {
	case KindCanvas, "":
		opts := []registry.CanvasOption{registry.WithInitialTranslation(h.TranslationX, h.TranslationY)}
		if h.Zoom != 0 {
			opts = append(opts, registry.WithInitialZoom(h.Zoom))
		}
		return registry.NewCanvas(opts...), nil
	default:
		return nil, fmt.Errorf("%w: unknown handler kind %q", ErrInvalid, h.Kind)
	}
}
