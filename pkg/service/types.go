package service

import (
	"errors"
	"log/slog"
	"time"

	"github.com/fountain-coach/midi2-go/pkg/ci"
	"github.com/fountain-coach/midi2-go/pkg/log"
	"github.com/fountain-coach/midi2-go/pkg/registry"
	"github.com/fountain-coach/midi2-go/pkg/ump"
)

// Service errors.
var (
	ErrInvalidConfig  = errors.New("invalid configuration")
	ErrAlreadyStarted = errors.New("poller already started")
	ErrUnrecognized   = errors.New("message is neither vendor nor property exchange")
	ErrReceive        = errors.New("transport receive failed")
)

// SnapshotTopic is the vendor topic used to publish handler state.
const SnapshotTopic = "state.snapshot"

// DefaultPollInterval is the Poller interval when none is configured.
const DefaultPollInterval = 10 * time.Millisecond

// RouterConfig configures a Router.
type RouterConfig struct {
	// Handler is the registry name this router serves.
	Handler string

	// DeviceID is the MIDI-CI device ID for outgoing envelopes. Nil
	// selects the function block (0x7F).
	DeviceID *byte

	// MaxMessageSize bounds reassembled messages. Zero selects
	// ump.DefaultMaxMessageSize.
	MaxMessageSize int

	// OnSnapshot is called with snapshots received from the peer in
	// GetReply, SetReply, and Notify messages.
	OnSnapshot func(registry.Snapshot)

	// ConnectionID tags capture events. Usually the endpoint ID.
	ConnectionID string

	// ProtocolLogger receives capture events. Nil disables capture.
	ProtocolLogger log.Logger

	// Logger is the operational logger. Nil selects slog.Default().
	Logger *slog.Logger
}

func (c *RouterConfig) applyDefaults() {
	if c.DeviceID == nil {
		id := ci.DeviceIDFunctionBlock
		c.DeviceID = &id
	} else {
		id := *c.DeviceID
		c.DeviceID = &id
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = ump.DefaultMaxMessageSize
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	c.ProtocolLogger = log.OrNoop(c.ProtocolLogger)
}

// PollerConfig configures a Poller.
type PollerConfig struct {
	// Interval between polls. Zero selects DefaultPollInterval.
	Interval time.Duration

	// Logger is the operational logger. Nil selects slog.Default().
	Logger *slog.Logger
}

// PollerStats counts Poller activity.
type PollerStats struct {
	Polls    uint64
	Messages uint64
	Replies  uint64
	Errors   uint64
}
