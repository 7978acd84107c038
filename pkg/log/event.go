package log

import (
	"time"

	"github.com/fountain-coach/midi2-go/pkg/pe"
)

// Event represents a protocol log event captured at any layer.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// ConnectionID identifies the endpoint session (UUID).
	ConnectionID string `cbor:"2,keyasint"`

	// Direction indicates message flow.
	Direction Direction `cbor:"3,keyasint"`

	// Layer where the event was captured.
	Layer Layer `cbor:"4,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"5,keyasint"`

	// Endpoint is the display name of the endpoint.
	Endpoint string `cbor:"6,keyasint,omitempty"`

	// Group is the UMP group the event belongs to.
	Group uint8 `cbor:"7,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Packet   *PacketEvent    `cbor:"10,keyasint,omitempty"` // Transport layer
	SysEx    *SysExEvent     `cbor:"11,keyasint,omitempty"` // Framing layer
	Message  *MessageEvent   `cbor:"12,keyasint,omitempty"` // Codec layer
	Snapshot *SnapshotEvent  `cbor:"13,keyasint,omitempty"` // Service layer
	Error    *ErrorEventData `cbor:"14,keyasint,omitempty"` // Errors at any layer
}

// Direction indicates the direction of message flow.
type Direction uint8

const (
	// DirectionIn indicates an incoming message.
	DirectionIn Direction = 0
	// DirectionOut indicates an outgoing message.
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Layer indicates which protocol layer captured the event.
type Layer uint8

const (
	// LayerTransport is the UMP word layer.
	LayerTransport Layer = 0
	// LayerFraming is the SysEx7 packetization layer.
	LayerFraming Layer = 1
	// LayerCodec is the Vendor-JSON and Property Exchange layer.
	LayerCodec Layer = 2
	// LayerService is the dispatch layer.
	LayerService Layer = 3
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerTransport:
		return "TRANSPORT"
	case LayerFraming:
		return "FRAMING"
	case LayerCodec:
		return "CODEC"
	case LayerService:
		return "SERVICE"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryMessage indicates protocol traffic.
	CategoryMessage Category = 0
	// CategoryState indicates a handler state change.
	CategoryState Category = 1
	// CategoryError indicates an error event.
	CategoryError Category = 2
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryMessage:
		return "MESSAGE"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// PacketEvent captures UMP words at the transport layer.
type PacketEvent struct {
	// Words holds the captured words (may be truncated for long streams).
	Words []uint32 `cbor:"1,keyasint,omitempty"`

	// Count is the total number of words before truncation.
	Count int `cbor:"2,keyasint"`

	// Truncated indicates if Words was truncated.
	Truncated bool `cbor:"3,keyasint,omitempty"`
}

// SysExEvent captures a reassembled SysEx7 buffer.
type SysExEvent struct {
	// Size is the buffer length in bytes.
	Size int `cbor:"1,keyasint"`

	// Data is the buffer (may be truncated for large messages).
	Data []byte `cbor:"2,keyasint,omitempty"`

	// Complete is false when no terminating packet was seen.
	Complete bool `cbor:"3,keyasint,omitempty"`

	// Truncated indicates if Data was truncated.
	Truncated bool `cbor:"4,keyasint,omitempty"`

	// Packets is the number of UMP packets the buffer spanned.
	Packets int `cbor:"5,keyasint,omitempty"`
}

// Protocol identifies the codec of a decoded message.
type Protocol uint8

const (
	// ProtocolVendor is a Vendor-JSON frame.
	ProtocolVendor Protocol = 0
	// ProtocolPropertyExchange is a MIDI-CI Property Exchange message.
	ProtocolPropertyExchange Protocol = 1
)

// String returns the protocol name.
func (p Protocol) String() string {
	switch p {
	case ProtocolVendor:
		return "VENDOR"
	case ProtocolPropertyExchange:
		return "PE"
	default:
		return "UNKNOWN"
	}
}

// MessageEvent captures a decoded message at the codec layer.
type MessageEvent struct {
	// Protocol is the codec that decoded the message.
	Protocol Protocol `cbor:"1,keyasint"`

	// Topic is the vendor topic (vendor messages only).
	Topic string `cbor:"2,keyasint,omitempty"`

	// Command is the Property Exchange command (PE messages only).
	Command *pe.Command `cbor:"3,keyasint,omitempty"`

	// RequestID is the Property Exchange request ID (PE messages only).
	RequestID *uint32 `cbor:"4,keyasint,omitempty"`

	// Payload is the JSON data carried by the message.
	Payload []byte `cbor:"5,keyasint,omitempty"`
}

// SnapshotEvent captures handler state after a dispatch.
type SnapshotEvent struct {
	// Handler is the registered handler name.
	Handler string `cbor:"1,keyasint"`

	// Properties maps property names to their values.
	Properties map[string][]float64 `cbor:"2,keyasint,omitempty"`
}

// ErrorEventData captures errors at any layer.
type ErrorEventData struct {
	// Layer where the error occurred.
	Layer Layer `cbor:"1,keyasint"`

	// Message is the error message.
	Message string `cbor:"2,keyasint"`

	// Context describes what operation was being performed.
	Context string `cbor:"3,keyasint,omitempty"`
}
