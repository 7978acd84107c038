package pe

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/fountain-coach/midi2-go/pkg/jsonvalue"
)

// Codec errors.
var (
	ErrUnknownCommand      = errors.New("unknown property exchange command")
	ErrUnsupportedEncoding = errors.New("unsupported property exchange encoding")
	ErrTruncated           = errors.New("property exchange body truncated")
	ErrInvalidUTF8         = errors.New("property exchange data is not valid UTF-8")
	ErrInvalidJSON         = errors.New("property exchange data is not valid JSON")
	ErrRequestIDRange      = errors.New("request ID exceeds 28 bits")
	ErrPayloadTooLarge     = errors.New("property exchange payload exceeds 127 bytes")
)

// MaxRequestID is the largest request ID that fits four 7-bit groups.
const MaxRequestID uint32 = 0x0FFFFFFF

// MaxPartLength is the largest header or data length one prefix byte can declare.
const MaxPartLength = 0x7F

// minBodyLength covers command, request ID, encoding, and both length bytes.
const minBodyLength = 1 + 4 + 1 + 1 + 1

// Command is the Property Exchange command byte.
type Command uint8

const (
	CommandGet            Command = 0x01
	CommandGetReply       Command = 0x02
	CommandSet            Command = 0x04
	CommandSetReply       Command = 0x05
	CommandNotify         Command = 0x08
	CommandSubscribe      Command = 0x09
	CommandSubscribeReply Command = 0x0A
)

// String returns the command name.
func (c Command) String() string {
	switch c {
	case CommandGet:
		return "GET"
	case CommandGetReply:
		return "GET_REPLY"
	case CommandSet:
		return "SET"
	case CommandSetReply:
		return "SET_REPLY"
	case CommandNotify:
		return "NOTIFY"
	case CommandSubscribe:
		return "SUBSCRIBE"
	case CommandSubscribeReply:
		return "SUBSCRIBE_REPLY"
	default:
		return "UNKNOWN"
	}
}

// IsValid reports whether c is a known command.
func (c Command) IsValid() bool {
	switch c {
	case CommandGet, CommandGetReply, CommandSet, CommandSetReply,
		CommandNotify, CommandSubscribe, CommandSubscribeReply:
		return true
	}
	return false
}

// IsSnapshot reports whether messages with this command carry a state
// snapshot to be applied by the receiver.
func (c Command) IsSnapshot() bool {
	switch c {
	case CommandGetReply, CommandSetReply, CommandNotify:
		return true
	}
	return false
}

// Encoding is the payload encoding byte.
type Encoding uint8

// EncodingJSON is the only supported encoding.
const EncodingJSON Encoding = 0x00

// Message is a decoded Property Exchange body.
type Message struct {
	Command   Command
	RequestID uint32
	Encoding  Encoding
	Header    []byte
	Data      []byte
}

// IsSnapshot reports whether m carries a state snapshot.
func (m Message) IsSnapshot() bool {
	return m.Command.IsSnapshot()
}

// JSON parses the data bytes as a UTF-8 JSON document.
func (m Message) JSON() (jsonvalue.Value, error) {
	if !utf8.Valid(m.Data) {
		return jsonvalue.Value{}, ErrInvalidUTF8
	}
	v, err := jsonvalue.Parse(m.Data)
	if err != nil {
		return jsonvalue.Value{}, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	return v, nil
}

// String returns a short description for logs.
func (m Message) String() string {
	return fmt.Sprintf("%s id=%d header=%d data=%d", m.Command, m.RequestID, len(m.Header), len(m.Data))
}

// Decode parses a Property Exchange body.
func Decode(body []byte) (Message, error) {
	if len(body) < 1 {
		return Message{}, fmt.Errorf("%w: empty body", ErrTruncated)
	}
	cmd := Command(body[0])
	if !cmd.IsValid() {
		return Message{}, fmt.Errorf("%w: 0x%02X", ErrUnknownCommand, body[0])
	}
	if len(body) < minBodyLength {
		return Message{}, fmt.Errorf("%w: %d bytes", ErrTruncated, len(body))
	}

	id := uint32(body[1]&0x7F)<<21 |
		uint32(body[2]&0x7F)<<14 |
		uint32(body[3]&0x7F)<<7 |
		uint32(body[4]&0x7F)

	enc := Encoding(body[5])
	if enc != EncodingJSON {
		return Message{}, fmt.Errorf("%w: 0x%02X", ErrUnsupportedEncoding, body[5])
	}

	off := 6
	hdrLen := int(body[off] & 0x7F)
	off++
	if off+hdrLen > len(body) {
		return Message{}, fmt.Errorf("%w: header length %d", ErrTruncated, hdrLen)
	}
	header := make([]byte, hdrLen)
	for i, b := range body[off : off+hdrLen] {
		header[i] = b & 0x7F
	}
	off += hdrLen

	if off >= len(body) {
		return Message{}, fmt.Errorf("%w: missing data length", ErrTruncated)
	}
	dataLen := int(body[off] & 0x7F)
	off++
	if off+dataLen > len(body) {
		return Message{}, fmt.Errorf("%w: data length %d", ErrTruncated, dataLen)
	}
	data := make([]byte, dataLen)
	for i, b := range body[off : off+dataLen] {
		data[i] = b & 0x7F
	}

	return Message{
		Command:   cmd,
		RequestID: id,
		Encoding:  enc,
		Header:    header,
		Data:      data,
	}, nil
}

// Encode serializes m. Header and data bytes are masked to 7 bits. Parts
// longer than 127 bytes are rejected rather than truncated.
func Encode(m Message) ([]byte, error) {
	if !m.Command.IsValid() {
		return nil, fmt.Errorf("%w: 0x%02X", ErrUnknownCommand, uint8(m.Command))
	}
	if m.RequestID > MaxRequestID {
		return nil, fmt.Errorf("%w: %d", ErrRequestIDRange, m.RequestID)
	}
	if m.Encoding != EncodingJSON {
		return nil, fmt.Errorf("%w: 0x%02X", ErrUnsupportedEncoding, uint8(m.Encoding))
	}
	if len(m.Header) > MaxPartLength {
		return nil, fmt.Errorf("%w: header is %d bytes", ErrPayloadTooLarge, len(m.Header))
	}
	if len(m.Data) > MaxPartLength {
		return nil, fmt.Errorf("%w: data is %d bytes", ErrPayloadTooLarge, len(m.Data))
	}

	out := make([]byte, 0, minBodyLength+len(m.Header)+len(m.Data))
	out = append(out,
		byte(m.Command),
		byte(m.RequestID>>21)&0x7F,
		byte(m.RequestID>>14)&0x7F,
		byte(m.RequestID>>7)&0x7F,
		byte(m.RequestID)&0x7F,
		byte(m.Encoding),
		byte(len(m.Header)),
	)
	for _, b := range m.Header {
		out = append(out, b&0x7F)
	}
	out = append(out, byte(len(m.Data)))
	for _, b := range m.Data {
		out = append(out, b&0x7F)
	}
	return out, nil
}
