package pe

import (
	"fmt"

	"github.com/fountain-coach/midi2-go/pkg/ci"
	"github.com/fountain-coach/midi2-go/pkg/jsonvalue"
)

// ErrNotPropertyExchange indicates a valid MIDI-CI envelope with a sub-ID#2
// other than Property Exchange.
var ErrNotPropertyExchange = fmt.Errorf("%w: sub-ID#2 is not property exchange", ci.ErrNotMIDICI)

// NewGet returns a Get request with no data.
func NewGet(id uint32) Message {
	return Message{Command: CommandGet, RequestID: id}
}

// NewSet returns a Set request carrying data.
func NewSet(id uint32, data []byte) Message {
	return Message{Command: CommandSet, RequestID: id, Data: data}
}

// NewReply returns a message with the given command answering id.
func NewReply(cmd Command, id uint32, data []byte) Message {
	return Message{Command: cmd, RequestID: id, Data: data}
}

// NewJSON returns a message whose data is the ASCII-safe JSON rendering of v.
func NewJSON(cmd Command, id uint32, v jsonvalue.Value) (Message, error) {
	data, err := jsonvalue.MarshalASCII(v)
	if err != nil {
		return Message{}, err
	}
	return Message{Command: cmd, RequestID: id, Data: data}, nil
}

// WrapEnvelope encodes m and places it in a non-realtime MIDI-CI envelope
// addressed to deviceID.
func WrapEnvelope(m Message, deviceID byte) ([]byte, error) {
	body, err := Encode(m)
	if err != nil {
		return nil, err
	}
	env := ci.Envelope{
		Scope:    ci.ScopeNonRealtime,
		DeviceID: deviceID,
		SubID2:   ci.SubIDPropertyExchange,
		Body:     body,
	}
	return env.Encode()
}

// Unwrap validates a SysEx7 buffer as a Property Exchange envelope and
// decodes its body.
func Unwrap(buf []byte) (Message, error) {
	env, err := ci.ParseEnvelope(buf)
	if err != nil {
		return Message{}, err
	}
	if env.SubID2 != ci.SubIDPropertyExchange {
		return Message{}, fmt.Errorf("%w: 0x%02X", ErrNotPropertyExchange, env.SubID2)
	}
	return Decode(env.Body)
}
