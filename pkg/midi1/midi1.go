// Package midi1 bridges SysEx7 buffers to MIDI 1.0 byte-stream messages.
//
// A SysEx7 buffer here is the complete F0 ... F7 frame, the same bytes the
// ump package packetizes. Conversion in either direction keeps the buffer
// byte for byte, so a frame taken off a MIDI 1.0 port can be routed through
// the UMP stack and back.
package midi1

import (
	"errors"
	"fmt"

	"gitlab.com/gomidi/midi/v2"

	"github.com/fountain-coach/midi2-go/pkg/ump"
)

// Errors returned by ToMessage.
var (
	ErrNotSysEx = errors.New("buffer is not a F0...F7 frame")
	ErrNot7Bit  = errors.New("sysex data byte above 0x7F")
)

// ToMessage converts a SysEx7 buffer into a gomidi message.
func ToMessage(buf []byte) (midi.Message, error) {
	if len(buf) < 2 || buf[0] != 0xF0 || buf[len(buf)-1] != 0xF7 {
		return nil, ErrNotSysEx
	}
	data := buf[1 : len(buf)-1]
	for i, b := range data {
		if b > 0x7F {
			return nil, fmt.Errorf("%w: 0x%02X at offset %d", ErrNot7Bit, b, i+1)
		}
	}
	return midi.SysEx(data), nil
}

// FromMessage returns the SysEx7 buffer carried by msg. It reports false
// for any other message type.
func FromMessage(msg midi.Message) ([]byte, bool) {
	var data []byte
	if !msg.GetSysEx(&data) {
		return nil, false
	}
	out := make([]byte, 0, len(data)+2)
	out = append(out, 0xF0)
	out = append(out, data...)
	return append(out, 0xF7), true
}

// ToWords packetizes a SysEx message as UMP Data-64 words on group.
func ToWords(msg midi.Message, group uint8) ([]uint32, bool) {
	buf, ok := FromMessage(msg)
	if !ok {
		return nil, false
	}
	return ump.EncodeSysEx7(buf, group), true
}

// FromWords reassembles UMP words into a SysEx message. Incomplete or
// malformed word streams report false.
func FromWords(words []uint32) (midi.Message, bool) {
	buf, ok := ump.DecodeSysEx7(words)
	if !ok {
		return nil, false
	}
	msg, err := ToMessage(buf)
	if err != nil {
		return nil, false
	}
	return msg, true
}

// Manufacturer returns the manufacturer ID of a SysEx7 buffer: one byte,
// or three when the first is 0x00.
func Manufacturer(buf []byte) ([]byte, bool) {
	if len(buf) < 3 || buf[0] != 0xF0 {
		return nil, false
	}
	if buf[1] != 0x00 {
		return buf[1:2], true
	}
	if len(buf) < 5 {
		return nil, false
	}
	return buf[1:4], true
}

// Describe renders buf as a MIDI 1.0 message for display.
func Describe(buf []byte) (string, error) {
	msg, err := ToMessage(buf)
	if err != nil {
		return "", err
	}
	desc := fmt.Sprintf("MIDI 1.0 %s (%d bytes)", msg.String(), len(buf))
	if id, ok := Manufacturer(buf); ok {
		desc += fmt.Sprintf(" manufacturer=% X", id)
	}
	return desc, nil
}
