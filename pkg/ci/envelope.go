// Package ci validates and builds MIDI-CI Universal System Exclusive
// envelopes.
//
// An envelope is a complete SysEx7 buffer of the form
//
//	F0 {7E|7F} <deviceId> 0D <subId2> ...body... F7
//
// ValidateEnvelope performs only the structural checks needed before any
// body parser is allowed to look at the buffer. MIDI-CI discovery and
// capability negotiation are not handled here.
package ci

import (
	"errors"
	"fmt"
)

// SysEx framing bytes.
const (
	SysExStart byte = 0xF0
	SysExEnd   byte = 0xF7
)

// SubIDMIDICI is Universal SysEx sub-ID#1 for MIDI-CI.
const SubIDMIDICI byte = 0x0D

// Sub-ID#2 values used by this module.
const (
	// SubIDPropertyExchange carries Property Exchange messages.
	SubIDPropertyExchange byte = 0x7C
)

// DeviceIDFunctionBlock addresses the whole function block (0x7F).
const DeviceIDFunctionBlock byte = 0x7F

// MinEnvelopeLength is the shortest buffer that can hold an envelope:
// F0, scope, device, sub-ID#1, sub-ID#2, at least one body byte, F7.
const MinEnvelopeLength = 7

// Scope is the Universal SysEx class byte.
type Scope byte

const (
	// ScopeNonRealtime is Universal Non-Real Time (0x7E).
	ScopeNonRealtime Scope = 0x7E
	// ScopeRealtime is Universal Real Time (0x7F).
	ScopeRealtime Scope = 0x7F
)

// String returns the scope name.
func (s Scope) String() string {
	switch s {
	case ScopeNonRealtime:
		return "NON_REALTIME"
	case ScopeRealtime:
		return "REALTIME"
	default:
		return "UNKNOWN"
	}
}

// IsValid reports whether s is a universal scope.
func (s Scope) IsValid() bool {
	return s == ScopeNonRealtime || s == ScopeRealtime
}

// Envelope errors.
var (
	ErrTooShort     = errors.New("envelope too short")
	ErrNoSysExStart = errors.New("envelope does not start with F0")
	ErrNoSysExEnd   = errors.New("envelope does not end with F7")
	ErrNotUniversal = errors.New("envelope scope is not universal")
	ErrNotMIDICI    = errors.New("envelope is not MIDI-CI")
	ErrNot7Bit      = errors.New("envelope byte has high bit set")
)

// Envelope is a validated MIDI-CI envelope.
type Envelope struct {
	Scope    Scope
	DeviceID byte
	SubID2   byte
	// Body holds the bytes after SubID2 up to, but not including, F7.
	Body []byte
}

// ParseEnvelope validates buf and returns the envelope. Checks run in order
// (length, F0, F7, scope, sub-ID#1) and the first failure is returned
// without examining the rest of the buffer.
func ParseEnvelope(buf []byte) (Envelope, error) {
	if len(buf) < MinEnvelopeLength {
		return Envelope{}, fmt.Errorf("%w: %d bytes", ErrTooShort, len(buf))
	}
	if buf[0] != SysExStart {
		return Envelope{}, fmt.Errorf("%w: 0x%02X", ErrNoSysExStart, buf[0])
	}
	if buf[len(buf)-1] != SysExEnd {
		return Envelope{}, fmt.Errorf("%w: 0x%02X", ErrNoSysExEnd, buf[len(buf)-1])
	}
	if scope := Scope(buf[1]); !scope.IsValid() {
		return Envelope{}, fmt.Errorf("%w: 0x%02X", ErrNotUniversal, buf[1])
	}
	if buf[3] != SubIDMIDICI {
		return Envelope{}, fmt.Errorf("%w: sub-ID#1 0x%02X", ErrNotMIDICI, buf[3])
	}

	body := make([]byte, len(buf)-6)
	copy(body, buf[5:len(buf)-1])
	return Envelope{
		Scope:    Scope(buf[1]),
		DeviceID: buf[2],
		SubID2:   buf[4],
		Body:     body,
	}, nil
}

// ValidateEnvelope is ParseEnvelope without the reason: it returns the
// envelope and true only when every structural check passes.
func ValidateEnvelope(buf []byte) (Envelope, bool) {
	env, err := ParseEnvelope(buf)
	if err != nil {
		return Envelope{}, false
	}
	return env, true
}

// IsEnvelope reports whether buf passes envelope validation.
func IsEnvelope(buf []byte) bool {
	_, ok := ValidateEnvelope(buf)
	return ok
}

// Encode returns the SysEx7 buffer for e. Every byte between F0 and F7 must
// fit in 7 bits.
func (e Envelope) Encode() ([]byte, error) {
	if !e.Scope.IsValid() {
		return nil, fmt.Errorf("%w: 0x%02X", ErrNotUniversal, byte(e.Scope))
	}
	if e.DeviceID > 0x7F {
		return nil, fmt.Errorf("%w: device ID 0x%02X", ErrNot7Bit, e.DeviceID)
	}
	if e.SubID2 > 0x7F {
		return nil, fmt.Errorf("%w: sub-ID#2 0x%02X", ErrNot7Bit, e.SubID2)
	}
	for i, b := range e.Body {
		if b > 0x7F {
			return nil, fmt.Errorf("%w: body[%d] = 0x%02X", ErrNot7Bit, i, b)
		}
	}

	out := make([]byte, 0, len(e.Body)+6)
	out = append(out, SysExStart, byte(e.Scope), e.DeviceID, SubIDMIDICI, e.SubID2)
	out = append(out, e.Body...)
	out = append(out, SysExEnd)
	return out, nil
}
