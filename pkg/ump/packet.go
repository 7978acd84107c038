package ump

import "fmt"

// Packet layout constants.
const (
	// MessageTypeSysEx7 is the UMP message type nibble for 7-bit SysEx
	// (the "Data 64" message group).
	MessageTypeSysEx7 uint8 = 0x3

	// MaxPayloadPerPacket is the number of SysEx7 bytes one packet carries.
	MaxPayloadPerPacket = 6

	// WordsPerPacket is the number of 32-bit words per SysEx7 packet.
	WordsPerPacket = 2

	// MaxGroup is the highest UMP group number.
	MaxGroup uint8 = 0x0F
)

// Status is the 4-bit SysEx7 packet status.
type Status uint8

const (
	// StatusComplete marks a message that fits in a single packet.
	StatusComplete Status = 0x0
	// StatusStart marks the first packet of a multi-packet message.
	StatusStart Status = 0x1
	// StatusContinue marks an interior packet.
	StatusContinue Status = 0x2
	// StatusEnd marks the last packet of a multi-packet message.
	StatusEnd Status = 0x3
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusComplete:
		return "COMPLETE"
	case StatusStart:
		return "START"
	case StatusContinue:
		return "CONTINUE"
	case StatusEnd:
		return "END"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", uint8(s))
	}
}

// IsValid reports whether s is one of the four defined statuses.
func (s Status) IsValid() bool {
	return s <= StatusEnd
}

// Opens reports whether a packet with this status begins a message.
func (s Status) Opens() bool {
	return s == StatusComplete || s == StatusStart
}

// Closes reports whether a packet with this status ends a message.
func (s Status) Closes() bool {
	return s == StatusComplete || s == StatusEnd
}

// WordPair is one 64-bit SysEx7 packet as two 32-bit words.
type WordPair [WordsPerPacket]uint32

// NewWordPair packs a SysEx7 packet. Bytes beyond chunk are zero padded;
// chunk must not be longer than MaxPayloadPerPacket.
func NewWordPair(group uint8, status Status, chunk []byte) WordPair {
	var b [MaxPayloadPerPacket]byte
	n := copy(b[:], chunk)

	w1 := uint32(MessageTypeSysEx7)<<28 |
		uint32(group&0x0F)<<24 |
		uint32(status&0x0F)<<20 |
		uint32(n&0x0F)<<16 |
		uint32(b[0])<<8 |
		uint32(b[1])
	w2 := uint32(b[2])<<24 |
		uint32(b[3])<<16 |
		uint32(b[4])<<8 |
		uint32(b[5])
	return WordPair{w1, w2}
}

// ParsePair builds a WordPair from two received words. It does not validate.
func ParsePair(w1, w2 uint32) WordPair {
	return WordPair{w1, w2}
}

// MessageType returns the message type nibble of the first word.
func (p WordPair) MessageType() uint8 {
	return uint8(p[0]>>28) & 0x0F
}

// Group returns the UMP group (0-15).
func (p WordPair) Group() uint8 {
	return uint8(p[0]>>24) & 0x0F
}

// Status returns the packet status.
func (p WordPair) Status() Status {
	return Status(uint8(p[0]>>20) & 0x0F)
}

// Count returns the raw byte-count nibble. Valid packets carry 0-6.
func (p WordPair) Count() int {
	return int(p[0]>>16) & 0x0F
}

// Bytes returns all six payload byte positions, including padding.
func (p WordPair) Bytes() [MaxPayloadPerPacket]byte {
	return [MaxPayloadPerPacket]byte{
		byte(p[0] >> 8),
		byte(p[0]),
		byte(p[1] >> 24),
		byte(p[1] >> 16),
		byte(p[1] >> 8),
		byte(p[1]),
	}
}

// Payload returns the leading Count() payload bytes. The count is clamped
// to MaxPayloadPerPacket; use Validate to reject such packets instead.
func (p WordPair) Payload() []byte {
	n := p.Count()
	if n > MaxPayloadPerPacket {
		n = MaxPayloadPerPacket
	}
	all := p.Bytes()
	out := make([]byte, n)
	copy(out, all[:n])
	return out
}

// Validate checks the message type, status, and byte count.
func (p WordPair) Validate() error {
	if mt := p.MessageType(); mt != MessageTypeSysEx7 {
		return fmt.Errorf("%w: 0x%X", ErrWrongMessageType, mt)
	}
	if !p.Status().IsValid() {
		return fmt.Errorf("%w: %d", ErrInvalidStatus, uint8(p.Status()))
	}
	if n := p.Count(); n > MaxPayloadPerPacket {
		return fmt.Errorf("%w: %d", ErrInvalidByteCount, n)
	}
	return nil
}

// Words returns the pair as a slice.
func (p WordPair) Words() []uint32 {
	return []uint32{p[0], p[1]}
}
