package ump

import (
	"errors"
	"fmt"
)

// Framing errors.
var (
	// ErrWrongMessageType indicates a packet whose message type is not SysEx7.
	ErrWrongMessageType = errors.New("not a SysEx7 packet")

	// ErrInvalidStatus indicates a status nibble outside complete/start/continue/end.
	ErrInvalidStatus = errors.New("invalid SysEx7 status")

	// ErrInvalidByteCount indicates a byte-count nibble above 6.
	ErrInvalidByteCount = errors.New("invalid SysEx7 byte count")

	// ErrTruncated indicates a word stream that ends in the middle of a packet.
	ErrTruncated = errors.New("SysEx7 packet truncated")

	// ErrMissingTerminator indicates a stream that ended before a complete or end packet.
	ErrMissingTerminator = errors.New("SysEx7 message not terminated")
)

// EncodeSysEx7 splits data into SysEx7 packets on the given group and
// returns the concatenated words, two per packet. Empty input yields no
// words; callers that need to signal an empty message must do so elsewhere.
func EncodeSysEx7(data []byte, group uint8) []uint32 {
	if len(data) == 0 {
		return nil
	}

	chunks := (len(data) + MaxPayloadPerPacket - 1) / MaxPayloadPerPacket
	words := make([]uint32, 0, chunks*WordsPerPacket)

	for i := 0; i < chunks; i++ {
		start := i * MaxPayloadPerPacket
		end := min(start+MaxPayloadPerPacket, len(data))

		pair := NewWordPair(group, chunkStatus(i, chunks), data[start:end])
		words = append(words, pair[0], pair[1])
	}
	return words
}

// chunkStatus returns the status for chunk i of n.
func chunkStatus(i, n int) Status {
	switch {
	case n == 1:
		return StatusComplete
	case i == 0:
		return StatusStart
	case i == n-1:
		return StatusEnd
	default:
		return StatusContinue
	}
}

// Result is the outcome of decoding a SysEx7 word stream.
type Result struct {
	// Data is the reassembled byte buffer.
	Data []byte

	// Group is the group of the first packet.
	Group uint8

	// Packets is the number of packets consumed.
	Packets int

	// Complete is true when a complete or end packet terminated the message.
	Complete bool
}

// Decode reassembles one SysEx7 message from words.
//
// Packets are read two words at a time until a complete or end packet. A
// packet with the wrong message type, an invalid status, or a byte count
// above six discards everything and returns a zero Result. If the words run
// out first, Decode returns the partial Result together with ErrTruncated
// (odd trailing word) or ErrMissingTerminator.
func Decode(words []uint32) (Result, error) {
	var res Result
	data := make([]byte, 0, len(words)/WordsPerPacket*MaxPayloadPerPacket)

	i := 0
	for ; i+1 < len(words); i += WordsPerPacket {
		pair := WordPair{words[i], words[i+1]}
		if err := pair.Validate(); err != nil {
			return Result{}, fmt.Errorf("packet %d: %w", res.Packets, err)
		}
		if res.Packets == 0 {
			res.Group = pair.Group()
		}
		res.Packets++

		all := pair.Bytes()
		data = append(data, all[:pair.Count()]...)

		if pair.Status().Closes() {
			res.Data = data
			res.Complete = true
			return res, nil
		}
	}

	res.Data = data
	if i < len(words) {
		return res, ErrTruncated
	}
	return res, ErrMissingTerminator
}

// DecodeSysEx7 reassembles one SysEx7 message from words.
//
// It returns the assembled bytes and true once a complete or end packet is
// seen. A malformed packet returns nil and false. A stream that ends early
// returns the bytes assembled so far and false; treat that as incomplete.
func DecodeSysEx7(words []uint32) ([]byte, bool) {
	res, err := Decode(words)
	if err != nil {
		if errors.Is(err, ErrTruncated) || errors.Is(err, ErrMissingTerminator) {
			return res.Data, false
		}
		return nil, false
	}
	return res.Data, true
}

// PacketCount returns the number of packets EncodeSysEx7 produces for n bytes.
func PacketCount(n int) int {
	return (n + MaxPayloadPerPacket - 1) / MaxPayloadPerPacket
}
