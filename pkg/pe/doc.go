// Package pe encodes and decodes MIDI-CI Property Exchange message bodies.
//
// A body follows the sub-ID#2 byte (0x7C) of a MIDI-CI envelope:
//
//	command(1) requestId(4) encoding(1) headerLen(1) header dataLen(1) data
//
// The request ID is 28 bits stored as four 7-bit groups, most significant
// first. Only the JSON encoding (0) is supported. Header and data lengths
// are single 7-bit bytes, so each part carries at most 127 bytes.
//
// Decode never panics on untrusted input; a declared length that runs past
// the end of the body is reported as ErrTruncated.
package pe
