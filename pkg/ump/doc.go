// Package ump converts SysEx7 byte buffers to and from MIDI 2.0 Universal
// MIDI Packets.
//
// SysEx7 data travels in UMP "Data 64" packets (message type 0x3). Each
// packet is a pair of 32-bit words carrying at most six payload bytes:
//
//	word1: [31:28]=0x3 [27:24]=group [23:20]=status [19:16]=count [15:8]=b0 [7:0]=b1
//	word2: [31:24]=b2 [23:16]=b3 [15:8]=b4 [7:0]=b5
//
// Status is Complete for a message that fits one packet, otherwise Start,
// zero or more Continue, and End.
//
// # Decoding untrusted input
//
// Word streams arrive from the wire, so every decode path reports malformed
// input through an error or an ok flag and never panics. A stream that ends
// before a Complete or End packet yields the bytes assembled so far marked as
// incomplete; callers must not hand such a buffer to a message codec.
//
// For transports that deliver packets one at a time, Assembler reassembles
// messages per group with strict status sequencing.
package ump
