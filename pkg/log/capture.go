package log

import "time"

// Capture limits. Longer payloads are truncated and flagged.
const (
	MaxCaptureWords = 256
	MaxCaptureBytes = 1024
)

// NewPacketEvent captures words, truncated to MaxCaptureWords.
func NewPacketEvent(words []uint32) *PacketEvent {
	ev := &PacketEvent{Count: len(words)}
	n := len(words)
	if n > MaxCaptureWords {
		n = MaxCaptureWords
		ev.Truncated = true
	}
	ev.Words = append([]uint32(nil), words[:n]...)
	return ev
}

// NewSysExEvent captures a reassembled buffer, truncated to MaxCaptureBytes.
func NewSysExEvent(buf []byte, complete bool, packets int) *SysExEvent {
	ev := &SysExEvent{Size: len(buf), Complete: complete, Packets: packets}
	n := len(buf)
	if n > MaxCaptureBytes {
		n = MaxCaptureBytes
		ev.Truncated = true
	}
	ev.Data = append([]byte(nil), buf[:n]...)
	return ev
}

// NewErrorEvent returns an error event stamped with the current time.
func NewErrorEvent(connID string, layer Layer, err error, context string) Event {
	return Event{
		Timestamp:    time.Now(),
		ConnectionID: connID,
		Layer:        layer,
		Category:     CategoryError,
		Error: &ErrorEventData{
			Layer:   layer,
			Message: err.Error(),
			Context: context,
		},
	}
}
