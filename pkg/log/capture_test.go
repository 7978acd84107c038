package log

import (
	"errors"
	"testing"
)

func TestNewPacketEventTruncates(t *testing.T) {
	words := make([]uint32, MaxCaptureWords+10)
	ev := NewPacketEvent(words)

	if ev.Count != len(words) {
		t.Errorf("Count = %d, want %d", ev.Count, len(words))
	}
	if len(ev.Words) != MaxCaptureWords || !ev.Truncated {
		t.Errorf("len(Words) = %d, Truncated = %v", len(ev.Words), ev.Truncated)
	}
}

func TestNewPacketEventCopies(t *testing.T) {
	words := []uint32{1, 2}
	ev := NewPacketEvent(words)
	words[0] = 99

	if ev.Words[0] != 1 {
		t.Error("PacketEvent aliases the caller's slice")
	}
	if ev.Truncated {
		t.Error("short capture marked truncated")
	}
}

func TestNewSysExEvent(t *testing.T) {
	buf := make([]byte, MaxCaptureBytes+1)
	ev := NewSysExEvent(buf, true, 171)

	if ev.Size != len(buf) || len(ev.Data) != MaxCaptureBytes || !ev.Truncated {
		t.Errorf("got Size=%d len(Data)=%d Truncated=%v", ev.Size, len(ev.Data), ev.Truncated)
	}
	if !ev.Complete || ev.Packets != 171 {
		t.Errorf("got Complete=%v Packets=%d", ev.Complete, ev.Packets)
	}
}

func TestNewErrorEvent(t *testing.T) {
	ev := NewErrorEvent("conn", LayerCodec, errors.New("boom"), "vendor decode")

	if ev.Category != CategoryError || ev.Layer != LayerCodec {
		t.Errorf("got Category=%s Layer=%s", ev.Category, ev.Layer)
	}
	if ev.Error == nil || ev.Error.Message != "boom" || ev.Error.Context != "vendor decode" {
		t.Errorf("Error = %+v", ev.Error)
	}
	if ev.Timestamp.IsZero() {
		t.Error("Timestamp not set")
	}
}
