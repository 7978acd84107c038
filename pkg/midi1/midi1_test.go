package midi1

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gitlab.com/gomidi/midi/v2"

	"github.com/fountain-coach/midi2-go/pkg/ump"
)

func TestToMessage(t *testing.T) {
	tests := []struct {
		name    string
		buf     []byte
		wantErr error
	}{
		{"single byte", []byte{0xF0, 0x7D, 0xF7}, nil},
		{"vendor", []byte{0xF0, 0x7D, 'J', 'S', 'O', 'N', 0x00, '{', '}', 0xF7}, nil},
		{"no start", []byte{0x7D, 0x01, 0xF7}, ErrNotSysEx},
		{"no end", []byte{0xF0, 0x7D, 0x01}, ErrNotSysEx},
		{"too short", []byte{0xF0}, ErrNotSysEx},
		{"high byte", []byte{0xF0, 0x7D, 0x80, 0xF7}, ErrNot7Bit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := ToMessage(tt.buf)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ToMessage() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ToMessage() error = %v", err)
			}
			if diff := cmp.Diff(tt.buf, msg.Bytes()); diff != "" {
				t.Errorf("message bytes mismatch (-want +got):\n%s", diff)
			}
			if !msg.Is(midi.SysExMsg) {
				t.Errorf("message type = %v, want SysEx", msg.Type())
			}
		})
	}
}

func TestFromMessage(t *testing.T) {
	buf := []byte{0xF0, 0x7E, 0x7F, 0x0D, 0x7C, 0x01, 0xF7}
	got, ok := FromMessage(midi.SysEx(buf[1 : len(buf)-1]))
	if !ok {
		t.Fatal("FromMessage() = false for a sysex message")
	}
	if diff := cmp.Diff(buf, got); diff != "" {
		t.Errorf("buffer mismatch (-want +got):\n%s", diff)
	}

	if _, ok := FromMessage(midi.NoteOn(0, 60, 100)); ok {
		t.Error("FromMessage() = true for a note on")
	}
}

func TestWordsRoundTrip(t *testing.T) {
	buf := []byte{0xF0, 0x7D, 'J', 'S', 'O', 'N', 0x00, '{', '"', 't', 'o', 'p', 'i', 'c', '"', ':', '"', 'x', '"', '}', 0xF7}
	msg, err := ToMessage(buf)
	if err != nil {
		t.Fatalf("ToMessage() error = %v", err)
	}

	words, ok := ToWords(msg, 9)
	if !ok {
		t.Fatal("ToWords() = false")
	}
	if got := len(words) / 2; got != ump.PacketCount(len(buf)) {
		t.Errorf("packets = %d, want %d", got, ump.PacketCount(len(buf)))
	}
	if g := ump.ParsePair(words[0], words[1]).Group(); g != 9 {
		t.Errorf("group = %d, want 9", g)
	}

	back, ok := FromWords(words)
	if !ok {
		t.Fatal("FromWords() = false")
	}
	if diff := cmp.Diff(msg.Bytes(), back.Bytes()); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestFromWordsIncomplete(t *testing.T) {
	words := ump.EncodeSysEx7(make([]byte, 20), 0)
	if _, ok := FromWords(words[:2]); ok {
		t.Error("FromWords() = true for a truncated stream")
	}
	if _, ok := ToWords(midi.NoteOff(1, 60), 0); ok {
		t.Error("ToWords() = true for a note off")
	}
}

func TestManufacturer(t *testing.T) {
	tests := []struct {
		name string
		buf  []byte
		want []byte
		ok   bool
	}{
		{"one byte", []byte{0xF0, 0x43, 0x10, 0xF7}, []byte{0x43}, true},
		{"extended", []byte{0xF0, 0x00, 0x20, 0x33, 0x01, 0xF7}, []byte{0x00, 0x20, 0x33}, true},
		{"extended short", []byte{0xF0, 0x00, 0x20, 0xF7}, nil, false},
		{"empty", []byte{0xF0, 0xF7}, nil, false},
		{"not sysex", []byte{0x90, 0x3C, 0x64}, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Manufacturer(tt.buf)
			if ok != tt.ok {
				t.Fatalf("Manufacturer() ok = %v, want %v", ok, tt.ok)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Manufacturer() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDescribe(t *testing.T) {
	desc, err := Describe([]byte{0xF0, 0x43, 0x10, 0x4C, 0xF7})
	if err != nil {
		t.Fatalf("Describe failed: %v", err)
	}
	for _, want := range []string{"MIDI 1.0", "(5 bytes)", "manufacturer=43"} {
		if !strings.Contains(desc, want) {
			t.Errorf("Describe() = %q, missing %q", desc, want)
		}
	}

	if _, err := Describe([]byte{0xF0, 0x80, 0xF7}); !errors.Is(err, ErrNot7Bit) {
		t.Errorf("Describe() error = %v, want ErrNot7Bit", err)
	}
}
