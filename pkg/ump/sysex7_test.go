package ump

import (
	"bytes"
	"errors"
	"fmt"
	"testing"
)

func sequential(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i % 0x80)
	}
	return b
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	for _, n := range []int{0, 1, 5, 6, 7, 12, 13, 200} {
		t.Run(fmt.Sprintf("len=%d", n), func(t *testing.T) {
			data := sequential(n)
			words := EncodeSysEx7(data, 0)

			if n == 0 {
				if words != nil {
					t.Fatalf("EncodeSysEx7(empty) = %v, want nil", words)
				}
				return
			}
			if len(words) != PacketCount(n)*WordsPerPacket {
				t.Fatalf("got %d words, want %d", len(words), PacketCount(n)*WordsPerPacket)
			}

			got, ok := DecodeSysEx7(words)
			if !ok {
				t.Fatal("DecodeSysEx7 reported incomplete")
			}
			if !bytes.Equal(got, data) {
				t.Errorf("round trip mismatch:\n got % X\nwant % X", got, data)
			}
		})
	}
}

func TestEncodeChunkBoundary(t *testing.T) {
	t.Run("six bytes", func(t *testing.T) {
		words := EncodeSysEx7([]byte{1, 2, 3, 4, 5, 6}, 0)
		if len(words) != 2 {
			t.Fatalf("got %d words, want 2", len(words))
		}
		p := ParsePair(words[0], words[1])
		if p.Status() != StatusComplete || p.Count() != 6 {
			t.Errorf("status=%s count=%d, want COMPLETE/6", p.Status(), p.Count())
		}
	})

	t.Run("seven bytes", func(t *testing.T) {
		words := EncodeSysEx7([]byte{1, 2, 3, 4, 5, 6, 7}, 0)
		if len(words) != 4 {
			t.Fatalf("got %d words, want 4", len(words))
		}
		first := ParsePair(words[0], words[1])
		last := ParsePair(words[2], words[3])
		if first.Status() != StatusStart || first.Count() != 6 {
			t.Errorf("first: status=%s count=%d, want START/6", first.Status(), first.Count())
		}
		if last.Status() != StatusEnd || last.Count() != 1 {
			t.Errorf("last: status=%s count=%d, want END/1", last.Status(), last.Count())
		}
	})

	t.Run("thirteen bytes", func(t *testing.T) {
		words := EncodeSysEx7(sequential(13), 0)
		want := []Status{StatusStart, StatusContinue, StatusEnd}
		for i, s := range want {
			p := ParsePair(words[2*i], words[2*i+1])
			if p.Status() != s {
				t.Errorf("packet %d status = %s, want %s", i, p.Status(), s)
			}
		}
	})
}

func TestEncodeWordLayout(t *testing.T) {
	words := EncodeSysEx7([]byte{0xF0, 0x7D, 0x4A}, 5)

	want := []uint32{0x3503F07D, 0x4A000000}
	if len(words) != 2 || words[0] != want[0] || words[1] != want[1] {
		t.Errorf("words = %08X, want %08X", words, want)
	}

	p := ParsePair(words[0], words[1])
	if p.MessageType() != MessageTypeSysEx7 || p.Group() != 5 {
		t.Errorf("type=%X group=%d", p.MessageType(), p.Group())
	}
}

func TestDecodeKeepsGroup(t *testing.T) {
	res, err := Decode(EncodeSysEx7(sequential(20), 9))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if res.Group != 9 || res.Packets != 4 || !res.Complete {
		t.Errorf("got %+v", res)
	}
}

func TestDecodeWrongMessageTypeDiscards(t *testing.T) {
	words := EncodeSysEx7(sequential(13), 0)
	words[2] = words[2]&0x0FFFFFFF | 0x4<<28

	res, err := Decode(words)
	if !errors.Is(err, ErrWrongMessageType) {
		t.Errorf("error = %v, want ErrWrongMessageType", err)
	}
	if res.Data != nil {
		t.Errorf("Data = % X, want nil", res.Data)
	}

	got, ok := DecodeSysEx7(words)
	if ok || got != nil {
		t.Errorf("DecodeSysEx7 = % X, %v; want nil, false", got, ok)
	}
}

func TestDecodeInvalidByteCountDiscards(t *testing.T) {
	pair := NewWordPair(0, StatusComplete, []byte{1, 2, 3})
	pair[0] = pair[0]&^(0xF<<16) | 0x7<<16

	if _, err := Decode(pair.Words()); !errors.Is(err, ErrInvalidByteCount) {
		t.Errorf("error = %v, want ErrInvalidByteCount", err)
	}
}

func TestDecodeInvalidStatusDiscards(t *testing.T) {
	pair := NewWordPair(0, Status(0x4), []byte{1})
	if _, err := Decode(pair.Words()); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("error = %v, want ErrInvalidStatus", err)
	}
}

func TestDecodePartial(t *testing.T) {
	words := EncodeSysEx7(sequential(13), 0)

	t.Run("missing end", func(t *testing.T) {
		res, err := Decode(words[:4])
		if !errors.Is(err, ErrMissingTerminator) {
			t.Errorf("error = %v, want ErrMissingTerminator", err)
		}
		if res.Complete || !bytes.Equal(res.Data, sequential(12)) {
			t.Errorf("got %+v", res)
		}

		got, ok := DecodeSysEx7(words[:4])
		if ok || !bytes.Equal(got, sequential(12)) {
			t.Errorf("DecodeSysEx7 = % X, %v", got, ok)
		}
	})

	t.Run("odd trailing word", func(t *testing.T) {
		res, err := Decode(words[:5])
		if !errors.Is(err, ErrTruncated) {
			t.Errorf("error = %v, want ErrTruncated", err)
		}
		if res.Packets != 2 {
			t.Errorf("Packets = %d, want 2", res.Packets)
		}
	})

	t.Run("empty", func(t *testing.T) {
		got, ok := DecodeSysEx7(nil)
		if ok || len(got) != 0 {
			t.Errorf("DecodeSysEx7(nil) = % X, %v", got, ok)
		}
	})
}

func TestDecodeStopsAtTerminator(t *testing.T) {
	first := EncodeSysEx7([]byte{1, 2}, 0)
	second := EncodeSysEx7([]byte{3, 4}, 0)

	got, ok := DecodeSysEx7(append(first, second...))
	if !ok || !bytes.Equal(got, []byte{1, 2}) {
		t.Errorf("DecodeSysEx7 = % X, %v; want 01 02, true", got, ok)
	}
}

func TestStatusString(t *testing.T) {
	tests := []struct {
		s    Status
		want string
	}{
		{StatusComplete, "COMPLETE"},
		{StatusStart, "START"},
		{StatusContinue, "CONTINUE"},
		{StatusEnd, "END"},
		{Status(7), "UNKNOWN(7)"},
	}
	for _, tt := range tests {
		if got := tt.s.String(); got != tt.want {
			t.Errorf("Status(%d).String() = %q, want %q", tt.s, got, tt.want)
		}
	}
}

func TestWordPairPayloadClamps(t *testing.T) {
	pair := NewWordPair(0, StatusComplete, []byte{1, 2, 3, 4, 5, 6})
	pair[0] |= 0xF << 16
	if got := pair.Payload(); len(got) != MaxPayloadPerPacket {
		t.Errorf("len(Payload()) = %d, want %d", len(got), MaxPayloadPerPacket)
	}
}
