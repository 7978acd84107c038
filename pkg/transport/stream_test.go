package transport

import (
	"bytes"
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receiveEventually(t *testing.T, s *Stream, want int) [][]uint32 {
	t.Helper()
	var got [][]uint32
	require.Eventually(t, func() bool {
		msgs, err := s.Receive(context.Background())
		if err != nil {
			return false
		}
		got = append(got, msgs...)
		return len(got) >= want
	}, time.Second, 5*time.Millisecond)
	return got
}

func TestStreamSendReceive(t *testing.T) {
	local, remote := net.Pipe()
	s := NewStream(local, StreamConfig{})
	defer s.Close()

	peerW := NewWordWriter(remote)
	peerR := NewWordReader(remote)

	go func() {
		_ = peerW.WriteWords([]uint32{0x30010000, 0})
		_ = peerW.WriteWords([]uint32{0x30020000, 0})
	}()

	got := receiveEventually(t, s, 2)
	assert.Equal(t, [][]uint32{{0x30010000, 0}, {0x30020000, 0}}, got)

	done := make(chan []uint32, 1)
	go func() {
		words, _ := peerR.ReadWords()
		done <- words
	}()
	require.NoError(t, s.Send(context.Background(), []uint32{7, 8}))

	select {
	case words := <-done:
		assert.Equal(t, []uint32{7, 8}, words)
	case <-time.After(time.Second):
		t.Fatal("peer did not receive frame")
	}
}

func TestStreamPeerClose(t *testing.T) {
	local, remote := net.Pipe()
	s := NewStream(local, StreamConfig{})
	defer s.Close()

	require.NoError(t, remote.Close())

	require.Eventually(t, func() bool {
		_, err := s.Receive(context.Background())
		return err == io.EOF
	}, time.Second, 5*time.Millisecond)
}

func TestStreamClose(t *testing.T) {
	local, remote := net.Pipe()
	defer remote.Close()
	s := NewStream(local, StreamConfig{})

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	assert.ErrorIs(t, s.Send(context.Background(), []uint32{1}), ErrClosed)
	_, err := s.Receive(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
	assert.NotEmpty(t, s.ID())
}

// replayConn reads canned frames then EOF and discards writes.
type replayConn struct{ io.Reader }

func (replayConn) Write(p []byte) (int, error) { return len(p), nil }
func (replayConn) Close() error                { return nil }

func TestStreamReceiveKeepsFramesBeforeEOF(t *testing.T) {
	const frames = 50
	var wire bytes.Buffer
	w := NewWordWriter(&wire)
	for i := 0; i < frames; i++ {
		require.NoError(t, w.WriteWords([]uint32{0x30000000 | uint32(i), 0}))
	}

	s := NewStream(replayConn{&wire}, StreamConfig{QueueSize: frames})
	defer s.Close()

	var got [][]uint32
	deadline := time.Now().Add(time.Second)
	for {
		msgs, err := s.Receive(context.Background())
		got = append(got, msgs...)
		if err != nil {
			assert.ErrorIs(t, err, io.EOF)
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("stream never reported EOF")
		}
	}
	require.Len(t, got, frames)
	assert.Equal(t, uint32(0x30000000|frames-1), got[frames-1][0])
}
