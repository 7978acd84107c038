package interactive

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fountain-coach/midi2-go/pkg/jsonvalue"
	"github.com/fountain-coach/midi2-go/pkg/pe"
	"github.com/fountain-coach/midi2-go/pkg/registry"
	"github.com/fountain-coach/midi2-go/pkg/service"
	"github.com/fountain-coach/midi2-go/pkg/transport"
	"github.com/fountain-coach/midi2-go/pkg/ump"
	"github.com/fountain-coach/midi2-go/pkg/vendor"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type fixture struct {
	console *Console
	out     *syncBuffer
	ep      *transport.Endpoint
	canvas  *registry.Canvas
	router  *service.Router
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	reg := registry.New()
	canvas := registry.NewCanvas()
	require.NoError(t, reg.Register("Canvas", canvas))

	hub := transport.NewLoopback(0)
	ep, err := hub.Open("Canvas Host")
	require.NoError(t, err)
	t.Cleanup(func() { ep.Close() })

	router, err := service.NewRouter(reg, service.RouterConfig{Handler: "Canvas"})
	require.NoError(t, err)

	out := &syncBuffer{}
	return &fixture{
		console: newConsole(Config{Hub: hub, Registry: reg, Group: 2}, out),
		out:     out,
		ep:      ep,
		canvas:  canvas,
		router:  router,
	}
}

// received returns the single message delivered to the endpoint.
func (f *fixture) received(t *testing.T) []uint32 {
	t.Helper()
	msgs, err := f.ep.Receive(context.Background())
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	return msgs[0]
}

func TestConsolePan(t *testing.T) {
	f := newFixture(t)

	assert.False(t, f.console.Execute(context.Background(), "pan Host 10 5"))
	words := f.received(t)
	assert.Equal(t, uint8(2), ump.ParsePair(words[0], words[1]).Group())

	_, err := f.router.HandleWords(words)
	require.NoError(t, err)
	x, y := f.canvas.Translation()
	assert.Equal(t, 10.0, x)
	assert.Equal(t, 5.0, y)
}

func TestConsoleZoomAndReset(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.console.Execute(ctx, "zoom Canvas 0 0 1")
	_, err := f.router.HandleWords(f.received(t))
	require.NoError(t, err)
	assert.InDelta(t, 2.0, f.canvas.Zoom(), 1e-9)

	f.console.Execute(ctx, "reset Canvas")
	_, err = f.router.HandleWords(f.received(t))
	require.NoError(t, err)
	assert.Equal(t, 1.0, f.canvas.Zoom())
}

func TestConsoleRec(t *testing.T) {
	f := newFixture(t)

	f.console.Execute(context.Background(), "rec Canvas start")
	buf, ok := ump.DecodeSysEx7(f.received(t))
	require.True(t, ok)
	msg, ok := vendor.Decode(buf)
	require.True(t, ok)
	assert.Equal(t, "rec.start", msg.Topic)

	f.console.Execute(context.Background(), "rec Canvas pause")
	assert.Contains(t, f.out.String(), "usage: rec")
}

func TestConsoleGetAndSet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.console.Execute(ctx, "get Canvas")
	buf, ok := ump.DecodeSysEx7(f.received(t))
	require.True(t, ok)
	msg, err := pe.Unwrap(buf)
	require.NoError(t, err)
	assert.Equal(t, pe.CommandGet, msg.Command)
	assert.Equal(t, uint32(1), msg.RequestID)

	f.console.Execute(ctx, "set Canvas zoom=3 translation.x=-2")
	buf, ok = ump.DecodeSysEx7(f.received(t))
	require.True(t, ok)
	msg, err = pe.Unwrap(buf)
	require.NoError(t, err)
	assert.Equal(t, pe.CommandSet, msg.Command)
	assert.Equal(t, uint32(2), msg.RequestID)

	doc, err := msg.JSON()
	require.NoError(t, err)
	assert.True(t, jsonvalue.Equal(jsonvalue.Object(
		jsonvalue.Field("zoom", jsonvalue.Number(3)),
		jsonvalue.Field("translation.x", jsonvalue.Number(-2)),
	), doc))

	out := f.out.String()
	assert.Contains(t, out, "GET sent (request 1)")
	assert.Contains(t, out, "SET sent (request 2)")
}

func TestConsoleErrors(t *testing.T) {
	tests := []struct {
		line string
		want string
	}{
		{"pan Canvas", "usage: pan"},
		{"pan Canvas x 1", `invalid number "x"`},
		{"zoom Canvas 1 2", "usage: zoom"},
		{"reset", "usage: reset"},
		{"set Canvas zoom", `invalid assignment "zoom"`},
		{"set Canvas zoom=big", "invalid value for zoom"},
		{"get Nowhere", "endpoint not found"},
		{"sysex Canvas", "usage: sysex"},
		{"sysex Canvas F04", "invalid hex"},
		{"sysex Canvas 90 3C 64", "buffer is not a F0...F7 frame"},
		{"sysex Canvas F0 80 F7", "sysex data byte above 0x7F"},
		{"frobnicate", "Unknown command: frobnicate"},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			f := newFixture(t)
			assert.False(t, f.console.Execute(context.Background(), tt.line))
			assert.Contains(t, f.out.String(), tt.want)
		})
	}
}

func TestConsoleSysEx(t *testing.T) {
	f := newFixture(t)

	assert.False(t, f.console.Execute(context.Background(), "sysex Canvas F0 43 10 4C F7"))
	assert.Contains(t, f.out.String(), "SYSEX sent (5 bytes)")

	words := f.received(t)
	buf, ok := ump.DecodeSysEx7(words)
	require.True(t, ok)
	assert.Equal(t, []byte{0xF0, 0x43, 0x10, 0x4C, 0xF7}, buf)
	assert.Equal(t, uint8(2), ump.ParsePair(words[0], words[1]).Group())

	// A raw PE frame typed by hand reaches the router like any other.
	f.console.Execute(context.Background(), "sysex Canvas F07E7F0D7C 01 00000005 00 00 00 F7")
	replies, err := f.router.HandleWords(f.received(t))
	require.NoError(t, err)
	require.Len(t, replies, 1)
	assert.True(t, strings.HasPrefix(Describe(replies[0]), "GET_REPLY id=5"))
}

func TestConsoleListAndQuit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.console.Execute(ctx, "list")
	out := f.out.String()
	assert.Contains(t, out, "Canvas")
	assert.Contains(t, out, "zoom=1")
	assert.Contains(t, out, "translation.x=0")

	f.console.Execute(ctx, "stats")
	assert.Contains(t, f.out.String(), "Canvas Host")

	assert.False(t, f.console.Execute(ctx, "   "))
	assert.True(t, f.console.Execute(ctx, "quit"))
	assert.True(t, f.console.Execute(ctx, "EXIT"))
}

func TestDescribe(t *testing.T) {
	snap := registry.NewSnapshot("Canvas")
	snap.Set("zoom", 1.5)
	buf, err := vendor.Encode(service.SnapshotTopic, snap.JSON())
	require.NoError(t, err)
	assert.Equal(t, "state.snapshot zoom=1.5", Describe(ump.EncodeSysEx7(buf, 0)))

	buf, err = vendor.Encode("canvas.reset", jsonvalue.Value{})
	require.NoError(t, err)
	assert.Equal(t, "canvas.reset", Describe(ump.EncodeSysEx7(buf, 0)))

	reply, err := pe.NewJSON(pe.CommandGetReply, 4, snap.JSON())
	require.NoError(t, err)
	buf, err = pe.WrapEnvelope(reply, 0x7F)
	require.NoError(t, err)
	assert.Equal(t, "GET_REPLY id=4 zoom=1.5", Describe(ump.EncodeSysEx7(buf, 0)))

	buf, err = pe.WrapEnvelope(pe.NewReply(pe.CommandSetReply, 9, nil), 0x7F)
	require.NoError(t, err)
	assert.Equal(t, "SET_REPLY id=9", Describe(ump.EncodeSysEx7(buf, 0)))

	words := ump.EncodeSysEx7([]byte{0xF0, 0x43, 0x10, 0x4C, 0xF7}, 0)
	desc := Describe(words)
	assert.True(t, strings.HasPrefix(desc, "MIDI 1.0"), desc)
	assert.Contains(t, desc, "manufacturer=43")

	words = ump.EncodeSysEx7(make([]byte, 20), 0)
	assert.True(t, strings.HasPrefix(Describe(words[:2]), "incomplete sysex"))
}

func TestPrintReply(t *testing.T) {
	f := newFixture(t)
	buf, err := vendor.Encode("rec.stop", jsonvalue.Value{})
	require.NoError(t, err)

	f.console.PrintReply("Canvas Host", ump.EncodeSysEx7(buf, 0))
	assert.Equal(t, "<- Canvas Host: rec.stop\n", f.out.String())
}
