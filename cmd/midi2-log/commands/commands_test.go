package commands

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fountain-coach/midi2-go/pkg/log"
	"github.com/fountain-coach/midi2-go/pkg/pe"
)

func createTestLogFile(t *testing.T, events []log.Event) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.ulog")

	logger, err := log.NewFileLogger(path)
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	for _, e := range events {
		logger.Log(e)
	}
	logger.Close()

	return path
}

func sampleEvents() []log.Event {
	ts := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	cmd := pe.CommandGetReply
	id := uint32(42)
	return []log.Event{
		{
			Timestamp:    ts,
			ConnectionID: "abc12345-0000",
			Direction:    log.DirectionIn,
			Layer:        log.LayerTransport,
			Category:     log.CategoryMessage,
			Endpoint:     "Canvas",
			Packet:       &log.PacketEvent{Words: []uint32{0x3016F07D, 0x4A534F4E}, Count: 2},
		},
		{
			Timestamp:    ts.Add(time.Millisecond),
			ConnectionID: "abc12345-0000",
			Direction:    log.DirectionIn,
			Layer:        log.LayerFraming,
			Category:     log.CategoryMessage,
			Group:        3,
			SysEx:        &log.SysExEvent{Size: 5, Data: []byte{0xF0, 0x7D, 0x01, 0x02, 0xF7}, Complete: true, Packets: 1},
		},
		{
			Timestamp:    ts.Add(2 * time.Millisecond),
			ConnectionID: "abc12345-0000",
			Direction:    log.DirectionIn,
			Layer:        log.LayerCodec,
			Category:     log.CategoryMessage,
			Message:      &log.MessageEvent{Protocol: log.ProtocolVendor, Topic: "ui.panBy", Payload: []byte(`{"dx.view":4}`)},
		},
		{
			Timestamp:    ts.Add(3 * time.Millisecond),
			ConnectionID: "abc12345-0000",
			Direction:    log.DirectionOut,
			Layer:        log.LayerCodec,
			Category:     log.CategoryMessage,
			Message:      &log.MessageEvent{Protocol: log.ProtocolPropertyExchange, Command: &cmd, RequestID: &id},
		},
		{
			Timestamp:    ts.Add(4 * time.Millisecond),
			ConnectionID: "abc12345-0000",
			Direction:    log.DirectionIn,
			Layer:        log.LayerService,
			Category:     log.CategoryState,
			Snapshot:     &log.SnapshotEvent{Handler: "Canvas", Properties: map[string][]float64{"zoom": {1.5}}},
		},
		{
			Timestamp:    ts.Add(5 * time.Millisecond),
			ConnectionID: "def67890-1111",
			Direction:    log.DirectionIn,
			Layer:        log.LayerCodec,
			Category:     log.CategoryError,
			Error:        &log.ErrorEventData{Layer: log.LayerCodec, Message: "invalid JSON", Context: "property set"},
		},
	}
}

func TestRunView(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())

	var buf bytes.Buffer
	if err := RunView(path, FilterOptions{}, &buf); err != nil {
		t.Fatalf("RunView failed: %v", err)
	}
	output := buf.String()

	for _, want := range []string{
		"2026-03-02T09:30:00.000000Z [conn:abc12345] IN  TRANSPORT",
		"Data: 3016F07D 4A534F4E",
		"Size: 5 bytes in 1 packets",
		"Data: f07d0102f7",
		"MIDI 1.0 ",
		"manufacturer=7D",
		"Topic: ui.panBy",
		`Payload: {"dx.view":4}`,
		"Command: GET_REPLY (0x02)",
		"RequestID: 42",
		"zoom = 1.5",
		"Context: property set",
		"(Canvas)",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q\n%s", want, output)
		}
	}
}

func TestRunViewFilters(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())

	tests := []struct {
		name  string
		opts  FilterOptions
		count int
	}{
		{"all", FilterOptions{}, 6},
		{"layer codec", FilterOptions{Layer: "codec"}, 3},
		{"direction out", FilterOptions{Direction: "OUT"}, 1},
		{"category error", FilterOptions{Category: "error"}, 1},
		{"connection", FilterOptions{ConnID: "def67890-1111"}, 1},
		{"endpoint", FilterOptions{Endpoint: "Canvas"}, 1},
		{"group", FilterOptions{Group: "3"}, 1},
		{"time window", FilterOptions{TimeStart: "2026-03-02T09:30:00Z", TimeEnd: "2026-03-02T09:31:00Z"}, 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := RunView(path, tt.opts, &buf); err != nil {
				t.Fatalf("RunView failed: %v", err)
			}
			if got := strings.Count(buf.String(), "[conn:"); got != tt.count {
				t.Errorf("events = %d, want %d", got, tt.count)
			}
		})
	}
}

func TestFilterOptionsErrors(t *testing.T) {
	tests := []struct {
		name string
		opts FilterOptions
		want string
	}{
		{"layer", FilterOptions{Layer: "wire"}, "invalid layer"},
		{"direction", FilterOptions{Direction: "up"}, "invalid direction"},
		{"category", FilterOptions{Category: "control"}, "invalid category"},
		{"group", FilterOptions{Group: "16"}, "invalid group"},
		{"time", FilterOptions{TimeStart: "yesterday"}, "invalid time-start"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.opts.Filter()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Filter() error = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestRunViewMissingFile(t *testing.T) {
	err := RunView(filepath.Join(t.TempDir(), "missing.ulog"), FilterOptions{}, &bytes.Buffer{})
	if err == nil || !strings.Contains(err.Error(), "failed to open log file") {
		t.Errorf("RunView() error = %v", err)
	}
}

func TestRunStats(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())

	var buf bytes.Buffer
	if err := RunStats(path, FilterOptions{}, &buf); err != nil {
		t.Fatalf("RunStats failed: %v", err)
	}
	output := buf.String()

	for _, want := range []string{
		"Total Events: 6",
		"TRANSPORT:",
		"FRAMING:",
		"CODEC:",
		"SERVICE:",
		"STATE:",
		"ui.panBy:",
		"GET_REPLY:",
		"Connections: 2",
		"[abc12345] 5 events",
		"SysEx: 5 bytes",
		"Snapshots: 1",
		"Errors: 1",
		"Events by Group:",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q\n%s", want, output)
		}
	}
}

func TestRunStatsEmpty(t *testing.T) {
	path := createTestLogFile(t, nil)

	var buf bytes.Buffer
	if err := RunStats(path, FilterOptions{}, &buf); err != nil {
		t.Fatalf("RunStats failed: %v", err)
	}
	if !strings.Contains(buf.String(), "Total Events: 0") {
		t.Errorf("unexpected output:\n%s", buf.String())
	}
	if strings.Contains(buf.String(), "Time Range") {
		t.Error("empty capture should not print a time range")
	}
}

func TestRunExportJSONL(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())

	var buf bytes.Buffer
	if err := RunExport(path, "jsonl", "", FilterOptions{Layer: "codec"}, &buf); err != nil {
		t.Fatalf("RunExport failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("lines = %d, want 3", len(lines))
	}
	var event log.Event
	if err := json.Unmarshal([]byte(lines[0]), &event); err != nil {
		t.Fatalf("line 0 is not an event: %v", err)
	}
	if event.Message == nil || event.Message.Topic != "ui.panBy" {
		t.Errorf("first event = %+v, want ui.panBy message", event)
	}
}

func TestRunExportCSV(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())
	out := filepath.Join(t.TempDir(), "out.csv")

	if err := RunExport(path, "csv", out, FilterOptions{}, nil); err != nil {
		t.Fatalf("RunExport failed: %v", err)
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("invalid csv: %v", err)
	}
	if len(rows) != 7 {
		t.Fatalf("rows = %d, want header + 6", len(rows))
	}
	if rows[0][0] != "timestamp" || rows[0][8] != "detail" {
		t.Errorf("header = %v", rows[0])
	}

	want := [][2]string{
		{"Packet", "2 words"},
		{"SysEx", "5 bytes"},
		{"VENDOR", "ui.panBy"},
		{"PE", "GET_REPLY id=42"},
		{"Snapshot", "Canvas"},
		{"Error", "invalid JSON"},
	}
	for i, w := range want {
		row := rows[i+1]
		if row[7] != w[0] || row[8] != w[1] {
			t.Errorf("row %d type/detail = %s/%s, want %s/%s", i+1, row[7], row[8], w[0], w[1])
		}
	}
	if rows[2][6] != "3" {
		t.Errorf("group column = %s, want 3", rows[2][6])
	}
}

func TestRunExportUnknownFormat(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())
	err := RunExport(path, "xml", "", FilterOptions{}, &bytes.Buffer{})
	if err == nil || !strings.Contains(err.Error(), "unknown format") {
		t.Errorf("RunExport() error = %v", err)
	}
}

func TestRunFilter(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())
	out := filepath.Join(t.TempDir(), "filtered.ulog")

	var buf bytes.Buffer
	if err := RunFilter(path, out, FilterOptions{Direction: "in", Layer: "codec"}, &buf); err != nil {
		t.Fatalf("RunFilter failed: %v", err)
	}
	if !strings.Contains(buf.String(), "Filtered 2 events") {
		t.Errorf("unexpected output %q", buf.String())
	}

	reader, err := log.NewReader(out)
	if err != nil {
		t.Fatal(err)
	}
	defer reader.Close()
	n, err := forEach(reader, func(e log.Event) error {
		if e.Layer != log.LayerCodec || e.Direction != log.DirectionIn {
			t.Errorf("unexpected event %+v", e)
		}
		return nil
	})
	if err != nil || n != 2 {
		t.Errorf("filtered file has %d events (err %v), want 2", n, err)
	}
}
