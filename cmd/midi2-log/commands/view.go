// Package commands implements the midi2-log CLI commands.
package commands

import (
	"encoding/hex"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/fountain-coach/midi2-go/pkg/ci"
	"github.com/fountain-coach/midi2-go/pkg/log"
	"github.com/fountain-coach/midi2-go/pkg/midi1"
	"github.com/fountain-coach/midi2-go/pkg/vendor"
)

const timeFormat = "2006-01-02T15:04:05.000000Z"

// RunView writes every matching event of path to w in human-readable form.
func RunView(path string, opts FilterOptions, w io.Writer) error {
	reader, err := openReader(path, opts)
	if err != nil {
		return err
	}
	defer reader.Close()

	_, err = forEach(reader, func(event log.Event) error {
		formatEvent(w, event)
		return nil
	})
	return err
}

// formatEvent writes a header line and type-specific details.
func formatEvent(w io.Writer, event log.Event) {
	ts := event.Timestamp.UTC().Format(timeFormat)
	fmt.Fprintf(w, "%s [conn:%s] %-3s %-9s g%-2d %s",
		ts, shortenConnID(event.ConnectionID), event.Direction, event.Layer, event.Group, eventType(event))
	if event.Endpoint != "" {
		fmt.Fprintf(w, " (%s)", event.Endpoint)
	}
	fmt.Fprintln(w)

	switch {
	case event.Packet != nil:
		formatPacketDetails(w, event.Packet)
	case event.SysEx != nil:
		formatSysExDetails(w, event.SysEx)
	case event.Message != nil:
		formatMessageDetails(w, event.Message)
	case event.Snapshot != nil:
		formatSnapshotDetails(w, event.Snapshot)
	case event.Error != nil:
		formatErrorDetails(w, event.Error)
	}

	fmt.Fprintln(w)
}

// eventType labels the payload an event carries.
func eventType(event log.Event) string {
	switch {
	case event.Packet != nil:
		return "Packet"
	case event.SysEx != nil:
		return "SysEx"
	case event.Message != nil:
		return event.Message.Protocol.String()
	case event.Snapshot != nil:
		return "Snapshot"
	case event.Error != nil:
		return "Error"
	default:
		return "Unknown"
	}
}

// shortenConnID returns the first 8 characters of the connection ID.
func shortenConnID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}

func formatPacketDetails(w io.Writer, p *log.PacketEvent) {
	words := make([]string, len(p.Words))
	for i, word := range p.Words {
		words[i] = fmt.Sprintf("%08X", word)
	}
	fmt.Fprintf(w, "  Words: %d\n", p.Count)
	if len(words) > 0 {
		fmt.Fprintf(w, "  Data: %s", strings.Join(words, " "))
		if p.Truncated {
			fmt.Fprint(w, " (truncated)")
		}
		fmt.Fprintln(w)
	}
}

func formatSysExDetails(w io.Writer, s *log.SysExEvent) {
	fmt.Fprintf(w, "  Size: %d bytes in %d packets", s.Size, s.Packets)
	if !s.Complete {
		fmt.Fprint(w, " (incomplete)")
	}
	fmt.Fprintln(w)
	if len(s.Data) > 0 {
		fmt.Fprintf(w, "  Data: %s", hex.EncodeToString(s.Data))
		if s.Truncated {
			fmt.Fprint(w, " (truncated)")
		}
		fmt.Fprintln(w)
	}
	// Frames the codecs do not claim are shown as plain MIDI 1.0 SysEx.
	if s.Complete && !s.Truncated && !vendor.IsFrame(s.Data) && !ci.IsEnvelope(s.Data) {
		if desc, err := midi1.Describe(s.Data); err == nil {
			fmt.Fprintf(w, "  %s\n", desc)
		}
	}
}

func formatMessageDetails(w io.Writer, msg *log.MessageEvent) {
	if msg.Topic != "" {
		fmt.Fprintf(w, "  Topic: %s\n", msg.Topic)
	}
	if msg.Command != nil {
		fmt.Fprintf(w, "  Command: %s (0x%02X)\n", msg.Command.String(), uint8(*msg.Command))
	}
	if msg.RequestID != nil {
		fmt.Fprintf(w, "  RequestID: %d\n", *msg.RequestID)
	}
	if len(msg.Payload) > 0 {
		fmt.Fprintf(w, "  Payload: %s\n", string(msg.Payload))
	}
}

func formatSnapshotDetails(w io.Writer, snap *log.SnapshotEvent) {
	fmt.Fprintf(w, "  Handler: %s\n", snap.Handler)
	names := make([]string, 0, len(snap.Properties))
	for name := range snap.Properties {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		vals := snap.Properties[name]
		parts := make([]string, len(vals))
		for i, v := range vals {
			parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		fmt.Fprintf(w, "    %s = %s\n", name, strings.Join(parts, ", "))
	}
}

func formatErrorDetails(w io.Writer, err *log.ErrorEventData) {
	fmt.Fprintf(w, "  Layer: %s\n", err.Layer.String())
	fmt.Fprintf(w, "  Message: %s\n", err.Message)
	if err.Context != "" {
		fmt.Fprintf(w, "  Context: %s\n", err.Context)
	}
}
