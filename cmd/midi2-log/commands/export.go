package commands

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/fountain-coach/midi2-go/pkg/log"
)

// RunExport writes the matching events of path to output, or to w when
// output is empty, as jsonl or csv.
func RunExport(path, format, output string, opts FilterOptions, w io.Writer) error {
	if format != "jsonl" && format != "csv" {
		return fmt.Errorf("unknown format: %s (supported: jsonl, csv)", format)
	}

	reader, err := openReader(path, opts)
	if err != nil {
		return err
	}
	defer reader.Close()

	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if format == "csv" {
		return exportCSV(reader, w)
	}
	return exportJSONL(reader, w)
}

func exportJSONL(reader *log.Reader, w io.Writer) error {
	encoder := json.NewEncoder(w)
	_, err := forEach(reader, func(event log.Event) error {
		if err := encoder.Encode(event); err != nil {
			return fmt.Errorf("failed to encode event: %w", err)
		}
		return nil
	})
	return err
}

func exportCSV(reader *log.Reader, w io.Writer) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := []string{"timestamp", "connection_id", "direction", "layer", "category", "endpoint", "group", "type", "detail"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	_, err := forEach(reader, func(event log.Event) error {
		row := []string{
			event.Timestamp.UTC().Format(timeFormat),
			event.ConnectionID,
			event.Direction.String(),
			event.Layer.String(),
			event.Category.String(),
			event.Endpoint,
			strconv.Itoa(int(event.Group)),
			eventType(event),
			eventDetail(event),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
		return nil
	})
	return err
}

// eventDetail is a one-field summary for tabular output.
func eventDetail(event log.Event) string {
	switch {
	case event.Packet != nil:
		return strconv.Itoa(event.Packet.Count) + " words"
	case event.SysEx != nil:
		return strconv.Itoa(event.SysEx.Size) + " bytes"
	case event.Message != nil:
		if event.Message.Topic != "" {
			return event.Message.Topic
		}
		if event.Message.Command != nil {
			detail := event.Message.Command.String()
			if event.Message.RequestID != nil {
				detail += " id=" + strconv.FormatUint(uint64(*event.Message.RequestID), 10)
			}
			return detail
		}
	case event.Snapshot != nil:
		return event.Snapshot.Handler
	case event.Error != nil:
		return event.Error.Message
	}
	return ""
}
