package commands

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/fountain-coach/midi2-go/pkg/log"
)

// FilterOptions holds the raw filter flags shared by every command.
type FilterOptions struct {
	ConnID    string
	Endpoint  string
	Group     string
	TimeStart string
	TimeEnd   string
	Layer     string
	Direction string
	Category  string
}

// Filter converts the options into a log.Filter.
func (o FilterOptions) Filter() (log.Filter, error) {
	filter := log.Filter{
		ConnectionID: o.ConnID,
		Endpoint:     o.Endpoint,
	}

	if o.Group != "" {
		g, err := strconv.ParseUint(o.Group, 10, 8)
		if err != nil || g > 15 {
			return log.Filter{}, fmt.Errorf("invalid group: %s (must be 0-15)", o.Group)
		}
		group := uint8(g)
		filter.Group = &group
	}

	if o.TimeStart != "" {
		t, err := time.Parse(time.RFC3339, o.TimeStart)
		if err != nil {
			return log.Filter{}, fmt.Errorf("invalid time-start format: %w", err)
		}
		filter.TimeStart = &t
	}

	if o.TimeEnd != "" {
		t, err := time.Parse(time.RFC3339, o.TimeEnd)
		if err != nil {
			return log.Filter{}, fmt.Errorf("invalid time-end format: %w", err)
		}
		filter.TimeEnd = &t
	}

	if o.Layer != "" {
		l, err := ParseLayer(o.Layer)
		if err != nil {
			return log.Filter{}, err
		}
		filter.Layer = &l
	}

	if o.Direction != "" {
		d, err := ParseDirection(o.Direction)
		if err != nil {
			return log.Filter{}, err
		}
		filter.Direction = &d
	}

	if o.Category != "" {
		c, err := ParseCategory(o.Category)
		if err != nil {
			return log.Filter{}, err
		}
		filter.Category = &c
	}

	return filter, nil
}

// ParseLayer parses a layer name (case-insensitive).
func ParseLayer(s string) (log.Layer, error) {
	switch strings.ToLower(s) {
	case "transport":
		return log.LayerTransport, nil
	case "framing":
		return log.LayerFraming, nil
	case "codec":
		return log.LayerCodec, nil
	case "service":
		return log.LayerService, nil
	default:
		return 0, fmt.Errorf("invalid layer: %s (must be transport, framing, codec, or service)", s)
	}
}

// ParseDirection parses a direction name (case-insensitive).
func ParseDirection(s string) (log.Direction, error) {
	switch strings.ToLower(s) {
	case "in":
		return log.DirectionIn, nil
	case "out":
		return log.DirectionOut, nil
	default:
		return 0, fmt.Errorf("invalid direction: %s (must be in or out)", s)
	}
}

// ParseCategory parses a category name (case-insensitive).
func ParseCategory(s string) (log.Category, error) {
	switch strings.ToLower(s) {
	case "message":
		return log.CategoryMessage, nil
	case "state":
		return log.CategoryState, nil
	case "error":
		return log.CategoryError, nil
	default:
		return 0, fmt.Errorf("invalid category: %s (must be message, state, or error)", s)
	}
}

// RunFilter writes the events of path matching opts to output.
func RunFilter(path, output string, opts FilterOptions, w io.Writer) error {
	reader, err := openReader(path, opts)
	if err != nil {
		return err
	}
	defer reader.Close()

	logger, err := log.NewFileLogger(output)
	if err != nil {
		return fmt.Errorf("failed to create output logger: %w", err)
	}

	count, err := forEach(reader, func(event log.Event) error {
		logger.Log(event)
		return nil
	})
	if cerr := logger.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Filtered %d events to %s\n", count, output)
	return nil
}

// forEach calls fn for every event until EOF and returns how many it saw.
func forEach(reader *log.Reader, fn func(log.Event) error) (int, error) {
	count := 0
	for {
		event, err := reader.Next()
		if err == io.EOF {
			return count, nil
		}
		if err != nil {
			return count, fmt.Errorf("failed to read event: %w", err)
		}
		if err := fn(event); err != nil {
			return count, err
		}
		count++
	}
}

func openReader(path string, opts FilterOptions) (*log.Reader, error) {
	filter, err := opts.Filter()
	if err != nil {
		return nil, err
	}
	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return reader, nil
}
