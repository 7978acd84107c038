package commands

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/fountain-coach/midi2-go/pkg/log"
)

// Stats holds aggregate statistics about a capture.
type Stats struct {
	TotalEvents       int
	EventsByLayer     map[log.Layer]int
	EventsByCategory  map[log.Category]int
	EventsByDirection map[log.Direction]int
	EventsByGroup     map[uint8]int
	Topics            map[string]int
	Commands          map[string]int
	Connections       map[string]*ConnectionStats
	Errors            int
	TimeRange         struct {
		Start time.Time
		End   time.Time
	}
}

// ConnectionStats holds statistics for a single connection.
type ConnectionStats struct {
	FirstSeen     time.Time
	LastSeen      time.Time
	Events        int
	Endpoint      string
	SysExBytes    int
	SnapshotCount int
}

func newStats() *Stats {
	return &Stats{
		EventsByLayer:     make(map[log.Layer]int),
		EventsByCategory:  make(map[log.Category]int),
		EventsByDirection: make(map[log.Direction]int),
		EventsByGroup:     make(map[uint8]int),
		Topics:            make(map[string]int),
		Commands:          make(map[string]int),
		Connections:       make(map[string]*ConnectionStats),
	}
}

// Add accounts for one event.
func (s *Stats) Add(event log.Event) {
	s.TotalEvents++
	s.EventsByLayer[event.Layer]++
	s.EventsByCategory[event.Category]++
	s.EventsByDirection[event.Direction]++
	s.EventsByGroup[event.Group]++

	if s.TimeRange.Start.IsZero() || event.Timestamp.Before(s.TimeRange.Start) {
		s.TimeRange.Start = event.Timestamp
	}
	if event.Timestamp.After(s.TimeRange.End) {
		s.TimeRange.End = event.Timestamp
	}

	conn, ok := s.Connections[event.ConnectionID]
	if !ok {
		conn = &ConnectionStats{
			FirstSeen: event.Timestamp,
			LastSeen:  event.Timestamp,
		}
		s.Connections[event.ConnectionID] = conn
	}
	conn.Events++
	if event.Timestamp.After(conn.LastSeen) {
		conn.LastSeen = event.Timestamp
	}
	if event.Endpoint != "" && conn.Endpoint == "" {
		conn.Endpoint = event.Endpoint
	}

	switch {
	case event.SysEx != nil:
		conn.SysExBytes += event.SysEx.Size
	case event.Message != nil:
		if event.Message.Topic != "" {
			s.Topics[event.Message.Topic]++
		}
		if event.Message.Command != nil {
			s.Commands[event.Message.Command.String()]++
		}
	case event.Snapshot != nil:
		conn.SnapshotCount++
	case event.Error != nil:
		s.Errors++
	}
}

// RunStats analyzes the capture at path and prints statistics to w.
func RunStats(path string, opts FilterOptions, w io.Writer) error {
	reader, err := openReader(path, opts)
	if err != nil {
		return err
	}
	defer reader.Close()

	stats := newStats()
	if _, err := forEach(reader, func(event log.Event) error {
		stats.Add(event)
		return nil
	}); err != nil {
		return err
	}

	printStats(w, stats)
	return nil
}

func printStats(w io.Writer, stats *Stats) {
	fmt.Fprintln(w, "=== midi2 Capture Statistics ===")
	fmt.Fprintln(w)

	if stats.TotalEvents > 0 {
		fmt.Fprintf(w, "Time Range: %s to %s\n",
			stats.TimeRange.Start.Format(time.RFC3339),
			stats.TimeRange.End.Format(time.RFC3339))
		fmt.Fprintf(w, "Duration:   %s\n", stats.TimeRange.End.Sub(stats.TimeRange.Start).Round(time.Millisecond))
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Total Events: %d\n", stats.TotalEvents)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Layer:")
	for _, layer := range []log.Layer{log.LayerTransport, log.LayerFraming, log.LayerCodec, log.LayerService} {
		if count := stats.EventsByLayer[layer]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", layer.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Category:")
	for _, cat := range []log.Category{log.CategoryMessage, log.CategoryState, log.CategoryError} {
		if count := stats.EventsByCategory[cat]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", cat.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Direction:")
	for _, dir := range []log.Direction{log.DirectionIn, log.DirectionOut} {
		if count := stats.EventsByDirection[dir]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", dir.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	if len(stats.EventsByGroup) > 1 {
		fmt.Fprintln(w, "Events by Group:")
		for g := uint8(0); g <= 15; g++ {
			if count := stats.EventsByGroup[g]; count > 0 {
				fmt.Fprintf(w, "  %-12s %d\n", fmt.Sprintf("%d:", g), count)
			}
		}
		fmt.Fprintln(w)
	}

	printCounts(w, "Vendor Topics:", stats.Topics)
	printCounts(w, "PE Commands:", stats.Commands)

	fmt.Fprintf(w, "Connections: %d\n", len(stats.Connections))
	if len(stats.Connections) > 0 {
		type connInfo struct {
			id    string
			stats *ConnectionStats
		}
		conns := make([]connInfo, 0, len(stats.Connections))
		for id, cs := range stats.Connections {
			conns = append(conns, connInfo{id, cs})
		}
		sort.Slice(conns, func(i, j int) bool {
			return conns[i].stats.FirstSeen.Before(conns[j].stats.FirstSeen)
		})

		fmt.Fprintln(w)
		for _, c := range conns {
			duration := c.stats.LastSeen.Sub(c.stats.FirstSeen).Round(time.Millisecond)
			fmt.Fprintf(w, "  [%s] %d events, duration %s\n", shortenConnID(c.id), c.stats.Events, duration)
			if c.stats.Endpoint != "" {
				fmt.Fprintf(w, "           Endpoint: %s\n", c.stats.Endpoint)
			}
			if c.stats.SysExBytes > 0 {
				fmt.Fprintf(w, "           SysEx: %d bytes\n", c.stats.SysExBytes)
			}
			if c.stats.SnapshotCount > 0 {
				fmt.Fprintf(w, "           Snapshots: %d\n", c.stats.SnapshotCount)
			}
		}
	}

	if stats.Errors > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Errors: %d\n", stats.Errors)
	}
}

func printCounts(w io.Writer, title string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Fprintln(w, title)
	for _, k := range keys {
		fmt.Fprintf(w, "  %-16s %d\n", k+":", counts[k])
	}
	fmt.Fprintln(w)
}
