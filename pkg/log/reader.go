package log

import (
	"errors"
	"io"
	"os"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// Filter selects events. Zero fields match everything.
type Filter struct {
	ConnectionID string
	Endpoint     string
	Direction    *Direction
	Layer        *Layer
	Category     *Category
	Group        *uint8

	// TimeStart matches events at or after this time.
	TimeStart *time.Time
	// TimeEnd matches events before this time.
	TimeEnd *time.Time
}

// Matches reports whether event satisfies every criterion.
func (f *Filter) Matches(event Event) bool {
	if f.ConnectionID != "" && event.ConnectionID != f.ConnectionID {
		return false
	}
	if f.Endpoint != "" && event.Endpoint != f.Endpoint {
		return false
	}
	if f.Direction != nil && event.Direction != *f.Direction {
		return false
	}
	if f.Layer != nil && event.Layer != *f.Layer {
		return false
	}
	if f.Category != nil && event.Category != *f.Category {
		return false
	}
	if f.Group != nil && event.Group != *f.Group {
		return false
	}
	if f.TimeStart != nil && event.Timestamp.Before(*f.TimeStart) {
		return false
	}
	if f.TimeEnd != nil && !event.Timestamp.Before(*f.TimeEnd) {
		return false
	}
	return true
}

// Reader streams events from a capture.
type Reader struct {
	closer  io.Closer
	decoder *cbor.Decoder
	filter  Filter
}

// NewReader opens a capture file and reads all events.
func NewReader(path string) (*Reader, error) {
	return NewFilteredReader(path, Filter{})
}

// NewFilteredReader opens a capture file and reads events matching filter.
func NewFilteredReader(path string, filter Filter) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &Reader{closer: f, decoder: NewDecoder(f), filter: filter}, nil
}

// NewStreamReader reads events matching filter from r. Close is a no-op
// unless r is an io.Closer.
func NewStreamReader(r io.Reader, filter Filter) *Reader {
	rd := &Reader{decoder: NewDecoder(r), filter: filter}
	if c, ok := r.(io.Closer); ok {
		rd.closer = c
	}
	return rd
}

// Next returns the next matching event, or io.EOF at the end.
func (r *Reader) Next() (Event, error) {
	for {
		var event Event
		if err := r.decoder.Decode(&event); err != nil {
			if errors.Is(err, io.EOF) {
				return Event{}, io.EOF
			}
			return Event{}, err
		}
		if r.filter.Matches(event) {
			return event, nil
		}
	}
}

// Close closes the underlying source.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}
