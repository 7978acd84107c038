package registry

import (
	"strconv"

	"github.com/fountain-coach/midi2-go/pkg/jsonvalue"
)

// SignificantDigits is the precision of numbers rendered by Snapshot.JSON.
// It keeps a canvas snapshot well inside one Property Exchange data part.
const SignificantDigits = 9

// Property is one named entry of a Snapshot.
type Property struct {
	Name   string
	Values []float64
}

// Snapshot is an ordered view of a handler's numeric state.
type Snapshot struct {
	Handler string
	entries []Property
}

// NewSnapshot returns an empty snapshot for handler.
func NewSnapshot(handler string) Snapshot {
	return Snapshot{Handler: handler}
}

// Set records name with values, replacing an earlier entry of that name
// but keeping its position.
func (s *Snapshot) Set(name string, values ...float64) {
	v := append([]float64(nil), values...)
	for i := range s.entries {
		if s.entries[i].Name == name {
			s.entries[i].Values = v
			return
		}
	}
	s.entries = append(s.entries, Property{Name: name, Values: v})
}

// Get returns the values recorded for name.
func (s Snapshot) Get(name string) ([]float64, bool) {
	for _, p := range s.entries {
		if p.Name == name {
			return p.Values, true
		}
	}
	return nil, false
}

// Value returns the first value recorded for name.
func (s Snapshot) Value(name string) (float64, bool) {
	v, ok := s.Get(name)
	if !ok || len(v) == 0 {
		return 0, false
	}
	return v[0], true
}

// Entries returns the properties in order.
func (s Snapshot) Entries() []Property {
	return append([]Property(nil), s.entries...)
}

// Len returns the number of properties.
func (s Snapshot) Len() int { return len(s.entries) }

// Properties returns the snapshot as a map.
func (s Snapshot) Properties() map[string][]float64 {
	out := make(map[string][]float64, len(s.entries))
	for _, p := range s.entries {
		out[p.Name] = append([]float64(nil), p.Values...)
	}
	return out
}

// JSON renders the snapshot as an object in order. Single-value entries
// are plain numbers, others are number arrays. Numbers are rounded to
// SignificantDigits.
func (s Snapshot) JSON() jsonvalue.Value {
	members := make([]jsonvalue.Member, 0, len(s.entries))
	for _, p := range s.entries {
		if len(p.Values) == 1 {
			members = append(members, jsonvalue.Field(p.Name, jsonvalue.Number(round(p.Values[0]))))
			continue
		}
		items := make([]jsonvalue.Value, len(p.Values))
		for i, f := range p.Values {
			items[i] = jsonvalue.Number(round(f))
		}
		members = append(members, jsonvalue.Field(p.Name, jsonvalue.Array(items...)))
	}
	return jsonvalue.Object(members...)
}

func round(f float64) float64 {
	r, err := strconv.ParseFloat(strconv.FormatFloat(f, 'g', SignificantDigits, 64), 64)
	if err != nil {
		return f
	}
	return r
}

// ParseSnapshot reads a snapshot object as produced by JSON. Members that
// are plain numbers are accepted as single-value entries; other members are
// skipped.
func ParseSnapshot(handler string, v jsonvalue.Value) (Snapshot, error) {
	if v.Kind() != jsonvalue.KindObject {
		return Snapshot{}, ErrNotObject
	}
	snap := NewSnapshot(handler)
	for _, m := range v.Members() {
		if f, ok := m.Value.AsNumber(); ok {
			snap.Set(m.Key, f)
			continue
		}
		items, ok := m.Value.AsArray()
		if !ok {
			continue
		}
		var values []float64
		for _, item := range items {
			if f, ok := item.AsNumber(); ok {
				values = append(values, f)
			}
		}
		if len(values) == len(items) {
			snap.Set(m.Key, values...)
		}
	}
	return snap, nil
}
