package registry

import (
	"github.com/fountain-coach/midi2-go/pkg/jsonvalue"
)

// FlattenProperties reads a property-set document into a name/value map.
// Two shapes are accepted:
//
//	{"zoom": 1.5, "translation.x": 10}
//	{"properties": [{"name": "zoom", "value": 1.5}, ...]}
//
// Non-numeric values and malformed list items are skipped.
func FlattenProperties(v jsonvalue.Value) (map[string]float64, error) {
	if v.Kind() != jsonvalue.KindObject {
		return nil, ErrNotObject
	}

	out := make(map[string]float64)
	if list, ok := v.Get("properties"); ok {
		if items, ok := list.AsArray(); ok {
			for _, item := range items {
				name, ok := item.Str("name")
				if !ok || name == "" {
					continue
				}
				if f, ok := item.Float("value"); ok {
					out[name] = f
				}
			}
			return out, nil
		}
	}

	for _, m := range v.Members() {
		if f, ok := m.Value.AsNumber(); ok {
			out[m.Key] = f
		}
	}
	return out, nil
}
