package jsonvalue

import (
	"fmt"
	"sort"
)

// From converts a Go value built from maps, slices, strings, bools, and
// numeric types into a Value. Map keys are sorted so the result is stable.
func From(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Null(), nil
	case Value:
		return t, nil
	case bool:
		return Bool(t), nil
	case string:
		return String(t), nil
	case float64:
		return Number(t), nil
	case float32:
		return Number(float64(t)), nil
	case int:
		return Number(float64(t)), nil
	case int32:
		return Number(float64(t)), nil
	case int64:
		return Number(float64(t)), nil
	case uint8:
		return Number(float64(t)), nil
	case uint32:
		return Number(float64(t)), nil
	case uint64:
		return Number(float64(t)), nil
	case []any:
		items := make([]Value, 0, len(t))
		for i, e := range t {
			v, err := From(e)
			if err != nil {
				return Value{}, fmt.Errorf("index %d: %w", i, err)
			}
			items = append(items, v)
		}
		return Array(items...), nil
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		members := make([]Member, 0, len(keys))
		for _, k := range keys {
			v, err := From(t[k])
			if err != nil {
				return Value{}, fmt.Errorf("key %q: %w", k, err)
			}
			members = append(members, Field(k, v))
		}
		return Object(members...), nil
	case map[string]float64:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		members := make([]Member, 0, len(keys))
		for _, k := range keys {
			members = append(members, Field(k, Number(t[k])))
		}
		return Object(members...), nil
	default:
		return Value{}, fmt.Errorf("%w: %T", ErrUnsupported, x)
	}
}

// MustFrom is like From but panics on unsupported input. It is meant for
// literals in tests and program setup.
func MustFrom(x any) Value {
	v, err := From(x)
	if err != nil {
		panic(err)
	}
	return v
}

// Any converts v back to plain Go values: nil, bool, float64, string,
// []any, and map[string]any. Undefined converts to nil.
func (v Value) Any() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		return v.n
	case KindString:
		return v.s
	case KindArray:
		out := make([]any, len(v.items))
		for i, item := range v.items {
			out[i] = item.Any()
		}
		return out
	case KindObject:
		out := make(map[string]any, len(v.members))
		for _, m := range v.members {
			out[m.Key] = m.Value.Any()
		}
		return out
	default:
		return nil
	}
}

// String returns the compact JSON text of v, or "" when v has none.
func (v Value) String() string {
	data, err := Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}
