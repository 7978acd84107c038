// Package jsonvalue provides a closed JSON value type for vendor and
// property payloads.
//
// A Value is exactly one of null, bool, number, string, array, or object.
// The zero Value is undefined, which stands for an absent field and encodes
// as nothing when used as an optional member. Object member order is kept
// as parsed or constructed so encodings are stable.
package jsonvalue

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"unicode/utf8"
)

// Kind identifies the variant held by a Value.
type Kind uint8

const (
	// KindUndefined is the zero Kind; the value is absent.
	KindUndefined Kind = iota
	KindNull
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindUndefined:
		return "undefined"
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// Errors returned by Parse and Marshal.
var (
	ErrInvalidJSON  = errors.New("invalid JSON")
	ErrInvalidUTF8  = errors.New("JSON text is not valid UTF-8")
	ErrUnsupported  = errors.New("value has no JSON representation")
	ErrTrailingData = errors.New("trailing data after JSON value")
)

// Member is one key/value pair of an object.
type Member struct {
	Key   string
	Value Value
}

// Value is an immutable JSON value.
type Value struct {
	kind    Kind
	b       bool
	n       float64
	s       string
	items   []Value
	members []Member
}

// Null returns the JSON null value.
func Null() Value { return Value{kind: KindNull} }

// Bool returns a JSON boolean.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Number returns a JSON number.
func Number(f float64) Value { return Value{kind: KindNumber, n: f} }

// String returns a JSON string.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Array returns a JSON array holding items.
func Array(items ...Value) Value {
	return Value{kind: KindArray, items: append([]Value(nil), items...)}
}

// Object returns a JSON object. Later members replace earlier ones with the
// same key, keeping the earlier position.
func Object(members ...Member) Value {
	v := Value{kind: KindObject, members: make([]Member, 0, len(members))}
	for _, m := range members {
		v.members = setMember(v.members, m.Key, m.Value)
	}
	return v
}

// Field is shorthand for constructing a Member.
func Field(key string, v Value) Member { return Member{Key: key, Value: v} }

// Kind returns the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// IsDefined reports whether v holds any value, including null.
func (v Value) IsDefined() bool { return v.kind != KindUndefined }

// IsNull reports whether v is JSON null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsBool returns the boolean held by v.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// AsNumber returns the number held by v.
func (v Value) AsNumber() (float64, bool) { return v.n, v.kind == KindNumber }

// AsString returns the string held by v.
func (v Value) AsString() (string, bool) { return v.s, v.kind == KindString }

// AsArray returns a copy of the array items held by v.
func (v Value) AsArray() ([]Value, bool) {
	if v.kind != KindArray {
		return nil, false
	}
	return append([]Value(nil), v.items...), true
}

// Members returns a copy of the object members of v in order.
func (v Value) Members() []Member {
	if v.kind != KindObject {
		return nil
	}
	return append([]Member(nil), v.members...)
}

// Len returns the number of array items or object members.
func (v Value) Len() int {
	switch v.kind {
	case KindArray:
		return len(v.items)
	case KindObject:
		return len(v.members)
	default:
		return 0
	}
}

// Get returns the member named key of an object.
func (v Value) Get(key string) (Value, bool) {
	if v.kind != KindObject {
		return Value{}, false
	}
	for _, m := range v.members {
		if m.Key == key {
			return m.Value, true
		}
	}
	return Value{}, false
}

// Float returns the numeric member named key.
func (v Value) Float(key string) (float64, bool) {
	m, ok := v.Get(key)
	if !ok {
		return 0, false
	}
	return m.AsNumber()
}

// Str returns the string member named key.
func (v Value) Str(key string) (string, bool) {
	m, ok := v.Get(key)
	if !ok {
		return "", false
	}
	return m.AsString()
}

// With returns a copy of object v with key set to val. A non-object v is
// treated as an empty object.
func (v Value) With(key string, val Value) Value {
	out := Value{kind: KindObject}
	if v.kind == KindObject {
		out.members = append([]Member(nil), v.members...)
	}
	out.members = setMember(out.members, key, val)
	return out
}

func setMember(members []Member, key string, val Value) []Member {
	for i := range members {
		if members[i].Key == key {
			members[i].Value = val
			return members
		}
	}
	return append(members, Member{Key: key, Value: val})
}

// Equal reports whether a and b hold the same JSON value. Object member
// order is ignored.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindUndefined, KindNull:
		return true
	case KindBool:
		return a.b == b.b
	case KindNumber:
		return a.n == b.n
	case KindString:
		return a.s == b.s
	case KindArray:
		if len(a.items) != len(b.items) {
			return false
		}
		for i := range a.items {
			if !Equal(a.items[i], b.items[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if len(a.members) != len(b.members) {
			return false
		}
		for _, m := range a.members {
			other, ok := b.Get(m.Key)
			if !ok || !Equal(m.Value, other) {
				return false
			}
		}
		return true
	}
	return false
}

// Parse decodes a single JSON value from data.
func Parse(data []byte) (Value, error) {
	if !utf8.Valid(data) {
		return Value{}, ErrInvalidUTF8
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := parseValue(dec)
	if err != nil {
		return Value{}, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return Value{}, ErrTrailingData
	}
	return v, nil
}

func parseValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Value{}, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	switch t := tok.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(t), nil
	case json.Number:
		f, err := strconv.ParseFloat(string(t), 64)
		if err != nil {
			return Value{}, fmt.Errorf("%w: number %s", ErrInvalidJSON, t)
		}
		return Number(f), nil
	case string:
		return String(t), nil
	case json.Delim:
		switch t {
		case '[':
			arr := Value{kind: KindArray, items: []Value{}}
			for dec.More() {
				item, err := parseValue(dec)
				if err != nil {
					return Value{}, err
				}
				arr.items = append(arr.items, item)
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
			}
			return arr, nil
		case '{':
			obj := Value{kind: KindObject, members: []Member{}}
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return Value{}, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
				}
				key, ok := keyTok.(string)
				if !ok {
					return Value{}, fmt.Errorf("%w: object key %v", ErrInvalidJSON, keyTok)
				}
				val, err := parseValue(dec)
				if err != nil {
					return Value{}, err
				}
				obj.members = setMember(obj.members, key, val)
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
			}
			return obj, nil
		}
	}
	return Value{}, fmt.Errorf("%w: unexpected token %v", ErrInvalidJSON, tok)
}

// Marshal encodes v as compact JSON. Undefined values and non-finite
// numbers have no JSON form and return ErrUnsupported.
func Marshal(v Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := encode(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MarshalASCII encodes v like Marshal but escapes every non-ASCII character
// as \uXXXX, so the output contains only 7-bit bytes.
func MarshalASCII(v Value) ([]byte, error) {
	data, err := Marshal(v)
	if err != nil {
		return nil, err
	}
	return escapeNonASCII(data), nil
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	return Marshal(v)
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	parsed, err := Parse(data)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func encode(buf *bytes.Buffer, v Value) error {
	switch v.kind {
	case KindNull:
		buf.WriteString("null")
	case KindBool:
		buf.WriteString(strconv.FormatBool(v.b))
	case KindNumber:
		if math.IsNaN(v.n) || math.IsInf(v.n, 0) {
			return fmt.Errorf("%w: %v", ErrUnsupported, v.n)
		}
		b, err := json.Marshal(v.n)
		if err != nil {
			return err
		}
		buf.Write(b)
	case KindString:
		encodeString(buf, v.s)
	case KindArray:
		buf.WriteByte('[')
		for i, item := range v.items {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encode(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindObject:
		buf.WriteByte('{')
		first := true
		for _, m := range v.members {
			if !m.Value.IsDefined() {
				continue
			}
			if !first {
				buf.WriteByte(',')
			}
			first = false
			encodeString(buf, m.Key)
			buf.WriteByte(':')
			if err := encode(buf, m.Value); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("%w: %s", ErrUnsupported, v.kind)
	}
	return nil
}

func encodeString(buf *bytes.Buffer, s string) {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	// Encoder terminates each value with a newline.
	buf.Truncate(buf.Len() - 1)
}

func escapeNonASCII(data []byte) []byte {
	out := make([]byte, 0, len(data))
	for len(data) > 0 {
		if data[0] < utf8.RuneSelf {
			out = append(out, data[0])
			data = data[1:]
			continue
		}
		r, size := utf8.DecodeRune(data)
		data = data[size:]
		if r >= 0x10000 {
			r -= 0x10000
			out = appendEscape(out, 0xD800+(r>>10))
			out = appendEscape(out, 0xDC00+(r&0x3FF))
			continue
		}
		out = appendEscape(out, r)
	}
	return out
}

func appendEscape(out []byte, r rune) []byte {
	const hex = "0123456789abcdef"
	return append(out, '\\', 'u',
		hex[(r>>12)&0xF], hex[(r>>8)&0xF], hex[(r>>4)&0xF], hex[r&0xF])
}
