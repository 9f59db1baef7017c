package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
)

// Kind classifies the payload carried by a TypedValue.
type Kind string

const (
	KindNone     Kind = "none"
	KindBool     Kind = "bool"
	KindInt      Kind = "int"
	KindFloat    Kind = "float"
	KindString   Kind = "string"
	KindSequence Kind = "sequence"
	KindMapping  Kind = "mapping"
	KindSet      Kind = "set"
	KindOpaque   Kind = "opaque"
)

// TypedValue is the bounded, JSON-safe form of a script value.
//
// Value holds one of:
//   - nil for KindNone
//   - bool for KindBool
//   - int64 for KindInt
//   - float64 for KindFloat, or the strings "nan", "inf", "-inf"
//   - string for KindString and KindOpaque
//   - []TypedValue for KindSequence and KindSet
//   - []MapEntry for KindMapping
//
// Type is the script-level type name ("list", "tuple", "range", ...).
type TypedValue struct {
	Kind  Kind   `json:"kind" jsonschema:"enum=none,enum=bool,enum=int,enum=float,enum=string,enum=sequence,enum=mapping,enum=set,enum=opaque"`
	Type  string `json:"type"`
	Value any    `json:"value"`
}

// MapEntry is one key/value pair of a mapping payload. Key is the script
// str() of the original key.
type MapEntry struct {
	Key   string     `json:"key"`
	Value TypedValue `json:"value"`
}

// None returns the TypedValue for the script None.
func None() TypedValue { return TypedValue{Kind: KindNone, Type: "NoneType"} }

// Bool wraps a script bool.
func Bool(b bool) TypedValue { return TypedValue{Kind: KindBool, Type: "bool", Value: b} }

// Int wraps a script int.
func Int(n int64) TypedValue { return TypedValue{Kind: KindInt, Type: "int", Value: n} }

// Float wraps a script float. Non-finite values are carried as text.
func Float(f float64) TypedValue {
	tv := TypedValue{Kind: KindFloat, Type: "float"}
	switch {
	case math.IsNaN(f):
		tv.Value = "nan"
	case math.IsInf(f, 1):
		tv.Value = "inf"
	case math.IsInf(f, -1):
		tv.Value = "-inf"
	default:
		tv.Value = f
	}
	return tv
}

// String wraps a script str.
func String(s string) TypedValue { return TypedValue{Kind: KindString, Type: "str", Value: s} }

// Sequence wraps ordered items under the given type name.
func Sequence(typeName string, items []TypedValue) TypedValue {
	if items == nil {
		items = []TypedValue{}
	}
	return TypedValue{Kind: KindSequence, Type: typeName, Value: items}
}

// Set wraps unordered items under the given type name.
func Set(typeName string, items []TypedValue) TypedValue {
	if items == nil {
		items = []TypedValue{}
	}
	return TypedValue{Kind: KindSet, Type: typeName, Value: items}
}

// Mapping wraps insertion-ordered entries under the given type name.
func Mapping(typeName string, entries []MapEntry) TypedValue {
	if entries == nil {
		entries = []MapEntry{}
	}
	return TypedValue{Kind: KindMapping, Type: typeName, Value: entries}
}

// Opaque wraps the repr text of a value that has no structured form.
func Opaque(typeName, repr string) TypedValue {
	return TypedValue{Kind: KindOpaque, Type: typeName, Value: repr}
}

// Items returns the elements of a sequence or set payload.
func (v TypedValue) Items() []TypedValue {
	items, _ := v.Value.([]TypedValue)
	return items
}

// Entries returns the entries of a mapping payload.
func (v TypedValue) Entries() []MapEntry {
	entries, _ := v.Value.([]MapEntry)
	return entries
}

// Equal reports whether two typed values are structurally identical.
func Equal(a, b TypedValue) bool {
	if a.Kind != b.Kind || a.Type != b.Type {
		return false
	}
	switch av := a.Value.(type) {
	case nil:
		return b.Value == nil
	case bool, int64, string:
		return a.Value == b.Value
	case float64:
		bv, ok := b.Value.(float64)
		return ok && av == bv
	case []TypedValue:
		bv, ok := b.Value.([]TypedValue)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case []MapEntry:
		bv, ok := b.Value.([]MapEntry)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if av[i].Key != bv[i].Key || !Equal(av[i].Value, bv[i].Value) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Clone returns a deep copy.
func (v TypedValue) Clone() TypedValue {
	switch payload := v.Value.(type) {
	case []TypedValue:
		items := make([]TypedValue, len(payload))
		for i, item := range payload {
			items[i] = item.Clone()
		}
		v.Value = items
	case []MapEntry:
		entries := make([]MapEntry, len(payload))
		for i, e := range payload {
			entries[i] = MapEntry{Key: e.Key, Value: e.Value.Clone()}
		}
		v.Value = entries
	}
	return v
}

// MarshalJSON writes {"kind","type","value"}; mapping payloads become a JSON
// object in insertion order.
func (v TypedValue) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"kind":`)
	if err := writeJSON(&buf, string(v.Kind)); err != nil {
		return nil, err
	}
	buf.WriteString(`,"type":`)
	if err := writeJSON(&buf, v.Type); err != nil {
		return nil, err
	}
	buf.WriteString(`,"value":`)
	if err := v.writePayload(&buf); err != nil {
		return nil, err
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (v TypedValue) writePayload(buf *bytes.Buffer) error {
	switch payload := v.Value.(type) {
	case []TypedValue:
		buf.WriteByte('[')
		for i, item := range payload {
			if i > 0 {
				buf.WriteByte(',')
			}
			b, err := item.MarshalJSON()
			if err != nil {
				return fmt.Errorf("item %d: %w", i, err)
			}
			buf.Write(b)
		}
		buf.WriteByte(']')
		return nil
	case []MapEntry:
		return writeOrderedObject(buf, len(payload), func(i int) (string, TypedValue) {
			return payload[i].Key, payload[i].Value
		})
	case nil:
		switch v.Kind {
		case KindSequence, KindSet:
			buf.WriteString("[]")
		case KindMapping:
			buf.WriteString("{}")
		default:
			buf.WriteString("null")
		}
		return nil
	default:
		return writeJSON(buf, payload)
	}
}

// UnmarshalJSON restores a TypedValue, decoding the payload by kind.
func (v *TypedValue) UnmarshalJSON(data []byte) error {
	var raw struct {
		Kind  Kind            `json:"kind"`
		Type  string          `json:"type"`
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := TypedValue{Kind: raw.Kind, Type: raw.Type}
	payload := raw.Value
	if len(payload) == 0 {
		payload = json.RawMessage("null")
	}
	switch raw.Kind {
	case KindNone:
	case KindBool:
		var b bool
		if err := json.Unmarshal(payload, &b); err != nil {
			return fmt.Errorf("bool payload: %w", err)
		}
		out.Value = b
	case KindInt:
		var n int64
		if err := json.Unmarshal(payload, &n); err != nil {
			return fmt.Errorf("int payload: %w", err)
		}
		out.Value = n
	case KindFloat:
		var f float64
		if err := json.Unmarshal(payload, &f); err == nil {
			out.Value = f
			break
		}
		var s string
		if err := json.Unmarshal(payload, &s); err != nil {
			return fmt.Errorf("float payload: %w", err)
		}
		out.Value = s
	case KindString, KindOpaque:
		var s string
		if err := json.Unmarshal(payload, &s); err != nil {
			return fmt.Errorf("%s payload: %w", raw.Kind, err)
		}
		out.Value = s
	case KindSequence, KindSet:
		items := []TypedValue{}
		if err := json.Unmarshal(payload, &items); err != nil {
			return fmt.Errorf("%s payload: %w", raw.Kind, err)
		}
		if items == nil {
			items = []TypedValue{}
		}
		out.Value = items
	case KindMapping:
		entries := []MapEntry{}
		err := decodeOrderedObject(payload, func(key string, val json.RawMessage) error {
			var tv TypedValue
			if err := json.Unmarshal(val, &tv); err != nil {
				return fmt.Errorf("key %q: %w", key, err)
			}
			entries = append(entries, MapEntry{Key: key, Value: tv})
			return nil
		})
		if err != nil {
			return fmt.Errorf("mapping payload: %w", err)
		}
		out.Value = entries
	default:
		return fmt.Errorf("unknown value kind %q", raw.Kind)
	}
	*v = out
	return nil
}

// writeJSON encodes v without HTML escaping.
func writeJSON(buf *bytes.Buffer, v any) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return err
	}
	// Encoder terminates every value with a newline.
	buf.Truncate(buf.Len() - 1)
	return nil
}

// writeOrderedObject writes n key/value pairs as a JSON object, in order.
func writeOrderedObject(buf *bytes.Buffer, n int, at func(int) (string, TypedValue)) error {
	buf.WriteByte('{')
	for i := 0; i < n; i++ {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, val := at(i)
		if err := writeJSON(buf, key); err != nil {
			return err
		}
		buf.WriteByte(':')
		b, err := val.MarshalJSON()
		if err != nil {
			return fmt.Errorf("key %q: %w", key, err)
		}
		buf.Write(b)
	}
	buf.WriteByte('}')
	return nil
}

// decodeOrderedObject walks a JSON object calling fn for each member in
// document order. A JSON null is treated as an empty object.
func decodeOrderedObject(data []byte, fn func(key string, val json.RawMessage) error) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("expected object, got %v", tok)
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("expected object key, got %v", tok)
		}
		var val json.RawMessage
		if err := dec.Decode(&val); err != nil {
			return fmt.Errorf("key %q: %w", key, err)
		}
		if err := fn(key, val); err != nil {
			return err
		}
	}
	_, err = dec.Token()
	return err
}
