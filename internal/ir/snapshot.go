package ir

import (
	"bytes"
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// Binding is one named entry of a Snapshot.
type Binding struct {
	Name  string
	Value TypedValue
}

// Snapshot is the ordered set of visible variable bindings at one step.
//
// The zero value is an empty snapshot. Order is binding order in the
// observed frame and is preserved on the wire.
type Snapshot struct {
	bindings []Binding
}

// NewSnapshot builds a snapshot from bindings. Later duplicates replace
// earlier ones in place.
func NewSnapshot(bindings ...Binding) Snapshot {
	var s Snapshot
	for _, b := range bindings {
		s.Set(b.Name, b.Value)
	}
	return s
}

// Len returns the number of bindings.
func (s Snapshot) Len() int { return len(s.bindings) }

// Get looks up a binding by name.
func (s Snapshot) Get(name string) (TypedValue, bool) {
	for _, b := range s.bindings {
		if b.Name == name {
			return b.Value, true
		}
	}
	return TypedValue{}, false
}

// Names returns binding names in order.
func (s Snapshot) Names() []string {
	names := make([]string, len(s.bindings))
	for i, b := range s.bindings {
		names[i] = b.Name
	}
	return names
}

// Bindings returns a copy of the bindings in order.
func (s Snapshot) Bindings() []Binding {
	out := make([]Binding, len(s.bindings))
	copy(out, s.bindings)
	return out
}

// Set adds or replaces a binding.
func (s *Snapshot) Set(name string, v TypedValue) {
	for i := range s.bindings {
		if s.bindings[i].Name == name {
			s.bindings[i].Value = v
			return
		}
	}
	s.bindings = append(s.bindings, Binding{Name: name, Value: v})
}

// Clone returns a deep copy that shares no payload with s.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{bindings: make([]Binding, len(s.bindings))}
	for i, b := range s.bindings {
		out.bindings[i] = Binding{Name: b.Name, Value: b.Value.Clone()}
	}
	return out
}

// MarshalJSON writes the snapshot as an object in binding order.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	err := writeOrderedObject(&buf, len(s.bindings), func(i int) (string, TypedValue) {
		return s.bindings[i].Name, s.bindings[i].Value
	})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalJSON restores a snapshot keeping document order.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	var out Snapshot
	err := decodeOrderedObject(data, func(key string, val json.RawMessage) error {
		var tv TypedValue
		if err := json.Unmarshal(val, &tv); err != nil {
			return err
		}
		out.Set(key, tv)
		return nil
	})
	if err != nil {
		return err
	}
	*s = out
	return nil
}

// JSONSchema describes a snapshot as an object of typed values.
func (Snapshot) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:        "object",
		Description: "Visible variables at this step, in binding order",
	}
}

// ValueChange records an updated binding.
type ValueChange struct {
	From TypedValue `json:"from"`
	To   TypedValue `json:"to"`
}

// Change is the delta between two consecutive snapshots.
type Change struct {
	Created map[string]TypedValue  `json:"created"`
	Updated map[string]ValueChange `json:"updated"`
	Deleted map[string]TypedValue  `json:"deleted"`
}

// IsEmpty reports whether nothing changed.
func (c Change) IsEmpty() bool {
	return len(c.Created) == 0 && len(c.Updated) == 0 && len(c.Deleted) == 0
}

// Diff classifies every name of prev and curr into at most one bucket:
// created (only in curr), updated (in both, not Equal), or deleted (only in
// prev). Unchanged names appear in no bucket.
func Diff(prev, curr Snapshot) Change {
	c := Change{
		Created: map[string]TypedValue{},
		Updated: map[string]ValueChange{},
		Deleted: map[string]TypedValue{},
	}
	before := make(map[string]TypedValue, prev.Len())
	for _, b := range prev.bindings {
		before[b.Name] = b.Value
	}
	for _, b := range curr.bindings {
		old, ok := before[b.Name]
		switch {
		case !ok:
			c.Created[b.Name] = b.Value
		case !Equal(old, b.Value):
			c.Updated[b.Name] = ValueChange{From: old, To: b.Value}
		}
		delete(before, b.Name)
	}
	for name, old := range before {
		c.Deleted[name] = old
	}
	return c
}
