package engine

import (
	"unicode/utf8"

	"github.com/roach88/stepwise/internal/interp"
	"github.com/roach88/stepwise/internal/ir"
	"github.com/roach88/stepwise/internal/value"
)

// Serializer defaults.
const (
	DefaultMaxItems  = 50
	DefaultMaxDepth  = 8
	DefaultMaxString = 10000
)

// Limits bounds the serialized form of a value. Truncation is silent.
type Limits struct {
	// MaxItems caps the elements kept from any container.
	MaxItems int
	// MaxDepth is the container nesting kept structurally; deeper
	// containers become opaque repr text.
	MaxDepth int
	// MaxString caps strings (and repr text) in runes.
	MaxString int
}

// DefaultLimits returns 50 items, depth 8 and 10000 runes.
func DefaultLimits() Limits {
	return Limits{MaxItems: DefaultMaxItems, MaxDepth: DefaultMaxDepth, MaxString: DefaultMaxString}
}

func (l Limits) withDefaults() Limits {
	if l.MaxItems <= 0 {
		l.MaxItems = DefaultMaxItems
	}
	if l.MaxDepth <= 0 {
		l.MaxDepth = DefaultMaxDepth
	}
	if l.MaxString <= 0 {
		l.MaxString = DefaultMaxString
	}
	return l
}

// Serializer converts runtime values into bounded ir.TypedValues.
//
// Serialize is total: any value, including ones whose repr misbehaves,
// produces a TypedValue, falling back to an opaque "<unrepresentable>".
// Output is deterministic: sets keep insertion order.
type Serializer struct {
	limits Limits
}

// NewSerializer creates a serializer; zero limit fields take defaults.
func NewSerializer(limits Limits) *Serializer {
	return &Serializer{limits: limits.withDefaults()}
}

// Limits returns the effective limits.
func (s *Serializer) Limits() Limits { return s.limits }

// Serialize converts v.
func (s *Serializer) Serialize(v value.Value) (tv ir.TypedValue) {
	defer func() {
		if r := recover(); r != nil {
			tv = ir.Opaque(typeNameOf(v), "<unrepresentable>")
		}
	}()
	return s.serialize(v, 0)
}

// typeNameOf is value.TypeName for values whose Type method may panic.
func typeNameOf(v value.Value) (name string) {
	defer func() {
		if recover() != nil {
			name = "object"
		}
	}()
	return value.TypeName(v)
}

func (s *Serializer) serialize(v value.Value, depth int) ir.TypedValue {
	switch v := v.(type) {
	case nil, value.NoneType:
		return ir.None()
	case value.Bool:
		return ir.Bool(bool(v))
	case value.Int:
		return ir.Int(int64(v))
	case value.Float:
		return ir.Float(float64(v))
	case value.Str:
		return ir.String(s.cut(string(v)))
	}

	if depth >= s.limits.MaxDepth {
		return s.opaque(v)
	}
	switch v := v.(type) {
	case *value.List:
		return ir.Sequence(v.Type(), s.items(v.Elems, depth))
	case value.Tuple:
		return ir.Sequence("tuple", s.items(v, depth))
	case value.Range:
		n := min(v.Len(), int64(s.limits.MaxItems))
		items := make([]ir.TypedValue, n)
		for i := range n {
			items[i] = ir.Int(int64(v.At(i)))
		}
		return ir.Sequence("range", items)
	case *value.Dict:
		n := min(v.Len(), s.limits.MaxItems)
		entries := make([]ir.MapEntry, n)
		for i := range n {
			k, val := v.Entry(i)
			entries[i] = ir.MapEntry{Key: s.cut(value.ToStr(k)), Value: s.serialize(val, depth+1)}
		}
		return ir.Mapping(v.Type(), entries)
	case *value.Set:
		return ir.Set(v.Type(), s.items(v.Items(), depth))
	}
	return s.opaque(v)
}

func (s *Serializer) items(elems []value.Value, depth int) []ir.TypedValue {
	n := min(len(elems), s.limits.MaxItems)
	out := make([]ir.TypedValue, n)
	for i := range n {
		out[i] = s.serialize(elems[i], depth+1)
	}
	return out
}

func (s *Serializer) opaque(v value.Value) ir.TypedValue {
	return ir.Opaque(value.TypeName(v), s.cut(value.Repr(v)))
}

func (s *Serializer) cut(str string) string {
	if utf8.RuneCountInString(str) <= s.limits.MaxString {
		return str
	}
	return string([]rune(str)[:s.limits.MaxString])
}

// Snapshot captures the visible variables of fr in binding order. Names
// starting with "_" and modules, functions and types are left out.
func (s *Serializer) Snapshot(fr *interp.Frame) ir.Snapshot {
	var snap ir.Snapshot
	for _, b := range fr.Bindings() {
		if !traceable(b.Name, b.Value) {
			continue
		}
		snap.Set(b.Name, s.Serialize(b.Value))
	}
	return snap
}

func traceable(name string, v value.Value) bool {
	if len(name) > 0 && name[0] == '_' {
		return false
	}
	switch v.(type) {
	case *value.Module, *interp.Function, *value.Builtin, *value.Class:
		return false
	}
	return true
}
