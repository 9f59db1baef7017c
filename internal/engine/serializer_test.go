package engine

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/stepwise/internal/ir"
	"github.com/roach88/stepwise/internal/value"
)

func ints(ns ...int64) []value.Value {
	out := make([]value.Value, len(ns))
	for i, n := range ns {
		out[i] = value.Int(n)
	}
	return out
}

func typedInts(ns ...int64) []ir.TypedValue {
	out := make([]ir.TypedValue, len(ns))
	for i, n := range ns {
		out[i] = ir.Int(n)
	}
	return out
}

func TestSerializer_Scalars(t *testing.T) {
	s := NewSerializer(Limits{})

	tests := []struct {
		name string
		in   value.Value
		want ir.TypedValue
	}{
		{"none", value.None, ir.None()},
		{"nil", nil, ir.None()},
		{"bool", value.True, ir.Bool(true)},
		{"int", value.Int(-7), ir.Int(-7)},
		{"float", value.Float(2.5), ir.Float(2.5)},
		{"nan", value.Float(math.NaN()), ir.Float(math.NaN())},
		{"str", value.Str("héllo"), ir.String("héllo")},
		{"list", value.NewList(ints(1, 2)), ir.Sequence("list", typedInts(1, 2))},
		{"tuple", value.Tuple(ints(3)), ir.Sequence("tuple", typedInts(3))},
		{"range", value.Range{Start: 0, Stop: 6, Step: 2}, ir.Sequence("range", typedInts(0, 2, 4))},
		{"empty list", value.NewList(nil), ir.Sequence("list", nil)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Serialize(tt.in)
			assert.True(t, ir.Equal(tt.want, got), "got %#v", got)
		})
	}
}

func TestSerializer_Dict(t *testing.T) {
	d := value.NewDict()
	require.NoError(t, d.Set(value.Str("a"), value.Int(1)))
	require.NoError(t, d.Set(value.Int(2), value.NewList(ints(5))))

	got := NewSerializer(Limits{}).Serialize(d)
	want := ir.Mapping("dict", []ir.MapEntry{
		{Key: "a", Value: ir.Int(1)},
		{Key: "2", Value: ir.Sequence("list", typedInts(5))},
	})
	assert.True(t, ir.Equal(want, got), "got %#v", got)
}

func TestSerializer_SetKeepsInsertionOrder(t *testing.T) {
	set := value.NewSet()
	for _, n := range []int64{3, 1, 2} {
		require.NoError(t, set.Add(value.Int(n)))
	}

	got := NewSerializer(Limits{}).Serialize(set)
	assert.True(t, ir.Equal(ir.Set("set", typedInts(3, 1, 2)), got), "got %#v", got)
}

func TestSerializer_Limits(t *testing.T) {
	s := NewSerializer(Limits{MaxItems: 2, MaxDepth: 2, MaxString: 3})

	t.Run("items", func(t *testing.T) {
		got := s.Serialize(value.NewList(ints(1, 2, 3, 4)))
		assert.True(t, ir.Equal(ir.Sequence("list", typedInts(1, 2)), got))
	})

	t.Run("range items", func(t *testing.T) {
		got := s.Serialize(value.Range{Start: 0, Stop: 1 << 40, Step: 1})
		assert.True(t, ir.Equal(ir.Sequence("range", typedInts(0, 1)), got))
	})

	t.Run("string runes", func(t *testing.T) {
		got := s.Serialize(value.Str("héllo"))
		assert.Equal(t, "hél", got.Value)
	})

	t.Run("depth", func(t *testing.T) {
		inner := value.NewList(ints(1))
		nested := value.NewList([]value.Value{value.NewList([]value.Value{inner})})

		got := s.Serialize(nested)
		require.Equal(t, ir.KindSequence, got.Kind)
		mid := got.Items()[0]
		require.Equal(t, ir.KindSequence, mid.Kind)
		deep := mid.Items()[0]
		assert.Equal(t, ir.KindOpaque, deep.Kind)
		assert.Equal(t, "list", deep.Type)
		assert.Equal(t, "[1]", deep.Value)
	})
}

func TestSerializer_SelfReference(t *testing.T) {
	l := value.NewList(nil)
	l.Elems = append(l.Elems, l)

	got := NewSerializer(Limits{}).Serialize(l)
	assert.Equal(t, ir.KindSequence, got.Kind)
}

// brokenValue panics on every method.
type brokenValue struct{}

func (brokenValue) Type() string { panic("broken") }
func (brokenValue) Truth() bool  { panic("broken") }

func TestSerializer_Unrepresentable(t *testing.T) {
	got := NewSerializer(Limits{}).Serialize(brokenValue{})
	assert.Equal(t, ir.Opaque("object", "<unrepresentable>"), got)
}

func TestSerializer_Deterministic(t *testing.T) {
	d := value.NewDict()
	require.NoError(t, d.Set(value.Str("xs"), value.NewList(ints(1, 2, 3))))
	require.NoError(t, d.Set(value.Str("name"), value.Str(strings.Repeat("ab", 10))))

	s := NewSerializer(Limits{})
	first, err := ir.MarshalCanonical(s.Serialize(d))
	require.NoError(t, err)
	for range 5 {
		again, err := ir.MarshalCanonical(s.Serialize(d))
		require.NoError(t, err)
		assert.Equal(t, string(first), string(again))
	}
}

func TestSerializer_DefaultLimits(t *testing.T) {
	assert.Equal(t, DefaultLimits(), NewSerializer(Limits{}).Limits())
	assert.Equal(t, 7, NewSerializer(Limits{MaxItems: 7}).Limits().MaxItems)
}

func TestTraceable(t *testing.T) {
	tests := []struct {
		name string
		v    value.Value
		want bool
	}{
		{"x", value.Int(1), true},
		{"_hidden", value.Int(1), false},
		{"m", value.NewModule("m", nil), false},
		{"b", value.NewBuiltin("b", nil), false},
		{"c", value.NewClass("c", nil, nil), false},
		{"xs", value.NewList(nil), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, traceable(tt.name, tt.v))
		})
	}
}
