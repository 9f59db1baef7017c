package ir

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypedValueMarshalJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    TypedValue
		expected string
	}{
		{"none", None(), `{"kind":"none","type":"NoneType","value":null}`},
		{"bool", Bool(true), `{"kind":"bool","type":"bool","value":true}`},
		{"int", Int(-7), `{"kind":"int","type":"int","value":-7}`},
		{"float", Float(2.5), `{"kind":"float","type":"float","value":2.5}`},
		{"nan", Float(math.NaN()), `{"kind":"float","type":"float","value":"nan"}`},
		{"neg inf", Float(math.Inf(-1)), `{"kind":"float","type":"float","value":"-inf"}`},
		{"string no html escape", String("<a&b>"), `{"kind":"string","type":"str","value":"<a&b>"}`},
		{"empty list", Sequence("list", nil), `{"kind":"sequence","type":"list","value":[]}`},
		{"empty dict", Mapping("dict", nil), `{"kind":"mapping","type":"dict","value":{}}`},
		{"opaque", Opaque("function", "<function f>"), `{"kind":"opaque","type":"function","value":"<function f>"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := json.Marshal(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(got))
		})
	}
}

func TestMappingKeepsInsertionOrder(t *testing.T) {
	m := Mapping("dict", []MapEntry{
		{Key: "zebra", Value: Int(1)},
		{Key: "alpha", Value: Int(2)},
	})

	got, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Equal(t,
		`{"kind":"mapping","type":"dict","value":{"zebra":{"kind":"int","type":"int","value":1},"alpha":{"kind":"int","type":"int","value":2}}}`,
		string(got))
}

func TestTypedValueRoundTrip(t *testing.T) {
	original := Sequence("list", []TypedValue{
		Int(1),
		Float(math.Inf(1)),
		Mapping("dict", []MapEntry{{Key: "b", Value: String("x")}, {Key: "a", Value: None()}}),
		Set("set", []TypedValue{Bool(false)}),
		Sequence("tuple", nil),
	})

	data, err := json.Marshal(original)
	require.NoError(t, err)

	var decoded TypedValue
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, Equal(original, decoded), "round trip changed value: %s", data)
}

func TestTypedValueUnmarshalUnknownKind(t *testing.T) {
	var v TypedValue
	err := json.Unmarshal([]byte(`{"kind":"blob","type":"x","value":1}`), &v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown value kind")
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal(Int(1), Int(1)))
	assert.False(t, Equal(Int(1), Int(2)))
	assert.False(t, Equal(Int(1), Float(1)), "kind participates in equality")
	assert.False(t, Equal(Sequence("list", nil), Sequence("tuple", nil)), "type participates in equality")
	assert.True(t, Equal(Float(math.NaN()), Float(math.NaN())), "non-finite floats compare by text")

	a := Mapping("dict", []MapEntry{{Key: "a", Value: Int(1)}, {Key: "b", Value: Int(2)}})
	b := Mapping("dict", []MapEntry{{Key: "b", Value: Int(2)}, {Key: "a", Value: Int(1)}})
	assert.False(t, Equal(a, b), "mapping order is observable")
}

func TestCloneIsDeep(t *testing.T) {
	inner := []TypedValue{Int(1)}
	original := Sequence("list", []TypedValue{Sequence("list", inner)})

	clone := original.Clone()
	inner[0] = Int(99)

	assert.Equal(t, int64(1), clone.Items()[0].Items()[0].Value)
}
