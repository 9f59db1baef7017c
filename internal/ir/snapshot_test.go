package ir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotSetReplacesInPlace(t *testing.T) {
	s := NewSnapshot(Binding{"x", Int(1)}, Binding{"y", Int(2)})
	s.Set("x", Int(5))

	assert.Equal(t, []string{"x", "y"}, s.Names())
	v, ok := s.Get("x")
	require.True(t, ok)
	assert.Equal(t, int64(5), v.Value)
}

func TestSnapshotJSONOrder(t *testing.T) {
	s := NewSnapshot(Binding{"b", Int(1)}, Binding{"a", String("z")})

	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.Equal(t,
		`{"b":{"kind":"int","type":"int","value":1},"a":{"kind":"string","type":"str","value":"z"}}`,
		string(data))

	var decoded Snapshot
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, []string{"b", "a"}, decoded.Names())
}

func TestDiff(t *testing.T) {
	prev := NewSnapshot(
		Binding{"kept", Int(1)},
		Binding{"changed", Int(2)},
		Binding{"gone", String("bye")},
	)
	curr := NewSnapshot(
		Binding{"kept", Int(1)},
		Binding{"changed", Int(3)},
		Binding{"fresh", Bool(true)},
	)

	c := Diff(prev, curr)

	assert.Equal(t, map[string]TypedValue{"fresh": Bool(true)}, c.Created)
	assert.Equal(t, map[string]ValueChange{"changed": {From: Int(2), To: Int(3)}}, c.Updated)
	assert.Equal(t, map[string]TypedValue{"gone": String("bye")}, c.Deleted)
	assert.False(t, c.IsEmpty())
}

func TestDiffIdempotent(t *testing.T) {
	s := NewSnapshot(
		Binding{"xs", Sequence("list", []TypedValue{Int(1), Int(2)})},
		Binding{"name", String("ada")},
	)

	c := Diff(s, s.Clone())
	assert.True(t, c.IsEmpty())
	assert.NotNil(t, c.Created, "buckets are never nil")
}

func TestDiffBucketsAreDisjoint(t *testing.T) {
	prev := NewSnapshot(Binding{"a", Int(1)}, Binding{"b", Int(2)})
	curr := NewSnapshot(Binding{"b", Int(3)}, Binding{"c", Int(4)})

	c := Diff(prev, curr)
	seen := map[string]int{}
	for k := range c.Created {
		seen[k]++
	}
	for k := range c.Updated {
		seen[k]++
	}
	for k := range c.Deleted {
		seen[k]++
	}
	for name, n := range seen {
		assert.Equal(t, 1, n, "%s appears in %d buckets", name, n)
	}
	assert.Len(t, seen, 3)
}

func TestSnapshotCloneIndependent(t *testing.T) {
	s := NewSnapshot(Binding{"x", Int(1)})
	clone := s.Clone()
	s.Set("x", Int(2))

	v, _ := clone.Get("x")
	assert.Equal(t, int64(1), v.Value)
}
