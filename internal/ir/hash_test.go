package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSourceHashStable(t *testing.T) {
	assert.Equal(t, SourceHash("x = 1"), SourceHash("x = 1"))
	assert.NotEqual(t, SourceHash("x = 1"), SourceHash("x = 2"))
	assert.Len(t, SourceHash(""), 64)
}

func TestSourceHashNormalizesUnicode(t *testing.T) {
	assert.Equal(t, SourceHash("s = 'caf\u00e9'"), SourceHash("s = 'cafe\u0301'"))
}

func TestTraceHashIgnoresIdentity(t *testing.T) {
	a := NewTraceResult("trace-a", NewScript("x = 1"))
	a.Completed = true
	a.DurationMs = 3
	a.Seed = 1

	b := NewTraceResult("trace-b", NewScript("x = 1"))
	b.Completed = true
	b.DurationMs = 40
	b.Seed = 2

	ha, err := TraceHash(a)
	require.NoError(t, err)
	hb, err := TraceHash(b)
	require.NoError(t, err)
	assert.Equal(t, ha, hb)

	b.Completed = false
	hc, err := TraceHash(b)
	require.NoError(t, err)
	assert.NotEqual(t, ha, hc)
}

func TestHashWithDomainSeparation(t *testing.T) {
	data := []byte("x = 1")
	assert.NotEqual(t, hashWithDomain(DomainSource, data), hashWithDomain(DomainTrace, data))
}
