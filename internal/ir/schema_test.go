package ir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateJSONSchema(t *testing.T) {
	data, err := GenerateJSONSchema()
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "stepwise trace result v1", doc["title"])
	assert.Contains(t, string(data), "line_number")
}

func TestValidateTraceJSONAcceptsProducedTrace(t *testing.T) {
	r := NewTraceResult("trace-ok", NewScript("x = 1"))
	r.Steps = append(r.Steps, Step{
		Index: 1, Event: EventLine, LineNumber: 1, SourceLine: "x = 1",
		Variables: NewSnapshot(Binding{"x", Int(1)}),
		Changes:   Diff(Snapshot{}, NewSnapshot(Binding{"x", Int(1)})),
	})
	r.StepCount = 1
	r.Completed = true

	data, err := json.Marshal(r)
	require.NoError(t, err)

	violations, err := ValidateTraceJSON(data)
	require.NoError(t, err)
	assert.Empty(t, violations)
}

func TestValidateTraceJSONRejectsMissingFields(t *testing.T) {
	violations, err := ValidateTraceJSON([]byte(`{"trace_id":"x"}`))
	require.NoError(t, err)
	assert.NotEmpty(t, violations)
}
