package ir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTraceResultNeverNilSlices(t *testing.T) {
	r := NewTraceResult("id", NewScript(""))

	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"steps":[]`)
	assert.Contains(t, string(data), `"source_lines":[]`)
	assert.Contains(t, string(data), `"error":null`)
}

func TestStepJSONKeys(t *testing.T) {
	step := Step{
		Index:       2,
		Event:       EventReturn,
		LineNumber:  3,
		SourceLine:  "    return n",
		ControlFlow: FunctionReturn("f", Int(4)),
		Changes:     Diff(Snapshot{}, Snapshot{}),
	}

	data, err := json.Marshal(step)
	require.NoError(t, err)

	var generic map[string]any
	require.NoError(t, json.Unmarshal(data, &generic))
	for _, key := range []string{"step", "event", "line_number", "source_line", "variables", "changes", "control_flow"} {
		assert.Contains(t, generic, key)
	}
	assert.NotContains(t, generic, "output", "empty output is omitted")

	cf := generic["control_flow"].(map[string]any)
	assert.Equal(t, "function_return", cf["type"])
	assert.Equal(t, "f", cf["function"])
}

func TestTraceResultRoundTrip(t *testing.T) {
	r := NewTraceResult("trace-1", NewScript("x = 1\n1/0"))
	r.Steps = append(r.Steps,
		Step{Index: 1, Event: EventLine, LineNumber: 1, SourceLine: "x = 1",
			Variables: NewSnapshot(Binding{"x", Int(1)}),
			Changes:   Diff(Snapshot{}, NewSnapshot(Binding{"x", Int(1)}))},
		Step{Index: 2, Event: EventException, LineNumber: 2, SourceLine: "1/0",
			Variables:   NewSnapshot(Binding{"x", Int(1)}),
			Changes:     Diff(NewSnapshot(Binding{"x", Int(1)}), NewSnapshot(Binding{"x", Int(1)})),
			ControlFlow: Exception("ZeroDivisionError", "division by zero")},
	)
	r.StepCount = 2
	r.Error = &ExecutionError{Kind: "ZeroDivisionError", Message: "division by zero", Line: 2}

	data, err := json.Marshal(r)
	require.NoError(t, err)

	var decoded TraceResult
	require.NoError(t, json.Unmarshal(data, &decoded))

	again, err := json.Marshal(&decoded)
	require.NoError(t, err)
	assert.JSONEq(t, string(data), string(again))
	assert.Equal(t, "failed", decoded.Status())
}

func TestTraceStatus(t *testing.T) {
	assert.Equal(t, "completed", (&TraceResult{Completed: true}).Status())
	assert.Equal(t, "truncated", (&TraceResult{Truncated: true}).Status())
	assert.Equal(t, "timed_out", (&TraceResult{Error: &ExecutionError{Kind: KindTimeoutError}}).Status())
}

func TestExecutionErrorFormat(t *testing.T) {
	err := &ExecutionError{Kind: "NameError", Message: "name 'y' is not defined", Line: 4}
	assert.Equal(t, "NameError: name 'y' is not defined (line 4)", err.Error())

	err = &ExecutionError{Kind: KindTimeoutError, Message: "too slow"}
	assert.Equal(t, "TimeoutError: too slow", err.Error())
}

func TestParseDepth(t *testing.T) {
	d, err := ParseDepth("")
	require.NoError(t, err)
	assert.Equal(t, DepthBeginner, d)

	d, err = ParseDepth("Advanced")
	require.NoError(t, err)
	assert.Equal(t, DepthAdvanced, d)

	_, err = ParseDepth("expert")
	require.Error(t, err)
}
