package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/stepwise/internal/ir"
)

func intPtr(n int) *int { return &n }

// sampleTrace mirrors a traced call of add(1, 2) assigned to x.
func sampleTrace() []ir.Step {
	argsSnap := ir.NewSnapshot(
		ir.Binding{Name: "a", Value: ir.Int(1)},
		ir.Binding{Name: "b", Value: ir.Int(2)},
	)
	final := ir.NewSnapshot(
		ir.Binding{Name: "x", Value: ir.Int(3)},
		ir.Binding{Name: "xs", Value: ir.Sequence("list", []ir.TypedValue{ir.Int(1), ir.String("a")})},
	)
	steps := []ir.Step{
		{Index: 1, Event: ir.EventLine, LineNumber: 1, SourceLine: "def add(a, b):"},
		{Index: 2, Event: ir.EventCall, LineNumber: 1, Variables: argsSnap, ControlFlow: ir.FunctionCall("add", 1)},
		{Index: 3, Event: ir.EventLine, LineNumber: 2, Variables: argsSnap, ControlFlow: ir.ReturnStatement("return a + b")},
		{Index: 4, Event: ir.EventReturn, LineNumber: 2, Variables: argsSnap, ControlFlow: ir.FunctionReturn("add", ir.Int(3))},
		{Index: 5, Event: ir.EventLine, LineNumber: 3, Variables: final},
	}
	var prev ir.Snapshot
	for i := range steps {
		steps[i].Changes = ir.Diff(prev, steps[i].Variables)
		prev = steps[i].Variables
	}
	return steps
}

func TestEvaluateAssertions_Pass(t *testing.T) {
	assertions := []Assertion{
		{Type: AssertStepEvent, Step: intPtr(2), Event: "call", Line: 1},
		{Type: AssertStepEvent, Step: intPtr(4), Event: "return"},
		{Type: AssertVariable, Name: "x", Value: 3},
		{Type: AssertVariable, Step: intPtr(2), Name: "b", Value: 2},
		{Type: AssertVariable, Name: "xs", Value: []any{1, "a"}},
		{Type: AssertCreated, Step: intPtr(2), Name: "a"},
		{Type: AssertCreated, Step: intPtr(5), Name: "x", Value: 3},
		{Type: AssertEventCount, Event: "line", Count: 3},
		{Type: AssertEventCount, Event: "exception", Count: 0},
		{Type: AssertEventOrder, Events: []string{"call:1", "return", "line:3"}},
		{Type: AssertControlFlow, Flow: "function_call", Function: "add"},
		{Type: AssertControlFlow, Step: intPtr(3), Flow: "return_statement"},
	}

	errs := EvaluateAssertions(sampleTrace(), assertions)
	assert.Empty(t, errs)
}

func TestEvaluateAssertions_Failures(t *testing.T) {
	tests := []struct {
		name      string
		assertion Assertion
		contains  string
	}{
		{"wrong event", Assertion{Type: AssertStepEvent, Step: intPtr(1), Event: "call"}, "Actual: line:1"},
		{"wrong line", Assertion{Type: AssertStepEvent, Step: intPtr(1), Event: "line", Line: 9}, "step 1 is line:9"},
		{"step out of range", Assertion{Type: AssertStepEvent, Step: intPtr(9), Event: "line"}, "trace has 5 steps"},
		{"unbound variable", Assertion{Type: AssertVariable, Name: "zz"}, "not bound (visible: x, xs)"},
		{"wrong value", Assertion{Type: AssertVariable, Name: "x", Value: 4}, "x = 4"},
		{"none expected", Assertion{Type: AssertVariable, Name: "x"}, "x = <nil>"},
		{"not created", Assertion{Type: AssertCreated, Step: intPtr(3), Name: "a"}, "a created at step 3"},
		{"created with other value", Assertion{Type: AssertCreated, Step: intPtr(5), Name: "x", Value: 1}, "x created as 1"},
		{"wrong count", Assertion{Type: AssertEventCount, Event: "call", Count: 2}, "occurs 1 times"},
		{"out of order", Assertion{Type: AssertEventOrder, Events: []string{"return", "call"}}, "missing call"},
		{"no flow", Assertion{Type: AssertControlFlow, Flow: "loop"}, "some step annotated loop"},
		{"wrong function", Assertion{Type: AssertControlFlow, Step: intPtr(2), Flow: "function_call", Function: "sub"}, "function_call sub"},
		{"unknown type", Assertion{Type: "final_state"}, "unknown assertion type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := EvaluateAssertions(sampleTrace(), []Assertion{tt.assertion})
			require.Len(t, errs, 1)
			assert.Contains(t, errs[0], tt.contains)
		})
	}
}

func TestAssertionError_Format(t *testing.T) {
	err := &AssertionError{
		Type:     AssertEventCount,
		Expected: "line occurs 2 times",
		Actual:   "occurs 1 times",
		Trace:    sampleTrace()[:1],
	}
	msg := err.Error()
	assert.Contains(t, msg, "Assertion failed: event_count")
	assert.Contains(t, msg, "Expected: line occurs 2 times")
	assert.Contains(t, msg, "Actual: occurs 1 times")
	assert.Contains(t, msg, "[1] line:1 def add(a, b):")
}

func TestPlain(t *testing.T) {
	tests := []struct {
		name string
		in   ir.TypedValue
		want any
	}{
		{"none", ir.None(), nil},
		{"bool", ir.Bool(true), true},
		{"int", ir.Int(7), int64(7)},
		{"float", ir.Float(1.5), 1.5},
		{"string", ir.String("hi"), "hi"},
		{"tuple", ir.Sequence("tuple", []ir.TypedValue{ir.Int(1), ir.None()}), []any{int64(1), nil}},
		{"set", ir.Set("set", []ir.TypedValue{ir.Int(3), ir.Int(1)}), []any{int64(3), int64(1)}},
		{"mapping", ir.Mapping("dict", []ir.MapEntry{{Key: "k", Value: ir.Bool(false)}}), map[string]any{"k": false}},
		{"opaque", ir.Opaque("function", "<function f>"), "<function f>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Plain(tt.in))
		})
	}
}

func TestNormalize(t *testing.T) {
	in := map[string]any{"a": []any{1, 2.5, "s"}, "b": uint64(4)}
	want := map[string]any{"a": []any{int64(1), 2.5, "s"}, "b": int64(4)}
	assert.Equal(t, want, normalize(in))
}

func TestCheckExpect(t *testing.T) {
	r := ir.NewTraceResult("t", ir.NewScript("1/0"))
	r.StepCount = 2
	r.Error = &ir.ExecutionError{Kind: "ZeroDivisionError", Message: "division by zero", Line: 1}
	r.Stdout = "hi\n"

	empty := ""
	good := "hi\n"
	tests := []struct {
		name   string
		expect Expect
		errs   []string
	}{
		{"all match", Expect{Status: "failed", StepCount: intPtr(2), ErrorKind: "ZeroDivisionError", ErrorMessage: "division by zero", ErrorLine: 1, Stdout: &good}, nil},
		{"nothing checked", Expect{}, nil},
		{"status", Expect{Status: "completed"}, []string{"expect.status: expected completed, got failed"}},
		{"step count", Expect{StepCount: intPtr(3)}, []string{"expect.step_count: expected 3, got 2"}},
		{"error kind and line", Expect{ErrorKind: "ValueError", ErrorLine: 2}, []string{
			"expect.error_kind: expected ValueError, got ZeroDivisionError",
			"expect.error_line: expected 2, got 1",
		}},
		{"stdout", Expect{Stdout: &empty}, []string{`expect.stdout: expected "", got "hi\n"`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.errs, checkExpect(r, tt.expect))
		})
	}

	ok := ir.NewTraceResult("t", ir.NewScript("x = 1"))
	ok.Completed = true
	assert.Equal(t, []string{"expect.error: expected an error, trace has none"},
		checkExpect(ok, Expect{ErrorKind: "ValueError"}))
}
