package harness

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/roach88/stepwise/internal/ir"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string    // Assertion type for categorization
	Expected string    // Human-readable expected outcome
	Actual   string    // Human-readable actual outcome
	Trace    []ir.Step // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, s := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s:%d %s\n", s.Index, s.Event, s.LineNumber, s.SourceLine)
		}
	}

	return buf.String()
}

// eventRef renders a step as "event:line", the form event_order uses.
func eventRef(s ir.Step) string {
	return fmt.Sprintf("%s:%d", s.Event, s.LineNumber)
}

// parseEventRef splits "event:line". The line is optional; 0 matches any
// line.
func parseEventRef(ref string) (string, int, error) {
	event, lineText, hasLine := strings.Cut(ref, ":")
	if !validEvents[event] {
		return "", 0, fmt.Errorf("unknown event in %q", ref)
	}
	if !hasLine {
		return event, 0, nil
	}
	line, err := strconv.Atoi(lineText)
	if err != nil || line < 1 {
		return "", 0, fmt.Errorf("invalid line in %q", ref)
	}
	return event, line, nil
}

// stepAt returns the 1-based step n, or the last step when n is nil.
func stepAt(trace []ir.Step, n *int) (ir.Step, bool) {
	if n == nil {
		if len(trace) == 0 {
			return ir.Step{}, false
		}
		return trace[len(trace)-1], true
	}
	if *n < 1 || *n > len(trace) {
		return ir.Step{}, false
	}
	return trace[*n-1], true
}

func describeStep(n *int) string {
	if n == nil {
		return "last step"
	}
	return fmt.Sprintf("step %d", *n)
}

func missingStep(kind string, trace []ir.Step, n *int) error {
	return &AssertionError{
		Type:     kind,
		Expected: describeStep(n),
		Actual:   fmt.Sprintf("trace has %d steps", len(trace)),
		Trace:    trace,
	}
}

// assertStepEvent checks the event (and line, if given) of one step.
func assertStepEvent(trace []ir.Step, a Assertion) error {
	step, ok := stepAt(trace, a.Step)
	if !ok {
		return missingStep(AssertStepEvent, trace, a.Step)
	}
	if string(step.Event) == a.Event && (a.Line == 0 || step.LineNumber == a.Line) {
		return nil
	}

	want := a.Event
	if a.Line > 0 {
		want = fmt.Sprintf("%s:%d", a.Event, a.Line)
	}
	return &AssertionError{
		Type:     AssertStepEvent,
		Expected: fmt.Sprintf("%s is %s", describeStep(a.Step), want),
		Actual:   eventRef(step),
		Trace:    trace,
	}
}

// assertVariable checks a binding in the snapshot of one step. A missing
// value asserts None.
func assertVariable(trace []ir.Step, a Assertion) error {
	step, ok := stepAt(trace, a.Step)
	if !ok {
		return missingStep(AssertVariable, trace, a.Step)
	}
	got, ok := step.Variables.Get(a.Name)
	if !ok {
		return &AssertionError{
			Type:     AssertVariable,
			Expected: fmt.Sprintf("%s bound at %s", a.Name, describeStep(a.Step)),
			Actual:   fmt.Sprintf("not bound (visible: %s)", strings.Join(step.Variables.Names(), ", ")),
			Trace:    trace,
		}
	}
	if !valuesEqual(Plain(got), normalize(a.Value)) {
		return &AssertionError{
			Type:     AssertVariable,
			Expected: fmt.Sprintf("%s = %v", a.Name, a.Value),
			Actual:   fmt.Sprintf("%s = %v", a.Name, Plain(got)),
			Trace:    trace,
		}
	}
	return nil
}

// assertCreated checks that a step created a binding.
func assertCreated(trace []ir.Step, a Assertion) error {
	step, ok := stepAt(trace, a.Step)
	if !ok {
		return missingStep(AssertCreated, trace, a.Step)
	}
	got, ok := step.Changes.Created[a.Name]
	if !ok {
		created := make([]string, 0, len(step.Changes.Created))
		for name := range step.Changes.Created {
			created = append(created, name)
		}
		return &AssertionError{
			Type:     AssertCreated,
			Expected: fmt.Sprintf("%s created at %s", a.Name, describeStep(a.Step)),
			Actual:   fmt.Sprintf("created: %v", created),
			Trace:    trace,
		}
	}
	if a.Value != nil && !valuesEqual(Plain(got), normalize(a.Value)) {
		return &AssertionError{
			Type:     AssertCreated,
			Expected: fmt.Sprintf("%s created as %v", a.Name, a.Value),
			Actual:   fmt.Sprintf("%s created as %v", a.Name, Plain(got)),
			Trace:    trace,
		}
	}
	return nil
}

// assertEventCount checks that an event occurs exactly Count times.
func assertEventCount(trace []ir.Step, a Assertion) error {
	count := 0
	for _, s := range trace {
		if string(s.Event) == a.Event {
			count++
		}
	}
	if count == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertEventCount,
		Expected: fmt.Sprintf("%s occurs %d times", a.Event, a.Count),
		Actual:   fmt.Sprintf("occurs %d times", count),
		Trace:    trace,
	}
}

// assertEventOrder checks that the referenced events occur in order.
// Events don't need to be consecutive (intervening steps are allowed).
func assertEventOrder(trace []ir.Step, a Assertion) error {
	next := 0
	for _, s := range trace {
		if next == len(a.Events) {
			break
		}
		event, line, err := parseEventRef(a.Events[next])
		if err != nil {
			return err
		}
		if string(s.Event) == event && (line == 0 || s.LineNumber == line) {
			next++
		}
	}
	if next == len(a.Events) {
		return nil
	}

	actual := make([]string, len(trace))
	for i, s := range trace {
		actual[i] = eventRef(s)
	}
	return &AssertionError{
		Type:     AssertEventOrder,
		Expected: fmt.Sprintf("events in order %v", a.Events),
		Actual:   fmt.Sprintf("%v (missing %s)", actual, a.Events[next]),
		Trace:    trace,
	}
}

// assertControlFlow checks for a control-flow annotation on step Step, or
// on any step when Step is unset.
func assertControlFlow(trace []ir.Step, a Assertion) error {
	match := func(s ir.Step) bool {
		cf := s.ControlFlow
		if cf == nil || string(cf.Type) != a.Flow {
			return false
		}
		if a.Function != "" && cf.Function != a.Function {
			return false
		}
		if a.ExceptionType != "" && cf.ExceptionType != a.ExceptionType {
			return false
		}
		return true
	}

	if a.Step != nil {
		step, ok := stepAt(trace, a.Step)
		if !ok {
			return missingStep(AssertControlFlow, trace, a.Step)
		}
		if match(step) {
			return nil
		}
	} else {
		for _, s := range trace {
			if match(s) {
				return nil
			}
		}
	}

	where := "some step"
	if a.Step != nil {
		where = describeStep(a.Step)
	}
	want := a.Flow
	if a.Function != "" {
		want += " " + a.Function
	}
	if a.ExceptionType != "" {
		want += " " + a.ExceptionType
	}
	return &AssertionError{
		Type:     AssertControlFlow,
		Expected: fmt.Sprintf("%s annotated %s", where, want),
		Actual:   "no matching annotation",
		Trace:    trace,
	}
}

// checkExpect compares the terminal state of r with e.
func checkExpect(r *ir.TraceResult, e Expect) []string {
	var errs []string
	if e.Status != "" && r.Status() != e.Status {
		errs = append(errs, fmt.Sprintf("expect.status: expected %s, got %s", e.Status, r.Status()))
	}
	if e.StepCount != nil && r.StepCount != *e.StepCount {
		errs = append(errs, fmt.Sprintf("expect.step_count: expected %d, got %d", *e.StepCount, r.StepCount))
	}

	if e.ErrorKind != "" || e.ErrorMessage != "" || e.ErrorLine != 0 {
		switch {
		case r.Error == nil:
			errs = append(errs, "expect.error: expected an error, trace has none")
		default:
			if e.ErrorKind != "" && r.Error.Kind != e.ErrorKind {
				errs = append(errs, fmt.Sprintf("expect.error_kind: expected %s, got %s", e.ErrorKind, r.Error.Kind))
			}
			if e.ErrorMessage != "" && r.Error.Message != e.ErrorMessage {
				errs = append(errs, fmt.Sprintf("expect.error_message: expected %q, got %q", e.ErrorMessage, r.Error.Message))
			}
			if e.ErrorLine != 0 && r.Error.Line != e.ErrorLine {
				errs = append(errs, fmt.Sprintf("expect.error_line: expected %d, got %d", e.ErrorLine, r.Error.Line))
			}
		}
	}

	if e.Stdout != nil && r.Stdout != *e.Stdout {
		errs = append(errs, fmt.Sprintf("expect.stdout: expected %q, got %q", *e.Stdout, r.Stdout))
	}
	return errs
}

// Plain converts a typed value to the plain Go form a YAML document
// decodes to: nil, bool, int64, float64, string, []any, map[string]any.
// Opaque values become their repr text.
func Plain(v ir.TypedValue) any {
	switch v.Kind {
	case ir.KindNone:
		return nil
	case ir.KindSequence, ir.KindSet:
		items := v.Items()
		out := make([]any, len(items))
		for i, item := range items {
			out[i] = Plain(item)
		}
		return out
	case ir.KindMapping:
		entries := v.Entries()
		out := make(map[string]any, len(entries))
		for _, e := range entries {
			out[e.Key] = Plain(e.Value)
		}
		return out
	default:
		return v.Value
	}
}

// normalize widens YAML-decoded numbers so they compare with Plain output.
func normalize(v any) any {
	switch x := v.(type) {
	case int:
		return int64(x)
	case uint64:
		return int64(x)
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = normalize(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, item := range x {
			out[k] = normalize(item)
		}
		return out
	default:
		return v
	}
}

// valuesEqual compares two plain values for equality.
// Handles nested maps and slices.
func valuesEqual(actual, expected any) bool {
	if actual == nil && expected == nil {
		return true
	}
	if actual == nil || expected == nil {
		return false
	}
	return reflect.DeepEqual(actual, expected)
}

// EvaluateAssertions evaluates all assertions against the trace.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(trace []ir.Step, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertStepEvent:
			err = assertStepEvent(trace, assertion)
		case AssertVariable:
			err = assertVariable(trace, assertion)
		case AssertCreated:
			err = assertCreated(trace, assertion)
		case AssertEventCount:
			err = assertEventCount(trace, assertion)
		case AssertEventOrder:
			err = assertEventOrder(trace, assertion)
		case AssertControlFlow:
			err = assertControlFlow(trace, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
