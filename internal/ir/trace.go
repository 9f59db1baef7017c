package ir

import (
	"fmt"
	"strings"
)

// Event names the kind of observation a Step records.
type Event string

const (
	EventCall      Event = "call"
	EventLine      Event = "line"
	EventReturn    Event = "return"
	EventException Event = "exception"
)

// FlowType classifies the control-flow meaning of a step.
type FlowType string

const (
	FlowFunctionCall    FlowType = "function_call"
	FlowFunctionReturn  FlowType = "function_return"
	FlowConditional     FlowType = "conditional"
	FlowLoop            FlowType = "loop"
	FlowReturnStatement FlowType = "return_statement"
	FlowException       FlowType = "exception"
)

// ControlFlow is the control-flow annotation attached to a step. Only the
// fields relevant to Type are populated.
type ControlFlow struct {
	Type             FlowType    `json:"type" jsonschema:"enum=function_call,enum=function_return,enum=conditional,enum=loop,enum=return_statement,enum=exception"`
	Function         string      `json:"function,omitempty"`
	CallDepth        int         `json:"call_depth,omitempty"`
	ReturnValue      *TypedValue `json:"return_value,omitempty"`
	Expression       string      `json:"expression,omitempty"`
	ExceptionType    string      `json:"exception_type,omitempty"`
	ExceptionMessage string      `json:"exception_message,omitempty"`
}

// FunctionCall annotates entry into a user function at the given depth.
func FunctionCall(function string, depth int) *ControlFlow {
	return &ControlFlow{Type: FlowFunctionCall, Function: function, CallDepth: depth}
}

// FunctionReturn annotates exit from a user function.
func FunctionReturn(function string, v TypedValue) *ControlFlow {
	return &ControlFlow{Type: FlowFunctionReturn, Function: function, ReturnValue: &v}
}

// Conditional annotates an if/elif test.
func Conditional(expr string) *ControlFlow {
	return &ControlFlow{Type: FlowConditional, Expression: expr}
}

// Loop annotates a for/while header.
func Loop(expr string) *ControlFlow {
	return &ControlFlow{Type: FlowLoop, Expression: expr}
}

// ReturnStatement annotates a return statement line.
func ReturnStatement(expr string) *ControlFlow {
	return &ControlFlow{Type: FlowReturnStatement, Expression: expr}
}

// Exception annotates a raised exception.
func Exception(typeName, message string) *ControlFlow {
	return &ControlFlow{Type: FlowException, ExceptionType: typeName, ExceptionMessage: message}
}

// Step is one observation of the running script. Steps are immutable once
// appended to a trace.
type Step struct {
	Index       int          `json:"step"`
	Event       Event        `json:"event" jsonschema:"enum=call,enum=line,enum=return,enum=exception"`
	LineNumber  int          `json:"line_number"`
	SourceLine  string       `json:"source_line"`
	Variables   Snapshot     `json:"variables"`
	Changes     Change       `json:"changes"`
	ControlFlow *ControlFlow `json:"control_flow" jsonschema:"nullable"`
	Output      string       `json:"output,omitempty"`
}

// TraceResult is the complete, finalized record of one execution.
type TraceResult struct {
	TraceID     string          `json:"trace_id"`
	Source      string          `json:"source"`
	SourceLines []string        `json:"source_lines"`
	Steps       []Step          `json:"steps"`
	StepCount   int             `json:"step_count"`
	Completed   bool            `json:"completed"`
	Error       *ExecutionError `json:"error" jsonschema:"nullable"`
	Truncated   bool            `json:"truncated"`
	DurationMs  int64           `json:"duration_ms"`
	Stdout      string          `json:"stdout"`
	Seed        int64           `json:"seed"`
}

// NewTraceResult returns an empty result for script with non-nil slices.
func NewTraceResult(traceID string, script Script) *TraceResult {
	lines := script.Lines
	if lines == nil {
		lines = []string{}
	}
	return &TraceResult{
		TraceID:     traceID,
		Source:      script.Source,
		SourceLines: lines,
		Steps:       []Step{},
	}
}

// Status summarizes the terminal state in one word.
func (r *TraceResult) Status() string {
	switch {
	case r.Completed:
		return "completed"
	case r.Truncated:
		return "truncated"
	case r.Error != nil && r.Error.Kind == KindTimeoutError:
		return "timed_out"
	case r.Error != nil:
		return "failed"
	default:
		return "incomplete"
	}
}

// Error kinds produced outside the script's own exception classes.
const (
	KindSyntaxError  = "SyntaxError"
	KindTimeoutError = "TimeoutError"
	KindRuntimeError = "RuntimeError"
)

// ExecutionError describes why a trace did not complete.
type ExecutionError struct {
	Kind    string `json:"type"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e *ExecutionError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s: %s (line %d)", e.Kind, e.Message, e.Line)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Depth is the explanation depth requested by the downstream explainer.
// It is carried as metadata only.
type Depth string

const (
	DepthBeginner     Depth = "beginner"
	DepthIntermediate Depth = "intermediate"
	DepthAdvanced     Depth = "advanced"
)

// ParseDepth validates an explanation depth. Empty selects beginner.
func ParseDepth(s string) (Depth, error) {
	switch d := Depth(strings.ToLower(strings.TrimSpace(s))); d {
	case "":
		return DepthBeginner, nil
	case DepthBeginner, DepthIntermediate, DepthAdvanced:
		return d, nil
	default:
		return "", fmt.Errorf("invalid depth %q: must be beginner, intermediate or advanced", s)
	}
}
