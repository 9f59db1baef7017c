package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultTraceID is stamped on scenario traces that do not name their own
// trace ID, so golden files compare byte for byte.
const DefaultTraceID = "test-trace-default"

// Scenario defines a trace test scenario: a script, the bounds to run it
// under, and what its trace must look like.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Source is the script to trace. Exactly one of Source and SourceFile
	// is set.
	Source string `yaml:"source,omitempty"`

	// SourceFile is a script path, relative to the scenario file.
	SourceFile string `yaml:"source_file,omitempty"`

	// Seed fixes the random module so traces are reproducible.
	Seed int64 `yaml:"seed,omitempty"`

	// MaxSteps overrides the engine step cap when positive.
	MaxSteps int `yaml:"max_steps,omitempty"`

	// Timeout overrides the engine wall-clock limit when positive
	// (YAML duration such as "2s").
	Timeout time.Duration `yaml:"timeout,omitempty"`

	// TraceID is stamped on the trace. Defaults to DefaultTraceID.
	TraceID string `yaml:"trace_id,omitempty"`

	// Expect checks the terminal state of the trace.
	Expect Expect `yaml:"expect"`

	// Assertions check individual steps.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Expect specifies the expected terminal state. Zero fields are not
// checked.
type Expect struct {
	// Status is one of completed, truncated, timed_out or failed.
	Status string `yaml:"status,omitempty"`

	StepCount *int `yaml:"step_count,omitempty"`

	// ErrorKind is the error type name (ZeroDivisionError, SyntaxError, ...).
	ErrorKind string `yaml:"error_kind,omitempty"`

	ErrorMessage string `yaml:"error_message,omitempty"`

	ErrorLine int `yaml:"error_line,omitempty"`

	// Stdout is the complete captured output. A pointer so that "" can be
	// asserted.
	Stdout *string `yaml:"stdout,omitempty"`
}

// Assertion validates one property of the trace.
type Assertion struct {
	// Type specifies the assertion type:
	// - "step_event": step Step has Event (and Line, if set)
	// - "variable": Name is bound to Value at step Step (default: last step)
	// - "created": Name is created at step Step (with Value, if set)
	// - "event_count": Event occurs exactly Count times
	// - "event_order": Events ("event:line") occur in order
	// - "control_flow": a step (or step Step) carries the Flow annotation
	Type string `yaml:"type"`

	// Step is the 1-based step index.
	Step *int `yaml:"step,omitempty"`

	Event string `yaml:"event,omitempty"`

	Line int `yaml:"line,omitempty"`

	Name string `yaml:"name,omitempty"`

	// Value is compared against the plain form of the traced value:
	// lists for sequences and sets, maps for mappings, repr text for
	// opaque values.
	Value any `yaml:"value,omitempty"`

	Count int `yaml:"count,omitempty"`

	Events []string `yaml:"events,omitempty"`

	// Flow is the control-flow type (function_call, loop, exception, ...).
	Flow string `yaml:"flow,omitempty"`

	Function string `yaml:"function,omitempty"`

	ExceptionType string `yaml:"exception_type,omitempty"`
}

// Assertion type constants.
const (
	AssertStepEvent   = "step_event"
	AssertVariable    = "variable"
	AssertCreated     = "created"
	AssertEventCount  = "event_count"
	AssertEventOrder  = "event_order"
	AssertControlFlow = "control_flow"
)

var validStatuses = map[string]bool{
	"completed": true,
	"truncated": true,
	"timed_out": true,
	"failed":    true,
}

var validEvents = map[string]bool{
	"call":      true,
	"line":      true,
	"return":    true,
	"exception": true,
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
// A source_file is read relative to the scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	if scenario.SourceFile != "" {
		srcPath := scenario.SourceFile
		if !filepath.IsAbs(srcPath) {
			srcPath = filepath.Join(filepath.Dir(path), srcPath)
		}
		src, err := os.ReadFile(srcPath)
		if err != nil {
			return nil, fmt.Errorf("invalid scenario: source file: %w", err)
		}
		scenario.Source = string(src)
	}

	return scenario, nil
}

// ParseScenario parses scenario YAML. A source_file is left unresolved.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	switch {
	case s.Source == "" && s.SourceFile == "":
		return fmt.Errorf("one of source or source_file is required")
	case s.Source != "" && s.SourceFile != "":
		return fmt.Errorf("source and source_file are mutually exclusive")
	}

	if s.MaxSteps < 0 {
		return fmt.Errorf("max_steps must be non-negative, got %d", s.MaxSteps)
	}
	if s.Timeout < 0 {
		return fmt.Errorf("timeout must be non-negative, got %s", s.Timeout)
	}

	if s.Expect.Status != "" && !validStatuses[s.Expect.Status] {
		return fmt.Errorf("expect.status %q is not one of completed, truncated, timed_out, failed", s.Expect.Status)
	}
	if s.Expect.StepCount != nil && *s.Expect.StepCount < 0 {
		return fmt.Errorf("expect.step_count must be non-negative")
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}
	if a.Step != nil && *a.Step < 1 {
		return fmt.Errorf("assertions[%d]: step must be 1 or greater", index)
	}
	if a.Event != "" && !validEvents[a.Event] {
		return fmt.Errorf("assertions[%d]: unknown event %q", index, a.Event)
	}

	switch a.Type {
	case AssertStepEvent:
		if a.Step == nil || a.Event == "" {
			return fmt.Errorf("assertions[%d]: step and event are required for step_event", index)
		}
	case AssertVariable:
		if a.Name == "" {
			return fmt.Errorf("assertions[%d]: name is required for variable", index)
		}
	case AssertCreated:
		if a.Step == nil || a.Name == "" {
			return fmt.Errorf("assertions[%d]: step and name are required for created", index)
		}
	case AssertEventCount:
		if a.Event == "" {
			return fmt.Errorf("assertions[%d]: event is required for event_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for event_count", index)
		}
	case AssertEventOrder:
		if len(a.Events) == 0 {
			return fmt.Errorf("assertions[%d]: events list is required for event_order", index)
		}
		for _, ev := range a.Events {
			if _, _, err := parseEventRef(ev); err != nil {
				return fmt.Errorf("assertions[%d]: %w", index, err)
			}
		}
	case AssertControlFlow:
		if a.Flow == "" {
			return fmt.Errorf("assertions[%d]: flow is required for control_flow", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
