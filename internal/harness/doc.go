// Package harness runs trace scenarios: YAML files that name a script,
// the bounds to trace it under, and what the trace must look like.
//
// # Scenario Format
//
//	name: zero_division
//	description: "Division by zero stops the script"
//	source: |
//	  x = 1
//	  y = x / 0
//	seed: 1
//	max_steps: 100
//	expect:
//	  status: failed
//	  error_kind: ZeroDivisionError
//	  stdout: ""
//	assertions:
//	  - type: created
//	    step: 1
//	    name: x
//	    value: 1
//	  - type: event_order
//	    events: ["line:1", "exception:2"]
//
// source_file may replace source; it is read relative to the scenario.
//
// # Assertion Types
//
//   - step_event: step N has the given event (and line)
//   - variable: a name is bound to a value at step N, or at the last step
//   - created: a name is created at step N
//   - event_count: an event occurs exactly N times
//   - event_order: "event:line" references occur in order, not necessarily
//     adjacent
//   - control_flow: a step carries a control-flow annotation
//
// Values compare in plain form: YAML scalars, lists for sequences and
// sets, maps for mappings, repr text for opaque values.
//
// # Deterministic Testing
//
// Every scenario runs with a fixed trace ID (scenario.trace_id or
// DefaultTraceID), the scenario seed for the random module, a
// testutil.DeterministicClock for archive timestamps, and a fresh
// in-memory SQLite archive. Besides the expect clause and the assertions,
// each run checks that the trace survives the archive unchanged and that a
// replay reproduces it. Golden snapshots zero the wall-clock duration, so
// the same scenario always produces byte-identical golden output.
package harness
