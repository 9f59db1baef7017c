// Package engine traces scripts: it compiles a source, runs it under the
// governor's bounds and records one Step per observation.
//
// ARCHITECTURE:
//
//	Engine.Trace
//	  compiler.Compile ──(SyntaxError)──> result with no steps
//	  Governor.WithBounds
//	    ├─ context deadline with TimeoutError cause (soft stop)
//	    ├─ watchdog at deadline + Grace (hard stop, Tracer.Abandon)
//	    └─ goroutine: interp.Run with the Tracer as Hook and stdout
//	         Tracer.observe: StepBudget.Take, Serializer.Snapshot, ir.Diff
//	  Tracer.Finish ──> ir.TraceResult
//
// One execution is one goroutine. Nothing is shared between executions
// except the read-only capability catalog, so concurrent Trace calls on
// one Engine are independent.
//
// TERMINAL STATES:
//
//   - completed: the script ran to its end.
//   - truncated: the step budget refused a step. No error is reported.
//   - timed out: the deadline passed. Error kind TimeoutError.
//   - failed: an exception escaped the module, or the run halted for
//     another reason (RuntimeError).
//
// In every case the steps recorded before the stop are kept.
//
// CRITICAL PATTERNS:
//
// Step indices come from a per-trace Clock and are exactly 1..StepCount.
//
// Snapshots are owned copies: the serializer converts live values into
// ir.TypedValue trees, so later mutation of a list cannot rewrite an
// earlier step.
//
// Budget and deadline failures are halts, not exceptions. A script cannot
// catch them and no finally block runs while they unwind.
package engine
