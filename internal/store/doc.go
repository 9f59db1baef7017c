// Package store provides the SQLite-backed trace archive.
//
// Each row holds one finalized TraceResult as canonical JSON together with
// the columns needed to list and filter history without decoding it: the
// source hash, the trace hash, the status, the step count and the seed.
//
// # Critical Patterns
//
// Append-only: a trace is written once. Saving the same trace ID again
// is a no-op, so retrying a failed CLI invocation cannot duplicate rows.
//
// Logical order: history is ordered by the seq column, never by
// created_at, which is informational only.
//
// Content addressing: source_hash groups every run of the same program;
// trace_hash (ir.TraceHash) lets replay compare runs without decoding.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
