// Package ir defines the trace data model shared by every stepwise package.
//
// This package contains value types only. All other internal packages
// import ir; ir imports nothing internal, so the trace format stays the
// foundational layer with no circular dependencies.
//
// Key design constraints:
//   - A TypedValue is a bounded, JSON-safe copy of a script value; it never
//     references live interpreter state
//   - Snapshots and mapping payloads preserve insertion order on the wire
//   - All JSON tags use snake_case
//   - Step indices are assigned by a logical counter, never by wall clock
package ir
