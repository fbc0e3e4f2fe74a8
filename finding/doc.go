// Package finding defines the Finding aggregate: a recorded non-conformance,
// observation, or issue, independent of where it was detected.
//
// A Finding moves through three phases (detection, treatment, control) and
// carries its own traceability chain, derived action counters, and recurrence
// markers. The package provides:
//
//   - The Finding type with validation and narrow, named mutators
//   - String-typed enums for source, status, phase, and severity
//   - The traceability chain builder (pure, no I/O)
//   - The Repository interface consumed by the lifecycle service
//
// Findings own their fields exclusively. They hold only back-references (ids)
// to Audit and Action aggregates, never the aggregates themselves.
package finding
