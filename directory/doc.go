// Package directory defines the narrow interfaces through which the finding
// lifecycle engine reaches the Audit and Action aggregates.
//
// Those aggregates are owned and lifecycle-managed elsewhere; this core only
// ever reads an audit's traceability chain, asks an audit to recompute its
// findings counters, and lists the active actions linked to a finding. The
// interfaces expose exactly those operations and nothing of the aggregates'
// full shape.
package directory
