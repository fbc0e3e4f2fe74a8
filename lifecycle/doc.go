// Package lifecycle implements the three-phase non-conformance workflow:
// Detection -> Treatment -> Control.
//
// The Service orchestrates creation (number allocation, traceability chain
// extension, persistence, source-audit counter sync), the named treatment and
// control transitions, and soft deletion. CounterSynchronizer recomputes a
// finding's derived action counters from the Action aggregate, and Analyzer
// flags recurrence of past issues within a configurable trailing window.
//
// Ordering within a single finding is the caller's responsibility: lifecycle
// operations on the same id must not be issued concurrently. Counter sync and
// recurrence writes are last-writer-wins, which is safe because both are
// idempotent recomputation, not accumulation.
package lifecycle
