package directory

import (
	"context"
	"errors"
)

// ErrAuditNotFound is returned when an audit id does not resolve.
var ErrAuditNotFound = errors.New("directory: audit not found")

// ActionStatus is the workflow state of a corrective or preventive action,
// as exposed by the Action aggregate.
type ActionStatus string

const (
	// ActionPlanned indicates the action has been planned but not started.
	ActionPlanned ActionStatus = "planned"

	// ActionInProgress indicates the action is being worked on.
	ActionInProgress ActionStatus = "in_progress"

	// ActionOnHold indicates the action is paused.
	ActionOnHold ActionStatus = "on_hold"

	// ActionCompleted indicates the action is done.
	ActionCompleted ActionStatus = "completed"
)

// IsOpen reports whether the action still counts as open work.
func (s ActionStatus) IsOpen() bool {
	switch s {
	case ActionPlanned, ActionInProgress, ActionOnHold:
		return true
	default:
		return false
	}
}

// ActionSummary is the slice of an Action this core reads: its identity and
// workflow state.
type ActionSummary struct {
	// ID is the action's identifier.
	ID string `json:"id"`

	// Status is the action's workflow state.
	Status ActionStatus `json:"status"`
}

// AuditDirectory is the Audit aggregate as seen by the lifecycle engine.
type AuditDirectory interface {
	// TraceabilityChain returns the audit's traceability chain.
	// Returns ErrAuditNotFound if the audit id does not resolve.
	TraceabilityChain(ctx context.Context, auditID string) ([]string, error)

	// RecomputeFindingsCounters re-derives the audit's findings counters from
	// the findings that reference it and writes them back onto the audit.
	RecomputeFindingsCounters(ctx context.Context, auditID string) error
}

// ActionDirectory is the Action aggregate as seen by the lifecycle engine.
type ActionDirectory interface {
	// ListActiveByFinding returns summaries of the active actions that
	// reference the given finding.
	ListActiveByFinding(ctx context.Context, findingID string) ([]ActionSummary, error)
}
