package lifecycle

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/halcyon-qm/sdk/directory"
	"github.com/halcyon-qm/sdk/finding"
)

// CounterSynchronizer recomputes a finding's derived action counters from the
// Action aggregate and writes them back.
//
// The recompute always starts from the full set of active actions referencing
// the finding — never increment/decrement — so redundant calls are harmless
// and the counters invariant (total == open + completed) holds by
// construction. The Action subsystem triggers it whenever an action's status
// or finding link changes.
type CounterSynchronizer struct {
	repo    finding.Repository
	actions directory.ActionDirectory
	logger  *slog.Logger
}

// NewCounterSynchronizer creates a counter synchronizer.
func NewCounterSynchronizer(repo finding.Repository, actions directory.ActionDirectory, logger *slog.Logger) *CounterSynchronizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &CounterSynchronizer{repo: repo, actions: actions, logger: logger}
}

// SyncActionCounters re-derives actionsCount, openActionsCount, and
// completedActionsCount for the finding and persists them. Idempotent: given
// the same underlying action set, repeated calls produce identical values.
// The actor is whoever triggered the sync, typically the user whose action
// change made the counters stale.
func (c *CounterSynchronizer) SyncActionCounters(ctx context.Context, findingID, actorID string) (*finding.Finding, error) {
	summaries, err := c.actions.ListActiveByFinding(ctx, findingID)
	if err != nil {
		return nil, fmt.Errorf("sync action counters for finding %s: %w", findingID, err)
	}

	var open, completed int
	for _, a := range summaries {
		switch {
		case a.Status == directory.ActionCompleted:
			completed++
		case a.Status.IsOpen():
			open++
		}
	}
	total := open + completed

	f, err := c.repo.Update(ctx, findingID, func(f *finding.Finding) error {
		f.SetActionCounters(total, open, completed, actorID)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("sync action counters for finding %s: %w", findingID, err)
	}

	c.logger.Debug("action counters synced",
		"findingId", findingID,
		"total", total,
		"open", open,
		"completed", completed)
	return f, nil
}
