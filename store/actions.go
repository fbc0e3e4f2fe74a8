package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/halcyon-qm/sdk/directory"
)

// CollectionActions is the store collection holding Action documents.
const CollectionActions = "actions"

// ActionAdapter implements directory.ActionDirectory over loosely-typed
// action documents in the store. Only the id and status fields are read.
type ActionAdapter struct {
	store Store
}

// NewActionAdapter creates an action directory over the given store.
func NewActionAdapter(s Store) *ActionAdapter {
	return &ActionAdapter{store: s}
}

// ListActiveByFinding returns summaries of the active actions referencing the
// given finding.
func (a *ActionAdapter) ListActiveByFinding(ctx context.Context, findingID string) ([]directory.ActionSummary, error) {
	docs, err := a.store.Query(ctx, CollectionActions, Query{
		Predicates: []Predicate{
			{Field: "findingId", Op: OpEq, Value: findingID},
			{Field: "isActive", Op: OpEq, Value: true},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query actions for finding %s: %w", findingID, err)
	}

	summaries := make([]directory.ActionSummary, 0, len(docs))
	for _, data := range docs {
		var s directory.ActionSummary
		if err := json.Unmarshal(data, &s); err != nil {
			continue
		}
		summaries = append(summaries, s)
	}
	return summaries, nil
}
