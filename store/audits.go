package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/halcyon-qm/sdk/directory"
	"github.com/halcyon-qm/sdk/finding"
)

// CollectionAudits is the store collection holding Audit documents.
const CollectionAudits = "audits"

// AuditAdapter implements directory.AuditDirectory over loosely-typed audit
// documents in the store. It reads only the fields this core needs and writes
// only the derived findings counters; everything else about an audit belongs
// to the Audit subsystem.
type AuditAdapter struct {
	store Store
}

// NewAuditAdapter creates an audit directory over the given store.
func NewAuditAdapter(s Store) *AuditAdapter {
	return &AuditAdapter{store: s}
}

// TraceabilityChain returns the audit's traceability chain.
func (a *AuditAdapter) TraceabilityChain(ctx context.Context, auditID string) ([]string, error) {
	data, err := a.store.Get(ctx, CollectionAudits, auditID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", auditID, directory.ErrAuditNotFound)
		}
		return nil, err
	}

	var doc struct {
		TraceabilityChain []string `json:"traceabilityChain"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode audit %s: %w", auditID, err)
	}
	return doc.TraceabilityChain, nil
}

// RecomputeFindingsCounters re-derives the audit's findings counters from the
// active findings referencing it and writes them back onto the audit document.
// Full recompute, not increment: calling it redundantly always converges on
// the same values.
func (a *AuditAdapter) RecomputeFindingsCounters(ctx context.Context, auditID string) error {
	docs, err := a.store.Query(ctx, CollectionFindings, Query{
		Predicates: []Predicate{
			{Field: "source", Op: OpEq, Value: string(finding.SourceAudit)},
			{Field: "sourceId", Op: OpEq, Value: auditID},
			{Field: "isActive", Op: OpEq, Value: true},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to query findings for audit %s: %w", auditID, err)
	}

	var total, open, closed int
	for _, data := range docs {
		var f struct {
			Status string `json:"status"`
		}
		if err := json.Unmarshal(data, &f); err != nil {
			continue
		}
		total++
		if f.Status == string(finding.StatusClosed) {
			closed++
		} else {
			open++
		}
	}

	err = a.store.Update(ctx, CollectionAudits, auditID, map[string]any{
		"findingsCount":       total,
		"openFindingsCount":   open,
		"closedFindingsCount": closed,
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return fmt.Errorf("%s: %w", auditID, directory.ErrAuditNotFound)
		}
		return fmt.Errorf("failed to update audit %s counters: %w", auditID, err)
	}
	return nil
}
