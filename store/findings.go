package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/halcyon-qm/sdk/finding"
)

// CollectionFindings is the store collection holding Finding documents.
const CollectionFindings = "findings"

// FindingRepository implements finding.Repository on top of a Store.
//
// Every read filters on the isActive flag; soft-deleted findings are invisible
// to callers and to counters.
type FindingRepository struct {
	store Store
}

// NewFindingRepository creates a repository over the given store.
func NewFindingRepository(s Store) *FindingRepository {
	return &FindingRepository{store: s}
}

// Create persists a new finding and returns it with its store-assigned id.
func (r *FindingRepository) Create(ctx context.Context, f *finding.Finding) (*finding.Finding, error) {
	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("invalid finding: %w", err)
	}

	data, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("failed to encode finding: %w", err)
	}
	if err := r.store.Put(ctx, CollectionFindings, f.ID, data); err != nil {
		return nil, fmt.Errorf("failed to persist finding %s: %w", f.ID, err)
	}
	return f, nil
}

// GetByID returns the active finding with the given id.
func (r *FindingRepository) GetByID(ctx context.Context, id string) (*finding.Finding, error) {
	data, err := r.store.Get(ctx, CollectionFindings, id)
	if err != nil {
		return nil, err
	}

	var f finding.Finding
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to decode finding %s: %w", id, err)
	}
	if !f.IsActive {
		return nil, fmt.Errorf("%s/%s: %w", CollectionFindings, id, ErrNotFound)
	}
	return &f, nil
}

// Update applies mutate to the active finding with the given id and persists
// the result.
func (r *FindingRepository) Update(ctx context.Context, id string, mutate func(*finding.Finding) error) (*finding.Finding, error) {
	f, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := mutate(f); err != nil {
		return nil, err
	}

	data, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("failed to encode finding %s: %w", id, err)
	}
	if err := r.store.Put(ctx, CollectionFindings, id, data); err != nil {
		return nil, fmt.Errorf("failed to persist finding %s: %w", id, err)
	}
	return f, nil
}

// ListBySource returns active findings originating from the given source record.
func (r *FindingRepository) ListBySource(ctx context.Context, source finding.Source, sourceID string) ([]*finding.Finding, error) {
	return r.query(ctx, Query{
		Predicates: []Predicate{
			{Field: "source", Op: OpEq, Value: string(source)},
			{Field: "sourceId", Op: OpEq, Value: sourceID},
			{Field: "isActive", Op: OpEq, Value: true},
		},
	})
}

// ListByCategoryProcess returns up to limit active findings sharing the given
// category and process, identified within [since, until). Results are ordered
// most recent first. The time window is evaluated on the decoded records so
// offsets are honored regardless of how timestamps were serialized.
func (r *FindingRepository) ListByCategoryProcess(ctx context.Context, category, processID string, since, until time.Time, limit int) ([]*finding.Finding, error) {
	preds := []Predicate{
		{Field: "category", Op: OpEq, Value: category},
		{Field: "isActive", Op: OpEq, Value: true},
	}
	if processID != "" {
		preds = append(preds, Predicate{Field: "processId", Op: OpEq, Value: processID})
	}

	findings, err := r.query(ctx, Query{Predicates: preds})
	if err != nil {
		return nil, err
	}

	matched := make([]*finding.Finding, 0, len(findings))
	for _, f := range findings {
		if f.IdentifiedDate.Before(since) || !f.IdentifiedDate.Before(until) {
			continue
		}
		matched = append(matched, f)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].IdentifiedDate.After(matched[j].IdentifiedDate)
	})
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

// List returns active findings matching the filter.
func (r *FindingRepository) List(ctx context.Context, filter finding.Filter) ([]*finding.Finding, error) {
	findings, err := r.query(ctx, Query{
		Predicates: []Predicate{{Field: "isActive", Op: OpEq, Value: true}},
	})
	if err != nil {
		return nil, err
	}

	matched := make([]*finding.Finding, 0, len(findings))
	for _, f := range findings {
		if filter.Matches(f) {
			matched = append(matched, f)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].IdentifiedDate.After(matched[j].IdentifiedDate)
	})
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

func (r *FindingRepository) query(ctx context.Context, q Query) ([]*finding.Finding, error) {
	docs, err := r.store.Query(ctx, CollectionFindings, q)
	if err != nil {
		return nil, fmt.Errorf("failed to query findings: %w", err)
	}

	findings := make([]*finding.Finding, 0, len(docs))
	for _, data := range docs {
		var f finding.Finding
		if err := json.Unmarshal(data, &f); err != nil {
			continue
		}
		findings = append(findings, &f)
	}
	return findings, nil
}
