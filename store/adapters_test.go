package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halcyon-qm/sdk/directory"
	"github.com/halcyon-qm/sdk/finding"
)

func TestAuditAdapter_TraceabilityChain(t *testing.T) {
	s := setupTestStore(t)
	audits := NewAuditAdapter(s)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, CollectionAudits, "aud-1",
		[]byte(`{"id":"aud-1","auditNumber":"AUD-2025-0001","traceabilityChain":["AUD-2025-0001"],"status":"completed"}`)))

	chain, err := audits.TraceabilityChain(ctx, "aud-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"AUD-2025-0001"}, chain)

	t.Run("missing audit", func(t *testing.T) {
		_, err := audits.TraceabilityChain(ctx, "aud-404")
		assert.ErrorIs(t, err, directory.ErrAuditNotFound)
	})
}

func TestAuditAdapter_RecomputeFindingsCounters(t *testing.T) {
	s := setupTestStore(t)
	audits := NewAuditAdapter(s)
	repo := NewFindingRepository(s)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, CollectionAudits, "aud-1", []byte(`{"id":"aud-1","findingsCount":0}`)))

	mkFinding := func(status finding.Status, active bool) {
		f := seedFinding(t, repo, "documentation", "proc-1", time.Now())
		_, err := repo.Update(ctx, f.ID, func(f *finding.Finding) error {
			f.Source = finding.SourceAudit
			f.SourceID = "aud-1"
			f.Status = status
			if status == finding.StatusClosed {
				f.IsVerified = true
				f.CurrentPhase = finding.PhaseControl
				now := time.Now()
				f.ActualCloseDate = &now
			}
			return nil
		})
		require.NoError(t, err)
		if !active {
			// Soft-delete through the store so the inactive record stays readable here.
			require.NoError(t, s.Update(ctx, CollectionFindings, f.ID, map[string]any{"isActive": false}))
		}
	}

	mkFinding(finding.StatusOpen, true)
	mkFinding(finding.StatusClosed, true)
	mkFinding(finding.StatusOpen, false) // soft-deleted, must not count

	require.NoError(t, audits.RecomputeFindingsCounters(ctx, "aud-1"))

	data, err := s.Get(ctx, CollectionAudits, "aud-1")
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, float64(2), doc["findingsCount"])
	assert.Equal(t, float64(1), doc["openFindingsCount"])
	assert.Equal(t, float64(1), doc["closedFindingsCount"])

	// Recompute is idempotent.
	require.NoError(t, audits.RecomputeFindingsCounters(ctx, "aud-1"))
	data, err = s.Get(ctx, CollectionAudits, "aud-1")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, float64(2), doc["findingsCount"])

	t.Run("missing audit", func(t *testing.T) {
		err := audits.RecomputeFindingsCounters(ctx, "aud-404")
		assert.ErrorIs(t, err, directory.ErrAuditNotFound)
	})
}

func TestActionAdapter_ListActiveByFinding(t *testing.T) {
	s := setupTestStore(t)
	actions := NewActionAdapter(s)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, CollectionActions, "act-1",
		[]byte(`{"id":"act-1","findingId":"f-1","status":"planned","isActive":true}`)))
	require.NoError(t, s.Put(ctx, CollectionActions, "act-2",
		[]byte(`{"id":"act-2","findingId":"f-1","status":"completed","isActive":true}`)))
	require.NoError(t, s.Put(ctx, CollectionActions, "act-3",
		[]byte(`{"id":"act-3","findingId":"f-1","status":"planned","isActive":false}`)))
	require.NoError(t, s.Put(ctx, CollectionActions, "act-4",
		[]byte(`{"id":"act-4","findingId":"f-2","status":"planned","isActive":true}`)))

	summaries, err := actions.ListActiveByFinding(ctx, "f-1")
	require.NoError(t, err)
	assert.Len(t, summaries, 2)

	statuses := map[string]directory.ActionStatus{}
	for _, a := range summaries {
		statuses[a.ID] = a.Status
	}
	assert.Equal(t, directory.ActionPlanned, statuses["act-1"])
	assert.Equal(t, directory.ActionCompleted, statuses["act-2"])
}
