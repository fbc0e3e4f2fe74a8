package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halcyon-qm/sdk/finding"
)

func seedFinding(t *testing.T, repo *FindingRepository, category, processID string, identified time.Time) *finding.Finding {
	t.Helper()

	f := finding.New("Late supplier review", "Supplier review overdue by 30 days",
		"Review schedule", finding.SourceInternal, finding.SeverityMinor, category, "user-1")
	f.ProcessID = processID
	f.IdentifiedDate = identified
	require.NoError(t, f.AssignNumber("HAL-2025-0001", nil))

	created, err := repo.Create(context.Background(), f)
	require.NoError(t, err)
	return created
}

func TestFindingRepository_CreateGet(t *testing.T) {
	s := setupTestStore(t)
	repo := NewFindingRepository(s)
	ctx := context.Background()

	created := seedFinding(t, repo, "documentation", "proc-1", time.Now())
	require.NotEmpty(t, created.ID, "repository assigns an id")

	got, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.FindingNumber, got.FindingNumber)
	assert.Equal(t, "documentation", got.Category)

	t.Run("missing id", func(t *testing.T) {
		_, err := repo.GetByID(ctx, "nope")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("invalid finding rejected", func(t *testing.T) {
		bad := finding.New("", "", "", finding.SourceOther, finding.SeverityMinor, "", "user-1")
		_, err := repo.Create(ctx, bad)
		require.Error(t, err)
	})
}

func TestFindingRepository_Update(t *testing.T) {
	s := setupTestStore(t)
	repo := NewFindingRepository(s)
	ctx := context.Background()

	created := seedFinding(t, repo, "documentation", "proc-1", time.Now())

	updated, err := repo.Update(ctx, created.ID, func(f *finding.Finding) error {
		f.SetImmediateCorrection("records restored from backup", "user-2")
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "records restored from backup", updated.ImmediateCorrection)

	// Mutation errors abort the write.
	_, err = repo.Update(ctx, created.ID, func(f *finding.Finding) error {
		return assert.AnError
	})
	require.Error(t, err)

	got, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "records restored from backup", got.ImmediateCorrection)
}

func TestFindingRepository_SoftDeletedInvisible(t *testing.T) {
	s := setupTestStore(t)
	repo := NewFindingRepository(s)
	ctx := context.Background()

	created := seedFinding(t, repo, "documentation", "proc-1", time.Now())

	_, err := repo.Update(ctx, created.ID, func(f *finding.Finding) error {
		f.SoftDelete("user-1")
		return nil
	})
	require.NoError(t, err)

	_, err = repo.GetByID(ctx, created.ID)
	assert.ErrorIs(t, err, ErrNotFound, "soft-deleted findings resolve as not found")

	results, err := repo.List(ctx, finding.Filter{})
	require.NoError(t, err)
	assert.Empty(t, results, "soft-deleted findings are excluded from every query")
}

func TestFindingRepository_ListBySource(t *testing.T) {
	s := setupTestStore(t)
	repo := NewFindingRepository(s)
	ctx := context.Background()

	a := seedFinding(t, repo, "documentation", "proc-1", time.Now())
	_, err := repo.Update(ctx, a.ID, func(f *finding.Finding) error {
		f.Source = finding.SourceAudit
		f.SourceID = "aud-1"
		return nil
	})
	require.NoError(t, err)
	seedFinding(t, repo, "documentation", "proc-1", time.Now())

	results, err := repo.ListBySource(ctx, finding.SourceAudit, "aud-1")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, a.ID, results[0].ID)
}

func TestFindingRepository_ListByCategoryProcess(t *testing.T) {
	s := setupTestStore(t)
	repo := NewFindingRepository(s)
	ctx := context.Background()
	now := time.Now()

	recent := seedFinding(t, repo, "calibration", "proc-2", now.AddDate(0, -11, 0))
	seedFinding(t, repo, "calibration", "proc-2", now.AddDate(0, -13, 0)) // outside window
	seedFinding(t, repo, "calibration", "proc-9", now.AddDate(0, -1, 0)) // other process
	seedFinding(t, repo, "documentation", "proc-2", now.AddDate(0, -1, 0))

	since := now.AddDate(-1, 0, 0)
	results, err := repo.ListByCategoryProcess(ctx, "calibration", "proc-2", since, now, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, recent.ID, results[0].ID)

	t.Run("limit caps results", func(t *testing.T) {
		for i := 0; i < 5; i++ {
			seedFinding(t, repo, "calibration", "proc-2", now.AddDate(0, -2, 0))
		}
		results, err := repo.ListByCategoryProcess(ctx, "calibration", "proc-2", since, now, 3)
		require.NoError(t, err)
		assert.Len(t, results, 3)
	})

	t.Run("empty process matches any process", func(t *testing.T) {
		results, err := repo.ListByCategoryProcess(ctx, "calibration", "", since, now, 20)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, len(results), 2)
	})
}

func TestFindingRepository_ListWithFilter(t *testing.T) {
	s := setupTestStore(t)
	repo := NewFindingRepository(s)
	ctx := context.Background()

	f := seedFinding(t, repo, "documentation", "proc-1", time.Now())
	seedFinding(t, repo, "calibration", "proc-2", time.Now())

	results, err := repo.List(ctx, finding.Filter{Category: "documentation"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, f.ID, results[0].ID)
}
