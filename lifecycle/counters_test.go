package lifecycle

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halcyon-qm/sdk/store"
)

func seedAction(t *testing.T, env *testEnv, id, findingID, status string, active bool) {
	t.Helper()

	doc := fmt.Sprintf(`{"id":%q,"findingId":%q,"status":%q,"isActive":%t}`, id, findingID, status, active)
	require.NoError(t, env.st.Put(context.Background(), store.CollectionActions, id, []byte(doc)))
}

func TestSyncActionCounters(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()
	sync := NewCounterSynchronizer(env.repo, store.NewActionAdapter(env.st), nil)

	f, err := env.svc.Create(ctx, auditInput(), "user-1")
	require.NoError(t, err)

	seedAction(t, env, "act-1", f.ID, "planned", true)
	seedAction(t, env, "act-2", f.ID, "in_progress", true)
	seedAction(t, env, "act-3", f.ID, "completed", true)
	seedAction(t, env, "act-4", f.ID, "planned", false)   // inactive, excluded
	seedAction(t, env, "act-5", "other", "planned", true) // different finding

	updated, err := sync.SyncActionCounters(ctx, f.ID, "user-9")
	require.NoError(t, err)
	assert.Equal(t, 3, updated.ActionsCount)
	assert.Equal(t, 2, updated.OpenActionsCount)
	assert.Equal(t, 1, updated.CompletedActionsCount)
	assert.Equal(t, "user-9", updated.UpdatedBy, "a sync is a transition and records its actor")

	t.Run("idempotent", func(t *testing.T) {
		again, err := sync.SyncActionCounters(ctx, f.ID, "user-9")
		require.NoError(t, err)
		assert.Equal(t, updated.ActionsCount, again.ActionsCount)
		assert.Equal(t, updated.OpenActionsCount, again.OpenActionsCount)
		assert.Equal(t, updated.CompletedActionsCount, again.CompletedActionsCount)
	})

	t.Run("reflects action completion", func(t *testing.T) {
		require.NoError(t, env.st.Update(ctx, store.CollectionActions, "act-1",
			map[string]any{"status": "completed"}))

		after, err := sync.SyncActionCounters(ctx, f.ID, "user-9")
		require.NoError(t, err)
		assert.Equal(t, 3, after.ActionsCount)
		assert.Equal(t, 1, after.OpenActionsCount)
		assert.Equal(t, 2, after.CompletedActionsCount)
	})

	t.Run("counters invariant holds", func(t *testing.T) {
		got, err := env.svc.Get(ctx, f.ID)
		require.NoError(t, err)
		assert.Equal(t, got.ActionsCount, got.OpenActionsCount+got.CompletedActionsCount)
		require.NoError(t, got.Validate())
	})

	t.Run("missing finding", func(t *testing.T) {
		_, err := sync.SyncActionCounters(ctx, "nope", "user-9")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestSyncActionCounters_NoActions(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()
	sync := NewCounterSynchronizer(env.repo, store.NewActionAdapter(env.st), nil)

	f, err := env.svc.Create(ctx, auditInput(), "user-1")
	require.NoError(t, err)

	updated, err := sync.SyncActionCounters(ctx, f.ID, "user-9")
	require.NoError(t, err)
	assert.Zero(t, updated.ActionsCount)
	assert.Zero(t, updated.OpenActionsCount)
	assert.Zero(t, updated.CompletedActionsCount)
}
