package store

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestStore creates a miniredis instance and returns a connected RedisStore.
func setupTestStore(t *testing.T) *RedisStore {
	t.Helper()

	mr := miniredis.RunT(t)
	s, err := NewRedisStore(RedisOptions{
		URL:            fmt.Sprintf("redis://%s", mr.Addr()),
		ConnectTimeout: 5 * time.Second,
		ReadTimeout:    5 * time.Second,
		WriteTimeout:   5 * time.Second,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = s.Close()
	})

	return s
}

func TestNewRedisStore(t *testing.T) {
	t.Run("successful connection", func(t *testing.T) {
		mr := miniredis.RunT(t)
		s, err := NewRedisStore(RedisOptions{URL: fmt.Sprintf("redis://%s", mr.Addr())})
		require.NoError(t, err)
		require.NotNil(t, s)
		defer s.Close()
	})

	t.Run("connection failure", func(t *testing.T) {
		_, err := NewRedisStore(RedisOptions{
			URL:            "redis://localhost:1",
			ConnectTimeout: 100 * time.Millisecond,
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to connect to Redis")
	})

	t.Run("invalid URL", func(t *testing.T) {
		_, err := NewRedisStore(RedisOptions{URL: "invalid://url"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse Redis URL")
	})
}

func TestPutGet(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	doc := []byte(`{"id":"d-1","name":"Quality Manual","rev":3}`)
	require.NoError(t, s.Put(ctx, "documents", "d-1", doc))

	got, err := s.Get(ctx, "documents", "d-1")
	require.NoError(t, err)
	assert.JSONEq(t, string(doc), string(got))

	t.Run("missing document", func(t *testing.T) {
		_, err := s.Get(ctx, "documents", "d-999")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("empty key", func(t *testing.T) {
		_, err := s.Get(ctx, "documents", "")
		assert.ErrorIs(t, err, ErrInvalidKey)
	})
}

func TestUpdate(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "audits", "a-1", []byte(`{"id":"a-1","findingsCount":0,"name":"Internal Audit Q2"}`)))

	err := s.Update(ctx, "audits", "a-1", map[string]any{"findingsCount": 4, "openFindingsCount": 3})
	require.NoError(t, err)

	got, err := s.Get(ctx, "audits", "a-1")
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(got, &doc))
	assert.Equal(t, float64(4), doc["findingsCount"])
	assert.Equal(t, float64(3), doc["openFindingsCount"])
	assert.Equal(t, "Internal Audit Q2", doc["name"], "unrelated fields survive partial updates")

	t.Run("missing document", func(t *testing.T) {
		err := s.Update(ctx, "audits", "a-404", map[string]any{"findingsCount": 1})
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestQuery(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	docs := []string{
		`{"id":"f-1","category":"documentation","status":"open","weight":5,"isActive":true}`,
		`{"id":"f-2","category":"documentation","status":"closed","weight":8,"isActive":true}`,
		`{"id":"f-3","category":"calibration","status":"open","weight":2,"isActive":true}`,
		`{"id":"f-4","category":"documentation","status":"open","weight":9,"isActive":false}`,
	}
	for i, d := range docs {
		require.NoError(t, s.Put(ctx, "findings", fmt.Sprintf("f-%d", i+1), []byte(d)))
	}

	t.Run("eq predicates are ANDed", func(t *testing.T) {
		results, err := s.Query(ctx, "findings", Query{
			Predicates: []Predicate{
				{Field: "category", Op: OpEq, Value: "documentation"},
				{Field: "isActive", Op: OpEq, Value: true},
			},
		})
		require.NoError(t, err)
		assert.Len(t, results, 2)
	})

	t.Run("numeric range", func(t *testing.T) {
		results, err := s.Query(ctx, "findings", Query{
			Predicates: []Predicate{{Field: "weight", Op: OpGte, Value: 5}},
		})
		require.NoError(t, err)
		assert.Len(t, results, 3)
	})

	t.Run("order and limit", func(t *testing.T) {
		results, err := s.Query(ctx, "findings", Query{
			OrderBy:    "weight",
			Descending: true,
			Limit:      1,
		})
		require.NoError(t, err)
		require.Len(t, results, 1)

		var doc map[string]any
		require.NoError(t, json.Unmarshal(results[0], &doc))
		assert.Equal(t, "f-4", doc["id"])
	})

	t.Run("empty collection", func(t *testing.T) {
		results, err := s.Query(ctx, "nothing", Query{})
		require.NoError(t, err)
		assert.Empty(t, results)
	})
}

func TestAtomicIncrement(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	v1, err := s.AtomicIncrement(ctx, "HAL:2025")
	require.NoError(t, err)
	assert.Equal(t, int64(1), v1)

	v2, err := s.AtomicIncrement(ctx, "HAL:2025")
	require.NoError(t, err)
	assert.Equal(t, int64(2), v2)

	// Distinct keys have independent counters.
	other, err := s.AtomicIncrement(ctx, "HAL:2026")
	require.NoError(t, err)
	assert.Equal(t, int64(1), other)

	t.Run("empty key", func(t *testing.T) {
		_, err := s.AtomicIncrement(ctx, "")
		assert.ErrorIs(t, err, ErrInvalidKey)
	})
}
