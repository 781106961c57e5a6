package rag

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedStore(t *testing.T) *MemoryStore {
	t.Helper()
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.CreateCollection(ctx, "docs", 3))
	require.NoError(t, s.Upsert(ctx, "docs", []Document{
		{ID: "a", Content: "exact match", Vector: []float32{1, 0, 0}},
		{ID: "b", Content: "close match", Vector: []float32{0.9, 0.1, 0}},
		{ID: "c", Content: "unrelated", Vector: []float32{0, 0, 1}},
	}))
	return s
}

func TestMemoryStoreSearchRanksByCosine(t *testing.T) {
	s := seedStore(t)

	results, err := s.Search(context.Background(), "docs", []float32{1, 0, 0}, 10, 0)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "a", results[0].ID)
	assert.Equal(t, "b", results[1].ID)
	assert.InDelta(t, 1.0, float64(results[0].Score), 0.001)
}

func TestMemoryStoreMinScoreAndTopK(t *testing.T) {
	s := seedStore(t)

	results, err := s.Search(context.Background(), "docs", []float32{1, 0, 0}, 10, 0.5)
	require.NoError(t, err)
	assert.Len(t, results, 2, "unrelated document passed the score floor")

	results, err = s.Search(context.Background(), "docs", []float32{1, 0, 0}, 1, 0)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestMemoryStoreMissingCollection(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.Search(context.Background(), "nope", []float32{1}, 1, 0)
	assert.Error(t, err)
}

func TestMemoryStoreDeleteByIDs(t *testing.T) {
	s := seedStore(t)
	ctx := context.Background()

	require.NoError(t, s.DeleteByIDs(ctx, "docs", []string{"a", "c"}))
	results, err := s.Search(ctx, "docs", []float32{1, 0, 0}, 10, 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "b", results[0].ID)
}

func TestMemoryStoreDeleteCollection(t *testing.T) {
	s := seedStore(t)
	ctx := context.Background()

	require.NoError(t, s.DeleteCollection(ctx, "docs"))
	exists, err := s.CollectionExists(ctx, "docs")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, float64(cosine([]float32{1, 2}, []float32{1, 2})), 0.001)
	assert.InDelta(t, 0.0, float64(cosine([]float32{1, 0}, []float32{0, 1})), 0.001)
	assert.Zero(t, cosine([]float32{1}, []float32{1, 2}), "mismatched lengths")
	assert.Zero(t, cosine([]float32{0, 0}, []float32{1, 1}), "zero vector")
}
