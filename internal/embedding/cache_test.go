package embedding

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddingCache_GetSet(t *testing.T) {
	c := NewEmbeddingCache(2)
	if v, ok := c.Get("a"); ok || v != nil {
		t.Fatal("expected miss")
	}
	c.Set("a", []float32{1, 2, 3})
	v, ok := c.Get("a")
	if !ok || len(v) != 3 || v[0] != 1 {
		t.Errorf("Get: got %v, %v", v, ok)
	}
	c.Set("b", []float32{4, 5})
	c.Set("c", []float32{6}) // evicts a
	if _, ok := c.Get("a"); ok {
		t.Error("expected a to be evicted")
	}
	if _, ok := c.Get("b"); !ok {
		t.Error("expected b to remain")
	}
	if _, ok := c.Get("c"); !ok {
		t.Error("expected c to be present")
	}
	if c.Len() != 2 {
		t.Errorf("Len() = %d, want 2", c.Len())
	}
}

func TestEmbeddingCache_GetRefreshesRecency(t *testing.T) {
	c := NewEmbeddingCache(2)
	c.Set("a", []float32{1})
	c.Set("b", []float32{2})
	_, _ = c.Get("a")
	c.Set("c", []float32{3}) // evicts b, not a
	_, okA := c.Get("a")
	_, okB := c.Get("b")
	assert.True(t, okA)
	assert.False(t, okB)
}

type countingEmbedder struct {
	*MockEmbedder
	batches [][]string
	fail    bool
}

func (c *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	c.batches = append(c.batches, append([]string(nil), texts...))
	if c.fail {
		return nil, errors.New("embedding service unavailable")
	}
	return c.MockEmbedder.EmbedBatch(ctx, texts)
}

func TestCachedEmbedder_EmbedBatchOnlyMisses(t *testing.T) {
	inner := &countingEmbedder{MockEmbedder: NewMockEmbedder(8)}
	ce := NewCachedEmbedder(inner, 10)
	ctx := context.Background()

	first, err := ce.EmbedBatch(ctx, []string{"cafe", "bakery"})
	require.NoError(t, err)
	second, err := ce.EmbedBatch(ctx, []string{"bakery", "diner", "cafe"})
	require.NoError(t, err)

	require.Len(t, inner.batches, 2)
	assert.Equal(t, []string{"diner"}, inner.batches[1])
	assert.Equal(t, first[1], second[0])
	assert.Equal(t, first[0], second[2])
	assert.Equal(t, 8, ce.Dimensions())
}

func TestCachedEmbedder_ErrorNotCached(t *testing.T) {
	inner := &countingEmbedder{MockEmbedder: NewMockEmbedder(8), fail: true}
	ce := NewCachedEmbedder(inner, 10)
	_, err := ce.EmbedBatch(context.Background(), []string{"x"})
	require.Error(t, err)
	inner.fail = false
	_, err = ce.EmbedBatch(context.Background(), []string{"x"})
	require.NoError(t, err)
	assert.Len(t, inner.batches, 2)
}
