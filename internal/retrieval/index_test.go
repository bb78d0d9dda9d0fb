package retrieval

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/kuchikomi/internal/embedding"
	"github.com/hyperjump/kuchikomi/internal/models"
	"github.com/hyperjump/kuchikomi/internal/storage"
	"github.com/hyperjump/kuchikomi/internal/vector"
)

const testDims = 256

type recordingEmbedder struct {
	*embedding.MockEmbedder
	batches  [][]string
	batchErr error
	truncate bool
}

func (r *recordingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	r.batches = append(r.batches, texts)
	if r.batchErr != nil {
		return nil, r.batchErr
	}
	out, err := r.MockEmbedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, err
	}
	if r.truncate {
		for i := range out {
			out[i] = out[i][:testDims-1]
		}
	}
	return out, nil
}

type fixture struct {
	index    *Index
	store    *storage.SQLiteStorage
	vectors  *vector.MemoryIndex
	embedder *recordingEmbedder
}

func newFixture(t *testing.T, opts ...IndexOption) *fixture {
	t.Helper()
	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "kuchikomi.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	vectors, err := vector.NewMemoryIndex(testDims)
	require.NoError(t, err)
	emb := &recordingEmbedder{MockEmbedder: embedding.NewMockEmbedder(testDims)}
	idx, err := NewIndex(store, emb, vectors, opts...)
	require.NoError(t, err)
	return &fixture{index: idx, store: store, vectors: vectors, embedder: emb}
}

func shopDocs(contents ...string) []models.Document {
	docs := make([]models.Document, len(contents))
	for i, c := range contents {
		docs[i] = models.Document{Content: c, Metadata: models.DocumentMetadata{Source: "tokyo", ID: i}}
	}
	return docs
}

func TestIndex_IngestAndQuery(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	docs := shopDocs("ramen noodle shop", "sushi fish counter", "coffee espresso cafe")

	require.NoError(t, f.index.Ingest(ctx, docs))

	n, err := f.index.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
	assert.Equal(t, 3, f.index.Size())

	results, err := f.index.Query(ctx, "sushi fish", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, 1, results[0].Document.Metadata.ID)
	assert.Equal(t, "sushi fish counter", results[0].Document.Content)
	assert.Equal(t, 1, results[0].Rank)
	assert.Equal(t, 2, results[1].Rank)
	assert.GreaterOrEqual(t, results[0].Score, results[1].Score)
}

func TestIndex_QueryDefaultK(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	contents := make([]string, 7)
	for i := range contents {
		contents[i] = fmt.Sprintf("shop number %d", i)
	}
	require.NoError(t, f.index.Ingest(ctx, shopDocs(contents...)))

	results, err := f.index.Query(ctx, "shop", 0)
	require.NoError(t, err)
	assert.Len(t, results, DefaultK)

	f2 := newFixture(t, WithDefaultK(2))
	require.NoError(t, f2.index.Ingest(ctx, shopDocs(contents...)))
	results, err = f2.index.Query(ctx, "shop", -1)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestIndex_ReingestDoesNotDuplicate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	docs := shopDocs("ramen noodle shop", "sushi fish counter")

	require.NoError(t, f.index.Ingest(ctx, docs))
	require.NoError(t, f.index.Ingest(ctx, docs))

	n, err := f.index.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
	assert.Equal(t, 2, f.index.Size())
	assert.Len(t, f.embedder.batches, 1, "unchanged documents should not be re-embedded")

	docs[0].Content = "ramen noodle shop with gyoza"
	require.NoError(t, f.index.Ingest(ctx, docs))
	require.Len(t, f.embedder.batches, 2)
	assert.Equal(t, []string{"ramen noodle shop with gyoza"}, f.embedder.batches[1])

	got, err := f.store.GetDocument(ctx, DefaultCollection, 0)
	require.NoError(t, err)
	assert.Equal(t, "ramen noodle shop with gyoza", got.Content)
	assert.Equal(t, 2, f.index.Size())
}

func TestIndex_ReingestRemovesDroppedShops(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.index.Ingest(ctx, shopDocs("ramen noodle shop", "sushi fish counter", "coffee espresso cafe")))
	require.NoError(t, f.index.Ingest(ctx, shopDocs("ramen noodle shop", "sushi fish counter")))

	n, err := f.index.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
	assert.Equal(t, 2, f.index.Size())
	assert.False(t, f.vectors.Has("2"))
	_, err = f.store.GetDocument(ctx, DefaultCollection, 2)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.Len(t, f.embedder.batches, 1, "shrinking the dataset should not re-embed kept shops")

	results, err := f.index.Query(ctx, "coffee espresso cafe", 5)
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.NotEqual(t, "coffee espresso cafe", r.Document.Content)
	}
}

func TestIndex_ReingestReplacesAndRemoves(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.index.Ingest(ctx, shopDocs("ramen noodle shop", "sushi fish counter", "coffee espresso cafe")))
	require.NoError(t, f.index.Ingest(ctx, shopDocs("tempura bar")))

	n, err := f.index.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	assert.Equal(t, 1, f.index.Size())
	got, err := f.store.GetDocument(ctx, DefaultCollection, 0)
	require.NoError(t, err)
	assert.Equal(t, "tempura bar", got.Content)
}

func TestIndex_ReembedsWhenVectorMissing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	docs := shopDocs("ramen noodle shop")
	require.NoError(t, f.index.Ingest(ctx, docs))

	require.NoError(t, f.vectors.Remove(ctx, []string{"0"}))
	require.NoError(t, f.index.Ingest(ctx, docs))
	assert.Len(t, f.embedder.batches, 2)
	assert.Equal(t, 1, f.index.Size())
}

func TestIndex_EmbeddingFailureWritesNothing(t *testing.T) {
	f := newFixture(t)
	f.embedder.batchErr = errors.New("service unavailable")
	ctx := context.Background()

	err := f.index.Ingest(ctx, shopDocs("a", "b", "c"))
	require.Error(t, err)
	assert.ErrorIs(t, err, f.embedder.batchErr)

	n, err := f.index.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)
	assert.Equal(t, 0, f.index.Size())
}

func TestIndex_WrongEmbeddingDimensionsWritesNothing(t *testing.T) {
	f := newFixture(t)
	f.embedder.truncate = true
	ctx := context.Background()

	require.Error(t, f.index.Ingest(ctx, shopDocs("a", "b")))
	n, err := f.index.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)
	assert.Equal(t, 0, f.index.Size())
}

func TestIndex_Collection(t *testing.T) {
	f := newFixture(t, WithCollection("Other"))
	ctx := context.Background()
	require.NoError(t, f.index.Ingest(ctx, shopDocs("a")))

	n, err := f.store.CountDocuments(ctx, "Other")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	n, err = f.store.CountDocuments(ctx, DefaultCollection)
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)
	assert.Equal(t, "Other", f.index.Collection())
}

func TestIndex_SaveAndReload(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.index.Ingest(ctx, shopDocs("ramen noodle shop", "sushi fish counter")))

	path := filepath.Join(t.TempDir(), "vectors.bin")
	require.NoError(t, f.index.Save(path))

	reloaded, err := vector.NewMemoryIndex(testDims)
	require.NoError(t, err)
	require.NoError(t, reloaded.Load(path))
	idx, err := NewIndex(f.store, f.embedder, reloaded)
	require.NoError(t, err)

	resp, err := idx.Search(ctx, "ramen", 1)
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, 0, resp.Results[0].Document.Metadata.ID)
	assert.Equal(t, 1, resp.K)
	assert.Equal(t, "ramen", resp.Query)
}

func TestNewIndex_DimensionMismatch(t *testing.T) {
	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "kuchikomi.db"))
	require.NoError(t, err)
	defer store.Close()
	vectors, err := vector.NewMemoryIndex(8)
	require.NoError(t, err)

	_, err = NewIndex(store, embedding.NewMockEmbedder(16), vectors)
	assert.Error(t, err)
}
