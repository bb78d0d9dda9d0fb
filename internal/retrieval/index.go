// Package retrieval ingests shop documents into a named collection and answers similarity queries.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/kuchikomi/internal/embedding"
	"github.com/hyperjump/kuchikomi/internal/fingerprint"
	"github.com/hyperjump/kuchikomi/internal/models"
	"github.com/hyperjump/kuchikomi/internal/storage"
	"github.com/hyperjump/kuchikomi/internal/vector"
	"github.com/hyperjump/kuchikomi/pkg/utils"
)

const (
	// DefaultCollection is the collection name used when none is configured.
	DefaultCollection = "RestaurantDB"
	// DefaultK is the number of results returned when a query asks for k <= 0.
	DefaultK = 5
)

// Index is a retrieval index over one document collection.
type Index struct {
	storage    storage.Storage
	embedder   embedding.Embedder
	vectors    vector.VectorIndex
	collection string
	defaultK   int
	logger     *zap.Logger
}

// IndexOption configures an Index.
type IndexOption func(*Index)

// WithLogger sets the logger for ingest and query events.
func WithLogger(l *zap.Logger) IndexOption {
	return func(idx *Index) { idx.logger = l }
}

// WithCollection sets the collection name.
func WithCollection(name string) IndexOption {
	return func(idx *Index) {
		if name != "" {
			idx.collection = name
		}
	}
}

// WithDefaultK sets the result count used when a query passes k <= 0.
func WithDefaultK(k int) IndexOption {
	return func(idx *Index) {
		if k > 0 {
			idx.defaultK = k
		}
	}
}

// NewIndex creates a retrieval index. The embedder and vector index must agree on dimensions.
func NewIndex(store storage.Storage, embedder embedding.Embedder, vectors vector.VectorIndex, opts ...IndexOption) (*Index, error) {
	if store == nil || embedder == nil || vectors == nil {
		return nil, errors.New("storage, embedder and vector index are required")
	}
	if embedder.Dimensions() != vectors.Dimensions() {
		return nil, fmt.Errorf("embedder dimensions %d do not match vector index dimensions %d",
			embedder.Dimensions(), vectors.Dimensions())
	}
	idx := &Index{
		storage:    store,
		embedder:   embedder,
		vectors:    vectors,
		collection: DefaultCollection,
		defaultK:   DefaultK,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(idx)
	}
	idx.logger = utils.OrNop(idx.logger)
	return idx, nil
}

// Collection returns the collection name.
func (idx *Index) Collection() string { return idx.collection }

// Ingest embeds and stores docs. The whole batch is embedded before anything is
// written; an embedding failure leaves storage and vectors untouched. Documents whose
// content is unchanged since the last ingest and whose vector is present are skipped.
// docs is the full contents of the collection: stored documents whose id is not in
// docs are removed from storage and from the vector index.
func (idx *Index) Ingest(ctx context.Context, docs []models.Document) error {
	runID := uuid.New().String()
	log := idx.logger.With(zap.String("run_id", runID), zap.String("collection", idx.collection))
	start := time.Now()

	existing, err := idx.storage.ContentHashes(ctx, idx.collection)
	if err != nil {
		return fmt.Errorf("failed to read stored fingerprints: %w", err)
	}

	incoming := make(map[int]struct{}, len(docs))
	stale := make([]storage.StoredDocument, 0, len(docs))
	for _, d := range docs {
		incoming[d.Metadata.ID] = struct{}{}
		hash := fingerprint.Content(d.Content)
		if existing[d.Metadata.ID] == hash && idx.vectors.Has(vectorID(d.Metadata.ID)) {
			continue
		}
		stale = append(stale, storage.StoredDocument{Document: d, ContentHash: hash})
	}
	var removed []int
	for id := range existing {
		if _, ok := incoming[id]; !ok {
			removed = append(removed, id)
		}
	}
	sort.Ints(removed)
	log.Info("ingest started",
		zap.Int("documents", len(docs)),
		zap.Int("stale", len(stale)),
		zap.Int("unchanged", len(docs)-len(stale)),
		zap.Int("removed", len(removed)))
	if len(stale) == 0 {
		if err := idx.prune(ctx, removed); err != nil {
			return err
		}
		log.Info("ingest finished", zap.Int("written", 0), zap.Duration("elapsed", time.Since(start)))
		return nil
	}

	texts := make([]string, len(stale))
	ids := make([]string, len(stale))
	for i, d := range stale {
		texts[i] = d.Document.Content
		ids[i] = vectorID(d.Document.Metadata.ID)
	}
	embeddings, err := idx.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to generate embeddings: %w", err)
	}
	if len(embeddings) != len(stale) {
		return fmt.Errorf("embedder returned %d vectors for %d documents", len(embeddings), len(stale))
	}
	for i, vec := range embeddings {
		if len(vec) != idx.vectors.Dimensions() {
			return fmt.Errorf("embedding for document %s has %d dimensions, expected %d",
				ids[i], len(vec), idx.vectors.Dimensions())
		}
	}

	if err := idx.storage.UpsertDocuments(ctx, idx.collection, stale); err != nil {
		return fmt.Errorf("failed to store documents: %w", err)
	}
	if err := idx.vectors.Upsert(ctx, ids, embeddings); err != nil {
		return fmt.Errorf("failed to index vectors: %w", err)
	}
	if err := idx.prune(ctx, removed); err != nil {
		return err
	}
	log.Info("ingest finished",
		zap.Int("written", len(stale)),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

// prune deletes documents that are no longer part of the collection.
func (idx *Index) prune(ctx context.Context, removed []int) error {
	if len(removed) == 0 {
		return nil
	}
	if err := idx.storage.DeleteDocuments(ctx, idx.collection, removed); err != nil {
		return fmt.Errorf("failed to delete removed documents: %w", err)
	}
	ids := make([]string, len(removed))
	for i, id := range removed {
		ids[i] = vectorID(id)
	}
	if err := idx.vectors.Remove(ctx, ids); err != nil {
		return fmt.Errorf("failed to remove vectors: %w", err)
	}
	return nil
}

// Query returns the k documents most similar to text, most similar first.
// k <= 0 uses the default.
func (idx *Index) Query(ctx context.Context, text string, k int) ([]*models.SearchResult, error) {
	if k <= 0 {
		k = idx.defaultK
	}
	queryVec, err := idx.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embedding failed: %w", err)
	}
	hits, err := idx.vectors.Search(ctx, queryVec, k)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}
	results := make([]*models.SearchResult, 0, len(hits))
	for _, hit := range hits {
		id, err := strconv.Atoi(hit.ID)
		if err != nil {
			idx.logger.Warn("skipping vector with non-numeric id", zap.String("id", hit.ID))
			continue
		}
		doc, err := idx.storage.GetDocument(ctx, idx.collection, id)
		if errors.Is(err, storage.ErrNotFound) {
			idx.logger.Warn("vector has no stored document", zap.Int("id", id))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load document %d: %w", id, err)
		}
		results = append(results, &models.SearchResult{
			Document: doc,
			Score:    hit.Score,
			Rank:     len(results) + 1,
		})
	}
	return results, nil
}

// Search wraps Query with timing for API and CLI responses.
func (idx *Index) Search(ctx context.Context, text string, k int) (*models.SearchResponse, error) {
	start := time.Now()
	if k <= 0 {
		k = idx.defaultK
	}
	results, err := idx.Query(ctx, text, k)
	if err != nil {
		return nil, err
	}
	return &models.SearchResponse{
		Query:     text,
		K:         k,
		Results:   results,
		QueryTime: time.Since(start).Milliseconds(),
	}, nil
}

// Count returns the number of stored documents in the collection.
func (idx *Index) Count(ctx context.Context) (int64, error) {
	return idx.storage.CountDocuments(ctx, idx.collection)
}

// Size returns the number of vectors in the vector index.
func (idx *Index) Size() int {
	return idx.vectors.Size()
}

// Save persists the vector index to path.
func (idx *Index) Save(path string) error {
	return idx.vectors.Save(path)
}

func vectorID(id int) string {
	return strconv.Itoa(id)
}
