package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/hyperjump/kuchikomi/internal/catalog"
	"github.com/hyperjump/kuchikomi/internal/config"
	"github.com/hyperjump/kuchikomi/internal/dataset"
	"github.com/hyperjump/kuchikomi/internal/document"
	"github.com/hyperjump/kuchikomi/internal/embedding"
	"github.com/hyperjump/kuchikomi/internal/history"
	"github.com/hyperjump/kuchikomi/internal/models"
	"github.com/hyperjump/kuchikomi/internal/retrieval"
	"github.com/hyperjump/kuchikomi/internal/storage"
	"github.com/hyperjump/kuchikomi/internal/vector"
	"github.com/hyperjump/kuchikomi/internal/vision"
	"github.com/hyperjump/kuchikomi/internal/watcher"
)

// Components holds initialized services.
type Components struct {
	Storage     storage.Storage
	Embedder    embedding.Embedder
	VectorIndex vector.VectorIndex
	Index       *retrieval.Index
}

func (c *Components) Close() {
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.VectorIndex != nil {
		_ = c.VectorIndex.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	c := &Components{Storage: store}

	c.Embedder, err = embedding.New(embedding.Options{
		Provider:   cfg.Embedding.Provider,
		APIKey:     cfg.OpenAI.APIKey,
		BaseURL:    cfg.OpenAI.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		BatchSize:  cfg.Embedding.BatchSize,
		CacheSize:  cfg.Embedding.CacheSize,
	})
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	memIndex, err := vector.NewMemoryIndex(c.Embedder.Dimensions())
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize vector index: %w", err)
	}
	c.VectorIndex = memIndex
	if loadErr := memIndex.Load(cfg.Storage.VectorIndexPath); loadErr != nil {
		logger.Warn("vector index load skipped (re-run index)",
			zap.String("path", cfg.Storage.VectorIndexPath), zap.Error(loadErr))
	}
	logger.Info("vector index initialized",
		zap.Int("dimensions", memIndex.Dimensions()), zap.Int("size", memIndex.Size()))

	c.Index, err = retrieval.NewIndex(store, c.Embedder, memIndex,
		retrieval.WithLogger(logger),
		retrieval.WithCollection(cfg.Index.Collection),
		retrieval.WithDefaultK(cfg.Index.DefaultK),
	)
	if err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

// buildHistory loads the review and catalog datasets and wires the vision
// pipeline into a history assembler.
func buildHistory(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*history.Assembler, error) {
	loader := dataset.NewLoader(cfg.Datasets.Timeout(), dataset.WithLogger(logger))
	rows, err := loader.LoadReviews(ctx, cfg.Datasets.ReviewsURL)
	if err != nil {
		return nil, err
	}
	entries, err := loader.LoadCatalog(ctx, cfg.Datasets.CatalogURL)
	if err != nil {
		return nil, err
	}
	resolver, err := catalog.NewResolver(entries, catalog.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	describer, err := vision.NewOpenAIDescriber(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.Vision.Model)
	if err != nil {
		return nil, err
	}
	annotator := vision.NewAnnotator(
		vision.NewHTTPFetcher(cfg.Vision.FetchTimeout()),
		describer,
		vision.WithLogger(logger),
		vision.WithPrompt(cfg.Vision.Prompt),
		vision.WithMaxTokens(cfg.Vision.MaxTokens),
		vision.WithFetchTimeout(cfg.Vision.FetchTimeout()),
		vision.WithConcurrency(cfg.Vision.Concurrency),
		vision.WithRateLimit(cfg.Vision.RequestsPerSecond),
		vision.WithProgress(func(ev vision.Event) {
			if ev.Err != nil {
				logger.Debug("image skipped", zap.Int("index", ev.Index), zap.Int("total", ev.Total), zap.Error(ev.Err))
			}
		}),
	)

	assembler := history.NewAssembler(rows, resolver, annotator,
		history.WithLogger(logger),
		history.WithRowConcurrency(cfg.History.RowConcurrency),
	)
	logger.Info("history datasets loaded",
		zap.Int("rows", len(rows)),
		zap.Int("users", len(assembler.Users())),
		zap.Int("catalog_items", resolver.Len()),
		zap.Int("catalog_duplicates", resolver.Duplicates()))
	return assembler, nil
}

// reloadableHistory serves history from an assembler that can be swapped when
// the review or catalog datasets change on disk.
type reloadableHistory struct {
	current atomic.Pointer[history.Assembler]
}

func newReloadableHistory(a *history.Assembler) *reloadableHistory {
	h := &reloadableHistory{}
	h.current.Store(a)
	return h
}

func (h *reloadableHistory) Assemble(ctx context.Context, userID string) ([]models.EnrichedVisitRecord, error) {
	return h.current.Load().Assemble(ctx, userID)
}

func (h *reloadableHistory) Users() []string {
	return h.current.Load().Users()
}

// reindexShops rebuilds and ingests the shop documents, then persists the vectors.
func reindexShops(ctx context.Context, cfg *config.Config, c *Components, location string, logger *zap.Logger) (int, error) {
	policy, err := document.ParseMismatchPolicy(cfg.Index.ReviewMismatch)
	if err != nil {
		return 0, err
	}
	loader := dataset.NewLoader(cfg.Datasets.Timeout(), dataset.WithLogger(logger))
	ds, err := loader.LoadShops(ctx, location)
	if err != nil {
		return 0, fmt.Errorf("load shops: %w", err)
	}
	docs, err := document.NewBuilder(policy).BuildAll(ds)
	if err != nil {
		return 0, fmt.Errorf("build documents: %w", err)
	}
	if err := c.Index.Ingest(ctx, docs); err != nil {
		return 0, fmt.Errorf("ingest: %w", err)
	}
	if err := c.Index.Save(cfg.Storage.VectorIndexPath); err != nil {
		return 0, fmt.Errorf("save vector index: %w", err)
	}
	return len(docs), nil
}

// localDataset reports whether a dataset location is a file on this machine.
func localDataset(location string) (string, bool) {
	if location == "" || strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		return "", false
	}
	return strings.TrimPrefix(location, "file://"), true
}

// watchDatasets re-ingests the shop dataset and reloads history whenever one of
// the local dataset files changes. Remote datasets are not watched.
func watchDatasets(ctx context.Context, cfg *config.Config, c *Components, hist *reloadableHistory, logger *zap.Logger) (*watcher.Watcher, error) {
	shopsPath, shopsLocal := localDataset(cfg.Datasets.ShopsURL)
	reviewsPath, reviewsLocal := localDataset(cfg.Datasets.ReviewsURL)
	catalogPath, catalogLocal := localDataset(cfg.Datasets.CatalogURL)

	var files []string
	if shopsLocal {
		files = append(files, shopsPath)
	}
	if hist != nil {
		if reviewsLocal {
			files = append(files, reviewsPath)
		}
		if catalogLocal {
			files = append(files, catalogPath)
		}
	}
	if len(files) == 0 {
		return nil, nil
	}

	var reloadMu sync.Mutex
	onChange := func(path string) {
		reloadMu.Lock()
		defer reloadMu.Unlock()
		if shopsLocal && sameFile(path, shopsPath) {
			n, err := reindexShops(ctx, cfg, c, cfg.Datasets.ShopsURL, logger)
			if err != nil {
				logger.Error("re-index after change failed", zap.String("path", path), zap.Error(err))
				return
			}
			logger.Info("re-indexed shops", zap.String("path", path), zap.Int("documents", n))
			return
		}
		assembler, err := buildHistory(ctx, cfg, logger)
		if err != nil {
			logger.Error("history reload failed; keeping previous datasets", zap.String("path", path), zap.Error(err))
			return
		}
		hist.current.Store(assembler)
		logger.Info("history reloaded", zap.String("path", path), zap.Int("users", len(assembler.Users())))
	}

	w, err := watcher.NewWatcher(files, onChange, watcher.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	if err := w.Start(ctx); err != nil {
		return nil, fmt.Errorf("start dataset watcher: %w", err)
	}
	logger.Info("watching datasets", zap.Strings("files", w.Files()))
	return w, nil
}

func sameFile(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}
