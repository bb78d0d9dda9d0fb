// Package dataset fetches and parses the shop, review and catalog datasets.
package dataset

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/kuchikomi/internal/models"
	"github.com/hyperjump/kuchikomi/pkg/utils"
)

// DefaultTimeout bounds a single dataset download.
const DefaultTimeout = 60 * time.Second

// Loader reads datasets from HTTP(S) URLs, file:// URLs or local paths.
type Loader struct {
	client *http.Client
	logger *zap.Logger
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) LoaderOption {
	return func(ld *Loader) { ld.logger = l }
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) LoaderOption {
	return func(ld *Loader) {
		if c != nil {
			ld.client = c
		}
	}
}

// NewLoader creates a loader whose downloads give up after timeout (DefaultTimeout when <= 0).
func NewLoader(timeout time.Duration, opts ...LoaderOption) *Loader {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ld := &Loader{client: &http.Client{Timeout: timeout}}
	for _, opt := range opts {
		opt(ld)
	}
	ld.logger = utils.OrNop(ld.logger)
	return ld
}

// Open returns a reader for location. The caller closes it.
func (ld *Loader) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	if location == "" {
		return nil, fmt.Errorf("dataset location is empty")
	}
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		return ld.get(ctx, location)
	}
	path := location
	if strings.HasPrefix(location, "file://") {
		u, err := url.Parse(location)
		if err != nil {
			return nil, fmt.Errorf("parse dataset url: %w", err)
		}
		path = u.Path
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	return f, nil
}

func (ld *Loader) get(ctx context.Context, location string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := ld.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch dataset: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("fetch dataset %s: unexpected status %d", location, resp.StatusCode)
	}
	return resp.Body, nil
}

// LoadShops fetches and parses the shop dataset.
func (ld *Loader) LoadShops(ctx context.Context, location string) (*models.ShopDataset, error) {
	start := time.Now()
	rc, err := ld.Open(ctx, location)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	ds, err := ParseShops(rc)
	if err != nil {
		return nil, fmt.Errorf("parse shops: %w", err)
	}
	ld.logger.Info("shop dataset loaded",
		zap.String("location", location),
		zap.Int("sources", len(ds.Partitions)),
		zap.Int("shops", ds.ShopCount()),
		zap.Duration("elapsed", time.Since(start)))
	return ds, nil
}

// LoadReviews fetches and parses the review dataset.
func (ld *Loader) LoadReviews(ctx context.Context, location string) ([]models.ReviewRow, error) {
	rc, err := ld.Open(ctx, location)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	rows, err := ParseReviews(rc)
	if err != nil {
		return nil, fmt.Errorf("parse reviews: %w", err)
	}
	ld.logger.Info("review dataset loaded", zap.String("location", location), zap.Int("rows", len(rows)))
	return rows, nil
}

// LoadCatalog fetches and parses the restaurant catalog.
func (ld *Loader) LoadCatalog(ctx context.Context, location string) ([]models.CatalogEntry, error) {
	rc, err := ld.Open(ctx, location)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	entries, err := ParseCatalog(rc)
	if err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	ld.logger.Info("catalog loaded", zap.String("location", location), zap.Int("entries", len(entries)))
	return entries, nil
}
