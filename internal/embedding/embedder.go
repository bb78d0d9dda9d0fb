// Package embedding provides text embedding via OpenAI, caching, and a deterministic mock.
package embedding

import (
	"context"
	"fmt"
)

// Embedder produces vector embeddings for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}

// Provider names accepted by New.
const (
	ProviderOpenAI = "openai"
	ProviderMock   = "mock"
)

// Options configures an embedder built by New.
type Options struct {
	Provider   string
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
	BatchSize  int
	CacheSize  int
}

// New creates the embedder named by opts.Provider, wrapped in an LRU cache
// when opts.CacheSize is positive.
func New(opts Options) (Embedder, error) {
	var inner Embedder
	switch opts.Provider {
	case ProviderOpenAI, "":
		e, err := NewOpenAIEmbedder(opts.APIKey, opts.BaseURL, opts.Model, opts.Dimensions, opts.BatchSize)
		if err != nil {
			return nil, err
		}
		inner = e
	case ProviderMock:
		inner = NewMockEmbedder(opts.Dimensions)
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s (supported: openai, mock)", opts.Provider)
	}
	if opts.CacheSize > 0 {
		return NewCachedEmbedder(inner, opts.CacheSize), nil
	}
	return inner, nil
}
