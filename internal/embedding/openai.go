package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

var openAIDimensions = map[string]int{
	"text-embedding-3-large": 3072,
	"text-embedding-3-small": 1536,
	"text-embedding-ada-002": 1536,
}

// Models that reject the dimensions request parameter.
var fixedDimensionModels = map[string]bool{
	"text-embedding-ada-002": true,
}

const (
	defaultOpenAIModel     = "text-embedding-3-large"
	defaultOpenAIBatchSize = 64
)

// OpenAIEmbedder embeds text with the OpenAI embeddings API.
type OpenAIEmbedder struct {
	client     *openai.Client
	model      string
	dimensions int
	// requestDims is sent as the dimensions parameter; 0 omits it and the
	// model returns its native size.
	requestDims int
	batchSize   int
}

// NewOpenAIEmbedder creates an embedder for model. dimensions of 0 uses the
// model's native size; batchSize bounds the number of texts per request.
func NewOpenAIEmbedder(apiKey, baseURL, model string, dimensions, batchSize int) (*OpenAIEmbedder, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("openai api key is not configured")
	}
	if model == "" {
		model = defaultOpenAIModel
	}
	native, known := openAIDimensions[model]
	if dimensions <= 0 {
		if !known {
			return nil, fmt.Errorf("unknown dimensions for embedding model %s; set embedding.dimensions", model)
		}
		dimensions = native
	}
	requestDims := dimensions
	if known && dimensions == native {
		requestDims = 0
	}
	if requestDims != 0 && fixedDimensionModels[model] {
		return nil, fmt.Errorf("embedding model %s only produces %d dimensions, got %d", model, native, dimensions)
	}
	if batchSize <= 0 {
		batchSize = defaultOpenAIBatchSize
	}
	clientConfig := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		clientConfig.BaseURL = baseURL
	}
	return &OpenAIEmbedder{
		client:      openai.NewClientWithConfig(clientConfig),
		model:       model,
		dimensions:  dimensions,
		requestDims: requestDims,
		batchSize:   batchSize,
	}, nil
}

// Embed returns the embedding of a single text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch embeds texts in requests of at most batchSize inputs and
// returns vectors in input order. Any failed request fails the whole call.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, errors.New("no texts provided for embedding")
	}
	out := make([][]float32, len(texts))
	for start := 0; start < len(texts); start += e.batchSize {
		end := start + e.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input:      texts[start:end],
			Model:      openai.EmbeddingModel(e.model),
			Dimensions: e.requestDims,
		})
		if err != nil {
			return nil, fmt.Errorf("create embeddings failed: %w", err)
		}
		if len(resp.Data) != end-start {
			return nil, fmt.Errorf("embedding response has %d vectors for %d inputs", len(resp.Data), end-start)
		}
		for _, d := range resp.Data {
			if d.Index < 0 || d.Index >= end-start {
				return nil, fmt.Errorf("embedding response index %d out of range", d.Index)
			}
			out[start+d.Index] = d.Embedding
		}
	}
	return out, nil
}

// Dimensions returns the embedding dimension.
func (e *OpenAIEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op; the HTTP client holds no resources that need releasing.
func (e *OpenAIEmbedder) Close() error {
	return nil
}
