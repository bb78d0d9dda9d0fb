package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/hyperjump/kuchikomi/internal/models"
)

// statusConfigResponse holds configuration info returned by status.
type statusConfigResponse struct {
	EmbeddingProvider   string `json:"embedding_provider,omitempty"`
	EmbeddingModel      string `json:"embedding_model,omitempty"`
	EmbeddingDimensions int    `json:"embedding_dimensions,omitempty"`
	VisionModel         string `json:"vision_model,omitempty"`
	DefaultK            int    `json:"default_k,omitempty"`
	ReviewMismatch      string `json:"review_mismatch,omitempty"`
	DatabasePath        string `json:"database_path,omitempty"`
	VectorIndexPath     string `json:"vector_index_path,omitempty"`
}

// statusResponse is the shape of GET /api/v1/status response.
type statusResponse struct {
	Collection      string                `json:"collection"`
	Documents       int64                 `json:"documents"`
	VectorIndexSize int                   `json:"vector_index_size"`
	HistoryUsers    *int                  `json:"history_users,omitempty"`
	DiskUsageBytes  *int64                `json:"disk_usage_bytes,omitempty"`
	Config          *statusConfigResponse `json:"config,omitempty"`
}

type searchRequest struct {
	Query string `json:"query"`
	K     int    `json:"k,omitempty"`
}

func serverEndpoint(serverURL, path string) string {
	return strings.TrimRight(serverURL, "/") + path
}

func searchViaHTTP(serverURL, query string, k int) (*models.SearchResponse, error) {
	body, err := json.Marshal(searchRequest{Query: query, K: k})
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(serverEndpoint(serverURL, "/api/v1/search"), "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	var response models.SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &response, nil
}

func historyViaHTTP(serverURL, userID string) (*models.HistoryResponse, error) {
	endpoint := serverEndpoint(serverURL, "/api/v1/users/"+url.PathEscape(userID)+"/history")
	resp, err := http.Get(endpoint)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	var response models.HistoryResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &response, nil
}

func statusViaHTTP(serverURL string) (*statusResponse, error) {
	resp, err := http.Get(serverEndpoint(serverURL, "/api/v1/status"))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	var s statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &s, nil
}

func writeStatusText(w io.Writer, s *statusResponse) {
	fmt.Fprintf(w, "collection:         %s\n", s.Collection)
	fmt.Fprintf(w, "documents:          %d   # rows stored for the collection\n", s.Documents)
	fmt.Fprintf(w, "vector_index_size:  %d   # vectors held by the similarity index\n", s.VectorIndexSize)
	if s.HistoryUsers != nil {
		fmt.Fprintf(w, "history_users:      %d   # distinct users in the review dataset\n", *s.HistoryUsers)
	}
	if s.DiskUsageBytes != nil {
		fmt.Fprintf(w, "disk_usage_bytes:   %d   # database + vector index on disk\n", *s.DiskUsageBytes)
	}
	if c := s.Config; c != nil {
		fmt.Fprintln(w, "config:")
		fmt.Fprintf(w, "  embedding:        %s %s (%d dims)\n", c.EmbeddingProvider, c.EmbeddingModel, c.EmbeddingDimensions)
		fmt.Fprintf(w, "  vision_model:     %s\n", c.VisionModel)
		fmt.Fprintf(w, "  default_k:        %d\n", c.DefaultK)
		fmt.Fprintf(w, "  review_mismatch:  %s\n", c.ReviewMismatch)
		fmt.Fprintf(w, "  database_path:    %s\n", c.DatabasePath)
		fmt.Fprintf(w, "  vector_index:     %s\n", c.VectorIndexPath)
	}
}
