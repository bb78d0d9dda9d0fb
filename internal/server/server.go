// Package server provides the HTTP API for kuchikomi.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/kuchikomi/internal/config"
	"github.com/hyperjump/kuchikomi/internal/models"
	"github.com/hyperjump/kuchikomi/pkg/utils"
)

const requestTimeout = 5 * time.Minute

// SearchService answers similarity queries over the document collection.
type SearchService interface {
	Search(ctx context.Context, text string, k int) (*models.SearchResponse, error)
	Count(ctx context.Context) (int64, error)
	Size() int
	Collection() string
}

// HistoryService assembles enriched visit histories.
type HistoryService interface {
	Assemble(ctx context.Context, userID string) ([]models.EnrichedVisitRecord, error)
	Users() []string
}

// Server is the HTTP server for the kuchikomi API.
type Server struct {
	search  SearchService
	history HistoryService // nil when the review datasets are not loaded
	config  *config.Config
	logger  *zap.Logger
	server  *http.Server
}

// NewServer creates a server. history may be nil, in which case history routes answer 503.
func NewServer(search SearchService, history HistoryService, cfg *config.Config, logger *zap.Logger) *Server {
	return &Server{
		search:  search,
		history: history,
		config:  cfg,
		logger:  utils.OrNop(logger),
	}
}

// Handler returns the API router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(middleware.Compress(5))

	r.Get("/health", s.handleHealth)
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/search", s.handleSearch)
		r.Get("/users/{id}/history", s.handleHistory)
		r.Get("/status", s.handleStatus)
	})
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
