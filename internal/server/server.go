// Package server provides the HTTP API for Toridasu.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/toridasu/internal/catalog"
	"github.com/hyperjump/toridasu/internal/config"
	"github.com/hyperjump/toridasu/internal/extract"
	"github.com/hyperjump/toridasu/internal/keyword"
	"github.com/hyperjump/toridasu/internal/serialize"
)

// Server is the HTTP server for the Toridasu API.
type Server struct {
	extractor  *extract.Extractor
	serializer *serialize.Serializer
	catalog    *catalog.Catalog
	index      *keyword.Index // nil when keyword search is disabled
	config     *config.ServerConfig
	logger     *zap.Logger
	server     *http.Server
}

// NewServer creates a server with the given dependencies. index may be nil.
func NewServer(
	extractor *extract.Extractor,
	serializer *serialize.Serializer,
	cat *catalog.Catalog,
	idx *keyword.Index,
	cfg *config.ServerConfig,
	logger *zap.Logger,
) *Server {
	return &Server{
		extractor:  extractor,
		serializer: serializer,
		catalog:    cat,
		index:      idx,
		config:     cfg,
		logger:     logger,
	}
}

// Router builds the chi router with all routes registered.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Post("/api/v1/extract", s.handleExtract)
	r.Get("/api/v1/records", s.handleListRecords)
	r.Get("/api/v1/records/{hash}", s.handleGetRecord)
	r.Get("/api/v1/search", s.handleSearch)
	r.Get("/api/v1/status", s.handleStatus)
	r.Get("/health", s.handleHealth)

	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Router(),
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
