// Copyright 2025 Archivemind Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package api serves the read-only chunk query and the online ingest
// trigger over HTTP. Reads never block on in-progress extraction:
// partially enriched chunks are returned with their per-stage status.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/archivemind/corpora/core"
	"github.com/archivemind/corpora/search"
	"github.com/archivemind/corpora/storage"
)

// Triggerer starts an ingestion run for a modality. It reports false
// when a run was already active and the request was coalesced.
type Triggerer interface {
	Trigger(ctx context.Context, modality core.Modality) (bool, error)
}

// Server is the corpora HTTP API.
type Server struct {
	httpServer *http.Server
	corpus     storage.CorpusStore
	chunks     storage.ChunkStore
	index      *search.Index
	trigger    Triggerer
	logger     *slog.Logger
}

// Option configures a Server.
type Option func(*serverConfig)

type serverConfig struct {
	index          *search.Index
	allowedOrigins []string
	timeout        time.Duration
	logger         *slog.Logger
}

// WithIndex enables free-text filtering via the q query parameter.
func WithIndex(index *search.Index) Option {
	return func(c *serverConfig) { c.index = index }
}

// WithAllowedOrigins sets the CORS origin allowlist.
// Default allows any origin.
func WithAllowedOrigins(origins []string) Option {
	return func(c *serverConfig) {
		if len(origins) > 0 {
			c.allowedOrigins = origins
		}
	}
}

// WithRequestTimeout sets the per-request timeout.
// Default is 60 seconds.
func WithRequestTimeout(timeout time.Duration) Option {
	return func(c *serverConfig) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *serverConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewServer builds the API server and wires all routes.
func NewServer(listen string, corpus storage.CorpusStore, chunks storage.ChunkStore, trigger Triggerer, opts ...Option) *Server {
	cfg := serverConfig{
		allowedOrigins: []string{"*"},
		timeout:        60 * time.Second,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	s := &Server{
		corpus:  corpus,
		chunks:  chunks,
		index:   cfg.index,
		trigger: trigger,
		logger:  cfg.logger.With("component", "api"),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.timeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", s.handleHealth)
	r.Route("/api", func(api chi.Router) {
		api.Post("/ingest/{modality}", s.handleIngest)
		api.Get("/chunks", s.handleQueryChunks)
		api.Get("/documents/{id}/chunks", s.handleDocumentChunks)
		api.Get("/archive/{modality}", s.handleArchive)
	})

	s.httpServer = &http.Server{
		Addr:    listen,
		Handler: r,
	}
	return s
}

// Handler exposes the route tree, used by tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start runs the HTTP server until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("http server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.httpServer.Shutdown(ctx)
}
