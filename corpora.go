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


// Package corpora assembles the ingestion service from its parts:
// stores, source adapters, enrichment provider, coordinator, scheduler,
// and HTTP API, all driven by one config.Config.
package corpora

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"

	"github.com/archivemind/corpora/ai"
	"github.com/archivemind/corpora/ai/openai"
	"github.com/archivemind/corpora/api"
	"github.com/archivemind/corpora/chunking"
	"github.com/archivemind/corpora/config"
	"github.com/archivemind/corpora/ingestion"
	"github.com/archivemind/corpora/scheduler"
	"github.com/archivemind/corpora/search"
	"github.com/archivemind/corpora/source"
	"github.com/archivemind/corpora/source/library"
	"github.com/archivemind/corpora/source/media"
	"github.com/archivemind/corpora/source/web"
	"github.com/archivemind/corpora/storage"
	"github.com/archivemind/corpora/storage/badger"
	"github.com/archivemind/corpora/transcribe"
)

// ErrNoSources is returned when the configuration enables no source at all.
var ErrNoSources = errors.New("no sources configured")

// Service is the assembled corpora ingestion service.
type Service struct {
	cfg         config.Config
	backend     *badger.Backend
	corpus      storage.CorpusStore
	chunks      storage.ChunkStore
	index       *search.Index
	provider    ai.Provider
	coordinator *ingestion.Coordinator
	scheduler   *scheduler.Scheduler
	server      *api.Server
	watcher     *library.Watcher
	logger      *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*serviceOptions)

type serviceOptions struct {
	provider ai.Provider
	logger   *slog.Logger
}

// WithProvider overrides the LLM enrichment provider, used by tests
// and offline deployments.
func WithProvider(provider ai.Provider) ServiceOption {
	return func(o *serviceOptions) { o.provider = provider }
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(o *serviceOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// NewService builds the service from configuration. Close must be
// called to release storage and pool resources.
func NewService(cfg config.Config, opts ...ServiceOption) (*Service, error) {
	options := serviceOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&options)
	}
	logger := options.logger

	adapters, watchDir, err := buildAdapters(cfg)
	if err != nil {
		return nil, err
	}
	if len(adapters) == 0 {
		return nil, ErrNoSources
	}

	corpus, chunks, backend, err := badger.NewStores(filepath.Join(cfg.DataDir, "db"))
	if err != nil {
		return nil, err
	}

	index, err := search.Open(filepath.Join(cfg.DataDir, "index.bleve"))
	if err != nil {
		backend.Close()
		return nil, err
	}

	provider := options.provider
	if provider == nil {
		provider, err = openai.NewProvider(ai.NewConfig(
			ai.WithHost(cfg.AI.Host),
			ai.WithModel(cfg.AI.Model),
			ai.WithMaxKeyPhrases(cfg.AI.MaxKeyPhrases),
			ai.WithSummarySentences(cfg.AI.SummarySentences),
		))
		if err != nil {
			index.Close()
			backend.Close()
			return nil, err
		}
	}

	chunker, err := chunking.New(cfg.Chunking)
	if err != nil {
		provider.Close()
		index.Close()
		backend.Close()
		return nil, err
	}

	coordinatorOpts := []ingestion.Option{
		ingestion.WithIndex(index),
		ingestion.WithLogger(logger),
	}
	if cfg.PoolSize > 0 {
		coordinatorOpts = append(coordinatorOpts, ingestion.WithPoolSize(cfg.PoolSize))
	}
	coordinator, err := ingestion.NewCoordinator(corpus, chunks, chunker, provider, adapters, coordinatorOpts...)
	if err != nil {
		provider.Close()
		index.Close()
		backend.Close()
		return nil, err
	}

	entries, err := cfg.ScheduleEntries()
	if err != nil {
		coordinator.Release()
		provider.Close()
		index.Close()
		backend.Close()
		return nil, err
	}
	var sched *scheduler.Scheduler
	if len(entries) > 0 {
		sched, err = scheduler.New(coordinator.Trigger, entries, scheduler.WithLogger(logger))
		if err != nil {
			coordinator.Release()
			provider.Close()
			index.Close()
			backend.Close()
			return nil, err
		}
	}

	var watcher *library.Watcher
	if watchDir != "" {
		watcher, err = library.NewWatcher(watchDir, coordinator.Trigger, 0)
		if err != nil {
			coordinator.Release()
			provider.Close()
			index.Close()
			backend.Close()
			return nil, err
		}
	}

	server := api.NewServer(cfg.API.Listen, corpus, chunks, coordinator,
		api.WithIndex(index),
		api.WithAllowedOrigins(cfg.API.AllowedOrigins),
		api.WithLogger(logger),
	)

	return &Service{
		cfg:         cfg,
		backend:     backend,
		corpus:      corpus,
		chunks:      chunks,
		index:       index,
		provider:    provider,
		coordinator: coordinator,
		scheduler:   sched,
		server:      server,
		watcher:     watcher,
		logger:      logger,
	}, nil
}

// buildAdapters creates one source adapter per configured source. The
// second return value is the book directory to watch, empty when the
// watcher is disabled.
func buildAdapters(cfg config.Config) ([]source.Adapter, string, error) {
	var adapters []source.Adapter
	var watchDir string

	if cfg.Sources.Posts.BaseURL != "" {
		posts, err := web.New(web.Config{
			BaseURL:      cfg.Sources.Posts.BaseURL,
			ListPath:     cfg.Sources.Posts.ListPath,
			ItemClass:    cfg.Sources.Posts.ItemClass,
			ContentClass: cfg.Sources.Posts.ContentClass,
			TagClass:     cfg.Sources.Posts.TagClass,
		})
		if err != nil {
			return nil, "", err
		}
		adapters = append(adapters, posts)
	}

	if cfg.Sources.Books.Dir != "" {
		books, err := library.New(cfg.Sources.Books.Dir)
		if err != nil {
			return nil, "", err
		}
		adapters = append(adapters, books)
		if cfg.Sources.Books.Watch {
			watchDir = cfg.Sources.Books.Dir
		}
	}

	if cfg.Sources.Audio.Dir != "" {
		client := transcribe.NewClient(cfg.Sources.Audio.TranscriberHost, cfg.Sources.Audio.TranscriberModel)
		audio, err := media.NewAudio(cfg.Sources.Audio.Dir, client)
		if err != nil {
			return nil, "", err
		}
		adapters = append(adapters, audio)
	}

	if cfg.Sources.Video.Dir != "" {
		client := transcribe.NewClient(cfg.Sources.Video.TranscriberHost, cfg.Sources.Video.TranscriberModel)
		video, err := media.NewVideo(cfg.Sources.Video.Dir, client)
		if err != nil {
			return nil, "", err
		}
		adapters = append(adapters, video)
	}

	return adapters, watchDir, nil
}

// Start begins the background scheduler and the library watcher.
func (s *Service) Start(ctx context.Context) {
	if s.scheduler != nil {
		s.scheduler.Start(ctx)
	}
	if s.watcher != nil {
		s.watcher.Start(ctx)
	}
}

// Serve runs the HTTP API until Shutdown is called. Blocks.
func (s *Service) Serve() error {
	return s.server.Start()
}

// Shutdown stops the HTTP server, the scheduler, and the watcher.
// In-flight runs finish in the background; call Close afterwards.
func (s *Service) Shutdown(ctx context.Context) error {
	err := s.server.Shutdown(ctx)
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
	if s.watcher != nil {
		if werr := s.watcher.Close(); werr != nil {
			s.logger.Error("error closing library watcher", "err", werr)
		}
	}
	return err
}

// Coordinator exposes the ingestion coordinator, used by the ingest
// CLI command for synchronous runs.
func (s *Service) Coordinator() *ingestion.Coordinator {
	return s.coordinator
}

// CorpusStore exposes the document store.
func (s *Service) CorpusStore() storage.CorpusStore {
	return s.corpus
}

// ChunkStore exposes the chunk store.
func (s *Service) ChunkStore() storage.ChunkStore {
	return s.chunks
}

// Close releases every resource the service holds.
func (s *Service) Close() error {
	s.coordinator.Release()

	if err := s.provider.Close(); err != nil {
		s.logger.Error("error closing AI provider", "err", err)
	}
	if err := s.index.Close(); err != nil {
		s.logger.Error("error closing search index", "err", err)
	}
	if err := s.backend.Close(); err != nil {
		s.logger.Error("error closing storage backend", "err", err)
		return err
	}
	return nil
}
