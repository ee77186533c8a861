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


package ingestion

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/archivemind/corpora/ai"
	"github.com/archivemind/corpora/chunking"
	"github.com/archivemind/corpora/core"
	"github.com/archivemind/corpora/search"
	"github.com/archivemind/corpora/source"
	"github.com/archivemind/corpora/storage"
)

// RunStats summarizes one completed ingestion run.
type RunStats struct {
	Modality      core.Modality
	Fetched       int // documents yielded by the adapter
	Accepted      int // new document versions persisted
	Unchanged     int // documents rejected as already current
	Failed        int // per-item fetch/normalize/transcription failures
	Chunks        int // chunks produced from accepted documents
	StageFailures int // failed stage invocations during extraction
	Rotated       bool
	Started       time.Time
	Finished      time.Time
}

// Coordinator orchestrates one ingestion run per modality: fetch,
// reconcile, rotate, chunk, extract. At most one run per modality is
// active at any instant; runs for different modalities proceed
// independently.
type Coordinator struct {
	versioner *versioner
	extractor *extractor
	chunks    storage.ChunkStore
	chunker   *chunking.Chunker
	adapters  map[core.Modality]source.Adapter
	pool      *ants.Pool
	index     *search.Index
	logger    *slog.Logger

	mu      sync.Mutex
	running map[core.Modality]bool
}

// Option configures a Coordinator.
type Option func(*coordinatorConfig)

type coordinatorConfig struct {
	poolSize int
	index    *search.Index
	logger   *slog.Logger
}

// WithPoolSize sets the extraction worker pool size.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(c *coordinatorConfig) {
		if size < 1 {
			size = 1
		}
		c.poolSize = size
	}
}

// WithIndex sets the free-text index kept in sync with chunk upserts.
func WithIndex(index *search.Index) Option {
	return func(c *coordinatorConfig) {
		c.index = index
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *coordinatorConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewCoordinator creates a coordinator over the given stores, chunker,
// enrichment provider, and source adapters.
func NewCoordinator(
	corpus storage.CorpusStore,
	chunks storage.ChunkStore,
	chunker *chunking.Chunker,
	provider ai.Provider,
	adapters []source.Adapter,
	opts ...Option,
) (*Coordinator, error) {
	if chunks == nil {
		return nil, ErrChunkStoreRequired
	}
	if chunker == nil {
		return nil, ErrChunkerRequired
	}

	cfg := coordinatorConfig{
		poolSize: max(runtime.NumCPU()/2, 1),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	vers, err := newVersioner(corpus, cfg.logger)
	if err != nil {
		return nil, err
	}

	pool, err := ants.NewPool(cfg.poolSize)
	if err != nil {
		return nil, err
	}

	extr, err := newExtractor(chunks, provider, cfg.index, pool, cfg.logger)
	if err != nil {
		pool.Release()
		return nil, err
	}

	byModality := make(map[core.Modality]source.Adapter, len(adapters))
	for _, adapter := range adapters {
		byModality[adapter.Modality()] = adapter
	}

	return &Coordinator{
		versioner: vers,
		extractor: extr,
		chunks:    chunks,
		chunker:   chunker,
		adapters:  byModality,
		pool:      pool,
		index:     cfg.index,
		logger:    cfg.logger.With("component", "coordinator"),
		running:   make(map[core.Modality]bool),
	}, nil
}

// Trigger requests an ingestion run for a modality. If the modality is
// idle the run starts in the background and Trigger returns true; a
// trigger arriving while a run is active is coalesced into a no-op and
// Trigger returns false. Run errors are logged, not returned.
func (c *Coordinator) Trigger(ctx context.Context, modality core.Modality) (bool, error) {
	if _, ok := c.adapters[modality]; !ok {
		return false, ErrNoAdapter
	}
	if !c.begin(modality) {
		return false, nil
	}

	go func() {
		defer c.end(modality)
		if _, err := c.run(context.WithoutCancel(ctx), modality); err != nil {
			c.logger.Error("ingestion run failed", "modality", string(modality), "err", err)
		}
	}()
	return true, nil
}

// Run executes an ingestion run synchronously and returns its stats.
// Returns ErrRunInProgress if the modality already has an active run.
func (c *Coordinator) Run(ctx context.Context, modality core.Modality) (*RunStats, error) {
	if _, ok := c.adapters[modality]; !ok {
		return nil, ErrNoAdapter
	}
	if !c.begin(modality) {
		return nil, ErrRunInProgress
	}
	defer c.end(modality)
	return c.run(ctx, modality)
}

// Running reports whether a run is active for the modality.
func (c *Coordinator) Running(modality core.Modality) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running[modality]
}

// Release stops the extraction worker pool. Active runs must finish
// before Release is called.
func (c *Coordinator) Release() {
	c.pool.Release()
}

func (c *Coordinator) begin(modality core.Modality) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running[modality] {
		return false
	}
	c.running[modality] = true
	return true
}

func (c *Coordinator) end(modality core.Modality) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running[modality] = false
}

func (c *Coordinator) run(ctx context.Context, modality core.Modality) (*RunStats, error) {
	stats := &RunStats{Modality: modality, Started: time.Now().UTC()}
	logger := c.logger.With("modality", string(modality))
	logger.Info("ingestion run started")

	fetched, err := c.fetch(ctx, modality, stats, logger)
	if err != nil {
		return stats, err
	}
	if err := ctx.Err(); err != nil {
		return stats, err
	}

	result, err := c.versioner.reconcile(ctx, modality, fetched)
	if err != nil {
		return stats, err
	}
	stats.Accepted = len(result.Accepted)
	stats.Unchanged = result.Unchanged
	stats.Rotated = result.Rotated

	if result.Rotated {
		c.flagSuperseded(ctx, result.Superseded, logger)
	}
	if err := ctx.Err(); err != nil {
		return stats, err
	}

	var pending []*core.Chunk
	accepted := make(map[core.DocumentKey]bool, len(result.Accepted))
	for _, doc := range result.Accepted {
		accepted[doc.Key()] = true
		chunks, err := c.chunker.ChunkDocument(doc)
		if err != nil {
			logger.Warn("chunking failed, document skipped",
				"document", doc.Id, "version", doc.Version, "err", err)
			stats.Failed++
			continue
		}
		// Persist pending chunks up front so extraction can resume
		// after a crash without re-chunking.
		if err := c.chunks.PutChunks(ctx, chunks...); err != nil {
			return stats, &core.StoreError{Op: "put chunks", Err: err}
		}
		pending = append(pending, chunks...)
	}
	stats.Chunks = len(pending)

	// Re-enqueue current-version chunks whose extraction never settled:
	// only their pending and failed stages run again.
	pending = append(pending, c.incomplete(ctx, result.Current, accepted, logger)...)

	stageFailures, err := c.extractor.process(ctx, pending)
	stats.StageFailures = stageFailures
	if err != nil {
		return stats, err
	}

	stats.Finished = time.Now().UTC()
	logger.Info("ingestion run complete",
		"fetched", stats.Fetched,
		"accepted", stats.Accepted,
		"unchanged", stats.Unchanged,
		"failed", stats.Failed,
		"chunks", stats.Chunks,
		"stage_failures", stats.StageFailures,
		"rotated", stats.Rotated,
		"elapsed", stats.Finished.Sub(stats.Started))
	return stats, nil
}

// fetch drains the adapter sequence, normalizing raw documents.
// Per-item failures are counted and skipped; a *core.FetchError aborts
// the run with the corpus untouched.
func (c *Coordinator) fetch(ctx context.Context, modality core.Modality, stats *RunStats, logger *slog.Logger) ([]*core.Document, error) {
	adapter := c.adapters[modality]

	var docs []*core.Document
	for raw, err := range adapter.Fetch(ctx) {
		if err != nil {
			var fetchErr *core.FetchError
			if errors.As(err, &fetchErr) {
				return nil, fetchErr
			}
			logger.Warn("item fetch failed, skipping", "err", err)
			stats.Failed++
			continue
		}
		stats.Fetched++

		doc, err := source.Normalize(raw, modality)
		if err != nil {
			logger.Warn("normalization failed, skipping",
				"source", raw.Source, "err", err)
			stats.Failed++
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// incomplete returns chunks of current document versions with at least
// one stage still pending or failed, excluding documents chunked this
// run. A current version with no chunks at all is rebuilt: a run
// interrupted between snapshot rotation and chunk persistence commits
// the version but never chunks it, and the dedup pass will reject the
// unchanged content forever after.
func (c *Coordinator) incomplete(ctx context.Context, current []core.DocumentKey, accepted map[core.DocumentKey]bool, logger *slog.Logger) []*core.Chunk {
	var retry []*core.Chunk
	for _, key := range current {
		if accepted[key] {
			continue
		}
		chunks, err := c.chunks.GetByDocument(ctx, key.DocumentId, key.Version)
		if err != nil {
			logger.Warn("error loading chunks for stage retry",
				"document", key.DocumentId, "version", key.Version, "err", err)
			continue
		}
		if len(chunks) == 0 {
			retry = append(retry, c.rechunk(ctx, key, logger)...)
			continue
		}
		for _, chunk := range chunks {
			if !chunk.Status.Done() && !chunk.Stale {
				retry = append(retry, chunk)
			}
		}
	}
	return retry
}

// rechunk rebuilds and persists the chunks of one committed document
// version. The chunker is deterministic, so chunk IDs come out the
// same as they would have in the interrupted run.
func (c *Coordinator) rechunk(ctx context.Context, key core.DocumentKey, logger *slog.Logger) []*core.Chunk {
	doc, err := c.versioner.corpus.GetDocument(ctx, key.DocumentId, key.Version)
	if err != nil {
		logger.Error("error loading document for re-chunking",
			"document", key.DocumentId, "version", key.Version, "err", err)
		return nil
	}
	chunks, err := c.chunker.ChunkDocument(doc)
	if err != nil {
		logger.Error("re-chunking failed",
			"document", key.DocumentId, "version", key.Version, "err", err)
		return nil
	}
	if err := c.chunks.PutChunks(ctx, chunks...); err != nil {
		logger.Error("error persisting rebuilt chunks",
			"document", key.DocumentId, "version", key.Version, "err", err)
		return nil
	}
	logger.Info("rebuilt missing chunks for current document version",
		"document", key.DocumentId, "version", key.Version, "chunks", len(chunks))
	return chunks
}

// flagSuperseded marks the chunks of replaced document versions stale
// and drops them from the free-text index. Failures here are logged,
// not fatal: the rotation has already committed.
func (c *Coordinator) flagSuperseded(ctx context.Context, superseded []core.DocumentKey, logger *slog.Logger) {
	for _, key := range superseded {
		if err := c.chunks.MarkStale(ctx, key.DocumentId, key.Version); err != nil {
			logger.Error("error flagging stale chunks",
				"document", key.DocumentId, "version", key.Version, "err", err)
			continue
		}
		if c.index == nil {
			continue
		}
		stale, err := c.chunks.GetByDocument(ctx, key.DocumentId, key.Version)
		if err != nil {
			logger.Error("error loading stale chunks for index removal",
				"document", key.DocumentId, "version", key.Version, "err", err)
			continue
		}
		ids := make([]core.ID, len(stale))
		for i, chunk := range stale {
			ids[i] = chunk.Id
		}
		if err := c.index.DeleteChunks(ids...); err != nil {
			logger.Error("error removing stale chunks from index", "err", err)
		}
	}
}
