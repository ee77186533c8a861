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
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/panjf2000/ants/v2"

	"github.com/archivemind/corpora/ai"
	"github.com/archivemind/corpora/core"
	"github.com/archivemind/corpora/search"
	"github.com/archivemind/corpora/storage"
)

// extractor runs the four enrichment stages over chunks, fanning out
// across a worker pool and fanning back in before returning. Each
// stage is independently retryable: only pending and failed stages are
// invoked, done stages are never re-run.
type extractor struct {
	chunks     storage.ChunkStore
	index      *search.Index // nil disables free-text indexing
	topics     ai.TopicLabeler
	summaries  ai.Summarizer
	entities   ai.EntityRecognizer
	keyPhrases ai.KeyPhraseExtractor
	pool       *ants.Pool
	logger     *slog.Logger
}

func newExtractor(chunks storage.ChunkStore, provider ai.Provider, index *search.Index, pool *ants.Pool, logger *slog.Logger) (*extractor, error) {
	if chunks == nil {
		return nil, ErrChunkStoreRequired
	}
	if provider == nil {
		return nil, ErrProviderRequired
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &extractor{
		chunks:     chunks,
		index:      index,
		topics:     provider.TopicLabeler(),
		summaries:  provider.Summarizer(),
		entities:   provider.EntityRecognizer(),
		keyPhrases: provider.KeyPhraseExtractor(),
		pool:       pool,
		logger:     logger.With("component", "extractor"),
	}, nil
}

// process enriches the given chunks in parallel and persists each one
// as its stages settle. Stage failures are recorded on the chunk, not
// propagated; the returned count is the number of failed stage
// invocations across all chunks. Cancellation leaves unprocessed
// stages pending for a later retry.
func (e *extractor) process(ctx context.Context, chunks []*core.Chunk) (int, error) {
	var wg sync.WaitGroup
	var stageFailures atomic.Int64

	for _, chunk := range chunks {
		wg.Add(1)
		err := e.pool.Submit(func() {
			defer wg.Done()
			stageFailures.Add(int64(e.enrich(ctx, chunk)))
			if err := e.persist(ctx, chunk); err != nil {
				e.logger.Error("error persisting enriched chunk",
					"chunk", chunk.Id, "err", err)
			}
		})
		if err != nil {
			wg.Done()
			wg.Wait()
			return int(stageFailures.Load()), err
		}
	}

	wg.Wait()
	return int(stageFailures.Load()), nil
}

// enrich runs the outstanding stages of one chunk and returns the
// number of stages that failed this invocation.
func (e *extractor) enrich(ctx context.Context, chunk *core.Chunk) int {
	failures := 0
	run := func(stage string, status *core.StageStatus, apply func() error) {
		if *status == core.StageDone || ctx.Err() != nil {
			return
		}
		if err := apply(); err != nil {
			*status = core.StageFailed
			failures++
			stageErr := &core.StageError{Stage: stage, ChunkId: chunk.Id, Err: err}
			e.logger.Warn("extraction stage failed", "err", stageErr)
			return
		}
		*status = core.StageDone
	}

	run("topic", &chunk.Status.Topic, func() error {
		topic, err := e.topics.LabelTopic(ctx, chunk.Text)
		if err != nil {
			return err
		}
		chunk.Topic = topic
		return nil
	})

	run("summary", &chunk.Status.Summary, func() error {
		summary, err := e.summaries.Summarize(ctx, chunk.Text)
		if err != nil {
			return err
		}
		chunk.Summary = summary
		return nil
	})

	run("entities", &chunk.Status.Entities, func() error {
		entities, err := e.entities.RecognizeEntities(ctx, chunk.Text)
		if err != nil {
			return err
		}
		chunk.Entities = make([]core.Entity, len(entities))
		for i, entity := range entities {
			chunk.Entities[i] = core.Entity{Text: entity.Text, Type: entity.Type}
		}
		return nil
	})

	run("key_phrases", &chunk.Status.KeyPhrases, func() error {
		phrases, err := e.keyPhrases.ExtractKeyPhrases(ctx, chunk.Text)
		if err != nil {
			return err
		}
		chunk.KeyPhrases = phrases
		return nil
	})

	return failures
}

func (e *extractor) persist(ctx context.Context, chunk *core.Chunk) error {
	if err := e.chunks.PutChunks(ctx, chunk); err != nil {
		return &core.StoreError{Op: "put chunk", Err: err}
	}
	if e.index != nil {
		if err := e.index.IndexChunks(chunk); err != nil {
			return err
		}
	}
	return nil
}
