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
	"fmt"
	"log/slog"
	"time"

	"github.com/archivemind/corpora/core"
	"github.com/archivemind/corpora/storage"
)

// ReconcileResult describes the outcome of reconciling one fetch
// against the current snapshot.
type ReconcileResult struct {
	// Snapshot is the newly rotated current snapshot, nil when nothing
	// changed and no rotation happened.
	Snapshot *core.Snapshot

	// Accepted holds the newly accepted document versions.
	Accepted []*core.Document

	// Superseded identifies the document versions replaced by an
	// accepted version; their chunks must be flagged stale.
	Superseded []core.DocumentKey

	// Unchanged counts fetched documents rejected as already current.
	Unchanged int

	// Rotated reports whether a new current snapshot was installed.
	Rotated bool

	// Current holds the document keys of the effective current
	// snapshot after reconciliation, rotated or not. The coordinator
	// uses it to retry outstanding extraction stages.
	Current []core.DocumentKey
}

// versioner reconciles fetched documents against the current snapshot
// and performs atomic rotation when anything was accepted.
type versioner struct {
	corpus storage.CorpusStore
	logger *slog.Logger
}

func newVersioner(corpus storage.CorpusStore, logger *slog.Logger) (*versioner, error) {
	if corpus == nil {
		return nil, ErrCorpusStoreRequired
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &versioner{
		corpus: corpus,
		logger: logger.With("component", "versioner"),
	}, nil
}

// reconcile assigns versions to fetched documents by content hash,
// merges them with the current snapshot, and rotates atomically if any
// document was accepted. Unchanged documents are never rewritten; a
// run that accepts nothing rotates nothing. Documents present in the
// current snapshot but absent from the fetch are retained, so a source
// that temporarily omits an item does not drop it from the corpus.
func (v *versioner) reconcile(ctx context.Context, modality core.Modality, fetched []*core.Document) (*ReconcileResult, error) {
	current, err := v.corpus.GetCurrent(ctx, modality)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, &core.StoreError{Op: "get current snapshot", Err: err}
	}

	existing := make(map[core.ID]*core.Document)
	if current != nil {
		docs, err := v.corpus.GetDocuments(ctx, current.Documents...)
		if err != nil {
			return nil, &core.StoreError{Op: "load current documents", Err: err}
		}
		for _, doc := range docs {
			existing[doc.Id] = doc
		}
	}

	// Last write wins when one id appears more than once in a batch.
	order := make([]core.ID, 0, len(fetched))
	latest := make(map[core.ID]*core.Document, len(fetched))
	for _, doc := range fetched {
		if _, seen := latest[doc.Id]; !seen {
			order = append(order, doc.Id)
		}
		latest[doc.Id] = doc
	}

	result := &ReconcileResult{}
	keys := make([]core.DocumentKey, 0, len(existing)+len(order))
	if current != nil {
		keys = append(keys, current.Documents...)
	}

	for _, id := range order {
		doc := latest[id]
		prev, exists := existing[id]

		switch {
		case exists && prev.ContentHash == doc.ContentHash:
			result.Unchanged++
			continue
		case exists:
			doc.Version = prev.Version + 1
			result.Superseded = append(result.Superseded, prev.Key())
			for i, key := range keys {
				if key.DocumentId == id {
					keys[i] = doc.Key()
					break
				}
			}
		default:
			doc.Version = 1
			keys = append(keys, doc.Key())
		}

		result.Accepted = append(result.Accepted, doc)
	}

	if len(result.Accepted) == 0 {
		result.Current = keys
		v.logger.Debug("no changes detected, skipping rotation",
			"modality", string(modality), "unchanged", result.Unchanged)
		return result, nil
	}

	now := time.Now().UTC()
	snapshot := &core.Snapshot{
		Id:        core.SnapshotIDFor(modality, now),
		Modality:  modality,
		CreatedAt: now,
		Documents: keys,
	}

	if err := v.corpus.PutSnapshot(ctx, snapshot, result.Accepted, true); err != nil {
		return nil, &core.StoreError{Op: "rotate snapshot", Err: fmt.Errorf("modality %s: %w", modality, err)}
	}

	result.Snapshot = snapshot
	result.Rotated = true
	result.Current = keys
	return result, nil
}
