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


// Package search maintains a bleve full-text index over chunk
// enrichment fields (topic, summary, key phrases). The index stores
// chunk IDs only; matching chunks are loaded from the chunk store.
package search

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/archivemind/corpora/core"
)

// Index wraps a bleve index over chunk enrichment fields.
type Index struct {
	index bleve.Index
}

// indexedChunk is the projection of a chunk kept in the index.
type indexedChunk struct {
	DocumentId string
	Modality   string
	Topic      string
	Summary    string
	KeyPhrases string
}

// Open opens or creates a bleve index at path.
func Open(path string) (*Index, error) {
	idx, err := bleve.Open(path)
	if err == bleve.ErrorIndexPathDoesNotExist {
		idx, err = bleve.New(path, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("create index: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	return &Index{index: idx}, nil
}

// OpenMemory creates an in-memory index, used by tests and by
// deployments that rebuild the index on startup.
func OpenMemory() (*Index, error) {
	idx, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("create index: %w", err)
	}
	return &Index{index: idx}, nil
}

func buildIndexMapping() mapping.IndexMapping {
	textFieldMapping := bleve.NewTextFieldMapping()
	textFieldMapping.Analyzer = "en"

	keywordFieldMapping := bleve.NewTextFieldMapping()

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("DocumentId", keywordFieldMapping)
	docMapping.AddFieldMappingsAt("Modality", keywordFieldMapping)
	docMapping.AddFieldMappingsAt("Topic", textFieldMapping)
	docMapping.AddFieldMappingsAt("Summary", textFieldMapping)
	docMapping.AddFieldMappingsAt("KeyPhrases", textFieldMapping)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.AddDocumentMapping("_default", docMapping)
	return indexMapping
}

// Close closes the index.
func (i *Index) Close() error {
	return i.index.Close()
}

// IndexChunks adds or updates chunks in the index. Stale chunks are
// removed instead, so free-text matches only ever surface the latest
// non-stale enrichment.
func (i *Index) IndexChunks(chunks ...*core.Chunk) error {
	batch := i.index.NewBatch()
	for _, chunk := range chunks {
		key := chunkKey(chunk.Id)
		if chunk.Stale {
			batch.Delete(key)
			continue
		}
		err := batch.Index(key, &indexedChunk{
			DocumentId: strconv.FormatUint(uint64(chunk.DocumentId), 10),
			Modality:   string(chunk.Modality),
			Topic:      chunk.Topic,
			Summary:    chunk.Summary,
			KeyPhrases: strings.Join(chunk.KeyPhrases, " "),
		})
		if err != nil {
			return fmt.Errorf("index chunk %d: %w", chunk.Id, err)
		}
	}
	if err := i.index.Batch(batch); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

// DeleteChunks removes chunks from the index.
func (i *Index) DeleteChunks(ids ...core.ID) error {
	batch := i.index.NewBatch()
	for _, id := range ids {
		batch.Delete(chunkKey(id))
	}
	if err := i.index.Batch(batch); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

// Search returns the IDs of chunks matching the query string, best
// score first. The query supports bleve query-string syntax (quotes,
// boolean operators, fuzzy ~).
func (i *Index) Search(queryStr string, limit int) ([]core.ID, error) {
	query := bleve.NewQueryStringQuery(queryStr)
	request := bleve.NewSearchRequestOptions(query, limit, 0, false)

	results, err := i.index.Search(request)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	ids := make([]core.ID, 0, len(results.Hits))
	for _, hit := range results.Hits {
		id, err := strconv.ParseUint(hit.ID, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, core.ID(id))
	}
	return ids, nil
}

// Count returns the number of indexed chunks.
func (i *Index) Count() (uint64, error) {
	return i.index.DocCount()
}

func chunkKey(id core.ID) string {
	return strconv.FormatUint(uint64(id), 10)
}
