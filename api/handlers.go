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


package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/archivemind/corpora/core"
	"github.com/archivemind/corpora/ingestion"
	"github.com/archivemind/corpora/storage"
)

// chunkProjection is the wire shape of one chunk. IDs are decimal
// strings: chunk IDs are 64-bit and would lose precision as JSON
// numbers.
type chunkProjection struct {
	Id               string           `json:"id"`
	DocumentId       string           `json:"document_id"`
	DocumentVersion  uint64           `json:"document_version"`
	SequenceIndex    int              `json:"sequence_index"`
	Text             string           `json:"text"`
	Topic            string           `json:"topic,omitempty"`
	Summary          string           `json:"summary,omitempty"`
	Entities         []entityWire     `json:"entities,omitempty"`
	KeyPhrases       []string         `json:"key_phrases,omitempty"`
	ExtractionStatus extractionStatus `json:"extraction_status"`
	Stale            bool             `json:"stale,omitempty"`
}

type entityWire struct {
	Text string `json:"text"`
	Type string `json:"type"`
}

type extractionStatus struct {
	Topic      string `json:"topic"`
	Summary    string `json:"summary"`
	Entities   string `json:"entities"`
	KeyPhrases string `json:"key_phrases"`
}

type chunkListResponse struct {
	Chunks      []chunkProjection `json:"chunks"`
	Total       int               `json:"total"`
	HasMore     bool              `json:"has_more"`
	LastUpdated *time.Time        `json:"last_updated,omitempty"`
}

type snapshotWire struct {
	Id            string     `json:"id"`
	Modality      string     `json:"modality"`
	CreatedAt     time.Time  `json:"created_at"`
	ArchivedAt    *time.Time `json:"archived_at,omitempty"`
	DocumentCount int        `json:"document_count"`
}

func projectChunk(chunk *core.Chunk) chunkProjection {
	entities := make([]entityWire, len(chunk.Entities))
	for i, entity := range chunk.Entities {
		entities[i] = entityWire{Text: entity.Text, Type: entity.Type}
	}
	return chunkProjection{
		Id:              strconv.FormatUint(uint64(chunk.Id), 10),
		DocumentId:      strconv.FormatUint(uint64(chunk.DocumentId), 10),
		DocumentVersion: chunk.DocumentVersion,
		SequenceIndex:   chunk.SequenceIndex,
		Text:            chunk.Text,
		Topic:           chunk.Topic,
		Summary:         chunk.Summary,
		Entities:        entities,
		KeyPhrases:      chunk.KeyPhrases,
		ExtractionStatus: extractionStatus{
			Topic:      chunk.Status.Topic.String(),
			Summary:    chunk.Status.Summary.String(),
			Entities:   chunk.Status.Entities.String(),
			KeyPhrases: chunk.Status.KeyPhrases.String(),
		},
		Stale: chunk.Stale,
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleIngest is the online ingest trigger: 202 when a run was
// started, 200 when one was already in progress.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	modality, err := core.ParseModality(chi.URLParam(r, "modality"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	accepted, err := s.trigger.Trigger(r.Context(), modality)
	if err != nil {
		if errors.Is(err, ingestion.ErrNoAdapter) {
			writeError(w, http.StatusNotFound, err)
			return
		}
		s.logger.Error("trigger failed", "modality", string(modality), "err", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	if !accepted {
		writeJSON(w, http.StatusOK, map[string]string{
			"status":   "already_running",
			"modality": string(modality),
		})
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{
		"status":   "accepted",
		"modality": string(modality),
	})
}

// handleQueryChunks serves the read-only chunk query. Filters:
// document_id, version, modality, q (free text over enrichment
// fields), include_stale, offset, limit.
func (s *Server) handleQueryChunks(w http.ResponseWriter, r *http.Request) {
	query, err := parseChunkQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var chunks []*core.Chunk
	var total int
	if q := r.URL.Query().Get("q"); q != "" {
		if s.index == nil {
			writeError(w, http.StatusBadRequest, errors.New("free-text search not enabled"))
			return
		}
		chunks, total, err = s.searchChunks(r, q, query)
	} else {
		chunks, total, err = s.chunks.Query(r.Context(), query)
	}
	if err != nil {
		if errors.Is(err, storage.ErrInvalidQuery) {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		s.logger.Error("chunk query failed", "err", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	resp := chunkListResponse{
		Chunks:  make([]chunkProjection, len(chunks)),
		Total:   total,
		HasMore: query.Offset+len(chunks) < total,
	}
	for i, chunk := range chunks {
		resp.Chunks[i] = projectChunk(chunk)
	}
	if last := s.lastUpdated(r, query.Modality); !last.IsZero() {
		resp.LastUpdated = &last
	}
	writeJSON(w, http.StatusOK, resp)
}

// searchChunks resolves a free-text query through the index, then
// loads and filters the matching chunks.
func (s *Server) searchChunks(r *http.Request, q string, query storage.ChunkQuery) ([]*core.Chunk, int, error) {
	ids, err := s.index.Search(q, storage.DefaultQueryLimit*20)
	if err != nil {
		return nil, 0, err
	}

	var matched []*core.Chunk
	for _, id := range ids {
		chunk, err := s.chunks.GetChunk(r.Context(), id)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, 0, err
		}
		if query.DocumentId != 0 && chunk.DocumentId != query.DocumentId {
			continue
		}
		if query.Modality != "" && chunk.Modality != query.Modality {
			continue
		}
		if chunk.Stale && !query.IncludeStale {
			continue
		}
		matched = append(matched, chunk)
	}

	total := len(matched)
	if query.Offset >= total {
		return nil, total, nil
	}
	matched = matched[query.Offset:]
	if len(matched) > query.Limit {
		matched = matched[:query.Limit]
	}
	return matched, total, nil
}

// lastUpdated reports when the modality's corpus last rotated.
func (s *Server) lastUpdated(r *http.Request, modality core.Modality) time.Time {
	if modality == "" {
		return time.Time{}
	}
	current, err := s.corpus.GetCurrent(r.Context(), modality)
	if err != nil {
		return time.Time{}
	}
	return current.CreatedAt
}

// handleDocumentChunks returns the ordered chunks of one document,
// latest version by default, an explicit (possibly stale) version via
// the version parameter.
func (s *Server) handleDocumentChunks(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid document id"))
		return
	}

	var version uint64
	if raw := r.URL.Query().Get("version"); raw != "" {
		version, err = strconv.ParseUint(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, errors.New("invalid version"))
			return
		}
	}

	var chunks []*core.Chunk
	if version == 0 {
		chunks, err = s.chunks.GetLatest(r.Context(), core.ID(id))
	} else {
		chunks, err = s.chunks.GetByDocument(r.Context(), core.ID(id), version)
	}
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, err)
			return
		}
		s.logger.Error("document chunks lookup failed", "document", id, "err", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if len(chunks) == 0 {
		writeError(w, http.StatusNotFound, storage.ErrNotFound)
		return
	}

	resp := chunkListResponse{
		Chunks: make([]chunkProjection, len(chunks)),
		Total:  len(chunks),
	}
	for i, chunk := range chunks {
		resp.Chunks[i] = projectChunk(chunk)
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleArchive lists archived snapshot metadata for a modality,
// oldest first.
func (s *Server) handleArchive(w http.ResponseWriter, r *http.Request) {
	modality, err := core.ParseModality(chi.URLParam(r, "modality"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	metas, err := s.corpus.ListArchive(r.Context(), modality)
	if err != nil {
		s.logger.Error("archive listing failed", "modality", string(modality), "err", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	wire := make([]snapshotWire, len(metas))
	for i, meta := range metas {
		wire[i] = snapshotWire{
			Id:            strconv.FormatUint(uint64(meta.Id), 10),
			Modality:      string(meta.Modality),
			CreatedAt:     meta.CreatedAt,
			DocumentCount: meta.DocumentCount,
		}
		if !meta.ArchivedAt.IsZero() {
			archivedAt := meta.ArchivedAt
			wire[i].ArchivedAt = &archivedAt
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"snapshots": wire})
}

func parseChunkQuery(r *http.Request) (storage.ChunkQuery, error) {
	values := r.URL.Query()
	query := storage.ChunkQuery{Limit: storage.DefaultQueryLimit}

	if raw := values.Get("document_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return query, errors.New("invalid document_id")
		}
		query.DocumentId = core.ID(id)
	}
	if raw := values.Get("version"); raw != "" {
		version, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return query, errors.New("invalid version")
		}
		query.DocumentVersion = version
	}
	if raw := values.Get("modality"); raw != "" {
		modality, err := core.ParseModality(raw)
		if err != nil {
			return query, err
		}
		query.Modality = modality
	}
	if raw := values.Get("include_stale"); raw != "" {
		query.IncludeStale = raw == "true" || raw == "1"
	}
	if raw := values.Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return query, errors.New("invalid offset")
		}
		query.Offset = offset
	}
	if raw := values.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			return query, errors.New("invalid limit")
		}
		query.Limit = limit
	}
	return query, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
