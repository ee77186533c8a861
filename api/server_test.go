package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archivemind/corpora/core"
	"github.com/archivemind/corpora/ingestion"
	"github.com/archivemind/corpora/search"
	"github.com/archivemind/corpora/storage"
	"github.com/archivemind/corpora/storage/badger"
)

type fakeTrigger struct {
	accepted bool
	err      error
	calls    int
}

func (f *fakeTrigger) Trigger(ctx context.Context, m core.Modality) (bool, error) {
	f.calls++
	return f.accepted, f.err
}

type apiFixture struct {
	server  *Server
	corpus  storage.CorpusStore
	chunks  storage.ChunkStore
	index   *search.Index
	trigger *fakeTrigger
}

func setupServer(t *testing.T) *apiFixture {
	t.Helper()
	corpus, chunks, backend, err := badger.NewMemoryStores()
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })

	index, err := search.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { index.Close() })

	trigger := &fakeTrigger{accepted: true}
	server := NewServer(":0", corpus, chunks, trigger, WithIndex(index))
	return &apiFixture{server: server, corpus: corpus, chunks: chunks, index: index, trigger: trigger}
}

func (fx *apiFixture) get(t *testing.T, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	fx.server.Handler().ServeHTTP(rec, req)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body
}

// seedDocument writes one document version with two chunks, the first
// fully enriched, the second still pending.
func (fx *apiFixture) seedDocument(t *testing.T, src string, version uint64) core.ID {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()

	doc := &core.Document{
		Id:          core.IDFromContent(src),
		Source:      src,
		Modality:    core.ModalityPost,
		ContentHash: core.HashContent(src + strconv.FormatUint(version, 10)),
		Text:        "First part. Second part.",
		FetchedAt:   now,
		Version:     version,
	}
	snapshot := &core.Snapshot{
		Id:        core.SnapshotIDFor(core.ModalityPost, now.Add(time.Duration(version)*time.Second)),
		Modality:  core.ModalityPost,
		CreatedAt: now,
		Documents: []core.DocumentKey{doc.Key()},
	}
	require.NoError(t, fx.corpus.PutSnapshot(ctx, snapshot, []*core.Document{doc}, true))

	enriched := &core.Chunk{
		Id:              core.ChunkIDFor(doc.Id, version, 0),
		DocumentId:      doc.Id,
		DocumentVersion: version,
		Modality:        core.ModalityPost,
		SequenceIndex:   0,
		Text:            "First part.",
		Topic:           "testing",
		Summary:         "A first part.",
		KeyPhrases:      []string{"first part"},
		Status: core.ExtractionStatus{
			Topic:      core.StageDone,
			Summary:    core.StageDone,
			Entities:   core.StageDone,
			KeyPhrases: core.StageDone,
		},
	}
	pending := &core.Chunk{
		Id:              core.ChunkIDFor(doc.Id, version, 1),
		DocumentId:      doc.Id,
		DocumentVersion: version,
		Modality:        core.ModalityPost,
		SequenceIndex:   1,
		Text:            "Second part.",
	}
	require.NoError(t, fx.chunks.PutChunks(ctx, enriched, pending))
	require.NoError(t, fx.index.IndexChunks(enriched))
	return doc.Id
}

func TestHandleIngest_TriggerContract(t *testing.T) {
	fx := setupServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/ingest/post", nil)
	rec := httptest.NewRecorder()
	fx.server.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Contains(t, rec.Body.String(), "accepted")

	fx.trigger.accepted = false
	rec = httptest.NewRecorder()
	fx.server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/ingest/post", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "already_running")

	rec = httptest.NewRecorder()
	fx.server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/ingest/podcast", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	fx.trigger.err = ingestion.ErrNoAdapter
	rec = httptest.NewRecorder()
	fx.server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/ingest/video", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleQueryChunks_ReturnsPartialEnrichment(t *testing.T) {
	fx := setupServer(t)
	docID := fx.seedDocument(t, "https://example.com/a", 1)

	rec, body := fx.get(t, fmt.Sprintf("/api/chunks?document_id=%d&modality=post", docID))
	require.Equal(t, http.StatusOK, rec.Code)

	chunks := body["chunks"].([]any)
	require.Len(t, chunks, 2)
	assert.Equal(t, float64(2), body["total"])
	assert.Equal(t, false, body["has_more"])
	assert.NotEmpty(t, body["last_updated"])

	first := chunks[0].(map[string]any)
	assert.Equal(t, "testing", first["topic"])
	status := first["extraction_status"].(map[string]any)
	assert.Equal(t, "done", status["topic"])

	// The pending chunk is served as-is, status pending, no error.
	second := chunks[1].(map[string]any)
	assert.Nil(t, second["topic"])
	status = second["extraction_status"].(map[string]any)
	assert.Equal(t, "pending", status["entities"])
}

func TestHandleQueryChunks_Pagination(t *testing.T) {
	fx := setupServer(t)
	docID := fx.seedDocument(t, "https://example.com/a", 1)

	rec, body := fx.get(t, fmt.Sprintf("/api/chunks?document_id=%d&limit=1", docID))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["chunks"].([]any), 1)
	assert.Equal(t, float64(2), body["total"])
	assert.Equal(t, true, body["has_more"])

	rec, _ = fx.get(t, "/api/chunks?offset=-1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleQueryChunks_FreeText(t *testing.T) {
	fx := setupServer(t)
	fx.seedDocument(t, "https://example.com/a", 1)

	rec, body := fx.get(t, "/api/chunks?q=testing")
	require.Equal(t, http.StatusOK, rec.Code)
	chunks := body["chunks"].([]any)
	require.Len(t, chunks, 1)
	assert.Equal(t, "testing", chunks[0].(map[string]any)["topic"])

	rec, body = fx.get(t, "/api/chunks?q=nomatch")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(0), body["total"])
}

func TestHandleDocumentChunks_VersionSelection(t *testing.T) {
	fx := setupServer(t)
	docID := fx.seedDocument(t, "https://example.com/a", 1)
	require.NoError(t, fx.chunks.MarkStale(context.Background(), docID, 1))
	fx.seedDocument(t, "https://example.com/a", 2)

	rec, body := fx.get(t, fmt.Sprintf("/api/documents/%d/chunks", docID))
	require.Equal(t, http.StatusOK, rec.Code)
	chunks := body["chunks"].([]any)
	require.Len(t, chunks, 2)
	assert.Equal(t, float64(2), chunks[0].(map[string]any)["document_version"])

	rec, body = fx.get(t, fmt.Sprintf("/api/documents/%d/chunks?version=1", docID))
	require.Equal(t, http.StatusOK, rec.Code)
	chunks = body["chunks"].([]any)
	require.Len(t, chunks, 2)
	first := chunks[0].(map[string]any)
	assert.Equal(t, float64(1), first["document_version"])
	assert.Equal(t, true, first["stale"])

	rec, _ = fx.get(t, "/api/documents/12345/chunks")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleArchive(t *testing.T) {
	fx := setupServer(t)
	fx.seedDocument(t, "https://example.com/a", 1)
	fx.seedDocument(t, "https://example.com/b", 1)

	rec, body := fx.get(t, "/api/archive/post")
	require.Equal(t, http.StatusOK, rec.Code)
	snapshots := body["snapshots"].([]any)
	require.Len(t, snapshots, 1)
	meta := snapshots[0].(map[string]any)
	assert.Equal(t, "post", meta["modality"])
	assert.NotEmpty(t, meta["archived_at"])
}

func TestHandleHealth(t *testing.T) {
	fx := setupServer(t)
	rec, body := fx.get(t, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
}
