package ingestion

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archivemind/corpora/core"
	"github.com/archivemind/corpora/source"
	"github.com/archivemind/corpora/storage"
	"github.com/archivemind/corpora/storage/badger"
)

func newFetchedDocument(t *testing.T, src, text string) *core.Document {
	t.Helper()
	doc, err := source.Normalize(&source.RawDocument{Source: src, Text: text}, core.ModalityPost)
	require.NoError(t, err)
	return doc
}

func setupVersioner(t *testing.T) (*versioner, storage.CorpusStore) {
	corpus, _, backend, err := badger.NewMemoryStores()
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })

	v, err := newVersioner(corpus, nil)
	require.NoError(t, err)
	return v, corpus
}

func TestReconcile_FirstRunAcceptsEverythingAsVersionOne(t *testing.T) {
	v, corpus := setupVersioner(t)
	ctx := context.Background()

	fetched := []*core.Document{
		newFetchedDocument(t, "https://example.com/a", "Body of a."),
		newFetchedDocument(t, "https://example.com/b", "Body of b."),
	}

	result, err := v.reconcile(ctx, core.ModalityPost, fetched)
	require.NoError(t, err)
	assert.True(t, result.Rotated)
	require.Len(t, result.Accepted, 2)
	assert.Equal(t, uint64(1), result.Accepted[0].Version)
	assert.Equal(t, uint64(1), result.Accepted[1].Version)
	assert.Empty(t, result.Superseded)

	current, err := corpus.GetCurrent(ctx, core.ModalityPost)
	require.NoError(t, err)
	assert.Len(t, current.Documents, 2)
}

func TestReconcile_UnchangedContentIsIdempotent(t *testing.T) {
	v, corpus := setupVersioner(t)
	ctx := context.Background()

	fetched := []*core.Document{newFetchedDocument(t, "https://example.com/a", "Same body.")}
	first, err := v.reconcile(ctx, core.ModalityPost, fetched)
	require.NoError(t, err)
	require.True(t, first.Rotated)

	refetched := []*core.Document{newFetchedDocument(t, "https://example.com/a", "Same body.")}
	second, err := v.reconcile(ctx, core.ModalityPost, refetched)
	require.NoError(t, err)

	assert.False(t, second.Rotated)
	assert.Nil(t, second.Snapshot)
	assert.Empty(t, second.Accepted)
	assert.Equal(t, 1, second.Unchanged)

	current, err := corpus.GetCurrent(ctx, core.ModalityPost)
	require.NoError(t, err)
	assert.Equal(t, first.Snapshot.Id, current.Id)

	archive, err := corpus.ListArchive(ctx, core.ModalityPost)
	require.NoError(t, err)
	assert.Empty(t, archive)
}

func TestReconcile_ChangedContentBumpsVersion(t *testing.T) {
	v, corpus := setupVersioner(t)
	ctx := context.Background()

	_, err := v.reconcile(ctx, core.ModalityPost,
		[]*core.Document{newFetchedDocument(t, "https://example.com/a", "Original body.")})
	require.NoError(t, err)

	result, err := v.reconcile(ctx, core.ModalityPost,
		[]*core.Document{newFetchedDocument(t, "https://example.com/a", "Revised body.")})
	require.NoError(t, err)

	require.Len(t, result.Accepted, 1)
	assert.Equal(t, uint64(2), result.Accepted[0].Version)
	require.Len(t, result.Superseded, 1)
	assert.Equal(t, uint64(1), result.Superseded[0].Version)

	id := result.Accepted[0].Id
	v1, err := corpus.GetDocument(ctx, id, 1)
	require.NoError(t, err)
	assert.Equal(t, "Original body.", v1.Text)
	v2, err := corpus.GetDocument(ctx, id, 2)
	require.NoError(t, err)
	assert.Equal(t, "Revised body.", v2.Text)

	archive, err := corpus.ListArchive(ctx, core.ModalityPost)
	require.NoError(t, err)
	assert.Len(t, archive, 1)
}

func TestReconcile_LastWriteWinsWithinBatch(t *testing.T) {
	v, _ := setupVersioner(t)
	ctx := context.Background()

	fetched := []*core.Document{
		newFetchedDocument(t, "https://example.com/a", "First fetch."),
		newFetchedDocument(t, "https://example.com/a", "Refetched mid-run."),
	}

	result, err := v.reconcile(ctx, core.ModalityPost, fetched)
	require.NoError(t, err)
	require.Len(t, result.Accepted, 1)
	assert.Equal(t, "Refetched mid-run.", result.Accepted[0].Text)
	assert.Equal(t, uint64(1), result.Accepted[0].Version)
}

func TestReconcile_RetainsDocumentsAbsentFromFetch(t *testing.T) {
	v, corpus := setupVersioner(t)
	ctx := context.Background()

	_, err := v.reconcile(ctx, core.ModalityPost, []*core.Document{
		newFetchedDocument(t, "https://example.com/a", "Body of a."),
		newFetchedDocument(t, "https://example.com/b", "Body of b."),
	})
	require.NoError(t, err)

	// A later fetch that omits b but changes a must keep b current.
	result, err := v.reconcile(ctx, core.ModalityPost, []*core.Document{
		newFetchedDocument(t, "https://example.com/a", "Changed a."),
	})
	require.NoError(t, err)
	require.True(t, result.Rotated)

	current, err := corpus.GetCurrent(ctx, core.ModalityPost)
	require.NoError(t, err)
	assert.Len(t, current.Documents, 2)
}
