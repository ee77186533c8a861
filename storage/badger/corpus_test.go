package badger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archivemind/corpora/core"
	"github.com/archivemind/corpora/storage"
)

func newTestDocument(source, text string, version uint64) *core.Document {
	return &core.Document{
		Id:          core.IDFromContent(source),
		Source:      source,
		Modality:    core.ModalityPost,
		Title:       "Test Post",
		ContentHash: core.HashContent(text),
		Text:        text,
		FetchedAt:   time.Now().UTC().Truncate(time.Microsecond),
		Version:     version,
	}
}

func newTestSnapshot(createdAt time.Time, docs ...*core.Document) *core.Snapshot {
	snap := &core.Snapshot{
		Id:        core.SnapshotIDFor(core.ModalityPost, createdAt),
		Modality:  core.ModalityPost,
		CreatedAt: createdAt,
	}
	for _, doc := range docs {
		snap.Documents = append(snap.Documents, doc.Key())
	}
	return snap
}

func TestGetCurrent_Empty(t *testing.T) {
	corpus, _, backend, err := NewMemoryStores()
	require.NoError(t, err)
	defer backend.Close()

	_, err = corpus.GetCurrent(context.Background(), core.ModalityPost)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestPutSnapshot_MakeCurrent(t *testing.T) {
	corpus, _, backend, err := NewMemoryStores()
	require.NoError(t, err)
	defer backend.Close()

	ctx := context.Background()
	doc := newTestDocument("https://example.org/posts/1", "first body", 1)
	snap := newTestSnapshot(time.Date(2025, 7, 1, 3, 0, 0, 0, time.UTC), doc)

	require.NoError(t, corpus.PutSnapshot(ctx, snap, []*core.Document{doc}, true))

	current, err := corpus.GetCurrent(ctx, core.ModalityPost)
	require.NoError(t, err)
	assert.Equal(t, snap.Id, current.Id)
	assert.True(t, current.ArchivedAt.IsZero())
	require.Len(t, current.Documents, 1)

	stored, err := corpus.GetDocument(ctx, doc.Id, 1)
	require.NoError(t, err)
	assert.Equal(t, doc.Text, stored.Text)

	archive, err := corpus.ListArchive(ctx, core.ModalityPost)
	require.NoError(t, err)
	assert.Empty(t, archive)
}

func TestPutSnapshot_RotatesPrevious(t *testing.T) {
	corpus, _, backend, err := NewMemoryStores()
	require.NoError(t, err)
	defer backend.Close()

	ctx := context.Background()
	docV1 := newTestDocument("https://example.org/posts/1", "first body", 1)
	snap1 := newTestSnapshot(time.Date(2025, 7, 1, 3, 0, 0, 0, time.UTC), docV1)
	require.NoError(t, corpus.PutSnapshot(ctx, snap1, []*core.Document{docV1}, true))

	docV2 := newTestDocument("https://example.org/posts/1", "revised body", 2)
	snap2 := newTestSnapshot(time.Date(2025, 7, 2, 3, 0, 0, 0, time.UTC), docV2)
	require.NoError(t, corpus.PutSnapshot(ctx, snap2, []*core.Document{docV2}, true))

	current, err := corpus.GetCurrent(ctx, core.ModalityPost)
	require.NoError(t, err)
	assert.Equal(t, snap2.Id, current.Id)

	archive, err := corpus.ListArchive(ctx, core.ModalityPost)
	require.NoError(t, err)
	require.Len(t, archive, 1)
	assert.Equal(t, snap1.Id, archive[0].Id)
	assert.False(t, archive[0].ArchivedAt.IsZero())

	// Both document versions remain retrievable.
	v1, err := corpus.GetDocument(ctx, docV1.Id, 1)
	require.NoError(t, err)
	assert.Equal(t, "first body", v1.Text)
	v2, err := corpus.GetDocument(ctx, docV2.Id, 2)
	require.NoError(t, err)
	assert.Equal(t, "revised body", v2.Text)
}

func TestListArchive_OrderedByCreation(t *testing.T) {
	corpus, _, backend, err := NewMemoryStores()
	require.NoError(t, err)
	defer backend.Close()

	ctx := context.Background()
	base := time.Date(2025, 7, 1, 3, 0, 0, 0, time.UTC)

	var ids []core.ID
	for day := 0; day < 3; day++ {
		doc := newTestDocument("https://example.org/posts/1", "body", uint64(day+1))
		snap := newTestSnapshot(base.AddDate(0, 0, day), doc)
		require.NoError(t, corpus.PutSnapshot(ctx, snap, []*core.Document{doc}, true))
		ids = append(ids, snap.Id)
	}

	archive, err := corpus.ListArchive(ctx, core.ModalityPost)
	require.NoError(t, err)
	require.Len(t, archive, 2)
	assert.Equal(t, ids[0], archive[0].Id)
	assert.Equal(t, ids[1], archive[1].Id)
}

func TestGetDocuments_SkipsMissing(t *testing.T) {
	corpus, _, backend, err := NewMemoryStores()
	require.NoError(t, err)
	defer backend.Close()

	ctx := context.Background()
	doc := newTestDocument("https://example.org/posts/1", "body", 1)
	snap := newTestSnapshot(time.Date(2025, 7, 1, 3, 0, 0, 0, time.UTC), doc)
	require.NoError(t, corpus.PutSnapshot(ctx, snap, []*core.Document{doc}, true))

	docs, err := corpus.GetDocuments(ctx,
		doc.Key(),
		core.DocumentKey{DocumentId: core.ID(999), Version: 1},
	)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, doc.Id, docs[0].Id)
}

func TestPutSnapshot_RejectsInvalidDocument(t *testing.T) {
	corpus, _, backend, err := NewMemoryStores()
	require.NoError(t, err)
	defer backend.Close()

	ctx := context.Background()
	doc := newTestDocument("https://example.org/posts/1", "body", 1)
	doc.Text = ""
	snap := newTestSnapshot(time.Date(2025, 7, 1, 3, 0, 0, 0, time.UTC), doc)

	err = corpus.PutSnapshot(ctx, snap, []*core.Document{doc}, true)
	assert.ErrorIs(t, err, core.ErrInvalidDocument)

	// Nothing was committed.
	_, err = corpus.GetCurrent(ctx, core.ModalityPost)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestPutSnapshot_FailedRotationKeepsPrevious(t *testing.T) {
	corpus, _, backend, err := NewMemoryStores()
	require.NoError(t, err)
	defer backend.Close()

	ctx := context.Background()
	docA := newTestDocument("https://example.org/posts/1", "first body", 1)
	snapA := newTestSnapshot(time.Date(2025, 7, 1, 3, 0, 0, 0, time.UTC), docA)
	require.NoError(t, corpus.PutSnapshot(ctx, snapA, []*core.Document{docA}, true))

	// Rotation to B fails partway: the second accepted document is
	// unusable, so no write of the batch may survive.
	docB1 := newTestDocument("https://example.org/posts/1", "revised body", 2)
	docB2 := newTestDocument("https://example.org/posts/2", "new body", 1)
	docB2.Text = ""
	snapB := newTestSnapshot(time.Date(2025, 7, 2, 3, 0, 0, 0, time.UTC), docB1, docB2)

	err = corpus.PutSnapshot(ctx, snapB, []*core.Document{docB1, docB2}, true)
	require.ErrorIs(t, err, core.ErrInvalidDocument)

	// A is still current, unarchived, and fully readable.
	current, err := corpus.GetCurrent(ctx, core.ModalityPost)
	require.NoError(t, err)
	assert.Equal(t, snapA.Id, current.Id)
	assert.True(t, current.ArchivedAt.IsZero())

	stored, err := corpus.GetDocument(ctx, docA.Id, 1)
	require.NoError(t, err)
	assert.Equal(t, "first body", stored.Text)

	// Nothing from the failed rotation leaked through.
	archive, err := corpus.ListArchive(ctx, core.ModalityPost)
	require.NoError(t, err)
	assert.Empty(t, archive)
	_, err = corpus.GetDocument(ctx, docB1.Id, 2)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
