package library

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archivemind/corpora/core"
	"github.com/archivemind/corpora/source"
)

func TestFetch_ReadsBooksInPathOrder(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b_second-book.txt"), []byte("Second body."), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a_first_book.md"), []byte("First body."), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cover.png"), []byte{0x89}, 0644))

	adapter, err := New(dir)
	require.NoError(t, err)
	assert.Equal(t, core.ModalityBook, adapter.Modality())

	var docs []*source.RawDocument
	for doc, err := range adapter.Fetch(context.Background()) {
		require.NoError(t, err)
		docs = append(docs, doc)
	}

	require.Len(t, docs, 2)
	assert.Equal(t, "a first book", docs[0].Title)
	assert.Equal(t, "First body.", docs[0].Text)
	assert.Equal(t, "b second book", docs[1].Title)
}

func TestFetch_MissingDirectoryAborts(t *testing.T) {
	adapter, err := New(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)

	var runErr error
	for _, err := range adapter.Fetch(context.Background()) {
		runErr = err
	}
	var fetchErr *core.FetchError
	require.ErrorAs(t, runErr, &fetchErr)
	assert.Equal(t, core.ModalityBook, fetchErr.Modality)
}

func TestWatcher_TriggersOnNewBook(t *testing.T) {
	dir := t.TempDir()
	triggered := make(chan core.Modality, 1)

	watcher, err := NewWatcher(dir, func(ctx context.Context, m core.Modality) (bool, error) {
		select {
		case triggered <- m:
		default:
		}
		return true, nil
	}, 50*time.Millisecond)
	require.NoError(t, err)
	defer watcher.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	watcher.Start(ctx)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "new-book.txt"), []byte("text"), 0644))

	select {
	case m := <-triggered:
		assert.Equal(t, core.ModalityBook, m)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not trigger")
	}
}
