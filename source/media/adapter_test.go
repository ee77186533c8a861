package media

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archivemind/corpora/core"
	"github.com/archivemind/corpora/source"
)

// fakeTranscriber returns canned transcripts per file name.
type fakeTranscriber struct {
	transcripts map[string]string
	errs        map[string]error
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, name string, media io.Reader) (string, error) {
	if err := f.errs[name]; err != nil {
		return "", err
	}
	return f.transcripts[name], nil
}

func TestFetch_TranscribesAudioFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "episode-1.mp3"), []byte("fake"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip me"), 0644))

	adapter, err := NewAudio(dir, &fakeTranscriber{
		transcripts: map[string]string{"episode-1.mp3": "Spoken words."},
	})
	require.NoError(t, err)
	assert.Equal(t, core.ModalityAudio, adapter.Modality())

	var docs []*source.RawDocument
	for doc, err := range adapter.Fetch(context.Background()) {
		require.NoError(t, err)
		docs = append(docs, doc)
	}

	require.Len(t, docs, 1)
	assert.Equal(t, "Spoken words.", docs[0].Text)
	assert.Equal(t, "episode 1", docs[0].Title)
}

func TestFetch_TranscriptionFailureSkipsDocument(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.mp4"), []byte("fake"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.mp4"), []byte("fake"), 0644))

	adapter, err := NewVideo(dir, &fakeTranscriber{
		transcripts: map[string]string{"b.mp4": "Recovered speech."},
		errs:        map[string]error{"a.mp4": errors.New("model overloaded")},
	})
	require.NoError(t, err)

	var docs []*source.RawDocument
	var skipErrs []error
	for doc, err := range adapter.Fetch(context.Background()) {
		if err != nil {
			skipErrs = append(skipErrs, err)
			continue
		}
		docs = append(docs, doc)
	}

	require.Len(t, skipErrs, 1)
	var trErr *core.TranscriptionError
	require.ErrorAs(t, skipErrs[0], &trErr)
	assert.Contains(t, trErr.Source, "a.mp4")

	require.Len(t, docs, 1)
	assert.Equal(t, "Recovered speech.", docs[0].Text)
}

func TestNewAudio_Validation(t *testing.T) {
	_, err := NewAudio("", &fakeTranscriber{})
	assert.Error(t, err)

	_, err = NewAudio(t.TempDir(), nil)
	assert.Error(t, err)
}
