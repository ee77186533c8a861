package chunking

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archivemind/corpora/core"
)

func chunkableDocument(text string) *core.Document {
	return &core.Document{
		Id:          core.IDFromContent("https://example.org/posts/1"),
		Source:      "https://example.org/posts/1",
		Modality:    core.ModalityPost,
		ContentHash: core.HashContent(text),
		Text:        text,
		FetchedAt:   time.Now().UTC(),
		Version:     1,
	}
}

func TestNew_RejectsBadConfig(t *testing.T) {
	_, err := New(Config{TargetSize: 0, MaxSize: 10})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = New(Config{TargetSize: 100, MaxSize: 50})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestChunkDocument_SequenceAndIDs(t *testing.T) {
	chunker, err := New(Config{TargetSize: 40, MaxSize: 80})
	require.NoError(t, err)

	var sb strings.Builder
	for i := 0; i < 10; i++ {
		fmt.Fprintf(&sb, "Sentence number %d carries a few words. ", i)
	}
	doc := chunkableDocument(sb.String())

	chunks, err := chunker.ChunkDocument(doc)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.SequenceIndex)
		assert.Equal(t, core.ChunkIDFor(doc.Id, doc.Version, i), chunk.Id)
		assert.Equal(t, doc.Id, chunk.DocumentId)
		assert.Equal(t, doc.Version, chunk.DocumentVersion)
		assert.Equal(t, core.StagePending, chunk.Status.Topic)
		assert.False(t, chunk.Status.Complete())
		require.NoError(t, core.ValidateChunk(chunk))
	}
}

func TestChunkDocument_RoundTrip(t *testing.T) {
	chunker, err := New(Config{TargetSize: 50, MaxSize: 100})
	require.NoError(t, err)

	text := "First sentence here. Second one follows!\n\n" +
		"A new paragraph begins. It has two sentences? Yes, three actually. " +
		"And one more for good measure, slightly longer than the rest of them."
	doc := chunkableDocument(text)

	chunks, err := chunker.ChunkDocument(doc)
	require.NoError(t, err)

	var parts []string
	for _, chunk := range chunks {
		parts = append(parts, chunk.Text)
	}
	// Concatenation reconstructs the text modulo whitespace normalization.
	got := strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
	want := strings.Join(strings.Fields(text), " ")
	assert.Equal(t, want, got)
}

func TestChunkDocument_Deterministic(t *testing.T) {
	chunker, err := New(DefaultConfig())
	require.NoError(t, err)

	text := strings.Repeat("A reasonably sized sentence for splitting purposes. ", 100)
	doc := chunkableDocument(text)

	first, err := chunker.ChunkDocument(doc)
	require.NoError(t, err)
	second, err := chunker.ChunkDocument(doc)
	require.NoError(t, err)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].Id, second[i].Id)
		assert.Equal(t, first[i].Text, second[i].Text)
	}
}

func TestChunkDocument_RespectsMaxSize(t *testing.T) {
	chunker, err := New(Config{TargetSize: 30, MaxSize: 60})
	require.NoError(t, err)

	// One giant unbroken sentence forces hard truncation.
	doc := chunkableDocument(strings.Repeat("x", 250))

	chunks, err := chunker.ChunkDocument(doc)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, len([]rune(chunk.Text)), 60)
	}
}

func TestChunkDocument_ParagraphBoundaryPreferred(t *testing.T) {
	chunker, err := New(Config{TargetSize: 500, MaxSize: 1000})
	require.NoError(t, err)

	doc := chunkableDocument("Short first paragraph.\n\nShort second paragraph.")

	chunks, err := chunker.ChunkDocument(doc)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "Short first paragraph.", chunks[0].Text)
	assert.Equal(t, "Short second paragraph.", chunks[1].Text)
}
