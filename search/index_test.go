package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archivemind/corpora/core"
)

func newEnrichedChunk(id core.ID, topic, summary string, keyPhrases ...string) *core.Chunk {
	return &core.Chunk{
		Id:              id,
		DocumentId:      42,
		DocumentVersion: 1,
		Modality:        core.ModalityPost,
		Text:            "body text",
		Topic:           topic,
		Summary:         summary,
		KeyPhrases:      keyPhrases,
	}
}

func TestSearch_MatchesEnrichmentFields(t *testing.T) {
	idx, err := OpenMemory()
	require.NoError(t, err)
	defer idx.Close()

	require.NoError(t, idx.IndexChunks(
		newEnrichedChunk(1, "distributed systems", "Explains consensus protocols.", "raft", "leader election"),
		newEnrichedChunk(2, "gardening", "Covers soil preparation.", "compost"),
	))

	ids, err := idx.Search("consensus", 10)
	require.NoError(t, err)
	require.Len(t, ids, 1)
	assert.Equal(t, core.ID(1), ids[0])

	ids, err = idx.Search("compost", 10)
	require.NoError(t, err)
	require.Len(t, ids, 1)
	assert.Equal(t, core.ID(2), ids[0])
}

func TestIndexChunks_StaleChunkIsRemoved(t *testing.T) {
	idx, err := OpenMemory()
	require.NoError(t, err)
	defer idx.Close()

	chunk := newEnrichedChunk(7, "astronomy", "Describes exoplanet surveys.")
	require.NoError(t, idx.IndexChunks(chunk))

	ids, err := idx.Search("exoplanet", 10)
	require.NoError(t, err)
	require.Len(t, ids, 1)

	chunk.Stale = true
	require.NoError(t, idx.IndexChunks(chunk))

	ids, err = idx.Search("exoplanet", 10)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestDeleteChunks(t *testing.T) {
	idx, err := OpenMemory()
	require.NoError(t, err)
	defer idx.Close()

	require.NoError(t, idx.IndexChunks(newEnrichedChunk(3, "cooking", "Bread recipes.")))
	require.NoError(t, idx.DeleteChunks(3))

	count, err := idx.Count()
	require.NoError(t, err)
	assert.Zero(t, count)
}
