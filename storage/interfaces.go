package storage

import (
	"context"

	"github.com/archivemind/corpora/core"
)

// CorpusStore provides durable, versioned storage of documents grouped
// into per-modality snapshots. Implementations must be thread-safe and
// support concurrent access.
type CorpusStore interface {
	// GetCurrent returns the current snapshot for a modality.
	// Returns ErrNotFound if the modality has never been ingested.
	GetCurrent(ctx context.Context, modality core.Modality) (*core.Snapshot, error)

	// GetDocument retrieves one version of a document.
	// Returns ErrNotFound if that version doesn't exist.
	GetDocument(ctx context.Context, id core.ID, version uint64) (*core.Document, error)

	// GetDocuments retrieves the documents referenced by the given keys.
	// Returns only those that exist (no error for missing keys).
	GetDocuments(ctx context.Context, keys ...core.DocumentKey) ([]*core.Document, error)

	// PutSnapshot persists a snapshot and the newly accepted document
	// versions it introduces. With makeCurrent the previous current
	// snapshot (if any) is archived and the current pointer is swapped,
	// all within a single transaction: a concurrent reader observes
	// either the old snapshot or the new one, never a partial state.
	PutSnapshot(ctx context.Context, snapshot *core.Snapshot, accepted []*core.Document, makeCurrent bool) error

	// ListArchive returns archived snapshot metadata for a modality,
	// ordered by creation time (oldest first).
	ListArchive(ctx context.Context, modality core.Modality) ([]*core.SnapshotMeta, error)

	// Close closes the store and releases resources.
	Close() error
}

// ChunkQuery filters the read-only chunk query. Zero values mean
// "no constraint" except Limit, which defaults to DefaultQueryLimit.
type ChunkQuery struct {
	DocumentId      core.ID
	DocumentVersion uint64 // 0 = latest version only
	Modality        core.Modality
	IncludeStale    bool
	Offset          int
	Limit           int
}

// DefaultQueryLimit bounds unpaginated chunk queries.
const DefaultQueryLimit = 50

// ChunkStore provides durable keyed storage of chunks with a secondary
// index by owning document version. Concurrent upserts of different
// chunk IDs require no cross-chunk locking.
type ChunkStore interface {
	// PutChunks upserts chunks by ID, maintaining the document index
	// and the per-document latest-version pointer. Sets InsertedAt on
	// first write and UpdatedAt on every write.
	PutChunks(ctx context.Context, chunks ...*core.Chunk) error

	// GetChunk retrieves a single chunk by ID.
	// Returns ErrNotFound if it doesn't exist.
	GetChunk(ctx context.Context, id core.ID) (*core.Chunk, error)

	// GetByDocument returns all chunks of one document version ordered
	// by strictly increasing sequence index, including stale ones.
	GetByDocument(ctx context.Context, documentId core.ID, version uint64) ([]*core.Chunk, error)

	// GetLatest returns the chunks of the document's latest ingested
	// version, ordered by sequence index. Returns ErrNotFound if the
	// document has no chunks.
	GetLatest(ctx context.Context, documentId core.ID) ([]*core.Chunk, error)

	// MarkStale flags every chunk of one document version as stale.
	// Stale chunks stay retrievable by explicit version but drop out of
	// GetLatest and default queries.
	MarkStale(ctx context.Context, documentId core.ID, version uint64) error

	// Query returns chunks matching the filter plus the total match
	// count before offset/limit, for pagination. Never blocks on
	// in-progress extraction; partially enriched chunks are returned
	// as-is.
	Query(ctx context.Context, q ChunkQuery) ([]*core.Chunk, int, error)

	// Close closes the store and releases resources.
	Close() error
}
