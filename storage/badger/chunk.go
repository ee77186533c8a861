package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/archivemind/corpora/core"
	"github.com/archivemind/corpora/storage"
)

// ChunkRepository implements storage.ChunkStore for BadgerDB.
type ChunkRepository struct {
	backend *Backend
}

var _ storage.ChunkStore = (*ChunkRepository)(nil)

// NewChunkRepository creates a new ChunkRepository.
func NewChunkRepository(backend *Backend) *ChunkRepository {
	return &ChunkRepository{backend: backend}
}

// Close is a no-op; the backend owns the database handle.
func (r *ChunkRepository) Close() error {
	return nil
}

// PutChunks upserts chunks by ID. Maintains the per-document index and
// advances the latest-version pointer when a newer version arrives.
func (r *ChunkRepository) PutChunks(ctx context.Context, chunks ...*core.Chunk) error {
	for _, chunk := range chunks {
		if err := core.ValidateChunk(chunk); err != nil {
			return err
		}
	}

	return r.backend.WithTx(func(tx *badger.Txn) error {
		now := time.Now().UTC()
		for _, chunk := range chunks {
			key := makeChunkKey(chunk.Id)

			old, err := readChunk(tx, key)
			if err != nil {
				return err
			}
			if old != nil {
				chunk.InsertedAt = old.InsertedAt
			} else {
				chunk.InsertedAt = now
			}
			chunk.UpdatedAt = now

			if err := tx.Set(key, storage.MarshalChunk(chunk)); err != nil {
				return err
			}

			indexKey := makeChunkDocumentKey(chunk.DocumentId, chunk.DocumentVersion, chunk.SequenceIndex)
			if err := tx.Set(indexKey, storage.MarshalID(chunk.Id)); err != nil {
				return err
			}

			if err := r.advanceLatest(tx, chunk.DocumentId, chunk.DocumentVersion); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// GetChunk retrieves a single chunk by ID.
func (r *ChunkRepository) GetChunk(ctx context.Context, id core.ID) (*core.Chunk, error) {
	var result *core.Chunk
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readChunk(tx, makeChunkKey(id))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// GetByDocument returns all chunks of one document version ordered by
// sequence index, stale ones included.
func (r *ChunkRepository) GetByDocument(ctx context.Context, documentId core.ID, version uint64) ([]*core.Chunk, error) {
	var results []*core.Chunk
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		results, err = collectByDocument(tx, documentId, version)
		return err
	}, false)
	return results, err
}

// GetLatest returns the non-stale chunks of the document's latest
// ingested version, ordered by sequence index.
func (r *ChunkRepository) GetLatest(ctx context.Context, documentId core.ID) ([]*core.Chunk, error) {
	var results []*core.Chunk
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		version, err := readLatestVersion(tx, documentId)
		if err != nil {
			return err
		}
		chunks, err := collectByDocument(tx, documentId, version)
		if err != nil {
			return err
		}
		for _, chunk := range chunks {
			if !chunk.Stale {
				results = append(results, chunk)
			}
		}
		return nil
	}, false)
	return results, err
}

// MarkStale flags every chunk of one document version as stale.
func (r *ChunkRepository) MarkStale(ctx context.Context, documentId core.ID, version uint64) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		chunks, err := collectByDocument(tx, documentId, version)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		for _, chunk := range chunks {
			if chunk.Stale {
				continue
			}
			chunk.Stale = true
			chunk.UpdatedAt = now
			if err := tx.Set(makeChunkKey(chunk.Id), storage.MarshalChunk(chunk)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// Query returns chunks matching the filter plus the total match count
// before offset and limit are applied.
func (r *ChunkRepository) Query(ctx context.Context, q storage.ChunkQuery) ([]*core.Chunk, int, error) {
	if q.Offset < 0 || q.Limit < 0 {
		return nil, 0, fmt.Errorf("%w: negative offset or limit", storage.ErrInvalidQuery)
	}
	limit := q.Limit
	if limit == 0 {
		limit = storage.DefaultQueryLimit
	}

	var matched []*core.Chunk
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		if q.DocumentId != 0 {
			matched, err = r.queryByDocument(tx, q)
		} else {
			matched, err = r.queryScan(tx, q)
		}
		return err
	}, false)
	if err != nil {
		return nil, 0, err
	}

	total := len(matched)
	if q.Offset >= total {
		return nil, total, nil
	}
	matched = matched[q.Offset:]
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, total, nil
}

// queryByDocument resolves a single-document query through the
// per-document index.
func (r *ChunkRepository) queryByDocument(tx *badger.Txn, q storage.ChunkQuery) ([]*core.Chunk, error) {
	version := q.DocumentVersion
	if version == 0 {
		var err error
		version, err = readLatestVersion(tx, q.DocumentId)
		if err != nil {
			if err == storage.ErrNotFound {
				return nil, nil
			}
			return nil, err
		}
	}

	chunks, err := collectByDocument(tx, q.DocumentId, version)
	if err != nil {
		return nil, err
	}

	var matched []*core.Chunk
	for _, chunk := range chunks {
		if chunkMatches(tx, chunk, q) {
			matched = append(matched, chunk)
		}
	}
	return matched, nil
}

// queryScan walks all chunk records. Chunks of superseded versions are
// excluded unless the query opts into stale results.
func (r *ChunkRepository) queryScan(tx *badger.Txn, q storage.ChunkQuery) ([]*core.Chunk, error) {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(chunkPrefix + ":")
	iter := tx.NewIterator(opts)
	defer iter.Close()

	var matched []*core.Chunk
	for iter.Rewind(); iter.Valid(); iter.Next() {
		var chunk *core.Chunk
		if err := iter.Item().Value(func(val []byte) error {
			var unmarshalErr error
			chunk, unmarshalErr = storage.UnmarshalChunk(val)
			return unmarshalErr
		}); err != nil {
			return nil, err
		}
		if chunk == nil {
			continue
		}
		if chunkMatches(tx, chunk, q) {
			matched = append(matched, chunk)
		}
	}
	return matched, nil
}

// chunkMatches applies the query filter to one chunk.
func chunkMatches(tx *badger.Txn, chunk *core.Chunk, q storage.ChunkQuery) bool {
	if q.Modality != "" && chunk.Modality != q.Modality {
		return false
	}
	if q.IncludeStale {
		return true
	}
	if chunk.Stale {
		return false
	}
	// Without an explicit version, only the latest version of each
	// document participates.
	if q.DocumentVersion == 0 {
		latest, err := readLatestVersion(tx, chunk.DocumentId)
		if err != nil || chunk.DocumentVersion != latest {
			return false
		}
	}
	return true
}

// advanceLatest moves the latest-version pointer forward, never back.
func (r *ChunkRepository) advanceLatest(tx *badger.Txn, documentId core.ID, version uint64) error {
	current, err := readLatestVersion(tx, documentId)
	if err != nil && err != storage.ErrNotFound {
		return err
	}
	if err == nil && current >= version {
		return nil
	}
	return tx.Set(makeChunkLatestKey(documentId), encodeVersion(version))
}

// Helper methods

// readLatestVersion reads the latest-version pointer for a document.
func readLatestVersion(tx *badger.Txn, documentId core.ID) (uint64, error) {
	item, err := tx.Get(makeChunkLatestKey(documentId))
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return 0, storage.ErrNotFound
		}
		return 0, err
	}
	var version uint64
	err = item.Value(func(val []byte) error {
		var decodeErr error
		version, decodeErr = decodeVersion(val)
		return decodeErr
	})
	return version, err
}

// collectByDocument loads the chunks of one document version through
// the index, ordered by sequence index.
func collectByDocument(tx *badger.Txn, documentId core.ID, version uint64) ([]*core.Chunk, error) {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = makeChunkDocumentPrefix(documentId, version)
	iter := tx.NewIterator(opts)
	defer iter.Close()

	var results []*core.Chunk
	for iter.Rewind(); iter.Valid(); iter.Next() {
		var id core.ID
		if err := iter.Item().Value(func(val []byte) error {
			var err error
			id, err = storage.UnmarshalID(val)
			return err
		}); err != nil {
			return nil, err
		}

		chunk, err := readChunk(tx, makeChunkKey(id))
		if err != nil {
			return nil, err
		}
		if chunk != nil {
			results = append(results, chunk)
		}
	}
	return results, nil
}

// readChunk reads a chunk from the transaction.
// Returns nil without error when the key is absent.
func readChunk(tx *badger.Txn, key []byte) (*core.Chunk, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}
	var chunk *core.Chunk
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		chunk, unmarshalErr = storage.UnmarshalChunk(val)
		return unmarshalErr
	})
	return chunk, err
}
