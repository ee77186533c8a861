package badger

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/archivemind/corpora/core"
	"github.com/archivemind/corpora/storage"
)

// CorpusRepository implements storage.CorpusStore for BadgerDB.
type CorpusRepository struct {
	backend *Backend
}

var _ storage.CorpusStore = (*CorpusRepository)(nil)

// NewCorpusRepository creates a new CorpusRepository.
func NewCorpusRepository(backend *Backend) *CorpusRepository {
	return &CorpusRepository{backend: backend}
}

// Close is a no-op; the backend owns the database handle.
func (r *CorpusRepository) Close() error {
	return nil
}

// GetCurrent retrieves the current snapshot for a modality.
func (r *CorpusRepository) GetCurrent(ctx context.Context, modality core.Modality) (*core.Snapshot, error) {
	var result *core.Snapshot
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		id, err := readPointer(tx, makeSnapshotCurrentKey(modality))
		if err != nil {
			return err
		}
		result, err = readSnapshot(tx, makeSnapshotKey(id))
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

// GetDocument retrieves one version of a document.
func (r *CorpusRepository) GetDocument(ctx context.Context, id core.ID, version uint64) (*core.Document, error) {
	var result *core.Document
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readDocument(tx, makeDocumentKey(id, version))
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

// GetDocuments retrieves the documents referenced by the given keys.
// Missing keys are skipped.
func (r *CorpusRepository) GetDocuments(ctx context.Context, keys ...core.DocumentKey) ([]*core.Document, error) {
	var result []*core.Document
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, key := range keys {
			doc, err := readDocument(tx, makeDocumentKey(key.DocumentId, key.Version))
			if err != nil {
				return err
			}
			if doc != nil {
				result = append(result, doc)
			}
		}
		return nil
	}, false)
	return result, err
}

// PutSnapshot persists a snapshot together with its newly accepted
// document versions. With makeCurrent the previous current snapshot is
// archived and the pointer swapped in the same transaction, so readers
// see either the old corpus or the new one. Without makeCurrent the
// snapshot goes straight to the archive.
func (r *CorpusRepository) PutSnapshot(ctx context.Context, snapshot *core.Snapshot, accepted []*core.Document, makeCurrent bool) error {
	for _, doc := range accepted {
		if err := core.ValidateDocument(doc); err != nil {
			return err
		}
	}

	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, doc := range accepted {
			key := makeDocumentKey(doc.Id, doc.Version)
			if err := tx.Set(key, storage.MarshalDocument(doc)); err != nil {
				return err
			}
		}

		if makeCurrent {
			if err := r.archiveCurrent(tx, snapshot.Modality); err != nil {
				return err
			}
			snapshot.ArchivedAt = time.Time{}
			if err := tx.Set(makeSnapshotKey(snapshot.Id), storage.MarshalSnapshot(snapshot)); err != nil {
				return err
			}
			if err := tx.Set(makeSnapshotCurrentKey(snapshot.Modality), storage.MarshalID(snapshot.Id)); err != nil {
				return err
			}
		} else {
			if snapshot.ArchivedAt.IsZero() {
				snapshot.ArchivedAt = time.Now().UTC()
			}
			if err := tx.Set(makeSnapshotKey(snapshot.Id), storage.MarshalSnapshot(snapshot)); err != nil {
				return err
			}
			archiveKey := makeSnapshotArchiveKey(snapshot.Modality, snapshot.CreatedAt, snapshot.Id)
			if err := tx.Set(archiveKey, storage.MarshalID(snapshot.Id)); err != nil {
				return err
			}
		}

		return tx.Commit()
	}, true)
}

// archiveCurrent moves the current snapshot (if any) into the archive.
func (r *CorpusRepository) archiveCurrent(tx *badger.Txn, modality core.Modality) error {
	id, err := readPointer(tx, makeSnapshotCurrentKey(modality))
	if err != nil {
		if err == storage.ErrNotFound {
			return nil
		}
		return err
	}

	old, err := readSnapshot(tx, makeSnapshotKey(id))
	if err != nil {
		return err
	}
	if old == nil {
		return nil
	}

	old.ArchivedAt = time.Now().UTC()
	if err := tx.Set(makeSnapshotKey(old.Id), storage.MarshalSnapshot(old)); err != nil {
		return err
	}
	archiveKey := makeSnapshotArchiveKey(old.Modality, old.CreatedAt, old.Id)
	return tx.Set(archiveKey, storage.MarshalID(old.Id))
}

// ListArchive returns archived snapshot metadata for a modality,
// oldest first.
func (r *CorpusRepository) ListArchive(ctx context.Context, modality core.Modality) ([]*core.SnapshotMeta, error) {
	var result []*core.SnapshotMeta
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeSnapshotArchivePrefix(modality)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var id core.ID
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				id, err = storage.UnmarshalID(val)
				return err
			}); err != nil {
				return err
			}

			snap, err := readSnapshot(tx, makeSnapshotKey(id))
			if err != nil {
				return err
			}
			if snap != nil {
				result = append(result, snap.Meta())
			}
		}
		return nil
	}, false)
	return result, err
}

// Helper methods

// readPointer reads an ID-valued pointer key.
func readPointer(tx *badger.Txn, key []byte) (core.ID, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return 0, storage.ErrNotFound
		}
		return 0, err
	}
	var id core.ID
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		id, unmarshalErr = storage.UnmarshalID(val)
		return unmarshalErr
	})
	return id, err
}

// readSnapshot reads a snapshot from the transaction.
// Returns nil without error when the key is absent.
func readSnapshot(tx *badger.Txn, key []byte) (*core.Snapshot, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}
	var snap *core.Snapshot
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		snap, unmarshalErr = storage.UnmarshalSnapshot(val)
		return unmarshalErr
	})
	return snap, err
}

// readDocument reads a document from the transaction.
// Returns nil without error when the key is absent.
func readDocument(tx *badger.Txn, key []byte) (*core.Document, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}
	var doc *core.Document
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		doc, unmarshalErr = storage.UnmarshalDocument(val)
		return unmarshalErr
	})
	return doc, err
}
