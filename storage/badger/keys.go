package badger

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/archivemind/corpora/core"
)

// Key prefixes for different data types
const (
	documentPrefix        = "docrec"
	snapshotPrefix        = "snaprec"
	snapshotCurrentPrefix = "snapcur"
	snapshotArchivePrefix = "snaparc"
	chunkPrefix           = "chkrec"
	chunkDocumentPrefix   = "chkdoc"
	chunkLatestPrefix     = "chklat"
)

// makeDocumentKey generates a key for one version of a document.
func makeDocumentKey(id core.ID, version uint64) []byte {
	return []byte(fmt.Sprintf("%s:%d:%d", documentPrefix, id, version))
}

// makeSnapshotKey generates a key for a snapshot by ID.
func makeSnapshotKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", snapshotPrefix, id))
}

// makeSnapshotCurrentKey generates the current-pointer key for a modality.
func makeSnapshotCurrentKey(modality core.Modality) []byte {
	return []byte(fmt.Sprintf("%s:%s", snapshotCurrentPrefix, modality))
}

// makeSnapshotArchiveKey generates a composite key for the archive index.
// Format: prefix:modality:createdAt:id
func makeSnapshotArchiveKey(modality core.Modality, createdAt time.Time, id core.ID) []byte {
	prefix := []byte(fmt.Sprintf("%s:%s:", snapshotArchivePrefix, modality))
	buf := make([]byte, len(prefix)+16)
	offset := copy(buf, prefix)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(createdAt.UnixMicro()))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makeSnapshotArchivePrefix generates the iteration prefix for one modality's archive.
func makeSnapshotArchivePrefix(modality core.Modality) []byte {
	return []byte(fmt.Sprintf("%s:%s:", snapshotArchivePrefix, modality))
}

// makeChunkKey generates a key for a chunk by ID.
func makeChunkKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", chunkPrefix, id))
}

// makeChunkDocumentKey generates a composite key for the document index.
// Format: prefix:documentID:version:sequenceIndex
func makeChunkDocumentKey(documentId core.ID, version uint64, sequenceIndex int) []byte {
	prefix := []byte(chunkDocumentPrefix + ":")
	buf := make([]byte, len(prefix)+24)
	offset := copy(buf, prefix)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(documentId))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], version)
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(sequenceIndex))
	return buf
}

// makeChunkDocumentPrefix generates the iteration prefix for one document version.
func makeChunkDocumentPrefix(documentId core.ID, version uint64) []byte {
	prefix := []byte(chunkDocumentPrefix + ":")
	buf := make([]byte, len(prefix)+16)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(documentId))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], version)
	return buf
}

// makeChunkLatestKey generates the latest-version pointer key for a document.
func makeChunkLatestKey(documentId core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", chunkLatestPrefix, documentId))
}

// encodeVersion encodes a document version for the latest-version pointer.
func encodeVersion(version uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, version)
	return buf
}

// decodeVersion decodes a document version from the latest-version pointer.
func decodeVersion(data []byte) (uint64, error) {
	if len(data) != 8 {
		return 0, fmt.Errorf("invalid version encoding: %d bytes", len(data))
	}
	return binary.BigEndian.Uint64(data), nil
}
