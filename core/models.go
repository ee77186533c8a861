package core

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// It is generated using content-based hashing so that the same logical
// source always maps to the same ID.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// HashContent computes the BLAKE2b-256 hash of normalized text content,
// returned as a lowercase hex string. Unchanged text yields an unchanged
// hash, which is what change detection keys on.
func HashContent(text string) string {
	h, _ := blake2b.New(32, nil)
	h.Write([]byte(text))
	return fmt.Sprintf("%x", h.Sum(nil))
}

// Modality identifies one source type.
type Modality string

const (
	ModalityPost  Modality = "post"
	ModalityBook  Modality = "book"
	ModalityAudio Modality = "audio"
	ModalityVideo Modality = "video"
)

// Modalities lists all supported modalities in a stable order.
var Modalities = []Modality{ModalityPost, ModalityBook, ModalityAudio, ModalityVideo}

// ParseModality converts a string to a Modality.
// Returns ErrInvalidModality for unknown values.
func ParseModality(s string) (Modality, error) {
	switch Modality(s) {
	case ModalityPost, ModalityBook, ModalityAudio, ModalityVideo:
		return Modality(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidModality, s)
}

// Document represents one source artifact: a post, a book file, or an
// audio/video transcript. Prior versions are archived, never mutated.
type Document struct {
	Id          ID
	Source      string // canonical URL or file path the document came from
	Modality    Modality
	Title       string
	Tags        []string
	ContentHash string // BLAKE2b-256 of the normalized text
	Text        string // normalized text (post-transcription for media)
	FetchedAt   time.Time
	Version     uint64 // monotonically increasing per Id, bumped on hash change
}

// Key returns the (id, version) pair identifying this document version.
func (d *Document) Key() DocumentKey {
	return DocumentKey{DocumentId: d.Id, Version: d.Version}
}

// DocumentKey is a non-owning reference to one version of a document.
type DocumentKey struct {
	DocumentId ID
	Version    uint64
}

// Snapshot is an immutable, timestamped collection of document versions
// for one modality. Exactly one snapshot per modality is current at any
// instant; all others are archived and never modified again.
type Snapshot struct {
	Id         ID
	Modality   Modality
	CreatedAt  time.Time
	ArchivedAt time.Time // zero while the snapshot is current
	Documents  []DocumentKey
}

// SnapshotIDFor derives the snapshot ID from modality and creation time.
func SnapshotIDFor(modality Modality, createdAt time.Time) ID {
	return IDFromContent(fmt.Sprintf("%s@%d", modality, createdAt.UnixMicro()))
}

// SnapshotMeta is the archive-listing projection of a snapshot.
type SnapshotMeta struct {
	Id            ID
	Modality      Modality
	CreatedAt     time.Time
	ArchivedAt    time.Time
	DocumentCount int
}

// Meta returns the snapshot's metadata projection.
func (s *Snapshot) Meta() *SnapshotMeta {
	return &SnapshotMeta{
		Id:            s.Id,
		Modality:      s.Modality,
		CreatedAt:     s.CreatedAt,
		ArchivedAt:    s.ArchivedAt,
		DocumentCount: len(s.Documents),
	}
}

// StageStatus is the processing state of one extraction stage.
type StageStatus uint8

const (
	// StagePending means the stage has not run yet.
	StagePending StageStatus = iota
	// StageDone means the stage completed and its field is populated.
	StageDone
	// StageFailed means the stage errored; its field is unset and the
	// stage is eligible for retry.
	StageFailed
)

// String returns the wire representation used by the read API.
func (s StageStatus) String() string {
	switch s {
	case StageDone:
		return "done"
	case StageFailed:
		return "failed"
	default:
		return "pending"
	}
}

// ExtractionStatus tracks each enrichment stage of a chunk independently.
type ExtractionStatus struct {
	Topic      StageStatus
	Summary    StageStatus
	Entities   StageStatus
	KeyPhrases StageStatus
}

// Complete reports whether every stage has reached a terminal state
// (done or failed), i.e. nothing remains except explicit retries.
func (s ExtractionStatus) Complete() bool {
	return s.Topic != StagePending && s.Summary != StagePending &&
		s.Entities != StagePending && s.KeyPhrases != StagePending
}

// Done reports whether every stage completed successfully. Chunks with
// pending or failed stages remain eligible for retry.
func (s ExtractionStatus) Done() bool {
	return s.Topic == StageDone && s.Summary == StageDone &&
		s.Entities == StageDone && s.KeyPhrases == StageDone
}

// Entity is one named entity recognized in chunk text.
type Entity struct {
	Text string
	Type string
}

// Chunk is a bounded text segment of one document version plus derived
// metadata, the unit served to retrieval/chat consumers. Enrichment
// fields stay zero until their stage reports done.
type Chunk struct {
	Id              ID
	DocumentId      ID
	DocumentVersion uint64
	Modality        Modality
	SequenceIndex   int // 0-based position within the document
	Text            string
	Topic           string
	Summary         string
	Entities        []Entity
	KeyPhrases      []string
	Status          ExtractionStatus
	Stale           bool // set when the owning document version is superseded
	InsertedAt      time.Time
	UpdatedAt       time.Time
}

// ChunkIDFor derives the stable chunk ID from its owning document
// version and sequence index. Re-chunking the same document version
// yields the same IDs.
func ChunkIDFor(documentId ID, version uint64, sequenceIndex int) ID {
	return IDFromContent(fmt.Sprintf("%d:%d:%d", documentId, version, sequenceIndex))
}
