package core

import (
	"testing"
	"time"
)

func TestIDFromContentDeterministic(t *testing.T) {
	id1 := IDFromContent("https://example.org/posts/42")
	id2 := IDFromContent("https://example.org/posts/42")
	if id1 != id2 {
		t.Fatalf("Expected identical IDs, got %d and %d", id1, id2)
	}

	other := IDFromContent("https://example.org/posts/43")
	if id1 == other {
		t.Fatal("Expected different sources to produce different IDs")
	}
}

func TestHashContentStable(t *testing.T) {
	h1 := HashContent("some normalized text")
	h2 := HashContent("some normalized text")
	if h1 != h2 {
		t.Fatalf("Expected identical hashes, got %s and %s", h1, h2)
	}
	if len(h1) != 64 {
		t.Fatalf("Expected 64 hex chars, got %d", len(h1))
	}
	if h1 == HashContent("some normalized text.") {
		t.Fatal("Expected changed text to change the hash")
	}
}

func TestChunkIDForStable(t *testing.T) {
	docID := IDFromContent("doc")
	id1 := ChunkIDFor(docID, 1, 0)
	id2 := ChunkIDFor(docID, 1, 0)
	if id1 != id2 {
		t.Fatal("Expected stable chunk IDs for the same (doc, version, index)")
	}
	if ChunkIDFor(docID, 2, 0) == id1 {
		t.Fatal("Expected a new version to produce new chunk IDs")
	}
	if ChunkIDFor(docID, 1, 1) == id1 {
		t.Fatal("Expected a different index to produce a different chunk ID")
	}
}

func TestParseModality(t *testing.T) {
	for _, m := range Modalities {
		parsed, err := ParseModality(string(m))
		if err != nil {
			t.Fatalf("Failed to parse %q: %v", m, err)
		}
		if parsed != m {
			t.Fatalf("Expected %q, got %q", m, parsed)
		}
	}

	if _, err := ParseModality("newspaper"); err == nil {
		t.Fatal("Expected error for unknown modality")
	}
}

func TestStageStatusString(t *testing.T) {
	cases := map[StageStatus]string{
		StagePending: "pending",
		StageDone:    "done",
		StageFailed:  "failed",
	}
	for status, want := range cases {
		if status.String() != want {
			t.Fatalf("Expected %q, got %q", want, status.String())
		}
	}
}

func TestExtractionStatusComplete(t *testing.T) {
	var status ExtractionStatus
	if status.Complete() {
		t.Fatal("Fresh status should not be complete")
	}

	status = ExtractionStatus{
		Topic:      StageDone,
		Summary:    StageDone,
		Entities:   StageFailed,
		KeyPhrases: StageDone,
	}
	if !status.Complete() {
		t.Fatal("Status with only terminal stages should be complete")
	}
}

func TestSnapshotMeta(t *testing.T) {
	createdAt := time.Date(2025, 6, 1, 3, 0, 0, 0, time.UTC)
	snap := &Snapshot{
		Id:        SnapshotIDFor(ModalityPost, createdAt),
		Modality:  ModalityPost,
		CreatedAt: createdAt,
		Documents: []DocumentKey{
			{DocumentId: 1, Version: 1},
			{DocumentId: 2, Version: 3},
		},
	}

	meta := snap.Meta()
	if meta.DocumentCount != 2 {
		t.Fatalf("Expected 2 documents, got %d", meta.DocumentCount)
	}
	if meta.Id != snap.Id || meta.Modality != ModalityPost {
		t.Fatal("Meta should carry the snapshot identity")
	}
	if !meta.ArchivedAt.IsZero() {
		t.Fatal("Current snapshot should have zero ArchivedAt")
	}
}
