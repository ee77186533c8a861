package core

import (
	"errors"
	"testing"
	"time"
)

func validDocument() *Document {
	text := "Some fetched article text."
	return &Document{
		Id:          IDFromContent("https://example.org/a"),
		Source:      "https://example.org/a",
		Modality:    ModalityPost,
		Title:       "A",
		ContentHash: HashContent(text),
		Text:        text,
		FetchedAt:   time.Now().UTC(),
		Version:     1,
	}
}

func TestValidateDocument(t *testing.T) {
	if err := ValidateDocument(validDocument()); err != nil {
		t.Fatalf("Expected valid document, got %v", err)
	}

	d := validDocument()
	d.Source = ""
	if err := ValidateDocument(d); !errors.Is(err, ErrEmptySource) {
		t.Fatalf("Expected ErrEmptySource, got %v", err)
	}

	d = validDocument()
	d.Modality = "pamphlet"
	if err := ValidateDocument(d); !errors.Is(err, ErrInvalidModality) {
		t.Fatalf("Expected ErrInvalidModality, got %v", err)
	}

	d = validDocument()
	d.Text = ""
	if err := ValidateDocument(d); !errors.Is(err, ErrEmptyText) {
		t.Fatalf("Expected ErrEmptyText, got %v", err)
	}

	d = validDocument()
	d.Version = 0
	if err := ValidateDocument(d); !errors.Is(err, ErrInvalidVersion) {
		t.Fatalf("Expected ErrInvalidVersion, got %v", err)
	}

	d = validDocument()
	d.FetchedAt = time.Now().UTC().Add(time.Hour)
	if err := ValidateDocument(d); !errors.Is(err, ErrInvalidTimestamp) {
		t.Fatalf("Expected ErrInvalidTimestamp, got %v", err)
	}
}

func TestValidateChunk(t *testing.T) {
	docID := IDFromContent("https://example.org/a")
	chunk := &Chunk{
		Id:              ChunkIDFor(docID, 1, 0),
		DocumentId:      docID,
		DocumentVersion: 1,
		Modality:        ModalityPost,
		SequenceIndex:   0,
		Text:            "segment",
	}
	if err := ValidateChunk(chunk); err != nil {
		t.Fatalf("Expected valid chunk, got %v", err)
	}

	bad := *chunk
	bad.Id = ChunkIDFor(docID, 2, 0)
	if err := ValidateChunk(&bad); !errors.Is(err, ErrInvalidChunk) {
		t.Fatalf("Expected ErrInvalidChunk for mismatched id, got %v", err)
	}

	bad = *chunk
	bad.Text = ""
	if err := ValidateChunk(&bad); !errors.Is(err, ErrInvalidChunk) {
		t.Fatalf("Expected ErrInvalidChunk for empty text, got %v", err)
	}
}
