package core

import (
	"errors"
	"testing"
	"time"

	com "github.com/mus-format/common-go"
	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
)

// overwriteCount replaces the single-byte varint count at offset with
// the encoding of -1. Both 0 and -1 zigzag-encode to one byte, so the
// record length is unchanged.
func overwriteCount(t *testing.T, bs []byte, offset int) {
	t.Helper()
	if varint.Int.Size(-1) != 1 {
		t.Fatal("Expected -1 to encode as one byte")
	}
	varint.Int.Marshal(-1, bs[offset:])
}

func TestUnmarshalDocument_NegativeTagCount(t *testing.T) {
	doc := Document{
		Id:          IDFromContent("https://example.org/posts/7"),
		Source:      "https://example.org/posts/7",
		Modality:    ModalityPost,
		Title:       "On Pipelines",
		ContentHash: HashContent("body"),
		Text:        "body",
		FetchedAt:   time.Now().UTC().Truncate(time.Microsecond),
		Version:     1,
	}
	bs := make([]byte, DocumentMUS.Size(doc))
	DocumentMUS.Marshal(doc, bs)

	offset := IDMUS.Size(doc.Id) +
		ord.String.Size(doc.Source) +
		ord.String.Size(string(doc.Modality)) +
		ord.String.Size(doc.Title)
	overwriteCount(t, bs, offset)

	_, _, err := DocumentMUS.Unmarshal(bs)
	if !errors.Is(err, com.ErrNegativeLength) {
		t.Fatalf("Expected ErrNegativeLength for a corrupted tag count, got %v", err)
	}
}

func TestUnmarshalSnapshot_NegativeKeyCount(t *testing.T) {
	createdAt := time.Date(2025, 7, 2, 3, 0, 0, 0, time.UTC)
	snap := Snapshot{
		Id:        SnapshotIDFor(ModalityPost, createdAt),
		Modality:  ModalityPost,
		CreatedAt: createdAt,
	}
	bs := make([]byte, SnapshotMUS.Size(snap))
	SnapshotMUS.Marshal(snap, bs)

	overwriteCount(t, bs, len(bs)-1)

	_, _, err := SnapshotMUS.Unmarshal(bs)
	if !errors.Is(err, com.ErrNegativeLength) {
		t.Fatalf("Expected ErrNegativeLength for a corrupted key count, got %v", err)
	}
}
