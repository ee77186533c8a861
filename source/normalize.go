package source

import (
	"regexp"
	"strings"
	"time"

	"github.com/archivemind/corpora/core"
)

var (
	multiSpaces   = regexp.MustCompile(`[ \t]+`)
	multiNewlines = regexp.MustCompile(`\n{3,}`)
)

// NormalizeText canonicalizes document text before hashing: CRLF to
// LF, runs of spaces and tabs collapsed, at most one blank line
// between paragraphs, lines trimmed. Hashing normalized text keeps
// content_hash stable across cosmetic source changes.
func NormalizeText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = multiSpaces.ReplaceAllString(text, " ")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	text = strings.Join(lines, "\n")

	text = multiNewlines.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// Normalize turns a raw fetch into a Document candidate. The id is
// derived from the source identifier and the content hash from the
// normalized text, so identity is stable and change detection is
// content-based. Version is left at 0 for the dedup layer to assign.
func Normalize(raw *RawDocument, modality core.Modality) (*core.Document, error) {
	if raw.Source == "" {
		return nil, core.ErrEmptySource
	}

	text := NormalizeText(raw.Text)
	if text == "" {
		return nil, core.ErrEmptyText
	}

	fetchedAt := raw.FetchedAt
	if fetchedAt.IsZero() {
		fetchedAt = time.Now().UTC()
	}

	return &core.Document{
		Id:          core.IDFromContent(raw.Source),
		Source:      raw.Source,
		Modality:    modality,
		Title:       strings.TrimSpace(raw.Title),
		Tags:        raw.Tags,
		ContentHash: core.HashContent(text),
		Text:        text,
		FetchedAt:   fetchedAt,
	}, nil
}
