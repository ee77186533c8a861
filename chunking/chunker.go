// Copyright 2025 Archivemind Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package chunking splits document text into ordered chunks at sentence
// and paragraph boundaries. Chunking is deterministic: the same text
// and configuration always yield the same segment boundaries and
// sequence indices, so chunk IDs are stable across reprocessing.
package chunking

import (
	"strings"
	"unicode"

	"github.com/archivemind/corpora/core"
)

// Chunker segments documents according to a Config.
type Chunker struct {
	cfg Config
}

// New creates a Chunker with the given configuration.
func New(cfg Config) (*Chunker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Chunker{cfg: cfg}, nil
}

// ChunkDocument splits a document's text into chunks with strictly
// increasing sequence indices starting at 0. Enrichment fields are left
// unset and every extraction stage starts pending.
func (c *Chunker) ChunkDocument(doc *core.Document) ([]*core.Chunk, error) {
	if err := core.ValidateDocument(doc); err != nil {
		return nil, err
	}

	segments := c.segment(doc.Text)
	chunks := make([]*core.Chunk, 0, len(segments))
	for i, text := range segments {
		chunks = append(chunks, &core.Chunk{
			Id:              core.ChunkIDFor(doc.Id, doc.Version, i),
			DocumentId:      doc.Id,
			DocumentVersion: doc.Version,
			Modality:        doc.Modality,
			SequenceIndex:   i,
			Text:            text,
		})
	}
	return chunks, nil
}

// segment splits text into pieces of at most MaxSize runes, closing a
// piece at the first sentence boundary past TargetSize. Paragraph
// breaks always close the piece once it holds anything.
func (c *Chunker) segment(text string) []string {
	var segments []string
	var current strings.Builder
	currentLen := 0

	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			segments = append(segments, s)
		}
		current.Reset()
		currentLen = 0
	}

	for _, paragraph := range splitParagraphs(text) {
		for _, sentence := range splitSentences(paragraph) {
			sentenceLen := len([]rune(sentence))

			// A lone oversized sentence is truncated hard.
			if sentenceLen > c.cfg.MaxSize {
				flush()
				for _, piece := range hardSplit(sentence, c.cfg.MaxSize) {
					segments = append(segments, piece)
				}
				continue
			}

			if currentLen > 0 && currentLen+1+sentenceLen > c.cfg.MaxSize {
				flush()
			}

			if currentLen > 0 {
				current.WriteByte(' ')
				currentLen++
			}
			current.WriteString(sentence)
			currentLen += sentenceLen

			if currentLen >= c.cfg.TargetSize {
				flush()
			}
		}
		// Paragraph boundaries are preferred over sentence boundaries.
		flush()
	}
	flush()
	return segments
}

// splitParagraphs splits on blank lines.
func splitParagraphs(text string) []string {
	var paragraphs []string
	for _, p := range strings.Split(text, "\n\n") {
		p = strings.TrimSpace(p)
		if p != "" {
			paragraphs = append(paragraphs, p)
		}
	}
	return paragraphs
}

// splitSentences splits a paragraph at terminal punctuation followed by
// whitespace. Whitespace inside a sentence is collapsed to single
// spaces so chunk text round-trips modulo whitespace normalization.
func splitSentences(paragraph string) []string {
	normalized := strings.Join(strings.Fields(paragraph), " ")
	runes := []rune(normalized)

	var sentences []string
	start := 0
	for i := 0; i < len(runes); i++ {
		if !isTerminal(runes[i]) {
			continue
		}
		// Consume trailing closers like quotes or parens.
		end := i + 1
		for end < len(runes) && isCloser(runes[end]) {
			end++
		}
		if end < len(runes) && !unicode.IsSpace(runes[end]) {
			continue
		}
		sentence := strings.TrimSpace(string(runes[start:end]))
		if sentence != "" {
			sentences = append(sentences, sentence)
		}
		for end < len(runes) && unicode.IsSpace(runes[end]) {
			end++
		}
		start = end
		i = end - 1
	}
	if start < len(runes) {
		if sentence := strings.TrimSpace(string(runes[start:])); sentence != "" {
			sentences = append(sentences, sentence)
		}
	}
	return sentences
}

func isTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func isCloser(r rune) bool {
	return r == '"' || r == '\'' || r == ')' || r == ']' || r == '”' || r == '’'
}

// hardSplit cuts an oversized sentence into maxSize-rune pieces.
func hardSplit(sentence string, maxSize int) []string {
	runes := []rune(sentence)
	var pieces []string
	for start := 0; start < len(runes); start += maxSize {
		end := start + maxSize
		if end > len(runes) {
			end = len(runes)
		}
		piece := strings.TrimSpace(string(runes[start:end]))
		if piece != "" {
			pieces = append(pieces, piece)
		}
	}
	return pieces
}
