package mock

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/archivemind/corpora/ai"
)

// Annotator is a test double implementing all four enrichment stage
// interfaces. Behavior is injectable per stage via function fields;
// without injection each stage derives a deterministic value from the
// input text. Safe for concurrent use.
type Annotator struct {
	// TopicFunc is called by LabelTopic if set.
	TopicFunc func(ctx context.Context, text string) (string, error)
	// SummaryFunc is called by Summarize if set.
	SummaryFunc func(ctx context.Context, text string) (string, error)
	// EntitiesFunc is called by RecognizeEntities if set.
	EntitiesFunc func(ctx context.Context, text string) ([]ai.Entity, error)
	// KeyPhrasesFunc is called by ExtractKeyPhrases if set.
	KeyPhrasesFunc func(ctx context.Context, text string) ([]string, error)

	mu    sync.Mutex
	calls map[string]int
}

var (
	_ ai.TopicLabeler       = (*Annotator)(nil)
	_ ai.Summarizer         = (*Annotator)(nil)
	_ ai.EntityRecognizer   = (*Annotator)(nil)
	_ ai.KeyPhraseExtractor = (*Annotator)(nil)
)

// NewAnnotator creates a mock annotator with default deterministic behavior.
// Note: Returns concrete type to allow test assertions via CallCount().
func NewAnnotator() *Annotator {
	return &Annotator{calls: make(map[string]int)}
}

func (m *Annotator) record(stage string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[stage]++
}

// CallCount returns the number of calls made to one stage
// ("topic", "summary", "entities", or "key_phrases").
func (m *Annotator) CallCount(stage string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[stage]
}

// Reset clears call counts and custom functions.
func (m *Annotator) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = make(map[string]int)
	m.TopicFunc = nil
	m.SummaryFunc = nil
	m.EntitiesFunc = nil
	m.KeyPhrasesFunc = nil
}

// LabelTopic returns the first word of the text as a topic.
func (m *Annotator) LabelTopic(ctx context.Context, text string) (string, error) {
	m.record("topic")
	if m.TopicFunc != nil {
		return m.TopicFunc(ctx, text)
	}
	words := strings.Fields(strings.ToLower(text))
	if len(words) == 0 {
		return "general", nil
	}
	return strings.Trim(words[0], ".,!?;:\"'()"), nil
}

// Summarize returns a fixed-form summary derived from the text length.
func (m *Annotator) Summarize(ctx context.Context, text string) (string, error) {
	m.record("summary")
	if m.SummaryFunc != nil {
		return m.SummaryFunc(ctx, text)
	}
	return fmt.Sprintf("Summary of %d words.", len(strings.Fields(text))), nil
}

// RecognizeEntities returns capitalized words as mock entities.
func (m *Annotator) RecognizeEntities(ctx context.Context, text string) ([]ai.Entity, error) {
	m.record("entities")
	if m.EntitiesFunc != nil {
		return m.EntitiesFunc(ctx, text)
	}

	var entities []ai.Entity
	seen := make(map[string]bool)
	for _, word := range strings.Fields(text) {
		word = strings.Trim(word, ".,!?;:\"'()")
		if len(word) < 2 || word[0] < 'A' || word[0] > 'Z' || seen[word] {
			continue
		}
		seen[word] = true
		entities = append(entities, ai.Entity{Text: word, Type: "other"})
		if len(entities) == 5 {
			break
		}
	}
	return entities, nil
}

// ExtractKeyPhrases returns the first few distinct lowercase words.
func (m *Annotator) ExtractKeyPhrases(ctx context.Context, text string) ([]string, error) {
	m.record("key_phrases")
	if m.KeyPhrasesFunc != nil {
		return m.KeyPhrasesFunc(ctx, text)
	}

	var phrases []string
	seen := make(map[string]bool)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,!?;:\"'()")
		if len(word) < 4 || seen[word] {
			continue
		}
		seen[word] = true
		phrases = append(phrases, word)
		if len(phrases) == 5 {
			break
		}
	}
	return phrases, nil
}
