package ai

import "context"

// TopicLabeler assigns a single topic label to a piece of text.
// Implementations must be thread-safe for concurrent use.
type TopicLabeler interface {
	// LabelTopic returns a short lowercase topic label for the text.
	LabelTopic(ctx context.Context, text string) (string, error)
}

// Summarizer condenses text into a short abstract.
// Implementations must be thread-safe for concurrent use.
type Summarizer interface {
	// Summarize returns a one-to-three sentence summary of the text.
	Summarize(ctx context.Context, text string) (string, error)
}

// EntityRecognizer identifies named entities mentioned in text.
// Implementations must be thread-safe for concurrent use.
type EntityRecognizer interface {
	// RecognizeEntities returns the named entities found in the text.
	// Returns an empty slice if none are found.
	RecognizeEntities(ctx context.Context, text string) ([]Entity, error)
}

// KeyPhraseExtractor pulls the most salient phrases out of text.
// Implementations must be thread-safe for concurrent use.
type KeyPhraseExtractor interface {
	// ExtractKeyPhrases returns up to the configured number of key
	// phrases, most salient first.
	ExtractKeyPhrases(ctx context.Context, text string) ([]string, error)
}

// Entity represents a named entity identified in text.
type Entity struct {
	// Text is the entity surface form as it appears in the input.
	Text string

	// Type categorizes the entity. Must match one of EntityTypes.
	Type string
}

// Provider aggregates the enrichment services for convenient
// initialization and lifecycle management. The four stages are
// independent: a provider may back them with one model or several.
type Provider interface {
	// TopicLabeler returns the topic labeling service.
	TopicLabeler() TopicLabeler

	// Summarizer returns the summarization service.
	Summarizer() Summarizer

	// EntityRecognizer returns the named-entity recognition service.
	EntityRecognizer() EntityRecognizer

	// KeyPhraseExtractor returns the key-phrase extraction service.
	KeyPhraseExtractor() KeyPhraseExtractor

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
