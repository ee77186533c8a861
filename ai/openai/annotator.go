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


package openai

import (
	"context"
	"encoding/json"
	"log/slog"
	"slices"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/archivemind/corpora/ai"
)

// Annotator implements all four enrichment stages against one
// OpenAI-compatible chat API.
type Annotator struct {
	client           llms.Model
	maxKeyPhrases    int
	summarySentences int
	logger           *slog.Logger
}

var (
	_ ai.TopicLabeler       = (*Annotator)(nil)
	_ ai.Summarizer         = (*Annotator)(nil)
	_ ai.EntityRecognizer   = (*Annotator)(nil)
	_ ai.KeyPhraseExtractor = (*Annotator)(nil)
)

// newAnnotator is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newAnnotator(config *ai.Config) (*Annotator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	// Use "none" as token for local OpenAI-compatible services that
	// don't require authentication.
	client, err := openai.New(
		openai.WithBaseURL(config.Host),
		openai.WithToken("none"),
		openai.WithModel(config.Model),
	)
	if err != nil {
		return nil, err
	}

	return &Annotator{
		client:           client,
		maxKeyPhrases:    config.MaxKeyPhrases,
		summarySentences: config.SummarySentences,
		logger:           slog.Default().With("component", "openai-annotator"),
	}, nil
}

// NewAnnotator creates an annotator using the provided configuration.
// The same instance serves all four stage interfaces.
func NewAnnotator(config *ai.Config) (*Annotator, error) {
	return newAnnotator(config)
}

// LabelTopic assigns a single topic label to the text.
func (a *Annotator) LabelTopic(ctx context.Context, text string) (string, error) {
	var result struct {
		Topic string `json:"topic"`
	}
	if err := a.generateJSON(ctx, buildTopicPrompt(), text, &result); err != nil {
		return "", err
	}
	return strings.TrimSpace(strings.ToLower(result.Topic)), nil
}

// Summarize condenses the text into a short abstract.
func (a *Annotator) Summarize(ctx context.Context, text string) (string, error) {
	var result struct {
		Summary string `json:"summary"`
	}
	if err := a.generateJSON(ctx, buildSummaryPrompt(a.summarySentences), text, &result); err != nil {
		return "", err
	}
	return strings.TrimSpace(result.Summary), nil
}

// RecognizeEntities finds the named entities mentioned in the text.
func (a *Annotator) RecognizeEntities(ctx context.Context, text string) ([]ai.Entity, error) {
	var result struct {
		Entities []struct {
			Text string `json:"text"`
			Type string `json:"type"`
		} `json:"entities"`
	}
	if err := a.generateJSON(ctx, buildEntitiesPrompt(), text, &result); err != nil {
		return nil, err
	}

	entities := make([]ai.Entity, 0, len(result.Entities))
	for _, e := range result.Entities {
		if e.Text == "" {
			continue
		}
		entityType := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(e.Type)), " ", "_")
		if !slices.Contains(ai.EntityTypes, entityType) {
			entityType = "other"
		}
		entities = append(entities, ai.Entity{Text: e.Text, Type: entityType})
	}

	a.logger.Debug("recognized entities", "total", len(result.Entities), "kept", len(entities))
	return entities, nil
}

// ExtractKeyPhrases pulls the most salient phrases out of the text.
func (a *Annotator) ExtractKeyPhrases(ctx context.Context, text string) ([]string, error) {
	var result struct {
		KeyPhrases []string `json:"key_phrases"`
	}
	if err := a.generateJSON(ctx, buildKeyPhrasesPrompt(a.maxKeyPhrases), text, &result); err != nil {
		return nil, err
	}

	phrases := make([]string, 0, len(result.KeyPhrases))
	for _, phrase := range result.KeyPhrases {
		phrase = strings.TrimSpace(strings.ToLower(phrase))
		if phrase == "" || slices.Contains(phrases, phrase) {
			continue
		}
		phrases = append(phrases, phrase)
		if len(phrases) == a.maxKeyPhrases {
			break
		}
	}
	return phrases, nil
}

// generateJSON runs one chat completion in JSON mode and unmarshals the
// response into out. Malformed JSON is repaired and retried up to 3
// times before the last parse error is returned.
func (a *Annotator) generateJSON(ctx context.Context, systemPrompt, text string, out any) error {
	content := []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{
				llms.TextPart(systemPrompt),
			},
		},
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.TextPart(text),
			},
		},
	}

	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		response, err := a.client.GenerateContent(ctx, content, llms.WithTemperature(0.0), llms.WithJSONMode())
		if err != nil {
			a.logger.Error("failed to generate content", "attempt", attempt+1, "err", err)
			return err
		}

		if len(response.Choices) < 1 {
			a.logger.Debug("no choices returned from model")
			return nil
		}

		responseText := repairJSON(stripFences(response.Choices[0].Content))
		if err := json.Unmarshal([]byte(responseText), out); err != nil {
			lastErr = err
			a.logger.Warn("error parsing model response",
				"attempt", attempt+1,
				"response", responseText,
				"err", err)
			continue
		}

		return nil
	}

	a.logger.Error("failed to parse model response after retries", "err", lastErr)
	return lastErr
}
