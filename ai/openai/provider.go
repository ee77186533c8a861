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
	"log/slog"

	"github.com/archivemind/corpora/ai"
)

// Provider implements ai.Provider using OpenAI-compatible services.
// One Annotator instance backs all four enrichment stages.
type Provider struct {
	config    *ai.Config
	annotator *Annotator
	logger    *slog.Logger
}

// NewProvider creates a new enrichment provider with OpenAI-compatible
// services. The config is validated and normalized before use.
//
// Returns ai.Provider interface (not *Provider) to enforce abstraction
// and prevent coupling to OpenAI-specific implementation details.
func NewProvider(config *ai.Config) (ai.Provider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	annotator, err := newAnnotator(config)
	if err != nil {
		return nil, err
	}

	return &Provider{
		config:    config,
		annotator: annotator,
		logger:    slog.Default().With("component", "openai-provider"),
	}, nil
}

// TopicLabeler returns the topic labeling service.
func (p *Provider) TopicLabeler() ai.TopicLabeler {
	return p.annotator
}

// Summarizer returns the summarization service.
func (p *Provider) Summarizer() ai.Summarizer {
	return p.annotator
}

// EntityRecognizer returns the named-entity recognition service.
func (p *Provider) EntityRecognizer() ai.EntityRecognizer {
	return p.annotator
}

// KeyPhraseExtractor returns the key-phrase extraction service.
func (p *Provider) KeyPhraseExtractor() ai.KeyPhraseExtractor {
	return p.annotator
}

// Close releases resources held by the provider.
// Currently a no-op as the underlying client doesn't require explicit cleanup.
func (p *Provider) Close() error {
	p.logger.Debug("closing OpenAI provider")
	return nil
}
