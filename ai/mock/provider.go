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


package mock

import "github.com/archivemind/corpora/ai"

// Provider is a test double for ai.Provider backed by one Annotator.
type Provider struct {
	annotator *Annotator
}

// NewProvider creates a mock provider with default mock behavior.
//
// Returns ai.Provider interface for consistency with production
// constructors. Use GetAnnotator() to access the concrete type for
// test assertions.
func NewProvider() ai.Provider {
	return &Provider{annotator: NewAnnotator()}
}

// NewProviderWithAnnotator creates a mock provider around a
// preconfigured annotator. This allows full control over stage behavior.
func NewProviderWithAnnotator(annotator *Annotator) ai.Provider {
	return &Provider{annotator: annotator}
}

// TopicLabeler returns the mock annotator.
func (p *Provider) TopicLabeler() ai.TopicLabeler {
	return p.annotator
}

// Summarizer returns the mock annotator.
func (p *Provider) Summarizer() ai.Summarizer {
	return p.annotator
}

// EntityRecognizer returns the mock annotator.
func (p *Provider) EntityRecognizer() ai.EntityRecognizer {
	return p.annotator
}

// KeyPhraseExtractor returns the mock annotator.
func (p *Provider) KeyPhraseExtractor() ai.KeyPhraseExtractor {
	return p.annotator
}

// Close is a no-op for the mock provider.
func (p *Provider) Close() error {
	return nil
}

// GetAnnotator returns the underlying mock annotator for test
// assertions. This allows tests to check call counts and inject
// custom behavior.
func (p *Provider) GetAnnotator() *Annotator {
	return p.annotator
}
