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


// Package ai provides abstractions for the enrichment services used by
// the extraction pipeline.
//
// It defines one interface per enrichment stage so stages can fail,
// retry, and be swapped independently:
//
//   - TopicLabeler: assigns a topic label
//   - Summarizer: produces a short summary
//   - EntityRecognizer: finds named entities
//   - KeyPhraseExtractor: pulls salient phrases
//   - Provider: aggregates the four services
//
// # Implementation Packages
//
//   - ai/openai: production implementation using OpenAI-compatible APIs
//   - ai/mock: test doubles for unit testing without external services
//
// # Constructor Return Type Pattern
//
// Public constructors (openai.NewProvider) return INTERFACE types to
// enforce abstraction. Test utility constructors (mock.NewAnnotator)
// return CONCRETE types so tests can inject behavior and assert call
// counts.
//
//	provider, err := openai.NewProvider(config)  // returns ai.Provider
//
//	annotator := mock.NewAnnotator()             // returns *mock.Annotator
//	annotator.TopicFunc = func(...) ...          // needs concrete type
//
// # Usage Example
//
//	config := ai.NewConfig(ai.WithModel("gpt-4o-mini"))
//	provider, err := openai.NewProvider(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	topic, err := provider.TopicLabeler().LabelTopic(ctx, chunk.Text)
package ai
