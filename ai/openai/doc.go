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


// Package openai implements the ai interfaces against OpenAI-compatible
// chat APIs (OpenAI, Ollama, LocalAI, vLLM).
//
// All four enrichment stages run as JSON-mode chat completions at
// temperature 0. Responses are stripped of code fences, passed through
// a small JSON repairer, and parsed with up to 3 attempts per call.
//
// Use NewProvider for the aggregate service:
//
//	provider, err := openai.NewProvider(ai.NewConfig(
//	    ai.WithHost("http://localhost:11434"),
//	    ai.WithModel("qwen2.5:3b"),
//	))
package openai
