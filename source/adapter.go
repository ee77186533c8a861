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


// Package source defines the adapter contract for fetching raw
// documents per modality, plus the normalization step that turns raw
// fetches into versioned-store candidates.
package source

import (
	"context"
	"io"
	"iter"
	"time"

	"github.com/archivemind/corpora/core"
)

// RawDocument is a fetched document before normalization. Text is
// already plain text (HTML stripped, media transcribed); FetchedAt is
// when the adapter obtained it.
type RawDocument struct {
	Source    string
	Title     string
	Tags      []string
	Text      string
	FetchedAt time.Time
}

// Adapter fetches raw documents for one modality.
//
// Fetch returns a lazy sequence so large corpora never materialize in
// memory. Error semantics per pair: a plain error means that one item
// failed and is skipped; a *core.FetchError means the source itself is
// unreachable and the caller must abort the run.
type Adapter interface {
	// Modality identifies which corpus this adapter feeds.
	Modality() core.Modality

	// Fetch lazily yields raw documents or per-item errors.
	Fetch(ctx context.Context) iter.Seq2[*RawDocument, error]
}

// Transcriber converts raw media into text. Used by audio/video
// adapters before Document normalization.
type Transcriber interface {
	// Transcribe returns the transcript of one media stream. name is
	// the media file name, used for format hints and diagnostics.
	Transcribe(ctx context.Context, name string, media io.Reader) (string, error)
}
