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


package core

import (
	"errors"
	"fmt"
)

// Domain validation errors
var (
	// ErrInvalidModality indicates an unknown modality value.
	ErrInvalidModality = errors.New("invalid modality")

	// ErrInvalidDocument indicates a Document failed validation.
	ErrInvalidDocument = errors.New("invalid document")

	// ErrInvalidChunk indicates a Chunk failed validation.
	ErrInvalidChunk = errors.New("invalid chunk")

	// ErrEmptySource indicates the document Source field is empty.
	ErrEmptySource = errors.New("document source cannot be empty")

	// ErrEmptyText indicates the text content is empty.
	ErrEmptyText = errors.New("text cannot be empty")

	// ErrInvalidVersion indicates a document version of zero.
	ErrInvalidVersion = errors.New("document version must be >= 1")

	// ErrInvalidTimestamp indicates a timestamp in the future.
	ErrInvalidTimestamp = errors.New("timestamp cannot be in the future")
)

// FetchError is a run-level source adapter failure (source unreachable,
// listing broken). It aborts the modality's run without touching the
// corpus; the prior snapshot remains authoritative.
type FetchError struct {
	Modality Modality
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Modality, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// TranscriptionError is a per-document transcription collaborator
// failure. The affected document is skipped; the run continues.
type TranscriptionError struct {
	Source string
	Err    error
}

func (e *TranscriptionError) Error() string {
	return fmt.Sprintf("transcribe %s: %v", e.Source, e.Err)
}

func (e *TranscriptionError) Unwrap() error { return e.Err }

// StoreError is a durability failure on the corpus or chunk store. The
// in-flight rotation or upsert is aborted and never partially commits.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// StageError is a single enrichment stage failure for one chunk. It is
// recorded as a failed status on the chunk and never propagates to the
// run.
type StageError struct {
	Stage   string
	ChunkId ID
	Err     error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s for chunk %d: %v", e.Stage, e.ChunkId, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
