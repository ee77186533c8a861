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


// Package storage provides the storage abstraction layer for corpora.
//
// This package defines store interfaces that decouple storage implementation
// from pipeline logic, so different backends (BadgerDB, in-memory) can be
// used interchangeably.
//
// # Constructor Return Type Pattern
//
// Public constructors in backend packages return these interfaces rather
// than concrete types:
//
//	corpus, chunks, err := badger.NewStores(path)
//
// This keeps consumers decoupled from BadgerDB specifics and lets tests
// substitute in-memory stores without modification.
//
// # Architecture
//
//   - CorpusStore: versioned documents and per-modality snapshots with
//     atomic current/archive rotation
//   - ChunkStore: chunk records with a per-document-version index, a
//     latest-version pointer, and staleness flags
//
// # Usage
//
// Create stores backed by a BadgerDB directory:
//
//	corpus, chunks, err := badger.NewStores("/path/to/db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer corpus.Close()
//
// Use in tests with in-memory storage:
//
//	corpus, chunks, err := badger.NewMemoryStores()
//
// # Thread Safety
//
// All store implementations must be thread-safe and support concurrent
// access from multiple goroutines.
//
// # Context Support
//
// All store methods accept context.Context for cancellation and timeout
// support.
package storage
