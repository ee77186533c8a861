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
	"time"
)

// ValidateDocument checks a versioned Document before it is persisted.
func ValidateDocument(d *Document) error {
	var errs []error

	if d.Source == "" {
		errs = append(errs, ErrEmptySource)
	}
	if _, err := ParseModality(string(d.Modality)); err != nil {
		errs = append(errs, err)
	}
	if d.Text == "" {
		errs = append(errs, ErrEmptyText)
	}
	if d.Version == 0 {
		errs = append(errs, ErrInvalidVersion)
	}
	if d.FetchedAt.After(time.Now().UTC().Add(time.Minute)) {
		errs = append(errs, ErrInvalidTimestamp)
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, errors.Join(errs...))
	}
	return nil
}

// ValidateChunk checks a Chunk before it is persisted.
func ValidateChunk(c *Chunk) error {
	var errs []error

	if c.DocumentId == 0 {
		errs = append(errs, errors.New("chunk must reference a document"))
	}
	if c.DocumentVersion == 0 {
		errs = append(errs, ErrInvalidVersion)
	}
	if c.SequenceIndex < 0 {
		errs = append(errs, errors.New("sequence index must be >= 0"))
	}
	if c.Text == "" {
		errs = append(errs, ErrEmptyText)
	}
	if c.Id != ChunkIDFor(c.DocumentId, c.DocumentVersion, c.SequenceIndex) {
		errs = append(errs, errors.New("chunk id does not match its document version and sequence index"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, errors.Join(errs...))
	}
	return nil
}
