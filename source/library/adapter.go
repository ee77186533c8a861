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


// Package library implements the book source adapter: a directory of
// plain-text book files, plus a filesystem watcher that fires an
// ingest trigger when books appear or change.
package library

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/archivemind/corpora/core"
	"github.com/archivemind/corpora/source"
)

// defaultExtensions are the file types treated as books.
var defaultExtensions = []string{".txt", ".md"}

// Adapter reads books from a directory tree.
type Adapter struct {
	dir        string
	extensions []string
	logger     *slog.Logger
}

var _ source.Adapter = (*Adapter)(nil)

// New creates a book adapter over a directory. Extensions defaults to
// .txt and .md when empty.
func New(dir string, extensions ...string) (*Adapter, error) {
	if dir == "" {
		return nil, errors.New("library adapter: directory is required")
	}
	if len(extensions) == 0 {
		extensions = defaultExtensions
	}
	return &Adapter{
		dir:        dir,
		extensions: extensions,
		logger:     slog.Default().With("component", "library-adapter"),
	}, nil
}

// Modality identifies this adapter's corpus.
func (a *Adapter) Modality() core.Modality {
	return core.ModalityBook
}

// Fetch yields one raw document per book file, in path order. An
// unreadable directory aborts the run; an unreadable file skips that
// book only.
func (a *Adapter) Fetch(ctx context.Context) iter.Seq2[*source.RawDocument, error] {
	return func(yield func(*source.RawDocument, error) bool) {
		var paths []string
		err := filepath.WalkDir(a.dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			if slices.Contains(a.extensions, strings.ToLower(filepath.Ext(path))) {
				paths = append(paths, path)
			}
			return nil
		})
		if err != nil {
			yield(nil, &core.FetchError{Modality: core.ModalityBook, Err: err})
			return
		}
		slices.Sort(paths)

		for _, path := range paths {
			if err := ctx.Err(); err != nil {
				yield(nil, &core.FetchError{Modality: core.ModalityBook, Err: err})
				return
			}

			data, err := os.ReadFile(path)
			if err != nil {
				if !yield(nil, fmt.Errorf("book %s: %w", path, err)) {
					return
				}
				continue
			}

			if !yield(&source.RawDocument{
				Source:    path,
				Title:     titleFromPath(path),
				Text:      string(data),
				FetchedAt: time.Now().UTC(),
			}, nil) {
				return
			}
		}
	}
}

// titleFromPath derives a human-readable title from the file name.
func titleFromPath(path string) string {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	name = strings.ReplaceAll(name, "_", " ")
	name = strings.ReplaceAll(name, "-", " ")
	return strings.TrimSpace(name)
}
