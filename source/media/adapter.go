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


// Package media implements the audio and video source adapters. Media
// files are enumerated from a directory and run through a Transcriber
// before normalization; a failed transcription skips that document
// only, as a *core.TranscriptionError.
package media

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

var (
	audioExtensions = []string{".mp3", ".wav", ".m4a", ".flac", ".ogg"}
	videoExtensions = []string{".mp4", ".mkv", ".webm", ".mov"}
)

// Adapter transcribes media files from a directory into raw documents.
type Adapter struct {
	modality    core.Modality
	dir         string
	extensions  []string
	transcriber source.Transcriber
	logger      *slog.Logger
}

var _ source.Adapter = (*Adapter)(nil)

// NewAudio creates an adapter for the audio corpus.
func NewAudio(dir string, transcriber source.Transcriber) (*Adapter, error) {
	return newAdapter(core.ModalityAudio, dir, audioExtensions, transcriber)
}

// NewVideo creates an adapter for the video corpus.
func NewVideo(dir string, transcriber source.Transcriber) (*Adapter, error) {
	return newAdapter(core.ModalityVideo, dir, videoExtensions, transcriber)
}

func newAdapter(modality core.Modality, dir string, extensions []string, transcriber source.Transcriber) (*Adapter, error) {
	if dir == "" {
		return nil, errors.New("media adapter: directory is required")
	}
	if transcriber == nil {
		return nil, errors.New("media adapter: transcriber is required")
	}
	return &Adapter{
		modality:    modality,
		dir:         dir,
		extensions:  extensions,
		transcriber: transcriber,
		logger:      slog.Default().With("component", "media-adapter", "modality", string(modality)),
	}, nil
}

// Modality identifies this adapter's corpus.
func (a *Adapter) Modality() core.Modality {
	return a.modality
}

// Fetch enumerates media files in path order and yields one transcript
// per file. Transcription failures are yielded as per-item
// *core.TranscriptionError values; an unreadable directory aborts.
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
			yield(nil, &core.FetchError{Modality: a.modality, Err: err})
			return
		}
		slices.Sort(paths)

		for _, path := range paths {
			if err := ctx.Err(); err != nil {
				yield(nil, &core.FetchError{Modality: a.modality, Err: err})
				return
			}

			doc, err := a.transcribeFile(ctx, path)
			if err != nil {
				if !yield(nil, &core.TranscriptionError{Source: path, Err: err}) {
					return
				}
				continue
			}
			if !yield(doc, nil) {
				return
			}
		}
	}
}

func (a *Adapter) transcribeFile(ctx context.Context, path string) (*source.RawDocument, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	text, err := a.transcriber.Transcribe(ctx, filepath.Base(path), file)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("empty transcript for %s", path)
	}

	return &source.RawDocument{
		Source:    path,
		Title:     titleFromPath(path),
		Text:      text,
		FetchedAt: time.Now().UTC(),
	}, nil
}

func titleFromPath(path string) string {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	name = strings.ReplaceAll(name, "_", " ")
	name = strings.ReplaceAll(name, "-", " ")
	return strings.TrimSpace(name)
}
