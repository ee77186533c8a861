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


// Package config loads the service configuration from a TOML file.
// Absent keys keep their defaults, so a minimal file only names the
// sources it enables.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/archivemind/corpora/chunking"
	"github.com/archivemind/corpora/core"
	"github.com/archivemind/corpora/scheduler"
)

// Config is the corporad service configuration.
type Config struct {
	DataDir  string          `toml:"data_dir"`
	PoolSize int             `toml:"pool_size"` // 0 = runtime default
	API      API             `toml:"api"`
	AI       AI              `toml:"ai"`
	Chunking chunking.Config `toml:"chunking"`
	Sources  Sources         `toml:"sources"`
	Schedule []ScheduleEntry `toml:"schedule"`
}

// API configures the HTTP server.
type API struct {
	Listen         string   `toml:"listen"`
	AllowedOrigins []string `toml:"allowed_origins"`
}

// AI configures the enrichment provider endpoint.
type AI struct {
	Host             string `toml:"host"`
	Model            string `toml:"model"`
	MaxKeyPhrases    int    `toml:"max_key_phrases"`
	SummarySentences int    `toml:"summary_sentences"`
}

// Sources configures the per-modality adapters. A source with a zero
// value is disabled.
type Sources struct {
	Posts PostSource  `toml:"posts"`
	Books BookSource  `toml:"books"`
	Audio MediaSource `toml:"audio"`
	Video MediaSource `toml:"video"`
}

// PostSource configures the web post adapter.
type PostSource struct {
	BaseURL      string `toml:"base_url"`
	ListPath     string `toml:"list_path"`
	ItemClass    string `toml:"item_class"`
	ContentClass string `toml:"content_class"`
	TagClass     string `toml:"tag_class"`
}

// BookSource configures the book library adapter.
type BookSource struct {
	Dir   string `toml:"dir"`
	Watch bool   `toml:"watch"` // trigger ingestion when files change
}

// MediaSource configures an audio or video adapter.
type MediaSource struct {
	Dir              string `toml:"dir"`
	TranscriberHost  string `toml:"transcriber_host"`
	TranscriberModel string `toml:"transcriber_model"`
}

// ScheduleEntry configures one scheduler entry. Interval is a Go
// duration string ("6h", "90m"); At is a daily run time "HH:MM".
type ScheduleEntry struct {
	Modality string `toml:"modality"`
	Interval string `toml:"interval"`
	At       string `toml:"at"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		DataDir: "data",
		API: API{
			Listen: ":8080",
		},
		AI: AI{
			Host:             "http://localhost:11434",
			Model:            "qwen2.5:3b",
			MaxKeyPhrases:    8,
			SummarySentences: 2,
		},
		Chunking: chunking.DefaultConfig(),
	}
}

// Load reads a TOML config file over the defaults. An empty path
// returns the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// ScheduleEntries converts the configured schedule into scheduler
// entries, validating modalities and durations.
func (c Config) ScheduleEntries() ([]scheduler.Entry, error) {
	entries := make([]scheduler.Entry, 0, len(c.Schedule))
	for _, item := range c.Schedule {
		modality, err := core.ParseModality(item.Modality)
		if err != nil {
			return nil, err
		}

		var interval time.Duration
		if item.Interval != "" {
			interval, err = time.ParseDuration(item.Interval)
			if err != nil {
				return nil, fmt.Errorf("schedule interval for %s: %w", modality, err)
			}
		}

		entries = append(entries, scheduler.Entry{
			Modality: modality,
			Interval: interval,
			At:       item.At,
		})
	}
	return entries, nil
}
