package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archivemind/corpora/core"
)

func TestLoad_EmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, ":8080", cfg.API.Listen)
	assert.Equal(t, 1200, cfg.Chunking.TargetSize)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
data_dir = "/var/lib/corpora"

[api]
listen = ":9090"

[chunking]
target_size = 800
max_size = 1200

[sources.posts]
base_url = "https://blog.example.com"

[sources.books]
dir = "/books"
watch = true

[[schedule]]
modality = "post"
interval = "6h"

[[schedule]]
modality = "book"
at = "03:00"
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/corpora", cfg.DataDir)
	assert.Equal(t, ":9090", cfg.API.Listen)
	assert.Equal(t, 800, cfg.Chunking.TargetSize)
	assert.Equal(t, "https://blog.example.com", cfg.Sources.Posts.BaseURL)
	assert.True(t, cfg.Sources.Books.Watch)

	// Untouched sections keep their defaults.
	assert.Equal(t, "qwen2.5:3b", cfg.AI.Model)
	assert.Equal(t, 8, cfg.AI.MaxKeyPhrases)

	entries, err := cfg.ScheduleEntries()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, core.ModalityPost, entries[0].Modality)
	assert.Equal(t, 6*time.Hour, entries[0].Interval)
	assert.Equal(t, core.ModalityBook, entries[1].Modality)
	assert.Equal(t, "03:00", entries[1].At)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestScheduleEntries_InvalidValues(t *testing.T) {
	cfg := Default()

	cfg.Schedule = []ScheduleEntry{{Modality: "podcast"}}
	_, err := cfg.ScheduleEntries()
	assert.ErrorIs(t, err, core.ErrInvalidModality)

	cfg.Schedule = []ScheduleEntry{{Modality: "post", Interval: "soon"}}
	_, err = cfg.ScheduleEntries()
	assert.Error(t, err)
}
