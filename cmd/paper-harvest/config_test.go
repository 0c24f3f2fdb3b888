// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetViper gives each test a fresh viper with the CLI defaults.
func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	setDefaults()
	t.Cleanup(viper.Reset)
}

func TestHarvestConfigDefaults(t *testing.T) {
	resetViper(t)

	cfg, err := harvestConfig()
	require.NoError(t, err)
	assert.Equal(t, "pdf", cfg.RootDir)
	assert.Equal(t, "queries.txt", cfg.QueriesFile)
	assert.Equal(t, 20, cfg.MaxPerQuery)
	assert.Equal(t, 1, cfg.DaysAgo)
	assert.Equal(t, time.Second, cfg.DownloadDelay)
	assert.Equal(t, filepath.Join("pdf", "history.db"), cfg.HistoryPath)
	assert.True(t, cfg.Since.IsZero())
	assert.Empty(t, cfg.Topics)
}

func TestHarvestConfigTopicsFromYAML(t *testing.T) {
	resetViper(t)
	viper.SetConfigType("yaml")
	require.NoError(t, viper.ReadConfig(strings.NewReader(`
root_dir: papers
topics:
  - folder: robotics
    keywords: [Robot, manipulation]
  - folder: vision
    keywords: [image]
`)))

	cfg, err := harvestConfig()
	require.NoError(t, err)
	assert.Equal(t, "papers", cfg.RootDir)
	require.Len(t, cfg.Topics, 2)
	assert.Equal(t, "robotics", cfg.Topics[0].Folder)
	assert.Equal(t, []string{"Robot", "manipulation"}, cfg.Topics[0].Keywords)

	c, err := loadClassifier()
	require.NoError(t, err)
	assert.Equal(t, "robotics", c.Classify("robot learning"))
	assert.Equal(t, "vision", c.Classify("image segmentation"))
	assert.Equal(t, "others", c.Classify("graph networks"))
}

func TestHarvestConfigHistory(t *testing.T) {
	resetViper(t)
	viper.Set(keyRootDir, "out")

	cfg, err := harvestConfig()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("out", "history.db"), cfg.HistoryPath)

	viper.Set(keyHistory, "/tmp/custom.db")
	cfg, err = harvestConfig()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/custom.db", cfg.HistoryPath)

	viper.Set(keyNoHistory, true)
	cfg, err = harvestConfig()
	require.NoError(t, err)
	assert.Empty(t, cfg.HistoryPath)
}

func TestHarvestConfigSince(t *testing.T) {
	resetViper(t)
	viper.Set(keySince, "2024-09-15")

	cfg, err := harvestConfig()
	require.NoError(t, err)
	assert.True(t, cfg.Since.Equal(time.Date(2024, 9, 15, 0, 0, 0, 0, time.UTC)), "since = %v", cfg.Since)
}

func TestHarvestConfigRejectsInvalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value any
	}{
		{"zero max per query", keyMaxPerQuery, 0},
		{"negative max per query", keyMaxPerQuery, -5},
		{"negative days ago", keyDaysAgo, -1},
		{"bad since", keySince, "not a date"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetViper(t)
			viper.Set(tt.key, tt.value)
			_, err := harvestConfig()
			assert.Error(t, err)
		})
	}
}

func TestLoadClassifierRejectsBadTopics(t *testing.T) {
	resetViper(t)
	viper.Set(keyTopics, []map[string]any{{"folder": "../escape", "keywords": []string{"x"}}})

	_, err := loadClassifier()
	assert.Error(t, err)
}

func TestPreviewWindow(t *testing.T) {
	now := time.Date(2024, 10, 2, 12, 0, 0, 0, time.UTC)

	resetViper(t)
	w, err := previewWindow(now, -1)
	require.NoError(t, err)
	assert.Equal(t, "2024-10-01", w.String())

	viper.Set(keySince, "2024-09-15")
	w, err = previewWindow(now, -1)
	require.NoError(t, err)
	assert.Equal(t, "2024-09-15", w.String())

	// An explicit --days-ago wins over a configured since.
	w, err = previewWindow(now, 3)
	require.NoError(t, err)
	assert.Equal(t, "2024-09-29", w.String())

	viper.Set(keySince, "garbage")
	_, err = previewWindow(now, -1)
	assert.Error(t, err)
}
