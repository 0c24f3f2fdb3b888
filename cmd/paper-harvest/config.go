package main

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/pdiddy/paper-harvest/internal/classify"
	"github.com/pdiddy/paper-harvest/internal/harvest"
	"github.com/pdiddy/paper-harvest/internal/history"
	"github.com/pdiddy/paper-harvest/pkg/types"
)

// Configuration keys. Environment variables are PAPER_HARVEST_ plus the
// upper-cased key.
const (
	keyQueries       = "queries"
	keyRootDir       = "root_dir"
	keyMaxPerQuery   = "max_per_query"
	keyDaysAgo       = "days_ago"
	keySince         = "since"
	keyRequestDelay  = "request_delay"
	keyDownloadDelay = "download_delay"
	keyRetries       = "retries"
	keyTimeout       = "timeout"
	keyUserAgent     = "user_agent"
	keyHistory       = "history"
	keyNoHistory     = "no_history"
	keyTopics        = "topics"
)

const (
	defaultTimeout       = 60 * time.Second
	defaultRequestDelay  = 2 * time.Second
	defaultDownloadDelay = 1 * time.Second
	defaultRetries       = 2
	defaultDaysAgo       = 1
	defaultUserAgent     = "paper-harvest/0.1"
)

func setDefaults() {
	viper.SetDefault(keyQueries, "queries.txt")
	viper.SetDefault(keyRootDir, "pdf")
	viper.SetDefault(keyMaxPerQuery, harvest.DefaultMaxPerQuery)
	viper.SetDefault(keyDaysAgo, defaultDaysAgo)
	viper.SetDefault(keyRequestDelay, defaultRequestDelay)
	viper.SetDefault(keyDownloadDelay, defaultDownloadDelay)
	viper.SetDefault(keyRetries, defaultRetries)
	viper.SetDefault(keyTimeout, defaultTimeout)
	viper.SetDefault(keyUserAgent, defaultUserAgent)
}

// searchConfig builds the arXiv and download settings from viper.
func searchConfig() types.SearchConfig {
	timeout := viper.GetDuration(keyTimeout)
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return types.SearchConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:   timeout,
			UserAgent: viper.GetString(keyUserAgent),
		},
		RequestDelay: viper.GetDuration(keyRequestDelay),
		MaxRetries:   viper.GetInt(keyRetries),
	}
}

// harvestConfig builds the run settings from viper. The history path is
// resolved against the root directory unless history is disabled.
func harvestConfig() (types.HarvestConfig, error) {
	cfg := types.HarvestConfig{
		RootDir:       viper.GetString(keyRootDir),
		QueriesFile:   viper.GetString(keyQueries),
		MaxPerQuery:   viper.GetInt(keyMaxPerQuery),
		DaysAgo:       viper.GetInt(keyDaysAgo),
		DownloadDelay: viper.GetDuration(keyDownloadDelay),
	}
	if cfg.MaxPerQuery <= 0 {
		return cfg, fmt.Errorf("max-per-query must be positive, got %d", cfg.MaxPerQuery)
	}
	if cfg.DaysAgo < 0 {
		return cfg, fmt.Errorf("days-ago must not be negative, got %d", cfg.DaysAgo)
	}

	if s := viper.GetString(keySince); s != "" {
		since, err := harvest.ParseSince(s)
		if err != nil {
			return cfg, err
		}
		cfg.Since = since
	}

	if !viper.GetBool(keyNoHistory) {
		cfg.HistoryPath = historyPath(cfg.RootDir)
	}

	topics, err := topicRules()
	if err != nil {
		return cfg, err
	}
	cfg.Topics = topics
	return cfg, nil
}

// topicRules returns the configured topic rules; nil means the built-in ones.
func topicRules() ([]types.TopicRule, error) {
	var rules []types.TopicRule
	if err := viper.UnmarshalKey(keyTopics, &rules); err != nil {
		return nil, fmt.Errorf("reading topics: %w", err)
	}
	return rules, nil
}

// previewWindow is the recency window for the search preview. An explicit
// daysAgo (>= 0) wins; otherwise the configured since or days_ago applies,
// as for run.
func previewWindow(now time.Time, daysAgo int) (harvest.Window, error) {
	if daysAgo >= 0 {
		return harvest.NewWindow(now, daysAgo), nil
	}
	if s := viper.GetString(keySince); s != "" {
		since, err := harvest.ParseSince(s)
		if err != nil {
			return harvest.Window{}, err
		}
		return harvest.WindowSince(since), nil
	}
	return harvest.NewWindow(now, viper.GetInt(keyDaysAgo)), nil
}

func historyPath(rootDir string) string {
	if p := viper.GetString(keyHistory); p != "" {
		return p
	}
	return filepath.Join(rootDir, history.DefaultFile)
}

// loadClassifier returns the configured topic rules, or the built-in ones.
func loadClassifier() (*classify.Classifier, error) {
	rules, err := topicRules()
	if err != nil {
		return nil, err
	}
	return classify.New(rules)
}

// openExistingHistory opens the history database for the history commands.
// It does not create a database that a harvest run never wrote.
func openExistingHistory() (*history.Store, error) {
	path := historyPath(viper.GetString(keyRootDir))
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("no history at %s: %w", path, err)
	}
	return history.Open(path)
}

func newHTTPClient(cfg types.SearchConfig) *http.Client {
	return &http.Client{Timeout: cfg.Timeout}
}
