package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "paper-harvest/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// SearchConfig holds settings for querying the arXiv API.
type SearchConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// MaxResults is the maximum number of entries fetched per query (default 20).
	MaxResults int `json:"max_results" yaml:"max_results" mapstructure:"max_results"`

	// PageSize is the number of entries requested per API call. Capped at 100.
	PageSize int `json:"page_size" yaml:"page_size" mapstructure:"page_size"`

	// RequestDelay is the fixed delay between consecutive API requests (default 2s).
	RequestDelay time.Duration `json:"request_delay" yaml:"request_delay" mapstructure:"request_delay"`

	// MaxRetries bounds retries of a failed API request (default 2).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`
}

// TopicRule maps a set of keywords to a topic folder. A query belongs to the
// first rule with any keyword contained in the lowercased query.
type TopicRule struct {
	// Folder is the directory name papers are grouped under.
	Folder string `json:"folder" yaml:"folder" mapstructure:"folder"`

	// Keywords are lowercase substrings matched against the query.
	Keywords []string `json:"keywords" yaml:"keywords" mapstructure:"keywords"`
}

// HarvestConfig holds settings for a harvest run.
type HarvestConfig struct {
	// RootDir is the base directory for session directories (default "pdf").
	RootDir string `json:"root_dir" yaml:"root_dir" mapstructure:"root_dir"`

	// QueriesFile is the newline-separated query list (default "queries.txt").
	QueriesFile string `json:"queries_file" yaml:"queries_file" mapstructure:"queries_file"`

	// MaxPerQuery is the maximum number of papers downloaded per query (default 20).
	MaxPerQuery int `json:"max_per_query" yaml:"max_per_query" mapstructure:"max_per_query"`

	// DaysAgo sets the recency window: papers published on or after
	// today (UTC) minus DaysAgo are kept (default 1).
	DaysAgo int `json:"days_ago" yaml:"days_ago" mapstructure:"days_ago"`

	// Since, when set, replaces the DaysAgo cutoff with an explicit date.
	Since time.Time `json:"since,omitempty" yaml:"since,omitempty" mapstructure:"since"`

	// DownloadDelay is the delay between consecutive PDF downloads (default 1s).
	DownloadDelay time.Duration `json:"download_delay" yaml:"download_delay" mapstructure:"download_delay"`

	// HistoryPath is the SQLite history database. Empty disables history.
	HistoryPath string `json:"history_path,omitempty" yaml:"history_path,omitempty" mapstructure:"history_path"`

	// Topics overrides the built-in classification rules when non-empty.
	Topics []TopicRule `json:"topics,omitempty" yaml:"topics,omitempty" mapstructure:"topics"`
}
