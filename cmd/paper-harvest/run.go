// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/paper-harvest/internal/classify"
	"github.com/pdiddy/paper-harvest/internal/harvest"
	"github.com/pdiddy/paper-harvest/internal/history"
	"github.com/pdiddy/paper-harvest/internal/search"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Search, filter, classify, and download papers for every query",
	Long: `Run reads the query file and, for each query in order, searches arXiv
(newest submissions first), keeps papers published inside the recency window,
classifies the query into a topic folder, and downloads up to max-per-query
PDFs into <root-dir>/<YYYY-MM-DD_HH-MM-SS>/<topic>/.

A failed download or a failed query is reported and skipped. The command
exits non-zero only if setup fails or every query fails.`,
	Args: cobra.NoArgs,
	RunE: runHarvest,
}

func init() {
	f := runCmd.Flags()
	f.String("queries", "queries.txt", "newline-separated query file")
	f.String("root-dir", "pdf", "base directory for session directories")
	f.Int("max-per-query", harvest.DefaultMaxPerQuery, "maximum papers downloaded per query")
	f.Int("days-ago", defaultDaysAgo, "keep papers published on or after today (UTC) minus this many days")
	f.String("since", "", "keep papers published on or after this date (overrides --days-ago)")
	f.Duration("request-delay", defaultRequestDelay, "delay between arXiv API requests")
	f.Duration("download-delay", defaultDownloadDelay, "delay between PDF downloads")
	f.Int("retries", defaultRetries, "retries for a failed HTTP request (0 disables)")
	f.Duration("timeout", defaultTimeout, "HTTP request timeout")
	f.String("history", "", "history database (default <root-dir>/history.db)")
	f.Bool("no-history", false, "do not read or write the history database")

	bind := map[string]string{
		keyQueries:       "queries",
		keyRootDir:       "root-dir",
		keyMaxPerQuery:   "max-per-query",
		keyDaysAgo:       "days-ago",
		keySince:         "since",
		keyRequestDelay:  "request-delay",
		keyDownloadDelay: "download-delay",
		keyRetries:       "retries",
		keyTimeout:       "timeout",
		keyHistory:       "history",
		keyNoHistory:     "no-history",
	}
	for key, flag := range bind {
		if err := viper.BindPFlag(key, f.Lookup(flag)); err != nil {
			panic(err)
		}
	}

	rootCmd.AddCommand(runCmd)
}

func runHarvest(cmd *cobra.Command, args []string) error {
	cfg, err := harvestConfig()
	if err != nil {
		return err
	}
	searchCfg := searchConfig()

	queries, err := search.ReadQueries(cfg.QueriesFile)
	if err != nil {
		return err
	}
	if len(queries) == 0 {
		return fmt.Errorf("no queries in %s", cfg.QueriesFile)
	}

	classifier, err := classify.New(cfg.Topics)
	if err != nil {
		return err
	}

	client := newHTTPClient(searchCfg)
	h := &harvest.Harvester{
		Backend:    &search.ArxivBackend{Client: client},
		Client:     client,
		Classifier: classifier,
		Search:     searchCfg,
		Config:     cfg,
		Out:        os.Stdout,
	}

	if cfg.HistoryPath != "" {
		store, err := history.Open(cfg.HistoryPath)
		if err != nil {
			return err
		}
		defer store.Close()
		h.History = store
	}

	summary, err := h.Run(cmd.Context(), queries)
	if err != nil {
		return err
	}
	if summary.AllQueriesFailed() {
		return fmt.Errorf("all %d queries failed", len(summary.Queries))
	}
	return nil
}
