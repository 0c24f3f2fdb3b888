package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-harvest/internal/harvest"
	"github.com/pdiddy/paper-harvest/internal/search"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Preview arXiv results for a query without downloading",
	Long: `Search runs a single query against arXiv, newest submissions first, and
prints the results with the topic folder the query would be filed under.
Results inside the recency window are marked with *. Nothing is downloaded.

The query is passed to arXiv unchanged, so field syntax such as
"ti:transformer AND cat:cs.LG" works.`,
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().String("author", "", "filter by author name")
	searchCmd.Flags().String("category", "", "filter by arXiv category (e.g. cs.LG)")
	searchCmd.Flags().Int("max-results", harvest.DefaultMaxPerQuery, "maximum number of results to return")
	searchCmd.Flags().Int("days-ago", -1, "recency window for the * marker (default: since or days_ago from config)")
	searchCmd.Flags().Bool("json", false, "output results as JSON")

	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	author, _ := cmd.Flags().GetString("author")
	category, _ := cmd.Flags().GetString("category")
	q := search.Query{
		FreeText: strings.Join(args, " "),
		Author:   author,
		Category: category,
	}
	if q.IsEmpty() {
		return fmt.Errorf("provide a query, --author, or --category")
	}

	cfg := searchConfig()
	cfg.MaxResults, _ = cmd.Flags().GetInt("max-results")

	daysAgo, _ := cmd.Flags().GetInt("days-ago")
	window, err := previewWindow(time.Now(), daysAgo)
	if err != nil {
		return err
	}

	backend := &search.ArxivBackend{Client: newHTTPClient(cfg)}
	results, err := backend.Search(cmd.Context(), q, cfg)
	if err != nil && len(results) == 0 {
		return fmt.Errorf("searching arXiv: %w", err)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v (showing %d results)\n", err, len(results))
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return search.FormatJSON(results, os.Stdout)
	}

	if q.FreeText != "" {
		classifier, err := loadClassifier()
		if err != nil {
			return err
		}
		fmt.Printf("Topic: %s\n", classifier.Classify(q.FreeText))
	}
	fmt.Printf("Window: published on or after %s\n\n", window)
	search.FormatTable(results, window.Contains, os.Stdout)
	return nil
}
