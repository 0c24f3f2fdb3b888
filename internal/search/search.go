// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search queries the arXiv API and renders candidate papers.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pdiddy/paper-harvest/pkg/types"
)

// Backend searches a single paper index. The harvester depends on this
// interface so tests can substitute canned results.
type Backend interface {
	Name() string
	Search(ctx context.Context, query Query, cfg types.SearchConfig) ([]types.SearchResult, error)
}

// Query holds the search parameters. FreeText is one line of the query file.
type Query struct {
	FreeText string
	Author   string
	Category string
}

// IsEmpty reports whether the query contains no searchable terms.
func (q Query) IsEmpty() bool {
	return strings.TrimSpace(q.FreeText) == "" && q.Author == "" && q.Category == ""
}

// FormatTable writes results as a human-readable table to w. When inWindow
// is non-nil, a marker column shows which results fall in the recency window.
func FormatTable(results []types.SearchResult, inWindow func(time.Time) bool, w io.Writer) {
	if len(results) == 0 {
		fmt.Fprintln(w, "No results found.")
		return
	}

	fmt.Fprintf(w, "%-4s  %-16s  %-11s  %-3s  %-56s  %s\n",
		"Rank", "ID", "Published", "New", "Title", "Authors")
	fmt.Fprintln(w, strings.Repeat("-", 110))

	kept := 0
	for i, r := range results {
		published := ""
		if !r.Date.IsZero() {
			published = r.Date.UTC().Format("2006-01-02")
		}
		marker := ""
		if inWindow != nil && inWindow(r.Date) {
			marker = "*"
			kept++
		}
		fmt.Fprintf(w, "%-4d  %-16s  %-11s  %-3s  %-56s  %s\n",
			i+1, r.ShortID, published, marker, truncate(r.Title, 56), formatAuthors(r.Authors))
	}

	fmt.Fprintf(w, "\n%d results", len(results))
	if inWindow != nil {
		fmt.Fprintf(w, " (%d in window)", kept)
	}
	fmt.Fprintln(w)
}

// FormatJSON writes results as indented JSON to w.
func FormatJSON(results []types.SearchResult, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}

func formatAuthors(authors []string) string {
	switch len(authors) {
	case 0:
		return ""
	case 1:
		return truncate(authors[0], 20)
	default:
		return truncate(authors[0], 14) + " et al."
	}
}

// truncate shortens s to at most max runes, marking the cut with "...".
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
