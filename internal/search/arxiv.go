// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/paper-harvest/internal/httputil"
	"github.com/pdiddy/paper-harvest/pkg/types"
)

// Base URLs for the arXiv API and PDF endpoint. Declared as vars so tests
// can substitute an httptest server.
var (
	arxivAPIBase = "https://export.arxiv.org/api/query"
	arxivPDFBase = "https://arxiv.org/pdf/"
)

const (
	defaultMaxResults = 20
	maxPageSize       = 100
)

// ArxivBackend queries the arXiv API, newest submissions first.
type ArxivBackend struct {
	Client *http.Client
}

// Name returns the backend identifier.
func (b *ArxivBackend) Name() string { return "arxiv" }

// Search pages through the arXiv API until cfg.MaxResults entries are
// collected or the result set is exhausted. Consecutive page requests are
// separated by cfg.RequestDelay. If a later page fails, the entries
// collected so far are returned together with the error.
func (b *ArxivBackend) Search(ctx context.Context, query Query, cfg types.SearchConfig) ([]types.SearchResult, error) {
	q := buildArxivQuery(query)
	if q == "" {
		return nil, fmt.Errorf("empty arXiv query")
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 || pageSize > maxResults {
		pageSize = maxResults
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	var results []types.SearchResult
	start := 0
	for len(results) < maxResults {
		if start > 0 {
			if err := Wait(ctx, cfg.RequestDelay); err != nil {
				return results, err
			}
		}

		n := min(pageSize, maxResults-len(results))
		feed, err := b.fetchPage(ctx, q, start, n, cfg)
		if err != nil {
			return results, err
		}

		for _, entry := range feed.Entries {
			if strings.Contains(entry.ID, "/api/errors") {
				return results, fmt.Errorf("arXiv API error: %s", collapseSpace(entry.Summary))
			}
			if r, ok := entry.toResult(); ok {
				results = append(results, r)
			}
		}

		start += len(feed.Entries)
		if len(feed.Entries) < n || (feed.TotalResults > 0 && start >= feed.TotalResults) {
			break
		}
	}

	if len(results) > maxResults {
		results = results[:maxResults]
	}
	return results, nil
}

func (b *ArxivBackend) fetchPage(ctx context.Context, q string, start, n int, cfg types.SearchConfig) (*arxivFeed, error) {
	params := url.Values{
		"search_query": {q},
		"start":        {strconv.Itoa(start)},
		"max_results":  {strconv.Itoa(n)},
		"sortBy":       {"submittedDate"},
		"sortOrder":    {"descending"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, arxivAPIBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", cfg.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, b.Client, req, httputil.ConfiguredRetries(cfg.MaxRetries))
	if err != nil {
		return nil, fmt.Errorf("arXiv API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arXiv API returned HTTP %d", resp.StatusCode)
	}

	var feed arxivFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("parsing arXiv response: %w", err)
	}
	return &feed, nil
}

// Wait sleeps for d or until ctx is done.
func Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// buildArxivQuery constructs the search_query parameter. Free text is passed
// through unchanged so query files may use arXiv field syntax
// (e.g. "ti:transformer AND cat:cs.LG").
func buildArxivQuery(q Query) string {
	var parts []string

	if s := strings.TrimSpace(q.FreeText); s != "" {
		parts = append(parts, s)
	}
	if q.Author != "" {
		parts = append(parts, fmt.Sprintf("au:%q", strings.TrimSpace(q.Author)))
	}
	if q.Category != "" {
		parts = append(parts, "cat:"+strings.TrimSpace(q.Category))
	}

	return strings.Join(parts, " AND ")
}

// arXiv Atom feed XML structures.
type arxivFeed struct {
	TotalResults int          `xml:"http://a9.com/-/spec/opensearch/1.1/ totalResults"`
	Entries      []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	ID              string        `xml:"id"`
	Title           string        `xml:"title"`
	Summary         string        `xml:"summary"`
	Published       string        `xml:"published"`
	Updated         string        `xml:"updated"`
	Authors         []arxivAuthor `xml:"author"`
	Links           []arxivLink   `xml:"link"`
	PrimaryCategory arxivCategory `xml:"http://arxiv.org/schemas/atom primary_category"`
}

type arxivAuthor struct {
	Name string `xml:"name"`
}

type arxivLink struct {
	Href  string `xml:"href,attr"`
	Rel   string `xml:"rel,attr"`
	Title string `xml:"title,attr"`
	Type  string `xml:"type,attr"`
}

type arxivCategory struct {
	Term string `xml:"term,attr"`
}

// toResult converts a feed entry. Entries without a recognizable arXiv ID
// are dropped.
func (e arxivEntry) toResult() (types.SearchResult, bool) {
	id, ok := ParseArxivID(e.ID)
	if !ok {
		return types.SearchResult{}, false
	}

	r := types.SearchResult{
		Identifier:      id.ID,
		ShortID:         id.ShortID(),
		Title:           collapseSpace(e.Title),
		Abstract:        collapseSpace(e.Summary),
		PrimaryCategory: e.PrimaryCategory.Term,
		EntryURL:        strings.TrimSpace(e.ID),
		Source:          "arxiv",
	}

	for _, a := range e.Authors {
		r.Authors = append(r.Authors, strings.TrimSpace(a.Name))
	}
	if t, err := time.Parse(time.RFC3339, strings.TrimSpace(e.Published)); err == nil {
		r.Date = t
	}
	if t, err := time.Parse(time.RFC3339, strings.TrimSpace(e.Updated)); err == nil {
		r.Updated = t
	}

	for _, l := range e.Links {
		if l.Title == "pdf" || l.Type == "application/pdf" {
			r.PDFURL = l.Href
			break
		}
	}
	if r.PDFURL == "" {
		r.PDFURL = PDFURL(id)
	}
	return r, true
}

// PDFURL returns the arxiv.org PDF endpoint for id.
func PDFURL(id ArxivID) string {
	return arxivPDFBase + id.ShortID()
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
