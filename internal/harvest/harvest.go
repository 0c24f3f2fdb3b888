// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package harvest runs the query list against arXiv: each query is
// classified into a topic folder, searched, filtered by recency, and its
// papers downloaded into a timestamped session directory with a plaintext
// log. Failures of single papers or queries are reported and skipped.
package harvest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/pdiddy/paper-harvest/internal/acquire"
	"github.com/pdiddy/paper-harvest/internal/classify"
	"github.com/pdiddy/paper-harvest/internal/search"
	"github.com/pdiddy/paper-harvest/pkg/types"
)

// DefaultMaxPerQuery is used when HarvestConfig.MaxPerQuery is not positive.
const DefaultMaxPerQuery = 20

// History remembers papers across runs. *history.Store implements it.
type History interface {
	Seen(ctx context.Context, id string) (bool, error)
	Record(ctx context.Context, runID string, p types.Paper) error
	SaveRun(ctx context.Context, r types.RunRecord) error
}

// Harvester executes harvest runs. Backend, Client, Classifier, and Out are
// required; History is optional.
type Harvester struct {
	Backend    search.Backend
	Client     *http.Client
	Classifier *classify.Classifier
	History    History
	Search     types.SearchConfig
	Config     types.HarvestConfig
	Out        io.Writer

	// Now returns the current time; nil uses time.Now.
	Now func() time.Time
}

// QueryResult records what happened to one query.
type QueryResult struct {
	Query       string        `yaml:"query"`
	Topic       string        `yaml:"topic"`
	Found       int           `yaml:"found"`
	OutOfWindow int           `yaml:"out_of_window"`
	Downloaded  int           `yaml:"downloaded"`
	Skipped     int           `yaml:"skipped"`
	Failed      int           `yaml:"failed"`
	Error       string        `yaml:"error,omitempty"`
	Papers      []types.Paper `yaml:"papers,omitempty"`
}

// Summary is the outcome of a harvest run.
type Summary struct {
	Run     types.RunRecord
	Window  Window
	Queries []QueryResult

	// FailedQueries counts queries whose search failed without results.
	FailedQueries int
}

// AllQueriesFailed reports whether there were queries and none of them
// produced search results.
func (s Summary) AllQueriesFailed() bool {
	return len(s.Queries) > 0 && s.FailedQueries == len(s.Queries)
}

// Run executes every query in order and returns the run summary. It fails
// only when the session directory cannot be set up; per-query and
// per-paper failures are reported on Out and counted. If ctx is cancelled
// the run stops, the manifest is still written, and ctx.Err() is returned
// with the partial summary.
func (h *Harvester) Run(ctx context.Context, queries []string) (Summary, error) {
	started := h.now()
	window := h.window(started)
	maxPerQuery := h.maxPerQuery()

	session, err := NewSession(h.rootDir(), started, maxPerQuery, window)
	if err != nil {
		return Summary{}, err
	}

	summary := Summary{
		Run: types.RunRecord{
			ID:         newRunID(started),
			SessionDir: session.Dir,
			StartedAt:  started,
		},
		Window: window,
	}
	if h.History != nil {
		if err := h.History.SaveRun(ctx, summary.Run); err != nil {
			fmt.Fprintf(h.Out, "warning: history: %v\n", err)
		}
	}

	fmt.Fprintf(h.Out, "Harvesting papers published on or after %s (%d queries, max %d per query)\n",
		window, len(queries), maxPerQuery)
	fmt.Fprintf(h.Out, "session: %s\n", session.Dir)

	seen := make(sessionSeen)
	var runErr error
	for i, q := range queries {
		if i > 0 {
			if err := search.Wait(ctx, h.Search.RequestDelay); err != nil {
				runErr = err
				break
			}
		}

		qr := h.runQuery(ctx, session, window, summary.Run.ID, q, seen)
		summary.Queries = append(summary.Queries, qr)
		summary.Run.Queries++
		summary.Run.Downloaded += qr.Downloaded
		summary.Run.Skipped += qr.Skipped
		summary.Run.Failed += qr.Failed
		if qr.Error != "" && qr.Found == 0 {
			summary.FailedQueries++
		}

		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
	}

	summary.Run.FinishedAt = h.now()

	manifest := Manifest{
		RunID:       summary.Run.ID,
		StartedAt:   summary.Run.StartedAt,
		FinishedAt:  summary.Run.FinishedAt,
		Cutoff:      window.String(),
		MaxPerQuery: maxPerQuery,
		Interrupted: runErr != nil,
		Totals:      summary.Run,
		Queries:     summary.Queries,
	}
	if err := session.WriteManifest(manifest); err != nil {
		fmt.Fprintf(h.Out, "warning: manifest: %v\n", err)
	}
	if h.History != nil {
		// The run context may already be cancelled; the final record is
		// still worth keeping.
		if err := h.History.SaveRun(context.WithoutCancel(ctx), summary.Run); err != nil {
			fmt.Fprintf(h.Out, "warning: history: %v\n", err)
		}
	}

	fmt.Fprintf(h.Out, "\nHarvest summary: %d downloaded, %d skipped, %d failed across %d queries\n",
		summary.Run.Downloaded, summary.Run.Skipped, summary.Run.Failed, summary.Run.Queries)
	if runErr != nil {
		fmt.Fprintf(h.Out, "interrupted: %v\n", runErr)
	}
	return summary, runErr
}

// runQuery searches one query and downloads the in-window results into
// the query's topic folder, never more than the per-query maximum.
func (h *Harvester) runQuery(ctx context.Context, session *Session, window Window, runID, query string, seen sessionSeen) QueryResult {
	topic := h.Classifier.Classify(query)
	qr := QueryResult{Query: query, Topic: topic}
	maxPerQuery := h.maxPerQuery()

	fmt.Fprintf(h.Out, "\nsearching: %s -> %s\n", query, topic)

	cfg := h.Search
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = maxPerQuery
	}

	results, err := h.Backend.Search(ctx, search.Query{FreeText: query}, cfg)
	qr.Found = len(results)
	if err != nil {
		qr.Error = err.Error()
		if len(results) == 0 {
			fmt.Fprintf(h.Out, "failed:  query %q (%v)\n", query, err)
			return qr
		}
		fmt.Fprintf(h.Out, "warning: query %q stopped early (%v), continuing with %d results\n",
			query, err, len(results))
	}

	dir := session.TopicDir(topic)
	attempts := 0
	for _, r := range results {
		if ctx.Err() != nil {
			break
		}
		if !window.Contains(r.Date) {
			qr.OutOfWindow++
			continue
		}
		if qr.Downloaded >= maxPerQuery {
			break
		}

		if seen.has(topic, r.Identifier) {
			fmt.Fprintf(h.Out, "skipped: %s (already downloaded into %s in this session)\n", r.ShortID, topic)
			qr.Skipped++
			continue
		}
		// Papers from this session are already in the history; only
		// earlier runs count there.
		if h.History != nil && !seen.anyTopic(r.Identifier) {
			known, err := h.History.Seen(ctx, r.Identifier)
			if err != nil {
				fmt.Fprintf(h.Out, "warning: history: %v\n", err)
			} else if known {
				fmt.Fprintf(h.Out, "skipped: %s (harvested by an earlier run)\n", r.ShortID)
				qr.Skipped++
				continue
			}
		}

		if attempts > 0 {
			if err := search.Wait(ctx, h.Config.DownloadDelay); err != nil {
				break
			}
		}
		attempts++

		p, err := h.download(ctx, r, dir)
		if errors.Is(err, acquire.ErrExists) {
			fmt.Fprintf(h.Out, "skipped: %s (file exists)\n", r.ShortID)
			seen.add(topic, r.Identifier)
			qr.Skipped++
			continue
		}
		if err != nil && ctx.Err() != nil {
			break
		}
		if err != nil {
			fmt.Fprintf(h.Out, "failed:  %s (%v)\n", r.ShortID, err)
			qr.Failed++
			continue
		}
		p.Query = query
		p.Topic = topic

		fmt.Fprintf(h.Out, "downloaded: %s (%s) %s\n", p.ShortID, humanize.Bytes(uint64(p.Bytes)), shorten(p.Title, 50))
		if err := session.Log.Append(p); err != nil {
			fmt.Fprintf(h.Out, "warning: log: %v\n", err)
		}
		if h.History != nil {
			if err := h.History.Record(ctx, runID, p); err != nil {
				fmt.Fprintf(h.Out, "warning: history: %v\n", err)
			}
		}

		seen.add(topic, r.Identifier)
		qr.Downloaded++
		qr.Papers = append(qr.Papers, p)
	}

	fmt.Fprintf(h.Out, "%d downloaded into %s\n", qr.Downloaded, topic)
	return qr
}

// sessionSeen tracks the papers downloaded in a session per topic folder.
// A paper returned for queries in two topics is stored in both folders.
type sessionSeen map[string]map[string]bool

func (s sessionSeen) add(topic, id string) {
	if s[id] == nil {
		s[id] = make(map[string]bool)
	}
	s[id][topic] = true
}

func (s sessionSeen) has(topic, id string) bool { return s[id][topic] }

func (s sessionSeen) anyTopic(id string) bool { return len(s[id]) > 0 }

func (h *Harvester) download(ctx context.Context, r types.SearchResult, dir string) (types.Paper, error) {
	req := acquire.Request{
		URL:      r.PDFURL,
		Dir:      dir,
		Filename: acquire.Filename(r.ShortID),
	}
	n, err := acquire.Download(ctx, h.Client, req, h.Search)
	if err != nil {
		return types.Paper{}, err
	}

	p := types.PaperFromResult(r)
	p.PDFPath = req.Path()
	p.Bytes = n
	p.HarvestedAt = h.now()
	return p, nil
}

func (h *Harvester) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func (h *Harvester) window(now time.Time) Window {
	if !h.Config.Since.IsZero() {
		return WindowSince(h.Config.Since)
	}
	return NewWindow(now, h.Config.DaysAgo)
}

func (h *Harvester) maxPerQuery() int {
	if h.Config.MaxPerQuery > 0 {
		return h.Config.MaxPerQuery
	}
	return DefaultMaxPerQuery
}

func (h *Harvester) rootDir() string {
	if h.Config.RootDir != "" {
		return h.Config.RootDir
	}
	return "pdf"
}

// newRunID returns a time-ordered UUID v7, falling back to a timestamp.
func newRunID(now time.Time) string {
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Sprintf("run-%d", now.UnixNano())
	}
	return id.String()
}

func shorten(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}
