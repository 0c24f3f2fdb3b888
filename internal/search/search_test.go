package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pdiddy/paper-harvest/internal/httputil"
	"github.com/pdiddy/paper-harvest/pkg/types"
)

func init() {
	httputil.RetryBaseDelay = time.Millisecond
}

func testCfg() types.SearchConfig {
	return types.SearchConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:   10 * time.Second,
			UserAgent: "test/0.1",
		},
		MaxResults:   20,
		RequestDelay: 0,
		MaxRetries:   2,
	}
}

// feedXML renders an Atom feed with the given entries and totalResults.
func feedXML(total int, entries ...string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom" xmlns:opensearch="http://a9.com/-/spec/opensearch/1.1/" xmlns:arxiv="http://arxiv.org/schemas/atom">
  <opensearch:totalResults>` + strconv.Itoa(total) + `</opensearch:totalResults>
` + strings.Join(entries, "\n") + `
</feed>`
}

func entryXML(id, title, published string) string {
	return fmt.Sprintf(`  <entry>
    <id>http://arxiv.org/abs/%s</id>
    <updated>%s</updated>
    <published>%s</published>
    <title>%s</title>
    <summary>  An abstract
      spanning lines. </summary>
    <author><name>Alice Smith</name></author>
    <author><name>Bob Jones</name></author>
    <link href="http://arxiv.org/abs/%s" rel="alternate" type="text/html"/>
    <link title="pdf" href="http://arxiv.org/pdf/%s" rel="related" type="application/pdf"/>
    <arxiv:primary_category term="cs.LG" scheme="http://arxiv.org/schemas/atom"/>
  </entry>`, id, published, published, title, id, id)
}

func overrideAPI(t *testing.T, url string) {
	t.Helper()
	orig := arxivAPIBase
	arxivAPIBase = url
	t.Cleanup(func() { arxivAPIBase = orig })
}

// --- Query ---

func TestQueryIsEmpty(t *testing.T) {
	tests := []struct {
		name  string
		query Query
		want  bool
	}{
		{"empty", Query{}, true},
		{"whitespace", Query{FreeText: "   "}, true},
		{"free text", Query{FreeText: "graph neural network"}, false},
		{"author only", Query{Author: "Smith"}, false},
		{"category only", Query{Category: "cs.LG"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.query.IsEmpty(); got != tt.want {
				t.Errorf("IsEmpty() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBuildArxivQuery(t *testing.T) {
	tests := []struct {
		name  string
		query Query
		want  string
	}{
		{"raw passthrough", Query{FreeText: "ti:diffusion AND cat:cs.LG"}, "ti:diffusion AND cat:cs.LG"},
		{"trimmed", Query{FreeText: "  causal  "}, "causal"},
		{"author", Query{FreeText: "llm", Author: "Jane Doe"}, `llm AND au:"Jane Doe"`},
		{"category", Query{FreeText: "agents", Category: "cs.AI"}, "agents AND cat:cs.AI"},
		{"empty", Query{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := buildArxivQuery(tt.query); got != tt.want {
				t.Errorf("buildArxivQuery() = %q, want %q", got, tt.want)
			}
		})
	}
}

// --- Identifiers ---

func TestParseArxivID(t *testing.T) {
	tests := []struct {
		input   string
		wantID  string
		wantVer string
		wantOK  bool
	}{
		{"2301.07041", "2301.07041", "", true},
		{"2301.07041v2", "2301.07041", "v2", true},
		{"arXiv:2301.12345", "2301.12345", "", true},
		{"http://arxiv.org/abs/2301.07041v1", "2301.07041", "v1", true},
		{"https://arxiv.org/pdf/2301.07041v3.pdf", "2301.07041", "v3", true},
		{"http://arxiv.org/abs/hep-th/9901001v1", "hep-th/9901001", "v1", true},
		{"math.GT/0309136", "math.GT/0309136", "", true},
		{"http://arxiv.org/api/errors#incorrect_id_format", "", "", false},
		{"not-an-id", "", "", false},
		{"", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseArxivID(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("ParseArxivID(%q) ok = %v, want %v", tt.input, ok, tt.wantOK)
			}
			if got.ID != tt.wantID || got.Version != tt.wantVer {
				t.Errorf("ParseArxivID(%q) = %+v, want {%s %s}", tt.input, got, tt.wantID, tt.wantVer)
			}
		})
	}
}

// --- ArxivBackend ---

func TestArxivSearchParsesEntries(t *testing.T) {
	var gotQuery string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		if ua := r.Header.Get("User-Agent"); ua != "test/0.1" {
			t.Errorf("User-Agent = %q", ua)
		}
		fmt.Fprint(w, feedXML(2,
			entryXML("2410.00001v1", "First   Paper\n  Title", "2024-10-02T17:59:01Z"),
			entryXML("2410.00002v2", "Second Paper", "2024-10-01T09:00:00Z"),
		))
	}))
	defer ts.Close()
	overrideAPI(t, ts.URL)

	b := &ArxivBackend{Client: ts.Client()}
	results, err := b.Search(context.Background(), Query{FreeText: "graph learning"}, testCfg())
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(results))
	}

	for _, want := range []string{"sortBy=submittedDate", "sortOrder=descending", "search_query=graph+learning", "max_results=20", "start=0"} {
		if !strings.Contains(gotQuery, want) {
			t.Errorf("query %q missing %q", gotQuery, want)
		}
	}

	r := results[0]
	if r.Identifier != "2410.00001" || r.ShortID != "2410.00001v1" {
		t.Errorf("ids = %q/%q", r.Identifier, r.ShortID)
	}
	if r.Title != "First Paper Title" {
		t.Errorf("Title = %q", r.Title)
	}
	if r.Abstract != "An abstract spanning lines." {
		t.Errorf("Abstract = %q", r.Abstract)
	}
	if len(r.Authors) != 2 || r.Authors[1] != "Bob Jones" {
		t.Errorf("Authors = %v", r.Authors)
	}
	if r.PDFURL != "http://arxiv.org/pdf/2410.00001v1" {
		t.Errorf("PDFURL = %q", r.PDFURL)
	}
	if r.PrimaryCategory != "cs.LG" {
		t.Errorf("PrimaryCategory = %q", r.PrimaryCategory)
	}
	want := time.Date(2024, 10, 2, 17, 59, 1, 0, time.UTC)
	if !r.Date.Equal(want) {
		t.Errorf("Date = %v, want %v", r.Date, want)
	}
	if r.Source != "arxiv" {
		t.Errorf("Source = %q", r.Source)
	}
}

func TestArxivSearchPaginates(t *testing.T) {
	var starts []string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := r.URL.Query().Get("start")
		n, _ := strconv.Atoi(r.URL.Query().Get("max_results"))
		starts = append(starts, start+"/"+strconv.Itoa(n))
		s, _ := strconv.Atoi(start)
		var entries []string
		for i := 0; i < n; i++ {
			entries = append(entries, entryXML(fmt.Sprintf("2410.%05dv1", s+i), "Paper", "2024-10-01T00:00:00Z"))
		}
		fmt.Fprint(w, feedXML(1000, entries...))
	}))
	defer ts.Close()
	overrideAPI(t, ts.URL)

	cfg := testCfg()
	cfg.MaxResults = 5
	cfg.PageSize = 2

	b := &ArxivBackend{Client: ts.Client()}
	results, err := b.Search(context.Background(), Query{FreeText: "x"}, cfg)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 5 {
		t.Fatalf("len(results) = %d, want 5", len(results))
	}
	wantStarts := []string{"0/2", "2/2", "4/1"}
	if strings.Join(starts, ",") != strings.Join(wantStarts, ",") {
		t.Errorf("pages = %v, want %v", starts, wantStarts)
	}
	if results[4].Identifier != "2410.00004" {
		t.Errorf("last result = %q", results[4].Identifier)
	}
}

func TestArxivSearchStopsAtTotalResults(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		fmt.Fprint(w, feedXML(2,
			entryXML("2410.00001v1", "A", "2024-10-01T00:00:00Z"),
			entryXML("2410.00002v1", "B", "2024-10-01T00:00:00Z"),
		))
	}))
	defer ts.Close()
	overrideAPI(t, ts.URL)

	cfg := testCfg()
	cfg.MaxResults = 10
	cfg.PageSize = 2

	b := &ArxivBackend{Client: ts.Client()}
	results, err := b.Search(context.Background(), Query{FreeText: "x"}, cfg)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("len(results) = %d, want 2", len(results))
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("calls = %d, want 1", n)
	}
}

func TestArxivSearchPageSizeCapped(t *testing.T) {
	var gotMax string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMax = r.URL.Query().Get("max_results")
		fmt.Fprint(w, feedXML(0))
	}))
	defer ts.Close()
	overrideAPI(t, ts.URL)

	cfg := testCfg()
	cfg.MaxResults = 500

	b := &ArxivBackend{Client: ts.Client()}
	if _, err := b.Search(context.Background(), Query{FreeText: "x"}, cfg); err != nil {
		t.Fatalf("Search: %v", err)
	}
	if gotMax != "100" {
		t.Errorf("max_results = %q, want 100", gotMax)
	}
}

func TestArxivSearchAPIErrorEntry(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, feedXML(1, `<entry>
    <id>http://arxiv.org/api/errors#incorrect_id_format_for_x</id>
    <title>Error</title>
    <summary>incorrect id format for x</summary>
  </entry>`))
	}))
	defer ts.Close()
	overrideAPI(t, ts.URL)

	b := &ArxivBackend{Client: ts.Client()}
	_, err := b.Search(context.Background(), Query{FreeText: "x"}, testCfg())
	if err == nil || !strings.Contains(err.Error(), "incorrect id format") {
		t.Errorf("expected API error, got %v", err)
	}
}

func TestArxivSearchHTTPError(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer ts.Close()
	overrideAPI(t, ts.URL)

	b := &ArxivBackend{Client: ts.Client()}
	_, err := b.Search(context.Background(), Query{FreeText: "x"}, testCfg())
	if err == nil || !strings.Contains(err.Error(), "HTTP 503") {
		t.Errorf("expected HTTP 503 error, got %v", err)
	}
	// 1 initial + 2 retries.
	if n := atomic.LoadInt32(&calls); n != 3 {
		t.Errorf("calls = %d, want 3", n)
	}
}

func TestArxivSearchEmptyQuery(t *testing.T) {
	b := &ArxivBackend{Client: http.DefaultClient}
	_, err := b.Search(context.Background(), Query{}, testCfg())
	if err == nil || !strings.Contains(err.Error(), "empty") {
		t.Errorf("expected empty query error, got %v", err)
	}
}

func TestEntryPDFFallback(t *testing.T) {
	orig := arxivPDFBase
	arxivPDFBase = "https://mirror.example/pdf/"
	defer func() { arxivPDFBase = orig }()

	e := arxivEntry{ID: "http://arxiv.org/abs/2301.07041v4", Title: "T"}
	r, ok := e.toResult()
	if !ok {
		t.Fatal("toResult rejected a valid entry")
	}
	if r.PDFURL != "https://mirror.example/pdf/2301.07041v4" {
		t.Errorf("PDFURL = %q", r.PDFURL)
	}
}

func TestWaitCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Wait(ctx, time.Hour); err == nil {
		t.Error("Wait should return the context error")
	}
	if err := Wait(context.Background(), 0); err != nil {
		t.Errorf("Wait(0) = %v", err)
	}
}

// --- Query file ---

func TestReadQueries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queries.txt")
	content := "\ufeffgraph neural network\n\n  # disabled query\n  causal representation learning  \r\nllm agents\n   \n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := ReadQueries(path)
	if err != nil {
		t.Fatalf("ReadQueries: %v", err)
	}
	want := []string{"graph neural network", "causal representation learning", "llm agents"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("ReadQueries = %q, want %q", got, want)
	}
}

func TestReadQueriesMissing(t *testing.T) {
	_, err := ReadQueries(filepath.Join(t.TempDir(), "nope.txt"))
	if err == nil {
		t.Error("expected error for missing file")
	}
}

// --- Formatting ---

func TestFormatTable(t *testing.T) {
	now := time.Now().UTC()
	results := []types.SearchResult{
		{ShortID: "2410.00001v1", Title: "Recent", Authors: []string{"Alice Smith", "Bob"}, Date: now},
		{ShortID: "2001.00001v1", Title: strings.Repeat("Long title ", 10), Authors: []string{"Carol"}, Date: now.AddDate(-4, 0, 0)},
	}
	inWindow := func(d time.Time) bool { return now.Sub(d) < 48*time.Hour }

	var buf bytes.Buffer
	FormatTable(results, inWindow, &buf)
	out := buf.String()

	if !strings.Contains(out, "2410.00001v1") || !strings.Contains(out, "Alice Smith et al.") {
		t.Errorf("table missing row data:\n%s", out)
	}
	if !strings.Contains(out, "...") {
		t.Error("long title should be truncated")
	}
	if !strings.Contains(out, "2 results (1 in window)") {
		t.Errorf("summary line wrong:\n%s", out)
	}
}

func TestFormatTableEmpty(t *testing.T) {
	var buf bytes.Buffer
	FormatTable(nil, nil, &buf)
	if !strings.Contains(buf.String(), "No results found.") {
		t.Errorf("got %q", buf.String())
	}
}

func TestFormatJSON(t *testing.T) {
	var buf bytes.Buffer
	results := []types.SearchResult{{Identifier: "2410.00001", ShortID: "2410.00001v1", Title: "A"}}
	if err := FormatJSON(results, &buf); err != nil {
		t.Fatalf("FormatJSON: %v", err)
	}
	var decoded []types.SearchResult
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(decoded) != 1 || decoded[0].ShortID != "2410.00001v1" {
		t.Errorf("decoded = %+v", decoded)
	}
}
