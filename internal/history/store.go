// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package history records harvested papers and runs in a SQLite database so
// later runs skip papers that were already downloaded.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/paper-harvest/pkg/types"
)

// DefaultFile is the database file name placed under the harvest root.
const DefaultFile = "history.db"

const defaultLimit = 50

// timeLayout is fixed-width so text ordering matches chronological ordering.
const timeLayout = "2006-01-02T15:04:05.000000Z"

// Store manages the history SQLite database.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates the history database at path and creates the
// schema if it does not exist.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			session_dir TEXT NOT NULL,
			started_at TEXT NOT NULL,
			finished_at TEXT,
			queries INTEGER NOT NULL DEFAULT 0,
			downloaded INTEGER NOT NULL DEFAULT 0,
			skipped INTEGER NOT NULL DEFAULT 0,
			failed INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS papers (
			id TEXT PRIMARY KEY,
			short_id TEXT NOT NULL,
			title TEXT,
			authors TEXT,
			abstract TEXT,
			published TEXT,
			query TEXT,
			topic TEXT,
			pdf_path TEXT,
			source_url TEXT,
			bytes INTEGER,
			harvested_at TEXT NOT NULL,
			run_id TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_papers_topic ON papers(topic)`,
		`CREATE INDEX IF NOT EXISTS idx_papers_run ON papers(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_papers_harvested_at ON papers(harvested_at)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Seen reports whether a paper with the given version-less arXiv ID has
// been harvested before.
func (s *Store) Seen(ctx context.Context, id string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM papers WHERE id = ?`, id).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking paper %s: %w", id, err)
	}
	return n > 0, nil
}

// Record upserts a harvested paper. A newer version of a paper replaces the
// earlier record.
func (s *Store) Record(ctx context.Context, runID string, p types.Paper) error {
	authorsJSON, err := json.Marshal(p.Authors)
	if err != nil {
		return fmt.Errorf("encoding authors: %w", err)
	}
	harvested := p.HarvestedAt
	if harvested.IsZero() {
		harvested = time.Now()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO papers (id, short_id, title, authors, abstract, published, query, topic,
			pdf_path, source_url, bytes, harvested_at, run_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			short_id=excluded.short_id, title=excluded.title, authors=excluded.authors,
			abstract=excluded.abstract, published=excluded.published, query=excluded.query,
			topic=excluded.topic, pdf_path=excluded.pdf_path, source_url=excluded.source_url,
			bytes=excluded.bytes, harvested_at=excluded.harvested_at, run_id=excluded.run_id`,
		p.ID, p.ShortID, p.Title, string(authorsJSON), p.Abstract, formatTime(p.Published),
		p.Query, p.Topic, p.PDFPath, p.SourceURL, p.Bytes, formatTime(harvested), runID,
	)
	if err != nil {
		return fmt.Errorf("recording paper %s: %w", p.ID, err)
	}
	return nil
}

// SaveRun upserts a run record. The harvester saves the run when it starts
// and again with final counts when it finishes.
func (s *Store) SaveRun(ctx context.Context, r types.RunRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, session_dir, started_at, finished_at, queries, downloaded, skipped, failed)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			session_dir=excluded.session_dir, finished_at=excluded.finished_at,
			queries=excluded.queries, downloaded=excluded.downloaded,
			skipped=excluded.skipped, failed=excluded.failed`,
		r.ID, r.SessionDir, formatTime(r.StartedAt), nullTime(r.FinishedAt),
		r.Queries, r.Downloaded, r.Skipped, r.Failed,
	)
	if err != nil {
		return fmt.Errorf("saving run %s: %w", r.ID, err)
	}
	return nil
}

// Forget removes a paper so a later run downloads it again. It reports
// whether a record was removed.
func (s *Store) Forget(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM papers WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("forgetting paper %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListOptions filters List results.
type ListOptions struct {
	// Query matches papers whose title or abstract contains every
	// whitespace-separated term (case-insensitive).
	Query string

	// Topic filters by topic folder.
	Topic string

	// RunID filters by harvest run.
	RunID string

	// Since keeps papers harvested at or after this time.
	Since time.Time

	// Limit caps the result count. Zero uses the default (50); negative
	// means no limit.
	Limit int
}

// List returns harvested papers, most recent first.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]types.Paper, error) {
	var (
		qb   strings.Builder
		args []any
	)
	qb.WriteString(`SELECT ` + paperColumns + ` FROM papers WHERE 1=1`)

	for _, term := range strings.Fields(opts.Query) {
		qb.WriteString(` AND (lower(title) LIKE ? ESCAPE '\' OR lower(abstract) LIKE ? ESCAPE '\')`)
		pattern := "%" + escapeLike(strings.ToLower(term)) + "%"
		args = append(args, pattern, pattern)
	}
	if opts.Topic != "" {
		qb.WriteString(` AND topic = ?`)
		args = append(args, opts.Topic)
	}
	if opts.RunID != "" {
		qb.WriteString(` AND run_id = ?`)
		args = append(args, opts.RunID)
	}
	if !opts.Since.IsZero() {
		qb.WriteString(` AND harvested_at >= ?`)
		args = append(args, formatTime(opts.Since))
	}

	qb.WriteString(` ORDER BY harvested_at DESC, id`)
	if limit := resolveLimit(opts.Limit); limit > 0 {
		qb.WriteString(` LIMIT ?`)
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying papers: %w", err)
	}
	defer rows.Close()

	var papers []types.Paper
	for rows.Next() {
		p, err := scanPaper(rows)
		if err != nil {
			return nil, err
		}
		papers = append(papers, p)
	}
	return papers, rows.Err()
}

// ErrNotFound is returned by Get when no paper matches.
var ErrNotFound = errors.New("paper not found")

// Get returns the record for a version-less arXiv ID.
func (s *Store) Get(ctx context.Context, id string) (types.Paper, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+paperColumns+` FROM papers WHERE id = ?`, id)
	p, err := scanPaper(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Paper{}, ErrNotFound
	}
	return p, err
}

const paperColumns = `id, short_id, title, authors, abstract, published, query, topic,
	pdf_path, source_url, bytes, harvested_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanPaper(sc scanner) (types.Paper, error) {
	var (
		p                             types.Paper
		authors, published, harvested string
		size                          sql.NullInt64
	)
	err := sc.Scan(&p.ID, &p.ShortID, &p.Title, &authors, &p.Abstract, &published,
		&p.Query, &p.Topic, &p.PDFPath, &p.SourceURL, &size, &harvested)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return p, err
		}
		return p, fmt.Errorf("scanning paper: %w", err)
	}
	p.Bytes = size.Int64
	if authors != "" && authors != "null" {
		if err := json.Unmarshal([]byte(authors), &p.Authors); err != nil {
			return p, fmt.Errorf("decoding authors of %s: %w", p.ID, err)
		}
	}
	p.Published = parseTime(published)
	p.HarvestedAt = parseTime(harvested)
	return p, nil
}

// Runs returns the most recent runs first.
func (s *Store) Runs(ctx context.Context, limit int) ([]types.RunRecord, error) {
	q := `SELECT id, session_dir, started_at, finished_at, queries, downloaded, skipped, failed
		FROM runs ORDER BY started_at DESC`
	var args []any
	if l := resolveLimit(limit); l > 0 {
		q += ` LIMIT ?`
		args = append(args, l)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []types.RunRecord
	for rows.Next() {
		var (
			r        types.RunRecord
			started  string
			finished sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.SessionDir, &started, &finished,
			&r.Queries, &r.Downloaded, &r.Skipped, &r.Failed); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		r.StartedAt = parseTime(started)
		r.FinishedAt = parseTime(finished.String)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func resolveLimit(limit int) int {
	switch {
	case limit == 0:
		return defaultLimit
	case limit < 0:
		return 0
	}
	return limit
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func nullTime(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(t), Valid: true}
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
