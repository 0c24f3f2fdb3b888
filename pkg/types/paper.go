// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Paper is the record of a harvested paper: search metadata plus where and
// why it was stored.
type Paper struct {
	// ID is the arXiv ID without version (e.g. "2301.07041").
	ID string `json:"id" yaml:"id"`

	// ShortID is the versioned arXiv ID used for the PDF filename.
	ShortID string `json:"short_id" yaml:"short_id"`

	// Title is the paper title.
	Title string `json:"title" yaml:"title"`

	// Authors lists the paper authors in source order.
	Authors []string `json:"authors" yaml:"authors"`

	// Abstract is the paper abstract.
	Abstract string `json:"abstract,omitempty" yaml:"abstract,omitempty"`

	// Published is the publication date of the first version.
	Published time.Time `json:"published" yaml:"published"`

	// Query is the query string that found the paper.
	Query string `json:"query" yaml:"query"`

	// Topic is the folder the paper was classified into.
	Topic string `json:"topic" yaml:"topic"`

	// PDFPath is the local filesystem path to the downloaded PDF.
	PDFPath string `json:"pdf_path" yaml:"pdf_path"`

	// SourceURL is the URL from which the PDF was downloaded.
	SourceURL string `json:"source_url" yaml:"source_url"`

	// Bytes is the size of the downloaded PDF.
	Bytes int64 `json:"bytes" yaml:"bytes"`

	// HarvestedAt is when the download completed.
	HarvestedAt time.Time `json:"harvested_at" yaml:"harvested_at"`
}

// PaperFromResult builds a Paper record from a search result.
func PaperFromResult(r SearchResult) Paper {
	return Paper{
		ID:        r.Identifier,
		ShortID:   r.ShortID,
		Title:     r.Title,
		Authors:   r.Authors,
		Abstract:  r.Abstract,
		Published: r.Date,
		SourceURL: r.PDFURL,
	}
}

// RunRecord summarizes one harvest run.
type RunRecord struct {
	// ID is the run identifier (UUID v7).
	ID string `json:"id" yaml:"id"`

	// SessionDir is the timestamped output directory.
	SessionDir string `json:"session_dir" yaml:"session_dir"`

	// StartedAt and FinishedAt bound the run.
	StartedAt  time.Time `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time `json:"finished_at" yaml:"finished_at"`

	// Queries is the number of queries executed.
	Queries int `json:"queries" yaml:"queries"`

	// Downloaded, Skipped, and Failed count papers across all queries.
	Downloaded int `json:"downloaded" yaml:"downloaded"`
	Skipped    int `json:"skipped" yaml:"skipped"`
	Failed     int `json:"failed" yaml:"failed"`
}
