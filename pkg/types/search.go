// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for paper-harvest: search
// results from the arXiv API, harvested paper records, run records, and
// stage configuration.
package types

import "time"

// SearchResult represents a candidate paper returned by an arXiv query.
type SearchResult struct {
	// Identifier is the arXiv ID without version (e.g. "2301.07041").
	Identifier string `json:"identifier" yaml:"identifier"`

	// ShortID is the arXiv ID including version (e.g. "2301.07041v2").
	ShortID string `json:"short_id" yaml:"short_id"`

	// Title is the paper title with whitespace collapsed.
	Title string `json:"title" yaml:"title"`

	// Authors lists the paper authors in source order.
	Authors []string `json:"authors" yaml:"authors"`

	// Abstract is the paper abstract or summary.
	Abstract string `json:"abstract" yaml:"abstract"`

	// Date is the publication date of the first version.
	Date time.Time `json:"date" yaml:"date"`

	// Updated is the date of the latest version.
	Updated time.Time `json:"updated,omitempty" yaml:"updated,omitempty"`

	// PrimaryCategory is the arXiv primary category (e.g. "cs.LG").
	PrimaryCategory string `json:"primary_category,omitempty" yaml:"primary_category,omitempty"`

	// EntryURL is the abstract page link.
	EntryURL string `json:"entry_url" yaml:"entry_url"`

	// PDFURL is the PDF download link.
	PDFURL string `json:"pdf_url" yaml:"pdf_url"`

	// Source identifies which backend found this result (e.g. "arxiv").
	Source string `json:"source" yaml:"source"`
}
