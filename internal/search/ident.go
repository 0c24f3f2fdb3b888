// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"regexp"
	"strings"
)

// ArxivID is a parsed arXiv identifier.
type ArxivID struct {
	// ID is the identifier without version: "2301.07041" or "hep-th/9901001".
	ID string

	// Version is the version suffix including "v" (e.g. "v2"), or empty.
	Version string
}

// ShortID returns the identifier with its version suffix, if any.
func (a ArxivID) ShortID() string {
	return a.ID + a.Version
}

// newStylePattern matches identifiers since April 2007: "2301.07041", "0704.0001v3".
var newStylePattern = regexp.MustCompile(`^(\d{4}\.\d{4,5})(v\d+)?$`)

// oldStylePattern matches archive-prefixed identifiers: "hep-th/9901001v1", "math.GT/0309136".
var oldStylePattern = regexp.MustCompile(`^([a-z][a-z\-]*(?:\.[A-Z]{2})?/\d{7})(v\d+)?$`)

// ParseArxivID extracts an arXiv identifier from a bare ID, an "arXiv:"
// prefixed ID, or an arxiv.org abs/pdf URL (e.g.
// "http://arxiv.org/abs/2301.07041v1" → {2301.07041 v1}).
func ParseArxivID(s string) (ArxivID, bool) {
	s = strings.TrimSpace(s)
	if len(s) > 6 && strings.EqualFold(s[:6], "arxiv:") {
		s = s[6:]
	}
	for _, marker := range []string{"/abs/", "/pdf/"} {
		if idx := strings.Index(s, marker); idx >= 0 {
			s = s[idx+len(marker):]
			break
		}
	}
	s = strings.TrimSuffix(s, ".pdf")

	for _, p := range []*regexp.Regexp{newStylePattern, oldStylePattern} {
		if m := p.FindStringSubmatch(s); m != nil {
			return ArxivID{ID: m[1], Version: m[2]}, true
		}
	}
	return ArxivID{}, false
}
