// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package harvest

import (
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

const dateFmt = "2006-01-02"

// Window is the recency filter: a paper is kept when its publication date
// (UTC calendar day) is on or after Cutoff.
type Window struct {
	Cutoff time.Time
}

// NewWindow returns the window covering today (UTC) and the daysAgo days
// before it. daysAgo of 0 keeps only papers published today.
func NewWindow(now time.Time, daysAgo int) Window {
	return Window{Cutoff: utcDay(now).AddDate(0, 0, -daysAgo)}
}

// WindowSince returns a window starting at the UTC calendar day of t.
func WindowSince(t time.Time) Window {
	return Window{Cutoff: utcDay(t)}
}

// Contains reports whether published falls inside the window. A zero
// time is never inside.
func (w Window) Contains(published time.Time) bool {
	if published.IsZero() {
		return false
	}
	return !published.UTC().Before(w.Cutoff)
}

// String returns the cutoff date as YYYY-MM-DD.
func (w Window) String() string {
	return w.Cutoff.Format(dateFmt)
}

// ParseSince parses a user-supplied date in any common layout
// ("2024-10-01", "Oct 1 2024", "10/01/2024", RFC3339). Dates without a
// zone are taken as UTC.
func ParseSince(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

func utcDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
