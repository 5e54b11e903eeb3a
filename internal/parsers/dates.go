package parsers

import (
	"strings"
	"time"
)

// dateLayouts are tried in order; the first layout that parses wins. Year-first
// layouts come before day/month ambiguous ones so ISO-like tokens never flip.
var dateLayouts = []string{
	"2006/1/2",
	"2006-1-2",
	"2006.1.2",
	"2.1.2006",
	"1/2/2006",
	"1/2/06",
	"2/1/06",
	"2/1/2006",
	"2-1-06",
	"2-1-2006",
}

// NormalizeDate parses a date token written in one of the supported layouts and
// returns it as a UTC calendar date. It reports false when no layout accepts the
// token; this is an expected outcome and never an error.
func NormalizeDate(token string) (time.Time, bool) {
	token = strings.TrimSpace(token)
	if token == "" {
		return time.Time{}, false
	}

	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, token); err == nil {
			return time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}

	return time.Time{}, false
}
