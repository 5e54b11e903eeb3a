package parsers

import (
	"regexp"
	"time"
)

// weekdayPattern matches a Hungarian or English weekday name standing as a whole
// word. RE2's \b only knows ASCII word characters, so accented names such as
// "Csütörtök" need explicit letter/digit boundaries.
var weekdayPattern = regexp.MustCompile(
	`(?i)(?:^|[^\p{L}\p{N}_])(Hétfő|Kedd|Szerda|Csütörtök|Péntek|Szombat|Vasárnap|` +
		`Monday|Tuesday|Wednesday|Thursday|Friday|Saturday|Sunday)(?:$|[^\p{L}\p{N}_])`)

// lineBreakPattern splits on every Unicode line boundary, not only "\n"
var lineBreakPattern = regexp.MustCompile(`\r\n|[\n\r\v\f\x{1c}-\x{1e}\x{85}\x{2028}\x{2029}]`)

var dateTokenPattern = regexp.MustCompile(`\d{1,4}[-./]\d{1,2}[-./]\d{1,4}|\d{1,2}/\d{1,2}/\d{2,4}`)

// ExtractWorkedDates returns the dates of all lines that look like a worked-day
// entry: the line names a weekday and carries a date token. Only the first date
// token of a line is used, and tokens that fail to normalize are dropped.
func ExtractWorkedDates(text string) []time.Time {
	var dates []time.Time

	for _, line := range lineBreakPattern.Split(text, -1) {
		if !weekdayPattern.MatchString(line) {
			continue
		}

		token := dateTokenPattern.FindString(line)
		if token == "" {
			continue
		}

		if date, ok := NormalizeDate(token); ok {
			dates = append(dates, date)
		}
	}

	return dates
}

// periodBounds returns the earliest and latest of the given dates, or nil bounds
// when there are none.
func periodBounds(dates []time.Time) (*time.Time, *time.Time) {
	if len(dates) == 0 {
		return nil, nil
	}

	start, end := dates[0], dates[0]
	for _, d := range dates[1:] {
		if d.Before(start) {
			start = d
		}
		if d.After(end) {
			end = d
		}
	}

	return &start, &end
}
