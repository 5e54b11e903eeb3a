package parsers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"payroll-reconciliation-service/internal/models"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		name     string
		token    string
		expected time.Time
		ok       bool
	}{
		{"year first slash", "2024/01/15", day(2024, time.January, 15), true},
		{"year first slash unpadded", "2024/1/5", day(2024, time.January, 5), true},
		{"year first dash", "2024-01-15", day(2024, time.January, 15), true},
		{"year first dot", "2024.01.15", day(2024, time.January, 15), true},
		{"day first dot", "15.01.2024", day(2024, time.January, 15), true},
		{"month first slash", "01/15/2024", day(2024, time.January, 15), true},
		{"month first wins when ambiguous", "03/04/2024", day(2024, time.March, 4), true},
		{"month first short year", "01/15/24", day(2024, time.January, 15), true},
		{"day first short year", "15/01/24", day(2024, time.January, 15), true},
		{"day first long year", "13/01/2024", day(2024, time.January, 13), true},
		{"day first dash short year", "05-03-24", day(2024, time.March, 5), true},
		{"day first dash long year", "05-03-2024", day(2024, time.March, 5), true},
		{"surrounding whitespace", "  2024/02/29 ", day(2024, time.February, 29), true},
		{"short year pivot 69", "01/01/69", day(1969, time.January, 1), true},
		{"short year pivot 68", "01/01/68", day(2068, time.January, 1), true},
		{"impossible day", "31/02/2024", time.Time{}, false},
		{"month out of range", "2024/13/01", time.Time{}, false},
		{"garbage", "next week", time.Time{}, false},
		{"empty", "", time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NormalizeDate(tt.token)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.True(t, tt.expected.Equal(got), "got %s, want %s", got, tt.expected)
				assert.Equal(t, time.UTC, got.Location())
			}
		})
	}
}

func TestNormalizeDate_RoundTrip(t *testing.T) {
	start := day(2023, time.December, 25)
	for i := 0; i < 400; i += 7 {
		d := start.AddDate(0, 0, i)
		formatted := models.FormatDate(&d)

		got, ok := NormalizeDate(formatted)
		if assert.True(t, ok, "failed to parse %s", formatted) {
			assert.True(t, d.Equal(got), "round trip of %s gave %s", formatted, got)
		}
	}
}

func TestExtractWorkedDates(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected []time.Time
	}{
		{
			name: "english weekdays",
			text: "Monday 2024/01/01 8h\nTuesday 2024/01/02 8h\nnotes 2024/01/03",
			expected: []time.Time{
				day(2024, time.January, 1),
				day(2024, time.January, 2),
			},
		},
		{
			name: "hungarian weekdays with accents",
			text: "Csütörtök 2024.01.18\nhétfő 22.01.2024\nVASÁRNAP 2024-01-28",
			expected: []time.Time{
				day(2024, time.January, 18),
				day(2024, time.January, 22),
				day(2024, time.January, 28),
			},
		},
		{
			name:     "weekday must be a whole word",
			text:     "Kedden 2024/01/02\nMondays 2024/01/08",
			expected: nil,
		},
		{
			name:     "first date on a line only",
			text:     "Friday 2024/01/19 - 2024/01/20",
			expected: []time.Time{day(2024, time.January, 19)},
		},
		{
			name:     "unparseable token dropped",
			text:     "Monday 2024/13/45\nTuesday 2024/01/02",
			expected: []time.Time{day(2024, time.January, 2)},
		},
		{
			name: "carriage return and form feed line endings",
			text: "Monday 2024/01/01 8h\rWednesday 2024/01/03 8h\r\nFriday 2024/01/05 8h\fSaturday 2024/01/06\u2028Sunday 2024/01/07",
			expected: []time.Time{
				day(2024, time.January, 1),
				day(2024, time.January, 3),
				day(2024, time.January, 5),
				day(2024, time.January, 6),
				day(2024, time.January, 7),
			},
		},
		{
			name:     "no worked lines",
			text:     "Total hours: 40",
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExtractWorkedDates(tt.text))
		})
	}
}

func TestPeriodBounds(t *testing.T) {
	start, end := periodBounds(nil)
	assert.Nil(t, start)
	assert.Nil(t, end)

	start, end = periodBounds([]time.Time{
		day(2024, time.January, 3),
		day(2024, time.January, 1),
		day(2024, time.January, 5),
	})
	assert.Equal(t, "2024/01/01", models.FormatDate(start))
	assert.Equal(t, "2024/01/05", models.FormatDate(end))
}
