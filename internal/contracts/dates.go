package contracts

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the canonical date format on every surface (CLI, CSV, API)
const DateLayout = "2006-01-02"

// feed exports carry timestamps, plain dates and spreadsheet-style dates
var dateLayouts = []string{
	DateLayout,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.000",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"01/02/2006",
	"1/2/2006",
	"1/2/06",
	"01-02-06",
	"2006/01/02",
	"2006 01 02",
}

// DateOf drops the time of day, keeping the calendar date in UTC
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a calendar date in any supported layout.
// Malformed dates are a hard error.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return DateOf(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("malformed date %q", s)
}
