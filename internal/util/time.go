package util

import (
	"strings"
	"time"
)

// DateLayout is the calendar-date format used by the fund API and config.
const DateLayout = "2006-01-02"

// DateOnly truncates t to midnight UTC of its calendar date.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, strings.TrimSpace(s))
}

// ParseFlexibleDate parses s as RFC3339, then as a plain date, then as a
// space-separated "YYYY-MM-DD HH:MM:SS" timestamp.
// The fund API mixes these: NAV dates are plain dates, audit fields are timestamps.
func ParseFlexibleDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)

	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", s)
}
