// Package utils provides small shared helpers.
package utils

import (
	"fmt"
	"time"
)

// DateLayout is the canonical YYYY-MM-DD date format used throughout the
// engine. Lexicographic order equals chronological order, which the snapshot
// and summary tables rely on.
const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD string into a UTC midnight time.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (expected YYYY-MM-DD): %w", s, err)
	}
	return t, nil
}

// FormatDate formats a time as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// Today returns the current date as YYYY-MM-DD in local time.
func Today() string {
	return time.Now().Format(DateLayout)
}

// DateToUnix converts a YYYY-MM-DD string to a Unix timestamp at midnight UTC.
func DateToUnix(s string) (int64, error) {
	t, err := ParseDate(s)
	if err != nil {
		return 0, err
	}
	return t.Unix(), nil
}

// EachDay calls fn for every calendar day from start through end inclusive,
// in YYYY-MM-DD form.
func EachDay(start, end time.Time, fn func(date string)) {
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		fn(FormatDate(d))
	}
}
