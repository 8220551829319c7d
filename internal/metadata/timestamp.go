package metadata

import (
	"fmt"
	"strings"
	"time"
)

const (
	// LongLayout is the canonical timestamp written to stage arguments and
	// the parameter manifest, e.g. 2018-03-21T10:33:45.708Z.
	LongLayout = "2006-01-02T15:04:05.000Z"
	// ShortLayout is the compact date form, e.g. 20180321.
	ShortLayout = "20060102"

	acquisitionLayout = "2006-01-02T15:04:05.999999999"
)

// ParseTimestamp parses an acquisition timestamp of the form
// YYYY-MM-DDTHH:MM:SS.fff with an optional trailing Z. Times are UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "Z")
	t, err := time.ParseInLocation(acquisitionLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

// ParseShortDate parses YYYYMMDD, also accepting YYYY-MM-DD.
func ParseShortDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if len(s) != len(ShortLayout) {
		s = strings.ReplaceAll(s, "-", "")
	}
	t, err := time.ParseInLocation(ShortLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}

// FormatLong renders t in LongLayout (millisecond precision, UTC).
func FormatLong(t time.Time) string {
	return t.UTC().Format(LongLayout)
}

// FormatShort renders t in ShortLayout.
func FormatShort(t time.Time) string {
	return t.UTC().Format(ShortLayout)
}
