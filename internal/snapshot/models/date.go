package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrMalformedDate is returned when a publish date cannot be parsed into a calendar date.
var ErrMalformedDate = errors.New("malformed date")

const (
	// PublishDateLayout is the NIST "Last Updated" format, e.g. 10/9/2024.
	PublishDateLayout = "1/2/2006"
	// ISODateLayout is accepted on input and used for machine-readable output.
	ISODateLayout = "2006-01-02"
)

// ParsePublishDate parses M/D/YYYY (zero padding optional) or YYYY-MM-DD into a
// UTC-midnight time. Anything else fails with ErrMalformedDate.
func ParsePublishDate(s string) (time.Time, error) {
	trimmed := strings.TrimSpace(s)
	for _, layout := range []string{PublishDateLayout, ISODateLayout} {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrMalformedDate, s)
}

// Day truncates t to its calendar date in UTC, dropping any time of day.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// FormatPublishDate renders a date the way the NIST page prints it.
func FormatPublishDate(t time.Time) string {
	return t.Format(PublishDateLayout)
}

// DaysBetween counts whole calendar days from start to end.
func DaysBetween(start, end time.Time) int {
	return int(Day(end).Sub(Day(start)).Hours() / 24)
}
