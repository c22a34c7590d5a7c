// Package status normalizes the raw status labels published on the NIST list.
//
// A raw label may carry the date the module entered that status, for example
// "Coordination  (10/9/2024)". The category before the first parenthesis is the
// normalized status used for every comparison; the date inside the first
// parenthesized group is the embedded date.
package status

import (
	"regexp"
	"strings"
	"time"
)

var embeddedDatePattern = regexp.MustCompile(`\d{1,2}/\d{1,2}/\d{4}`)

// Parsed is a raw status split into its parts.
type Parsed struct {
	Raw             string
	Status          string
	EmbeddedDate    time.Time
	HasEmbeddedDate bool
}

// Normalize returns the text before the first "(" with surrounding whitespace removed.
// It never fails; the empty string normalizes to the empty status.
func Normalize(raw string) string {
	before, _, _ := strings.Cut(raw, "(")
	return strings.TrimSpace(before)
}

// EmbeddedDate returns the first M/D/YYYY token inside the first parenthesized group.
// Tokens that are not real calendar dates are ignored.
func EmbeddedDate(raw string) (time.Time, bool) {
	_, group, found := strings.Cut(raw, "(")
	if !found {
		return time.Time{}, false
	}
	group, _, _ = strings.Cut(group, ")")
	match := embeddedDatePattern.FindString(group)
	if match == "" {
		return time.Time{}, false
	}
	t, err := time.Parse("1/2/2006", match)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Parse normalizes raw and extracts its embedded date in one pass.
func Parse(raw string) Parsed {
	p := Parsed{Raw: raw, Status: Normalize(raw)}
	p.EmbeddedDate, p.HasEmbeddedDate = EmbeddedDate(raw)
	return p
}

// Set is a set of normalized statuses, e.g. the terminal statuses.
type Set map[string]struct{}

// NewSet normalizes each value before adding it.
func NewSet(values ...string) Set {
	s := make(Set, len(values))
	for _, v := range values {
		s[Normalize(v)] = struct{}{}
	}
	return s
}

// Contains reports whether the normalized form of value is in the set.
func (s Set) Contains(value string) bool {
	_, ok := s[Normalize(value)]
	return ok
}
