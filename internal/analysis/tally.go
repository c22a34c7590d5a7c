package analysis

import (
	"slices"
	"time"

	"mipwatch/internal/snapshot/models"
	"mipwatch/internal/status"
)

// DefaultWindowMonths is the chart window used when none is requested.
const DefaultWindowMonths = 12

// StatusCount is one bucket of a tally.
type StatusCount struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
	Color  string `json:"color"`
}

// DateTally counts normalized statuses on one publish date.
type DateTally struct {
	Date   time.Time      `json:"date"`
	Counts map[string]int `json:"counts"`
	Total  int            `json:"total"`
}

// Buckets returns the tally's counts in palette order, unknown statuses last.
func (t DateTally) Buckets() []StatusCount {
	observed := make([]string, 0, len(t.Counts))
	for s := range t.Counts {
		observed = append(observed, s)
	}
	slices.Sort(observed)
	ordered := status.Order(observed)
	out := make([]StatusCount, 0, len(ordered))
	for _, s := range ordered {
		out = append(out, StatusCount{Status: s, Count: t.Counts[s], Color: status.Color(s)})
	}
	return out
}

// Tallies counts normalized statuses for each of dates. The store's Not Displayed
// count is added as its own bucket when non-zero. Dates outside the corpus are skipped.
func Tallies(c *Corpus, dates []time.Time) []DateTally {
	out := make([]DateTally, 0, len(dates))
	for _, d := range dates {
		snap, ok := c.Snapshot(d)
		if !ok {
			continue
		}
		t := DateTally{Date: snap.Date, Counts: make(map[string]int)}
		for _, raw := range snap.Statuses {
			t.Counts[status.Normalize(raw)]++
			t.Total++
		}
		if n := c.NotDisplayed[snap.Date]; n > 0 {
			t.Counts[status.NotDisplayed] += n
			t.Total += n
		}
		out = append(out, t)
	}
	return out
}

// Summary is the latest date's tally in palette order.
type Summary struct {
	Date    time.Time     `json:"date"`
	Buckets []StatusCount `json:"buckets"`
	Total   int           `json:"total"`
}

// DailySummary summarizes the most recent publish date.
func DailySummary(c *Corpus) (Summary, bool) {
	latest, ok := c.Latest()
	if !ok {
		return Summary{}, false
	}
	t := Tallies(c, []time.Time{latest})[0]
	return Summary{Date: t.Date, Buckets: t.Buckets(), Total: t.Total}, true
}

// ChartWindow returns the dates no older than months calendar months before the
// latest date. A non-positive months value returns every date.
func ChartWindow(dates []time.Time, months int) []time.Time {
	if len(dates) == 0 {
		return []time.Time{}
	}
	if months <= 0 {
		return slices.Clone(dates)
	}
	cutoff := SubtractMonths(slices.MaxFunc(dates, time.Time.Compare), months)
	out := make([]time.Time, 0, len(dates))
	for _, d := range dates {
		if !d.Before(cutoff) {
			out = append(out, d)
		}
	}
	return out
}

// SubtractMonths moves t back n calendar months, clamping the day to the target
// month's length (3/31 minus one month is 2/28 or 2/29).
func SubtractMonths(t time.Time, n int) time.Time {
	t = models.Day(t)
	first := time.Date(t.Year(), t.Month()-time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	lastDay := first.AddDate(0, 1, -1).Day()
	return time.Date(first.Year(), first.Month(), min(t.Day(), lastDay), 0, 0, 0, 0, time.UTC)
}
