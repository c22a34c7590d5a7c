package analysis

import "time"

// Run is a maximal stretch of consecutive history entries with the same status.
type Run struct {
	Status string      `json:"status"`
	Start  time.Time   `json:"start"`
	End    time.Time   `json:"end"`
	Dates  []time.Time `json:"dates"`
}

// CollapseRuns folds a history into runs. Start is the embedded date of the run's
// first entry when it has one, otherwise that entry's snapshot date.
func CollapseRuns(history History) []Run {
	runs := make([]Run, 0)
	for _, e := range history {
		if n := len(runs); n > 0 && runs[n-1].Status == e.Status {
			runs[n-1].End = e.Date
			runs[n-1].Dates = append(runs[n-1].Dates, e.Date)
			continue
		}
		start := e.Date
		if e.HasEmbeddedDate {
			start = e.EmbeddedDate
		}
		runs = append(runs, Run{Status: e.Status, Start: start, End: e.Date, Dates: []time.Time{e.Date}})
	}
	return runs
}

// ExpandRuns yields one entry per covered date, the inverse of CollapseRuns on dates
// and normalized statuses.
func ExpandRuns(runs []Run) History {
	var out History
	for _, r := range runs {
		for _, d := range r.Dates {
			out = append(out, HistoryEntry{Date: d, Status: r.Status})
		}
	}
	return out
}

// DisplayRuns collapses history and keeps only the last run of each status, in
// chronological order. A status that recurs loses its earlier stretches.
func DisplayRuns(history History) []Run {
	runs := CollapseRuns(history)
	lastIndex := make(map[string]int, len(runs))
	for i, r := range runs {
		lastIndex[r.Status] = i
	}
	out := make([]Run, 0, len(lastIndex))
	for i, r := range runs {
		if lastIndex[r.Status] == i {
			out = append(out, r)
		}
	}
	return out
}
