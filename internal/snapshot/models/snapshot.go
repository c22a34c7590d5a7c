package models

import "time"

// Entry is one row of a published snapshot.
type Entry struct {
	Key       EntityKey
	RawStatus string
}

// Snapshot is the full list published on one date. NotDisplayed counts modules the
// page omitted from its table; they carry no key and never enter the analysis.
type Snapshot struct {
	PublishDate  time.Time
	Entries      []Entry
	NotDisplayed int
}

// Observation is a stored row: one entity seen on one publish date.
type Observation struct {
	PublishDate time.Time
	Key         EntityKey
	RawStatus   string
}

// Observations flattens the snapshot into stored rows, preserving entry order.
func (s Snapshot) Observations() []Observation {
	out := make([]Observation, 0, len(s.Entries))
	for _, e := range s.Entries {
		out = append(out, Observation{PublishDate: s.PublishDate, Key: e.Key, RawStatus: e.RawStatus})
	}
	return out
}
