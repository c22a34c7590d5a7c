package analysis

import (
	"slices"
	"time"

	"mipwatch/internal/snapshot/models"
	"mipwatch/internal/status"
)

// Disappearance is a key that stopped being published before reaching a terminal status.
type Disappearance struct {
	Key        models.EntityKey `json:"key"`
	LastSeen   time.Time        `json:"last_seen"`
	LastStatus string           `json:"last_status"`
}

// FindDisappearances reports every key whose last observation precedes the latest
// publish date and whose last normalized status is not terminal. Results are ordered
// by last-seen date descending, then by key.
func FindDisappearances(observations []models.Observation, dates []time.Time, terminal status.Set) []Disappearance {
	out := []Disappearance{}
	if len(dates) == 0 {
		return out
	}
	latest := models.Day(slices.MaxFunc(dates, time.Time.Compare))

	type lastSeen struct {
		date time.Time
		raw  string
	}
	last := make(map[models.EntityKey]lastSeen)
	for _, o := range observations {
		d := models.Day(o.PublishDate)
		// Later rows on the same date replace earlier ones.
		if prev, ok := last[o.Key]; !ok || !d.Before(prev.date) {
			last[o.Key] = lastSeen{date: d, raw: o.RawStatus}
		}
	}

	for key, seen := range last {
		if !seen.date.Before(latest) {
			continue
		}
		normalized := status.Normalize(seen.raw)
		if terminal.Contains(normalized) {
			continue
		}
		out = append(out, Disappearance{Key: key, LastSeen: seen.date, LastStatus: normalized})
	}
	slices.SortFunc(out, func(a, b Disappearance) int {
		if c := b.LastSeen.Compare(a.LastSeen); c != 0 {
			return c
		}
		return a.Key.Compare(b.Key)
	})
	return out
}
