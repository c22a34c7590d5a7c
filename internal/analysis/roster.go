package analysis

import (
	"slices"
	"time"

	"mipwatch/internal/snapshot/models"
	"mipwatch/internal/status"
)

// RosterEntry is a key currently holding one of the roster statuses.
type RosterEntry struct {
	Key          models.EntityKey `json:"key"`
	RawStatus    string           `json:"raw_status"`
	Status       string           `json:"status"`
	Since        time.Time        `json:"since"`
	DaysInStatus int              `json:"days_in_status"`
}

// Roster lists the keys at the latest date whose normalized status is in statuses,
// longest-held first. since is the StatusSinceAll result; keys missing from it count
// from the latest date.
func Roster(c *Corpus, statuses status.Set, since map[models.EntityKey]time.Time) []RosterEntry {
	out := []RosterEntry{}
	latest, ok := c.Latest()
	if !ok {
		return out
	}
	snap, _ := c.Snapshot(latest)
	for key, raw := range snap.Statuses {
		normalized := status.Normalize(raw)
		if !statuses.Contains(normalized) {
			continue
		}
		s, ok := since[key]
		if !ok {
			s = latest
		}
		out = append(out, RosterEntry{
			Key:          key,
			RawStatus:    raw,
			Status:       normalized,
			Since:        s,
			DaysInStatus: models.DaysBetween(s, latest),
		})
	}
	slices.SortFunc(out, func(a, b RosterEntry) int {
		if c := a.Since.Compare(b.Since); c != 0 {
			return c
		}
		return a.Key.Compare(b.Key)
	})
	return out
}
