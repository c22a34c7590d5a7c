package analysis

import (
	"fmt"
	"slices"
	"time"

	"mipwatch/internal/snapshot/models"
	"mipwatch/internal/status"
)

// KeyedStatus is a key with the raw status it carried on one side of a diff.
type KeyedStatus struct {
	Key    models.EntityKey `json:"key"`
	Status string           `json:"status"`
}

// StatusChange is a key present on both dates whose normalized status differs.
type StatusChange struct {
	Key       models.EntityKey `json:"key"`
	OldStatus string           `json:"old_status"`
	NewStatus string           `json:"new_status"`
}

// Changes is the delta between two consecutive snapshots.
type Changes struct {
	Previous  time.Time      `json:"previous"`
	Current   time.Time      `json:"current"`
	Added     []KeyedStatus  `json:"added"`
	Removed   []KeyedStatus  `json:"removed"`
	Changed   []StatusChange `json:"changed"`
	Unchanged int            `json:"unchanged"`
}

// HasPrevious reports whether the diff had a predecessor date to compare against.
func (c Changes) HasPrevious() bool {
	return !c.Previous.IsZero()
}

// IsEmpty reports whether nothing was added, removed or changed.
func (c Changes) IsEmpty() bool {
	return len(c.Added) == 0 && len(c.Removed) == 0 && len(c.Changed) == 0
}

// Keys returns every key appearing in Added, Removed or Changed.
func (c Changes) Keys() []models.EntityKey {
	keys := make([]models.EntityKey, 0, len(c.Added)+len(c.Removed)+len(c.Changed))
	for _, a := range c.Added {
		keys = append(keys, a.Key)
	}
	for _, r := range c.Removed {
		keys = append(keys, r.Key)
	}
	for _, ch := range c.Changed {
		keys = append(keys, ch.Key)
	}
	return keys
}

// Diff classifies every key of prev and curr as added, removed, changed or
// unchanged, comparing normalized statuses. Each list is sorted by key.
func Diff(prev, curr Snapshot) Changes {
	out := Changes{
		Previous: prev.Date,
		Current:  curr.Date,
		Added:    []KeyedStatus{},
		Removed:  []KeyedStatus{},
		Changed:  []StatusChange{},
	}
	for key, raw := range curr.Statuses {
		old, existed := prev.Statuses[key]
		switch {
		case !existed:
			out.Added = append(out.Added, KeyedStatus{Key: key, Status: raw})
		case status.Normalize(old) != status.Normalize(raw):
			out.Changed = append(out.Changed, StatusChange{Key: key, OldStatus: old, NewStatus: raw})
		default:
			out.Unchanged++
		}
	}
	for key, raw := range prev.Statuses {
		if _, still := curr.Statuses[key]; !still {
			out.Removed = append(out.Removed, KeyedStatus{Key: key, Status: raw})
		}
	}

	byKey := func(a, b KeyedStatus) int { return a.Key.Compare(b.Key) }
	slices.SortFunc(out.Added, byKey)
	slices.SortFunc(out.Removed, byKey)
	slices.SortFunc(out.Changed, func(a, b StatusChange) int { return a.Key.Compare(b.Key) })
	return out
}

// LatestChanges diffs the two most recent publish dates. With fewer than two dates the
// result is empty and Previous is unset.
func LatestChanges(c *Corpus) Changes {
	latest, ok := c.Latest()
	if !ok {
		return emptyChanges(time.Time{})
	}
	changes, _ := ChangesAt(c, latest)
	return changes
}

// ChangesAt diffs date against its immediate predecessor. The first date has no
// predecessor and yields an empty result.
func ChangesAt(c *Corpus, date time.Time) (Changes, error) {
	curr, ok := c.Snapshot(date)
	if !ok {
		return Changes{}, fmt.Errorf("%w: %s", ErrUnknownDate, models.FormatPublishDate(date))
	}
	prevDate, ok := c.Predecessor(curr.Date)
	if !ok {
		return emptyChanges(curr.Date), nil
	}
	prev, _ := c.Snapshot(prevDate)
	return Diff(prev, curr), nil
}

func emptyChanges(current time.Time) Changes {
	return Changes{
		Current: current,
		Added:   []KeyedStatus{},
		Removed: []KeyedStatus{},
		Changed: []StatusChange{},
	}
}
