package analysis

import (
	"errors"
	"slices"
	"time"

	"mipwatch/internal/snapshot/models"
	"mipwatch/internal/status"
)

// ErrEmptyHistory is returned when a status-since lookup has nothing to walk.
var ErrEmptyHistory = errors.New("empty history")

// HistoryEntry is one key's status on one publish date.
type HistoryEntry struct {
	Date            time.Time `json:"date"`
	Status          string    `json:"status"`
	RawStatus       string    `json:"raw_status"`
	EmbeddedDate    time.Time `json:"embedded_date,omitzero"`
	HasEmbeddedDate bool      `json:"-"`
}

// History is a key's entries in ascending date order.
type History []HistoryEntry

// BuildHistories returns the ordered history of each requested key that was ever
// observed. Keys never observed are absent from the result.
func BuildHistories(observations []models.Observation, keys []models.EntityKey) map[models.EntityKey]History {
	wanted := make(map[models.EntityKey]struct{}, len(keys))
	for _, k := range keys {
		wanted[k] = struct{}{}
	}
	filtered := make([]models.Observation, 0, len(observations))
	for _, o := range observations {
		if _, ok := wanted[o.Key]; ok {
			filtered = append(filtered, o)
		}
	}
	return buildHistories(filtered)
}

// BuildAllHistories returns the history of every observed key.
func BuildAllHistories(observations []models.Observation) map[models.EntityKey]History {
	return buildHistories(observations)
}

func buildHistories(observations []models.Observation) map[models.EntityKey]History {
	grouped := groupBy(observations, observationKey)
	out := make(map[models.EntityKey]History, len(grouped))
	for key, rows := range grouped {
		h := make(History, 0, len(rows))
		for _, o := range rows {
			p := status.Parse(o.RawStatus)
			h = append(h, HistoryEntry{
				Date:            models.Day(o.PublishDate),
				Status:          p.Status,
				RawStatus:       o.RawStatus,
				EmbeddedDate:    p.EmbeddedDate,
				HasEmbeddedDate: p.HasEmbeddedDate,
			})
		}
		slices.SortStableFunc(h, func(a, b HistoryEntry) int { return a.Date.Compare(b.Date) })
		out[key] = lastPerDate(h)
	}
	return out
}

// lastPerDate keeps the final entry of each run of equal dates. h must be sorted
// stably so that input order survives within a date.
func lastPerDate(h History) History {
	out := h[:0]
	for i, e := range h {
		if i+1 < len(h) && h[i+1].Date.Equal(e.Date) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// StatusSince returns the first date of the run of identical normalized statuses that
// ends at the history's last entry.
func StatusSince(history History) (time.Time, error) {
	if len(history) == 0 {
		return time.Time{}, ErrEmptyHistory
	}
	last := len(history) - 1
	current := history[last].Status
	since := history[last].Date
	for i := last - 1; i >= 0; i-- {
		if history[i].Status != current {
			break
		}
		since = history[i].Date
	}
	return since, nil
}

// StatusSinceAll computes StatusSince for every key in the corpus.
func StatusSinceAll(c *Corpus) map[models.EntityKey]time.Time {
	histories := BuildAllHistories(c.Observations)
	out := make(map[models.EntityKey]time.Time, len(histories))
	for key, h := range histories {
		since, err := StatusSince(h)
		if err != nil {
			continue
		}
		out[key] = since
	}
	return out
}
