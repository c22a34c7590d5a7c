package analysis

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"mipwatch/internal/snapshot/models"
	"mipwatch/pkg/platform/sentinel"
)

// ErrDuplicateObservation is returned under DuplicateReject when a key appears twice
// on the same publish date.
var ErrDuplicateObservation = fmt.Errorf("duplicate observation: %w", sentinel.ErrConflict)

// ErrUnknownDate is returned when a requested publish date is not in the corpus.
var ErrUnknownDate = errors.New("unknown publish date")

// DuplicatePolicy decides what happens to repeated (date, key) rows.
type DuplicatePolicy int

const (
	// DuplicateLastWins keeps the last row encountered and counts the collision.
	DuplicateLastWins DuplicatePolicy = iota
	// DuplicateReject fails corpus construction on the first collision.
	DuplicateReject
)

// Snapshot maps every key published on Date to its raw status.
type Snapshot struct {
	Date     time.Time
	Statuses map[models.EntityKey]string
}

// Keys returns the snapshot's keys in EntityKey order.
func (s Snapshot) Keys() []models.EntityKey {
	keys := make([]models.EntityKey, 0, len(s.Statuses))
	for k := range s.Statuses {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, models.EntityKey.Compare)
	return keys
}

// Corpus is the in-memory, grouped view of every snapshot.
type Corpus struct {
	// Dates holds the distinct publish dates in ascending order.
	Dates []time.Time
	// Observations holds one row per (date, key) in first-seen order; a duplicate
	// replaces the earlier row's status in place.
	Observations []models.Observation
	// NotDisplayed holds per-date counts of modules omitted from the listing.
	NotDisplayed map[time.Time]int
	// Duplicates counts (date, key) collisions absorbed under DuplicateLastWins.
	Duplicates int

	snapshots map[time.Time]Snapshot
}

type corpusConfig struct {
	policy       DuplicatePolicy
	notDisplayed map[time.Time]int
}

// CorpusOption configures NewCorpus.
type CorpusOption func(*corpusConfig)

// WithDuplicatePolicy selects how repeated (date, key) rows are handled.
func WithDuplicatePolicy(p DuplicatePolicy) CorpusOption {
	return func(c *corpusConfig) {
		c.policy = p
	}
}

// WithNotDisplayed attaches per-date omitted-module counts.
func WithNotDisplayed(counts map[time.Time]int) CorpusOption {
	return func(c *corpusConfig) {
		c.notDisplayed = counts
	}
}

// NewCorpus groups observations per publish date. Dates that appear only in the
// observations are added to the time axis.
func NewCorpus(dates []time.Time, observations []models.Observation, opts ...CorpusOption) (*Corpus, error) {
	cfg := corpusConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	c := &Corpus{
		NotDisplayed: make(map[time.Time]int, len(cfg.notDisplayed)),
		snapshots:    make(map[time.Time]Snapshot),
	}
	for d, n := range cfg.notDisplayed {
		c.NotDisplayed[models.Day(d)] += n
	}

	axis := make([]time.Time, 0, len(dates))
	for _, d := range dates {
		axis = append(axis, models.Day(d))
	}

	type slot struct {
		date time.Time
		key  models.EntityKey
	}
	index := make(map[slot]int, len(observations))
	c.Observations = make([]models.Observation, 0, len(observations))
	for _, o := range observations {
		o.PublishDate = models.Day(o.PublishDate)
		s := slot{date: o.PublishDate, key: o.Key}
		if i, seen := index[s]; seen {
			if cfg.policy == DuplicateReject {
				return nil, fmt.Errorf("%w: %s on %s", ErrDuplicateObservation, o.Key, models.FormatPublishDate(o.PublishDate))
			}
			c.Duplicates++
			c.Observations[i].RawStatus = o.RawStatus
			continue
		}
		index[s] = len(c.Observations)
		c.Observations = append(c.Observations, o)
		axis = append(axis, o.PublishDate)
	}

	c.Dates = sortedUniqueDates(axis)
	for _, d := range c.Dates {
		c.snapshots[d] = Snapshot{Date: d, Statuses: make(map[models.EntityKey]string)}
	}
	for date, rows := range groupBy(c.Observations, observationDate) {
		snap := c.snapshots[date]
		for _, o := range rows {
			snap.Statuses[o.Key] = o.RawStatus
		}
	}
	return c, nil
}

// Latest returns the most recent publish date.
func (c *Corpus) Latest() (time.Time, bool) {
	if len(c.Dates) == 0 {
		return time.Time{}, false
	}
	return c.Dates[len(c.Dates)-1], true
}

// Snapshot returns the grouped snapshot for date.
func (c *Corpus) Snapshot(date time.Time) (Snapshot, bool) {
	s, ok := c.snapshots[models.Day(date)]
	return s, ok
}

// Predecessor returns the publish date immediately before date.
func (c *Corpus) Predecessor(date time.Time) (time.Time, bool) {
	i, found := slices.BinarySearchFunc(c.Dates, models.Day(date), time.Time.Compare)
	if !found || i == 0 {
		return time.Time{}, false
	}
	return c.Dates[i-1], true
}

// Keys returns every key ever observed, in EntityKey order.
func (c *Corpus) Keys() []models.EntityKey {
	grouped := groupBy(c.Observations, observationKey)
	keys := make([]models.EntityKey, 0, len(grouped))
	for k := range grouped {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, models.EntityKey.Compare)
	return keys
}

func observationDate(o models.Observation) time.Time { return o.PublishDate }

func observationKey(o models.Observation) models.EntityKey { return o.Key }

// groupBy buckets items by key, preserving input order inside each bucket.
func groupBy[K comparable, V any](items []V, key func(V) K) map[K][]V {
	out := make(map[K][]V)
	for _, item := range items {
		k := key(item)
		out[k] = append(out[k], item)
	}
	return out
}

func sortedUniqueDates(dates []time.Time) []time.Time {
	out := slices.Clone(dates)
	slices.SortFunc(out, time.Time.Compare)
	return slices.CompactFunc(out, time.Time.Equal)
}
