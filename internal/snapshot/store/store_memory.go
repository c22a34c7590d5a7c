package store

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"mipwatch/internal/snapshot/models"
)

// InMemoryStore keeps snapshots in process memory. Used by tests and the CLI's dry runs.
type InMemoryStore struct {
	mu        sync.RWMutex
	snapshots map[time.Time]models.Snapshot
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		snapshots: make(map[time.Time]models.Snapshot),
	}
}

func (s *InMemoryStore) Dates(_ context.Context) ([]time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedDates(), nil
}

func (s *InMemoryStore) Observations(_ context.Context) ([]models.Observation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Observation
	for _, d := range s.sortedDates() {
		out = append(out, s.snapshots[d].Observations()...)
	}
	return out, nil
}

func (s *InMemoryStore) NotDisplayed(_ context.Context) (map[time.Time]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[time.Time]int, len(s.snapshots))
	for d, snap := range s.snapshots {
		if snap.NotDisplayed > 0 {
			out[d] = snap.NotDisplayed
		}
	}
	return out, nil
}

func (s *InMemoryStore) Snapshot(_ context.Context, date time.Time) (models.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.snapshots[models.Day(date)]
	if !ok {
		return models.Snapshot{}, fmt.Errorf("snapshot %s: %w", models.FormatPublishDate(date), ErrNotFound)
	}
	snap.Entries = slices.Clone(snap.Entries)
	return snap, nil
}

func (s *InMemoryStore) ReplaceSnapshot(_ context.Context, snap models.Snapshot) error {
	if snap.PublishDate.IsZero() {
		return fmt.Errorf("replace snapshot: %w", models.ErrMalformedDate)
	}
	snap.PublishDate = models.Day(snap.PublishDate)
	snap.Entries = slices.Clone(snap.Entries)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[snap.PublishDate] = snap
	return nil
}

func (s *InMemoryStore) sortedDates() []time.Time {
	return slices.SortedFunc(maps.Keys(s.snapshots), time.Time.Compare)
}
