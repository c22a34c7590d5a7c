// Package store persists published snapshots.
package store

import (
	"context"
	"time"

	"mipwatch/internal/snapshot/models"
	"mipwatch/pkg/platform/sentinel"
)

// ErrNotFound is returned when no snapshot exists for the requested publish date.
var ErrNotFound = sentinel.ErrNotFound

// Store is the snapshot store read by the analysis engine and written by ingest.
type Store interface {
	// Dates returns the distinct publish dates in ascending order.
	Dates(ctx context.Context) ([]time.Time, error)
	// Observations returns every stored row ordered by date, then insertion order.
	Observations(ctx context.Context) ([]models.Observation, error)
	// NotDisplayed returns the omitted-module count per publish date.
	NotDisplayed(ctx context.Context) (map[time.Time]int, error)
	// Snapshot returns the rows stored for one date.
	Snapshot(ctx context.Context, date time.Time) (models.Snapshot, error)
	// ReplaceSnapshot atomically swaps the rows and count stored for the snapshot's date.
	ReplaceSnapshot(ctx context.Context, snap models.Snapshot) error
}
