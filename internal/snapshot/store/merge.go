package store

import (
	"context"
	"fmt"
	"time"
)

// MergeMissing copies into primary every snapshot whose date exists in secondary but
// not in primary, returning the copied dates in ascending order. Dates already in
// primary are left untouched.
func MergeMissing(ctx context.Context, primary, secondary Store) ([]time.Time, error) {
	have, err := primary.Dates(ctx)
	if err != nil {
		return nil, fmt.Errorf("list primary dates: %w", err)
	}
	present := make(map[time.Time]struct{}, len(have))
	for _, d := range have {
		present[d] = struct{}{}
	}

	candidates, err := secondary.Dates(ctx)
	if err != nil {
		return nil, fmt.Errorf("list secondary dates: %w", err)
	}

	copied := []time.Time{}
	for _, d := range candidates {
		if _, ok := present[d]; ok {
			continue
		}
		snap, err := secondary.Snapshot(ctx, d)
		if err != nil {
			return copied, fmt.Errorf("read secondary snapshot: %w", err)
		}
		if err := primary.ReplaceSnapshot(ctx, snap); err != nil {
			return copied, fmt.Errorf("copy snapshot: %w", err)
		}
		copied = append(copied, d)
	}
	return copied, nil
}
