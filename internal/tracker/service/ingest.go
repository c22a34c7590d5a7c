package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"mipwatch/internal/analysis"
	"mipwatch/internal/snapshot/models"
	"mipwatch/internal/snapshot/store"
	dErrors "mipwatch/pkg/domain-errors"
)

// IngestResult describes a stored snapshot and how it differs from its predecessor.
type IngestResult struct {
	PublishDate time.Time
	Rows        int
	Duplicates  int
	Changes     analysis.Changes
	Events      int
}

// Ingest replaces the snapshot stored for snap's date and diffs it against the
// preceding date. Cache invalidation, the change feed and the tally export are best
// effort; a failure there is logged and does not fail the ingest.
func (s *Service) Ingest(ctx context.Context, snap models.Snapshot) (*IngestResult, error) {
	start := time.Now()
	defer s.observe("ingest", start)
	ctx, span := s.tracer.Start(ctx, "tracker.ingest")
	defer span.End()

	if snap.PublishDate.IsZero() {
		return nil, dErrors.Wrap(models.ErrMalformedDate, dErrors.CodeBadRequest, "publish date is required")
	}
	snap.PublishDate = models.Day(snap.PublishDate)
	span.SetAttributes(
		attribute.String("mip.publish_date", models.FormatPublishDate(snap.PublishDate)),
		attribute.Int("mip.rows", len(snap.Entries)),
	)

	duplicates := countDuplicates(snap.Entries)
	if duplicates > 0 && s.policy == analysis.DuplicateReject {
		err := fmt.Errorf("%w: %d repeated keys on %s", analysis.ErrDuplicateObservation, duplicates, models.FormatPublishDate(snap.PublishDate))
		recordSpanError(span, err)
		return nil, dErrors.Wrap(err, dErrors.CodeConflict, "snapshot contains duplicate keys")
	}

	if err := s.store.ReplaceSnapshot(ctx, snap); err != nil {
		recordSpanError(span, err)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store snapshot")
	}
	s.metrics.RecordIngest(len(snap.Entries))
	s.metrics.AddDuplicates(duplicates)
	if duplicates > 0 {
		s.logger.WarnContext(ctx, "snapshot contains duplicate keys, last row wins",
			"publish_date", models.FormatPublishDate(snap.PublishDate),
			"duplicates", duplicates,
		)
	}
	s.invalidateCache(ctx)

	corpus, err := s.loadCorpus(ctx)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	changes, err := analysis.ChangesAt(corpus, snap.PublishDate)
	if err != nil {
		recordSpanError(span, err)
		return nil, fmt.Errorf("diff ingested snapshot: %w", err)
	}
	s.metrics.RecordChanges(len(changes.Added), len(changes.Removed), len(changes.Changed))

	result := &IngestResult{
		PublishDate: snap.PublishDate,
		Rows:        len(snap.Entries),
		Duplicates:  duplicates,
		Changes:     changes,
	}
	result.Events = s.publishChanges(ctx, changes)
	s.exportTallies(ctx, corpus, snap.PublishDate)

	s.logger.InfoContext(ctx, "snapshot ingested",
		"publish_date", models.FormatPublishDate(snap.PublishDate),
		"rows", result.Rows,
		"added", len(changes.Added),
		"removed", len(changes.Removed),
		"changed", len(changes.Changed),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}

// Merge copies snapshots missing from the service's store out of secondary.
func (s *Service) Merge(ctx context.Context, secondary store.Store) ([]time.Time, error) {
	start := time.Now()
	defer s.observe("merge", start)
	ctx, span := s.tracer.Start(ctx, "tracker.merge")
	defer span.End()

	copied, err := store.MergeMissing(ctx, s.store, secondary)
	if len(copied) > 0 {
		s.invalidateCache(ctx)
	}
	if err != nil {
		recordSpanError(span, err)
		return copied, dErrors.Wrap(err, dErrors.CodeInternal, "failed to merge snapshots")
	}
	span.SetAttributes(attribute.Int("mip.copied_dates", len(copied)))
	s.logger.InfoContext(ctx, "snapshots merged",
		"copied", len(copied),
	)
	return copied, nil
}

func (s *Service) publishChanges(ctx context.Context, changes analysis.Changes) int {
	if s.publisher == nil {
		return 0
	}
	events, err := s.publisher.Publish(ctx, changes)
	if err != nil {
		s.metrics.IncrementEventsDropped()
		s.logger.ErrorContext(ctx, "failed to publish change events",
			"publish_date", models.FormatPublishDate(changes.Current),
			"error", err,
		)
		return 0
	}
	return len(events)
}

func (s *Service) exportTallies(ctx context.Context, corpus *analysis.Corpus, date time.Time) {
	if s.tallies == nil {
		return
	}
	if err := s.tallies.WriteTallies(ctx, analysis.Tallies(corpus, []time.Time{date})); err != nil {
		s.logger.ErrorContext(ctx, "failed to export tallies",
			"publish_date", models.FormatPublishDate(date),
			"error", err,
		)
	}
}

func (s *Service) invalidateCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.ErrorContext(ctx, "failed to invalidate report cache",
			"error", err,
		)
	}
}

func countDuplicates(entries []models.Entry) int {
	seen := make(map[models.EntityKey]struct{}, len(entries))
	n := 0
	for _, e := range entries {
		if _, ok := seen[e.Key]; ok {
			n++
			continue
		}
		seen[e.Key] = struct{}{}
	}
	return n
}

// isNotFound reports whether err means the store has nothing for the request.
func isNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound) || errors.Is(err, analysis.ErrUnknownDate)
}
