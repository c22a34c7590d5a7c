package service

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"mipwatch/internal/analysis"
	"mipwatch/internal/snapshot/models"
	"mipwatch/internal/status"
	dErrors "mipwatch/pkg/domain-errors"
	"mipwatch/pkg/requestcontext"
)

// ReportOptions tunes a report. Zero values fall back to the service defaults.
type ReportOptions struct {
	// WindowMonths limits the tallies to the last N months; ignored when AllDates is set.
	WindowMonths   int
	AllDates       bool
	RosterStatuses []string
	TopVendors     int
}

// KeyHistory is everything known about one key's status over time.
type KeyHistory struct {
	Key         models.EntityKey `json:"key"`
	Entries     analysis.History `json:"entries"`
	Runs        []analysis.Run   `json:"runs"`
	DisplayRuns []analysis.Run   `json:"display_runs"`
	StatusSince time.Time        `json:"status_since"`
}

// Report is the full status report for the most recent publish date.
type Report struct {
	GeneratedAt    time.Time                `json:"generated_at"`
	LatestDate     time.Time                `json:"latest_date"`
	Changes        analysis.Changes         `json:"changes"`
	Summary        analysis.Summary         `json:"summary"`
	Tallies        []analysis.DateTally     `json:"tallies"`
	Roster         []analysis.RosterEntry   `json:"roster"`
	Disappearances []analysis.Disappearance `json:"disappearances"`
	Vendors        []analysis.VendorCount   `json:"vendors"`
	Histories      map[string]KeyHistory    `json:"histories"`
	Duplicates     int                      `json:"duplicates"`
}

func (s *Service) resolve(opts ReportOptions) ReportOptions {
	if opts.WindowMonths == 0 {
		opts.WindowMonths = s.windowMonths
	}
	if len(opts.RosterStatuses) == 0 {
		opts.RosterStatuses = s.roster
	}
	if opts.TopVendors == 0 {
		opts.TopVendors = s.topVendors
	}
	return opts
}

func (o ReportOptions) cacheKey() string {
	return fmt.Sprintf("report:w=%d:all=%t:roster=%s:v=%d",
		o.WindowMonths, o.AllDates, strings.Join(o.RosterStatuses, ","), o.TopVendors)
}

func (o ReportOptions) window() int {
	if o.AllDates {
		return 0
	}
	return o.WindowMonths
}

// Report builds the status report. Results are cached until the next ingest.
func (s *Service) Report(ctx context.Context, opts ReportOptions) (*Report, error) {
	start := time.Now()
	defer s.observe("report", start)
	ctx, span := s.tracer.Start(ctx, "tracker.report")
	defer span.End()

	opts = s.resolve(opts)
	key := opts.cacheKey()
	span.SetAttributes(attribute.String("mip.report_key", key))
	if cached, ok := s.cachedReport(ctx, key); ok {
		return cached, nil
	}

	corpus, err := s.loadCorpus(ctx)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	latest, ok := corpus.Latest()
	if !ok {
		return nil, dErrors.Wrap(ErrNoSnapshots, dErrors.CodeNotFound, "no snapshots have been ingested")
	}
	latestSnap, _ := corpus.Snapshot(latest)

	report := &Report{
		GeneratedAt: requestcontext.Now(ctx),
		LatestDate:  latest,
		Duplicates:  corpus.Duplicates,
	}
	var (
		since     map[models.EntityKey]time.Time
		histories map[models.EntityKey]analysis.History
	)

	// The analysis consumers share only read-only inputs.
	var g errgroup.Group
	g.Go(func() error {
		report.Changes = analysis.LatestChanges(corpus)
		return nil
	})
	g.Go(func() error {
		histories = analysis.BuildAllHistories(corpus.Observations)
		since = make(map[models.EntityKey]time.Time, len(histories))
		for k, h := range histories {
			if t, err := analysis.StatusSince(h); err == nil {
				since[k] = t
			}
		}
		return nil
	})
	g.Go(func() error {
		report.Disappearances = analysis.FindDisappearances(corpus.Observations, corpus.Dates, s.terminal)
		return nil
	})
	g.Go(func() error {
		report.Tallies = analysis.Tallies(corpus, analysis.ChartWindow(corpus.Dates, opts.window()))
		report.Summary, _ = analysis.DailySummary(corpus)
		report.Vendors = analysis.TopVendors(latestSnap, opts.TopVendors)
		return nil
	})
	if err := g.Wait(); err != nil {
		recordSpanError(span, err)
		return nil, err
	}

	report.Roster = analysis.Roster(corpus, status.NewSet(opts.RosterStatuses...), since)
	keys := report.Changes.Keys()
	for _, r := range report.Roster {
		keys = append(keys, r.Key)
	}
	report.Histories = make(map[string]KeyHistory, len(keys))
	for _, k := range keys {
		if h, ok := histories[k]; ok {
			report.Histories[k.String()] = newKeyHistory(k, h, since[k])
		}
	}
	s.metrics.SetDisappearances(len(report.Disappearances))

	s.storeReport(ctx, key, report)
	s.logger.InfoContext(ctx, "report generated",
		"latest_date", models.FormatPublishDate(latest),
		"dates", len(corpus.Dates),
		"histories", len(report.Histories),
		"disappearances", len(report.Disappearances),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return report, nil
}

// Changes diffs date against its predecessor; a zero date means the latest.
func (s *Service) Changes(ctx context.Context, date time.Time) (*analysis.Changes, error) {
	start := time.Now()
	defer s.observe("changes", start)
	ctx, span := s.tracer.Start(ctx, "tracker.changes")
	defer span.End()

	corpus, err := s.loadCorpus(ctx)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	if date.IsZero() {
		changes := analysis.LatestChanges(corpus)
		return &changes, nil
	}
	changes, err := analysis.ChangesAt(corpus, date)
	if err != nil {
		if isNotFound(err) {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "no snapshot for "+models.FormatPublishDate(date))
		}
		return nil, err
	}
	return &changes, nil
}

// History returns one key's full history with its runs and status-since date.
func (s *Service) History(ctx context.Context, key models.EntityKey) (*KeyHistory, error) {
	start := time.Now()
	defer s.observe("history", start)
	ctx, span := s.tracer.Start(ctx, "tracker.history")
	defer span.End()

	corpus, err := s.loadCorpus(ctx)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	h, ok := analysis.BuildHistories(corpus.Observations, []models.EntityKey{key})[key]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "module has never been listed")
	}
	since, err := analysis.StatusSince(h)
	if err != nil {
		return nil, fmt.Errorf("status since: %w", err)
	}
	kh := newKeyHistory(key, h, since)
	return &kh, nil
}

// Disappearances lists keys that left the list before a terminal status.
func (s *Service) Disappearances(ctx context.Context) ([]analysis.Disappearance, error) {
	start := time.Now()
	defer s.observe("disappearances", start)
	ctx, span := s.tracer.Start(ctx, "tracker.disappearances")
	defer span.End()

	corpus, err := s.loadCorpus(ctx)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	out := analysis.FindDisappearances(corpus.Observations, corpus.Dates, s.terminal)
	s.metrics.SetDisappearances(len(out))
	return out, nil
}

// Tallies returns per-date status counts over the requested window.
func (s *Service) Tallies(ctx context.Context, opts ReportOptions) ([]analysis.DateTally, error) {
	start := time.Now()
	defer s.observe("tallies", start)
	ctx, span := s.tracer.Start(ctx, "tracker.tallies")
	defer span.End()

	opts = s.resolve(opts)
	corpus, err := s.loadCorpus(ctx)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	return analysis.Tallies(corpus, analysis.ChartWindow(corpus.Dates, opts.window())), nil
}

func newKeyHistory(key models.EntityKey, h analysis.History, since time.Time) KeyHistory {
	return KeyHistory{
		Key:         key,
		Entries:     slices.Clone(h),
		Runs:        analysis.CollapseRuns(h),
		DisplayRuns: analysis.DisplayRuns(h),
		StatusSince: since,
	}
}

func (s *Service) cachedReport(ctx context.Context, key string) (*Report, bool) {
	if s.cache == nil {
		return nil, false
	}
	raw, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.metrics.RecordCacheLookup("error")
		s.logger.WarnContext(ctx, "report cache lookup failed",
			"key", key,
			"error", err,
		)
		return nil, false
	}
	if !ok {
		s.metrics.RecordCacheLookup("miss")
		return nil, false
	}
	var report Report
	if err := json.Unmarshal(raw, &report); err != nil {
		s.metrics.RecordCacheLookup("error")
		s.logger.WarnContext(ctx, "discarding unreadable cached report",
			"key", key,
			"error", err,
		)
		return nil, false
	}
	s.metrics.RecordCacheLookup("hit")
	return &report, true
}

func (s *Service) storeReport(ctx context.Context, key string, report *Report) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(report)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to encode report for cache",
			"error", err,
		)
		return
	}
	if err := s.cache.Set(ctx, key, raw); err != nil {
		s.logger.WarnContext(ctx, "failed to cache report",
			"key", key,
			"error", err,
		)
	}
}
