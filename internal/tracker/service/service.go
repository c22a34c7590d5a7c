package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"mipwatch/internal/analysis"
	"mipwatch/internal/changefeed"
	"mipwatch/internal/snapshot/models"
	"mipwatch/internal/snapshot/store"
	"mipwatch/internal/status"
	"mipwatch/internal/tracker/metrics"
	dErrors "mipwatch/pkg/domain-errors"
	"mipwatch/pkg/platform/sentinel"
)

// ReportCache stores encoded reports between ingests.
type ReportCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Invalidate(ctx context.Context) error
}

// ChangePublisher emits change events for an ingest diff.
type ChangePublisher interface {
	Publish(ctx context.Context, changes analysis.Changes) ([]changefeed.Event, error)
}

// TallyWriter exports per-date status tallies.
type TallyWriter interface {
	WriteTallies(ctx context.Context, tallies []analysis.DateTally) error
}

// Service orchestrates ingest and reporting over a snapshot store.
type Service struct {
	store     store.Store
	cache     ReportCache
	publisher ChangePublisher
	tallies   TallyWriter
	logger    *slog.Logger
	metrics   *metrics.Metrics
	tracer    trace.Tracer

	terminal     status.Set
	roster       []string
	policy       analysis.DuplicatePolicy
	windowMonths int
	topVendors   int
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

func WithCache(c ReportCache) Option {
	return func(s *Service) {
		s.cache = c
	}
}

func WithPublisher(p ChangePublisher) Option {
	return func(s *Service) {
		s.publisher = p
	}
}

func WithTallyWriter(w TallyWriter) Option {
	return func(s *Service) {
		s.tallies = w
	}
}

// WithTerminalStatuses replaces the statuses that end processing. Empty keeps the default.
func WithTerminalStatuses(statuses ...string) Option {
	return func(s *Service) {
		if len(statuses) > 0 {
			s.terminal = status.NewSet(statuses...)
		}
	}
}

// WithRosterStatuses sets the statuses listed in the report roster.
func WithRosterStatuses(statuses ...string) Option {
	return func(s *Service) {
		if len(statuses) > 0 {
			s.roster = statuses
		}
	}
}

func WithDuplicatePolicy(p analysis.DuplicatePolicy) Option {
	return func(s *Service) {
		s.policy = p
	}
}

// WithWindowMonths sets the default chart window; 0 means every date.
func WithWindowMonths(months int) Option {
	return func(s *Service) {
		s.windowMonths = months
	}
}

func WithTopVendors(n int) Option {
	return func(s *Service) {
		s.topVendors = n
	}
}

// New constructs a Service.
func New(st store.Store, opts ...Option) *Service {
	s := &Service{
		store:        st,
		logger:       slog.Default(),
		tracer:       otel.Tracer("mipwatch/tracker"),
		terminal:     status.NewSet(status.DefaultTerminal),
		roster:       []string{status.Finalization},
		windowMonths: analysis.DefaultWindowMonths,
		topVendors:   analysis.DefaultTopVendors,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ErrNoSnapshots is returned by reads against an empty store.
var ErrNoSnapshots = fmt.Errorf("no snapshots stored: %w", sentinel.ErrNotFound)

// loadCorpus reads the store's three views concurrently and groups them.
func (s *Service) loadCorpus(ctx context.Context) (*analysis.Corpus, error) {
	ctx, span := s.tracer.Start(ctx, "tracker.load_corpus")
	defer span.End()

	var (
		dates        []time.Time
		observations []models.Observation
		notDisplayed map[time.Time]int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		dates, err = s.store.Dates(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		observations, err = s.store.Observations(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		notDisplayed, err = s.store.NotDisplayed(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		recordSpanError(span, err)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load snapshots")
	}

	corpus, err := analysis.NewCorpus(dates, observations,
		analysis.WithDuplicatePolicy(s.policy),
		analysis.WithNotDisplayed(notDisplayed),
	)
	if err != nil {
		recordSpanError(span, err)
		if errors.Is(err, analysis.ErrDuplicateObservation) {
			return nil, dErrors.Wrap(err, dErrors.CodeConflict, "stored snapshots contain duplicate rows")
		}
		return nil, fmt.Errorf("group snapshots: %w", err)
	}
	if corpus.Duplicates > 0 {
		s.logger.WarnContext(ctx, "duplicate observations absorbed",
			"duplicates", corpus.Duplicates,
		)
	}
	return corpus, nil
}

func (s *Service) observe(operation string, start time.Time) {
	s.metrics.ObserveOperation(operation, time.Since(start))
}

func recordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
