// Package app assembles the tracker service and its infrastructure from config.
// cmd/server and cmd/mipctl both start from Open.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"

	"mipwatch/internal/analysis"
	"mipwatch/internal/changefeed"
	"mipwatch/internal/platform/config"
	"mipwatch/internal/platform/metrics"
	"mipwatch/internal/platform/redis"
	"mipwatch/internal/snapshot/store"
	"mipwatch/internal/tallysink"
	"mipwatch/internal/tracker/cache"
	trackerMetrics "mipwatch/internal/tracker/metrics"
	"mipwatch/internal/tracker/service"
	"mipwatch/pkg/platform/circuit"
	"mipwatch/pkg/platform/sentinel"
)

// DefaultEventBuffer is the number of change batches queued for the async publisher.
const DefaultEventBuffer = 64

// App owns the service and everything that must be closed with it.
type App struct {
	Service  *service.Service
	Store    store.Store
	Registry *prometheus.Registry
	Metrics  *trackerMetrics.Metrics

	logger    *slog.Logger
	worker    *changefeed.Worker
	ephemeral bool
	checks    map[string]func(ctx context.Context) error
	closers   []func()
}

type options struct {
	async       bool
	eventBuffer int
	store       store.Store
}

type Option func(*options)

// WithAsyncChangeFeed queues change events for a background worker instead of
// producing them inline. The caller must run RunWorker.
func WithAsyncChangeFeed(buffer int) Option {
	return func(o *options) {
		o.async = true
		o.eventBuffer = buffer
	}
}

// WithStore bypasses the configured database.
func WithStore(st store.Store) Option {
	return func(o *options) {
		o.store = st
	}
}

// Open connects every configured backend. Unset backends are skipped: no database
// URL means an in-memory store, no Redis URL an in-process cache, no brokers no
// change feed, no Influx URL no tally export.
func Open(ctx context.Context, cfg config.Config, logger *slog.Logger, opts ...Option) (*App, error) {
	o := options{eventBuffer: DefaultEventBuffer}
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{
		Registry: metrics.NewRegistry(),
		logger:   logger,
		checks:   make(map[string]func(ctx context.Context) error),
	}
	a.Metrics = trackerMetrics.New(a.Registry)

	st, err := a.openStore(ctx, cfg.Database, o.store)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Store = st

	svcOpts := []service.Option{
		service.WithLogger(logger),
		service.WithMetrics(a.Metrics),
		service.WithTerminalStatuses(cfg.Tracker.TerminalStatuses...),
		service.WithRosterStatuses(cfg.Tracker.RosterStatuses...),
		service.WithDuplicatePolicy(duplicatePolicy(cfg.Tracker.DuplicatePolicy)),
		service.WithWindowMonths(cfg.Tracker.WindowMonths),
		service.WithTopVendors(cfg.Tracker.TopVendors),
	}

	reportCache, err := a.openCache(ctx, cfg.Redis)
	if err != nil {
		a.Close()
		return nil, err
	}
	svcOpts = append(svcOpts, service.WithCache(reportCache))

	if len(cfg.Kafka.Brokers) > 0 {
		sink, err := changefeed.NewKafkaSink(ctx, cfg.Kafka)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("open change feed: %w", err)
		}
		a.closers = append(a.closers, sink.Close)
		if o.async {
			pub, worker := changefeed.NewAsync(sink, o.eventBuffer, logger)
			a.worker = worker
			svcOpts = append(svcOpts, service.WithPublisher(pub))
		} else {
			svcOpts = append(svcOpts, service.WithPublisher(changefeed.NewPublisher(sink)))
		}
		logger.InfoContext(ctx, "change feed enabled",
			"topic", cfg.Kafka.Topic,
			"async", o.async,
		)
	}

	if cfg.Influx.URL != "" {
		sink, err := tallysink.New(cfg.Influx)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("open tally export: %w", err)
		}
		a.closers = append(a.closers, sink.Close)
		a.checks["influx"] = sink.Health
		svcOpts = append(svcOpts, service.WithTallyWriter(sink))
	}

	a.Service = service.New(a.Store, svcOpts...)
	return a, nil
}

func (a *App) openStore(ctx context.Context, cfg config.Database, override store.Store) (store.Store, error) {
	if override != nil {
		return override, nil
	}
	if cfg.URL == "" {
		a.logger.WarnContext(ctx, "no database configured, snapshots are kept in memory")
		a.ephemeral = true
		return store.NewInMemoryStore(), nil
	}
	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	a.closers = append(a.closers, func() { _ = db.Close() })

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	pg := store.NewPostgres(db)
	if err := pg.Migrate(ctx); err != nil {
		return nil, err
	}
	a.checks["postgres"] = db.PingContext
	return pg, nil
}

func (a *App) openCache(ctx context.Context, cfg config.RedisConfig) (service.ReportCache, error) {
	client, err := redis.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open report cache: %w", err)
	}
	if client == nil {
		return cache.NewMemory(cfg.ReportTTL), nil
	}
	a.closers = append(a.closers, func() { _ = client.Close() })
	a.checks["redis"] = client.Health
	return cache.NewFallback(
		cache.NewRedis(client.Client, cfg.ReportTTL),
		cache.NewMemory(cfg.ReportTTL),
		circuit.New("report-cache"),
		a.logger,
		a.Metrics,
	), nil
}

// RunWorker drains the async change feed until ctx is done. Without an async feed
// it just waits for ctx.
func (a *App) RunWorker(ctx context.Context) error {
	if a.worker == nil {
		<-ctx.Done()
		return nil
	}
	if err := a.worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// Ephemeral reports whether snapshots live only as long as the process because no
// database was configured.
func (a *App) Ephemeral() bool {
	return a.ephemeral
}

// Health pings every connected backend. Failures are joined and marked
// sentinel.ErrUnavailable.
func (a *App) Health(ctx context.Context) error {
	var errs []error
	for name, check := range a.checks {
		if err := check(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", sentinel.ErrUnavailable, errors.Join(errs...))
}

// Close releases backends in reverse order of opening.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func duplicatePolicy(name string) analysis.DuplicatePolicy {
	if name == config.DuplicateReject {
		return analysis.DuplicateReject
	}
	return analysis.DuplicateLastWins
}
