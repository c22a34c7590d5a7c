package cache

import (
	"context"
	"log/slog"

	"mipwatch/internal/tracker/metrics"
	"mipwatch/pkg/platform/circuit"
)

// Cache is the contract shared by the Redis and in-memory caches.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Invalidate(ctx context.Context) error
}

// Fallback serves from primary while it is healthy and from secondary while the
// breaker is open. Writes and invalidations go to both so the secondary is warm
// when it takes over. When the circuit closes the primary is invalidated, since
// it may have missed invalidations during the outage.
type Fallback struct {
	primary   Cache
	secondary Cache
	breaker   *circuit.Breaker
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// NewFallback wires primary and secondary behind breaker. m may be nil.
func NewFallback(primary, secondary Cache, breaker *circuit.Breaker, logger *slog.Logger, m *metrics.Metrics) *Fallback {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fallback{
		primary:   primary,
		secondary: secondary,
		breaker:   breaker,
		logger:    logger,
		metrics:   m,
	}
}

func (f *Fallback) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, ok, err := f.primary.Get(ctx, key)
	if err != nil {
		f.failure(ctx, err)
		return f.secondary.Get(ctx, key)
	}
	usePrimary, recovered := f.success(ctx)
	if recovered {
		// value predates the invalidation that recovery just issued.
		return nil, false, nil
	}
	if !usePrimary {
		return f.secondary.Get(ctx, key)
	}
	return value, ok, nil
}

func (f *Fallback) Set(ctx context.Context, key string, value []byte) error {
	if err := f.secondary.Set(ctx, key, value); err != nil {
		return err
	}
	if err := f.primary.Set(ctx, key, value); err != nil {
		f.failure(ctx, err)
		return nil
	}
	f.success(ctx)
	return nil
}

func (f *Fallback) Invalidate(ctx context.Context) error {
	if err := f.secondary.Invalidate(ctx); err != nil {
		return err
	}
	if err := f.primary.Invalidate(ctx); err != nil {
		f.failure(ctx, err)
		return nil
	}
	f.success(ctx)
	return nil
}

func (f *Fallback) failure(ctx context.Context, err error) {
	_, change := f.breaker.RecordFailure()
	if change.Opened {
		f.metrics.SetCacheCircuitOpen(true)
		f.logger.WarnContext(ctx, "report cache circuit opened, serving from memory",
			"breaker", f.breaker.Name(),
			"error", err,
		)
	}
}

// success records a healthy primary call. It reports whether the primary may serve
// and whether this call closed the circuit.
func (f *Fallback) success(ctx context.Context) (usePrimary, recovered bool) {
	usePrimary, change := f.breaker.RecordSuccess()
	if change.Closed {
		f.metrics.SetCacheCircuitOpen(false)
		f.logger.InfoContext(ctx, "report cache circuit closed",
			"breaker", f.breaker.Name(),
		)
		if err := f.primary.Invalidate(ctx); err != nil {
			f.logger.WarnContext(ctx, "failed to invalidate recovered report cache",
				"error", err,
			)
		}
	}
	return usePrimary, change.Closed
}
