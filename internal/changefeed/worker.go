package changefeed

import (
	"context"
	"log/slog"
)

// Worker consumes event batches from a channel and writes them to a sink. Failed
// writes are logged and dropped; the feed is best effort.
type Worker struct {
	sink   Sink
	inbox  <-chan []Event
	logger *slog.Logger
}

func NewWorker(sink Sink, inbox <-chan []Event, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{sink: sink, inbox: inbox, logger: logger}
}

// Run drains the inbox until ctx is cancelled or the inbox is closed.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case events, ok := <-w.inbox:
			if !ok {
				return nil
			}
			if err := w.sink.Write(ctx, events); err != nil {
				w.logger.ErrorContext(ctx, "change feed write failed",
					"events", len(events),
					"error", err,
				)
			}
		}
	}
}
