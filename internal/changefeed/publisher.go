package changefeed

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"mipwatch/internal/analysis"
	"mipwatch/pkg/requestcontext"
)

// ErrBufferFull is returned by AsyncPublisher when the worker has fallen behind.
var ErrBufferFull = errors.New("change feed buffer full")

// Sink delivers a batch of events.
type Sink interface {
	Write(ctx context.Context, events []Event) error
}

// Publisher converts diffs to events and writes them to a sink synchronously.
type Publisher struct {
	sink Sink
}

func NewPublisher(sink Sink) *Publisher {
	return &Publisher{sink: sink}
}

// Publish writes the events for changes and returns them. OccurredAt comes from the
// request-scoped clock.
func (p *Publisher) Publish(ctx context.Context, changes analysis.Changes) ([]Event, error) {
	events := EventsFrom(changes, requestcontext.Now(ctx))
	if len(events) == 0 {
		return events, nil
	}
	if err := p.sink.Write(ctx, events); err != nil {
		return nil, err
	}
	return events, nil
}

// AsyncPublisher hands batches to a background Worker through a bounded buffer so
// ingest never waits on the broker.
type AsyncPublisher struct {
	inbox chan<- []Event
}

// NewAsync returns a publisher and the worker that drains it into sink.
func NewAsync(sink Sink, buffer int, logger *slog.Logger) (*AsyncPublisher, *Worker) {
	ch := make(chan []Event, buffer)
	return &AsyncPublisher{inbox: ch}, NewWorker(sink, ch, logger)
}

// Publish enqueues the events for changes without blocking.
func (p *AsyncPublisher) Publish(ctx context.Context, changes analysis.Changes) ([]Event, error) {
	events := EventsFrom(changes, requestcontext.Now(ctx))
	if len(events) == 0 {
		return events, nil
	}
	select {
	case p.inbox <- events:
		return events, nil
	default:
		return nil, ErrBufferFull
	}
}

// MemorySink keeps every written event. Used by tests and the CLI.
type MemorySink struct {
	mu     sync.Mutex
	events []Event
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) Write(_ context.Context, events []Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, events...)
	return nil
}

// Events returns a copy of everything written so far.
func (s *MemorySink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}
