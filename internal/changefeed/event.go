// Package changefeed turns snapshot diffs into change events and delivers them to a
// sink (Kafka in production, memory in tests and the CLI).
package changefeed

import (
	"time"

	"github.com/google/uuid"

	"mipwatch/internal/analysis"
	"mipwatch/internal/snapshot/models"
)

// EventType classifies a change event.
type EventType string

const (
	EventAdded         EventType = "added"
	EventRemoved       EventType = "removed"
	EventStatusChanged EventType = "status_changed"
)

// Event is one key's change between two consecutive publish dates. Keep it
// transport-agnostic so sinks can fan out.
type Event struct {
	ID          uuid.UUID        `json:"id"`
	Type        EventType        `json:"type"`
	PublishDate time.Time        `json:"publish_date"`
	Previous    time.Time        `json:"previous_date"`
	Key         models.EntityKey `json:"key"`
	OldStatus   string           `json:"old_status,omitempty"`
	NewStatus   string           `json:"new_status,omitempty"`
	OccurredAt  time.Time        `json:"occurred_at"`
}

// EventsFrom expands a diff into events in added, removed, changed order. A diff
// without a predecessor date yields no events.
func EventsFrom(changes analysis.Changes, occurredAt time.Time) []Event {
	if !changes.HasPrevious() {
		return nil
	}
	events := make([]Event, 0, len(changes.Added)+len(changes.Removed)+len(changes.Changed))
	base := func(t EventType, key models.EntityKey) Event {
		return Event{
			ID:          uuid.New(),
			Type:        t,
			PublishDate: changes.Current,
			Previous:    changes.Previous,
			Key:         key,
			OccurredAt:  occurredAt,
		}
	}
	for _, a := range changes.Added {
		e := base(EventAdded, a.Key)
		e.NewStatus = a.Status
		events = append(events, e)
	}
	for _, r := range changes.Removed {
		e := base(EventRemoved, r.Key)
		e.OldStatus = r.Status
		events = append(events, e)
	}
	for _, c := range changes.Changed {
		e := base(EventStatusChanged, c.Key)
		e.OldStatus = c.OldStatus
		e.NewStatus = c.NewStatus
		events = append(events, e)
	}
	return events
}
