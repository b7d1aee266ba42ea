package events

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Event is a domain event fanned out to in-process notifiers.
type Event struct {
	ID         uuid.UUID      `json:"id"`
	Topic      string         `json:"topic"`
	OccurredAt time.Time      `json:"occurredAt"`
	Payload    map[string]any `json:"payload,omitempty"`
}

// Notifier reacts to emitted events (logging, metrics, future webhooks).
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

// Bus fans events out to all configured notifiers. Notifier failures are
// isolated: one failing notifier never blocks the others or the caller.
type Bus struct {
	Notifiers []Notifier
	Now       func() time.Time
	Log       zerolog.Logger
}

// Emit dispatches an event to every notifier.
func (b *Bus) Emit(ctx context.Context, topic string, payload map[string]any) (Event, error) {
	if b == nil {
		return Event{}, errors.New("events: bus not configured")
	}
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return Event{}, errors.New("events: topic is required")
	}
	now := time.Now()
	if b.Now != nil {
		now = b.Now()
	}
	event := Event{
		ID:         uuid.New(),
		Topic:      topic,
		OccurredAt: now,
		Payload:    payload,
	}
	for _, n := range b.Notifiers {
		if err := n.Notify(ctx, event); err != nil {
			b.Log.Error().Err(err).Str("topic", topic).Msg("event notifier failed")
		}
	}
	return event, nil
}

// LogNotifier writes every event as a structured log line.
type LogNotifier struct {
	Logger zerolog.Logger
}

// Notify implements Notifier.
func (l LogNotifier) Notify(_ context.Context, event Event) error {
	l.Logger.Info().
		Str("event_id", event.ID.String()).
		Str("topic", event.Topic).
		Interface("payload", event.Payload).
		Msg("domain_event")
	return nil
}
