package events

import (
	"time"

	"github.com/google/uuid"
)

// Event is a domain event dispatched over the Bus.
type Event interface {
	// EventID is the unique identifier of this event instance.
	EventID() uuid.UUID
	// EventType is the name handlers subscribe to.
	EventType() string
	// AggregateID identifies the aggregate the event belongs to.
	AggregateID() string
	// OccurredAt is when the event happened.
	OccurredAt() time.Time
}

// Handler processes domain events.
type Handler interface {
	// Handles returns the event types this handler subscribes to.
	Handles() []string
	// Handle processes a single event.
	Handle(event Event) error
}

// BaseEvent provides the common Event fields.
type BaseEvent struct {
	ID          uuid.UUID `json:"event_id"`
	Type        string    `json:"event_type"`
	Aggregate   string    `json:"aggregate_id"`
	OccurredAtT time.Time `json:"occurred_at"`
}

// NewBaseEvent creates a BaseEvent for the given type and aggregate.
func NewBaseEvent(eventType, aggregateID string) BaseEvent {
	return BaseEvent{
		ID:          uuid.New(),
		Type:        eventType,
		Aggregate:   aggregateID,
		OccurredAtT: time.Now().UTC(),
	}
}

// EventID implements Event.
func (e BaseEvent) EventID() uuid.UUID { return e.ID }

// EventType implements Event.
func (e BaseEvent) EventType() string { return e.Type }

// AggregateID implements Event.
func (e BaseEvent) AggregateID() string { return e.Aggregate }

// OccurredAt implements Event.
func (e BaseEvent) OccurredAt() time.Time { return e.OccurredAtT }
