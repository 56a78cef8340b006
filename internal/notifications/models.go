package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventType names a domain event.
type EventType string

const (
	EventProjectRegistered EventType = "project.registered"
	EventProjectPromoted   EventType = "project.promoted"
	EventProjectVerified   EventType = "project.verified"
	EventProjectRejected   EventType = "project.rejected"
	EventCreditsMinted     EventType = "credits.minted"
	EventMintFailed        EventType = "credits.mint_failed"
	EventAccountOpened     EventType = "account.opened"
	EventQuotaAllocated    EventType = "quota.allocated"
	EventEmissionLogged    EventType = "emission.logged"
	EventPurchaseConfirmed EventType = "purchase.confirmed"
	EventComplianceWarning EventType = "compliance.warning"
	EventComplianceDeficit EventType = "compliance.deficit"
)

// Event is one entry of the public transaction feed.
type Event struct {
	ID         uuid.UUID              `json:"id"`
	Type       EventType              `json:"type"`
	Subject    string                 `json:"subject"`
	ActorID    string                 `json:"actor_id,omitempty"`
	Data       map[string]interface{} `json:"data,omitempty"`
	OccurredAt time.Time              `json:"occurred_at"`
}

// NewEvent stamps a new event with an id and the current time.
func NewEvent(eventType EventType, subject, actorID string, data map[string]interface{}) Event {
	return Event{
		ID:         uuid.New(),
		Type:       eventType,
		Subject:    subject,
		ActorID:    actorID,
		Data:       data,
		OccurredAt: time.Now().UTC(),
	}
}

// Publisher receives domain events after the mutation producing them has committed.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, event Event) error

func (f PublisherFunc) Publish(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Nop discards every event.
var Nop Publisher = PublisherFunc(func(context.Context, Event) error { return nil })
