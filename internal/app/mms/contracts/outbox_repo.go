package contracts

import (
	"cloud.google.com/go/spanner"

	"github.com/light-bringer/commhistory-mms/internal/app/mms/domain"
)

// OutboxEvent is a domain event enriched for persistence.
type OutboxEvent struct {
	EventID     string
	EventType   string
	AggregateID string
	Payload     []byte // JSON
	Status      string
}

// OutboxRepository builds mutations recording status changes next to the event write.
type OutboxRepository interface {
	// InsertMut creates a mutation for inserting an outbox event
	InsertMut(event *OutboxEvent) *spanner.Mutation

	// EnrichEvent serializes a domain event into an outbox event with a fresh id
	EnrichEvent(event domain.DomainEvent) (*OutboxEvent, error)
}
