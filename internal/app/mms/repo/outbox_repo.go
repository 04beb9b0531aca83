package repo

import (
	"encoding/json"
	"fmt"

	"cloud.google.com/go/spanner"
	"github.com/google/uuid"

	"github.com/light-bringer/commhistory-mms/internal/app/mms/contracts"
	"github.com/light-bringer/commhistory-mms/internal/app/mms/domain"
	"github.com/light-bringer/commhistory-mms/internal/models/m_outbox"
)

// OutboxRepo implements contracts.OutboxRepository for Spanner.
type OutboxRepo struct {
	model *m_outbox.Model
}

// NewOutboxRepo creates a new OutboxRepo.
func NewOutboxRepo() *OutboxRepo {
	return &OutboxRepo{model: m_outbox.NewModel()}
}

var _ contracts.OutboxRepository = (*OutboxRepo)(nil)

// InsertMut creates a mutation for inserting an outbox event.
func (r *OutboxRepo) InsertMut(event *contracts.OutboxEvent) *spanner.Mutation {
	// RawMessage keeps the payload a JSON object instead of a JSON string.
	payload := spanner.NullJSON{Value: json.RawMessage(event.Payload), Valid: len(event.Payload) > 0}

	return r.model.InsertMut(&m_outbox.Data{
		EventID:     event.EventID,
		EventType:   event.EventType,
		AggregateID: event.AggregateID,
		Payload:     payload,
		Status:      event.Status,
	})
}

// EnrichEvent serializes a domain event into a pending outbox event.
func (r *OutboxRepo) EnrichEvent(event domain.DomainEvent) (*contracts.OutboxEvent, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", event.EventType(), err)
	}

	return &contracts.OutboxEvent{
		EventID:     uuid.NewString(),
		EventType:   event.EventType(),
		AggregateID: event.AggregateID(),
		Payload:     payload,
		Status:      m_outbox.StatusPending,
	}, nil
}
