package contracts

import (
	"context"

	"github.com/light-bringer/commhistory-mms/internal/app/mms/domain"
)

// EventStore is the slice of the communication history store the orchestrator depends on.
type EventStore interface {
	// GetEventByID loads an event. Returns domain.ErrEventNotFound when it does not exist.
	GetEventByID(ctx context.Context, eventID int64) (*domain.Event, error)

	// ModifyEvent persists the dirty fields of an event together with its recorded domain events.
	ModifyEvent(ctx context.Context, event *domain.Event) error
}
