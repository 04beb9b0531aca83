package receive_message

import (
	"context"
	"errors"
	"fmt"

	"github.com/light-bringer/commhistory-mms/internal/app/mms/contracts"
	"github.com/light-bringer/commhistory-mms/internal/app/mms/domain"
	"github.com/light-bringer/commhistory-mms/internal/pkg/callhandle"
	"github.com/light-bringer/commhistory-mms/internal/pkg/clock"
)

// Request identifies the notified event to download.
type Request struct {
	EventID int64
}

// Interactor handles the receive message use case.
type Interactor struct {
	store     contracts.EventStore
	transport contracts.Transport
	clock     clock.Clock
}

// NewInteractor creates a new receive message interactor.
func NewInteractor(store contracts.EventStore, transport contracts.Transport, clock clock.Clock) *Interactor {
	return &Interactor{
		store:     store,
		transport: transport,
		clock:     clock,
	}
}

// Execute marks the event Waiting and asks the engine to download it.
// An event without notification data is marked PermanentlyFailed and
// domain.ErrMissingNotificationData is returned without calling the engine.
func (i *Interactor) Execute(ctx context.Context, req *Request) (*callhandle.Handle, error) {
	if req.EventID <= 0 {
		return nil, domain.ErrInvalidEventID
	}

	// 1. Load aggregate
	event, err := i.store.GetEventByID(ctx, req.EventID)
	if err != nil {
		return nil, err
	}

	// 2. Status transition, before the engine hears about it
	transitionErr := event.RequestReceive(i.clock.Now())

	// 3. Persist either outcome; an event already in the target status has nothing to write
	if event.Changes().HasChanges() {
		if err := i.store.ModifyEvent(ctx, event); err != nil {
			return nil, errors.Join(transitionErr, fmt.Errorf("failed to persist event status: %w", err))
		}
	}
	if transitionErr != nil {
		return nil, transitionErr
	}

	// 4. Fire and forget
	return i.transport.NotifyReceive(ctx, event.ID(), event.SubscriberIdentity(), true, event.PushData()), nil
}
