package cancel_message

import (
	"context"
	"fmt"

	"github.com/light-bringer/commhistory-mms/internal/app/mms/contracts"
	"github.com/light-bringer/commhistory-mms/internal/app/mms/domain"
	"github.com/light-bringer/commhistory-mms/internal/pkg/callhandle"
	"github.com/light-bringer/commhistory-mms/internal/pkg/clock"
)

// Request identifies the event whose transfer should be cancelled.
type Request struct {
	EventID int64
}

// Interactor handles the cancel use case.
type Interactor struct {
	store     contracts.EventStore
	transport contracts.Transport
	clock     clock.Clock
}

// NewInteractor creates a new cancel interactor.
func NewInteractor(store contracts.EventStore, transport contracts.Transport, clock clock.Clock) *Interactor {
	return &Interactor{
		store:     store,
		transport: transport,
		clock:     clock,
	}
}

// Execute tells the engine to cancel and then persists the cancelled status.
//
// The engine is told first. If the status write fails afterwards the engine has
// already stopped while the store still shows the old status; the error is
// returned and the caller decides what to do.
func (i *Interactor) Execute(ctx context.Context, req *Request) (*callhandle.Handle, error) {
	if req.EventID <= 0 {
		return nil, domain.ErrInvalidEventID
	}

	// 1. Load aggregate
	event, err := i.store.GetEventByID(ctx, req.EventID)
	if err != nil {
		return nil, err
	}

	// 2. Only in-flight transfers can be cancelled
	if !event.CanCancel() {
		return nil, fmt.Errorf("event %d is %s: %w", event.ID(), event.Status(), domain.ErrNotCancellable)
	}

	// 3. Tell the engine
	handle := i.transport.NotifyCancel(ctx, event.ID())

	// 4. Status transition
	if err := event.Cancel(i.clock.Now()); err != nil {
		return handle, err
	}

	// 5. Persist
	if err := i.store.ModifyEvent(ctx, event); err != nil {
		return handle, fmt.Errorf("failed to persist event status: %w", err)
	}

	return handle, nil
}
