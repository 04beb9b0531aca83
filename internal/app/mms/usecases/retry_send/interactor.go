package retry_send

import (
	"context"

	"github.com/light-bringer/commhistory-mms/internal/app/mms/contracts"
	"github.com/light-bringer/commhistory-mms/internal/app/mms/domain"
	"github.com/light-bringer/commhistory-mms/internal/pkg/callhandle"
)

// Request identifies the failed outbound event to resend.
type Request struct {
	EventID int64
}

// Interactor handles the retry send use case.
type Interactor struct {
	transport contracts.Transport
}

// NewInteractor creates a new retry send interactor.
func NewInteractor(transport contracts.Transport) *Interactor {
	return &Interactor{transport: transport}
}

// Execute dispatches the retry. Whether the event can be retried is up to the engine.
func (i *Interactor) Execute(ctx context.Context, req *Request) (*callhandle.Handle, error) {
	if req.EventID <= 0 {
		return nil, domain.ErrInvalidEventID
	}
	return i.transport.NotifyRetry(ctx, req.EventID), nil
}
