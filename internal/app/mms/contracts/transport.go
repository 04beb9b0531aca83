package contracts

import (
	"context"

	"github.com/light-bringer/commhistory-mms/internal/app/mms/domain"
	"github.com/light-bringer/commhistory-mms/internal/pkg/callhandle"
)

// SendRequest is everything the engine needs to send one multimedia message.
type SendRequest struct {
	SubscriberIdentity *string // nil leaves the choice of SIM to the engine
	To                 []string
	Cc                 []string
	Bcc                []string
	Subject            string
	Parts              []domain.MaterializedPart
}

// Transport issues calls to the external transport engine.
// None of the calls fail synchronously; the outcome is only visible through the handle.
type Transport interface {
	// NotifyReceive asks the engine to download the message announced by pushData.
	NotifyReceive(ctx context.Context, eventID int64, subscriberIdentity string, isPush bool, pushData []byte) *callhandle.Handle

	// NotifyCancel asks the engine to abort whatever it is doing for the event.
	NotifyCancel(ctx context.Context, eventID int64) *callhandle.Handle

	// NotifySend hands a fully materialized message to the engine.
	NotifySend(ctx context.Context, req *SendRequest) *callhandle.Handle

	// NotifyRetry asks the engine to retry sending a failed event.
	NotifyRetry(ctx context.Context, eventID int64) *callhandle.Handle
}

// PartMaterializer turns part descriptions into files below a directory.
type PartMaterializer interface {
	Materialize(dir string, spec domain.PartSpec) (domain.MaterializedPart, error)
}
