package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/light-bringer/commhistory-mms/internal/app/mms/contracts"
	"github.com/light-bringer/commhistory-mms/internal/pkg/callhandle"
)

// Recorded transport methods.
const (
	MethodReceive = "receive"
	MethodCancel  = "cancel"
	MethodSend    = "send"
	MethodRetry   = "retry"
)

// Call is one recorded engine call.
type Call struct {
	Method             string
	EventID            int64
	SubscriberIdentity string
	IsPush             bool
	PushData           []byte
	Send               *contracts.SendRequest
	Handle             *callhandle.Handle
}

// Transport is a recording contracts.Transport. Handles stay pending until
// the test completes them, unless AutoComplete is set.
type Transport struct {
	mu    sync.Mutex
	calls []Call

	// AutoComplete completes every handle right away with CompleteErr.
	AutoComplete bool
	CompleteErr  error
	// Journal, when set, receives "transport.<method>:<id>" entries.
	Journal *Journal
}

// NewTransport creates a Transport with pending handles.
func NewTransport() *Transport {
	return &Transport{}
}

// Calls returns every call made so far.
func (t *Transport) Calls() []Call {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Call(nil), t.calls...)
}

// CallsTo returns the calls made to one method.
func (t *Transport) CallsTo(method string) []Call {
	var out []Call
	for _, c := range t.Calls() {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

func (t *Transport) record(call Call) *callhandle.Handle {
	call.Handle = callhandle.New()

	t.mu.Lock()
	t.calls = append(t.calls, call)
	t.mu.Unlock()

	t.Journal.Append(fmt.Sprintf("transport.%s:%d", call.Method, call.EventID))
	if t.AutoComplete {
		call.Handle.Complete(t.CompleteErr)
	}
	return call.Handle
}

// NotifyReceive implements contracts.Transport.
func (t *Transport) NotifyReceive(_ context.Context, eventID int64, subscriberIdentity string, isPush bool, pushData []byte) *callhandle.Handle {
	return t.record(Call{
		Method:             MethodReceive,
		EventID:            eventID,
		SubscriberIdentity: subscriberIdentity,
		IsPush:             isPush,
		PushData:           pushData,
	})
}

// NotifyCancel implements contracts.Transport.
func (t *Transport) NotifyCancel(_ context.Context, eventID int64) *callhandle.Handle {
	return t.record(Call{Method: MethodCancel, EventID: eventID})
}

// NotifySend implements contracts.Transport.
func (t *Transport) NotifySend(_ context.Context, req *contracts.SendRequest) *callhandle.Handle {
	return t.record(Call{Method: MethodSend, Send: req})
}

// NotifyRetry implements contracts.Transport.
func (t *Transport) NotifyRetry(_ context.Context, eventID int64) *callhandle.Handle {
	return t.record(Call{Method: MethodRetry, EventID: eventID})
}
