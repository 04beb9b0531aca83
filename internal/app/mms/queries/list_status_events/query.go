package list_status_events

import (
	"context"
	"fmt"
	"strconv"

	"github.com/light-bringer/commhistory-mms/internal/models/m_outbox"
)

const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

// Request filters the recorded status transitions.
type Request struct {
	EventID   *int64  // Only transitions of this event
	EventType *string // e.g. "mms.status.waiting"
	Limit     int
}

// ReadModel reads outbox rows written for status changes, newest first.
type ReadModel interface {
	ListStatusEvents(ctx context.Context, req *Request) ([]*m_outbox.Data, error)
}

// Query lists status transitions.
type Query struct {
	readModel ReadModel
}

// NewQuery creates a new Query.
func NewQuery(readModel ReadModel) *Query {
	return &Query{readModel: readModel}
}

// Execute clamps the limit and runs the read.
func (q *Query) Execute(ctx context.Context, req *Request) ([]*m_outbox.Data, error) {
	if req.EventID != nil && *req.EventID <= 0 {
		return nil, fmt.Errorf("invalid event id %d", *req.EventID)
	}

	clamped := *req
	switch {
	case clamped.Limit <= 0:
		clamped.Limit = DefaultLimit
	case clamped.Limit > MaxLimit:
		clamped.Limit = MaxLimit
	}

	return q.readModel.ListStatusEvents(ctx, &clamped)
}

// AggregateID renders an event id the way outbox rows store it.
func AggregateID(eventID int64) string {
	return strconv.FormatInt(eventID, 10)
}
