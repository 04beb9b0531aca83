package repo

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/spanner"
	"google.golang.org/api/iterator"

	"github.com/light-bringer/commhistory-mms/internal/app/mms/queries/list_status_events"
	"github.com/light-bringer/commhistory-mms/internal/models/m_outbox"
	"github.com/light-bringer/commhistory-mms/internal/pkg/query"
)

// StatusEventTypePrefix is shared by every status change event type.
const StatusEventTypePrefix = "mms.status."

// StatusEventsReadModel reads status transitions back from outbox_events.
type StatusEventsReadModel struct {
	client *spanner.Client
}

// NewStatusEventsReadModel creates a new StatusEventsReadModel.
func NewStatusEventsReadModel(client *spanner.Client) *StatusEventsReadModel {
	return &StatusEventsReadModel{client: client}
}

var _ list_status_events.ReadModel = (*StatusEventsReadModel)(nil)

// ListStatusEvents returns matching rows, newest first.
func (r *StatusEventsReadModel) ListStatusEvents(ctx context.Context, req *list_status_events.Request) ([]*m_outbox.Data, error) {
	iter := r.client.Single().Query(ctx, StatusEventsStatement(req))
	defer iter.Stop()

	var rows []*m_outbox.Data
	for {
		row, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate status events: %w", err)
		}

		var data m_outbox.Data
		if err := row.ToStruct(&data); err != nil {
			return nil, fmt.Errorf("failed to scan status event: %w", err)
		}
		rows = append(rows, &data)
	}

	return rows, nil
}

// StatusEventsStatement builds the read query for req.
func StatusEventsStatement(req *list_status_events.Request) spanner.Statement {
	b := query.From(m_outbox.TableName).
		Select(m_outbox.Columns...).
		Where(query.HasPrefix(m_outbox.EventType, StatusEventTypePrefix))

	if req.EventID != nil {
		b = b.Where(query.Eq(m_outbox.AggregateID, list_status_events.AggregateID(*req.EventID)))
	}
	if req.EventType != nil {
		b = b.Where(query.Eq(m_outbox.EventType, *req.EventType))
	}

	return b.OrderBy(m_outbox.CreatedAt, query.Desc).
		Limit(int64(req.Limit)).
		Build()
}
