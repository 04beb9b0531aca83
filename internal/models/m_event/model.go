package m_event

import (
	"cloud.google.com/go/spanner"
)

// Model builds mutations for the events table.
type Model struct{}

// NewModel creates a new Model instance.
func NewModel() *Model {
	return &Model{}
}

// InsertMut creates a mutation inserting (or replacing) an event row.
func (m *Model) InsertMut(data *Data) *spanner.Mutation {
	return spanner.InsertOrUpdate(
		TableName,
		Columns,
		[]any{
			data.EventID,
			data.Direction,
			data.Status,
			data.SubscriberIdentity,
			data.ExtraProperties,
			data.Version,
			spanner.CommitTimestamp,
			spanner.CommitTimestamp,
		},
	)
}

// UpdateMut creates a mutation for the given columns of one event.
// updated_at is always stamped with the commit timestamp.
func (m *Model) UpdateMut(eventID int64, updates map[string]any) *spanner.Mutation {
	if len(updates) == 0 {
		return nil
	}

	columns := make([]string, 0, len(updates)+2)
	values := make([]any, 0, len(updates)+2)

	columns = append(columns, EventID)
	values = append(values, eventID)

	for col, val := range updates {
		if col == EventID || col == UpdatedAt {
			continue
		}
		columns = append(columns, col)
		values = append(values, val)
	}

	columns = append(columns, UpdatedAt)
	values = append(values, spanner.CommitTimestamp)

	return spanner.Update(TableName, columns, values)
}

// Key returns the primary key of an event row.
func (m *Model) Key(eventID int64) spanner.Key {
	return spanner.Key{eventID}
}
