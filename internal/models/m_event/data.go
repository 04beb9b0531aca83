package m_event

import (
	"time"

	"cloud.google.com/go/spanner"
)

// Data is one row of the events table.
type Data struct {
	EventID            int64              `spanner:"event_id"`
	Direction          string             `spanner:"direction"`
	Status             string             `spanner:"status"`
	SubscriberIdentity spanner.NullString `spanner:"subscriber_identity"`
	ExtraProperties    spanner.NullJSON   `spanner:"extra_properties"`
	Version            int64              `spanner:"version"`
	CreatedAt          time.Time          `spanner:"created_at"`
	UpdatedAt          time.Time          `spanner:"updated_at"`
}
