package m_event

// Column names of the events table.
const (
	TableName = "events"

	EventID            = "event_id"
	Direction          = "direction"
	Status             = "status"
	SubscriberIdentity = "subscriber_identity"
	ExtraProperties    = "extra_properties"
	Version            = "version"
	CreatedAt          = "created_at"
	UpdatedAt          = "updated_at"
)

// Columns lists every column in Data field order.
var Columns = []string{
	EventID,
	Direction,
	Status,
	SubscriberIdentity,
	ExtraProperties,
	Version,
	CreatedAt,
	UpdatedAt,
}
