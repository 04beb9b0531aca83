package domain

import (
	"strconv"
	"time"
)

// DomainEvent is a fact recorded by the Event aggregate and persisted with it.
type DomainEvent interface {
	EventType() string
	AggregateID() string
}

// Reasons attached to status changes.
const (
	ReasonReceiveRequested    = "receive_requested"
	ReasonNotificationMissing = "notification_data_missing"
	ReasonCancelled           = "cancelled"
)

// StatusChangedEvent is recorded whenever the orchestrator rewrites an event status.
type StatusChangedEvent struct {
	EventID   int64       `json:"event_id"`
	From      EventStatus `json:"from"`
	To        EventStatus `json:"to"`
	Direction Direction   `json:"direction"`
	Reason    string      `json:"reason"`
	ChangedAt time.Time   `json:"changed_at"`
}

func (e *StatusChangedEvent) EventType() string {
	return "mms.status." + string(e.To)
}

func (e *StatusChangedEvent) AggregateID() string {
	return strconv.FormatInt(e.EventID, 10)
}
