package domain

// EventStatus is the transport status of a stored communication event.
type EventStatus string

const (
	StatusDraft              EventStatus = "draft"
	StatusWaiting            EventStatus = "waiting"
	StatusDownloading        EventStatus = "downloading"
	StatusSending            EventStatus = "sending"
	StatusSent               EventStatus = "sent"
	StatusReceived           EventStatus = "received"
	StatusTemporarilyFailed  EventStatus = "temporarily_failed"
	StatusPermanentlyFailed  EventStatus = "permanently_failed"
	StatusManualNotification EventStatus = "manual_notification"
)

var knownStatuses = map[EventStatus]struct{}{
	StatusDraft:              {},
	StatusWaiting:            {},
	StatusDownloading:        {},
	StatusSending:            {},
	StatusSent:               {},
	StatusReceived:           {},
	StatusTemporarilyFailed:  {},
	StatusPermanentlyFailed:  {},
	StatusManualNotification: {},
}

// IsValid reports whether s is one of the known statuses.
func (s EventStatus) IsValid() bool {
	_, ok := knownStatuses[s]
	return ok
}

// IsCancellable reports whether a transport operation in this status can be cancelled.
func (s EventStatus) IsCancellable() bool {
	switch s {
	case StatusDownloading, StatusWaiting, StatusSending:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the orchestrator never moves an event out of s by itself.
// Only the engine reporting back can leave these states.
func (s EventStatus) IsTerminal() bool {
	return s == StatusPermanentlyFailed || s == StatusManualNotification
}

// Direction tells whether an event was received or sent by the device.
type Direction string

const (
	DirectionUnknown  Direction = "unknown"
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

// ParseDirection maps a stored value to a Direction, defaulting to DirectionUnknown.
func ParseDirection(value string) Direction {
	switch Direction(value) {
	case DirectionInbound:
		return DirectionInbound
	case DirectionOutbound:
		return DirectionOutbound
	default:
		return DirectionUnknown
	}
}
