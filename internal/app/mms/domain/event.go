package domain

import (
	"encoding/base64"
	"maps"
	"time"
)

// Field names for change tracking
const (
	FieldStatus          = "status"
	FieldExtraProperties = "extra_properties"
)

// PushDataKey is the extra property holding the raw push notification payload (base64).
const PushDataKey = "mms-push-data"

// Event is the slice of a stored communication event the transport orchestrator works on.
// The event store owns the record; the orchestrator only reads it and rewrites its status.
type Event struct {
	id                 int64
	direction          Direction
	status             EventStatus
	subscriberIdentity string
	extraProperties    map[string]any
	version            int64

	changes *ChangeTracker
	events  []DomainEvent
}

// ReconstructEvent rebuilds an Event from its stored representation.
func ReconstructEvent(
	id int64,
	direction Direction,
	status EventStatus,
	subscriberIdentity string,
	extraProperties map[string]any,
	version int64,
) *Event {
	extras := make(map[string]any, len(extraProperties))
	maps.Copy(extras, extraProperties)

	return &Event{
		id:                 id,
		direction:          direction,
		status:             status,
		subscriberIdentity: subscriberIdentity,
		extraProperties:    extras,
		version:            version,
		changes:            NewChangeTracker(),
		events:             make([]DomainEvent, 0),
	}
}

// Getters
func (e *Event) ID() int64                   { return e.id }
func (e *Event) Direction() Direction        { return e.direction }
func (e *Event) Status() EventStatus         { return e.status }
func (e *Event) SubscriberIdentity() string  { return e.subscriberIdentity }
func (e *Event) Version() int64              { return e.version }
func (e *Event) Changes() *ChangeTracker     { return e.changes }
func (e *Event) DomainEvents() []DomainEvent { return e.events }

// ExtraProperties returns a copy of the transport specific properties.
func (e *Event) ExtraProperties() map[string]any {
	extras := make(map[string]any, len(e.extraProperties))
	maps.Copy(extras, e.extraProperties)
	return extras
}

// PushData returns the decoded push notification payload, or nil when absent or malformed.
func (e *Event) PushData() []byte {
	switch v := e.extraProperties[PushDataKey].(type) {
	case []byte:
		return v
	case string:
		data, err := base64.StdEncoding.DecodeString(v)
		if err != nil {
			return nil
		}
		return data
	default:
		return nil
	}
}

// SetPushData stores the push notification payload.
func (e *Event) SetPushData(data []byte) {
	if len(data) == 0 {
		delete(e.extraProperties, PushDataKey)
	} else {
		e.extraProperties[PushDataKey] = base64.StdEncoding.EncodeToString(data)
	}
	e.changes.MarkDirty(FieldExtraProperties)
}

// HasNotificationData reports whether the event carries what the engine needs to fetch it.
func (e *Event) HasNotificationData() bool {
	return e.subscriberIdentity != "" && len(e.PushData()) > 0
}

// CanCancel reports whether a cancel request is meaningful for the current status.
func (e *Event) CanCancel() bool {
	return e.status.IsCancellable()
}

// RequestReceive moves the event into Waiting ahead of asking the engine to download it.
// Without notification data the event is marked PermanentlyFailed instead and
// ErrMissingNotificationData is returned; that status change still has to be persisted.
func (e *Event) RequestReceive(now time.Time) error {
	if !e.HasNotificationData() {
		e.transition(StatusPermanentlyFailed, ReasonNotificationMissing, now)
		return ErrMissingNotificationData
	}

	e.transition(StatusWaiting, ReasonReceiveRequested, now)
	return nil
}

// Cancel applies the cancel transition. Inbound events fall back to manual
// notification; everything else is left retryable.
func (e *Event) Cancel(now time.Time) error {
	if !e.CanCancel() {
		return ErrNotCancellable
	}

	if e.direction == DirectionInbound {
		e.transition(StatusManualNotification, ReasonCancelled, now)
	} else {
		e.transition(StatusTemporarilyFailed, ReasonCancelled, now)
	}
	return nil
}

// transition is a no-op when the event already has status to.
func (e *Event) transition(to EventStatus, reason string, now time.Time) {
	from := e.status
	if from == to {
		return
	}
	e.status = to
	e.changes.MarkDirty(FieldStatus)

	e.recordEvent(&StatusChangedEvent{
		EventID:   e.id,
		From:      from,
		To:        to,
		Direction: e.direction,
		Reason:    reason,
		ChangedAt: now,
	})
}

func (e *Event) recordEvent(event DomainEvent) {
	e.events = append(e.events, event)
}

// MarkPersisted is called by the store after a successful write.
func (e *Event) MarkPersisted() {
	e.version++
	e.changes.Clear()
	e.events = make([]DomainEvent, 0)
}
