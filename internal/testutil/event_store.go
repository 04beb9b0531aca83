package testutil

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"maps"
	"sync"

	"github.com/light-bringer/commhistory-mms/internal/app/mms/domain"
)

// ErrVersionConflict is returned by EventStore.ModifyEvent on a stale write.
var ErrVersionConflict = errors.New("testutil: version conflict")

type storedEvent struct {
	direction          domain.Direction
	status             domain.EventStatus
	subscriberIdentity string
	extras             map[string]any
	version            int64
}

// EventStore is an in-memory contracts.EventStore.
type EventStore struct {
	mu      sync.Mutex
	rows    map[int64]*storedEvent
	history []domain.DomainEvent
	modify  int

	// ModifyErr makes every ModifyEvent call fail with this error.
	ModifyErr error
	// GetErr makes every GetEventByID call fail with this error.
	GetErr error
	// Journal, when set, receives "store.modify:<id>:<status>" entries.
	Journal *Journal
}

// NewEventStore creates an empty store.
func NewEventStore() *EventStore {
	return &EventStore{rows: make(map[int64]*storedEvent)}
}

// Put inserts or replaces an event. pushData may be nil.
func (s *EventStore) Put(id int64, direction domain.Direction, status domain.EventStatus, subscriberIdentity string, pushData []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	extras := map[string]any{}
	if len(pushData) > 0 {
		extras[domain.PushDataKey] = base64.StdEncoding.EncodeToString(pushData)
	}
	s.rows[id] = &storedEvent{
		direction:          direction,
		status:             status,
		subscriberIdentity: subscriberIdentity,
		extras:             extras,
	}
}

// Status returns the persisted status of an event.
func (s *EventStore) Status(id int64) domain.EventStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	if row, ok := s.rows[id]; ok {
		return row.status
	}
	return ""
}

// ModifyCount returns how many writes were persisted.
func (s *EventStore) ModifyCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.modify
}

// History returns every domain event persisted so far.
func (s *EventStore) History() []domain.DomainEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.DomainEvent(nil), s.history...)
}

// GetEventByID implements contracts.EventStore.
func (s *EventStore) GetEventByID(_ context.Context, eventID int64) (*domain.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.GetErr != nil {
		return nil, s.GetErr
	}
	row, ok := s.rows[eventID]
	if !ok {
		return nil, domain.ErrEventNotFound
	}
	return domain.ReconstructEvent(eventID, row.direction, row.status, row.subscriberIdentity, row.extras, row.version), nil
}

// ModifyEvent implements contracts.EventStore.
func (s *EventStore) ModifyEvent(_ context.Context, event *domain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ModifyErr != nil {
		return s.ModifyErr
	}
	row, ok := s.rows[event.ID()]
	if !ok {
		return domain.ErrEventNotFound
	}
	if row.version != event.Version() {
		return fmt.Errorf("event %d: %w", event.ID(), ErrVersionConflict)
	}

	row.status = event.Status()
	row.extras = maps.Clone(event.ExtraProperties())
	row.version++
	s.modify++
	s.history = append(s.history, event.DomainEvents()...)
	s.Journal.Append(fmt.Sprintf("store.modify:%d:%s", event.ID(), event.Status()))

	event.MarkPersisted()
	return nil
}
