package repo

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/spanner"
	"google.golang.org/grpc/codes"

	"github.com/light-bringer/commhistory-mms/internal/app/mms/contracts"
	"github.com/light-bringer/commhistory-mms/internal/app/mms/domain"
	"github.com/light-bringer/commhistory-mms/internal/models/m_event"
	"github.com/light-bringer/commhistory-mms/internal/pkg/committer"
)

// EventStore implements contracts.EventStore on the Spanner events table.
type EventStore struct {
	client    *spanner.Client
	committer *committer.Committer
	outbox    contracts.OutboxRepository
	model     *m_event.Model
}

// NewEventStore creates a new EventStore.
func NewEventStore(client *spanner.Client, c *committer.Committer, outbox contracts.OutboxRepository) *EventStore {
	return &EventStore{
		client:    client,
		committer: c,
		outbox:    outbox,
		model:     m_event.NewModel(),
	}
}

var _ contracts.EventStore = (*EventStore)(nil)

// GetEventByID reads one event row and rebuilds the aggregate.
func (s *EventStore) GetEventByID(ctx context.Context, eventID int64) (*domain.Event, error) {
	row, err := s.client.Single().ReadRow(ctx, m_event.TableName, s.model.Key(eventID), m_event.Columns)
	if err != nil {
		if spanner.ErrCode(err) == codes.NotFound {
			return nil, domain.ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to read event %d: %w", eventID, err)
	}

	var data m_event.Data
	if err := row.ToStruct(&data); err != nil {
		return nil, fmt.Errorf("failed to parse event %d: %w", eventID, err)
	}

	return dataToDomain(&data)
}

// ModifyEvent writes the dirty columns of event and one outbox row per
// recorded status change in a single version-checked transaction.
func (s *EventStore) ModifyEvent(ctx context.Context, event *domain.Event) error {
	plan := committer.NewPlan()
	plan.Add(s.UpdateMut(event))
	if plan.IsEmpty() {
		return nil
	}

	outboxMuts, err := s.outboxMuts(event)
	if err != nil {
		return err
	}
	plan.AddMultiple(outboxMuts)

	err = s.committer.ApplyWithVersionCheck(ctx, m_event.TableName, s.model.Key(event.ID()), event.Version(), plan)
	if errors.Is(err, committer.ErrRowNotFound) {
		return domain.ErrEventNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to modify event %d: %w", event.ID(), err)
	}

	event.MarkPersisted()
	return nil
}

// InsertMut creates a mutation writing the full event row.
func (s *EventStore) InsertMut(event *domain.Event) *spanner.Mutation {
	return s.model.InsertMut(domainToData(event))
}

// UpdateMut creates a mutation for the dirty columns only. It returns nil when
// nothing changed.
func (s *EventStore) UpdateMut(event *domain.Event) *spanner.Mutation {
	updates := updateColumns(event)
	if len(updates) == 0 {
		return nil
	}
	return s.model.UpdateMut(event.ID(), updates)
}

func (s *EventStore) outboxMuts(event *domain.Event) ([]*spanner.Mutation, error) {
	muts := make([]*spanner.Mutation, 0, len(event.DomainEvents()))
	for _, de := range event.DomainEvents() {
		enriched, err := s.outbox.EnrichEvent(de)
		if err != nil {
			return nil, err
		}
		muts = append(muts, s.outbox.InsertMut(enriched))
	}
	return muts, nil
}

func updateColumns(event *domain.Event) map[string]any {
	changes := event.Changes()
	if !changes.HasChanges() {
		return nil
	}

	updates := make(map[string]any)
	if changes.Dirty(domain.FieldStatus) {
		updates[m_event.Status] = string(event.Status())
	}
	if changes.Dirty(domain.FieldExtraProperties) {
		updates[m_event.ExtraProperties] = extrasJSON(event.ExtraProperties())
	}
	if len(updates) == 0 {
		return nil
	}

	updates[m_event.Version] = event.Version() + 1
	return updates
}

func domainToData(event *domain.Event) *m_event.Data {
	return &m_event.Data{
		EventID:            event.ID(),
		Direction:          string(event.Direction()),
		Status:             string(event.Status()),
		SubscriberIdentity: spanner.NullString{StringVal: event.SubscriberIdentity(), Valid: event.SubscriberIdentity() != ""},
		ExtraProperties:    extrasJSON(event.ExtraProperties()),
		Version:            event.Version(),
	}
}

func dataToDomain(data *m_event.Data) (*domain.Event, error) {
	status := domain.EventStatus(data.Status)
	if !status.IsValid() {
		return nil, fmt.Errorf("event %d has status %q: %w", data.EventID, data.Status, domain.ErrInvalidStatus)
	}

	var extras map[string]any
	if data.ExtraProperties.Valid {
		if m, ok := data.ExtraProperties.Value.(map[string]any); ok {
			extras = m
		}
	}

	return domain.ReconstructEvent(
		data.EventID,
		domain.ParseDirection(data.Direction),
		status,
		data.SubscriberIdentity.StringVal,
		extras,
		data.Version,
	), nil
}

func extrasJSON(extras map[string]any) spanner.NullJSON {
	if len(extras) == 0 {
		return spanner.NullJSON{}
	}
	return spanner.NullJSON{Value: extras, Valid: true}
}
