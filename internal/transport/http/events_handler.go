package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/light-bringer/commhistory-mms/internal/app/mms/queries/list_status_events"
	"github.com/light-bringer/commhistory-mms/internal/models/m_outbox"
)

// StatusEvent is one recorded status transition.
type StatusEvent struct {
	EventID     string          `json:"event_id"`
	EventType   string          `json:"event_type"`
	AggregateID string          `json:"aggregate_id"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	Status      string          `json:"status"`
	CreatedAt   string          `json:"created_at"`
	ProcessedAt *string         `json:"processed_at,omitempty"`
}

// ListStatusEventsResponse is the body of GET /api/v1/events.
type ListStatusEventsResponse struct {
	Events     []StatusEvent `json:"events"`
	TotalCount int           `json:"total_count"`
}

func (h *Handler) handleListEvents(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	req := &list_status_events.Request{}

	if raw := query.Get("aggregate_id"); raw != "" {
		id, ok := parseEventID(raw)
		if !ok {
			writeError(w, http.StatusBadRequest, "INVALID_AGGREGATE_ID", "aggregate_id must be a positive integer")
			return
		}
		req.EventID = &id
	}
	if eventType := query.Get("event_type"); eventType != "" {
		req.EventType = &eventType
	}
	if raw := query.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_LIMIT", "limit must be an integer")
			return
		}
		req.Limit = limit
	}

	rows, err := h.statusEvents.Execute(r.Context(), req)
	if err != nil {
		h.logger.Error("list status events failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "LIST_FAILED", "failed to fetch events")
		return
	}

	events := make([]StatusEvent, 0, len(rows))
	for _, row := range rows {
		events = append(events, toStatusEvent(row))
	}
	writeJSON(w, http.StatusOK, ListStatusEventsResponse{Events: events, TotalCount: len(events)})
}

func toStatusEvent(row *m_outbox.Data) StatusEvent {
	event := StatusEvent{
		EventID:     row.EventID,
		EventType:   row.EventType,
		AggregateID: row.AggregateID,
		Status:      row.Status,
		CreatedAt:   row.CreatedAt.UTC().Format(time.RFC3339),
	}
	if row.Payload.Valid {
		if payload, err := json.Marshal(row.Payload.Value); err == nil {
			event.Payload = payload
		}
	}
	if row.ProcessedAt.Valid {
		processedAt := row.ProcessedAt.Time.UTC().Format(time.RFC3339)
		event.ProcessedAt = &processedAt
	}
	return event
}
