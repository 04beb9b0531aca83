// Package http exposes the MMS orchestrator and the status history over JSON.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/light-bringer/commhistory-mms/internal/app/mms/queries/list_status_events"
	"github.com/light-bringer/commhistory-mms/internal/app/mms/usecases/send_message"
	"github.com/light-bringer/commhistory-mms/internal/models/m_outbox"
)

const maxBodyBytes = 1 << 20

// Orchestrator is the operation surface the handlers drive.
type Orchestrator interface {
	SendMessage(ctx context.Context, req *send_message.Request) bool
	ReceiveMessage(ctx context.Context, eventID int64) bool
	Cancel(ctx context.Context, eventID int64) bool
	RetrySendMessage(ctx context.Context, eventID int64) bool
}

// StatusEventsQuery lists recorded status transitions.
type StatusEventsQuery interface {
	Execute(ctx context.Context, req *list_status_events.Request) ([]*m_outbox.Data, error)
}

// Handler serves the HTTP API.
type Handler struct {
	orchestrator Orchestrator
	statusEvents StatusEventsQuery
	logger       *zap.Logger
}

// NewHandler creates a new Handler.
func NewHandler(orchestrator Orchestrator, statusEvents StatusEventsQuery, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		orchestrator: orchestrator,
		statusEvents: statusEvents,
		logger:       logger.Named("http"),
	}
}

// Routes registers every endpoint on a new mux.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/messages", h.handleSend)
	mux.HandleFunc("POST /api/v1/events/{id}/receive", h.handleEventOperation(opReceive))
	mux.HandleFunc("POST /api/v1/events/{id}/cancel", h.handleEventOperation(opCancel))
	mux.HandleFunc("POST /api/v1/events/{id}/retry", h.handleEventOperation(opRetry))
	mux.HandleFunc("GET /api/v1/events", h.handleListEvents)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return h.logRequests(mux)
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)
		h.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

type errorEnvelope struct {
	Status string    `json:"status"`
	Error  errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type acceptedResponse struct {
	Status  string `json:"status"`
	EventID int64  `json:"event_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorEnvelope{
		Status: "error",
		Error:  errorBody{Code: code, Message: message},
	})
}

// decodeJSON reads a single JSON object and rejects unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return false
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "request body must hold a single object")
		return false
	}
	return true
}

func parseEventID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
