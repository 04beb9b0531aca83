package http

import (
	"context"
	"net/http"

	"github.com/light-bringer/commhistory-mms/internal/app/mms/domain"
	"github.com/light-bringer/commhistory-mms/internal/app/mms/usecases/send_message"
)

type sendMessageRequest struct {
	SubscriberIdentity *string       `json:"subscriber_identity,omitempty"`
	To                 []string      `json:"to"`
	Cc                 []string      `json:"cc,omitempty"`
	Bcc                []string      `json:"bcc,omitempty"`
	Subject            string        `json:"subject,omitempty"`
	Parts              []partRequest `json:"parts"`
}

// partRequest carries exactly one of Path and Text.
type partRequest struct {
	ContentID   string  `json:"content_id"`
	ContentType string  `json:"content_type,omitempty"`
	Path        *string `json:"path,omitempty"`
	Text        *string `json:"text,omitempty"`
}

func (p partRequest) toSpec() (domain.PartSpec, bool) {
	spec := domain.PartSpec{ContentID: p.ContentID, ContentType: p.ContentType}
	switch {
	case p.Path != nil && p.Text != nil:
		return spec, false
	case p.Path != nil:
		spec.Source = domain.FilePath(*p.Path)
	case p.Text != nil:
		spec.Source = domain.InlineText(*p.Text)
	}
	return spec, true
}

func (h *Handler) handleSend(w http.ResponseWriter, r *http.Request) {
	var body sendMessageRequest
	if !decodeJSON(w, r, &body) {
		return
	}

	req := &send_message.Request{
		SubscriberIdentity: body.SubscriberIdentity,
		To:                 body.To,
		Cc:                 body.Cc,
		Bcc:                body.Bcc,
		Subject:            body.Subject,
		Parts:              make([]domain.PartSpec, 0, len(body.Parts)),
	}
	for _, p := range body.Parts {
		spec, ok := p.toSpec()
		if !ok {
			writeError(w, http.StatusBadRequest, "AMBIGUOUS_PART", "part "+p.ContentID+" sets both path and text")
			return
		}
		req.Parts = append(req.Parts, spec)
	}

	if !h.orchestrator.SendMessage(r.Context(), req) {
		writeError(w, http.StatusConflict, "SEND_FAILED", "message could not be dispatched")
		return
	}
	writeJSON(w, http.StatusAccepted, acceptedResponse{Status: "accepted"})
}

type eventOperation struct {
	name string
	code string
	run  func(o Orchestrator, ctx context.Context, eventID int64) bool
}

var (
	opReceive = eventOperation{"receive", "RECEIVE_FAILED", Orchestrator.ReceiveMessage}
	opCancel  = eventOperation{"cancel", "CANCEL_FAILED", Orchestrator.Cancel}
	opRetry   = eventOperation{"retry", "RETRY_FAILED", Orchestrator.RetrySendMessage}
)

func (h *Handler) handleEventOperation(op eventOperation) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		eventID, ok := parseEventID(r.PathValue("id"))
		if !ok {
			writeError(w, http.StatusBadRequest, "INVALID_EVENT_ID", "event id must be a positive integer")
			return
		}

		if !op.run(h.orchestrator, r.Context(), eventID) {
			writeError(w, http.StatusConflict, op.code, op.name+" was not performed")
			return
		}
		writeJSON(w, http.StatusAccepted, acceptedResponse{Status: "accepted", EventID: eventID})
	}
}
