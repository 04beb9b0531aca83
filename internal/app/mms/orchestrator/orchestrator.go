// Package orchestrator is the public surface of the MMS transport core.
//
// Each operation reports a plain success flag. Failures are never returned to
// the caller as errors: they are logged once with the event id and the cause,
// and recorded on the operation's trace span. None of the operations wait for
// the engine; a true result means the call was dispatched.
package orchestrator

import (
	"context"
	"errors"
	"io/fs"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/light-bringer/commhistory-mms/internal/app/mms/domain"
	"github.com/light-bringer/commhistory-mms/internal/app/mms/usecases/cancel_message"
	"github.com/light-bringer/commhistory-mms/internal/app/mms/usecases/receive_message"
	"github.com/light-bringer/commhistory-mms/internal/app/mms/usecases/retry_send"
	"github.com/light-bringer/commhistory-mms/internal/app/mms/usecases/send_message"
)

const tracerName = "github.com/light-bringer/commhistory-mms/orchestrator"

// Orchestrator coordinates the send, receive, cancel and retry use cases.
type Orchestrator struct {
	send    *send_message.Interactor
	receive *receive_message.Interactor
	cancel  *cancel_message.Interactor
	retry   *retry_send.Interactor

	logger *zap.Logger
	tracer trace.Tracer
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithTracerProvider overrides the global OpenTelemetry tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *Orchestrator) {
		o.tracer = tp.Tracer(tracerName)
	}
}

// New creates an Orchestrator.
func New(
	send *send_message.Interactor,
	receive *receive_message.Interactor,
	cancel *cancel_message.Interactor,
	retry *retry_send.Interactor,
	logger *zap.Logger,
	opts ...Option,
) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}

	o := &Orchestrator{
		send:    send,
		receive: receive,
		cancel:  cancel,
		retry:   retry,
		logger:  logger.Named("orchestrator"),
		tracer:  otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// SendMessage materializes the parts and dispatches the message.
// It returns false, leaving nothing behind on disk, when the workspace cannot
// be created or any part fails to materialize.
func (o *Orchestrator) SendMessage(ctx context.Context, req *send_message.Request) bool {
	ctx, span := o.tracer.Start(ctx, "mms.send_message", trace.WithAttributes(
		attribute.Int("mms.part_count", len(req.Parts)),
		attribute.Int("mms.recipient_count", len(req.To)+len(req.Cc)+len(req.Bcc)),
	))
	defer span.End()

	if _, err := o.send.Execute(ctx, req); err != nil {
		o.fail(span, "send message failed", err, zap.Int("parts", len(req.Parts)))
		return false
	}

	o.logger.Debug("send message dispatched", zap.Int("parts", len(req.Parts)))
	return true
}

// ReceiveMessage asks the engine to download a notified message.
// It returns true only if the event exists and carries its notification data.
func (o *Orchestrator) ReceiveMessage(ctx context.Context, eventID int64) bool {
	ctx, span := o.startEventSpan(ctx, "mms.receive_message", eventID)
	defer span.End()

	if _, err := o.receive.Execute(ctx, &receive_message.Request{EventID: eventID}); err != nil {
		o.fail(span, "receive message failed", err, zap.Int64("event_id", eventID))
		return false
	}

	o.logger.Debug("receive message dispatched", zap.Int64("event_id", eventID))
	return true
}

// Cancel stops an in-flight transfer. It returns the result of persisting the
// cancelled status.
func (o *Orchestrator) Cancel(ctx context.Context, eventID int64) bool {
	ctx, span := o.startEventSpan(ctx, "mms.cancel", eventID)
	defer span.End()

	handle, err := o.cancel.Execute(ctx, &cancel_message.Request{EventID: eventID})
	if err != nil {
		fields := []zap.Field{zap.Int64("event_id", eventID)}
		if handle != nil {
			// The engine was already told to cancel.
			fields = append(fields, zap.Bool("engine_notified", true))
		}
		o.fail(span, "cancel failed", err, fields...)
		return false
	}

	o.logger.Debug("cancel dispatched", zap.Int64("event_id", eventID))
	return true
}

// RetrySendMessage asks the engine to resend a failed event. The engine decides
// whether the event is eligible, so this succeeds once the call is dispatched.
func (o *Orchestrator) RetrySendMessage(ctx context.Context, eventID int64) bool {
	ctx, span := o.startEventSpan(ctx, "mms.retry_send", eventID)
	defer span.End()

	if _, err := o.retry.Execute(ctx, &retry_send.Request{EventID: eventID}); err != nil {
		o.fail(span, "retry send failed", err, zap.Int64("event_id", eventID))
		return false
	}

	o.logger.Debug("retry send dispatched", zap.Int64("event_id", eventID))
	return true
}

func (o *Orchestrator) startEventSpan(ctx context.Context, name string, eventID int64) (context.Context, trace.Span) {
	return o.tracer.Start(ctx, name, trace.WithAttributes(attribute.Int64("mms.event_id", eventID)))
}

func (o *Orchestrator) fail(span trace.Span, msg string, err error, fields ...zap.Field) {
	span.RecordError(err)
	span.SetStatus(codes.Error, msg)
	span.SetAttributes(attribute.String("mms.failure", failureClass(err)))

	o.logger.Warn(msg, append(fields, zap.String("failure", failureClass(err)), zap.Error(err))...)
}

// failureClass buckets an error into validation, resource, state or store failures.
func failureClass(err error) string {
	var pathErr *fs.PathError
	switch {
	case errors.Is(err, domain.ErrMissingContentID),
		errors.Is(err, domain.ErrMissingContentSource),
		errors.Is(err, domain.ErrMissingNotificationData),
		errors.Is(err, domain.ErrUnknownContentType),
		errors.Is(err, domain.ErrInvalidEventID):
		return "validation"
	case errors.Is(err, domain.ErrWorkspaceUnavailable),
		errors.Is(err, domain.ErrShortWrite),
		errors.As(err, &pathErr):
		return "resource"
	case errors.Is(err, domain.ErrNotCancellable),
		errors.Is(err, domain.ErrEventNotFound):
		return "state"
	default:
		return "store"
	}
}
