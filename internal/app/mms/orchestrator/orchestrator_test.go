package orchestrator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/light-bringer/commhistory-mms/internal/app/mms/domain"
	"github.com/light-bringer/commhistory-mms/internal/app/mms/materializer"
	"github.com/light-bringer/commhistory-mms/internal/app/mms/usecases/cancel_message"
	"github.com/light-bringer/commhistory-mms/internal/app/mms/usecases/receive_message"
	"github.com/light-bringer/commhistory-mms/internal/app/mms/usecases/retry_send"
	"github.com/light-bringer/commhistory-mms/internal/app/mms/usecases/send_message"
	"github.com/light-bringer/commhistory-mms/internal/pkg/clock"
	"github.com/light-bringer/commhistory-mms/internal/testutil"
)

type fixture struct {
	orch      *Orchestrator
	store     *testutil.EventStore
	transport *testutil.Transport
	logs      *observer.ObservedLogs
	spans     *tracetest.SpanRecorder
	root      string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)
	spans := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	store := testutil.NewEventStore()
	transport := testutil.NewTransport()
	clk := clock.NewMockClock(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	root := filepath.Join(t.TempDir(), "mms-send")

	orch := New(
		send_message.NewInteractor(transport, materializer.New(), root, logger),
		receive_message.NewInteractor(store, transport, clk),
		cancel_message.NewInteractor(store, transport, clk),
		retry_send.NewInteractor(transport),
		logger,
		WithTracerProvider(tp),
	)

	return &fixture{orch: orch, store: store, transport: transport, logs: logs, spans: spans, root: root}
}

func (f *fixture) workspaceCount(t *testing.T) int {
	t.Helper()
	entries, err := os.ReadDir(f.root)
	if errors.Is(err, os.ErrNotExist) {
		return 0
	}
	require.NoError(t, err)
	return len(entries)
}

func TestSendMessage_SingleTextPart(t *testing.T) {
	f := newFixture(t)

	ok := f.orch.SendMessage(context.Background(), &send_message.Request{
		To:    []string{"+15551234"},
		Parts: []domain.PartSpec{domain.TextPart("1", "", "hello")},
	})
	require.True(t, ok)

	calls := f.transport.CallsTo(testutil.MethodSend)
	require.Len(t, calls, 1)
	require.Len(t, calls[0].Send.Parts, 1)
	part := calls[0].Send.Parts[0]
	assert.Equal(t, "text/plain;charset=utf-8", part.ContentType)
	assert.Equal(t, "1", part.ContentID)
	assert.FileExists(t, part.FileName)
	assert.Equal(t, 1, f.workspaceCount(t))

	// Completion reclaims the workspace
	calls[0].Handle.Complete(nil)
	assert.Equal(t, 0, f.workspaceCount(t))
	assert.NoFileExists(t, part.FileName)
}

func TestSendMessage_PartWithoutSourceCreatesNothing(t *testing.T) {
	f := newFixture(t)

	ok := f.orch.SendMessage(context.Background(), &send_message.Request{
		To:    []string{"+15551234"},
		Parts: []domain.PartSpec{domain.TextPart("1", "", "hello"), {ContentID: "2"}},
	})

	assert.False(t, ok)
	assert.Empty(t, f.transport.Calls())
	assert.Equal(t, 0, f.workspaceCount(t))

	entries := f.logs.FilterMessage("send message failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, "validation", entries[0].ContextMap()["failure"])
}

func TestReceiveMessage(t *testing.T) {
	t.Run("with notification data", func(t *testing.T) {
		f := newFixture(t)
		f.store.Put(5, domain.DirectionInbound, domain.StatusManualNotification, "310150123456789", []byte{0x8c})

		assert.True(t, f.orch.ReceiveMessage(context.Background(), 5))
		assert.Equal(t, domain.StatusWaiting, f.store.Status(5))
		assert.Len(t, f.transport.CallsTo(testutil.MethodReceive), 1)
	})

	t.Run("without push payload", func(t *testing.T) {
		f := newFixture(t)
		f.store.Put(6, domain.DirectionInbound, domain.StatusWaiting, "310150123456789", nil)

		assert.False(t, f.orch.ReceiveMessage(context.Background(), 6))
		assert.Equal(t, domain.StatusPermanentlyFailed, f.store.Status(6))
		assert.Empty(t, f.transport.Calls())
	})

	t.Run("unknown event", func(t *testing.T) {
		f := newFixture(t)

		assert.False(t, f.orch.ReceiveMessage(context.Background(), 404))
		entries := f.logs.FilterMessage("receive message failed").All()
		require.Len(t, entries, 1)
		assert.Equal(t, int64(404), entries[0].ContextMap()["event_id"])
		assert.Equal(t, "state", entries[0].ContextMap()["failure"])
	})
}

func TestCancel(t *testing.T) {
	t.Run("outbound sending event", func(t *testing.T) {
		f := newFixture(t)
		f.store.Put(7, domain.DirectionOutbound, domain.StatusSending, "", nil)

		assert.True(t, f.orch.Cancel(context.Background(), 7))
		assert.Equal(t, domain.StatusTemporarilyFailed, f.store.Status(7))
		assert.Len(t, f.transport.CallsTo(testutil.MethodCancel), 1)
	})

	t.Run("sent event", func(t *testing.T) {
		f := newFixture(t)
		f.store.Put(8, domain.DirectionOutbound, domain.StatusSent, "", nil)

		assert.False(t, f.orch.Cancel(context.Background(), 8))
		assert.Empty(t, f.transport.Calls())
		assert.Equal(t, domain.StatusSent, f.store.Status(8))
	})

	t.Run("twice in a row", func(t *testing.T) {
		f := newFixture(t)
		f.store.Put(9, domain.DirectionInbound, domain.StatusDownloading, "imsi", []byte{0x01})

		assert.True(t, f.orch.Cancel(context.Background(), 9))
		assert.False(t, f.orch.Cancel(context.Background(), 9))
		assert.Len(t, f.transport.CallsTo(testutil.MethodCancel), 1)
		assert.Equal(t, domain.StatusManualNotification, f.store.Status(9))
	})

	t.Run("store write fails after engine was told", func(t *testing.T) {
		f := newFixture(t)
		f.store.Put(10, domain.DirectionOutbound, domain.StatusWaiting, "", nil)
		f.store.ModifyErr = errors.New("store unavailable")

		assert.False(t, f.orch.Cancel(context.Background(), 10))
		assert.Len(t, f.transport.CallsTo(testutil.MethodCancel), 1)

		entries := f.logs.FilterMessage("cancel failed").All()
		require.Len(t, entries, 1)
		assert.Equal(t, true, entries[0].ContextMap()["engine_notified"])
		assert.Equal(t, "store", entries[0].ContextMap()["failure"])
	})
}

func TestRetrySendMessage(t *testing.T) {
	f := newFixture(t)

	assert.True(t, f.orch.RetrySendMessage(context.Background(), 11))
	assert.Len(t, f.transport.CallsTo(testutil.MethodRetry), 1)

	assert.False(t, f.orch.RetrySendMessage(context.Background(), 0))
	assert.Len(t, f.transport.CallsTo(testutil.MethodRetry), 1)
}

func TestSpansRecordOutcome(t *testing.T) {
	f := newFixture(t)
	f.store.Put(8, domain.DirectionOutbound, domain.StatusSent, "", nil)

	f.orch.Cancel(context.Background(), 8)
	f.orch.RetrySendMessage(context.Background(), 8)

	ended := f.spans.Ended()
	require.Len(t, ended, 2)

	assert.Equal(t, "mms.cancel", ended[0].Name())
	assert.Equal(t, codes.Error, ended[0].Status().Code)
	require.Len(t, ended[0].Events(), 1) // recorded error

	assert.Equal(t, "mms.retry_send", ended[1].Name())
	assert.Equal(t, codes.Unset, ended[1].Status().Code)
}
