package engine

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/light-bringer/commhistory-mms/internal/app/mms/contracts"
	"github.com/light-bringer/commhistory-mms/internal/app/mms/domain"
)

type receivedCall struct {
	method string
	req    *structpb.Struct
}

// fakeEngine answers every call once release is closed (or right away when it is nil).
type fakeEngine struct {
	calls   chan receivedCall
	release chan struct{}
	fail    error
}

func (e *fakeEngine) handle(ctx context.Context, method string, req *structpb.Struct) (*structpb.Struct, error) {
	e.calls <- receivedCall{method: method, req: req}
	if e.release != nil {
		select {
		case <-e.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if e.fail != nil {
		return nil, e.fail
	}
	return &structpb.Struct{}, nil
}

func methodDesc(service, name string) grpc.MethodDesc {
	fullMethod := "/" + service + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
			in := &structpb.Struct{}
			if err := dec(in); err != nil {
				return nil, err
			}
			return srv.(*fakeEngine).handle(ctx, fullMethod, in)
		},
	}
}

func startEngine(t *testing.T, engine *fakeEngine) *Client {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	server := grpc.NewServer()
	server.RegisterService(&grpc.ServiceDesc{
		ServiceName: PushServiceName,
		HandlerType: (*any)(nil),
		Methods:     []grpc.MethodDesc{methodDesc(PushServiceName, "ReceiveMessage")},
	}, engine)
	server.RegisterService(&grpc.ServiceDesc{
		ServiceName: MessageServiceName,
		HandlerType: (*any)(nil),
		Methods: []grpc.MethodDesc{
			methodDesc(MessageServiceName, "SendMessage"),
			methodDesc(MessageServiceName, "CancelMessage"),
			methodDesc(MessageServiceName, "RetrySend"),
		},
	}, engine)
	go func() { _ = server.Serve(lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	client := NewClient(conn, zap.NewNop())
	t.Cleanup(func() {
		client.Close()
		_ = conn.Close()
		server.Stop()
	})
	return client
}

func nextCall(t *testing.T, engine *fakeEngine) receivedCall {
	t.Helper()
	select {
	case c := <-engine.calls:
		return c
	case <-time.After(5 * time.Second):
		t.Fatal("engine did not receive a call")
		return receivedCall{}
	}
}

func waitDone(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("handle did not complete")
	}
}

func TestClient_NotifySend(t *testing.T) {
	engine := &fakeEngine{calls: make(chan receivedCall, 1), release: make(chan struct{})}
	client := startEngine(t, engine)

	handle := client.NotifySend(context.Background(), &contracts.SendRequest{
		To:      []string{"+15551234"},
		Subject: "hi",
		Parts: []domain.MaterializedPart{
			{FileName: "/cache/ws/1.txt", ContentType: "text/plain;charset=utf-8", ContentID: "1"},
		},
	})

	call := nextCall(t, engine)
	assert.Equal(t, SendMessageMethod, call.method)
	assert.False(t, handle.IsComplete()) // engine has not answered yet

	fields := call.req.GetFields()
	_, hasIdentity := fields[FieldSubscriberIdentity]
	assert.False(t, hasIdentity)
	assert.Equal(t, "hi", fields[FieldSubject].GetStringValue())
	assert.Equal(t, "+15551234", fields[FieldTo].GetListValue().GetValues()[0].GetStringValue())
	assert.Empty(t, fields[FieldCc].GetListValue().GetValues())

	parts := fields[FieldParts].GetListValue().GetValues()
	require.Len(t, parts, 1)
	triple := parts[0].GetListValue().GetValues()
	require.Len(t, triple, 3)
	assert.Equal(t, "/cache/ws/1.txt", triple[0].GetStringValue())
	assert.Equal(t, "text/plain;charset=utf-8", triple[1].GetStringValue())
	assert.Equal(t, "1", triple[2].GetStringValue())

	close(engine.release)
	waitDone(t, handle.Done())
	assert.NoError(t, handle.Err())
}

func TestClient_FireAndForgetCalls(t *testing.T) {
	engine := &fakeEngine{calls: make(chan receivedCall, 1)}
	client := startEngine(t, engine)
	ctx := context.Background()

	t.Run("receive", func(t *testing.T) {
		handle := client.NotifyReceive(ctx, 5, "310150123456789", true, []byte("push"))

		call := nextCall(t, engine)
		assert.Equal(t, ReceiveMessageMethod, call.method)
		fields := call.req.GetFields()
		assert.Equal(t, "5", fields[FieldEventID].GetStringValue())
		assert.Equal(t, "310150123456789", fields[FieldSubscriberIdentity].GetStringValue())
		assert.True(t, fields[FieldIsPush].GetBoolValue())
		assert.Equal(t, "cHVzaA==", fields[FieldPushData].GetStringValue())
		waitDone(t, handle.Done())
	})

	t.Run("cancel", func(t *testing.T) {
		handle := client.NotifyCancel(ctx, 7)

		call := nextCall(t, engine)
		assert.Equal(t, CancelMessageMethod, call.method)
		assert.Equal(t, "7", call.req.GetFields()[FieldEventID].GetStringValue())
		waitDone(t, handle.Done())
	})

	t.Run("retry", func(t *testing.T) {
		handle := client.NotifyRetry(ctx, 9)

		call := nextCall(t, engine)
		assert.Equal(t, RetrySendMethod, call.method)
		assert.Equal(t, "9", call.req.GetFields()[FieldEventID].GetStringValue())
		waitDone(t, handle.Done())
	})
}

func TestClient_EngineErrorCompletesHandle(t *testing.T) {
	engine := &fakeEngine{calls: make(chan receivedCall, 1), fail: status.Error(codes.Internal, "modem offline")}
	client := startEngine(t, engine)

	handle := client.NotifyRetry(context.Background(), 3)
	nextCall(t, engine)
	waitDone(t, handle.Done())

	assert.Equal(t, codes.Internal, status.Code(handle.Err()))
}

func TestClient_CallerCancellationDoesNotAbortCall(t *testing.T) {
	engine := &fakeEngine{calls: make(chan receivedCall, 1), release: make(chan struct{})}
	client := startEngine(t, engine)

	ctx, cancel := context.WithCancel(context.Background())
	handle := client.NotifyCancel(ctx, 4)
	nextCall(t, engine)
	cancel()

	time.Sleep(20 * time.Millisecond)
	assert.False(t, handle.IsComplete())

	close(engine.release)
	waitDone(t, handle.Done())
	assert.NoError(t, handle.Err())
}

func TestClient_CloseAbandonsOutstandingCalls(t *testing.T) {
	engine := &fakeEngine{calls: make(chan receivedCall, 1), release: make(chan struct{})}
	client := startEngine(t, engine)

	handle := client.NotifySend(context.Background(), &contracts.SendRequest{To: []string{"+1"}})
	nextCall(t, engine)

	client.Close()

	assert.True(t, handle.IsComplete())
	assert.Equal(t, codes.Canceled, status.Code(handle.Err()))
}

func TestSendPayload_SubscriberIdentity(t *testing.T) {
	empty := ""
	payload := SendPayload(&contracts.SendRequest{SubscriberIdentity: &empty})

	value, ok := payload.GetFields()[FieldSubscriberIdentity]
	require.True(t, ok) // an empty identity is still sent
	assert.Equal(t, "", value.GetStringValue())
}
